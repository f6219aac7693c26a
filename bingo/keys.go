/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package bingo

import "strings"

// Key names shared by every front-end. Letters are passed as themselves.
const (
	KeyEnter  = "Enter"
	KeySpace  = " "
	KeyEscape = "Escape"
)

// CommandForKey maps a key press to a command for the given state.
// CommandNone means the key has no meaning here and the view may use it.
func CommandForKey(key string, st State) Command {
	switch key {
	case KeyEnter, KeySpace, "Space", "Spacebar":
		if st.Blocked() {
			return CommandDismiss
		}
		if st.Phase == PhaseStart {
			return CommandStart
		}
		return CommandNone
	case KeyEscape, "Esc":
		if st.Blocked() {
			return CommandDismiss
		}
		return CommandNone
	}

	switch strings.ToLower(key) {
	case "s":
		if st.Phase == PhaseStart && !st.Blocked() {
			return CommandStart
		}
	case "h":
		return CommandHelp
	case "a":
		return CommandAbout
	case "r":
		if st.Phase == PhaseGame && !st.Blocked() {
			return CommandReset
		}
	}

	return CommandNone
}
