/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package bingo

import (
	"fmt"
	"strings"
)

// Theme carries the copy for one skin of the game. Front-ends pick colors
// and layout by Name; the words live here.
type Theme struct {
	Name           string   `json:"name"`
	Title          string   `json:"title"`
	Boot           []string `json:"boot"`
	Instructions   []string `json:"instructions"`
	StartLabel     string   `json:"start_label"`
	ResetLabel     string   `json:"reset_label"`
	ContinueLabel  string   `json:"continue_label"`
	FreeSpaceLabel string   `json:"free_space_label"`
	MarkedLabel    string   `json:"marked_label"`
	Banner         string   `json:"banner"`
	ModalTitle     string   `json:"modal_title"`
	ModalLines     []string `json:"modal_lines"`
	Help           []string `json:"help"`
	About          []string `json:"about"`
}

var ThemeTerminal = Theme{
	Name:  "terminal",
	Title: "SOC OPS TERMINAL v2.1",
	Boot: []string{
		"SYSTEM v2.1 INITIALIZING...",
		"LOADING SOCIAL PROTOCOLS...",
		"> SOC_OPS.EXE",
		"",
		"╔═══════════════════════════════╗",
		"║      SOC OPS TERMINAL v2.1    ║",
		"║      SOCIAL BINGO SYSTEM      ║",
		"╚═══════════════════════════════╝",
	},
	Instructions: []string{
		"> MISSION PARAMETERS:",
		"  [1] LOCATE TARGETS MATCHING CRITERIA",
		"  [2] EXECUTE TAP ON VERIFIED MATCH",
		"  [3] ACHIEVE 5-IN-ROW FOR VICTORY",
		"",
		"> STATUS: READY FOR DEPLOYMENT",
	},
	StartLabel:     "[ INITIATE MISSION ]",
	ResetLabel:     "[ RESET ]",
	ContinueLabel:  "[ CONTINUE_MISSION ]",
	FreeSpaceLabel: "FREE",
	MarkedLabel:    "[X]",
	Banner:         "> BINGO DETECTED. LINE COMPLETE.",
	ModalTitle:     "★ BINGO ★",
	ModalLines: []string{
		"███ MISSION COMPLETE ███",
		"> OBJECTIVE_ACHIEVED.LOG",
		"> STATUS: OPERATIONAL",
		"> CONTINUE_MISSION? [Y/N]",
	},
	Help: []string{
		"> HELP.TXT",
		"  FIND SOMEONE WHO MATCHES A SQUARE, THEN MARK IT.",
		"  FIVE MARKED IN A ROW, COLUMN OR DIAGONAL WINS.",
		"  THE CENTER SQUARE IS FREE.",
		"",
		"  [S] START  [H] HELP  [A] ABOUT  [R] RESET",
		"  [ENTER]/[SPACE] SELECT  [ESC] CLOSE",
	},
	About: []string{
		"> ABOUT.TXT",
		"  SOC OPS: SOCIAL BINGO FOR ROOMS FULL OF STRANGERS.",
		"  NO ACCOUNTS. NO TRACKING. NOTHING IS SAVED.",
	},
}

var ThemeCloud = Theme{
	Name:  "cloud",
	Title: "Cloud Bingo",
	Boot: []string{
		"Gathering the clouds...",
		"Warming up the sky...",
		"Cloud Bingo",
	},
	Instructions: []string{
		"Find people who match the prompts.",
		"Tap a square when you find a match.",
		"Five in a row, column or diagonal wins.",
	},
	StartLabel:     "Start playing",
	ResetLabel:     "Reset board",
	ContinueLabel:  "Keep floating",
	FreeSpaceLabel: "Free Cloud",
	MarkedLabel:    "marked",
	Banner:         "You traced a perfect line across the clouds, bingo achieved!",
	ModalTitle:     "Bingo!",
	ModalLines: []string{
		"Five in a row, beautifully done.",
		"Keep mingling for another line.",
	},
	Help: []string{
		"Talk to people and find someone who matches each prompt.",
		"Tap a square to mark it, tap again to clear it.",
		"Complete a row, column or diagonal to win.",
		"The center cloud is free.",
	},
	About: []string{
		"Cloud Bingo is a social icebreaker.",
		"Nothing you mark leaves this session.",
	},
}

func Themes() []Theme {
	return []Theme{ThemeTerminal, ThemeCloud}
}

// ThemeByName looks up a theme, ignoring case.
func ThemeByName(name string) (Theme, error) {
	for _, t := range Themes() {
		if strings.EqualFold(t.Name, name) {
			return t, nil
		}
	}

	return Theme{}, fmt.Errorf("unknown theme %q", name)
}

// Boot reveals a theme's boot lines one at a time.
type Boot struct {
	shown int
	total int
}

func NewBoot(t Theme) *Boot {
	return &Boot{total: len(t.Boot)}
}

// Step reveals the next line and reports whether more remain.
func (b *Boot) Step() bool {
	if b.shown < b.total {
		b.shown++
	}
	return !b.Done()
}

func (b *Boot) Shown() int {
	return b.shown
}

func (b *Boot) Done() bool {
	return b.shown >= b.total
}

// Skip reveals everything at once.
func (b *Boot) Skip() {
	b.shown = b.total
}
