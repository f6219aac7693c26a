/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package bingo

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

var (
	ErrWrongPhase = errors.New("command not allowed right now")
	ErrBusy       = errors.New("another command is pending")
)

type Phase string

const (
	PhaseStart Phase = "start"
	PhaseGame  Phase = "game"
)

type Overlay string

const (
	OverlayNone  Overlay = ""
	OverlayHelp  Overlay = "help"
	OverlayAbout Overlay = "about"
)

// Command is a user intent, independent of the input device.
type Command string

const (
	CommandNone    Command = ""
	CommandStart   Command = "start"
	CommandHelp    Command = "help"
	CommandAbout   Command = "about"
	CommandDismiss Command = "dismiss"
	CommandReset   Command = "reset"
)

// State is a snapshot of a game, safe to hand to a renderer or encode.
type State struct {
	Phase    Phase   `json:"phase"`
	Overlay  Overlay `json:"overlay,omitempty"`
	Modal    bool    `json:"modal"`
	HasBingo bool    `json:"has_bingo"`
	Board    Board   `json:"board"`
	Winning  []int   `json:"winning"`
	Lines    []int   `json:"lines"`
	Pending  Command `json:"pending,omitempty"`
}

// Blocked reports whether a modal or overlay is covering the board.
func (s State) Blocked() bool {
	return s.Modal || s.Overlay != OverlayNone
}

// Game owns all state for one player's screen. It is not safe for
// concurrent use; callers serialize access.
type Game struct {
	pool []string
	rng  *rand.Rand

	board    Board
	result   Result
	phase    Phase
	overlay  Overlay
	modal    bool
	hasBingo bool
	pending  Command
}

// NewGame validates pool and deals the first board.
func NewGame(pool []string, rng *rand.Rand) (*Game, error) {
	board, err := NewBoard(pool, rng)
	if err != nil {
		return nil, err
	}

	g := &Game{
		pool:  pool,
		rng:   rng,
		board: board,
		phase: PhaseStart,
	}
	g.result = g.board.Winning()

	return g, nil
}

func (g *Game) Start() {
	g.phase = PhaseGame
	g.overlay = OverlayNone
}

// Toggle marks or unmarks square id and re-evaluates the board. The win
// modal opens when the board goes from no bingo to bingo.
func (g *Game) Toggle(id int) error {
	if g.phase != PhaseGame || g.modal || g.overlay != OverlayNone {
		return fmt.Errorf("%w: toggle", ErrWrongPhase)
	}

	changed, err := g.board.Toggle(id)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	g.evaluate()

	return nil
}

func (g *Game) evaluate() {
	g.result = g.board.Winning()

	if g.result.HasBingo && !g.hasBingo {
		g.modal = true
	}
	if !g.result.HasBingo {
		g.modal = false
	}

	g.hasBingo = g.result.HasBingo
}

// Reset deals a new board from the same pool and clears the win state.
func (g *Game) Reset() error {
	board, err := NewBoard(g.pool, g.rng)
	if err != nil {
		return err
	}

	g.board = board
	g.result = g.board.Winning()
	g.hasBingo = false
	g.modal = false
	g.overlay = OverlayNone

	return nil
}

func (g *Game) DismissModal() {
	g.modal = false
}

func (g *Game) ShowOverlay(o Overlay) {
	g.overlay = o
}

func (g *Game) CloseOverlay() {
	g.overlay = OverlayNone
}

// Apply dispatches a command. Dismiss closes an open overlay first, then
// the win modal.
func (g *Game) Apply(cmd Command) error {
	switch cmd {
	case CommandNone:
		return nil
	case CommandStart:
		if g.phase != PhaseStart {
			return fmt.Errorf("%w: %s", ErrWrongPhase, cmd)
		}
		g.Start()
	case CommandHelp:
		g.ShowOverlay(OverlayHelp)
	case CommandAbout:
		g.ShowOverlay(OverlayAbout)
	case CommandDismiss:
		if g.overlay != OverlayNone {
			g.CloseOverlay()
		} else {
			g.DismissModal()
		}
	case CommandReset:
		if g.phase != PhaseGame {
			return fmt.Errorf("%w: %s", ErrWrongPhase, cmd)
		}
		return g.Reset()
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}

	return nil
}

// Hold marks cmd as in flight while a view plays its delay. It fails if
// any command is already held.
func (g *Game) Hold(cmd Command) bool {
	if g.pending != CommandNone || cmd == CommandNone {
		return false
	}
	g.pending = cmd
	return true
}

// Release clears the held command and returns it.
func (g *Game) Release() Command {
	cmd := g.pending
	g.pending = CommandNone
	return cmd
}

// Complete releases the held command and applies it.
func (g *Game) Complete() error {
	return g.Apply(g.Release())
}

func (g *Game) Snapshot() State {
	return State{
		Phase:    g.phase,
		Overlay:  g.overlay,
		Modal:    g.modal,
		HasBingo: g.hasBingo,
		Board:    g.board,
		Winning:  g.result.SortedSquares(),
		Lines:    append([]int{}, g.result.Lines...),
		Pending:  g.pending,
	}
}
