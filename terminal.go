/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/Seednode/socops/bingo"
	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
)

const (
	bootStep           = 150 * time.Millisecond
	terminalStartDelay = 600 * time.Millisecond

	maxCellWidth  = 18
	maxCellHeight = 5
)

type uiAction uint8

const (
	actionNone uiAction = iota
	actionQuit
	actionHold
)

// palette maps a theme onto terminal colors.
type palette struct {
	base    tcell.Style
	dim     tcell.Style
	bright  tcell.Style
	marked  tcell.Style
	winning tcell.Style
	cursor  tcell.Style
	border  tcell.Style
}

func paletteFor(t bingo.Theme) palette {
	if t.Name == bingo.ThemeCloud.Name {
		bg := tcell.NewRGBColor(236, 240, 255)
		text := tcell.NewRGBColor(59, 63, 92)
		base := tcell.StyleDefault.Background(bg).Foreground(text)
		return palette{
			base:    base,
			dim:     base.Foreground(tcell.NewRGBColor(122, 127, 158)),
			bright:  base.Foreground(tcell.NewRGBColor(208, 88, 143)).Bold(true),
			marked:  base.Background(tcell.NewRGBColor(255, 210, 232)).Foreground(tcell.NewRGBColor(208, 88, 143)),
			winning: base.Background(tcell.NewRGBColor(255, 232, 204)).Foreground(text).Bold(true),
			cursor:  base.Reverse(true),
			border:  base.Foreground(tcell.NewRGBColor(180, 200, 235)),
		}
	}

	bg := tcell.NewRGBColor(5, 8, 5)
	green := tcell.NewRGBColor(0, 255, 65)
	base := tcell.StyleDefault.Background(bg).Foreground(green)
	return palette{
		base:    base,
		dim:     base.Foreground(tcell.NewRGBColor(0, 179, 45)),
		bright:  base.Foreground(tcell.NewRGBColor(125, 255, 155)).Bold(true),
		marked:  base.Background(tcell.NewRGBColor(0, 64, 16)).Foreground(tcell.NewRGBColor(125, 255, 155)),
		winning: base.Background(green).Foreground(bg).Bold(true),
		cursor:  base.Reverse(true),
		border:  base.Foreground(tcell.NewRGBColor(0, 110, 28)),
	}
}

// terminalUI draws one game on one tcell screen and turns input into
// commands. Game state lives in game; the UI keeps only view state.
type terminalUI struct {
	screen  tcell.Screen
	game    *bingo.Game
	theme   bingo.Theme
	colors  palette
	boot    *bingo.Boot
	cursor  int
	status  string
	buttons tcell.ButtonMask
}

func newTerminalUI(screen tcell.Screen, game *bingo.Game, theme bingo.Theme) *terminalUI {
	return &terminalUI{
		screen: screen,
		game:   game,
		theme:  theme,
		colors: paletteFor(theme),
		boot:   bingo.NewBoot(theme),
		cursor: bingo.FreeSpace,
	}
}

func newTerminalGame(cfg *Config) (*bingo.Game, error) {
	var rng *rand.Rand
	if cfg.seed != 0 {
		rng = bingo.Seeded(cfg.seed)
	} else {
		rng = bingo.Random()
	}

	return bingo.NewGame(cfg.pool, rng)
}

func playLocal(ctx context.Context, cfg *Config) error {
	game, err := newTerminalGame(cfg)
	if err != nil {
		return err
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()

	return newTerminalUI(screen, game, cfg.defaultTheme()).run(ctx)
}

// run owns the event loop until the player quits or ctx ends. The boot
// ticker and start timer are stopped on the way out.
func (ui *terminalUI) run(ctx context.Context) error {
	ui.screen.EnableMouse()
	ui.screen.HideCursor()

	done := make(chan struct{})
	defer close(done)

	events := make(chan tcell.Event, 32)
	go func() {
		for {
			ev := ui.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-done:
				return
			}
		}
	}()

	ticker := time.NewTicker(bootStep)
	defer ticker.Stop()
	bootC := ticker.C

	var timer *time.Timer
	var startC <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		ui.draw()

		select {
		case <-ctx.Done():
			return nil

		case <-bootC:
			if !ui.boot.Step() {
				ticker.Stop()
				bootC = nil
			}

		case <-startC:
			startC = nil
			ui.release()

		case ev := <-events:
			var action uiAction
			switch ev := ev.(type) {
			case *tcell.EventResize:
				ui.screen.Sync()
			case *tcell.EventKey:
				action = ui.handleKey(ev)
			case *tcell.EventMouse:
				ui.handleMouse(ev)
			}

			switch action {
			case actionQuit:
				return nil
			case actionHold:
				timer = time.NewTimer(terminalStartDelay)
				startC = timer.C
			}
		}
	}
}

func keyName(ev *tcell.EventKey) string {
	switch ev.Key() {
	case tcell.KeyEnter:
		return bingo.KeyEnter
	case tcell.KeyEscape:
		return bingo.KeyEscape
	case tcell.KeyRune:
		return string(ev.Rune())
	}
	return ""
}

func (ui *terminalUI) handleKey(ev *tcell.EventKey) uiAction {
	ui.status = ""

	switch ev.Key() {
	case tcell.KeyCtrlC:
		return actionQuit
	case tcell.KeyUp:
		ui.move(0, -1)
		return actionNone
	case tcell.KeyDown:
		ui.move(0, 1)
		return actionNone
	case tcell.KeyLeft:
		ui.move(-1, 0)
		return actionNone
	case tcell.KeyRight:
		ui.move(1, 0)
		return actionNone
	case tcell.KeyRune:
		if r := ev.Rune(); r == 'q' || r == 'Q' {
			return actionQuit
		}
	}

	st := ui.game.Snapshot()
	name := keyName(ev)
	selecting := name == bingo.KeyEnter || name == bingo.KeySpace

	if st.Phase == bingo.PhaseStart && !st.Blocked() && selecting && !ui.boot.Done() {
		ui.boot.Skip()
		return actionNone
	}

	cmd := bingo.CommandForKey(name, st)
	switch cmd {
	case bingo.CommandNone:
		if selecting && st.Phase == bingo.PhaseGame && !st.Blocked() {
			ui.toggle(ui.cursor)
		}
		return actionNone

	case bingo.CommandStart:
		if !ui.game.Hold(cmd) {
			ui.status = errorText(bingo.ErrBusy)
			return actionNone
		}
		ui.boot.Skip()
		return actionHold
	}

	if st.Pending != bingo.CommandNone {
		ui.status = errorText(bingo.ErrBusy)
		return actionNone
	}

	if err := ui.game.Apply(cmd); err != nil {
		ui.status = errorText(err)
	}

	return actionNone
}

// release applies the held command once its delay has run.
func (ui *terminalUI) release() {
	if err := ui.game.Complete(); err != nil {
		ui.status = errorText(err)
	}
}

func (ui *terminalUI) toggle(id int) {
	if err := ui.game.Toggle(id); err != nil && !errors.Is(err, bingo.ErrWrongPhase) {
		ui.status = errorText(err)
	}
}

func (ui *terminalUI) move(dx, dy int) {
	col := (ui.cursor%bingo.Size + dx + bingo.Size) % bingo.Size
	row := (ui.cursor/bingo.Size + dy + bingo.Size) % bingo.Size
	ui.cursor = row*bingo.Size + col
}

func (ui *terminalUI) handleMouse(ev *tcell.EventMouse) {
	pressed := ev.Buttons()&tcell.Button1 != 0 && ui.buttons&tcell.Button1 == 0
	ui.buttons = ev.Buttons()

	if !pressed {
		return
	}

	st := ui.game.Snapshot()
	if st.Phase != bingo.PhaseGame || st.Blocked() {
		return
	}

	x, y := ev.Position()
	if id, ok := ui.squareAt(x, y); ok {
		ui.cursor = id
		ui.toggle(id)
	}
}

// grid describes where the board sits on screen.
type grid struct {
	x, y          int
	width, height int
}

func (ui *terminalUI) layout() grid {
	w, h := ui.screen.Size()

	cellW := min(maxCellWidth, (w-2)/bingo.Size)
	cellH := min(maxCellHeight, (h-6)/bingo.Size)
	cellW = max(cellW, 4)
	cellH = max(cellH, 3)

	x := max((w-cellW*bingo.Size)/2, 0)

	return grid{x: x, y: 4, width: cellW, height: cellH}
}

func (ui *terminalUI) squareAt(x, y int) (int, bool) {
	g := ui.layout()

	if x < g.x || y < g.y {
		return 0, false
	}

	col := (x - g.x) / g.width
	row := (y - g.y) / g.height
	if col >= bingo.Size || row >= bingo.Size {
		return 0, false
	}

	return row*bingo.Size + col, true
}

func (ui *terminalUI) draw() {
	ui.screen.SetStyle(ui.colors.base)
	ui.screen.Clear()

	st := ui.game.Snapshot()

	switch st.Phase {
	case bingo.PhaseStart:
		ui.drawStart(st)
	default:
		ui.drawGame(st)
	}

	switch {
	case st.Overlay == bingo.OverlayHelp:
		ui.drawBox(ui.theme.Help, "[ESC] CLOSE")
	case st.Overlay == bingo.OverlayAbout:
		ui.drawBox(ui.theme.About, "[ESC] CLOSE")
	case st.Modal:
		ui.drawBox(append([]string{ui.theme.ModalTitle, ""}, ui.theme.ModalLines...), ui.theme.ContinueLabel)
	}

	if ui.status != "" {
		_, h := ui.screen.Size()
		drawText(ui.screen, 1, h-1, ui.status, ui.colors.bright)
	}

	ui.screen.Show()
}

func (ui *terminalUI) drawStart(st bingo.State) {
	y := 1
	for _, line := range ui.theme.Boot[:ui.boot.Shown()] {
		drawText(ui.screen, 2, y, line, ui.colors.base)
		y++
	}

	if !ui.boot.Done() {
		drawText(ui.screen, 2, y, "█", ui.colors.base)
		return
	}

	y++
	for _, line := range ui.theme.Instructions {
		drawText(ui.screen, 2, y, line, ui.colors.dim)
		y++
	}

	y++
	label := ui.theme.StartLabel + "  [S]"
	if st.Pending == bingo.CommandStart {
		label = "> EXECUTING..."
	}
	drawText(ui.screen, 2, y, label, ui.colors.bright)

	drawText(ui.screen, 2, y+2, "[H] HELP  [A] ABOUT  [Q] QUIT", ui.colors.dim)
}

func (ui *terminalUI) drawGame(st bingo.State) {
	drawText(ui.screen, 1, 0, ui.theme.Title, ui.colors.bright)
	drawText(ui.screen, 1, 1, "[ARROWS] MOVE  [ENTER] MARK  [R] RESET  [H] HELP  [A] ABOUT  [Q] QUIT", ui.colors.dim)
	if st.HasBingo {
		drawText(ui.screen, 1, 2, ui.theme.Banner, ui.colors.bright)
	}

	g := ui.layout()
	winning := make(map[int]bool, len(st.Winning))
	for _, idx := range st.Winning {
		winning[idx] = true
	}

	for _, sq := range st.Board {
		x := g.x + (sq.ID%bingo.Size)*g.width
		y := g.y + (sq.ID/bingo.Size)*g.height

		style := ui.colors.base
		switch {
		case winning[sq.ID]:
			style = ui.colors.winning
		case sq.IsMarked:
			style = ui.colors.marked
		}
		if sq.ID == ui.cursor {
			style = style.Reverse(true)
		}

		text := sq.Text
		if sq.IsFreeSpace {
			text = ui.theme.FreeSpaceLabel
		}

		ui.drawCell(x, y, g.width, g.height, text, style)
	}
}

// drawCell fills a cell, outlines it and centers the wrapped prompt inside.
func (ui *terminalUI) drawCell(x, y, w, h int, text string, style tcell.Style) {
	for row := y; row < y+h; row++ {
		for col := x; col < x+w; col++ {
			ui.screen.SetContent(col, row, ' ', nil, style)
		}
	}

	border := ui.colors.border
	for col := x; col < x+w; col++ {
		ui.screen.SetContent(col, y+h-1, '─', nil, border)
	}
	for row := y; row < y+h; row++ {
		ui.screen.SetContent(x+w-1, row, '│', nil, border)
	}
	ui.screen.SetContent(x+w-1, y+h-1, '┘', nil, border)

	inner := w - 1
	lines := wrapText(text, inner)
	if len(lines) > h-1 {
		lines = lines[:h-1]
		last := len(lines) - 1
		lines[last] = runewidth.Truncate(lines[last]+" …", inner, "…")
	}

	top := y + (h-1-len(lines))/2
	for i, line := range lines {
		pad := (inner - runewidth.StringWidth(line)) / 2
		drawText(ui.screen, x+pad, top+i, line, style)
	}
}

// drawBox draws a centered bordered box with lines and a footer label.
func (ui *terminalUI) drawBox(lines []string, footer string) {
	sw, sh := ui.screen.Size()

	width := runewidth.StringWidth(footer)
	for _, l := range lines {
		width = max(width, runewidth.StringWidth(l))
	}
	width = min(width+4, sw)
	height := min(len(lines)+4, sh)

	x := max((sw-width)/2, 0)
	y := max((sh-height)/2, 0)

	style := ui.colors.bright
	for row := y; row < y+height; row++ {
		for col := x; col < x+width; col++ {
			ch := ' '
			switch {
			case row == y || row == y+height-1:
				ch = '═'
			case col == x || col == x+width-1:
				ch = '║'
			}
			ui.screen.SetContent(col, row, ch, nil, style)
		}
	}
	ui.screen.SetContent(x, y, '╔', nil, style)
	ui.screen.SetContent(x+width-1, y, '╗', nil, style)
	ui.screen.SetContent(x, y+height-1, '╚', nil, style)
	ui.screen.SetContent(x+width-1, y+height-1, '╝', nil, style)

	for i, l := range lines {
		drawText(ui.screen, x+2, y+1+i, l, ui.colors.base)
	}
	drawText(ui.screen, x+2, y+height-2, footer, style)
}

// wrapText breaks s into lines no wider than width display columns.
func wrapText(s string, width int) []string {
	if width <= 0 {
		return nil
	}

	var lines []string
	var line string

	for _, word := range strings.Fields(s) {
		if runewidth.StringWidth(word) > width {
			word = runewidth.Truncate(word, width, "…")
		}

		switch {
		case line == "":
			line = word
		case runewidth.StringWidth(line)+1+runewidth.StringWidth(word) <= width:
			line += " " + word
		default:
			lines = append(lines, line)
			line = word
		}
	}
	if line != "" {
		lines = append(lines, line)
	}

	return lines
}

// drawText writes a string to the screen at (x, y), advancing by display width.
func drawText(screen tcell.Screen, x, y int, text string, style tcell.Style) {
	col := x
	for _, ch := range text {
		screen.SetContent(col, y, ch, nil, style)
		col += max(runewidth.RuneWidth(ch), 1)
	}
}
