// Soc Ops Bingo
//
// Every visitor gets a 5x5 card of icebreaker prompts and hunts the room
// for people who match them. Five marked in a row, column or diagonal is
// a bingo.
//
// Features:
// - WebSockets per game ID: /path/:gameid and /path/:gameid/ws
// - Players identified by cookie (playerID); each cookie owns one card
// - All game state lives server-side in a bingo.Game per player
// - State is only ever sent to the connections of the card's owner
// - Start is held for a short delay so the boot screen can play out,
//   and repeat presses while it is pending are refused
// - Disconnected players' cards dropped after a configurable timeout
// - Games auto-reaped after configurable idle timeout
// - Random 8-char game IDs via crypto/rand, with server-side collision check
// - Theme chosen per page via ?theme=, falling back to the configured default
// - In-browser QR button to share the current session, backed by go-qrcode

package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"hash/fnv"
	"html"
	"log"
	mrand "math/rand/v2"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Seednode/socops/bingo"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

// startDelay is how long a start command is held before it is applied.
const startDelay = 1200 * time.Millisecond

// minReapInterval bounds how often idle games are checked.
const minReapInterval = 500 * time.Millisecond

// Messages coming from clients
type ClientMessage struct {
	Type string `json:"type"`          // "start", "toggle", "reset", "dismiss", "help", "about", "key"
	ID   *int   `json:"id,omitempty"`  // toggle
	Key  string `json:"key,omitempty"` // key
}

// StateMessage carries the full game state for the receiving player.
type StateMessage struct {
	Type string `json:"type"` // "state"
	bingo.State
	GameID string      `json:"game_id"`
	Theme  bingo.Theme `json:"theme"`
}

// SimpleMessage is for generic notifications ("error", "closed", etc.)
type SimpleMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type Client struct {
	conn     *websocket.Conn
	send     chan any
	playerID string
	theme    bingo.Theme
}

type command struct {
	client *Client
	msg    ClientMessage
}

type Hub struct {
	id      string
	clients map[*Client]bool
	games   map[string]*bingo.Game // playerID -> card

	register chan *Client
	unreg    chan *Client
	commands chan command
	releases chan string // playerID whose held command is due
	done     chan struct{}
	once     sync.Once

	mu sync.RWMutex

	createdAt  time.Time
	lastActive time.Time

	pool          []string
	seed          uint64
	startDelay    time.Duration
	playerTimeout time.Duration
}

func newHub(cfg *Config, gameID string, delay time.Duration) *Hub {
	now := time.Now()
	return &Hub{
		id:            gameID,
		clients:       make(map[*Client]bool),
		games:         make(map[string]*bingo.Game),
		register:      make(chan *Client),
		unreg:         make(chan *Client),
		commands:      make(chan command),
		releases:      make(chan string),
		done:          make(chan struct{}),
		createdAt:     now,
		lastActive:    now,
		pool:          cfg.pool,
		seed:          cfg.seed,
		startDelay:    delay,
		playerTimeout: cfg.playerTimeout,
	}
}

// newRand returns the shuffle source for one player's card. A fixed seed
// still gives each player in each game a different, repeatable card.
func (h *Hub) newRand(playerID string) *mrand.Rand {
	if h.seed == 0 {
		return bingo.Random()
	}

	f := fnv.New64a()
	_, _ = f.Write([]byte(h.id))
	_, _ = f.Write([]byte{0})
	_, _ = f.Write([]byte(playerID))

	return bingo.Seeded(h.seed ^ f.Sum64())
}

func (h *Hub) run(cfg *Config) {
	for {
		select {
		case <-h.done:
			return

		case c := <-h.register:
			h.handleRegister(cfg, c)

		case c := <-h.unreg:
			h.mu.Lock()
			h.lastActive = time.Now()

			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			playerID := c.playerID
			h.mu.Unlock()

			if playerID != "" && h.playerTimeout > 0 {
				time.AfterFunc(h.playerTimeout, func() {
					h.removeIfGone(cfg, playerID)
				})
			}

		case cmd := <-h.commands:
			h.handleCommand(cfg, cmd)

		case playerID := <-h.releases:
			h.handleRelease(cfg, playerID)
		}
	}
}

func (h *Hub) handleRegister(cfg *Config, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// closeAll may already have emptied clients; closing send lets the
	// writePump exit and close the connection.
	select {
	case <-h.done:
		close(c.send)
		return
	default:
	}

	h.lastActive = time.Now()
	h.clients[c] = true

	if _, ok := h.games[c.playerID]; !ok {
		game, err := bingo.NewGame(h.pool, h.newRand(c.playerID))
		if err != nil {
			// Pool size is checked at startup, so this only trips on a
			// misconfigured embedder.
			h.sendLocked(c, SimpleMessage{
				Type:    "error",
				Message: "Unable to deal a card right now.",
			})
			errorf("deal card for %s: %v", h.id, err)
			return
		}
		h.games[c.playerID] = game

		logf(cfg, "GAMES: Player %s joined %s", shortID(c.playerID), h.id)
	}

	h.sendStateLocked(c)
}

// handleCommand processes everything a client can ask for.
func (h *Hub) handleCommand(cfg *Config, cmd command) {
	c := cmd.client
	msg := cmd.msg

	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastActive = time.Now()

	game, ok := h.games[c.playerID]
	if !ok {
		return
	}

	hadBingo := game.Snapshot().HasBingo

	var err error
	switch msg.Type {
	case "toggle":
		if msg.ID == nil {
			err = bingo.ErrInvalidSquare
			break
		}
		err = game.Toggle(*msg.ID)
	case "key":
		cmd := bingo.CommandForKey(msg.Key, game.Snapshot())
		if cmd == bingo.CommandNone {
			// Unmapped keys belong to the page (focus moves, typing).
			return
		}
		err = h.applyLocked(game, c.playerID, cmd)
	case "start", "reset", "dismiss", "help", "about":
		err = h.applyLocked(game, c.playerID, bingo.Command(msg.Type))
	default:
		return
	}

	if err != nil {
		h.sendLocked(c, SimpleMessage{
			Type:    "error",
			Message: errorText(err),
		})
		return
	}

	if st := game.Snapshot(); st.HasBingo && !hadBingo {
		logf(cfg, "GAMES: Player %s got bingo in %s (lines %v)", shortID(c.playerID), h.id, st.Lines)
	}

	h.broadcastStateLocked(c.playerID)
}

// applyLocked runs a command against game. Start is held, and applied
// when the delay fires.
func (h *Hub) applyLocked(game *bingo.Game, playerID string, cmd bingo.Command) error {
	if cmd != bingo.CommandStart || h.startDelay <= 0 {
		if game.Snapshot().Pending != bingo.CommandNone {
			return bingo.ErrBusy
		}
		return game.Apply(cmd)
	}

	if game.Snapshot().Phase != bingo.PhaseStart {
		return bingo.ErrWrongPhase
	}
	if !game.Hold(cmd) {
		return bingo.ErrBusy
	}

	time.AfterFunc(h.startDelay, func() {
		select {
		case h.releases <- playerID:
		case <-h.done:
		}
	})

	return nil
}

func (h *Hub) handleRelease(cfg *Config, playerID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	game, ok := h.games[playerID]
	if !ok {
		return
	}

	if err := game.Complete(); err != nil {
		logf(cfg, "GAMES: Dropped held command for %s in %s: %v", shortID(playerID), h.id, err)
	}

	h.broadcastStateLocked(playerID)
}

// removeIfGone drops a player's card if none of their connections came back.
func (h *Hub) removeIfGone(cfg *Config, playerID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		if client.playerID == playerID {
			return
		}
	}

	if _, ok := h.games[playerID]; !ok {
		return
	}
	delete(h.games, playerID)

	logf(cfg, "GAMES: Player %s left %s", shortID(playerID), h.id)
}

func (h *Hub) stateFor(c *Client, game *bingo.Game) StateMessage {
	return StateMessage{
		Type:   "state",
		State:  game.Snapshot(),
		GameID: h.id,
		Theme:  c.theme,
	}
}

// sendLocked queues msg for c, dropping the client if its buffer is full.
func (h *Hub) sendLocked(c *Client, msg any) {
	if _, ok := h.clients[c]; !ok {
		return
	}

	select {
	case c.send <- msg:
	default:
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) sendStateLocked(c *Client) {
	game, ok := h.games[c.playerID]
	if !ok {
		return
	}

	h.sendLocked(c, h.stateFor(c, game))
}

// broadcastStateLocked sends the player's state to each of their connections.
func (h *Hub) broadcastStateLocked(playerID string) {
	for client := range h.clients {
		if client.playerID != playerID {
			continue
		}
		h.sendStateLocked(client)
	}
}

func (h *Hub) idle(cutoff time.Time) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.lastActive.Before(cutoff)
}

// closeAll disconnects all clients of this hub and stops its loop.
func (h *Hub) closeAll() {
	h.once.Do(func() {
		close(h.done)
	})

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		close(c.send)
		_ = c.conn.Close()
		delete(h.clients, c)
	}
}

func errorText(err error) string {
	switch {
	case errors.Is(err, bingo.ErrBusy):
		return "Hold on, still working on the last one."
	case errors.Is(err, bingo.ErrWrongPhase):
		return "That isn't available right now."
	case errors.Is(err, bingo.ErrInvalidSquare):
		return "That square doesn't exist."
	default:
		return "Something went wrong."
	}
}

func shortID(playerID string) string {
	if len(playerID) > 8 {
		return playerID[:8]
	}
	return playerID
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

const playerCookieName = "socops_id"

// playerIdentity returns the caller's player ID, and a cookie to set when
// the caller did not have one yet.
func playerIdentity(r *http.Request) (string, *http.Cookie) {
	if c, err := r.Cookie(playerCookieName); err == nil && c.Value != "" {
		return c.Value, nil
	}

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		log.Println("rand.Read error:", err)
		return "", nil
	}
	id := hex.EncodeToString(buf)

	return id, &http.Cookie{
		Name:     playerCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// GameManager holds a set of hubs keyed by game ID, so each $path/$gameid
// is its own isolated session.
type GameManager struct {
	mu          sync.Mutex
	hubs        map[string]*Hub
	idleTimeout time.Duration
	startDelay  time.Duration
	done        chan struct{}
	once        sync.Once
}

func newGameManager(idleTimeout, delay time.Duration) *GameManager {
	gm := &GameManager{
		hubs:        make(map[string]*Hub),
		idleTimeout: idleTimeout,
		startDelay:  delay,
		done:        make(chan struct{}),
	}
	if idleTimeout > 0 {
		go gm.reaperLoop()
	}
	return gm
}

func (gm *GameManager) getHub(cfg *Config, gameID string) *Hub {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	if hub, ok := gm.hubs[gameID]; ok {
		return hub
	}

	hub := newHub(cfg, gameID, gm.startDelay)
	gm.hubs[gameID] = hub
	go hub.run(cfg)
	return hub
}

// newGameID generates a crypto-random game ID and ensures it doesn't
// collide with existing games.
func (gm *GameManager) newGameID() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	for {
		buf := make([]byte, 8)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		out := make([]byte, 8)
		for i := range out {
			out[i] = letters[int(buf[i])%len(letters)]
		}
		id := string(out)

		gm.mu.Lock()
		_, exists := gm.hubs[id]
		gm.mu.Unlock()

		if !exists {
			return id
		}
	}
}

// reaperLoop periodically removes hubs that have been idle longer than idleTimeout.
func (gm *GameManager) reaperLoop() {
	ticker := time.NewTicker(max(gm.idleTimeout/2, minReapInterval))
	defer ticker.Stop()

	for {
		select {
		case <-gm.done:
			return
		case <-ticker.C:
			gm.reap(time.Now().Add(-gm.idleTimeout))
		}
	}
}

func (gm *GameManager) reap(cutoff time.Time) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	for id, hub := range gm.hubs {
		if hub.idle(cutoff) {
			delete(gm.hubs, id)
			go hub.closeAll()
		}
	}
}

// Close stops the reaper and ends every game.
func (gm *GameManager) Close() {
	gm.once.Do(func() {
		close(gm.done)
	})

	gm.mu.Lock()
	defer gm.mu.Unlock()

	for id, hub := range gm.hubs {
		delete(gm.hubs, id)
		hub.closeAll()
	}
}

func themeFromRequest(cfg *Config, r *http.Request) bingo.Theme {
	if name := r.URL.Query().Get("theme"); name != "" {
		if t, err := bingo.ThemeByName(name); err == nil {
			return t
		}
	}
	return cfg.defaultTheme()
}

// WebSocket handler that picks the hub based on :gameid
func serveWSForManager(cfg *Config, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		gameID := ps.ByName("gameid")
		if gameID == "" {
			http.Error(w, "missing game id", http.StatusBadRequest)
			return
		}

		playerID, cookie := playerIdentity(r)
		if playerID == "" {
			http.Error(w, "unable to assign player id", http.StatusInternalServerError)
			return
		}

		responseHeader := http.Header{}
		if cookie != nil {
			responseHeader.Add("Set-Cookie", cookie.String())
		}

		hub := gm.getHub(cfg, gameID)

		conn, err := upgrader.Upgrade(w, r, responseHeader)
		if err != nil {
			log.Println("upgrade error:", err)
			return
		}

		client := &Client{
			conn:     conn,
			send:     make(chan any, 8),
			playerID: playerID,
			theme:    themeFromRequest(cfg, r),
		}

		select {
		case hub.register <- client:
		case <-hub.done:
			_ = conn.Close()
			return
		}

		go client.writePump()
		client.readPump(hub)
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unreg <- c:
		case <-h.done:
		}
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		select {
		case h.commands <- command{client: c, msg: msg}:
		case <-h.done:
			return
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// QR handler: generates a PNG QR code for the current game URL using go-qrcode.
func qrHandler(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		gameID := ps.ByName("gameid")
		if gameID == "" {
			http.Error(w, "missing game id", http.StatusBadRequest)
			return
		}

		// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}

		// We are at /.../:gameid/qr; strip trailing "/qr" to get the game URL.
		path := strings.TrimSuffix(r.URL.Path, "/qr")

		url := scheme + "://" + r.Host + path

		const qrSize = 320 // mobile-friendly size
		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		securityHeaders(cfg, w)
		_, _ = w.Write(png)
	}
}

func getIndexHandler(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		page, err := assets.ReadFile("assets/bingo/index.html")
		if err != nil {
			errs <- err
			http.Error(w, "missing client", http.StatusInternalServerError)
			return
		}

		theme := themeFromRequest(cfg, r)

		body := strings.NewReplacer(
			"%PREFIX%", html.EscapeString(cfg.prefix),
			"%THEME%", html.EscapeString(theme.Name),
			"%TITLE%", html.EscapeString(theme.Title),
			"%GAMEID%", html.EscapeString(ps.ByName("gameid")),
		).Replace(string(page))

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		securityHeaders(cfg, w)

		if _, cookie := playerIdentity(r); cookie != nil {
			http.SetCookie(w, cookie)
		}

		if _, err := w.Write([]byte(body)); err != nil {
			errs <- err
		}
	}
}

// redirectNewGame handles GET /path by generating a new random game ID
// (with server-side collision detection) and redirecting to /path/:gameid.
func redirectNewGame(cfg *Config, path string, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		gameID := gm.newGameID()
		logf(cfg, "GAMES: Created game %s/%s", path, gameID)

		target := cfg.prefix + path + "/" + gameID
		if r.URL.RawQuery != "" {
			target += "?" + r.URL.RawQuery
		}
		http.Redirect(w, r, target, http.StatusTemporaryRedirect)
	}
}

// registerBingoGame sets up routes so that:
//   - $path                  → redirects to new random game (8-char ID)
//   - $path/:gameid          → HTML client
//   - $path/:gameid/ws       → WebSocket for that game
//   - $path/:gameid/qr       → PNG QR code for that game URL
func registerBingoGame(cfg *Config, path string, mux *httprouter.Router, gm *GameManager, errs chan<- error) {
	mux.GET(cfg.prefix+path, redirectNewGame(cfg, path, gm))
	mux.GET(cfg.prefix+path+"/:gameid", getIndexHandler(cfg, errs))
	mux.GET(cfg.prefix+path+"/:gameid/ws", serveWSForManager(cfg, gm))
	mux.GET(cfg.prefix+path+"/:gameid/qr", qrHandler(cfg))
}
