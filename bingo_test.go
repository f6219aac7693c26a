/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Seednode/socops/bingo"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wireMessage decodes any server message.
type wireMessage struct {
	StateMessage
	Message string `json:"message"`
}

func testConfig() *Config {
	return &Config{
		bind:          "127.0.0.1",
		port:          8080,
		playerTimeout: time.Minute,
		seed:          42,
		theme:         bingo.ThemeTerminal.Name,
		pool:          bingo.DefaultPrompts,
	}
}

func newTestServer(t *testing.T, delay time.Duration) (*httptest.Server, *GameManager) {
	t.Helper()

	cfg := testConfig()
	errs := make(chan error, 16)

	mux := httprouter.New()
	gm := newGameManager(0, delay)
	registerBingoGame(cfg, "/bingo", mux, gm, errs)

	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		gm.Close()
		srv.Close()
	})

	return srv, gm
}

func dialGame(t *testing.T, srv *httptest.Server, gameID string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/bingo/" + gameID + "/ws?theme=cloud"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	assert.NotEmpty(t, resp.Header.Get("Set-Cookie"))

	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) wireMessage {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var msg wireMessage
	require.NoError(t, conn.ReadJSON(&msg))

	return msg
}

func send(t *testing.T, conn *websocket.Conn, msg ClientMessage) {
	t.Helper()

	require.NoError(t, conn.WriteJSON(msg))
}

func toggle(id int) ClientMessage {
	return ClientMessage{Type: "toggle", ID: &id}
}

func TestBingo_JoinDealsCard(t *testing.T) {
	srv, _ := newTestServer(t, 50*time.Millisecond)
	conn := dialGame(t, srv, "abcd1234")

	msg := readMessage(t, conn)

	assert.Equal(t, "state", msg.Type)
	assert.Equal(t, "abcd1234", msg.GameID)
	assert.Equal(t, bingo.ThemeCloud.Name, msg.Theme.Name)
	assert.Equal(t, bingo.PhaseStart, msg.Phase)
	assert.True(t, msg.Board[bingo.FreeSpace].IsFreeSpace)
	assert.True(t, msg.Board[bingo.FreeSpace].IsMarked)
	assert.False(t, msg.HasBingo)
}

func TestBingo_StartIsHeldThenApplied(t *testing.T) {
	srv, _ := newTestServer(t, 200*time.Millisecond)
	conn := dialGame(t, srv, "start001")
	readMessage(t, conn)

	// Given a start in flight
	send(t, conn, ClientMessage{Type: "start"})
	msg := readMessage(t, conn)
	require.Equal(t, "state", msg.Type)
	assert.Equal(t, bingo.CommandStart, msg.Pending)
	assert.Equal(t, bingo.PhaseStart, msg.Phase)

	// When start is sent again before the delay runs out
	send(t, conn, ClientMessage{Type: "key", Key: bingo.KeyEnter})
	msg = readMessage(t, conn)

	// Then it is refused
	assert.Equal(t, "error", msg.Type)
	assert.Equal(t, errorText(bingo.ErrBusy), msg.Message)

	// And the held start lands once
	msg = readMessage(t, conn)
	assert.Equal(t, "state", msg.Type)
	assert.Equal(t, bingo.PhaseGame, msg.Phase)
	assert.Equal(t, bingo.CommandNone, msg.Pending)
}

func TestBingo_RowWinsAndModalBlocksBoard(t *testing.T) {
	srv, _ := newTestServer(t, 0)
	conn := dialGame(t, srv, "winner01")
	readMessage(t, conn)

	send(t, conn, ClientMessage{Type: "start"})
	require.Equal(t, bingo.PhaseGame, readMessage(t, conn).Phase)

	var msg wireMessage
	for id := 0; id < bingo.Size; id++ {
		send(t, conn, toggle(id))
		msg = readMessage(t, conn)
	}

	require.True(t, msg.HasBingo)
	assert.True(t, msg.Modal)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, msg.Winning)
	assert.Equal(t, []int{0}, msg.Lines)

	send(t, conn, toggle(10))
	msg = readMessage(t, conn)
	assert.Equal(t, "error", msg.Type)
	assert.Equal(t, errorText(bingo.ErrWrongPhase), msg.Message)

	send(t, conn, ClientMessage{Type: "key", Key: bingo.KeyEscape})
	msg = readMessage(t, conn)
	assert.False(t, msg.Modal)
	assert.True(t, msg.HasBingo)

	send(t, conn, ClientMessage{Type: "reset"})
	msg = readMessage(t, conn)
	assert.False(t, msg.HasBingo)
	assert.Empty(t, msg.Lines)
	assert.Equal(t, bingo.PhaseGame, msg.Phase)
}

func TestBingo_UnmappedKeysAreIgnored(t *testing.T) {
	srv, _ := newTestServer(t, 0)
	conn := dialGame(t, srv, "keys0001")
	readMessage(t, conn)

	send(t, conn, ClientMessage{Type: "start"})
	require.Equal(t, bingo.PhaseGame, readMessage(t, conn).Phase)

	// Given keys that map to no command
	for _, key := range []string{"Tab", "Shift", "ArrowDown", "x"} {
		send(t, conn, ClientMessage{Type: "key", Key: key})
	}

	// When a mapped key follows
	send(t, conn, ClientMessage{Type: "key", Key: "h"})

	// Then the only reply is the one for the mapped key
	msg := readMessage(t, conn)
	assert.Equal(t, "state", msg.Type)
	assert.Equal(t, bingo.OverlayHelp, msg.Overlay)
}

func TestBingo_UnmappedKeyDuringHeldStartIsSilent(t *testing.T) {
	srv, _ := newTestServer(t, 200*time.Millisecond)
	conn := dialGame(t, srv, "keys0002")
	readMessage(t, conn)

	send(t, conn, ClientMessage{Type: "start"})
	require.Equal(t, bingo.CommandStart, readMessage(t, conn).Pending)

	send(t, conn, ClientMessage{Type: "key", Key: "Shift"})

	// The next message is the released start, not a busy error.
	msg := readMessage(t, conn)
	assert.Equal(t, "state", msg.Type)
	assert.Equal(t, bingo.PhaseGame, msg.Phase)
}

func TestHub_RegisterAfterCloseReleasesClient(t *testing.T) {
	hub := newHub(testConfig(), "closed01", 0)
	hub.closeAll()

	client := &Client{send: make(chan any, 1), playerID: "late"}
	hub.handleRegister(testConfig(), client)

	_, open := <-client.send
	assert.False(t, open)

	hub.mu.RLock()
	defer hub.mu.RUnlock()
	assert.Empty(t, hub.clients)
	assert.Empty(t, hub.games)
}

func TestGameManager_ShortIdleTimeout(t *testing.T) {
	var gm *GameManager
	require.NotPanics(t, func() {
		gm = newGameManager(time.Nanosecond, 0)
	})
	t.Cleanup(gm.Close)

	gm.getHub(testConfig(), "brief001")

	assert.Eventually(t, func() bool {
		gm.mu.Lock()
		defer gm.mu.Unlock()
		return len(gm.hubs) == 0
	}, 3*time.Second, 50*time.Millisecond)
}

func TestBingo_ToggleWithoutSquareIsRejected(t *testing.T) {
	srv, _ := newTestServer(t, 0)
	conn := dialGame(t, srv, "badmsg01")
	readMessage(t, conn)

	send(t, conn, ClientMessage{Type: "start"})
	readMessage(t, conn)

	send(t, conn, ClientMessage{Type: "toggle"})
	msg := readMessage(t, conn)
	assert.Equal(t, "error", msg.Type)
	assert.Equal(t, errorText(bingo.ErrInvalidSquare), msg.Message)

	send(t, conn, toggle(99))
	msg = readMessage(t, conn)
	assert.Equal(t, "error", msg.Type)
}

func TestBingo_PlayersGetSeparateCards(t *testing.T) {
	srv, gm := newTestServer(t, 0)

	first := dialGame(t, srv, "shared01")
	second := dialGame(t, srv, "shared01")

	a := readMessage(t, first)
	b := readMessage(t, second)
	assert.NotEqual(t, a.Board, b.Board)

	// Moves on one card never reach the other player.
	send(t, first, ClientMessage{Type: "start"})
	require.Equal(t, bingo.PhaseGame, readMessage(t, first).Phase)

	send(t, second, ClientMessage{Type: "help"})
	msg := readMessage(t, second)
	assert.Equal(t, bingo.PhaseStart, msg.Phase)
	assert.Equal(t, bingo.OverlayHelp, msg.Overlay)

	hub := gm.getHub(testConfig(), "shared01")
	hub.mu.RLock()
	assert.Len(t, hub.games, 2)
	hub.mu.RUnlock()
}

func TestBingo_RedirectKeepsTheme(t *testing.T) {
	srv, _ := newTestServer(t, 0)

	client := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	resp, err := client.Get(srv.URL + "/bingo?theme=cloud")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)

	location := resp.Header.Get("Location")
	assert.True(t, strings.HasPrefix(location, "/bingo/"), location)
	assert.True(t, strings.HasSuffix(location, "?theme=cloud"), location)
	assert.Len(t, strings.TrimSuffix(strings.TrimPrefix(location, "/bingo/"), "?theme=cloud"), 8)
}

func TestBingo_IndexPage(t *testing.T) {
	srv, _ := newTestServer(t, 0)

	resp, err := http.Get(srv.URL + "/bingo/page0001?theme=cloud")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `data-theme="cloud"`)
	assert.Contains(t, string(body), `data-game="page0001"`)
	assert.Contains(t, string(body), "<title>"+bingo.ThemeCloud.Title+"</title>")
	assert.NotContains(t, string(body), "%PREFIX%")
	assert.NotEmpty(t, resp.Header.Get("Content-Security-Policy"))
}

func TestBingo_QRCode(t *testing.T) {
	srv, _ := newTestServer(t, 0)

	resp, err := http.Get(srv.URL + "/bingo/qrgame01/qr")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
}

func TestGameManager_ReapIdleHubs(t *testing.T) {
	gm := newGameManager(0, 0)
	t.Cleanup(gm.Close)

	hub := gm.getHub(testConfig(), "idle0001")

	gm.reap(time.Now().Add(time.Minute))

	gm.mu.Lock()
	_, ok := gm.hubs["idle0001"]
	gm.mu.Unlock()
	assert.False(t, ok)

	select {
	case <-hub.done:
	case <-time.After(2 * time.Second):
		t.Fatal("reaped hub was not closed")
	}
}

func TestGameManager_NewGameIDs(t *testing.T) {
	gm := newGameManager(0, 0)
	t.Cleanup(gm.Close)

	seen := make(map[string]bool)
	for range 100 {
		id := gm.newGameID()
		assert.Len(t, id, 8)
		assert.False(t, seen[id])
		seen[id] = true
	}
}

func TestHub_SeededCardsAreRepeatable(t *testing.T) {
	cfg := testConfig()

	a, err := bingo.NewGame(cfg.pool, newHub(cfg, "seed0001", 0).newRand("player"))
	require.NoError(t, err)
	b, err := bingo.NewGame(cfg.pool, newHub(cfg, "seed0001", 0).newRand("player"))
	require.NoError(t, err)
	c, err := bingo.NewGame(cfg.pool, newHub(cfg, "seed0001", 0).newRand("someone-else"))
	require.NoError(t, err)

	assert.Equal(t, a.Snapshot().Board, b.Snapshot().Board)
	assert.NotEqual(t, a.Snapshot().Board, c.Snapshot().Board)
}
