/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	gossh "github.com/gliderlabs/ssh"
	xssh "golang.org/x/crypto/ssh"
)

const defaultTerm = "xterm-256color"

// allowedTerms limits which terminfo entries a client can ask for.
var allowedTerms = map[string]bool{
	"xterm":                 true,
	"xterm-256color":        true,
	"screen":                true,
	"screen-256color":       true,
	"tmux":                  true,
	"tmux-256color":         true,
	"linux":                 true,
	"vt100":                 true,
	"vt220":                 true,
	"rxvt-unicode-256color": true,
}

// termMu serializes the TERM swap around terminfo screen creation.
var termMu sync.Mutex

// sessionTty adapts an SSH session to tcell.Tty.
type sessionTty struct {
	session gossh.Session
	mu      sync.Mutex
	window  gossh.Window
	winCh   <-chan gossh.Window
	cb      func()
}

func newSessionTty(s gossh.Session, pty gossh.Pty, winCh <-chan gossh.Window) *sessionTty {
	return &sessionTty{
		session: s,
		window:  pty.Window,
		winCh:   winCh,
	}
}

func (t *sessionTty) Read(b []byte) (int, error)  { return t.session.Read(b) }
func (t *sessionTty) Write(b []byte) (int, error) { return t.session.Write(b) }
func (t *sessionTty) Close() error                { return t.session.Close() }
func (t *sessionTty) Start() error                { return nil }
func (t *sessionTty) Stop() error                 { return nil }
func (t *sessionTty) Drain() error                { return nil }

func (t *sessionTty) WindowSize() (tcell.WindowSize, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	return tcell.WindowSize{Width: t.window.Width, Height: t.window.Height}, nil
}

// NotifyResize stores cb and follows window changes until the session
// closes its channel.
func (t *sessionTty) NotifyResize(cb func()) {
	t.mu.Lock()
	t.cb = cb
	t.mu.Unlock()

	go func() {
		for win := range t.winCh {
			t.mu.Lock()
			t.window = win
			notify := t.cb
			t.mu.Unlock()

			if notify != nil {
				notify()
			}
		}
	}()
}

func sessionTerm(pty gossh.Pty) string {
	if allowedTerms[pty.Term] {
		return pty.Term
	}

	return defaultTerm
}

func handleSSHSession(cfg *Config) gossh.Handler {
	return func(s gossh.Session) {
		startTime := time.Now()

		pty, winCh, ok := s.Pty()
		if !ok {
			fmt.Fprintf(s, "socops needs a terminal. Connect with: ssh -t -p %d <host>\n", cfg.sshPort)
			_ = s.Exit(1)

			return
		}

		game, err := newTerminalGame(cfg)
		if err != nil {
			fmt.Fprintf(s, "Could not deal a card: %v\n", err)
			_ = s.Exit(1)

			return
		}

		tty := newSessionTty(s, pty, winCh)

		termMu.Lock()
		_ = os.Setenv("TERM", sessionTerm(pty))
		screen, err := tcell.NewTerminfoScreenFromTty(tty)
		termMu.Unlock()
		if err != nil {
			fmt.Fprintf(s, "Terminal setup failed: %v\n", err)
			_ = s.Exit(1)

			return
		}

		if err := screen.Init(); err != nil {
			fmt.Fprintf(s, "Screen init failed: %v\n", err)
			_ = s.Exit(1)

			return
		}

		logf(cfg, "SSH: Session from %s (%s)", s.RemoteAddr(), pty.Term)

		err = newTerminalUI(screen, game, cfg.defaultTheme()).run(s.Context())
		screen.Fini()
		if err != nil {
			errorf("ssh session %s: %v", s.RemoteAddr(), err)
		}

		logf(cfg, "SSH: Session from %s closed after %s",
			s.RemoteAddr(),
			time.Since(startTime).Round(time.Second),
		)

		_ = s.Exit(0)
	}
}

// loadOrCreateHostKey reads a PEM private key from path, or generates an
// ed25519 key and saves it there.
func loadOrCreateHostKey(cfg *Config, path string) (gossh.Signer, error) {
	if data, err := os.ReadFile(path); err == nil {
		signer, err := xssh.ParsePrivateKey(data)
		if err != nil {
			return nil, fmt.Errorf("parse host key %s: %w", path, err)
		}

		logf(cfg, "SSH: Loaded host key from %s", path)

		return signer, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read host key %s: %w", path, err)
	}

	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate host key: %w", err)
	}

	signer, err := xssh.NewSignerFromKey(key)
	if err != nil {
		return nil, fmt.Errorf("create signer: %w", err)
	}

	block, err := xssh.MarshalPrivateKey(key, "socops host key")
	if err != nil {
		return nil, fmt.Errorf("marshal host key: %w", err)
	}

	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0600); err != nil {
		errorf("could not save host key to %s: %v", path, err)
	} else {
		logf(cfg, "SSH: Generated new host key at %s", path)
	}

	return signer, nil
}

func newSSHServer(cfg *Config) (*gossh.Server, error) {
	signer, err := loadOrCreateHostKey(cfg, cfg.sshKey)
	if err != nil {
		return nil, err
	}

	return &gossh.Server{
		Addr:        net.JoinHostPort(cfg.bind, strconv.Itoa(cfg.sshPort)),
		Handler:     handleSSHSession(cfg),
		PtyCallback: func(_ gossh.Context, _ gossh.Pty) bool { return true },
		HostSigners: []gossh.Signer{signer},
		IdleTimeout: cfg.playerTimeout,
	}, nil
}

// serveSSH runs the terminal front-end over SSH until ctx is done.
func serveSSH(ctx context.Context, cfg *Config) error {
	srv, err := newSSHServer(cfg)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		logf(cfg, "SSH: Listening on %s", srv.Addr)

		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, gossh.ErrServerClosed) {
			return nil
		}

		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		_ = srv.Close()
	}

	return nil
}
