/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Seednode/socops/bingo"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	bind           string
	playerTimeout  time.Duration
	port           int
	prefix         string
	profile        bool
	prompts        string
	seed           uint64
	sessionTimeout time.Duration
	sshKey         string
	sshPort        int
	theme          string
	tlsCert        string
	tlsKey         string
	verbose        bool
	version        bool

	pool []string
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.sshPort < 0 || c.sshPort > 65535 {
		return fmt.Errorf("invalid ssh port (must be between 0-65535 inclusive): %d", c.sshPort)
	}
	if c.sessionTimeout != 0 && c.sessionTimeout < time.Second {
		return fmt.Errorf("invalid session timeout (must be 0 or at least 1s): %s", c.sessionTimeout)
	}
	if c.playerTimeout < 0 {
		return fmt.Errorf("invalid player timeout (must not be negative): %s", c.playerTimeout)
	}
	if _, err := bingo.ThemeByName(c.theme); err != nil {
		return err
	}

	return c.loadPool()
}

// loadPool reads the prompt file, if any, and rejects pools that cannot
// fill a board before any game is dealt.
func (c *Config) loadPool() error {
	c.pool = bingo.DefaultPrompts

	if c.prompts != "" {
		f, err := os.Open(c.prompts)
		if err != nil {
			return err
		}
		defer f.Close()

		c.pool, err = bingo.LoadPrompts(f)
		if err != nil {
			return err
		}
	}

	if n := len(bingo.NormalizePool(c.pool)); n < bingo.PromptsNeeded {
		return fmt.Errorf("%w: %s has %d unique prompts, need %d", bingo.ErrPoolTooSmall, c.poolName(), n, bingo.PromptsNeeded)
	}

	return nil
}

func (c *Config) poolName() string {
	if c.prompts == "" {
		return "built-in pool"
	}
	return c.prompts
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func (c *Config) defaultTheme() bingo.Theme {
	t, err := bingo.ThemeByName(c.theme)
	if err != nil {
		return bingo.ThemeTerminal
	}
	return t
}

func bindEnv(v *viper.Viper, fs *pflag.FlagSet) {
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("SOCOPS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "socops",
		Short:         "Social icebreaker bingo, served to browsers and terminals from a single binary.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	pfs := cmd.PersistentFlags()
	pfs.StringVar(&cfg.prompts, "prompts", "", "path to a prompt file, one prompt per line (env: SOCOPS_PROMPTS)")
	pfs.Uint64Var(&cfg.seed, "seed", 0, "seed for board shuffling, 0 for random (env: SOCOPS_SEED)")
	pfs.StringVar(&cfg.theme, "theme", bingo.ThemeTerminal.Name, "default theme, terminal or cloud (env: SOCOPS_THEME)")
	pfs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: SOCOPS_VERBOSE)")

	fs := cmd.Flags()
	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: SOCOPS_BIND)")
	fs.DurationVar(&cfg.playerTimeout, "player-timeout", 10*time.Minute, "time before a disconnected player's board is dropped (env: SOCOPS_PLAYER_TIMEOUT)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: SOCOPS_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: SOCOPS_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: SOCOPS_PROFILE)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 60*time.Minute, "time before idle game sessions are ended (env: SOCOPS_SESSION_TIMEOUT)")
	fs.StringVar(&cfg.sshKey, "ssh-key", "socops_host_key", "path to the ssh host key, generated if missing (env: SOCOPS_SSH_KEY)")
	fs.IntVar(&cfg.sshPort, "ssh-port", 0, "port to serve the terminal game over ssh, 0 to disable (env: SOCOPS_SSH_PORT)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: SOCOPS_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: SOCOPS_TLS_KEY)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: SOCOPS_VERSION)")

	bindEnv(v, pfs)
	bindEnv(v, fs)

	cmd.AddCommand(newPlayCmd(cfg))

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("socops v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}

func newPlayCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "play",
		Short: "Play in this terminal.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := bingo.ThemeByName(cfg.theme); err != nil {
				return err
			}
			if err := cfg.loadPool(); err != nil {
				return err
			}
			return playLocal(cmd.Context(), cfg)
		},
	}
}
