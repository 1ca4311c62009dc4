package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/skymfe/corelib/auth"
	"github.com/skymfe/corelib/fetch"
	"github.com/skymfe/corelib/httpclient"
	"github.com/skymfe/corelib/internal/config"
	"github.com/skymfe/corelib/internal/logger"
)

func main() {
	// Keep stdout for command output.
	log.Logger = log.Output(os.Stderr)

	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// globals holds the values shared by every sub-command.
type globals struct {
	baseURL string
	token   string
	debug   bool

	cfg    *config.Config
	logger zerolog.Logger
}

// NewRootCmd constructs the root CLI command; exposed for unit testing.
func NewRootCmd() *cobra.Command {
	g := &globals{logger: zerolog.Nop()}

	rootCmd := &cobra.Command{
		Use:           "corelib-dev",
		Short:         "Dev console for the corelib data-fetching primitives",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.New()
			if err != nil {
				return err
			}
			if g.debug && cfg.IsProduction() {
				return fmt.Errorf("--debug dumps request bodies and cannot be used in production")
			}
			g.cfg = cfg
			if !cmd.Flags().Changed("base-url") {
				g.baseURL = cfg.BaseURL
			}
			if !cmd.Flags().Changed("token") {
				g.token = cfg.Token
			}

			level := logger.ParseLevel(cfg.LogLevel)
			if g.debug || cfg.Debug {
				level = zerolog.DebugLevel
			}
			g.logger = logger.NewWithWriter(cmd.ErrOrStderr(), "corelib-dev").Level(level)
			g.logger.Debug().Str("base_url", g.baseURL).Msg("debug logging enabled")
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&g.baseURL, "base-url", "", "Base URL of the backend (default $CORELIB_BASE_URL)")
	rootCmd.PersistentFlags().StringVar(&g.token, "token", "", "Bearer JWT (default $CORELIB_TOKEN)")
	rootCmd.PersistentFlags().BoolVarP(&g.debug, "debug", "d", false, "Enable verbose debug output")

	rootCmd.AddCommand(newServeCmd(g))
	rootCmd.AddCommand(newQueryCmd(g))
	rootCmd.AddCommand(newMutateCmd(g))
	rootCmd.AddCommand(newAuthCmd(g))

	return rootCmd
}

// tokenSource parses the configured token. An empty token yields a signed-out
// source.
func (g *globals) tokenSource() (*auth.TokenSource, error) {
	return auth.NewTokenSource(g.token)
}

// newProvider builds a provider whose handle carries the configured token.
func (g *globals) newProvider() (*fetch.Provider, error) {
	tokens, err := g.tokenSource()
	if err != nil {
		return nil, err
	}
	opts := append(g.cfg.ClientOptions(),
		httpclient.WithTokenProvider(tokens),
		httpclient.WithLogger(g.logger),
	)
	if g.debug {
		opts = append(opts, httpclient.WithDebugLogging(true))
	}
	return fetch.NewProvider(g.baseURL,
		fetch.WithClientOptions(opts...),
		fetch.WithLogger(g.logger),
	), nil
}

// printState writes one state line: loading flag, data as JSON, error.
func printState(w io.Writer, label string, st fetch.State[json.RawMessage]) {
	data := "null"
	if st.Data != nil {
		data = strings.TrimSpace(string(*st.Data))
	}
	errText := "<nil>"
	if st.Err != nil {
		errText = st.Err.Error()
	}
	fmt.Fprintf(w, "%-8s loading=%t data=%s err=%s\n", label, st.Loading, data, errText)
}
