package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/wirechat-client/internal/auth"
	"github.com/vovakirdan/wirechat-client/internal/config"
	"github.com/vovakirdan/wirechat-client/internal/log"
	"github.com/vovakirdan/wirechat-client/realtime"
	"github.com/vovakirdan/wirechat-client/rest"
)

var (
	flagConfig   string
	flagServerWS string
	flagLogLevel string

	cfg    config.Config
	logger *zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "wirechat-client",
	Short:         "Terminal client for a wirechat server",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		boot := log.New(flagLogLevel)
		loaded, path, err := config.Load(boot, flagConfig)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
		if cmd.Flags().Changed("server") {
			cfg.ServerWSURL = flagServerWS
		}
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = flagLogLevel
		}
		logger = log.New(cfg.LogLevel)
		logger.Debug().Str("config", path).Msg("configuration loaded")
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "wirechat-client: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "path to config file")
	pf.StringVar(&flagServerWS, "server", "", "websocket server URL")
	pf.StringVar(&flagLogLevel, "log-level", "info", "log level (trace|debug|info|warn|error)")

	rootCmd.AddCommand(loginCmd, chatCmd, historyCmd, callCmd)
}

// tokenSource reads the saved credential on every use so a re-login
// from another terminal takes effect on the next reconnect.
func tokenSource() auth.TokenSource {
	return auth.FileToken(cfg.TokenFile)
}

func newManager() *realtime.Manager {
	if tok, err := tokenSource().Token(); err != nil {
		logger.Warn().Err(err).Msg("no saved credential, run `wirechat-client login`")
	} else if auth.Expired(tok, time.Minute) {
		logger.Warn().Msg("saved credential is expired or about to expire, run `wirechat-client login`")
	}
	return realtime.NewManager(realtime.Config{
		URL:               cfg.ServerWSURL,
		Tokens:            tokenSource(),
		HandshakeTimeout:  cfg.HandshakeTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		MaxReconnectTries: cfg.MaxReconnectTries,
		ReconnectInterval: cfg.ReconnectInterval,
		MaxReconnectDelay: cfg.MaxReconnectDelay,
		Logger:            logger,
	})
}

func newRESTClient() *rest.Client {
	return rest.NewClient(cfg.ServerHTTPURL, tokenSource())
}
