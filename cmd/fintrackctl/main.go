// Command fintrackctl inspects and records transactions against the
// configured store without going through the web server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"fintrack/internal/backend"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/log"
)

type app struct {
	cfg    *config.Config
	logger *log.Logger
	store  *backend.Provider
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var logLevel, logFormat string

	root := &cobra.Command{
		Use:           "fintrackctl",
		Short:         "Inspect and record fintrack transactions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			if logFormat != "" {
				cfg.LogFormat = logFormat
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			a.cfg = cfg
			// stdout carries command output; logs go to stderr.
			a.logger = log.New(log.Config{
				Level:     log.ParseLevel(cfg.LogLevel),
				Format:    cfg.LogFormat,
				Component: log.ComponentApp,
				Output:    cmd.ErrOrStderr(),
			})
			log.SetDefault(a.logger)
			a.store, err = cli.NewBackendProvider(cfg, a.logger)
			return err
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if a.store == nil {
				return nil
			}
			return a.store.Close()
		},
	}

	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); defaults to LOG_LEVEL")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (text, json); defaults to LOG_FORMAT")

	root.AddCommand(dashboardCmd(a))
	root.AddCommand(addCmd(a))
	root.AddCommand(migrateCmd(a))
	return root
}

func main() {
	cli.LoadEnvFile()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
