package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/conversia/relay-server/internal/app"
	"github.com/conversia/relay-server/internal/config"
	"github.com/conversia/relay-server/internal/log"
)

func main() {
	var (
		configPath string
		addr       string
		logLevel   string
	)

	root := &cobra.Command{
		Use:          "relay-server",
		Short:        "Realtime presence and chat relay for support agents and widgets",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			bootLogger := log.New(logLevel)

			cfg, resolvedPath, err := config.Load(bootLogger, configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if addr != "" {
				cfg.Addr = addr
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}

			logger := log.New(cfg.LogLevel)
			logger.Info().Str("config", resolvedPath).Msg("configuration loaded")

			if cfg.JWTSecret == "" {
				return fmt.Errorf("jwt_secret must be set (config file or RELAY_JWT_SECRET)")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := app.New(cfg, logger)
			if err != nil {
				return fmt.Errorf("init app: %w", err)
			}

			if err := application.Run(ctx); err != nil {
				return fmt.Errorf("server exited: %w", err)
			}
			logger.Info().Msg("server stopped")
			return nil
		},
	}

	root.Flags().StringVar(&configPath, "config", "", "path to config file (defaults to ./config.yaml)")
	root.Flags().StringVar(&addr, "addr", "", "HTTP listen address override")
	root.Flags().StringVar(&logLevel, "log-level", "", "log level override (trace|debug|info|warn|error)")

	if err := root.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
