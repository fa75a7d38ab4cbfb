package app

import (
	"context"
	"encoding/json"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/conversia/relay-server/internal/auth"
	"github.com/conversia/relay-server/internal/config"
	"github.com/conversia/relay-server/internal/notify"
	"github.com/conversia/relay-server/internal/relay"
	"github.com/conversia/relay-server/internal/store"
	"github.com/conversia/relay-server/internal/store/sqlite"
	transporthttp "github.com/conversia/relay-server/internal/transport/http"
)

// App wires together the relay core, persistence, and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *relay.Hub
	sink            *store.Sink
	subscriber      *notify.Subscriber
	store           store.Store
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.TokenTTL,
	}
	authService := auth.NewService(st, jwtConfig)

	sink := store.NewSink(st, cfg.SinkBuffer, logger)

	hub := relay.NewHub(relay.Options{
		Verifier:      authService,
		Sink:          relay.SinkFunc(func(rec relay.ChatRecord) { sink.Enqueue(recordToMessage(rec)) }),
		Logger:        logger,
		IdleTimeout:   cfg.IdleTimeout,
		SweepInterval: cfg.SweepInterval,
	})

	var subscriber *notify.Subscriber
	if cfg.RedisAddr != "" {
		rdb, err := notify.Open(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("init redis: %w", err)
		}
		subscriber = notify.NewSubscriber(rdb, hub, logger)
		logger.Info().Str("addr", cfg.RedisAddr).Msg("notification ingress enabled")
	}

	server := transporthttp.NewServer(hub, authService, st, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		sink:            sink,
		subscriber:      subscriber,
		store:           st,
		log:             logger,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go a.hub.Run(ctx)
	go a.sink.Run(ctx)
	if a.subscriber != nil {
		go func() {
			if err := a.subscriber.Run(ctx); err != nil {
				a.log.Error().Err(err).Msg("notification ingress stopped")
			}
		}()
	}

	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}

func recordToMessage(rec relay.ChatRecord) *store.ChatMessage {
	metadata := "{}"
	if len(rec.Metadata) > 0 {
		if raw, err := json.Marshal(rec.Metadata); err == nil {
			metadata = string(raw)
		}
	}
	return &store.ChatMessage{
		Room:        rec.Room,
		SenderID:    rec.SenderID,
		BusinessID:  rec.SenderBusinessID,
		Content:     rec.Content,
		MessageType: rec.MessageType,
		Metadata:    metadata,
		CreatedAt:   rec.At,
	}
}
