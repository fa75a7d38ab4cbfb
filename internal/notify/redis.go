// Package notify bridges Redis pub/sub into the relay so sibling backend
// services (billing, bots, analytics) can push notifications to connected
// clients without an HTTP hop into the relay process.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/conversia/relay-server/internal/relay"
)

const channelPattern = "notify:*"

// Hub is the subset of the relay the subscriber needs.
type Hub interface {
	NotifyUser(userID string, note relay.Notification)
	NotifyBusiness(businessID string, note relay.Notification)
}

// Envelope is the JSON payload published on notify:* channels. Exactly one of
// UserID / BusinessID selects the audience.
type Envelope struct {
	UserID     string         `json:"userId,omitempty"`
	BusinessID string         `json:"businessId,omitempty"`
	Title      string         `json:"title"`
	Body       string         `json:"body"`
	Data       map[string]any `json:"data,omitempty"`
}

// Open connects to Redis and verifies the connection with a ping.
func Open(addr, password string, db int) (*redis.Client, error) {
	cli := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := cli.Ping(ctx).Err(); err != nil {
		_ = cli.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return cli, nil
}

// Subscriber consumes notification envelopes and forwards them to the hub.
type Subscriber struct {
	rdb *redis.Client
	hub Hub
	log zerolog.Logger
}

// NewSubscriber creates a subscriber over an open Redis client.
func NewSubscriber(rdb *redis.Client, hub Hub, logger *zerolog.Logger) *Subscriber {
	lg := zerolog.Nop()
	if logger != nil {
		lg = *logger
	}
	return &Subscriber{rdb: rdb, hub: hub, log: lg}
}

// Run subscribes to notify:* and forwards envelopes until the context is
// cancelled. Malformed payloads are logged and skipped.
func (s *Subscriber) Run(ctx context.Context) error {
	pubsub := s.rdb.PSubscribe(ctx, channelPattern)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", channelPattern, err)
	}

	s.log.Info().Str("pattern", channelPattern).Msg("notification ingress subscribed")

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			s.dispatch(msg.Channel, []byte(msg.Payload))
		case <-ctx.Done():
			return nil
		}
	}
}

func (s *Subscriber) dispatch(channel string, payload []byte) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		s.log.Error().Err(err).Str("channel", channel).Msg("malformed notification payload")
		return
	}

	note := relay.Notification{Title: env.Title, Body: env.Body, Data: env.Data}
	switch {
	case env.UserID != "":
		s.hub.NotifyUser(env.UserID, note)
	case env.BusinessID != "":
		s.hub.NotifyBusiness(env.BusinessID, note)
	default:
		s.log.Warn().Str("channel", channel).Msg("notification without audience, dropping")
	}
}
