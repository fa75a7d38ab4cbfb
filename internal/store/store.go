package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// Agent is a support staff account that can authenticate against the relay.
type Agent struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	BusinessID   string
	Role         string
	CreatedAt    time.Time
}

// ChatMessage is a persisted copy of a relayed chat message. Metadata is
// stored as a JSON document.
type ChatMessage struct {
	ID          int64
	Room        string
	SenderID    string
	BusinessID  string
	Content     string
	MessageType string
	Metadata    string
	CreatedAt   time.Time
}

// AgentStore handles agent persistence.
type AgentStore interface {
	// CreateAgent creates a new agent with a hashed password.
	CreateAgent(ctx context.Context, email, name, passwordHash, businessID, role string) (*Agent, error)

	// GetAgentByEmail retrieves an agent by email.
	GetAgentByEmail(ctx context.Context, email string) (*Agent, error)

	// GetAgentByID retrieves an agent by ID.
	GetAgentByID(ctx context.Context, id int64) (*Agent, error)
}

// MessageStore handles chat message persistence.
type MessageStore interface {
	// SaveMessage persists a relayed chat message.
	SaveMessage(ctx context.Context, msg *ChatMessage) error

	// ListMessages retrieves messages from a room, newest first. If beforeID
	// is provided, returns messages older than that ID.
	ListMessages(ctx context.Context, room string, limit int, beforeID *int64) ([]*ChatMessage, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	AgentStore
	MessageStore

	// Close closes the underlying database connection.
	Close() error
}
