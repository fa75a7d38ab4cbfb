package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/conversia/relay-server/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS agents (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	email         TEXT NOT NULL UNIQUE,
	name          TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	business_id   TEXT NOT NULL,
	role          TEXT NOT NULL DEFAULT 'agent',
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS chat_messages (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	room         TEXT NOT NULL,
	sender_id    TEXT NOT NULL DEFAULT '',
	business_id  TEXT NOT NULL DEFAULT '',
	content      TEXT NOT NULL,
	message_type TEXT NOT NULL DEFAULT 'text',
	metadata     TEXT NOT NULL DEFAULT '{}',
	created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_chat_messages_room ON chat_messages(room, id);
`

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New opens the database at dbPath and applies the schema.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== AgentStore implementation ====

// CreateAgent creates a new agent with a hashed password.
func (s *SQLiteStore) CreateAgent(ctx context.Context, email, name, passwordHash, businessID, role string) (*store.Agent, error) {
	query := `
		INSERT INTO agents (email, name, password_hash, business_id, role)
		VALUES (?, ?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, email, name, passwordHash, businessID, role)
	if err != nil {
		return nil, fmt.Errorf("insert agent: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetAgentByID(ctx, id)
}

// GetAgentByEmail retrieves an agent by email.
func (s *SQLiteStore) GetAgentByEmail(ctx context.Context, email string) (*store.Agent, error) {
	query := `
		SELECT id, email, name, password_hash, business_id, role, created_at
		FROM agents
		WHERE email = ?
	`
	return s.scanAgent(s.db.QueryRowContext(ctx, query, email))
}

// GetAgentByID retrieves an agent by ID.
func (s *SQLiteStore) GetAgentByID(ctx context.Context, id int64) (*store.Agent, error) {
	query := `
		SELECT id, email, name, password_hash, business_id, role, created_at
		FROM agents
		WHERE id = ?
	`
	return s.scanAgent(s.db.QueryRowContext(ctx, query, id))
}

func (s *SQLiteStore) scanAgent(row *sql.Row) (*store.Agent, error) {
	var agent store.Agent
	err := row.Scan(
		&agent.ID,
		&agent.Email,
		&agent.Name,
		&agent.PasswordHash,
		&agent.BusinessID,
		&agent.Role,
		&agent.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query agent: %w", err)
	}
	return &agent, nil
}

// ==== MessageStore implementation ====

// SaveMessage persists a relayed chat message.
func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *store.ChatMessage) error {
	query := `
		INSERT INTO chat_messages (room, sender_id, business_id, content, message_type, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	metadata := msg.Metadata
	if metadata == "" {
		metadata = "{}"
	}
	result, err := s.db.ExecContext(ctx, query,
		msg.Room, msg.SenderID, msg.BusinessID, msg.Content, msg.MessageType, metadata, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert chat message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	msg.ID = id
	return nil
}

// ListMessages retrieves messages from a room, newest first.
func (s *SQLiteStore) ListMessages(ctx context.Context, room string, limit int, beforeID *int64) ([]*store.ChatMessage, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := `
		SELECT id, room, sender_id, business_id, content, message_type, metadata, created_at
		FROM chat_messages
		WHERE room = ?
	`
	args := []any{room}
	if beforeID != nil {
		query += " AND id < ?"
		args = append(args, *beforeID)
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query chat messages: %w", err)
	}
	defer rows.Close()

	var messages []*store.ChatMessage
	for rows.Next() {
		var msg store.ChatMessage
		if err := rows.Scan(
			&msg.ID,
			&msg.Room,
			&msg.SenderID,
			&msg.BusinessID,
			&msg.Content,
			&msg.MessageType,
			&msg.Metadata,
			&msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat messages: %w", err)
	}

	return messages, nil
}
