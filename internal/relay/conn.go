package relay

import "time"

// Identity holds the claims attached to a connection after authentication.
type Identity struct {
	UserID     string
	Email      string
	BusinessID string
	Role       string
}

// TokenVerifier validates an opaque bearer token and returns identity claims.
type TokenVerifier interface {
	Verify(token string) (*Identity, error)
}

// VerifierFunc adapts a function to the TokenVerifier interface.
type VerifierFunc func(token string) (*Identity, error)

func (f VerifierFunc) Verify(token string) (*Identity, error) { return f(token) }

// ChatRecord is what the hub hands to the persistence sink for a chat message.
type ChatRecord struct {
	Room             string
	SenderID         string
	SenderBusinessID string
	Content          string
	MessageType      string
	Metadata         map[string]any
	At               time.Time
}

// MessageSink receives chat messages for persistence. Implementations must not
// block: the hub calls Persist on its event loop and never waits for storage.
type MessageSink interface {
	Persist(rec ChatRecord)
}

// SinkFunc adapts a function to the MessageSink interface.
type SinkFunc func(rec ChatRecord)

func (f SinkFunc) Persist(rec ChatRecord) { f(rec) }

// Conn is a single live transport session as seen by the hub. The exported
// fields are set before registration and never change; the unexported state is
// owned by the hub goroutine and must not be touched from transport code.
type Conn struct {
	ID          string
	RemoteAddr  string
	UserAgent   string
	ConnectedAt time.Time

	// Events delivers outbound events to the transport write loop. The hub
	// closes it when the connection is removed from the registry; the write
	// loop exits on close and tears the socket down.
	Events chan *Event

	authenticated bool
	identity      Identity
	rooms         map[string]struct{}
	lastActive    time.Time
	gone          bool
}

// NewConn constructs an unauthenticated connection with a buffered event channel.
func NewConn(id, remoteAddr, userAgent string, buffer int) *Conn {
	if buffer <= 0 {
		buffer = 32
	}
	now := time.Now()
	return &Conn{
		ID:          id,
		RemoteAddr:  remoteAddr,
		UserAgent:   userAgent,
		ConnectedAt: now,
		Events:      make(chan *Event, buffer),
		rooms:       make(map[string]struct{}),
		lastActive:  now,
	}
}
