package relay

import "time"

// EventKind is a notification the hub emits to clients.
type EventKind int

const (
	// EventConnected acknowledges a freshly registered connection.
	EventConnected EventKind = iota
	// EventAuthenticated confirms a successful authentication.
	EventAuthenticated
	// EventSubscription confirms a subscribe or unsubscribe.
	EventSubscription
	// EventRoomInfo delivers a snapshot of a room's authenticated members.
	EventRoomInfo
	// EventChatMessage delivers a chat message to room members.
	EventChatMessage
	// EventTypingIndicator relays a typing state change.
	EventTypingIndicator
	// EventReadReceipt relays a read acknowledgement.
	EventReadReceipt
	// EventUserOnline announces a user coming online within a business.
	EventUserOnline
	// EventUserOffline announces a user going offline within a business.
	EventUserOffline
	// EventNotification delivers an out-of-band notification.
	EventNotification
	// EventSystemMessage delivers an operator message to a room.
	EventSystemMessage
	// EventPong answers a ping.
	EventPong
	// EventError reports a per-connection error.
	EventError
)

// Event is sent to clients to describe what happened in the system.
// At is stamped by the hub when the event is produced.
type Event struct {
	Kind EventKind
	At   time.Time

	ConnID       string
	Identity     *Identity
	Room         string
	SubStatus    string
	Members      []MemberInfo
	Message      *ChatMessage
	Typing       *TypingIndicator
	Receipt      *ReadReceipt
	UserID       string
	Notification *Notification
	System       *SystemMessage
	Err          *RelayError
}

// MemberInfo describes one authenticated room member in a room_info snapshot.
type MemberInfo struct {
	UserID      string
	BusinessID  string
	Role        string
	ConnectedAt time.Time
}

// ChatMessage is the enriched payload fanned out for chat_message commands.
type ChatMessage struct {
	Room             string
	Content          string
	MessageType      string
	SenderID         string
	SenderBusinessID string
	Metadata         map[string]any
}

// TypingIndicator is the payload for typing_indicator events.
type TypingIndicator struct {
	UserID     string
	BusinessID string
	IsTyping   bool
}

// ReadReceipt is the payload for read_receipt events.
type ReadReceipt struct {
	UserID     string
	BusinessID string
	MessageID  string
}

// Notification is an out-of-band message pushed to users or businesses.
type Notification struct {
	Title string
	Body  string
	Data  map[string]any
}

// SystemMessage is an operator-issued message for a room.
type SystemMessage struct {
	Text  string
	Level string
}
