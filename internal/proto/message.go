package proto

import "time"

// Inbound message types accepted over the WebSocket.
const (
	TypeAuthenticate    = "authenticate"
	TypeSubscribe       = "subscribe"
	TypeUnsubscribe     = "unsubscribe"
	TypePing            = "ping"
	TypeChatMessage     = "chat_message"
	TypeTypingIndicator = "typing_indicator"
	TypeReadReceipt     = "read_receipt"
)

// Outbound message types emitted over the WebSocket.
const (
	TypeConnection    = "connection"
	TypeAuthResult    = "authentication"
	TypeSubscription  = "subscription"
	TypeRoomInfo      = "room_info"
	TypeUserOnline    = "user_online"
	TypeUserOffline   = "user_offline"
	TypeNotification  = "notification"
	TypeSystemMessage = "system_message"
	TypePong          = "pong"
	TypeError         = "error"
)

// Inbound is the flat envelope for client messages. Type selects the
// operation; the remaining fields are read per type.
type Inbound struct {
	Type        string         `json:"type"`
	Token       string         `json:"token,omitempty"`
	Room        string         `json:"room,omitempty"`
	Content     string         `json:"content,omitempty"`
	MessageType string         `json:"messageType,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	IsTyping    bool           `json:"isTyping,omitempty"`
	MessageID   string         `json:"messageId,omitempty"`
}

// ConnectionAck is sent immediately after a successful transport handshake.
type ConnectionAck struct {
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	ClientID  string    `json:"clientId"`
	Timestamp time.Time `json:"timestamp"`
}

// UserInfo carries the identity attached on successful authentication.
type UserInfo struct {
	ID         string `json:"id"`
	Email      string `json:"email,omitempty"`
	BusinessID string `json:"businessId"`
	Role       string `json:"role"`
}

// AuthResult confirms a successful authentication.
type AuthResult struct {
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	User      UserInfo  `json:"user"`
	Timestamp time.Time `json:"timestamp"`
}

// SubscriptionAck confirms a subscribe or unsubscribe.
type SubscriptionAck struct {
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	Room      string    `json:"room"`
	Timestamp time.Time `json:"timestamp"`
}

// OnlineUser describes one authenticated member in a room_info snapshot.
type OnlineUser struct {
	ID          string    `json:"id"`
	BusinessID  string    `json:"businessId"`
	Role        string    `json:"role"`
	ConnectedAt time.Time `json:"connectedAt"`
}

// RoomInfo is the membership snapshot sent after a subscription.
type RoomInfo struct {
	Type        string       `json:"type"`
	Room        string       `json:"room"`
	OnlineUsers []OnlineUser `json:"onlineUsers"`
	TotalUsers  int          `json:"totalUsers"`
	Timestamp   time.Time    `json:"timestamp"`
}

// Sender identifies the origin of a chat message.
type Sender struct {
	ID         string `json:"id"`
	BusinessID string `json:"businessId"`
}

// ChatMessage is the enriched chat event fanned out to room members.
type ChatMessage struct {
	Type        string         `json:"type"`
	Room        string         `json:"room"`
	Content     string         `json:"content"`
	MessageType string         `json:"messageType"`
	Sender      Sender         `json:"sender"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}

// TypingIndicator relays a typing state change to room members.
type TypingIndicator struct {
	Type       string    `json:"type"`
	Room       string    `json:"room"`
	UserID     string    `json:"userId"`
	BusinessID string    `json:"businessId"`
	IsTyping   bool      `json:"isTyping"`
	Timestamp  time.Time `json:"timestamp"`
}

// ReadReceipt relays a read acknowledgement to room members.
type ReadReceipt struct {
	Type       string    `json:"type"`
	Room       string    `json:"room"`
	UserID     string    `json:"userId"`
	BusinessID string    `json:"businessId"`
	MessageID  string    `json:"messageId"`
	Timestamp  time.Time `json:"timestamp"`
}

// PresenceChange announces a user going online or offline within a business.
type PresenceChange struct {
	Type      string    `json:"type"`
	UserID    string    `json:"userId"`
	Timestamp time.Time `json:"timestamp"`
}

// Notification is an out-of-band message pushed to a user or business.
type Notification struct {
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Body      string         `json:"body"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// SystemMessage is an operator message delivered to a room.
type SystemMessage struct {
	Type      string    `json:"type"`
	Room      string    `json:"room"`
	Message   string    `json:"message"`
	Level     string    `json:"level"`
	Timestamp time.Time `json:"timestamp"`
}

// Pong answers a ping.
type Pong struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorFrame reports a per-connection error without closing the connection.
type ErrorFrame struct {
	Type      string    `json:"type"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// NewErrorFrame builds an error frame stamped with the current time.
func NewErrorFrame(code, message string) ErrorFrame {
	return ErrorFrame{
		Type:      TypeError,
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
	}
}
