package relay

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandAuthenticate attaches verified identity to the connection.
	CommandAuthenticate CommandKind = iota
	// CommandSubscribe adds the connection to a room.
	CommandSubscribe
	// CommandUnsubscribe removes the connection from a room.
	CommandUnsubscribe
	// CommandPing requests a liveness pong.
	CommandPing
	// CommandChatMessage delivers a chat message to room members.
	CommandChatMessage
	// CommandTypingIndicator relays a typing state change to room members.
	CommandTypingIndicator
	// CommandReadReceipt relays a read acknowledgement to room members.
	CommandReadReceipt
)

// Command represents an action requested by a client.
type Command struct {
	Kind        CommandKind
	Token       string
	Room        string
	Content     string
	MessageType string
	Metadata    map[string]any
	IsTyping    bool
	MessageID   string
}
