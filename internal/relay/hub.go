package relay

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

// ErrHubStopped is returned by queries once the hub's run loop has exited.
var ErrHubStopped = errors.New("hub stopped")

// Default liveness settings; overridable via Options.
const (
	defaultIdleTimeout   = 30 * time.Minute
	defaultSweepInterval = 5 * time.Minute
)

// Stats is a point-in-time snapshot of the relay's registries.
type Stats struct {
	TotalClients         int
	AuthenticatedClients int
	TotalRooms           int
	Rooms                map[string]int
	At                   time.Time
}

// ClientInfo describes one live connection for the admin surface.
type ClientInfo struct {
	ID            string
	Authenticated bool
	UserID        string
	BusinessID    string
	Role          string
	ConnectedAt   time.Time
	LastActive    time.Time
	Subscriptions []string
	RemoteAddr    string
	UserAgent     string
}

// Options configures a Hub.
type Options struct {
	// Verifier validates authenticate tokens. Required for authentication to
	// ever succeed; a nil verifier rejects every token.
	Verifier TokenVerifier
	// Sink receives chat messages for fire-and-forget persistence. Optional.
	Sink MessageSink
	// Logger defaults to a no-op logger when nil.
	Logger *zerolog.Logger
	// IdleTimeout is how long a connection may stay silent before the sweep
	// force-disconnects it.
	IdleTimeout time.Duration
	// SweepInterval is how often the liveness sweep runs. Zero disables it.
	SweepInterval time.Duration
}

// hubCmd is the tagged union of everything the hub's run loop processes.
// All registry state is mutated exclusively on that loop.
type hubCmd interface{ hubCmd() }

type cmdRegister struct{ conn *Conn }

func (cmdRegister) hubCmd() {}

type cmdUnregister struct{ connID string }

func (cmdUnregister) hubCmd() {}

type cmdInbound struct {
	connID string
	cmd    *Command
}

func (cmdInbound) hubCmd() {}

type cmdStats struct{ reply chan Stats }

func (cmdStats) hubCmd() {}

type cmdClients struct{ reply chan []ClientInfo }

func (cmdClients) hubCmd() {}

type cmdForceDisconnect struct {
	connID string
	reply  chan bool
}

func (cmdForceDisconnect) hubCmd() {}

type cmdNotifyUser struct {
	userID string
	note   Notification
}

func (cmdNotifyUser) hubCmd() {}

type cmdNotifyBusiness struct {
	businessID string
	note       Notification
}

func (cmdNotifyBusiness) hubCmd() {}

type cmdSystemMessage struct {
	room string
	msg  SystemMessage
}

func (cmdSystemMessage) hubCmd() {}

type cmdReject struct {
	connID string
	code   string
	msg    string
}

func (cmdReject) hubCmd() {}

// Hub owns the connection and room registries and fans events out to the
// right subsets of connections. A single goroutine (Run) processes every
// command to completion, so no state here needs locking.
type Hub struct {
	verifier      TokenVerifier
	sink          MessageSink
	log           zerolog.Logger
	idleTimeout   time.Duration
	sweepInterval time.Duration

	cmds  chan hubCmd
	done  chan struct{}
	conns map[string]*Conn
	rooms map[string]*Room
}

// NewHub creates a hub with the given options.
func NewHub(opts Options) *Hub {
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = defaultIdleTimeout
	}
	return &Hub{
		verifier:      opts.Verifier,
		sink:          opts.Sink,
		log:           logger,
		idleTimeout:   opts.IdleTimeout,
		sweepInterval: opts.SweepInterval,
		cmds:          make(chan hubCmd, 256),
		done:          make(chan struct{}),
		conns:         make(map[string]*Conn),
		rooms:         make(map[string]*Room),
	}
}

// Run processes commands until the context is cancelled. It must be running
// before any connection is registered.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	var sweep <-chan time.Time
	if h.sweepInterval > 0 {
		ticker := time.NewTicker(h.sweepInterval)
		defer ticker.Stop()
		sweep = ticker.C
	}

	for {
		select {
		case cmd := <-h.cmds:
			h.handle(cmd)
		case <-sweep:
			h.sweepIdle()
		case <-ctx.Done():
			return
		}
	}
}

// post queues a fire-and-forget command. Once the run loop has exited the
// command is dropped instead of blocking the caller forever.
func (h *Hub) post(cmd hubCmd) {
	select {
	case h.cmds <- cmd:
	case <-h.done:
	}
}

// Register adds a connection to the registry and sends the connection ack.
func (h *Hub) Register(c *Conn) {
	h.post(cmdRegister{conn: c})
}

// Unregister removes a connection and runs full disconnect cleanup. Safe to
// call more than once for the same connection.
func (h *Hub) Unregister(c *Conn) {
	h.post(cmdUnregister{connID: c.ID})
}

// Dispatch hands an inbound command from the transport to the hub.
func (h *Hub) Dispatch(c *Conn, cmd *Command) {
	h.post(cmdInbound{connID: c.ID, cmd: cmd})
}

// Reject reports a protocol-level error (malformed payload, unknown type)
// back to the sender. The connection stays open.
func (h *Hub) Reject(c *Conn, code, msg string) {
	h.post(cmdReject{connID: c.ID, code: code, msg: msg})
}

// Stats returns a snapshot of the registries.
func (h *Hub) Stats(ctx context.Context) (Stats, error) {
	reply := make(chan Stats, 1)
	select {
	case h.cmds <- cmdStats{reply: reply}:
	case <-h.done:
		return Stats{}, ErrHubStopped
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}
	select {
	case s := <-reply:
		return s, nil
	case <-h.done:
		return Stats{}, ErrHubStopped
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}
}

// Clients lists every live connection.
func (h *Hub) Clients(ctx context.Context) ([]ClientInfo, error) {
	reply := make(chan []ClientInfo, 1)
	select {
	case h.cmds <- cmdClients{reply: reply}:
	case <-h.done:
		return nil, ErrHubStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case infos := <-reply:
		return infos, nil
	case <-h.done:
		return nil, ErrHubStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ForceDisconnect closes the identified connection with full cleanup.
// Returns false if no such connection exists.
func (h *Hub) ForceDisconnect(ctx context.Context, connID string) (bool, error) {
	reply := make(chan bool, 1)
	select {
	case h.cmds <- cmdForceDisconnect{connID: connID, reply: reply}:
	case <-h.done:
		return false, ErrHubStopped
	case <-ctx.Done():
		return false, ctx.Err()
	}
	select {
	case ok := <-reply:
		return ok, nil
	case <-h.done:
		return false, ErrHubStopped
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// NotifyUser delivers a notification to every authenticated connection of the
// given user. Best effort.
func (h *Hub) NotifyUser(userID string, note Notification) {
	h.post(cmdNotifyUser{userID: userID, note: note})
}

// NotifyBusiness delivers a notification to every authenticated connection
// scoped to the given business. Best effort.
func (h *Hub) NotifyBusiness(businessID string, note Notification) {
	h.post(cmdNotifyBusiness{businessID: businessID, note: note})
}

// SystemMessage broadcasts an operator message to every member of a room.
func (h *Hub) SystemMessage(room, text, level string) {
	if level == "" {
		level = "info"
	}
	h.post(cmdSystemMessage{room: room, msg: SystemMessage{Text: text, Level: level}})
}

func (h *Hub) handle(cmd hubCmd) {
	switch c := cmd.(type) {
	case cmdRegister:
		h.handleRegister(c.conn)
	case cmdUnregister:
		if conn, ok := h.conns[c.connID]; ok {
			h.disconnect(conn)
		}
	case cmdInbound:
		if conn, ok := h.conns[c.connID]; ok {
			h.handleInbound(conn, c.cmd)
		}
	case cmdStats:
		c.reply <- h.stats()
	case cmdClients:
		c.reply <- h.clients()
	case cmdForceDisconnect:
		conn, ok := h.conns[c.connID]
		if ok {
			h.log.Info().Str("conn_id", c.connID).Msg("forced disconnect")
			h.disconnect(conn)
		}
		c.reply <- ok
	case cmdNotifyUser:
		for _, conn := range h.conns {
			if conn.authenticated && conn.identity.UserID == c.userID {
				h.send(conn, &Event{Kind: EventNotification, At: time.Now(), Notification: &c.note})
			}
		}
	case cmdNotifyBusiness:
		for _, conn := range h.conns {
			if conn.authenticated && conn.identity.BusinessID == c.businessID {
				h.send(conn, &Event{Kind: EventNotification, At: time.Now(), Notification: &c.note})
			}
		}
	case cmdSystemMessage:
		if room, ok := h.rooms[c.room]; ok {
			msg := c.msg
			h.broadcastRoom(room, &Event{Kind: EventSystemMessage, At: time.Now(), Room: c.room, System: &msg}, nil)
		}
	case cmdReject:
		if conn, ok := h.conns[c.connID]; ok {
			conn.lastActive = time.Now()
			h.sendError(conn, relayError(c.code, c.msg))
		}
	}
}

func (h *Hub) handleRegister(c *Conn) {
	h.conns[c.ID] = c
	h.log.Debug().Str("conn_id", c.ID).Str("remote_addr", c.RemoteAddr).Msg("client connected")
	h.send(c, &Event{Kind: EventConnected, At: time.Now(), ConnID: c.ID})
}

func (h *Hub) handleInbound(c *Conn, cmd *Command) {
	c.lastActive = time.Now()

	switch cmd.Kind {
	case CommandAuthenticate:
		h.handleAuthenticate(c, cmd.Token)
	case CommandSubscribe:
		h.handleSubscribe(c, cmd.Room)
	case CommandUnsubscribe:
		h.handleUnsubscribe(c, cmd.Room)
	case CommandPing:
		h.send(c, &Event{Kind: EventPong, At: time.Now()})
	case CommandChatMessage:
		h.handleChatMessage(c, cmd)
	case CommandTypingIndicator:
		h.handleTypingIndicator(c, cmd)
	case CommandReadReceipt:
		h.handleReadReceipt(c, cmd)
	}
}

func (h *Hub) handleAuthenticate(c *Conn, token string) {
	if token == "" {
		h.sendError(c, relayError(ErrCodeValidation, "authentication token required"))
		return
	}
	if h.verifier == nil {
		h.sendError(c, relayError(ErrCodeAuthFailed, "authentication failed"))
		return
	}

	identity, err := h.verifier.Verify(token)
	if err != nil {
		h.log.Debug().Err(err).Str("conn_id", c.ID).Msg("authentication failed")
		h.sendError(c, relayError(ErrCodeAuthFailed, "authentication failed"))
		return
	}

	c.authenticated = true
	c.identity = *identity
	h.log.Info().Str("conn_id", c.ID).Str("user_id", identity.UserID).Msg("client authenticated")

	id := c.identity
	h.send(c, &Event{Kind: EventAuthenticated, At: time.Now(), Identity: &id})

	if identity.BusinessID != "" {
		h.broadcastBusiness(identity.BusinessID, &Event{
			Kind:   EventUserOnline,
			At:     time.Now(),
			UserID: identity.UserID,
		}, c)
	}
}

func (h *Hub) handleSubscribe(c *Conn, name string) {
	if name == "" {
		h.sendError(c, relayError(ErrCodeValidation, "room name required for subscription"))
		return
	}

	room, ok := h.rooms[name]
	if !ok {
		room = newRoom(name)
		h.rooms[name] = room
	}
	room.add(c)
	c.rooms[name] = struct{}{}

	h.log.Debug().Str("conn_id", c.ID).Str("room", name).Msg("subscribed")

	h.send(c, &Event{Kind: EventSubscription, At: time.Now(), Room: name, SubStatus: "subscribed"})
	h.send(c, h.roomInfo(room))
}

func (h *Hub) handleUnsubscribe(c *Conn, name string) {
	if name == "" {
		h.sendError(c, relayError(ErrCodeValidation, "room name required for unsubscription"))
		return
	}

	if room, ok := h.rooms[name]; ok {
		room.remove(c)
		if room.empty() {
			delete(h.rooms, name)
		}
	}
	delete(c.rooms, name)

	h.log.Debug().Str("conn_id", c.ID).Str("room", name).Msg("unsubscribed")

	h.send(c, &Event{Kind: EventSubscription, At: time.Now(), Room: name, SubStatus: "unsubscribed"})
}

func (h *Hub) handleChatMessage(c *Conn, cmd *Command) {
	if cmd.Room == "" || cmd.Content == "" {
		h.sendError(c, relayError(ErrCodeValidation, "room and content required for chat message"))
		return
	}

	messageType := cmd.MessageType
	if messageType == "" {
		messageType = "text"
	}

	now := time.Now()
	ev := &Event{
		Kind: EventChatMessage,
		At:   now,
		Room: cmd.Room,
		Message: &ChatMessage{
			Room:             cmd.Room,
			Content:          cmd.Content,
			MessageType:      messageType,
			SenderID:         c.identity.UserID,
			SenderBusinessID: c.identity.BusinessID,
			Metadata:         cmd.Metadata,
		},
	}

	if room, ok := h.rooms[cmd.Room]; ok {
		h.broadcastRoom(room, ev, c)
	}

	// Persistence is fire-and-forget: the broadcast never waits on storage.
	if h.sink != nil {
		h.sink.Persist(ChatRecord{
			Room:             cmd.Room,
			SenderID:         c.identity.UserID,
			SenderBusinessID: c.identity.BusinessID,
			Content:          cmd.Content,
			MessageType:      messageType,
			Metadata:         cmd.Metadata,
			At:               now,
		})
	}
}

func (h *Hub) handleTypingIndicator(c *Conn, cmd *Command) {
	if cmd.Room == "" {
		return
	}
	ev := &Event{
		Kind: EventTypingIndicator,
		At:   time.Now(),
		Room: cmd.Room,
		Typing: &TypingIndicator{
			UserID:     c.identity.UserID,
			BusinessID: c.identity.BusinessID,
			IsTyping:   cmd.IsTyping,
		},
	}
	if room, ok := h.rooms[cmd.Room]; ok {
		h.broadcastRoom(room, ev, c)
	}
}

func (h *Hub) handleReadReceipt(c *Conn, cmd *Command) {
	if cmd.Room == "" || cmd.MessageID == "" {
		return
	}
	ev := &Event{
		Kind: EventReadReceipt,
		At:   time.Now(),
		Room: cmd.Room,
		Receipt: &ReadReceipt{
			UserID:     c.identity.UserID,
			BusinessID: c.identity.BusinessID,
			MessageID:  cmd.MessageID,
		},
	}
	if room, ok := h.rooms[cmd.Room]; ok {
		h.broadcastRoom(room, ev, c)
	}
}

// disconnect removes a connection from every room it belonged to, announces
// the user going offline, and closes the event channel so the transport's
// write loop tears the socket down.
func (h *Hub) disconnect(c *Conn) {
	if c.gone {
		return
	}

	for name := range c.rooms {
		if room, ok := h.rooms[name]; ok {
			room.remove(c)
			if room.empty() {
				delete(h.rooms, name)
			}
		}
	}

	if c.authenticated && c.identity.BusinessID != "" {
		h.broadcastBusiness(c.identity.BusinessID, &Event{
			Kind:   EventUserOffline,
			At:     time.Now(),
			UserID: c.identity.UserID,
		}, c)
	}

	delete(h.conns, c.ID)
	c.gone = true
	close(c.Events)

	h.log.Debug().Str("conn_id", c.ID).Msg("client disconnected")
}

func (h *Hub) sweepIdle() {
	now := time.Now()
	for _, c := range h.conns {
		if now.Sub(c.lastActive) > h.idleTimeout {
			h.log.Info().Str("conn_id", c.ID).Time("last_active", c.lastActive).Msg("sweeping idle connection")
			h.disconnect(c)
		}
	}
}

func (h *Hub) roomInfo(room *Room) *Event {
	members := make([]MemberInfo, 0, len(room.members))
	for _, m := range room.members {
		if !m.authenticated {
			continue
		}
		members = append(members, MemberInfo{
			UserID:      m.identity.UserID,
			BusinessID:  m.identity.BusinessID,
			Role:        m.identity.Role,
			ConnectedAt: m.ConnectedAt,
		})
	}
	return &Event{Kind: EventRoomInfo, At: time.Now(), Room: room.Name, Members: members}
}

func (h *Hub) broadcastRoom(room *Room, ev *Event, except *Conn) {
	for _, m := range room.members {
		if m == except {
			continue
		}
		h.send(m, ev)
	}
}

func (h *Hub) broadcastBusiness(businessID string, ev *Event, except *Conn) {
	for _, c := range h.conns {
		if c == except {
			continue
		}
		if c.authenticated && c.identity.BusinessID == businessID {
			h.send(c, ev)
		}
	}
}

// send delivers an event without blocking; slow consumers lose events and are
// eventually cleaned up by their own close.
func (h *Hub) send(c *Conn, ev *Event) {
	if c.gone {
		return
	}
	select {
	case c.Events <- ev:
	default:
		h.log.Warn().Str("conn_id", c.ID).Int("kind", int(ev.Kind)).Msg("event channel full, dropping event")
	}
}

func (h *Hub) sendError(c *Conn, err *RelayError) {
	h.send(c, &Event{Kind: EventError, At: time.Now(), Err: err})
}

func (h *Hub) stats() Stats {
	s := Stats{
		TotalClients: len(h.conns),
		TotalRooms:   len(h.rooms),
		Rooms:        make(map[string]int, len(h.rooms)),
		At:           time.Now(),
	}
	for _, c := range h.conns {
		if c.authenticated {
			s.AuthenticatedClients++
		}
	}
	for name, room := range h.rooms {
		s.Rooms[name] = len(room.members)
	}
	return s
}

func (h *Hub) clients() []ClientInfo {
	infos := make([]ClientInfo, 0, len(h.conns))
	for _, c := range h.conns {
		subs := make([]string, 0, len(c.rooms))
		for name := range c.rooms {
			subs = append(subs, name)
		}
		sort.Strings(subs)
		infos = append(infos, ClientInfo{
			ID:            c.ID,
			Authenticated: c.authenticated,
			UserID:        c.identity.UserID,
			BusinessID:    c.identity.BusinessID,
			Role:          c.identity.Role,
			ConnectedAt:   c.ConnectedAt,
			LastActive:    c.lastActive,
			Subscriptions: subs,
			RemoteAddr:    c.RemoteAddr,
			UserAgent:     c.UserAgent,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}
