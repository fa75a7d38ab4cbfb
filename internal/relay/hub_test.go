package relay

import (
	"context"
	"testing"
	"time"
)

func startHub(t *testing.T, opts Options) *Hub {
	t.Helper()

	if opts.Verifier == nil {
		opts.Verifier = testVerifier()
	}
	hub := NewHub(opts)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	return hub
}

func connect(t *testing.T, hub *Hub, id string) *Conn {
	t.Helper()

	c := NewConn(id, "127.0.0.1:1234", "test-agent", 16)
	hub.Register(c)
	ack := mustEvent(t, c.Events, EventConnected)
	if ack.ConnID != id {
		t.Fatalf("unexpected connection ack: %+v", ack)
	}
	return c
}

func authenticate(t *testing.T, hub *Hub, c *Conn, token string) *Event {
	t.Helper()

	hub.Dispatch(c, &Command{Kind: CommandAuthenticate, Token: token})
	return mustEvent(t, c.Events, EventAuthenticated)
}

func subscribe(t *testing.T, hub *Hub, c *Conn, room string) {
	t.Helper()

	hub.Dispatch(c, &Command{Kind: CommandSubscribe, Room: room})
	ack := mustEvent(t, c.Events, EventSubscription)
	if ack.Room != room || ack.SubStatus != "subscribed" {
		t.Fatalf("unexpected subscription ack: %+v", ack)
	}
}

func TestRoomFanOutExcludesSender(t *testing.T) {
	hub := startHub(t, Options{})

	a := connect(t, hub, "a")
	b := connect(t, hub, "b")
	subscribe(t, hub, a, "support-1")
	subscribe(t, hub, b, "support-1")

	hub.Dispatch(a, &Command{Kind: CommandChatMessage, Room: "support-1", Content: "hi"})

	ev := mustEvent(t, b.Events, EventChatMessage)
	if ev.Message == nil || ev.Message.Content != "hi" || ev.Room != "support-1" {
		t.Fatalf("unexpected chat event: %+v", ev)
	}

	mustNoEvent(t, a.Events, EventChatMessage, 100*time.Millisecond)
}

func TestChatMessageValidation(t *testing.T) {
	hub := startHub(t, Options{})

	a := connect(t, hub, "a")
	b := connect(t, hub, "b")
	subscribe(t, hub, a, "support-1")
	subscribe(t, hub, b, "support-1")

	hub.Dispatch(a, &Command{Kind: CommandChatMessage, Room: "", Content: "hi"})
	ev := mustEvent(t, a.Events, EventError)
	if ev.Err == nil || ev.Err.Code != ErrCodeValidation {
		t.Fatalf("expected validation error, got %+v", ev)
	}

	hub.Dispatch(a, &Command{Kind: CommandChatMessage, Room: "support-1"})
	ev = mustEvent(t, a.Events, EventError)
	if ev.Err == nil || ev.Err.Code != ErrCodeValidation {
		t.Fatalf("expected validation error, got %+v", ev)
	}

	mustNoEvent(t, b.Events, EventChatMessage, 100*time.Millisecond)
}

func TestPingAlwaysPongs(t *testing.T) {
	hub := startHub(t, Options{})

	a := connect(t, hub, "a")
	hub.Dispatch(a, &Command{Kind: CommandPing})

	ev := mustEvent(t, a.Events, EventPong)
	if ev.At.IsZero() {
		t.Fatalf("pong missing timestamp: %+v", ev)
	}
	mustNoEvent(t, a.Events, EventPong, 100*time.Millisecond)
}

func TestInvalidTokenLeavesConnectionUsable(t *testing.T) {
	hub := startHub(t, Options{})

	a := connect(t, hub, "a")
	hub.Dispatch(a, &Command{Kind: CommandAuthenticate, Token: "garbage"})

	ev := mustEvent(t, a.Events, EventError)
	if ev.Err == nil || ev.Err.Code != ErrCodeAuthFailed {
		t.Fatalf("expected auth_failed error, got %+v", ev)
	}

	// Subscription does not require authentication.
	subscribe(t, hub, a, "support-1")

	info := mustEvent(t, a.Events, EventRoomInfo)
	if len(info.Members) != 0 {
		t.Fatalf("unauthenticated member listed in room info: %+v", info)
	}
}

func TestUserOnlineScopedToBusinessAndExcludesSender(t *testing.T) {
	hub := startHub(t, Options{})

	first := connect(t, hub, "first")
	second := connect(t, hub, "second")
	other := connect(t, hub, "other")
	anon := connect(t, hub, "anon")

	authenticate(t, hub, first, "tok-alice")
	authenticate(t, hub, other, "tok-carol")

	// Bob coming online must reach Alice (same business) only.
	ev := authenticate(t, hub, second, "tok-bob")
	if ev.Identity == nil || ev.Identity.UserID != "bob" {
		t.Fatalf("unexpected auth event: %+v", ev)
	}

	online := mustEvent(t, first.Events, EventUserOnline)
	if online.UserID != "bob" {
		t.Fatalf("unexpected user_online: %+v", online)
	}
	mustNoEvent(t, second.Events, EventUserOnline, 100*time.Millisecond)
	mustNoEvent(t, other.Events, EventUserOnline, 100*time.Millisecond)
	mustNoEvent(t, anon.Events, EventUserOnline, 100*time.Millisecond)
}

func TestBusinessNotificationNeverReachesUnauthenticated(t *testing.T) {
	hub := startHub(t, Options{})

	agent := connect(t, hub, "agent")
	anon := connect(t, hub, "anon")
	authenticate(t, hub, agent, "tok-alice")

	hub.NotifyBusiness("biz-1", Notification{Title: "billing", Body: "invoice ready"})

	note := mustEvent(t, agent.Events, EventNotification)
	if note.Notification == nil || note.Notification.Title != "billing" {
		t.Fatalf("unexpected notification: %+v", note)
	}
	mustNoEvent(t, anon.Events, EventNotification, 100*time.Millisecond)
}

func TestRoomMembershipBookkeeping(t *testing.T) {
	hub := startHub(t, Options{})
	ctx := context.Background()

	a := connect(t, hub, "a")
	b := connect(t, hub, "b")
	subscribe(t, hub, a, "support-1")
	subscribe(t, hub, b, "support-1")

	// Subscribe is idempotent.
	subscribe(t, hub, a, "support-1")

	stats, err := hub.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Rooms["support-1"] != 2 {
		t.Fatalf("expected 2 members, got %+v", stats.Rooms)
	}

	hub.Dispatch(a, &Command{Kind: CommandUnsubscribe, Room: "support-1"})
	mustEvent(t, a.Events, EventSubscription)

	stats, err = hub.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Rooms["support-1"] != 1 {
		t.Fatalf("expected 1 member, got %+v", stats.Rooms)
	}
}

func TestUnsubscribeLastMemberDeletesRoom(t *testing.T) {
	hub := startHub(t, Options{})
	ctx := context.Background()

	a := connect(t, hub, "a")
	subscribe(t, hub, a, "support-1")

	hub.Dispatch(a, &Command{Kind: CommandUnsubscribe, Room: "support-1"})
	mustEvent(t, a.Events, EventSubscription)

	stats, err := hub.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalRooms != 0 {
		t.Fatalf("expected no rooms, got %+v", stats.Rooms)
	}
}

func TestDisconnectRemovesFromAllRooms(t *testing.T) {
	hub := startHub(t, Options{})
	ctx := context.Background()

	a := connect(t, hub, "a")
	b := connect(t, hub, "b")
	subscribe(t, hub, a, "support-1")
	subscribe(t, hub, a, "support-2")
	subscribe(t, hub, b, "support-1")

	hub.Unregister(a)
	mustClosed(t, a.Events)

	stats, err := hub.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalClients != 1 || stats.TotalRooms != 1 || stats.Rooms["support-1"] != 1 {
		t.Fatalf("unexpected stats after disconnect: %+v", stats)
	}

	// Disconnecting a connection with zero rooms is a no-op, not a panic.
	c := connect(t, hub, "c")
	hub.Unregister(c)
	mustClosed(t, c.Events)
	hub.Unregister(c)
}

func TestDisconnectBroadcastsUserOffline(t *testing.T) {
	hub := startHub(t, Options{})

	a := connect(t, hub, "a")
	b := connect(t, hub, "b")
	authenticate(t, hub, a, "tok-alice")
	authenticate(t, hub, b, "tok-bob")
	mustEvent(t, a.Events, EventUserOnline)

	hub.Unregister(b)

	offline := mustEvent(t, a.Events, EventUserOffline)
	if offline.UserID != "bob" {
		t.Fatalf("unexpected user_offline: %+v", offline)
	}
}

func TestRoomInfoListsAuthenticatedMembersOnly(t *testing.T) {
	hub := startHub(t, Options{})

	agent := connect(t, hub, "agent")
	visitor := connect(t, hub, "visitor")
	authenticate(t, hub, agent, "tok-alice")

	subscribe(t, hub, agent, "support-1")
	mustEvent(t, agent.Events, EventRoomInfo)

	subscribe(t, hub, visitor, "support-1")
	info := mustEvent(t, visitor.Events, EventRoomInfo)
	if len(info.Members) != 1 || info.Members[0].UserID != "alice" {
		t.Fatalf("unexpected room info: %+v", info)
	}
}

func TestForceDisconnect(t *testing.T) {
	hub := startHub(t, Options{})
	ctx := context.Background()

	a := connect(t, hub, "a")
	subscribe(t, hub, a, "support-1")

	ok, err := hub.ForceDisconnect(ctx, a.ID)
	if err != nil || !ok {
		t.Fatalf("force disconnect: ok=%v err=%v", ok, err)
	}
	mustClosed(t, a.Events)

	ok, err = hub.ForceDisconnect(ctx, a.ID)
	if err != nil || ok {
		t.Fatalf("expected second force disconnect to report missing, got ok=%v err=%v", ok, err)
	}

	stats, err := hub.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalClients != 0 || stats.TotalRooms != 0 {
		t.Fatalf("unexpected stats after force disconnect: %+v", stats)
	}
}

func TestIdleSweepDisconnects(t *testing.T) {
	hub := startHub(t, Options{
		IdleTimeout:   20 * time.Millisecond,
		SweepInterval: 10 * time.Millisecond,
	})

	a := connect(t, hub, "a")
	mustClosed(t, a.Events)
}

func TestChatMessagePersistedFireAndForget(t *testing.T) {
	records := make(chan ChatRecord, 1)
	hub := startHub(t, Options{
		Sink: SinkFunc(func(rec ChatRecord) { records <- rec }),
	})

	a := connect(t, hub, "a")
	b := connect(t, hub, "b")
	authenticate(t, hub, a, "tok-alice")
	subscribe(t, hub, a, "support-1")
	subscribe(t, hub, b, "support-1")

	hub.Dispatch(a, &Command{Kind: CommandChatMessage, Room: "support-1", Content: "hello", Metadata: map[string]any{"source": "widget"}})
	mustEvent(t, b.Events, EventChatMessage)

	select {
	case rec := <-records:
		if rec.Room != "support-1" || rec.Content != "hello" || rec.SenderID != "alice" {
			t.Fatalf("unexpected record: %+v", rec)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("chat message never reached the sink")
	}
}

func TestTypingIndicatorBroadcastNoPersistence(t *testing.T) {
	records := make(chan ChatRecord, 1)
	hub := startHub(t, Options{
		Sink: SinkFunc(func(rec ChatRecord) { records <- rec }),
	})

	a := connect(t, hub, "a")
	b := connect(t, hub, "b")
	authenticate(t, hub, a, "tok-alice")
	subscribe(t, hub, a, "support-1")
	subscribe(t, hub, b, "support-1")

	hub.Dispatch(a, &Command{Kind: CommandTypingIndicator, Room: "support-1", IsTyping: true})

	ev := mustEvent(t, b.Events, EventTypingIndicator)
	if ev.Typing == nil || !ev.Typing.IsTyping || ev.Typing.UserID != "alice" {
		t.Fatalf("unexpected typing event: %+v", ev)
	}
	mustNoEvent(t, a.Events, EventTypingIndicator, 100*time.Millisecond)

	select {
	case rec := <-records:
		t.Fatalf("typing indicator must not be persisted: %+v", rec)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestReadReceiptBroadcast(t *testing.T) {
	hub := startHub(t, Options{})

	a := connect(t, hub, "a")
	b := connect(t, hub, "b")
	authenticate(t, hub, a, "tok-alice")
	subscribe(t, hub, a, "support-1")
	subscribe(t, hub, b, "support-1")

	// Missing messageId is silently ignored.
	hub.Dispatch(a, &Command{Kind: CommandReadReceipt, Room: "support-1"})
	mustNoEvent(t, b.Events, EventReadReceipt, 100*time.Millisecond)

	hub.Dispatch(a, &Command{Kind: CommandReadReceipt, Room: "support-1", MessageID: "m-1"})
	ev := mustEvent(t, b.Events, EventReadReceipt)
	if ev.Receipt == nil || ev.Receipt.MessageID != "m-1" || ev.Receipt.UserID != "alice" {
		t.Fatalf("unexpected read receipt: %+v", ev)
	}
}

func TestStoppedHubNeverBlocksSenders(t *testing.T) {
	hub := NewHub(Options{Verifier: testVerifier()})
	ctx, cancel := context.WithCancel(context.Background())

	runDone := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(runDone)
	}()

	a := connect(t, hub, "a")
	cancel()
	<-runDone

	// Far more sends than the command buffer holds; none may block once the
	// run loop has exited.
	sent := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			hub.Dispatch(a, &Command{Kind: CommandPing})
			hub.SystemMessage("support-1", "draining", "")
			hub.NotifyUser("alice", Notification{Title: "t", Body: "b"})
		}
		hub.Unregister(a)
		close(sent)
	}()

	select {
	case <-sent:
	case <-time.After(2 * time.Second):
		t.Fatal("sender blocked on a stopped hub")
	}

	if _, err := hub.Stats(context.Background()); err != ErrHubStopped {
		t.Fatalf("expected ErrHubStopped, got %v", err)
	}
	if _, err := hub.ForceDisconnect(context.Background(), a.ID); err != ErrHubStopped {
		t.Fatalf("expected ErrHubStopped, got %v", err)
	}
}

func TestSystemMessageReachesWholeRoom(t *testing.T) {
	hub := startHub(t, Options{})

	a := connect(t, hub, "a")
	b := connect(t, hub, "b")
	subscribe(t, hub, a, "support-1")
	subscribe(t, hub, b, "support-1")

	hub.SystemMessage("support-1", "maintenance in 5 minutes", "")

	for _, c := range []*Conn{a, b} {
		ev := mustEvent(t, c.Events, EventSystemMessage)
		if ev.System == nil || ev.System.Text != "maintenance in 5 minutes" || ev.System.Level != "info" {
			t.Fatalf("unexpected system message: %+v", ev)
		}
	}
}
