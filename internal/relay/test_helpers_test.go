package relay

import (
	"errors"
	"testing"
	"time"
)

// stubVerifier resolves a fixed token table; anything else is rejected.
type stubVerifier struct {
	tokens map[string]Identity
}

func (v *stubVerifier) Verify(token string) (*Identity, error) {
	id, ok := v.tokens[token]
	if !ok {
		return nil, errors.New("invalid token")
	}
	return &id, nil
}

func testVerifier() *stubVerifier {
	return &stubVerifier{tokens: map[string]Identity{
		"tok-alice": {UserID: "alice", Email: "alice@acme.test", BusinessID: "biz-1", Role: "agent"},
		"tok-bob":   {UserID: "bob", Email: "bob@acme.test", BusinessID: "biz-1", Role: "agent"},
		"tok-carol": {UserID: "carol", Email: "carol@other.test", BusinessID: "biz-2", Role: "admin"},
	}}
}

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				t.Fatalf("event channel closed while waiting for kind %d", kind)
			}
			if ev.Kind == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("expected event kind %d not received", kind)
		}
	}
}

func mustNoEvent(t *testing.T, ch <-chan *Event, kind EventKind, wait time.Duration) {
	t.Helper()

	deadline := time.After(wait)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if ev.Kind == kind {
				t.Fatalf("unexpected event kind %d: %+v", kind, ev)
			}
		case <-deadline:
			return
		}
	}
}

// mustClosed drains the channel until it is closed or the deadline passes.
func mustClosed(t *testing.T, ch <-chan *Event) {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("event channel was not closed")
		}
	}
}
