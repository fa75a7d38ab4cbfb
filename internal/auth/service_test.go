package auth

import (
	"context"
	"testing"
	"time"

	"github.com/conversia/relay-server/internal/store"
)

type memAgentStore struct {
	agents map[string]*store.Agent
	nextID int64
}

func newMemAgentStore() *memAgentStore {
	return &memAgentStore{agents: make(map[string]*store.Agent)}
}

func (m *memAgentStore) CreateAgent(_ context.Context, email, name, passwordHash, businessID, role string) (*store.Agent, error) {
	m.nextID++
	agent := &store.Agent{
		ID:           m.nextID,
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		BusinessID:   businessID,
		Role:         role,
		CreatedAt:    time.Now(),
	}
	m.agents[email] = agent
	return agent, nil
}

func (m *memAgentStore) GetAgentByEmail(_ context.Context, email string) (*store.Agent, error) {
	agent, ok := m.agents[email]
	if !ok {
		return nil, store.ErrNotFound
	}
	return agent, nil
}

func (m *memAgentStore) GetAgentByID(_ context.Context, id int64) (*store.Agent, error) {
	for _, agent := range m.agents {
		if agent.ID == id {
			return agent, nil
		}
	}
	return nil, store.ErrNotFound
}

func testService() *Service {
	return NewService(newMemAgentStore(), &JWTConfig{
		Secret:   []byte("test-secret"),
		Issuer:   "relay-test",
		Audience: "relay-clients",
		TTL:      time.Hour,
	})
}

func TestCreateAgentAndLogin(t *testing.T) {
	svc := testService()
	ctx := context.Background()

	agent, err := svc.CreateAgent(ctx, "Alice@Acme.Test", "Alice", "password123", "biz-1", "admin")
	if err != nil {
		t.Fatalf("create agent: %v", err)
	}
	if agent.Email != "alice@acme.test" {
		t.Fatalf("email not normalized: %q", agent.Email)
	}

	token, err := svc.Login(ctx, "alice@acme.test", "password123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if claims.Email != "alice@acme.test" || claims.BusinessID != "biz-1" || claims.Role != "admin" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := testService()
	ctx := context.Background()

	if _, err := svc.CreateAgent(ctx, "alice@acme.test", "Alice", "password123", "biz-1", "agent"); err != nil {
		t.Fatalf("create agent: %v", err)
	}

	if _, err := svc.Login(ctx, "alice@acme.test", "wrong"); err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(ctx, "nobody@acme.test", "password123"); err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestCreateAgentValidation(t *testing.T) {
	svc := testService()
	ctx := context.Background()

	if _, err := svc.CreateAgent(ctx, "bad", "X", "password123", "biz-1", "agent"); err != ErrInvalidEmail {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
	if _, err := svc.CreateAgent(ctx, "ok@acme.test", "X", "short", "biz-1", "agent"); err != ErrInvalidPassword {
		t.Fatalf("expected ErrInvalidPassword, got %v", err)
	}

	if _, err := svc.CreateAgent(ctx, "dup@acme.test", "X", "password123", "biz-1", "agent"); err != nil {
		t.Fatalf("create agent: %v", err)
	}
	if _, err := svc.CreateAgent(ctx, "dup@acme.test", "X", "password123", "biz-1", "agent"); err != ErrAgentExists {
		t.Fatalf("expected ErrAgentExists, got %v", err)
	}
}

func TestVerifyReturnsRelayIdentity(t *testing.T) {
	svc := testService()
	ctx := context.Background()

	if _, err := svc.CreateAgent(ctx, "alice@acme.test", "Alice", "password123", "biz-1", "agent"); err != nil {
		t.Fatalf("create agent: %v", err)
	}
	token, err := svc.Login(ctx, "alice@acme.test", "password123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	identity, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if identity.BusinessID != "biz-1" || identity.Email != "alice@acme.test" {
		t.Fatalf("unexpected identity: %+v", identity)
	}

	if _, err := svc.Verify("garbage"); err == nil {
		t.Fatal("expected garbage token to be rejected")
	}
}

func TestTokenIssuerAudienceChecks(t *testing.T) {
	cfg := &JWTConfig{Secret: []byte("s"), Issuer: "a", Audience: "b", TTL: time.Hour}
	token, err := GenerateToken(cfg, "1", "x@y.test", "biz-1", "agent")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	other := &JWTConfig{Secret: []byte("s"), Issuer: "different", Audience: "b", TTL: time.Hour}
	if _, err := ValidateToken(other, token); err == nil {
		t.Fatal("expected issuer mismatch to fail")
	}

	other = &JWTConfig{Secret: []byte("s"), Issuer: "a", Audience: "different", TTL: time.Hour}
	if _, err := ValidateToken(other, token); err == nil {
		t.Fatal("expected audience mismatch to fail")
	}
}
