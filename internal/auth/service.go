package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/conversia/relay-server/internal/relay"
	"github.com/conversia/relay-server/internal/store"
)

var (
	// ErrInvalidCredentials is returned when email/password don't match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAgentExists is returned when registering an already-used email.
	ErrAgentExists = errors.New("agent already exists")
	// ErrInvalidEmail is returned when the email doesn't meet constraints.
	ErrInvalidEmail = errors.New("invalid email")
	// ErrInvalidPassword is returned when the password doesn't meet constraints.
	ErrInvalidPassword = errors.New("invalid password")
)

// Service provides agent authentication operations and acts as the token
// verifier for the relay.
type Service struct {
	store     store.AgentStore
	jwtConfig *JWTConfig
}

// NewService creates a new authentication service.
func NewService(agentStore store.AgentStore, jwtConfig *JWTConfig) *Service {
	return &Service{
		store:     agentStore,
		jwtConfig: jwtConfig,
	}
}

// CreateAgent registers a new agent with a hashed password.
func (s *Service) CreateAgent(ctx context.Context, email, name, password, businessID, role string) (*store.Agent, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if len(email) < 5 || !strings.Contains(email, "@") {
		return nil, ErrInvalidEmail
	}
	if len(password) < 8 {
		return nil, ErrInvalidPassword
	}
	if role == "" {
		role = "agent"
	}

	existing, err := s.store.GetAgentByEmail(ctx, email)
	if err == nil && existing != nil {
		return nil, ErrAgentExists
	}

	hashedPassword, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	agent, err := s.store.CreateAgent(ctx, email, name, hashedPassword, businessID, role)
	if err != nil {
		return nil, fmt.Errorf("create agent: %w", err)
	}

	return agent, nil
}

// Login validates credentials and returns a JWT token.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	agent, err := s.store.GetAgentByEmail(ctx, email)
	if err != nil {
		return "", ErrInvalidCredentials
	}

	if errPwd := ComparePassword(agent.PasswordHash, password); errPwd != nil {
		return "", ErrInvalidCredentials
	}

	token, err := GenerateToken(s.jwtConfig, fmt.Sprintf("%d", agent.ID), agent.Email, agent.BusinessID, agent.Role)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	return token, nil
}

// ValidateToken validates a JWT token and returns the claims.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	return ValidateToken(s.jwtConfig, tokenString)
}

// Verify implements relay.TokenVerifier, turning verified claims into the
// identity the hub attaches to a connection.
func (s *Service) Verify(token string) (*relay.Identity, error) {
	claims, err := s.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	return &relay.Identity{
		UserID:     claims.UserID,
		Email:      claims.Email,
		BusinessID: claims.BusinessID,
		Role:       claims.Role,
	}, nil
}
