package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/conversia/relay-server/internal/auth"
	"github.com/conversia/relay-server/internal/store"
)

// ErrorResponse is the uniform error body for REST endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
}

// APIHandlers provides HTTP handlers for the auth and history endpoints.
type APIHandlers struct {
	authService *auth.Service
	store       store.Store
	log         *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance.
func NewAPIHandlers(authService *auth.Service, st store.Store, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{
		authService: authService,
		store:       st,
		log:         logger,
	}
}

// LoginRequest represents the login request body.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries the issued bearer token.
type LoginResponse struct {
	Token string `json:"token"`
}

// Login authenticates an agent and returns a JWT.
// POST /api/auth/login
func (h *APIHandlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	token, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})
			return
		}
		h.log.Error().Err(err).Msg("login failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{Token: token})
}

// CreateAgentRequest represents the create agent request body.
type CreateAgentRequest struct {
	Email      string `json:"email" binding:"required"`
	Name       string `json:"name" binding:"required"`
	Password   string `json:"password" binding:"required"`
	BusinessID string `json:"businessId" binding:"required"`
	Role       string `json:"role"`
}

// AgentResponse represents an agent in API responses.
type AgentResponse struct {
	ID         int64  `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	BusinessID string `json:"businessId"`
	Role       string `json:"role"`
	CreatedAt  string `json:"createdAt"`
}

// CreateAgent registers a new support agent.
// POST /api/agents
func (h *APIHandlers) CreateAgent(c *gin.Context) {
	var req CreateAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	agent, err := h.authService.CreateAgent(c.Request.Context(), req.Email, req.Name, req.Password, req.BusinessID, req.Role)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrAgentExists):
			c.JSON(http.StatusConflict, ErrorResponse{Error: "agent with this email already exists"})
		case errors.Is(err, auth.ErrInvalidEmail), errors.Is(err, auth.ErrInvalidPassword):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		default:
			h.log.Error().Err(err).Str("email", req.Email).Msg("failed to create agent")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		}
		return
	}

	c.JSON(http.StatusCreated, AgentResponse{
		ID:         agent.ID,
		Email:      agent.Email,
		Name:       agent.Name,
		BusinessID: agent.BusinessID,
		Role:       agent.Role,
		CreatedAt:  agent.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

// MessageResponse represents a persisted chat message in API responses.
type MessageResponse struct {
	ID          int64  `json:"id"`
	Room        string `json:"room"`
	SenderID    string `json:"senderId"`
	BusinessID  string `json:"businessId"`
	Content     string `json:"content"`
	MessageType string `json:"messageType"`
	Metadata    string `json:"metadata"`
	CreatedAt   string `json:"createdAt"`
}

// RoomHistory lists persisted messages for a room, newest first.
// GET /api/rooms/:room/messages?limit=&before=
func (h *APIHandlers) RoomHistory(c *gin.Context) {
	room := strings.TrimSpace(c.Param("room"))
	if room == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "room name required"})
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
			return
		}
		limit = parsed
	}

	var beforeID *int64
	if raw := c.Query("before"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid before cursor"})
			return
		}
		beforeID = &parsed
	}

	messages, err := h.store.ListMessages(c.Request.Context(), room, limit, beforeID)
	if err != nil {
		h.log.Error().Err(err).Str("room", room).Msg("failed to list messages")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]MessageResponse, 0, len(messages))
	for _, msg := range messages {
		response = append(response, MessageResponse{
			ID:          msg.ID,
			Room:        msg.Room,
			SenderID:    msg.SenderID,
			BusinessID:  msg.BusinessID,
			Content:     msg.Content,
			MessageType: msg.MessageType,
			Metadata:    msg.Metadata,
			CreatedAt:   msg.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	c.JSON(http.StatusOK, response)
}
