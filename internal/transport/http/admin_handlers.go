package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/conversia/relay-server/internal/relay"
)

// AdminHandlers exposes the relay's operational surface: stats, live client
// inspection, forced disconnects, and server-side pushes.
type AdminHandlers struct {
	hub *relay.Hub
	log *zerolog.Logger
}

// NewAdminHandlers creates a new admin handlers instance.
func NewAdminHandlers(hub *relay.Hub, logger *zerolog.Logger) *AdminHandlers {
	return &AdminHandlers{hub: hub, log: logger}
}

// StatsResponse mirrors relay.Stats for the wire.
type StatsResponse struct {
	TotalClients         int            `json:"totalClients"`
	AuthenticatedClients int            `json:"authenticatedClients"`
	TotalRooms           int            `json:"totalRooms"`
	RoomStats            map[string]int `json:"roomStats"`
	Timestamp            string         `json:"timestamp"`
}

// Stats reports connection and room counts.
// GET /api/stats
func (h *AdminHandlers) Stats(c *gin.Context) {
	stats, err := h.hub.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "relay unavailable"})
		return
	}

	c.JSON(http.StatusOK, StatsResponse{
		TotalClients:         stats.TotalClients,
		AuthenticatedClients: stats.AuthenticatedClients,
		TotalRooms:           stats.TotalRooms,
		RoomStats:            stats.Rooms,
		Timestamp:            stats.At.Format("2006-01-02T15:04:05Z07:00"),
	})
}

// ClientResponse describes one live connection.
type ClientResponse struct {
	ID            string   `json:"id"`
	Authenticated bool     `json:"authenticated"`
	UserID        string   `json:"userId,omitempty"`
	BusinessID    string   `json:"businessId,omitempty"`
	Role          string   `json:"role,omitempty"`
	ConnectedAt   string   `json:"connectedAt"`
	LastActive    string   `json:"lastActive"`
	Subscriptions []string `json:"subscriptions"`
	RemoteAddr    string   `json:"remoteAddr"`
	UserAgent     string   `json:"userAgent"`
}

// Clients lists every live connection.
// GET /api/clients
func (h *AdminHandlers) Clients(c *gin.Context) {
	infos, err := h.hub.Clients(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "relay unavailable"})
		return
	}

	response := make([]ClientResponse, 0, len(infos))
	for _, info := range infos {
		response = append(response, ClientResponse{
			ID:            info.ID,
			Authenticated: info.Authenticated,
			UserID:        info.UserID,
			BusinessID:    info.BusinessID,
			Role:          info.Role,
			ConnectedAt:   info.ConnectedAt.Format("2006-01-02T15:04:05Z07:00"),
			LastActive:    info.LastActive.Format("2006-01-02T15:04:05Z07:00"),
			Subscriptions: info.Subscriptions,
			RemoteAddr:    info.RemoteAddr,
			UserAgent:     info.UserAgent,
		})
	}

	c.JSON(http.StatusOK, response)
}

// ForceDisconnect closes a client connection with full cleanup.
// DELETE /api/clients/:id
func (h *AdminHandlers) ForceDisconnect(c *gin.Context) {
	connID := c.Param("id")

	ok, err := h.hub.ForceDisconnect(c.Request.Context(), connID)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "relay unavailable"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "client not found"})
		return
	}

	h.log.Info().Str("conn_id", connID).Msg("client force disconnected via api")
	c.Status(http.StatusNoContent)
}

// NotificationRequest targets either a user or a whole business.
type NotificationRequest struct {
	UserID     string         `json:"userId"`
	BusinessID string         `json:"businessId"`
	Title      string         `json:"title" binding:"required"`
	Body       string         `json:"body" binding:"required"`
	Data       map[string]any `json:"data"`
}

// Notify pushes a notification to a user or business.
// POST /api/notifications
func (h *AdminHandlers) Notify(c *gin.Context) {
	var req NotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if req.UserID == "" && req.BusinessID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "userId or businessId required"})
		return
	}

	note := relay.Notification{Title: req.Title, Body: req.Body, Data: req.Data}
	if req.UserID != "" {
		h.hub.NotifyUser(req.UserID, note)
	} else {
		h.hub.NotifyBusiness(req.BusinessID, note)
	}

	c.Status(http.StatusAccepted)
}

// SystemMessageRequest is the body for room system messages.
type SystemMessageRequest struct {
	Message string `json:"message" binding:"required"`
	Level   string `json:"level"`
}

// SystemMessage broadcasts an operator message to a room.
// POST /api/rooms/:room/system
func (h *AdminHandlers) SystemMessage(c *gin.Context) {
	room := c.Param("room")
	if room == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "room name required"})
		return
	}

	var req SystemMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	h.hub.SystemMessage(room, req.Message, req.Level)
	c.Status(http.StatusAccepted)
}
