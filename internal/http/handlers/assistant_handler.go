// Assistant HTTP handlers.
//
// This file exposes the response pipeline:
//   - POST /assistant/messages   (one user turn -> served answer)
//   - GET  /assistant/sessions/{id}/goals
//
// Handlers are transport-thin: they validate input, call the assistant
// service, and translate results into HTTP responses.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-travel-backend/internal/assistant"
	"github.com/tbourn/go-travel-backend/internal/http/middleware"
)

// maxMessageRunes caps the inbound prompt length.
const maxMessageRunes = 4000

// AssistantService defines the pipeline operations consumed by HTTP
// handlers. Implementations must be safe for concurrent use and must honor
// the provided context for cancellation.
type AssistantService interface {
	// Respond runs the response pipeline for one user turn.
	Respond(ctx context.Context, req assistant.Request) (assistant.Reply, error)
	// SessionGoals returns goals captured for a session, if any.
	SessionGoals(sessionID string) []string
}

// Handlers groups the HTTP endpoints for the assistant pipeline and cache
// administration. It depends on abstract service interfaces to keep
// transport concerns separate from business logic.
type Handlers struct {
	svc      AssistantService
	cacheAdm CacheAdmin
}

// New constructs a Handlers instance bound to the given services.
func New(svc AssistantService, cacheAdm CacheAdmin) *Handlers {
	return &Handlers{svc: svc, cacheAdm: cacheAdm}
}

// messageRequest is the inbound request body.
type messageRequest struct {
	Message string `json:"message" binding:"required"`
	Context []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"context"`
	Type        string   `json:"type,omitempty"`
	Goals       []string `json:"goals,omitempty"`
	Destination string   `json:"destination,omitempty"`
	Country     string   `json:"country,omitempty"`
	SessionID   string   `json:"session_id,omitempty"`
}

// PostMessage handles POST /assistant/messages.
//
// The plan tier comes from the X-Plan-Tier header (default "free") and is
// part of the cache fingerprint, so tiers never share cached answers.
func (h *Handlers) PostMessage(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message is required")
		return
	}
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message is required")
		return
	}
	if utf8.RuneCountInString(msg) > maxMessageRunes {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message too long")
		return
	}
	switch req.Type {
	case "", "chat", "generate", "modify":
	default:
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "type must be chat, generate or modify")
		return
	}

	turns := make([]assistant.Message, 0, len(req.Context))
	for _, t := range req.Context {
		turns = append(turns, assistant.Message{Role: t.Role, Content: t.Content})
	}

	reply, err := h.svc.Respond(c.Request.Context(), assistant.Request{
		Message:     msg,
		Context:     turns,
		Type:        req.Type,
		Goals:       req.Goals,
		Plan:        planTier(c),
		SessionID:   req.SessionID,
		Destination: req.Destination,
		Country:     req.Country,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			// Client went away; nothing to serve.
			c.Abort()
			return
		}
		middleware.LoggerFrom(c).Error().Err(err).Msg("pipeline failed")
		fail(c, http.StatusInternalServerError, ErrCodeAnswerFailed, "failed to produce an answer")
		return
	}

	ok(c, http.StatusOK, reply)
}

// GetSessionGoals handles GET /assistant/sessions/:id/goals.
func (h *Handlers) GetSessionGoals(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "session id is required")
		return
	}
	goals := h.svc.SessionGoals(id)
	ok(c, http.StatusOK, gin.H{"session_id": id, "goals": goals})
}

// planTier extracts the caller's plan tier from the X-Plan-Tier header,
// defaulting to "free". Tiers partition the cache keyspace.
func planTier(c *gin.Context) string {
	if c != nil && c.Request != nil {
		if p := strings.ToLower(strings.TrimSpace(c.GetHeader("X-Plan-Tier"))); p != "" {
			return p
		}
	}
	return "free"
}
