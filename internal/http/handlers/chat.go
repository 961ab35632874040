package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/puzzleplan-backend/internal/http/response"
	"github.com/yungbote/puzzleplan-backend/internal/platform/logger"
	"github.com/yungbote/puzzleplan-backend/internal/services"
)

type ChatHandler struct {
	log  *logger.Logger
	chat services.ChatService
}

func NewChatHandler(log *logger.Logger, chat services.ChatService) *ChatHandler {
	return &ChatHandler{log: log.With("handler", "ChatHandler"), chat: chat}
}

type chatReq struct {
	Messages       []services.ChatMessage `json:"messages"`
	ProjectID      string                 `json:"projectId"`
	PieceType      string                 `json:"pieceType"`
	ConversationID *string                `json:"conversationId"`
}

type createConversationReq struct {
	ProjectID string  `json:"projectId"`
	PieceType *string `json:"pieceType"`
}

// POST /api/chat
//
// The reply is streamed as chunked text/plain. Headers are committed on the
// first delta, so anything that fails before that still gets a JSON error.
func (h *ChatHandler) StreamChat(c *gin.Context) {
	var req chatReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", errors.New("Missing required fields"))
		return
	}
	if len(req.Messages) == 0 || strings.TrimSpace(req.ProjectID) == "" || strings.TrimSpace(req.PieceType) == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", errors.New("Missing required fields"))
		return
	}
	projectID, err := uuid.Parse(strings.TrimSpace(req.ProjectID))
	if err != nil {
		response.RespondError(c, http.StatusNotFound, "project_not_found", errors.New("Project not found"))
		return
	}
	var convID *uuid.UUID
	if req.ConversationID != nil && strings.TrimSpace(*req.ConversationID) != "" {
		id, err := uuid.Parse(strings.TrimSpace(*req.ConversationID))
		if err != nil {
			response.RespondError(c, http.StatusNotFound, "conversation_not_found", errors.New("Conversation not found"))
			return
		}
		convID = &id
	}

	started := false
	flusher, _ := c.Writer.(http.Flusher)
	onDelta := func(delta string) {
		if !started {
			started = true
			c.Header("Content-Type", "text/plain; charset=utf-8")
			c.Header("Cache-Control", "no-cache")
			c.Header("X-Accel-Buffering", "no")
			c.Status(http.StatusOK)
		}
		if _, err := c.Writer.WriteString(delta); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}

	_, err = h.chat.StreamReply(c.Request.Context(), services.StreamReplyInput{
		ProjectID:      projectID,
		PieceType:      req.PieceType,
		ConversationID: convID,
		Messages:       req.Messages,
	}, onDelta)
	if err != nil {
		if started {
			// The status line is gone; cut the stream short and let the
			// client notice the truncated body.
			h.log.Warn("chat stream aborted", "project_id", projectID, "error", err)
			_ = c.Error(err)
			return
		}
		response.RespondServiceError(c, h.log, err)
		return
	}
	if !started {
		c.Header("Content-Type", "text/plain; charset=utf-8")
		c.Status(http.StatusOK)
	}
}

// POST /api/conversations
func (h *ChatHandler) CreateConversation(c *gin.Context) {
	var req createConversationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	projectID, err := uuid.Parse(strings.TrimSpace(req.ProjectID))
	if err != nil {
		response.RespondError(c, http.StatusNotFound, "project_not_found", errors.New("Project not found"))
		return
	}
	conv, err := h.chat.CreateConversation(c.Request.Context(), projectID, req.PieceType)
	if err != nil {
		response.RespondServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"conversation": conv})
}

// GET /api/projects/:id/conversations
func (h *ChatHandler) ListConversations(c *gin.Context) {
	projectID, ok := uuidParam(c, "id")
	if !ok {
		response.RespondError(c, http.StatusNotFound, "project_not_found", errors.New("Project not found"))
		return
	}
	convs, err := h.chat.ListConversations(c.Request.Context(), projectID)
	if err != nil {
		response.RespondServiceError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"conversations": convs})
}

// GET /api/conversations/:id/messages?limit=200
func (h *ChatHandler) ListMessages(c *gin.Context) {
	convID, ok := uuidParam(c, "id")
	if !ok {
		response.RespondError(c, http.StatusNotFound, "conversation_not_found", errors.New("Conversation not found"))
		return
	}
	msgs, err := h.chat.ListMessages(c.Request.Context(), convID, queryInt(c, "limit", 200))
	if err != nil {
		response.RespondServiceError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"messages": msgs})
}
