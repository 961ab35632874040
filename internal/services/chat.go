package services

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/puzzleplan-backend/internal/data/repos"
	types "github.com/yungbote/puzzleplan-backend/internal/domain"
	chatdomain "github.com/yungbote/puzzleplan-backend/internal/domain/chat"
	"github.com/yungbote/puzzleplan-backend/internal/domain/planning"
	"github.com/yungbote/puzzleplan-backend/internal/platform/anthropic"
	"github.com/yungbote/puzzleplan-backend/internal/platform/apierr"
	"github.com/yungbote/puzzleplan-backend/internal/platform/dbctx"
	"github.com/yungbote/puzzleplan-backend/internal/platform/logger"
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type StreamReplyInput struct {
	ProjectID      uuid.UUID
	PieceType      string
	ConversationID *uuid.UUID
	Messages       []ChatMessage
}

// ChatService is the conversation gateway between a board and the model.
type ChatService interface {
	CreateConversation(ctx context.Context, projectID uuid.UUID, pieceType *string) (*types.Conversation, error)
	ListConversations(ctx context.Context, projectID uuid.UUID) ([]*types.Conversation, error)
	ListMessages(ctx context.Context, conversationID uuid.UUID, limit int) ([]*types.Message, error)
	// StreamReply validates and persists the user turn, then streams the
	// model reply through onDelta. The assistant turn is stored only when the
	// stream finishes cleanly.
	StreamReply(ctx context.Context, in StreamReplyInput, onDelta func(delta string)) (string, error)
}

type chatService struct {
	db            *gorm.DB
	log           *logger.Logger
	projects      repos.ProjectRepo
	pieces        repos.PuzzlePieceRepo
	conversations repos.ConversationRepo
	messages      repos.MessageRepo
	prompts       *PromptLibrary
	llm           anthropic.Client
}

func NewChatService(
	db *gorm.DB,
	log *logger.Logger,
	projects repos.ProjectRepo,
	pieces repos.PuzzlePieceRepo,
	conversations repos.ConversationRepo,
	messages repos.MessageRepo,
	prompts *PromptLibrary,
	llm anthropic.Client,
) ChatService {
	return &chatService{
		db:            db,
		log:           log.With("service", "ChatService"),
		projects:      projects,
		pieces:        pieces,
		conversations: conversations,
		messages:      messages,
		prompts:       prompts,
		llm:           llm,
	}
}

func (s *chatService) CreateConversation(ctx context.Context, projectID uuid.UUID, pieceType *string) (*types.Conversation, error) {
	userID, err := requireCaller(ctx)
	if err != nil {
		return nil, err
	}
	dbc := dbctx.Context{Ctx: ctx}
	project, err := s.ownedProject(dbc, userID, projectID)
	if err != nil {
		return nil, err
	}

	conv := &types.Conversation{
		ID:        uuid.New(),
		ProjectID: project.ID,
		UserID:    userID,
	}
	if pieceType != nil && strings.TrimSpace(*pieceType) != "" {
		pt, ok := planning.ParsePieceType(*pieceType)
		if !ok {
			return nil, apierr.BadRequest(codeInvalidPieceType, "Invalid piece type")
		}
		piece, err := s.pieces.GetByProjectAndType(dbc, project.ID, pt)
		if err != nil {
			return nil, err
		}
		if piece == nil {
			return nil, apierr.NotFound(codePieceNotFound, "Piece not found")
		}
		ptStr := string(pt)
		conv.PieceID = &piece.ID
		conv.PieceType = &ptStr
	}
	if _, err := s.conversations.Create(dbc, []*types.Conversation{conv}); err != nil {
		return nil, err
	}
	return conv, nil
}

func (s *chatService) ListConversations(ctx context.Context, projectID uuid.UUID) ([]*types.Conversation, error) {
	userID, err := requireCaller(ctx)
	if err != nil {
		return nil, err
	}
	dbc := dbctx.Context{Ctx: ctx}
	if _, err := s.ownedProject(dbc, userID, projectID); err != nil {
		return nil, err
	}
	return s.conversations.ListByProject(dbc, projectID)
}

func (s *chatService) ListMessages(ctx context.Context, conversationID uuid.UUID, limit int) ([]*types.Message, error) {
	userID, err := requireCaller(ctx)
	if err != nil {
		return nil, err
	}
	dbc := dbctx.Context{Ctx: ctx}
	if _, err := s.ownedConversation(dbc, userID, conversationID, uuid.Nil); err != nil {
		return nil, err
	}
	return s.messages.ListByConversation(dbc, conversationID, limit)
}

func (s *chatService) StreamReply(ctx context.Context, in StreamReplyInput, onDelta func(delta string)) (string, error) {
	userID, err := requireCaller(ctx)
	if err != nil {
		return "", err
	}
	if len(in.Messages) == 0 || in.ProjectID == uuid.Nil || strings.TrimSpace(in.PieceType) == "" {
		return "", apierr.BadRequest(codeInvalidRequest, "Missing required fields")
	}
	pt, ok := planning.ParsePieceType(in.PieceType)
	if !ok {
		return "", apierr.BadRequest(codeInvalidPieceType, "Invalid piece type")
	}
	history := make([]anthropic.Message, 0, len(in.Messages))
	for _, m := range in.Messages {
		role := strings.ToLower(strings.TrimSpace(m.Role))
		if role != chatdomain.RoleUser && role != chatdomain.RoleAssistant {
			return "", apierr.BadRequest(codeInvalidRequest, "Messages must have role user or assistant")
		}
		history = append(history, anthropic.Message{Role: role, Content: m.Content})
	}

	dbc := dbctx.Context{Ctx: ctx}
	project, err := s.ownedProject(dbc, userID, in.ProjectID)
	if err != nil {
		return "", err
	}
	if in.ConversationID != nil {
		if _, err := s.ownedConversation(dbc, userID, *in.ConversationID, project.ID); err != nil {
			return "", err
		}
	}
	if s.llm == nil {
		return "", apierr.New(http.StatusServiceUnavailable, "llm_unavailable", errors.New("Chat is not configured"))
	}

	completed, err := s.pieces.ListCompletedWithSummary(dbc, project.ID)
	if err != nil {
		return "", err
	}
	pc := &ProjectContext{Name: project.Name, Description: project.Description}
	sort.SliceStable(completed, func(i, j int) bool {
		return pieceOrder(completed[i].PieceType) < pieceOrder(completed[j].PieceType)
	})
	for _, p := range completed {
		if !p.HasSummary() {
			continue
		}
		pc.CompletedPieces = append(pc.CompletedPieces, CompletedPiece{Type: p.PieceType, Summary: *p.Summary})
	}
	system, err := s.prompts.BuildConversationPrompt(ctx, pt, pc)
	if err != nil {
		return "", err
	}

	if in.ConversationID != nil {
		last := in.Messages[len(in.Messages)-1]
		if strings.EqualFold(strings.TrimSpace(last.Role), chatdomain.RoleUser) {
			if err := s.appendMessage(ctx, *in.ConversationID, chatdomain.RoleUser, last.Content); err != nil {
				return "", err
			}
		}
	}

	start := time.Now()
	reply, err := s.llm.StreamMessages(ctx, anthropic.Request{System: system, Messages: history}, onDelta)
	if err != nil {
		s.log.Warn("chat stream failed",
			"project_id", project.ID,
			"piece_type", string(pt),
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		return reply, err
	}

	if in.ConversationID != nil {
		// The caller may already be gone; the finished reply is still kept.
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := s.appendMessage(saveCtx, *in.ConversationID, chatdomain.RoleAssistant, reply); err != nil {
			s.log.Error("failed to persist assistant reply", "conversation_id", *in.ConversationID, "error", err)
		}
	}
	return reply, nil
}

func (s *chatService) appendMessage(ctx context.Context, conversationID uuid.UUID, role, content string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if _, err := s.messages.Append(dbc, conversationID, role, content); err != nil {
			return err
		}
		return s.conversations.Touch(dbc, conversationID)
	})
}

func (s *chatService) ownedProject(dbc dbctx.Context, userID, projectID uuid.UUID) (*types.Project, error) {
	if projectID == uuid.Nil {
		return nil, apierr.NotFound(codeProjectNotFound, "Project not found")
	}
	project, err := s.projects.GetByID(dbc, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil || project.UserID != userID {
		return nil, apierr.NotFound(codeProjectNotFound, "Project not found")
	}
	return project, nil
}

// ownedConversation checks the caller owns the conversation and, when
// projectID is set, that it belongs to that project.
func (s *chatService) ownedConversation(dbc dbctx.Context, userID, conversationID, projectID uuid.UUID) (*types.Conversation, error) {
	if conversationID == uuid.Nil {
		return nil, apierr.NotFound(codeConversationNotFound, "Conversation not found")
	}
	conv, err := s.conversations.GetByID(dbc, conversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil || conv.UserID != userID || (projectID != uuid.Nil && conv.ProjectID != projectID) {
		return nil, apierr.NotFound(codeConversationNotFound, "Conversation not found")
	}
	return conv, nil
}
