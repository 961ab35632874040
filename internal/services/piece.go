package services

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/puzzleplan-backend/internal/data/repos"
	types "github.com/yungbote/puzzleplan-backend/internal/domain"
	domainagg "github.com/yungbote/puzzleplan-backend/internal/domain/aggregates"
	"github.com/yungbote/puzzleplan-backend/internal/domain/planning"
	"github.com/yungbote/puzzleplan-backend/internal/observability"
	"github.com/yungbote/puzzleplan-backend/internal/platform/apierr"
	"github.com/yungbote/puzzleplan-backend/internal/platform/dbctx"
	"github.com/yungbote/puzzleplan-backend/internal/platform/logger"
)

type CompletePieceResult struct {
	Piece    *types.PuzzlePiece `json:"piece"`
	Unlocked []types.PieceType  `json:"unlocked"`
}

type PieceService interface {
	Metadata() []types.PieceMetadata
	Open(ctx context.Context, projectID uuid.UUID, pieceType string) (*types.PuzzlePiece, error)
	Complete(ctx context.Context, pieceID uuid.UUID, summary string) (*CompletePieceResult, error)
	UpdateContent(ctx context.Context, pieceID uuid.UUID, content json.RawMessage) (*types.PuzzlePiece, error)
}

type pieceService struct {
	log      *logger.Logger
	board    domainagg.BoardAggregate
	projects repos.ProjectRepo
	pieces   repos.PuzzlePieceRepo
	notify   BoardNotifier
	metrics  *observability.Metrics
}

func NewPieceService(log *logger.Logger, board domainagg.BoardAggregate, projects repos.ProjectRepo, pieces repos.PuzzlePieceRepo, notify BoardNotifier, metrics *observability.Metrics) PieceService {
	return &pieceService{
		log:      log.With("service", "PieceService"),
		board:    board,
		projects: projects,
		pieces:   pieces,
		notify:   notify,
		metrics:  metrics,
	}
}

func (s *pieceService) Metadata() []types.PieceMetadata {
	return planning.AllMetadata()
}

// Open resolves the piece by project and type, then applies the activation
// rule. A piece that is already open or complete comes back unchanged.
func (s *pieceService) Open(ctx context.Context, projectID uuid.UUID, pieceType string) (*types.PuzzlePiece, error) {
	userID, err := requireCaller(ctx)
	if err != nil {
		return nil, err
	}
	pt, ok := planning.ParsePieceType(pieceType)
	if !ok {
		return nil, apierr.BadRequest(codeInvalidPieceType, "Invalid piece type")
	}
	if projectID == uuid.Nil {
		return nil, apierr.NotFound(codeProjectNotFound, "Project not found")
	}
	dbc := dbctx.Context{Ctx: ctx}
	project, err := s.projects.GetByID(dbc, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil || project.UserID != userID {
		return nil, apierr.NotFound(codeProjectNotFound, "Project not found")
	}
	piece, err := s.pieces.GetByProjectAndType(dbc, projectID, pt)
	if err != nil {
		return nil, err
	}
	if piece == nil {
		return nil, apierr.NotFound(codePieceNotFound, "Piece not found")
	}

	res, err := s.board.OpenPiece(ctx, domainagg.OpenPieceInput{UserID: userID, PieceID: piece.ID})
	if err != nil {
		return nil, err
	}
	if res.Changed {
		s.metrics.IncPieceTransition(string(res.Piece.PieceType), string(res.Piece.Status))
		if s.notify != nil {
			s.notify.PieceStatusChanged(ctx, userID, res.Piece, res.PreviousStatus)
		}
	}
	return res.Piece, nil
}

func (s *pieceService) Complete(ctx context.Context, pieceID uuid.UUID, summary string) (*CompletePieceResult, error) {
	userID, err := requireCaller(ctx)
	if err != nil {
		return nil, err
	}
	if pieceID == uuid.Nil || strings.TrimSpace(summary) == "" {
		return nil, apierr.BadRequest(codeInvalidRequest, "Missing required fields: pieceId and summary")
	}

	res, err := s.board.CompletePiece(ctx, domainagg.CompletePieceInput{
		UserID:  userID,
		PieceID: pieceID,
		Summary: summary,
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncPieceTransition(string(res.Piece.PieceType), string(types.StatusComplete))
	unlocked := make([]types.PieceType, 0, len(res.Unlocked))
	for _, p := range res.Unlocked {
		unlocked = append(unlocked, p.PieceType)
		s.metrics.IncPieceTransition(string(p.PieceType), string(types.StatusAvailable))
		s.metrics.IncPieceUnlocked(string(p.PieceType))
	}
	s.log.Info("piece completed",
		"piece_id", res.Piece.ID,
		"piece_type", string(res.Piece.PieceType),
		"unlocked", len(unlocked),
	)
	if s.notify != nil {
		s.notify.PieceStatusChanged(ctx, userID, res.Piece, types.StatusInProgress)
		for _, p := range res.Unlocked {
			s.notify.PieceStatusChanged(ctx, userID, p, types.StatusLocked)
		}
	}
	return &CompletePieceResult{Piece: res.Piece, Unlocked: unlocked}, nil
}

func (s *pieceService) UpdateContent(ctx context.Context, pieceID uuid.UUID, content json.RawMessage) (*types.PuzzlePiece, error) {
	userID, err := requireCaller(ctx)
	if err != nil {
		return nil, err
	}
	if pieceID == uuid.Nil {
		return nil, apierr.NotFound(codePieceNotFound, "Piece not found")
	}
	piece, err := s.board.SaveDraft(ctx, domainagg.SaveDraftInput{
		UserID:  userID,
		PieceID: pieceID,
		Content: content,
	})
	if err != nil {
		return nil, err
	}
	if s.notify != nil {
		s.notify.PieceContentUpdated(ctx, userID, piece)
	}
	return piece, nil
}
