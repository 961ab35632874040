package aggregates

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/puzzleplan-backend/internal/data/repos"
	types "github.com/yungbote/puzzleplan-backend/internal/domain"
	domainagg "github.com/yungbote/puzzleplan-backend/internal/domain/aggregates"
	"github.com/yungbote/puzzleplan-backend/internal/domain/planning"
	"github.com/yungbote/puzzleplan-backend/internal/modules/puzzle"
	"github.com/yungbote/puzzleplan-backend/internal/platform/dbctx"
)

const (
	MsgPieceNotFound      = "Piece not found"
	MsgProjectNotFound    = "Project not found"
	MsgPieceNotInProgress = "Can only complete pieces that are in progress"
	MsgSummaryRequired    = "Summary is required"
	MsgProjectNameMissing = "Project name is required"
	MsgDraftNotInProgress = "Can only edit pieces that are in progress"
)

type BoardAggregateDeps struct {
	Base BaseDeps

	Projects      repos.ProjectRepo
	Pieces        repos.PuzzlePieceRepo
	Conversations repos.ConversationRepo
	Messages      repos.MessageRepo
}

type boardAggregate struct {
	deps BoardAggregateDeps
}

func NewBoardAggregate(deps BoardAggregateDeps) domainagg.BoardAggregate {
	deps.Base = deps.Base.withDefaults()
	return &boardAggregate{deps: deps}
}

func (a *boardAggregate) Contract() domainagg.Contract {
	return domainagg.BoardAggregateContract
}

func (a *boardAggregate) CreateProject(ctx context.Context, in domainagg.CreateProjectInput) (domainagg.CreateProjectResult, error) {
	op := domainagg.BoardAggregateContract.Op("CreateProject")
	var out domainagg.CreateProjectResult
	if in.UserID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing user_id", nil)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return out, domainagg.NewError(domainagg.CodeValidation, op, MsgProjectNameMissing, nil)
	}
	if a.deps.Projects == nil || a.deps.Pieces == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "board aggregate repos not configured", nil)
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		now := time.Now().UTC()
		project := &types.Project{
			ID:          uuid.New(),
			UserID:      in.UserID,
			Name:        name,
			Description: trimmedOrNil(in.Description),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if _, err := a.deps.Projects.Create(dbc, []*types.Project{project}); err != nil {
			return err
		}

		pieces := make([]*types.PuzzlePiece, 0, len(planning.AllPieceTypes()))
		for _, pt := range planning.AllPieceTypes() {
			pieces = append(pieces, &types.PuzzlePiece{
				ID:        uuid.New(),
				ProjectID: project.ID,
				PieceType: pt,
				Status:    puzzle.InitialStatus(pt),
				CreatedAt: now,
				UpdatedAt: now,
			})
		}
		if _, err := a.deps.Pieces.Create(dbc, pieces); err != nil {
			return err
		}
		out = domainagg.CreateProjectResult{Project: project, Pieces: pieces}
		return nil
	})
	return out, err
}

func (a *boardAggregate) OpenPiece(ctx context.Context, in domainagg.OpenPieceInput) (domainagg.OpenPieceResult, error) {
	op := domainagg.BoardAggregateContract.Op("OpenPiece")
	var out domainagg.OpenPieceResult
	if in.UserID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing user_id", nil)
	}
	if in.PieceID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing piece_id", nil)
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		piece, err := a.lockOwnedPiece(dbc, op, in.UserID, in.PieceID)
		if err != nil {
			return err
		}
		out.PreviousStatus = piece.Status

		switch piece.Status {
		case planning.StatusInProgress, planning.StatusComplete:
			out.Piece = piece
			return nil
		case planning.StatusLocked:
			return notFound(op, MsgPieceNotFound)
		}

		if err := puzzle.CheckTransition(piece.Status, planning.StatusInProgress); err != nil {
			return err
		}
		now := time.Now().UTC()
		ok, err := a.deps.Base.CASGuard.Piece(dbc, piece.ID, advance(planning.StatusInProgress, now))
		if err != nil {
			return err
		}
		if err := RequireCASSuccess(ok, "piece changed while opening"); err != nil {
			return err
		}
		piece.Status = planning.StatusInProgress
		piece.UpdatedAt = now
		out.Piece = piece
		out.Changed = true
		return nil
	})
	return out, err
}

func (a *boardAggregate) CompletePiece(ctx context.Context, in domainagg.CompletePieceInput) (domainagg.CompletePieceResult, error) {
	op := domainagg.BoardAggregateContract.Op("CompletePiece")
	var out domainagg.CompletePieceResult
	if in.UserID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing user_id", nil)
	}
	if in.PieceID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing piece_id", nil)
	}
	summary := strings.TrimSpace(in.Summary)
	if summary == "" {
		return out, domainagg.NewError(domainagg.CodeValidation, op, MsgSummaryRequired, nil)
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		piece, err := a.lockOwnedPiece(dbc, op, in.UserID, in.PieceID)
		if err != nil {
			return err
		}
		if err := puzzle.CheckTransition(piece.Status, planning.StatusComplete); err != nil {
			return PreconditionError(MsgPieceNotInProgress)
		}

		now := time.Now().UTC()
		done := advance(planning.StatusComplete, now)
		done.Set = map[string]any{"summary": summary}
		ok, err := a.deps.Base.CASGuard.Piece(dbc, piece.ID, done)
		if err != nil {
			return err
		}
		if err := RequireCASSuccess(ok, "piece changed while completing"); err != nil {
			return err
		}
		piece.Status = planning.StatusComplete
		piece.Summary = &summary
		piece.UpdatedAt = now

		board, err := a.deps.Pieces.ListByProject(dbc, piece.ProjectID)
		if err != nil {
			return err
		}
		states := make([]puzzle.PieceState, 0, len(board))
		byID := make(map[uuid.UUID]*types.PuzzlePiece, len(board))
		for _, p := range board {
			states = append(states, puzzle.PieceState{ID: p.ID, Type: p.PieceType, Status: p.Status})
			byID[p.ID] = p
		}
		unlockIDs := puzzle.ComputeUnlocks(states, piece.ID)

		unlocked := make([]*types.PuzzlePiece, 0, len(unlockIDs))
		if len(unlockIDs) > 0 {
			unlock := advance(planning.StatusAvailable, now)
			moves := make([]repos.StatusUpdate, 0, len(unlockIDs))
			for _, id := range unlockIDs {
				moves = append(moves, repos.StatusUpdate{ID: id, From: unlock.From, To: unlock.Status})
			}
			n, err := a.deps.Pieces.UpdateStatuses(dbc, moves)
			if err != nil {
				return err
			}
			if n != int64(len(unlockIDs)) {
				return ConflictError("board changed while unlocking pieces")
			}
			for _, id := range unlockIDs {
				p := byID[id]
				p.Status = planning.StatusAvailable
				p.UpdatedAt = now
				unlocked = append(unlocked, p)
			}
		}

		if err := a.deps.Projects.UpdateFields(dbc, piece.ProjectID, nil); err != nil {
			return err
		}
		out = domainagg.CompletePieceResult{Piece: piece, Unlocked: unlocked}
		return nil
	})
	return out, err
}

func (a *boardAggregate) SaveDraft(ctx context.Context, in domainagg.SaveDraftInput) (*types.PuzzlePiece, error) {
	op := domainagg.BoardAggregateContract.Op("SaveDraft")
	if in.UserID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing user_id", nil)
	}
	if in.PieceID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing piece_id", nil)
	}
	if len(in.Content) == 0 || !json.Valid(in.Content) {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "content must be valid JSON", nil)
	}

	var out *types.PuzzlePiece
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		piece, err := a.lockOwnedPiece(dbc, op, in.UserID, in.PieceID)
		if err != nil {
			return err
		}
		if err := RequireStatus(piece.Status, MsgDraftNotInProgress, planning.StatusInProgress); err != nil {
			return err
		}
		now := time.Now().UTC()
		content := datatypes.JSON(in.Content)
		ok, err := a.deps.Base.CASGuard.Piece(dbc, piece.ID, PieceUpdate{
			From: planning.StatusInProgress,
			Set:  map[string]any{"content": content},
			At:   now,
		})
		if err != nil {
			return err
		}
		if err := RequireCASSuccess(ok, "piece changed while saving draft"); err != nil {
			return err
		}
		piece.Content = content
		piece.UpdatedAt = now
		out = piece
		return nil
	})
	return out, err
}

func (a *boardAggregate) DeleteProject(ctx context.Context, in domainagg.DeleteProjectInput) error {
	op := domainagg.BoardAggregateContract.Op("DeleteProject")
	if in.UserID == uuid.Nil {
		return domainagg.NewError(domainagg.CodeValidation, op, "missing user_id", nil)
	}
	if in.ProjectID == uuid.Nil {
		return domainagg.NewError(domainagg.CodeValidation, op, "missing project_id", nil)
	}

	return executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		project, err := a.deps.Projects.LockByID(dbc, in.ProjectID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(op, MsgProjectNotFound)
		}
		if err != nil {
			return err
		}
		if project.UserID != in.UserID {
			return notFound(op, MsgProjectNotFound)
		}

		projectIDs := []uuid.UUID{project.ID}
		if a.deps.Conversations != nil {
			convIDs, err := a.deps.Conversations.ListIDsByProjectIDs(dbc, projectIDs)
			if err != nil {
				return err
			}
			if a.deps.Messages != nil {
				if err := a.deps.Messages.DeleteByConversationIDs(dbc, convIDs); err != nil {
					return err
				}
			}
			if err := a.deps.Conversations.DeleteByProjectIDs(dbc, projectIDs); err != nil {
				return err
			}
		}
		if err := a.deps.Pieces.DeleteByProjectIDs(dbc, projectIDs); err != nil {
			return err
		}
		return a.deps.Projects.DeleteByIDs(dbc, projectIDs)
	})
}

// lockOwnedPiece resolves a piece the user owns, locks its project row and
// re-reads the piece under that lock. Missing and foreign pieces are both
// reported as not found.
func (a *boardAggregate) lockOwnedPiece(dbc dbctx.Context, op string, userID, pieceID uuid.UUID) (*types.PuzzlePiece, error) {
	owned, err := a.deps.Pieces.GetWithOwner(dbc, pieceID)
	if err != nil {
		return nil, err
	}
	if owned == nil || owned.OwnerUserID != userID {
		return nil, notFound(op, MsgPieceNotFound)
	}
	if _, err := a.deps.Projects.LockByID(dbc, owned.ProjectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound(op, MsgPieceNotFound)
		}
		return nil, err
	}
	piece, err := a.deps.Pieces.GetByID(dbc, pieceID)
	if err != nil {
		return nil, err
	}
	if piece == nil {
		return nil, notFound(op, MsgPieceNotFound)
	}
	return piece, nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// advance builds the guarded write that moves a piece into to from the one
// status the state machine allows before it.
func advance(to planning.PieceStatus, at time.Time) PieceUpdate {
	from, _ := puzzle.SourceStatus(to)
	return PieceUpdate{From: from, Status: to, At: at}
}
