package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/puzzleplan-backend/internal/data/repos"
	types "github.com/yungbote/puzzleplan-backend/internal/domain"
	domainagg "github.com/yungbote/puzzleplan-backend/internal/domain/aggregates"
	"github.com/yungbote/puzzleplan-backend/internal/domain/planning"
	"github.com/yungbote/puzzleplan-backend/internal/platform/apierr"
	"github.com/yungbote/puzzleplan-backend/internal/platform/dbctx"
	"github.com/yungbote/puzzleplan-backend/internal/platform/logger"
)

// ProjectBoard is a project with its pieces in display order.
type ProjectBoard struct {
	Project  *types.Project        `json:"project"`
	Pieces   []*types.PuzzlePiece  `json:"pieces"`
	Metadata []types.PieceMetadata `json:"metadata"`
}

type ProjectUpdate struct {
	Name        *string
	Description *string
}

type ProjectService interface {
	Create(ctx context.Context, name string, description *string) (*ProjectBoard, error)
	List(ctx context.Context) ([]*types.Project, error)
	GetBoard(ctx context.Context, projectID uuid.UUID) (*ProjectBoard, error)
	Update(ctx context.Context, projectID uuid.UUID, in ProjectUpdate) (*types.Project, error)
	Delete(ctx context.Context, projectID uuid.UUID) error
}

type projectService struct {
	db       *gorm.DB
	log      *logger.Logger
	board    domainagg.BoardAggregate
	projects repos.ProjectRepo
	pieces   repos.PuzzlePieceRepo
	notify   BoardNotifier
}

func NewProjectService(db *gorm.DB, log *logger.Logger, board domainagg.BoardAggregate, projects repos.ProjectRepo, pieces repos.PuzzlePieceRepo, notify BoardNotifier) ProjectService {
	return &projectService{
		db:       db,
		log:      log.With("service", "ProjectService"),
		board:    board,
		projects: projects,
		pieces:   pieces,
		notify:   notify,
	}
}

func (s *projectService) Create(ctx context.Context, name string, description *string) (*ProjectBoard, error) {
	userID, err := requireCaller(ctx)
	if err != nil {
		return nil, err
	}
	res, err := s.board.CreateProject(ctx, domainagg.CreateProjectInput{
		UserID:      userID,
		Name:        name,
		Description: description,
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("project created", "project_id", res.Project.ID, "user_id", userID)
	if s.notify != nil {
		s.notify.ProjectCreated(ctx, userID, res.Project, res.Pieces)
	}
	return &ProjectBoard{
		Project:  res.Project,
		Pieces:   sortPieces(res.Pieces),
		Metadata: planning.AllMetadata(),
	}, nil
}

func (s *projectService) List(ctx context.Context) ([]*types.Project, error) {
	userID, err := requireCaller(ctx)
	if err != nil {
		return nil, err
	}
	return s.projects.ListByUser(dbctx.Context{Ctx: ctx}, userID)
}

func (s *projectService) GetBoard(ctx context.Context, projectID uuid.UUID) (*ProjectBoard, error) {
	userID, err := requireCaller(ctx)
	if err != nil {
		return nil, err
	}
	dbc := dbctx.Context{Ctx: ctx}
	project, err := s.ownedProject(dbc, userID, projectID)
	if err != nil {
		return nil, err
	}
	pieces, err := s.pieces.ListByProject(dbc, project.ID)
	if err != nil {
		return nil, err
	}
	return &ProjectBoard{
		Project:  project,
		Pieces:   sortPieces(pieces),
		Metadata: planning.AllMetadata(),
	}, nil
}

func (s *projectService) Update(ctx context.Context, projectID uuid.UUID, in ProjectUpdate) (*types.Project, error) {
	userID, err := requireCaller(ctx)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apierr.BadRequest(codeInvalidRequest, "Project name is required")
		}
		updates["name"] = name
	}
	if in.Description != nil {
		updates["description"] = trimmedOrNil(in.Description)
	}
	if len(updates) == 0 {
		return nil, apierr.BadRequest(codeInvalidRequest, "Nothing to update")
	}
	if projectID == uuid.Nil {
		return nil, apierr.NotFound(codeProjectNotFound, "Project not found")
	}

	var out *types.Project
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		project, err := s.projects.LockByID(dbc, projectID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierr.NotFound(codeProjectNotFound, "Project not found")
		}
		if err != nil {
			return err
		}
		if project.UserID != userID {
			return apierr.NotFound(codeProjectNotFound, "Project not found")
		}
		if err := s.projects.UpdateFields(dbc, projectID, updates); err != nil {
			return err
		}
		if v, ok := updates["name"].(string); ok {
			project.Name = v
		}
		if in.Description != nil {
			project.Description = trimmedOrNil(in.Description)
		}
		project.UpdatedAt = time.Now().UTC()
		out = project
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.notify != nil {
		s.notify.ProjectUpdated(ctx, userID, out)
	}
	return out, nil
}

func (s *projectService) Delete(ctx context.Context, projectID uuid.UUID) error {
	userID, err := requireCaller(ctx)
	if err != nil {
		return err
	}
	if err := s.board.DeleteProject(ctx, domainagg.DeleteProjectInput{UserID: userID, ProjectID: projectID}); err != nil {
		return err
	}
	s.log.Info("project deleted", "project_id", projectID, "user_id", userID)
	if s.notify != nil {
		s.notify.ProjectDeleted(ctx, userID, projectID)
	}
	return nil
}

// ownedProject hides other users' projects behind not-found.
func (s *projectService) ownedProject(dbc dbctx.Context, userID, projectID uuid.UUID) (*types.Project, error) {
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

func sortPieces(pieces []*types.PuzzlePiece) []*types.PuzzlePiece {
	out := append([]*types.PuzzlePiece(nil), pieces...)
	sort.SliceStable(out, func(i, j int) bool {
		return pieceOrder(out[i].PieceType) < pieceOrder(out[j].PieceType)
	})
	return out
}

func pieceOrder(t types.PieceType) int {
	if md, ok := planning.Metadata(t); ok {
		return md.Order
	}
	return 1 << 30
}
