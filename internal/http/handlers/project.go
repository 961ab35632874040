package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/puzzleplan-backend/internal/http/response"
	"github.com/yungbote/puzzleplan-backend/internal/platform/logger"
	"github.com/yungbote/puzzleplan-backend/internal/services"
)

type ProjectHandler struct {
	log      *logger.Logger
	projects services.ProjectService
}

func NewProjectHandler(log *logger.Logger, projects services.ProjectService) *ProjectHandler {
	return &ProjectHandler{log: log.With("handler", "ProjectHandler"), projects: projects}
}

type createProjectReq struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

type updateProjectReq struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// GET /api/projects
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	projects, err := h.projects.List(c.Request.Context())
	if err != nil {
		response.RespondServiceError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"projects": projects})
}

// POST /api/projects
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	var req createProjectReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	board, err := h.projects.Create(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		response.RespondServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, board)
}

// GET /api/projects/:id
func (h *ProjectHandler) GetProject(c *gin.Context) {
	projectID, ok := uuidParam(c, "id")
	if !ok {
		response.RespondError(c, http.StatusNotFound, "project_not_found", errors.New("Project not found"))
		return
	}
	board, err := h.projects.GetBoard(c.Request.Context(), projectID)
	if err != nil {
		response.RespondServiceError(c, h.log, err)
		return
	}
	response.RespondOK(c, board)
}

// PATCH /api/projects/:id
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	projectID, ok := uuidParam(c, "id")
	if !ok {
		response.RespondError(c, http.StatusNotFound, "project_not_found", errors.New("Project not found"))
		return
	}
	var req updateProjectReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	project, err := h.projects.Update(c.Request.Context(), projectID, services.ProjectUpdate{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		response.RespondServiceError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"project": project})
}

// DELETE /api/projects/:id
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	projectID, ok := uuidParam(c, "id")
	if !ok {
		response.RespondError(c, http.StatusNotFound, "project_not_found", errors.New("Project not found"))
		return
	}
	if err := h.projects.Delete(c.Request.Context(), projectID); err != nil {
		response.RespondServiceError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
