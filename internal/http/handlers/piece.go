package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/puzzleplan-backend/internal/http/response"
	"github.com/yungbote/puzzleplan-backend/internal/platform/logger"
	"github.com/yungbote/puzzleplan-backend/internal/services"
)

type PieceHandler struct {
	log    *logger.Logger
	pieces services.PieceService
}

func NewPieceHandler(log *logger.Logger, pieces services.PieceService) *PieceHandler {
	return &PieceHandler{log: log.With("handler", "PieceHandler"), pieces: pieces}
}

type completePieceReq struct {
	PieceID string `json:"pieceId"`
	Summary string `json:"summary"`
}

type updateContentReq struct {
	Content json.RawMessage `json:"content"`
}

// GET /api/pieces/metadata
func (h *PieceHandler) Metadata(c *gin.Context) {
	response.RespondOK(c, gin.H{"pieces": h.pieces.Metadata()})
}

// POST /api/projects/:id/pieces/:type/open
func (h *PieceHandler) OpenPiece(c *gin.Context) {
	projectID, ok := uuidParam(c, "id")
	if !ok {
		response.RespondError(c, http.StatusNotFound, "project_not_found", errors.New("Project not found"))
		return
	}
	piece, err := h.pieces.Open(c.Request.Context(), projectID, c.Param("type"))
	if err != nil {
		response.RespondServiceError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"piece": piece})
}

// POST /api/pieces/complete
//
// A pieceId that is not a uuid cannot name a piece, so it is reported as not
// found rather than as a malformed request.
func (h *PieceHandler) CompletePiece(c *gin.Context) {
	var req completePieceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", errors.New("Missing required fields: pieceId and summary"))
		return
	}
	if req.PieceID == "" || req.Summary == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", errors.New("Missing required fields: pieceId and summary"))
		return
	}
	pieceID, err := uuid.Parse(req.PieceID)
	if err != nil {
		response.RespondError(c, http.StatusNotFound, "piece_not_found", errors.New("Piece not found"))
		return
	}
	res, err := h.pieces.Complete(c.Request.Context(), pieceID, req.Summary)
	if err != nil {
		response.RespondServiceError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{
		"success":  true,
		"message":  "Piece completed successfully",
		"piece":    res.Piece,
		"unlocked": res.Unlocked,
	})
}

// PUT /api/pieces/:id/content
func (h *PieceHandler) UpdateContent(c *gin.Context) {
	pieceID, ok := uuidParam(c, "id")
	if !ok {
		response.RespondError(c, http.StatusNotFound, "piece_not_found", errors.New("Piece not found"))
		return
	}
	var req updateContentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	piece, err := h.pieces.UpdateContent(c.Request.Context(), pieceID, req.Content)
	if err != nil {
		response.RespondServiceError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"piece": piece})
}
