package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/puzzleplan-backend/internal/http/response"
	"github.com/yungbote/puzzleplan-backend/internal/services"
)

// DevHandler serves routes that only exist when DEV_MODE is on.
type DevHandler struct {
	prompts *services.PromptLibrary
}

func NewDevHandler(prompts *services.PromptLibrary) *DevHandler {
	return &DevHandler{prompts: prompts}
}

// DELETE /api/dev/prompt-cache
func (h *DevHandler) ClearPromptCache(c *gin.Context) {
	n := h.prompts.Clear()
	response.RespondOK(c, gin.H{"cleared": n})
}
