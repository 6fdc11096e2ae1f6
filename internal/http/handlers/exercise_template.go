package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/mborciuch/10x-bloom-learning-sub000/internal/http/response"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/services"
)

type ExerciseTemplateHandler struct {
	templates services.ExerciseTemplateService
}

func NewExerciseTemplateHandler(templates services.ExerciseTemplateService) *ExerciseTemplateHandler {
	return &ExerciseTemplateHandler{templates: templates}
}

// GET /api/exercise-templates
func (h *ExerciseTemplateHandler) ListActive(c *gin.Context) {
	items, err := h.templates.ListActive(requestDBC(c))
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"items": items})
}
