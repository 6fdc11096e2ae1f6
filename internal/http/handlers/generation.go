package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mborciuch/10x-bloom-learning-sub000/internal/http/response"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/services"
)

type GenerationHandler struct {
	generator services.SessionGenerationService
	jobs      services.GenerationJobService
}

func NewGenerationHandler(generator services.SessionGenerationService, jobs services.GenerationJobService) *GenerationHandler {
	return &GenerationHandler{generator: generator, jobs: jobs}
}

type generateRequest struct {
	RequestedCount     int         `json:"requestedCount"`
	TaxonomyLevels     []string    `json:"taxonomyLevels"`
	IncludeTemplateIDs []uuid.UUID `json:"includePredefinedTemplateIds"`
	ModelName          string      `json:"modelName"`
}

func (h *GenerationHandler) input(c *gin.Context) (uuid.UUID, services.GenerateSessionsInput, bool) {
	userID, ok := requestUser(c)
	if !ok {
		return uuid.Nil, services.GenerateSessionsInput{}, false
	}
	planID, ok := pathUUID(c, "id")
	if !ok {
		return uuid.Nil, services.GenerateSessionsInput{}, false
	}
	var req generateRequest
	if !bindJSON(c, &req) {
		return uuid.Nil, services.GenerateSessionsInput{}, false
	}
	return userID, services.GenerateSessionsInput{
		StudyPlanID:        planID,
		RequestedCount:     req.RequestedCount,
		TaxonomyLevels:     req.TaxonomyLevels,
		IncludeTemplateIDs: req.IncludeTemplateIDs,
		ModelName:          req.ModelName,
	}, true
}

// POST /api/study-plans/:id/generate
func (h *GenerationHandler) Generate(c *gin.Context) {
	userID, in, ok := h.input(c)
	if !ok {
		return
	}
	views, err := h.generator.Generate(requestDBC(c), userID, in)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondCreated(c, views)
}

// POST /api/study-plans/:id/generation-jobs
func (h *GenerationHandler) Enqueue(c *gin.Context) {
	userID, in, ok := h.input(c)
	if !ok {
		return
	}
	job, err := h.jobs.Enqueue(requestDBC(c), userID, in)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondAccepted(c, gin.H{"job": services.NewJobView(job)})
}
