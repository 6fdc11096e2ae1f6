package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mborciuch/10x-bloom-learning-sub000/internal/http/response"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/pkg/dbctx"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/services"
)

type StudyPlanHandler struct {
	plans    services.StudyPlanService
	sessions services.ReviewSessionService
}

func NewStudyPlanHandler(plans services.StudyPlanService, sessions services.ReviewSessionService) *StudyPlanHandler {
	return &StudyPlanHandler{plans: plans, sessions: sessions}
}

type createStudyPlanRequest struct {
	Title          string `json:"title"`
	SourceMaterial string `json:"sourceMaterial"`
}

// POST /api/study-plans
func (h *StudyPlanHandler) Create(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	var req createStudyPlanRequest
	if !bindJSON(c, &req) {
		return
	}
	plan, err := h.plans.Create(requestDBC(c), userID, services.CreateStudyPlanInput{
		Title:          req.Title,
		SourceMaterial: req.SourceMaterial,
	})
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondCreated(c, services.NewStudyPlanView(plan))
}

// GET /api/study-plans
func (h *StudyPlanHandler) List(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	page, err := pageRequest(c)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	out, err := h.plans.List(requestDBC(c), userID, services.ListStudyPlansInput{
		Status:      strings.TrimSpace(c.Query("status")),
		Search:      c.Query("search"),
		PageRequest: page,
	})
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, out)
}

// GET /api/study-plans/:id
func (h *StudyPlanHandler) Get(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	planID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	plan, err := h.plans.Get(requestDBC(c), userID, planID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, services.NewStudyPlanView(plan))
}

// POST /api/study-plans/:id/archive
func (h *StudyPlanHandler) Archive(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	planID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	plan, err := h.plans.Archive(requestDBC(c), userID, planID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, services.NewStudyPlanView(plan))
}

// POST /api/study-plans/:id/unarchive
func (h *StudyPlanHandler) Unarchive(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	planID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	plan, err := h.plans.Unarchive(requestDBC(c), userID, planID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, services.NewStudyPlanView(plan))
}

// DELETE /api/study-plans/:id
func (h *StudyPlanHandler) Delete(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	planID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.plans.Delete(requestDBC(c), userID, planID); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/study-plans/:id/ai-stats
func (h *StudyPlanHandler) AIStats(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	planID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	stats, err := h.sessions.AIStats(requestDBC(c), userID, planID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, stats)
}

// POST /api/study-plans/:id/review-sessions/accept-all
func (h *StudyPlanHandler) AcceptAll(c *gin.Context) {
	h.bulkStatus(c, h.sessions.AcceptAll)
}

// POST /api/study-plans/:id/review-sessions/reject-all
func (h *StudyPlanHandler) RejectAll(c *gin.Context) {
	h.bulkStatus(c, h.sessions.RejectAll)
}

func (h *StudyPlanHandler) bulkStatus(c *gin.Context, apply func(dbc dbctx.Context, userID, planID uuid.UUID) (int64, error)) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	planID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	n, err := apply(requestDBC(c), userID, planID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"updated": n})
}
