package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mborciuch/10x-bloom-learning-sub000/internal/http/response"
	types "github.com/mborciuch/10x-bloom-learning-sub000/internal/domain"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/platform/apierr"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/services"
)

type ReviewSessionHandler struct {
	sessions services.ReviewSessionService
}

func NewReviewSessionHandler(sessions services.ReviewSessionService) *ReviewSessionHandler {
	return &ReviewSessionHandler{sessions: sessions}
}

// GET /api/review-sessions
func (h *ReviewSessionHandler) List(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	in, err := listSessionsInput(c)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	out, err := h.sessions.List(requestDBC(c), userID, in)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, out)
}

func listSessionsInput(c *gin.Context) (services.ListReviewSessionsInput, error) {
	var in services.ListReviewSessionsInput
	var err error
	if in.StudyPlanID, err = queryUUID(c, "studyPlanId"); err != nil {
		return in, err
	}
	if in.IsCompleted, err = queryBool(c, "isCompleted"); err != nil {
		return in, err
	}
	if in.IsAIGenerated, err = queryBool(c, "isAiGenerated"); err != nil {
		return in, err
	}
	if in.PageRequest, err = pageRequest(c); err != nil {
		return in, err
	}
	if sort := strings.TrimSpace(c.Query("sort")); sort != "" && sort != "review_date" {
		return in, apierr.New(apierr.CodeValidation, "", "sort must be review_date")
	}
	in.DateFrom = strings.TrimSpace(c.Query("dateFrom"))
	in.DateTo = strings.TrimSpace(c.Query("dateTo"))
	in.Status = strings.TrimSpace(c.Query("status"))
	in.TaxonomyLevel = strings.TrimSpace(c.Query("taxonomyLevel"))
	in.SortOrder = strings.TrimSpace(c.Query("sortOrder"))
	return in, nil
}

type createReviewSessionRequest struct {
	StudyPlanID        uuid.UUID            `json:"studyPlanId"`
	ExerciseTemplateID *uuid.UUID           `json:"exerciseTemplateId"`
	ExerciseLabel      string               `json:"exerciseLabel"`
	ReviewDate         string               `json:"reviewDate"`
	TaxonomyLevel      string               `json:"taxonomyLevel"`
	Content            types.SessionContent `json:"content"`
	Notes              *string              `json:"notes"`
}

// POST /api/review-sessions
func (h *ReviewSessionHandler) Create(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	var req createReviewSessionRequest
	if !bindJSON(c, &req) {
		return
	}
	view, err := h.sessions.Create(requestDBC(c), userID, services.CreateReviewSessionInput{
		StudyPlanID:        req.StudyPlanID,
		ExerciseTemplateID: req.ExerciseTemplateID,
		ExerciseLabel:      req.ExerciseLabel,
		ReviewDate:         req.ReviewDate,
		TaxonomyLevel:      req.TaxonomyLevel,
		Content:            req.Content,
		Notes:              req.Notes,
	})
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondCreated(c, view)
}

// GET /api/review-sessions/:id
func (h *ReviewSessionHandler) Get(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	sessionID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	view, err := h.sessions.Get(requestDBC(c), userID, sessionID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, view)
}

type updateReviewSessionRequest struct {
	ReviewDate         *string               `json:"reviewDate"`
	ExerciseTemplateID *uuid.UUID            `json:"exerciseTemplateId"`
	ExerciseLabel      *string               `json:"exerciseLabel"`
	TaxonomyLevel      *string               `json:"taxonomyLevel"`
	Status             *string               `json:"status"`
	Content            *types.SessionContent `json:"content"`
	Notes              *string               `json:"notes"`
}

// PATCH /api/review-sessions/:id
func (h *ReviewSessionHandler) Update(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	sessionID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req updateReviewSessionRequest
	if !bindJSON(c, &req) {
		return
	}
	view, err := h.sessions.Update(requestDBC(c), userID, sessionID, services.UpdateReviewSessionInput{
		ReviewDate:         req.ReviewDate,
		ExerciseTemplateID: req.ExerciseTemplateID,
		ExerciseLabel:      req.ExerciseLabel,
		TaxonomyLevel:      req.TaxonomyLevel,
		Status:             req.Status,
		Content:            req.Content,
		Notes:              req.Notes,
	})
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, view)
}

// POST /api/review-sessions/:id/complete
func (h *ReviewSessionHandler) Complete(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	sessionID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	view, err := h.sessions.Complete(requestDBC(c), userID, sessionID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, view)
}

// DELETE /api/review-sessions/:id
func (h *ReviewSessionHandler) Delete(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	sessionID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.sessions.Delete(requestDBC(c), userID, sessionID); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type feedbackRequest struct {
	Rating  int     `json:"rating"`
	Comment *string `json:"comment"`
}

// POST /api/review-sessions/:id/feedback
func (h *ReviewSessionHandler) SubmitFeedback(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	sessionID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req feedbackRequest
	if !bindJSON(c, &req) {
		return
	}
	view, err := h.sessions.SubmitFeedback(requestDBC(c), userID, sessionID, services.FeedbackInput{
		Rating:  req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondCreated(c, view)
}
