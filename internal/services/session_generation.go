package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/mborciuch/10x-bloom-learning-sub000/internal/data/repos"
	types "github.com/mborciuch/10x-bloom-learning-sub000/internal/domain"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/domain/study"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/learning/prompts"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/observability"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/pkg/dbctx"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/platform/apierr"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/platform/llm"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/platform/logger"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/platform/openrouter"
)

// GenerateSessionsInput is a request to generate proposed review sessions.
type GenerateSessionsInput struct {
	StudyPlanID        uuid.UUID   `json:"studyPlanId"`
	RequestedCount     int         `json:"requestedCount"`
	TaxonomyLevels     []string    `json:"taxonomyLevels"`
	IncludeTemplateIDs []uuid.UUID `json:"includePredefinedTemplateIds,omitempty"`
	ModelName          string      `json:"modelName,omitempty"`
}

type SessionGenerationService interface {
	// Validate checks the command shape and returns it normalized: levels
	// canonical and ordered, template ids deduplicated.
	Validate(in GenerateSessionsInput) (GenerateSessionsInput, error)
	// Generate runs one generation and persists the batch atomically.
	Generate(dbc dbctx.Context, userID uuid.UUID, in GenerateSessionsInput) ([]ReviewSessionView, error)
}

type sessionGenerationService struct {
	db        *gorm.DB
	log       *logger.Logger
	plans     StudyPlanService
	planRepo  repos.StudyPlanRepo
	templates repos.ExerciseTemplateRepo
	sessions  repos.ReviewSessionRepo
	ai        llm.Completer
	limits    GenerationLimits
	now       func() time.Time
}

func NewSessionGenerationService(
	db *gorm.DB,
	baseLog *logger.Logger,
	plans StudyPlanService,
	planRepo repos.StudyPlanRepo,
	templates repos.ExerciseTemplateRepo,
	sessions repos.ReviewSessionRepo,
	ai llm.Completer,
	limits GenerationLimits,
) SessionGenerationService {
	return &sessionGenerationService{
		db:        db,
		log:       baseLog.With("service", "SessionGenerationService"),
		plans:     plans,
		planRepo:  planRepo,
		templates: templates,
		sessions:  sessions,
		ai:        ai,
		limits:    limits.normalized(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *sessionGenerationService) Validate(in GenerateSessionsInput) (GenerateSessionsInput, error) {
	const op = "generation.validate"
	if in.StudyPlanID == uuid.Nil {
		return in, validation(op, "studyPlanId is required")
	}
	if in.RequestedCount < 1 || in.RequestedCount > s.limits.MaxRequestedSessions {
		return in, apierr.Newf(apierr.CodeValidation, op, "requestedCount must be between 1 and %d", s.limits.MaxRequestedSessions)
	}
	if len(in.TaxonomyLevels) == 0 {
		return in, validation(op, "at least one taxonomy level is required")
	}
	if len(in.TaxonomyLevels) > s.limits.MaxTaxonomyLevels {
		return in, apierr.Newf(apierr.CodeValidation, op, "at most %d taxonomy levels may be requested", s.limits.MaxTaxonomyLevels)
	}
	seen := map[study.TaxonomyLevel]bool{}
	levels := make([]study.TaxonomyLevel, 0, len(in.TaxonomyLevels))
	for _, raw := range in.TaxonomyLevels {
		level, ok := study.ParseTaxonomyLevel(raw)
		if !ok {
			return in, validation(op, "unknown taxonomy level "+strings.TrimSpace(raw))
		}
		if seen[level] {
			return in, validation(op, "duplicate taxonomy level "+string(level))
		}
		seen[level] = true
		levels = append(levels, level)
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i].Rank() < levels[j].Rank() })

	out := in
	out.TaxonomyLevels = make([]string, len(levels))
	for i, l := range levels {
		out.TaxonomyLevels[i] = string(l)
	}
	out.IncludeTemplateIDs = nil
	ids := map[uuid.UUID]bool{}
	for _, id := range in.IncludeTemplateIDs {
		if id == uuid.Nil {
			return in, validation(op, "exercise template ids must be valid uuids")
		}
		if !ids[id] {
			ids[id] = true
			out.IncludeTemplateIDs = append(out.IncludeTemplateIDs, id)
		}
	}
	out.ModelName = strings.TrimSpace(in.ModelName)
	return out, nil
}

func (s *sessionGenerationService) Generate(dbc dbctx.Context, userID uuid.UUID, in GenerateSessionsInput) (views []ReviewSessionView, err error) {
	const op = "generation.generate"
	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = strings.ToLower(string(apierr.CodeOf(err)))
			if status == "" {
				status = "error"
			}
		}
		observability.Current().ObserveGeneration(status, time.Since(start), len(views))
	}()

	cmd, err := s.Validate(in)
	if err != nil {
		return nil, err
	}

	plan, err := s.plans.GetOwnedPlan(dbc, userID, cmd.StudyPlanID)
	if err != nil {
		return nil, err
	}
	if plan.IsArchived() {
		return nil, apierr.New(apierr.CodeConflict, op, "study plan is archived")
	}

	var templates []*types.ExerciseTemplate
	if len(cmd.IncludeTemplateIDs) > 0 {
		templates, err = s.templates.FindActiveByIDs(dbc, cmd.IncludeTemplateIDs)
		if err != nil {
			return nil, storeErr(op, err)
		}
		if len(templates) != len(cmd.IncludeTemplateIDs) {
			return nil, validation(op, "one or more exercise templates are invalid or inactive")
		}
	}

	if s.ai == nil {
		return nil, apierr.New(apierr.CodeConfiguration, op, "AI provider is not configured")
	}

	prompt, err := prompts.Build(prompts.PromptReviewSessions, prompts.Input{
		SourceMaterial:    plan.SourceMaterial,
		RequestedCount:    cmd.RequestedCount,
		TaxonomyLevelsCSV: strings.Join(cmd.TaxonomyLevels, ", "),
		TemplatesText:     templatesText(templates),
	})
	if err != nil {
		return nil, apierr.Wrap(apierr.CodeInternal, op, err)
	}

	s.log.Info("generating review sessions",
		"user_id", userID,
		"plan_id", plan.ID,
		"requested", cmd.RequestedCount,
		"levels", cmd.TaxonomyLevels,
		"templates", len(templates),
		"prompt_fingerprint", prompt.Fingerprint(),
	)

	res, err := s.ai.Complete(dbc.Context(), llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: prompt.System},
			{Role: llm.RoleUser, Content: prompt.User},
		},
		Model: cmd.ModelName,
		Params: llm.Params{
			Temperature: llm.Float(s.limits.Temperature),
			MaxTokens:   llm.Int(s.limits.MaxTokens),
		},
		ResponseFormat: &llm.ResponseFormat{
			Name:   prompt.SchemaName,
			Strict: true,
			Schema: prompt.Schema,
		},
		Timeout: s.limits.Timeout,
	})
	if err != nil {
		mapped := mapCompletionError(op, err)
		s.log.Warn("review session generation failed", "plan_id", plan.ID, "error", err, "code", string(apierr.CodeOf(mapped)))
		return nil, mapped
	}

	rows, err := s.buildRows(op, userID, plan.ID, cmd, res)
	if err != nil {
		return nil, err
	}

	// Nothing is persisted once the caller has given up.
	if err := dbc.Context().Err(); err != nil {
		return nil, err
	}
	err = runInTx(s.db, dbc, func(inner dbctx.Context) error {
		locked, err := s.planRepo.LockForShare(inner, userID, plan.ID)
		if err != nil {
			return storeErr(op, err)
		}
		if locked == nil {
			return notFound(op, "study plan")
		}
		if locked.IsArchived() {
			return apierr.New(apierr.CodeConflict, op, "study plan is archived")
		}
		if _, err := s.sessions.Create(inner, rows); err != nil {
			return storeErr(op, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	views = make([]ReviewSessionView, 0, len(rows))
	for _, r := range rows {
		v, err := NewReviewSessionView(r)
		if err != nil {
			return nil, integrityErr(op, err)
		}
		views = append(views, v)
	}
	s.log.Info("review sessions generated",
		"user_id", userID,
		"plan_id", plan.ID,
		"count", len(views),
		"model", res.Model,
		"total_tokens", res.Usage.TotalTokens,
		"attempts", res.Metadata.Attempts,
	)
	return views, nil
}

type generatedSession struct {
	Questions     []string `json:"questions"`
	Answers       []string `json:"answers"`
	Hints         []string `json:"hints"`
	TaxonomyLevel string   `json:"taxonomyLevel"`
	ExerciseLabel string   `json:"exerciseLabel"`
}

type generatedBatch struct {
	Sessions []generatedSession `json:"sessions"`
}

func (s *sessionGenerationService) buildRows(op string, userID, planID uuid.UUID, cmd GenerateSessionsInput, res *llm.Result) ([]*types.ReviewSession, error) {
	var batch generatedBatch
	if err := res.Decode(&batch); err != nil {
		return nil, apierr.New(apierr.CodeAIGeneration, op, "AI response did not match the expected format").WithCause(err)
	}
	if len(batch.Sessions) == 0 {
		return nil, apierr.New(apierr.CodeAIGeneration, op, "AI response contained no sessions")
	}
	if len(batch.Sessions) > cmd.RequestedCount {
		s.log.Warn("AI returned more sessions than requested; truncating", "requested", cmd.RequestedCount, "returned", len(batch.Sessions))
		batch.Sessions = batch.Sessions[:cmd.RequestedCount]
	}

	fallbackLevel, _ := study.ParseTaxonomyLevel(cmd.TaxonomyLevels[0])
	reviewDate := study.DateOnly(s.now())
	rows := make([]*types.ReviewSession, 0, len(batch.Sessions))
	for i, g := range batch.Sessions {
		content := types.SessionContent{Questions: g.Questions, Answers: g.Answers, Hints: g.Hints}
		if len(content.Hints) > 0 && len(content.Hints) != len(content.Questions) {
			s.log.Warn("dropping mismatched hints", "index", i, "hints", len(content.Hints), "questions", len(content.Questions))
			content.Hints = nil
		}
		if err := content.Validate(); err != nil || len(content.Questions) == 0 {
			if err == nil {
				err = fmt.Errorf("%w: no questions", study.ErrInvalidContent)
			}
			return nil, apierr.Newf(apierr.CodeAIGeneration, op, "AI session %d is malformed", i+1).WithCause(err)
		}
		blob, err := content.MarshalJSON()
		if err != nil {
			return nil, apierr.Wrap(apierr.CodeAIGeneration, op, err)
		}

		level, ok := study.ParseTaxonomyLevel(g.TaxonomyLevel)
		if !ok {
			level = fallbackLevel
		}
		rows = append(rows, &types.ReviewSession{
			UserID:        userID,
			StudyPlanID:   planID,
			ExerciseLabel: exerciseLabel(g.ExerciseLabel, level),
			ReviewDate:    reviewDate,
			TaxonomyLevel: string(level),
			Status:        string(study.StatusProposed),
			IsAIGenerated: true,
			IsCompleted:   false,
			Content:       datatypes.JSON(blob),
			Metadata:      datatypes.NewJSONType(types.EditMetadata{}),
		})
	}
	return rows, nil
}

func exerciseLabel(raw string, level study.TaxonomyLevel) string {
	label := strings.TrimSpace(raw)
	if label == "" {
		l := string(level)
		return strings.ToUpper(l[:1]) + l[1:] + " review"
	}
	if r := []rune(label); len(r) > MaxLabelLen {
		label = string(r[:MaxLabelLen])
	}
	return label
}

func templatesText(templates []*types.ExerciseTemplate) string {
	if len(templates) == 0 {
		return ""
	}
	lines := make([]string, 0, len(templates))
	for _, t := range templates {
		line := "- " + t.Name
		if d := strings.TrimSpace(t.Description); d != "" {
			line += ": " + d
		}
		if p := strings.TrimSpace(t.Prompt); p != "" {
			line += " (" + p + ")"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// mapCompletionError translates gateway failures into the domain taxonomy.
func mapCompletionError(op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apierr.New(apierr.CodeTimeout, op, "AI generation timed out; try requesting fewer sessions").WithCause(err)
	}
	if errors.Is(err, openrouter.ErrMissingAPIKey) {
		return apierr.New(apierr.CodeConfiguration, op, "AI provider is not configured").WithCause(err)
	}
	var gw *openrouter.Error
	if !errors.As(err, &gw) {
		return apierr.New(apierr.CodeAIGeneration, op, "AI generation failed").WithCause(err)
	}
	switch gw.Code {
	case openrouter.CodeInvalidAPIKey:
		return apierr.New(apierr.CodeConfiguration, op, "AI provider credentials are invalid").WithCause(err)
	case openrouter.CodeInsufficientCredits:
		return apierr.New(apierr.CodeServiceUnavailable, op, "AI provider is out of credits").WithCause(err)
	case openrouter.CodeNetworkError:
		return apierr.New(apierr.CodeServiceUnavailable, op, "AI provider is unreachable; try again later").WithCause(err)
	case openrouter.CodeRateLimitExceeded:
		e := apierr.New(apierr.CodeRateLimit, op, "AI provider is rate limiting requests; try again later").WithCause(err)
		e.RetryAfter = gw.RetryAfter
		return e
	case openrouter.CodeTimeout:
		return apierr.New(apierr.CodeTimeout, op, "AI generation timed out; try requesting fewer sessions").WithCause(err)
	case openrouter.CodeModelNotAvailable:
		return apierr.New(apierr.CodeValidation, op, "requested model is not available").WithCause(err)
	case openrouter.CodeInvalidRequest, openrouter.CodeResponseParse, openrouter.CodeUnknown:
		return apierr.New(apierr.CodeAIGeneration, op, "AI generation failed; try again with fewer sessions").WithCause(err)
	default:
		return apierr.New(apierr.CodeAIGeneration, op, "AI generation failed").WithCause(err)
	}
}
