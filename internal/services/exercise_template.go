package services

import (
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/data/repos"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/pkg/dbctx"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/platform/logger"
)

type ExerciseTemplateService interface {
	ListActive(dbc dbctx.Context) ([]ExerciseTemplateView, error)
}

type exerciseTemplateService struct {
	log  *logger.Logger
	repo repos.ExerciseTemplateRepo
}

func NewExerciseTemplateService(baseLog *logger.Logger, repo repos.ExerciseTemplateRepo) ExerciseTemplateService {
	return &exerciseTemplateService{log: baseLog.With("service", "ExerciseTemplateService"), repo: repo}
}

func (s *exerciseTemplateService) ListActive(dbc dbctx.Context) ([]ExerciseTemplateView, error) {
	rows, err := s.repo.ListActive(dbc)
	if err != nil {
		return nil, storeErr("exercise_template.list", err)
	}
	out := make([]ExerciseTemplateView, 0, len(rows))
	for _, t := range rows {
		out = append(out, NewExerciseTemplateView(t))
	}
	return out, nil
}
