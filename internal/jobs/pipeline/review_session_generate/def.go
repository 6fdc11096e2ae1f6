package review_session_generate

import (
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/platform/logger"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/services"
)

type Pipeline struct {
	log       *logger.Logger
	generator services.SessionGenerationService
}

func New(baseLog *logger.Logger, generator services.SessionGenerationService) *Pipeline {
	return &Pipeline{
		log:       baseLog.With("job", services.JobTypeReviewSessionGenerate),
		generator: generator,
	}
}

func (p *Pipeline) Type() string { return services.JobTypeReviewSessionGenerate }
