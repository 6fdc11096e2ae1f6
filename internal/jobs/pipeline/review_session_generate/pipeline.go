package review_session_generate

import (
	"context"
	"errors"

	"github.com/google/uuid"

	jobrt "github.com/mborciuch/10x-bloom-learning-sub000/internal/jobs/runtime"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/platform/apierr"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/services"
)

// Result is stored on the job row when generation succeeds.
type Result struct {
	SessionIDs []uuid.UUID `json:"sessionIds"`
	Count      int         `json:"count"`
}

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	var cmd services.GenerateSessionsInput
	if err := jc.DecodePayload(services.GenerationJobPayloadKey, &cmd); err != nil {
		jc.FailPermanently("validate", apierr.Wrap(apierr.CodeValidation, "generation.job", err))
		return nil
	}

	jc.Progress("generate", 10)
	views, err := p.generator.Generate(jc.DBContext(), jc.Job.OwnerUserID, cmd)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			// Canceled rows reject the failure write; on shutdown the run is
			// failed retryably and picked up again.
			p.log.Info("generation job interrupted", "job_id", jc.Job.ID)
			return err
		}
		if permanent(err) {
			jc.FailPermanently("generate", err)
		} else {
			jc.Fail("generate", err)
		}
		p.log.Warn("generation job failed", "job_id", jc.Job.ID, "code", apierr.CodeOf(err), "error", err)
		return nil
	}

	res := Result{SessionIDs: make([]uuid.UUID, 0, len(views)), Count: len(views)}
	for _, v := range views {
		res.SessionIDs = append(res.SessionIDs, v.ID)
	}
	jc.Succeed("done", res)
	return nil
}

// permanent reports failures another attempt cannot fix.
func permanent(err error) bool {
	switch apierr.CodeOf(err) {
	case apierr.CodeValidation,
		apierr.CodeNotFound,
		apierr.CodeConflict,
		apierr.CodeConfiguration,
		apierr.CodeDataIntegrity,
		apierr.CodeUnauthorized:
		return true
	}
	return false
}
