package services

import (
	"errors"

	"github.com/mborciuch/10x-bloom-learning-sub000/internal/data/dberr"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/domain/study"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/platform/apierr"
)

func validation(op, msg string) error {
	return apierr.New(apierr.CodeValidation, op, msg)
}

func notFound(op, what string) error {
	return apierr.New(apierr.CodeNotFound, op, what+" not found")
}

// storeErr maps persistence failures onto the domain taxonomy.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return dberr.MapError(op, err)
}

// integrityErr reports a stored review session whose content is corrupt.
func integrityErr(op string, err error) error {
	if errors.Is(err, study.ErrInvalidContent) {
		return apierr.Wrap(apierr.CodeDataIntegrity, op, err)
	}
	return err
}
