package dberr

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/mborciuch/10x-bloom-learning-sub000/internal/platform/apierr"
)

// MapError maps infrastructure failures to domain error codes. Errors that
// already carry a code and context errors pass through unchanged.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apierr.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apierr.Wrap(apierr.CodeNotFound, op, err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apierr.Wrap(apierr.CodeConflict, op, err)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return apierr.Wrap(apierr.CodeNotFound, op, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch strings.TrimSpace(pgErr.Code) {
		case "23505":
			return apierr.Wrap(apierr.CodeConflict, op, err) // unique_violation
		case "23503":
			return apierr.Wrap(apierr.CodeNotFound, op, err) // foreign_key_violation
		case "22P02", "23514":
			return apierr.Wrap(apierr.CodeValidation, op, err) // invalid_text_representation/check_violation
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unique constraint failed"), strings.Contains(msg, "duplicate key"):
		return apierr.Wrap(apierr.CodeConflict, op, err)
	case strings.Contains(msg, "foreign key constraint failed"):
		return apierr.Wrap(apierr.CodeNotFound, op, err)
	}
	return apierr.Wrap(apierr.CodeInternal, op, err)
}

// IsUniqueViolation reports whether err is a unique-constraint failure on
// either supported dialect.
func IsUniqueViolation(err error) bool {
	return apierr.IsCode(MapError("", err), apierr.CodeConflict)
}
