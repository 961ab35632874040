package aggregates

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	domainagg "github.com/yungbote/puzzleplan-backend/internal/domain/aggregates"
	"github.com/yungbote/puzzleplan-backend/internal/modules/puzzle"
)

var (
	ErrValidation   = errors.New("aggregate validation")
	ErrInvariant    = errors.New("aggregate invariant violation")
	ErrConflict     = errors.New("aggregate conflict")
	ErrPrecondition = errors.New("aggregate precondition failed")
	ErrRetryable    = errors.New("aggregate retryable")
)

func ValidationError(msg string) error {
	return errors.Join(ErrValidation, errors.New(strings.TrimSpace(msg)))
}

func InvariantError(msg string) error {
	return errors.Join(ErrInvariant, errors.New(strings.TrimSpace(msg)))
}

func ConflictError(msg string) error {
	return errors.Join(ErrConflict, errors.New(strings.TrimSpace(msg)))
}

// PreconditionError marks a request that is well formed but not allowed in
// the current state, such as completing a piece that is not in progress.
func PreconditionError(msg string) error {
	return errors.Join(ErrPrecondition, errors.New(strings.TrimSpace(msg)))
}

func RetryableError(msg string) error {
	return errors.Join(ErrRetryable, errors.New(strings.TrimSpace(msg)))
}

// MapError maps infrastructure and domain failures onto aggregate codes.
// Errors that already carry a code pass through untouched.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var aggErr *domainagg.Error
	if errors.As(err, &aggErr) {
		return err
	}
	switch {
	case errors.Is(err, ErrValidation):
		return wrapTagged(domainagg.CodeValidation, op, err)
	case errors.Is(err, ErrInvariant):
		return wrapTagged(domainagg.CodeInvariantViolation, op, err)
	case errors.Is(err, ErrConflict):
		return wrapTagged(domainagg.CodeConflict, op, err)
	case errors.Is(err, ErrPrecondition), errors.Is(err, puzzle.ErrInvalidTransition):
		return wrapTagged(domainagg.CodePreconditionFailed, op, err)
	case errors.Is(err, ErrRetryable):
		return wrapTagged(domainagg.CodeRetryable, op, err)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domainagg.Wrap(domainagg.CodeNotFound, op, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return domainagg.Wrap(domainagg.CodeRetryable, op, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch strings.TrimSpace(pgErr.Code) {
		case "23505":
			return domainagg.Wrap(domainagg.CodeConflict, op, err) // unique_violation
		case "23503":
			return domainagg.Wrap(domainagg.CodePreconditionFailed, op, err) // foreign_key_violation
		case "40001", "40P01", "55P03":
			return domainagg.Wrap(domainagg.CodeRetryable, op, err) // serialization/deadlock/lock_not_available
		}
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "duplicate key"),
		strings.Contains(msg, "unique constraint failed"):
		return domainagg.Wrap(domainagg.CodeConflict, op, err)
	case strings.Contains(msg, "deadlock"),
		strings.Contains(msg, "serialization"),
		strings.Contains(msg, "database is locked"),
		strings.Contains(msg, "timeout"):
		return domainagg.Wrap(domainagg.CodeRetryable, op, err)
	default:
		return domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
}

// wrapTagged drops the sentinel from the message so callers see only the
// human readable part.
func wrapTagged(code domainagg.ErrorCode, op string, err error) error {
	msg := err.Error()
	if i := strings.LastIndex(msg, "\n"); i >= 0 {
		msg = msg[i+1:]
	}
	return domainagg.NewError(code, op, msg, err)
}

func notFound(op, msg string) error {
	return domainagg.NewError(domainagg.CodeNotFound, op, msg, nil)
}
