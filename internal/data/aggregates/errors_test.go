package aggregates

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	domainagg "github.com/yungbote/puzzleplan-backend/internal/domain/aggregates"
	"github.com/yungbote/puzzleplan-backend/internal/domain/planning"
	"github.com/yungbote/puzzleplan-backend/internal/modules/puzzle"
)

func TestMapError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code domainagg.ErrorCode
	}{
		{"validation", ValidationError("bad input"), domainagg.CodeValidation},
		{"conflict", ConflictError("stale"), domainagg.CodeConflict},
		{"precondition", PreconditionError("not now"), domainagg.CodePreconditionFailed},
		{"invalid transition", puzzle.CheckTransition(planning.StatusAvailable, planning.StatusComplete), domainagg.CodePreconditionFailed},
		{"not found", gorm.ErrRecordNotFound, domainagg.CodeNotFound},
		{"pg unique", &pgconn.PgError{Code: "23505"}, domainagg.CodeConflict},
		{"pg serialization", fmt.Errorf("commit: %w", &pgconn.PgError{Code: "40001"}), domainagg.CodeRetryable},
		{"sqlite unique", errors.New("UNIQUE constraint failed: puzzle_piece.project_id"), domainagg.CodeConflict},
		{"sqlite busy", errors.New("database is locked"), domainagg.CodeRetryable},
		{"unknown", errors.New("boom"), domainagg.CodeInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := MapError("op", tc.err)
			if !domainagg.IsCode(got, tc.code) {
				t.Fatalf("want %s got %q (%v)", tc.code, domainagg.CodeOf(got), got)
			}
		})
	}
}

func TestMapErrorKeepsReadableMessage(t *testing.T) {
	err := MapError("op", PreconditionError("Can only complete pieces that are in progress"))
	var aggErr *domainagg.Error
	if !errors.As(err, &aggErr) {
		t.Fatalf("expected *domainagg.Error")
	}
	if aggErr.Message != "Can only complete pieces that are in progress" {
		t.Fatalf("message: %q", aggErr.Message)
	}
	if !errors.Is(err, ErrPrecondition) {
		t.Fatalf("sentinel should stay reachable through Unwrap")
	}
}

func TestMapErrorPassesThroughAggregateErrors(t *testing.T) {
	in := domainagg.NewError(domainagg.CodeRetryable, "op", "retry", errors.New("boom"))
	if out := MapError("other", in); out != in {
		t.Fatalf("expected passthrough")
	}
	if MapError("op", nil) != nil {
		t.Fatalf("nil must map to nil")
	}
}
