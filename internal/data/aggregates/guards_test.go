package aggregates

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/puzzleplan-backend/internal/data/db"
	domainagg "github.com/yungbote/puzzleplan-backend/internal/domain/aggregates"
	"github.com/yungbote/puzzleplan-backend/internal/domain/planning"
	"github.com/yungbote/puzzleplan-backend/internal/platform/dbctx"
)

func TestRequireStatus(t *testing.T) {
	if err := RequireStatus(planning.StatusInProgress, "nope", planning.StatusInProgress); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	err := RequireStatus(planning.StatusAvailable, "Can only complete pieces that are in progress", planning.StatusInProgress)
	if !domainagg.IsCode(MapError("op", err), domainagg.CodePreconditionFailed) {
		t.Fatalf("expected precondition error, got %v", err)
	}
	if err := RequireStatus(planning.StatusLocked, "msg"); err == nil {
		t.Fatalf("empty allowed list must be rejected")
	}
}

func TestRequireCASSuccess(t *testing.T) {
	if err := RequireCASSuccess(true, "ok"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !domainagg.IsCode(MapError("op", RequireCASSuccess(false, "stale")), domainagg.CodeConflict) {
		t.Fatalf("expected conflict")
	}
}

func TestCASGuardOnlyMatchesExpectedStatus(t *testing.T) {
	gdb, err := db.OpenSQLite(":memory:", nil)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrateAll(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	projectID := uuid.New()
	locked := &planning.PuzzlePiece{ID: uuid.New(), ProjectID: projectID, PieceType: planning.PieceCustomers, Status: planning.StatusLocked}
	open := &planning.PuzzlePiece{ID: uuid.New(), ProjectID: projectID, PieceType: planning.PieceBoundaries, Status: planning.StatusAvailable}
	for _, p := range []*planning.PuzzlePiece{locked, open} {
		if err := gdb.Create(p).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	g := NewCASGuard(gdb)
	dbc := dbctx.Context{Ctx: context.Background()}
	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	ok, err := g.Piece(dbc, open.ID, PieceUpdate{From: planning.StatusLocked, Status: planning.StatusAvailable, At: at})
	if err != nil || ok {
		t.Fatalf("available piece must not match a locked guard: ok=%v err=%v", ok, err)
	}
	ok, err = g.Piece(dbc, locked.ID, PieceUpdate{From: planning.StatusLocked, Status: planning.StatusAvailable, At: at})
	if err != nil || !ok {
		t.Fatalf("locked piece should match: ok=%v err=%v", ok, err)
	}

	var got planning.PuzzlePiece
	if err := gdb.First(&got, "id = ?", locked.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Status != planning.StatusAvailable || !got.UpdatedAt.Equal(at) {
		t.Fatalf("unexpected row: status=%s updated_at=%s", got.Status, got.UpdatedAt)
	}

	ok, err = g.Piece(dbc, locked.ID, PieceUpdate{From: planning.StatusLocked, Status: planning.StatusAvailable})
	if err != nil || ok {
		t.Fatalf("second unlock should lose the CAS: ok=%v err=%v", ok, err)
	}
	if _, err := g.Piece(dbc, uuid.Nil, PieceUpdate{From: planning.StatusLocked}); err == nil {
		t.Fatalf("nil id should be rejected")
	}
	if _, err := g.Piece(dbc, open.ID, PieceUpdate{From: "bogus"}); err == nil {
		t.Fatalf("invalid expected status should be rejected")
	}
}

func TestAdvanceFollowsStateMachine(t *testing.T) {
	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	cases := map[planning.PieceStatus]planning.PieceStatus{
		planning.StatusAvailable:  planning.StatusLocked,
		planning.StatusInProgress: planning.StatusAvailable,
		planning.StatusComplete:   planning.StatusInProgress,
	}
	for to, from := range cases {
		u := advance(to, at)
		if u.From != from || u.Status != to || !u.At.Equal(at) {
			t.Fatalf("advance(%s): %+v", to, u)
		}
	}
	if u := advance(planning.StatusLocked, at); u.From.Valid() {
		t.Fatalf("nothing moves into locked, got from=%s", u.From)
	}
}
