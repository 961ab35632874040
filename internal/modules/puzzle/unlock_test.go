package puzzle

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/puzzleplan-backend/internal/domain/planning"
)

type board struct {
	ids    map[planning.PieceType]uuid.UUID
	pieces []PieceState
}

func newBoard(statuses map[planning.PieceType]planning.PieceStatus) *board {
	b := &board{ids: map[planning.PieceType]uuid.UUID{}}
	for _, t := range planning.AllPieceTypes() {
		st, ok := statuses[t]
		if !ok {
			continue
		}
		id := uuid.New()
		b.ids[t] = id
		b.pieces = append(b.pieces, PieceState{ID: id, Type: t, Status: st})
	}
	return b
}

func (b *board) apply(ids []uuid.UUID, st planning.PieceStatus) {
	set := map[uuid.UUID]bool{}
	for _, id := range ids {
		set[id] = true
	}
	for i := range b.pieces {
		if set[b.pieces[i].ID] {
			b.pieces[i].Status = st
		}
	}
}

func (b *board) types(ids []uuid.UUID) []planning.PieceType {
	byID := map[uuid.UUID]planning.PieceType{}
	for t, id := range b.ids {
		byID[id] = t
	}
	out := make([]planning.PieceType, 0, len(ids))
	for _, id := range ids {
		out = append(out, byID[id])
	}
	return out
}

func assertTypes(t *testing.T, got, want []planning.PieceType) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("unlocked: want=%v got=%v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unlocked: want=%v got=%v", want, got)
		}
	}
}

func TestComputeUnlocksCompletingPurpose(t *testing.T) {
	b := newBoard(map[planning.PieceType]planning.PieceStatus{
		planning.PiecePurpose:    planning.StatusInProgress,
		planning.PieceCustomers:  planning.StatusLocked,
		planning.PieceBoundaries: planning.StatusLocked,
		planning.PieceFeatures:   planning.StatusLocked,
		planning.PieceMVP:        planning.StatusLocked,
	})
	got := ComputeUnlocks(b.pieces, b.ids[planning.PiecePurpose])
	assertTypes(t, b.types(got), []planning.PieceType{planning.PieceCustomers})
}

func TestComputeUnlocksCompletingBoundaries(t *testing.T) {
	b := newBoard(map[planning.PieceType]planning.PieceStatus{
		planning.PiecePurpose:    planning.StatusComplete,
		planning.PieceCustomers:  planning.StatusComplete,
		planning.PieceBoundaries: planning.StatusInProgress,
		planning.PieceFeatures:   planning.StatusLocked,
		planning.PieceMVP:        planning.StatusLocked,
	})
	got := ComputeUnlocks(b.pieces, b.ids[planning.PieceBoundaries])
	assertTypes(t, b.types(got), []planning.PieceType{planning.PieceFeatures})
}

func TestComputeUnlocksCompletingMVPUnlocksNothing(t *testing.T) {
	b := newBoard(map[planning.PieceType]planning.PieceStatus{
		planning.PiecePurpose:    planning.StatusComplete,
		planning.PieceCustomers:  planning.StatusComplete,
		planning.PieceBoundaries: planning.StatusComplete,
		planning.PieceFeatures:   planning.StatusComplete,
		planning.PieceMVP:        planning.StatusInProgress,
	})
	got := ComputeUnlocks(b.pieces, b.ids[planning.PieceMVP])
	if got == nil || len(got) != 0 {
		t.Fatalf("want empty non-nil result, got %#v", got)
	}
}

func TestComputeUnlocksNeverTouchesNonLockedPieces(t *testing.T) {
	// Prerequisites of customers and boundaries are satisfied, but neither
	// is locked.
	b := newBoard(map[planning.PieceType]planning.PieceStatus{
		planning.PiecePurpose:    planning.StatusComplete,
		planning.PieceCustomers:  planning.StatusAvailable,
		planning.PieceBoundaries: planning.StatusInProgress,
		planning.PieceFeatures:   planning.StatusLocked,
		planning.PieceMVP:        planning.StatusLocked,
	})
	got := ComputeUnlocks(b.pieces, b.ids[planning.PiecePurpose])
	if len(got) != 0 {
		t.Fatalf("want no unlocks, got %v", b.types(got))
	}
}

// Exhaustive over every status assignment: the result is exactly the locked
// pieces whose prerequisites are a subset of the complete set.
func TestComputeUnlocksMatchesSubsetRule(t *testing.T) {
	statuses := []planning.PieceStatus{
		planning.StatusLocked,
		planning.StatusAvailable,
		planning.StatusInProgress,
		planning.StatusComplete,
	}
	types := planning.AllPieceTypes()
	total := 1
	for range types {
		total *= len(statuses)
	}
	for n := 0; n < total; n++ {
		assign := map[planning.PieceType]planning.PieceStatus{}
		k := n
		for _, pt := range types {
			assign[pt] = statuses[k%len(statuses)]
			k /= len(statuses)
		}
		b := newBoard(assign)
		got := map[uuid.UUID]bool{}
		for _, id := range ComputeUnlocks(b.pieces, uuid.Nil) {
			got[id] = true
		}
		for _, pt := range types {
			want := assign[pt] == planning.StatusLocked
			for _, pre := range planning.Prerequisites(pt) {
				if assign[pre] != planning.StatusComplete {
					want = false
				}
			}
			if got[b.ids[pt]] != want {
				t.Fatalf("assignment %v: %s unlocked=%v want=%v", assign, pt, got[b.ids[pt]], want)
			}
		}
	}
}

func TestComputeUnlocksIsIdempotentAfterApply(t *testing.T) {
	b := newBoard(map[planning.PieceType]planning.PieceStatus{
		planning.PiecePurpose:    planning.StatusInProgress,
		planning.PieceCustomers:  planning.StatusLocked,
		planning.PieceBoundaries: planning.StatusLocked,
		planning.PieceFeatures:   planning.StatusLocked,
		planning.PieceMVP:        planning.StatusLocked,
	})
	completed := b.ids[planning.PiecePurpose]
	first := ComputeUnlocks(b.pieces, completed)
	b.apply([]uuid.UUID{completed}, planning.StatusComplete)
	b.apply(first, planning.StatusAvailable)

	if again := ComputeUnlocks(b.pieces, completed); len(again) != 0 {
		t.Fatalf("second evaluation unlocked %v", b.types(again))
	}
}

func TestComputeUnlocksDoesNotMutateInput(t *testing.T) {
	b := newBoard(map[planning.PieceType]planning.PieceStatus{
		planning.PiecePurpose:   planning.StatusInProgress,
		planning.PieceCustomers: planning.StatusLocked,
	})
	before := append([]PieceState(nil), b.pieces...)
	_ = ComputeUnlocks(b.pieces, b.ids[planning.PiecePurpose])
	for i := range before {
		if before[i] != b.pieces[i] {
			t.Fatalf("input mutated at %d: %+v -> %+v", i, before[i], b.pieces[i])
		}
	}
}

func TestComputeUnlocksPartialBoard(t *testing.T) {
	// customers row is missing: boundaries must stay locked.
	b := newBoard(map[planning.PieceType]planning.PieceStatus{
		planning.PiecePurpose:    planning.StatusInProgress,
		planning.PieceBoundaries: planning.StatusLocked,
		planning.PieceMVP:        planning.StatusLocked,
	})
	got := ComputeUnlocks(b.pieces, b.ids[planning.PiecePurpose])
	if len(got) != 0 {
		t.Fatalf("want no unlocks on partial board, got %v", b.types(got))
	}

	if got := ComputeUnlocks(nil, uuid.New()); got == nil || len(got) != 0 {
		t.Fatalf("empty board: got %#v", got)
	}
}

func TestComputeUnlocksLockedRootUnlocksUnconditionally(t *testing.T) {
	b := newBoard(map[planning.PieceType]planning.PieceStatus{
		planning.PiecePurpose:   planning.StatusLocked,
		planning.PieceCustomers: planning.StatusLocked,
	})
	got := ComputeUnlocks(b.pieces, uuid.Nil)
	assertTypes(t, b.types(got), []planning.PieceType{planning.PiecePurpose})
}

func TestInitialStatesMatchBaselineUnlocks(t *testing.T) {
	initial := InitialStates()
	if initial[planning.PiecePurpose] != planning.StatusAvailable {
		t.Fatalf("purpose should start available, got %s", initial[planning.PiecePurpose])
	}
	allLocked := map[planning.PieceType]planning.PieceStatus{}
	for _, pt := range planning.AllPieceTypes() {
		allLocked[pt] = planning.StatusLocked
		if len(planning.Prerequisites(pt)) == 0 && initial[pt] != planning.StatusAvailable {
			t.Fatalf("%s has no prerequisites but starts %s", pt, initial[pt])
		}
	}

	b := newBoard(allLocked)
	unlocked := map[planning.PieceType]bool{}
	for _, pt := range b.types(ComputeUnlocks(b.pieces, uuid.Nil)) {
		unlocked[pt] = true
	}
	for _, pt := range planning.AllPieceTypes() {
		want := planning.StatusLocked
		if unlocked[pt] {
			want = planning.StatusAvailable
		}
		if initial[pt] != want {
			t.Fatalf("%s: initial=%s baseline=%s", pt, initial[pt], want)
		}
	}
}

func TestCheckTransition(t *testing.T) {
	all := []planning.PieceStatus{
		planning.StatusLocked,
		planning.StatusAvailable,
		planning.StatusInProgress,
		planning.StatusComplete,
	}
	allowed := map[[2]planning.PieceStatus]bool{
		{planning.StatusLocked, planning.StatusAvailable}:     true,
		{planning.StatusAvailable, planning.StatusInProgress}: true,
		{planning.StatusInProgress, planning.StatusComplete}:  true,
	}
	for _, from := range all {
		for _, to := range all {
			err := CheckTransition(from, to)
			if allowed[[2]planning.PieceStatus{from, to}] {
				if err != nil {
					t.Fatalf("%s -> %s: unexpected error %v", from, to, err)
				}
				continue
			}
			if !errors.Is(err, ErrInvalidTransition) {
				t.Fatalf("%s -> %s: want ErrInvalidTransition, got %v", from, to, err)
			}
		}
	}

	if src, ok := SourceStatus(planning.StatusComplete); !ok || src != planning.StatusInProgress {
		t.Fatalf("SourceStatus(complete): %s %v", src, ok)
	}
}
