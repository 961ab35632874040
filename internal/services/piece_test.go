package services

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"

	types "github.com/yungbote/puzzleplan-backend/internal/domain"
	domainagg "github.com/yungbote/puzzleplan-backend/internal/domain/aggregates"
	"github.com/yungbote/puzzleplan-backend/internal/platform/apierr"
	"github.com/yungbote/puzzleplan-backend/internal/realtime"
)

func pieceOf(board *ProjectBoard, t types.PieceType) *types.PuzzlePiece {
	for _, p := range board.Pieces {
		if p.PieceType == t {
			return p
		}
	}
	return nil
}

func TestPieceOpenAndCompleteUnlocksNext(t *testing.T) {
	f := newServiceFixture(t)
	ctx := asUser(uuid.New())
	board, err := f.projects.Create(ctx, "Flow", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	opened, err := f.pieces.Open(ctx, board.Project.ID, "purpose")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if opened.Status != types.StatusInProgress {
		t.Fatalf("opened status: %s", opened.Status)
	}
	again, err := f.pieces.Open(ctx, board.Project.ID, "purpose")
	if err != nil || again.Status != types.StatusInProgress {
		t.Fatalf("re-open should be a no-op: %v %v", err, again)
	}

	res, err := f.pieces.Complete(ctx, opened.ID, "  We help people write  ")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if res.Piece.Status != types.StatusComplete || *res.Piece.Summary != "We help people write" {
		t.Fatalf("completed piece: %+v", res.Piece)
	}
	if len(res.Unlocked) != 1 || res.Unlocked[0] != types.PieceCustomers {
		t.Fatalf("unlocked: %v", res.Unlocked)
	}

	var statusEvents int
	for _, ev := range f.emitter.events() {
		if ev == realtime.SSEEventPieceStatusChanged {
			statusEvents++
		}
	}
	if statusEvents != 3 {
		t.Fatalf("want open + complete + unlock events, got %d", statusEvents)
	}

	reloaded, _ := f.projects.GetBoard(ctx, board.Project.ID)
	if pieceOf(reloaded, types.PieceCustomers).Status != types.StatusAvailable {
		t.Fatalf("customers should be available")
	}
	if pieceOf(reloaded, types.PieceBoundaries).Status != types.StatusLocked {
		t.Fatalf("boundaries should stay locked")
	}
}

func TestPieceOpenRejections(t *testing.T) {
	f := newServiceFixture(t)
	ctx := asUser(uuid.New())
	board, _ := f.projects.Create(ctx, "Flow", nil)

	_, err := f.pieces.Open(ctx, board.Project.ID, "pricing")
	if ae, ok := apierr.As(err); !ok || ae.Status != http.StatusBadRequest {
		t.Fatalf("unknown type: %v", err)
	}
	if _, err := f.pieces.Open(ctx, board.Project.ID, "mvp"); !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("locked piece should be not found, got %v", err)
	}
	_, err = f.pieces.Open(asUser(uuid.New()), board.Project.ID, "purpose")
	if ae, ok := apierr.As(err); !ok || ae.Status != http.StatusNotFound {
		t.Fatalf("stranger open: %v", err)
	}
}

func TestPieceCompleteRejections(t *testing.T) {
	f := newServiceFixture(t)
	ctx := asUser(uuid.New())
	board, _ := f.projects.Create(ctx, "Flow", nil)
	purpose := pieceOf(board, types.PiecePurpose)

	if _, err := f.pieces.Complete(ctx, purpose.ID, "   "); err == nil {
		t.Fatalf("blank summary should fail")
	}
	if _, err := f.pieces.Complete(ctx, purpose.ID, "done"); !domainagg.IsCode(err, domainagg.CodePreconditionFailed) {
		t.Fatalf("available piece: want precondition, got %v", err)
	}
	if _, err := f.pieces.Complete(ctx, uuid.New(), "done"); !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("missing piece: want not found, got %v", err)
	}
	if _, err := f.pieces.Open(ctx, board.Project.ID, "purpose"); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := f.pieces.Complete(asUser(uuid.New()), purpose.ID, "done"); !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("stranger complete: want not found, got %v", err)
	}
}

func TestPieceUpdateContent(t *testing.T) {
	f := newServiceFixture(t)
	ctx := asUser(uuid.New())
	board, _ := f.projects.Create(ctx, "Flow", nil)
	purpose := pieceOf(board, types.PiecePurpose)

	content := json.RawMessage(`{"vision":"draft"}`)
	if _, err := f.pieces.UpdateContent(ctx, purpose.ID, content); !domainagg.IsCode(err, domainagg.CodePreconditionFailed) {
		t.Fatalf("draft on available piece: %v", err)
	}
	if _, err := f.pieces.Open(ctx, board.Project.ID, "purpose"); err != nil {
		t.Fatalf("Open: %v", err)
	}
	saved, err := f.pieces.UpdateContent(ctx, purpose.ID, content)
	if err != nil {
		t.Fatalf("UpdateContent: %v", err)
	}
	if string(saved.Content) != string(content) {
		t.Fatalf("content: %s", saved.Content)
	}
	if _, err := f.pieces.UpdateContent(ctx, purpose.ID, json.RawMessage(`{bad`)); !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("invalid json: %v", err)
	}
}

func TestPieceMetadataIsOrdered(t *testing.T) {
	f := newServiceFixture(t)
	md := f.pieces.Metadata()
	if len(md) != 5 || md[0].Type != types.PiecePurpose || md[4].Type != types.PieceMVP {
		t.Fatalf("metadata: %+v", md)
	}
}
