package chat

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/puzzleplan-backend/internal/data/repos/testutil"
	"github.com/yungbote/puzzleplan-backend/internal/platform/dbctx"
)

func TestMessageRepoAppendAssignsSeq(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	convs := NewConversationRepo(db, testutil.Logger(t))
	msgs := NewMessageRepo(db, testutil.Logger(t))

	project := testutil.SeedProject(t, ctx, db, uuid.New(), "Chatty")
	conv := testutil.SeedConversation(t, ctx, db, project.ID, project.UserID, nil)

	for i, role := range []string{"user", "assistant", "USER"} {
		m, err := msgs.Append(dbc, conv.ID, role, "hello")
		if err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
		if m.Seq != int64(i+1) {
			t.Fatalf("Append %d: want seq %d got %d", i, i+1, m.Seq)
		}
	}
	if _, err := msgs.Append(dbc, conv.ID, "narrator", "x"); err == nil {
		t.Fatalf("expected invalid role error")
	}

	list, err := msgs.ListByConversation(dbc, conv.ID, 0)
	if err != nil || len(list) != 3 {
		t.Fatalf("ListByConversation: len=%d err=%v", len(list), err)
	}
	if list[2].Role != "user" {
		t.Fatalf("role should be normalized, got %q", list[2].Role)
	}

	ids, err := convs.ListIDsByProjectIDs(dbc, []uuid.UUID{project.ID})
	if err != nil || len(ids) != 1 || ids[0] != conv.ID {
		t.Fatalf("ListIDsByProjectIDs: %v %v", ids, err)
	}
	if err := msgs.DeleteByConversationIDs(dbc, ids); err != nil {
		t.Fatalf("DeleteByConversationIDs: %v", err)
	}
	if err := convs.DeleteByProjectIDs(dbc, []uuid.UUID{project.ID}); err != nil {
		t.Fatalf("DeleteByProjectIDs: %v", err)
	}
	if c, err := convs.GetByID(dbc, conv.ID); err != nil || c != nil {
		t.Fatalf("conversation should be deleted: %v %v", c, err)
	}
}
