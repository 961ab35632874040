package services

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/puzzleplan-backend/internal/data/aggregates"
	"github.com/yungbote/puzzleplan-backend/internal/data/repos"
	"github.com/yungbote/puzzleplan-backend/internal/data/repos/testutil"
	"github.com/yungbote/puzzleplan-backend/internal/platform/anthropic"
	"github.com/yungbote/puzzleplan-backend/internal/platform/ctxutil"
	"github.com/yungbote/puzzleplan-backend/internal/prompts"
	"github.com/yungbote/puzzleplan-backend/internal/realtime"
)

type recordingEmitter struct {
	mu   sync.Mutex
	msgs []realtime.SSEMessage
}

func (e *recordingEmitter) Emit(ctx context.Context, msg realtime.SSEMessage) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.msgs = append(e.msgs, msg)
}

func (e *recordingEmitter) events() []realtime.SSEEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]realtime.SSEEvent, 0, len(e.msgs))
	for _, m := range e.msgs {
		out = append(out, m.Event)
	}
	return out
}

type fakeLLM struct {
	reply  []string
	err    error
	gotReq anthropic.Request
}

func (f *fakeLLM) Model() string { return "fake" }

func (f *fakeLLM) StreamMessages(ctx context.Context, req anthropic.Request, onDelta func(string)) (string, error) {
	f.gotReq = req
	full := ""
	for _, d := range f.reply {
		full += d
		if onDelta != nil {
			onDelta(d)
		}
	}
	return full, f.err
}

type serviceFixture struct {
	db       *gorm.DB
	emitter  *recordingEmitter
	llm      *fakeLLM
	projects ProjectService
	pieces   PieceService
	chat     ChatService
	library  *PromptLibrary
	repos    struct {
		projects repos.ProjectRepo
		pieces   repos.PuzzlePieceRepo
		convs    repos.ConversationRepo
		msgs     repos.MessageRepo
	}
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	f := &serviceFixture{db: testutil.DB(t), emitter: &recordingEmitter{}, llm: &fakeLLM{}}
	log := testutil.Logger(t)
	f.repos.projects = repos.NewProjectRepo(f.db, log)
	f.repos.pieces = repos.NewPuzzlePieceRepo(f.db, log)
	f.repos.convs = repos.NewConversationRepo(f.db, log)
	f.repos.msgs = repos.NewMessageRepo(f.db, log)
	board := aggregates.NewBoardAggregate(aggregates.BoardAggregateDeps{
		Base:          aggregates.BaseDeps{DB: f.db, Log: log},
		Projects:      f.repos.projects,
		Pieces:        f.repos.pieces,
		Conversations: f.repos.convs,
		Messages:      f.repos.msgs,
	})
	notify := NewBoardNotifier(f.emitter)
	f.library = NewPromptLibrary(log, prompts.Bundled())
	f.projects = NewProjectService(f.db, log, board, f.repos.projects, f.repos.pieces, notify)
	f.pieces = NewPieceService(log, board, f.repos.projects, f.repos.pieces, notify, nil)
	f.chat = NewChatService(f.db, log, f.repos.projects, f.repos.pieces, f.repos.convs, f.repos.msgs, f.library, f.llm)
	return f
}

func asUser(userID uuid.UUID) context.Context {
	return ctxutil.WithRequestData(context.Background(), &ctxutil.RequestData{UserID: userID, SessionID: uuid.New()})
}
