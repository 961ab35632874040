package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/puzzleplan-backend/internal/data/aggregates"
	"github.com/yungbote/puzzleplan-backend/internal/data/repos"
	"github.com/yungbote/puzzleplan-backend/internal/data/repos/testutil"
	types "github.com/yungbote/puzzleplan-backend/internal/domain"
	httpH "github.com/yungbote/puzzleplan-backend/internal/http/handlers"
	httpMW "github.com/yungbote/puzzleplan-backend/internal/http/middleware"
	"github.com/yungbote/puzzleplan-backend/internal/platform/anthropic"
	"github.com/yungbote/puzzleplan-backend/internal/realtime"
	"github.com/yungbote/puzzleplan-backend/internal/services"
)

type scriptedLLM struct{ deltas []string }

func (s *scriptedLLM) Model() string { return "scripted" }

func (s *scriptedLLM) StreamMessages(ctx context.Context, req anthropic.Request, onDelta func(string)) (string, error) {
	var b strings.Builder
	for _, d := range s.deltas {
		b.WriteString(d)
		onDelta(d)
	}
	return b.String(), nil
}

type testServer struct {
	engine  *gin.Engine
	authCfg services.AuthConfig
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := testutil.Logger(t)
	db := testutil.DB(t)

	projects := repos.NewProjectRepo(db, log)
	pieces := repos.NewPuzzlePieceRepo(db, log)
	convs := repos.NewConversationRepo(db, log)
	msgs := repos.NewMessageRepo(db, log)
	board := aggregates.NewBoardAggregate(aggregates.BoardAggregateDeps{
		Base:          aggregates.BaseDeps{DB: db, Log: log},
		Projects:      projects,
		Pieces:        pieces,
		Conversations: convs,
		Messages:      msgs,
	})
	hub := realtime.NewSSEHub(log)
	notify := services.NewBoardNotifier(&services.HubEmitter{Hub: hub})
	prompts := services.NewPromptLibrary(log, nil)

	authCfg := services.AuthConfig{Secret: "router-test-secret"}
	authSvc, err := services.NewAuthService(log, authCfg)
	if err != nil {
		t.Fatalf("auth: %v", err)
	}

	engine := NewRouter(RouterConfig{
		Log:             log,
		AuthMiddleware:  httpMW.NewAuthMiddleware(log, authSvc),
		RealtimeHandler: httpH.NewRealtimeHandler(log, hub),
		ProjectHandler:  httpH.NewProjectHandler(log, services.NewProjectService(db, log, board, projects, pieces, notify)),
		PieceHandler:    httpH.NewPieceHandler(log, services.NewPieceService(log, board, projects, pieces, notify, nil)),
		ChatHandler: httpH.NewChatHandler(log, services.NewChatService(db, log, projects, pieces, convs, msgs, prompts,
			&scriptedLLM{deltas: []string{"Hello ", "founder"}})),
		DevHandler:    httpH.NewDevHandler(prompts),
		HealthHandler: httpH.NewHealthHandler(db),
	})
	return &testServer{engine: engine, authCfg: authCfg}
}

func (s *testServer) token(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	tok, err := services.SignToken(s.authCfg, userID, time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func (s *testServer) do(t *testing.T, tok, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

type boardBody struct {
	Project *types.Project       `json:"project"`
	Pieces  []*types.PuzzlePiece `json:"pieces"`
}

func TestHealthcheckIsPublic(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, "", http.MethodGet, "/healthcheck", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthcheck: %d %q", rec.Code, rec.Body.String())
	}
}

func TestAPIRequiresToken(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, "", http.MethodGet, "/api/projects", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("want 401, got %d", rec.Code)
	}
}

func TestBoardFlowOverHTTP(t *testing.T) {
	s := newTestServer(t)
	tok := s.token(t, uuid.New())

	rec := s.do(t, tok, http.MethodPost, "/api/projects", map[string]any{"name": "Basket"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	board := decode[boardBody](t, rec)
	projectPath := "/api/projects/" + board.Project.ID.String()

	rec = s.do(t, tok, http.MethodPost, projectPath+"/pieces/purpose/open", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("open: %d %s", rec.Code, rec.Body.String())
	}
	opened := decode[struct {
		Piece *types.PuzzlePiece `json:"piece"`
	}](t, rec)

	rec = s.do(t, tok, http.MethodPost, "/api/pieces/complete", map[string]any{
		"pieceId": opened.Piece.ID.String(),
		"summary": "Stop forgetting milk",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("complete: %d %s", rec.Code, rec.Body.String())
	}
	done := decode[struct {
		Success  bool              `json:"success"`
		Message  string            `json:"message"`
		Unlocked []types.PieceType `json:"unlocked"`
	}](t, rec)
	if !done.Success || done.Message != "Piece completed successfully" || len(done.Unlocked) != 1 || done.Unlocked[0] != types.PieceCustomers {
		t.Fatalf("complete body: %+v", done)
	}

	rec = s.do(t, tok, http.MethodPost, "/api/pieces/complete", map[string]any{
		"pieceId": opened.Piece.ID.String(),
		"summary": "again",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("re-complete: want 400, got %d", rec.Code)
	}

	rec = s.do(t, tok, http.MethodGet, projectPath, nil)
	board = decode[boardBody](t, rec)
	statuses := map[types.PieceType]types.PieceStatus{}
	for _, p := range board.Pieces {
		statuses[p.PieceType] = p.Status
	}
	if statuses[types.PiecePurpose] != types.StatusComplete || statuses[types.PieceCustomers] != types.StatusAvailable || statuses[types.PieceMVP] != types.StatusLocked {
		t.Fatalf("statuses: %v", statuses)
	}

	rec = s.do(t, tok, http.MethodDelete, projectPath, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", rec.Code)
	}
	if rec = s.do(t, tok, http.MethodGet, projectPath, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("after delete: %d", rec.Code)
	}
}

func TestCompletePieceErrors(t *testing.T) {
	s := newTestServer(t)
	owner := s.token(t, uuid.New())
	stranger := s.token(t, uuid.New())

	board := decode[boardBody](t, s.do(t, owner, http.MethodPost, "/api/projects", map[string]any{"name": "Basket"}))
	var purposeID string
	for _, p := range board.Pieces {
		if p.PieceType == types.PiecePurpose {
			purposeID = p.ID.String()
		}
	}

	cases := []struct {
		name   string
		tok    string
		body   map[string]any
		status int
	}{
		{"no token", "", map[string]any{"pieceId": purposeID, "summary": "x"}, http.StatusUnauthorized},
		{"missing summary", owner, map[string]any{"pieceId": purposeID}, http.StatusBadRequest},
		{"blank summary", owner, map[string]any{"pieceId": purposeID, "summary": "   "}, http.StatusBadRequest},
		{"missing piece", owner, map[string]any{"pieceId": uuid.NewString(), "summary": "x"}, http.StatusNotFound},
		{"not owned", stranger, map[string]any{"pieceId": purposeID, "summary": "x"}, http.StatusNotFound},
		{"not in progress", owner, map[string]any{"pieceId": purposeID, "summary": "x"}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := s.do(t, tc.tok, http.MethodPost, "/api/pieces/complete", tc.body)
			if rec.Code != tc.status {
				t.Fatalf("want %d, got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestChatStreamsPlainText(t *testing.T) {
	s := newTestServer(t)
	tok := s.token(t, uuid.New())
	board := decode[boardBody](t, s.do(t, tok, http.MethodPost, "/api/projects", map[string]any{"name": "Basket"}))

	rec := s.do(t, tok, http.MethodPost, "/api/conversations", map[string]any{
		"projectId": board.Project.ID.String(),
		"pieceType": "purpose",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("conversation: %d %s", rec.Code, rec.Body.String())
	}
	conv := decode[struct {
		Conversation *types.Conversation `json:"conversation"`
	}](t, rec).Conversation

	rec = s.do(t, tok, http.MethodPost, "/api/chat", map[string]any{
		"projectId":      board.Project.ID.String(),
		"pieceType":      "purpose",
		"conversationId": conv.ID.String(),
		"messages":       []map[string]string{{"role": "user", "content": "hi"}},
	})
	if rec.Code != http.StatusOK || rec.Body.String() != "Hello founder" {
		t.Fatalf("chat: %d %q", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("content type: %q", ct)
	}

	rec = s.do(t, tok, http.MethodGet, "/api/conversations/"+conv.ID.String()+"/messages", nil)
	msgs := decode[struct {
		Messages []*types.Message `json:"messages"`
	}](t, rec).Messages
	if len(msgs) != 2 || msgs[1].Content != "Hello founder" {
		t.Fatalf("messages: %+v", msgs)
	}

	rec = s.do(t, tok, http.MethodPost, "/api/chat", map[string]any{
		"projectId": uuid.NewString(),
		"pieceType": "purpose",
		"messages":  []map[string]string{{"role": "user", "content": "hi"}},
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown project: %d", rec.Code)
	}
	rec = s.do(t, tok, http.MethodPost, "/api/chat", map[string]any{"projectId": board.Project.ID.String()})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing fields: %d", rec.Code)
	}
}

func TestPieceMetadataRoute(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, s.token(t, uuid.New()), http.MethodGet, "/api/pieces/metadata", nil)
	body := decode[struct {
		Pieces []types.PieceMetadata `json:"pieces"`
	}](t, rec)
	if len(body.Pieces) != 5 {
		t.Fatalf("metadata: %+v", body)
	}
}
