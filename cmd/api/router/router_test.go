package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"chat-relay/cmd/api/auth"
	"chat-relay/cmd/api/broadcast"
	"chat-relay/cmd/api/clients/completionclient"
	"chat-relay/cmd/api/clientstate"
	"chat-relay/cmd/api/services"
	"chat-relay/models"
	"chat-relay/repositories"
)

type memoryStore struct {
	mu       sync.Mutex
	seq      int64
	sessions map[int64]models.ChatSession
	messages []models.ChatMessage
	logs     []models.CompletionLog
	clock    time.Time
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		sessions: map[int64]models.ChatSession{},
		clock:    time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (s *memoryStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *memoryStore) Create(_ context.Context, ownerCode string) (*models.ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	session := models.ChatSession{ID: s.seq, CreatedAt: s.tick(), OwnerCode: ownerCode}
	s.sessions[session.ID] = session
	return &session, nil
}

func (s *memoryStore) FindByID(_ context.Context, id int64) (*models.ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &session, nil
}

func (s *memoryStore) FindByIDAndOwner(ctx context.Context, id int64, ownerCode string) (*models.ChatSession, error) {
	session, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ownerCode == "" || session.OwnerCode != ownerCode {
		return nil, repositories.ErrNotFound
	}
	return session, nil
}

func (s *memoryStore) Append(_ context.Context, sessionID int64, role, content string) (*models.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := models.ChatMessage{ID: primitive.NewObjectID(), SessionID: sessionID, Role: role, Content: content, Timestamp: s.tick()}
	s.messages = append(s.messages, m)
	return &m, nil
}

func (s *memoryStore) ListBySession(_ context.Context, sessionID int64) ([]models.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.ChatMessage{}
	for _, m := range s.messages {
		if m.SessionID == sessionID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *memoryStore) Insert(_ context.Context, log models.CompletionLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, log)
	return nil
}

type stubProvider struct {
	reply string
	err   error
	panic bool
}

func (p *stubProvider) Name() string  { return "stub" }
func (p *stubProvider) Model() string { return "stub-model" }
func (p *stubProvider) Complete(context.Context, []completionclient.Message) (string, error) {
	if p.panic {
		panic("provider exploded")
	}
	return p.reply, p.err
}

type testEnv struct {
	engine   *gin.Engine
	store    *memoryStore
	provider *stubProvider
	tokens   *auth.JWTManager
	codec    clientstate.Codec
	hub      *broadcast.Hub
	pingErr  error
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens, err := auth.NewJWTManager("test-secret", "chat-relay", time.Hour)
	require.NoError(t, err)

	env := &testEnv{
		store:    newMemoryStore(),
		provider: &stubProvider{reply: "Python is a programming language."},
		tokens:   tokens,
		codec:    clientstate.Codec{CookieName: "chat_state", MaxPrevious: 100},
		hub:      broadcast.NewHub(16),
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go env.hub.Run(ctx)

	env.engine = New(Deps{
		Chat:           services.NewChatService(env.store, env.store, env.store, env.provider),
		History:        services.NewHistoryService(env.store, env.store),
		Broadcast:      broadcast.NewServer(env.hub, nil, nil),
		Codec:          env.codec,
		Tokens:         tokens,
		Ping:           func(context.Context) error { return env.pingErr },
		AllowedOrigins: []string{"http://localhost:3000"},
		DefaultRoom:    "chat_room",
	})
	return env
}

type call struct {
	method string
	path   string
	body   string
	state  string
	token  string
}

func (e *testEnv) do(c call) *httptest.ResponseRecorder {
	var req *http.Request
	if c.body != "" {
		req = httptest.NewRequest(c.method, c.path, strings.NewReader(c.body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(c.method, c.path, nil)
	}
	if c.state != "" {
		req.Header.Set(clientstate.HeaderName, c.state)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func TestChatCreatesSessionAndReturnsSuggestions(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(call{method: http.MethodPost, path: "/api/chat/", body: `{"message":"What is Python?"}`})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"reply":"Python is a programming language."`)
	assert.Contains(t, w.Body.String(), "Features of Python")

	state := env.codec.Decode(w.Header().Get(clientstate.HeaderName))
	assert.Equal(t, int64(1), state.Current)
	assert.Contains(t, w.Header().Get("Set-Cookie"), "chat_state=")
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
	assert.Len(t, env.store.messages, 2)
	assert.Len(t, env.store.logs, 1)
}

func TestChatCookieCarriesStateAcrossRequests(t *testing.T) {
	env := newTestEnv(t)
	first := env.do(call{method: http.MethodPost, path: "/api/chat/", body: `{"message":"hi"}`})
	require.Equal(t, http.StatusOK, first.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/chat/", strings.NewReader(`{"message":"again"}`))
	req.Header.Set("Content-Type", "application/json")
	for _, ck := range first.Result().Cookies() {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	env.engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, env.store.sessions, 1)
	assert.Len(t, env.store.messages, 4)
}

func TestChatValidationErrors(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(call{method: http.MethodPost, path: "/api/chat/", body: `{"message":"   "}`})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"message_empty"}`, w.Body.String())

	w = env.do(call{method: http.MethodPost, path: "/api/chat/", body: `{not json`})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"invalid_request"}`, w.Body.String())

	assert.Empty(t, env.store.messages)
	assert.Empty(t, env.store.sessions)
}

func TestChatUpstreamErrorReturnsCodeOnly(t *testing.T) {
	env := newTestEnv(t)
	env.provider.err = &completionclient.HTTPError{StatusCode: http.StatusBadGateway, Body: "upstream secret detail"}

	w := env.do(call{method: http.MethodPost, path: "/api/chat/", body: `{"message":"hello"}`})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"upstream_status_error"}`, w.Body.String())
	assert.NotContains(t, w.Body.String(), "secret")
	assert.Equal(t, int64(1), env.codec.Decode(w.Header().Get(clientstate.HeaderName)).Current)
	require.Len(t, env.store.messages, 1)
	assert.Equal(t, models.RoleUser, env.store.messages[0].Role)
}

func TestWrongMethodIsBadRequest(t *testing.T) {
	env := newTestEnv(t)

	for _, c := range []call{
		{method: http.MethodGet, path: "/api/chat/"},
		{method: http.MethodGet, path: "/api/clear_conversation/"},
		{method: http.MethodPost, path: "/api/chat_history/"},
	} {
		w := env.do(c)
		assert.Equal(t, http.StatusBadRequest, w.Code, c.path)
		assert.JSONEq(t, `{"error":"Invalid request method"}`, w.Body.String())
	}
}

func TestPanicIsRecovered(t *testing.T) {
	env := newTestEnv(t)
	env.provider.panic = true

	w := env.do(call{method: http.MethodPost, path: "/api/chat/", body: `{"message":"boom"}`})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal_error"}`, w.Body.String())
}

func TestClearThenHistory(t *testing.T) {
	env := newTestEnv(t)
	chat := env.do(call{method: http.MethodPost, path: "/api/chat/", body: `{"message":"What is Python?"}`})
	require.Equal(t, http.StatusOK, chat.Code)

	clear := env.do(call{method: http.MethodPost, path: "/api/clear_conversation/", state: chat.Header().Get(clientstate.HeaderName)})
	require.Equal(t, http.StatusOK, clear.Code)
	assert.JSONEq(t, `{"status":"Conversation cleared","new_session_id":2}`, clear.Body.String())

	state := clear.Header().Get(clientstate.HeaderName)
	decoded := env.codec.Decode(state)
	assert.Equal(t, int64(2), decoded.Current)
	assert.Equal(t, []int64{1}, decoded.Previous)

	hist := env.do(call{method: http.MethodGet, path: "/api/chat_history/", state: state})
	require.Equal(t, http.StatusOK, hist.Code)
	assert.JSONEq(t, `{"history":[{"session_id":1,"created_at":"2025-03-01 09:00:01","messages":[
		{"role":"user","content":"What is Python?","timestamp":"2025-03-01 09:00:02"},
		{"role":"assistant","content":"Python is a programming language.","timestamp":"2025-03-01 09:00:03"}
	]}]}`, hist.Body.String())
}

func TestHistoryWithGarbageStateIsEmpty(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(call{method: http.MethodGet, path: "/api/chat_history/", state: "%%%not-base64"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"history":[]}`, w.Body.String())
}

func TestExportChat(t *testing.T) {
	env := newTestEnv(t)
	owner, err := env.tokens.Sign("user-1", auth.RoleUser)
	require.NoError(t, err)
	intruder, err := env.tokens.Sign("user-2", auth.RoleUser)
	require.NoError(t, err)

	chat := env.do(call{method: http.MethodPost, path: "/api/chat/", body: `{"message":"What is Python?"}`, token: owner})
	require.Equal(t, http.StatusOK, chat.Code)

	w := env.do(call{method: http.MethodGet, path: "/api/export_chat/1/", token: owner})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "attachment; filename=chat_session_1.txt", w.Header().Get("Content-Disposition"))
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "Chat Session 1 (Started: 2025-03-01 09:00:01)\n\n"+
		"2025-03-01 09:00:02 - User: What is Python?\n"+
		"2025-03-01 09:00:03 - Assistant: Python is a programming language.\n", w.Body.String())

	again := env.do(call{method: http.MethodGet, path: "/api/export_chat/1/", token: owner})
	assert.Equal(t, w.Body.String(), again.Body.String())

	w = env.do(call{method: http.MethodGet, path: "/api/export_chat/1/"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(call{method: http.MethodGet, path: "/api/export_chat/1/", token: intruder})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Session not found", w.Body.String())

	w = env.do(call{method: http.MethodGet, path: "/api/export_chat/abc/", token: owner})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(call{method: http.MethodGet, path: "/api/export_chat/99/", token: owner})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInvalidTokenIsRejected(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(call{method: http.MethodPost, path: "/api/chat/", body: `{"message":"hi"}`, token: "not-a-jwt"})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, env.store.messages)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(call{method: http.MethodGet, path: "/health"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	env.pingErr = errors.New("mongo down")
	w = env.do(call{method: http.MethodGet, path: "/health"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/chat/", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "content-type,x-chat-state")
	w := httptest.NewRecorder()

	env.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestWebSocketRoutes(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.engine)
	defer srv.Close()
	base := "ws" + strings.TrimPrefix(srv.URL, "http")

	defaultRoom, _, err := websocket.DefaultDialer.Dial(base+"/ws/chat/", nil)
	require.NoError(t, err)
	defer defaultRoom.Close()
	named, _, err := websocket.DefaultDialer.Dial(base+"/ws/chat/chat_room", nil)
	require.NoError(t, err)
	defer named.Close()

	require.Eventually(t, func() bool {
		n, err := env.hub.RoomSize(context.Background(), "chat_room")
		return err == nil && n == 2
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, defaultRoom.WriteMessage(websocket.TextMessage, []byte(`{"message":"hello room"}`)))

	for _, conn := range []*websocket.Conn{defaultRoom, named} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.JSONEq(t, `{"message":"hello room"}`, string(data))
	}
	// 브로드캐스트는 저장하지 않는다.
	assert.Empty(t, env.store.messages)
}
