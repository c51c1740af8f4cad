package controller

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"paperchat/internal/entity"
	"paperchat/internal/mocks"
	"paperchat/internal/pkg/logger"
	"paperchat/internal/pkg/serverutils"
	"paperchat/internal/repository/contract"
	"paperchat/internal/repository/implementation"
	"paperchat/internal/repository/memory"
	"paperchat/internal/service"
	"paperchat/pkg/chat/exchange"
	"paperchat/pkg/chat/history"
	"paperchat/pkg/chat/session"
	"paperchat/pkg/remote"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type envelope struct {
	Success bool              `json:"success"`
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Errors  map[string]string `json:"errors"`
}

type controllerFixture struct {
	app       *fiber.App
	authority *mocks.Authority
	store     contract.BlobStore
}

func newControllerFixture(t *testing.T) *controllerFixture {
	t.Helper()
	log := logger.NewNopLogger()
	authority := new(mocks.Authority)
	store := memory.NewBlobStore(0)

	svc := service.NewChatService(
		authority,
		func(scope string) contract.SessionIndexRepository {
			return implementation.NewSessionIndexRepository(store, scope, log)
		},
		session.NewResolver(authority, time.Second, log),
		history.NewLoader(authority, log),
		exchange.NewCoordinator(authority, log),
		log,
	)

	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware())
	NewChatController(svc).RegisterRoutes(app.Group("/api"), serverutils.NewJwtMiddleware(testSecret))

	return &controllerFixture{app: app, authority: authority, store: store}
}

func signToken(t *testing.T, userId string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userId,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func (f *controllerFixture) do(t *testing.T, method, path, token, body string) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

// assertNoSessions accepts an omitted or empty data field.
func assertNoSessions(t *testing.T, env envelope) {
	t.Helper()
	if len(env.Data) == 0 {
		return
	}
	var sessions []json.RawMessage
	require.NoError(t, json.Unmarshal(env.Data, &sessions))
	assert.Empty(t, sessions)
}

func TestRoutesRequireToken(t *testing.T) {
	f := newControllerFixture(t)

	status, env := f.do(t, http.MethodGet, "/api/chat/v1/sessions", "", "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.False(t, env.Success)

	status, _ = f.do(t, http.MethodGet, "/api/chat/v1/sessions", "not-a-jwt", "")
	assert.Equal(t, http.StatusUnauthorized, status)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": "user-1"}).SignedString([]byte("other"))
	require.NoError(t, err)
	status, _ = f.do(t, http.MethodGet, "/api/chat/v1/sessions", forged, "")
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestOpenConversationValidation(t *testing.T) {
	f := newControllerFixture(t)
	token := signToken(t, "user-1")

	status, env := f.do(t, http.MethodPost, "/api/chat/v1/conversations", token, `{"title": "No paper"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, env.Errors, "PaperId")

	status, _ = f.do(t, http.MethodPost, "/api/chat/v1/conversations", token, `{"paper_id": `)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestConversationFlow(t *testing.T) {
	f := newControllerFixture(t)
	token := signToken(t, "user-1")

	f.authority.On("FetchSessionByPaperID", mock.MatchedBy(func(ctx context.Context) bool {
		return remote.TokenFromContext(ctx) == token
	}), "P1").Return(nil, remote.ErrSessionNotFound).Once()

	status, env := f.do(t, http.MethodPost, "/api/chat/v1/conversations", token, `{"paper_id": "P1", "title": "Attention"}`)
	require.Equal(t, http.StatusOK, status)
	var conv struct {
		Id        string  `json:"id"`
		SessionId *string `json:"session_id"`
		State     string  `json:"state"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &conv))
	assert.Nil(t, conv.SessionId)
	assert.Equal(t, "READY", conv.State)

	status, _ = f.do(t, http.MethodPost, "/api/chat/v1/conversations/"+conv.Id+"/messages", token, `{"text": "   "}`)
	assert.Equal(t, http.StatusBadRequest, status)

	f.authority.On("SendMessage", mock.Anything, mock.Anything).Return(nil, errors.New("timeout")).Once()
	status, env = f.do(t, http.MethodPost, "/api/chat/v1/conversations/"+conv.Id+"/messages", token, `{"text": "Hi"}`)
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, exchange.FailureMessage, env.Message)

	f.authority.On("SendMessage", mock.Anything, mock.Anything).Return(&entity.ChatReply{Answer: "Hello", SessionId: "S1", IsNewSession: true}, nil).Once()
	status, env = f.do(t, http.MethodPost, "/api/chat/v1/conversations/"+conv.Id+"/messages", token, `{"text": "Hi"}`)
	require.Equal(t, http.StatusOK, status)
	var sent struct {
		Answer       string `json:"answer"`
		SessionId    string `json:"session_id"`
		IsNewSession bool   `json:"is_new_session"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &sent))
	assert.Equal(t, "Hello", sent.Answer)
	assert.Equal(t, "S1", sent.SessionId)
	assert.True(t, sent.IsNewSession)

	status, env = f.do(t, http.MethodGet, "/api/chat/v1/sessions", token, "")
	require.Equal(t, http.StatusOK, status)
	var sessions []struct {
		SessionId string `json:"session_id"`
		Preview   string `json:"preview"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &sessions))
	require.Len(t, sessions, 1)
	assert.Equal(t, "Hi", sessions[0].Preview)

	// another user sees neither the conversation nor the session
	other := signToken(t, "user-2")
	status, _ = f.do(t, http.MethodGet, "/api/chat/v1/conversations/"+conv.Id, other, "")
	assert.Equal(t, http.StatusNotFound, status)
	status, env = f.do(t, http.MethodGet, "/api/chat/v1/sessions", other, "")
	require.Equal(t, http.StatusOK, status)
	assertNoSessions(t, env)

	status, _ = f.do(t, http.MethodDelete, "/api/chat/v1/conversations/"+conv.Id, token, "")
	assert.Equal(t, http.StatusOK, status)
	status, _ = f.do(t, http.MethodGet, "/api/chat/v1/conversations/"+conv.Id, token, "")
	assert.Equal(t, http.StatusNotFound, status)

	f.authority.AssertExpectations(t)
}

func TestDeleteSessionUnescapesPaperId(t *testing.T) {
	f := newControllerFixture(t)
	token := signToken(t, "user-1")
	index := implementation.NewSessionIndexRepository(f.store, "user-1", logger.NewNopLogger())
	index.Put(context.Background(), entity.SessionRecord{SessionId: "S1", PaperId: "arxiv/1706.03762", LastUsedAt: time.Now()})

	f.authority.On("DeleteSession", mock.Anything, "S1").Return(nil).Once()

	status, _ := f.do(t, http.MethodDelete, "/api/chat/v1/sessions/arxiv%2F1706.03762", token, "")
	assert.Equal(t, http.StatusOK, status)

	status, _ = f.do(t, http.MethodDelete, "/api/chat/v1/sessions/unknown", token, "")
	assert.Equal(t, http.StatusNotFound, status)
	f.authority.AssertExpectations(t)
}

func TestSyncSessions(t *testing.T) {
	f := newControllerFixture(t)
	token := signToken(t, "user-1")

	f.authority.On("ListSessions", mock.Anything).Return([]*entity.ChatSession{
		{Id: "S1", PaperId: "P1", LastMessageAt: time.Now()},
	}, nil).Once()
	status, env := f.do(t, http.MethodPost, "/api/chat/v1/sessions/sync", token, "")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"mirrored": 1}`, string(env.Data))

	f.authority.On("ListSessions", mock.Anything).Return(nil, errors.New("down")).Once()
	status, _ = f.do(t, http.MethodPost, "/api/chat/v1/sessions/sync", token, "")
	assert.Equal(t, http.StatusBadGateway, status)

	status, _ = f.do(t, http.MethodPost, "/api/chat/v1/logout", token, "")
	assert.Equal(t, http.StatusOK, status)
	status, env = f.do(t, http.MethodGet, "/api/chat/v1/sessions", token, "")
	require.Equal(t, http.StatusOK, status)
	assertNoSessions(t, env)
}
