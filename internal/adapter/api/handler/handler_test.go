package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"barterhub/internal/adapter/api"
	gormrepo "barterhub/internal/adapter/repository"
	"barterhub/internal/domain/entity"
	"barterhub/internal/domain/repository"
	"barterhub/internal/infrastructure/database"
	"barterhub/internal/infrastructure/ratelimit"
	"barterhub/internal/usecase"
	"barterhub/pkg/response"
)

const testUserHeader = "X-Test-User"

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type recordingNotifier struct {
	mu      sync.Mutex
	created []string
	sent    []string
	read    [][]string
}

func (n *recordingNotifier) ChatCreated(chat *usecase.ChatResponse, recipientID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.created = append(n.created, chat.ID+">"+recipientID)
}

func (n *recordingNotifier) MessageSent(result *usecase.SendMessageResult) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, result.Message.ID)
}

func (n *recordingNotifier) MessagesRead(result *usecase.MarkReadResult) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.read = append(n.read, result.MessageIDs)
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, string, interface{}) error { return nil }

type apiFixture struct {
	e        *echo.Echo
	users    repository.UserRepository
	listings repository.ListingRepository
	media    repository.MediaRepository
	chats    *usecase.ChatUseCase
	notifier *recordingNotifier
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	db, err := database.OpenInMemory(uuid.NewString())
	require.NoError(t, err)

	f := &apiFixture{
		e:        echo.New(),
		users:    gormrepo.NewGormUserRepository(db),
		listings: gormrepo.NewGormListingRepository(db),
		media:    gormrepo.NewGormMediaRepository(db),
		notifier: &recordingNotifier{},
	}
	f.e.Validator = api.NewValidator()
	f.e.HTTPErrorHandler = response.HTTPErrorHandler
	f.chats = usecase.NewChatUseCase(
		gormrepo.NewGormChatRepository(db),
		gormrepo.NewGormMessageRepository(db),
		f.users,
		f.listings,
		f.media,
		ratelimit.NewSlidingWindow(30, time.Minute, time.Now),
		noopPublisher{},
	)

	for _, u := range []*entity.User{
		{ID: "u1", Email: "u1@example.ng", Username: "ada", IsActive: true},
		{ID: "u2", Email: "u2@example.ng", Username: "tunde", IsActive: true},
		{ID: "u3", Email: "u3@example.ng", Username: "ngozi", IsActive: true},
		{ID: "admin", Email: "admin@example.ng", Username: "admin", Role: entity.RoleAdmin, IsActive: true},
	} {
		require.NoError(t, f.users.Create(context.Background(), u))
	}
	return f
}

// asUser stands in for the auth middleware.
func (f *apiFixture) asUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Request().Header.Get(testUserHeader)
		user, err := f.users.GetByID(c.Request().Context(), id)
		if err != nil {
			return response.Error(c, err)
		}
		c.Set("uid", user.ID)
		c.Set("user", user)
		return next(c)
	}
}

func (f *apiFixture) do(t *testing.T, method, path, userID string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	req.Header.Set(testUserHeader, userID)
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func decode(t *testing.T, raw json.RawMessage, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(raw, v))
}
