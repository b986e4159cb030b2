package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"messenger-service/internal/middleware"
	"messenger-service/internal/mocks"
	"messenger-service/internal/services"
)

// testDeps is the service graph over mocked repositories.
type testDeps struct {
	users    *mocks.UserRepositoryMock
	chats    *mocks.ChatRepositoryMock
	groups   *mocks.GroupRepositoryMock
	messages *mocks.MessageRepositoryMock
	notifier *mocks.NotifierMock

	userSvc    *services.UserService
	chatSvc    *services.ChatService
	groupSvc   *services.GroupService
	messageSvc *services.MessageService
}

func newTestDeps() *testDeps {
	d := &testDeps{
		users:    new(mocks.UserRepositoryMock),
		chats:    new(mocks.ChatRepositoryMock),
		groups:   new(mocks.GroupRepositoryMock),
		messages: new(mocks.MessageRepositoryMock),
		notifier: new(mocks.NotifierMock),
	}
	d.userSvc = services.NewUserService(d.users)
	d.chatSvc = services.NewChatService(d.chats, d.groups, d.users)
	d.groupSvc = services.NewGroupService(d.groups, d.users)
	d.messageSvc = services.NewMessageService(d.messages, d.groups, d.chatSvc, d.notifier, nil)
	return d
}

func (d *testDeps) assertExpectations(t *testing.T) {
	d.users.AssertExpectations(t)
	d.chats.AssertExpectations(t)
	d.groups.AssertExpectations(t)
	d.messages.AssertExpectations(t)
	d.notifier.AssertExpectations(t)
}

func authed(userID uuid.UUID, name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserIDKey, userID)
		c.Set(middleware.UserNameKey, name)
		c.Next()
	}
}

func newTestRouter(userID uuid.UUID, name string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(authed(userID, name))
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

var nopLogger = zap.NewNop()
