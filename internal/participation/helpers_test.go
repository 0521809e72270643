package participation

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/nao1215/meetup/internal/dbtest"
	"github.com/nao1215/meetup/internal/notification"
	"github.com/nao1215/meetup/pkg/event"
	"github.com/nao1215/meetup/pkg/middleware"
	"github.com/nao1215/meetup/pkg/push"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// recordingEnqueuer は受け付けた配信依頼を記録する。
type recordingEnqueuer struct {
	mu   sync.Mutex
	full bool
	msgs []push.Message
}

func (r *recordingEnqueuer) Enqueue(msg push.Message) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.full {
		return false
	}
	r.msgs = append(r.msgs, msg)
	return true
}

func (r *recordingEnqueuer) messages() []push.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]push.Message(nil), r.msgs...)
}

// failingNotifier は通知の保存に常に失敗する。
type failingNotifier struct {
	pushed int
}

var errNotificationStore = errors.New("notification store unavailable")

func (f *failingNotifier) Record(context.Context, *sql.Tx, notification.Request) (notification.Notification, error) {
	return notification.Notification{}, errNotificationStore
}

func (f *failingNotifier) Push(event.Type, ...notification.Notification) {
	f.pushed++
}

// fixture は参加申請のテストで共有する依存関係。
type fixture struct {
	db       *sql.DB
	service  *Service
	enqueuer *recordingEnqueuer
}

// newFixture はインメモリDBにユーザーを用意してServiceを構築する。
// organizerはソウル、aliceは釜山、bobは座標なし。
func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := dbtest.Open(t)
	enqueuer := &recordingEnqueuer{}
	service := NewService(db, notification.NewDispatcher(db, enqueuer, nil), nil)

	dbtest.CreateUser(t, db, "organizer", "主催者", dbtest.Seoul)
	dbtest.CreateUser(t, db, "alice", "Alice", dbtest.Busan)
	dbtest.CreateUser(t, db, "bob", "Bob", nil)

	return &fixture{db: db, service: service, enqueuer: enqueuer}
}

func (f *fixture) apply(t *testing.T, userID, meetingID string) Participation {
	t.Helper()
	p, err := f.service.Apply(t.Context(), userID, ApplyInput{MeetingID: meetingID})
	require.NoError(t, err)
	return p
}

func (f *fixture) approve(t *testing.T, participationID string) Participation {
	t.Helper()
	p, err := f.service.Approve(t.Context(), "organizer", participationID)
	require.NoError(t, err)
	return p
}

// newTestRouter はテスト用のユーザーID設定ミドルウェア付きでハンドラを登録する。
func newTestRouter(f *fixture) *gin.Engine {
	h := NewHandler(f.service, nil)

	router := gin.New()
	api := router.Group("/api/v1")
	api.Use(func(c *gin.Context) {
		if userID := c.GetHeader("X-User-ID"); userID != "" {
			middleware.SetUserID(c, userID)
		}
		c.Next()
	})
	h.RegisterRoutes(api)
	h.RegisterInternalRoutes(router.Group("/internal"))
	return router
}

// doRequest はテスト用のHTTPリクエストを実行する。
func doRequest(router *gin.Engine, method, path, userID string, body any) *httptest.ResponseRecorder {
	var reqBody *bytes.Reader
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewReader(jsonBytes)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), "body=%s", w.Body.String())
	return v
}
