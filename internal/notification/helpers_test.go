package notification

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/meetup/internal/dbtest"
	notificationdb "github.com/nao1215/meetup/internal/notification/db"
	"github.com/nao1215/meetup/pkg/middleware"
	"github.com/nao1215/meetup/pkg/push"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// recordingEnqueuer は受け付けた配信依頼を記録する。
type recordingEnqueuer struct {
	full bool
	msgs []string
}

func (r *recordingEnqueuer) Enqueue(msg push.Message) bool {
	if r.full {
		return false
	}
	r.msgs = append(r.msgs, msg.NotificationID)
	return true
}

// setupTestServer はインメモリSQLiteで通知ハンドラを構築する。
func setupTestServer(t *testing.T) (*sql.DB, *gin.Engine, *recordingEnqueuer) {
	t.Helper()

	db := dbtest.Open(t)
	enqueuer := &recordingEnqueuer{}
	h := NewHandler(NewService(db), NewDispatcher(db, enqueuer, nil), nil)

	router := gin.New()
	// JWTミドルウェアの代わりにテスト用のユーザーID設定ミドルウェアを使用する
	api := router.Group("/api/v1")
	api.Use(func(c *gin.Context) {
		if userID := c.GetHeader("X-User-ID"); userID != "" {
			middleware.SetUserID(c, userID)
		}
		c.Next()
	})
	h.RegisterRoutes(api)
	h.RegisterInternalRoutes(api.Group("/internal"))

	return db, router, enqueuer
}

// createTestNotification はテスト用に通知をDBに直接挿入する。
func createTestNotification(t *testing.T, db *sql.DB, id, userID string, typ Type, sentAt time.Time) {
	t.Helper()

	err := notificationdb.New(db).InsertNotification(t.Context(), notificationdb.InsertNotificationParams{
		ID:     id,
		UserID: userID,
		Type:   string(typ),
		Title:  "タイトル " + id,
		Body:   "本文 " + id,
		LinkURL: sql.NullString{
			String: "/meetings/meeting-1",
			Valid:  true,
		},
		RelatedID: sql.NullString{String: "meeting-1", Valid: true},
		SentAt:    sentAt.UTC(),
	})
	if err != nil {
		t.Fatalf("テスト用通知の作成に失敗: %v", err)
	}
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

// parseJSON はレスポンスボディをmapにデコードする。
func parseJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var result map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("JSONのデコードに失敗: %v, body=%s", err, w.Body.String())
	}
	return result
}

// parseJSONArray はレスポンスボディをスライスにデコードする。
func parseJSONArray(t *testing.T, w *httptest.ResponseRecorder) []map[string]any {
	t.Helper()
	var result []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("JSON配列のデコードに失敗: %v, body=%s", err, w.Body.String())
	}
	return result
}
