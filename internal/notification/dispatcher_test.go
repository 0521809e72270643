package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nao1215/meetup/internal/dbtest"
	"github.com/nao1215/meetup/pkg/apperr"
	"github.com/nao1215/meetup/pkg/event"
)

func approvedRequest() Request {
	return Request{
		UserID:    "user-1",
		Type:      TypeMeeting,
		Title:     "参加が承認されました",
		Body:      "週末ハイキングへの参加が承認されました。",
		Link:      "/meetings/meeting-1",
		RelatedID: "meeting-1",
		Cause:     event.TypeParticipationApproved,
	}
}

func TestDispatcher_Record(t *testing.T) {
	t.Parallel()

	t.Run("トランザクションをコミットすると未読で保存される", func(t *testing.T) {
		t.Parallel()
		db := dbtest.Open(t)
		enqueuer := &recordingEnqueuer{}
		d := NewDispatcher(db, enqueuer, nil)

		tx, err := db.BeginTx(t.Context(), nil)
		require.NoError(t, err)
		n, err := d.Record(t.Context(), tx, approvedRequest())
		require.NoError(t, err)
		require.NoError(t, tx.Commit())

		got, err := NewService(db).Get(t.Context(), "user-1", n.ID)
		require.NoError(t, err)
		assert.False(t, got.IsRead)
		assert.Nil(t, got.ReadAt)
		assert.Equal(t, TypeMeeting, got.Type)
		assert.Equal(t, "meeting-1", got.RelatedID)
		assert.WithinDuration(t, n.SentAt, got.SentAt, 0)

		// Recordだけではプッシュしない
		assert.Empty(t, enqueuer.msgs)
	})

	t.Run("ロールバックすると通知も残らない", func(t *testing.T) {
		t.Parallel()
		db := dbtest.Open(t)
		d := NewDispatcher(db, &recordingEnqueuer{}, nil)

		tx, err := db.BeginTx(t.Context(), nil)
		require.NoError(t, err)
		_, err = d.Record(t.Context(), tx, approvedRequest())
		require.NoError(t, err)
		require.NoError(t, tx.Rollback())

		assert.Equal(t, 0, dbtest.CountNotifications(t, db, "user-1"))
	})

	t.Run("不正な依頼は保存しない", func(t *testing.T) {
		t.Parallel()
		db := dbtest.Open(t)
		d := NewDispatcher(db, &recordingEnqueuer{}, nil)

		tests := []struct {
			name string
			req  func(Request) Request
		}{
			{name: "ユーザーIDなし", req: func(r Request) Request { r.UserID = " "; return r }},
			{name: "不明な種別", req: func(r Request) Request { r.Type = "PROMOTION"; return r }},
			{name: "タイトルなし", req: func(r Request) Request { r.Title = ""; return r }},
		}
		for _, tt := range tests {
			_, err := d.Record(t.Context(), nil, tt.req(approvedRequest()))
			assert.ErrorIs(t, err, apperr.New(apperr.CodeInvalidInput, ""), tt.name)
		}
		assert.Equal(t, 0, dbtest.CountNotifications(t, db, "user-1"))
	})

	t.Run("ストアが使えない場合はエラーを返す", func(t *testing.T) {
		t.Parallel()
		db := dbtest.Open(t)
		d := NewDispatcher(db, &recordingEnqueuer{}, nil)
		require.NoError(t, db.Close())

		_, err := d.Record(t.Context(), nil, approvedRequest())
		assert.Error(t, err)
	})
}

func TestDispatcher_Dispatch(t *testing.T) {
	t.Parallel()

	t.Run("保存した通知のプッシュを依頼する", func(t *testing.T) {
		t.Parallel()
		db := dbtest.Open(t)
		enqueuer := &recordingEnqueuer{}
		d := NewDispatcher(db, enqueuer, nil)

		n, err := d.Dispatch(t.Context(), approvedRequest())
		require.NoError(t, err)

		assert.Equal(t, []string{n.ID}, enqueuer.msgs)
		assert.Equal(t, 1, dbtest.CountNotifications(t, db, "user-1"))
	})

	t.Run("配信キューが満杯でも通知は保存される", func(t *testing.T) {
		t.Parallel()
		db := dbtest.Open(t)
		d := NewDispatcher(db, &recordingEnqueuer{full: true}, nil)

		_, err := d.Dispatch(t.Context(), approvedRequest())
		require.NoError(t, err)

		assert.Equal(t, 1, dbtest.CountNotifications(t, db, "user-1"))
	})
}
