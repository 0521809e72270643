package notification

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	notificationdb "github.com/nao1215/meetup/internal/notification/db"
	"github.com/nao1215/meetup/pkg/apperr"
	"github.com/nao1215/meetup/pkg/event"
	"github.com/nao1215/meetup/pkg/push"
)

// Request は通知1件の作成依頼。
type Request struct {
	// UserID は通知先のユーザーID。
	UserID string
	// Type は通知の種類。
	Type Type
	// Title は通知のタイトル。
	Title string
	// Body は通知本文。
	Body string
	// Link は遷移先。空なら保存しない。
	Link string
	// RelatedID は関連エンティティのID。空なら保存しない。
	RelatedID string
	// Cause は通知のきっかけになったイベント。プッシュのペイロードにのみ載る。
	Cause event.Type
}

func (r Request) validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return apperr.New(apperr.CodeInvalidInput, "通知先のユーザーIDが必要です")
	}
	if !r.Type.Valid() {
		return apperr.New(apperr.CodeInvalidInput, fmt.Sprintf("不明な通知種別です: %q", r.Type))
	}
	if r.Title == "" {
		return apperr.New(apperr.CodeInvalidInput, "通知のタイトルが必要です")
	}
	return nil
}

// Enqueuer はプッシュ配信の依頼先。Pusherが満たす。
type Enqueuer interface {
	Enqueue(msg push.Message) bool
}

// Dispatcher は通知レコードの保存とプッシュ配信の依頼を行う。
//
// Recordは呼び出し側のトランザクション内で通知を保存し、失敗すれば
// トランザクションごと失敗させる。Pushはコミット後に呼び出し、
// 配信の成否を呼び出し側に返さない。
type Dispatcher struct {
	queries *notificationdb.Queries
	pusher  Enqueuer
	logger  *zap.Logger
	now     func() time.Time
}

// NewDispatcher はDispatcherを生成する。
func NewDispatcher(db notificationdb.DBTX, pusher Enqueuer, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		queries: notificationdb.New(db),
		pusher:  pusher,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Record は通知を未読で保存する。txがnilでなければそのトランザクション上で書き込む。
func (d *Dispatcher) Record(ctx context.Context, tx *sql.Tx, req Request) (Notification, error) {
	if err := req.validate(); err != nil {
		return Notification{}, err
	}

	q := d.queries
	if tx != nil {
		q = q.WithTx(tx)
	}

	params := notificationdb.InsertNotificationParams{
		ID:        uuid.New().String(),
		UserID:    req.UserID,
		Type:      string(req.Type),
		Title:     req.Title,
		Body:      req.Body,
		LinkURL:   sql.NullString{String: req.Link, Valid: req.Link != ""},
		RelatedID: sql.NullString{String: req.RelatedID, Valid: req.RelatedID != ""},
		SentAt:    d.now(),
	}
	if err := q.InsertNotification(ctx, params); err != nil {
		return Notification{}, fmt.Errorf("通知の保存に失敗: %w", err)
	}

	return Notification{
		ID:        params.ID,
		UserID:    params.UserID,
		Type:      req.Type,
		Title:     params.Title,
		Body:      params.Body,
		Link:      req.Link,
		RelatedID: req.RelatedID,
		SentAt:    params.SentAt,
	}, nil
}

// Push は保存済みの通知のプッシュ配信を依頼する。ブロックせず、結果も返さない。
func (d *Dispatcher) Push(cause event.Type, notifications ...Notification) {
	if d.pusher == nil {
		return
	}
	for _, n := range notifications {
		if !d.pusher.Enqueue(push.Message{
			NotificationID: n.ID,
			UserID:         n.UserID,
			Title:          n.Title,
			Body:           n.Body,
			Type:           string(n.Type),
			Link:           n.Link,
			Cause:          cause,
		}) {
			d.logger.Warn("プッシュ配信の依頼を破棄しました",
				zap.String("notification_id", n.ID),
				zap.String("user_id", n.UserID),
			)
		}
	}
}

// Dispatch はトランザクション外で通知を保存し、続けてプッシュ配信を依頼する。
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (Notification, error) {
	n, err := d.Record(ctx, nil, req)
	if err != nil {
		return Notification{}, err
	}
	d.Push(req.Cause, n)
	return n, nil
}
