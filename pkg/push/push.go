package push

import (
	"context"
	"errors"
	"fmt"

	"github.com/nao1215/meetup/pkg/event"
)

//go:generate mockgen -source=push.go -destination=pushmock/gateway.go -package=pushmock

// ErrRejected はゲートウェイがメッセージを恒久的に拒否したことを表す。
// このエラーを返した送信は再試行しない。
var ErrRejected = errors.New("プッシュゲートウェイが送信を拒否しました")

// Message はゲートウェイに渡すプッシュ通知1件。
type Message struct {
	// NotificationID は永続化済み通知のID。
	NotificationID string
	// UserID は通知先のユーザーID。
	UserID string
	// Title は通知のタイトル。
	Title string
	// Body は通知本文。
	Body string
	// Type は通知の種類（MEETING等）。
	Type string
	// Link は通知タップ時の遷移先。
	Link string
	// Cause は通知のきっかけとなったイベントの種類。
	Cause event.Type
}

// Gateway はプッシュ通知の送信先。
type Gateway interface {
	// Send はメッセージを1回送信する。再試行は呼び出し側が行う。
	Send(ctx context.Context, msg Message) error
}

// Envelope はメッセージをNotificationPushedイベントに包む。
// HTTPとRedisのゲートウェイはこの形式で送信する。
func Envelope(msg Message) (*event.Event, error) {
	ev, err := event.New(msg.NotificationID, event.AggregateTypeNotification, event.TypeNotificationPushed, 1,
		event.NotificationPushedData{
			NotificationID:   msg.NotificationID,
			UserID:           msg.UserID,
			Title:            msg.Title,
			Body:             msg.Body,
			NotificationType: msg.Type,
			Link:             msg.Link,
			Cause:            msg.Cause,
		})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRejected, err)
	}
	return ev, nil
}
