package event

import (
	"encoding/json"
	"time"
)

// AggregateType はイベントの対象となるエンティティの種類を表す。
type AggregateType string

const (
	// AggregateTypeNotification は通知エンティティを表す。
	AggregateTypeNotification AggregateType = "Notification"
)

// Type はイベントの種類を表す。
type Type string

const (
	// TypeParticipationApplied は参加申請が作成されたことを表す。
	TypeParticipationApplied Type = "ParticipationApplied"
	// TypeParticipationApproved は参加申請が承認されたことを表す。
	TypeParticipationApproved Type = "ParticipationApproved"
	// TypeParticipationRejected は参加申請が却下されたことを表す。
	TypeParticipationRejected Type = "ParticipationRejected"
	// TypeParticipationCancelled は参加申請が取り消されたことを表す。
	TypeParticipationCancelled Type = "ParticipationCancelled"
	// TypeParticipationCompleted はモイムの完了により参加が完了したことを表す。
	TypeParticipationCompleted Type = "ParticipationCompleted"

	// TypeNotificationRequested は他サービスから通知の作成が依頼されたことを表す。
	TypeNotificationRequested Type = "NotificationRequested"
	// TypeNotificationPushed は通知のプッシュ配信が依頼されたことを表す。
	TypeNotificationPushed Type = "NotificationPushed"
)

// Event はサービス間でやり取りする不変のイベントレコードを表す。
// プッシュゲートウェイへの送信ペイロードもこの形式で包む。
type Event struct {
	// ID はイベントの一意識別子（UUID）。
	ID string `json:"id"`
	// AggregateID は対象エンティティの識別子。
	AggregateID string `json:"aggregate_id"`
	// AggregateType は対象エンティティの種類。
	AggregateType AggregateType `json:"aggregate_type"`
	// EventType はイベントの種類。
	EventType Type `json:"event_type"`
	// Data はイベント固有のデータ（JSON形式）。
	Data json.RawMessage `json:"data"`
	// Version はAggregate内でのイベントの順序番号。
	Version int64 `json:"version"`
	// CreatedAt はイベントが作成された日時。
	CreatedAt time.Time `json:"created_at"`
}

// NotificationPushedData はNotificationPushedイベントのデータ。
type NotificationPushedData struct {
	// NotificationID は永続化済み通知のID。
	NotificationID string `json:"notification_id"`
	// UserID は通知先のユーザーID。
	UserID string `json:"user_id"`
	// Title は通知のタイトル。
	Title string `json:"title"`
	// Body は通知本文。
	Body string `json:"body"`
	// NotificationType は通知の種類（MEETING等）。
	NotificationType string `json:"notification_type"`
	// Link は通知タップ時の遷移先。
	Link string `json:"link,omitempty"`
	// Cause は通知のきっかけとなったイベントの種類。
	Cause Type `json:"cause,omitempty"`
}
