package notification

import (
	"time"

	notificationdb "github.com/nao1215/meetup/internal/notification/db"
)

// Type は通知の種類。
type Type string

const (
	TypeMeeting Type = "MEETING"
	TypeChat    Type = "CHAT"
	TypeReview  Type = "REVIEW"
	TypeBadge   Type = "BADGE"
	TypeFollow  Type = "FOLLOW"
	TypeSystem  Type = "SYSTEM"
)

// Valid は定義済みの種類かどうかを返す。
func (t Type) Valid() bool {
	switch t {
	case TypeMeeting, TypeChat, TypeReview, TypeBadge, TypeFollow, TypeSystem:
		return true
	default:
		return false
	}
}

// Notification はユーザーに届けられた通知。
type Notification struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Type      Type       `json:"type"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	Link      string     `json:"link,omitempty"`
	RelatedID string     `json:"related_id,omitempty"`
	IsRead    bool       `json:"is_read"`
	SentAt    time.Time  `json:"sent_at"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
}

func fromRow(n notificationdb.Notification) Notification {
	out := Notification{
		ID:        n.ID,
		UserID:    n.UserID,
		Type:      Type(n.Type),
		Title:     n.Title,
		Body:      n.Body,
		Link:      n.LinkURL.String,
		RelatedID: n.RelatedID.String,
		IsRead:    n.IsRead != 0,
		SentAt:    n.SentAt.UTC(),
	}
	if n.ReadAt.Valid {
		readAt := n.ReadAt.Time.UTC()
		out.ReadAt = &readAt
	}
	return out
}

func fromRows(rows []notificationdb.Notification) []Notification {
	out := make([]Notification, 0, len(rows))
	for _, n := range rows {
		out = append(out, fromRow(n))
	}
	return out
}
