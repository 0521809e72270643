package notificationdb

import (
	"database/sql"
	"time"
)

// Notification はnotificationsテーブルの1行。
type Notification struct {
	ID        string
	UserID    string
	Type      string
	Title     string
	Body      string
	LinkURL   sql.NullString
	RelatedID sql.NullString
	IsRead    int64
	SentAt    time.Time
	ReadAt    sql.NullTime
}
