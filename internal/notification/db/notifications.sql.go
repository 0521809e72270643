package notificationdb

import (
	"context"
	"database/sql"
	"time"
)

const notificationColumns = `id, user_id, type, title, body, link_url, related_id, is_read, sent_at, read_at`

func scanNotification(row interface{ Scan(...any) error }) (Notification, error) {
	var i Notification
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Type,
		&i.Title,
		&i.Body,
		&i.LinkURL,
		&i.RelatedID,
		&i.IsRead,
		&i.SentAt,
		&i.ReadAt,
	)
	return i, err
}

func (q *Queries) listNotifications(ctx context.Context, query string, args ...interface{}) ([]Notification, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Notification{}
	for rows.Next() {
		i, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const insertNotification = `INSERT INTO notifications (id, user_id, type, title, body, link_url, related_id, is_read, sent_at)
VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?)`

// InsertNotificationParams はInsertNotificationの引数。
type InsertNotificationParams struct {
	ID        string
	UserID    string
	Type      string
	Title     string
	Body      string
	LinkURL   sql.NullString
	RelatedID sql.NullString
	SentAt    time.Time
}

// InsertNotification は未読の通知を1件作成する。
func (q *Queries) InsertNotification(ctx context.Context, arg InsertNotificationParams) error {
	_, err := q.db.ExecContext(ctx, insertNotification,
		arg.ID,
		arg.UserID,
		arg.Type,
		arg.Title,
		arg.Body,
		arg.LinkURL,
		arg.RelatedID,
		arg.SentAt,
	)
	return err
}

const getNotification = `SELECT ` + notificationColumns + ` FROM notifications WHERE id = ?`

// GetNotification はIDで通知を取得する。
func (q *Queries) GetNotification(ctx context.Context, id string) (Notification, error) {
	return scanNotification(q.db.QueryRowContext(ctx, getNotification, id))
}

const listNotificationsByUser = `SELECT ` + notificationColumns + ` FROM notifications
WHERE user_id = ?
ORDER BY sent_at DESC, id DESC`

// ListNotificationsByUser はユーザーの通知を新しい順に返す。
func (q *Queries) ListNotificationsByUser(ctx context.Context, userID string) ([]Notification, error) {
	return q.listNotifications(ctx, listNotificationsByUser, userID)
}

const listNotificationsByUserAndType = `SELECT ` + notificationColumns + ` FROM notifications
WHERE user_id = ? AND type = ?
ORDER BY sent_at DESC, id DESC`

// ListNotificationsByUserAndTypeParams はListNotificationsByUserAndTypeの引数。
type ListNotificationsByUserAndTypeParams struct {
	UserID string
	Type   string
}

// ListNotificationsByUserAndType はユーザーの通知を種類で絞り込んで返す。
func (q *Queries) ListNotificationsByUserAndType(ctx context.Context, arg ListNotificationsByUserAndTypeParams) ([]Notification, error) {
	return q.listNotifications(ctx, listNotificationsByUserAndType, arg.UserID, arg.Type)
}

const listUnreadNotifications = `SELECT ` + notificationColumns + ` FROM notifications
WHERE user_id = ? AND is_read = 0
ORDER BY sent_at DESC, id DESC`

// ListUnreadNotifications はユーザーの未読通知を新しい順に返す。
func (q *Queries) ListUnreadNotifications(ctx context.Context, userID string) ([]Notification, error) {
	return q.listNotifications(ctx, listUnreadNotifications, userID)
}

const countUnreadNotifications = `SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_read = 0`

// CountUnreadNotifications はユーザーの未読通知数を返す。
func (q *Queries) CountUnreadNotifications(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countUnreadNotifications, userID).Scan(&count)
	return count, err
}

const markNotificationRead = `UPDATE notifications SET is_read = 1, read_at = ?
WHERE id = ? AND user_id = ? AND is_read = 0`

// MarkNotificationReadParams はMarkNotificationReadの引数。
type MarkNotificationReadParams struct {
	ReadAt time.Time
	ID     string
	UserID string
}

// MarkNotificationRead は未読の通知を既読にし、更新した行数を返す。
// 既読済みの通知は更新されず、read_atも変わらない。
func (q *Queries) MarkNotificationRead(ctx context.Context, arg MarkNotificationReadParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, markNotificationRead, arg.ReadAt, arg.ID, arg.UserID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const markAllNotificationsRead = `UPDATE notifications SET is_read = 1, read_at = ?
WHERE user_id = ? AND is_read = 0`

// MarkAllNotificationsReadParams はMarkAllNotificationsReadの引数。
type MarkAllNotificationsReadParams struct {
	ReadAt time.Time
	UserID string
}

// MarkAllNotificationsRead はユーザーの未読通知をすべて既読にし、更新した行数を返す。
func (q *Queries) MarkAllNotificationsRead(ctx context.Context, arg MarkAllNotificationsReadParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, markAllNotificationsRead, arg.ReadAt, arg.UserID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteNotification = `DELETE FROM notifications WHERE id = ? AND user_id = ?`

// DeleteNotificationParams はDeleteNotificationの引数。
type DeleteNotificationParams struct {
	ID     string
	UserID string
}

// DeleteNotification は所有者の通知を1件削除し、削除した行数を返す。
func (q *Queries) DeleteNotification(ctx context.Context, arg DeleteNotificationParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteNotification, arg.ID, arg.UserID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteReadNotifications = `DELETE FROM notifications WHERE user_id = ? AND is_read = 1`

// DeleteReadNotifications はユーザーの既読通知をすべて削除する。
func (q *Queries) DeleteReadNotifications(ctx context.Context, userID string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteReadNotifications, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteNotificationsSentBefore = `DELETE FROM notifications WHERE sent_at < ?`

// DeleteNotificationsSentBefore は指定時刻より前に作成された通知を削除する。
func (q *Queries) DeleteNotificationsSentBefore(ctx context.Context, before time.Time) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteNotificationsSentBefore, before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
