package notification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	notificationdb "github.com/nao1215/meetup/internal/notification/db"
	"github.com/nao1215/meetup/pkg/apperr"
)

// Service はユーザーの通知受信箱に対する操作を提供する。
type Service struct {
	queries *notificationdb.Queries
	now     func() time.Time
}

// NewService はServiceを生成する。
func NewService(db notificationdb.DBTX) *Service {
	return &Service{
		queries: notificationdb.New(db),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// List はユーザーの通知を新しい順に返す。typが空でなければ種類で絞り込む。
func (s *Service) List(ctx context.Context, userID string, typ Type) ([]Notification, error) {
	var (
		rows []notificationdb.Notification
		err  error
	)
	if typ == "" {
		rows, err = s.queries.ListNotificationsByUser(ctx, userID)
	} else {
		if !typ.Valid() {
			return nil, apperr.New(apperr.CodeInvalidInput, fmt.Sprintf("不明な通知種別です: %q", typ))
		}
		rows, err = s.queries.ListNotificationsByUserAndType(ctx, notificationdb.ListNotificationsByUserAndTypeParams{
			UserID: userID,
			Type:   string(typ),
		})
	}
	if err != nil {
		return nil, fmt.Errorf("通知一覧の取得に失敗: %w", err)
	}
	return fromRows(rows), nil
}

// ListUnread はユーザーの未読通知を新しい順に返す。
func (s *Service) ListUnread(ctx context.Context, userID string) ([]Notification, error) {
	rows, err := s.queries.ListUnreadNotifications(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("未読通知一覧の取得に失敗: %w", err)
	}
	return fromRows(rows), nil
}

// CountUnread はユーザーの未読通知数を返す。
func (s *Service) CountUnread(ctx context.Context, userID string) (int64, error) {
	count, err := s.queries.CountUnreadNotifications(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("未読通知数の取得に失敗: %w", err)
	}
	return count, nil
}

// Get はユーザー自身の通知を1件返す。
func (s *Service) Get(ctx context.Context, userID, id string) (Notification, error) {
	row, err := s.queries.GetNotification(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Notification{}, apperr.ErrNotificationNotFound
	}
	if err != nil {
		return Notification{}, fmt.Errorf("通知の取得に失敗: %w", err)
	}
	if row.UserID != userID {
		return Notification{}, apperr.ErrNotOwner
	}
	return fromRow(row), nil
}

// MarkRead は通知を既読にする。changedは今回の呼び出しで未読から既読に
// なった場合のみtrueで、既読済みの通知ではread_atを変えずにfalseを返す。
func (s *Service) MarkRead(ctx context.Context, userID, id string) (n Notification, changed bool, err error) {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return Notification{}, false, err
	}

	affected, err := s.queries.MarkNotificationRead(ctx, notificationdb.MarkNotificationReadParams{
		ReadAt: s.now(),
		ID:     id,
		UserID: userID,
	})
	if err != nil {
		return Notification{}, false, fmt.Errorf("通知の既読処理に失敗: %w", err)
	}

	n, err = s.Get(ctx, userID, id)
	if err != nil {
		return Notification{}, false, err
	}
	return n, affected > 0, nil
}

// MarkAllRead はユーザーの未読通知をすべて既読にし、既読にした件数を返す。
func (s *Service) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	affected, err := s.queries.MarkAllNotificationsRead(ctx, notificationdb.MarkAllNotificationsReadParams{
		ReadAt: s.now(),
		UserID: userID,
	})
	if err != nil {
		return 0, fmt.Errorf("全通知の既読処理に失敗: %w", err)
	}
	return affected, nil
}

// Delete はユーザー自身の通知を1件削除する。
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	if _, err := s.queries.DeleteNotification(ctx, notificationdb.DeleteNotificationParams{
		ID:     id,
		UserID: userID,
	}); err != nil {
		return fmt.Errorf("通知の削除に失敗: %w", err)
	}
	return nil
}

// DeleteRead はユーザーの既読通知をすべて削除し、削除した件数を返す。
func (s *Service) DeleteRead(ctx context.Context, userID string) (int64, error) {
	affected, err := s.queries.DeleteReadNotifications(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("既読通知の削除に失敗: %w", err)
	}
	return affected, nil
}
