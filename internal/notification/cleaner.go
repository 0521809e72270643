package notification

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	notificationdb "github.com/nao1215/meetup/internal/notification/db"
)

// Cleaner は保持期間を過ぎた通知を定期的に削除する。
type Cleaner struct {
	queries   *notificationdb.Queries
	retention time.Duration
	interval  time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// NewCleaner はCleanerを生成する。
func NewCleaner(db notificationdb.DBTX, retention, interval time.Duration, logger *zap.Logger) *Cleaner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cleaner{
		queries:   notificationdb.New(db),
		retention: retention,
		interval:  interval,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Run はctxがキャンセルされるまでintervalごとに削除を実行する。起動直後にも1回実行する。
func (c *Cleaner) Run(ctx context.Context) error {
	if c.interval <= 0 || c.retention <= 0 {
		return fmt.Errorf("通知クリーナーの保持期間と実行間隔は正の値が必要です: retention=%s interval=%s", c.retention, c.interval)
	}
	c.logger.Info("通知クリーナーを開始しました",
		zap.Duration("retention", c.retention),
		zap.Duration("interval", c.interval),
	)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		if _, err := c.Sweep(ctx); err != nil {
			c.logger.Error("古い通知の削除に失敗しました", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			c.logger.Info("通知クリーナーを停止しました")
			return nil
		case <-ticker.C:
		}
	}
}

// Sweep は保持期間より前に作成された通知を削除し、削除件数を返す。
func (c *Cleaner) Sweep(ctx context.Context) (int64, error) {
	cutoff := c.now().Add(-c.retention)
	deleted, err := c.queries.DeleteNotificationsSentBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("保持期間切れ通知の削除に失敗: %w", err)
	}
	if deleted > 0 {
		c.logger.Info("保持期間を過ぎた通知を削除しました",
			zap.Int64("deleted", deleted),
			zap.Time("cutoff", cutoff),
		)
	}
	return deleted, nil
}
