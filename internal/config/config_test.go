package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoad は環境変数からの設定読み込みを検証する。
// t.Setenvを使うため並列実行しない。
func TestLoad(t *testing.T) {
	t.Run("未設定の場合はデフォルト値が使われること", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "8087", cfg.Port)
		assert.Equal(t, "log", cfg.Push.Backend)
		assert.Equal(t, 720*time.Hour, cfg.NotificationRetention)
		assert.Equal(t, uint(3), cfg.Push.MaxAttempts)
		assert.Equal(t, 5*time.Second, cfg.Push.Timeout)
	})

	t.Run("環境変数で上書きできること", func(t *testing.T) {
		t.Setenv("PORT", "9999")
		t.Setenv("PUSH_BACKEND", "redis")
		t.Setenv("PUSH_WORKERS", "8")
		t.Setenv("PUSH_TIMEOUT", "750ms")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "9999", cfg.Port)
		assert.Equal(t, "redis", cfg.Push.Backend)
		assert.Equal(t, 8, cfg.Push.Workers)
		assert.Equal(t, 750*time.Millisecond, cfg.Push.Timeout)
	})

	t.Run("ワーカー数が0の場合はエラーになること", func(t *testing.T) {
		t.Setenv("PUSH_WORKERS", "0")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("通知の保持期間と削除間隔は正の値が必要なこと", func(t *testing.T) {
		tests := []struct {
			name  string
			key   string
			value string
		}{
			{name: "保持期間0", key: "NOTIFICATION_RETENTION", value: "0s"},
			{name: "保持期間が負", key: "NOTIFICATION_RETENTION", value: "-1h"},
			{name: "削除間隔0", key: "NOTIFICATION_CLEANUP_INTERVAL", value: "0s"},
			{name: "削除間隔が負", key: "NOTIFICATION_CLEANUP_INTERVAL", value: "-5m"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Setenv(tt.key, tt.value)

				_, err := Load()
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.key)
			})
		}
	})

	t.Run("不正なDurationはエラーになること", func(t *testing.T) {
		t.Setenv("PUSH_TIMEOUT", "soon")

		_, err := Load()
		assert.Error(t, err)
	})
}
