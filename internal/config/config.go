// Package config は環境変数からサービス設定を読み込む。
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config はmeetupサービス全体の設定。
type Config struct {
	// Port はHTTPサーバーのリッスンポート。
	Port string `env:"PORT" envDefault:"8087"`
	// DatabasePath はSQLiteデータベースファイルのパス。
	DatabasePath string `env:"DATABASE_PATH" envDefault:"/data/meetup.db"`
	// JWTSecret はJWT検証用の秘密鍵。
	JWTSecret string `env:"JWT_SECRET" envDefault:"dev-secret-key"`
	// FrontendURL はCORSで許可するフロントエンドのオリジン。
	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`
	// Development が有効な場合、開発向けのログ出力になる。
	Development bool `env:"DEVELOPMENT" envDefault:"false"`
	// NotificationRetention は通知を保持する期間。これより古い通知は削除される。
	NotificationRetention time.Duration `env:"NOTIFICATION_RETENTION" envDefault:"720h"`
	// NotificationCleanupInterval は古い通知の削除を実行する間隔。
	NotificationCleanupInterval time.Duration `env:"NOTIFICATION_CLEANUP_INTERVAL" envDefault:"24h"`
	// Push はプッシュ通知の配信設定。
	Push Push `envPrefix:"PUSH_"`
}

// Push はプッシュゲートウェイと配信ワーカーの設定。
type Push struct {
	// Backend は配信先の種類（log, http, redis）。
	Backend string `env:"BACKEND" envDefault:"log"`
	// URL はHTTPプッシュゲートウェイのベースURL。
	URL string `env:"URL" envDefault:"http://localhost:8090"`
	// APIKey はHTTPプッシュゲートウェイに送るX-Api-Keyヘッダーの値。空なら送らない。
	APIKey string `env:"API_KEY"`
	// RedisAddr はRedisプッシュゲートウェイの接続先。
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	// RedisChannelPrefix はRedis Pub/Subのチャンネル接頭辞。
	RedisChannelPrefix string `env:"REDIS_CHANNEL_PREFIX" envDefault:"push:"`
	// Workers は配信ワーカー数。
	Workers int `env:"WORKERS" envDefault:"4"`
	// QueueSize は配信キューの容量。満杯の場合は配信を諦める。
	QueueSize int `env:"QUEUE_SIZE" envDefault:"256"`
	// MaxAttempts は1件あたりの最大試行回数。
	MaxAttempts uint `env:"MAX_ATTEMPTS" envDefault:"3"`
	// Timeout は1回の配信試行のタイムアウト。
	Timeout time.Duration `env:"TIMEOUT" envDefault:"5s"`
	// RatePerSecond はゲートウェイへの毎秒の最大送信数。
	RatePerSecond float64 `env:"RATE_PER_SECOND" envDefault:"50"`
	// BreakerFailures はサーキットブレーカーが開くまでの連続失敗数。
	BreakerFailures uint32 `env:"BREAKER_FAILURES" envDefault:"5"`
	// BreakerCooldown はサーキットブレーカーが開いている時間。
	BreakerCooldown time.Duration `env:"BREAKER_COOLDOWN" envDefault:"30s"`
	// DrainTimeout は停止時にキューに残った通知を配信し切るまでの猶予。
	DrainTimeout time.Duration `env:"DRAIN_TIMEOUT" envDefault:"10s"`
}

// Load は環境変数から設定を読み込む。
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("環境変数の解析に失敗: %w", err)
	}
	if cfg.NotificationRetention <= 0 {
		return Config{}, fmt.Errorf("NOTIFICATION_RETENTIONは正の期間を指定してください: %s", cfg.NotificationRetention)
	}
	if cfg.NotificationCleanupInterval <= 0 {
		return Config{}, fmt.Errorf("NOTIFICATION_CLEANUP_INTERVALは正の期間を指定してください: %s", cfg.NotificationCleanupInterval)
	}
	if cfg.Push.Workers <= 0 {
		return Config{}, fmt.Errorf("PUSH_WORKERSは1以上を指定してください: %d", cfg.Push.Workers)
	}
	if cfg.Push.MaxAttempts == 0 {
		return Config{}, fmt.Errorf("PUSH_MAX_ATTEMPTSは1以上を指定してください")
	}
	return cfg, nil
}
