package notification

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/nao1215/meetup/pkg/push"
)

// PusherConfig はPusherの動作設定。
type PusherConfig struct {
	// Workers は配信ワーカー数。
	Workers int
	// QueueSize は配信キューの容量。
	QueueSize int
	// MaxAttempts は1件あたりの最大試行回数。
	MaxAttempts uint
	// Timeout は1回の送信のタイムアウト。
	Timeout time.Duration
	// RatePerSecond はゲートウェイへの毎秒の最大送信数。0以下なら無制限。
	RatePerSecond float64
	// BreakerFailures はサーキットブレーカーが開くまでの連続失敗数。
	BreakerFailures uint32
	// BreakerCooldown はサーキットブレーカーが開いている時間。
	BreakerCooldown time.Duration
	// InitialBackoff は1回目の再試行までの待ち時間。
	InitialBackoff time.Duration
	// MaxBackoff は再試行間隔の上限。
	MaxBackoff time.Duration
	// DrainTimeout は停止後にキューの残りを配信し切るまでの猶予。
	DrainTimeout time.Duration
}

func (c PusherConfig) withDefaults() PusherConfig {
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 256
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 3
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	if c.BreakerFailures == 0 {
		c.BreakerFailures = 5
	}
	if c.BreakerCooldown <= 0 {
		c.BreakerCooldown = 30 * time.Second
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = 200 * time.Millisecond
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 5 * time.Second
	}
	if c.DrainTimeout <= 0 {
		c.DrainTimeout = 10 * time.Second
	}
	return c
}

// Pusher はプッシュ配信キューと配信ワーカー。
//
// Enqueueはキューが満杯でもブロックせずに破棄する。ワーカーは送信ごとに
// タイムアウトを設け、指数バックオフで最大MaxAttempts回まで試行し、
// それでも失敗したものはログに残して破棄する。
//
// 受け付けた依頼は停止時にも配信を試みる。打ち切るのはDrainTimeoutを
// 過ぎた場合だけで、そのときも1件ずつログに残す。
type Pusher struct {
	gateway push.Gateway
	cfg     PusherConfig
	queue   chan push.Message
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	logger  *zap.Logger

	// mu はclosedとqueueのcloseを保護する。
	mu     sync.RWMutex
	closed bool
}

// NewPusher はPusherを生成する。配信はRunを呼ぶまで始まらない。
func NewPusher(gateway push.Gateway, cfg PusherConfig, logger *zap.Logger) *Pusher {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.withDefaults()

	limit := rate.Inf
	burst := 1
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
		burst = max(1, int(cfg.RatePerSecond))
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "push-gateway",
		MaxRequests: 1,
		Timeout:     cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("サーキットブレーカーの状態が変化しました",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		// 拒否はゲートウェイの障害ではない
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, push.ErrRejected)
		},
	})

	return &Pusher{
		gateway: gateway,
		cfg:     cfg,
		queue:   make(chan push.Message, cfg.QueueSize),
		breaker: breaker,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
	}
}

// Enqueue は配信を依頼する。キューが満杯か、Runが停止処理に入った後は
// falseを返して破棄する。
func (p *Pusher) Enqueue(msg push.Message) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	select {
	case p.queue <- msg:
		return true
	default:
		return false
	}
}

// Run はctxがキャンセルされるまで配信ワーカーを動かす。
//
// ctxがキャンセルされると新しい依頼の受け付けを止め、キューに残った依頼を
// 配信してから戻る。配信中の送信はctxではなくDrainTimeoutで打ち切られる。
// Runは1つのPusherにつき1度だけ呼び出せる。
func (p *Pusher) Run(ctx context.Context) error {
	p.logger.Info("プッシュ配信ワーカーを開始しました", zap.Int("workers", p.cfg.Workers))

	deliverCtx, cancelDeliver := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelDeliver()
	stopDeadline := context.AfterFunc(ctx, func() {
		time.AfterFunc(p.cfg.DrainTimeout, cancelDeliver)
	})
	defer stopDeadline()

	p.runWorkers(func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-p.queue:
				p.deliver(deliverCtx, msg)
			}
		}
	})

	p.mu.Lock()
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	if remaining := len(p.queue); remaining > 0 {
		p.logger.Info("停止前に残りのプッシュ通知を配信します",
			zap.Int("remaining", remaining),
			zap.Duration("drain_timeout", p.cfg.DrainTimeout),
		)
	}
	p.runWorkers(func() {
		for msg := range p.queue {
			p.deliver(deliverCtx, msg)
		}
	})

	p.logger.Info("プッシュ配信ワーカーを停止しました")
	return nil
}

// runWorkers はWorkers個のgoroutineでworkを動かし、すべて戻るまで待つ。
func (p *Pusher) runWorkers(work func()) {
	var wg sync.WaitGroup
	for range p.cfg.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			work()
		}()
	}
	wg.Wait()
}

// deliver は1件を再試行付きで送信する。失敗はログに残すだけで呼び出し元には返さない。
func (p *Pusher) deliver(ctx context.Context, msg push.Message) {
	var attempt uint
	operation := func() (struct{}, error) {
		attempt++
		if err := p.limiter.Wait(ctx); err != nil {
			return struct{}{}, backoff.Permanent(err)
		}

		attemptCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()

		_, err := p.breaker.Execute(func() (interface{}, error) {
			return nil, p.gateway.Send(attemptCtx, msg)
		})
		if err == nil {
			return struct{}{}, nil
		}
		if errors.Is(err, push.ErrRejected) {
			return struct{}{}, backoff.Permanent(err)
		}

		p.logger.Warn("プッシュ通知の送信に失敗しました",
			zap.String("notification_id", msg.NotificationID),
			zap.String("user_id", msg.UserID),
			zap.Uint("attempt", attempt),
			zap.Error(err),
		)
		return struct{}{}, err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.cfg.InitialBackoff
	b.MaxInterval = p.cfg.MaxBackoff

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(p.cfg.MaxAttempts),
	)
	if err != nil {
		p.logger.Error("プッシュ通知を破棄しました",
			zap.String("notification_id", msg.NotificationID),
			zap.String("user_id", msg.UserID),
			zap.Uint("attempts", attempt),
			zap.Error(err),
		)
	}
}
