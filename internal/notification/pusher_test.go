package notification

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/nao1215/meetup/pkg/event"
	"github.com/nao1215/meetup/pkg/push"
	"github.com/nao1215/meetup/pkg/push/pushmock"
)

func testPushMessage() push.Message {
	return push.Message{
		NotificationID: "notif-1",
		UserID:         "user-1",
		Title:          "参加が承認されました",
		Type:           string(TypeMeeting),
		Link:           "/meetings/meeting-1",
		Cause:          event.TypeParticipationApproved,
	}
}

func testPusherConfig() PusherConfig {
	return PusherConfig{
		Workers:         1,
		QueueSize:       8,
		MaxAttempts:     3,
		Timeout:         50 * time.Millisecond,
		BreakerFailures: 100,
		BreakerCooldown: time.Second,
		InitialBackoff:  time.Millisecond,
		MaxBackoff:      5 * time.Millisecond,
	}
}

// startPusher はPusherを起動し、テスト終了時に停止を待つ。
func startPusher(t *testing.T, p *Pusher) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = p.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestPusher_Deliver(t *testing.T) {
	t.Parallel()

	t.Run("送信に成功した場合は1回だけ呼ばれる", func(t *testing.T) {
		t.Parallel()

		ctrl := gomock.NewController(t)
		gateway := pushmock.NewMockGateway(ctrl)

		var calls atomic.Int32
		gateway.EXPECT().Send(gomock.Any(), testPushMessage()).DoAndReturn(
			func(context.Context, push.Message) error {
				calls.Add(1)
				return nil
			},
		).Times(1)

		p := NewPusher(gateway, testPusherConfig(), nil)
		startPusher(t, p)

		require.True(t, p.Enqueue(testPushMessage()))
		require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	})

	t.Run("一時的な失敗は再試行して成功する", func(t *testing.T) {
		t.Parallel()

		ctrl := gomock.NewController(t)
		gateway := pushmock.NewMockGateway(ctrl)

		var calls atomic.Int32
		gateway.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(
			func(context.Context, push.Message) error {
				if calls.Add(1) < 3 {
					return errors.New("503 service unavailable")
				}
				return nil
			},
		).Times(3)

		p := NewPusher(gateway, testPusherConfig(), nil)
		startPusher(t, p)

		require.True(t, p.Enqueue(testPushMessage()))
		require.Eventually(t, func() bool { return calls.Load() == 3 }, time.Second, 5*time.Millisecond)
	})

	t.Run("最大試行回数で諦める", func(t *testing.T) {
		t.Parallel()

		ctrl := gomock.NewController(t)
		gateway := pushmock.NewMockGateway(ctrl)

		var calls atomic.Int32
		gateway.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(
			func(context.Context, push.Message) error {
				calls.Add(1)
				return errors.New("connection refused")
			},
		).Times(3)

		p := NewPusher(gateway, testPusherConfig(), nil)
		startPusher(t, p)

		require.True(t, p.Enqueue(testPushMessage()))
		require.Eventually(t, func() bool { return calls.Load() == 3 }, time.Second, 5*time.Millisecond)
		assert.Never(t, func() bool { return calls.Load() > 3 }, 100*time.Millisecond, 10*time.Millisecond)
	})

	t.Run("拒否されたメッセージは再試行しない", func(t *testing.T) {
		t.Parallel()

		ctrl := gomock.NewController(t)
		gateway := pushmock.NewMockGateway(ctrl)

		var calls atomic.Int32
		gateway.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(
			func(context.Context, push.Message) error {
				calls.Add(1)
				return push.ErrRejected
			},
		).Times(1)

		p := NewPusher(gateway, testPusherConfig(), nil)
		startPusher(t, p)

		require.True(t, p.Enqueue(testPushMessage()))
		require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
		assert.Never(t, func() bool { return calls.Load() > 1 }, 50*time.Millisecond, 10*time.Millisecond)
	})

	t.Run("応答しないゲートウェイはタイムアウトで打ち切る", func(t *testing.T) {
		t.Parallel()

		ctrl := gomock.NewController(t)
		gateway := pushmock.NewMockGateway(ctrl)

		cfg := testPusherConfig()
		cfg.MaxAttempts = 2
		cfg.Timeout = 20 * time.Millisecond

		var timedOut atomic.Int32
		gateway.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(
			func(ctx context.Context, _ push.Message) error {
				<-ctx.Done()
				if errors.Is(ctx.Err(), context.DeadlineExceeded) {
					timedOut.Add(1)
				}
				return ctx.Err()
			},
		).Times(2)

		p := NewPusher(gateway, cfg, nil)
		startPusher(t, p)

		require.True(t, p.Enqueue(testPushMessage()))
		require.Eventually(t, func() bool { return timedOut.Load() == 2 }, time.Second, 5*time.Millisecond)
	})

	t.Run("ブレーカーが開くとゲートウェイを呼ばない", func(t *testing.T) {
		t.Parallel()

		ctrl := gomock.NewController(t)
		gateway := pushmock.NewMockGateway(ctrl)

		cfg := testPusherConfig()
		cfg.BreakerFailures = 2
		cfg.BreakerCooldown = time.Minute
		cfg.MaxAttempts = 4

		var calls atomic.Int32
		gateway.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(
			func(context.Context, push.Message) error {
				calls.Add(1)
				return errors.New("connection refused")
			},
		).Times(2)

		p := NewPusher(gateway, cfg, nil)
		startPusher(t, p)

		require.True(t, p.Enqueue(testPushMessage()))
		require.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, 5*time.Millisecond)
		assert.Never(t, func() bool { return calls.Load() > 2 }, 100*time.Millisecond, 10*time.Millisecond)
	})
}

func TestPusher_Enqueue(t *testing.T) {
	t.Parallel()

	t.Run("キューが満杯ならブロックせずにfalseを返す", func(t *testing.T) {
		t.Parallel()

		cfg := testPusherConfig()
		cfg.QueueSize = 1
		p := NewPusher(push.NewLogGateway(nil), cfg, nil)

		assert.True(t, p.Enqueue(testPushMessage()))
		assert.False(t, p.Enqueue(testPushMessage()))
	})

	t.Run("停止後はRunが戻る", func(t *testing.T) {
		t.Parallel()

		p := NewPusher(push.NewLogGateway(nil), testPusherConfig(), nil)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		assert.NoError(t, p.Run(ctx))
	})
}

func TestPusher_Shutdown(t *testing.T) {
	t.Parallel()

	t.Run("停止時にキューに残った依頼を配信してから戻る", func(t *testing.T) {
		t.Parallel()

		ctrl := gomock.NewController(t)
		gateway := pushmock.NewMockGateway(ctrl)

		var calls atomic.Int32
		gateway.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(
			func(context.Context, push.Message) error {
				calls.Add(1)
				return nil
			},
		).Times(3)

		p := NewPusher(gateway, testPusherConfig(), nil)
		for range 3 {
			require.True(t, p.Enqueue(testPushMessage()))
		}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		require.NoError(t, p.Run(ctx))
		assert.Equal(t, int32(3), calls.Load())

		// 停止後の依頼は受け付けない
		assert.False(t, p.Enqueue(testPushMessage()))
	})

	t.Run("猶予を過ぎた配信は打ち切って1件ずつログに残す", func(t *testing.T) {
		t.Parallel()

		ctrl := gomock.NewController(t)
		gateway := pushmock.NewMockGateway(ctrl)

		sending := make(chan struct{}, 1)
		gateway.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(
			func(ctx context.Context, _ push.Message) error {
				select {
				case sending <- struct{}{}:
				default:
				}
				<-ctx.Done()
				return ctx.Err()
			},
		).AnyTimes()

		cfg := testPusherConfig()
		cfg.MaxAttempts = 1
		cfg.Timeout = time.Minute
		cfg.DrainTimeout = 30 * time.Millisecond

		core, logs := observer.New(zap.InfoLevel)
		p := NewPusher(gateway, cfg, zap.New(core))

		first := testPushMessage()
		second := testPushMessage()
		second.NotificationID = "notif-2"
		require.True(t, p.Enqueue(first))
		require.True(t, p.Enqueue(second))

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- p.Run(ctx) }()

		// 1件目の送信中に停止する
		select {
		case <-sending:
		case <-time.After(time.Second):
			t.Fatal("送信が始まらない")
		}
		cancel()

		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("Runが猶予を過ぎても停止しない")
		}

		discarded := logs.FilterMessage("プッシュ通知を破棄しました").All()
		require.Len(t, discarded, 2)
		ids := []string{
			discarded[0].ContextMap()["notification_id"].(string),
			discarded[1].ContextMap()["notification_id"].(string),
		}
		assert.ElementsMatch(t, []string{"notif-1", "notif-2"}, ids)
	})
}
