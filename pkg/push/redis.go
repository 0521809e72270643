package push

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Publisher はRedisのPUBLISHを発行できるクライアント。*redis.Clientが満たす。
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisGateway はユーザーごとのRedisチャンネルにイベントをPUBLISHする。
// WebSocketサーバーなどの購読者が端末へ中継する。
type RedisGateway struct {
	publisher Publisher
	prefix    string
}

// NewRedisGateway はRedisGatewayを生成する。チャンネル名はprefix+ユーザーID。
func NewRedisGateway(publisher Publisher, prefix string) *RedisGateway {
	return &RedisGateway{publisher: publisher, prefix: prefix}
}

// Channel はユーザーの購読チャンネル名を返す。
func (g *RedisGateway) Channel(userID string) string {
	return g.prefix + userID
}

// Send はNotificationPushedイベントをJSONでPUBLISHする。
// 購読者がいない場合もエラーにはしない。
func (g *RedisGateway) Send(ctx context.Context, msg Message) error {
	ev, err := Envelope(msg)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRejected, err)
	}
	if err := g.publisher.Publish(ctx, g.Channel(msg.UserID), payload).Err(); err != nil {
		return fmt.Errorf("Redisへのpublishに失敗: %w", err)
	}
	return nil
}
