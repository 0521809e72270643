package push

import (
	"context"

	"go.uber.org/zap"
)

// LogGateway は送信内容をログに出力するだけのゲートウェイ。
// 開発環境やゲートウェイ未設定時に使用する。
type LogGateway struct {
	logger *zap.Logger
}

// NewLogGateway はLogGatewayを生成する。
func NewLogGateway(logger *zap.Logger) *LogGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogGateway{logger: logger}
}

// Send はメッセージをInfoレベルで記録する。
func (g *LogGateway) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.logger.Info("プッシュ通知",
		zap.String("notification_id", msg.NotificationID),
		zap.String("user_id", msg.UserID),
		zap.String("type", msg.Type),
		zap.String("title", msg.Title),
		zap.String("link", msg.Link),
		zap.String("cause", string(msg.Cause)),
	)
	return nil
}
