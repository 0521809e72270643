package push

import (
	"context"
	"fmt"

	"github.com/nao1215/meetup/pkg/httpclient"
)

// sendPath はHTTPゲートウェイの送信エンドポイント。
const sendPath = "/api/v1/push"

// HTTPGateway はHTTPでプッシュゲートウェイにイベントを送信する。
type HTTPGateway struct {
	client *httpclient.Client
}

// NewHTTPGateway はHTTPGatewayを生成する。
func NewHTTPGateway(client *httpclient.Client) *HTTPGateway {
	return &HTTPGateway{client: client}
}

// Send はNotificationPushedイベントをPOSTする。
// 4xx応答はErrRejectedとして返す。
func (g *HTTPGateway) Send(ctx context.Context, msg Message) error {
	ev, err := Envelope(msg)
	if err != nil {
		return err
	}

	ctx = httpclient.WithUserID(ctx, msg.UserID)
	if err := g.client.PostJSON(ctx, sendPath, ev, nil); err != nil {
		if !httpclient.IsRetryable(err) {
			return fmt.Errorf("%w: %w", ErrRejected, err)
		}
		return fmt.Errorf("HTTPゲートウェイへの送信に失敗: %w", err)
	}
	return nil
}
