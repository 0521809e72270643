// Package push はプッシュ通知ゲートウェイへの送信を抽象化する。
//
// ゲートウェイは永続化済みの通知を端末へ届ける外部サービスで、
// meetupからはGatewayインターフェースを通してのみ利用する。
// 送信は常にベストエフォートであり、失敗しても通知レコードには影響しない。
package push
