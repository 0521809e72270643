// Package httpclient は外部サービスとJSONで通信するHTTPクライアントを提供する。
//
// プッシュゲートウェイなど、meetupが呼び出す外部サービスとの通信に使用する。
// 2xx以外の応答はStatusErrorとして返し、呼び出し側が再試行の可否を判断できるようにする。
package httpclient
