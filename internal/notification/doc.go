// Package notification は通知の記録・配信・受信箱操作を提供する。
//
// Dispatcherは参加申請の状態遷移などを契機に通知レコードを同期的に保存し、
// コミット後にPusherへプッシュ配信を依頼する。プッシュはワーカーが非同期に
// 再試行付きで送信し、失敗してもログに残すだけで通知レコードには影響しない。
// Serviceはユーザー向けの一覧・既読・削除を、Cleanerは保持期間を過ぎた
// 通知の削除を担当する。
package notification
