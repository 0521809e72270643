// Package participation はモイムへの参加申請のライフサイクルを管理する。
//
// 申請・承認・却下・取消・完了の各操作は1つのトランザクションで実行され、
// 状態遷移、定員台帳（Ledger）の更新、通知レコードの保存がすべて成功した
// 場合のみコミットされる。プッシュ配信はコミット後に非同期で依頼する。
//
// 定員の判定は2段階で行う。申請時は台帳のスナップショットで空きを確認する
// だけで、実際に席を確保するのは承認時のLedger.Reserveである。Reserveは
// モイムの行に対する条件付きUPDATEで、空きがなければ失敗する。
package participation
