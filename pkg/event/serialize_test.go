package event

import (
	"encoding/json"
	"testing"
	"time"
)

// TestNew はNew関数でイベントが正しく生成されることを検証する。
func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("NotificationPushedDataでイベントを正常に生成できること", func(t *testing.T) {
		t.Parallel()

		data := NotificationPushedData{
			NotificationID:   "notif-1",
			UserID:           "user-1",
			Title:            "参加が承認されました",
			Body:             "週末ハイキングへの参加が承認されました。",
			NotificationType: "MEETING",
			Link:             "/meetings/meeting-1",
			Cause:            TypeParticipationApproved,
		}

		before := time.Now().UTC()
		ev, err := New("notif-1", AggregateTypeNotification, TypeNotificationPushed, 1, data)
		after := time.Now().UTC()

		if err != nil {
			t.Fatalf("New()でエラーが発生: %v", err)
		}
		if ev == nil {
			t.Fatal("New()がnilを返した")
		}
		if ev.ID == "" {
			t.Error("IDが空文字列")
		}
		if ev.AggregateID != "notif-1" {
			t.Errorf("AggregateID = %q, want %q", ev.AggregateID, "notif-1")
		}
		if ev.AggregateType != AggregateTypeNotification {
			t.Errorf("AggregateType = %q, want %q", ev.AggregateType, AggregateTypeNotification)
		}
		if ev.EventType != TypeNotificationPushed {
			t.Errorf("EventType = %q, want %q", ev.EventType, TypeNotificationPushed)
		}
		if ev.CreatedAt.Before(before) || ev.CreatedAt.After(after) {
			t.Errorf("CreatedAt = %v, 期待する範囲: [%v, %v]", ev.CreatedAt, before, after)
		}

		var decoded NotificationPushedData
		if err := json.Unmarshal(ev.Data, &decoded); err != nil {
			t.Fatalf("Dataのデシリアライズに失敗: %v", err)
		}
		if decoded.Cause != TypeParticipationApproved {
			t.Errorf("Data.Cause = %q, want %q", decoded.Cause, TypeParticipationApproved)
		}
	})

	t.Run("連続して生成したイベントのIDが異なること", func(t *testing.T) {
		t.Parallel()

		ev1, err := New("notif-1", AggregateTypeNotification, TypeNotificationPushed, 1, struct{}{})
		if err != nil {
			t.Fatalf("1回目のNew()でエラーが発生: %v", err)
		}
		ev2, err := New("notif-1", AggregateTypeNotification, TypeNotificationPushed, 1, struct{}{})
		if err != nil {
			t.Fatalf("2回目のNew()でエラーが発生: %v", err)
		}
		if ev1.ID == ev2.ID {
			t.Errorf("異なるイベントが同じIDを持っている: %q", ev1.ID)
		}
	})

	t.Run("シリアライズ不可能なデータでエラーが返ること", func(t *testing.T) {
		t.Parallel()

		ev, err := New("notif-2", AggregateTypeNotification, TypeNotificationPushed, 1, make(chan int))
		if err == nil {
			t.Fatal("New()がエラーを返すべきだが、nilが返った")
		}
		if ev != nil {
			t.Error("エラー時にnilでないEventが返った")
		}
	})
}
