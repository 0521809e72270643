package participation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	participationdb "github.com/nao1215/meetup/internal/participation/db"
	"github.com/nao1215/meetup/pkg/apperr"
)

// MeetingStore はLedgerが使うモイムの永続化操作。*participationdb.Queriesが満たす。
type MeetingStore interface {
	GetMeeting(ctx context.Context, id string) (participationdb.Meeting, error)
	ReserveSeat(ctx context.Context, id string) (participationdb.Meeting, error)
	ReleaseSeat(ctx context.Context, id string) (participationdb.Meeting, error)
}

// Capacity はモイムの定員と参加人数のスナップショット。
type Capacity struct {
	MeetingID string
	Current   int64
	Max       int64
	Status    string
}

// HasRoom は空きがあるかを返す。
func (c Capacity) HasRoom() bool {
	return c.Current < c.Max
}

func capacityOf(m participationdb.Meeting) Capacity {
	return Capacity{
		MeetingID: m.ID,
		Current:   m.CurrentParticipants,
		Max:       m.MaxParticipants,
		Status:    m.Status,
	}
}

// Ledger はモイムの参加人数を管理する唯一の窓口。
//
// 参加人数の更新はモイムの行への条件付きUPDATEで行うため、
// 直列化の範囲はそのモイム1件に限られる。
type Ledger struct {
	store MeetingStore
}

// NewLedger はLedgerを生成する。呼び出し側のトランザクションに
// 参加させる場合はトランザクションに束縛したstoreを渡す。
func NewLedger(store MeetingStore) *Ledger {
	return &Ledger{store: store}
}

// Snapshot は現在の参加人数を返す。申請時の事前確認にのみ使い、
// 席の確保には使わない。
func (l *Ledger) Snapshot(ctx context.Context, meetingID string) (Capacity, error) {
	m, err := l.store.GetMeeting(ctx, meetingID)
	if errors.Is(err, sql.ErrNoRows) {
		return Capacity{}, apperr.ErrMeetingNotFound
	}
	if err != nil {
		return Capacity{}, fmt.Errorf("モイムの取得に失敗: %w", err)
	}
	return capacityOf(m), nil
}

// Reserve は空きがあれば参加人数を1増やす。定員に達した場合はモイムがFULLになる。
// 空きがなければapperr.ErrMeetingFullを返す。
func (l *Ledger) Reserve(ctx context.Context, meetingID string) (Capacity, error) {
	m, err := l.store.ReserveSeat(ctx, meetingID)
	if err == nil {
		return capacityOf(m), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Capacity{}, fmt.Errorf("席の確保に失敗: %w", err)
	}

	// 更新されなかった理由を切り分ける
	if _, err := l.Snapshot(ctx, meetingID); err != nil {
		return Capacity{}, err
	}
	return Capacity{}, apperr.ErrMeetingFull
}

// Release は参加人数を1減らす。0未満にはならず、FULLのモイムはRECRUITINGに戻る。
func (l *Ledger) Release(ctx context.Context, meetingID string) (Capacity, error) {
	m, err := l.store.ReleaseSeat(ctx, meetingID)
	if errors.Is(err, sql.ErrNoRows) {
		return Capacity{}, apperr.ErrMeetingNotFound
	}
	if err != nil {
		return Capacity{}, fmt.Errorf("席の解放に失敗: %w", err)
	}
	return capacityOf(m), nil
}
