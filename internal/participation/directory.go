package participation

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	participationdb "github.com/nao1215/meetup/internal/participation/db"
	"github.com/nao1215/meetup/pkg/apperr"
)

// モイムの状態。参加人数による RECRUITING と FULL の切り替えは台帳のみが行う。
const (
	meetingStatusRecruiting = "RECRUITING"
	meetingStatusFull       = "FULL"
	meetingStatusClosed     = "CLOSED"
)

// MeetingInput はモイム管理サービスから同期されるモイム情報。
type MeetingInput struct {
	ID              string   `json:"id"`
	OrganizerID     string   `json:"organizer_id"`
	Title           string   `json:"title"`
	Latitude        *float64 `json:"latitude"`
	Longitude       *float64 `json:"longitude"`
	MaxParticipants int64    `json:"max_participants"`
}

// Meeting は台帳から見たモイム。
type Meeting struct {
	ID                  string   `json:"id"`
	OrganizerID         string   `json:"organizer_id"`
	Title               string   `json:"title"`
	Latitude            *float64 `json:"latitude,omitempty"`
	Longitude           *float64 `json:"longitude,omitempty"`
	MaxParticipants     int64    `json:"max_participants"`
	CurrentParticipants int64    `json:"current_participants"`
	Status              string   `json:"status"`
}

func meetingFromRow(m participationdb.Meeting) Meeting {
	return Meeting{
		ID:                  m.ID,
		OrganizerID:         m.OrganizerID,
		Title:               m.Title,
		Latitude:            nullableFloat(m.Latitude),
		Longitude:           nullableFloat(m.Longitude),
		MaxParticipants:     m.MaxParticipants,
		CurrentParticipants: m.CurrentParticipants,
		Status:              m.Status,
	}
}

// UserInput はユーザー管理サービスから同期されるプロフィール。
type UserInput struct {
	DisplayName     string   `json:"display_name"`
	ProfileImageURL string   `json:"profile_image_url"`
	Latitude        *float64 `json:"latitude"`
	Longitude       *float64 `json:"longitude"`
}

// RegisterMeeting はモイムを登録する。登録済みならタイトルと座標のみ更新し、
// 定員と参加人数は変更しない。
func (s *Service) RegisterMeeting(ctx context.Context, in MeetingInput) (Meeting, error) {
	if strings.TrimSpace(in.ID) == "" || strings.TrimSpace(in.OrganizerID) == "" {
		return Meeting{}, apperr.New(apperr.CodeInvalidInput, "モイムIDと主催者IDが必要です")
	}
	if strings.TrimSpace(in.Title) == "" {
		return Meeting{}, apperr.New(apperr.CodeInvalidInput, "タイトルが必要です")
	}
	if in.MaxParticipants <= 0 {
		return Meeting{}, apperr.New(apperr.CodeInvalidInput, "定員は1以上である必要があります")
	}

	m, err := s.queries.CreateMeeting(ctx, participationdb.CreateMeetingParams{
		ID:              in.ID,
		OrganizerID:     in.OrganizerID,
		Title:           in.Title,
		Latitude:        toNullFloat(in.Latitude),
		Longitude:       toNullFloat(in.Longitude),
		MaxParticipants: in.MaxParticipants,
		CreatedAt:       s.now(),
	})
	if err != nil {
		return Meeting{}, fmt.Errorf("モイムの登録に失敗: %w", err)
	}
	s.logger.Info("モイムを登録しました", zap.String("meeting_id", m.ID))
	return meetingFromRow(m), nil
}

// CloseMeeting はモイムの募集を終了する。以降の参加申請はErrMeetingClosedになる。
func (s *Service) CloseMeeting(ctx context.Context, meetingID string) error {
	affected, err := s.queries.UpdateMeetingStatus(ctx, participationdb.UpdateMeetingStatusParams{
		Status: meetingStatusClosed,
		ID:     meetingID,
	})
	if err != nil {
		return fmt.Errorf("モイムの状態更新に失敗: %w", err)
	}
	if affected == 0 {
		return apperr.ErrMeetingNotFound
	}
	return nil
}

// DeleteMeeting はモイムを論理削除する。
func (s *Service) DeleteMeeting(ctx context.Context, meetingID string) error {
	affected, err := s.queries.SoftDeleteMeeting(ctx, participationdb.SoftDeleteMeetingParams{
		DeletedAt: s.now(),
		ID:        meetingID,
	})
	if err != nil {
		return fmt.Errorf("モイムの削除に失敗: %w", err)
	}
	if affected == 0 {
		return apperr.ErrMeetingNotFound
	}
	return nil
}

// SyncUser はユーザーのプロフィールを保存する。
func (s *Service) SyncUser(ctx context.Context, userID string, in UserInput) error {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(in.DisplayName) == "" {
		return apperr.New(apperr.CodeInvalidInput, "ユーザーIDと表示名が必要です")
	}
	err := s.queries.UpsertUser(ctx, participationdb.UpsertUserParams{
		ID:              userID,
		DisplayName:     in.DisplayName,
		ProfileImageURL: toNullString(in.ProfileImageURL),
		Latitude:        toNullFloat(in.Latitude),
		Longitude:       toNullFloat(in.Longitude),
	})
	if err != nil {
		return fmt.Errorf("ユーザーの保存に失敗: %w", err)
	}
	return nil
}
