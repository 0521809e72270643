package participation

import (
	"database/sql"
	"time"

	participationdb "github.com/nao1215/meetup/internal/participation/db"
)

// maxTextLength は申請メッセージと却下理由の最大文字数。
const maxTextLength = 500

// Participation は参加申請。
type Participation struct {
	ID                 string     `json:"id"`
	UserID             string     `json:"user_id"`
	MeetingID          string     `json:"meeting_id"`
	Status             Status     `json:"status"`
	ApplicationMessage *string    `json:"application_message,omitempty"`
	RejectionReason    *string    `json:"rejection_reason,omitempty"`
	RecommendationType *string    `json:"recommendation_type,omitempty"`
	DistanceKm         *float64   `json:"distance_km,omitempty"`
	PredictedRating    *float64   `json:"predicted_rating,omitempty"`
	AppliedAt          time.Time  `json:"applied_at"`
	ApprovedAt         *time.Time `json:"approved_at,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// Applicant は一覧表示用の申請者プロフィール。
type Applicant struct {
	DisplayName     string `json:"display_name"`
	ProfileImageURL string `json:"profile_image_url,omitempty"`
}

// Participant は申請者プロフィール付きの参加申請。
type Participant struct {
	Participation
	Applicant Applicant `json:"applicant"`
}

// StatusCounts は状態ごとの参加申請数。
type StatusCounts struct {
	Pending   int64 `json:"pending"`
	Approved  int64 `json:"approved"`
	Rejected  int64 `json:"rejected"`
	Cancelled int64 `json:"cancelled"`
	Completed int64 `json:"completed"`
	Total     int64 `json:"total"`
}

func (c *StatusCounts) add(status Status, n int64) {
	switch status {
	case StatusPending:
		c.Pending += n
	case StatusApproved:
		c.Approved += n
	case StatusRejected:
		c.Rejected += n
	case StatusCancelled:
		c.Cancelled += n
	case StatusCompleted:
		c.Completed += n
	}
	c.Total += n
}

// MeetingParticipants はモイムの参加申請一覧と集計。
type MeetingParticipants struct {
	MeetingID           string        `json:"meeting_id"`
	MaxParticipants     int64         `json:"max_participants"`
	CurrentParticipants int64         `json:"current_participants"`
	MeetingStatus       string        `json:"meeting_status"`
	Participants        []Participant `json:"participants"`
	Counts              StatusCounts  `json:"counts"`
}

// UserParticipation はモイム名付きの参加申請。
type UserParticipation struct {
	Participation
	MeetingTitle string `json:"meeting_title"`
}

func nullableString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullableFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullableTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time.UTC()
	return &t
}

func toNullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func toNullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func fromRow(p participationdb.Participation) Participation {
	return Participation{
		ID:                 p.ID,
		UserID:             p.UserID,
		MeetingID:          p.MeetingID,
		Status:             Status(p.Status),
		ApplicationMessage: nullableString(p.ApplicationMessage),
		RejectionReason:    nullableString(p.RejectionReason),
		RecommendationType: nullableString(p.RecommendationType),
		DistanceKm:         nullableFloat(p.DistanceKm),
		PredictedRating:    nullableFloat(p.PredictedRating),
		AppliedAt:          p.AppliedAt.UTC(),
		ApprovedAt:         nullableTime(p.ApprovedAt),
		CompletedAt:        nullableTime(p.CompletedAt),
		UpdatedAt:          p.UpdatedAt.UTC(),
	}
}
