package participationdb

import (
	"database/sql"
	"time"
)

// Meeting はmeetingsテーブルの1行。
type Meeting struct {
	ID                  string
	OrganizerID         string
	Title               string
	Latitude            sql.NullFloat64
	Longitude           sql.NullFloat64
	MaxParticipants     int64
	CurrentParticipants int64
	Status              string
	Version             int64
	DeletedAt           sql.NullTime
	CreatedAt           time.Time
}

// User はusersテーブルの1行。
type User struct {
	ID              string
	DisplayName     string
	ProfileImageURL sql.NullString
	Latitude        sql.NullFloat64
	Longitude       sql.NullFloat64
}

// Participation はparticipationsテーブルの1行。
type Participation struct {
	ID                 string
	UserID             string
	MeetingID          string
	Status             string
	ApplicationMessage sql.NullString
	RejectionReason    sql.NullString
	RecommendationType sql.NullString
	DistanceKm         sql.NullFloat64
	PredictedRating    sql.NullFloat64
	AppliedAt          time.Time
	ApprovedAt         sql.NullTime
	CompletedAt        sql.NullTime
	UpdatedAt          time.Time
}
