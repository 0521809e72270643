package participationdb

import (
	"context"
	"database/sql"
	"time"
)

const meetingColumns = `id, organizer_id, title, latitude, longitude, max_participants, current_participants, status, version, deleted_at, created_at`

func scanMeeting(row interface{ Scan(...any) error }) (Meeting, error) {
	var i Meeting
	err := row.Scan(
		&i.ID,
		&i.OrganizerID,
		&i.Title,
		&i.Latitude,
		&i.Longitude,
		&i.MaxParticipants,
		&i.CurrentParticipants,
		&i.Status,
		&i.Version,
		&i.DeletedAt,
		&i.CreatedAt,
	)
	return i, err
}

const createMeeting = `INSERT INTO meetings (id, organizer_id, title, latitude, longitude, max_participants, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    title = excluded.title,
    latitude = excluded.latitude,
    longitude = excluded.longitude
RETURNING ` + meetingColumns

// CreateMeetingParams はCreateMeetingの引数。
type CreateMeetingParams struct {
	ID              string
	OrganizerID     string
	Title           string
	Latitude        sql.NullFloat64
	Longitude       sql.NullFloat64
	MaxParticipants int64
	CreatedAt       time.Time
}

// CreateMeeting はモイムを登録する。既に存在する場合はタイトルと座標のみ更新し、
// 定員と参加人数には触れない。
func (q *Queries) CreateMeeting(ctx context.Context, arg CreateMeetingParams) (Meeting, error) {
	return scanMeeting(q.db.QueryRowContext(ctx, createMeeting,
		arg.ID,
		arg.OrganizerID,
		arg.Title,
		arg.Latitude,
		arg.Longitude,
		arg.MaxParticipants,
		arg.CreatedAt,
	))
}

const getMeeting = `SELECT ` + meetingColumns + ` FROM meetings WHERE id = ? AND deleted_at IS NULL`

// GetMeeting は削除されていないモイムを取得する。
func (q *Queries) GetMeeting(ctx context.Context, id string) (Meeting, error) {
	return scanMeeting(q.db.QueryRowContext(ctx, getMeeting, id))
}

const isOrganizer = `SELECT EXISTS (
    SELECT 1 FROM meetings WHERE id = ? AND organizer_id = ? AND deleted_at IS NULL
)`

// IsOrganizerParams はIsOrganizerの引数。
type IsOrganizerParams struct {
	MeetingID string
	UserID    string
}

// IsOrganizer はユーザーがモイムの主催者かどうかを返す。
func (q *Queries) IsOrganizer(ctx context.Context, arg IsOrganizerParams) (bool, error) {
	var exists bool
	err := q.db.QueryRowContext(ctx, isOrganizer, arg.MeetingID, arg.UserID).Scan(&exists)
	return exists, err
}

// SQLiteのUPDATEはSET句で更新前の列値を参照する。
const reserveSeat = `UPDATE meetings SET
    current_participants = current_participants + 1,
    status = CASE
        WHEN status = 'RECRUITING' AND current_participants + 1 >= max_participants THEN 'FULL'
        ELSE status
    END,
    version = version + 1
WHERE id = ? AND deleted_at IS NULL AND current_participants < max_participants
RETURNING ` + meetingColumns

// ReserveSeat は空きがある場合に限り参加人数を1増やす。
// 空きがない場合はsql.ErrNoRowsを返す。
func (q *Queries) ReserveSeat(ctx context.Context, id string) (Meeting, error) {
	return scanMeeting(q.db.QueryRowContext(ctx, reserveSeat, id))
}

const releaseSeat = `UPDATE meetings SET
    current_participants = MAX(current_participants - 1, 0),
    status = CASE WHEN status = 'FULL' THEN 'RECRUITING' ELSE status END,
    version = version + 1
WHERE id = ? AND deleted_at IS NULL
RETURNING ` + meetingColumns

// ReleaseSeat は参加人数を1減らす。0未満にはならない。
func (q *Queries) ReleaseSeat(ctx context.Context, id string) (Meeting, error) {
	return scanMeeting(q.db.QueryRowContext(ctx, releaseSeat, id))
}

const updateMeetingStatus = `UPDATE meetings SET status = ?, version = version + 1
WHERE id = ? AND deleted_at IS NULL`

// UpdateMeetingStatusParams はUpdateMeetingStatusの引数。
type UpdateMeetingStatusParams struct {
	Status string
	ID     string
}

// UpdateMeetingStatus はモイムの状態を更新する。
func (q *Queries) UpdateMeetingStatus(ctx context.Context, arg UpdateMeetingStatusParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateMeetingStatus, arg.Status, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const softDeleteMeeting = `UPDATE meetings SET deleted_at = ?, version = version + 1
WHERE id = ? AND deleted_at IS NULL`

// SoftDeleteMeetingParams はSoftDeleteMeetingの引数。
type SoftDeleteMeetingParams struct {
	DeletedAt time.Time
	ID        string
}

// SoftDeleteMeeting はモイムを論理削除する。
func (q *Queries) SoftDeleteMeeting(ctx context.Context, arg SoftDeleteMeetingParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, softDeleteMeeting, arg.DeletedAt, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
