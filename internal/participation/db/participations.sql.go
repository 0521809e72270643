package participationdb

import (
	"context"
	"database/sql"
	"time"
)

const participationColumns = `p.id, p.user_id, p.meeting_id, p.status, p.application_message, p.rejection_reason,
    p.recommendation_type, p.distance_km, p.predicted_rating, p.applied_at, p.approved_at, p.completed_at, p.updated_at`

func participationFields(i *Participation) []any {
	return []any{
		&i.ID,
		&i.UserID,
		&i.MeetingID,
		&i.Status,
		&i.ApplicationMessage,
		&i.RejectionReason,
		&i.RecommendationType,
		&i.DistanceKm,
		&i.PredictedRating,
		&i.AppliedAt,
		&i.ApprovedAt,
		&i.CompletedAt,
		&i.UpdatedAt,
	}
}

const insertParticipation = `INSERT INTO participations (
    id, user_id, meeting_id, status, application_message, recommendation_type, distance_km, applied_at, updated_at
) VALUES (?, ?, ?, 'PENDING', ?, ?, ?, ?, ?)`

// InsertParticipationParams はInsertParticipationの引数。
type InsertParticipationParams struct {
	ID                 string
	UserID             string
	MeetingID          string
	ApplicationMessage sql.NullString
	RecommendationType sql.NullString
	DistanceKm         sql.NullFloat64
	AppliedAt          time.Time
}

// InsertParticipation はPENDING状態の参加申請を作成する。
// 同じユーザーとモイムの組に未終了の申請があればUNIQUE制約違反になる。
func (q *Queries) InsertParticipation(ctx context.Context, arg InsertParticipationParams) error {
	_, err := q.db.ExecContext(ctx, insertParticipation,
		arg.ID,
		arg.UserID,
		arg.MeetingID,
		arg.ApplicationMessage,
		arg.RecommendationType,
		arg.DistanceKm,
		arg.AppliedAt,
		arg.AppliedAt,
	)
	return err
}

const getParticipation = `SELECT ` + participationColumns + ` FROM participations p WHERE p.id = ?`

// GetParticipation はIDで参加申請を取得する。
func (q *Queries) GetParticipation(ctx context.Context, id string) (Participation, error) {
	var i Participation
	err := q.db.QueryRowContext(ctx, getParticipation, id).Scan(participationFields(&i)...)
	return i, err
}

const hasActiveParticipation = `SELECT EXISTS (
    SELECT 1 FROM participations
    WHERE user_id = ? AND meeting_id = ? AND status IN ('PENDING', 'APPROVED')
)`

// HasActiveParticipationParams はHasActiveParticipationの引数。
type HasActiveParticipationParams struct {
	UserID    string
	MeetingID string
}

// HasActiveParticipation は未終了の参加申請が存在するかを返す。
func (q *Queries) HasActiveParticipation(ctx context.Context, arg HasActiveParticipationParams) (bool, error) {
	var exists bool
	err := q.db.QueryRowContext(ctx, hasActiveParticipation, arg.UserID, arg.MeetingID).Scan(&exists)
	return exists, err
}

const approveParticipation = `UPDATE participations SET status = 'APPROVED', approved_at = ?, updated_at = ?
WHERE id = ? AND status = 'PENDING'`

// ApproveParticipationParams はApproveParticipationの引数。
type ApproveParticipationParams struct {
	ApprovedAt time.Time
	ID         string
}

// ApproveParticipation はPENDINGの申請をAPPROVEDにし、更新した行数を返す。
func (q *Queries) ApproveParticipation(ctx context.Context, arg ApproveParticipationParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, approveParticipation, arg.ApprovedAt, arg.ApprovedAt, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const rejectParticipation = `UPDATE participations SET status = 'REJECTED', rejection_reason = ?, updated_at = ?
WHERE id = ? AND status = 'PENDING'`

// RejectParticipationParams はRejectParticipationの引数。
type RejectParticipationParams struct {
	RejectionReason sql.NullString
	UpdatedAt       time.Time
	ID              string
}

// RejectParticipation はPENDINGの申請をREJECTEDにし、更新した行数を返す。
func (q *Queries) RejectParticipation(ctx context.Context, arg RejectParticipationParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, rejectParticipation, arg.RejectionReason, arg.UpdatedAt, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const cancelParticipation = `UPDATE participations SET status = 'CANCELLED', updated_at = ?
WHERE id = ? AND status = ?`

// CancelParticipationParams はCancelParticipationの引数。
type CancelParticipationParams struct {
	UpdatedAt time.Time
	ID        string
	// FromStatus は取消前の状態。読み取り時から変わっていれば更新されない。
	FromStatus string
}

// CancelParticipation は申請をCANCELLEDにし、更新した行数を返す。
func (q *Queries) CancelParticipation(ctx context.Context, arg CancelParticipationParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, cancelParticipation, arg.UpdatedAt, arg.ID, arg.FromStatus)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const completeApprovedParticipations = `UPDATE participations SET status = 'COMPLETED', completed_at = ?, updated_at = ?
WHERE meeting_id = ? AND status = 'APPROVED'
RETURNING id, user_id, meeting_id, status, application_message, rejection_reason,
    recommendation_type, distance_km, predicted_rating, applied_at, approved_at, completed_at, updated_at`

// CompleteApprovedParticipationsParams はCompleteApprovedParticipationsの引数。
type CompleteApprovedParticipationsParams struct {
	CompletedAt time.Time
	MeetingID   string
}

// CompleteApprovedParticipations はモイムのAPPROVEDの申請をすべてCOMPLETEDにし、
// 更新した申請を返す。
func (q *Queries) CompleteApprovedParticipations(ctx context.Context, arg CompleteApprovedParticipationsParams) ([]Participation, error) {
	rows, err := q.db.QueryContext(ctx, completeApprovedParticipations, arg.CompletedAt, arg.CompletedAt, arg.MeetingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Participation{}
	for rows.Next() {
		var i Participation
		if err := rows.Scan(participationFields(&i)...); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const setPredictedRating = `UPDATE participations SET predicted_rating = ?, updated_at = ? WHERE id = ?`

// SetPredictedRatingParams はSetPredictedRatingの引数。
type SetPredictedRatingParams struct {
	PredictedRating sql.NullFloat64
	UpdatedAt       time.Time
	ID              string
}

// SetPredictedRating はスコアリングサービスが算出した予測評価を保存する。
func (q *Queries) SetPredictedRating(ctx context.Context, arg SetPredictedRatingParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, setPredictedRating, arg.PredictedRating, arg.UpdatedAt, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listParticipationsByMeeting = `SELECT ` + participationColumns + `, u.display_name, u.profile_image_url
FROM participations p
LEFT JOIN users u ON u.id = p.user_id
WHERE p.meeting_id = ?
ORDER BY p.applied_at ASC, p.id ASC`

// ListParticipationsByMeetingRow は申請者プロフィール付きの参加申請。
type ListParticipationsByMeetingRow struct {
	Participation
	DisplayName     sql.NullString
	ProfileImageURL sql.NullString
}

// ListParticipationsByMeeting はモイムの参加申請を申請順に返す。
func (q *Queries) ListParticipationsByMeeting(ctx context.Context, meetingID string) ([]ListParticipationsByMeetingRow, error) {
	rows, err := q.db.QueryContext(ctx, listParticipationsByMeeting, meetingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ListParticipationsByMeetingRow{}
	for rows.Next() {
		var i ListParticipationsByMeetingRow
		dest := append(participationFields(&i.Participation), &i.DisplayName, &i.ProfileImageURL)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listParticipationsByUser = `SELECT ` + participationColumns + `, m.title
FROM participations p
JOIN meetings m ON m.id = p.meeting_id
WHERE p.user_id = ?
ORDER BY p.applied_at DESC, p.id DESC`

// ListParticipationsByUserRow はモイム名付きの参加申請。
type ListParticipationsByUserRow struct {
	Participation
	MeetingTitle string
}

// ListParticipationsByUser はユーザー自身の参加申請を新しい順に返す。
func (q *Queries) ListParticipationsByUser(ctx context.Context, userID string) ([]ListParticipationsByUserRow, error) {
	rows, err := q.db.QueryContext(ctx, listParticipationsByUser, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ListParticipationsByUserRow{}
	for rows.Next() {
		var i ListParticipationsByUserRow
		dest := append(participationFields(&i.Participation), &i.MeetingTitle)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countParticipationsByStatus = `SELECT status, COUNT(*) FROM participations
WHERE meeting_id = ?
GROUP BY status`

// CountParticipationsByStatusRow は状態ごとの件数。
type CountParticipationsByStatusRow struct {
	Status string
	Count  int64
}

// CountParticipationsByStatus はモイムの参加申請を状態ごとに数える。
func (q *Queries) CountParticipationsByStatus(ctx context.Context, meetingID string) ([]CountParticipationsByStatusRow, error) {
	rows, err := q.db.QueryContext(ctx, countParticipationsByStatus, meetingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []CountParticipationsByStatusRow{}
	for rows.Next() {
		var i CountParticipationsByStatusRow
		if err := rows.Scan(&i.Status, &i.Count); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
