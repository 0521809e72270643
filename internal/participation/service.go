package participation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nao1215/meetup/internal/geo"
	"github.com/nao1215/meetup/internal/notification"
	participationdb "github.com/nao1215/meetup/internal/participation/db"
	"github.com/nao1215/meetup/pkg/apperr"
	"github.com/nao1215/meetup/pkg/event"
)

// Notifier は通知の保存とプッシュ依頼を行う。*notification.Dispatcherが満たす。
type Notifier interface {
	Record(ctx context.Context, tx *sql.Tx, req notification.Request) (notification.Notification, error)
	Push(cause event.Type, notifications ...notification.Notification)
}

// ApplyInput は参加申請の入力。
type ApplyInput struct {
	MeetingID          string
	Message            string
	RecommendationType string
}

// Service は参加申請の各操作を1つのトランザクションとして実行する。
type Service struct {
	db       *sql.DB
	queries  *participationdb.Queries
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewService はServiceを生成する。
func NewService(db *sql.DB, notifier Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		db:       db,
		queries:  participationdb.New(db),
		notifier: notifier,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// unitOfWork は1回の操作で使うトランザクションと、コミット後に配信する通知。
type unitOfWork struct {
	tx       *sql.Tx
	q        *participationdb.Queries
	ledger   *Ledger
	notifier Notifier
	cause    event.Type
	pending  []notification.Notification
}

// notify は通知を同じトランザクションで保存する。保存に失敗すれば操作全体が失敗する。
func (u *unitOfWork) notify(ctx context.Context, req notification.Request) error {
	n, err := u.notifier.Record(ctx, u.tx, req)
	if err != nil {
		return err
	}
	u.cause = req.Cause
	u.pending = append(u.pending, n)
	return nil
}

// run はfnをトランザクション内で実行し、コミットできた場合のみ通知のプッシュを依頼する。
func (s *Service) run(ctx context.Context, fn func(ctx context.Context, u *unitOfWork) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	q := s.queries.WithTx(tx)
	u := &unitOfWork{
		tx:       tx,
		q:        q,
		ledger:   NewLedger(q),
		notifier: s.notifier,
	}
	if err := fn(ctx, u); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("コミットに失敗: %w", err)
	}

	s.notifier.Push(u.cause, u.pending...)
	return nil
}

func getMeeting(ctx context.Context, q *participationdb.Queries, id string) (participationdb.Meeting, error) {
	m, err := q.GetMeeting(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return participationdb.Meeting{}, apperr.ErrMeetingNotFound
	}
	if err != nil {
		return participationdb.Meeting{}, fmt.Errorf("モイムの取得に失敗: %w", err)
	}
	return m, nil
}

func getParticipation(ctx context.Context, q *participationdb.Queries, id string) (participationdb.Participation, error) {
	p, err := q.GetParticipation(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return participationdb.Participation{}, apperr.ErrParticipationNotFound
	}
	if err != nil {
		return participationdb.Participation{}, fmt.Errorf("参加申請の取得に失敗: %w", err)
	}
	return p, nil
}

// displayName は申請者の表示名を返す。プロフィールが無ければ既定の名前を使う。
func displayName(ctx context.Context, q *participationdb.Queries, userID string) (string, error) {
	u, err := q.GetUser(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return unknownUserName, nil
	}
	if err != nil {
		return "", fmt.Errorf("ユーザーの取得に失敗: %w", err)
	}
	return u.DisplayName, nil
}

// requireOrganizer はuserIDがモイムの主催者でなければErrNotOrganizerを返す。
func requireOrganizer(ctx context.Context, q *participationdb.Queries, meetingID, userID string) error {
	ok, err := q.IsOrganizer(ctx, participationdb.IsOrganizerParams{MeetingID: meetingID, UserID: userID})
	if err != nil {
		return fmt.Errorf("主催者の確認に失敗: %w", err)
	}
	if !ok {
		return apperr.ErrNotOrganizer
	}
	return nil
}

// Apply はモイムへの参加を申請する。
//
// 定員の確認は台帳のスナップショットによる事前確認で、席は確保しない。
// 申請者と主催者の距離は申請時に一度だけ計算して保存する。
func (s *Service) Apply(ctx context.Context, userID string, in ApplyInput) (Participation, error) {
	if strings.TrimSpace(in.MeetingID) == "" {
		return Participation{}, apperr.New(apperr.CodeInvalidInput, "モイムIDが必要です")
	}
	if utf8.RuneCountInString(in.Message) > maxTextLength {
		return Participation{}, apperr.ErrMessageTooLong
	}

	var created Participation
	err := s.run(ctx, func(ctx context.Context, u *unitOfWork) error {
		meeting, err := getMeeting(ctx, u.q, in.MeetingID)
		if err != nil {
			return err
		}
		if meeting.Status == meetingStatusClosed {
			return apperr.ErrMeetingClosed
		}

		active, err := u.q.HasActiveParticipation(ctx, participationdb.HasActiveParticipationParams{
			UserID:    userID,
			MeetingID: meeting.ID,
		})
		if err != nil {
			return fmt.Errorf("既存の参加申請の確認に失敗: %w", err)
		}
		if active {
			return apperr.ErrAlreadyApplied
		}
		if meeting.OrganizerID == userID {
			return apperr.ErrOrganizerCannotApply
		}

		capacity, err := u.ledger.Snapshot(ctx, meeting.ID)
		if err != nil {
			return err
		}
		if !capacity.HasRoom() {
			return apperr.ErrMeetingFull
		}

		user, err := u.q.GetUser(ctx, userID)
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("ユーザーの取得に失敗: %w", err)
		}
		distance := geo.DistanceKm(
			nullableFloat(user.Latitude), nullableFloat(user.Longitude),
			nullableFloat(meeting.Latitude), nullableFloat(meeting.Longitude),
		)

		id := uuid.New().String()
		err = u.q.InsertParticipation(ctx, participationdb.InsertParticipationParams{
			ID:                 id,
			UserID:             userID,
			MeetingID:          meeting.ID,
			ApplicationMessage: toNullString(in.Message),
			RecommendationType: toNullString(in.RecommendationType),
			DistanceKm:         toNullFloat(distance),
			AppliedAt:          s.now(),
		})
		if participationdb.IsUniqueViolation(err) {
			return apperr.ErrAlreadyApplied
		}
		if err != nil {
			return fmt.Errorf("参加申請の作成に失敗: %w", err)
		}

		row, err := getParticipation(ctx, u.q, id)
		if err != nil {
			return err
		}
		created = fromRow(row)

		return u.notify(ctx, appliedNotice(meeting.OrganizerID, meeting.ID, meeting.Title, user.DisplayName))
	})
	if err != nil {
		return Participation{}, err
	}

	s.logger.Info("参加申請を受け付けました",
		zap.String("participation_id", created.ID),
		zap.String("meeting_id", created.MeetingID),
		zap.String("user_id", userID),
	)
	return created, nil
}

// Approve は主催者として参加申請を承認する。
// 台帳で席を確保できなかった場合、申請はPENDINGのまま残る。
func (s *Service) Approve(ctx context.Context, organizerID, participationID string) (Participation, error) {
	var approved Participation
	var capacity Capacity
	err := s.run(ctx, func(ctx context.Context, u *unitOfWork) error {
		p, err := getParticipation(ctx, u.q, participationID)
		if err != nil {
			return err
		}
		meeting, err := getMeeting(ctx, u.q, p.MeetingID)
		if err != nil {
			return err
		}
		if err := requireOrganizer(ctx, u.q, meeting.ID, organizerID); err != nil {
			return err
		}
		if _, err := Next(Status(p.Status), ActionApprove); err != nil {
			return err
		}

		capacity, err = u.ledger.Reserve(ctx, meeting.ID)
		if err != nil {
			return err
		}

		affected, err := u.q.ApproveParticipation(ctx, participationdb.ApproveParticipationParams{
			ApprovedAt: s.now(),
			ID:         p.ID,
		})
		if err != nil {
			return fmt.Errorf("参加申請の承認に失敗: %w", err)
		}
		if affected == 0 {
			return apperr.ErrInvalidTransition
		}

		row, err := getParticipation(ctx, u.q, p.ID)
		if err != nil {
			return err
		}
		approved = fromRow(row)

		return u.notify(ctx, approvedNotice(p.UserID, meeting.ID, meeting.Title))
	})
	if err != nil {
		return Participation{}, err
	}

	s.logger.Info("参加申請を承認しました",
		zap.String("participation_id", approved.ID),
		zap.String("meeting_id", approved.MeetingID),
		zap.Int64("current_participants", capacity.Current),
		zap.Int64("max_participants", capacity.Max),
	)
	return approved, nil
}

// Reject は主催者として参加申請を却下する。reasonは空でもよい。
func (s *Service) Reject(ctx context.Context, organizerID, participationID, reason string) (Participation, error) {
	if utf8.RuneCountInString(reason) > maxTextLength {
		return Participation{}, apperr.ErrReasonTooLong
	}

	var rejected Participation
	err := s.run(ctx, func(ctx context.Context, u *unitOfWork) error {
		p, err := getParticipation(ctx, u.q, participationID)
		if err != nil {
			return err
		}
		meeting, err := getMeeting(ctx, u.q, p.MeetingID)
		if err != nil {
			return err
		}
		if err := requireOrganizer(ctx, u.q, meeting.ID, organizerID); err != nil {
			return err
		}
		if _, err := Next(Status(p.Status), ActionReject); err != nil {
			return err
		}

		affected, err := u.q.RejectParticipation(ctx, participationdb.RejectParticipationParams{
			RejectionReason: toNullString(reason),
			UpdatedAt:       s.now(),
			ID:              p.ID,
		})
		if err != nil {
			return fmt.Errorf("参加申請の却下に失敗: %w", err)
		}
		if affected == 0 {
			return apperr.ErrInvalidTransition
		}

		row, err := getParticipation(ctx, u.q, p.ID)
		if err != nil {
			return err
		}
		rejected = fromRow(row)

		return u.notify(ctx, rejectedNotice(p.UserID, meeting.ID, meeting.Title, reason))
	})
	if err != nil {
		return Participation{}, err
	}

	s.logger.Info("参加申請を却下しました",
		zap.String("participation_id", rejected.ID),
		zap.String("meeting_id", rejected.MeetingID),
	)
	return rejected, nil
}

// Cancel は申請者本人として参加申請を取り消す。
// 承認済みだった場合は同じトランザクションで席を解放する。
func (s *Service) Cancel(ctx context.Context, userID, participationID string) (Participation, error) {
	var cancelled Participation
	err := s.run(ctx, func(ctx context.Context, u *unitOfWork) error {
		p, err := getParticipation(ctx, u.q, participationID)
		if err != nil {
			return err
		}
		if p.UserID != userID {
			return apperr.ErrNotOwner
		}
		from := Status(p.Status)
		if _, err := Next(from, ActionCancel); err != nil {
			return err
		}
		meeting, err := getMeeting(ctx, u.q, p.MeetingID)
		if err != nil {
			return err
		}

		if from == StatusApproved {
			if _, err := u.ledger.Release(ctx, meeting.ID); err != nil {
				return err
			}
		}

		affected, err := u.q.CancelParticipation(ctx, participationdb.CancelParticipationParams{
			UpdatedAt:  s.now(),
			ID:         p.ID,
			FromStatus: p.Status,
		})
		if err != nil {
			return fmt.Errorf("参加申請の取消に失敗: %w", err)
		}
		if affected == 0 {
			return apperr.ErrInvalidTransition
		}

		row, err := getParticipation(ctx, u.q, p.ID)
		if err != nil {
			return err
		}
		cancelled = fromRow(row)

		name, err := displayName(ctx, u.q, userID)
		if err != nil {
			return err
		}
		return u.notify(ctx, cancelledNotice(meeting.OrganizerID, meeting.ID, meeting.Title, name))
	})
	if err != nil {
		return Participation{}, err
	}

	s.logger.Info("参加申請を取り消しました",
		zap.String("participation_id", cancelled.ID),
		zap.String("meeting_id", cancelled.MeetingID),
	)
	return cancelled, nil
}

// Complete は主催者としてモイムを完了し、承認済みの参加をすべてCOMPLETEDにする。
// 参加人数は実績として残すため台帳は変更しない。
func (s *Service) Complete(ctx context.Context, organizerID, meetingID string) ([]Participation, error) {
	var completed []Participation
	err := s.run(ctx, func(ctx context.Context, u *unitOfWork) error {
		meeting, err := getMeeting(ctx, u.q, meetingID)
		if err != nil {
			return err
		}
		if err := requireOrganizer(ctx, u.q, meeting.ID, organizerID); err != nil {
			return err
		}

		rows, err := u.q.CompleteApprovedParticipations(ctx, participationdb.CompleteApprovedParticipationsParams{
			CompletedAt: s.now(),
			MeetingID:   meeting.ID,
		})
		if err != nil {
			return fmt.Errorf("参加の完了処理に失敗: %w", err)
		}
		if len(rows) == 0 {
			return apperr.ErrNoApprovedParticipants
		}

		completed = make([]Participation, 0, len(rows))
		for _, row := range rows {
			completed = append(completed, fromRow(row))
			if err := u.notify(ctx, completedNotice(row.UserID, meeting.ID, meeting.Title)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("モイムの参加を完了しました",
		zap.String("meeting_id", meetingID),
		zap.Int("completed", len(completed)),
	)
	return completed, nil
}

// Get は参加申請を返す。閲覧できるのは申請者本人とモイムの主催者のみ。
func (s *Service) Get(ctx context.Context, viewerID, participationID string) (Participation, error) {
	p, err := getParticipation(ctx, s.queries, participationID)
	if err != nil {
		return Participation{}, err
	}
	if p.UserID != viewerID {
		if err := requireOrganizer(ctx, s.queries, p.MeetingID, viewerID); err != nil {
			if errors.Is(err, apperr.ErrNotOrganizer) {
				return Participation{}, apperr.ErrNotOwner
			}
			return Participation{}, err
		}
	}
	return fromRow(p), nil
}

// ListByMeeting はモイムの参加申請を申請順に、状態ごとの件数とともに返す。
func (s *Service) ListByMeeting(ctx context.Context, meetingID string) (MeetingParticipants, error) {
	meeting, err := getMeeting(ctx, s.queries, meetingID)
	if err != nil {
		return MeetingParticipants{}, err
	}

	rows, err := s.queries.ListParticipationsByMeeting(ctx, meeting.ID)
	if err != nil {
		return MeetingParticipants{}, fmt.Errorf("参加申請一覧の取得に失敗: %w", err)
	}
	counts, err := s.queries.CountParticipationsByStatus(ctx, meeting.ID)
	if err != nil {
		return MeetingParticipants{}, fmt.Errorf("参加申請の集計に失敗: %w", err)
	}

	out := MeetingParticipants{
		MeetingID:           meeting.ID,
		MaxParticipants:     meeting.MaxParticipants,
		CurrentParticipants: meeting.CurrentParticipants,
		MeetingStatus:       meeting.Status,
		Participants:        make([]Participant, 0, len(rows)),
	}
	for _, row := range rows {
		name := row.DisplayName.String
		if !row.DisplayName.Valid {
			name = unknownUserName
		}
		out.Participants = append(out.Participants, Participant{
			Participation: fromRow(row.Participation),
			Applicant: Applicant{
				DisplayName:     name,
				ProfileImageURL: row.ProfileImageURL.String,
			},
		})
	}
	for _, c := range counts {
		out.Counts.add(Status(c.Status), c.Count)
	}
	return out, nil
}

// ListByUser はユーザー自身の参加申請を新しい順に返す。
func (s *Service) ListByUser(ctx context.Context, userID string) ([]UserParticipation, error) {
	rows, err := s.queries.ListParticipationsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("参加申請一覧の取得に失敗: %w", err)
	}
	out := make([]UserParticipation, 0, len(rows))
	for _, row := range rows {
		out = append(out, UserParticipation{
			Participation: fromRow(row.Participation),
			MeetingTitle:  row.MeetingTitle,
		})
	}
	return out, nil
}

// RecordPredictedRating はスコアリングサービスが算出した予測評価を保存する。
// 値は検証せずそのまま保存し、nilなら消去する。
func (s *Service) RecordPredictedRating(ctx context.Context, participationID string, rating *float64) (Participation, error) {
	affected, err := s.queries.SetPredictedRating(ctx, participationdb.SetPredictedRatingParams{
		PredictedRating: toNullFloat(rating),
		UpdatedAt:       s.now(),
		ID:              participationID,
	})
	if err != nil {
		return Participation{}, fmt.Errorf("予測評価の保存に失敗: %w", err)
	}
	if affected == 0 {
		return Participation{}, apperr.ErrParticipationNotFound
	}

	p, err := getParticipation(ctx, s.queries, participationID)
	if err != nil {
		return Participation{}, err
	}
	return fromRow(p), nil
}
