package participation

import (
	"fmt"

	"github.com/nao1215/meetup/internal/notification"
	"github.com/nao1215/meetup/pkg/event"
)

// 各状態遷移で送る通知の文面。遷移1回につき通知は1件（完了は参加者ごとに1件）。

// unknownUserName はプロフィールが見つからない申請者の表示名。
const unknownUserName = "参加者"

func meetingLink(meetingID string) string {
	return "/meetings/" + meetingID
}

func appliedNotice(organizerID, meetingID, meetingTitle, applicantName string) notification.Request {
	return notification.Request{
		UserID:    organizerID,
		Type:      notification.TypeMeeting,
		Title:     "新しい参加申請があります",
		Body:      fmt.Sprintf("%sさんが「%s」に参加を申請しました。", applicantName, meetingTitle),
		Link:      meetingLink(meetingID),
		RelatedID: meetingID,
		Cause:     event.TypeParticipationApplied,
	}
}

func approvedNotice(applicantID, meetingID, meetingTitle string) notification.Request {
	return notification.Request{
		UserID:    applicantID,
		Type:      notification.TypeMeeting,
		Title:     "参加申請が承認されました",
		Body:      fmt.Sprintf("「%s」への参加が承認されました。", meetingTitle),
		Link:      meetingLink(meetingID),
		RelatedID: meetingID,
		Cause:     event.TypeParticipationApproved,
	}
}

func rejectedNotice(applicantID, meetingID, meetingTitle, reason string) notification.Request {
	body := fmt.Sprintf("「%s」への参加申請は承認されませんでした。", meetingTitle)
	if reason != "" {
		body += "\n理由: " + reason
	}
	return notification.Request{
		UserID:    applicantID,
		Type:      notification.TypeMeeting,
		Title:     "参加申請が却下されました",
		Body:      body,
		Link:      meetingLink(meetingID),
		RelatedID: meetingID,
		Cause:     event.TypeParticipationRejected,
	}
}

func cancelledNotice(organizerID, meetingID, meetingTitle, applicantName string) notification.Request {
	return notification.Request{
		UserID:    organizerID,
		Type:      notification.TypeMeeting,
		Title:     "参加がキャンセルされました",
		Body:      fmt.Sprintf("%sさんが「%s」への参加をキャンセルしました。", applicantName, meetingTitle),
		Link:      meetingLink(meetingID),
		RelatedID: meetingID,
		Cause:     event.TypeParticipationCancelled,
	}
}

func completedNotice(participantID, meetingID, meetingTitle string) notification.Request {
	return notification.Request{
		UserID:    participantID,
		Type:      notification.TypeMeeting,
		Title:     "モイムが終了しました",
		Body:      fmt.Sprintf("「%s」はいかがでしたか？ほかの参加者へのレビューを書きましょう。", meetingTitle),
		Link:      meetingLink(meetingID) + "/reviews",
		RelatedID: meetingID,
		Cause:     event.TypeParticipationCompleted,
	}
}
