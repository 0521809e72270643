// Package apperr はドメインエラーの分類（Kind）と機械可読なコード（Code）を提供する。
//
// 状態遷移やキャパシティ制御で発生する業務ルール違反はすべてこのパッケージの
// Errorとして呼び出し元に返される。HTTP層はKindからステータスコードを決定する。
package apperr

import (
	"errors"
	"net/http"
)

// Kind はエラーの大分類を表す。
type Kind string

const (
	// KindNotFound は対象が存在しないことを表す。
	KindNotFound Kind = "NOT_FOUND"
	// KindConflict は現在の状態と競合することを表す。
	KindConflict Kind = "CONFLICT"
	// KindForbidden は操作権限がないことを表す。
	KindForbidden Kind = "FORBIDDEN"
	// KindInvalidTransition は許可されていない状態遷移を表す。
	KindInvalidTransition Kind = "INVALID_TRANSITION"
	// KindValidation は入力値が不正であることを表す。
	KindValidation Kind = "VALIDATION"
	// KindInternal は分類できない内部エラーを表す。
	KindInternal Kind = "INTERNAL"
)

// HTTPStatus はKindに対応するHTTPステータスコードを返す。
func (k Kind) HTTPStatus() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict, KindInvalidTransition:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	case KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Code は機械可読なエラーコード。
type Code string

const (
	CodeMeetingNotFound        Code = "MEETING_NOT_FOUND"
	CodeParticipationNotFound  Code = "PARTICIPATION_NOT_FOUND"
	CodeUserNotFound           Code = "USER_NOT_FOUND"
	CodeNotificationNotFound   Code = "NOTIFICATION_NOT_FOUND"
	CodeAlreadyApplied         Code = "ALREADY_APPLIED"
	CodeMeetingFull            Code = "MEETING_FULL"
	CodeMeetingClosed          Code = "MEETING_CLOSED"
	CodeNoApprovedParticipants Code = "NO_APPROVED_PARTICIPANTS"
	CodeOrganizerCannotApply   Code = "ORGANIZER_CANNOT_APPLY"
	CodeNotOrganizer           Code = "NOT_ORGANIZER"
	CodeNotOwner               Code = "NOT_OWNER"
	CodeInvalidTransition      Code = "INVALID_TRANSITION"
	CodeReasonTooLong          Code = "REASON_TOO_LONG"
	CodeMessageTooLong         Code = "MESSAGE_TOO_LONG"
	CodeInvalidInput           Code = "INVALID_INPUT"
)

// Kind はコードが属するKindを返す。
func (c Code) Kind() Kind {
	switch c {
	case CodeMeetingNotFound, CodeParticipationNotFound, CodeUserNotFound, CodeNotificationNotFound:
		return KindNotFound
	case CodeAlreadyApplied, CodeMeetingFull, CodeMeetingClosed, CodeNoApprovedParticipants:
		return KindConflict
	case CodeOrganizerCannotApply, CodeNotOrganizer, CodeNotOwner:
		return KindForbidden
	case CodeInvalidTransition:
		return KindInvalidTransition
	case CodeReasonTooLong, CodeMessageTooLong, CodeInvalidInput:
		return KindValidation
	default:
		return KindInternal
	}
}

// Error は構造化されたドメインエラー。
type Error struct {
	// Kind はエラーの大分類。
	Kind Kind
	// Code は機械可読なエラーコード。
	Code Code
	// Message はユーザー向けのメッセージ。
	Message string
	// Cause はラップされた下位エラー。
	Cause error
}

// Error はerrorインターフェースを実装する。
func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap は下位エラーを返す。
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is はtargetと同じCodeを持つ場合にtrueを返す。
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// New はコードとメッセージからエラーを生成する。
func New(code Code, message string) *Error {
	return &Error{Kind: code.Kind(), Code: code, Message: message}
}

// Wrap は下位エラーをラップしたドメインエラーを生成する。
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Kind: code.Kind(), Code: code, Message: message, Cause: cause}
}

// KindOf はエラーチェーンからKindを取り出す。ドメインエラーでなければKindInternal。
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// errors.Isで比較するための番兵エラー。
var (
	ErrMeetingNotFound        = New(CodeMeetingNotFound, "モイムが見つかりません")
	ErrParticipationNotFound  = New(CodeParticipationNotFound, "参加情報が見つかりません")
	ErrUserNotFound           = New(CodeUserNotFound, "ユーザーが見つかりません")
	ErrNotificationNotFound   = New(CodeNotificationNotFound, "通知が見つかりません")
	ErrAlreadyApplied         = New(CodeAlreadyApplied, "既に参加申請済みのモイムです")
	ErrMeetingFull            = New(CodeMeetingFull, "モイムの定員に達しています")
	ErrMeetingClosed          = New(CodeMeetingClosed, "モイムの募集は終了しています")
	ErrNoApprovedParticipants = New(CodeNoApprovedParticipants, "承認済みの参加者がいません")
	ErrOrganizerCannotApply   = New(CodeOrganizerCannotApply, "主催者は参加申請できません")
	ErrNotOrganizer           = New(CodeNotOrganizer, "主催者のみ操作できます")
	ErrNotOwner               = New(CodeNotOwner, "本人のみ操作できます")
	ErrInvalidTransition      = New(CodeInvalidTransition, "許可されていない状態遷移です")
	ErrReasonTooLong          = New(CodeReasonTooLong, "却下理由は500文字以内で入力してください")
	ErrMessageTooLong         = New(CodeMessageTooLong, "申請メッセージは500文字以内で入力してください")
)
