package participation

import (
	"fmt"

	"github.com/nao1215/meetup/pkg/apperr"
)

// Status は参加申請の状態。
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusCancelled Status = "CANCELLED"
	StatusCompleted Status = "COMPLETED"
)

// IsTerminal はそれ以上遷移しない状態かどうかを返す。
func (s Status) IsTerminal() bool {
	return s == StatusRejected || s == StatusCancelled || s == StatusCompleted
}

// Action は状態遷移を引き起こす操作。
type Action string

const (
	ActionApprove  Action = "approve"
	ActionReject   Action = "reject"
	ActionCancel   Action = "cancel"
	ActionComplete Action = "complete"
)

// transitions は許可された遷移の一覧。ここにない組み合わせはすべて不正。
var transitions = map[Status]map[Action]Status{
	StatusPending: {
		ActionApprove: StatusApproved,
		ActionReject:  StatusRejected,
		ActionCancel:  StatusCancelled,
	},
	StatusApproved: {
		ActionCancel:   StatusCancelled,
		ActionComplete: StatusCompleted,
	},
}

// Next はfromにactionを適用した後の状態を返す。
// 許可されていない遷移ならapperr.ErrInvalidTransitionを返す。
func Next(from Status, action Action) (Status, error) {
	if to, ok := transitions[from][action]; ok {
		return to, nil
	}
	return "", apperr.New(apperr.CodeInvalidTransition,
		fmt.Sprintf("%sの参加申請に%sは実行できません", from, action))
}
