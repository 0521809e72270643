package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestErrorIs はCodeによるエラー比較を検証する。
func TestErrorIs(t *testing.T) {
	t.Parallel()

	t.Run("同じCodeのエラーはerrors.Isで一致すること", func(t *testing.T) {
		t.Parallel()

		err := New(CodeMeetingFull, "別のメッセージ")
		assert.ErrorIs(t, err, ErrMeetingFull)
	})

	t.Run("fmt.Errorfでラップされても一致すること", func(t *testing.T) {
		t.Parallel()

		err := fmt.Errorf("承認に失敗: %w", ErrMeetingFull)
		assert.ErrorIs(t, err, ErrMeetingFull)
		assert.NotErrorIs(t, err, ErrAlreadyApplied)
	})

	t.Run("Wrapした下位エラーを辿れること", func(t *testing.T) {
		t.Parallel()

		cause := errors.New("disk I/O error")
		err := Wrap(CodeInvalidInput, "入力が不正です", cause)
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, "入力が不正です: disk I/O error", err.Error())
	})
}

// TestKindOf はエラーからKindを取り出せることを検証する。
func TestKindOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		want   Kind
		status int
	}{
		{name: "NotFound", err: ErrMeetingNotFound, want: KindNotFound, status: http.StatusNotFound},
		{name: "Conflict", err: ErrAlreadyApplied, want: KindConflict, status: http.StatusConflict},
		{name: "Forbidden", err: ErrNotOwner, want: KindForbidden, status: http.StatusForbidden},
		{name: "InvalidTransition", err: ErrInvalidTransition, want: KindInvalidTransition, status: http.StatusConflict},
		{name: "Validation", err: ErrReasonTooLong, want: KindValidation, status: http.StatusBadRequest},
		{name: "ドメインエラー以外はInternal", err: errors.New("boom"), want: KindInternal, status: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := KindOf(fmt.Errorf("wrapped: %w", tt.err))
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.status, got.HTTPStatus())
		})
	}
}
