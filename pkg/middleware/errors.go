package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nao1215/meetup/pkg/apperr"
)

// RespondError はエラーをJSONレスポンスとして返す。
// ドメインエラーはKindに応じたステータスとコードを、それ以外は500を返してログに残す。
func RespondError(c *gin.Context, logger *zap.Logger, err error) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		c.AbortWithStatusJSON(appErr.Kind.HTTPStatus(), gin.H{
			"error": appErr.Message,
			"code":  appErr.Code,
		})
		return
	}

	if logger != nil {
		logger.Error("リクエストの処理に失敗しました",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
	c.AbortWithStatusJSON(apperr.KindInternal.HTTPStatus(), gin.H{
		"error": "内部サーバーエラーが発生しました",
		"code":  apperr.KindInternal,
	})
}
