// Package logger はzapロガーの生成を提供する。
package logger

import (
	"fmt"

	"go.uber.org/zap"
)

// serviceName はすべてのログに付与するサービス名。
const serviceName = "meetup"

// New は開発モードまたは本番モードのzapロガーを生成する。
// 開発モードでは人間が読みやすいコンソール形式、本番モードではJSON形式で出力する。
func New(development bool) (*zap.Logger, error) {
	var (
		l   *zap.Logger
		err error
	)
	if development {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return nil, fmt.Errorf("ロガーの生成に失敗: %w", err)
	}
	return l.With(zap.String("service", serviceName)), nil
}
