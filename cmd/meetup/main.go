// meetupサービスのエントリポイント。
// モイムへの参加申請の状態管理と、それに伴う通知の保存・プッシュ配信を行う。
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/nao1215/meetup/internal/app"
	"github.com/nao1215/meetup/internal/config"
	"github.com/nao1215/meetup/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗: %v", err)
	}

	zl, err := logger.New(cfg.Development)
	if err != nil {
		log.Fatalf("ロガーの初期化に失敗: %v", err)
	}
	defer zl.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server, err := app.NewServer(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("meetupサーバーの初期化に失敗", zap.Error(err))
	}
	defer server.Close() //nolint:errcheck

	if err := server.Run(ctx); err != nil {
		zl.Error("meetupサービスが異常終了しました", zap.Error(err))
		os.Exit(1) //nolint:gocritic
	}
}
