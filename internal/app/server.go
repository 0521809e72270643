// Package app はmeetupサービスの依存関係を組み立て、HTTPサーバーと
// バックグラウンドワーカーを起動する。
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/meetup/internal/config"
	"github.com/nao1215/meetup/internal/database"
	"github.com/nao1215/meetup/internal/notification"
	"github.com/nao1215/meetup/internal/participation"
	"github.com/nao1215/meetup/pkg/httpclient"
	"github.com/nao1215/meetup/pkg/middleware"
	"github.com/nao1215/meetup/pkg/push"
)

// shutdownTimeout は停止時に処理中のリクエストを待つ最大時間。
const shutdownTimeout = 10 * time.Second

// devTokenTTL は開発用トークンの有効期限。
const devTokenTTL = 24 * time.Hour

// Server はmeetupサービスのHTTPサーバー。
type Server struct {
	// cfg はサービス設定。
	cfg config.Config
	// logger は構造化ロガー。
	logger *zap.Logger
	// db はSQLiteデータベース接続。
	db *sql.DB
	// router はGinのHTTPルーター。
	router *gin.Engine
	// pusher はプッシュ配信ワーカー。
	pusher *notification.Pusher
	// cleaner は古い通知を削除するワーカー。
	cleaner *notification.Cleaner
	// closeGateway はプッシュゲートウェイの接続を閉じる。
	closeGateway func() error
}

// NewServer は設定から依存関係を組み立ててServerを生成する。
func NewServer(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := database.Open(ctx, cfg.DatabasePath, logger)
	if err != nil {
		return nil, err
	}

	gateway, closeGateway, err := newGateway(cfg.Push, logger.Named("push"))
	if err != nil {
		db.Close()
		return nil, err
	}

	pusher := notification.NewPusher(gateway, notification.PusherConfig{
		Workers:         cfg.Push.Workers,
		QueueSize:       cfg.Push.QueueSize,
		MaxAttempts:     cfg.Push.MaxAttempts,
		Timeout:         cfg.Push.Timeout,
		RatePerSecond:   cfg.Push.RatePerSecond,
		BreakerFailures: cfg.Push.BreakerFailures,
		BreakerCooldown: cfg.Push.BreakerCooldown,
	}, logger.Named("pusher"))
	dispatcher := notification.NewDispatcher(db, pusher, logger.Named("dispatcher"))

	participationHandler := participation.NewHandler(
		participation.NewService(db, dispatcher, logger.Named("participation")),
		logger,
	)
	notificationHandler := notification.NewHandler(notification.NewService(db), dispatcher, logger)

	router := gin.New()
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.RequestLogger(logger.Named("http")))
	router.Use(middleware.CORS([]string{cfg.FrontendURL}))

	s := &Server{
		cfg:          cfg,
		logger:       logger,
		db:           db,
		router:       router,
		pusher:       pusher,
		cleaner:      notification.NewCleaner(db, cfg.NotificationRetention, cfg.NotificationCleanupInterval, logger.Named("cleaner")),
		closeGateway: closeGateway,
	}
	s.setupRoutes(participationHandler, notificationHandler)

	return s, nil
}

// newGateway は設定に応じたプッシュゲートウェイを生成する。
// 戻り値の関数はゲートウェイが保持する接続を閉じる。
func newGateway(cfg config.Push, logger *zap.Logger) (push.Gateway, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case "", "log":
		return push.NewLogGateway(logger), noop, nil
	case "http":
		opts := []httpclient.Option{httpclient.WithTimeout(cfg.Timeout)}
		if cfg.APIKey != "" {
			opts = append(opts, httpclient.WithHeader("X-Api-Key", cfg.APIKey))
		}
		client := httpclient.New(cfg.URL, opts...)
		return push.NewHTTPGateway(client), noop, nil
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return push.NewRedisGateway(client, cfg.RedisChannelPrefix), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("不明なプッシュゲートウェイです: %q", cfg.Backend)
	}
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes(participationHandler *participation.Handler, notificationHandler *notification.Handler) {
	// 認証必須のAPIエンドポイント
	api := s.router.Group("/api/v1")
	api.Use(middleware.JWTAuth(s.cfg.JWTSecret))
	{
		participationHandler.RegisterRoutes(api)
		notificationHandler.RegisterRoutes(api)

		// 他サービスから呼び出される内部API
		internal := api.Group("/internal")
		participationHandler.RegisterInternalRoutes(internal)
		notificationHandler.RegisterInternalRoutes(internal)
	}

	if s.cfg.Development {
		// 開発用トークン発行
		s.router.POST("/auth/dev-token", s.handleDevToken())
	}

	// ヘルスチェック
	s.router.GET("/health", s.handleHealth())
}

// devTokenRequest は開発用トークン発行リクエストのJSON構造。
type devTokenRequest struct {
	// UserID はトークンに載せるユーザーID。
	UserID string `json:"user_id" binding:"required"`
}

// handleDevToken は任意のユーザーIDで開発用JWTトークンを発行するハンドラ。
// Developmentが有効な場合のみ登録される。
func (s *Server) handleDevToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req devTokenRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		token, err := middleware.GenerateJWT(s.cfg.JWTSecret, req.UserID, devTokenTTL)
		if err != nil {
			middleware.RespondError(c, s.logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"token":   token,
			"user_id": req.UserID,
		})
	}
}

func (s *Server) handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.db.PingContext(c.Request.Context()); err != nil {
			s.logger.Warn("ヘルスチェックでDBに接続できません", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "service": "meetup"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "meetup"})
	}
}

// Handler はHTTPハンドラを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run はctxがキャンセルされるまでHTTPサーバー、プッシュ配信ワーカー、
// 通知クリーナーを動かす。いずれかが失敗した場合は全体を停止してエラーを返す。
// 停止時はHTTPサーバーの停止を待ってからプッシュ配信ワーカーを止めるため、
// 処理中のリクエストが保存した通知も配信される。
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", ":"+s.cfg.Port)
	if err != nil {
		return fmt.Errorf("ポート%sのリッスンに失敗: %w", s.cfg.Port, err)
	}
	return s.Serve(ctx, listener)
}

// Serve は指定されたリスナーでRunと同じ処理を行う。
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	// プッシュ配信はHTTPサーバーが処理中のリクエストを終えてから止める
	pushCtx, stopPusher := context.WithCancel(context.WithoutCancel(ctx))
	defer stopPusher()
	g.Go(func() error {
		return s.pusher.Run(pushCtx)
	})
	g.Go(func() error {
		return s.cleaner.Run(gctx)
	})
	g.Go(func() error {
		s.logger.Info("meetupサービスを起動します", zap.String("addr", listener.Addr().String()))
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTPサーバーが停止しました: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		defer stopPusher()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("HTTPサーバーの停止に失敗: %w", err)
		}
		s.logger.Info("meetupサービスを停止しました")
		return nil
	})

	return g.Wait()
}

// Close はデータベースとプッシュゲートウェイの接続を閉じる。
func (s *Server) Close() error {
	return errors.Join(s.closeGateway(), s.db.Close())
}
