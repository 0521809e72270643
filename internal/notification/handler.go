package notification

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nao1215/meetup/pkg/event"
	"github.com/nao1215/meetup/pkg/middleware"
)

// Handler は通知APIのHTTPハンドラ。
type Handler struct {
	// service は受信箱の操作。
	service *Service
	// dispatcher は内部APIからの通知作成に使う。
	dispatcher *Dispatcher
	// logger は内部エラーの記録に使う。
	logger *zap.Logger
}

// NewHandler はHandlerを生成する。
func NewHandler(service *Service, dispatcher *Dispatcher, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, dispatcher: dispatcher, logger: logger}
}

// RegisterRoutes は認証済みユーザー向けのルートを登録する。
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	notifications := api.Group("/notifications")
	{
		// 通知一覧取得（?type=で絞り込み）
		notifications.GET("", h.handleList())
		// 未読通知一覧取得
		notifications.GET("/unread", h.handleListUnread())
		// 未読通知数取得
		notifications.GET("/unread/count", h.handleCountUnread())
		// 全通知を既読にする
		notifications.PUT("/read-all", h.handleMarkAllAsRead())
		// 既読通知をまとめて削除
		notifications.DELETE("/read", h.handleDeleteRead())
		// 通知取得
		notifications.GET("/:id", h.handleGet())
		// 通知を既読にする
		notifications.PUT("/:id/read", h.handleMarkAsRead())
		// 通知削除
		notifications.DELETE("/:id", h.handleDelete())
	}
}

// RegisterInternalRoutes は他サービスから呼び出される内部ルートを登録する。
func (h *Handler) RegisterInternalRoutes(internal *gin.RouterGroup) {
	internal.POST("/notifications", h.handleSend())
}

// handleList は認証済みユーザーの通知一覧を返すハンドラ。
func (h *Handler) handleList() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.RequireUserID(c)
		if !ok {
			return
		}

		notifications, err := h.service.List(c.Request.Context(), userID, Type(c.Query("type")))
		if err != nil {
			middleware.RespondError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, notifications)
	}
}

// handleListUnread は認証済みユーザーの未読通知一覧を返すハンドラ。
func (h *Handler) handleListUnread() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.RequireUserID(c)
		if !ok {
			return
		}

		notifications, err := h.service.ListUnread(c.Request.Context(), userID)
		if err != nil {
			middleware.RespondError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, notifications)
	}
}

func (h *Handler) handleCountUnread() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.RequireUserID(c)
		if !ok {
			return
		}

		count, err := h.service.CountUnread(c.Request.Context(), userID)
		if err != nil {
			middleware.RespondError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"count": count})
	}
}

func (h *Handler) handleGet() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.RequireUserID(c)
		if !ok {
			return
		}

		n, err := h.service.Get(c.Request.Context(), userID, c.Param("id"))
		if err != nil {
			middleware.RespondError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, n)
	}
}

// handleMarkAsRead は指定された通知を既読にするハンドラ。
// 既読済みの通知に対してはchanged=falseを返し、read_atは変わらない。
func (h *Handler) handleMarkAsRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.RequireUserID(c)
		if !ok {
			return
		}

		n, changed, err := h.service.MarkRead(c.Request.Context(), userID, c.Param("id"))
		if err != nil {
			middleware.RespondError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"notification": n,
			"changed":      changed,
		})
	}
}

// handleMarkAllAsRead は認証済みユーザーの全通知を既読にするハンドラ。
func (h *Handler) handleMarkAllAsRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.RequireUserID(c)
		if !ok {
			return
		}

		updated, err := h.service.MarkAllRead(c.Request.Context(), userID)
		if err != nil {
			middleware.RespondError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"updated": updated})
	}
}

func (h *Handler) handleDelete() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.RequireUserID(c)
		if !ok {
			return
		}

		if err := h.service.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
			middleware.RespondError(c, h.logger, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func (h *Handler) handleDeleteRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.RequireUserID(c)
		if !ok {
			return
		}

		deleted, err := h.service.DeleteRead(c.Request.Context(), userID)
		if err != nil {
			middleware.RespondError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": deleted})
	}
}

// sendRequest は通知送信リクエストのJSON構造。
type sendRequest struct {
	// UserID は通知先のユーザーID。
	UserID string `json:"user_id" binding:"required"`
	// Type は通知の種類。
	Type Type `json:"type" binding:"required"`
	// Title は通知のタイトル。
	Title string `json:"title" binding:"required"`
	// Body は通知本文。
	Body string `json:"body"`
	// Link は遷移先。
	Link string `json:"link"`
	// RelatedID は関連エンティティのID。
	RelatedID string `json:"related_id"`
}

// handleSend は通知を保存しプッシュ配信を依頼するハンドラ。
// チャットやレビューなど他サービスから呼び出される内部API。
func (h *Handler) handleSend() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req sendRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		n, err := h.dispatcher.Dispatch(c.Request.Context(), Request{
			UserID:    req.UserID,
			Type:      req.Type,
			Title:     req.Title,
			Body:      req.Body,
			Link:      req.Link,
			RelatedID: req.RelatedID,
			Cause:     event.TypeNotificationRequested,
		})
		if err != nil {
			middleware.RespondError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusCreated, n)
	}
}
