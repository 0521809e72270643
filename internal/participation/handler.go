package participation

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nao1215/meetup/pkg/apperr"
	"github.com/nao1215/meetup/pkg/middleware"
)

// Handler は参加申請APIのHTTPハンドラ。
type Handler struct {
	// service は参加申請の操作。
	service *Service
	// logger は内部エラーの記録に使う。
	logger *zap.Logger
}

// NewHandler はHandlerを生成する。
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes は認証済みユーザー向けのルートを登録する。
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	participations := api.Group("/participations")
	{
		// 参加申請
		participations.POST("", h.handleApply())
		// 自分の参加申請一覧
		participations.GET("/my", h.handleListMine())
		// 参加申請の取得
		participations.GET("/:id", h.handleGet())
		// 承認（主催者）
		participations.POST("/:id/approve", h.handleApprove())
		// 却下（主催者）
		participations.POST("/:id/reject", h.handleReject())
		// 取消（申請者）
		participations.DELETE("/:id", h.handleCancel())
	}

	meetings := api.Group("/meetings")
	{
		// モイムの参加者一覧
		meetings.GET("/:id/participants", h.handleListByMeeting())
		// モイムの完了（主催者）
		meetings.POST("/:id/complete", h.handleComplete())
	}
}

// RegisterInternalRoutes は他サービスから呼び出される内部ルートを登録する。
func (h *Handler) RegisterInternalRoutes(internal *gin.RouterGroup) {
	// スコアリングサービスによる予測評価の書き込み
	internal.PUT("/participations/:id/predicted-rating", h.handleRecordPredictedRating())
	// モイム管理サービスからの同期
	internal.POST("/meetings", h.handleRegisterMeeting())
	internal.POST("/meetings/:id/close", h.handleCloseMeeting())
	internal.DELETE("/meetings/:id", h.handleDeleteMeeting())
	// ユーザー管理サービスからの同期
	internal.PUT("/users/:id", h.handleSyncUser())
}

// bindJSON はリクエストボディをデコードする。失敗した場合は400を返してfalse。
func (h *Handler) bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		middleware.RespondError(c, h.logger, apperr.Wrap(apperr.CodeInvalidInput, "リクエストが不正です", err))
		return false
	}
	return true
}

// applyRequest は参加申請リクエストのJSON構造。
type applyRequest struct {
	// MeetingID は申請先のモイムID。
	MeetingID string `json:"meeting_id" binding:"required"`
	// ApplicationMessage は主催者へのメッセージ。
	ApplicationMessage string `json:"application_message"`
	// RecommendationType は申請の経路となったおすすめの種類。
	RecommendationType string `json:"recommendation_type"`
}

// handleApply は認証済みユーザーとして参加を申請するハンドラ。
func (h *Handler) handleApply() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.RequireUserID(c)
		if !ok {
			return
		}
		var req applyRequest
		if !h.bindJSON(c, &req) {
			return
		}

		p, err := h.service.Apply(c.Request.Context(), userID, ApplyInput{
			MeetingID:          req.MeetingID,
			Message:            req.ApplicationMessage,
			RecommendationType: req.RecommendationType,
		})
		if err != nil {
			middleware.RespondError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusCreated, p)
	}
}

func (h *Handler) handleListMine() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.RequireUserID(c)
		if !ok {
			return
		}

		list, err := h.service.ListByUser(c.Request.Context(), userID)
		if err != nil {
			middleware.RespondError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

func (h *Handler) handleGet() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.RequireUserID(c)
		if !ok {
			return
		}

		p, err := h.service.Get(c.Request.Context(), userID, c.Param("id"))
		if err != nil {
			middleware.RespondError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

func (h *Handler) handleApprove() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.RequireUserID(c)
		if !ok {
			return
		}

		p, err := h.service.Approve(c.Request.Context(), userID, c.Param("id"))
		if err != nil {
			middleware.RespondError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

// rejectRequest は却下リクエストのJSON構造。ボディは省略できる。
type rejectRequest struct {
	// RejectionReason は申請者に伝える却下理由。
	RejectionReason string `json:"rejection_reason"`
}

func (h *Handler) handleReject() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.RequireUserID(c)
		if !ok {
			return
		}
		var req rejectRequest
		if c.Request.ContentLength != 0 && !h.bindJSON(c, &req) {
			return
		}

		p, err := h.service.Reject(c.Request.Context(), userID, c.Param("id"), req.RejectionReason)
		if err != nil {
			middleware.RespondError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

func (h *Handler) handleCancel() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.RequireUserID(c)
		if !ok {
			return
		}

		p, err := h.service.Cancel(c.Request.Context(), userID, c.Param("id"))
		if err != nil {
			middleware.RespondError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

func (h *Handler) handleListByMeeting() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := middleware.RequireUserID(c); !ok {
			return
		}

		list, err := h.service.ListByMeeting(c.Request.Context(), c.Param("id"))
		if err != nil {
			middleware.RespondError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

// handleComplete はモイムを完了し、完了した参加の一覧を返すハンドラ。
func (h *Handler) handleComplete() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.RequireUserID(c)
		if !ok {
			return
		}

		completed, err := h.service.Complete(c.Request.Context(), userID, c.Param("id"))
		if err != nil {
			middleware.RespondError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"completed": completed,
			"count":     len(completed),
		})
	}
}

// predictedRatingRequest は予測評価のJSON構造。nullなら消去する。
type predictedRatingRequest struct {
	PredictedRating *float64 `json:"predicted_rating"`
}

func (h *Handler) handleRecordPredictedRating() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req predictedRatingRequest
		if !h.bindJSON(c, &req) {
			return
		}

		p, err := h.service.RecordPredictedRating(c.Request.Context(), c.Param("id"), req.PredictedRating)
		if err != nil {
			middleware.RespondError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

func (h *Handler) handleRegisterMeeting() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req MeetingInput
		if !h.bindJSON(c, &req) {
			return
		}

		m, err := h.service.RegisterMeeting(c.Request.Context(), req)
		if err != nil {
			middleware.RespondError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, m)
	}
}

func (h *Handler) handleCloseMeeting() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h.service.CloseMeeting(c.Request.Context(), c.Param("id")); err != nil {
			middleware.RespondError(c, h.logger, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func (h *Handler) handleDeleteMeeting() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h.service.DeleteMeeting(c.Request.Context(), c.Param("id")); err != nil {
			middleware.RespondError(c, h.logger, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func (h *Handler) handleSyncUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UserInput
		if !h.bindJSON(c, &req) {
			return
		}

		if err := h.service.SyncUser(c.Request.Context(), c.Param("id"), req); err != nil {
			middleware.RespondError(c, h.logger, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
