package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"social-service/metrics"
	"social-service/service"
)

type RecommendationHandler struct {
	base
}

func NewRecommendationHandler(svc *service.SocialService, logger *zap.Logger, m *metrics.Metrics) *RecommendationHandler {
	return &RecommendationHandler{base{Svc: svc, logger: logger, metrics: m}}
}

type refreshRecommendationsRequest struct {
	IDs []string `json:"ids" binding:"required,dive,required"`
}

func (h *RecommendationHandler) List(c *gin.Context) {
	userID := c.Param("user_id")
	ctx := c.Request.Context()

	if _, err := h.Svc.GetUser(ctx, userID); err != nil {
		h.fail(c, err)
		return
	}
	var q pageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.badRequest(c, "offset must be a non-negative integer and limit a positive integer")
		return
	}
	h.logger.Debug("get recommendations",
		zap.String("user_id", userID), zap.Int("offset", q.Offset), zap.Int("limit", q.Limit))

	page, err := h.Svc.GetRecommendationsPage(ctx, userID, q.Offset, q.Limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	links := append([]Link{nextLink(userHref(userID)+"/recommendations", page.Next, q.Limit)}, ownerLinks(userID)...)
	c.JSON(http.StatusOK, Envelope{Data: peerViews(page.Users), Links: links})
}

// Replace swaps the user's recommendations for the ids in the body. It is
// what the recommendation job calls after each run.
func (h *RecommendationHandler) Replace(c *gin.Context) {
	userID := c.Param("user_id")
	ctx := c.Request.Context()

	if _, err := h.Svc.GetUser(ctx, userID); err != nil {
		h.fail(c, err)
		return
	}
	var req refreshRecommendationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "recommendations: expecting ids in payload")
		return
	}
	if err := h.Svc.RefreshRecommendations(ctx, userID, req.IDs); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RecommendationHandler) Delete(c *gin.Context) {
	if err := h.Svc.DeleteRecommendations(c.Request.Context(), c.Param("user_id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
