package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"social-service/metrics"
	"social-service/service"
)

type ConnectionHandler struct {
	base
}

func NewConnectionHandler(svc *service.SocialService, logger *zap.Logger, m *metrics.Metrics) *ConnectionHandler {
	return &ConnectionHandler{base{Svc: svc, logger: logger, metrics: m}}
}

type connectRequest struct {
	ID string `json:"id" binding:"required"`
}

type batchConnectRequest struct {
	IDs []string `json:"ids" binding:"required,min=1,dive,required"`
}

// List returns one page of the user's connections with a link to the next.
func (h *ConnectionHandler) List(c *gin.Context) {
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
	h.logger.Debug("get connections",
		zap.String("user_id", userID), zap.Int("offset", q.Offset), zap.Int("limit", q.Limit))

	page, err := h.Svc.GetConnectionsPage(ctx, userID, q.Offset, q.Limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	links := append([]Link{nextLink(userHref(userID)+"/connections", page.Next, q.Limit)}, ownerLinks(userID)...)
	c.JSON(http.StatusOK, Envelope{Data: peerViews(page.Users), Links: links})
}

func (h *ConnectionHandler) Create(c *gin.Context) {
	userID := c.Param("user_id")
	ctx := c.Request.Context()

	if _, err := h.Svc.GetUser(ctx, userID); err != nil {
		h.fail(c, err)
		return
	}
	var req connectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "add connection: expecting id in payload")
		return
	}

	if err := h.Svc.AddConnection(ctx, userID, req.ID); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, Envelope{Links: ownerLinks(userID)})
}

// Delete removes one connection, named by the user query parameter.
func (h *ConnectionHandler) Delete(c *gin.Context) {
	other := c.Query("user")
	if other == "" {
		h.badRequest(c, "can only delete connections one at a time, specify user=<user_id> in query params")
		return
	}
	if err := h.Svc.RemoveConnection(c.Request.Context(), c.Param("user_id"), other); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ConnectionHandler) Check(c *gin.Context) {
	userID := c.Param("user_id")
	connected, err := h.Svc.CheckConnectionExists(c.Request.Context(), userID, c.Param("other_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, Envelope{Data: gin.H{"connected": connected}, Links: ownerLinks(userID)})
}

// Batch accepts many connections at once. They are created asynchronously.
func (h *ConnectionHandler) Batch(c *gin.Context) {
	userID := c.Param("user_id")

	var req batchConnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "batch connection: expecting a non-empty ids list in payload")
		return
	}
	jobID, err := h.Svc.BatchAddConnections(c.Request.Context(), userID, req.IDs)
	if h.metrics != nil {
		outcome := "accepted"
		if err != nil {
			outcome = "rejected"
		}
		h.metrics.BatchJobsTotal.WithLabelValues(outcome).Inc()
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, Envelope{Data: gin.H{"job_id": jobID}, Links: ownerLinks(userID)})
}
