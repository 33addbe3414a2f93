package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"social-service/metrics"
	"social-service/service"
)

type UserHandler struct {
	base
}

func NewUserHandler(svc *service.SocialService, logger *zap.Logger, m *metrics.Metrics) *UserHandler {
	return &UserHandler{base{Svc: svc, logger: logger, metrics: m}}
}

type createUserRequest struct {
	Email   string `json:"email" binding:"required,email"`
	Name    string `json:"name" binding:"required"`
	College string `json:"college" binding:"required"`
}

func (h *UserHandler) Get(c *gin.Context) {
	userID := c.Param("user_id")
	user, err := h.Svc.GetUser(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, Envelope{Data: userView(user), Links: userLinks(userID)})
}

func (h *UserHandler) Create(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "unable to parse one of the following: email, name, college")
		return
	}

	user, err := h.Svc.AddUser(c.Request.Context(), req.Email, req.Name, req.College)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Location", userHref(user.ID))
	c.JSON(http.StatusCreated, Envelope{Data: userView(user), Links: userLinks(user.ID)})
}

// Patch changes name and/or college. Other keys in the body are ignored.
func (h *UserHandler) Patch(c *gin.Context) {
	userID := c.Param("user_id")

	var patch map[string]any
	if err := c.ShouldBindJSON(&patch); err != nil {
		h.badRequest(c, "expecting a JSON object")
		return
	}
	h.logger.Debug("update user: details received", zap.String("user_id", userID), zap.Any("patch", patch))

	update, err := service.ProfileUpdateFromMap(patch)
	if err != nil {
		h.fail(c, err)
		return
	}
	user, err := h.Svc.UpdateUserDetails(c.Request.Context(), userID, update)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Location", userHref(user.ID))
	c.JSON(http.StatusOK, Envelope{Data: userView(user), Links: userLinks(user.ID)})
}

func (h *UserHandler) Delete(c *gin.Context) {
	if err := h.Svc.RemoveUser(c.Request.Context(), c.Param("user_id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
