package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"social-service/metrics"
	"social-service/model"
	"social-service/repo"
	"social-service/service"
)

// Envelope is the body of every resource response.
type Envelope struct {
	Data        any     `json:"_data"`
	Description *string `json:"_description"`
	Links       []Link  `json:"_links"`
}

// Link describes a related resource so a client can navigate to it.
type Link struct {
	Rel    string   `json:"rel"`
	Href   string   `json:"href"`
	Action string   `json:"action"`
	Types  []string `json:"types"`
}

type UserView struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	College string `json:"college"`
}

// PeerView is how a connected or recommended user is listed.
type PeerView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func userView(u *model.User) UserView {
	return UserView{ID: u.ID, Name: u.Profile.Name, Email: u.Email, College: u.Profile.College}
}

func peerViews(users []model.User) []PeerView {
	out := make([]PeerView, 0, len(users))
	for _, u := range users {
		out = append(out, PeerView{ID: u.ID, Name: u.Profile.Name})
	}
	return out
}

var jsonTypes = []string{"application/json"}

func userHref(userID string) string {
	return "/users/" + url.PathEscape(userID)
}

func userLinks(userID string) []Link {
	return []Link{
		{Rel: "self", Href: userHref(userID), Action: http.MethodGet, Types: jsonTypes},
		{Rel: "connections", Href: userHref(userID) + "/connections", Action: http.MethodGet, Types: jsonTypes},
		{Rel: "recommendations", Href: userHref(userID) + "/recommendations", Action: http.MethodGet, Types: jsonTypes},
	}
}

func ownerLinks(userID string) []Link {
	return []Link{{Rel: "self", Href: userHref(userID), Action: http.MethodGet, Types: jsonTypes}}
}

func nextLink(href string, offset, limit int) Link {
	q := url.Values{}
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(limit))
	return Link{Rel: "next", Href: href + "?" + q.Encode(), Action: http.MethodGet, Types: jsonTypes}
}

type pageQuery struct {
	Offset int `form:"offset,default=0" binding:"gte=0"`
	Limit  int `form:"limit,default=50" binding:"gt=0"`
}

// errorKind maps a service error to an HTTP status and a metrics label.
func errorKind(err error) (int, string) {
	switch {
	case errors.Is(err, repo.ErrUserNotFound),
		errors.Is(err, repo.ErrConnectionNotFound),
		errors.Is(err, repo.ErrRecommendationNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, repo.ErrDataIntegrity):
		return http.StatusConflict, "conflict"
	case errors.Is(err, service.ErrInvalidIDs), errors.Is(err, service.ErrMalformedInput):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, service.ErrBatchQueueFull):
		return http.StatusServiceUnavailable, "unavailable"
	}
	return http.StatusInternalServerError, "internal"
}

type base struct {
	Svc     *service.SocialService
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func (b *base) fail(c *gin.Context, err error) {
	status, kind := errorKind(err)
	if b.metrics != nil {
		b.metrics.ObserveError("http", kind)
	}
	message := err.Error()
	if status == http.StatusInternalServerError {
		b.logger.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
		message = "internal error"
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

func (b *base) badRequest(c *gin.Context, message string) {
	if b.metrics != nil {
		b.metrics.ObserveError("http", "bad_request")
	}
	b.logger.Debug("bad request", zap.String("path", c.Request.URL.Path), zap.String("reason", message))
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": message})
}
