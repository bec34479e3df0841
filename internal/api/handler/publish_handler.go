package handler

import (
	"errors"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"

	"github.com/contentgenie/publisher/internal/repository"
	"github.com/contentgenie/publisher/internal/service"
	"github.com/contentgenie/publisher/pkg/response"
)

// Publish 向选中的账号扇出发布
// @Summary 发布帖子到多个社交账号
// @Tags 发布
// @Accept json
// @Produce json
// @Param request body service.PublishRequest true "发布信息"
// @Success 200 {object} response.Response{data=service.PublishResponse}
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /api/v1/publish [post]
func (h *Handler) Publish(c *gin.Context) {
	var req service.PublishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	req.UserID = userID(c, req.UserID)

	resp, err := h.publishSvc.Publish(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrPostNotFound):
			response.NotFound(c, "post not found")
		case errors.Is(err, service.ErrNoActiveAccounts):
			response.NotFound(c, "no active accounts found")
		default:
			captureError(c, err)
			response.InternalError(c, err)
		}
		return
	}
	response.Success(c, resp)
}

// PublishStatus 查询发布的逐账号实时状态
// @Summary 查询发布实时状态
// @Tags 发布
// @Param post_id path string true "帖子ID"
// @Success 200 {object} response.Response{data=map[string]service.AccountStatus}
// @Failure 500 {object} response.Response
// @Router /api/v1/publish/{post_id}/status [get]
func (h *Handler) PublishStatus(c *gin.Context) {
	statuses, err := h.publishSvc.Status(c.Request.Context(), c.Param("post_id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, statuses)
}

func captureError(c *gin.Context, err error) {
	if hub := sentrygin.GetHubFromContext(c); hub != nil {
		hub.CaptureException(err)
		return
	}
	sentry.CaptureException(err)
}
