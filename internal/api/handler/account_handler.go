package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/contentgenie/publisher/internal/model"
	"github.com/contentgenie/publisher/pkg/response"
)

type connectAccountRequest struct {
	UserID      string            `json:"userId"`
	Service     model.ServiceKind `json:"service" binding:"required,servicekind"`
	AccountName string            `json:"accountName" binding:"required,max=128"`
	Data        model.AccountData `json:"data" binding:"required"`
}

// accountView 对外不回传凭证
type accountView struct {
	ID          string            `json:"id"`
	Service     model.ServiceKind `json:"service"`
	AccountName string            `json:"accountName"`
	IsActive    bool              `json:"isActive"`
}

// ConnectAccount 绑定社交账号（凭证加密入库）
// @Summary 绑定社交账号
// @Tags 账号
// @Accept json
// @Produce json
// @Param request body connectAccountRequest true "账号信息"
// @Success 200 {object} response.Response{data=accountView}
// @Failure 400 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /api/v1/accounts [post]
func (h *Handler) ConnectAccount(c *gin.Context) {
	var req connectAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	acc, err := h.accounts.Create(c.Request.Context(), userID(c, req.UserID), req.Service, req.AccountName, req.Data)
	if err != nil {
		captureError(c, err)
		response.InternalError(c, err)
		return
	}
	response.Success(c, accountView{ID: acc.ID, Service: acc.Service, AccountName: acc.AccountName, IsActive: acc.IsActive})
}

// ListAccounts 查询用户已绑定的活跃账号
// @Summary 查询已绑定账号
// @Tags 账号
// @Param user_id path string true "用户ID"
// @Success 200 {object} response.Response{data=[]accountView}
// @Failure 500 {object} response.Response
// @Router /api/v1/accounts/user/{user_id} [get]
func (h *Handler) ListAccounts(c *gin.Context) {
	accounts, err := h.accounts.ListActive(c.Request.Context(), userID(c, c.Param("user_id")))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	views := make([]accountView, 0, len(accounts))
	for _, a := range accounts {
		views = append(views, accountView{ID: a.ID, Service: a.Service, AccountName: a.AccountName, IsActive: a.IsActive})
	}
	response.Success(c, views)
}
