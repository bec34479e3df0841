package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/contentgenie/publisher/internal/service"
	"github.com/contentgenie/publisher/pkg/response"
)

type generateRequest struct {
	UserID string `json:"userId"`
	Idea   string `json:"idea" binding:"required,max=2000"`
}

// Generate 按用户的灵感生成文案（消耗额度）
// @Summary 生成帖子文案
// @Tags 生成
// @Accept json
// @Produce json
// @Param request body generateRequest true "灵感"
// @Success 200 {object} response.Response{data=service.GenerationResult}
// @Failure 400 {object} response.Response
// @Failure 429 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /api/v1/generate [post]
func (h *Handler) Generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	result, err := h.generationSvc.Generate(c.Request.Context(), userID(c, req.UserID), req.Idea)
	if err != nil {
		if errors.Is(err, service.ErrCreditsExhausted) {
			response.TooManyRequests(c, "daily limit exceeded")
			return
		}
		captureError(c, err)
		response.InternalError(c, err)
		return
	}
	response.Success(c, result)
}

// GenerationHistory 查询生成历史
// @Summary 查询生成历史
// @Tags 生成
// @Param user_id path string true "用户ID"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/generate/{user_id}/history [get]
func (h *Handler) GenerationHistory(c *gin.Context) {
	uid := userID(c, c.Param("user_id"))
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	if page < 1 {
		page = 1
	}
	list, err := h.generationSvc.History(c.Request.Context(), uid, (page-1)*pageSize, pageSize)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"page": page, "page_size": pageSize, "list": list})
}

// Transcribe 语音转文字
// @Summary 语音转文字
// @Tags 生成
// @Accept multipart/form-data
// @Produce json
// @Param audio formData file true "音频文件（mp3/wav/ogg/webm）"
// @Success 200 {object} response.Response{data=map[string]string}
// @Failure 400 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /api/v1/transcribe [post]
func (h *Handler) Transcribe(c *gin.Context) {
	file, header, err := c.Request.FormFile("audio")
	if err != nil {
		response.BadRequest(c, "audio file is required")
		return
	}
	defer file.Close()

	text, err := h.transcribeSvc.Transcribe(c.Request.Context(), header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		if errors.Is(err, service.ErrUnsupportedAudio) {
			response.BadRequest(c, "unsupported audio format")
			return
		}
		captureError(c, err)
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"text": text})
}
