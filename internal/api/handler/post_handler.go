package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/contentgenie/publisher/internal/model"
	"github.com/contentgenie/publisher/internal/repository"
	"github.com/contentgenie/publisher/pkg/response"
)

type createPostRequest struct {
	UserID       string   `json:"userId"`
	GenerationID *string  `json:"generationId"`
	Title        string   `json:"title" binding:"max=256"`
	Text         string   `json:"text" binding:"required"`
	MediaURLs    []string `json:"mediaUrls" binding:"omitempty,dive,url"`
}

// CreatePost 新建草稿
// @Summary 新建帖子草稿
// @Tags 帖子
// @Accept json
// @Produce json
// @Param request body createPostRequest true "帖子内容"
// @Success 200 {object} response.Response{data=model.Post}
// @Failure 400 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /api/v1/posts [post]
func (h *Handler) CreatePost(c *gin.Context) {
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	post := &model.Post{
		ID:           uuid.New().String(),
		UserID:       userID(c, req.UserID),
		GenerationID: req.GenerationID,
		Title:        req.Title,
		Text:         req.Text,
		MediaURLs:    req.MediaURLs,
		Status:       model.PostStatusDraft,
	}
	if err := h.posts.Create(c.Request.Context(), post); err != nil {
		captureError(c, err)
		response.InternalError(c, err)
		return
	}
	response.Success(c, post)
}

// GetPost 查询单个帖子
// @Summary 查询帖子
// @Tags 帖子
// @Param post_id path string true "帖子ID"
// @Param user_id query string true "用户ID"
// @Success 200 {object} response.Response{data=model.Post}
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{post_id} [get]
func (h *Handler) GetPost(c *gin.Context) {
	post, err := h.posts.GetByID(c.Request.Context(), userID(c, c.Query("user_id")), c.Param("post_id"))
	if err != nil {
		if errors.Is(err, repository.ErrPostNotFound) {
			response.NotFound(c, "post not found")
			return
		}
		response.InternalError(c, err)
		return
	}
	response.Success(c, post)
}

// ListPosts 查询用户帖子列表
// @Summary 查询帖子列表
// @Tags 帖子
// @Param user_id path string true "用户ID"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/posts/user/{user_id} [get]
func (h *Handler) ListPosts(c *gin.Context) {
	uid := userID(c, c.Param("user_id"))
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	if page < 1 {
		page = 1
	}
	list, err := h.posts.ListByUser(c.Request.Context(), uid, (page-1)*pageSize, pageSize)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"page": page, "page_size": pageSize, "list": list})
}
