package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/contentgenie/publisher/internal/model"
)

var ErrPostNotFound = errors.New("post not found")

type PostRepository interface {
	Create(ctx context.Context, post *model.Post) error
	GetByID(ctx context.Context, userID, postID string) (*model.Post, error)
	// Find 不限定用户（恢复 worker 用）
	Find(ctx context.Context, postID string) (*model.Post, error)
	ListByUser(ctx context.Context, userID string, offset, limit int) ([]*model.Post, error)
	// MarkPublishing draft/failed -> publishing 的 CAS；已在发布中返回 false
	MarkPublishing(ctx context.Context, userID, postID string) (bool, error)
	// SavePublishOutcome 聚合器的唯一写入口
	SavePublishOutcome(ctx context.Context, postID string, status model.PostStatus, targets model.PublishTargets) error
}

type postRepository struct{ db *gorm.DB }

func NewPostRepository(db *gorm.DB) PostRepository { return &postRepository{db: db} }

func (r *postRepository) Create(ctx context.Context, post *model.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *postRepository) GetByID(ctx context.Context, userID, postID string) (*model.Post, error) {
	var p model.Post
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", postID, userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *postRepository) Find(ctx context.Context, postID string) (*model.Post, error) {
	var p model.Post
	err := r.db.WithContext(ctx).Where("id = ?", postID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *postRepository) ListByUser(ctx context.Context, userID string, offset, limit int) ([]*model.Post, error) {
	var res []*model.Post
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&res).Error
	return res, err
}

func (r *postRepository) MarkPublishing(ctx context.Context, userID, postID string) (bool, error) {
	tx := r.db.WithContext(ctx).Model(&model.Post{}).
		Where("id = ? AND user_id = ? AND status IN ?", postID, userID,
			[]model.PostStatus{model.PostStatusDraft, model.PostStatusFailed, model.PostStatusPartiallyPublished}).
		Update("status", model.PostStatusPublishing)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

func (r *postRepository) SavePublishOutcome(ctx context.Context, postID string, status model.PostStatus, targets model.PublishTargets) error {
	return r.db.WithContext(ctx).Model(&model.Post{}).
		Where("id = ?", postID).
		Updates(map[string]any{"status": status, "published_to": targets}).Error
}
