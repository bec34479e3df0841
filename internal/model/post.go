package model

import "time"

// PostStatus 帖子生命周期状态
type PostStatus string

const (
	PostStatusDraft              PostStatus = "draft"
	PostStatusPublishing         PostStatus = "publishing"
	PostStatusPublished          PostStatus = "published"
	PostStatusPartiallyPublished PostStatus = "partially_published"
	PostStatusFailed             PostStatus = "failed"
)

// Post 内容主体；发布开始后 status/published_to 仅由聚合器写入
type Post struct {
	ID           string         `gorm:"primaryKey;type:varchar(36)"`
	UserID       string         `gorm:"type:varchar(36);index:idx_post_user;not null"`
	GenerationID *string        `gorm:"type:varchar(36)"`
	Title        string         `gorm:"type:varchar(256)"`
	Text         string         `gorm:"type:text"`
	MediaURLs    StringSlice    `gorm:"type:text"`
	Status       PostStatus     `gorm:"type:varchar(24);index;default:draft"`
	PublishedTo  PublishTargets `gorm:"type:text"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (Post) TableName() string { return "posts" }
