package model

import "time"

// AttemptState 发布尝试状态机：pending -> in_flight -> succeeded | failed
type AttemptState string

const (
	AttemptPending   AttemptState = "pending"
	AttemptInFlight  AttemptState = "in_flight"
	AttemptSucceeded AttemptState = "succeeded"
	AttemptFailed    AttemptState = "failed"
)

// Terminal 是否终态
func (s AttemptState) Terminal() bool {
	return s == AttemptSucceeded || s == AttemptFailed
}

// PublishAttempt (post, account) 粒度的幂等与状态跟踪单元；
// ux_attempt_post_account 保证同一 (post, account) 至多一条 attempt
type PublishAttempt struct {
	ID        string       `gorm:"primaryKey;type:varchar(36)"`
	PostID    string       `gorm:"type:varchar(36);index:idx_attempt_post;uniqueIndex:ux_attempt_post_account;not null"`
	AccountID string       `gorm:"type:varchar(36);uniqueIndex:ux_attempt_post_account;not null"`
	State     AttemptState `gorm:"type:varchar(16);index"`
	MessageID string       `gorm:"type:varchar(64)"`
	ErrorKind string       `gorm:"type:varchar(24)"`
	Retries   int          `gorm:"default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time `gorm:"index"`
}

func (PublishAttempt) TableName() string { return "publish_attempts" }
