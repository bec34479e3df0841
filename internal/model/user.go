package model

import "time"

// User 用户（身份由外部 IdP 负责，这里仅保存业务属性）
type User struct {
	ID           string `gorm:"primaryKey;type:varchar(36)"`
	Username     string `gorm:"type:varchar(64);uniqueIndex"`
	Email        string `gorm:"type:varchar(128)"`
	AvatarURL    string `gorm:"type:varchar(256)"`
	DailyCredits int    `gorm:"not null;default:0"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (User) TableName() string { return "users" }
