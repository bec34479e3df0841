package model

import "time"

// Generation 文案生成历史
type Generation struct {
	ID            string `gorm:"primaryKey;type:varchar(36)"`
	UserID        string `gorm:"type:varchar(36);index:idx_generation_user;not null"`
	OriginalIdea  string `gorm:"type:text"`
	GeneratedText string `gorm:"type:text"`
	UsedCredits   int    `gorm:"default:1"`
	CreatedAt     time.Time
}

func (Generation) TableName() string { return "generations" }
