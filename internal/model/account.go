package model

import "time"

// ServiceKind 社交服务类型
type ServiceKind string

const (
	ServiceTelegram  ServiceKind = "telegram"
	ServiceInstagram ServiceKind = "instagram"
	ServiceVK        ServiceKind = "vk"
	ServiceTwitter   ServiceKind = "twitter"
	ServiceDzen      ServiceKind = "dzen"
)

// KnownServices 校验用的服务枚举
var KnownServices = []ServiceKind{ServiceTelegram, ServiceInstagram, ServiceVK, ServiceTwitter, ServiceDzen}

// AccountData 服务相关的凭证包（各服务只用其中一部分字段）
type AccountData struct {
	Token       string `json:"token,omitempty"`        // telegram bot token
	ChatID      string `json:"chat_id,omitempty"`      // telegram 目标频道/群
	AccessToken string `json:"access_token,omitempty"` // vk / instagram
	Username    string `json:"username,omitempty"`
	GroupID     string `json:"group_id,omitempty"` // vk 社区 / instagram 账号 id
}

// ConnectedAccount 已连接的社交账号；编排器只读
// account_data 加密后存储，见 repository.AccountRepository
type ConnectedAccount struct {
	ID          string      `gorm:"primaryKey;type:varchar(36)"`
	UserID      string      `gorm:"type:varchar(36);index:idx_account_user;not null"`
	Service     ServiceKind `gorm:"type:varchar(16);not null"`
	AccountName string      `gorm:"type:varchar(128)"`
	AccountData string      `gorm:"type:text"` // 加密后的 AccountData JSON
	IsActive    bool        `gorm:"index;default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (ConnectedAccount) TableName() string { return "connected_accounts" }
