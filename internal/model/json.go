package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// StringSlice JSON 编码的字符串数组列
type StringSlice []string

func (s StringSlice) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal(s)
	return string(b), err
}

func (s *StringSlice) Scan(src interface{}) error {
	return scanJSON(src, s)
}

// PublishTarget 单个账号的发布落点（持久化在 posts.published_to）
type PublishTarget struct {
	AccountID string `json:"accountId"`
	Success   bool   `json:"success"`
	MessageID string `json:"messageId,omitempty"`
}

// PublishTargets JSON 编码的发布结果列
type PublishTargets []PublishTarget

func (t PublishTargets) Value() (driver.Value, error) {
	if t == nil {
		return "[]", nil
	}
	b, err := json.Marshal(t)
	return string(b), err
}

func (t *PublishTargets) Scan(src interface{}) error {
	return scanJSON(src, t)
}

func scanJSON(src, dst interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported column type %T", src)
	}
}
