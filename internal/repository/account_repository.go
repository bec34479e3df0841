package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/contentgenie/publisher/internal/model"
	"github.com/contentgenie/publisher/pkg/secrets"
)

// Account 解密后的账号视图（编排器消费的形态）
type Account struct {
	ID          string
	UserID      string
	Service     model.ServiceKind
	AccountName string
	Data        model.AccountData
	IsActive    bool
}

type AccountRepository interface {
	Create(ctx context.Context, userID string, service model.ServiceKind, name string, data model.AccountData) (*Account, error)
	// ListActiveByIDs 只返回属于该用户且 is_active 的账号
	ListActiveByIDs(ctx context.Context, userID string, ids []string) ([]*Account, error)
	ListActive(ctx context.Context, userID string) ([]*Account, error)
	GetByID(ctx context.Context, id string) (*Account, error)
}

type accountRepository struct {
	db  *gorm.DB
	box *secrets.Box
}

// NewAccountRepository box 为空时凭证明文存储（仅测试）
func NewAccountRepository(db *gorm.DB, box *secrets.Box) AccountRepository {
	return &accountRepository{db: db, box: box}
}

func (r *accountRepository) Create(ctx context.Context, userID string, service model.ServiceKind, name string, data model.AccountData) (*Account, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	stored := string(payload)
	if r.box != nil {
		if stored, err = r.box.Seal(payload); err != nil {
			return nil, err
		}
	}
	row := &model.ConnectedAccount{
		ID:          uuid.New().String(),
		UserID:      userID,
		Service:     service,
		AccountName: name,
		AccountData: stored,
		IsActive:    true,
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return &Account{ID: row.ID, UserID: userID, Service: service, AccountName: name, Data: data, IsActive: true}, nil
}

func (r *accountRepository) ListActiveByIDs(ctx context.Context, userID string, ids []string) ([]*Account, error) {
	var rows []model.ConnectedAccount
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ? AND id IN ?", userID, true, ids).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return r.decode(rows)
}

func (r *accountRepository) ListActive(ctx context.Context, userID string) ([]*Account, error) {
	var rows []model.ConnectedAccount
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("created_at").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return r.decode(rows)
}

func (r *accountRepository) GetByID(ctx context.Context, id string) (*Account, error) {
	var row model.ConnectedAccount
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, err
	}
	out, err := r.decode([]model.ConnectedAccount{row})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (r *accountRepository) decode(rows []model.ConnectedAccount) ([]*Account, error) {
	out := make([]*Account, 0, len(rows))
	for _, row := range rows {
		raw := []byte(row.AccountData)
		if r.box != nil {
			opened, err := r.box.Open(row.AccountData)
			if err != nil {
				return nil, err
			}
			raw = opened
		}
		var data model.AccountData
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, err
		}
		out = append(out, &Account{
			ID:          row.ID,
			UserID:      row.UserID,
			Service:     row.Service,
			AccountName: row.AccountName,
			Data:        data,
			IsActive:    row.IsActive,
		})
	}
	return out, nil
}
