package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/contentgenie/publisher/internal/model"
)

var ErrUserNotFound = errors.New("user not found")

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
	// ConsumeCredit 原子扣减一次生成额度；额度耗尽返回 false
	ConsumeCredit(ctx context.Context, id string) (bool, int, error)
	ResetCredits(ctx context.Context, id string, credits int) error
	// ResetAllCredits 每日额度刷新
	ResetAllCredits(ctx context.Context, credits int) error
}

type userRepository struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) UserRepository { return &userRepository{db: db} }

func (r *userRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) ConsumeCredit(ctx context.Context, id string) (bool, int, error) {
	tx := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ? AND daily_credits > 0", id).
		Update("daily_credits", gorm.Expr("daily_credits - 1"))
	if tx.Error != nil {
		return false, 0, tx.Error
	}
	if tx.RowsAffected == 0 {
		return false, 0, nil
	}
	u, err := r.GetByID(ctx, id)
	if err != nil {
		return false, 0, err
	}
	return true, u.DailyCredits, nil
}

func (r *userRepository) ResetCredits(ctx context.Context, id string, credits int) error {
	return r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", id).
		Update("daily_credits", credits).Error
}

func (r *userRepository) ResetAllCredits(ctx context.Context, credits int) error {
	return r.db.WithContext(ctx).Model(&model.User{}).
		Where("daily_credits < ?", credits).
		Update("daily_credits", credits).Error
}
