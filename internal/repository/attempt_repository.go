package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/contentgenie/publisher/internal/model"
)

type AttemptRepository interface {
	// Admit 原子的 insert-if-absent；返回当前行和本次是否新建
	Admit(ctx context.Context, postID, accountID string) (*model.PublishAttempt, bool, error)
	Get(ctx context.Context, postID, accountID string) (*model.PublishAttempt, error)
	ListByPost(ctx context.Context, postID string) ([]*model.PublishAttempt, error)
	// MarkInFlight pending -> in_flight 的 CAS，保证同一 pair 同时至多一个在途调用
	MarkInFlight(ctx context.Context, id string) (bool, error)
	MarkSucceeded(ctx context.Context, id, messageID string, retries int) error
	MarkFailed(ctx context.Context, id, errorKind string, retries int) error
	// ClaimStale 领取残留的 pending/in_flight（进程重启恢复用，postgres only）
	ClaimStale(ctx context.Context, olderThan time.Time, limit int) ([]*model.PublishAttempt, error)
}

type attemptRepository struct{ db *gorm.DB }

func NewAttemptRepository(db *gorm.DB) AttemptRepository { return &attemptRepository{db: db} }

func (r *attemptRepository) Admit(ctx context.Context, postID, accountID string) (*model.PublishAttempt, bool, error) {
	row := &model.PublishAttempt{
		ID:        uuid.New().String(),
		PostID:    postID,
		AccountID: accountID,
		State:     model.AttemptPending,
	}
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(row)
	if tx.Error != nil {
		return nil, false, tx.Error
	}
	if tx.RowsAffected == 1 {
		return row, true, nil
	}
	existing, err := r.Get(ctx, postID, accountID)
	return existing, false, err
}

func (r *attemptRepository) Get(ctx context.Context, postID, accountID string) (*model.PublishAttempt, error) {
	var a model.PublishAttempt
	err := r.db.WithContext(ctx).
		Where("post_id = ? AND account_id = ?", postID, accountID).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *attemptRepository) ListByPost(ctx context.Context, postID string) ([]*model.PublishAttempt, error) {
	var res []*model.PublishAttempt
	err := r.db.WithContext(ctx).Where("post_id = ?", postID).Find(&res).Error
	return res, err
}

func (r *attemptRepository) MarkInFlight(ctx context.Context, id string) (bool, error) {
	tx := r.db.WithContext(ctx).Model(&model.PublishAttempt{}).
		Where("id = ? AND state = ?", id, model.AttemptPending).
		Update("state", model.AttemptInFlight)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

func (r *attemptRepository) MarkSucceeded(ctx context.Context, id, messageID string, retries int) error {
	return r.db.WithContext(ctx).Model(&model.PublishAttempt{}).
		Where("id = ? AND state = ?", id, model.AttemptInFlight).
		Updates(map[string]any{
			"state":      model.AttemptSucceeded,
			"message_id": messageID,
			"error_kind": "",
			"retries":    retries,
		}).Error
}

func (r *attemptRepository) MarkFailed(ctx context.Context, id, errorKind string, retries int) error {
	return r.db.WithContext(ctx).Model(&model.PublishAttempt{}).
		Where("id = ? AND state = ?", id, model.AttemptInFlight).
		Updates(map[string]any{
			"state":      model.AttemptFailed,
			"error_kind": errorKind,
			"retries":    retries,
		}).Error
}

// ClaimStale 用 SELECT ... FOR UPDATE SKIP LOCKED 抢占一批并标记 in_flight，
// 避免多实例恢复时重复处理。
func (r *attemptRepository) ClaimStale(ctx context.Context, olderThan time.Time, limit int) ([]*model.PublishAttempt, error) {
	var batch []*model.PublishAttempt
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Raw(`
            SELECT id, post_id, account_id, state, message_id, error_kind, retries, created_at, updated_at
            FROM publish_attempts
            WHERE state IN ('pending', 'in_flight') AND updated_at < ?
            ORDER BY updated_at
            LIMIT ?
            FOR UPDATE SKIP LOCKED
        `, olderThan, limit).Scan(&batch).Error; err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		ids := make([]string, len(batch))
		for i, a := range batch {
			ids[i] = a.ID
		}
		return tx.Model(&model.PublishAttempt{}).Where("id IN ?", ids).
			Updates(map[string]any{"state": model.AttemptInFlight, "updated_at": time.Now()}).Error
	})
	if err != nil {
		return nil, err
	}
	for _, a := range batch {
		a.State = model.AttemptInFlight
	}
	return batch, nil
}
