package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/contentgenie/publisher/internal/model"
)

type GenerationRepository interface {
	Create(ctx context.Context, userID, idea, text string, usedCredits int) (*model.Generation, error)
	ListByUser(ctx context.Context, userID string, offset, limit int) ([]*model.Generation, error)
}

type generationRepository struct{ db *gorm.DB }

func NewGenerationRepository(db *gorm.DB) GenerationRepository {
	return &generationRepository{db: db}
}

func (r *generationRepository) Create(ctx context.Context, userID, idea, text string, usedCredits int) (*model.Generation, error) {
	g := &model.Generation{
		ID:            uuid.New().String(),
		UserID:        userID,
		OriginalIdea:  idea,
		GeneratedText: text,
		UsedCredits:   usedCredits,
	}
	if err := r.db.WithContext(ctx).Create(g).Error; err != nil {
		return nil, err
	}
	return g, nil
}

func (r *generationRepository) ListByUser(ctx context.Context, userID string, offset, limit int) ([]*model.Generation, error) {
	var res []*model.Generation
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&res).Error
	return res, err
}
