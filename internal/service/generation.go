package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/contentgenie/publisher/internal/model"
	"github.com/contentgenie/publisher/internal/repository"
)

var ErrCreditsExhausted = errors.New("daily limit exceeded")

// GenerationResult 生成文案 + 剩余额度
type GenerationResult struct {
	Text        string `json:"text"`
	CreditsLeft int    `json:"credits_left"`
}

type GenerationService interface {
	Generate(ctx context.Context, userID, idea string) (*GenerationResult, error)
	History(ctx context.Context, userID string, offset, limit int) ([]*model.Generation, error)
}

type generationService struct {
	users       repository.UserRepository
	generations repository.GenerationRepository
	endpoint    string
	client      *http.Client
}

func NewGenerationService(users repository.UserRepository, generations repository.GenerationRepository, endpoint string, client *http.Client) GenerationService {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &generationService{users: users, generations: generations, endpoint: endpoint, client: client}
}

// Generate 额度检查 -> 外部生成 -> 写历史 -> 扣额度
func (s *generationService) Generate(ctx context.Context, userID, idea string) (*GenerationResult, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.DailyCredits <= 0 {
		return nil, ErrCreditsExhausted
	}

	text, err := s.callGenerator(ctx, idea)
	if err != nil {
		return nil, err
	}

	if _, err := s.generations.Create(ctx, userID, idea, text, 1); err != nil {
		return nil, err
	}
	ok, left, err := s.users.ConsumeCredit(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		// 并发把额度抢光了；文案已生成，按 0 剩余返回
		left = 0
	}
	return &GenerationResult{Text: text, CreditsLeft: left}, nil
}

func (s *generationService) History(ctx context.Context, userID string, offset, limit int) ([]*model.Generation, error) {
	return s.generations.ListByUser(ctx, userID, offset, limit)
}

func (s *generationService) callGenerator(ctx context.Context, idea string) (string, error) {
	payload, err := json.Marshal(map[string]string{"idea": idea})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("generation service: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("generation service: http %d", resp.StatusCode)
	}

	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("generation service: decode: %w", err)
	}
	if body.Text == "" {
		return "", errors.New("generation service: empty text")
	}
	return body.Text, nil
}
