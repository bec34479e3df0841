package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

var ErrUnsupportedAudio = errors.New("unsupported audio format")

// 与原 API 一致的白名单
var allowedAudioTypes = map[string]struct{}{
	"audio/mpeg": {},
	"audio/wav":  {},
	"audio/ogg":  {},
	"audio/webm": {},
}

type TranscribeService interface {
	Transcribe(ctx context.Context, filename, contentType string, audio io.Reader) (string, error)
}

type transcribeService struct {
	endpoint string
	client   *http.Client
}

func NewTranscribeService(endpoint string, client *http.Client) TranscribeService {
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}
	return &transcribeService{endpoint: endpoint, client: client}
}

func (s *transcribeService) Transcribe(ctx context.Context, filename, contentType string, audio io.Reader) (string, error) {
	if _, ok := allowedAudioTypes[contentType]; !ok {
		return "", ErrUnsupportedAudio
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("audio", filename)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, audio); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcribe service: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("transcribe service: http %d", resp.StatusCode)
	}

	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("transcribe service: decode: %w", err)
	}
	return body.Text, nil
}
