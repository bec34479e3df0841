package service

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contentgenie/publisher/internal/model"
	"github.com/contentgenie/publisher/internal/repository"
)

const generateURL = "http://llm.internal/generate"

func newGenerationEnv(t *testing.T, credits int) (GenerationService, repository.UserRepository) {
	t.Helper()
	db := newServiceTestDB(t)
	require.NoError(t, db.Create(&model.User{ID: "user-1", Username: "u1", DailyCredits: credits}).Error)

	transport := httpmock.NewMockTransport()
	client := &http.Client{Transport: transport}
	transport.RegisterResponder(http.MethodPost, generateURL,
		httpmock.NewJsonResponderOrPanic(200, map[string]string{"text": "generated copy"}))

	users := repository.NewUserRepository(db)
	svc := NewGenerationService(users, repository.NewGenerationRepository(db), generateURL, client)
	return svc, users
}

func TestGenerateConsumesCredit(t *testing.T) {
	svc, users := newGenerationEnv(t, 3)
	ctx := context.Background()

	result, err := svc.Generate(ctx, "user-1", "write about coffee")
	require.NoError(t, err)
	assert.Equal(t, "generated copy", result.Text)
	assert.Equal(t, 2, result.CreditsLeft)

	u, err := users.GetByID(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, u.DailyCredits)

	history, err := svc.History(ctx, "user-1", 0, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "write about coffee", history[0].OriginalIdea)
	assert.Equal(t, "generated copy", history[0].GeneratedText)
}

func TestGenerateExhaustedCredits(t *testing.T) {
	svc, _ := newGenerationEnv(t, 0)
	_, err := svc.Generate(context.Background(), "user-1", "idea")
	assert.ErrorIs(t, err, ErrCreditsExhausted)
}

func TestGenerateUpstreamFailureKeepsCredits(t *testing.T) {
	db := newServiceTestDB(t)
	require.NoError(t, db.Create(&model.User{ID: "user-1", Username: "u1", DailyCredits: 2}).Error)

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodPost, generateURL,
		httpmock.NewStringResponder(500, "boom"))
	users := repository.NewUserRepository(db)
	svc := NewGenerationService(users, repository.NewGenerationRepository(db), generateURL, &http.Client{Transport: transport})

	_, err := svc.Generate(context.Background(), "user-1", "idea")
	require.Error(t, err)

	u, err := users.GetByID(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, u.DailyCredits, "生成失败不扣额度")
}

func TestTranscribeRejectsUnsupportedMime(t *testing.T) {
	svc := NewTranscribeService("http://stt.internal/transcribe", &http.Client{})
	_, err := svc.Transcribe(context.Background(), "a.txt", "text/plain", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrUnsupportedAudio)
}

func TestTranscribeForwardsAudio(t *testing.T) {
	const url = "http://stt.internal/transcribe"
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodPost, url, func(req *http.Request) (*http.Response, error) {
		if err := req.ParseMultipartForm(1 << 20); err != nil {
			return httpmock.NewStringResponse(400, "bad form"), nil
		}
		if _, _, err := req.FormFile("audio"); err != nil {
			return httpmock.NewStringResponse(400, "no audio"), nil
		}
		return httpmock.NewJsonResponse(200, map[string]string{"text": "voice note"})
	})

	svc := NewTranscribeService(url, &http.Client{Transport: transport})
	text, err := svc.Transcribe(context.Background(), "note.ogg", "audio/ogg", strings.NewReader("fakeaudio"))
	require.NoError(t, err)
	assert.Equal(t, "voice note", text)
}
