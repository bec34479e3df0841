package adapter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	tele "gopkg.in/telebot.v4"

	"github.com/contentgenie/publisher/internal/model"
)

func TestTelegramMissingCredentials(t *testing.T) {
	ad := NewTelegramAdapter(nil)
	_, err := ad.Publish(context.Background(), model.AccountData{}, Content{Text: "x"})
	assert.Equal(t, KindAuthInvalid, KindOf(err))

	_, err = ad.Publish(context.Background(), model.AccountData{Token: "t"}, Content{Text: "x"})
	assert.Equal(t, KindAuthInvalid, KindOf(err))
}

func TestTelegramClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"flood", tele.FloodError{RetryAfter: 30}, KindRateLimited},
		{"unauthorized", &tele.Error{Code: 401, Description: "Unauthorized"}, KindAuthInvalid},
		{"forbidden", &tele.Error{Code: 403, Description: "bot was kicked"}, KindAuthInvalid},
		{"too many requests", &tele.Error{Code: 429, Description: "Too Many Requests"}, KindRateLimited},
		{"bad request", &tele.Error{Code: 400, Description: "message is too long"}, KindPayloadRejected},
		{"server side", &tele.Error{Code: 502, Description: "Bad Gateway"}, KindUnknown},
		{"timeout", context.DeadlineExceeded, KindNetworkError},
		{"plain network", errors.New("dial tcp: timeout"), KindNetworkError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, KindOf(classifyTelegram(tc.err)))
		})
	}
}

func TestErrorKindRetryable(t *testing.T) {
	assert.True(t, KindRateLimited.Retryable())
	assert.True(t, KindNetworkError.Retryable())
	assert.False(t, KindAuthInvalid.Retryable())
	assert.False(t, KindPayloadRejected.Retryable())
	assert.False(t, KindUnknown.Retryable())
}
