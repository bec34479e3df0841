package adapter

import (
	"context"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contentgenie/publisher/internal/model"
)

func vkTestAdapter(t *testing.T) (*VKAdapter, *httpmock.MockTransport) {
	t.Helper()
	transport := httpmock.NewMockTransport()
	return NewVKAdapter("https://api.vk.test", &http.Client{Transport: transport}), transport
}

func TestVKPublishWallPost(t *testing.T) {
	ad, transport := vkTestAdapter(t)
	transport.RegisterResponder(http.MethodPost, "https://api.vk.test/method/wall.post",
		func(req *http.Request) (*http.Response, error) {
			require.NoError(t, req.ParseForm())
			assert.Equal(t, "5.199", req.PostForm.Get("v"))
			assert.Equal(t, "-777", req.PostForm.Get("owner_id"))
			assert.Equal(t, "1", req.PostForm.Get("from_group"))
			assert.Contains(t, req.PostForm.Get("message"), "hello")
			return httpmock.NewJsonResponse(200, map[string]any{"response": map[string]any{"post_id": 4242}})
		})

	id, err := ad.Publish(context.Background(),
		model.AccountData{AccessToken: "tok", GroupID: "777"},
		Content{Title: "T", Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "4242", id)
}

func TestVKPublishMissingToken(t *testing.T) {
	ad, _ := vkTestAdapter(t)
	_, err := ad.Publish(context.Background(), model.AccountData{}, Content{Text: "x"})
	assert.Equal(t, KindAuthInvalid, KindOf(err))
}

func TestVKErrorClassification(t *testing.T) {
	cases := []struct {
		code int
		want ErrorKind
	}{
		{5, KindAuthInvalid},
		{27, KindAuthInvalid},
		{6, KindRateLimited},
		{9, KindRateLimited},
		{29, KindRateLimited},
		{100, KindPayloadRejected},
		{214, KindPayloadRejected},
		{1, KindUnknown},
	}
	for _, tc := range cases {
		ad, transport := vkTestAdapter(t)
		transport.RegisterResponder(http.MethodPost, "https://api.vk.test/method/wall.post",
			httpmock.NewJsonResponderOrPanic(200, map[string]any{
				"error": map[string]any{"error_code": tc.code, "error_msg": "err"},
			}))
		_, err := ad.Publish(context.Background(), model.AccountData{AccessToken: "tok"}, Content{Text: "x"})
		require.Error(t, err)
		assert.Equal(t, tc.want, KindOf(err), "vk code %d", tc.code)
	}
}

func TestVKServerErrorIsNetwork(t *testing.T) {
	ad, transport := vkTestAdapter(t)
	transport.RegisterResponder(http.MethodPost, "https://api.vk.test/method/wall.post",
		httpmock.NewStringResponder(502, "bad gateway"))
	_, err := ad.Publish(context.Background(), model.AccountData{AccessToken: "tok"}, Content{Text: "x"})
	assert.Equal(t, KindNetworkError, KindOf(err))
}
