package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/contentgenie/publisher/internal/model"
)

// InstagramAdapter Graph API 两段式发布：先建 media container 再 publish
type InstagramAdapter struct {
	baseURL string
	client  *http.Client
}

func NewInstagramAdapter(baseURL string, client *http.Client) *InstagramAdapter {
	if baseURL == "" {
		baseURL = "https://graph.facebook.com/v19.0"
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &InstagramAdapter{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (a *InstagramAdapter) Service() model.ServiceKind { return model.ServiceInstagram }

type igResponse struct {
	ID    string `json:"id"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

func (a *InstagramAdapter) Publish(ctx context.Context, creds model.AccountData, content Content) (string, error) {
	if creds.AccessToken == "" || creds.GroupID == "" {
		return "", NewError(KindAuthInvalid, "instagram: access_token or account id missing")
	}
	if len(content.MediaURLs) == 0 {
		// IG 不支持纯文本帖
		return "", NewError(KindPayloadRejected, "instagram: at least one media url required")
	}

	caption := content.Text
	if content.Title != "" {
		caption = content.Title + "\n\n" + content.Text
	}

	container := url.Values{}
	container.Set("access_token", creds.AccessToken)
	container.Set("image_url", content.MediaURLs[0])
	container.Set("caption", caption)
	created, err := a.call(ctx, fmt.Sprintf("%s/%s/media", a.baseURL, creds.GroupID), container)
	if err != nil {
		return "", err
	}

	publish := url.Values{}
	publish.Set("access_token", creds.AccessToken)
	publish.Set("creation_id", created)
	return a.call(ctx, fmt.Sprintf("%s/%s/media_publish", a.baseURL, creds.GroupID), publish)
}

func (a *InstagramAdapter) call(ctx context.Context, endpoint string, form url.Values) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", NewError(KindUnknown, "instagram: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", NewError(KindNetworkError, "instagram: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return "", NewError(KindNetworkError, "instagram: http %d", resp.StatusCode)
	}

	var body igResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", NewError(KindNetworkError, "instagram: decode: %v", err)
	}
	if body.Error != nil {
		return "", classifyInstagram(body.Error.Code, body.Error.Message)
	}
	if body.ID == "" {
		return "", NewError(KindUnknown, "instagram: empty response")
	}
	return body.ID, nil
}

func classifyInstagram(code int, msg string) error {
	detail := fmt.Sprintf("instagram: [%d] %s", code, msg)
	switch code {
	case 190, 102: // token 失效
		return NewError(KindAuthInvalid, "%s", detail)
	case 4, 17, 32, 613: // app/user/page level throttling
		return NewError(KindRateLimited, "%s", detail)
	case 100, 9004: // 参数/媒体不可用
		return NewError(KindPayloadRejected, "%s", detail)
	default:
		return NewError(KindUnknown, "%s", detail)
	}
}
