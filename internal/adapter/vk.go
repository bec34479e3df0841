package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/contentgenie/publisher/internal/model"
)

const vkAPIVersion = "5.199"

// VKAdapter 通过 wall.post 发布到个人墙或社区
type VKAdapter struct {
	baseURL string
	client  *http.Client
}

func NewVKAdapter(baseURL string, client *http.Client) *VKAdapter {
	if baseURL == "" {
		baseURL = "https://api.vk.com"
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &VKAdapter{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (a *VKAdapter) Service() model.ServiceKind { return model.ServiceVK }

type vkResponse struct {
	Response *struct {
		PostID int64 `json:"post_id"`
	} `json:"response"`
	Error *struct {
		Code int    `json:"error_code"`
		Msg  string `json:"error_msg"`
	} `json:"error"`
}

func (a *VKAdapter) Publish(ctx context.Context, creds model.AccountData, content Content) (string, error) {
	if creds.AccessToken == "" {
		return "", NewError(KindAuthInvalid, "vk: access_token missing")
	}

	message := content.Text
	if content.Title != "" {
		message = content.Title + "\n\n" + content.Text
	}

	form := url.Values{}
	form.Set("access_token", creds.AccessToken)
	form.Set("v", vkAPIVersion)
	form.Set("message", message)
	if creds.GroupID != "" {
		form.Set("owner_id", "-"+creds.GroupID)
		form.Set("from_group", "1")
	}
	if len(content.MediaURLs) > 0 {
		form.Set("attachments", strings.Join(content.MediaURLs, ","))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.baseURL+"/method/wall.post", strings.NewReader(form.Encode()))
	if err != nil {
		return "", NewError(KindUnknown, "vk: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", NewError(KindNetworkError, "vk: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return "", NewError(KindNetworkError, "vk: http %d", resp.StatusCode)
	}

	var body vkResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", NewError(KindNetworkError, "vk: decode: %v", err)
	}
	if body.Error != nil {
		return "", classifyVK(body.Error.Code, body.Error.Msg)
	}
	if body.Response == nil {
		return "", NewError(KindUnknown, "vk: empty response")
	}
	return strconv.FormatInt(body.Response.PostID, 10), nil
}

// classifyVK 见 https://dev.vk.com/reference/errors
func classifyVK(code int, msg string) error {
	detail := fmt.Sprintf("vk: [%d] %s", code, msg)
	switch code {
	case 5, 27, 28: // авторизация
		return NewError(KindAuthInvalid, "%s", detail)
	case 6, 9, 29: // too many requests / flood / rate limit
		return NewError(KindRateLimited, "%s", detail)
	case 100, 214, 222: // 参数/内容被拒
		return NewError(KindPayloadRejected, "%s", detail)
	default:
		return NewError(KindUnknown, "%s", detail)
	}
}
