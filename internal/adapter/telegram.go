package adapter

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/contentgenie/publisher/internal/model"
)

// TelegramAdapter 通过 Bot API 发布到频道/群
type TelegramAdapter struct {
	client *http.Client
}

func NewTelegramAdapter(client *http.Client) *TelegramAdapter {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &TelegramAdapter{client: client}
}

func (a *TelegramAdapter) Service() model.ServiceKind { return model.ServiceTelegram }

// chat 允许数字 id 或 @channel 形式的收件方
type chat string

func (c chat) Recipient() string { return string(c) }

func (a *TelegramAdapter) Publish(ctx context.Context, creds model.AccountData, content Content) (string, error) {
	if creds.Token == "" || creds.ChatID == "" {
		return "", NewError(KindAuthInvalid, "telegram: token or chat_id missing")
	}
	// telebot 不接收 ctx，调用时长由注入的 http.Client 超时兜底
	if err := ctx.Err(); err != nil {
		return "", NewError(KindNetworkError, "telegram: %v", err)
	}
	// Offline: 每次发布按账号凭证建 bot，跳过 getMe round-trip
	bot, err := tele.NewBot(tele.Settings{
		Token:   creds.Token,
		Client:  a.client,
		Offline: true,
	})
	if err != nil {
		return "", NewError(KindAuthInvalid, "telegram: %v", err)
	}

	to := chat(creds.ChatID)
	text := content.Text
	if content.Title != "" {
		text = content.Title + "\n\n" + content.Text
	}

	var msg *tele.Message
	switch {
	case len(content.MediaURLs) == 0:
		msg, err = bot.Send(to, text)
	case len(content.MediaURLs) == 1:
		msg, err = bot.Send(to, &tele.Photo{File: tele.FromURL(content.MediaURLs[0]), Caption: text})
	default:
		album := make(tele.Album, 0, len(content.MediaURLs))
		for i, u := range content.MediaURLs {
			photo := &tele.Photo{File: tele.FromURL(u)}
			if i == 0 {
				photo.Caption = text
			}
			album = append(album, photo)
		}
		var msgs []tele.Message
		msgs, err = bot.SendAlbum(to, album)
		if err == nil && len(msgs) > 0 {
			msg = &msgs[0]
		}
	}
	if err != nil {
		return "", classifyTelegram(err)
	}
	if msg == nil {
		return "", NewError(KindUnknown, "telegram: empty response")
	}
	return strconv.Itoa(msg.ID), nil
}

func classifyTelegram(err error) error {
	var flood tele.FloodError
	if errors.As(err, &flood) {
		return NewError(KindRateLimited, "telegram: flood, retry after %ds", flood.RetryAfter)
	}
	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
			return NewError(KindAuthInvalid, "telegram: %s", apiErr.Description)
		case apiErr.Code == http.StatusTooManyRequests:
			return NewError(KindRateLimited, "telegram: %s", apiErr.Description)
		case apiErr.Code == http.StatusBadRequest:
			return NewError(KindPayloadRejected, "telegram: %s", apiErr.Description)
		default:
			return NewError(KindUnknown, "telegram: %s", apiErr.Description)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(KindNetworkError, "telegram: %v", err)
	}
	return NewError(KindNetworkError, "telegram: %v", err)
}
