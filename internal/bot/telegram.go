package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	pollTimeout     = 60
	downloadTimeout = 2 * time.Minute
)

// Telegram adapts the Bot API client to Downloader and Sender.
type Telegram struct {
	api  *tgbotapi.BotAPI
	http *http.Client
}

func NewTelegram(token string) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram login: %w", err)
	}
	return &Telegram{
		api:  api,
		http: &http.Client{Timeout: downloadTimeout},
	}, nil
}

// Username returns the bot account name.
func (t *Telegram) Username() string {
	return t.api.Self.UserName
}

// Updates starts long polling.
func (t *Telegram) Updates() tgbotapi.UpdatesChannel {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeout
	return t.api.GetUpdatesChan(u)
}

func (t *Telegram) Stop() {
	t.api.StopReceivingUpdates()
}

func (t *Telegram) Download(ctx context.Context, fileID string) (io.ReadCloser, error) {
	url, err := t.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := t.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return resp.Body, nil
}

func (t *Telegram) Send(ctx context.Context, reply Reply) error {
	msg := tgbotapi.NewMessage(reply.ChatID, reply.Text)
	msg.ReplyToMessageID = reply.ReplyTo
	if reply.HTML {
		msg.ParseMode = tgbotapi.ModeHTML
	}
	_, err := t.api.Send(msg)
	return err
}
