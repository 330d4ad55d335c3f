// Package bot answers Telegram media messages with their metadata report.
package bot

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/NikitaAzmov/exif-meta-telegrambot/internal/pipeline"
	"github.com/NikitaAzmov/exif-meta-telegrambot/pkg/types"
)

const (
	GreetingText  = "Hi! 😎 Send me a photo, a video or an image document (JPEG/PNG) and I'll show all of its metadata, including EXIF, GPS and dates!"
	NotImageText  = "❌ The file is not an image! JPEG/PNG are supported."
	HintText      = "❌ Send a photo, a video or an image document (JPEG/PNG)!"
	ReportHeader  = "🔍 <b>File metadata:</b>"
	downloadError = "❌ File download failed: "
	tempPrefix    = "temp_"
)

// Reply is one outgoing message.
type Reply struct {
	ChatID  int64
	ReplyTo int
	Text    string
	HTML    bool
}

type Downloader interface {
	Download(ctx context.Context, fileID string) (io.ReadCloser, error)
}

type Sender interface {
	Send(ctx context.Context, reply Reply) error
}

type Processor interface {
	Process(ctx context.Context, req pipeline.Request) (*pipeline.Outcome, error)
}

type Logger interface {
	Info(msg string)
	Error(msg string, err error)
}

type Bot struct {
	proc    Processor
	dl      Downloader
	sender  Sender
	logger  Logger
	workers int
}

func New(proc Processor, dl Downloader, sender Sender, logger Logger, workers int) *Bot {
	if workers < 1 {
		workers = 1
	}
	return &Bot{proc: proc, dl: dl, sender: sender, logger: logger, workers: workers}
}

// Run handles updates on a fixed pool of workers until updates is closed
// or ctx is done.
func (b *Bot) Run(ctx context.Context, updates <-chan tgbotapi.Update) {
	var wg sync.WaitGroup
	for i := 0; i < b.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case update, ok := <-updates:
					if !ok {
						return
					}
					if update.Message == nil {
						continue
					}
					if err := b.HandleMessage(ctx, update.Message); err != nil {
						b.logger.Error("failed to reply", err)
					}
				}
			}
		}()
	}
	wg.Wait()
}

// attachment is the file a message carries.
type attachment struct {
	fileID string
	class  types.MediaClass
}

// HandleMessage replies to one message. The returned error is a send failure.
func (b *Bot) HandleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.Chat == nil {
		return nil
	}

	if msg.IsCommand() {
		if msg.Command() == "start" {
			return b.reply(ctx, msg, GreetingText, false)
		}
		return b.reply(ctx, msg, HintText, false)
	}

	att, rejection := pickAttachment(msg)
	if rejection != "" {
		return b.reply(ctx, msg, rejection, false)
	}

	b.logger.Info(fmt.Sprintf("%s from chat %d", att.class, msg.Chat.ID))

	body, err := b.dl.Download(ctx, att.fileID)
	if err != nil {
		b.logger.Error("download failed", err)
		return b.reply(ctx, msg, downloadError+err.Error(), false)
	}
	defer body.Close()

	outcome, err := b.proc.Process(ctx, pipeline.Request{
		Name:  tempName(att.fileID, msg.MessageID),
		Class: att.class,
		Body:  body,
	})
	if err != nil {
		return b.reply(ctx, msg, downloadError+err.Error(), false)
	}

	if outcome.Report.Failed() {
		return b.reply(ctx, msg, outcome.Report.HTML(), true)
	}
	return b.reply(ctx, msg, ReportHeader+"\n"+outcome.Report.HTML(), true)
}

// tempName is unique per message, so the same file forwarded twice never
// shares a path.
func tempName(fileID string, messageID int) string {
	return fmt.Sprintf("%s%s_%d", tempPrefix, fileID, messageID)
}

func pickAttachment(msg *tgbotapi.Message) (attachment, string) {
	switch {
	case len(msg.Photo) > 0:
		// Sizes are ordered smallest first.
		return attachment{fileID: msg.Photo[len(msg.Photo)-1].FileID, class: types.MediaClassImage}, ""
	case msg.Video != nil:
		return attachment{fileID: msg.Video.FileID, class: types.MediaClassVideo}, ""
	case msg.VideoNote != nil:
		return attachment{fileID: msg.VideoNote.FileID, class: types.MediaClassVideo}, ""
	case msg.Document != nil:
		if !strings.HasPrefix(msg.Document.MimeType, "image") {
			return attachment{}, NotImageText
		}
		return attachment{fileID: msg.Document.FileID, class: types.MediaClassImage}, ""
	}
	return attachment{}, HintText
}

func (b *Bot) reply(ctx context.Context, msg *tgbotapi.Message, text string, html bool) error {
	return b.sender.Send(ctx, Reply{
		ChatID:  msg.Chat.ID,
		ReplyTo: msg.MessageID,
		Text:    text,
		HTML:    html,
	})
}
