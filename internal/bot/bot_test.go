package bot

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/NikitaAzmov/exif-meta-telegrambot/internal/pipeline"
	"github.com/NikitaAzmov/exif-meta-telegrambot/internal/report"
	"github.com/NikitaAzmov/exif-meta-telegrambot/pkg/types"
)

type fakeDownloader struct {
	body string
	err  error
	ids  []string
}

func (f *fakeDownloader) Download(ctx context.Context, fileID string) (io.ReadCloser, error) {
	f.ids = append(f.ids, fileID)
	if f.err != nil {
		return nil, f.err
	}
	return io.NopCloser(strings.NewReader(f.body)), nil
}

type fakeSender struct {
	mu      sync.Mutex
	replies []Reply
	err     error
}

func (f *fakeSender) Send(ctx context.Context, reply Reply) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, reply)
	return f.err
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.replies)
}

type fakeProcessor struct {
	md       types.Metadata
	err      error
	requests []pipeline.Request
	bodies   []string
}

func (f *fakeProcessor) Process(ctx context.Context, req pipeline.Request) (*pipeline.Outcome, error) {
	data, _ := io.ReadAll(req.Body)
	f.requests = append(f.requests, req)
	f.bodies = append(f.bodies, string(data))
	if f.err != nil {
		return nil, f.err
	}
	return &pipeline.Outcome{Metadata: f.md, Report: report.Render(f.md)}, nil
}

type nopLogger struct{}

func (nopLogger) Info(string)         {}
func (nopLogger) Error(string, error) {}

// newTestBot는 테스트 코드 동작을 검증하거나 보조합니다.
func newTestBot(md types.Metadata) (*Bot, *fakeDownloader, *fakeSender, *fakeProcessor) {
	dl := &fakeDownloader{body: "file-bytes"}
	sender := &fakeSender{}
	proc := &fakeProcessor{md: md}
	return New(proc, dl, sender, nopLogger{}, 1), dl, sender, proc
}

// newMessage는 테스트 코드 동작을 검증하거나 보조합니다.
func newMessage() *tgbotapi.Message {
	return &tgbotapi.Message{MessageID: 7, Chat: &tgbotapi.Chat{ID: 42}}
}

// TestHandleMessage_StartCommandGreets는 테스트 코드 동작을 검증하거나 보조합니다.
func TestHandleMessage_StartCommandGreets(t *testing.T) {
	// /start 명령은 인사 메시지로 응답해야 한다.
	b, dl, sender, _ := newTestBot(types.NewMetadata())
	msg := newMessage()
	msg.Text = "/start"
	msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 6}}

	if err := b.HandleMessage(context.Background(), msg); err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	if len(sender.replies) != 1 || sender.replies[0].Text != GreetingText || sender.replies[0].HTML {
		t.Fatalf("unexpected replies: %+v", sender.replies)
	}
	if sender.replies[0].ChatID != 42 || sender.replies[0].ReplyTo != 7 {
		t.Fatalf("unexpected reply target: %+v", sender.replies[0])
	}
	if len(dl.ids) != 0 {
		t.Fatalf("command must not download, got %v", dl.ids)
	}
}

// TestHandleMessage_PhotoUsesLargestSize는 테스트 코드 동작을 검증하거나 보조합니다.
func TestHandleMessage_PhotoUsesLargestSize(t *testing.T) {
	// 사진은 가장 큰 크기를 temp_<file_id>_<message_id> 이름의 이미지로 처리하고 헤더와 함께 HTML로 답해야 한다.
	md := types.NewMetadata()
	md.Set("Model", "Pixel 8")
	md.Set("Manufacturer", "Google")
	b, dl, sender, proc := newTestBot(md)

	msg := newMessage()
	msg.Photo = []tgbotapi.PhotoSize{{FileID: "small"}, {FileID: "large"}}

	if err := b.HandleMessage(context.Background(), msg); err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	if len(dl.ids) != 1 || dl.ids[0] != "large" {
		t.Fatalf("unexpected downloads: %v", dl.ids)
	}
	if proc.requests[0].Name != "temp_large_7" || proc.requests[0].Class != types.MediaClassImage || proc.bodies[0] != "file-bytes" {
		t.Fatalf("unexpected request: %+v body=%q", proc.requests[0], proc.bodies[0])
	}

	want := ReportHeader + "\n▪ <b>Manufacturer:</b> <code>Google</code>\n▪ <b>Model:</b> <code>Pixel 8</code>"
	if len(sender.replies) != 1 || sender.replies[0].Text != want || !sender.replies[0].HTML {
		t.Fatalf("unexpected reply: %+v", sender.replies)
	}
}

// TestHandleMessage_VideoAndVideoNoteAreVideo는 테스트 코드 동작을 검증하거나 보조합니다.
func TestHandleMessage_VideoAndVideoNoteAreVideo(t *testing.T) {
	// 비디오와 비디오 노트는 video 분류로 처리되어야 한다.
	md := types.NewMetadata()
	md.Set("Duration", "10.5s")
	b, _, _, proc := newTestBot(md)

	video := newMessage()
	video.Video = &tgbotapi.Video{FileID: "vid"}
	note := newMessage()
	note.VideoNote = &tgbotapi.VideoNote{FileID: "note"}

	for _, msg := range []*tgbotapi.Message{video, note} {
		if err := b.HandleMessage(context.Background(), msg); err != nil {
			t.Fatalf("handle failed: %v", err)
		}
	}
	if len(proc.requests) != 2 {
		t.Fatalf("expected two requests, got %d", len(proc.requests))
	}
	for _, req := range proc.requests {
		if req.Class != types.MediaClassVideo {
			t.Fatalf("expected video class, got %+v", req)
		}
	}
	if proc.requests[1].Name != "temp_note_7" {
		t.Fatalf("unexpected temp name: %s", proc.requests[1].Name)
	}
}

// TestHandleMessage_SameFileGetsDistinctTempNames는 테스트 코드 동작을 검증하거나 보조합니다.
func TestHandleMessage_SameFileGetsDistinctTempNames(t *testing.T) {
	// 같은 파일이 두 메시지로 오면 메시지마다 다른 임시 파일 이름을 써야 한다.
	md := types.NewMetadata()
	md.Set("Model", "X100V")
	b, _, _, proc := newTestBot(md)

	first := newMessage()
	first.Photo = []tgbotapi.PhotoSize{{FileID: "shared"}}
	second := newMessage()
	second.MessageID = 8
	second.Photo = []tgbotapi.PhotoSize{{FileID: "shared"}}

	for _, msg := range []*tgbotapi.Message{first, second} {
		if err := b.HandleMessage(context.Background(), msg); err != nil {
			t.Fatalf("handle failed: %v", err)
		}
	}
	if len(proc.requests) != 2 {
		t.Fatalf("expected two requests, got %d", len(proc.requests))
	}
	if proc.requests[0].Name != "temp_shared_7" || proc.requests[1].Name != "temp_shared_8" {
		t.Fatalf("unexpected temp names: %s, %s", proc.requests[0].Name, proc.requests[1].Name)
	}
}

// TestHandleMessage_DocumentRequiresImageMIME는 테스트 코드 동작을 검증하거나 보조합니다.
func TestHandleMessage_DocumentRequiresImageMIME(t *testing.T) {
	// 이미지가 아닌 문서는 다운로드 없이 거부 메시지로, 이미지 문서는 이미지로 처리되어야 한다.
	md := types.NewMetadata()
	md.Set("Model", "X100V")
	b, dl, sender, proc := newTestBot(md)

	pdf := newMessage()
	pdf.Document = &tgbotapi.Document{FileID: "doc1", MimeType: "application/pdf"}
	if err := b.HandleMessage(context.Background(), pdf); err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	if len(dl.ids) != 0 || sender.replies[0].Text != NotImageText {
		t.Fatalf("unexpected rejection: downloads=%v replies=%+v", dl.ids, sender.replies)
	}

	jpeg := newMessage()
	jpeg.Document = &tgbotapi.Document{FileID: "doc2", MimeType: "image/jpeg"}
	if err := b.HandleMessage(context.Background(), jpeg); err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	if len(proc.requests) != 1 || proc.requests[0].Class != types.MediaClassImage {
		t.Fatalf("unexpected requests: %+v", proc.requests)
	}
}

// TestHandleMessage_OtherMessagesGetHint는 테스트 코드 동작을 검증하거나 보조합니다.
func TestHandleMessage_OtherMessagesGetHint(t *testing.T) {
	// 미디어가 없는 메시지는 안내 메시지로 응답해야 한다.
	b, _, sender, _ := newTestBot(types.NewMetadata())
	msg := newMessage()
	msg.Text = "hello"

	if err := b.HandleMessage(context.Background(), msg); err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	if sender.replies[0].Text != HintText {
		t.Fatalf("unexpected reply: %+v", sender.replies)
	}
}

// TestHandleMessage_FailureRecordIsSingleLine는 테스트 코드 동작을 검증하거나 보조합니다.
func TestHandleMessage_FailureRecordIsSingleLine(t *testing.T) {
	// Error 전용 레코드는 헤더 없이 "❌ <msg>" 한 줄로 응답해야 한다.
	b, _, sender, _ := newTestBot(types.ErrorMetadata("no EXIF data: EOF"))
	msg := newMessage()
	msg.Photo = []tgbotapi.PhotoSize{{FileID: "p"}}

	if err := b.HandleMessage(context.Background(), msg); err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	if sender.replies[0].Text != "❌ no EXIF data: EOF" {
		t.Fatalf("unexpected reply: %q", sender.replies[0].Text)
	}
}

// TestHandleMessage_DownloadFailure는 테스트 코드 동작을 검증하거나 보조합니다.
func TestHandleMessage_DownloadFailure(t *testing.T) {
	// 다운로드 또는 저장 실패는 "❌ File download failed: <err>"로 응답해야 한다.
	b, dl, sender, proc := newTestBot(types.NewMetadata())
	dl.err = errors.New("timeout")

	msg := newMessage()
	msg.Video = &tgbotapi.Video{FileID: "v"}
	if err := b.HandleMessage(context.Background(), msg); err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	if sender.replies[0].Text != "❌ File download failed: timeout" {
		t.Fatalf("unexpected reply: %q", sender.replies[0].Text)
	}
	if len(proc.requests) != 0 {
		t.Fatalf("processor must not run after download failure")
	}

	dl.err = nil
	proc.err = errors.New("file exceeds upload limit")
	if err := b.HandleMessage(context.Background(), msg); err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	if sender.replies[1].Text != "❌ File download failed: file exceeds upload limit" {
		t.Fatalf("unexpected reply: %q", sender.replies[1].Text)
	}
}

// TestHandleMessage_ReturnsSendError는 테스트 코드 동작을 검증하거나 보조합니다.
func TestHandleMessage_ReturnsSendError(t *testing.T) {
	// 전송 실패는 호출자에게 에러로 반환되어야 한다.
	b, _, sender, _ := newTestBot(types.NewMetadata())
	sender.err = errors.New("forbidden")

	if err := b.HandleMessage(context.Background(), newMessage()); err == nil {
		t.Fatal("expected send error")
	}
}

// TestBotRun_DrainsUpdatesUntilClosed는 테스트 코드 동작을 검증하거나 보조합니다.
func TestBotRun_DrainsUpdatesUntilClosed(t *testing.T) {
	// Run은 채널이 닫힐 때까지 메시지가 있는 업데이트만 처리해야 한다.
	dl := &fakeDownloader{body: "x"}
	sender := &fakeSender{}
	b := New(&fakeProcessor{md: types.NewMetadata()}, dl, sender, nopLogger{}, 3)

	updates := make(chan tgbotapi.Update, 4)
	updates <- tgbotapi.Update{Message: newMessage()}
	updates <- tgbotapi.Update{}
	updates <- tgbotapi.Update{Message: newMessage()}
	close(updates)

	done := make(chan struct{})
	go func() {
		b.Run(context.Background(), updates)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("run did not return after channel close")
	}
	if sender.count() != 2 {
		t.Fatalf("expected 2 replies, got %d", sender.count())
	}
}

// TestBotRun_StopsOnContextCancel는 테스트 코드 동작을 검증하거나 보조합니다.
func TestBotRun_StopsOnContextCancel(t *testing.T) {
	// 컨텍스트가 취소되면 Run이 반환되어야 한다.
	b := New(&fakeProcessor{}, &fakeDownloader{}, &fakeSender{}, nopLogger{}, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		b.Run(ctx, make(chan tgbotapi.Update))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("run did not stop on cancel")
	}
}
