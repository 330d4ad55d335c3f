package report

import (
	"strings"
	"testing"

	"github.com/NikitaAzmov/exif-meta-telegrambot/pkg/types"
)

// TestRender_ErrorOnlyIsSingleLine는 테스트 코드 동작을 검증하거나 보조합니다.
func TestRender_ErrorOnlyIsSingleLine(t *testing.T) {
	// Error 키만 있으면 해당 메시지를 담은 한 줄만 출력해야 한다.
	r := Render(types.ErrorMetadata("boom"))

	text := r.Text()
	if strings.Count(text, "\n") != 0 {
		t.Fatalf("expected one line, got %q", text)
	}
	if !strings.Contains(text, "boom") {
		t.Fatalf("expected message in output, got %q", text)
	}
	if len(r.Fields) != 0 {
		t.Fatalf("expected no field lines, got %v", r.Fields)
	}
}

// TestRender_EmptyRecordUsesGenericMessage는 테스트 코드 동작을 검증하거나 보조합니다.
func TestRender_EmptyRecordUsesGenericMessage(t *testing.T) {
	// 빈 레코드는 "metadata not found" 실패로 렌더링되어야 한다.
	r := Render(types.NewMetadata())
	if r.Text() != "Error: "+NotFoundMessage {
		t.Fatalf("unexpected text: %q", r.Text())
	}
}

// TestRender_PriorityBeforeUnknownKeys는 테스트 코드 동작을 검증하거나 보조합니다.
func TestRender_PriorityBeforeUnknownKeys(t *testing.T) {
	// 우선순위 키가 먼저, 나머지는 삽입 순서대로, 중복 없이 출력되어야 한다.
	md := types.NewMetadata()
	md.Set("CustomTag", "x")
	md.Set("ISO", "200")
	md.Set("Another", "y")
	md.Set("Manufacturer", "Canon")

	got := Render(md).Text()
	want := "Manufacturer: Canon\nISO: 200\nCustomTag: x\nAnother: y"
	if got != want {
		t.Fatalf("unexpected order:\nwant=%q\ngot=%q", want, got)
	}
}

// TestRender_ErrorWithFieldsIsNotFailure는 테스트 코드 동작을 검증하거나 보조합니다.
func TestRender_ErrorWithFieldsIsNotFailure(t *testing.T) {
	// 다른 필드와 함께 있는 Error는 일반 필드처럼 뒤에 출력되어야 한다.
	md := types.NewMetadata()
	md.Set(types.ErrorKey, "partial")
	md.Set("Model", "X")

	r := Render(md)
	if r.Failed() {
		t.Fatal("record with fields must not be a failure")
	}
	if r.Text() != "Model: X\nError: partial" {
		t.Fatalf("unexpected text: %q", r.Text())
	}
}

// TestRender_Idempotent는 테스트 코드 동작을 검증하거나 보조합니다.
func TestRender_Idempotent(t *testing.T) {
	// 같은 레코드를 두 번 렌더링하면 바이트 단위로 같아야 한다.
	md := types.NewMetadata()
	md.Set("GPS Coordinates", "1.000000, 2.000000")
	md.Set("Zeta", "z")
	md.Set("Model", "M")

	if Render(md).Text() != Render(md).Text() {
		t.Fatal("text output must be deterministic")
	}
	if Render(md).HTML() != Render(md).HTML() {
		t.Fatal("html output must be deterministic")
	}
}

// TestReport_HTMLEscapes는 테스트 코드 동작을 검증하거나 보조합니다.
func TestReport_HTMLEscapes(t *testing.T) {
	// HTML 출력은 값의 특수문자를 이스케이프해야 한다.
	md := types.NewMetadata()
	md.Set("Software", "<script>&")

	if got := Render(md).HTML(); got != "▪ <b>Software:</b> <code>&lt;script&gt;&amp;</code>" {
		t.Fatalf("unexpected html: %q", got)
	}
	if got := Render(types.ErrorMetadata("a<b")).HTML(); got != "❌ a&lt;b" {
		t.Fatalf("unexpected failure html: %q", got)
	}
}
