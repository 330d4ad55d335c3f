package exiftool

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"
)

// fakeCommand는 테스트 코드 동작을 검증하거나 보조합니다.
func fakeCommand(out string, err error) (CommandFunc, *[]string) {
	var got []string
	return func(ctx context.Context, name string, args ...string) ([]byte, error) {
		got = append([]string{name}, args...)
		return []byte(out), err
	}, &got
}

// TestExecRunnerExtract_ReturnsFirstRecord는 테스트 코드 동작을 검증하거나 보조합니다.
func TestExecRunnerExtract_ReturnsFirstRecord(t *testing.T) {
	// 숫자 모드(-j -n)로 한 파일만 호출하고 첫 번째 레코드를 반환해야 한다.
	r := NewExecRunner("", 0)
	cmd, args := fakeCommand(`[{"Make":"Canon","ImageWidth":1920,"FNumber":2.8},{"Make":"Other"}]`, nil)
	r.SetCommand(cmd)

	raw, err := r.Extract(context.Background(), "/tmp/a.jpg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantArgs := []string{"exiftool", "-j", "-n", "/tmp/a.jpg"}
	if !reflect.DeepEqual(*args, wantArgs) {
		t.Fatalf("unexpected command: %v", *args)
	}
	if raw["Make"] != "Canon" {
		t.Fatalf("unexpected Make: %v", raw["Make"])
	}
	if n, ok := raw["ImageWidth"].(json.Number); !ok || n.String() != "1920" {
		t.Fatalf("expected json.Number 1920, got %#v", raw["ImageWidth"])
	}
	if n, ok := raw["FNumber"].(json.Number); !ok || n.String() != "2.8" {
		t.Fatalf("expected json.Number 2.8, got %#v", raw["FNumber"])
	}
}

// TestExecRunnerExtract_FailuresAreUnavailable는 테스트 코드 동작을 검증하거나 보조합니다.
func TestExecRunnerExtract_FailuresAreUnavailable(t *testing.T) {
	// 종료 코드 실패, 깨진 JSON, 빈 배열은 모두 ErrUnavailable이어야 한다.
	cases := map[string]struct {
		out string
		err error
	}{
		"non-zero exit": {out: "", err: errors.New("exit status 1")},
		"malformed":     {out: "not json", err: nil},
		"empty array":   {out: "[]", err: nil},
		"not an array":  {out: `{"Make":"Canon"}`, err: nil},
	}

	for name, tc := range cases {
		r := NewExecRunner("exiftool", time.Second)
		cmd, _ := fakeCommand(tc.out, tc.err)
		r.SetCommand(cmd)

		raw, err := r.Extract(context.Background(), "/tmp/a.jpg")
		if !errors.Is(err, ErrUnavailable) {
			t.Fatalf("%s: expected ErrUnavailable, got %v", name, err)
		}
		if raw != nil {
			t.Fatalf("%s: expected nil record, got %v", name, raw)
		}
	}
}

// TestExecRunnerExtract_TimeoutIsUnavailable는 테스트 코드 동작을 검증하거나 보조합니다.
func TestExecRunnerExtract_TimeoutIsUnavailable(t *testing.T) {
	// 타임아웃은 다른 실패와 동일하게 ErrUnavailable로 처리되어야 한다.
	r := NewExecRunner("exiftool", 20*time.Millisecond)
	r.SetCommand(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		<-ctx.Done()
		return []byte(`[{"Make":"late"}]`), nil
	})

	_, err := r.Extract(context.Background(), "/tmp/slow.jpg")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable on timeout, got %v", err)
	}
	if !errors.Is(err, ErrUnavailable) || err.Error() == ErrUnavailable.Error() {
		t.Fatalf("expected wrapped cause in message, got %q", err.Error())
	}
}

// TestExecRunnerExtract_MissingBinary는 테스트 코드 동작을 검증하거나 보조합니다.
func TestExecRunnerExtract_MissingBinary(t *testing.T) {
	// 실행 파일이 없으면 실제 exec 경로에서도 ErrUnavailable이어야 한다.
	r := NewExecRunner("exiftool-does-not-exist-xyz", time.Second)
	_, err := r.Extract(context.Background(), "/tmp/a.jpg")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable for missing binary, got %v", err)
	}
}

// TestNew_SelectsRunnerByMode는 테스트 코드 동작을 검증하거나 보조합니다.
func TestNew_SelectsRunnerByMode(t *testing.T) {
	// exec 모드(기본값)는 ExecRunner, 알 수 없는 모드는 에러여야 한다.
	r, err := New("", "", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	er, ok := r.(*ExecRunner)
	if !ok {
		t.Fatalf("expected *ExecRunner, got %T", r)
	}
	if er.timeout != DefaultTimeout || er.binary != DefaultBinary {
		t.Fatalf("unexpected defaults: %+v", er)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}

	if _, err := New("bogus", "", 0); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

// TestStayOpenRunner_MissingBinaryIsUnavailable는 테스트 코드 동작을 검증하거나 보조합니다.
func TestStayOpenRunner_MissingBinaryIsUnavailable(t *testing.T) {
	// stay-open 프로세스를 시작하지 못하면 ErrUnavailable이어야 한다.
	_, err := NewStayOpenRunner("/path/does/not/exist/exiftool", time.Second)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
