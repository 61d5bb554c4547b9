package errors

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"testing"

	"github.com/vango-dev/signals/pkg/reactive"
)

func TestNewFromRegistry(t *testing.T) {
	err := New(CodeConfigParse)

	if err.Code != CodeConfigParse {
		t.Errorf("expected code %s, got %s", CodeConfigParse, err.Code)
	}
	if err.Category != CategoryConfig {
		t.Errorf("expected category config, got %s", err.Category)
	}
	if err.Suggestion == "" {
		t.Error("expected registered suggestion to be copied")
	}
}

func TestNewUnknownCode(t *testing.T) {
	err := New("S999")
	if err.Message != "Unknown error" {
		t.Errorf("expected Unknown error, got %q", err.Message)
	}
}

func TestErrorString(t *testing.T) {
	err := New(CodeConfigInvalid).WithDetail("maxDepth must be positive")
	want := "S023: Invalid configuration value (maxDepth must be positive)"
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}

	plain := Newf(CategoryCLI, "bad %s", "thing")
	if plain.Error() != "bad thing" {
		t.Errorf("expected %q, got %q", "bad thing", plain.Error())
	}
}

func TestWrapUnwraps(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := New(CodeConfigWrite).Wrap(cause)
	if !stderrors.Is(err, cause) {
		t.Error("expected errors.Is to find the wrapped cause")
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, CodeBadArgument) != nil {
		t.Error("expected nil for nil error")
	}

	cycle := &reactive.CycleError{ID: 7, Kind: reactive.KindDerived, Depth: 100}
	got := FromError(fmt.Errorf("run: %w", cycle), CodeBadArgument)
	if got.Code != CodeCycle {
		t.Errorf("expected code %s, got %s", CodeCycle, got.Code)
	}
	if !strings.Contains(got.Detail, "derived signal 7") {
		t.Errorf("expected detail to name the signal, got %q", got.Detail)
	}
	if !stderrors.Is(got, reactive.ErrCycle) {
		t.Error("expected converted error to still match ErrCycle")
	}

	if got := FromError(reactive.ErrLoopClosed, CodeBadArgument); got.Code != CodeLoopClosed {
		t.Errorf("expected code %s, got %s", CodeLoopClosed, got.Code)
	}

	existing := New(CodeUnknownShape)
	if got := FromError(existing, CodeBadArgument); got != existing {
		t.Error("expected an *Error to pass through unchanged")
	}

	if got := FromError(fmt.Errorf("other"), CodeBadArgument); got.Code != CodeBadArgument {
		t.Errorf("expected fallback code, got %s", got.Code)
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	err := New(CodeUnknownShape).
		WithDetail("shape \"ring\" is not supported").
		Wrap(fmt.Errorf("cause"))
	out := err.Format()

	for _, want := range []string{
		"ERROR S060: Unknown benchmark graph shape",
		"shape \"ring\" is not supported",
		"Cause: cause",
		"Hint: Use one of: chain, fanout, diamond",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\033[") {
		t.Error("expected no ANSI codes with colors disabled")
	}
}

func TestFormatJSON(t *testing.T) {
	err := New(CodeListenFailed).WithDetail(":80").Wrap(fmt.Errorf("permission denied"))

	var got map[string]string
	if jerr := json.Unmarshal([]byte(err.FormatJSON()), &got); jerr != nil {
		t.Fatalf("expected valid JSON, got %v", jerr)
	}
	if got["code"] != CodeListenFailed || got["category"] != "live" || got["cause"] != "permission denied" {
		t.Errorf("unexpected JSON fields: %v", got)
	}
}

func TestPrint(t *testing.T) {
	DisableColors()
	defer EnableColors()

	var buf bytes.Buffer
	Print(&buf, fmt.Errorf("wrapped: %w", New(CodeLoopClosed)))
	if !strings.Contains(buf.String(), "ERROR S002") {
		t.Errorf("expected coded output, got %q", buf.String())
	}

	buf.Reset()
	Print(&buf, fmt.Errorf("plain"))
	if !strings.Contains(buf.String(), "ERROR: plain") {
		t.Errorf("expected plain output, got %q", buf.String())
	}
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	PrintJSON(&buf, fmt.Errorf("wrapped: %w", New(CodeUnknownShape)))

	var got map[string]string
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("expected valid JSON, got %v", err)
	}
	if got["code"] != CodeUnknownShape || got["category"] != "cli" {
		t.Errorf("unexpected JSON fields: %v", got)
	}

	buf.Reset()
	PrintJSON(&buf, fmt.Errorf("plain"))
	got = nil
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("expected valid JSON, got %v", err)
	}
	if got["message"] != "plain" || got["category"] != "cli" || got["code"] != "" {
		t.Errorf("unexpected JSON fields: %v", got)
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText(strings.Repeat("word ", 30), 20)
	for _, line := range lines {
		if len(line) > 20 {
			t.Errorf("line exceeds width: %q", line)
		}
	}
	if len(lines) < 2 {
		t.Errorf("expected text to wrap, got %d lines", len(lines))
	}
}
