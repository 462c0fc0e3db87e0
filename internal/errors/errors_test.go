package errors

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
)

func TestAppErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		expected string
	}{
		{
			name:     "without cause",
			err:      NewValidationError(ErrCodeTooManyFiles, "too many resumes", nil),
			expected: "TOO_MANY_FILES: too many resumes",
		},
		{
			name:     "with cause",
			err:      NewAIError(ErrCodeEmptyResponse, "no text in reply", fmt.Errorf("boom")),
			expected: "EMPTY_RESPONSE: no text in reply (caused by: boom)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestHasCodeThroughWrapping(t *testing.T) {
	base := NewIOError(ErrCodeExtractionFailed, "cannot read", nil)
	wrapped := fmt.Errorf("item 2: %w", base)

	if !HasCode(wrapped, ErrCodeExtractionFailed) {
		t.Error("expected wrapped error to carry EXTRACTION_FAILED")
	}
	if HasCode(wrapped, ErrCodeEmptyText) {
		t.Error("did not expect EMPTY_TEXT")
	}
	if HasCode(fmt.Errorf("plain"), ErrCodeExtractionFailed) {
		t.Error("plain errors carry no code")
	}
}

func TestLogErrorIncludesAppErrorFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter(&buf, "debug")
	if err != nil {
		t.Fatalf("NewWithWriter: %v", err)
	}

	appErr := NewAIError(ErrCodeMalformedOutput, "reply was not JSON", fmt.Errorf("unexpected token")).
		WithContext("operation", "extract_job")
	logger.LogError(appErr, "extraction failed", "file", "jane_doe.pdf")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
	}

	want := map[string]string{
		"msg":        "extraction failed",
		"error_code": ErrCodeMalformedOutput,
		"operation":  "extract_job",
		"file":       "jane_doe.pdf",
		"cause":      "unexpected token",
	}
	for key, value := range want {
		if record[key] != value {
			t.Errorf("record[%q] = %v, want %q", key, record[key], value)
		}
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New("verbose"); err == nil || !strings.Contains(err.Error(), "invalid log level") {
		t.Fatalf("expected invalid log level error, got %v", err)
	}
}
