package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBaseNameWithoutExt(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"jane_doe.pdf", "jane_doe"},
		{"uploads/batch/John.Smith.docx", "John.Smith"},
		{"resume", "resume"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := BaseNameWithoutExt(tt.in); got != tt.want {
			t.Errorf("BaseNameWithoutExt(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"jane_doe.pdf", "jane_doe.pdf"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\me\cv.docx`, "cv.docx"},
		{"a:b?.txt", "a_b_.txt"},
		{"", "upload"},
	}
	for _, tt := range tests {
		if got := SanitizeFileName(tt.in); got != tt.want {
			t.Errorf("SanitizeFileName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidateInputFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "job.txt")
	if err := os.WriteFile(file, []byte("Backend engineer"), 0600); err != nil {
		t.Fatal(err)
	}

	if err := ValidateInputFile(file); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateInputFile(dir); err == nil {
		t.Error("expected error for directory")
	}
	if err := ValidateInputFile(filepath.Join(dir, "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}
	if err := ValidateInputFile(""); err == nil {
		t.Error("expected error for empty name")
	}
}

func TestHasAllowedExtension(t *testing.T) {
	allowed := []string{".pdf", ".docx", ".txt"}
	if !HasAllowedExtension("CV.PDF", allowed) {
		t.Error("extension match should be case-insensitive")
	}
	if HasAllowedExtension("cv.exe", allowed) {
		t.Error(".exe should not be allowed")
	}
}
