package extract

import (
	"bytes"
	"errors"
	"testing"
)

func TestExtract_NotAPDF(t *testing.T) {
	_, err := Extract([]byte("plain text, not a pdf"))
	if !errors.Is(err, ErrNoTextLayer) {
		t.Errorf("Extract(non-pdf) = %v, want ErrNoTextLayer", err)
	}
}

func TestExtract_Empty(t *testing.T) {
	_, err := Extract(nil)
	if !errors.Is(err, ErrNoTextLayer) {
		t.Errorf("Extract(nil) = %v, want ErrNoTextLayer", err)
	}
}

func TestExtract_TooLarge(t *testing.T) {
	data := bytes.Repeat([]byte{0}, MaxFileSize+1)
	_, err := Extract(data)
	if !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("Extract(oversized) = %v, want ErrFileTooLarge", err)
	}
}

func TestExtract_TruncatedPDF(t *testing.T) {
	// A valid header with a garbage body must fail cleanly, not panic.
	_, err := Extract([]byte("%PDF-1.7\ngarbage body without xref"))
	if err == nil {
		t.Fatal("Extract(truncated pdf) = nil error, want failure")
	}
	if !errors.Is(err, ErrNoTextLayer) {
		t.Errorf("Extract(truncated pdf) = %v, want ErrNoTextLayer", err)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"collapses spaces", "kick   serve\ttechnique", "kick serve technique"},
		{"preserves paragraph breaks", "first para\n\nsecond para", "first para\n\nsecond para"},
		{"trims page", "  \n text \n ", "text"},
		{"empty", "   \n  ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalize(tt.input); got != tt.want {
				t.Errorf("normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
