package cmd

import (
	"strings"
	"testing"

	"github.com/courtsense/courtsense/internal/config"
	"github.com/courtsense/courtsense/internal/knowledge"
)

func TestDocumentNameFromSource(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"local path", "/docs/serve-guide.pdf", "serve-guide.pdf"},
		{"relative path", "drills.pdf", "drills.pdf"},
		{"url", "https://example.com/library/padel-plan.pdf", "padel-plan.pdf"},
		{"url with query", "https://example.com/doc.pdf?token=abc", "doc.pdf"},
		{"url with fragment", "https://example.com/doc.pdf#page=3", "doc.pdf"},
		{"trailing slash", "https://example.com/doc.pdf/", "doc.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := documentNameFromSource(tt.source); got != tt.want {
				t.Errorf("documentNameFromSource(%q) = %q, want %q", tt.source, got, tt.want)
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"short text unchanged", "keep low on the volley", 50, "keep low on the volley"},
		{"whitespace collapsed", "line one\n\nline  two", 50, "line one line two"},
		{"long text truncated", strings.Repeat("a ", 40), 10, "a a a a a " + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := summarize(tt.in, tt.n); got != tt.want {
				t.Errorf("summarize(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
			}
		})
	}
}

func TestRetrieveOptionsUsesConfiguredDefaults(t *testing.T) {
	cfg := &config.Config{RetrievalLimit: 8, RetrievalThreshold: 0.45}

	opts := retrieveOptions(cfg, "", "", nil, 0, 0)
	if opts.Limit != 8 {
		t.Errorf("Limit = %d, want configured 8", opts.Limit)
	}
	if opts.Threshold != 0.45 {
		t.Errorf("Threshold = %v, want configured 0.45", opts.Threshold)
	}
}

func TestRetrieveOptionsFlagsOverrideConfig(t *testing.T) {
	cfg := &config.Config{RetrievalLimit: 8, RetrievalThreshold: 0.45}
	cats := []knowledge.Category{knowledge.CategoryExercise}

	opts := retrieveOptions(cfg, "padel", "bandeja", cats, 3, 0.7)
	if opts.Limit != 3 {
		t.Errorf("Limit = %d, want flag value 3", opts.Limit)
	}
	if opts.Threshold != 0.7 {
		t.Errorf("Threshold = %v, want flag value 0.7", opts.Threshold)
	}
	if opts.Sport != "padel" || opts.Technique != "bandeja" {
		t.Errorf("filters = %q/%q, want padel/bandeja", opts.Sport, opts.Technique)
	}
	if len(opts.Categories) != 1 || opts.Categories[0] != knowledge.CategoryExercise {
		t.Errorf("Categories = %v, want [EXERCISE]", opts.Categories)
	}

	// A negative threshold is a deliberate "keep everything" request and
	// must not be replaced by the configured default.
	opts = retrieveOptions(cfg, "", "", nil, 0, -1)
	if opts.Threshold != -1 {
		t.Errorf("Threshold = %v, want -1 passed through", opts.Threshold)
	}
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	want := []string{"ingest", "process", "documents", "search", "migrate", "version"}
	for _, name := range want {
		found := false
		for _, c := range rootCmd.Commands() {
			if c.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}
