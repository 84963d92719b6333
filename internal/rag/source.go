package rag

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/courtsense/courtsense/internal/extract"
)

// ErrSourceTooLarge indicates the fetched document exceeds the extraction
// size limit.
var ErrSourceTooLarge = errors.New("source document too large")

const fetchTimeout = 2 * time.Minute

// SourceFetcher loads raw document bytes from a source reference.
type SourceFetcher interface {
	Fetch(ctx context.Context, source string) ([]byte, error)
}

// Fetcher reads documents from local paths or http(s) URLs.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a Fetcher. A nil client gets a default with a timeout.
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: fetchTimeout}
	}
	return &Fetcher{client: client}
}

// Fetch returns the raw bytes behind source, which is treated as a URL when
// it carries an http or https scheme and as a local file path otherwise.
func (f *Fetcher) Fetch(ctx context.Context, source string) ([]byte, error) {
	if source == "" {
		return nil, errors.New("source is empty")
	}
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return f.fetchURL(ctx, source)
	}
	return f.fetchFile(source)
}

func (f *Fetcher) fetchURL(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: unexpected status %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, extract.MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if len(data) > extract.MaxFileSize {
		return nil, fmt.Errorf("%w: %s", ErrSourceTooLarge, url)
	}
	return data, nil
}

func (f *Fetcher) fetchFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if info.Size() > extract.MaxFileSize {
		return nil, fmt.Errorf("%w: %s", ErrSourceTooLarge, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}
