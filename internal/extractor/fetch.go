package extractor

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// maxFetchBytes caps remote downloads.
const maxFetchBytes = 32 << 20

// Fetch downloads url and extracts its text. Like ExtractText it never
// fails: network and status errors become a placeholder naming filename.
func Fetch(ctx context.Context, client *http.Client, url, filename string) string {
	data, err := download(ctx, client, url)
	if err != nil {
		return Placeholder(filename, err)
	}
	return ExtractText(data, filename)
}

func download(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch file: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if len(data) > maxFetchBytes {
		return nil, fmt.Errorf("file exceeds %d bytes", maxFetchBytes)
	}
	return data, nil
}
