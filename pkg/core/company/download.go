package company

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"edinet_qa/pkg/core/store"
)

// maxRegistryBytes bounds the code list download.
const maxRegistryBytes = 64 << 20

// Download fetches the code list from url and saves it to dest. A ZIP
// archive is unpacked so dest always holds the CSV. The file is only
// replaced when the download parses, and the number of rows is returned.
func Download(ctx context.Context, client *http.Client, url, dest string) (int, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("registry download: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("registry download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("registry download: status=%d", resp.StatusCode)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxRegistryBytes))
	if err != nil {
		return 0, fmt.Errorf("registry download: read body: %w", err)
	}

	if bytes.HasPrefix(raw, zipLocalFileHead) {
		if raw, err = firstCSVInZip(raw); err != nil {
			return 0, err
		}
	}
	rows, err := ParseRegistry(raw)
	if err != nil {
		return 0, err
	}
	if err := store.WriteFileAtomic(dest, raw); err != nil {
		return 0, err
	}
	return len(rows), nil
}
