package survey

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

// Download fetches the raw survey dataset from a remote URL and writes
// it to destPath. An existing file is left untouched unless force is
// set, so repeated pipeline runs reuse the local copy.
func Download(ctx context.Context, url, destPath string, force bool) error {
	if !force {
		if _, err := os.Stat(destPath); err == nil {
			log.Info().Str("path", destPath).Msg("dataset already present, skipping download")
			return nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("create dataset directory: %w", err)
	}

	client := resty.New()
	client.SetTimeout(2 * time.Minute)
	client.SetRetryCount(3)
	client.SetRetryWaitTime(2 * time.Second)

	resp, err := client.R().
		SetContext(ctx).
		SetOutput(destPath).
		Get(url)
	if err != nil {
		return fmt.Errorf("download dataset: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("download dataset: server returned %s", resp.Status())
	}

	log.Info().
		Str("url", url).
		Str("path", destPath).
		Msg("dataset downloaded")

	return nil
}
