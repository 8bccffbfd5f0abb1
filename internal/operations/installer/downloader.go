package installer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/CloudNativeWorks/lynx-node/internal/operations/common"
	"github.com/sirupsen/logrus"
)

const DefaultDownloadTimeout = 5 * time.Minute

type Downloader struct {
	httpClient *http.Client
	timeout    time.Duration
	logger     *logrus.Entry
}

func NewDownloader(timeout time.Duration) *Downloader {
	if timeout <= 0 {
		timeout = DefaultDownloadTimeout
	}
	return &Downloader{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
		logger:  logrus.WithField("component", "artifact-downloader"),
	}
}

// DownloadToTemp downloads url into a new temporary file in dir and returns
// its path. The caller owns the file.
func (d *Downloader) DownloadToTemp(ctx context.Context, url, dir string) (string, error) {
	tempFile, err := os.CreateTemp(dir, "lynx-download-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	keep := false
	defer func() {
		tempFile.Close()
		if !keep {
			os.Remove(tempFile.Name())
		}
	}()

	if err := d.downloadFile(ctx, url, tempFile); err != nil {
		return "", err
	}
	if err := tempFile.Sync(); err != nil {
		return "", fmt.Errorf("failed to sync download: %w", err)
	}

	keep = true
	return tempFile.Name(), nil
}

// FetchChecksum downloads a "<file>.sha256" companion and returns the digest
func (d *Downloader) FetchChecksum(ctx context.Context, url string) (string, error) {
	var sb strings.Builder
	if err := d.download(ctx, url, &sb); err != nil {
		return "", err
	}
	fields := strings.Fields(sb.String())
	if len(fields) == 0 {
		return "", fmt.Errorf("checksum file %s is empty", url)
	}
	return fields[0], nil
}

// downloadFile downloads a file from URL to the given file handle
func (d *Downloader) downloadFile(ctx context.Context, url string, dest *os.File) error {
	d.logger.WithField("url", url).Debug("Downloading file")
	return d.download(ctx, url, dest)
}

func (d *Downloader) download(ctx context.Context, url string, dest io.Writer) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create download request: %w", err)
	}
	req.Header.Set("User-Agent", "lynx-node")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		d.logger.WithError(err).Error("Failed to download file")
		return fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	written, err := common.CopyWithContext(ctx, dest, resp.Body)
	if err != nil {
		return fmt.Errorf("failed to save file: %w", err)
	}

	d.logger.WithField("bytes", written).Debug("File download completed")
	return nil
}
