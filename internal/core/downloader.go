package core

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/DonovanMods/lmm-collections/internal/domain"

	"github.com/spf13/afero"
)

const (
	defaultMaxAttempts = 3
	defaultRetryDelay  = 200 * time.Millisecond
)

// Downloader handles HTTP file downloads with progress tracking
type Downloader struct {
	httpClient  *http.Client
	fs          afero.Fs
	maxAttempts int
	retryDelay  time.Duration
}

// NewDownloader creates a new Downloader with the given HTTP client and filesystem.
// If httpClient is nil, http.DefaultClient is used; if fsys is nil, the OS filesystem.
func NewDownloader(httpClient *http.Client, fsys afero.Fs) *Downloader {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return &Downloader{
		httpClient:  httpClient,
		fs:          fsys,
		maxAttempts: defaultMaxAttempts,
		retryDelay:  defaultRetryDelay,
	}
}

// Probe issues a HEAD request without downloading the body
func (d *Downloader) Probe(ctx context.Context, url string) (*domain.ProbeResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	resp.Body.Close()

	length := int64(-1)
	if resp.Header.Get("Content-Length") != "" {
		length = resp.ContentLength
	}

	return &domain.ProbeResult{
		StatusCode:    resp.StatusCode,
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: length,
		FileName:      dispositionFileName(resp.Header.Get("Content-Disposition")),
	}, nil
}

// Download fetches a file from the URL and saves it to destPath.
// Server errors are retried; progress updates go to the optional progressFn.
func (d *Downloader) Download(ctx context.Context, url, destPath string, progressFn domain.ProgressFunc) (*domain.DownloadResult, error) {
	var lastErr error
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		result, retry, err := d.download(ctx, url, destPath, progressFn)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !retry || attempt == d.maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(d.retryDelay * time.Duration(attempt)):
		}
	}
	return nil, lastErr
}

func (d *Downloader) download(ctx context.Context, url, destPath string, progressFn domain.ProgressFunc) (*domain.DownloadResult, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("creating request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("HTTP error: %d %s: %w", resp.StatusCode, http.StatusText(resp.StatusCode), domain.ErrDownloadFailed)
		return nil, resp.StatusCode >= 500, err
	}

	if err := d.fs.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return nil, false, fmt.Errorf("creating directory: %w", err)
	}

	// Write to a temp file first so a partial download never sits at destPath
	tempPath := destPath + ".tmp"
	file, err := d.fs.OpenFile(tempPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return nil, false, fmt.Errorf("creating file: %w", err)
	}
	defer func() {
		file.Close()
		_ = d.fs.Remove(tempPath)
	}()

	hasher := md5.New()
	reader := &progressReader{
		reader:     resp.Body,
		totalBytes: resp.ContentLength,
		progressFn: progressFn,
	}

	written, err := io.Copy(file, io.TeeReader(reader, hasher))
	if err != nil {
		return nil, false, fmt.Errorf("downloading file: %w", err)
	}
	if resp.ContentLength > 0 && written != resp.ContentLength {
		return nil, true, fmt.Errorf("short body: got %d of %d bytes: %w", written, resp.ContentLength, domain.ErrDownloadFailed)
	}

	if err := file.Close(); err != nil {
		return nil, false, fmt.Errorf("closing file: %w", err)
	}

	if err := d.fs.Rename(tempPath, destPath); err != nil {
		return nil, false, fmt.Errorf("renaming file: %w", err)
	}

	return &domain.DownloadResult{
		Path:     destPath,
		Size:     written,
		Checksum: hex.EncodeToString(hasher.Sum(nil)),
		FileName: dispositionFileName(resp.Header.Get("Content-Disposition")),
	}, false, nil
}

// dispositionFileName extracts a safe base file name from a Content-Disposition header
func dispositionFileName(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	name := path.Base(strings.ReplaceAll(params["filename"], "\\", "/"))
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return name
}

// progressReader wraps an io.Reader to track download progress
type progressReader struct {
	reader     io.Reader
	totalBytes int64
	downloaded int64
	progressFn domain.ProgressFunc
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if n > 0 {
		r.downloaded += int64(n)
		if r.progressFn != nil {
			progress := domain.DownloadProgress{
				TotalBytes: r.totalBytes,
				Downloaded: r.downloaded,
			}
			if r.totalBytes > 0 {
				progress.Percentage = float64(r.downloaded) / float64(r.totalBytes) * 100
			}
			r.progressFn(progress)
		}
	}
	return n, err
}
