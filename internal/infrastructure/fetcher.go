package infrastructure

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/satangel2222/tg-mtproto-uploader/internal/domain"
)

// mediaTypeMarkers are the content-type fragments accepted for a download.
// CDNs omit or misreport content types, so an absent header is accepted;
// only a header matching none of these marks the body as not-media.
var mediaTypeMarkers = []string{"video", "image", "application/octet-stream", "binary"}

// mismatchSampleLimit caps how many body bytes are kept for diagnostics when
// a server answers with the wrong content type.
const mismatchSampleLimit = 512

// HTTPFetcher streams remote media to local scratch storage with bounded
// memory use, retrying transient failures with exponential backoff.
type HTTPFetcher struct {
	// probeClient covers HEAD checks and header-only fallbacks with an
	// overall timeout.
	probeClient *http.Client
	// streamClient has no overall timeout: transfers may run for minutes
	// and are paced by chunked reads instead.
	streamClient *http.Client
	cfg          *domain.DownloadConfig
	logger       *zap.Logger
}

// NewHTTPFetcher creates a fetcher around a long-lived shared connection
// pool. One fetcher serves all requests for the process lifetime.
func NewHTTPFetcher(cfg *domain.DownloadConfig, logger *zap.Logger) *HTTPFetcher {
	transport := &http.Transport{
		MaxConnsPerHost:       cfg.MaxConnections,
		MaxIdleConns:          cfg.MaxIdleConnections,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnections,
		ResponseHeaderTimeout: 30 * time.Second,
	}

	return &HTTPFetcher{
		probeClient: &http.Client{
			Timeout:   cfg.ProbeTimeout,
			Transport: transport,
		},
		streamClient: &http.Client{
			Transport: transport,
		},
		cfg:    cfg,
		logger: logger,
	}
}

// Probe issues a lightweight HEAD request for the URL's headers. Some
// servers reject HEAD outright, so a header-only GET is used as fallback.
// The probe is advisory: any failure degrades to an empty header set rather
// than an error, and its content-type must never block a download by itself.
func (f *HTTPFetcher) Probe(ctx context.Context, url string) http.Header {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return http.Header{}
	}
	f.setBrowserHeaders(req)

	resp, err := f.probeClient.Do(req)
	if err == nil {
		resp.Body.Close()
		if resp.StatusCode < 400 {
			return resp.Header
		}
	}

	// HEAD rejected or unsupported: read only the headers of a plain GET.
	req, err = http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return http.Header{}
	}
	f.setBrowserHeaders(req)

	resp, err = f.probeClient.Do(req)
	if err != nil {
		return http.Header{}
	}
	resp.Body.Close()
	return resp.Header
}

// Fetch streams the resource at url into a fresh temporary file named with
// suffix and returns the local path. The caller owns the returned file and
// must remove it after use; only failed attempts are cleaned up here.
func (f *HTTPFetcher) Fetch(ctx context.Context, url, suffix string) (string, error) {
	if err := domain.ValidateSourceURL(url); err != nil {
		return "", err
	}

	if ct := f.Probe(ctx, url).Get("Content-Type"); ct != "" && !looksLikeMedia(ct) {
		// Advisory only: some CDNs misreport types for valid files.
		f.logger.Warn("probe reported non-media content-type",
			zap.String("url", url),
			zap.String("content_type", ct))
	}

	var lastErr error
	for attempt := 1; attempt <= f.cfg.MaxAttempts; attempt++ {
		path, err := f.fetchOnce(ctx, url, suffix)
		if err == nil {
			return path, nil
		}
		lastErr = err

		f.logger.Warn("fetch attempt failed",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", f.cfg.MaxAttempts),
			zap.Error(err))

		if attempt == f.cfg.MaxAttempts {
			break
		}

		backoff := f.cfg.BackoffBase * (1 << (attempt - 1))
		if backoff > f.cfg.BackoffCap {
			backoff = f.cfg.BackoffCap
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
	}

	return "", &domain.DownloadFailedError{Attempts: f.cfg.MaxAttempts, Err: lastErr}
}

// fetchOnce performs one full attempt: fresh temp file, GET, content-type
// check, chunked copy to disk. The temp file never survives a failed
// attempt.
func (f *HTTPFetcher) fetchOnce(ctx context.Context, url, suffix string) (string, error) {
	tmp, err := os.CreateTemp(f.cfg.TempDir, "relay-*"+suffix)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	path := tmp.Name()

	cleanup := func() {
		tmp.Close()
		os.Remove(path)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		cleanup()
		return "", fmt.Errorf("create request: %w", err)
	}
	f.setBrowserHeaders(req)

	resp, err := f.streamClient.Do(req)
	if err != nil {
		cleanup()
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		cleanup()
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	// The GET response's own content-type is checked again: a 200 carrying
	// an HTML error page must fail here, not at upload time.
	if ct := resp.Header.Get("Content-Type"); ct != "" && !looksLikeMedia(ct) {
		sample, _ := io.ReadAll(io.LimitReader(resp.Body, mismatchSampleLimit))
		cleanup()
		return "", &domain.ContentMismatchError{ContentType: ct, Sample: sample}
	}

	// Fixed-size chunks straight to disk. Payloads can reach hundreds of
	// megabytes and must never be buffered whole.
	buf := make([]byte, f.cfg.ChunkSize)
	if _, err := io.CopyBuffer(tmp, resp.Body, buf); err != nil {
		cleanup()
		return "", fmt.Errorf("stream body: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("flush temp file: %w", err)
	}

	return path, nil
}

func (f *HTTPFetcher) setBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "*/*")
}

func looksLikeMedia(contentType string) bool {
	ct := strings.ToLower(contentType)
	for _, marker := range mediaTypeMarkers {
		if strings.Contains(ct, marker) {
			return true
		}
	}
	return false
}
