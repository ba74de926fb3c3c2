package infrastructure

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satangel2222/tg-mtproto-uploader/internal/domain"
	"github.com/satangel2222/tg-mtproto-uploader/pkg/logger"
)

func testFetchConfig(t *testing.T) *domain.DownloadConfig {
	t.Helper()
	return &domain.DownloadConfig{
		TempDir:            t.TempDir(),
		MaxAttempts:        5,
		BackoffBase:        1 * time.Millisecond,
		BackoffCap:         5 * time.Millisecond,
		ChunkSize:          32 * 1024,
		ProbeTimeout:       2 * time.Second,
		UserAgent:          "test-agent",
		MaxConnections:     10,
		MaxIdleConnections: 5,
	}
}

func newTestFetcher(t *testing.T) (*HTTPFetcher, *domain.DownloadConfig) {
	t.Helper()
	cfg := testFetchConfig(t)
	return NewHTTPFetcher(cfg, logger.NewDefault()), cfg
}

// serveHead answers HEAD probes with a media content type so probe traffic
// never falls back to GET and pollutes attempt counting.
func serveHead(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodHead {
		w.Header().Set("Content-Type", "video/mp4")
		w.WriteHeader(http.StatusOK)
		return true
	}
	return false
}

func scratchFiles(t *testing.T, dir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "relay-*"))
	require.NoError(t, err)
	return matches
}

func TestFetch_RoundTrip(t *testing.T) {
	content := bytes.Repeat([]byte("stream me 0123456789"), 4096)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if serveHead(w, r) {
			return
		}
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "video/mp4")
		w.Write(content)
	}))
	defer server.Close()

	fetcher, cfg := newTestFetcher(t)
	path, err := fetcher.Fetch(context.Background(), server.URL, ".mp4")
	require.NoError(t, err)
	defer os.Remove(path)

	assert.True(t, strings.HasSuffix(path, ".mp4"))
	assert.Equal(t, cfg.TempDir, filepath.Dir(path))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestFetch_InvalidSchemeFailsFast(t *testing.T) {
	fetcher, cfg := newTestFetcher(t)

	_, err := fetcher.Fetch(context.Background(), "ftp://example.com/a.mp4", ".mp4")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidURL))

	// No retry, no terminal wrapper, no scratch files.
	var terminal *domain.DownloadFailedError
	assert.False(t, errors.As(err, &terminal))
	assert.Empty(t, scratchFiles(t, cfg.TempDir))
}

func TestFetch_RetriesThenSucceeds(t *testing.T) {
	content := []byte("eventually consistent bytes")
	gets := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if serveHead(w, r) {
			return
		}
		gets++
		if gets <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write(content)
	}))
	defer server.Close()

	fetcher, cfg := newTestFetcher(t)
	path, err := fetcher.Fetch(context.Background(), server.URL, ".mp4")
	require.NoError(t, err)

	assert.Equal(t, 3, gets)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, got)

	// Earlier attempts must not leave partial files behind.
	assert.Equal(t, []string{path}, scratchFiles(t, cfg.TempDir))
}

func TestFetch_ExhaustsRetries(t *testing.T) {
	gets := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if serveHead(w, r) {
			return
		}
		gets++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	fetcher, cfg := newTestFetcher(t)
	_, err := fetcher.Fetch(context.Background(), server.URL, ".mp4")
	require.Error(t, err)

	assert.Equal(t, 5, gets)

	var terminal *domain.DownloadFailedError
	require.True(t, errors.As(err, &terminal))
	assert.Equal(t, 5, terminal.Attempts)
	assert.Contains(t, terminal.Error(), "503")

	assert.Empty(t, scratchFiles(t, cfg.TempDir))
}

func TestFetch_BackoffGrowsExponentially(t *testing.T) {
	var mu sync.Mutex
	var hits []time.Time
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if serveHead(w, r) {
			return
		}
		mu.Lock()
		hits = append(hits, time.Now())
		mu.Unlock()
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	cfg := testFetchConfig(t)
	cfg.MaxAttempts = 4
	cfg.BackoffBase = 20 * time.Millisecond
	cfg.BackoffCap = time.Second
	fetcher := NewHTTPFetcher(cfg, logger.NewDefault())

	start := time.Now()
	_, err := fetcher.Fetch(context.Background(), server.URL, ".mp4")
	elapsed := time.Since(start)
	require.Error(t, err)
	require.Len(t, hits, 4)

	// time.After never fires early, so each inter-attempt gap is bounded
	// below by its scheduled delay: base, 2x base, 4x base.
	for i, want := range []time.Duration{
		cfg.BackoffBase,
		2 * cfg.BackoffBase,
		4 * cfg.BackoffBase,
	} {
		gap := hits[i+1].Sub(hits[i])
		assert.GreaterOrEqual(t, gap, want, "gap after attempt %d", i+1)
	}
	assert.GreaterOrEqual(t, elapsed, 7*cfg.BackoffBase)
}

func TestFetch_ContentMismatch(t *testing.T) {
	body := "<html><body>not the file you wanted</body></html>"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if serveHead(w, r) {
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(body))
	}))
	defer server.Close()

	fetcher, cfg := newTestFetcher(t)
	_, err := fetcher.Fetch(context.Background(), server.URL, ".mp4")
	require.Error(t, err)

	// Mismatches are retryable; here they persist and exhaust the budget.
	var terminal *domain.DownloadFailedError
	require.True(t, errors.As(err, &terminal))

	var mismatch *domain.ContentMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, "text/html; charset=utf-8", mismatch.ContentType)
	assert.Contains(t, string(mismatch.Sample), "<html>")

	assert.Empty(t, scratchFiles(t, cfg.TempDir))
}

func TestFetch_MismatchSampleIsCapped(t *testing.T) {
	body := strings.Repeat("x", 2048)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if serveHead(w, r) {
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte(body))
	}))
	defer server.Close()

	fetcher, _ := newTestFetcher(t)
	_, err := fetcher.Fetch(context.Background(), server.URL, ".jpg")
	require.Error(t, err)

	var mismatch *domain.ContentMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Len(t, mismatch.Sample, 512)
}

func TestFetch_MissingContentTypeIsAccepted(t *testing.T) {
	content := []byte("no headers, still media")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusOK)
			return
		}
		// Headers are written explicitly so the Go server does not sniff a
		// content type for us.
		w.Header()["Content-Type"] = nil
		w.Write(content)
	}))
	defer server.Close()

	fetcher, _ := newTestFetcher(t)
	path, err := fetcher.Fetch(context.Background(), server.URL, ".mp4")
	require.NoError(t, err)
	defer os.Remove(path)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestFetch_CancelledBetweenAttempts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if serveHead(w, r) {
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	cfg := testFetchConfig(t)
	cfg.BackoffBase = 500 * time.Millisecond
	cfg.BackoffCap = time.Second
	fetcher := NewHTTPFetcher(cfg, logger.NewDefault())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := fetcher.Fetch(ctx, server.URL, ".mp4")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Empty(t, scratchFiles(t, cfg.TempDir))
}

func TestFetch_IndependentCalls(t *testing.T) {
	content := []byte("shared origin, separate scratch files")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if serveHead(w, r) {
			return
		}
		w.Header().Set("Content-Type", "video/mp4")
		w.Write(content)
	}))
	defer server.Close()

	fetcher, _ := newTestFetcher(t)

	first, err := fetcher.Fetch(context.Background(), server.URL, ".mp4")
	require.NoError(t, err)
	second, err := fetcher.Fetch(context.Background(), server.URL, ".mp4")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)

	// Releasing one fetch's file must not affect the other's.
	require.NoError(t, os.Remove(first))
	got, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, content, got)
	os.Remove(second)
}

func TestProbe_Head(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		w.Header().Set("Content-Type", "video/mp4")
		w.Header().Set("Content-Length", "1024")
	}))
	defer server.Close()

	fetcher, _ := newTestFetcher(t)
	headers := fetcher.Probe(context.Background(), server.URL)
	assert.Equal(t, "video/mp4", headers.Get("Content-Type"))
}

func TestProbe_HeadRejectedFallsBackToGet(t *testing.T) {
	sawGet := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		sawGet = true
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("jpeg bytes"))
	}))
	defer server.Close()

	fetcher, _ := newTestFetcher(t)
	headers := fetcher.Probe(context.Background(), server.URL)
	assert.True(t, sawGet)
	assert.Equal(t, "image/jpeg", headers.Get("Content-Type"))
}

func TestProbe_NetworkFailureDegradesToEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	fetcher, _ := newTestFetcher(t)
	headers := fetcher.Probe(context.Background(), url)
	assert.Empty(t, headers)
}

func TestLooksLikeMedia(t *testing.T) {
	accepted := []string{
		"video/mp4",
		"image/jpeg",
		"application/octet-stream",
		"binary/data",
		"Video/MP4; codecs=avc1",
	}
	for _, ct := range accepted {
		assert.True(t, looksLikeMedia(ct), ct)
	}

	rejected := []string{
		"text/html",
		"application/json",
		"text/plain; charset=utf-8",
	}
	for _, ct := range rejected {
		assert.False(t, looksLikeMedia(ct), ct)
	}
}
