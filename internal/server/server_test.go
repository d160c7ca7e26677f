package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-dailydash/internal/config"
)

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

type fixture struct {
	srv     *ArtifactServer
	handler http.Handler
	data    string
	ics     string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		data: filepath.Join(dir, "dashboard_data.json"),
		ics:  filepath.Join(dir, "countdowns.ics"),
	}
	f.srv = NewArtifactServer("127.0.0.1:0", f.data, f.ics)
	f.handler = f.srv.Handler()
	return f
}

// write stores content with an explicit mtime so revisions are distinguishable
// on filesystems with coarse timestamps.
func write(t *testing.T, path, content string, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), config.FilePermPublic))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func (f *fixture) do(t *testing.T, method, target string, headers map[string]string) (*http.Response, string) {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)

	resp := w.Result()
	t.Cleanup(func() { _ = resp.Body.Close() })
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

var rev1 = time.Date(2024, time.June, 15, 6, 0, 0, 0, time.UTC)

// -----------------------------------------------------------------------------
// Unit Tests (White-Box Testing of Handler Logic)
// -----------------------------------------------------------------------------

func TestHandler_ServingDocument(t *testing.T) {
	f := newFixture(t)
	write(t, f.data, `{"generated_date":"2024-06-15"}`, rev1)

	for _, route := range []string{config.RouteRoot, config.RouteDashboard} {
		t.Run(route, func(t *testing.T) {
			resp, body := f.do(t, http.MethodGet, route, nil)

			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, config.MimeJSONUTF8, resp.Header.Get(config.HeaderContentType))
			assert.Equal(t, config.MimeNoSniff, resp.Header.Get(config.HeaderXContentType))
			assert.Contains(t, resp.Header.Get(config.HeaderCacheControl), "no-cache")
			assert.NotEmpty(t, resp.Header.Get(config.HeaderETag))
			assert.Equal(t, rev1.Format(http.TimeFormat), resp.Header.Get(config.HeaderLastModified))
			assert.JSONEq(t, `{"generated_date":"2024-06-15"}`, body)
		})
	}
}

func TestHandler_ServingCalendar(t *testing.T) {
	f := newFixture(t)
	write(t, f.ics, config.StubVCalendar, rev1)

	resp, body := f.do(t, http.MethodGet, config.RouteCountdowns, nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, config.MimeTextCalendar, resp.Header.Get(config.HeaderContentType))
	assert.Equal(t, config.StubVCalendar, body)
}

func TestHandler_CalendarDisabled(t *testing.T) {
	srv := NewArtifactServer("127.0.0.1:0", filepath.Join(t.TempDir(), "d.json"), "")
	req := httptest.NewRequest(http.MethodGet, config.RouteCountdowns, nil)
	w := httptest.NewRecorder()

	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_UnknownPath(t *testing.T) {
	f := newFixture(t)
	write(t, f.data, `{}`, rev1)

	resp, _ := f.do(t, http.MethodGet, "/secrets.yaml", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandler_ReloadsChangedArtifact(t *testing.T) {
	f := newFixture(t)
	write(t, f.data, `{"v":1}`, rev1)

	resp1, body1 := f.do(t, http.MethodGet, config.RouteDashboard, nil)
	etag1 := resp1.Header.Get(config.HeaderETag)
	assert.JSONEq(t, `{"v":1}`, body1)

	// Unchanged file: same snapshot.
	resp2, _ := f.do(t, http.MethodGet, config.RouteDashboard, nil)
	assert.Equal(t, etag1, resp2.Header.Get(config.HeaderETag))

	write(t, f.data, `{"v":2}`, rev1.Add(24*time.Hour))

	resp3, body3 := f.do(t, http.MethodGet, config.RouteDashboard, nil)
	assert.JSONEq(t, `{"v":2}`, body3)
	assert.NotEqual(t, etag1, resp3.Header.Get(config.HeaderETag))
}

func TestHandler_KeepsLastSnapshotWhenFileDisappears(t *testing.T) {
	f := newFixture(t)
	write(t, f.data, `{"v":1}`, rev1)
	_, _ = f.do(t, http.MethodGet, config.RouteDashboard, nil)

	require.NoError(t, os.Remove(f.data))

	resp, body := f.do(t, http.MethodGet, config.RouteDashboard, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"v":1}`, body)
}

// TestHandler_Caching verifies ETag and Last-Modified revalidation.
func TestHandler_Caching(t *testing.T) {
	f := newFixture(t)
	write(t, f.data, `{"v":1}`, rev1)

	resp, _ := f.do(t, http.MethodGet, config.RouteDashboard, nil)
	etag := resp.Header.Get(config.HeaderETag)
	require.NotEmpty(t, etag, "Server must provide an ETag")

	tests := []struct {
		name    string
		headers map[string]string
		want    int
	}{
		{"Matching ETag", map[string]string{config.HeaderIfNoneMatch: etag}, http.StatusNotModified},
		{"Stale ETag", map[string]string{config.HeaderIfNoneMatch: `"stale"`}, http.StatusOK},
		{"Not modified since", map[string]string{config.HeaderIfModifiedSince: rev1.Format(http.TimeFormat)}, http.StatusNotModified},
		{"Modified since", map[string]string{config.HeaderIfModifiedSince: rev1.Add(-time.Hour).Format(http.TimeFormat)}, http.StatusOK},
		{"ETag wins over date", map[string]string{
			config.HeaderIfNoneMatch:     `"stale"`,
			config.HeaderIfModifiedSince: rev1.Format(http.TimeFormat),
		}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := f.do(t, http.MethodGet, config.RouteDashboard, tt.headers)
			assert.Equal(t, tt.want, resp.StatusCode)
			if tt.want == http.StatusNotModified {
				assert.Empty(t, body, "Body must be empty on 304 Not Modified")
			}
		})
	}
}

func TestHandler_Head(t *testing.T) {
	f := newFixture(t)
	write(t, f.data, `{"v":1}`, rev1)

	resp, body := f.do(t, http.MethodHead, config.RouteDashboard, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(config.HeaderETag))
	assert.Empty(t, body)
}

// TestHandler_MethodNotAllowed ensures strictly GET and HEAD are accepted.
func TestHandler_MethodNotAllowed(t *testing.T) {
	f := newFixture(t)

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
		resp, _ := f.do(t, method, config.RouteDashboard, nil)
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode, method)
		assert.Equal(t, config.AllowedMethods, resp.Header.Get(config.HeaderAllow))
	}
}

// TestHandler_Initializing verifies the 503 behavior before the first run.
func TestHandler_Initializing(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.do(t, http.MethodGet, config.RouteDashboard, nil)

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, config.RetryAfterSeconds, resp.Header.Get(config.HeaderRetryAfter))
}

// -----------------------------------------------------------------------------
// Concurrency Tests (Race Detection)
// -----------------------------------------------------------------------------

// TestServer_RaceCondition validates the thread-safety of atomic.Pointer usage.
// Run this with `go test -race`.
func TestServer_RaceCondition(t *testing.T) {
	f := newFixture(t)
	var wg sync.WaitGroup

	end := time.Now().Add(500 * time.Millisecond)

	for w := 0; w < 5; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			i := 0
			for time.Now().Before(end) {
				data := []byte(fmt.Sprintf(`{"v":"%d-%d"}`, id, i))
				f.srv.document.update(data, time.Now(), int64(len(data)))
				i++
				time.Sleep(1 * time.Microsecond)
			}
		}(w)
	}

	for r := 0; r < 20; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) {
				req := httptest.NewRequest(http.MethodGet, config.RouteDashboard, nil)
				w := httptest.NewRecorder()

				f.handler.ServeHTTP(w, req)

				code := w.Code
				if code != http.StatusOK && code != http.StatusServiceUnavailable {
					t.Errorf("Unexpected status code during race test: %d", code)
				}
			}
		}()
	}

	wg.Wait()
}

// -----------------------------------------------------------------------------
// Integration Tests (Real TCP Lifecycle)
// -----------------------------------------------------------------------------

func TestServer_AddrRequired(t *testing.T) {
	srv := NewArtifactServer("", "d.json", "")
	err := srv.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.ErrAddrRequired)
}

// TestServer_Lifecycle spins up the actual TCP listener to verify network binding
// and graceful shutdown logic.
func TestServer_Lifecycle(t *testing.T) {
	const addr = "127.0.0.1:18099"
	dir := t.TempDir()
	dataPath := filepath.Join(dir, "dashboard_data.json")

	srv := NewArtifactServer(addr, dataPath, "")
	ctx, cancel := context.WithCancel(context.Background())
	errChan := make(chan error, 1)

	go func() {
		errChan <- srv.Start(ctx)
	}()

	url := "http://" + addr + config.RouteDashboard

	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return true
	}, 2*time.Second, 50*time.Millisecond, "Server failed to bind/listen in time")

	// 1. Nothing generated yet (503)
	resp, err := http.Get(url)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	_ = resp.Body.Close()

	// 2. A generation run publishes the document
	write(t, dataPath, `{"headline":"ok"}`, rev1)

	// 3. Served content (200)
	resp, err = http.Get(url)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, config.MimeJSONUTF8, resp.Header.Get(config.HeaderContentType))

	body, err := io.ReadAll(resp.Body)
	assert.NoError(t, err)
	assert.Contains(t, string(body), "headline")

	// 4. Shutdown
	cancel()

	select {
	case err := <-errChan:
		assert.NoError(t, err, "Server should shutdown gracefully without error")
	case <-time.After(5 * time.Second):
		t.Fatal("Server shutdown timed out")
	}
}
