package server

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/tartampluch/go-dailydash/internal/config"
)

// cacheItem stores an artifact snapshot and its metadata for HTTP caching.
type cacheItem struct {
	data         []byte
	etag         string
	lastModified string // RFC1123 format required by HTTP headers

	// modTime and size identify the file revision the snapshot came from.
	modTime time.Time
	size    int64
}

// artifact is one published file served from a fixed route.
type artifact struct {
	path        string
	contentType string

	// cache uses atomic.Pointer for lock-free reads. Artifacts are read on
	// every request but only change once per generation run.
	cache atomic.Pointer[cacheItem]
}

// ArtifactServer serves the published dashboard document and the countdown
// calendar. Files are re-read when their size or modification time changes,
// so a generation run in another process is picked up without a restart.
type ArtifactServer struct {
	Addr string

	document *artifact
	calendar *artifact
}

// NewArtifactServer creates a server for the given artifact paths. An empty
// icsPath disables the calendar route.
func NewArtifactServer(addr, dataPath, icsPath string) *ArtifactServer {
	s := &ArtifactServer{
		Addr:     addr,
		document: &artifact{path: dataPath, contentType: config.MimeJSONUTF8},
	}
	if icsPath != "" {
		s.calendar = &artifact{path: icsPath, contentType: config.MimeTextCalendar}
	}
	return s
}

// Handler returns the routing table.
func (s *ArtifactServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(config.RouteRoot, s.handleRoot)
	mux.HandleFunc(config.RouteDashboard, s.serve(s.document))
	if s.calendar != nil {
		mux.HandleFunc(config.RouteCountdowns, s.serve(s.calendar))
	}
	return mux
}

// Start initializes the HTTP server and blocks until the context is cancelled.
func (s *ArtifactServer) Start(ctx context.Context) error {
	if s.Addr == "" {
		return errors.New(config.ErrAddrRequired)
	}

	srv := &http.Server{
		Addr:         s.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	serverError := make(chan error, config.ChannelBufferSize)

	go func() {
		slog.Info(config.MsgServerListen,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyAddr, s.Addr,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverError <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info(config.MsgServerStop, config.LogKeyComponent, config.CompServer)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s: %w", config.ErrServerShutdown, err)
		}
		return nil

	case err := <-serverError:
		return fmt.Errorf("%s: %w", config.ErrServerStartup, err)
	}
}

// handleRoot serves the document on "/" and rejects every other unknown path.
func (s *ArtifactServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != config.RouteRoot {
		http.Error(w, config.HTTPMsgNotFound, http.StatusNotFound)
		return
	}
	s.serve(s.document)(w, r)
}

// refresh reloads the artifact when the file on disk changed since the last
// snapshot. It returns the snapshot to serve, or nil when none exists yet.
func (a *artifact) refresh() (*cacheItem, error) {
	current := a.cache.Load()

	info, err := os.Stat(a.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return current, nil
		}
		return current, err
	}
	if current != nil && current.size == info.Size() && current.modTime.Equal(info.ModTime()) {
		return current, nil
	}

	data, err := os.ReadFile(a.path)
	if err != nil {
		return current, fmt.Errorf("%s: %w", config.ErrArtifactRead, err)
	}
	return a.update(data, info.ModTime(), info.Size()), nil
}

// update atomically replaces the served snapshot.
func (a *artifact) update(data []byte, modTime time.Time, size int64) *cacheItem {
	hash := sha256.Sum256(data)
	etag := fmt.Sprintf(config.FormatETag, hex.EncodeToString(hash[:]))

	item := &cacheItem{
		data:         data,
		etag:         etag,
		lastModified: modTime.UTC().Format(http.TimeFormat),
		modTime:      modTime,
		size:         size,
	}

	// Any concurrent reader sees either the old or the new complete item.
	a.cache.Store(item)

	slog.Debug(config.MsgCacheUpdated,
		config.LogKeyComponent, config.CompServer,
		config.LogKeyPath, a.path,
		config.LogKeySizeBytes, len(data),
		config.LogKeyETag, etag,
	)
	return item
}

// serve returns a handler for one artifact with HTTP caching support.
func (s *ArtifactServer) serve(a *artifact) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// 1. Method Validation
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set(config.HeaderAllow, config.AllowedMethods)
			http.Error(w, config.HTTPMsgMethodNotAll, http.StatusMethodNotAllowed)
			return
		}

		// 2. Load Data
		item, err := a.refresh()
		if err != nil {
			slog.Warn(config.ErrArtifactRead,
				config.LogKeyComponent, config.CompServer,
				config.LogKeyPath, a.path,
				config.LogKeyError, err,
			)
		}

		// 3. Readiness Check
		if item == nil {
			w.Header().Set(config.HeaderRetryAfter, config.RetryAfterSeconds)
			http.Error(w, config.HTTPMsgInitializing, http.StatusServiceUnavailable)
			return
		}

		// 4. Set Response Headers
		w.Header().Set(config.HeaderContentType, a.contentType)
		w.Header().Set(config.HeaderXContentType, config.MimeNoSniff)
		w.Header().Set(config.HeaderCacheControl, config.CacheControlPrivate)
		w.Header().Set(config.HeaderETag, item.etag)
		w.Header().Set(config.HeaderLastModified, item.lastModified)

		// 5. Check Conditional Headers
		if match := r.Header.Get(config.HeaderIfNoneMatch); match != "" {
			if match == item.etag {
				w.WriteHeader(http.StatusNotModified)
				return
			}
		} else if since := r.Header.Get(config.HeaderIfModifiedSince); since != "" {
			if clientTime, err := time.Parse(http.TimeFormat, since); err == nil {
				if !item.modTime.Truncate(time.Second).After(clientTime) {
					w.WriteHeader(http.StatusNotModified)
					return
				}
			}
		}

		// 6. Serve Content
		if r.Method == http.MethodGet {
			if _, err := io.Copy(w, bytes.NewReader(item.data)); err != nil {
				slog.Error(config.ErrWriteResp,
					config.LogKeyComponent, config.CompServer,
					config.LogKeyError, err,
				)
			}
		}
	}
}
