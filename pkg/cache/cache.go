// Package cache is the client-side disk cache for video chunks. Entries are
// keyed by (video, chunk index, quality) through the shared file naming
// convention; presence is determined by directory contents alone, there is
// no index file.
package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"reelstream/constant"
	"reelstream/pkg/naming"
)

// ErrDownloadFailed reports a fetch that ended without a cached file, either
// a transport failure or a non-success HTTP status.
var ErrDownloadFailed = errors.New("download failed")

const partSuffix = ".part"

// Cache owns its directory exclusively; nothing else writes the files.
type Cache struct {
	dir      string
	maxFiles int
	client   *http.Client
	logger   zerolog.Logger

	mu       sync.Mutex
	inflight map[string][]chan error
}

type Option func(*Cache)

// WithMaxFiles overrides the eviction cap.
func WithMaxFiles(n int) Option {
	return func(c *Cache) { c.maxFiles = n }
}

// WithHTTPClient overrides the download client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Cache) { c.client = client }
}

// WithLogger attaches a logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Cache) { c.logger = logger }
}

func New(dir string, opts ...Option) (*Cache, error) {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, err
	}
	c := &Cache{
		dir:      dir,
		maxFiles: constant.MaxCachedChunks,
		client:   &http.Client{Timeout: constant.FetchTimeout},
		logger:   zerolog.Nop(),
		inflight: make(map[string][]chan error),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// IsCached reports whether the chunk's backing file exists and is nonempty.
func (c *Cache) IsCached(videoID string, index int, quality string) bool {
	info, err := os.Stat(filepath.Join(c.dir, naming.ChunkFile(videoID, quality, index)))
	return err == nil && info.Size() > 0
}

// Path returns the local file path of a cached chunk.
func (c *Cache) Path(videoID string, index int, quality string) (string, bool) {
	path := filepath.Join(c.dir, naming.ChunkFile(videoID, quality, index))
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		return "", false
	}
	return path, true
}

// Fetch downloads a chunk to the cache. Concurrent calls for the same key
// share a single network request; every caller observes the same terminal
// result. Already-cached chunks return immediately.
func (c *Cache) Fetch(ctx context.Context, videoID string, index int, quality, sourceURL string) error {
	key := naming.ChunkFile(videoID, quality, index)

	// The cached check happens under the same lock that registers the
	// downloader, so a caller racing a just-finished download never starts
	// a second one.
	c.mu.Lock()
	if c.IsCached(videoID, index, quality) {
		c.mu.Unlock()
		return nil
	}
	if waiters, ok := c.inflight[key]; ok {
		done := make(chan error, 1)
		c.inflight[key] = append(waiters, done)
		c.mu.Unlock()
		select {
		case err := <-done:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	c.inflight[key] = nil
	c.mu.Unlock()

	err := c.download(ctx, key, sourceURL)

	// Clear the in-flight marker before notifying waiters, success or not.
	c.mu.Lock()
	waiters := c.inflight[key]
	delete(c.inflight, key)
	c.mu.Unlock()
	for _, done := range waiters {
		done <- err
	}

	if err != nil {
		c.logger.Error().Err(err).Str("chunk", key).Msg("chunk fetch failed")
		return err
	}
	c.logger.Debug().Str("chunk", key).Msg("chunk cached")
	c.Evict()
	return nil
}

// download streams the body to a temp file and publishes it by rename, so a
// partial file is never observable as cached.
func (c *Cache) download(ctx context.Context, key, sourceURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return errors.Join(ErrDownloadFailed, err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Join(ErrDownloadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d for %s", ErrDownloadFailed, resp.StatusCode, sourceURL)
	}

	target := filepath.Join(c.dir, key)
	part := target + partSuffix
	file, err := os.Create(part)
	if err != nil {
		return errors.Join(ErrDownloadFailed, err)
	}
	if _, err := io.Copy(file, resp.Body); err != nil {
		file.Close()
		os.Remove(part)
		return errors.Join(ErrDownloadFailed, err)
	}
	if err := file.Close(); err != nil {
		os.Remove(part)
		return errors.Join(ErrDownloadFailed, err)
	}
	return os.Rename(part, target)
}

// ChunkRef pairs a chunk index with its source URL for preloading.
type ChunkRef struct {
	Index int
	URL   string
}

// Preload fetches a window of chunks concurrently. A per-chunk failure does
// not abort the batch; the joined error is non-nil unless every chunk
// succeeded.
func (c *Cache) Preload(ctx context.Context, videoID, quality string, refs []ChunkRef) error {
	if len(refs) == 0 {
		return nil
	}

	errs := make([]error, len(refs))
	var wg sync.WaitGroup
	for i, ref := range refs {
		wg.Add(1)
		go func(i int, ref ChunkRef) {
			defer wg.Done()
			errs[i] = c.Fetch(ctx, videoID, ref.Index, quality, ref.URL)
		}(i, ref)
	}
	wg.Wait()
	return errors.Join(errs...)
}

// Evict deletes the globally oldest files until the cache is at or under its
// cap. Files currently being played are not pinned and can be evicted like
// any other.
func (c *Cache) Evict() {
	files := c.listFiles()
	if len(files) <= c.maxFiles {
		return
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].modTime.Before(files[j].modTime)
	})
	for _, file := range files[:len(files)-c.maxFiles] {
		if err := os.Remove(file.path); err != nil {
			c.logger.Error().Err(err).Str("file", file.path).Msg("failed to evict chunk")
			continue
		}
		c.logger.Debug().Str("file", file.path).Msg("evicted chunk")
	}
}

// Clear deletes every cached file unconditionally.
func (c *Cache) Clear() error {
	var errs []error
	for _, file := range c.listFiles() {
		if err := os.Remove(file.path); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len reports the number of cached files.
func (c *Cache) Len() int {
	return len(c.listFiles())
}

type fileInfo struct {
	path    string
	modTime time.Time
}

func (c *Cache) listFiles() []fileInfo {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil
	}
	files := make([]fileInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) == partSuffix {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, fileInfo{path: filepath.Join(c.dir, entry.Name()), modTime: info.ModTime()})
	}
	return files
}
