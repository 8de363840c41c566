package cache

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reelstream/pkg/naming"
)

func newTestCache(t *testing.T, opts ...Option) *Cache {
	t.Helper()
	c, err := New(t.TempDir(), opts...)
	require.NoError(t, err)
	return c
}

func TestFetchCachesChunk(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("chunk-bytes"))
	}))
	defer server.Close()

	c := newTestCache(t)
	require.False(t, c.IsCached("123", 0, "low"))

	err := c.Fetch(context.Background(), "123", 0, "low", server.URL)
	require.NoError(t, err)

	assert.True(t, c.IsCached("123", 0, "low"))
	path, ok := c.Path("123", 0, "low")
	require.True(t, ok)
	assert.Equal(t, naming.ChunkFile("123", "low", 0), filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "chunk-bytes", string(data))
}

func TestFetchDeduplicatesConcurrentRequests(t *testing.T) {
	var requests atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) == 1 {
			close(started)
		}
		<-release
		w.Write([]byte("chunk-bytes"))
	}))
	defer server.Close()

	c := newTestCache(t)

	var wg sync.WaitGroup
	errs := make([]error, 6)
	wg.Add(1)
	go func() {
		defer wg.Done()
		errs[0] = c.Fetch(context.Background(), "123", 0, "low", server.URL)
	}()
	<-started

	// These join the in-flight download instead of hitting the server.
	for i := 1; i < 6; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = c.Fetch(context.Background(), "123", 0, "low", server.URL)
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "fetch %d", i)
	}
	assert.Equal(t, int32(1), requests.Load())
	assert.Equal(t, 1, c.Len())

	// A fetch arriving right after the download finished finds the file
	// instead of downloading again.
	require.NoError(t, c.Fetch(context.Background(), "123", 0, "low", server.URL))
	assert.Equal(t, int32(1), requests.Load())
}

func TestFetchFailureLeavesNothingCached(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	c := newTestCache(t)
	err := c.Fetch(context.Background(), "123", 0, "low", server.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDownloadFailed)
	assert.False(t, c.IsCached("123", 0, "low"))
	assert.Equal(t, 0, c.Len())
}

func TestFetchAlreadyCachedSkipsNetwork(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Write([]byte("chunk-bytes"))
	}))
	defer server.Close()

	c := newTestCache(t)
	require.NoError(t, c.Fetch(context.Background(), "123", 0, "low", server.URL))
	require.NoError(t, c.Fetch(context.Background(), "123", 0, "low", server.URL))
	assert.Equal(t, int32(1), requests.Load())
}

func TestPreloadWindow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("chunk-bytes"))
	}))
	defer server.Close()

	c := newTestCache(t)
	refs := []ChunkRef{
		{Index: 1, URL: server.URL + "/1"},
		{Index: 2, URL: server.URL + "/2"},
		{Index: 3, URL: server.URL + "/3"},
	}
	require.NoError(t, c.Preload(context.Background(), "123", "medium", refs))
	for _, ref := range refs {
		assert.True(t, c.IsCached("123", ref.Index, "medium"))
	}
}

func TestPreloadReportsPartialFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/2" {
			http.Error(w, "nope", http.StatusInternalServerError)
			return
		}
		w.Write([]byte("chunk-bytes"))
	}))
	defer server.Close()

	c := newTestCache(t)
	refs := []ChunkRef{
		{Index: 1, URL: server.URL + "/1"},
		{Index: 2, URL: server.URL + "/2"},
	}
	err := c.Preload(context.Background(), "123", "medium", refs)
	assert.ErrorIs(t, err, ErrDownloadFailed)
	assert.True(t, c.IsCached("123", 1, "medium"))
	assert.False(t, c.IsCached("123", 2, "medium"))
}

func TestEvictRemovesOldestBeyondCap(t *testing.T) {
	c := newTestCache(t, WithMaxFiles(3))

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		name := naming.ChunkFile("123", "low", i)
		path := filepath.Join(c.dir, name)
		require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf("chunk %d", i)), 0o644))
		stamp := base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, os.Chtimes(path, stamp, stamp))
	}

	c.Evict()

	assert.Equal(t, 3, c.Len())
	assert.False(t, c.IsCached("123", 0, "low"))
	assert.False(t, c.IsCached("123", 1, "low"))
	for i := 2; i < 5; i++ {
		assert.True(t, c.IsCached("123", i, "low"), "chunk %d", i)
	}
}

func TestClear(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("chunk-bytes"))
	}))
	defer server.Close()

	c := newTestCache(t)
	require.NoError(t, c.Fetch(context.Background(), "123", 0, "low", server.URL))
	require.NoError(t, c.Fetch(context.Background(), "123", 1, "low", server.URL))
	require.Equal(t, 2, c.Len())

	require.NoError(t, c.Clear())
	assert.Equal(t, 0, c.Len())
}
