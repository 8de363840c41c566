package playback

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"reelstream/constant"
	"reelstream/dto"
	"reelstream/pkg/cache"
	"reelstream/pkg/naming"
)

// State is the playback phase of one feed item.
type State string

const (
	StateIdle               State = "idle"
	StateAwaitingFirstChunk State = "awaiting_first_chunk"
	StateLocalPlayback      State = "local_playback"
	StatePreloadWindowOpen  State = "preload_window_open"
	StateSwitchingToStream  State = "switching_to_stream"
	StateStreamPlayback     State = "stream_playback"
	StateReleased           State = "released"
)

const lowQuality = "low"
const mediumQuality = "medium"

// Session is the per-item playback state machine. It exclusively owns its
// engine instance; the registry guarantees at most one session is active
// (allowed to play) at a time.
type Session struct {
	video  dto.VideoResponse
	engine Engine
	chunks *cache.Cache

	preloadDelay time.Duration
	httpClient   *http.Client
	logger       zerolog.Logger
	fallbackURL  string

	mu            sync.Mutex
	state         State
	active        bool
	released      bool
	fallbackUsed  bool
	lastErr       error
	playbackStart time.Time
	preloadTimer  *time.Timer
}

type SessionOption func(*Session)

// WithPreloadDelay overrides how long the item must play before the preload
// window opens.
func WithPreloadDelay(d time.Duration) SessionOption {
	return func(s *Session) { s.preloadDelay = d }
}

// WithHTTPClient overrides the client used for the advisory init segment
// check.
func WithHTTPClient(client *http.Client) SessionOption {
	return func(s *Session) { s.httpClient = client }
}

// WithSessionLogger attaches a logger.
func WithSessionLogger(logger zerolog.Logger) SessionOption {
	return func(s *Session) { s.logger = logger }
}

// WithDirectFallback overrides the raw URL used when the engine errors out
// of both local and adaptive playback.
func WithDirectFallback(url string) SessionOption {
	return func(s *Session) { s.fallbackURL = url }
}

func NewSession(video dto.VideoResponse, engine Engine, chunks *cache.Cache, opts ...SessionOption) *Session {
	s := &Session{
		video:        video,
		engine:       engine,
		chunks:       chunks,
		preloadDelay: constant.PreloadDelay,
		httpClient:   &http.Client{Timeout: constant.FetchTimeout},
		logger:       zerolog.Nop(),
		state:        StateIdle,
	}
	if video.FirstChunk != nil {
		s.fallbackURL = video.FirstChunk.Urls.Medium
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.eventLoop()
	return s
}

// State reports the current phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err reports the terminal error of a session that exhausted its fallbacks.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Bind starts the session: if the first low-quality chunk is already cached
// the engine is prepared from the local file without autoplay; otherwise the
// chunk is fetched asynchronously, falling back to adaptive streaming if the
// fetch fails.
func (s *Session) Bind(ctx context.Context) {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return
	}
	s.state = StateAwaitingFirstChunk
	s.mu.Unlock()

	if s.chunks.IsCached(s.video.Id, 0, lowQuality) {
		s.setupLocalPlayback()
		return
	}

	go func() {
		if s.video.FirstChunk == nil || s.video.FirstChunk.Urls.Low == "" {
			s.switchToStream()
			return
		}
		err := s.chunks.Fetch(ctx, s.video.Id, 0, lowQuality, s.video.FirstChunk.Urls.Low)
		if err != nil {
			s.logger.Error().Err(err).Str("video_id", s.video.Id).Msg("first chunk fetch failed, falling back to streaming")
			s.switchToStream()
			return
		}
		s.setupLocalPlayback()
	}()
}

// Activate grants the session the right to play. Only the registry calls
// this, after releasing the previously active session.
func (s *Session) Activate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return
	}
	s.active = true
	if s.state == StateLocalPlayback || s.state == StateStreamPlayback {
		s.engine.Play()
	}
}

// Release tears the session down: cancels the pending preload timer,
// releases the engine and clears session fields. Terminal; rebinding a
// visible item starts a fresh session.
func (s *Session) Release() {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return
	}
	s.released = true
	s.active = false
	s.state = StateReleased
	if s.preloadTimer != nil {
		s.preloadTimer.Stop()
		s.preloadTimer = nil
	}
	s.mu.Unlock()

	s.engine.Release()
}

func (s *Session) setupLocalPlayback() {
	path, ok := s.chunks.Path(s.video.Id, 0, lowQuality)
	if !ok {
		s.switchToStream()
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return
	}
	s.engine.SetFileSource(path)
	s.state = StateLocalPlayback
	if s.active {
		s.engine.Play()
	}
}

func (s *Session) eventLoop() {
	for event := range s.engine.Events() {
		switch event.Type {
		case EventReady:
			s.onReady()
		case EventEnded:
			s.onEnded()
		case EventError:
			s.onEngineError(event.Err)
		case EventBuffering:
			s.logger.Debug().Str("video_id", s.video.Id).Msg("buffering")
		}
	}
}

// onReady records the wall-clock playback start the first time the engine
// reports ready while actually playing, and schedules the preload window.
func (s *Session) onReady() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released || !s.playbackStart.IsZero() || !s.engine.Playing() {
		return
	}
	s.playbackStart = time.Now()
	s.preloadTimer = time.AfterFunc(s.preloadDelay, s.onPreloadTimer)
}

// onPreloadTimer opens the preload window once the item has really played
// for the full delay. A pause/resume cycle makes the elapsed play time fall
// short, in which case the timer is rescheduled from the original timestamp
// instead of firing early.
func (s *Session) onPreloadTimer() {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return
	}
	elapsed := time.Since(s.playbackStart)
	if elapsed < s.preloadDelay {
		s.preloadTimer = time.AfterFunc(s.preloadDelay-elapsed, s.onPreloadTimer)
		s.mu.Unlock()
		return
	}
	s.state = StatePreloadWindowOpen
	s.preloadTimer = nil
	s.mu.Unlock()

	go s.preloadWindow()
	s.switchToStream()
}

// preloadWindow fetches the next few chunks concurrently. Fire and forget: a
// failure here only costs future cache hits.
func (s *Session) preloadWindow() {
	refs := make([]cache.ChunkRef, 0, constant.PreloadWindow)
	for _, chunk := range s.video.Chunks {
		if chunk.Index < 1 || chunk.Index > constant.PreloadWindow {
			continue
		}
		refs = append(refs, cache.ChunkRef{Index: chunk.Index, URL: chunk.Urls.Medium})
	}
	if err := s.chunks.Preload(context.Background(), s.video.Id, mediumQuality, refs); err != nil {
		s.logger.Warn().Err(err).Str("video_id", s.video.Id).Msg("preload window incomplete")
	}
}

// switchToStream hands the live engine over from the cached file to the full
// manifest, preserving position and playing state. The init segment
// existence check beforehand is advisory only; its result never gates the
// switch.
func (s *Session) switchToStream() {
	s.checkInitSegment()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return
	}
	s.state = StateSwitchingToStream

	position := s.engine.Position()
	wasPlaying := s.engine.Playing()
	s.engine.SetManifestSource(s.video.DashManifest)
	s.engine.SeekTo(position)
	if wasPlaying || (s.active && s.playbackStart.IsZero()) {
		s.engine.Play()
	}
	s.state = StateStreamPlayback
	s.logger.Debug().
		Str("video_id", s.video.Id).
		Dur("position", position).
		Bool("was_playing", wasPlaying).
		Msg("switched to adaptive streaming")
}

// checkInitSegment issues a best-effort HEAD for the low-quality init
// segment and logs the outcome. Diagnostics only.
func (s *Session) checkInitSegment() {
	manifestURL := s.video.DashManifest
	idx := strings.LastIndex(manifestURL, "/")
	if idx < 0 {
		return
	}
	url := manifestURL[:idx+1] + naming.InitSegmentFile(lowQuality)

	req, err := http.NewRequest(http.MethodHead, url, nil)
	if err != nil {
		return
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Warn().Err(err).Str("url", url).Msg("init segment check failed")
		return
	}
	resp.Body.Close()
	s.logger.Debug().Str("url", url).Bool("exists", resp.StatusCode == http.StatusOK).Msg("init segment check")
}

// onEngineError falls back once to direct playback of a raw medium-quality
// URL; a second failure is surfaced and the session stops trying.
func (s *Session) onEngineError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return
	}
	if s.state != StateLocalPlayback && s.state != StateStreamPlayback {
		s.lastErr = err
		return
	}
	if !s.fallbackUsed && s.fallbackURL != "" {
		s.fallbackUsed = true
		s.logger.Warn().Err(err).Str("video_id", s.video.Id).Msg("engine error, falling back to direct playback")
		s.engine.SetDirectSource(s.fallbackURL)
		if s.active {
			s.engine.Play()
		}
		return
	}
	s.lastErr = errors.Join(ErrMediaEngine, err)
	s.logger.Error().Err(err).Str("video_id", s.video.Id).Msg("playback failed")
}

// onEnded loops the video.
func (s *Session) onEnded() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return
	}
	s.engine.SeekTo(0)
	s.engine.Play()
}
