package playback

import "sync"

// Registry maps feed item positions to their playback sessions and enforces
// the global visibility rule: at most one session across the whole list may
// be active at a time, and the previous owner is always released before a
// new one is activated.
type Registry struct {
	mu       sync.Mutex
	sessions map[int]*Session
	active   int
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[int]*Session),
		active:   -1,
	}
}

// Attach registers the session bound to a position, releasing any stale one
// already there.
func (r *Registry) Attach(position int, session *Session) {
	r.mu.Lock()
	stale := r.sessions[position]
	r.sessions[position] = session
	r.mu.Unlock()

	if stale != nil && stale != session {
		stale.Release()
	}
}

// Show marks a position visible and transfers the playing right to it.
func (r *Registry) Show(position int) {
	r.mu.Lock()
	if r.active == position {
		r.mu.Unlock()
		return
	}
	previous := r.sessions[r.active]
	if previous != nil {
		delete(r.sessions, r.active)
	}
	r.active = position
	session := r.sessions[position]
	r.mu.Unlock()

	// Old owner releases its engine before the new one starts playing.
	if previous != nil {
		previous.Release()
	}
	if session != nil {
		session.Activate()
	}
}

// Hide releases the session at a position. Re-showing the position later
// requires a fresh session attached from Idle.
func (r *Registry) Hide(position int) {
	r.mu.Lock()
	session := r.sessions[position]
	delete(r.sessions, position)
	if r.active == position {
		r.active = -1
	}
	r.mu.Unlock()

	if session != nil {
		session.Release()
	}
}

// ReleaseAll tears down every session, for container teardown.
func (r *Registry) ReleaseAll() {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, session := range r.sessions {
		sessions = append(sessions, session)
	}
	r.sessions = make(map[int]*Session)
	r.active = -1
	r.mu.Unlock()

	for _, session := range sessions {
		session.Release()
	}
}
