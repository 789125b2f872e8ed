package core

import (
	"context"
	"sync"

	"soundcast/internal/domain"

	"github.com/rs/zerolog/log"
)

type entry struct {
	sess   ClientSession
	cancel context.CancelFunc
}

// Registry is the threadsafe set of live connections.
// It never closes adapter-owned resources directly; eviction goes through
// the cancel func bound at registration so the adapter unwinds its own pumps.
type Registry struct {
	mu      sync.RWMutex
	members map[SessionID]*entry
}

func NewRegistry() *Registry {
	return &Registry{members: make(map[SessionID]*entry)}
}

func (r *Registry) Add(sid SessionID, sess ClientSession, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	// A reconnect under the same session id replaces the old entry; the old
	// connection's pumps are unwound through its cancel func.
	if old, ok := r.members[sid]; ok && old.cancel != nil {
		old.cancel()
	}
	r.members[sid] = &entry{sess: sess, cancel: cancel}
	log.Info().Str("module", "core.registry").
		Str("sid", string(sid)).
		Str("role", string(sess.Meta().Role)).
		Msg("connection registered")
}

// Remove deregisters a connection, but only if sess is still the one
// registered under sid. A reconnect replaces the entry before the old
// connection finishes tearing down; the old teardown must not take the
// replacement's registration with it. No-op for unknown session ids.
func (r *Registry) Remove(sid SessionID, sess ClientSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.members[sid]
	if !ok || e.sess != sess {
		return
	}
	delete(r.members, sid)
	log.Info().Str("module", "core.registry").Str("sid", string(sid)).Msg("connection removed")
}

// Kick cancels the connection's context and drops it from the set.
func (r *Registry) Kick(sid SessionID) {
	r.mu.Lock()
	e, ok := r.members[sid]
	if ok {
		delete(r.members, sid)
	}
	r.mu.Unlock()
	if !ok {
		return
	}
	if e.cancel != nil {
		e.cancel()
	}
	log.Warn().Str("module", "core.registry").Str("sid", string(sid)).Msg("connection kicked")
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

// Snapshot returns the metadata of all live connections.
func (r *Registry) Snapshot() []*domain.Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Client, 0, len(r.members))
	for _, e := range r.members {
		out = append(out, e.sess.Meta())
	}
	return out
}

// Broadcast delivers one frame to every live connection, best-effort.
// A member that cannot accept the frame is reported as dropped, never
// stalling delivery to the others. Members disconnecting mid-iteration
// are simply skipped by their own TrySend failing.
func (r *Registry) Broadcast(f Frame) PublishResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := PublishResult{}
	for sid, e := range r.members {
		if err := e.sess.Conn().TrySend(f); err != nil {
			res.Dropped = append(res.Dropped, sid)
			continue
		}
		res.SentTo++
	}
	log.Debug().Str("module", "core.registry").
		Int("sent_to", res.SentTo).
		Int("dropped", len(res.Dropped)).
		Msg("broadcast result")
	return res
}
