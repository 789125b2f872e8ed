package app

import (
	"encoding/json"
	"errors"
	"sync"

	"soundcast/internal/catalog"
	"soundcast/internal/core"
	"soundcast/internal/domain"
	"soundcast/internal/library"

	"github.com/rs/zerolog/log"
)

var (
	ErrSoundNotFound = errors.New("sound not found")
	ErrFileMissing   = errors.New("sound file not found")
)

// Coordinator is the event bus between trigger requests and live
// connections. Every publish is serialized through one lock, so all
// clients observe the same global event order regardless of which actor
// produced which event.
type Coordinator struct {
	Registry *core.Registry
	Catalog  *catalog.Service
	Library  *library.Library
	Policy   Policy

	pubMu sync.Mutex
	seq   uint64
}

func NewCoordinator(reg *core.Registry, cat *catalog.Service, lib *library.Library) *Coordinator {
	return &Coordinator{
		Registry: reg,
		Catalog:  cat,
		Library:  lib,
		Policy:   KickPolicy{},
	}
}

// Play resolves the sound and broadcasts a play event. Both lookups fail
// fast, before anything reaches the wire: a missing id or backing file
// never produces a partial broadcast.
func (c *Coordinator) Play(id int) (domain.Sound, error) {
	snd, ok := c.Catalog.Get(id)
	if !ok {
		return domain.Sound{}, ErrSoundNotFound
	}
	if !c.Library.Exists(snd.File) {
		return domain.Sound{}, ErrFileMissing
	}
	log.Info().Str("module", "app.coordinator").Int("id", id).Str("name", snd.Name).Msg("broadcasting play")
	ev := NewPlayEvent(snd)
	c.publish(&ev)
	return snd, nil
}

// Stop broadcasts a stop event to every connection. A later stop always
// wins over an earlier play, so no playback state is tracked here.
func (c *Coordinator) Stop() {
	log.Info().Str("module", "app.coordinator").Msg("broadcasting stop")
	ev := NewStopEvent()
	c.publish(&ev)
}

// CatalogChanged pushes the full catalog snapshot to every connection.
// It never interrupts playback.
func (c *Coordinator) CatalogChanged() {
	ev := NewSoundsUpdatedEvent(c.Catalog.List())
	c.publish(&ev)
}

// publish stamps the event with the next sequence number, marshals once
// and fans out, best-effort. The stamp and the broadcast happen under one
// lock, so sequence numbers and delivery order always agree. Connections
// that cannot accept the frame are handed to the policy; delivery
// failures are absorbed here and never surface to the triggering request.
func (c *Coordinator) publish(ev event) {
	c.pubMu.Lock()
	c.seq++
	ev.stamp(c.seq)
	frame, err := json.Marshal(ev)
	if err != nil {
		c.pubMu.Unlock()
		log.Error().Err(err).Str("module", "app.coordinator").Msg("marshal event")
		return
	}
	res := c.Registry.Broadcast(core.Frame(frame))
	c.pubMu.Unlock()

	if c.Policy == nil {
		return
	}
	for _, sid := range res.Dropped {
		switch c.Policy.OnBackpressure(sid) {
		case KickClient:
			c.Registry.Kick(sid)
		case NoAction:
		}
	}
}
