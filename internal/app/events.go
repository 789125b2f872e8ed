package app

import (
	"strconv"

	"soundcast/internal/domain"
)

// Wire-level event types pushed over the realtime channel.
const (
	TypePlay          = "play"
	TypeStop          = "stop"
	TypeSoundsUpdated = "soundsUpdated"
)

// Every event carries a sequence number stamped at publish time, so
// clients can detect reordering or loss without tracking server state.
type event interface {
	stamp(seq uint64)
}

// PlayEvent instructs the host sink to start a sound. It is always a
// complete description, never a delta, so a client joining mid-stream can
// act on it without prior state.
type PlayEvent struct {
	Type      string `json:"type"`
	Seq       uint64 `json:"seq"`
	SoundID   int    `json:"soundId"`
	SoundName string `json:"soundName"`
	AudioURL  string `json:"audioUrl"`
}

type StopEvent struct {
	Type string `json:"type"`
	Seq  uint64 `json:"seq"`
}

// SoundsUpdatedEvent carries the full ordered catalog snapshot; clients
// replace their view rather than patching it.
type SoundsUpdatedEvent struct {
	Type   string         `json:"type"`
	Seq    uint64         `json:"seq"`
	Sounds []domain.Sound `json:"sounds"`
}

func (e *PlayEvent) stamp(seq uint64)          { e.Seq = seq }
func (e *StopEvent) stamp(seq uint64)          { e.Seq = seq }
func (e *SoundsUpdatedEvent) stamp(seq uint64) { e.Seq = seq }

func NewPlayEvent(snd domain.Sound) PlayEvent {
	return PlayEvent{
		Type:      TypePlay,
		SoundID:   snd.ID,
		SoundName: snd.Name,
		AudioURL:  "/api/audio/" + strconv.Itoa(snd.ID),
	}
}

func NewStopEvent() StopEvent {
	return StopEvent{Type: TypeStop}
}

func NewSoundsUpdatedEvent(sounds []domain.Sound) SoundsUpdatedEvent {
	return SoundsUpdatedEvent{Type: TypeSoundsUpdated, Sounds: sounds}
}
