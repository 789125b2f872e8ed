// Package catalog owns the ordered set of defined sounds and its persistence.
package catalog

import (
	"errors"
	"fmt"
	"sync"

	"soundcast/internal/domain"

	"github.com/rs/zerolog/log"
)

var ErrSoundNotFound = errors.New("sound not found")

// Store is the narrow persistence interface the service writes through.
// Implementations persist the full ordered snapshot.
type Store interface {
	Load() ([]domain.Sound, error)
	Save([]domain.Sound) error
}

// Service holds the in-memory catalog. All mutations are atomic with
// respect to each other: the id-allocation counter, the backing list and
// the persistence write happen under one lock.
type Service struct {
	mu     sync.Mutex
	sounds []domain.Sound
	nextID int
	store  Store
}

func NewService(store Store) (*Service, error) {
	sounds, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	s := &Service{sounds: sounds, store: store, nextID: 1}
	for _, snd := range sounds {
		if snd.ID >= s.nextID {
			s.nextID = snd.ID + 1
		}
	}
	log.Info().Str("module", "catalog").Int("sounds", len(sounds)).Msg("catalog loaded")
	return s, nil
}

// List returns the ordered snapshot. The slice is a copy; callers may not
// mutate catalog state through it.
func (s *Service) List() []domain.Sound {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Service) Get(id int) (domain.Sound, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, snd := range s.sounds {
		if snd.ID == id {
			return snd, true
		}
	}
	return domain.Sound{}, false
}

// Add appends a new sound. Ids are allocated from a monotonic counter so a
// deleted id is never handed out again.
func (s *Service) Add(name, file string) (domain.Sound, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snd, err := domain.NewSound(s.nextID, name, file)
	if err != nil {
		return domain.Sound{}, err
	}
	next := append(s.snapshot(), snd)
	if err := s.store.Save(next); err != nil {
		return domain.Sound{}, fmt.Errorf("persist catalog: %w", err)
	}
	s.sounds = next
	s.nextID++
	log.Info().Str("module", "catalog").Int("id", snd.ID).Str("name", name).Str("file", file).Msg("sound added")
	return snd, nil
}

func (s *Service) Rename(id int, name string) (domain.Sound, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := domain.ValidateSoundName(name); err != nil {
		return domain.Sound{}, err
	}
	for i, snd := range s.sounds {
		if snd.ID != id {
			continue
		}
		next := s.snapshot()
		next[i].Name = name
		if err := s.store.Save(next); err != nil {
			return domain.Sound{}, fmt.Errorf("persist catalog: %w", err)
		}
		s.sounds = next
		log.Info().Str("module", "catalog").Int("id", id).Str("name", name).Msg("sound renamed")
		return next[i], nil
	}
	return domain.Sound{}, ErrSoundNotFound
}

func (s *Service) Remove(id int) (domain.Sound, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, snd := range s.sounds {
		if snd.ID != id {
			continue
		}
		removed := snd
		next := make([]domain.Sound, 0, len(s.sounds)-1)
		next = append(next, s.sounds[:i]...)
		next = append(next, s.sounds[i+1:]...)
		if err := s.store.Save(next); err != nil {
			return domain.Sound{}, fmt.Errorf("persist catalog: %w", err)
		}
		s.sounds = next
		log.Info().Str("module", "catalog").Int("id", id).Str("name", removed.Name).Msg("sound removed")
		return removed, nil
	}
	return domain.Sound{}, ErrSoundNotFound
}

// Files reports the set of filenames referenced by catalog entries.
func (s *Service) Files() map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]bool, len(s.sounds))
	for _, snd := range s.sounds {
		out[snd.File] = true
	}
	return out
}

func (s *Service) snapshot() []domain.Sound {
	out := make([]domain.Sound, len(s.sounds))
	copy(out, s.sounds)
	return out
}
