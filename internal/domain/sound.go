// Package domain contains entities without logic, just meta-data.
package domain

import "errors"

const MaxSoundNameLen = 64

var (
	ErrSoundNameEmpty   = errors.New("sound name empty")
	ErrSoundNameTooLong = errors.New("sound name too long")
)

// Sound is a catalog entry. ID is unique and stable once assigned;
// File is a bare filename under the managed sounds directory.
type Sound struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	File string `json:"file"`
}

// NewSound avoids raw literals in callers and keeps validation in one place.
func NewSound(id int, name, file string) (Sound, error) {
	if err := ValidateSoundName(name); err != nil {
		return Sound{}, err
	}
	return Sound{ID: id, Name: name, File: file}, nil
}

func ValidateSoundName(name string) error {
	if len(name) == 0 {
		return ErrSoundNameEmpty
	}
	if len(name) > MaxSoundNameLen {
		return ErrSoundNameTooLong
	}
	return nil
}
