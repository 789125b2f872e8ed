// Package library manages the on-disk directory of audio resources.
package library

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

var (
	ErrNotAudioFile = errors.New("only audio files are allowed")
	ErrFileTooLarge = errors.New("file too large")
	ErrBadFilename  = errors.New("invalid filename")
)

var audioExts = map[string]bool{
	".wav": true,
	".mp3": true,
	".ogg": true,
	".m4a": true,
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

// Library is the managed audio directory. It knows nothing about the
// catalog; callers pass the referenced-file set in.
type Library struct {
	dir       string
	maxUpload int64
}

func New(dir string, maxUpload int64) *Library {
	return &Library{dir: dir, maxUpload: maxUpload}
}

func (l *Library) Dir() string { return l.dir }

// EnsureDir creates the managed directory if missing.
func (l *Library) EnsureDir() error {
	return os.MkdirAll(l.dir, 0o755)
}

// Path resolves a bare filename inside the managed directory. Names that
// would escape the directory are rejected.
func (l *Library) Path(file string) (string, error) {
	if file == "" || file != filepath.Base(file) || strings.HasPrefix(file, ".") {
		return "", ErrBadFilename
	}
	return filepath.Join(l.dir, file), nil
}

func (l *Library) Exists(file string) bool {
	p, err := l.Path(file)
	if err != nil {
		return false
	}
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}

// Files lists the audio files present in the managed directory, sorted.
func (l *Library) Files() ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("read sounds dir: %w", err)
	}
	out := []string{}
	for _, e := range entries {
		if e.IsDir() || !IsAudioFile(e.Name()) {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out, nil
}

// Unused returns the audio files not referenced by any catalog entry.
func (l *Library) Unused(referenced map[string]bool) ([]string, error) {
	files, err := l.Files()
	if err != nil {
		return nil, err
	}
	out := []string{}
	for _, f := range files {
		if !referenced[f] {
			out = append(out, f)
		}
	}
	return out, nil
}

// Save writes an uploaded audio file under a sanitized name and returns
// the name actually stored.
func (l *Library) Save(name string, size int64, r io.Reader) (string, error) {
	if !IsAudioFile(name) {
		return "", ErrNotAudioFile
	}
	if l.maxUpload > 0 && size > l.maxUpload {
		return "", ErrFileTooLarge
	}
	safe := SanitizeName(name)
	path, err := l.Path(safe)
	if err != nil {
		return "", err
	}
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	defer dst.Close()
	if l.maxUpload > 0 {
		r = io.LimitReader(r, l.maxUpload)
	}
	if _, err := io.Copy(dst, r); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return safe, nil
}

// SanitizeName replaces anything outside [a-zA-Z0-9.-] with underscores.
func SanitizeName(name string) string {
	return unsafeChars.ReplaceAllString(filepath.Base(name), "_")
}

func IsAudioFile(name string) bool {
	return audioExts[strings.ToLower(filepath.Ext(name))]
}

// BaseName strips the extension, the default display name for a sound.
func BaseName(file string) string {
	return strings.TrimSuffix(file, filepath.Ext(file))
}
