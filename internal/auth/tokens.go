package auth

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"
)

// TokenStore is the process-wide set of valid bearer tokens. It is
// in-memory only: a restart invalidates every issued token.
type TokenStore struct {
	mu        sync.Mutex
	issued    map[string]time.Time
	ttl       time.Duration // 0 means tokens never expire
	maxTokens int           // 0 means unlimited
}

func NewTokenStore(ttl time.Duration, maxTokens int) *TokenStore {
	return &TokenStore{
		issued:    make(map[string]time.Time),
		ttl:       ttl,
		maxTokens: maxTokens,
	}
}

// Mint creates and registers a fresh token: 32 random bytes, hex encoded.
func (t *TokenStore) Mint() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand failing means the platform is broken beyond recovery.
		panic(err)
	}
	token := hex.EncodeToString(b)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.pruneLocked()
	if t.maxTokens > 0 && len(t.issued) >= t.maxTokens {
		t.evictOldestLocked()
	}
	t.issued[token] = time.Now()
	return token
}

// Valid reports whether the token is currently accepted.
func (t *TokenStore) Valid(token string) bool {
	if token == "" {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	issuedAt, ok := t.issued[token]
	if !ok {
		return false
	}
	if t.ttl > 0 && time.Since(issuedAt) > t.ttl {
		delete(t.issued, token)
		return false
	}
	return true
}

func (t *TokenStore) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pruneLocked()
	return len(t.issued)
}

func (t *TokenStore) pruneLocked() {
	if t.ttl <= 0 {
		return
	}
	cutoff := time.Now().Add(-t.ttl)
	for token, issuedAt := range t.issued {
		if issuedAt.Before(cutoff) {
			delete(t.issued, token)
		}
	}
}

func (t *TokenStore) evictOldestLocked() {
	var oldest string
	var oldestAt time.Time
	for token, issuedAt := range t.issued {
		if oldest == "" || issuedAt.Before(oldestAt) {
			oldest = token
			oldestAt = issuedAt
		}
	}
	if oldest != "" {
		delete(t.issued, oldest)
	}
}
