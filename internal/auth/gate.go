// Package auth is the trust boundary: it classifies every request as host
// or remote and validates remote bearer tokens against the issued set.
package auth

import (
	"crypto/subtle"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredential = errors.New("invalid credential")

type Classification int

const (
	RemoteUnauthenticated Classification = iota
	RemoteAuthenticated
	Host
)

func (c Classification) String() string {
	switch c {
	case Host:
		return "host"
	case RemoteAuthenticated:
		return "remote-authenticated"
	default:
		return "remote-unauthenticated"
	}
}

// Gate holds the shared secret and the valid-token set.
type Gate struct {
	password     string
	passwordHash string // bcrypt hash; takes precedence over password when set
	Tokens       *TokenStore
}

func NewGate(password, passwordHash string, tokens *TokenStore) *Gate {
	return &Gate{password: password, passwordHash: passwordHash, Tokens: tokens}
}

// Classify decides what a request may do. Host classification is based
// solely on network origin, never on a credential: whoever reaches the
// process over loopback is the physically co-located operator.
func (g *Gate) Classify(r *http.Request) Classification {
	if IsLoopback(r) {
		return Host
	}
	if g.Tokens.Valid(TokenFromRequest(r)) {
		return RemoteAuthenticated
	}
	return RemoteUnauthenticated
}

// IssueToken validates the shared secret and mints a bearer token. The
// comparison is constant-time; repeated failures are not tracked.
func (g *Gate) IssueToken(password string) (string, error) {
	if !g.checkSecret(password) {
		log.Warn().Str("module", "auth").Msg("login rejected")
		return "", ErrInvalidCredential
	}
	token := g.Tokens.Mint()
	log.Info().Str("module", "auth").Int("tokens", g.Tokens.Count()).Msg("token issued")
	return token, nil
}

func (g *Gate) checkSecret(password string) bool {
	if g.passwordHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(g.passwordHash), []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(g.password), []byte(password)) == 1
}

// TokenFromRequest pulls the bearer token from the X-Auth-Token header or
// the token query parameter.
func TokenFromRequest(r *http.Request) string {
	if token := r.Header.Get("X-Auth-Token"); token != "" {
		return token
	}
	return r.URL.Query().Get("token")
}

// IsLoopback reports whether the request arrived over a loopback address
// or addressed the server as localhost.
func IsLoopback(r *http.Request) bool {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return true
	}
	reqHost := r.Host
	if h, _, err := net.SplitHostPort(r.Host); err == nil {
		reqHost = h
	}
	return strings.EqualFold(reqHost, "localhost")
}
