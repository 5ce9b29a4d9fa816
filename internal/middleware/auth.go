package middleware

import (
	"crypto/sha256"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"hashdrop/internal/logging"
	"hashdrop/internal/metrics"
)

// TokenQueryParam carries the token for clients that cannot set headers,
// such as a browser EventSource.
const TokenQueryParam = "token"

// AuthConfig configures token authentication
type AuthConfig struct {
	// TokenHash is the bcrypt hash of the API token; empty disables checks
	TokenHash string
	// ProtectedPrefixes are the paths that require a token
	ProtectedPrefixes []string
}

// DefaultAuthConfig protects /api with the given hash.
func DefaultAuthConfig(tokenHash string) AuthConfig {
	return AuthConfig{
		TokenHash:         tokenHash,
		ProtectedPrefixes: []string{"/api/"},
	}
}

// tokenVerifier remembers tokens that already matched so bcrypt runs once
// per distinct token, not once per request.
type tokenVerifier struct {
	hash     []byte
	mu       sync.RWMutex
	accepted map[[sha256.Size]byte]bool
}

func (v *tokenVerifier) verify(token string) bool {
	key := sha256.Sum256([]byte(token))

	v.mu.RLock()
	ok := v.accepted[key]
	v.mu.RUnlock()
	if ok {
		return true
	}

	if err := bcrypt.CompareHashAndPassword(v.hash, []byte(token)); err != nil {
		return false
	}

	v.mu.Lock()
	v.accepted[key] = true
	v.mu.Unlock()
	return true
}

// Auth returns middleware requiring a bearer token on protected paths.
// With an empty TokenHash it passes every request through.
func Auth(config AuthConfig) func(http.Handler) http.Handler {
	if config.TokenHash == "" {
		return func(next http.Handler) http.Handler { return next }
	}

	if _, err := bcrypt.Cost([]byte(config.TokenHash)); err != nil {
		logging.Warn("API_TOKEN_HASH is not a bcrypt hash (%v); every API request will be rejected", err)
	}

	verifier := &tokenVerifier{
		hash:     []byte(config.TokenHash),
		accepted: make(map[[sha256.Size]byte]bool),
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isProtected(r.URL.Path, config.ProtectedPrefixes) {
				next.ServeHTTP(w, r)
				return
			}

			token := requestToken(r)
			if token == "" {
				metrics.AuthAttemptsTotal.WithLabelValues("missing").Inc()
				w.Header().Set("WWW-Authenticate", `Bearer realm="hashdrop"`)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if !verifier.verify(token) {
				metrics.AuthAttemptsTotal.WithLabelValues("failure").Inc()
				logging.Debug("Rejected API token from %s", sanitizeLogField(getClientIP(r)))
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			metrics.AuthAttemptsTotal.WithLabelValues("success").Inc()
			next.ServeHTTP(w, r)
		})
	}
}

func isProtected(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func requestToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, found := strings.Cut(header, " ")
		if found && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get(TokenQueryParam)
}
