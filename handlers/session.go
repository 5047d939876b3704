package handlers

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// TokenStore issues and validates the per-session anti-forgery tokens the
// widget must present on every chat turn. Tokens live in memory with a
// TTL; an expired or unknown token just forces the widget to start a new
// session.
type TokenStore struct {
	mu     sync.Mutex
	tokens map[string]time.Time
	ttl    time.Duration
}

// NewTokenStore creates a token store with the given token lifetime.
func NewTokenStore(ttl time.Duration) *TokenStore {
	return &TokenStore{
		tokens: make(map[string]time.Time),
		ttl:    ttl,
	}
}

// Issue creates a fresh session token.
func (s *TokenStore) Issue() string {
	token := uuid.New().String()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.prune()
	s.tokens[token] = time.Now().Add(s.ttl)
	return token
}

// Validate reports whether the token was issued here and has not expired.
func (s *TokenStore) Validate(token string) bool {
	if token == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	expiry, ok := s.tokens[token]
	if !ok {
		return false
	}
	if time.Now().After(expiry) {
		delete(s.tokens, token)
		return false
	}
	return true
}

// prune drops expired tokens; callers must hold the lock.
func (s *TokenStore) prune() {
	now := time.Now()
	for token, expiry := range s.tokens {
		if now.After(expiry) {
			delete(s.tokens, token)
		}
	}
}
