// Package session keeps authenticated credentials in
// memory for the lifetime of a user session. Tokens
// are never held in the clear: they are sealed by the
// cipher on entry and opened on each use.
package session

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rh-aiservices-bu/grimoire/gitops/cipher"
	"github.com/rh-aiservices-bu/grimoire/gitops/git"
)

// ErrNotFound is returned for unknown or already
// removed session ids.
var ErrNotFound = fmt.Errorf("session not found")

type entry struct {
	platform     git.Platform
	username     string
	serverURL    string
	sealedToken  string
	lastAccessed time.Time
}

// Store maps session ids to sealed credentials.
type Store struct {
	mu      sync.RWMutex
	cipher  *cipher.Cipher
	entries map[string]*entry
	now     func() time.Time
}

// NewStore creates an empty session store using c to
// seal tokens.
func NewStore(c *cipher.Cipher) *Store {
	return &Store{
		cipher:  c,
		entries: map[string]*entry{},
		now:     time.Now,
	}
}

// NewStoreWithClock is NewStore with an injectable
// clock, for tests.
func NewStoreWithClock(
	c *cipher.Cipher,
	now func() time.Time,
) *Store {
	store := NewStore(c)
	store.now = now

	return store
}

// Create seals cred's token and returns a fresh
// session id for it.
func (s *Store) Create(
	cred git.Credential,
) (string, error) {
	const errCtx = "creating session"

	sealed, err := s.cipher.Encrypt(cred.Token)
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	id := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[id] = &entry{
		platform:     cred.Platform,
		username:     cred.Username,
		serverURL:    cred.ServerURL,
		sealedToken:  sealed,
		lastAccessed: s.now(),
	}

	return id, nil
}

// Credential opens the credential stored under id and
// refreshes its last-accessed time. A session whose
// token can no longer be opened is removed: it was
// sealed under a key this process does not hold.
func (s *Store) Credential(
	id string,
) (git.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.entries[id]
	if !ok {
		return git.Credential{}, ErrNotFound
	}

	token, err := s.cipher.Decrypt(item.sealedToken)
	if err != nil {
		delete(s.entries, id)
		slog.Warn(
			"dropping undecryptable session",
			"session_id", id,
			"error", err,
		)

		return git.Credential{}, fmt.Errorf(
			"opening session credential: %w", err,
		)
	}

	item.lastAccessed = s.now()

	return git.Credential{
		Platform:  item.platform,
		Username:  item.username,
		Token:     token,
		ServerURL: item.serverURL,
	}, nil
}

// Delete removes the session with the given id. It is
// a no-op for unknown ids.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, id)
}

// Count returns the number of live sessions.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.entries)
}

// PruneIdle removes sessions untouched for longer
// than maxIdle and returns how many were dropped.
func (s *Store) PruneIdle(maxIdle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-maxIdle)
	dropped := 0

	for id, item := range s.entries {
		if item.lastAccessed.Before(cutoff) {
			delete(s.entries, id)

			dropped++
		}
	}

	return dropped
}
