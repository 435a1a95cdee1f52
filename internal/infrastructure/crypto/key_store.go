// Package crypto holds the signing key state and the HMAC token codec built on it.
package crypto

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/turtacn/authcore/internal/domain/models"
	"github.com/turtacn/authcore/pkg/constants"
	"github.com/turtacn/authcore/pkg/errors"
)

// KeySnapshot is an immutable view of the key state. Retired is ordered most recent first.
type KeySnapshot struct {
	Current       models.KeyMaterial
	Retired       []models.KeyMaterial
	LastRotatedAt *time.Time
}

func (s KeySnapshot) clone() KeySnapshot {
	out := KeySnapshot{Current: s.Current}
	if len(s.Retired) > 0 {
		out.Retired = append([]models.KeyMaterial(nil), s.Retired...)
	}
	if s.LastRotatedAt != nil {
		t := *s.LastRotatedAt
		out.LastRotatedAt = &t
	}
	return out
}

// KeyStore holds the current signing key and the retired keys still accepted for verification.
// Readers load a published snapshot without locking; writers are serialized and publish a
// fresh snapshot, so a reader never observes a half-applied rotation.
type KeyStore struct {
	mu         sync.Mutex
	snapshot   atomic.Pointer[KeySnapshot]
	maxRetired int
}

// NewKeyStore builds a store from an initial key set. Retired entries equal to current are
// dropped and the list is truncated to maxRetired. A non-positive maxRetired means the default of 3.
func NewKeyStore(current models.KeyMaterial, retired []models.KeyMaterial, maxRetired int) (*KeyStore, error) {
	if maxRetired <= 0 {
		maxRetired = constants.DefaultMaxRetiredKeys
	}
	s := &KeyStore{maxRetired: maxRetired}
	snap, err := s.normalize(KeySnapshot{Current: current, Retired: retired})
	if err != nil {
		return nil, err
	}
	s.snapshot.Store(&snap)
	return s, nil
}

// Snapshot returns the currently published state. The returned value must not be modified.
func (s *KeyStore) Snapshot() *KeySnapshot {
	return s.snapshot.Load()
}

// Current returns the active signing key.
func (s *KeyStore) Current() models.KeyMaterial {
	return s.snapshot.Load().Current
}

// Retired returns a copy of the retired keys, most recent first.
func (s *KeyStore) Retired() []models.KeyMaterial {
	return append([]models.KeyMaterial(nil), s.snapshot.Load().Retired...)
}

// LastRotatedAt returns the time of the last rotation, nil if the store was never rotated.
func (s *KeyStore) LastRotatedAt() *time.Time {
	return s.snapshot.Load().LastRotatedAt
}

// MaxRetired returns the retired list bound.
func (s *KeyStore) MaxRetired() int {
	return s.maxRetired
}

// Update applies fn to a private copy of the current state and publishes the result.
// When fn returns an error the published state is left untouched.
func (s *KeyStore) Update(fn func(KeySnapshot) (KeySnapshot, error)) (KeySnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fn(s.snapshot.Load().clone())
	if err != nil {
		return KeySnapshot{}, err
	}
	next, err = s.normalize(next)
	if err != nil {
		return KeySnapshot{}, err
	}
	s.snapshot.Store(&next)
	return next.clone(), nil
}

func (s *KeyStore) normalize(snap KeySnapshot) (KeySnapshot, error) {
	if snap.Current.IsZero() {
		return KeySnapshot{}, errors.ErrConfiguration.WithMessage("key store requires a current signing key")
	}
	retired := make([]models.KeyMaterial, 0, s.maxRetired)
	for _, k := range snap.Retired {
		if k.IsZero() || k.Equal(snap.Current) || containsKey(retired, k) {
			continue
		}
		if len(retired) == s.maxRetired {
			break
		}
		retired = append(retired, k)
	}
	snap.Retired = retired
	return snap, nil
}

func containsKey(keys []models.KeyMaterial, k models.KeyMaterial) bool {
	for _, existing := range keys {
		if existing.Equal(k) {
			return true
		}
	}
	return false
}
