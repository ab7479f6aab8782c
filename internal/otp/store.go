// Package otp implements the in-memory one-time-code cache used to turn a
// pending appointment into a confirmed one.  The cache is deliberately
// process-local and non-durable: a restart invalidates every outstanding
// code, and the orphaned pending appointments are reclaimed by the expiry
// sweeper once their hold lapses.
package otp

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"sync"
	"time"
)

// Reason classifies a failed verification.
type Reason string

const (
	ReasonOK       Reason = "ok"
	ReasonNotFound Reason = "not_found"
	ReasonExpired  Reason = "expired"
	ReasonMismatch Reason = "mismatch"
)

type entry struct {
	code      string
	expiresAt time.Time
}

// Store maps an appointment ID to its outstanding verification code.  All
// operations take the single mutex, which makes VerifyConsume an atomic
// compare-and-delete: two concurrent confirmations with the same valid
// code cannot both succeed.
type Store struct {
	mu      sync.Mutex
	entries map[uint64]entry
}

// NewStore returns an empty code cache.
func NewStore() *Store {
	return &Store{entries: make(map[uint64]entry)}
}

// Mint generates a uniformly random six-digit code (100000-999999), binds
// it to the appointment for ttl, and returns it.  Minting again for the
// same appointment replaces the previous code.
func (s *Store) Mint(appointmentID uint64, ttl time.Duration) (string, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	n := binary.BigEndian.Uint64(buf[:]) % 900000
	code := fmt.Sprintf("%06d", 100000+n)

	s.mu.Lock()
	s.entries[appointmentID] = entry{code: code, expiresAt: time.Now().UTC().Add(ttl)}
	s.mu.Unlock()
	return code, nil
}

// VerifyConsume checks the code bound to the appointment.  On success the
// entry is deleted in the same critical section, so the code is single
// use.  Expired entries are evicted on sight and reported as expired; a
// wrong code leaves the entry in place so the user may retry.
func (s *Store) VerifyConsume(appointmentID uint64, code string) (bool, Reason) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[appointmentID]
	if !ok {
		return false, ReasonNotFound
	}
	if time.Now().UTC().After(e.expiresAt) {
		delete(s.entries, appointmentID)
		return false, ReasonExpired
	}
	if e.code != code {
		return false, ReasonMismatch
	}
	delete(s.entries, appointmentID)
	return true, ReasonOK
}

// Evict drops the code bound to the appointment, if any.
func (s *Store) Evict(appointmentID uint64) {
	s.mu.Lock()
	delete(s.entries, appointmentID)
	s.mu.Unlock()
}

// SweepExpired removes every entry whose expiry has passed and returns
// the appointment IDs that were evicted.  Called by the background
// sweeper; read paths never depend on it because VerifyConsume performs
// its own expiry check.
func (s *Store) SweepExpired(now time.Time) []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var evicted []uint64
	for id, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, id)
			evicted = append(evicted, id)
		}
	}
	return evicted
}

// Len reports the number of live entries.  Used by tests and metrics.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
