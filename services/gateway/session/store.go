// Copyright (C) 2025 FireDeck Analytics (engineering@firedeck.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package session tracks uploaded files across the dashboard's multi-step
// flow (upload → analyze → visualize → report) so the browser does not
// re-upload between steps.
//
// # Description
//
// Entries are keyed by a server-issued opaque token handed back at upload
// time. A secondary filename index supports the legacy browser flow that
// identifies files by their original name; it is last-write-wins by
// design, and the token is the collision-safe handle.
//
// Entries expire after a TTL and are evicted by the background Sweeper.
// A lookup that misses (or whose stored path has vanished from disk)
// falls back to the deterministic path <uploads-dir>/<filename>, which
// keeps the store an optimization rather than a correctness requirement.
//
// # Thread Safety
//
// Store is safe for concurrent use; all state is guarded by an RWMutex.
package session

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/firedeckhq/firedeck/services/gateway/observability"
)

// ErrNotFound is returned by Resolve when neither the store nor the
// uploads directory can produce an existing file for the request.
var ErrNotFound = errors.New("upload not found")

// Clock abstracts time for TTL tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Entry is one tracked upload.
type Entry struct {
	Token    string
	Filename string
	Path     string
	StoredAt time.Time
}

// Store is the in-memory upload session store.
type Store struct {
	mu      sync.RWMutex
	byToken map[string]Entry
	byName  map[string]string // filename -> token of the latest upload

	uploadsDir string
	ttl        time.Duration
	clock      Clock
}

// NewStore creates a store over the given uploads directory. Entries
// expire after ttl; a non-positive ttl defaults to 2 hours.
func NewStore(uploadsDir string, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &Store{
		byToken:    make(map[string]Entry),
		byName:     make(map[string]string),
		uploadsDir: uploadsDir,
		ttl:        ttl,
		clock:      systemClock{},
	}
}

// WithClock replaces the store's clock. Test hook; call before use.
func (s *Store) WithClock(c Clock) *Store {
	s.clock = c
	return s
}

// Put records an upload and returns its token. A repeated filename
// repoints the filename index at the new entry (last write wins).
func (s *Store) Put(filename, path string) string {
	token := uuid.NewString()

	s.mu.Lock()
	s.byToken[token] = Entry{
		Token:    token,
		Filename: filename,
		Path:     path,
		StoredAt: s.clock.Now(),
	}
	s.byName[filename] = token
	size := len(s.byToken)
	s.mu.Unlock()

	if m := observability.DefaultMetrics; m != nil {
		m.SessionEntries.Set(float64(size))
	}
	return token
}

// Get returns the entry for a token. Expired entries are absent.
func (s *Store) Get(token string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.byToken[token]
	if !ok || s.expired(e) {
		return Entry{}, false
	}
	return e, true
}

// GetByName returns the most recently stored entry for a filename.
func (s *Store) GetByName(filename string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	token, ok := s.byName[filename]
	if !ok {
		return Entry{}, false
	}
	e, ok := s.byToken[token]
	if !ok || s.expired(e) {
		return Entry{}, false
	}
	return e, true
}

// Resolve maps a (token, filename) pair to an on-disk path.
//
// Resolution order: token entry, then filename index, then the
// deterministic fallback <uploads-dir>/<filename>. A stored path whose
// file has vanished falls through to the next candidate. Returns
// ErrNotFound when no candidate exists on disk.
func (s *Store) Resolve(token, filename string) (string, error) {
	if token != "" {
		if e, ok := s.Get(token); ok && fileExists(e.Path) {
			return e.Path, nil
		}
	}
	if filename != "" {
		if e, ok := s.GetByName(filename); ok && fileExists(e.Path) {
			return e.Path, nil
		}
		fallback := filepath.Join(s.uploadsDir, filename)
		if fileExists(fallback) {
			return fallback, nil
		}
	}
	return "", ErrNotFound
}

// Len returns the number of live (possibly expired, not yet swept) entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byToken)
}

// Sweep removes expired entries and returns how many were evicted.
// Called periodically by the Sweeper.
func (s *Store) Sweep() int {
	s.mu.Lock()
	evicted := 0
	for token, e := range s.byToken {
		if !s.expired(e) {
			continue
		}
		delete(s.byToken, token)
		if s.byName[e.Filename] == token {
			delete(s.byName, e.Filename)
		}
		evicted++
	}
	size := len(s.byToken)
	s.mu.Unlock()

	if m := observability.DefaultMetrics; m != nil && evicted > 0 {
		m.SessionEvictionsTotal.Add(float64(evicted))
		m.SessionEntries.Set(float64(size))
	}
	return evicted
}

// expired reports whether e is past the TTL. Caller holds at least a
// read lock.
func (s *Store) expired(e Entry) bool {
	return s.clock.Now().Sub(e.StoredAt) > s.ttl
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
