// Copyright (C) 2025 FireDeck Analytics (engineering@firedeck.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package session

import (
	"log/slog"
	"sync"
	"time"
)

// Sweeper periodically evicts expired entries from a Store.
//
// # Description
//
// Manages the lifecycle of a background goroutine that runs Store.Sweep
// on an interval. Uses the ticker + done channel pattern for graceful
// shutdown; Start and Stop are idempotent.
//
// # Thread Safety
//
// All methods are safe for concurrent use.
type Sweeper struct {
	store    *Store
	interval time.Duration

	mu      sync.Mutex
	done    chan struct{}
	running bool
}

// NewSweeper creates a sweeper for the store. A non-positive interval
// defaults to 10 minutes.
func NewSweeper(store *Store, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Sweeper{store: store, interval: interval}
}

// Start launches the background sweep loop. No-op if already running.
func (w *Sweeper) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return
	}
	w.done = make(chan struct{})
	w.running = true

	go w.loop(w.done)
	slog.Info("session sweeper started", "interval", w.interval)
}

// Stop signals the loop to exit. No-op if not running.
func (w *Sweeper) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	close(w.done)
	w.running = false
	slog.Info("session sweeper stopped")
}

func (w *Sweeper) loop(done chan struct{}) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if evicted := w.store.Sweep(); evicted > 0 {
				slog.Info("evicted expired upload sessions", "count", evicted)
			}
		case <-done:
			return
		}
	}
}
