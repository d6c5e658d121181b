// Copyright (C) 2025 FireDeck Analytics (engineering@firedeck.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher hot-reloads template overrides when the YAML file changes.
//
// # Description
//
// Watches the file's parent directory rather than the file itself, so
// editors and config-management tools that replace the file atomically
// (write temp + rename) still trigger a reload. Reload failures keep
// the previous template set active and are logged, never fatal.
type Watcher struct {
	registry *Registry
	path     string
	watcher  *fsnotify.Watcher
}

// NewWatcher performs the initial load of path into the registry and
// sets up the directory watch. The caller owns the returned watcher and
// must call Start to begin receiving reloads.
func NewWatcher(registry *Registry, path string) (*Watcher, error) {
	if err := registry.LoadFile(path); err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(path), err)
	}

	return &Watcher{registry: registry, path: path, watcher: fsw}, nil
}

// Start runs the watch loop until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) {
	go w.loop(ctx)
	slog.Info("template watcher started", "path", w.path)
}

// Stop closes the underlying fsnotify watcher, which also unblocks the
// loop if ctx has not fired yet.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

func (w *Watcher) loop(ctx context.Context) {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("template watcher error", "error", err)
		case <-ctx.Done():
			return
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Base(event.Name) != filepath.Base(w.path) {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}

	if err := w.registry.LoadFile(w.path); err != nil {
		slog.Warn("template reload failed, keeping previous set",
			"path", w.path, "error", err)
		return
	}
	slog.Info("templates reloaded", "path", w.path, "kinds", w.registry.Names())
}
