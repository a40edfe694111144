// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// =============================================================================
// CONFIG WATCHER
// =============================================================================

// ReloadFunc receives the freshly loaded config, or the error that prevented
// loading it. On error the caller should keep its previous config.
type ReloadFunc func(cfg *Config, err error)

// Watcher reloads a config file whenever it changes on disk.
//
// The parent directory is watched rather than the file, because editors
// usually save by writing a temporary file and renaming it over the
// original. Bursts of events are collapsed by the debounce interval.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	debounce time.Duration
	onReload ReloadFunc

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewWatcher starts watching path. onReload runs on the watcher goroutine.
func NewWatcher(path string, debounce time.Duration, onReload ReloadFunc) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	if debounce <= 0 {
		debounce = 200 * time.Millisecond
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	w := &Watcher{
		path:     abs,
		watcher:  fw,
		debounce: debounce,
		onReload: onReload,
		done:     make(chan struct{}),
	}

	w.wg.Add(1)
	go w.processEvents()

	return w, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string {
	return w.path
}

// Close stops watching and waits for the event goroutine to exit.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.watcher.Close()
		w.wg.Wait()
	})
	return err
}

// processEvents processes file system events
func (w *Watcher) processEvents() {
	defer w.wg.Done()

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			cfg, err := Load(w.path)
			w.onReload(cfg, err)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.onReload(nil, fmt.Errorf("config watcher: %w", err))
		}
	}
}

// relevant reports whether event touches the watched file's content.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create)
}
