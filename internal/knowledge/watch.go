// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package knowledge

import (
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceDelay coalesces editor write bursts into one reload.
const debounceDelay = 250 * time.Millisecond

// Watcher reloads a Base from a facts file whenever it changes on disk.
type Watcher struct {
	base    *Base
	path    string
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// Watch starts watching path and reloading b on change.
// The parent directory is watched rather than the file itself so that
// rename-based saves keep working.
func Watch(b *Base, path string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{
		base:    b,
		path:    path,
		watcher: fw,
		done:    make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}

func (w *Watcher) run() {
	var timer *time.Timer
	reload := make(chan struct{}, 1)

	for {
		select {
		case <-w.done:
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounceDelay, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})

		case <-reload:
			if err := w.base.LoadFile(w.path); err != nil {
				log.Printf("KNOWLEDGE RELOAD FAILED | path=%s error=%v", w.path, err)
				continue
			}
			log.Printf("KNOWLEDGE RELOADED | path=%s sections=%d", w.path, w.base.Len())

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("KNOWLEDGE WATCH ERROR | error=%v", err)
		}
	}
}
