// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package watcher

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	parserrors "github.com/kraklabs/parseltongue/internal/errors"
)

// RawEventChannelCapacity bounds the watcher->debouncer channel: when
// full, the oldest event is dropped and logged.
const RawEventChannelCapacity = 4096

// Watcher owns one OS-level recursive-directory watch rooted at a
// workspace's source_dir. Symbolic links are not followed: fsnotify.Add is
// only ever called on directories discovered by filepath.WalkDir, which
// does not traverse symlinks.
type Watcher struct {
	workspaceID string
	sourceDir   string
	ignore      *IgnoreMatcher
	logger      *slog.Logger

	fsw    *fsnotify.Watcher
	events chan RawEvent

	closeOnce sync.Once
	done      chan struct{}
}

// New opens a recursive watch rooted at sourceDir. Returns a typed
// WATCHER_START_FAILED or SYSTEM_LIMIT_REACHED error if the OS watch quota
// is exhausted; on either error the partially built watch is closed and no
// directory stays watched.
func New(workspaceID, sourceDir string, ignore *IgnoreMatcher, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, parserrors.New(parserrors.CodeWatcherStartFailed, "failed to open OS file watcher", err)
	}

	w := &Watcher{
		workspaceID: workspaceID,
		sourceDir:   sourceDir,
		ignore:      ignore,
		logger:      logger,
		fsw:         fsw,
		events:      make(chan RawEvent, RawEventChannelCapacity),
		done:        make(chan struct{}),
	}

	if err := w.addTree(sourceDir); err != nil {
		fsw.Close()
		return nil, err
	}

	go w.run()
	return w, nil
}

// addTree recursively registers every non-ignored directory under root,
// skipping symlinks entirely.
func (w *Watcher) addTree(root string) error {
	limitHit := false
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsPermission(err) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type()&os.ModeSymlink != 0 {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr == nil && rel != "." && w.ignore != nil && w.ignore.Match(rel+"/") {
			return filepath.SkipDir
		}
		if addErr := w.fsw.Add(path); addErr != nil {
			if isResourceExhausted(addErr) {
				limitHit = true
				return filepath.SkipDir
			}
			w.logger.Warn("watcher.add_failed", "path", path, "error", addErr)
		}
		return nil
	})
	if err != nil {
		return parserrors.New(parserrors.CodeWatcherStartFailed, "failed to walk workspace tree", err)
	}
	if limitHit {
		return parserrors.New(parserrors.CodeSystemLimitReached,
			"OS file-watch quota exhausted; increase the inotify/FSEvents limit or narrow the workspace root", nil)
	}
	return nil
}

func isResourceExhausted(err error) bool {
	return strings.Contains(err.Error(), "too many open files") || strings.Contains(err.Error(), "no space left")
}

// Events returns the channel of ingress-filtered raw events. Metadata-only
// events and the creation of a directory are dropped before reaching this
// channel; a directory's Remove or Rename is forwarded like a file's, since
// the path no longer exists to be inspected.
func (w *Watcher) Events() <-chan RawEvent {
	return w.events
}

func (w *Watcher) run() {
	defer close(w.events)
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleRaw(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher.fsnotify_error", "workspace_id", w.workspaceID, "error", err)
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) handleRaw(ev fsnotify.Event) {
	if ev.Op&(fsnotify.Chmod) != 0 && ev.Op == fsnotify.Chmod {
		return // metadata-only event: dropped
	}

	rel, err := filepath.Rel(w.sourceDir, ev.Name)
	if err != nil {
		rel = ev.Name
	}
	if w.ignore != nil && w.ignore.Match(rel) {
		return
	}

	kind, ok := classify(ev.Op)
	if !ok {
		return
	}

	// If a new directory appeared, start watching it too so nested
	// creates are observed; the directory event itself is not forwarded.
	if kind == EventCreate {
		if info, statErr := os.Lstat(ev.Name); statErr == nil && info.IsDir() && info.Mode()&os.ModeSymlink == 0 {
			_ = w.addTree(ev.Name)
			return
		}
	}

	raw := RawEvent{Kind: kind, Path: ev.Name}
	select {
	case w.events <- raw:
	default:
		w.logger.Warn("watcher.raw_channel_overflow_dropped_oldest", "workspace_id", w.workspaceID, "path", ev.Name)
		select {
		case <-w.events:
		default:
		}
		select {
		case w.events <- raw:
		default:
		}
	}
}

func classify(op fsnotify.Op) (EventKind, bool) {
	switch {
	case op&fsnotify.Create != 0:
		return EventCreate, true
	case op&fsnotify.Write != 0:
		return EventModify, true
	case op&fsnotify.Remove != 0:
		return EventDelete, true
	case op&fsnotify.Rename != 0:
		return EventRename, true
	default:
		return 0, false
	}
}

// Close stops the watcher and releases the underlying fsnotify handle. Safe
// to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.fsw.Close()
	})
	return err
}
