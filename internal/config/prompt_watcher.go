package config

import (
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"resumescreener/internal/errors"
)

// PromptWatcher reloads a PromptStore when any of its files change on disk
type PromptWatcher struct {
	mu sync.Mutex

	store         *PromptStore
	fsWatcher     *fsnotify.Watcher
	debounceDelay time.Duration
	debounceTimer *time.Timer

	stopChan   chan struct{}
	reloadChan chan struct{}
	done       chan struct{}

	onReload func(error)
	logger   *errors.Logger
	running  bool
}

// NewPromptWatcher creates a watcher for the files of store. onReload, if set, is
// called after every reload attempt with its result.
func NewPromptWatcher(store *PromptStore, debounceDelay time.Duration, onReload func(error), logger *errors.Logger) *PromptWatcher {
	if debounceDelay <= 0 {
		debounceDelay = time.Second
	}
	return &PromptWatcher{
		store:         store,
		debounceDelay: debounceDelay,
		stopChan:      make(chan struct{}),
		reloadChan:    make(chan struct{}, 1),
		done:          make(chan struct{}),
		onReload:      onReload,
		logger:        logger,
	}
}

// Start begins watching. Watching the parent directories catches editors that
// replace files with an atomic rename.
func (pw *PromptWatcher) Start() error {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if pw.running {
		return fmt.Errorf("prompt watcher is already running")
	}

	files := pw.store.Paths()
	if len(files) == 0 {
		return fmt.Errorf("no prompt files to watch")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	pw.fsWatcher = watcher

	var dirs []string
	for _, file := range files {
		dir := filepath.Dir(file)
		if slices.Contains(dirs, dir) {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			pw.logger.Warn("Failed to watch prompt directory", "directory", dir, "error", err)
			continue
		}
		dirs = append(dirs, dir)
	}

	pw.running = true
	go pw.watchLoop(files)

	pw.logger.Info("Prompt file watcher started",
		"files", files,
		"debounce_delay", pw.debounceDelay)
	return nil
}

// Stop stops the watcher and waits for its loop to exit
func (pw *PromptWatcher) Stop() error {
	pw.mu.Lock()
	if !pw.running {
		pw.mu.Unlock()
		return nil
	}
	close(pw.stopChan)
	if pw.debounceTimer != nil {
		pw.debounceTimer.Stop()
	}
	pw.running = false
	pw.mu.Unlock()

	<-pw.done
	if err := pw.fsWatcher.Close(); err != nil {
		pw.logger.LogError(err, "Failed to close prompt file watcher")
		return err
	}
	pw.logger.Info("Prompt file watcher stopped")
	return nil
}

func (pw *PromptWatcher) watchLoop(files []string) {
	defer close(pw.done)

	for {
		select {
		case event, ok := <-pw.fsWatcher.Events:
			if !ok {
				return
			}
			if isPromptEvent(event, files) {
				pw.scheduleReload()
			}

		case err, ok := <-pw.fsWatcher.Errors:
			if !ok {
				return
			}
			pw.logger.LogError(err, "Prompt file watcher error")

		case <-pw.reloadChan:
			err := pw.store.Reload()
			if err != nil {
				pw.logger.LogError(err, "Prompt reload failed, keeping previous prompts")
			} else {
				pw.logger.Info("Prompt files reloaded", "files", len(files))
			}
			if pw.onReload != nil {
				pw.onReload(err)
			}

		case <-pw.stopChan:
			return
		}
	}
}

// isPromptEvent reports whether event touches one of files with a content-changing op
func isPromptEvent(event fsnotify.Event, files []string) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	name := filepath.Clean(event.Name)
	return slices.ContainsFunc(files, func(f string) bool {
		if abs, err := filepath.Abs(f); err == nil {
			if evAbs, err := filepath.Abs(name); err == nil && abs == evAbs {
				return true
			}
		}
		return filepath.Clean(f) == name
	})
}

// scheduleReload collapses bursts of events into one reload after the debounce delay
func (pw *PromptWatcher) scheduleReload() {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if pw.debounceTimer != nil {
		pw.debounceTimer.Stop()
	}
	pw.debounceTimer = time.AfterFunc(pw.debounceDelay, func() {
		select {
		case pw.reloadChan <- struct{}{}:
		default:
		}
	})
}
