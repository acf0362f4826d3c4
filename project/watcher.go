package project

import (
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches program directories for shader edits and coalesces the
// resulting burst of filesystem events into single reload requests.
type Watcher struct {
	fsw      *fsnotify.Watcher
	reload   chan struct{}
	done     chan struct{}
	debounce time.Duration
}

// NewWatcher starts watching the directories of the given programs. A write
// to a shader or description file sends on Reload after the debounce window.
func NewWatcher(programs []*Program) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:      fsw,
		reload:   make(chan struct{}, 1),
		done:     make(chan struct{}),
		debounce: 250 * time.Millisecond,
	}

	for _, prog := range programs {
		if err := fsw.Add(prog.Dir); err != nil {
			log.Printf("WARNING: cannot watch '%s': %v", prog.Dir, err)
		}
	}

	go w.run()
	return w, nil
}

// Reload delivers one signal per edit burst.
func (w *Watcher) Reload() <-chan struct{} {
	return w.reload
}

func (w *Watcher) run() {
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if !watchedFile(ev.Name) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				// Drain a fired-but-unconsumed tick so Reset can't
				// deliver it early.
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			select {
			case w.reload <- struct{}{}:
			default:
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("WARNING: watcher error: %v", err)
		case <-w.done:
			return
		}
	}
}

// watchedFile reports whether an edited file can affect compiled shaders.
func watchedFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".frag", ".glsl", ".json":
		return true
	}
	return false
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}
