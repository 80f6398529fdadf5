package integration

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/valter-silva-au/taskdeck/internal/core"
	"github.com/valter-silva-au/taskdeck/internal/storage"
)

// PlanWatcher observes implementation plan files on disk and feeds
// every change through the registry's derivation path. The agent owns
// the plan files; the watcher is strictly read-only on disk.
//
// Events are debounced per spec because agents rewrite the plan with a
// temp file and rename, which fsnotify reports as several events.
type PlanWatcher struct {
	dirs     *storage.SpecDirs
	plans    *storage.PlanStore
	registry *core.Registry
	events   EventLogger
	debounce time.Duration

	watcher *fsnotify.Watcher
	done    chan struct{}

	mu      sync.Mutex
	pending map[string]*time.Timer // spec ID -> debounce timer
}

// NewPlanWatcher creates a watcher. events may be nil. A non-positive
// debounce falls back to 100ms.
func NewPlanWatcher(dirs *storage.SpecDirs, plans *storage.PlanStore, registry *core.Registry, events EventLogger, debounce time.Duration) *PlanWatcher {
	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}
	return &PlanWatcher{
		dirs:     dirs,
		plans:    plans,
		registry: registry,
		events:   events,
		debounce: debounce,
		pending:  make(map[string]*time.Timer),
	}
}

// Start begins watching the specs root and every existing spec
// directory, then replays the current plans so the registry starts from
// the on-disk truth. New spec directories are picked up as they appear.
func (w *PlanWatcher) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating plan watcher: %w", err)
	}
	w.watcher = watcher
	w.done = make(chan struct{})

	specsRoot := filepath.Join(w.dirs.DataDir(), "specs")
	if err := os.MkdirAll(specsRoot, 0o755); err != nil {
		watcher.Close()
		return fmt.Errorf("creating specs root: %w", err)
	}
	if err := watcher.Add(specsRoot); err != nil {
		watcher.Close()
		return fmt.Errorf("watching specs root: %w", err)
	}

	specIDs, err := w.specDirs(specsRoot)
	if err != nil {
		watcher.Close()
		return err
	}
	for _, specID := range specIDs {
		if err := watcher.Add(w.dirs.Resolve(specID)); err != nil {
			w.logEvent("plan.watch_failed", map[string]any{"spec": specID, "error": err.Error()})
		}
	}

	go w.loop()

	// Replay existing plans after the watches are in place, so changes
	// racing the startup scan are not lost.
	for _, specID := range specIDs {
		w.applyPlan(specID)
	}
	return nil
}

// Stop shuts the watcher down and cancels pending debounce timers.
func (w *PlanWatcher) Stop() {
	if w.watcher == nil {
		return
	}
	close(w.done)
	w.watcher.Close()

	w.mu.Lock()
	for specID, timer := range w.pending {
		timer.Stop()
		delete(w.pending, specID)
	}
	w.mu.Unlock()
}

// specDirs lists the spec IDs that have a directory under the specs root.
func (w *PlanWatcher) specDirs(specsRoot string) ([]string, error) {
	entries, err := os.ReadDir(specsRoot)
	if err != nil {
		return nil, fmt.Errorf("listing specs root: %w", err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	return ids, nil
}

func (w *PlanWatcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logEvent("plan.watch_error", map[string]any{"error": err.Error()})
		}
	}
}

func (w *PlanWatcher) handleEvent(event fsnotify.Event) {
	base := filepath.Base(event.Name)

	// A new spec directory under the specs root gets its own watch.
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.watcher.Add(event.Name); err != nil {
				w.logEvent("plan.watch_failed", map[string]any{"spec": base, "error": err.Error()})
			}
			w.schedule(base)
			return
		}
	}

	if base != storage.PlanFileName {
		return
	}
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Rename) {
		return
	}
	w.schedule(filepath.Base(filepath.Dir(event.Name)))
}

// schedule arms (or re-arms) the debounce timer for a spec.
func (w *PlanWatcher) schedule(specID string) {
	if specID == "" || strings.HasPrefix(specID, ".") {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[specID]; ok {
		timer.Reset(w.debounce)
		return
	}
	w.pending[specID] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, specID)
		w.mu.Unlock()
		w.applyPlan(specID)
	})
}

// applyPlan loads the plan for a spec and re-derives the owning task.
// Malformed plans are skipped so a half-written file never corrupts
// task state; the next successful write will be picked up.
func (w *PlanWatcher) applyPlan(specID string) {
	plan, err := w.plans.LoadPlan(specID)
	if err != nil {
		if errors.Is(err, storage.ErrMalformedPlan) {
			w.logEvent("plan.malformed", map[string]any{"spec": specID})
			return
		}
		w.logEvent("plan.load_failed", map[string]any{"spec": specID, "error": err.Error()})
		return
	}
	if plan == nil {
		return
	}
	if _, ok := w.registry.Get(specID); !ok {
		w.logEvent("plan.unclaimed", map[string]any{"spec": specID})
		return
	}
	w.registry.ApplyPlan(specID, *plan)
	w.logEvent("plan.applied", map[string]any{"spec": specID})
}

func (w *PlanWatcher) logEvent(eventType string, data map[string]any) {
	if w.events != nil {
		_ = w.events.LogEvent(eventType, data)
	}
}
