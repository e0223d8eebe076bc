// Package watch re-classifies event logs whenever they change on disk.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/proclens/proclens/pkg/classify"
	"github.com/proclens/proclens/pkg/core"
	"github.com/proclens/proclens/pkg/parser"
)

// Watcher monitors event log files for changes and triggers updates.
type Watcher struct {
	watcher  *fsnotify.Watcher
	files    map[string]*fileState
	mu       sync.RWMutex
	debounce time.Duration
	OnChange func(path string) error
	OnError  func(path string, err error)
}

type fileState struct {
	path         string
	lastModified time.Time
	size         int64
	processing   bool
}

// NewWatcher creates a new file watcher.
func NewWatcher() (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	return &Watcher{
		watcher:  fsWatcher,
		files:    make(map[string]*fileState),
		debounce: 500 * time.Millisecond,
	}, nil
}

// Watch starts watching a file for changes.
func (w *Watcher) Watch(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	stat, err := os.Stat(absPath)
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	w.mu.Lock()
	w.files[absPath] = &fileState{
		path:         absPath,
		lastModified: stat.ModTime(),
		size:         stat.Size(),
	}
	w.mu.Unlock()

	// Watch the directory containing the file (fsnotify works better this way)
	dir := filepath.Dir(absPath)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory: %w", err)
	}

	return nil
}

// Run starts the watch loop. Blocks until context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	debounceTimers := make(map[string]*time.Timer)
	var timerMu sync.Mutex

	for {
		select {
		case <-ctx.Done():
			w.watcher.Close()
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}

			// Only handle write events
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			absPath, err := filepath.Abs(event.Name)
			if err != nil {
				continue
			}

			w.mu.RLock()
			state, isWatched := w.files[absPath]
			w.mu.RUnlock()

			if !isWatched {
				continue
			}

			// Debounce rapid changes
			timerMu.Lock()
			if timer, exists := debounceTimers[absPath]; exists {
				timer.Stop()
			}
			debounceTimers[absPath] = time.AfterFunc(w.debounce, func() {
				w.handleChange(absPath, state)
			})
			timerMu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			if w.OnError != nil {
				w.OnError("", err)
			}
		}
	}
}

func (w *Watcher) handleChange(path string, state *fileState) {
	w.mu.Lock()
	if state.processing {
		w.mu.Unlock()
		return
	}
	state.processing = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		state.processing = false
		w.mu.Unlock()
	}()

	stat, err := os.Stat(path)
	if err != nil {
		if w.OnError != nil {
			w.OnError(path, err)
		}
		return
	}

	if stat.ModTime().Equal(state.lastModified) && stat.Size() == state.size {
		return // No actual change
	}

	w.mu.Lock()
	state.lastModified = stat.ModTime()
	state.size = stat.Size()
	w.mu.Unlock()

	if w.OnChange != nil {
		if err := w.OnChange(path); err != nil {
			if w.OnError != nil {
				w.OnError(path, err)
			}
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// Update is the outcome of one re-classification pass.
type Update struct {
	Path     string
	Result   classify.Result
	Previous *classify.Label // nil on the first pass
	Changed  bool
	At       time.Time
}

// Reclassifier re-runs classification for a watched log file and
// reports label transitions.
type Reclassifier struct {
	Engine               *core.Engine
	ParserConfig         parser.Config
	TemporalThreshold    float64
	ExistentialThreshold float64

	mu   sync.Mutex
	last map[string]classify.Label
}

// NewReclassifier creates a reclassifier with the given engine.
func NewReclassifier(engine *core.Engine, cfg parser.Config, temporal, existential float64) *Reclassifier {
	if engine == nil {
		engine = core.NewEngine()
	}
	return &Reclassifier{
		Engine:               engine,
		ParserConfig:         cfg,
		TemporalThreshold:    temporal,
		ExistentialThreshold: existential,
		last:                 make(map[string]classify.Label),
	}
}

// Classify loads and classifies path, recording whether the label
// changed since the previous pass for the same path.
func (rc *Reclassifier) Classify(ctx context.Context, path string) (Update, error) {
	log, err := parser.Load(ctx, path, rc.ParserConfig)
	if err != nil {
		return Update{}, err
	}

	result, err := rc.Engine.ClassifyLog(ctx, log, rc.TemporalThreshold, rc.ExistentialThreshold)
	if err != nil {
		return Update{}, err
	}

	update := Update{
		Path:   path,
		Result: result,
		At:     time.Now(),
	}

	rc.mu.Lock()
	if prev, ok := rc.last[path]; ok {
		update.Previous = &prev
		update.Changed = prev != result.Label
	} else {
		update.Changed = true
	}
	rc.last[path] = result.Label
	rc.mu.Unlock()

	return update, nil
}

// RunLoop watches path and invokes onUpdate after every debounced
// change until the context is cancelled.
func RunLoop(ctx context.Context, path string, rc *Reclassifier, onUpdate func(Update), onError func(error)) error {
	watcher, err := NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	watcher.OnChange = func(changed string) error {
		update, err := rc.Classify(ctx, changed)
		if err != nil {
			return err
		}
		if onUpdate != nil {
			onUpdate(update)
		}
		return nil
	}
	watcher.OnError = func(_ string, err error) {
		if onError != nil {
			onError(err)
		}
	}

	if err := watcher.Watch(path); err != nil {
		return err
	}

	// Classify once up front so the watcher starts from a known label.
	if update, err := rc.Classify(ctx, path); err == nil {
		if onUpdate != nil {
			onUpdate(update)
		}
	} else if onError != nil {
		onError(err)
	}

	return watcher.Run(ctx)
}
