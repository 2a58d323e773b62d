package scenario

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fewnexus/nexus/pkg/config"
	"github.com/fewnexus/nexus/pkg/params"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce delays reloads after a file change.
const DefaultDebounce = 500 * time.Millisecond

// Load outcomes reported to the Recorder.
const (
	statusLoaded = "succeeded"
	statusFailed = "failed"
)

// Recorder receives the outcome of every file load.
type Recorder interface {
	RecordScenarioLoad(status string)
}

// Options configures a Loader. Zero values select defaults.
type Options struct {
	Debounce      time.Duration
	ScriptTimeout time.Duration
	Schema        *params.Schema
	Registry      *config.SchemaRegistry
	Recorder      Recorder
}

// Loader loads scenarios from files and directories.
type Loader struct {
	logger   zerolog.Logger
	registry *config.SchemaRegistry
	scripts  *ScriptEvaluator
	recorder Recorder
	debounce time.Duration

	cache map[string][]Scenario
	mu    sync.RWMutex

	watcher   *fsnotify.Watcher
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewLoader creates a new scenario loader.
func NewLoader(logger zerolog.Logger, opts Options) *Loader {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Registry == nil {
		opts.Registry = config.NewSchemaRegistry()
	}
	return &Loader{
		logger:   logger.With().Str("component", "scenario-loader").Logger(),
		registry: opts.Registry,
		scripts:  NewScriptEvaluator(opts.ScriptTimeout, opts.Schema),
		recorder: opts.Recorder,
		debounce: opts.Debounce,
		cache:    make(map[string][]Scenario),
	}
}

// LoadFromPaths loads scenarios from a list of file or directory paths, in
// order. A file given explicitly must load; broken files found while walking
// a directory are logged and skipped.
func (l *Loader) LoadFromPaths(ctx context.Context, paths []string) ([]Scenario, error) {
	var all []Scenario

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		scenarios, err := l.loadFromPath(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("failed to load from path %s: %w", path, err)
		}
		all = append(all, scenarios...)
	}

	l.logger.Debug().
		Int("total", len(all)).
		Int("sources", len(paths)).
		Msg("Scenarios loaded from paths")

	return all, nil
}

// LoadFile loads the scenarios defined in a single file.
func (l *Loader) LoadFile(ctx context.Context, path string) ([]Scenario, error) {
	return l.loadFromFile(ctx, path)
}

// loadFromPath loads scenarios from a single path (file or directory).
func (l *Loader) loadFromPath(ctx context.Context, path string) ([]Scenario, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path: %w", err)
	}

	if info.IsDir() {
		return l.loadFromDirectory(ctx, path)
	}

	return l.loadFromFile(ctx, path)
}

// loadFromDirectory loads all scenario files below a directory.
func (l *Loader) loadFromDirectory(ctx context.Context, dirPath string) ([]Scenario, error) {
	var scenarios []Scenario

	err := filepath.WalkDir(dirPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !Supported(path) {
			return nil
		}

		loaded, err := l.loadFromFile(ctx, path)
		if err != nil {
			l.logger.Warn().Err(err).Str("path", path).Msg("Failed to load scenario file")
			return nil
		}

		scenarios = append(scenarios, loaded...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	return scenarios, nil
}

// loadFromFile loads the scenarios of a single file, using the cache.
func (l *Loader) loadFromFile(ctx context.Context, filePath string) ([]Scenario, error) {
	l.mu.RLock()
	if cached, exists := l.cache[filePath]; exists {
		l.mu.RUnlock()
		return cached, nil
	}
	l.mu.RUnlock()

	scenarios, err := l.parseFile(ctx, filePath)
	if err != nil {
		l.record(statusFailed)
		return nil, err
	}
	l.record(statusLoaded)

	l.mu.Lock()
	l.cache[filePath] = scenarios
	l.mu.Unlock()

	l.logger.Debug().
		Str("path", filePath).
		Int("scenarios", len(scenarios)).
		Msg("Scenario file loaded")

	return scenarios, nil
}

func (l *Loader) parseFile(ctx context.Context, filePath string) ([]Scenario, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var scenarios []Scenario

	switch strings.ToLower(filepath.Ext(filePath)) {
	case extYAML, extYML:
		s, err := parseYAML(data)
		if err != nil {
			return nil, err
		}
		scenarios = []Scenario{*s}
	case extJSON:
		s, err := parseJSON(data)
		if err != nil {
			return nil, err
		}
		scenarios = []Scenario{*s}
	case extCUE:
		exported, err := l.registry.ExportJSON(filePath, data)
		if err != nil {
			return nil, err
		}
		s, err := parseJSON(exported)
		if err != nil {
			return nil, err
		}
		scenarios = []Scenario{*s}
	case extStarlark:
		scenarios, err = l.scripts.Evaluate(ctx, filePath, data)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported file type: %s", filePath)
	}

	for i := range scenarios {
		s := &scenarios[i]
		if s.Name == "" {
			s.Name = defaultName(filePath)
		}
		if s.Parameters == nil {
			s.Parameters = map[string]any{}
		}
		s.Path = filePath

		doc := config.ScenarioDocument{
			Name:        s.Name,
			Description: s.Description,
			Parameters:  s.Parameters,
		}
		if err := l.registry.ValidateScenario(ctx, doc); err != nil {
			return nil, fmt.Errorf("invalid scenario %s: %w", s.Name, err)
		}
	}

	return scenarios, nil
}

func (l *Loader) record(status string) {
	if l.recorder != nil {
		l.recorder.RecordScenarioLoad(status)
	}
}

// Watch starts watching paths for scenario changes. After a change settles
// for the debounce interval, the changed file is evicted from the cache, all
// paths are reloaded and reloadFn receives the result. Watching stops when
// ctx is cancelled or StopWatching is called.
func (l *Loader) Watch(ctx context.Context, paths []string, reloadFn func([]Scenario) error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	l.watcher = watcher

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			l.logger.Warn().Err(err).Str("path", path).Msg("Failed to stat path for watching")
			continue
		}

		if info.IsDir() {
			if err := l.watchDirectory(path); err != nil {
				l.logger.Warn().Err(err).Str("path", path).Msg("Failed to watch directory")
			}
		} else {
			// Editors replace files on save; watch the parent directory.
			if err := watcher.Add(filepath.Dir(path)); err != nil {
				l.logger.Warn().Err(err).Str("path", path).Msg("Failed to watch file")
			}
		}
	}

	l.wg.Add(1)
	go l.processEvents(ctx, paths, reloadFn)

	l.logger.Info().
		Int("paths", len(paths)).
		Msg("Started watching scenario paths")

	return nil
}

// watchDirectory adds a directory and its subdirectories to the watcher.
func (l *Loader) watchDirectory(dirPath string) error {
	return filepath.WalkDir(dirPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return l.watcher.Add(path)
		}

		return nil
	})
}

// relevant reports whether a changed file belongs to one of the watched
// paths.
func relevant(name string, paths []string) bool {
	if !Supported(name) {
		return false
	}
	for _, path := range paths {
		if filepath.Clean(path) == filepath.Clean(name) {
			return true
		}
		if rel, err := filepath.Rel(path, name); err == nil && !strings.HasPrefix(rel, "..") {
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				return true
			}
		}
	}
	return false
}

// processEvents processes file system events and triggers debounced
// reloads.
func (l *Loader) processEvents(ctx context.Context, paths []string, reloadFn func([]Scenario) error) {
	defer l.wg.Done()

	timer := time.NewTimer(l.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			l.closeWatcher()
			return

		case event, ok := <-l.watcher.Events:
			if !ok {
				return
			}

			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 || !relevant(event.Name, paths) {
				continue
			}

			l.logger.Debug().
				Str("file", event.Name).
				Str("op", event.Op.String()).
				Msg("Scenario file changed")

			l.mu.Lock()
			delete(l.cache, event.Name)
			l.mu.Unlock()

			timer.Reset(l.debounce)

		case <-timer.C:
			if err := l.triggerReload(ctx, paths, reloadFn); err != nil {
				l.logger.Error().Err(err).Msg("Failed to reload scenarios")
			}

		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			l.logger.Error().Err(err).Msg("Watcher error")
		}
	}
}

// triggerReload reloads all scenarios from watched paths.
func (l *Loader) triggerReload(ctx context.Context, paths []string, reloadFn func([]Scenario) error) error {
	l.logger.Info().Msg("Reloading scenarios")

	scenarios, err := l.LoadFromPaths(ctx, paths)
	if err != nil {
		return fmt.Errorf("failed to reload scenarios: %w", err)
	}

	if err := reloadFn(scenarios); err != nil {
		return fmt.Errorf("failed to apply reloaded scenarios: %w", err)
	}

	l.logger.Info().
		Int("count", len(scenarios)).
		Msg("Scenarios reloaded")

	return nil
}

func (l *Loader) closeWatcher() {
	l.closeOnce.Do(func() {
		if l.watcher != nil {
			_ = l.watcher.Close()
		}
	})
}

// StopWatching stops watching and waits for the event loop to exit.
func (l *Loader) StopWatching() {
	l.closeWatcher()
	l.wg.Wait()
}

// ClearCache clears the scenario cache.
func (l *Loader) ClearCache() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.cache = make(map[string][]Scenario)
	l.logger.Debug().Msg("Scenario cache cleared")
}
