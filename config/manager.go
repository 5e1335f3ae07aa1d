package config

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Change describes a settings update picked up from disk.
type Change struct {
	Old  Config
	New  Config
	Keys []string // JSON names of the settings that differ, sorted
}

// Has reports whether key is among the changed settings.
func (c Change) Has(key string) bool {
	i := sort.SearchStrings(c.Keys, key)
	return i < len(c.Keys) && c.Keys[i] == key
}

// Manager owns the JSON settings file of one WheelGo installation. Every write is
// validated first, and Watch hot reloads edits made by hand while a session runs.
type Manager struct {
	path     string
	debounce time.Duration
	logger   *logrus.Logger

	mu        sync.RWMutex
	cfg       Config
	lastWrite [sha256.Size]byte
	watching  bool
}

type managerOptions struct {
	path     string
	initial  *Config
	debounce time.Duration
	logger   *logrus.Logger
}

type ManagerOption func(*managerOptions)

// WithConfigPath selects the settings file. Empty keeps the per-user default.
func WithConfigPath(path string) ManagerOption {
	return func(o *managerOptions) {
		if path != "" {
			o.path = path
		}
	}
}

// WithInitialConfig is written out when the settings file does not exist yet.
func WithInitialConfig(cfg *Config) ManagerOption {
	return func(o *managerOptions) { o.initial = cfg }
}

func WithDebounce(d time.Duration) ManagerOption {
	return func(o *managerOptions) {
		if d > 0 {
			o.debounce = d
		}
	}
}

func WithLogger(logger *logrus.Logger) ManagerOption {
	return func(o *managerOptions) { o.logger = logger }
}

// NewManager loads the settings file, creating it from the initial config (or the
// defaults for its directory) on first use.
func NewManager(opts ...ManagerOption) (*Manager, error) {
	o := managerOptions{debounce: 250 * time.Millisecond}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logrus.New()
	}
	if o.path == "" {
		p, err := defaultConfigPath()
		if err != nil {
			return nil, err
		}
		o.path = p
	}
	if err := os.MkdirAll(filepath.Dir(o.path), 0o755); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}

	m := &Manager{path: o.path, debounce: o.debounce, logger: o.logger}

	data, err := os.ReadFile(o.path)
	switch {
	case err == nil:
		cfg, err := decodeConfig(o.path, data)
		if err != nil {
			return nil, err
		}
		m.cfg = cfg
		m.lastWrite = sha256.Sum256(data)
		return m, nil
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := *DefaultConfigWithRoot(filepath.Dir(o.path))
	if o.initial != nil {
		cfg = *o.initial
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := m.persist(cfg); err != nil {
		return nil, fmt.Errorf("write initial config: %w", err)
	}
	m.logger.WithField("path", o.path).Info("created settings file")
	return m, nil
}

func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

func (m *Manager) Path() string {
	return m.path
}

// Patch merges a partial JSON document such as {"lot_size": 10} into the current settings.
func (m *Manager) Patch(doc []byte) error {
	cfg := m.Get()
	if err := json.Unmarshal(doc, &cfg); err != nil {
		return fmt.Errorf("parse config patch: %w", err)
	}
	return m.Update(cfg)
}

// Update validates cfg and writes it to disk. Invalid settings never reach the file.
func (m *Manager) Update(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if len(ChangedKeys(m.Get(), cfg)) == 0 {
		return nil
	}
	return m.persist(cfg)
}

// persist writes cfg through a temp file and rename, then adopts it. The hash of the
// written bytes lets the watcher tell our own writes from outside edits.
func (m *Manager) persist(cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	data = append(data, '\n')

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := writeFileAtomic(m.path, data); err != nil {
		return err
	}
	m.cfg = cfg
	m.lastWrite = sha256.Sum256(data)
	return nil
}

// Watch calls onChange after each outside edit of the settings file that validates and
// changes at least one setting. It returns once the watcher is running; the watcher
// stops with ctx. A second call is a no-op.
func (m *Manager) Watch(ctx context.Context, onChange func(Change)) error {
	m.mu.Lock()
	if m.watching {
		m.mu.Unlock()
		return nil
	}
	m.watching = true
	m.mu.Unlock()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// editors replace the file, so watch the directory rather than the inode
	if err := watcher.Add(filepath.Dir(m.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch config dir: %w", err)
	}

	go m.watchLoop(ctx, watcher, onChange)
	return nil
}

func (m *Manager) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, onChange func(Change)) {
	defer watcher.Close()

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(evt.Name) == filepath.Clean(m.path) &&
				evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				timer.Reset(m.debounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			m.logger.WithError(err).Warn("config watcher error")
		case <-timer.C:
			if change, ok := m.reload(); ok && onChange != nil {
				onChange(change)
			}
		}
	}
}

// reload adopts the file's settings if they came from outside, parse, validate and differ.
// A missing or broken file keeps the settings already in use.
func (m *Manager) reload() (Change, bool) {
	log := m.logger.WithField("path", m.path)

	data, err := os.ReadFile(m.path)
	if err != nil {
		log.WithError(err).Warn("settings file unreadable, keeping current settings")
		return Change{}, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	sum := sha256.Sum256(data)
	if sum == m.lastWrite {
		return Change{}, false
	}

	cfg, err := decodeConfig(m.path, data)
	if err != nil {
		log.WithError(err).Warn("ignoring invalid settings edit")
		return Change{}, false
	}
	m.lastWrite = sum

	keys := ChangedKeys(m.cfg, cfg)
	if len(keys) == 0 {
		return Change{}, false
	}
	change := Change{Old: m.cfg, New: cfg, Keys: keys}
	m.cfg = cfg
	log.WithField("keys", keys).Info("settings reloaded")
	return change, true
}

// ChangedKeys lists the JSON names of the settings that differ between a and b.
func ChangedKeys(a, b Config) []string {
	av, bv := settingsMap(a), settingsMap(b)
	var keys []string
	for k, v := range bv {
		if fmt.Sprint(av[k]) != fmt.Sprint(v) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func settingsMap(cfg Config) map[string]interface{} {
	data, _ := json.Marshal(cfg)
	var out map[string]interface{}
	_ = json.Unmarshal(data, &out)
	return out
}

// decodeConfig overlays the file on the defaults for its directory, so settings added
// after the file was written keep their default values.
func decodeConfig(path string, data []byte) (Config, error) {
	cfg := *DefaultConfigWithRoot(filepath.Dir(path))
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func defaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		if dir, err = os.Getwd(); err != nil {
			return "", err
		}
	}
	return filepath.Join(dir, "WheelGo", "config.json"), nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".wheelgo-*.json")
	if err != nil {
		return fmt.Errorf("create temp config: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write config: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp config: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
