package config

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestManager(t *testing.T, opts ...ManagerOption) *Manager {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	opts = append([]ManagerOption{WithConfigPath(path), WithLogger(quietLogger())}, opts...)
	mgr, err := NewManager(opts...)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return mgr
}

func TestManagerCreatesSettingsFile(t *testing.T) {
	mgr := newTestManager(t)

	if _, err := os.Stat(mgr.Path()); err != nil {
		t.Fatalf("config file not created: %v", err)
	}
	cfg := mgr.Get()
	if cfg.ResultsDir != filepath.Join(filepath.Dir(mgr.Path()), "results") {
		t.Fatalf("defaults not rooted at the config dir: %+v", cfg)
	}

	initial := DefaultConfigWithRoot(t.TempDir())
	initial.LotSize = 25
	withInitial := newTestManager(t, WithInitialConfig(initial))
	if withInitial.Get().LotSize != 25 {
		t.Fatalf("initial config not written, lot size %d", withInitial.Get().LotSize)
	}
}

func TestManagerPatch(t *testing.T) {
	mgr := newTestManager(t)
	before := mgr.Get()

	if err := mgr.Patch([]byte(`{"lot_size": 10, "data_source": "csv"}`)); err != nil {
		t.Fatalf("Patch: %v", err)
	}

	got := mgr.Get()
	if got.LotSize != 10 || got.DataSource != "csv" {
		t.Fatalf("patch not applied: %+v", got)
	}
	if got.ResultsDir != before.ResultsDir || got.RiskFreeRate != before.RiskFreeRate {
		t.Fatalf("patch clobbered other settings: %+v", got)
	}

	reopened, err := NewManager(WithConfigPath(mgr.Path()), WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if reopened.Get().LotSize != 10 {
		t.Fatalf("patch was not persisted, lot size %d", reopened.Get().LotSize)
	}

	if err := mgr.Patch([]byte(`{"lot_size": `)); err == nil {
		t.Fatal("expected error for a malformed patch")
	}
}

func TestManagerRejectsInvalidUpdate(t *testing.T) {
	mgr := newTestManager(t)
	before, err := os.ReadFile(mgr.Path())
	if err != nil {
		t.Fatal(err)
	}

	tests := []string{
		`{"data_source": "bloomberg"}`,
		`{"lot_size": 0}`,
		`{"risk_free_rate": -0.01}`,
	}
	for _, patch := range tests {
		t.Run(patch, func(t *testing.T) {
			if err := mgr.Patch([]byte(patch)); !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}

	if mgr.Get().DataSource != "yahoo" {
		t.Fatalf("invalid update was applied: %s", mgr.Get().DataSource)
	}
	after, _ := os.ReadFile(mgr.Path())
	if string(after) != string(before) {
		t.Fatal("invalid update reached the settings file")
	}
}

func TestManagerFillsMissingFieldsFromDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{"data_source": "csv", "lot_size": 50}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	mgr, err := NewManager(WithConfigPath(path), WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	cfg := mgr.Get()
	if cfg.LotSize != 50 || cfg.DataSource != "csv" {
		t.Fatalf("file settings lost: %+v", cfg)
	}
	if cfg.VolatilityWindow != 20 || cfg.ResultsDir != filepath.Join(dir, "results") {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestManagerRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"volatility_window": 1}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewManager(WithConfigPath(path), WithLogger(quietLogger())); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestChangedKeys(t *testing.T) {
	a := *DefaultConfigWithRoot("/tmp/wheel")
	if keys := ChangedKeys(a, a); len(keys) != 0 {
		t.Fatalf("identical configs differ in %v", keys)
	}

	b := a
	b.LotSize = 10
	b.DataSource = "csv"
	keys := ChangedKeys(a, b)
	if !slices.Equal(keys, []string{"data_source", "lot_size"}) {
		t.Fatalf("ChangedKeys = %v", keys)
	}

	change := Change{Old: a, New: b, Keys: keys}
	if !change.Has("lot_size") || change.Has("risk_free_rate") {
		t.Fatalf("Has misreports %v", keys)
	}
}

func TestManagerWatchReloads(t *testing.T) {
	mgr := newTestManager(t, WithDebounce(20*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan Change, 4)
	if err := mgr.Watch(ctx, func(c Change) { changes <- c }); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	// our own writes are not reported back
	if err := mgr.Patch([]byte(`{"lot_size": 20}`)); err != nil {
		t.Fatalf("Patch: %v", err)
	}
	select {
	case c := <-changes:
		t.Fatalf("own write reported as a change: %v", c.Keys)
	case <-time.After(200 * time.Millisecond):
	}

	// an outside edit is
	if err := os.WriteFile(mgr.Path(), []byte(`{"lot_size": 20, "data_source": "csv"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case c := <-changes:
		if !c.Has("data_source") || c.New.DataSource != "csv" || c.Old.DataSource != "yahoo" {
			t.Fatalf("unexpected change: %+v", c.Keys)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not fire on config change")
	}
	if mgr.Get().DataSource != "csv" {
		t.Fatalf("reload not applied: %s", mgr.Get().DataSource)
	}

	// an invalid edit keeps the settings in use
	if err := os.WriteFile(mgr.Path(), []byte(`{"data_source": "bloomberg"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case c := <-changes:
		t.Fatalf("invalid edit reported: %v", c.Keys)
	case <-time.After(200 * time.Millisecond):
	}
	if mgr.Get().DataSource != "csv" {
		t.Fatalf("invalid edit applied: %s", mgr.Get().DataSource)
	}
}
