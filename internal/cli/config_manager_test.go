package cli

import (
	"path/filepath"
	"slices"
	"testing"
)

func TestConfigManagerKeys(t *testing.T) {
	cfg := testConfig(t)
	cm, err := NewConfigManager(filepath.Join(cfg.ProjectDir, "wheelgo.json"), cfg, quietLogger())
	if err != nil {
		t.Fatalf("NewConfigManager: %v", err)
	}

	keys := cm.ListAvailableKeys()
	for _, want := range []string{"data_source", "lot_size", "online_tools", "risk_free_rate"} {
		if !slices.Contains(keys, want) {
			t.Errorf("key %q missing from %v", want, keys)
		}
	}
	if !slices.IsSorted(keys) {
		t.Errorf("keys are not sorted: %v", keys)
	}

	if _, err := cm.GetConfigValue("nope"); err == nil {
		t.Error("expected error for an unknown key")
	}
}

func TestConfigManagerSetTypes(t *testing.T) {
	cfg := testConfig(t)
	path := filepath.Join(cfg.ProjectDir, "wheelgo.json")
	cm, err := NewConfigManager(path, cfg, quietLogger())
	if err != nil {
		t.Fatalf("NewConfigManager: %v", err)
	}

	if err := cm.SetConfigValue("cache_enabled", "false"); err != nil {
		t.Fatalf("set bool: %v", err)
	}
	if err := cm.SetConfigValue("risk_free_rate", "0.035"); err != nil {
		t.Fatalf("set float: %v", err)
	}
	if err := cm.SetConfigValue("data_source", " yahoo "); err != nil {
		t.Fatalf("set string: %v", err)
	}

	got := cm.Config()
	if got.CacheEnabled || got.RiskFreeRate != 0.035 || got.DataSource != "yahoo" {
		t.Errorf("config after set = %+v", got)
	}

	if err := cm.SetConfigValue("cache_enabled", "maybe"); err == nil {
		t.Error("expected error for a non boolean value")
	}
	if err := cm.SetConfigValue("volatility_window", "many"); err == nil {
		t.Error("expected error for a non numeric value")
	}
	if err := cm.SetConfigValue("data_source", "bloomberg"); err == nil {
		t.Error("expected validation error for an unknown data source")
	}

	// a second manager on the same file sees the persisted values
	reopened, err := NewConfigManager(path, nil, quietLogger())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if reopened.Config().RiskFreeRate != 0.035 {
		t.Errorf("risk_free_rate not persisted: %+v", reopened.Config())
	}
}
