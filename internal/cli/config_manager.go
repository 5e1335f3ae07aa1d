package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dyike/WheelGo/config"
	"github.com/sirupsen/logrus"
)

// ConfigManager edits the persisted JSON configuration key by key
type ConfigManager struct {
	manager *config.Manager
}

// NewConfigManager opens the config file at path, writing initial there if it does not exist yet.
// An empty path selects the per-user default location.
func NewConfigManager(path string, initial *config.Config, logger *logrus.Logger) (*ConfigManager, error) {
	m, err := config.NewManager(
		config.WithConfigPath(path),
		config.WithInitialConfig(initial),
		config.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	return &ConfigManager{manager: m}, nil
}

// Path is the config file location
func (cm *ConfigManager) Path() string {
	return cm.manager.Path()
}

// Config returns the current configuration
func (cm *ConfigManager) Config() config.Config {
	return cm.manager.Get()
}

func (cm *ConfigManager) values() (map[string]interface{}, error) {
	data, err := json.Marshal(cm.manager.Get())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	var values map[string]interface{}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return values, nil
}

// ListAvailableKeys returns all settable keys
func (cm *ConfigManager) ListAvailableKeys() []string {
	values, err := cm.values()
	if err != nil {
		return nil
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GetConfigValue gets a configuration value by key
func (cm *ConfigManager) GetConfigValue(key string) (interface{}, error) {
	values, err := cm.values()
	if err != nil {
		return nil, err
	}
	v, ok := values[key]
	if !ok {
		return nil, fmt.Errorf("unknown configuration key: %s", key)
	}
	return v, nil
}

// SetConfigValue sets a configuration value by key. The new value is validated and
// persisted before it takes effect.
func (cm *ConfigManager) SetConfigValue(key, value string) error {
	current, err := cm.GetConfigValue(key)
	if err != nil {
		return err
	}

	var parsed interface{}
	switch current.(type) {
	case bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s expects true or false, got %q", key, value)
		}
		parsed = b
	case float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%s expects a number, got %q", key, value)
		}
		parsed = f
	default:
		parsed = strings.TrimSpace(value)
	}

	doc, err := json.Marshal(map[string]interface{}{key: parsed})
	if err != nil {
		return err
	}
	return cm.manager.Patch(doc)
}
