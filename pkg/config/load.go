package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/goccy/go-yaml"
	"github.com/hkdev/hk/pkg/constants"
	"github.com/hkdev/hk/pkg/logger"
)

var loadLog = logger.New("config:load")

// ErrNotFound is returned when no config file exists at the repository root.
var ErrNotFound = errors.New("no hk config file found")

// Find locates the config file for the given repository root. An explicit
// path (from --hkrc or HK_FILE) wins; otherwise the well-known names are
// probed in order.
func Find(root, explicit string) (string, error) {
	if explicit == "" {
		explicit = os.Getenv(constants.EnvFile)
	}
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file %s: %w", explicit, err)
		}
		return explicit, nil
	}
	for _, name := range constants.ConfigFileNames {
		p := filepath.Join(root, name)
		if _, err := os.Stat(p); err == nil {
			loadLog.Printf("found config file %s", p)
			return p, nil
		}
	}
	return "", ErrNotFound
}

// Load reads, validates, and decodes the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	yamlData := data
	if strings.HasSuffix(path, ".toml") {
		yamlData, err = tomlToYAML(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	if err := ValidateSchema(yamlData); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(yamlData, cfg); err != nil {
		return nil, fmt.Errorf("%s: %s", path, yaml.FormatError(err, false, true))
	}
	cfg.Path = path

	for name, hook := range cfg.Hooks {
		if hook == nil {
			cfg.Hooks[name] = &Hook{Name: name}
			continue
		}
		hook.Name = name
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	loadLog.Printf("loaded config with %d hooks", len(cfg.Hooks))
	return cfg, nil
}

// tomlToYAML re-serializes a TOML document as YAML so a single decode path
// handles every format. TOML tables are unordered, so ordered steps must use
// the sequence form there.
func tomlToYAML(data []byte) ([]byte, error) {
	var tree map[string]any
	if err := toml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("parse toml: %w", err)
	}
	out, err := yaml.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("convert toml: %w", err)
	}
	return out, nil
}

// LoadUserRC reads the user rc file if present. It shares the schema with
// the project config but only its settings-flavored fields are consulted.
func LoadUserRC() (*Config, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, nil
	}
	path := filepath.Join(dir, filepath.FromSlash(constants.UserConfigPath))
	if _, err := os.Stat(path); err != nil {
		return nil, nil
	}
	return Load(path)
}
