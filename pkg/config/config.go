// Package config loads herald preset files: named, partially filled
// delivery configurations that CLI flags complete or override.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Preset is one named configuration from the preset file. Any field may be
// empty; flags fill the gaps.
type Preset struct {
	Listen    string `yaml:"listen"`
	Send      string `yaml:"send"`
	Broker    string `yaml:"broker"`
	Port      int    `yaml:"port"`
	Topic     string `yaml:"topic"`
	Subscribe bool   `yaml:"subscribe"`
	Publish   bool   `yaml:"publish"`
	Message   string `yaml:"message"`
	Auth      string `yaml:"auth"`
}

// File is the on-disk preset collection.
type File struct {
	Presets map[string]Preset `yaml:"presets"`
}

// DefaultPath returns the per-user preset file location.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, "herald", "config.yaml"), nil
}

// Load reads a preset file. A missing file is not an error; it loads as an
// empty collection so presets stay optional.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &File{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &f, nil
}

// Preset looks up a named preset.
func (f *File) Preset(name string) (Preset, error) {
	p, ok := f.Presets[name]
	if !ok {
		return Preset{}, fmt.Errorf("unknown preset %q", name)
	}
	return p, nil
}
