package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// File is a loaded config together with the path it came from.
type File struct {
	Path   string
	Config *Config
}

// Load reads a YAML config file, expands environment variables, and
// unmarshals into a Config struct. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("cannot read config file %q: %w", path, err)
	}

	expanded := ExpandEnv(string(data))

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("invalid YAML in %s: %w", path, err)
	}

	return &cfg, nil
}

// LoadAll loads path, which is either one config file or a directory.
// A directory yields every *.yaml and *.yml file in it, in name order.
func LoadAll(path string) ([]File, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("cannot read config %q: %w", path, err)
	}
	if !info.IsDir() {
		cfg, err := Load(path)
		if err != nil {
			return nil, err
		}
		return []File{{Path: path, Config: cfg}}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config directory %q: %w", path, err)
	}
	var names []string
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		names = append(names, e.Name())
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no config files in %s", path)
	}
	sort.Strings(names)

	files := make([]File, 0, len(names))
	for _, name := range names {
		p := filepath.Join(path, name)
		cfg, err := Load(p)
		if err != nil {
			return nil, err
		}
		files = append(files, File{Path: p, Config: cfg})
	}
	return files, nil
}
