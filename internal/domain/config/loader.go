package config

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// DefaultFileNames are searched, in order, when no path is given.
var DefaultFileNames = []string{"labelhost.yaml", "labelhost.yml", "labelhost.toml"}

// Loader loads configuration from the filesystem.
type Loader struct {
	getenv func(string) string
}

// NewLoader creates a new Loader that reads the process environment.
func NewLoader() *Loader {
	return &Loader{getenv: os.Getenv}
}

// WithGetenv returns a Loader that resolves environment variables through fn.
func (l *Loader) WithGetenv(fn func(string) string) *Loader {
	return &Loader{getenv: fn}
}

// Load reads the file at path over the defaults. An empty path searches dir
// for one of DefaultFileNames and falls back to Defaults when none exists.
// The result is not validated.
func (l *Loader) Load(path, dir string) (*Config, error) {
	cfg := Defaults()

	if path == "" {
		path = l.find(dir)
	}

	if path != "" {
		if err := l.decodeFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if ref := strings.TrimSpace(l.getenv(EnvRef)); ref != "" {
		cfg.Repository.Ref = ref
	}

	return cfg, nil
}

// LoadAndValidate is Load followed by Validate.
func (l *Loader) LoadAndValidate(path, dir string) (*Config, error) {
	cfg, err := l.Load(path, dir)
	if err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (l *Loader) find(dir string) string {
	for _, name := range DefaultFileNames {
		candidate := filepath.Join(dir, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}

func (l *Loader) decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewConfigNotFoundError(path)
		}
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return NewConfigParseError(path, err)
		}
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			return NewConfigParseError(path, err)
		}
	default:
		return NewUnsupportedFormatError(path)
	}

	return nil
}
