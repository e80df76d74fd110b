package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Loaded is the outcome of Load. Exists is false when defaults were used
// because no config file was found.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	Exists   bool
}

// Load reads the config at explicitPath, or at the default location. The
// default location also accepts a config.yaml sibling of config.jsonc.
func Load(explicitPath string) (Loaded, error) {
	primary, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}
	candidates := []string{primary}
	if strings.TrimSpace(explicitPath) == "" {
		candidates = append(candidates, filepath.Join(filepath.Dir(primary), "config.yaml"))
	}

	path, content, err := readFirst(candidates)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return Loaded{
			Path:     primary,
			Config:   Default(),
			Warnings: []Warning{{Message: fmt.Sprintf("config file %q not found; using defaults", primary)}},
		}, nil
	case err != nil:
		return Loaded{}, fmt.Errorf("read config %q: %w", path, err)
	}

	cfg, warnings, err := parseFile(path, content, Default())
	if err != nil {
		return Loaded{}, fmt.Errorf("parse config %q: %w", path, err)
	}
	return Loaded{Path: path, Config: cfg, Warnings: warnings, Exists: true}, nil
}

// readFirst returns the first candidate that exists. Errors other than a
// missing file stop the search.
func readFirst(candidates []string) (string, string, error) {
	for _, path := range candidates {
		content, err := os.ReadFile(path)
		if err == nil {
			return path, string(content), nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return path, "", err
		}
	}
	return "", "", os.ErrNotExist
}
