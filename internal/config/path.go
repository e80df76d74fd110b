package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

const appName = "animalese"

// ResolvePath applies CLI/XDG/home fallback rules for config.jsonc location.
func ResolvePath(explicit string) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		return explicit, nil
	}
	dir, err := xdgDir("XDG_CONFIG_HOME", ".config")
	if err != nil {
		return "", errors.New("unable to resolve user home for config fallback")
	}
	return filepath.Join(dir, "config.jsonc"), nil
}

// DataDir is where sprite containers live when assets.root is unset.
func DataDir() (string, error) {
	return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

// StateDir holds logs and the render history.
func StateDir() (string, error) {
	return xdgDir("XDG_STATE_HOME", filepath.Join(".local", "state"))
}

// AssetRoot returns the configured or default asset directory.
func (c AssetsConfig) AssetRoot() (string, error) {
	if root := expandHome(c.Root); root != "" {
		return root, nil
	}
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "audio"), nil
}

// DBPath returns the configured or default history database path.
func (c HistoryConfig) DBPath() (string, error) {
	if p := expandHome(c.Path); p != "" {
		return p, nil
	}
	dir, err := StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.db"), nil
}

func xdgDir(env, fallback string) (string, error) {
	if xdg := strings.TrimSpace(os.Getenv(env)); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, fallback, appName), nil
}

func expandHome(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw != "~" && !strings.HasPrefix(raw, "~/") {
		return raw
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return raw
	}
	return filepath.Join(home, strings.TrimPrefix(strings.TrimPrefix(raw, "~"), "/"))
}
