package config

import (
	"path/filepath"
	"strings"
)

// Parse overlays content onto base. Content whose first non-blank byte is `{`
// is JSONC; anything else is YAML. Blank content yields base.
func Parse(content string, base Config) (Config, []Warning, error) {
	body := strings.TrimSpace(content)
	switch {
	case body == "":
		warnings, err := Validate(base)
		if err != nil {
			return Config{}, nil, err
		}
		return base, warnings, nil
	case body[0] == '{':
		return parseJSONC(content, base)
	default:
		return parseYAML(content, base)
	}
}

// parseFile honours a .yaml or .yml extension before sniffing the content.
func parseFile(path, content string, base Config) (Config, []Warning, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if strings.TrimSpace(content) != "" {
			return parseYAML(content, base)
		}
	}
	return Parse(content, base)
}
