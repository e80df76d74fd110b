package config

import (
	"fmt"
	"strings"

	"github.com/mattn/go-shellwords"
)

// parseArgv splits a command string the way a POSIX shell would, without
// expanding variables or running substitutions.
func parseArgv(input string) ([]string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, nil
	}

	parser := shellwords.NewParser()
	argv, err := parser.Parse(input)
	if err != nil {
		return nil, fmt.Errorf("split command %q: %w", input, err)
	}
	if parser.Position >= 0 {
		return nil, fmt.Errorf("command %q contains shell operators", input)
	}
	if len(argv) == 0 {
		return nil, nil
	}
	return argv, nil
}

func parseCommand(field, raw string) (CommandConfig, error) {
	argv, err := parseArgv(raw)
	if err != nil {
		return CommandConfig{}, fmt.Errorf("invalid %s: %w", field, err)
	}
	return CommandConfig{Raw: raw, Argv: argv}, nil
}
