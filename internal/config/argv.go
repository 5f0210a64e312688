package config

import (
	"fmt"
	"strings"

	"github.com/mattn/go-shellwords"
)

// parseArgv splits window.shell into argv with shell quoting rules. Pipes,
// redirects and command separators are rejected since no shell runs it.
func parseArgv(input string) ([]string, error) {
	input = strings.TrimSpace(input)
	if input == "" || strings.HasPrefix(input, "#") {
		return nil, nil
	}

	parser := shellwords.NewParser()
	argv, err := parser.Parse(input)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", input, err)
	}
	if parser.Position >= 0 {
		return nil, fmt.Errorf("%q: shell operator at offset %d", input, parser.Position)
	}
	return argv, nil
}
