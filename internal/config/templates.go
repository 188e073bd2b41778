package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const (
	KindAgent = "agent"
	KindLLM   = "llm"
)

// Template renders the default config of kind as TOML.
func Template(kind string) (string, error) {
	var (
		header string
		v      any
	)
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case KindAgent:
		header = "# rsvpctl manager agent\n"
		v = DefaultAgentConfig()
	case KindLLM:
		header = "# rsvpctl structured-output simulator\n"
		v = DefaultLLMConfig()
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
	body, err := toml.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("render %s template: %w", kind, err)
	}
	return header + string(body), nil
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

// Validate loads and validates the file at path as kind.
func Validate(path, kind string) error {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case KindAgent:
		_, err := LoadAgentConfig(path)
		return err
	case KindLLM:
		_, err := LoadLLMConfig(path)
		return err
	default:
		return fmt.Errorf("unknown config kind: %s", kind)
	}
}
