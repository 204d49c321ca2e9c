package main

import (
	"errors"
	"path/filepath"
	"strings"
)

type Config struct {
	CatalogPath string
	MinMessages int
	States      []string
}

func (c Config) Validate() error {
	if c.CatalogPath == "" {
		return errors.New("missing -catalog")
	}
	if c.MinMessages < 0 {
		return errors.New("min must be >= 0")
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		CatalogPath: filepath.FromSlash("data/mensagens.json"),
		MinMessages: 5,
	}
}

// splitStates parses a comma separated -states value, dropping blanks.
func splitStates(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
