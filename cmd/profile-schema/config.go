package main

import (
	"errors"
	"path/filepath"
)

type Config struct {
	OutputDir string
	Overwrite bool
}

func (c Config) Validate() error {
	if c.OutputDir == "" {
		return errors.New("missing -out")
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		OutputDir: filepath.FromSlash("data/schema"),
	}
}
