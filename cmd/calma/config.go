package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type Config struct {
	CatalogPath string
	ProfilesDir string
	HistoryDir  string
	MinMessages int
	HistoryLast int
	User        string
	LogLevel    string
}

func (c Config) Validate() error {
	if c.CatalogPath == "" {
		return errors.New("missing -catalog")
	}
	if c.ProfilesDir == "" {
		return errors.New("missing -profiles")
	}
	if c.MinMessages < 0 {
		return errors.New("min-messages must be >= 0")
	}
	if c.HistoryLast < 0 {
		return errors.New("history-last must be >= 0")
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		CatalogPath: filepath.FromSlash("data/mensagens.json"),
		ProfilesDir: filepath.FromSlash("data/perfis"),
		HistoryDir:  "",
		MinMessages: 5,
		HistoryLast: 5,
		LogLevel:    "warn",
	}
}

// applyEnv overrides defaults with CALMA_* variables. Flags still win over both.
func applyEnv(c *Config) error {
	c.CatalogPath = getEnv("CALMA_CATALOG", c.CatalogPath)
	c.ProfilesDir = getEnv("CALMA_PROFILES_DIR", c.ProfilesDir)
	c.HistoryDir = getEnv("CALMA_HISTORY_DIR", c.HistoryDir)
	c.LogLevel = getEnv("CALMA_LOG_LEVEL", c.LogLevel)

	n, err := getIntEnv("CALMA_MIN_MESSAGES", c.MinMessages)
	if err != nil {
		return err
	}
	c.MinMessages = n
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getIntEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: want an integer", key, v)
	}
	return n, nil
}
