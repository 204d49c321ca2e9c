package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/theimaginaryfoundation/calma/checkin"
)

func main() {
	cfg, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	if err := run(cfg, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	fs.SetOutput(os.Stderr)

	var states string
	fs.StringVar(&cfg.CatalogPath, "catalog", cfg.CatalogPath, "Message catalog (.json, .yaml or .yml)")
	fs.IntVar(&cfg.MinMessages, "min", cfg.MinMessages, "Minimum variants required per state")
	fs.StringVar(&states, "states", "", "Comma separated states to check (default: every state in the catalog)")

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage:\n  %s [flags]\n\nFlags:\n", filepath.Base(os.Args[0]))
		fs.PrintDefaults()
		fmt.Fprintln(fs.Output(), "\nExample:")
		fmt.Fprintln(fs.Output(), "  go run ./cmd/catalog-check -catalog data/mensagens.json -min 5 -states ansioso,triste")
	}

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	cfg.CatalogPath = filepath.Clean(cfg.CatalogPath)
	cfg.States = splitStates(states)
	return cfg, nil
}

// run prints one summary line per catalog state, then checks the minimum over cfg.States.
func run(cfg Config, out io.Writer) error {
	c, err := checkin.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		return err
	}

	for _, s := range c.States() {
		fmt.Fprintf(out, "state=%s variants=%d buckets=%s\n", s, c.Count(s), bucketLabel(c.Buckets(s)))
	}

	if err := c.ValidateMinimum(cfg.States, cfg.MinMessages); err != nil {
		return fmt.Errorf("catalog-check: %w", err)
	}

	checked := len(cfg.States)
	if checked == 0 {
		checked = len(c.States())
	}
	fmt.Fprintf(out, "ok states=%d min=%d\n", checked, cfg.MinMessages)
	return nil
}

func bucketLabel(buckets []int) string {
	if len(buckets) == 0 {
		return "flat"
	}
	parts := make([]string, len(buckets))
	for i, b := range buckets {
		parts[i] = strconv.Itoa(b)
	}
	return strings.Join(parts, ",")
}
