package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/theimaginaryfoundation/calma/checkin"
	"github.com/theimaginaryfoundation/calma/checkin/fileutils"
	"github.com/theimaginaryfoundation/calma/checkin/schema"
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

	fs.StringVar(&cfg.OutputDir, "out", cfg.OutputDir, "Directory to write the schema files into")
	fs.BoolVar(&cfg.Overwrite, "overwrite", cfg.Overwrite, "Overwrite existing schema files")

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage:\n  %s [flags]\n\nFlags:\n", filepath.Base(os.Args[0]))
		fs.PrintDefaults()
		fmt.Fprintln(fs.Output(), "\nExample:")
		fmt.Fprintln(fs.Output(), "  go run ./cmd/profile-schema -out data/schema -overwrite")
	}

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	cfg.OutputDir = filepath.Clean(cfg.OutputDir)
	return cfg, nil
}

type schemaFile struct {
	name     string
	generate func() (map[string]any, error)
}

var schemaFiles = []schemaFile{
	{"profile.schema.json", schema.Generate[checkin.UserProfile]},
	{"history_record.schema.json", schema.Generate[checkin.HistoryRecord]},
}

func run(cfg Config, out io.Writer) error {
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("mkdir output dir: %w", err)
	}

	for _, f := range schemaFiles {
		path := filepath.Join(cfg.OutputDir, f.name)
		if !cfg.Overwrite && fileutils.FileExists(path) {
			fmt.Fprintf(out, "skip=%s\n", path)
			continue
		}
		m, err := f.generate()
		if err != nil {
			return fmt.Errorf("generate %s: %w", f.name, err)
		}
		if err := fileutils.WriteJSONFileAtomic(path, m, true); err != nil {
			return fmt.Errorf("write %s: %w", f.name, err)
		}
		fmt.Fprintf(out, "wrote=%s properties=%d\n", path, len(schema.PropertyNames(m)))
	}
	return nil
}
