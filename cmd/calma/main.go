package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/theimaginaryfoundation/calma/checkin"
	"github.com/theimaginaryfoundation/calma/internal/observability"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, fmt.Errorf("load .env: %w", err).Error())
		os.Exit(2)
	}

	cfg, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	observability.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, cfg, os.Stdin, os.Stdout, observability.WithFields("cmd", "calma")))
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	fs.SetOutput(os.Stderr)

	fs.StringVar(&cfg.CatalogPath, "catalog", cfg.CatalogPath, "Message catalog (.json, .yaml or .yml)")
	fs.StringVar(&cfg.ProfilesDir, "profiles", cfg.ProfilesDir, "Directory holding one <user>.json profile per user")
	fs.StringVar(&cfg.HistoryDir, "history", cfg.HistoryDir, "Directory for per-user .jsonl session history (empty keeps history in memory)")
	fs.IntVar(&cfg.MinMessages, "min-messages", cfg.MinMessages, "Minimum message variants each menu state must have")
	fs.IntVar(&cfg.HistoryLast, "history-last", cfg.HistoryLast, "How many past sessions to show on exit")
	fs.StringVar(&cfg.User, "user", cfg.User, "User name (skips the name prompt)")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage:\n  %s [flags]\n\nFlags:\n", filepath.Base(os.Args[0]))
		fs.PrintDefaults()
		fmt.Fprintln(fs.Output(), "\nExample:")
		fmt.Fprintln(fs.Output(), "  go run ./cmd/calma -catalog data/mensagens.json -profiles data/perfis -history data/historico")
	}

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	cfg.CatalogPath = filepath.Clean(cfg.CatalogPath)
	cfg.ProfilesDir = filepath.Clean(cfg.ProfilesDir)
	if cfg.HistoryDir != "" {
		cfg.HistoryDir = filepath.Clean(cfg.HistoryDir)
	}
	return cfg, nil
}

// menuOption is one numbered entry of the state menu.
type menuOption struct {
	Key   string
	Emoji string
	State string
}

var defaultMenu = []menuOption{
	{"1", "😟", "ansioso"},
	{"2", "😞", "triste"},
	{"3", "😤", "zangado"},
	{"4", "😴", "cansado"},
	{"5", "😌", "calmo"},
	{"6", "🔥", "motivado"},
}

// menuFor keeps the default menu entries the catalog can serve.
func menuFor(c *checkin.Catalog) []menuOption {
	var out []menuOption
	for _, o := range defaultMenu {
		if c.Has(o.State) {
			out = append(out, o)
		}
	}
	return out
}

func menuStates(menu []menuOption) []string {
	out := make([]string, 0, len(menu))
	for _, o := range menu {
		out = append(out, o.State)
	}
	return out
}

// run drives one interactive process: load and validate the catalog, resolve the user, then
// loop over sessions until the user stops. It returns the process exit code.
func run(ctx context.Context, cfg Config, in io.Reader, out io.Writer, logger *slog.Logger) int {
	ui := newTerminal(in, out)

	catalog, err := checkin.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		ui.warn(err.Error())
		return 1
	}
	menu := menuFor(catalog)
	if len(menu) == 0 {
		ui.warn("Nenhum estado do menu existe no catálogo. Verifica as chaves do ficheiro de mensagens.")
		return 1
	}
	if err := catalog.ValidateMinimum(menuStates(menu), cfg.MinMessages); err != nil {
		var cfgErr *checkin.ConfigurationError
		if errors.As(err, &cfgErr) {
			logger.Error("catalog below minimum", "state", cfgErr.State, "count", cfgErr.Count, "minimum", cfgErr.Minimum)
		}
		ui.warn(fmt.Sprintf("Catálogo inválido: %v", err))
		return 1
	}

	store, err := checkin.NewJSONProfileStore(cfg.ProfilesDir, logger)
	if err != nil {
		ui.warn(err.Error())
		return 1
	}

	ui.header()

	name := cfg.User
	if name == "" {
		var ok bool
		name, ok = ui.ask("Nome de Utilizador: ")
		if !ok {
			return 0
		}
	}

	exists, err := store.Exists(name)
	if err != nil {
		ui.warn(err.Error())
		return 1
	}
	if exists {
		ui.info(fmt.Sprintf("Bem-vindo de volta, %s!", name))
	} else {
		ui.info(fmt.Sprintf("Novo utilizador criado: %s", name))
	}

	profile, err := store.Load(name)
	if err != nil {
		ui.warn(err.Error())
		return 1
	}

	var history checkin.HistoryLog = checkin.NewMemoryHistory(0)
	if cfg.HistoryDir != "" {
		h, err := checkin.NewUserHistory(cfg.HistoryDir, profile.Name)
		if err != nil {
			ui.warn(err.Error())
			return 1
		}
		history = h
	}

	runner, err := checkin.NewRunner(catalog, store, history, checkin.WithLogger(logger))
	if err != nil {
		ui.warn(err.Error())
		return 1
	}

	for {
		opt, ok := ui.askState(menu)
		if !ok {
			break
		}

		res, err := runner.RunSession(ctx, profile, opt.State)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			var se *checkin.StorageError
			if errors.As(err, &se) {
				ui.warn(fmt.Sprintf("Não foi possível guardar (%s). Tento de novo na próxima sessão.", se.Path))
			} else {
				ui.warn(err.Error())
			}
		}

		ui.message(opt, res.Intensity, res.Text)
		ui.info("Stats: " + checkin.Stats(profile, opt.State))

		if !ui.confirm("Queres continuar?") {
			break
		}
	}

	if cfg.HistoryLast > 0 {
		recs, err := runner.History().LastN(cfg.HistoryLast)
		if err != nil {
			ui.warn(err.Error())
			return 1
		}
		ui.history(fmt.Sprintf("Histórico (últimas %d)", cfg.HistoryLast), recs)
	}
	ui.info(fmt.Sprintf("Stats: total=%d, global_mean_intensity=%.2f", profile.TotalSessions, profile.GlobalMeanIntensity()))
	ui.info("Foi um gosto ajudar-te!")
	return 0
}
