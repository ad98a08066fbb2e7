package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tempoeng/gnprules/sdk/config"
	"github.com/tempoeng/gnprules/sdk/engine"
	"github.com/tempoeng/gnprules/sdk/engineerr"
	"github.com/tempoeng/gnprules/sdk/ingest"
	"github.com/tempoeng/gnprules/sdk/report"
)

var cli struct {
	Dataset string `arg:"" optional:"" help:"dataset variant name; reads <data-dir>/<name>.csv, writes <out-dir>/<name>/"`

	All     bool   `help:"process every *.csv in data-dir instead of a single dataset"`
	Debug   bool   `help:"enable debug logging"`
	DataDir string `help:"directory holding dataset CSV files" default:"data"`
	OutDir  string `help:"directory to write reports into" default:"out"`
	Config  string `help:"path to an HCL config file" default:"gnpminer.hcl"`
	Seed    int64  `help:"override the configured random seed (0 keeps the config's)" default:"0"`
}

func main() {
	kong.Parse(&cli,
		kong.Name("gnpminer"),
		kong.Description("temporal association rule miner over binary-attribute time series"),
		kong.UsageOnError(),
	)

	setupLogger(cli.Debug)

	cfg, err := config.Load(cli.Config)
	if err != nil {
		log.Fatal().Err(err).Msg("loading config")
	}

	if cli.All {
		os.Exit(runBatch(cfg))
	}

	if cli.Dataset == "" {
		log.Error().Msg("dataset variant required unless --all is set")
		os.Exit(1)
	}

	if err := runOne(cfg, cli.Dataset); err != nil {
		if errors.Is(err, engineerr.ErrMissingInput) {
			log.Error().Err(err).Str("variant", cli.Dataset).Msg("dataset not found")
		} else {
			log.Error().Err(err).Str("variant", cli.Dataset).Msg("mining run failed")
		}
		os.Exit(1)
	}
}

func setupLogger(debug bool) {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level)
}

// runBatch iterates every *.csv in cli.DataDir. A missing or malformed
// individual dataset is logged and skipped, not fatal to the batch
// (spec.md §7.2); the overall exit code still reflects whether any
// variant failed.
func runBatch(cfg config.Config) int {
	matches, err := filepath.Glob(filepath.Join(cli.DataDir, "*.csv"))
	if err != nil {
		log.Fatal().Err(err).Msg("listing data directory")
	}
	if len(matches) == 0 {
		log.Warn().Str("dir", cli.DataDir).Msg("no CSV datasets found")
	}

	failed := false
	for _, path := range matches {
		variant := strings.TrimSuffix(filepath.Base(path), ".csv")
		if err := runOne(cfg, variant); err != nil {
			log.Error().Err(err).Str("variant", variant).Msg("variant failed, continuing batch")
			failed = true
		}
	}
	if failed {
		return 1
	}
	return 0
}

// runOne loads one dataset variant, runs the engine to completion and
// writes its reports under <out-dir>/<variant>/.
func runOne(cfg config.Config, variant string) error {
	path := filepath.Join(cli.DataDir, variant+".csv")
	ds, names, err := ingest.LoadCSV(path, cfg.DMax, cfg.Horizon)
	if err != nil {
		return err
	}

	eng, err := engine.New(cfg, ds, cli.Seed)
	if err != nil {
		return fmt.Errorf("configuring engine: %w", err)
	}

	stop := attachProgress(eng, cfg, variant)
	defer stop()

	p, err := eng.Run(context.Background())
	if err != nil {
		return fmt.Errorf("running engine: %w", err)
	}

	outDir := filepath.Join(cli.OutDir, variant)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	if err := report.WriteSummaryFile(filepath.Join(outDir, "summary.tsv"), p, names); err != nil {
		log.Error().Err(err).Str("variant", variant).Msg("writing summary failed")
	}
	for i, r := range p.Rules() {
		witnessPath := filepath.Join(outDir, fmt.Sprintf("rule_%04d.csv", i))
		if err := report.WriteWitnessFile(witnessPath, r, ds, names); err != nil {
			log.Error().Err(err).Str("variant", variant).Int("rule", i).Msg("writing witness file failed")
		}
	}

	log.Info().Str("variant", variant).Int("rules", p.Len()).Msg("mining run complete")
	return nil
}

// attachProgress wires a config.ProgressEvery-gated zerolog line (always)
// plus, when stdout is a TTY, a live Bubble Tea view on top of it
// (grounded on internal/display/tui.go's Program usage, generalized from
// a poker game log to a trial/rule counter). The engine's ProgressFunc is
// a plain func; it never depends on the TUI being present.
func attachProgress(eng *engine.Engine, cfg config.Config, variant string) (stop func()) {
	var program *tea.Program
	if isatty.IsTerminal(os.Stdout.Fd()) {
		program = tea.NewProgram(newProgressModel(cfg.Ntry))
		go func() {
			if _, err := program.Run(); err != nil {
				log.Debug().Err(err).Msg("progress view exited")
			}
		}()
	}

	eng.WithProgress(func(trial int, rulesFound int) {
		log.Info().Str("variant", variant).Int("trial", trial).Int("ntry", cfg.Ntry).Int("rules", rulesFound).Msg("progress")
		if program != nil {
			program.Send(progressMsg{trial: trial, totalTrial: cfg.Ntry, rulesFound: rulesFound})
		}
	})

	return func() {
		if program != nil {
			program.Send(doneMsg{})
		}
	}
}
