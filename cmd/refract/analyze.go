package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/refract-sh/refract/internal/cache"
	"github.com/refract-sh/refract/internal/output"
	"github.com/refract-sh/refract/internal/progress"
	"github.com/refract-sh/refract/internal/report"
	"github.com/refract-sh/refract/internal/scanner"
	"github.com/refract-sh/refract/pkg/analyzer"
	"github.com/refract-sh/refract/pkg/config"
)

func analyzeCmd() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Aliases:   []string{"an"},
		Usage:     "Score functions and report threshold violations",
		ArgsUsage: "[path...]",
		Flags: []cli.Flag{
			&cli.UintFlag{
				Name:  "cyclomatic-limit",
				Usage: "Cyclomatic complexity limit (overrides config)",
			},
			&cli.UintFlag{
				Name:  "cognitive-limit",
				Usage: "Cognitive complexity limit (overrides config)",
			},
			&cli.IntFlag{
				Name:  "nesting-limit",
				Usage: "Nesting depth limit (overrides config)",
			},
			&cli.IntFlag{
				Name:  "line-limit",
				Usage: "Function line count limit (overrides config)",
			},
			&cli.BoolFlag{
				Name:  "average",
				Usage: "Also print the mean cyclomatic complexity",
			},
			&cli.BoolFlag{
				Name:  "all",
				Usage: "List every function, not just violations",
			},
		},
		Action: runAnalyze,
	}
}

func runAnalyze(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), exitFatal)
	}
	applyLimitFlags(c, cfg)
	if err := cfg.Validate(); err != nil {
		return cli.Exit((&config.ConfigError{Err: err}).Error(), exitFatal)
	}

	files, err := scanner.New(cfg).Scan(getPaths(c))
	if err != nil {
		return cli.Exit(fmt.Sprintf("scan failed: %v", err), exitFatal)
	}

	resultCache, err := openCache(c, cfg)
	if err != nil {
		return cli.Exit(fmt.Sprintf("cache unavailable: %v", err), exitFatal)
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := []analyzer.Option{
		analyzer.WithThresholds(cfg.Thresholds),
		analyzer.WithCache(resultCache),
	}
	var tracker *progress.Tracker
	if showProgress(c) && len(files) > 0 {
		tracker = progress.NewTracker("Analyzing...", len(files))
		opts = append(opts, analyzer.WithProgress(tracker.Tick))
	}

	analysis, runErr := analyzer.New(opts...).Analyze(ctx, files)
	if tracker != nil {
		if runErr != nil {
			tracker.FinishError(runErr)
		} else {
			tracker.FinishSuccess()
		}
	}
	if runErr != nil {
		return cli.Exit(fmt.Sprintf("analysis interrupted: %v", runErr), exitFatal)
	}

	rpt := report.New(analysis, report.Options{
		All:     c.Bool("all"),
		Average: c.Bool("average"),
		Verbose: c.Bool("verbose") || cfg.Output.Verbose,
	})

	formatter, err := output.NewFormatter(
		output.ParseFormat(c.String("format")),
		c.String("output"),
		cfg.Output.Color,
	)
	if err != nil {
		return cli.Exit(err.Error(), exitFatal)
	}
	defer formatter.Close()

	if err := formatter.Output(rpt); err != nil {
		return cli.Exit(err.Error(), exitFatal)
	}

	switch code := rpt.ExitCode(); code {
	case report.ExitClean:
		return nil
	case report.ExitNoInput:
		formatter.Warning("no analyzable functions found")
		return cli.Exit("", code)
	default:
		return cli.Exit("", code)
	}
}

// loadConfig honors --config when given, otherwise searches the standard
// locations.
func loadConfig(c *cli.Context) (*config.Config, error) {
	if path := c.String("config"); path != "" {
		return config.Load(path)
	}
	return config.LoadOrDefault()
}

// applyLimitFlags overlays command-line limits onto the loaded config.
func applyLimitFlags(c *cli.Context, cfg *config.Config) {
	t := &cfg.Thresholds
	if c.IsSet("cyclomatic-limit") {
		t.Cyclomatic = uint32(c.Uint("cyclomatic-limit"))
	}
	if c.IsSet("cognitive-limit") {
		t.Cognitive = uint32(c.Uint("cognitive-limit"))
	}
	if c.IsSet("nesting-limit") {
		t.Nesting = c.Int("nesting-limit")
	}
	if c.IsSet("line-limit") {
		t.Lines = c.Int("line-limit")
	}
}

// openCache builds the result cache, disabled by --no-cache or config.
func openCache(c *cli.Context, cfg *config.Config) (*cache.Cache, error) {
	enabled := cfg.Cache.Enabled && !c.Bool("no-cache")
	return cache.New(cfg.Cache.Dir, cfg.Cache.TTL, enabled)
}

// showProgress suppresses the bar for machine-readable formats going to
// stdout.
func showProgress(c *cli.Context) bool {
	return output.ParseFormat(c.String("format")) == output.FormatText && c.String("output") == ""
}
