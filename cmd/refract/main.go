package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
)

var (
	version = "dev"
	commit  = "none"    //nolint:unused // set via ldflags at build time
	date    = "unknown" //nolint:unused // set via ldflags at build time
)

// exitFatal is the exit code for configuration and I/O failures, distinct
// from threshold violations (1) and empty input (2).
const exitFatal = 3

func main() {
	app := &cli.App{
		Name:    "refract",
		Usage:   "Complexity analysis and refactoring suggestions for Go code",
		Version: version,
		Description: `Refract scores every function's cyclomatic and cognitive complexity,
nesting depth, and length, flags the ones over your thresholds, and suggests
which refactoring pattern would bring each one back under.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file (TOML, YAML, or JSON)",
				EnvVars: []string{"REFRACT_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   "text",
				Usage:   "Output format: text, json, markdown",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write output to file",
			},
			&cli.BoolFlag{
				Name:  "no-cache",
				Usage: "Disable result caching",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Include skipped units and score statistics",
			},
		},
		Commands: []*cli.Command{
			analyzeCmd(),
			initCmd(),
			cacheCmd(),
		},
	}

	// cli.Exit errors are handled inside Run; anything else is fatal.
	if err := app.Run(os.Args); err != nil {
		color.Red("Error: %v", err)
		os.Exit(exitFatal)
	}
}

// getPaths returns positional args, defaulting to the current directory.
func getPaths(c *cli.Context) []string {
	if c.Args().Len() > 0 {
		return c.Args().Slice()
	}
	return []string{"."}
}
