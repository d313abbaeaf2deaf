package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/refract-sh/refract/internal/cache"
)

func cacheCmd() *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Manage the result cache",
		Subcommands: []*cli.Command{
			{
				Name:  "clear",
				Usage: "Remove all cached results",
				Action: func(c *cli.Context) error {
					cfg, err := loadConfig(c)
					if err != nil {
						return cli.Exit(err.Error(), exitFatal)
					}
					store, err := cache.New(cfg.Cache.Dir, cfg.Cache.TTL, true)
					if err != nil {
						return fmt.Errorf("failed to open cache: %w", err)
					}
					if err := store.Clear(); err != nil {
						return fmt.Errorf("failed to clear cache: %w", err)
					}
					color.Green("Cleared %s", cfg.Cache.Dir)
					return nil
				},
			},
		},
	}
}
