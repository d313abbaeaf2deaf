package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/pelletier/go-toml"
	"github.com/urfave/cli/v2"

	"github.com/refract-sh/refract/pkg/config"
)

func initCmd() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Write a refract.toml with default settings",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "path",
				Aliases: []string{"p"},
				Value:   "refract.toml",
				Usage:   "Config file path to create",
			},
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Overwrite an existing config file",
			},
		},
		Action: runInit,
	}
}

func runInit(c *cli.Context) error {
	path := c.String("path")
	if _, err := os.Stat(path); err == nil && !c.Bool("force") {
		return fmt.Errorf("config file %q already exists (use --force to overwrite)", path)
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %q: %w", dir, err)
		}
	}

	content, err := defaultConfigTOML()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	color.Green("Created %s", path)
	fmt.Println("Edit this file to adjust thresholds and exclusions.")
	return nil
}

func defaultConfigTOML() (string, error) {
	content, err := toml.Marshal(config.DefaultConfig())
	if err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}

	var buf strings.Builder
	buf.WriteString("# Refract configuration\n")
	buf.WriteString("# Documentation: https://github.com/refract-sh/refract\n\n")
	buf.Write(content)
	return buf.String(), nil
}
