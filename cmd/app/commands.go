package main

import (
	"github.com/urfave/cli/v3"

	"github.com/allisson/fieldcrypt/internal/app"
	"github.com/allisson/fieldcrypt/internal/config"
)

func getCommands(version string) []*cli.Command {
	cmds := []*cli.Command{}
	cmds = append(cmds, getSystemCommands(version)...)
	cmds = append(cmds, getKeyCommands()...)
	cmds = append(cmds, getFieldCommands()...)
	cmds = append(cmds, getBackfillCommands()...)
	return cmds
}

// newContainer loads and validates the configuration and builds a container from it.
func newContainer() (*app.Container, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return app.NewContainer(cfg), nil
}

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Value:   "text",
		Usage:   "Output format: 'text' or 'json'",
	}
}

func valueFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "value",
		Aliases: []string{"v"},
		Usage:   "Value to process (read from stdin when omitted)",
	}
}
