package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/fieldcrypt/cmd/app/commands"
)

func targetFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:     "target",
			Aliases:  []string{"t"},
			Required: true,
			Usage:    "Column to process as table.column (repeatable)",
		},
		&cli.StringFlag{
			Name:  "id-column",
			Value: "",
			Usage: "Primary key column used for paging (defaults to BACKFILL_ID_COLUMN)",
		},
		formatFlag(),
	}
}

func idColumn(cmd *cli.Command, fallback string) string {
	if v := cmd.String("id-column"); v != "" {
		return v
	}
	return fallback
}

func getBackfillCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "backfill",
			Usage: "Encrypt existing plaintext values in place",
			Flags: append(targetFlags(), &cli.BoolFlag{
				Name:    "dry-run",
				Aliases: []string{"n"},
				Value:   false,
				Usage:   "Count the rows that would be encrypted without writing",
			}),
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container, err := newContainer()
				if err != nil {
					return err
				}
				defer func() { _ = container.Shutdown(ctx) }()

				useCase, err := container.BackfillUseCase()
				if err != nil {
					return err
				}

				return commands.RunBackfill(
					ctx,
					useCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.StringSlice("target"),
					idColumn(cmd, container.Config().BackfillIDColumn),
					cmd.Bool("dry-run"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "audit",
			Usage: "Strictly decrypt every envelope and report undecryptable values",
			Flags: targetFlags(),
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container, err := newContainer()
				if err != nil {
					return err
				}
				defer func() { _ = container.Shutdown(ctx) }()

				useCase, err := container.BackfillUseCase()
				if err != nil {
					return err
				}

				return commands.RunAudit(
					ctx,
					useCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.StringSlice("target"),
					idColumn(cmd, container.Config().BackfillIDColumn),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "runs",
			Usage: "List recent backfill and audit runs",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:    "limit",
					Aliases: []string{"l"},
					Value:   20,
					Usage:   "Maximum number of runs to show",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container, err := newContainer()
				if err != nil {
					return err
				}
				defer func() { _ = container.Shutdown(ctx) }()

				useCase, err := container.BackfillUseCase()
				if err != nil {
					return err
				}

				return commands.RunListRuns(
					ctx,
					useCase,
					commands.DefaultIO().Writer,
					int(cmd.Int("limit")),
					cmd.String("format"),
				)
			},
		},
	}
}
