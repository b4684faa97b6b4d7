package main

import (
	"context"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/allisson/storefront/cmd/app/commands"
	"github.com/allisson/storefront/internal/app"
	"github.com/allisson/storefront/internal/cdc"
	"github.com/allisson/storefront/internal/config"
)

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Value:   "text",
		Usage:   "Output format: 'text' or 'json'",
	}
}

func getDispatchCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "list-dead-letters",
			Usage: "List actions that exhausted their delivery attempts",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:    "offset",
					Aliases: []string{"o"},
					Value:   0,
					Usage:   "Number of dead letters to skip",
				},
				&cli.IntFlag{
					Name:    "limit",
					Aliases: []string{"l"},
					Value:   50,
					Usage:   "Maximum number of dead letters to list",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				deadLetterUseCase, err := container.DeadLetterUseCase()
				if err != nil {
					return err
				}

				return commands.RunListDeadLetters(
					ctx,
					deadLetterUseCase,
					commands.DefaultIO().Writer,
					int(cmd.Int("offset")),
					int(cmd.Int("limit")),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "clean-dead-letters",
			Usage: "Delete dead letters older than specified days",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:     "days",
					Aliases:  []string{"d"},
					Required: true,
					Usage:    "Delete dead letters older than this many days",
				},
				&cli.BoolFlag{
					Name:    "dry-run",
					Aliases: []string{"n"},
					Value:   false,
					Usage:   "Show how many dead letters would be deleted without deleting",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				deadLetterUseCase, err := container.DeadLetterUseCase()
				if err != nil {
					return err
				}

				return commands.RunCleanDeadLetters(
					ctx,
					deadLetterUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					int(cmd.Int("days")),
					cmd.Bool("dry-run"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "replay-cdc",
			Usage: "Route Debezium change events stored one per line and deliver the resulting actions",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "file",
					Aliases:  []string{"i"},
					Required: true,
					Usage:    "Path to a file with one Debezium message per line",
				},
				&cli.DurationFlag{
					Name:    "timeout",
					Aliases: []string{"t"},
					Value:   0,
					Usage:   "Maximum time to wait for pending actions (0 waits indefinitely)",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				scheduler, err := container.Scheduler()
				if err != nil {
					return err
				}

				routerUseCase, err := container.RouterUseCase()
				if err != nil {
					return err
				}

				feed, err := cdc.OpenFileFeed(cmd.String("file"))
				if err != nil {
					return err
				}
				defer func() {
					if err := feed.Close(ctx); err != nil {
						container.Logger().Error("failed to close replay file", slog.Any("error", err))
					}
				}()

				return commands.RunReplayCDC(
					ctx,
					scheduler,
					routerUseCase,
					feed,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.Duration("timeout"),
					cmd.String("format"),
				)
			},
		},
	}
}
