package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/strata/cli/reader"
	"github.com/justapithecus/strata/cli/render"
	"github.com/justapithecus/strata/journal"
)

// historyWarningThreshold triggers a --limit hint on a TTY.
const historyWarningThreshold = 500

// HistoryCommand returns the history command with subcommands.
// History reads the outcome journal only.
func HistoryCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Query the outcome journal",
		Subcommands: []*cli.Command{
			historyOutcomesCommand(),
			historyBatchesCommand(),
		},
	}
}

func historyFlags() []cli.Flag {
	return append(ReadOnlyFlags(),
		&cli.StringFlag{
			Name:  "batch",
			Usage: "Filter by batch ID",
		},
		&cli.StringFlag{
			Name:  "day",
			Usage: "Filter by journal day (YYYY-MM-DD, UTC)",
		},
		&cli.IntFlag{
			Name:  "limit",
			Usage: "Maximum number of records to return (0 = no limit)",
		},
	)
}

func historyOutcomesCommand() *cli.Command {
	return &cli.Command{
		Name:  "outcomes",
		Usage: "List per-request outcomes",
		Flags: append(historyFlags(),
			&cli.StringFlag{
				Name:  "status",
				Usage: "Filter by status: created, already_exists, failed",
			},
			&cli.StringFlag{
				Name:  "param",
				Usage: "Filter by parameter",
			},
		),
		Action: historyOutcomesAction,
	}
}

func historyBatchesCommand() *cli.Command {
	return &cli.Command{
		Name:   "batches",
		Usage:  "List batch summaries, newest first",
		Flags:  historyFlags(),
		Action: historyBatchesAction,
	}
}

// historyReader prepares the renderer and a reader over the journal.
func historyReader(c *cli.Context) (*render.Renderer, *reader.Reader, error) {
	r, err := render.NewRenderer(c)
	if err != nil {
		return nil, nil, cli.Exit(err.Error(), exitInvalid)
	}
	if c.Bool("tui") {
		return nil, nil, cli.Exit("--tui is not supported for history commands", exitInvalid)
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}
	ds, err := openJournalDataset(c.Context, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open journal: %w", err)
	}
	return r, reader.New(cfg.Root, cfg.StagingDir, ds), nil
}

func historyOutcomesAction(c *cli.Context) error {
	r, rd, err := historyReader(c)
	if err != nil {
		return err
	}
	out, err := rd.Outcomes(c.Context, journal.Filter{
		BatchID: c.String("batch"),
		Day:     c.String("day"),
		Status:  c.String("status"),
		Param:   c.String("param"),
	})
	if err != nil {
		return historyError(err)
	}
	return r.Render(limit(c, out))
}

func historyBatchesAction(c *cli.Context) error {
	r, rd, err := historyReader(c)
	if err != nil {
		return err
	}
	out, err := rd.Batches(c.Context, journal.Filter{
		BatchID: c.String("batch"),
		Day:     c.String("day"),
	})
	if err != nil {
		return historyError(err)
	}
	return r.Render(limit(c, out))
}

func historyError(err error) error {
	if errors.Is(err, reader.ErrNoJournal) {
		return cli.Exit(err.Error(), exitInvalid)
	}
	return err
}

// limit truncates to --limit, warning on a TTY when a large result was
// returned without one.
func limit[T any](c *cli.Context, out []T) []T {
	n := c.Int("limit")
	if n > 0 && len(out) > n {
		return out[:n]
	}
	if n == 0 && len(out) > historyWarningThreshold && isStderrTTY() {
		fmt.Fprintf(os.Stderr, "Warning: returning %d results. Consider using --limit to reduce output.\n\n", len(out))
	}
	return out
}
