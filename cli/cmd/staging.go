package cmd

import (
	"time"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/strata/cli/reader"
	"github.com/justapithecus/strata/cli/render"
)

// StagingCommand returns the staging command with subcommands.
func StagingCommand() *cli.Command {
	return &cli.Command{
		Name:  "staging",
		Usage: "Manage staging files",
		Subcommands: []*cli.Command{
			stagingCleanCommand(),
		},
	}
}

func stagingCleanCommand() *cli.Command {
	return &cli.Command{
		Name:  "clean",
		Usage: "Remove leftover temp_ staging files",
		Flags: append(append(rootFlags(), FormatFlag, NoColorFlag),
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "List files without removing them",
			},
			&cli.DurationFlag{
				Name:  "older-than",
				Usage: "Only touch files not modified for this long",
				Value: time.Hour,
			},
		),
		Action: stagingCleanAction,
	}
}

func stagingCleanAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitInvalid)
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	files, err := reader.New(cfg.Root, cfg.StagingDir, nil).CleanStaging(c.Duration("older-than"), c.Bool("dry-run"))
	logs := newLogger(c, nil).Sugar()
	for _, f := range files {
		if f.Removed {
			logs.Infof("removed staging file %s (idle %s)", f.Path, f.Age.Round(time.Second))
		}
	}
	if renderErr := r.Render(files); renderErr != nil {
		return renderErr
	}
	return err
}
