package cmd

import (
	"github.com/urfave/cli/v2"
)

// RunCommand returns the run command.
// It runs every request of a plan in order and never stops on a failed
// request; only an interrupt ends the batch early.
func RunCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Fetch every request of a plan",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:  "plan",
				Usage: "Path to a plan file (default: plan section of the config)",
			},
			&cli.BoolFlag{
				Name:  "overwrite",
				Usage: "Replace existing files",
			},
		}, executionFlags()...),
		Action: runAction,
	}
}

func runAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	plan, err := loadPlan(c, cfg)
	if err != nil {
		return invalid("plan", err)
	}
	descs, err := plan.Descriptors()
	if err != nil {
		return invalid("plan", err)
	}
	return execute(c, cfg, descs)
}
