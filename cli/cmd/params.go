package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/justapithecus/strata/catalog"
	"github.com/justapithecus/strata/cli/render"
	"github.com/justapithecus/strata/types"
)

// ParamsCommand returns the params command, listing the parameter catalog.
func ParamsCommand() *cli.Command {
	return &cli.Command{
		Name:  "params",
		Usage: "List known parameters",
		Flags: append(ReadOnlyFlags(),
			&cli.StringFlag{
				Name:  "class",
				Usage: "Filter by level class: sfc or pl",
			},
		),
		Action: paramsAction,
	}
}

func paramsAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitInvalid)
	}
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for params", exitInvalid)
	}

	class := types.LevelKind(c.String("class"))
	switch class {
	case "", types.LevelSurface, types.LevelPressure:
	default:
		return cli.Exit("--class must be sfc or pl", exitInvalid)
	}

	entries := []catalog.Entry{}
	for _, e := range catalog.ERAInterim().Entries() {
		if class == "" || e.Class == class {
			entries = append(entries, e)
		}
	}
	return r.Render(entries)
}
