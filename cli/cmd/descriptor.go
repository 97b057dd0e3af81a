package cmd

import (
	"errors"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/strata/batch"
	"github.com/justapithecus/strata/cli/config"
	"github.com/justapithecus/strata/types"
)

// descriptorFromFlags builds one descriptor from the descriptor flags.
// The parameter name is checked later by the catalog.
func descriptorFromFlags(c *cli.Context) (types.Descriptor, error) {
	level, err := types.ParseLevel(c.String("level"))
	if err != nil {
		return types.Descriptor{}, err
	}
	area, err := types.ParseArea(c.String("area"))
	if err != nil {
		return types.Descriptor{}, err
	}
	d := types.Descriptor{
		Param:     c.String("param"),
		Level:     level,
		Year:      c.String("year"),
		Step:      c.String("step"),
		Area:      area,
		Format:    types.FormatFromFlag(c.Bool("netcdf")),
		Overwrite: c.Bool("overwrite"),
	}
	if d.Param == "" {
		return types.Descriptor{}, errors.New("--param is required")
	}
	if err := d.Validate(); err != nil {
		return types.Descriptor{}, err
	}
	return d, nil
}

// loadPlan returns the plan named by --plan, else the config plan.
func loadPlan(c *cli.Context, cfg *config.Config) (*batch.Plan, error) {
	plan := cfg.Plan
	if path := c.String("plan"); path != "" {
		p, err := batch.LoadPlan(path)
		if err != nil {
			return nil, err
		}
		plan = p
	}
	if plan == nil {
		return nil, errors.New("no plan: pass --plan or add a plan section to the config")
	}
	if c.Bool("overwrite") {
		plan.Overwrite = true
	}
	return plan, nil
}
