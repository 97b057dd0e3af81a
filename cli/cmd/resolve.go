package cmd

import (
	"os"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/strata/archive"
	"github.com/justapithecus/strata/cli/render"
	"github.com/justapithecus/strata/layout"
	"github.com/justapithecus/strata/types"
)

// ResolveResponse describes where a request would land and what would be
// sent to the archive. Nothing is fetched.
type ResolveResponse struct {
	Param   string            `json:"param"`
	Level   string            `json:"level"`
	Year    string            `json:"year"`
	Step    string            `json:"step"`
	Area    string            `json:"area"`
	Format  types.Format      `json:"format"`
	Path    string            `json:"path"`
	Staging string            `json:"staging"`
	Exists  bool              `json:"exists"`
	Request map[string]string `json:"request"`
}

// ResolveCommand returns the resolve command.
func ResolveCommand() *cli.Command {
	return &cli.Command{
		Name:  "resolve",
		Usage: "Show the output path and archive request without fetching",
		Flags: append(append(descriptorFlags(),
			&cli.StringFlag{
				Name:  "plan",
				Usage: "Resolve every request of a plan file instead of one",
			},
			&cli.BoolFlag{
				Name:  "use-plan",
				Usage: "Resolve the plan section of the config",
			},
		), append(rootFlags(), ReadOnlyFlags()...)...),
		Action: resolveAction,
	}
}

func resolveAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitInvalid)
	}
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for resolve", exitInvalid)
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	var descs []types.Descriptor
	if c.String("plan") != "" || c.Bool("use-plan") {
		plan, err := loadPlan(c, cfg)
		if err != nil {
			return invalid("plan", err)
		}
		if descs, err = plan.Descriptors(); err != nil {
			return invalid("plan", err)
		}
	} else {
		d, err := descriptorFromFlags(c)
		if err != nil {
			return invalid("invalid request", err)
		}
		descs = []types.Descriptor{d}
	}

	resolver := newResolver(cfg)
	out := make([]ResolveResponse, 0, len(descs))
	for _, d := range descs {
		resp, err := resolveOne(resolver, d)
		if err != nil {
			return invalid(d.String(), err)
		}
		out = append(out, resp)
	}

	if len(out) == 1 {
		return r.Render(out[0])
	}
	return r.Render(out)
}

func resolveOne(resolver *layout.Resolver, d types.Descriptor) (ResolveResponse, error) {
	loc, err := resolver.Resolve(d)
	if err != nil {
		return ResolveResponse{}, err
	}
	req, err := archive.Build(d, loc.Entry, resolver.Catalog().Table(), loc.Staging)
	if err != nil {
		return ResolveResponse{}, err
	}
	fields := map[string]string{}
	for _, f := range req.Fields() {
		fields[f.Key] = f.Value
	}
	format := d.Format
	if format == "" {
		format = types.FormatGRIB
	}
	_, statErr := os.Stat(loc.Path())
	return ResolveResponse{
		Param:   d.Param,
		Level:   d.Level.String(),
		Year:    d.Year,
		Step:    d.Step,
		Area:    d.Area.String(),
		Format:  format,
		Path:    loc.Path(),
		Staging: loc.Staging,
		Exists:  statErr == nil,
		Request: fields,
	}, nil
}
