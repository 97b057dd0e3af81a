package batch

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/justapithecus/strata/types"
)

// YearRange is an inclusive range of years.
type YearRange struct {
	From int `yaml:"from" json:"from"`
	To   int `yaml:"to" json:"to"`
}

// Years returns the years of the range as four-digit strings.
func (r YearRange) Years() []string {
	if r.To < r.From {
		return nil
	}
	years := make([]string, 0, r.To-r.From+1)
	for y := r.From; y <= r.To; y++ {
		years = append(years, fmt.Sprintf("%04d", y))
	}
	return years
}

// Group is a set of parameters sharing one level and step.
type Group struct {
	Name   string   `yaml:"name,omitempty" json:"name,omitempty"`
	Params []string `yaml:"params" json:"params"`
	// Level is a level tag: "sfc" or "pl<hPa>".
	Level string `yaml:"level" json:"level"`
	Step  int    `yaml:"step" json:"step"`
}

// Plan enumerates the requests of one batch.
type Plan struct {
	Years  YearRange `yaml:"years" json:"years"`
	Area   string    `yaml:"area,omitempty" json:"area,omitempty"`
	Format string    `yaml:"format,omitempty" json:"format,omitempty"`
	// Overwrite re-fetches files that already exist.
	Overwrite bool    `yaml:"overwrite,omitempty" json:"overwrite,omitempty"`
	Groups    []Group `yaml:"groups" json:"groups"`
}

// LoadPlan reads a plan from a YAML file.
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan: %w", err)
	}
	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse plan: %w", err)
	}
	return &p, nil
}

// Validate checks the plan shape. Parameter names are judged by the
// catalog when each request runs.
func (p *Plan) Validate() error {
	var errs []error
	if p.Years.From <= 0 || p.Years.To > 9999 || p.Years.To < p.Years.From {
		errs = append(errs, fmt.Errorf("years: invalid range %d..%d", p.Years.From, p.Years.To))
	}
	if _, err := types.ParseArea(p.Area); err != nil {
		errs = append(errs, err)
	}
	if err := types.Format(p.Format).Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(p.Groups) == 0 {
		errs = append(errs, errors.New("groups: at least one group is required"))
	}
	for i, g := range p.Groups {
		label := g.Name
		if label == "" {
			label = strconv.Itoa(i)
		}
		if len(g.Params) == 0 {
			errs = append(errs, fmt.Errorf("groups[%s]: params must be non-empty", label))
		}
		if _, err := types.ParseLevel(g.Level); err != nil {
			errs = append(errs, fmt.Errorf("groups[%s]: %w", label, err))
		}
		if g.Step < 0 {
			errs = append(errs, fmt.Errorf("groups[%s]: step must be >= 0", label))
		}
	}
	return errors.Join(errs...)
}

// Descriptors enumerates the plan in group, then parameter, then year order.
func (p *Plan) Descriptors() ([]types.Descriptor, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	area, _ := types.ParseArea(p.Area)
	format := types.Format(p.Format)
	if format == "" {
		format = types.FormatGRIB
	}
	years := p.Years.Years()

	var out []types.Descriptor
	for _, g := range p.Groups {
		level, _ := types.ParseLevel(g.Level)
		for _, param := range g.Params {
			for _, year := range years {
				out = append(out, types.Descriptor{
					Param:     param,
					Level:     level,
					Year:      year,
					Step:      strconv.Itoa(g.Step),
					Area:      area,
					Format:    format,
					Overwrite: p.Overwrite,
				})
			}
		}
	}
	return out, nil
}

// Len returns the number of requests the plan enumerates.
func (p *Plan) Len() int {
	n := 0
	for _, g := range p.Groups {
		n += len(g.Params)
	}
	return n * len(p.Years.Years())
}
