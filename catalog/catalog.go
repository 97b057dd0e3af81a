// Package catalog holds the static mapping from parameter short names to
// archive parameter codes.
//
// A Catalog is immutable once built. The ERA-Interim table is constructed
// once at package initialization and shared read-only.
package catalog

import (
	"fmt"
	"sort"

	"github.com/justapithecus/strata/types"
)

// Entry describes one archive parameter.
type Entry struct {
	// Name is the short name used in requests and paths (e.g. "2t").
	Name string `json:"name"`
	// Code is the archive parameter code (e.g. "167").
	Code string `json:"code"`
	// Description is a human-readable label.
	Description string `json:"description"`
	// Class is the level class the parameter is published on.
	Class types.LevelKind `json:"class"`
	// ForecastOnly marks accumulated/derived fields with no analysis (step 0) value.
	ForecastOnly bool `json:"forecast_only"`
}

// Catalog is an immutable lookup of parameters by short name.
type Catalog struct {
	table string
	byKey map[string]Entry
	names []string
}

// New builds a catalog. Names and codes must be non-empty and names unique.
// The table label is appended to codes in archive requests (e.g. "128").
func New(table string, entries ...Entry) (*Catalog, error) {
	c := &Catalog{
		table: table,
		byKey: make(map[string]Entry, len(entries)),
		names: make([]string, 0, len(entries)),
	}
	for _, e := range entries {
		if e.Name == "" || e.Code == "" {
			return nil, fmt.Errorf("catalog entry %+v: name and code are required", e)
		}
		if _, dup := c.byKey[e.Name]; dup {
			return nil, fmt.Errorf("catalog entry %q defined twice", e.Name)
		}
		c.byKey[e.Name] = e
		c.names = append(c.names, e.Name)
	}
	sort.Strings(c.names)
	return c, nil
}

// Lookup returns the entry for name, or *types.UnknownParameterError.
func (c *Catalog) Lookup(name string) (Entry, error) {
	e, ok := c.byKey[name]
	if !ok {
		return Entry{}, &types.UnknownParameterError{Param: name}
	}
	return e, nil
}

// Table returns the parameter table label.
func (c *Catalog) Table() string { return c.table }

// Len returns the number of entries.
func (c *Catalog) Len() int { return len(c.names) }

// Entries returns a copy of all entries sorted by name.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, 0, len(c.names))
	for _, n := range c.names {
		out = append(out, c.byKey[n])
	}
	return out
}

// eraInterim is the ERA-Interim subset of GRIB table 128.
var eraInterim = mustNew("128",
	// Surface, analysed at step 0 and forecast at later steps.
	Entry{Name: "sp", Code: "134", Description: "surface pressure", Class: types.LevelSurface},
	Entry{Name: "tcw", Code: "136", Description: "total column water", Class: types.LevelSurface},
	Entry{Name: "tcwv", Code: "137", Description: "total column water vapour", Class: types.LevelSurface},
	Entry{Name: "msl", Code: "151", Description: "mean sea level pressure", Class: types.LevelSurface},
	Entry{Name: "tcc", Code: "164", Description: "total cloud cover", Class: types.LevelSurface},
	Entry{Name: "10u", Code: "165", Description: "10 metre U wind component", Class: types.LevelSurface},
	Entry{Name: "10v", Code: "166", Description: "10 metre V wind component", Class: types.LevelSurface},
	Entry{Name: "2t", Code: "167", Description: "2 metre temperature", Class: types.LevelSurface},
	Entry{Name: "2d", Code: "168", Description: "2 metre dewpoint temperature", Class: types.LevelSurface},
	Entry{Name: "lcc", Code: "186", Description: "low cloud cover", Class: types.LevelSurface},
	Entry{Name: "mcc", Code: "187", Description: "medium cloud cover", Class: types.LevelSurface},
	Entry{Name: "hcc", Code: "188", Description: "high cloud cover", Class: types.LevelSurface},
	// Surface, forecast steps only.
	Entry{Name: "cape", Code: "59", Description: "convective available potential energy", Class: types.LevelSurface, ForecastOnly: true},
	Entry{Name: "tp", Code: "228", Description: "total precipitation", Class: types.LevelSurface, ForecastOnly: true},
	// Pressure levels.
	Entry{Name: "z", Code: "129", Description: "geopotential", Class: types.LevelPressure},
	Entry{Name: "t", Code: "130", Description: "temperature", Class: types.LevelPressure},
	Entry{Name: "u", Code: "131", Description: "U component of wind", Class: types.LevelPressure},
	Entry{Name: "v", Code: "132", Description: "V component of wind", Class: types.LevelPressure},
	Entry{Name: "q", Code: "133", Description: "specific humidity", Class: types.LevelPressure},
	Entry{Name: "w", Code: "135", Description: "vertical velocity", Class: types.LevelPressure},
	Entry{Name: "vo", Code: "138", Description: "relative vorticity", Class: types.LevelPressure},
	Entry{Name: "r", Code: "157", Description: "relative humidity", Class: types.LevelPressure},
)

// ERAInterim returns the shared ERA-Interim catalog.
func ERAInterim() *Catalog { return eraInterim }

func mustNew(table string, entries ...Entry) *Catalog {
	c, err := New(table, entries...)
	if err != nil {
		panic(err)
	}
	return c
}
