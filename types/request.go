// Package types defines core domain types shared by the strata packages.
//
//nolint:revive // types is a common Go package naming convention
package types

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// LevelKind discriminates the vertical coordinate of a request.
type LevelKind string

const (
	// LevelSurface is the single-level surface field.
	LevelSurface LevelKind = "sfc"
	// LevelPressure is an isobaric level carrying a pressure in hPa.
	LevelPressure LevelKind = "pl"
)

// Level is the vertical coordinate of a request.
type Level struct {
	Kind LevelKind `json:"kind" yaml:"kind"`
	// Pressure is the isobaric level in hPa. Only meaningful for LevelPressure.
	Pressure int `json:"pressure,omitempty" yaml:"pressure,omitempty"`
}

// Surface returns the surface level.
func Surface() Level { return Level{Kind: LevelSurface} }

// Pressure returns the isobaric level at hPa.
func Pressure(hPa int) Level { return Level{Kind: LevelPressure, Pressure: hPa} }

// ParseLevel parses a level tag.
// Accepted spellings: "sfc", "surface", "pl<hPa>", "pressure:<hPa>".
func ParseLevel(s string) (Level, error) {
	tag := strings.TrimSpace(s)
	switch {
	case tag == "sfc" || tag == "surface":
		return Surface(), nil
	case strings.HasPrefix(tag, "pressure:"):
		return parsePressure(s, strings.TrimPrefix(tag, "pressure:"))
	case strings.HasPrefix(tag, "pl"):
		return parsePressure(s, strings.TrimPrefix(tag, "pl"))
	default:
		return Level{}, &InvalidLevelError{Tag: s}
	}
}

func parsePressure(tag, value string) (Level, error) {
	if !isDigits(value) {
		return Level{}, &InvalidLevelError{Tag: tag, Reason: "pressure must be a positive integer in hPa"}
	}
	hPa, err := strconv.Atoi(value)
	if err != nil || hPa <= 0 {
		return Level{}, &InvalidLevelError{Tag: tag, Reason: "pressure must be a positive integer in hPa"}
	}
	return Pressure(hPa), nil
}

// Validate reports whether the level is one of the two known kinds.
func (l Level) Validate() error {
	switch l.Kind {
	case LevelSurface:
		return nil
	case LevelPressure:
		if l.Pressure <= 0 {
			return &InvalidLevelError{Tag: l.String(), Reason: "pressure must be a positive integer in hPa"}
		}
		return nil
	default:
		return &InvalidLevelError{Tag: string(l.Kind)}
	}
}

// Token returns the layout token: "sfc" or "pl<hPa>".
// Returns "" for an invalid level.
func (l Level) Token() string {
	switch l.Kind {
	case LevelSurface:
		return "sfc"
	case LevelPressure:
		return "pl" + strconv.Itoa(l.Pressure)
	default:
		return ""
	}
}

func (l Level) String() string {
	if tok := l.Token(); tok != "" {
		return tok
	}
	return string(l.Kind)
}

// Area is either the full global grid or a N/W/S/E bounding box in degrees.
type Area struct {
	Global bool    `json:"global" yaml:"global"`
	North  float64 `json:"north,omitempty" yaml:"north,omitempty"`
	West   float64 `json:"west,omitempty" yaml:"west,omitempty"`
	South  float64 `json:"south,omitempty" yaml:"south,omitempty"`
	East   float64 `json:"east,omitempty" yaml:"east,omitempty"`
}

// GlobalToken is the spelling of the global area in flags, configs and paths.
const GlobalToken = "Glb"

// Global returns the global area.
func Global() Area { return Area{Global: true} }

// Bounds returns a bounding-box area.
func Bounds(north, west, south, east float64) Area {
	return Area{North: north, West: west, South: south, East: east}
}

// ParseArea parses "Glb", "global" (or empty) and "N/W/S/E".
func ParseArea(s string) (Area, error) {
	v := strings.TrimSpace(s)
	if v == "" || v == GlobalToken || strings.EqualFold(v, "global") {
		return Global(), nil
	}
	parts := strings.Split(v, "/")
	if len(parts) != 4 {
		return Area{}, &InvalidRequestError{Field: "area", Value: s, Reason: "expected N/W/S/E"}
	}
	var bounds [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Area{}, &InvalidRequestError{Field: "area", Value: s, Reason: fmt.Sprintf("bound %q is not a number", p)}
		}
		bounds[i] = f
	}
	a := Bounds(bounds[0], bounds[1], bounds[2], bounds[3])
	if err := a.Validate(); err != nil {
		return Area{}, err
	}
	return a, nil
}

// Validate checks that the bounds describe a real box. The zero Area is a
// single point at 0/0 and is rejected; callers wanting the full grid must
// use Global.
func (a Area) Validate() error {
	if a.Global {
		return nil
	}
	for _, f := range []float64{a.North, a.West, a.South, a.East} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return &InvalidRequestError{Field: "area", Value: a.String(), Reason: "bounds must be finite"}
		}
	}
	switch {
	case a.North > 90 || a.South < -90:
		return &InvalidRequestError{Field: "area", Value: a.String(), Reason: "latitude out of [-90, 90]"}
	case a.South > a.North:
		return &InvalidRequestError{Field: "area", Value: a.String(), Reason: "south bound is north of north bound"}
	case a.North == a.South && a.West == a.East:
		return &InvalidRequestError{Field: "area", Value: a.String(), Reason: "box is a single point"}
	case a.West < -360 || a.West > 360 || a.East < -360 || a.East > 360:
		return &InvalidRequestError{Field: "area", Value: a.String(), Reason: "longitude out of [-360, 360]"}
	}
	return nil
}

// Components returns the canonical text of N, W, S, E in that order.
// Numerically equal bounds always produce identical text.
func (a Area) Components() [4]string {
	return [4]string{
		FormatCoord(a.North),
		FormatCoord(a.West),
		FormatCoord(a.South),
		FormatCoord(a.East),
	}
}

// Bounds returns the archive spelling "N/W/S/E", or "" for the global area.
func (a Area) Bounds() string {
	if a.Global {
		return ""
	}
	c := a.Components()
	return strings.Join(c[:], "/")
}

func (a Area) String() string {
	if a.Global {
		return GlobalToken
	}
	return a.Bounds()
}

// FormatCoord formats a coordinate in its shortest decimal form.
// Negative zero is written as "0".
func FormatCoord(f float64) string {
	if f == 0 {
		return "0"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Format selects the archive output encoding.
type Format string

const (
	// FormatGRIB is the native grid-encoded binary format.
	FormatGRIB Format = "grib"
	// FormatNetCDF is the self-describing interchange format.
	FormatNetCDF Format = "netcdf"
)

// FormatFromFlag maps the boolean netcdf flag used by the CLI and plans.
func FormatFromFlag(netcdf bool) Format {
	if netcdf {
		return FormatNetCDF
	}
	return FormatGRIB
}

// Interchange reports whether f is the interchange (NetCDF) format.
func (f Format) Interchange() bool { return f == FormatNetCDF }

// Validate rejects unknown formats. The empty format is treated as GRIB.
func (f Format) Validate() error {
	switch f {
	case FormatGRIB, FormatNetCDF, "":
		return nil
	default:
		return &InvalidRequestError{Field: "format", Value: string(f), Reason: "must be grib or netcdf"}
	}
}

// Descriptor is the logical request for one parameter, level, step and year.
type Descriptor struct {
	Param     string `json:"param" yaml:"param"`
	Level     Level  `json:"level" yaml:"level"`
	Year      string `json:"year" yaml:"year"`
	Step      string `json:"step" yaml:"step"`
	Area      Area   `json:"area" yaml:"area"`
	Format    Format `json:"format" yaml:"format"`
	Overwrite bool   `json:"overwrite" yaml:"overwrite"`
}

// AnalysisStep is the step value that selects analysis fields.
const AnalysisStep = "0"

// IsAnalysis reports whether the descriptor selects analysis fields.
func (d Descriptor) IsAnalysis() bool { return d.Step == AnalysisStep }

// Validate checks everything except the parameter name, which only the
// catalog can judge.
//
// Year must be four digits. Step must be a canonical non-negative integer
// (no sign, no leading zeros) so that it is safe to embed in a filename and
// distinct spellings never alias the same lead time.
func (d Descriptor) Validate() error {
	if err := d.Level.Validate(); err != nil {
		return err
	}
	if len(d.Year) != 4 || !isDigits(d.Year) {
		return &InvalidRequestError{Field: "year", Value: d.Year, Reason: "must be four digits"}
	}
	if !isDigits(d.Step) || (len(d.Step) > 1 && d.Step[0] == '0') {
		return &InvalidRequestError{Field: "step", Value: d.Step, Reason: "must be a non-negative integer without leading zeros"}
	}
	if err := d.Area.Validate(); err != nil {
		return err
	}
	return d.Format.Validate()
}

func (d Descriptor) String() string {
	format := d.Format
	if format == "" {
		format = FormatGRIB
	}
	return fmt.Sprintf("param=%s level=%s year=%s step=%s area=%s format=%s",
		d.Param, d.Level, d.Year, d.Step, d.Area, format)
}

// Fields returns the descriptor as flat log/journal fields.
func (d Descriptor) Fields() map[string]any {
	format := d.Format
	if format == "" {
		format = FormatGRIB
	}
	return map[string]any{
		"param":     d.Param,
		"level":     d.Level.String(),
		"year":      d.Year,
		"step":      d.Step,
		"area":      d.Area.String(),
		"format":    string(format),
		"overwrite": d.Overwrite,
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
