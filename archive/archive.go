// Package archive defines the boundary to the external reanalysis archive.
//
// A Request is the field set the archive understands (MARS keywords). Build
// maps a logical descriptor onto it; a Client submits it and blocks until the
// result file exists at Request.Target or the call fails. Clients never
// write anywhere but Target, and the core never passes the final path as
// Target.
package archive

import (
	"context"
	"fmt"
	"strings"

	"github.com/justapithecus/strata/catalog"
	"github.com/justapithecus/strata/types"
)

// Fixed ERA-Interim request fields.
const (
	ClassERAInterim = "ei"
	DatasetInterim  = "interim"
	ExpVer          = "1"
	Grid            = "0.75/0.75"
	StreamOper      = "oper"

	TypeAnalysis = "an"
	TypeForecast = "fc"

	LevTypeSurface  = "sfc"
	LevTypePressure = "pl"

	FormatNetCDF = "netcdf"

	// TimesAnalysis are the four synoptic hours of analysis fields.
	TimesAnalysis = "00:00:00/06:00:00/12:00:00/18:00:00"
	// TimesForecast are the two forecast base hours.
	TimesForecast = "00:00:00/12:00:00"
)

// Request is an archive retrieval request.
// Optional fields are omitted from the wire when empty.
type Request struct {
	Class    string `json:"class" msgpack:"class" yaml:"class"`
	Dataset  string `json:"dataset" msgpack:"dataset" yaml:"dataset"`
	Date     string `json:"date" msgpack:"date" yaml:"date"`
	ExpVer   string `json:"expver" msgpack:"expver" yaml:"expver"`
	Grid     string `json:"grid" msgpack:"grid" yaml:"grid"`
	Param    string `json:"param" msgpack:"param" yaml:"param"`
	Step     string `json:"step" msgpack:"step" yaml:"step"`
	Stream   string `json:"stream" msgpack:"stream" yaml:"stream"`
	Type     string `json:"type" msgpack:"type" yaml:"type"`
	Time     string `json:"time" msgpack:"time" yaml:"time"`
	LevType  string `json:"levtype" msgpack:"levtype" yaml:"levtype"`
	Levelist string `json:"levelist,omitempty" msgpack:"levelist,omitempty" yaml:"levelist,omitempty"`
	Area     string `json:"area,omitempty" msgpack:"area,omitempty" yaml:"area,omitempty"`
	Format   string `json:"format,omitempty" msgpack:"format,omitempty" yaml:"format,omitempty"`
	// Target is the local staging path the client must produce.
	Target string `json:"target" msgpack:"target" yaml:"target"`
}

// Build maps d onto archive fields, targeting the staging path.
//
// The mapping is total over valid descriptors and fails fast with
// *types.InvalidLevelError for any level that is neither surface nor pressure.
func Build(d types.Descriptor, entry catalog.Entry, table, target string) (*Request, error) {
	req := &Request{
		Class:   ClassERAInterim,
		Dataset: DatasetInterim,
		Date:    fmt.Sprintf("%s-01-01/to/%s-12-31", d.Year, d.Year),
		ExpVer:  ExpVer,
		Grid:    Grid,
		Param:   entry.Code + "." + table,
		Step:    d.Step,
		Stream:  StreamOper,
		Target:  target,
	}

	if d.IsAnalysis() {
		req.Type = TypeAnalysis
		req.Time = TimesAnalysis
	} else {
		req.Type = TypeForecast
		req.Time = TimesForecast
	}

	switch d.Level.Kind {
	case types.LevelSurface:
		req.LevType = LevTypeSurface
	case types.LevelPressure:
		if d.Level.Pressure <= 0 {
			return nil, &types.InvalidLevelError{Tag: d.Level.String(), Reason: "pressure must be a positive integer in hPa"}
		}
		req.LevType = LevTypePressure
		req.Levelist = fmt.Sprint(d.Level.Pressure)
	default:
		return nil, &types.InvalidLevelError{Tag: string(d.Level.Kind)}
	}

	if !d.Area.Global {
		req.Area = d.Area.Bounds()
	}
	if d.Format.Interchange() {
		req.Format = FormatNetCDF
	}
	return req, nil
}

// Year returns the year encoded in the date range.
func (r *Request) Year() string {
	year, _, _ := strings.Cut(r.Date, "-")
	return year
}

// String renders the request as a compact key=value list for diagnostics.
func (r *Request) String() string {
	var b strings.Builder
	for i, f := range r.Fields() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(f.Key)
		b.WriteString("=")
		b.WriteString(f.Value)
	}
	return b.String()
}

// Field is one named request field.
type Field struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Fields returns the populated fields in a stable order.
func (r *Request) Fields() []Field {
	all := []Field{
		{"class", r.Class},
		{"dataset", r.Dataset},
		{"date", r.Date},
		{"expver", r.ExpVer},
		{"grid", r.Grid},
		{"param", r.Param},
		{"step", r.Step},
		{"stream", r.Stream},
		{"type", r.Type},
		{"time", r.Time},
		{"levtype", r.LevType},
		{"levelist", r.Levelist},
		{"area", r.Area},
		{"format", r.Format},
		{"target", r.Target},
	}
	out := all[:0]
	for _, f := range all {
		if f.Value != "" {
			out = append(out, f)
		}
	}
	return out
}

// Client submits a request and blocks until Target has been written or the
// retrieval failed. No timeout is imposed beyond ctx cancellation.
type Client interface {
	Retrieve(ctx context.Context, req *Request) error
}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, req *Request) error

// Retrieve calls f.
func (f ClientFunc) Retrieve(ctx context.Context, req *Request) error { return f(ctx, req) }
