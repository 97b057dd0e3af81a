package archive

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/justapithecus/strata/catalog"
	"github.com/justapithecus/strata/types"
)

func entry(t *testing.T, name string) catalog.Entry {
	t.Helper()
	e, err := catalog.ERAInterim().Lookup(name)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestBuild_SurfaceAnalysis(t *testing.T) {
	d := types.Descriptor{Param: "2t", Level: types.Surface(), Year: "1990", Step: "0", Area: types.Global(), Format: types.FormatGRIB}
	req, err := Build(d, entry(t, "2t"), "128", "data/temp_ei_2t_167_sfc_0_1990.grb")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	want := Request{
		Class:   "ei",
		Dataset: "interim",
		Date:    "1990-01-01/to/1990-12-31",
		ExpVer:  "1",
		Grid:    "0.75/0.75",
		Param:   "167.128",
		Step:    "0",
		Stream:  "oper",
		Type:    "an",
		Time:    "00:00:00/06:00:00/12:00:00/18:00:00",
		LevType: "sfc",
		Target:  "data/temp_ei_2t_167_sfc_0_1990.grb",
	}
	if *req != want {
		t.Errorf("Build() =\n%+v\nwant\n%+v", *req, want)
	}
}

func TestBuild_ForecastPressureBoundedNetCDF(t *testing.T) {
	d := types.Descriptor{
		Param:  "u",
		Level:  types.Pressure(850),
		Year:   "2005",
		Step:   "3",
		Area:   types.Bounds(30, 60, -20, 150),
		Format: types.FormatNetCDF,
	}
	req, err := Build(d, entry(t, "u"), "128", "staging/x")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if req.Type != TypeForecast || req.Time != TimesForecast {
		t.Errorf("type/time = %q/%q, want fc/00:00:00/12:00:00", req.Type, req.Time)
	}
	if req.Step != "3" {
		t.Errorf("step = %q", req.Step)
	}
	if req.LevType != "pl" || req.Levelist != "850" {
		t.Errorf("levtype/levelist = %q/%q", req.LevType, req.Levelist)
	}
	if req.Area != "30/60/-20/150" {
		t.Errorf("area = %q", req.Area)
	}
	if req.Format != "netcdf" {
		t.Errorf("format = %q", req.Format)
	}
	if req.Param != "131.128" {
		t.Errorf("param = %q", req.Param)
	}
	if req.Year() != "2005" {
		t.Errorf("Year() = %q", req.Year())
	}
}

func TestBuild_RejectsUnknownLevel(t *testing.T) {
	d := types.Descriptor{Param: "2t", Level: types.Level{Kind: "ml"}, Year: "1990", Step: "0", Area: types.Global()}
	_, err := Build(d, entry(t, "2t"), "128", "x")
	var levelErr *types.InvalidLevelError
	if !errors.As(err, &levelErr) {
		t.Fatalf("Build error = %v, want *InvalidLevelError", err)
	}

	d.Level = types.Level{Kind: types.LevelPressure}
	if _, err := Build(d, entry(t, "2t"), "128", "x"); !errors.As(err, &levelErr) {
		t.Fatalf("pressure without value: err = %v", err)
	}
}

func TestRequestJSON_OmitsDefaults(t *testing.T) {
	d := types.Descriptor{Param: "msl", Level: types.Surface(), Year: "1979", Step: "0", Area: types.Global()}
	req, err := Build(d, entry(t, "msl"), "128", "x")
	if err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"area", "format", "levelist"} {
		if _, ok := decoded[key]; ok {
			t.Errorf("%s should be omitted for a global GRIB surface request", key)
		}
	}
	if decoded["target"] != "x" {
		t.Errorf("target = %v", decoded["target"])
	}
}

func TestRequest_StringAndFields(t *testing.T) {
	d := types.Descriptor{Param: "z", Level: types.Pressure(500), Year: "2000", Step: "0", Area: types.Global()}
	req, err := Build(d, entry(t, "z"), "128", "t")
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range req.Fields() {
		if f.Value == "" {
			t.Errorf("Fields() contains empty %q", f.Key)
		}
	}
	s := req.String()
	if !strings.Contains(s, "levelist=500") || strings.Contains(s, "area=") {
		t.Errorf("String() = %q", s)
	}
}
