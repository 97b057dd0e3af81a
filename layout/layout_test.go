package layout

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/justapithecus/strata/catalog"
	"github.com/justapithecus/strata/types"
)

func newResolver() *Resolver {
	return NewResolver("", "", catalog.ERAInterim())
}

func TestResolve_SurfaceGlobal(t *testing.T) {
	loc, err := newResolver().Resolve(types.Descriptor{
		Param:  "2t",
		Level:  types.Surface(),
		Year:   "1990",
		Step:   "0",
		Area:   types.Global(),
		Format: types.FormatGRIB,
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if loc.Dir != "data/ei_Glb/2t_167_sfc" {
		t.Errorf("Dir = %q", loc.Dir)
	}
	if loc.Filename != "ei_2t_167_sfc_0_1990.grb" {
		t.Errorf("Filename = %q", loc.Filename)
	}
	if loc.Staging != "data/temp_ei_2t_167_sfc_0_1990.grb" {
		t.Errorf("Staging = %q", loc.Staging)
	}
	if loc.Path() != "data/ei_Glb/2t_167_sfc/ei_2t_167_sfc_0_1990.grb" {
		t.Errorf("Path() = %q", loc.Path())
	}
}

func TestResolve_PressureBounded(t *testing.T) {
	area, err := types.ParseArea("30/60/-20/150")
	if err != nil {
		t.Fatal(err)
	}
	loc, err := newResolver().Resolve(types.Descriptor{
		Param:  "z",
		Level:  types.Pressure(850),
		Year:   "2005",
		Step:   "0",
		Area:   area,
		Format: types.FormatGRIB,
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if loc.Dir != "data/ei_30n60e-20n150e/z_129_pl850" {
		t.Errorf("Dir = %q", loc.Dir)
	}
	if loc.Filename != "ei_z_129_pl850_0_2005.grb" {
		t.Errorf("Filename = %q", loc.Filename)
	}
}

func TestResolve_NetCDF(t *testing.T) {
	loc, err := newResolver().Resolve(types.Descriptor{
		Param:  "tp",
		Level:  types.Surface(),
		Year:   "2001",
		Step:   "3",
		Area:   types.Global(),
		Format: types.FormatNetCDF,
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if loc.Dir != "data/ei_Glb/tp_228_sfc_nc" {
		t.Errorf("Dir = %q", loc.Dir)
	}
	if loc.Filename != "ei_tp_228_sfc_3_2001_nc.nc" {
		t.Errorf("Filename = %q", loc.Filename)
	}
}

func TestResolve_CustomRootAndStaging(t *testing.T) {
	r := NewResolver("/srv/era", "/srv/era/.staging", catalog.ERAInterim())
	loc, err := r.Resolve(types.Descriptor{Param: "msl", Level: types.Surface(), Year: "1979", Step: "0", Area: types.Global()})
	if err != nil {
		t.Fatal(err)
	}
	if loc.Dir != "/srv/era/ei_Glb/msl_151_sfc" {
		t.Errorf("Dir = %q", loc.Dir)
	}
	if loc.Staging != "/srv/era/.staging/temp_ei_msl_151_sfc_0_1979.grb" {
		t.Errorf("Staging = %q", loc.Staging)
	}
	rel, err := r.Rel(loc.Path())
	if err != nil {
		t.Fatal(err)
	}
	if rel != "ei_Glb/msl_151_sfc/ei_msl_151_sfc_0_1979.grb" {
		t.Errorf("Rel = %q", rel)
	}
}

func TestResolve_Errors(t *testing.T) {
	r := newResolver()
	base := types.Descriptor{Param: "2t", Level: types.Surface(), Year: "1990", Step: "0", Area: types.Global()}

	bogus := base
	bogus.Param = "bogus"
	var unknown *types.UnknownParameterError
	if _, err := r.Resolve(bogus); !errors.As(err, &unknown) {
		t.Errorf("bogus param: err = %v", err)
	}

	badLevel := base
	badLevel.Level = types.Level{Kind: "ml"}
	var levelErr *types.InvalidLevelError
	if _, err := r.Resolve(badLevel); !errors.As(err, &levelErr) {
		t.Errorf("bad level: err = %v", err)
	}

	badStep := base
	badStep.Step = "../x"
	var reqErr *types.InvalidRequestError
	if _, err := r.Resolve(badStep); !errors.As(err, &reqErr) {
		t.Errorf("bad step: err = %v", err)
	}
}

func TestResolve_Deterministic(t *testing.T) {
	r := newResolver()
	d := types.Descriptor{Param: "u", Level: types.Pressure(500), Year: "2010", Step: "0", Area: types.Bounds(30, 60, -20, 150)}
	a, err := r.Resolve(d)
	if err != nil {
		t.Fatal(err)
	}
	b, err := r.Resolve(d)
	if err != nil {
		t.Fatal(err)
	}
	if a.Path() != b.Path() || a.Staging != b.Staging {
		t.Errorf("Resolve not deterministic: %+v vs %+v", a, b)
	}
}

// Every pair of distinct descriptors in the grid must resolve to distinct
// paths, and distinct staging files.
func TestResolve_Injective(t *testing.T) {
	r := newResolver()
	params := []string{"2t", "z", "u", "tp", "10u"}
	levels := []types.Level{types.Surface(), types.Pressure(850), types.Pressure(500), types.Pressure(85)}
	years := []string{"1979", "1990", "2016"}
	steps := []string{"0", "3", "12", "30"}
	areas := []types.Area{
		types.Global(),
		types.Bounds(30, 60, -20, 150),
		types.Bounds(30, 60, -2, 150),
		types.Bounds(3, 60, -20, 150),
		types.Bounds(30.5, 60, -20, 150),
		types.Bounds(30, -60, 20, 150),
	}
	formats := []types.Format{types.FormatGRIB, types.FormatNetCDF}

	paths := make(map[string]string)
	for _, p := range params {
		for _, l := range levels {
			for _, y := range years {
				for _, s := range steps {
					for _, a := range areas {
						for _, f := range formats {
							d := types.Descriptor{Param: p, Level: l, Year: y, Step: s, Area: a, Format: f}
							loc, err := r.Resolve(d)
							if err != nil {
								t.Fatalf("Resolve(%s): %v", d, err)
							}
							key := fmt.Sprint(d)
							if prev, dup := paths[loc.Path()]; dup {
								t.Fatalf("collision on %s: %s and %s", loc.Path(), prev, key)
							}
							paths[loc.Path()] = key
						}
					}
				}
			}
		}
	}
}

func TestAreaToken_RoundTrip(t *testing.T) {
	areas := []types.Area{
		types.Global(),
		types.Bounds(30, 60, -20, 150),
		types.Bounds(-10.25, -75.5, -55, -30),
		types.Bounds(90, 0, -90, 359.25),
	}
	for _, a := range areas {
		tok := AreaToken(a)
		got, err := ParseAreaToken(tok)
		if err != nil {
			t.Fatalf("ParseAreaToken(%q): %v", tok, err)
		}
		if got != a {
			t.Errorf("round trip %q: got %+v, want %+v", tok, got, a)
		}
		if filepath.Base(tok) != tok {
			t.Errorf("token %q is not a single path element", tok)
		}
	}
}

func TestParseFilename(t *testing.T) {
	tests := []struct {
		name string
		want Key
	}{
		{"ei_2t_167_sfc_0_1990.grb", Key{Param: "2t", Code: "167", Level: "sfc", Step: "0", Year: "1990", Format: types.FormatGRIB}},
		{"ei_z_129_pl850_0_2005.grb", Key{Param: "z", Code: "129", Level: "pl850", Step: "0", Year: "2005", Format: types.FormatGRIB}},
		{"ei_tp_228_sfc_3_2001_nc.nc", Key{Param: "tp", Code: "228", Level: "sfc", Step: "3", Year: "2001", Format: types.FormatNetCDF}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFilename(tt.name)
			if err != nil {
				t.Fatalf("ParseFilename: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseFilename_Rejects(t *testing.T) {
	for _, name := range []string{
		"temp_ei_2t_167_sfc_0_1990.grb",
		"ei_2t_167_sfc_0_1990.txt",
		"ei_2t_167_sfc_1990.grb",
		"xx_2t_167_sfc_0_1990.grb",
		"ei_2t_167_ml60_0_1990.grb",
	} {
		if _, err := ParseFilename(name); err == nil {
			t.Errorf("ParseFilename(%q) succeeded, want error", name)
		}
	}
}

func TestParseFilename_ReversesResolve(t *testing.T) {
	r := newResolver()
	d := types.Descriptor{Param: "vo", Level: types.Pressure(250), Year: "1999", Step: "6", Area: types.Global(), Format: types.FormatNetCDF}
	loc, err := r.Resolve(d)
	if err != nil {
		t.Fatal(err)
	}
	key, err := ParseFilename(loc.Filename)
	if err != nil {
		t.Fatal(err)
	}
	if key.Param != d.Param || key.Level != d.Level.Token() || key.Step != d.Step || key.Year != d.Year || key.Format != d.Format {
		t.Errorf("key %+v does not match descriptor %s", key, d)
	}
}
