package layout

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/justapithecus/strata/types"
)

// Key is the information recoverable from a materialized path.
type Key struct {
	Area   string       `json:"area"`
	Param  string       `json:"param"`
	Code   string       `json:"code"`
	Level  string       `json:"level"`
	Step   string       `json:"step"`
	Year   string       `json:"year"`
	Format types.Format `json:"format"`
}

var areaTokenPattern = regexp.MustCompile(`^(-?[0-9]+(?:\.[0-9]+)?)n(-?[0-9]+(?:\.[0-9]+)?)e(-?[0-9]+(?:\.[0-9]+)?)n(-?[0-9]+(?:\.[0-9]+)?)e$`)

// ParseAreaToken reverses AreaToken.
func ParseAreaToken(tok string) (types.Area, error) {
	if tok == types.GlobalToken {
		return types.Global(), nil
	}
	m := areaTokenPattern.FindStringSubmatch(tok)
	if m == nil {
		return types.Area{}, fmt.Errorf("not an area token: %q", tok)
	}
	var bounds [4]float64
	for i := range bounds {
		f, err := strconv.ParseFloat(m[i+1], 64)
		if err != nil {
			return types.Area{}, fmt.Errorf("area token %q: %w", tok, err)
		}
		bounds[i] = f
	}
	return types.Bounds(bounds[0], bounds[1], bounds[2], bounds[3]), nil
}

// ParseAreaDir parses an area directory name such as "ei_30n60e-20n150e".
func ParseAreaDir(name string) (types.Area, error) {
	tok, ok := strings.CutPrefix(name, ArchiveTag+"_")
	if !ok {
		return types.Area{}, fmt.Errorf("not an area directory: %q", name)
	}
	return ParseAreaToken(tok)
}

// ParseFilename reverses the filename half of Resolve.
// Staging files (temp_ prefix) are rejected.
func ParseFilename(name string) (Key, error) {
	if strings.HasPrefix(name, StagingPrefix) {
		return Key{}, fmt.Errorf("staging file: %q", name)
	}

	var (
		stem   string
		format types.Format
	)
	switch {
	case strings.HasSuffix(name, "_"+InterchangeTag+extNetCDF):
		stem = strings.TrimSuffix(name, "_"+InterchangeTag+extNetCDF)
		format = types.FormatNetCDF
	case strings.HasSuffix(name, extGRIB):
		stem = strings.TrimSuffix(name, extGRIB)
		format = types.FormatGRIB
	default:
		return Key{}, fmt.Errorf("unrecognized extension: %q", name)
	}

	parts := strings.Split(stem, "_")
	// ei, param (may itself contain "_"), code, level, step, year
	if len(parts) < 6 || parts[0] != ArchiveTag {
		return Key{}, fmt.Errorf("not a layout filename: %q", name)
	}
	n := len(parts)
	key := Key{
		Param:  strings.Join(parts[1:n-4], "_"),
		Code:   parts[n-4],
		Level:  parts[n-3],
		Step:   parts[n-2],
		Year:   parts[n-1],
		Format: format,
	}
	if _, err := types.ParseLevel(key.Level); err != nil {
		return Key{}, fmt.Errorf("filename %q: %w", name, err)
	}
	if len(key.Year) != 4 {
		return Key{}, fmt.Errorf("filename %q: bad year %q", name, key.Year)
	}
	return key, nil
}
