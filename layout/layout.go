// Package layout derives the on-disk location of a materialized request.
//
// The layout is a public contract consumed by downstream tools and must
// stay bit-exact:
//
//	<root>/ei_<area>/<param>_<code>_<level>[_nc]/ei_<param>_<code>_<level>_<step>_<year>[_nc].<grb|nc>
//
// Resolution is pure: no filesystem access happens here.
package layout

import (
	"path/filepath"
	"strings"

	"github.com/justapithecus/strata/catalog"
	"github.com/justapithecus/strata/types"
)

// Layout constants.
const (
	// ArchiveTag prefixes area directories and filenames.
	ArchiveTag = "ei"
	// DefaultRoot is the default output root.
	DefaultRoot = "data"
	// StagingPrefix prefixes staging filenames.
	StagingPrefix = "temp_"
	// InterchangeTag marks NetCDF directories and filenames.
	InterchangeTag = "nc"

	extGRIB   = ".grb"
	extNetCDF = ".nc"
)

// Location is the resolved output of one descriptor.
type Location struct {
	// Entry is the catalog entry of the requested parameter.
	Entry catalog.Entry `json:"-"`
	// Dir is the destination directory.
	Dir string `json:"dir"`
	// Filename is the destination filename.
	Filename string `json:"filename"`
	// Staging is where the archive client writes before materialization.
	Staging string `json:"staging"`
}

// Path returns the final materialized path.
func (l Location) Path() string { return filepath.Join(l.Dir, l.Filename) }

// Resolver maps descriptors to locations under a root.
type Resolver struct {
	root    string
	staging string
	catalog *catalog.Catalog
}

// NewResolver creates a resolver. An empty root means DefaultRoot; an empty
// staging directory means the root itself. Staging and root must live on the
// same filesystem for the final rename to be atomic.
func NewResolver(root, staging string, cat *catalog.Catalog) *Resolver {
	if root == "" {
		root = DefaultRoot
	}
	if staging == "" {
		staging = root
	}
	return &Resolver{root: root, staging: staging, catalog: cat}
}

// Root returns the output root.
func (r *Resolver) Root() string { return r.root }

// StagingDir returns the staging directory.
func (r *Resolver) StagingDir() string { return r.staging }

// Catalog returns the catalog used for code lookup.
func (r *Resolver) Catalog() *catalog.Catalog { return r.catalog }

// Resolve derives the location of d.
//
// Fails with *types.UnknownParameterError for a parameter missing from the
// catalog, *types.InvalidLevelError for an unknown level and
// *types.InvalidRequestError for a malformed year, step, area or format.
func (r *Resolver) Resolve(d types.Descriptor) (Location, error) {
	entry, err := r.catalog.Lookup(d.Param)
	if err != nil {
		return Location{}, err
	}
	if err := d.Validate(); err != nil {
		return Location{}, err
	}

	stem := d.Param + "_" + entry.Code + "_" + d.Level.Token()
	dirName := stem
	fileStem := ArchiveTag + "_" + stem + "_" + d.Step + "_" + d.Year
	ext := extGRIB
	if d.Format.Interchange() {
		dirName += "_" + InterchangeTag
		fileStem += "_" + InterchangeTag
		ext = extNetCDF
	}
	filename := fileStem + ext

	return Location{
		Entry:    entry,
		Dir:      filepath.Join(r.root, ArchiveTag+"_"+AreaToken(d.Area), dirName),
		Filename: filename,
		Staging:  filepath.Join(r.staging, StagingPrefix+filename),
	}, nil
}

// Rel returns path relative to the root, slash-separated.
func (r *Resolver) Rel(path string) (string, error) {
	rel, err := filepath.Rel(r.root, path)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// AreaToken encodes an area for use in a directory name: "Glb" for the
// global grid, otherwise "<N>n<W>e<S>n<E>e" with canonical numbers.
func AreaToken(a types.Area) string {
	if a.Global {
		return types.GlobalToken
	}
	c := a.Components()
	var b strings.Builder
	b.WriteString(c[0])
	b.WriteString("n")
	b.WriteString(c[1])
	b.WriteString("e")
	b.WriteString(c[2])
	b.WriteString("n")
	b.WriteString(c[3])
	b.WriteString("e")
	return b.String()
}
