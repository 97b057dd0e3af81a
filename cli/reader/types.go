// Package reader provides the read-side data access layer for the strata CLI.
//
// Read-only commands (inventory, history, staging clean --dry-run) go
// through this package and never touch the fetch path.
package reader

import (
	"time"

	"github.com/justapithecus/strata/layout"
	"github.com/justapithecus/strata/types"
)

// InventoryItem is one materialized file found under the root.
type InventoryItem struct {
	Area    string       `json:"area"`
	Param   string       `json:"param"`
	Code    string       `json:"code"`
	Level   string       `json:"level"`
	Step    string       `json:"step"`
	Year    string       `json:"year"`
	Format  types.Format `json:"format"`
	Bytes   int64        `json:"bytes"`
	ModTime time.Time    `json:"mod_time"`
	Path    string       `json:"path"`
}

func itemFromKey(k layout.Key, area, path string) InventoryItem {
	return InventoryItem{
		Area:   area,
		Param:  k.Param,
		Code:   k.Code,
		Level:  k.Level,
		Step:   k.Step,
		Year:   k.Year,
		Format: k.Format,
		Path:   path,
	}
}

// Inventory is the result of scanning a root.
type Inventory struct {
	Root       string          `json:"root"`
	Files      []InventoryItem `json:"files"`
	TotalBytes int64           `json:"total_bytes"`
	ByArea     map[string]int  `json:"by_area"`
	ByParam    map[string]int  `json:"by_param"`
	ByLevel    map[string]int  `json:"by_level"`
	// Staging counts temp_ files left next to materialized files.
	Staging int `json:"staging"`
	// Unrecognized lists paths that do not parse as layout filenames.
	Unrecognized []string `json:"unrecognized,omitempty"`
}

// StagingFile is a leftover staging file.
type StagingFile struct {
	Path    string        `json:"path"`
	Bytes   int64         `json:"bytes"`
	Age     time.Duration `json:"age"`
	Removed bool          `json:"removed"`
}
