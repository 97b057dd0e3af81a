// Package cmd provides CLI commands for the strata binary.
package cmd

import (
	"os"

	"github.com/urfave/cli/v2"
)

// Exit codes of fetch and run. Other commands exit 0 or 1, or
// exitInvalid for a bad invocation or configuration.
const (
	exitOK          = 0
	exitFailed      = 1
	exitInvalid     = 2
	exitInterrupted = 3
)

// Global flags, accepted before any command.
var (
	// ConfigFlag names the YAML config file.
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to config file (default ./strata.yaml when present)",
		EnvVars: []string{"STRATA_CONFIG"},
	}

	// VerboseFlag enables debug logging.
	VerboseFlag = &cli.BoolFlag{
		Name:  "verbose",
		Usage: "Enable debug logging",
	}
)

// GlobalFlags returns the app-level flags.
func GlobalFlags() []cli.Flag {
	return []cli.Flag{ConfigFlag, VerboseFlag}
}

// Shared flags for read-only commands.
var (
	// FormatFlag selects output format: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// NoColorFlag disables colored output.
	NoColorFlag = &cli.BoolFlag{
		Name:  "no-color",
		Usage: "Disable colored output",
	}

	// TUIFlag enables Bubble Tea interactive mode.
	// Only valid for inventory.
	TUIFlag = &cli.BoolFlag{
		Name:  "tui",
		Usage: "Enable interactive TUI mode (inventory only)",
	}
)

// ReadOnlyFlags returns the shared flags for all read-only commands.
// Includes --tui so that unsupported commands can provide explicit error messages
// instead of generic "flag not defined" errors.
func ReadOnlyFlags() []cli.Flag {
	return []cli.Flag{
		FormatFlag,
		NoColorFlag,
		TUIFlag,
	}
}

// rootFlags locate the materialized tree. They override the config file.
func rootFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "root",
			Usage:   "Output root of the materialized tree (default ./data)",
			EnvVars: []string{"STRATA_ROOT"},
		},
		&cli.StringFlag{
			Name:  "staging-dir",
			Usage: "Staging directory; must share a filesystem with --root (default: root)",
		},
	}
}

// executionFlags are accepted by the commands that fetch.
func executionFlags() []cli.Flag {
	flags := append(rootFlags(),
		&cli.StringFlag{
			Name:  "archive",
			Usage: "Archive client: webapi, subprocess or gcs",
		},
		&cli.StringFlag{
			Name:  "batch-id",
			Usage: "Batch ID (default: generated)",
		},
		&cli.BoolFlag{
			Name:  "no-journal",
			Usage: "Do not record outcomes even when a journal is configured",
		},
		&cli.BoolFlag{
			Name:  "quiet",
			Usage: "Suppress the result summary",
		},
	)
	return append(flags, FormatFlag, NoColorFlag)
}

// descriptorFlags describe one request. Missing values are reported by
// descriptorFromFlags so that they exit as invalid invocations.
func descriptorFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "param",
			Aliases: []string{"p"},
			Usage:   "Parameter short name (see `strata params`)",
		},
		&cli.StringFlag{
			Name:    "level",
			Aliases: []string{"l"},
			Usage:   "Level: sfc or pl<hPa>",
			Value:   "sfc",
		},
		&cli.StringFlag{
			Name:    "year",
			Aliases: []string{"y"},
			Usage:   "Four-digit year",
		},
		&cli.StringFlag{
			Name:  "step",
			Usage: "Forecast step in hours (0 selects analysis fields)",
			Value: "0",
		},
		&cli.StringFlag{
			Name:  "area",
			Usage: "Glb or N/W/S/E",
			Value: "Glb",
		},
		&cli.BoolFlag{
			Name:  "netcdf",
			Usage: "Request NetCDF instead of GRIB",
		},
		&cli.BoolFlag{
			Name:  "overwrite",
			Usage: "Replace an existing file",
		},
	}
}

// isStderrTTY returns true if stderr is a terminal.
func isStderrTTY() bool {
	info, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
