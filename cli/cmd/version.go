package cmd

import (
	"runtime"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/strata/archive"
	"github.com/justapithecus/strata/catalog"
	"github.com/justapithecus/strata/cli/render"
	"github.com/justapithecus/strata/types"
)

// VersionResponse describes the binary. Version also stamps retriever
// frames and journal records.
type VersionResponse struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	GoVersion string `json:"go_version"`
	Dataset   string `json:"dataset"`
	Table     string `json:"param_table"`
	Params    int    `json:"params"`
}

// VersionCommand returns the version command. It never contacts an archive.
func VersionCommand(commit string) *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show version information",
		Flags: ReadOnlyFlags(),
		Action: func(c *cli.Context) error {
			r, err := render.NewRenderer(c)
			if err != nil {
				return invalid("format", err)
			}
			if c.Bool("tui") {
				return cli.Exit("--tui is not supported for version", exitInvalid)
			}
			return r.Render(versionInfo(commit))
		},
	}
}

func versionInfo(commit string) VersionResponse {
	cat := catalog.ERAInterim()
	return VersionResponse{
		Version:   types.Version,
		Commit:    commit,
		GoVersion: runtime.Version(),
		Dataset:   archive.DatasetInterim,
		Table:     cat.Table(),
		Params:    cat.Len(),
	}
}
