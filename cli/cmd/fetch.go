package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/justapithecus/strata/types"
)

// FetchCommand returns the fetch command.
// It materializes a single request and exits 0 when the file was created
// or already present, 1 when it failed and 3 when interrupted.
func FetchCommand() *cli.Command {
	return &cli.Command{
		Name:      "fetch",
		Usage:     "Fetch and materialize one parameter-year",
		ArgsUsage: " ",
		Flags:     append(descriptorFlags(), executionFlags()...),
		Action:    fetchAction,
	}
}

func fetchAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	d, err := descriptorFromFlags(c)
	if err != nil {
		return invalid("invalid request", err)
	}
	return execute(c, cfg, []types.Descriptor{d})
}
