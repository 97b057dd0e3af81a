package cmd

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/strata/cli/reader"
	"github.com/justapithecus/strata/cli/render"
	"github.com/justapithecus/strata/cli/tui"
)

// InventoryCommand returns the inventory command.
// It scans the materialized tree; files that do not follow the layout are
// reported, never touched.
func InventoryCommand() *cli.Command {
	return &cli.Command{
		Name:   "inventory",
		Usage:  "List materialized files under the root",
		Flags:  append(rootFlags(), ReadOnlyFlags()...),
		Action: inventoryAction,
	}
}

func inventoryAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitInvalid)
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	inv, err := reader.New(cfg.Root, cfg.StagingDir, nil).Inventory()
	if err != nil {
		return err
	}

	if c.Bool("tui") {
		return r.RenderTUI(tui.ViewInventory, inv)
	}
	if r.Format() != render.FormatTable {
		return r.Render(inv)
	}
	if err := r.Render(inv.Files); err != nil {
		return err
	}
	if isStderrTTY() {
		fmt.Fprintf(os.Stderr, "\n%d file(s), %s, %d staging, %d unrecognized\n",
			len(inv.Files), tui.FormatBytes(inv.TotalBytes), inv.Staging, len(inv.Unrecognized))
	}
	return nil
}
