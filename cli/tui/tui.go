package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/justapithecus/strata/cli/reader"
)

// ViewInventory is the only view with an interactive rendering.
const ViewInventory = "inventory"

// Run starts the TUI for viewType.
// Returns an error if the view type doesn't support TUI.
func Run(viewType string, data any) error {
	if !IsTUISupported(viewType) {
		return fmt.Errorf("TUI mode is not supported for %s", viewType)
	}
	inv, ok := data.(*reader.Inventory)
	if !ok {
		return fmt.Errorf("invalid data type %T for %s", data, viewType)
	}
	p := tea.NewProgram(NewInventoryModel(inv), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// IsTUISupported returns true if the view type supports TUI mode.
func IsTUISupported(viewType string) bool {
	return viewType == ViewInventory
}

// SupportedTUIViews returns a list of view types that support TUI.
func SupportedTUIViews() []string {
	return []string{ViewInventory}
}
