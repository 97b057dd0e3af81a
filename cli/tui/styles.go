// Package tui renders the strata inventory as an interactive Bubble Tea
// view.
//
// The view is opt-in (--tui) and read-only. It shows the payload the
// json/table/yaml output would render and loads nothing of its own.
package tui

import "github.com/charmbracelet/lipgloss"

var (
	accentColor  = lipgloss.Color("#0EA5E9") // sky
	areaColor    = lipgloss.Color("#7C3AED")
	bytesColor   = lipgloss.Color("#10B981")
	warningColor = lipgloss.Color("#F59E0B")
	mutedColor   = lipgloss.Color("#6B7280")
	textColor    = lipgloss.Color("#F9FAFB")
)

// Styles shared by the inventory view.
var (
	TitleStyle    = lipgloss.NewStyle().Bold(true).Foreground(accentColor).MarginBottom(1)
	LabelStyle    = lipgloss.NewStyle().Foreground(mutedColor).Width(16)
	WarningStyle  = lipgloss.NewStyle().Foreground(warningColor)
	SelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	HeaderStyle   = lipgloss.NewStyle().Bold(true).Foreground(mutedColor)
	HelpStyle     = lipgloss.NewStyle().Foreground(mutedColor).MarginTop(1)

	StatBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 2).Width(20).Align(lipgloss.Center)
	StatLabelStyle = lipgloss.NewStyle().Foreground(mutedColor).Align(lipgloss.Center)
	StatValueStyle = lipgloss.NewStyle().Bold(true).Foreground(textColor).Align(lipgloss.Center)

	gribStyle   = lipgloss.NewStyle().Foreground(textColor)
	netcdfStyle = lipgloss.NewStyle().Foreground(bytesColor)
)

// FormatStyle colors an inventory row by file format. NetCDF files stand
// out from the GRIB default.
func FormatStyle(format string) lipgloss.Style {
	if format == "netcdf" {
		return netcdfStyle
	}
	return gribStyle
}
