package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/justapithecus/strata/cli/reader"
)

// chrome is the number of lines used by everything except the file list.
const chrome = 14

// keyMap defines key bindings.
type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	Top    key.Binding
	Bottom key.Binding
	Quit   key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Top, k.Bottom, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Top: key.NewBinding(
		key.WithKeys("home", "g"),
		key.WithHelp("g", "top"),
	),
	Bottom: key.NewBinding(
		key.WithKeys("end", "G"),
		key.WithHelp("G", "bottom"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// InventoryModel is a Bubble Tea model for the inventory view.
type InventoryModel struct {
	inv      *reader.Inventory
	cursor   int
	offset   int
	width    int
	height   int
	help     help.Model
	quitting bool
}

// NewInventoryModel creates a new inventory model.
func NewInventoryModel(inv *reader.Inventory) InventoryModel {
	if inv == nil {
		inv = &reader.Inventory{}
	}
	return InventoryModel{inv: inv, help: help.New()}
}

// Init implements tea.Model.
func (m InventoryModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m InventoryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.clamp()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, keys.Up):
			m.cursor--
		case key.Matches(msg, keys.Down):
			m.cursor++
		case key.Matches(msg, keys.Top):
			m.cursor = 0
		case key.Matches(msg, keys.Bottom):
			m.cursor = len(m.inv.Files) - 1
		}
		m.clamp()
	}

	return m, nil
}

// clamp keeps the cursor on a file and inside the visible window.
func (m *InventoryModel) clamp() {
	n := len(m.inv.Files)
	m.cursor = max(0, min(m.cursor, n-1))
	rows := m.rows()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+rows {
		m.offset = m.cursor - rows + 1
	}
	m.offset = max(0, min(m.offset, n-rows))
}

func (m InventoryModel) rows() int {
	if m.height == 0 {
		return 10
	}
	return max(3, m.height-chrome)
}

// View implements tea.Model.
func (m InventoryModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Inventory " + m.inv.Root))
	b.WriteString("\n")

	boxes := []string{
		renderStatBox("Files", fmt.Sprintf("%d", len(m.inv.Files)), accentColor),
		renderStatBox("Size", FormatBytes(m.inv.TotalBytes), bytesColor),
		renderStatBox("Areas", fmt.Sprintf("%d", len(m.inv.ByArea)), areaColor),
		renderStatBox("Params", fmt.Sprintf("%d", len(m.inv.ByParam)), areaColor),
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, boxes...))
	b.WriteString("\n")

	if m.inv.Staging > 0 || len(m.inv.Unrecognized) > 0 {
		b.WriteString(WarningStyle.Render(fmt.Sprintf("%d staging file(s), %d unrecognized file(s)",
			m.inv.Staging, len(m.inv.Unrecognized))))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.renderList())
	b.WriteString("\n")
	b.WriteString(HelpStyle.Render(m.help.View(keys)))
	return b.String()
}

func (m InventoryModel) renderList() string {
	if len(m.inv.Files) == 0 {
		return LabelStyle.Render("(no files)")
	}

	var b strings.Builder
	b.WriteString(HeaderStyle.Render(fmt.Sprintf("  %-16s %-8s %-7s %-4s %-4s %-6s %10s", "AREA", "PARAM", "LEVEL", "STEP", "YEAR", "FORMAT", "SIZE")))
	b.WriteString("\n")

	end := min(len(m.inv.Files), m.offset+m.rows())
	for i := m.offset; i < end; i++ {
		f := m.inv.Files[i]
		line := fmt.Sprintf("%-16s %-8s %-7s %-4s %-4s %-6s %10s",
			f.Area, f.Param, f.Level, f.Step, f.Year, f.Format, FormatBytes(f.Bytes))
		if i == m.cursor {
			b.WriteString(SelectedStyle.Render("> " + line))
		} else {
			b.WriteString("  " + FormatStyle(string(f.Format)).Render(line))
		}
		b.WriteString("\n")
	}
	b.WriteString(LabelStyle.Width(0).Render(fmt.Sprintf("%d-%d of %d", m.offset+1, end, len(m.inv.Files))))
	return b.String()
}

func renderStatBox(label, value string, color lipgloss.Color) string {
	boxStyle := StatBoxStyle.BorderForeground(color)

	valueStr := StatValueStyle.Foreground(color).Render(value)
	labelStr := StatLabelStyle.Render(label)

	content := lipgloss.JoinVertical(lipgloss.Center, valueStr, labelStr)

	return boxStyle.Render(content)
}

// FormatBytes renders a byte count with a binary unit.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// RenderInventoryStatic renders the inventory without a full TUI (for fallback).
func RenderInventoryStatic(inv *reader.Inventory) string {
	model := NewInventoryModel(inv)
	model.width = 80
	model.height = 24
	return lipgloss.NewStyle().Padding(1, 2).Render(model.View())
}
