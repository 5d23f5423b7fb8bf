package widgets

import (
	"strings"

	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/tui/styles"
	"github.com/charmbracelet/lipgloss"
)

type Keybind struct {
	Key   string
	Label string
}

// RenderKeybinds joins keybinds as "[k] label" pairs.
func RenderKeybinds(keybinds []Keybind, theme styles.Theme) string {
	keyStyle := lipgloss.NewStyle().Foreground(theme.Key).Bold(true)
	labelStyle := lipgloss.NewStyle().Foreground(theme.Muted)

	parts := make([]string, 0, len(keybinds))
	for _, kb := range keybinds {
		parts = append(parts, keyStyle.Render("["+kb.Key+"]")+" "+labelStyle.Render(kb.Label))
	}
	return strings.Join(parts, "  ")
}
