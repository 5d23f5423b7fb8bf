package widgets

import (
	"strings"

	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/tui/styles"
	"github.com/charmbracelet/lipgloss"
)

// Footer renders the keybindings bar with a status line above it.
type Footer struct {
	Keybinds []Keybind
	Status   string
	Width    int
	theme    styles.Theme
}

func NewFooter(keybinds []Keybind) Footer {
	return Footer{
		Keybinds: keybinds,
		theme:    styles.DefaultTheme(),
	}
}

func (f Footer) WithWidth(w int) Footer {
	f.Width = w
	return f
}

func (f Footer) WithStatus(s string) Footer {
	f.Status = s
	return f
}

func (f Footer) Render() string {
	theme := f.theme

	width := f.Width
	if width <= 0 {
		width = 80
	}
	separator := lipgloss.NewStyle().
		Foreground(theme.Muted).
		Render(strings.Repeat("━", width))

	keybindsLine := RenderKeybinds(f.Keybinds, theme)
	padding := (width - lipgloss.Width(keybindsLine)) / 2
	if padding < 0 {
		padding = 0
	}
	paddedKeybinds := lipgloss.NewStyle().PaddingLeft(padding).Render(keybindsLine)

	if f.Status == "" {
		return lipgloss.JoinVertical(lipgloss.Left, separator, paddedKeybinds)
	}
	status := lipgloss.NewStyle().Foreground(theme.Text).Render(f.Status)
	return lipgloss.JoinVertical(lipgloss.Left, separator, status, paddedKeybinds)
}
