package styles

import "github.com/charmbracelet/lipgloss"

// Theme is the color palette shared by the dashboard widgets. Colors are
// ANSI 256 codes.
type Theme struct {
	Text     lipgloss.Color
	Muted    lipgloss.Color
	Accent   lipgloss.Color
	Selected lipgloss.Color

	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color

	Key lipgloss.Color
}

func DefaultTheme() Theme {
	return Theme{
		Text:     lipgloss.Color("252"),
		Muted:    lipgloss.Color("240"),
		Accent:   lipgloss.Color("39"),
		Selected: lipgloss.Color("237"),
		Success:  lipgloss.Color("42"),
		Warning:  lipgloss.Color("214"),
		Error:    lipgloss.Color("196"),
		Key:      lipgloss.Color("81"),
	}
}

func (t Theme) Title() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(t.Accent)
}

func (t Theme) Faint() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Muted)
}

// Level colors a line by log level.
func (t Theme) Level(level string) lipgloss.Style {
	switch level {
	case "error":
		return lipgloss.NewStyle().Foreground(t.Error)
	case "warn":
		return lipgloss.NewStyle().Foreground(t.Warning)
	default:
		return lipgloss.NewStyle().Foreground(t.Text)
	}
}
