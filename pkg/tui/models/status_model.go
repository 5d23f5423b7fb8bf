package models

import (
	"fmt"
	"strings"

	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/orchestrator"
	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/tui"
	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/tui/styles"
	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/views"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// StatusModel is the transport and view-refresh panel.
type StatusModel struct {
	theme styles.Theme

	info      *orchestrator.Info
	refreshes map[views.View]views.Result

	needsSound  bool
	autoRefresh bool
}

func NewStatusModel() StatusModel {
	return StatusModel{
		theme:      styles.DefaultTheme(),
		refreshes:  map[views.View]views.Result{},
		needsSound: true,
	}
}

func (m StatusModel) Info() (orchestrator.Info, bool) {
	if m.info == nil {
		return orchestrator.Info{}, false
	}
	return *m.info, true
}

func (m StatusModel) Update(msg tea.Msg) (StatusModel, tea.Cmd) {
	switch v := msg.(type) {
	case tui.ConnectionMsg:
		info := v.Info
		m.info = &info
	case tui.RefreshCompletedMsg:
		refreshes := make(map[views.View]views.Result, len(m.refreshes)+1)
		for k, r := range m.refreshes {
			refreshes[k] = r
		}
		refreshes[v.Result.View] = v.Result
		m.refreshes = refreshes
	case tui.SoundStateMsg:
		m.needsSound = v.NeedsActivation
	case tui.AutoRefreshMsg:
		m.autoRefresh = v.Enabled
	}
	return m, nil
}

// Line is the compact form used by the footer.
func (m StatusModel) Line() string {
	if m.info == nil {
		return styles.IconDisconnected + " sin conexión"
	}
	info := m.info
	icon := styles.ConnectionIcon(info.Connected, info.Status.Reconnecting, info.Degraded)
	parts := []string{icon + " " + tui.ConnectionText(*info)}
	if info.Degraded {
		parts = append(parts, "DEGRADED")
	}
	if m.needsSound {
		parts = append(parts, styles.IconMuted+" press any key to enable sound")
	}
	return strings.Join(parts, "  ")
}

func (m StatusModel) View(current views.View) string {
	var b strings.Builder
	b.WriteString(m.theme.Title().Render("Conexión") + "\n")

	if m.info == nil {
		b.WriteString(m.theme.Faint().Render("no session started") + "\n")
	} else {
		info := m.info
		icon := styles.ConnectionIcon(info.Connected, info.Status.Reconnecting, info.Degraded)
		color := m.theme.Warning
		switch {
		case info.Connected:
			color = m.theme.Success
		case info.Degraded:
			color = m.theme.Error
		}
		b.WriteString(lipgloss.NewStyle().Foreground(color).Render(icon+" "+tui.ConnectionText(*info)) + "\n")

		fallback := "off"
		if info.AutoFallback {
			fallback = "on"
			if info.FallbackAttempted {
				fallback = "on (used)"
			}
		}
		b.WriteString(fmt.Sprintf("mode=%s  fallback=%s  failures=%d\n", info.Mode, fallback, info.Failures))

		st := info.Status
		since := "-"
		if !st.ConnectTime.IsZero() {
			since = st.ConnectTime.Format("15:04:05")
		}
		b.WriteString(fmt.Sprintf("since=%s  messages=%d  reconnects=%d\n", since, st.MessageCount, st.ReconnectAttempts))
		if st.LastError != "" {
			b.WriteString(lipgloss.NewStyle().Foreground(m.theme.Warning).Render("last error: "+st.LastError) + "\n")
		}
		if info.Reason != "" {
			b.WriteString(m.theme.Faint().Render("reason: "+info.Reason) + "\n")
		}
	}

	auto := "off"
	if m.autoRefresh {
		auto = "on"
	}
	sound := styles.IconBell + " on"
	if m.needsSound {
		sound = styles.IconMuted + " waiting for a key press"
	}
	b.WriteString(fmt.Sprintf("auto-refresh=%s  sound=%s\n", auto, sound))

	if res, ok := m.refreshes[current]; ok {
		line := fmt.Sprintf("%s: %d rows at %s", current.Title(), res.Rows, res.At.Format("15:04:05"))
		if res.Error != "" {
			line = fmt.Sprintf("%s: %s", current.Title(), res.Error)
			b.WriteString(lipgloss.NewStyle().Foreground(m.theme.Error).Render(line) + "\n")
		} else {
			b.WriteString(line + "\n")
		}
	}
	return b.String()
}
