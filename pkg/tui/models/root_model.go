package models

import (
	"fmt"
	"strings"

	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/orchestrator"
	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/transport"
	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/tui"
	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/tui/styles"
	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/tui/widgets"
	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/views"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type Controller interface {
	Info() orchestrator.Info
	SwitchMode(mode transport.Mode)
	ForceReconnect()
	EnableAutoFallback()
	DisableAutoFallback()
}

type Navigator interface {
	CurrentView() views.View
	Show(v views.View)
}

type InboxActions interface {
	Remove(id string) bool
	Clear()
}

type AutoRefreshToggle interface {
	Enabled() bool
	Toggle() bool
}

// Deps are the collaborators behind the dashboard keys. Every call into
// them runs inside a tea.Cmd: they publish to watchers that feed the
// program, and the update loop must never wait on those.
type Deps struct {
	Orchestrator Controller
	Views        Navigator
	Inbox        InboxActions
	Sound        interface{ Activate() }
	AutoRefresh  AutoRefreshToggle
	Logout       func() error
}

type focus int

const (
	focusInbox focus = iota
	focusEvents
)

type RootModel struct {
	deps Deps

	width  int
	height int

	view        views.View
	focus       focus
	soundPrimed bool

	status StatusModel
	inbox  InboxModel
	events EventLogModel
	footer widgets.Footer
	theme  styles.Theme
}

func NewRootModel(deps Deps) RootModel {
	view := views.Dashboard
	if deps.Views != nil {
		view = deps.Views.CurrentView()
	}
	return RootModel{
		deps:   deps,
		view:   view,
		status: NewStatusModel(),
		inbox:  NewInboxModel(),
		events: NewEventLogModel(),
		footer: widgets.NewFooter([]widgets.Keybind{
			{Key: "1-6", Label: "view"},
			{Key: "m", Label: "mode"},
			{Key: "r", Label: "reconnect"},
			{Key: "f", Label: "fallback"},
			{Key: "a", Label: "auto-refresh"},
			{Key: "x", Label: "dismiss"},
			{Key: "tab", Label: "focus"},
			{Key: "L", Label: "logout"},
			{Key: "q", Label: "quit"},
		}),
		theme: styles.DefaultTheme(),
	}
}

func (m RootModel) Init() tea.Cmd {
	var cmds []tea.Cmd
	if c := m.deps.Orchestrator; c != nil {
		cmds = append(cmds, func() tea.Msg { return tui.ConnectionMsg{Info: c.Info()} })
	}
	if a := m.deps.AutoRefresh; a != nil {
		cmds = append(cmds, func() tea.Msg { return tui.AutoRefreshMsg{Enabled: a.Enabled()} })
	}
	return tea.Batch(cmds...)
}

func (m RootModel) View() string {
	header := m.renderTabs()
	status := m.status.View(m.view)

	footer := m.footer.WithWidth(m.width).WithStatus(m.status.Line()).Render()
	return lipgloss.JoinVertical(lipgloss.Left, header, "", status, m.inbox.View(), m.events.View(), footer)
}

func (m RootModel) renderTabs() string {
	active := lipgloss.NewStyle().Bold(true).Foreground(m.theme.Accent).Underline(true)
	idle := m.theme.Faint()
	tabs := make([]string, 0, len(views.All))
	for i, v := range views.All {
		label := fmt.Sprintf("%d %s", i+1, v.Title())
		if v == m.view {
			tabs = append(tabs, active.Render(label))
		} else {
			tabs = append(tabs, idle.Render(label))
		}
	}
	return strings.Join(tabs, "  ")
}

func (m RootModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch v := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = v.Width, v.Height
		return m.layout(), nil

	case tea.KeyMsg:
		var cmds []tea.Cmd
		if !m.soundPrimed {
			m.soundPrimed = true
			if s := m.deps.Sound; s != nil {
				cmds = append(cmds, func() tea.Msg {
					s.Activate()
					return nil
				})
			}
		}
		next, cmd := m.handleKey(v)
		return next, tea.Batch(append(cmds, cmd)...)

	case tui.ConnectionMsg, tui.RefreshCompletedMsg, tui.SoundStateMsg, tui.AutoRefreshMsg:
		m.status, _ = m.status.Update(msg)
		return m, nil

	case tui.InboxChangedMsg:
		m.inbox, _ = m.inbox.Update(msg)
		return m, nil

	case tui.EventLogAppendMsg:
		m.events = m.events.Append(v.Entry)
		return m, nil

	case tui.ViewChangedMsg:
		m.view = v.View
		return m, nil

	case tui.ActionDoneMsg:
		entry := tui.EventLogEntry{Level: "info", Text: v.Action}
		if v.Err != nil {
			entry.Level = "error"
			entry.Text = fmt.Sprintf("%s: %v", v.Action, v.Err)
		}
		m.events = m.events.Append(entry)
		return m, nil

	case tui.LoggedOutMsg:
		return m, tea.Quit
	}
	return m, nil
}

func (m RootModel) handleKey(k tea.KeyMsg) (RootModel, tea.Cmd) {
	if m.focus == focusEvents && m.events.Searching() {
		var cmd tea.Cmd
		m.events, cmd = m.events.Update(k)
		return m, cmd
	}

	key := k.String()
	switch key {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "1", "2", "3", "4", "5", "6":
		idx := int(key[0] - '1')
		if idx >= len(views.All) {
			return m, nil
		}
		target := views.All[idx]
		m.view = target
		if nav := m.deps.Views; nav != nil {
			return m, func() tea.Msg {
				nav.Show(target)
				return nil
			}
		}
		return m, nil
	case "tab":
		if m.focus == focusInbox {
			m.focus = focusEvents
		} else {
			m.focus = focusInbox
		}
		return m, nil
	case "m":
		return m, m.control("mode switch requested", func(c Controller) {
			c.SwitchMode(c.Info().Mode.Other())
		})
	case "r":
		return m, m.control("reconnect requested", func(c Controller) {
			c.ForceReconnect()
		})
	case "f":
		return m, m.control("auto-fallback toggled", func(c Controller) {
			if c.Info().AutoFallback {
				c.DisableAutoFallback()
			} else {
				c.EnableAutoFallback()
			}
		})
	case "a":
		a := m.deps.AutoRefresh
		if a == nil {
			return m, nil
		}
		return m, func() tea.Msg { return tui.AutoRefreshMsg{Enabled: a.Toggle()} }
	case "L":
		logout := m.deps.Logout
		if logout == nil {
			return m, nil
		}
		return m, func() tea.Msg {
			if err := logout(); err != nil {
				return tui.ActionDoneMsg{Action: "logout", Err: err}
			}
			return tui.LoggedOutMsg{}
		}
	case "C":
		if in := m.deps.Inbox; in != nil {
			return m, func() tea.Msg {
				in.Clear()
				return nil
			}
		}
		return m, nil
	}

	if m.focus == focusEvents {
		var cmd tea.Cmd
		m.events, cmd = m.events.Update(k)
		return m, cmd
	}

	if key == "x" || key == "delete" {
		n, ok := m.inbox.Selected()
		in := m.deps.Inbox
		if !ok || in == nil {
			return m, nil
		}
		return m, func() tea.Msg {
			in.Remove(n.ID)
			return nil
		}
	}
	var cmd tea.Cmd
	m.inbox, cmd = m.inbox.Update(k)
	return m, cmd
}

func (m RootModel) control(action string, fn func(Controller)) tea.Cmd {
	c := m.deps.Orchestrator
	if c == nil {
		return nil
	}
	return func() tea.Msg {
		fn(c)
		return tui.ActionDoneMsg{Action: action}
	}
}

func (m RootModel) layout() RootModel {
	// tabs, blank line, status panel and footer
	chrome := 2 + 7 + 3
	body := m.height - chrome
	if body < 8 {
		body = 8
	}
	inboxHeight := body * 2 / 5
	m.inbox = m.inbox.WithSize(m.width, inboxHeight)
	m.events = m.events.WithSize(m.width, body-inboxHeight)
	return m
}
