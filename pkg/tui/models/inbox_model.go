package models

import (
	"fmt"
	"strings"

	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/notify"
	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/topic"
	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/tui"
	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/tui/styles"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// InboxModel lists notifications newest first with a cursor.
type InboxModel struct {
	width  int
	height int
	theme  styles.Theme

	messages []notify.Notification
	cursor   int
	offset   int
}

func NewInboxModel() InboxModel {
	return InboxModel{theme: styles.DefaultTheme()}
}

func (m InboxModel) WithSize(width, height int) InboxModel {
	m.width, m.height = width, height
	return m.clamp()
}

func (m InboxModel) Len() int {
	return len(m.messages)
}

// Selected is the notification under the cursor.
func (m InboxModel) Selected() (notify.Notification, bool) {
	if m.cursor < 0 || m.cursor >= len(m.messages) {
		return notify.Notification{}, false
	}
	return m.messages[m.cursor], true
}

func (m InboxModel) Update(msg tea.Msg) (InboxModel, tea.Cmd) {
	switch v := msg.(type) {
	case tui.InboxChangedMsg:
		selected, ok := m.Selected()
		m.messages = v.Messages
		m.cursor = 0
		if ok {
			for i, n := range m.messages {
				if n.ID == selected.ID {
					m.cursor = i
					break
				}
			}
		}
		return m.clamp(), nil
	case tea.KeyMsg:
		switch v.String() {
		case "up", "k":
			m.cursor--
		case "down", "j":
			m.cursor++
		case "home", "g":
			m.cursor = 0
		case "end", "G":
			m.cursor = len(m.messages) - 1
		}
		return m.clamp(), nil
	}
	return m, nil
}

func (m InboxModel) rows() int {
	if m.height <= 1 {
		return 5
	}
	return m.height - 1
}

func (m InboxModel) clamp() InboxModel {
	if m.cursor >= len(m.messages) {
		m.cursor = len(m.messages) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	rows := m.rows()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+rows {
		m.offset = m.cursor - rows + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
	return m
}

func (m InboxModel) View() string {
	var b strings.Builder
	b.WriteString(m.theme.Title().Render(fmt.Sprintf("Notificaciones (%d)", len(m.messages))) + "\n")
	if len(m.messages) == 0 {
		b.WriteString(m.theme.Faint().Render("(sin notificaciones)") + "\n")
		return b.String()
	}

	selected := lipgloss.NewStyle().Background(m.theme.Selected).Bold(true)
	end := min(len(m.messages), m.offset+m.rows())
	for i := m.offset; i < end; i++ {
		n := m.messages[i]
		line := fmt.Sprintf("%s %s %s", n.At.Format("02/01 15:04"), styles.TopicIcon(topic.Topic(n.Topic)), n.Text)
		if m.width > 0 && lipgloss.Width(line) > m.width {
			line = truncate(line, m.width)
		}
		if i == m.cursor {
			line = selected.Render(line)
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func truncate(s string, width int) string {
	r := []rune(s)
	if width <= 1 || len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "…"
}
