package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/tui"
	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/tui/styles"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

const eventLogCap = 200

// severity orders entry levels; unknown levels rank with info.
type severity int

const (
	sevDebug severity = iota
	sevInfo
	sevWarn
	sevError
)

func severityOf(level string) severity {
	switch strings.ToLower(level) {
	case "debug", "trace":
		return sevDebug
	case "warn", "warning":
		return sevWarn
	case "error", "fatal":
		return sevError
	default:
		return sevInfo
	}
}

func (s severity) label() string {
	switch s {
	case sevInfo:
		return "info+"
	case sevWarn:
		return "warn+"
	case sevError:
		return "error"
	default:
		return "debug+"
	}
}

// EventLogModel shows connection, transport and refresh events. Entries
// can be narrowed by minimum level ("l") and by a text query ("/").
// The pane follows new entries until the user scrolls away.
type EventLogModel struct {
	entries []tui.EventLogEntry
	theme   styles.Theme

	floor  severity
	query  string
	prompt textinput.Model
	// saved is the query to restore when the prompt is cancelled
	saved   string
	editing bool

	pane   viewport.Model
	follow bool
	height int
}

func NewEventLogModel() EventLogModel {
	prompt := textinput.New()
	prompt.Prompt = "/ "
	prompt.Placeholder = "filtrar…"
	prompt.CharLimit = 120

	return EventLogModel{
		theme:  styles.DefaultTheme(),
		prompt: prompt,
		pane:   viewport.New(0, 0),
		follow: true,
	}
}

func (m EventLogModel) WithSize(width, height int) EventLogModel {
	m.height = height
	m.pane.Width = max(0, width)
	m.pane.Height = m.paneHeight()
	return m.sync()
}

// Searching reports whether the filter prompt owns the keyboard.
func (m EventLogModel) Searching() bool {
	return m.editing
}

func (m EventLogModel) Entries() []tui.EventLogEntry {
	return append([]tui.EventLogEntry{}, m.entries...)
}

func (m EventLogModel) Update(msg tea.Msg) (EventLogModel, tea.Cmd) {
	switch v := msg.(type) {
	case tui.EventLogAppendMsg:
		return m.Append(v.Entry), nil
	case tea.KeyMsg:
		if m.editing {
			return m.updatePrompt(v)
		}
		return m.updateKeys(v)
	}
	return m, nil
}

// updatePrompt filters live while typing; esc restores the previous
// query.
func (m EventLogModel) updatePrompt(k tea.KeyMsg) (EventLogModel, tea.Cmd) {
	switch k.Type {
	case tea.KeyEsc:
		m.query = m.saved
		return m.closePrompt(), nil
	case tea.KeyEnter:
		return m.closePrompt(), nil
	}
	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(k)
	m.query = strings.TrimSpace(m.prompt.Value())
	m.follow = true
	return m.sync(), cmd
}

func (m EventLogModel) closePrompt() EventLogModel {
	m.editing = false
	m.prompt.Blur()
	m.pane.Height = m.paneHeight()
	return m.sync()
}

func (m EventLogModel) updateKeys(k tea.KeyMsg) (EventLogModel, tea.Cmd) {
	switch k.String() {
	case "/":
		m.editing = true
		m.saved = m.query
		m.prompt.SetValue(m.query)
		m.prompt.CursorEnd()
		m.pane.Height = m.paneHeight()
		return m, m.prompt.Focus()
	case "l":
		m.floor = (m.floor + 1) % (sevError + 1)
		m.follow = true
		return m.sync(), nil
	case "x":
		m.floor, m.query = sevDebug, ""
		m.prompt.SetValue("")
		m.follow = true
		return m.sync(), nil
	case "c":
		m.entries = nil
		return m.sync(), nil
	case "G", "end":
		m.follow = true
		m.pane.GotoBottom()
		return m, nil
	}

	var cmd tea.Cmd
	m.pane, cmd = m.pane.Update(k)
	m.follow = m.pane.AtBottom()
	return m, cmd
}

// Append adds e, dropping the oldest entries past the cap.
func (m EventLogModel) Append(e tui.EventLogEntry) EventLogModel {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	if len(m.entries) >= eventLogCap {
		m.entries = append(m.entries[:0:0], m.entries[len(m.entries)-eventLogCap+1:]...)
	}
	m.entries = append(m.entries, e)
	return m.sync()
}

// visible is the entries passing the level floor and the query.
func (m EventLogModel) visible() []tui.EventLogEntry {
	needle := strings.ToLower(m.query)
	out := make([]tui.EventLogEntry, 0, len(m.entries))
	for _, e := range m.entries {
		if severityOf(e.Level) < m.floor {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(e.Text), needle) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func (m EventLogModel) line(e tui.EventLogEntry) string {
	stamp := m.theme.Faint().Render(e.At.Format("15:04:05"))
	body := m.theme.Level(e.Level).Render(styles.LogLevelIcon(e.Level) + " " + e.Text)
	return stamp + " " + body
}

func (m EventLogModel) sync() EventLogModel {
	shown := m.visible()
	lines := make([]string, len(shown))
	for i, e := range shown {
		lines[i] = m.line(e)
	}
	m.pane.SetContent(strings.Join(lines, "\n"))
	if m.follow {
		m.pane.GotoBottom()
	}
	return m
}

// paneHeight leaves room for the header and, while editing, the prompt.
func (m EventLogModel) paneHeight() int {
	h := m.height - 1
	if m.editing {
		h--
	}
	return max(3, h)
}

func (m EventLogModel) header() string {
	shown := len(m.visible())
	parts := []string{fmt.Sprintf("%d/%d", shown, len(m.entries))}
	if m.floor > sevDebug {
		parts = append(parts, m.floor.label())
	}
	if m.query != "" {
		parts = append(parts, fmt.Sprintf("%q", m.query))
	}
	if !m.follow {
		parts = append(parts, "pausado")
	}
	return m.theme.Title().Render("Eventos") + " " + m.theme.Faint().Render(strings.Join(parts, " · "))
}

func (m EventLogModel) View() string {
	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n")
	if m.editing {
		b.WriteString(m.prompt.View())
		b.WriteString("\n")
	}
	if len(m.entries) == 0 {
		b.WriteString(m.theme.Faint().Render("(sin eventos)"))
		b.WriteString("\n")
		return b.String()
	}
	b.WriteString(m.pane.View())
	b.WriteString("\n")
	return b.String()
}
