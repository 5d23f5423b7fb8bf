package tui

import (
	"time"

	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/notify"
	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/orchestrator"
	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/views"
)

type EventLogEntry struct {
	At    time.Time
	Level string
	Text  string
}

type ConnectionMsg struct {
	Info orchestrator.Info
}

type NotificationMsg struct {
	Notification notify.Notification
}

type InboxChangedMsg struct {
	Messages []notify.Notification
}

type RefreshCompletedMsg struct {
	Result views.Result
}

type ViewChangedMsg struct {
	View views.View
}

type SoundStateMsg struct {
	NeedsActivation bool
}

type AutoRefreshMsg struct {
	Enabled bool
}

type EventLogAppendMsg struct {
	Entry EventLogEntry
}

// ActionDoneMsg closes the loop on a key action run off the update loop.
type ActionDoneMsg struct {
	Action string
	Err    error
}

// LoggedOutMsg ends the dashboard session.
type LoggedOutMsg struct{}
