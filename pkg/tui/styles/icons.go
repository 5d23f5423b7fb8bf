package styles

import "github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/topic"

const (
	IconConnected    = "●"
	IconDisconnected = "○"
	IconReconnecting = "↻"
	IconDegraded     = "⚠"
	IconError        = "✗"
	IconInfo         = "ℹ"
	IconBell         = "♪"
	IconMuted        = "⊘"
	IconBullet       = "•"
)

// ConnectionIcon picks the icon for the transport line of the status panel.
func ConnectionIcon(connected, reconnecting, degraded bool) string {
	switch {
	case connected:
		return IconConnected
	case degraded:
		return IconDegraded
	case reconnecting:
		return IconReconnecting
	default:
		return IconDisconnected
	}
}

// TopicIcon marks inbox entries by origin.
func TopicIcon(t topic.Topic) string {
	switch t {
	case topic.Inspection:
		return "!"
	case topic.SoatRunt:
		return "§"
	case topic.OilChange:
		return "◆"
	default:
		return IconBullet
	}
}

// LogLevelIcon returns the appropriate icon for a log level.
func LogLevelIcon(level string) string {
	switch level {
	case "error", "ERROR":
		return IconError
	case "warn", "WARN", "warning", "WARNING":
		return IconDegraded
	case "info", "INFO":
		return IconInfo
	default:
		return IconBullet
	}
}
