package tui

import (
	"context"
	"fmt"

	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/bus"
	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/notify"
	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/orchestrator"
	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/views"
	"github.com/ThreeDotsLabs/watermill/message"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"
)

// Forward feeds the events topic into the dashboard until ctx is done.
func Forward(ctx context.Context, sub message.Subscriber, send func(tea.Msg)) error {
	return bus.Consume(ctx, sub, bus.TopicEvents, func(env bus.Envelope) error {
		for _, msg := range Translate(env) {
			send(msg)
		}
		return nil
	})
}

// Translate maps one bus envelope onto dashboard messages. Unknown or
// undecodable envelopes map to nothing.
func Translate(env bus.Envelope) []tea.Msg {
	entry := func(level, text string) tea.Msg {
		return EventLogAppendMsg{Entry: EventLogEntry{At: env.At, Level: level, Text: text}}
	}

	switch env.Type {
	case bus.TypeNotificationAdded:
		var n notify.Notification
		if !decode(env, &n) {
			return nil
		}
		return []tea.Msg{NotificationMsg{Notification: n}, entry("info", n.Text)}

	case bus.TypeConnectionChanged:
		var info orchestrator.Info
		if !decode(env, &info) {
			return nil
		}
		return []tea.Msg{ConnectionMsg{Info: info}, entry(connectionLevel(info), ConnectionText(info))}

	case bus.TypeTransportError:
		var te orchestrator.TransportError
		if !decode(env, &te) {
			return nil
		}
		level := "warn"
		if te.Fatal {
			level = "error"
		}
		return []tea.Msg{entry(level, fmt.Sprintf("%s: %s", te.Mode.Name(), te.Error))}

	case bus.TypeRefreshCompleted:
		var res views.Result
		if !decode(env, &res) {
			return nil
		}
		msgs := []tea.Msg{RefreshCompletedMsg{Result: res}}
		if res.Error != "" {
			msgs = append(msgs, entry("warn", fmt.Sprintf("%s: %s", res.View.Title(), res.Error)))
		}
		return msgs

	case bus.TypeUpdateIgnored:
		var u orchestrator.UpdateIgnored
		if !decode(env, &u) {
			return nil
		}
		return []tea.Msg{entry("debug", fmt.Sprintf("update %q ignored", u.Tag))}
	}
	return nil
}

func decode(env bus.Envelope, v any) bool {
	if err := env.DecodeData(v); err != nil {
		log.Warn().Err(err).Str("type", env.Type).Msg("decode bus envelope")
		return false
	}
	return true
}

// ConnectionText is the one-line summary of a connection snapshot.
func ConnectionText(info orchestrator.Info) string {
	name := info.Mode.Name()
	switch {
	case info.Connected:
		return name + " connected"
	case info.Degraded:
		return name + " unavailable, no fallback left"
	case info.Status.Reconnecting:
		return name + " reconnecting"
	case info.Active:
		return name + " connecting"
	default:
		return name + " disconnected"
	}
}

func connectionLevel(info orchestrator.Info) string {
	switch {
	case info.Degraded:
		return "error"
	case info.Connected || info.Active:
		return "info"
	default:
		return "warn"
	}
}

// Sources are the observables the dashboard mirrors besides the bus.
type Sources struct {
	Inbox interface {
		WatchMessages(fn func([]notify.Notification)) (cancel func())
	}
	Sound interface {
		WatchActivation(fn func(needsActivation bool))
	}
	Board interface {
		Watch(fn func(views.View))
	}
}

// Watch registers send on every source. It must run off the update
// loop: watchers call send immediately with the current value.
func Watch(s Sources, send func(tea.Msg)) (cancel func()) {
	cancel = func() {}
	if s.Inbox != nil {
		cancel = s.Inbox.WatchMessages(func(msgs []notify.Notification) {
			send(InboxChangedMsg{Messages: msgs})
		})
	}
	if s.Sound != nil {
		s.Sound.WatchActivation(func(needs bool) {
			send(SoundStateMsg{NeedsActivation: needs})
		})
	}
	if s.Board != nil {
		s.Board.Watch(func(v views.View) {
			send(ViewChangedMsg{View: v})
		})
	}
	return cancel
}
