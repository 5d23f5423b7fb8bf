package orchestrator

import (
	"strconv"
	"strings"
	"time"

	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/bus"
	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/notify"
	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/topic"
	"github.com/araddon/dateparse"
	"github.com/rs/zerolog/log"
)

// UpdateIgnored is published for data-update tags nobody routes.
type UpdateIgnored struct {
	Tag string `json:"tag"`
}

// route applies the effect profile of t. Callers hold routeMu.
func (o *Orchestrator) route(t topic.Topic, p topic.Payload) {
	profile, ok := t.Profile()
	if !ok {
		log.Warn().Str("topic", string(t)).Msg("message on unknown topic")
		return
	}

	if t == topic.DataUpdate {
		o.routeUpdate(p)
		return
	}

	if profile.Notify && o.opts.Inbox != nil {
		n := o.notification(t, profile, p)
		if o.opts.Inbox.Add(n) {
			log.Info().Str("topic", string(t)).Str("id", n.ID).Str("text", n.Text).Msg("notification")
			o.publish(bus.TypeNotificationAdded, n)
		} else {
			log.Debug().Str("topic", string(t)).Str("id", n.ID).Msg("duplicate notification dropped")
		}
	}
	if profile.Sound && o.opts.Sound != nil {
		o.opts.Sound.Play()
	}
	if profile.Refresh != "" && o.opts.Views != nil && o.opts.Views.CurrentView() == profile.Refresh {
		log.Debug().Str("topic", string(t)).Str("view", string(profile.Refresh)).Msg("refreshing visible view")
		o.opts.Views.Refresh(profile.Refresh)
	}
}

func (o *Orchestrator) routeUpdate(p topic.Payload) {
	tag := p.Tag()
	u, ok := topic.RouteUpdate(tag)
	if !ok {
		log.Info().Str("tag", tag).Msg("unrouted data update ignored")
		o.publish(bus.TypeUpdateIgnored, UpdateIgnored{Tag: tag})
		return
	}
	if o.opts.Views == nil {
		return
	}
	visible := o.opts.Views.CurrentView()
	if visible != u.View {
		log.Debug().Str("tag", tag).Str("view", string(visible)).Msg("data update for a hidden view")
		return
	}
	log.Debug().Str("tag", tag).Str("view", string(u.View)).Msg("refreshing visible view")
	o.opts.Views.Refresh(u.View)
}

func (o *Orchestrator) notification(t topic.Topic, profile topic.Profile, p topic.Payload) notify.Notification {
	now := o.opts.Clock.Now()
	n := notify.Notification{Topic: string(t), At: eventTime(p, now)}

	switch t {
	case topic.Inspection:
		n.ID = firstNonEmpty(p.String("UUID"), p.String("uuid"), p.String("id"))
		machine := strings.TrimSpace(p.String("machine", "name") + " " + p.String("machine", "model"))
		if machine == "" {
			machine = profile.DefaultText
		}
		n.Text = "¡IMPREVISTO EN " + machine + "!"
	default:
		n.ID = p.String("id")
		n.Text = firstNonEmpty(p.String("message"), p.String("text"), p.Text, profile.DefaultText)
	}
	if n.ID == "" {
		n.ID = o.generatedID(now)
	}
	return n
}

// generatedID is a millisecond timestamp, bumped when two messages land
// in the same millisecond so they are not deduplicated into one.
func (o *Orchestrator) generatedID(now time.Time) string {
	id := now.UnixMilli()
	if id <= o.lastID {
		id = o.lastID + 1
	}
	o.lastID = id
	return strconv.FormatInt(id, 10)
}

func eventTime(p topic.Payload, fallback time.Time) time.Time {
	for _, key := range []string{"date", "createdAt", "timestamp"} {
		s := p.String(key)
		if s == "" {
			continue
		}
		at, err := dateparse.ParseLocal(s)
		if err != nil {
			log.Debug().Err(err).Str("field", key).Str("value", s).Msg("unparseable event time")
			continue
		}
		return at
	}
	return fallback
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
