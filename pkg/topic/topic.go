// Package topic is the single definition of the four notification
// channels and of what each one does when a message arrives.
package topic

import (
	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/views"
)

type Topic string

const (
	Inspection Topic = "inspection"
	DataUpdate Topic = "data-update"
	SoatRunt   Topic = "soat-runt"
	OilChange  Topic = "oil-change"
)

var All = []Topic{Inspection, DataUpdate, SoatRunt, OilChange}

// Profile is the fixed effect set of a topic plus its wire names.
type Profile struct {
	// Notify creates an inbox entry.
	Notify bool
	// Sound plays the chime after the entry is added.
	Sound bool
	// Refresh reloads this view when it is the visible one. Empty means
	// no direct refresh (data-update goes through the route table).
	Refresh views.View
	// DefaultText is shown when the payload carries no text.
	DefaultText string
	// StreamPath is the event-stream endpoint, relative to the base URL.
	StreamPath string
	// Destination is the broker destination.
	Destination string
}

var profiles = map[Topic]Profile{
	Inspection: {
		Notify:      true,
		Sound:       true,
		Refresh:     views.Dashboard,
		DefaultText: "una máquina",
		StreamPath:  "/inspections/stream",
		Destination: "/topic/notifications/inspection",
	},
	DataUpdate: {
		StreamPath:  "/new-data/notifications/stream",
		Destination: "/topic/notifications/data-update",
	},
	SoatRunt: {
		Notify:      true,
		DefaultText: "Notificación SOAT/RUNT",
		StreamPath:  "/soat/runt/notifications/stream",
		Destination: "/topic/notifications/soat-runt",
	},
	OilChange: {
		Notify:      true,
		DefaultText: "Notificación de cambio de aceite",
		StreamPath:  "/oil_change/notifications/stream",
		Destination: "/topic/notifications/oil-change",
	},
}

func (t Topic) Profile() (Profile, bool) {
	p, ok := profiles[t]
	return p, ok
}

// Update is one row of the data-update routing table.
type Update struct {
	Tag  string
	View views.View
}

var updates = []Update{
	{Tag: "inspections-updated", View: views.Dashboard},
	{Tag: "machines-updated", View: views.Machines},
	{Tag: "users-updated", View: views.Users},
	{Tag: "orders-updated", View: views.WorkOrders},
	{Tag: "oil-changes-updated", View: views.Consolidado},
}

// RouteUpdate maps a data-update tag to the view it invalidates.
func RouteUpdate(tag string) (Update, bool) {
	for _, u := range updates {
		if u.Tag == tag {
			return u, true
		}
	}
	return Update{}, false
}

func Updates() []Update {
	return append([]Update{}, updates...)
}
