package views

import (
	"strings"

	"github.com/pkg/errors"
)

// View identifies a dashboard screen. Exactly one view is visible at a
// time.
type View string

const (
	Dashboard   View = "dashboard"
	Machines    View = "machines"
	Users       View = "users"
	WorkOrders  View = "work-orders"
	OilChanges  View = "oil-changes"
	Consolidado View = "consolidado"
)

var All = []View{Dashboard, Machines, Users, WorkOrders, OilChanges, Consolidado}

var ErrUnknownView = errors.New("unknown view")

func Parse(s string) (View, error) {
	v := View(strings.TrimSpace(strings.ToLower(s)))
	for _, known := range All {
		if v == known {
			return v, nil
		}
	}
	return "", errors.Wrapf(ErrUnknownView, "%q", s)
}

// Resource is the REST listing behind a view.
type Resource struct {
	Endpoint  string
	Key       string
	Paginated bool
}

var resources = map[View]Resource{
	Dashboard:   {Endpoint: "inspection", Key: "dashboardData", Paginated: true},
	Machines:    {Endpoint: "machine", Key: "machines"},
	Users:       {Endpoint: "user", Key: "users"},
	WorkOrders:  {Endpoint: "order/all", Key: "workOrders", Paginated: true},
	OilChanges:  {Endpoint: "oil-change", Key: "oilChanges"},
	Consolidado: {Endpoint: "consolidado", Key: "consolidado"},
}

func (v View) Resource() (Resource, bool) {
	r, ok := resources[v]
	return r, ok
}

func (v View) Title() string {
	switch v {
	case Dashboard:
		return "Inspecciones"
	case Machines:
		return "Máquinas"
	case Users:
		return "Usuarios"
	case WorkOrders:
		return "Órdenes de trabajo"
	case OilChanges:
		return "Cambios de aceite"
	case Consolidado:
		return "Consolidado"
	default:
		return string(v)
	}
}

// Page is the pagination cursor a paginated listing is refetched with.
type Page struct {
	Number int `json:"page"`
	Size   int `json:"size"`
}

var DefaultPage = Page{Number: 1, Size: 20}

// Dispatcher is the view-refresh boundary the notification core talks
// to. Refresh must not block the caller.
type Dispatcher interface {
	CurrentView() View
	Refresh(v View)
}
