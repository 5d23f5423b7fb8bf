package views

import (
	"sync"

	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/bus"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog/log"
)

// Request asks the refresher to refetch one view.
type Request struct {
	View View `json:"view"`
	Page Page `json:"page"`
}

// Board is the navigation state of the dashboard: the visible view and
// the page each paginated view is on. Refresh publishes a Request and
// returns; the Refresher does the fetching.
type Board struct {
	pub message.Publisher

	mu       sync.Mutex
	current  View
	pages    map[View]Page
	watchers []func(View)
}

var _ Dispatcher = (*Board)(nil)

func NewBoard(pub message.Publisher) *Board {
	return &Board{pub: pub, current: Dashboard, pages: map[View]Page{}}
}

func (b *Board) CurrentView() View {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// Show makes v the visible view and loads it.
func (b *Board) Show(v View) {
	b.mu.Lock()
	changed := b.current != v
	b.current = v
	watchers := append([]func(View){}, b.watchers...)
	b.mu.Unlock()

	if changed {
		for _, fn := range watchers {
			fn(v)
		}
	}
	b.Refresh(v)
}

// Watch calls fn whenever the visible view changes.
func (b *Board) Watch(fn func(View)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.watchers = append(b.watchers, fn)
}

func (b *Board) Page(v View) Page {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p, ok := b.pages[v]; ok {
		return p
	}
	return DefaultPage
}

func (b *Board) SetPage(v View, p Page) {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = DefaultPage.Size
	}
	b.mu.Lock()
	b.pages[v] = p
	b.mu.Unlock()
}

func (b *Board) Refresh(v View) {
	req := Request{View: v}
	if r, ok := v.Resource(); ok && r.Paginated {
		req.Page = b.Page(v)
	}
	if err := bus.Publish(b.pub, bus.TopicRefresh, bus.TypeRefreshRequested, req); err != nil {
		log.Warn().Err(err).Str("view", string(v)).Msg("publish refresh request")
	}
}
