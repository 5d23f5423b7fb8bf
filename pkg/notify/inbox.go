// Package notify holds the notification inbox: an ordered,
// de-duplicated list of delivered notifications and its count, both
// persisted in the session store.
package notify

import (
	"encoding/json"
	"strconv"
	"sync"

	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/session"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	KeyCount    = "notificationCount"
	KeyMessages = "notificationMessages"
)

type Inbox struct {
	mu       sync.Mutex
	store    session.Store
	messages []Notification
	count    int

	nextWatch     int
	countWatch    map[int]func(int)
	messagesWatch map[int]func([]Notification)
	// seq numbers every change; dispatchMu orders watcher calls and
	// dispatched is the newest change already delivered.
	seq        uint64
	dispatchMu sync.Mutex
	dispatched uint64
}

// Open loads the inbox persisted in store. A nil store keeps the inbox
// in memory only.
func Open(store session.Store) (*Inbox, error) {
	i := &Inbox{
		store:         store,
		countWatch:    map[int]func(int){},
		messagesWatch: map[int]func([]Notification){},
	}
	if store == nil {
		return i, nil
	}

	b, ok, err := store.Get(KeyMessages)
	if err != nil {
		return nil, errors.Wrap(err, "load notification messages")
	}
	if ok && len(b) > 0 {
		if err := json.Unmarshal(b, &i.messages); err != nil {
			return nil, errors.Wrap(err, "parse notification messages")
		}
	}
	i.messages = dedupe(i.messages)

	b, ok, err = store.Get(KeyCount)
	if err != nil {
		return nil, errors.Wrap(err, "load notification count")
	}
	i.count = len(i.messages)
	if ok {
		stored, err := strconv.Atoi(string(b))
		if err != nil || stored != i.count {
			log.Warn().Str("stored", string(b)).Int("messages", i.count).Msg("notification count out of sync, using message list")
		}
	}
	return i, nil
}

func dedupe(in []Notification) []Notification {
	seen := map[string]bool{}
	out := make([]Notification, 0, len(in))
	for _, n := range in {
		if seen[n.ID] {
			continue
		}
		seen[n.ID] = true
		out = append(out, n)
	}
	return out
}

// Add puts n at the head of the inbox. A notification whose id is
// already present is dropped and Add reports false.
func (i *Inbox) Add(n Notification) bool {
	i.mu.Lock()
	for _, m := range i.messages {
		if m.ID == n.ID {
			i.mu.Unlock()
			return false
		}
	}
	i.messages = append([]Notification{n}, i.messages...)
	i.count++
	i.persistLocked()
	notify := i.watchersLocked()
	i.mu.Unlock()

	notify()
	return true
}

// Remove drops the notification with id. Unknown ids are ignored.
func (i *Inbox) Remove(id string) bool {
	i.mu.Lock()
	idx := -1
	for k, m := range i.messages {
		if m.ID == id {
			idx = k
			break
		}
	}
	if idx < 0 {
		i.mu.Unlock()
		return false
	}
	i.messages = append(append([]Notification{}, i.messages[:idx]...), i.messages[idx+1:]...)
	if i.count > 0 {
		i.count--
	}
	i.persistLocked()
	notify := i.watchersLocked()
	i.mu.Unlock()

	notify()
	return true
}

func (i *Inbox) Clear() {
	i.mu.Lock()
	i.messages = nil
	i.count = 0
	i.persistLocked()
	notify := i.watchersLocked()
	i.mu.Unlock()

	notify()
}

func (i *Inbox) Count() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.count
}

// Messages returns a copy, newest first.
func (i *Inbox) Messages() []Notification {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]Notification{}, i.messages...)
}

// WatchCount calls fn with the current count and after every change
// until the returned cancel func is called. Watchers are called one at
// a time in change order and must not modify the inbox.
func (i *Inbox) WatchCount(fn func(int)) (cancel func()) {
	i.dispatchMu.Lock()
	defer i.dispatchMu.Unlock()
	i.mu.Lock()
	id := i.nextWatch
	i.nextWatch++
	i.countWatch[id] = fn
	count := i.count
	i.mu.Unlock()

	fn(count)
	return func() {
		i.mu.Lock()
		delete(i.countWatch, id)
		i.mu.Unlock()
	}
}

// WatchMessages is WatchCount for the message list.
func (i *Inbox) WatchMessages(fn func([]Notification)) (cancel func()) {
	i.dispatchMu.Lock()
	defer i.dispatchMu.Unlock()
	i.mu.Lock()
	id := i.nextWatch
	i.nextWatch++
	i.messagesWatch[id] = fn
	msgs := append([]Notification{}, i.messages...)
	i.mu.Unlock()

	fn(msgs)
	return func() {
		i.mu.Lock()
		delete(i.messagesWatch, id)
		i.mu.Unlock()
	}
}

// watchersLocked snapshots the state for the watchers. The returned
// func runs after i.mu is released; a snapshot older than one already
// delivered is dropped.
func (i *Inbox) watchersLocked() func() {
	i.seq++
	seq := i.seq
	count := i.count
	msgs := append([]Notification{}, i.messages...)
	countFns := make([]func(int), 0, len(i.countWatch))
	for _, fn := range i.countWatch {
		countFns = append(countFns, fn)
	}
	msgFns := make([]func([]Notification), 0, len(i.messagesWatch))
	for _, fn := range i.messagesWatch {
		msgFns = append(msgFns, fn)
	}
	return func() {
		i.dispatchMu.Lock()
		defer i.dispatchMu.Unlock()
		if seq <= i.dispatched {
			return
		}
		i.dispatched = seq
		for _, fn := range countFns {
			fn(count)
		}
		for _, fn := range msgFns {
			fn(msgs)
		}
	}
}

// persistLocked writes both keys. A failing store does not lose the
// in-memory state.
func (i *Inbox) persistLocked() {
	if i.store == nil {
		return
	}
	msgs := i.messages
	if msgs == nil {
		msgs = []Notification{}
	}
	b, err := json.Marshal(msgs)
	if err != nil {
		log.Warn().Err(err).Msg("marshal notification messages")
		return
	}
	if err := i.store.Set(KeyMessages, b); err != nil {
		log.Warn().Err(err).Msg("persist notification messages")
	}
	if err := i.store.Set(KeyCount, []byte(strconv.Itoa(i.count))); err != nil {
		log.Warn().Err(err).Msg("persist notification count")
	}
}
