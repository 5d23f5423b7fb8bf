// Package transporttest provides a recording transport.Handler for
// adapter tests.
package transporttest

import (
	"sync"

	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/topic"
	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/transport"
)

type Received struct {
	Topic   topic.Topic
	Payload topic.Payload
}

type Recorder struct {
	mu       sync.Mutex
	opened   int
	errors   []error
	failures []error
	messages []Received
}

var _ transport.Handler = (*Recorder)(nil)

func (r *Recorder) Opened(transport.Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opened++
}

func (r *Recorder) Message(_ transport.Adapter, t topic.Topic, p topic.Payload) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Received{Topic: t, Payload: p})
}

func (r *Recorder) Error(_ transport.Adapter, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, err)
}

func (r *Recorder) Failed(_ transport.Adapter, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, err)
}

func (r *Recorder) OpenedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opened
}

func (r *Recorder) Errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error{}, r.errors...)
}

func (r *Recorder) Failures() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error{}, r.failures...)
}

// Messages returns what arrived on t, or on every topic when t is "".
func (r *Recorder) Messages(t topic.Topic) []Received {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Received
	for _, m := range r.messages {
		if t == "" || m.Topic == t {
			out = append(out, m)
		}
	}
	return out
}
