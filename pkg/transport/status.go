package transport

import (
	"sync"
	"time"
)

// Status is a snapshot of one adapter's connection state.
type Status struct {
	Connected         bool      `json:"connected"`
	Reconnecting      bool      `json:"reconnecting"`
	LastError         string    `json:"lastError,omitempty"`
	ConnectTime       time.Time `json:"connectTime,omitempty"`
	ReconnectAttempts int       `json:"reconnectAttempts"`
	MessageCount      int       `json:"messageCount"`
	// Failed is set once a broker adapter exhausted its reconnects.
	Failed bool `json:"failed"`
}

// Tracker is the mutable Status owned by an adapter. Only the adapter's
// own lifecycle code writes to it.
type Tracker struct {
	mu sync.Mutex
	st Status
}

func (t *Tracker) Opened(at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.st.Connected = true
	t.st.Reconnecting = false
	t.st.Failed = false
	t.st.LastError = ""
	t.st.ConnectTime = at
}

// Lost records an error. The connection is marked down only when down
// is true; stream errors leave it up while the client retries.
func (t *Tracker) Lost(err error, down bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		t.st.LastError = err.Error()
	}
	if down {
		t.st.Connected = false
		t.st.ConnectTime = time.Time{}
	}
}

// Reconnecting counts one more attempt and returns the total.
func (t *Tracker) Reconnecting() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.st.Reconnecting = true
	t.st.ReconnectAttempts++
	return t.st.ReconnectAttempts
}

func (t *Tracker) SetReconnecting(v bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.st.Reconnecting = v
}

func (t *Tracker) Failed(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.st.Connected = false
	t.st.Reconnecting = false
	t.st.Failed = true
	if err != nil {
		t.st.LastError = err.Error()
	}
}

func (t *Tracker) Message() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.st.MessageCount++
}

// Closed marks a deliberate disconnect. Counters are kept.
func (t *Tracker) Closed() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.st.Connected = false
	t.st.Reconnecting = false
	t.st.ConnectTime = time.Time{}
}

func (t *Tracker) Snapshot() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.st
}
