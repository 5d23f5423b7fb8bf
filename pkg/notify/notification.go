package notify

import "time"

// Notification is one delivered, user-visible event. It is never
// mutated after creation.
type Notification struct {
	ID    string    `json:"id"`
	Text  string    `json:"text"`
	Topic string    `json:"topic,omitempty"`
	At    time.Time `json:"at"`
}
