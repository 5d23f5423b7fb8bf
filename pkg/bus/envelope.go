// Package bus is the in-process event plumbing: JSON envelopes on
// watermill topics.
package bus

import (
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/pkg/errors"
)

type Envelope struct {
	Type string          `json:"type"`
	At   time.Time       `json:"at"`
	Data json.RawMessage `json:"data,omitempty"`
}

func NewEnvelope(typ string, data any) (Envelope, error) {
	env := Envelope{Type: typ, At: time.Now()}
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return Envelope{}, errors.Wrapf(err, "marshal %s", typ)
		}
		env.Data = b
	}
	return env, nil
}

func (e Envelope) MarshalJSONBytes() ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, "marshal envelope")
	}
	return b, nil
}

func (e Envelope) DecodeData(v any) error {
	if len(e.Data) == 0 {
		return errors.Errorf("%s: empty data", e.Type)
	}
	return errors.Wrapf(json.Unmarshal(e.Data, v), "decode %s", e.Type)
}

func Decode(msg *message.Message) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(msg.Payload, &env); err != nil {
		return Envelope{}, errors.Wrap(err, "decode envelope")
	}
	return env, nil
}

// Publish wraps data in an envelope and publishes it on topic.
func Publish(pub message.Publisher, topic, typ string, data any) error {
	if pub == nil {
		return errors.New("missing Publisher")
	}
	env, err := NewEnvelope(typ, data)
	if err != nil {
		return err
	}
	b, err := env.MarshalJSONBytes()
	if err != nil {
		return err
	}
	return pub.Publish(topic, message.NewMessage(watermill.NewUUID(), b))
}
