package topic

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Sentinel is the control body a channel sends once it is ready.
const Sentinel = "stream_open"

// Payload is a decoded message body. Bodies that are not JSON are kept
// as opaque text; decoding never fails.
type Payload struct {
	Raw string
	// Fields holds the body when it is a JSON object.
	Fields map[string]any
	// Text holds the body when it is a JSON string or not JSON at all.
	Text string
	// Malformed is set when the body looked like JSON but did not parse.
	Malformed bool
}

func Decode(raw []byte) Payload {
	p := Payload{Raw: string(raw)}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return p
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		p.Text = string(trimmed)
		p.Malformed = trimmed[0] == '{' || trimmed[0] == '['
		return p
	}

	switch x := v.(type) {
	case map[string]any:
		p.Fields = x
	case string:
		p.Text = x
	default:
		p.Text = string(trimmed)
	}
	return p
}

func (p Payload) IsSentinel() bool {
	if p.Text == Sentinel {
		return true
	}
	return p.String("type") == Sentinel
}

// String returns the field at path as text. Numbers keep their literal
// form. Missing or non-scalar values yield "".
func (p Payload) String(path ...string) string {
	if p.Fields == nil || len(path) == 0 {
		return ""
	}
	var cur any = p.Fields
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return ""
		}
		cur = m[key]
	}
	switch x := cur.(type) {
	case string:
		return strings.TrimSpace(x)
	case json.Number:
		return x.String()
	case bool:
		if x {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}

func (p Payload) Has(key string) bool {
	if p.Fields == nil {
		return false
	}
	v, ok := p.Fields[key]
	return ok && v != nil
}

// Tag is the update kind carried by a data-update body: the object's
// "type" field, or the whole body when it is plain text.
func (p Payload) Tag() string {
	if t := p.String("type"); t != "" {
		return t
	}
	return strings.TrimSpace(p.Text)
}
