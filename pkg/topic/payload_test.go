package topic

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	cases := []struct {
		name      string
		raw       string
		text      string
		fields    bool
		malformed bool
		sentinel  bool
	}{
		{name: "sentinel plain", raw: "stream_open", text: "stream_open", sentinel: true},
		{name: "sentinel json string", raw: `"stream_open"`, text: "stream_open", sentinel: true},
		{name: "sentinel object", raw: `{"type":"stream_open"}`, fields: true, sentinel: true},
		{name: "object", raw: `{"UUID":"a-1","machine":{"name":"CAT","model":"320"}}`, fields: true},
		{name: "plain tag", raw: "machines-updated", text: "machines-updated"},
		{name: "broken object", raw: "{not json", text: "{not json", malformed: true},
		{name: "trailing garbage", raw: `{"a":1} x`, text: `{"a":1} x`, malformed: true},
		{name: "number", raw: "42", text: "42"},
		{name: "empty", raw: "   "},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := Decode([]byte(tc.raw))
			require.Equal(t, tc.raw, p.Raw)
			require.Equal(t, tc.text, p.Text)
			require.Equal(t, tc.fields, p.Fields != nil)
			require.Equal(t, tc.malformed, p.Malformed)
			require.Equal(t, tc.sentinel, p.IsSentinel())
		})
	}
}

func TestPayload_String(t *testing.T) {
	p := Decode([]byte(`{"id":17,"UUID":" u-9 ","machine":{"name":"CAT","model":"320D"},"ok":true,"list":[1]}`))
	require.Equal(t, "17", p.String("id"))
	require.Equal(t, "u-9", p.String("UUID"))
	require.Equal(t, "CAT", p.String("machine", "name"))
	require.Equal(t, "true", p.String("ok"))
	require.Equal(t, "", p.String("list"))
	require.Equal(t, "", p.String("machine", "name", "deeper"))
	require.Equal(t, "", p.String("missing"))
	require.True(t, p.Has("machine"))
	require.False(t, p.Has("missing"))

	require.Equal(t, "", Decode([]byte("plain")).String("id"))
}

func TestPayload_Tag(t *testing.T) {
	require.Equal(t, "users-updated", Decode([]byte("users-updated")).Tag())
	require.Equal(t, "users-updated", Decode([]byte(`"users-updated"`)).Tag())
	require.Equal(t, "orders-updated", Decode([]byte(`{"type":"orders-updated"}`)).Tag())
}
