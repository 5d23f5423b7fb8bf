package tui

import (
	"context"
	"testing"
	"time"

	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/bus"
	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/notify"
	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/orchestrator"
	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/transport"
	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/views"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"
)

func envelope(t *testing.T, typ string, data any) bus.Envelope {
	t.Helper()
	env, err := bus.NewEnvelope(typ, data)
	require.NoError(t, err)
	return env
}

func logEntry(t *testing.T, msg tea.Msg) EventLogEntry {
	t.Helper()
	e, ok := msg.(EventLogAppendMsg)
	require.True(t, ok, "got %T", msg)
	return e.Entry
}

func TestTranslate_Notification(t *testing.T) {
	n := notify.Notification{ID: "u-1", Text: "¡IMPREVISTO EN Grúa!", Topic: "inspection"}
	msgs := Translate(envelope(t, bus.TypeNotificationAdded, n))
	require.Len(t, msgs, 2)

	got, ok := msgs[0].(NotificationMsg)
	require.True(t, ok)
	require.Equal(t, "u-1", got.Notification.ID)
	require.Equal(t, n.Text, logEntry(t, msgs[1]).Text)
}

func TestTranslate_Connection(t *testing.T) {
	cases := []struct {
		info  orchestrator.Info
		level string
		text  string
	}{
		{orchestrator.Info{Mode: transport.Broker, Active: true, Connected: true}, "info", "WebSocket connected"},
		{orchestrator.Info{Mode: transport.Stream, Active: true}, "info", "SSE connecting"},
		{orchestrator.Info{Mode: transport.Stream, Active: true, Degraded: true}, "error", "SSE unavailable, no fallback left"},
		{orchestrator.Info{Mode: transport.Broker, Status: transport.Status{Reconnecting: true}}, "warn", "WebSocket reconnecting"},
		{orchestrator.Info{Mode: transport.Broker}, "warn", "WebSocket disconnected"},
	}
	for _, tc := range cases {
		msgs := Translate(envelope(t, bus.TypeConnectionChanged, tc.info))
		require.Len(t, msgs, 2)
		conn, ok := msgs[0].(ConnectionMsg)
		require.True(t, ok)
		require.Equal(t, tc.info.Mode, conn.Info.Mode)

		e := logEntry(t, msgs[1])
		require.Equal(t, tc.level, e.Level, tc.text)
		require.Equal(t, tc.text, e.Text)
	}
}

func TestTranslate_TransportError(t *testing.T) {
	msgs := Translate(envelope(t, bus.TypeTransportError, orchestrator.TransportError{Mode: transport.Broker, Error: "gave up", Fatal: true}))
	require.Len(t, msgs, 1)
	e := logEntry(t, msgs[0])
	require.Equal(t, "error", e.Level)
	require.Equal(t, "WebSocket: gave up", e.Text)

	msgs = Translate(envelope(t, bus.TypeTransportError, orchestrator.TransportError{Mode: transport.Stream, Error: "eof"}))
	require.Equal(t, "warn", logEntry(t, msgs[0]).Level)
}

func TestTranslate_Refresh(t *testing.T) {
	ok := Translate(envelope(t, bus.TypeRefreshCompleted, views.Result{View: views.Machines, Rows: 4}))
	require.Len(t, ok, 1)
	require.Equal(t, 4, ok[0].(RefreshCompletedMsg).Result.Rows)

	failed := Translate(envelope(t, bus.TypeRefreshCompleted, views.Result{View: views.Users, Error: "forbidden"}))
	require.Len(t, failed, 2)
	require.Equal(t, "Usuarios: forbidden", logEntry(t, failed[1]).Text)
}

func TestTranslate_Ignores(t *testing.T) {
	require.Nil(t, Translate(envelope(t, "something.else", nil)))
	require.Nil(t, Translate(bus.Envelope{Type: bus.TypeNotificationAdded, Data: []byte(`[`)}))
}

func TestForward(t *testing.T) {
	ps := bus.New()
	defer ps.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan tea.Msg, 16)
	done := make(chan error, 1)
	go func() {
		done <- Forward(ctx, ps, func(msg tea.Msg) {
			select {
			case got <- msg:
			default:
			}
		})
	}()

	n := notify.Notification{ID: "s-1", Text: "SOAT vencido"}
	require.Eventually(t, func() bool {
		if err := bus.Publish(ps, bus.TopicEvents, bus.TypeNotificationAdded, n); err != nil {
			return false
		}
		select {
		case msg := <-got:
			_, ok := msg.(NotificationMsg)
			return ok
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

type fakeInbox struct{ msgs []notify.Notification }

func (f *fakeInbox) WatchMessages(fn func([]notify.Notification)) func() {
	fn(f.msgs)
	return func() {}
}

type fakeSound struct{}

func (fakeSound) WatchActivation(fn func(bool)) { fn(true) }

type fakeBoard struct{ fn func(views.View) }

func (b *fakeBoard) Watch(fn func(views.View)) { b.fn = fn }

func TestWatch(t *testing.T) {
	var got []tea.Msg
	board := &fakeBoard{}
	cancel := Watch(Sources{
		Inbox: &fakeInbox{msgs: []notify.Notification{{ID: "a"}}},
		Sound: fakeSound{},
		Board: board,
	}, func(msg tea.Msg) { got = append(got, msg) })
	defer cancel()

	board.fn(views.Users)
	require.Equal(t, []tea.Msg{
		InboxChangedMsg{Messages: []notify.Notification{{ID: "a"}}},
		SoundStateMsg{NeedsActivation: true},
		ViewChangedMsg{View: views.Users},
	}, got)

	require.NotNil(t, Watch(Sources{}, func(tea.Msg) {}))
}
