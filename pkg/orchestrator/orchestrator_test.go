package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/bus"
	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/notify"
	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/session"
	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/topic"
	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/transport"
	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/views"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestNew_Validates(t *testing.T) {
	_, err := New(Options{Credentials: session.StaticToken("t")})
	require.Error(t, err)
	_, err = New(Options{Factory: (&fakeFactory{}).build})
	require.Error(t, err)
	_, err = New(Options{Factory: (&fakeFactory{}).build, Credentials: session.StaticToken("t"), Mode: "pigeon"})
	require.ErrorIs(t, err, transport.ErrUnknownMode)
}

func TestInitialize_WithoutTokenIsNoop(t *testing.T) {
	f := newFixture(t, "")
	f.o.Initialize(transport.Broker)

	require.Empty(t, f.factory.all())
	activations, _ := f.sound.counts()
	require.Zero(t, activations)
	require.False(t, f.o.Info().Active)
	require.Zero(t, f.clk.Pending())
}

func TestInitialize_ConnectsAndPrimesSound(t *testing.T) {
	f := newFixture(t, "tok")
	f.o.Initialize(transport.Broker)

	a := f.factory.last(t)
	require.Equal(t, transport.Broker, a.mode)
	require.Equal(t, "tok", a.token)
	require.Equal(t, 1, a.connects)
	activations, _ := f.sound.counts()
	require.Equal(t, 1, activations)

	info := f.o.Info()
	require.True(t, info.Active)
	require.False(t, info.Connected)
	require.Equal(t, "WebSocket", info.ServiceName)

	a.open()
	require.True(t, f.o.Info().Connected)
}

func TestInspection_NotifiesPlaysAndRefreshesDashboard(t *testing.T) {
	f := newFixture(t, "tok")
	f.o.Initialize(transport.Stream)
	a := f.factory.last(t)
	a.open()

	msg := `{"UUID":"u-1","machine":{"name":"Tractor","model":"JD 5090"}}`
	a.send(topic.Inspection, msg)

	require.Equal(t, 1, f.inbox.Count())
	n := f.inbox.Messages()[0]
	require.Equal(t, "u-1", n.ID)
	require.Equal(t, "¡IMPREVISTO EN Tractor JD 5090!", n.Text)
	require.Equal(t, string(topic.Inspection), n.Topic)
	require.Equal(t, epoch, n.At)
	_, plays := f.sound.counts()
	require.Equal(t, 1, plays)
	require.Equal(t, []views.View{views.Dashboard}, f.views.taken())

	// redelivery is deduplicated but still chimes and refreshes
	a.send(topic.Inspection, msg)
	require.Equal(t, 1, f.inbox.Count())
	_, plays = f.sound.counts()
	require.Equal(t, 2, plays)
	require.Equal(t, []views.View{views.Dashboard}, f.views.taken())

	// hidden dashboard is not refetched
	f.views.show(views.Machines)
	a.send(topic.Inspection, `{"UUID":"u-2"}`)
	require.Equal(t, 2, f.inbox.Count())
	require.Equal(t, "¡IMPREVISTO EN una máquina!", f.inbox.Messages()[0].Text)
	require.Empty(t, f.views.taken())
}

func TestSentinelIsSwallowed(t *testing.T) {
	f := newFixture(t, "tok")
	f.o.Initialize(transport.Stream)
	a := f.factory.last(t)
	a.open()

	for _, tp := range topic.All {
		a.send(tp, topic.Sentinel)
		a.send(tp, `{"type":"stream_open"}`)
	}
	require.Zero(t, f.inbox.Count())
	_, plays := f.sound.counts()
	require.Zero(t, plays)
	require.Empty(t, f.views.taken())
}

func TestDataUpdate_RefreshesOnlyVisibleView(t *testing.T) {
	f := newFixture(t, "tok")
	f.o.Initialize(transport.Stream)
	a := f.factory.last(t)
	a.open()

	f.views.show(views.Machines)
	a.send(topic.DataUpdate, "machines-updated")
	require.Equal(t, []views.View{views.Machines}, f.views.taken())

	f.views.show(views.Dashboard)
	a.send(topic.DataUpdate, "machines-updated")
	require.Empty(t, f.views.taken())

	a.send(topic.DataUpdate, `{"type":"inspections-updated"}`)
	require.Equal(t, []views.View{views.Dashboard}, f.views.taken())

	f.views.show(views.Consolidado)
	a.send(topic.DataUpdate, "oil-changes-updated")
	require.Equal(t, []views.View{views.Consolidado}, f.views.taken())

	a.send(topic.DataUpdate, "reports-updated")
	require.Empty(t, f.views.taken())

	require.Zero(t, f.inbox.Count())
	_, plays := f.sound.counts()
	require.Zero(t, plays)
}

func TestSoatAndOilChange_TextWithoutSound(t *testing.T) {
	f := newFixture(t, "tok")
	f.o.Initialize(transport.Stream)
	a := f.factory.last(t)
	a.open()

	a.send(topic.SoatRunt, `{"id":"s-1","message":"SOAT de la volqueta vence mañana"}`)
	a.send(topic.SoatRunt, `{}`)
	a.send(topic.OilChange, `Cambio de aceite pendiente`)
	a.send(topic.OilChange, `{"id":7}`)

	msgs := f.inbox.Messages()
	require.Len(t, msgs, 4)
	require.Equal(t, "7", msgs[0].ID)
	require.Equal(t, "Notificación de cambio de aceite", msgs[0].Text)
	require.Equal(t, "Cambio de aceite pendiente", msgs[1].Text)
	require.Equal(t, "Notificación SOAT/RUNT", msgs[2].Text)
	require.Equal(t, "s-1", msgs[3].ID)
	require.Equal(t, "SOAT de la volqueta vence mañana", msgs[3].Text)

	// generated ids stay unique within one millisecond
	require.NotEqual(t, msgs[1].ID, msgs[2].ID)

	_, plays := f.sound.counts()
	require.Zero(t, plays)
	require.Empty(t, f.views.taken())
}

func TestMalformedPayloadKeepsChannel(t *testing.T) {
	f := newFixture(t, "tok")
	f.o.Initialize(transport.Broker)
	a := f.factory.last(t)
	a.open()

	require.NotPanics(t, func() { a.send(topic.Inspection, "{not json") })
	a.send(topic.Inspection, `{"UUID":"u-9","machine":{"name":"Grúa"}}`)

	require.Equal(t, 2, f.inbox.Count())
	require.Equal(t, "¡IMPREVISTO EN Grúa!", f.inbox.Messages()[0].Text)
	require.Zero(t, a.disconnects)
	require.True(t, f.o.Info().Connected)
}

func TestEventTimeFromPayload(t *testing.T) {
	f := newFixture(t, "tok")
	f.o.Initialize(transport.Stream)
	a := f.factory.last(t)

	a.send(topic.SoatRunt, `{"id":"a","message":"x","date":"2024-04-30T10:15:00Z"}`)
	a.send(topic.SoatRunt, `{"id":"b","message":"y","date":"not a date"}`)

	msgs := f.inbox.Messages()
	require.Equal(t, epoch, msgs[0].At)
	require.True(t, msgs[1].At.Equal(time.Date(2024, 4, 30, 10, 15, 0, 0, time.UTC)))
}

func TestSwitchMode_SingleOwner(t *testing.T) {
	f := newFixture(t, "tok")
	f.o.Initialize(transport.Stream)
	f.factory.last(t).open()

	f.o.SwitchMode(transport.Stream)
	require.Len(t, f.factory.all(), 1)

	f.o.SwitchMode(transport.Broker)
	f.o.SwitchMode(transport.Stream)
	for _, a := range f.factory.all() {
		if a != f.factory.last(t) {
			require.True(t, a.closed())
		}
	}
	f.factory.last(t).open()

	connected := 0
	for _, a := range f.factory.all() {
		if a.Status().Connected {
			connected++
		}
	}
	require.Equal(t, 1, connected)
	require.Equal(t, transport.Stream, f.factory.last(t).mode)
	require.False(t, f.factory.overlap)
	require.Equal(t, transport.Stream, f.o.Info().Mode)
}

func TestSwitchMode_RejectsUnknownMode(t *testing.T) {
	f := newFixture(t, "tok")
	f.o.Initialize("carrier-pigeon")
	require.Empty(t, f.factory.all())
	require.False(t, f.o.Info().Active)

	f.o.Initialize(transport.Broker)
	f.o.SwitchMode("carrier-pigeon")
	require.Len(t, f.factory.all(), 1)
	require.False(t, f.factory.last(t).closed())
	require.Equal(t, transport.Broker, f.o.Info().Mode)

	// aliases resolve to the canonical mode
	f.o.SwitchMode("ws")
	require.Len(t, f.factory.all(), 1)
	f.o.SwitchMode("sse")
	require.Equal(t, transport.Stream, f.factory.last(t).mode)
	require.Equal(t, transport.Stream, f.o.Info().Mode)
}

func TestSwitchMode_WaitsForInFlightMessage(t *testing.T) {
	f := newFixture(t, "tok")
	f.o.Initialize(transport.Broker)
	old := f.factory.last(t)
	old.open()

	entered, release := f.views.hold()
	routed := make(chan struct{})
	go func() {
		defer close(routed)
		old.send(topic.Inspection, `{"UUID":"u-1"}`)
	}()
	<-entered

	switched := make(chan struct{})
	go func() {
		defer close(switched)
		f.o.SwitchMode(transport.Stream)
	}()
	require.Never(t, func() bool {
		select {
		case <-switched:
			return true
		default:
			return false
		}
	}, 100*time.Millisecond, 10*time.Millisecond)

	close(release)
	<-routed
	<-switched
	require.Equal(t, 1, f.inbox.Count())
	require.Equal(t, []views.View{views.Dashboard}, f.views.taken())

	// after the switch the old adapter cannot reach the inbox
	old.send(topic.Inspection, `{"UUID":"u-2"}`)
	require.Equal(t, 1, f.inbox.Count())
	require.Empty(t, f.views.taken())
}

func TestFallback_IsOneShot(t *testing.T) {
	f := newFixture(t, "tok")
	f.o.Initialize(transport.Broker)
	f.factory.last(t).open()

	f.o.HandleDisconnection()
	info := f.o.Info()
	require.Equal(t, transport.Stream, info.Mode)
	require.True(t, info.FallbackAttempted)
	require.False(t, info.Degraded)
	require.Equal(t, 1, info.Failures)
	require.Len(t, f.factory.all(), 2)
	require.True(t, f.factory.all()[0].closed())

	f.o.HandleDisconnection()
	info = f.o.Info()
	require.Equal(t, transport.Stream, info.Mode)
	require.True(t, info.Degraded)
	require.Equal(t, 2, info.Failures)
	require.Len(t, f.factory.all(), 2)
	require.False(t, f.factory.overlap)

	// the stream coming back clears the degraded state
	f.factory.last(t).open()
	require.False(t, f.o.Info().Degraded)
}

func TestFallback_Disabled(t *testing.T) {
	f := newFixture(t, "tok")
	f.o.DisableAutoFallback()
	f.o.Initialize(transport.Broker)

	f.o.HandleDisconnection()
	info := f.o.Info()
	require.Equal(t, transport.Broker, info.Mode)
	require.True(t, info.Degraded)
	require.False(t, info.FallbackAttempted)
	require.Len(t, f.factory.all(), 1)

	f.o.EnableAutoFallback()
	f.o.HandleDisconnection()
	require.Equal(t, transport.Stream, f.o.Info().Mode)
}

func TestManualSwitchRearmsFallback(t *testing.T) {
	f := newFixture(t, "tok")
	f.o.Initialize(transport.Broker)
	f.o.HandleDisconnection()
	require.True(t, f.o.Info().FallbackAttempted)

	f.o.SwitchMode(transport.Broker)
	info := f.o.Info()
	require.False(t, info.FallbackAttempted)
	require.False(t, info.Degraded)

	f.o.HandleDisconnection()
	require.Equal(t, transport.Stream, f.o.Info().Mode)
	require.Len(t, f.factory.all(), 4)
}

func TestHealthMonitor(t *testing.T) {
	f := newFixture(t, "tok")
	f.o.Initialize(transport.Broker)
	b := f.factory.last(t)

	// a connect that never completes is caught by the first poll
	f.clk.Advance(DefaultHealthInterval)
	require.Equal(t, transport.Stream, f.o.Info().Mode)
	s := f.factory.last(t)
	require.NotSame(t, b, s)
	require.True(t, b.closed())

	s.open()
	f.clk.Advance(DefaultHealthInterval)
	require.Equal(t, 1, f.o.Info().Failures)

	// one trigger per connected->disconnected transition
	s.setConnected(false)
	f.clk.Advance(DefaultHealthInterval)
	f.clk.Advance(DefaultHealthInterval)
	info := f.o.Info()
	require.Equal(t, 2, info.Failures)
	require.True(t, info.Degraded)

	s.open()
	f.clk.Advance(DefaultHealthInterval)
	s.setConnected(false)
	f.clk.Advance(DefaultHealthInterval)
	require.Equal(t, 3, f.o.Info().Failures)

	// callbacks from the replaced broker are ignored
	b.handler.Opened(b)
	b.handler.Failed(b, errors.New("late"))
	b.send(topic.Inspection, `{"UUID":"late"}`)
	info = f.o.Info()
	require.True(t, info.Degraded)
	require.Equal(t, 3, info.Failures)
	require.Zero(t, f.inbox.Count())

	// only the live adapter's monitor is scheduled
	require.Equal(t, 1, f.clk.Pending())
}

func TestFailed_SharesTransitionLatch(t *testing.T) {
	f := newFixture(t, "tok")
	f.o.DisableAutoFallback()
	f.o.Initialize(transport.Broker)
	a := f.factory.last(t)
	a.open()

	a.setConnected(false)
	a.handler.Failed(a, errors.New("reconnect attempts exhausted"))
	require.Equal(t, 1, f.o.Info().Failures)

	f.clk.Advance(DefaultHealthInterval)
	info := f.o.Info()
	require.Equal(t, 1, info.Failures)
	require.True(t, info.Degraded)
}

func TestFailed_TriggersFallback(t *testing.T) {
	f := newFixture(t, "tok")
	f.o.Initialize(transport.Broker)
	a := f.factory.last(t)

	a.handler.Failed(a, errors.New("reconnect attempts exhausted"))
	require.Equal(t, transport.Stream, f.o.Info().Mode)
	require.True(t, a.closed())
}

func TestServiceError(t *testing.T) {
	f := newFixture(t, "tok")
	f.factory.fail = map[transport.Mode]error{transport.Broker: errors.New("no websocket support")}

	f.o.Initialize(transport.Broker)
	info := f.o.Info()
	require.Equal(t, transport.Stream, info.Mode)
	require.True(t, info.Active)
	require.True(t, info.FallbackAttempted)

	f.o.HandleServiceError(errors.New("audio init failed"))
	info = f.o.Info()
	require.True(t, info.Degraded)
	require.Equal(t, 2, info.Failures)
	require.Equal(t, "audio init failed", info.Reason)

	f.factory.fail[transport.Stream] = errors.New("no stream support")
	f.o.SwitchMode(transport.Broker)
	info = f.o.Info()
	require.False(t, info.Active)
	require.True(t, info.Degraded)
}

func TestDisconnectAll(t *testing.T) {
	f := newFixture(t, "tok")
	require.NotPanics(t, f.o.DisconnectAll)

	f.o.Initialize(transport.Broker)
	f.o.HandleDisconnection()
	f.o.HandleDisconnection()
	f.o.DisableAutoFallback()

	f.o.DisconnectAll()
	f.o.DisconnectAll()
	info := f.o.Info()
	require.False(t, info.Active)
	require.True(t, info.AutoFallback)
	require.False(t, info.FallbackAttempted)
	require.False(t, info.Degraded)
	require.Zero(t, info.Failures)
	require.Equal(t, transport.Broker, info.Mode)
	for _, a := range f.factory.all() {
		require.True(t, a.closed())
	}
	require.Zero(t, f.clk.Pending())

	f.o.Initialize(transport.Broker)
	require.True(t, f.o.Info().Active)
}

func TestForceReconnect_KeepsLatch(t *testing.T) {
	f := newFixture(t, "tok")
	f.o.Initialize(transport.Broker)
	f.o.HandleDisconnection()
	f.o.HandleDisconnection()
	require.True(t, f.o.Info().Degraded)

	f.o.ForceReconnect()
	info := f.o.Info()
	require.Equal(t, transport.Stream, info.Mode)
	require.True(t, info.FallbackAttempted)
	require.False(t, info.Degraded)
	require.Len(t, f.factory.all(), 3)
	require.Equal(t, 1, f.clk.Pending())
}

func TestPublishesEvents(t *testing.T) {
	ps := bus.New()
	defer ps.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	msgs, err := ps.Subscribe(ctx, bus.TopicEvents)
	require.NoError(t, err)

	f := newFixture(t, "tok")
	f.o.opts.Publisher = ps
	f.o.Initialize(transport.Stream)
	a := f.factory.last(t)
	a.open()
	a.send(topic.OilChange, `{"id":"o-1","message":"Cambio de aceite"}`)

	var types []string
	var added notify.Notification
	for len(types) < 3 {
		select {
		case msg := <-msgs:
			env, err := bus.Decode(msg)
			msg.Ack()
			require.NoError(t, err)
			types = append(types, env.Type)
			if env.Type == bus.TypeNotificationAdded {
				require.NoError(t, env.DecodeData(&added))
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("got only %v", types)
		}
	}
	require.ElementsMatch(t, []string{bus.TypeConnectionChanged, bus.TypeConnectionChanged, bus.TypeNotificationAdded}, types)
	require.Equal(t, "o-1", added.ID)
}
