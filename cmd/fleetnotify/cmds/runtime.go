package cmds

import (
	"context"
	"io"

	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/bus"
	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/clock"
	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/config"
	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/dataapi"
	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/notify"
	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/orchestrator"
	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/session"
	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/sound"
	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/views"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// sessionState is what the offline commands need: the store, the
// credentials and the inbox.
type sessionState struct {
	cfg   config.Config
	store session.Store
	creds session.CredentialProvider
	inbox *notify.Inbox
}

func openSession(cfg config.Config) (*sessionState, error) {
	store, err := session.Open(cfg.Session.Backend, cfg.Session.Dir)
	if err != nil {
		return nil, errors.Wrap(err, "open session store")
	}
	inbox, err := notify.Open(store)
	if err != nil {
		closeStore(store)
		return nil, errors.Wrap(err, "open inbox")
	}
	return &sessionState{
		cfg:   cfg,
		store: store,
		creds: session.Chain{session.StaticToken(cfg.Token), session.StoreCredentials{Store: store}},
		inbox: inbox,
	}, nil
}

func (s *sessionState) Close() {
	closeStore(s.store)
}

func closeStore(store session.Store) {
	if c, ok := store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			log.Warn().Err(err).Msg("close session store")
		}
	}
}

func newSoundEngine(cfg config.Config) *sound.Engine {
	if !cfg.Sound.Enabled {
		return sound.NewEngine(nil)
	}
	return sound.NewEngine(sound.PlayerFactory(cfg.Sound.Player))
}

// liveApp wires the notification core for the watch and tail commands.
type liveApp struct {
	*sessionState

	pubsub *gochannel.GoChannel
	sound  *sound.Engine
	board  *views.Board
	auto   *views.AutoRefresher
	orch   *orchestrator.Orchestrator
	api    *dataapi.Client
}

func newLiveApp(cfg config.Config) (*liveApp, error) {
	if cfg.BaseURL == "" {
		return nil, errors.Errorf("no base URL: set base_url, %s or --base-url", config.EnvBaseURL)
	}
	mode, err := cfg.TransportMode()
	if err != nil {
		return nil, err
	}
	st, err := openSession(cfg)
	if err != nil {
		return nil, err
	}
	if _, ok := st.creds.Token(); !ok {
		st.Close()
		return nil, errors.New("not logged in: run `fleetnotify login` or pass --token")
	}

	clk := clock.Real()
	pubsub := bus.New()
	board := views.NewBoard(pubsub)
	engine := newSoundEngine(cfg)

	orch, err := orchestrator.New(orchestrator.Options{
		Mode:           mode,
		AutoFallback:   cfg.AutoFallback,
		HealthInterval: cfg.HealthInterval,
		Credentials:    st.creds,
		Factory: orchestrator.Adapters(orchestrator.AdapterOptions{
			BaseURL:           cfg.BaseURL,
			Clock:             clk,
			ReconnectAttempts: cfg.ReconnectAttempts,
			ReconnectDelay:    cfg.ReconnectDelay,
			Heartbeat:         cfg.HeartbeatInterval,
		}),
		Inbox:     st.inbox,
		Sound:     engine,
		Views:     board,
		Publisher: pubsub,
		Clock:     clk,
	})
	if err != nil {
		st.Close()
		_ = pubsub.Close()
		return nil, err
	}

	return &liveApp{
		sessionState: st,
		pubsub:       pubsub,
		sound:        engine,
		board:        board,
		auto:         views.NewAutoRefresher(board, st.creds, clk, cfg.AutoRefreshInterval),
		orch:         orch,
		api:          dataapi.New(cfg.BaseURL, st.creds),
	}, nil
}

// Start launches the background workers on g and opens the live
// channel. The channel is torn down when ctx is done.
func (a *liveApp) Start(ctx context.Context, g *errgroup.Group) {
	refresher := &views.Refresher{Sub: a.pubsub, Pub: a.pubsub, Fetcher: a.api}
	g.Go(func() error {
		return refresher.Run(ctx)
	})
	g.Go(func() error {
		a.auto.Start()
		a.orch.Initialize("")
		a.board.Refresh(a.board.CurrentView())

		<-ctx.Done()
		a.auto.Stop()
		a.orch.DisconnectAll()
		return nil
	})
}

// Logout ends the session: no channel, empty inbox, no saved token.
func (a *liveApp) Logout() error {
	a.orch.DisconnectAll()
	a.auto.SetEnabled(false)
	a.inbox.Clear()
	return session.PurgeLogin(a.store)
}

func (a *liveApp) Close() {
	if err := a.pubsub.Close(); err != nil {
		log.Warn().Err(err).Msg("close bus")
	}
	a.sessionState.Close()
}
