// Package sound renders the notification chime. The audio context is
// built lazily on the first Activate, which callers tie to a user
// action.
package sound

import (
	"sync"

	"github.com/rs/zerolog/log"
)

type Engine struct {
	mu              sync.Mutex
	factory         ContextFactory
	sampleRate      int
	ctx             Context
	needsActivation bool
	unsupported     bool
	wav             []byte
	watchers        []func(bool)
}

func NewEngine(factory ContextFactory) *Engine {
	return &Engine{
		factory:         factory,
		sampleRate:      DefaultSampleRate,
		needsActivation: true,
	}
}

// Activate builds the audio context on first use. After the first call
// the engine never asks for activation again, even when the context
// could not be built.
func (e *Engine) Activate() {
	e.mu.Lock()
	changed := e.needsActivation
	if e.ctx == nil && !e.unsupported {
		if e.factory == nil {
			e.unsupported = true
		} else if ctx, err := e.factory(); err != nil {
			log.Warn().Err(err).Msg("audio output unsupported, notification sound disabled")
			e.unsupported = true
		} else {
			e.ctx = ctx
			log.Debug().Msg("audio context activated")
		}
	}
	e.needsActivation = false
	watchers := append([]func(bool){}, e.watchers...)
	e.mu.Unlock()

	if changed {
		for _, fn := range watchers {
			fn(false)
		}
	}
}

func (e *Engine) NeedsActivation() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.needsActivation
}

// WatchActivation calls fn with the current flag and when it flips.
func (e *Engine) WatchActivation(fn func(needsActivation bool)) {
	e.mu.Lock()
	e.watchers = append(e.watchers, fn)
	needs := e.needsActivation
	e.mu.Unlock()
	fn(needs)
}

// Play starts the chime. It does nothing before activation.
func (e *Engine) Play() {
	e.mu.Lock()
	ctx := e.ctx
	unsupported := e.unsupported
	if ctx != nil && e.wav == nil {
		e.wav = EncodeWAV(Render(Chime(), e.sampleRate), e.sampleRate)
	}
	wav := e.wav
	e.mu.Unlock()

	if ctx == nil {
		if !unsupported {
			log.Warn().Msg("sound must be activated by a user action before it can play")
		}
		return
	}
	if ctx.State() == Suspended {
		if err := ctx.Resume(); err != nil {
			log.Warn().Err(err).Msg("resume audio context")
			return
		}
	}
	if err := ctx.Play(wav); err != nil {
		log.Warn().Err(err).Msg("play notification sound")
	}
}
