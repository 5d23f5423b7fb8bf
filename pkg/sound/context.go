package sound

import (
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type State string

const (
	Running   State = "running"
	Suspended State = "suspended"
	Closed    State = "closed"
)

// Context is an audio output the engine renders into.
type Context interface {
	State() State
	Resume() error
	// Play starts playback of a WAVE buffer and returns without waiting
	// for it to finish.
	Play(wav []byte) error
}

// ContextFactory constructs the audio context. It fails when the
// environment has no usable output.
type ContextFactory func() (Context, error)

var ErrNoPlayer = errors.New("no audio player found")

// players are tried in order; each takes the path of a WAVE file.
var players = [][]string{
	{"paplay"},
	{"pw-play"},
	{"aplay", "-q"},
	{"afplay"},
	{"ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet"},
}

// PlayerFactory returns a factory for a context that plays through a
// system command. An empty name picks the first player on PATH.
func PlayerFactory(name string) ContextFactory {
	return func() (Context, error) {
		candidates := players
		if name != "" {
			candidates = [][]string{{name}}
		}
		for _, argv := range candidates {
			path, err := exec.LookPath(argv[0])
			if err != nil {
				continue
			}
			dir, err := os.MkdirTemp("", "fleetnotify-sound-*")
			if err != nil {
				return nil, errors.Wrap(err, "create sound dir")
			}
			return &playerContext{path: path, args: argv[1:], dir: dir, state: Running}, nil
		}
		return nil, ErrNoPlayer
	}
}

type playerContext struct {
	mu    sync.Mutex
	path  string
	args  []string
	dir   string
	state State
	file  string
}

func (c *playerContext) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *playerContext) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Closed {
		return errors.New("audio context closed")
	}
	c.state = Running
	return nil
}

func (c *playerContext) Play(wav []byte) error {
	c.mu.Lock()
	if c.state != Running {
		c.mu.Unlock()
		return errors.Errorf("audio context %s", c.state)
	}
	if c.file == "" {
		file := filepath.Join(c.dir, "chime.wav")
		if err := os.WriteFile(file, wav, 0o600); err != nil {
			c.mu.Unlock()
			return errors.Wrap(err, "write chime")
		}
		c.file = file
	}
	cmd := exec.Command(c.path, append(append([]string{}, c.args...), c.file)...)
	c.mu.Unlock()

	if err := cmd.Start(); err != nil {
		return errors.Wrapf(err, "start %s", c.path)
	}
	go func() {
		if err := cmd.Wait(); err != nil {
			log.Debug().Err(err).Str("player", c.path).Msg("audio player exited")
		}
	}()
	return nil
}
