package sound

import "time"

type Waveform string

const (
	Sine     Waveform = "sine"
	Triangle Waveform = "triangle"
)

// GainPoint is one automation event on a voice's gain. Ramp points
// interpolate linearly from the previous point; other points jump.
type GainPoint struct {
	At    time.Duration
	Value float64
	Ramp  bool
}

// Voice is a single oscillator. Offset and At values are relative to
// the start of the chime and of the voice respectively.
type Voice struct {
	Wave     Waveform
	Freq     float64
	FreqEnd  float64
	Offset   time.Duration
	Duration time.Duration
	Gain     []GainPoint
}

const (
	toneDuration = 800 * time.Millisecond
	beepOffset   = 100 * time.Millisecond
	beepDuration = 300 * time.Millisecond
)

// Chime is the notification sound: three simultaneous partials shaped
// by attack, sustain and decay, plus a short descending beep starting
// 100ms in.
func Chime() []Voice {
	partials := []struct {
		wave   Waveform
		freq   float64
		volume float64
	}{
		{Sine, 1200, 0.9},
		{Sine, 1800, 0.7},
		{Triangle, 2400, 0.5},
	}

	voices := make([]Voice, 0, len(partials)+1)
	for _, p := range partials {
		voices = append(voices, Voice{
			Wave:     p.wave,
			Freq:     p.freq,
			FreqEnd:  p.freq,
			Duration: toneDuration,
			Gain: []GainPoint{
				{At: 0, Value: 0},
				{At: 50 * time.Millisecond, Value: p.volume, Ramp: true},
				{At: toneDuration * 7 / 10, Value: p.volume * 0.8},
				{At: toneDuration, Value: 0, Ramp: true},
			},
		})
	}
	voices = append(voices, Voice{
		Wave:     Sine,
		Freq:     2000,
		FreqEnd:  1500,
		Offset:   beepOffset,
		Duration: beepDuration,
		Gain: []GainPoint{
			{At: 0, Value: 0},
			{At: 20 * time.Millisecond, Value: 0.8, Ramp: true},
			{At: beepDuration, Value: 0, Ramp: true},
		},
	})
	return voices
}
