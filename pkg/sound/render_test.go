package sound

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestChime_Shape(t *testing.T) {
	voices := Chime()
	require.Len(t, voices, 4)

	want := []struct {
		wave Waveform
		freq float64
	}{{Sine, 1200}, {Sine, 1800}, {Triangle, 2400}}
	for i, w := range want {
		require.Equal(t, w.wave, voices[i].Wave)
		require.Equal(t, w.freq, voices[i].Freq)
		require.Equal(t, 800*time.Millisecond, voices[i].Duration)
		require.Zero(t, voices[i].Offset)
	}

	beep := voices[3]
	require.Equal(t, Sine, beep.Wave)
	require.Equal(t, 2000.0, beep.Freq)
	require.Equal(t, 1500.0, beep.FreqEnd)
	require.Equal(t, 100*time.Millisecond, beep.Offset)
	require.Equal(t, 300*time.Millisecond, beep.Duration)
}

func TestGainAt(t *testing.T) {
	env := Chime()[0].Gain
	require.InDelta(t, 0.0, gainAt(env, 0), 1e-9)
	require.InDelta(t, 0.45, gainAt(env, 25*time.Millisecond), 1e-9)
	require.InDelta(t, 0.9, gainAt(env, 300*time.Millisecond), 1e-9)
	require.InDelta(t, 0.72, gainAt(env, 560*time.Millisecond), 1e-9)
	require.InDelta(t, 0.36, gainAt(env, 680*time.Millisecond), 1e-9)
	require.InDelta(t, 0.0, gainAt(env, 900*time.Millisecond), 1e-9)
	require.Equal(t, 1.0, gainAt(nil, time.Second))
}

func TestRender(t *testing.T) {
	samples := Render(Chime(), 8000)
	require.Len(t, samples, 6400)
	require.Zero(t, samples[0])

	peak := float32(0)
	for _, s := range samples {
		require.LessOrEqual(t, s, float32(1))
		require.GreaterOrEqual(t, s, float32(-1))
		if s > peak {
			peak = s
		}
	}
	require.Greater(t, peak, float32(0.5))
	require.Equal(t, samples, Render(Chime(), 8000))
}

func TestEncodeWAV(t *testing.T) {
	wav := EncodeWAV([]float32{0, 1, -1, 2}, 8000)
	require.Len(t, wav, 44+8)
	require.Equal(t, "RIFF", string(wav[0:4]))
	require.Equal(t, "WAVE", string(wav[8:12]))
	require.Equal(t, uint32(8000), binary.LittleEndian.Uint32(wav[24:28]))
	require.Equal(t, uint32(8), binary.LittleEndian.Uint32(wav[40:44]))
	require.Equal(t, int16(32767), int16(binary.LittleEndian.Uint16(wav[46:48])))
	require.Equal(t, int16(-32767), int16(binary.LittleEndian.Uint16(wav[48:50])))
	require.Equal(t, int16(32767), int16(binary.LittleEndian.Uint16(wav[50:52])))
}
