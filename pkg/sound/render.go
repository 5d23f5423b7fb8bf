package sound

import (
	"math"
	"time"
)

const DefaultSampleRate = 44100

// Render mixes voices into mono samples in [-1, 1].
func Render(voices []Voice, sampleRate int) []float32 {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	var end time.Duration
	for _, v := range voices {
		if e := v.Offset + v.Duration; e > end {
			end = e
		}
	}
	total := int(end.Seconds() * float64(sampleRate))
	mix := make([]float64, total)

	for _, v := range voices {
		start := int(v.Offset.Seconds() * float64(sampleRate))
		n := int(v.Duration.Seconds() * float64(sampleRate))
		phase := 0.0
		for i := 0; i < n && start+i < total; i++ {
			t := float64(i) / float64(sampleRate)
			frac := t / v.Duration.Seconds()
			freq := v.Freq + (v.FreqEnd-v.Freq)*frac
			phase += freq / float64(sampleRate)
			phase -= math.Floor(phase)
			mix[start+i] += oscillate(v.Wave, phase) * gainAt(v.Gain, time.Duration(t*float64(time.Second)))
		}
	}

	peak := 1.0
	for _, s := range mix {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	out := make([]float32, total)
	for i, s := range mix {
		out[i] = float32(s / peak)
	}
	return out
}

func oscillate(w Waveform, phase float64) float64 {
	switch w {
	case Triangle:
		return 1 - 4*math.Abs(phase-0.5)
	default:
		return math.Sin(2 * math.Pi * phase)
	}
}

// gainAt evaluates the automation curve at t.
func gainAt(points []GainPoint, t time.Duration) float64 {
	if len(points) == 0 {
		return 1
	}
	value := 0.0
	prevAt := time.Duration(0)
	for _, p := range points {
		if t < p.At {
			if p.Ramp && p.At > prevAt {
				frac := float64(t-prevAt) / float64(p.At-prevAt)
				return value + (p.Value-value)*frac
			}
			return value
		}
		value = p.Value
		prevAt = p.At
	}
	return value
}
