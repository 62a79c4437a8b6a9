package livekit

import (
	"math"

	"github.com/PabloGalante/practerview-agent/internal/domain"
)

// gateParams are the thresholds of a noise gate, in RMS of PCM16 samples.
type gateParams struct {
	open  float64
	close float64
	// hold is how many quiet frames pass before the gate closes.
	hold int
}

var gateProfiles = map[domain.NoiseProfile]gateParams{
	domain.NoiseProfileGeneral:   {open: 500, close: 300, hold: 15},
	domain.NoiseProfileTelephony: {open: 900, close: 600, hold: 10},
}

// noiseGate silences frames whose energy stays below the profile threshold.
// Not safe for concurrent use; each inbound track owns one.
type noiseGate struct {
	params gateParams
	open   bool
	quiet  int
}

func newNoiseGate(profile domain.NoiseProfile) *noiseGate {
	p, ok := gateProfiles[profile]
	if !ok {
		p = gateProfiles[domain.NoiseProfileGeneral]
	}
	return &noiseGate{params: p}
}

// Process zeroes samples in place when the gate is closed and reports
// whether the frame carried speech.
func (g *noiseGate) Process(samples []int16) bool {
	level := rms(samples)

	switch {
	case level >= g.params.open:
		g.open = true
		g.quiet = 0
	case g.open && level < g.params.close:
		g.quiet++
		if g.quiet > g.params.hold {
			g.open = false
		}
	}

	if !g.open {
		for i := range samples {
			samples[i] = 0
		}
	}
	return g.open
}

func rms(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}
