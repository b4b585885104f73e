// Package tinnitus implements the engine's tinnitus/synthesis layer (§4.6):
// six configurable notches, a colored masking-noise generator, a pure-tone
// finder, a high-frequency shelf extension, and a binaural-beat oscillator
// pair. It operates on the post-EQ L/R primary channels at 48 kHz, before
// output gain.
package tinnitus

import (
	"math"

	"github.com/doismellburning/aurafilter/internal/biquad"
	"github.com/doismellburning/aurafilter/internal/coeff"
	"github.com/doismellburning/aurafilter/internal/params"
)

// Notches holds the six per-channel notch biquads used to suppress a
// measured tinnitus frequency. One instance covers one channel (L or R);
// the pipeline driver owns two.
type Notches struct {
	stages [6]biquad.Biquad
}

// SetParams rebuilds every notch's coefficients from p, bypassing any
// notch whose Enabled flag is false.
func (n *Notches) SetParams(p [6]params.Notch, sampleRate float64) {
	for i, np := range p {
		if !np.Enabled {
			n.stages[i].SetCoefficients(biquad.Coefficients{B0: 1, Bypass: true})
			continue
		}
		n.stages[i].SetCoefficients(coeff.Notch(np.Frequency, sampleRate, np.Q))
	}
}

// Process runs the sample through all six notch stages in series.
func (n *Notches) Process(x float64) float64 {
	for i := range n.stages {
		if n.stages[i].IsBypass() {
			continue
		}
		x = n.stages[i].Process(x)
	}
	return x
}

// Reset zeros every stage's filter state, for use on engine start (§4.8).
func (n *Notches) Reset() {
	for i := range n.stages {
		n.stages[i].Reset()
	}
}

// noiseLCG is a fast xorshift32 pseudorandom source (§4.6: "fast
// xorshift-style pseudorandom source producing uniform noise"). The
// generator's period and distribution are unimportant for audio masking
// noise; speed and statelessness across blocks matter.
type noiseLCG struct {
	state uint32
}

func newNoiseLCG(seed uint32) *noiseLCG {
	if seed == 0 {
		seed = 0x9e3779b9
	}
	return &noiseLCG{state: seed}
}

// next returns a uniform float64 in [-1, 1].
func (g *noiseLCG) next() float64 {
	x := g.state
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	g.state = x
	// Scale to [-1, 1] from the full uint32 range.
	return float64(x)/float64(1<<31) - 1
}

// pinkVoss implements a Voss-McCartney style pink-noise generator: a small
// bank of white-noise accumulators, each updated at half the rate of the
// last, summed together (§4.6: "Voss-style chain of summed decaying
// accumulators").
type pinkVoss struct {
	rng        *noiseLCG
	rows       [pinkRows]float64
	runningSum float64
	counter    uint32
}

const pinkRows = 7

func newPinkVoss(rng *noiseLCG) *pinkVoss {
	p := &pinkVoss{rng: rng}
	for i := range p.rows {
		p.rows[i] = rng.next()
		p.runningSum += p.rows[i]
	}
	return p
}

func (p *pinkVoss) next() float64 {
	p.counter++
	// Row i updates once every 2^(i+1) ticks; trailing-zero count of the
	// counter picks exactly one row to refresh per call, the standard
	// Voss-McCartney update schedule.
	idx := trailingZeros32(p.counter) % pinkRows
	p.runningSum -= p.rows[idx]
	p.rows[idx] = p.rng.next()
	p.runningSum += p.rows[idx]
	return p.runningSum / pinkRows
}

func trailingZeros32(x uint32) int {
	if x == 0 {
		return 32
	}
	n := 0
	for x&1 == 0 {
		x >>= 1
		n++
	}
	return n
}

// brownLeaky implements brown (red) noise as a first-order leaky
// integration of white noise (§4.6), with a leak coefficient keeping the
// running sum from wandering off to +-inf.
type brownLeaky struct {
	rng   *noiseLCG
	accum float64
}

const brownLeak = 0.02

func newBrownLeaky(rng *noiseLCG) *brownLeaky {
	return &brownLeaky{rng: rng}
}

func (b *brownLeaky) next() float64 {
	b.accum = (1-brownLeak)*b.accum + brownLeak*b.rng.next()
	return b.accum
}

// MaskingNoise generates bandpass-shaped colored noise per §4.6: a raw
// WHITE/PINK/BROWN source, shaped by a per-channel HPF/LPF pair tuned from
// the configured low/high cut, then scaled by level.
type MaskingNoise struct {
	rng   *noiseLCG
	pink  *pinkVoss
	brown *brownLeaky

	hpf, lpf biquad.Biquad
}

// NewMaskingNoise creates a masking-noise generator with its own
// pseudorandom source seeded independently per channel so L and R are
// decorrelated.
func NewMaskingNoise(seed uint32) *MaskingNoise {
	rng := newNoiseLCG(seed)
	return &MaskingNoise{
		rng:   rng,
		pink:  newPinkVoss(rng),
		brown: newBrownLeaky(rng),
	}
}

// SetParams rebuilds the bandpass coefficients from the configured cuts.
func (m *MaskingNoise) SetParams(p params.MaskingNoise, sampleRate float64) {
	m.hpf.SetCoefficients(coeff.HighPass(p.LowCut, sampleRate, coeff.ButterworthQ))
	m.lpf.SetCoefficients(coeff.LowPass(p.HighCut, sampleRate, coeff.ButterworthQ))
}

// Next returns one bandpass-shaped, level-scaled sample of the configured
// noise color. MaskingOff returns 0 without advancing any generator state.
func (m *MaskingNoise) Next(p params.MaskingNoise) float64 {
	var raw float64
	switch p.Type {
	case params.MaskingOff:
		return 0
	case params.MaskingWhite:
		raw = m.rng.next()
	case params.MaskingPink:
		raw = m.pink.next()
	case params.MaskingBrown:
		raw = m.brown.next()
	default:
		raw = m.rng.next()
	}
	shaped := m.lpf.Process(m.hpf.Process(raw))
	return shaped * p.Level
}

// Reset zeros the bandpass filter state. The noise sources themselves are
// not reset - silence across a restart is not required, unlike filter
// transients.
func (m *MaskingNoise) Reset() {
	m.hpf.Reset()
	m.lpf.Reset()
}

// phaseOsc is a simple phase-accumulating sine oscillator that carries its
// phase across blocks to avoid clicks (§4.6: "All oscillators maintain
// phase across blocks"), grounded on the LFO phase-increment idiom used
// throughout the pack's audio-effects helpers (Tremolo/RingModulation:
// phase += freq/sampleRate, wrapped at 1.0).
type phaseOsc struct {
	phase float64
}

func (o *phaseOsc) next(freq, sampleRate float64) float64 {
	v := math.Sin(2 * math.Pi * o.phase)
	o.phase += freq / sampleRate
	if o.phase >= 1 {
		o.phase -= 1
	}
	return v
}

func (o *phaseOsc) reset() { o.phase = 0 }

// ToneFinder adds a continuous pure tone at the configured frequency and
// level, used to help a listener locate their tinnitus pitch.
type ToneFinder struct {
	osc phaseOsc
}

func (t *ToneFinder) Next(p params.ToneFinder, sampleRate float64) float64 {
	if !p.Enabled {
		return 0
	}
	return t.osc.next(p.Freq, sampleRate) * p.Level
}

func (t *ToneFinder) Reset() { t.osc.reset() }

// Binaural generates a carrier tone in the left channel and a
// carrier-plus-beat tone in the right channel; the perceived beat frequency
// is the interaural difference (§4.6).
type Binaural struct {
	left, right phaseOsc
}

func (b *Binaural) Next(p params.Binaural, sampleRate float64) (left, right float64) {
	if !p.Enabled {
		return 0, 0
	}
	left = b.left.next(p.Carrier, sampleRate) * p.Level
	right = b.right.next(p.Carrier+p.Beat, sampleRate) * p.Level
	return left, right
}

func (b *Binaural) Reset() {
	b.left.reset()
	b.right.reset()
}

// HFExtension is a high-shelf boost above the configured frequency,
// applied per channel.
type HFExtension struct {
	stage biquad.Biquad
}

func (h *HFExtension) SetParams(p params.HFExtension, sampleRate float64) {
	if !p.Enabled {
		h.stage.SetCoefficients(biquad.Coefficients{B0: 1, Bypass: true})
		return
	}
	h.stage.SetCoefficients(coeff.HighShelf(p.Freq, sampleRate, p.GainDb))
}

func (h *HFExtension) Process(x float64) float64 {
	if h.stage.IsBypass() {
		return x
	}
	return h.stage.Process(x)
}

func (h *HFExtension) Reset() { h.stage.Reset() }

// Channel bundles the per-channel tinnitus stages the pipeline driver owns
// one of for L and one for R (the masking-noise, tone-finder, and binaural
// generators are block-wide and owned separately, see Generators).
type Channel struct {
	Notches     Notches
	HFExtension HFExtension
}

func (c *Channel) SetParams(p params.Tinnitus, sampleRate float64) {
	c.Notches.SetParams(p.Notches, sampleRate)
	c.HFExtension.SetParams(p.HFExt, sampleRate)
}

func (c *Channel) Reset() {
	c.Notches.Reset()
	c.HFExtension.Reset()
}

// ProcessNotch applies only the notch bank, for use when NotchPlacement is
// PrePeakingEQ (the pipeline driver calls this before the 3-band EQ and
// ProcessPostEQ after it).
func (c *Channel) ProcessNotch(x float64) float64 {
	return c.Notches.Process(x)
}

// ProcessPostEQ applies the HF-extension shelf, and the notch bank too when
// NotchPlacement is PostPeakingEQ (§4.10).
func (c *Channel) ProcessPostEQ(x float64, placement params.TinnitusNotchPlacement) float64 {
	if placement == params.NotchPostPeakingEQ {
		x = c.Notches.Process(x)
	}
	x = c.HFExtension.Process(x)
	return x
}

// Generators bundles the block-wide tone-finder and binaural oscillators
// (mixed equally into both output channels for the tone, split across them
// for binaural) plus a per-channel masking-noise generator pair, each with
// its own pseudorandom source and its own HPF/LPF shaping so L and R are
// decorrelated (§4.6, spec: "bandpass-shaped by per-channel HPF/LPF
// biquads"). One Generators instance is shared by the whole engine, but its
// MaskingLeft/MaskingRight fields are not - each channel gets its own.
type Generators struct {
	MaskingLeft  MaskingNoise
	MaskingRight MaskingNoise
	Tone         ToneFinder
	Binaural     Binaural
}

// NewGenerators seeds the two masking-noise sources with fixed, arbitrary,
// distinct constants; the generator is cosmetic dither, not cryptographic,
// so deterministic seeds are fine and keep engine startup reproducible in
// tests, while still decorrelating L from R.
func NewGenerators() *Generators {
	return &Generators{
		MaskingLeft:  *NewMaskingNoise(0x2545f491),
		MaskingRight: *NewMaskingNoise(0x6c8e9cf3),
	}
}

func (g *Generators) SetParams(p params.Tinnitus, sampleRate float64) {
	g.MaskingLeft.SetParams(p.Masking, sampleRate)
	g.MaskingRight.SetParams(p.Masking, sampleRate)
}

// Next returns the additive (left, right) contribution of all three
// generators for one sample.
func (g *Generators) Next(p params.Tinnitus, sampleRate float64) (left, right float64) {
	noiseL := g.MaskingLeft.Next(p.Masking)
	noiseR := g.MaskingRight.Next(p.Masking)
	tone := g.Tone.Next(p.Tone, sampleRate)
	bL, bR := g.Binaural.Next(p.Binaural, sampleRate)
	left = noiseL + tone + bL
	right = noiseR + tone + bR
	return left, right
}

func (g *Generators) Reset() {
	g.MaskingLeft.Reset()
	g.MaskingRight.Reset()
	g.Tone.Reset()
	g.Binaural.Reset()
}
