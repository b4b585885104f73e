// Package engine implements the DSP pipeline driver (§4.5) and its
// lifecycle (§4.8): one dedicated worker goroutine runs the per-block
// chain described by SPEC_FULL.md §4.5 until told to stop, reading and
// writing through a codec.Device and exposing thread-safe parameter/level
// access to any number of caller goroutines.
package engine

import (
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/doismellburning/aurafilter/internal/aecbridge"
	"github.com/doismellburning/aurafilter/internal/biquad"
	"github.com/doismellburning/aurafilter/internal/codec"
	"github.com/doismellburning/aurafilter/internal/helpers"
	"github.com/doismellburning/aurafilter/internal/meter"
	"github.com/doismellburning/aurafilter/internal/nlms"
	"github.com/doismellburning/aurafilter/internal/params"
	"github.com/doismellburning/aurafilter/internal/resample"
	"github.com/doismellburning/aurafilter/internal/tinnitus"
)

// Block sizes fixed by §4.5 ("fixed block size 480 samples at 48 kHz - 10
// ms") and §3 invariant 6 ("The 16 kHz helper frame size is always 160
// samples").
const (
	BlockSize48 = 480
	SampleRate48 = 48000.0

	BlockSize16 = 160
	SampleRate16 = 16000.0

	// inputChannels is the codec's 4-channel capture layout (§1: two
	// primary mics, an aux AEC reference, a headphone-boom reference
	// mic). §4.5 step 2 deinterleaves only three of these into the
	// float pipeline (primary L, primary R, reference HP); the fourth
	// is not consumed by this core, matching the step's own text
	// literally rather than inventing a use for it.
	inputChannels  = 4
	outputChannels = 2

	// headphonePollBlocks is "at most every 48 blocks" (~1/2 s at 10 ms
	// blocks) from §4.5 step 7 / §4.13.
	headphonePollBlocks = 48
)

// Providers bundles the four opaque external DSP helper factories the
// engine is polymorphic over (§4.9). Any field left nil disables that
// feature regardless of what Parameters requests - the engine treats a
// nil provider like a helper-creation failure (§7 item 2: leave disabled,
// keep running), except that nothing is logged for it.
type Providers struct {
	NS  helpers.NoiseSuppressorProvider
	AGC helpers.AGCProvider
	AEC helpers.AECProvider
	VAD helpers.VADProvider
}

// channelFilters is one primary channel's biquad chain: HPF, LPF, three
// peaking-EQ bands (§4.5 steps 3-4), plus its tinnitus stages (§4.6).
type channelFilters struct {
	hpf, lpf biquad.Biquad
	eq       [3]biquad.Biquad
	tinnitus tinnitus.Channel
	meter    meter.Meter
}

func (c *channelFilters) reset() {
	c.hpf.Reset()
	c.lpf.Reset()
	for i := range c.eq {
		c.eq[i].Reset()
	}
	c.tinnitus.Reset()
	c.meter.Reset()
}

// resamplerPair is one audio path's private 48<->16 kHz bridge (§4.3:
// "resampler state must not be shared").
type resamplerPair struct {
	down *resample.Downsampler3
	up   *resample.Upsampler3
}

func newResamplerPair() resamplerPair {
	return resamplerPair{down: resample.NewDownsampler3(), up: resample.NewUpsampler3()}
}

func (r resamplerPair) reset() {
	r.down.Reset()
	r.up.Reset()
}

// nlmsPath is the voice-exclusion NLMS strategy's full private state: one
// adaptive filter per primary channel, each with its own reference/primary
// downsamplers and estimate upsampler (§4.4, §4.5 step 8).
type nlmsPath struct {
	left, right *nlms.Filter

	downRefForLeft, downRefForRight resamplerPair // HP reference, downsampled once per channel use
	downLeft, downRight             resamplerPair
	upLeft, upRight                 resamplerPair
}

func newNLMSPath(filterLength int) *nlmsPath {
	return &nlmsPath{
		left:            nlms.New(filterLength),
		right:           nlms.New(filterLength),
		downRefForLeft:  newResamplerPair(),
		downRefForRight: newResamplerPair(),
		downLeft:        newResamplerPair(),
		downRight:       newResamplerPair(),
		upLeft:          newResamplerPair(),
		upRight:         newResamplerPair(),
	}
}

// aecPath is the voice-exclusion AEC-bridge strategy's private state
// (§4.5 step 8, §4.11).
type aecPath struct {
	downLeft, downRight, downRef resamplerPair
	upLeft, upRight              resamplerPair

	accLeft, accRight, accRef aecbridge.FrameAccumulator
	outLeft, outRight         aecbridge.OutputQueue

	canceller helpers.EchoCanceller
	vad       helpers.VoiceActivityDetector

	lastVadSpeech bool
}

// helperChannel is a bridge-pair used by the NS/AGC 48<->16 kHz passes,
// one per primary channel, private to that feature (§4.3).
type helperChannel struct {
	down resamplerPair
	up   resamplerPair
}

func newHelperChannel() helperChannel {
	return helperChannel{down: newResamplerPair(), up: newResamplerPair()}
}

// Engine owns the whole DSP pipeline: the worker goroutine, every piece of
// exclusively-owned filter/resampler/adaptive-filter state, and the
// external helper handles. Only the embedded parameter Store and the
// codec/headphone collaborators are touched by non-worker goroutines
// (§5: "Shared resource policy").
type Engine struct {
	store    *params.Store
	device   codec.Device
	hpDetect codec.HeadphoneDetector
	logger   *log.Logger
	prov     Providers

	running atomic.Bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	wg      sync.WaitGroup

	// Worker-exclusive state from here down; never touched by another
	// goroutine while the worker is running (§5).
	current params.Parameters

	refHpf, refLpf biquad.Biquad
	refMeter       meter.Meter

	left, right channelFilters
	generators  *tinnitus.Generators

	nlmsSt *nlmsPath
	aecSt  *aecPath

	nsEnabled bool
	nsLeft    helperChannel
	nsRight   helperChannel
	nsHelperL helpers.NoiseSuppressor
	nsHelperR helpers.NoiseSuppressor

	agcEnabled bool
	agcLeft    helperChannel
	agcRight   helperChannel
	agcHelperL helpers.AutomaticGainControl
	agcHelperR helpers.AutomaticGainControl

	headphoneBlockCounter int
	headphonePresent      bool
}

// New constructs an Engine. device and providers may be real
// implementations or test doubles; hpDetect may be nil, meaning
// headphones are always treated as present (§4.13). logger may be nil, in
// which case log.Default() is used.
func New(device codec.Device, hpDetect codec.HeadphoneDetector, prov Providers, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{
		store:      params.NewStore(),
		device:     device,
		hpDetect:   hpDetect,
		logger:     logger,
		prov:       prov,
		generators: tinnitus.NewGenerators(),
	}
}

// SetParams replaces the whole parameter record (clamped) and marks the
// store dirty, picked up by the worker at the next block boundary (§6,
// §4.7).
func (e *Engine) SetParams(p params.Parameters) {
	e.store.Set(p)
}

// GetParams returns the current parameter record.
func (e *Engine) GetParams() params.Parameters {
	return e.store.Get()
}

// Update applies fn to a copy of the current parameters and stores the
// clamped result - the mechanism behind every per-field setter below (§6).
func (e *Engine) Update(fn func(*params.Parameters)) {
	e.store.Update(fn)
}

// SetMicGain sets the input PGA gain (§3: micGain in [0, 240]).
func (e *Engine) SetMicGain(gain float64) {
	e.store.Update(func(p *params.Parameters) { p.MicGain = gain })
}

// SetHPFEnabled toggles the input high-pass filter.
func (e *Engine) SetHPFEnabled(enabled bool) {
	e.store.Update(func(p *params.Parameters) { p.HPF.Enabled = enabled })
}

// SetHPFFrequency sets the input high-pass corner (§3: HPF in [20, 2000] Hz).
func (e *Engine) SetHPFFrequency(hz float64) {
	e.store.Update(func(p *params.Parameters) { p.HPF.Frequency = hz })
}

// SetLPFEnabled toggles the input low-pass filter.
func (e *Engine) SetLPFEnabled(enabled bool) {
	e.store.Update(func(p *params.Parameters) { p.LPF.Enabled = enabled })
}

// SetLPFFrequency sets the input low-pass corner (§3: LPF in [500, 20000] Hz).
func (e *Engine) SetLPFFrequency(hz float64) {
	e.store.Update(func(p *params.Parameters) { p.LPF.Frequency = hz })
}

// SetEqLowGain sets the 250 Hz peaking-EQ band's gain (§3: EQ in [-12, 12] dB).
func (e *Engine) SetEqLowGain(db float64) {
	e.store.Update(func(p *params.Parameters) { p.EQ[0].GainDb = db })
}

// SetEqMidGain sets the 1000 Hz peaking-EQ band's gain (§3: EQ in [-12, 12]
// dB; §8 scenario 6: "setter churn ... change eqMidGain").
func (e *Engine) SetEqMidGain(db float64) {
	e.store.Update(func(p *params.Parameters) { p.EQ[1].GainDb = db })
}

// SetEqHighGain sets the 4000 Hz peaking-EQ band's gain (§3: EQ in [-12, 12] dB).
func (e *Engine) SetEqHighGain(db float64) {
	e.store.Update(func(p *params.Parameters) { p.EQ[2].GainDb = db })
}

// SetOutputGain sets the final output gain stage (§3: Output.gain in [0, 6]).
func (e *Engine) SetOutputGain(gain float64) {
	e.store.Update(func(p *params.Parameters) { p.Out.Gain = gain })
}

// SetOutputVolume sets the final output volume (§3: Output.volume in [0, 100]).
func (e *Engine) SetOutputVolume(volume float64) {
	e.store.Update(func(p *params.Parameters) { p.Out.Volume = volume })
}

// SetOutputMute sets whether the produced block is zeroed after metering
// (§3 invariant 5: "Mute ... zeros the produced block after metering").
func (e *Engine) SetOutputMute(mute bool) {
	e.store.Update(func(p *params.Parameters) { p.Out.Mute = mute })
}

// Levels returns the latest published Levels snapshot (§6: "getLevels").
func (e *Engine) Levels() params.Levels {
	return e.store.Levels()
}

// IsRunning reports whether the worker goroutine is active.
func (e *Engine) IsRunning() bool {
	return e.running.Load()
}
