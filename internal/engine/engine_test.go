package engine

import (
	"testing"
	"time"

	"github.com/doismellburning/aurafilter/internal/codec"
	"github.com/doismellburning/aurafilter/internal/helpers"
	"github.com/doismellburning/aurafilter/internal/params"
	"github.com/stretchr/testify/require"
)

// testBlock builds one 4-channel 48 kHz interleaved block with value on the
// two primary channels and the HP reference (and fourth channel) left at
// zero.
func testBlock(value int16) []int16 {
	buf := make([]int16, BlockSize48*inputChannels)
	for i := 0; i < BlockSize48; i++ {
		buf[i*inputChannels] = value
		buf[i*inputChannels+1] = value
	}
	return buf
}

func waitForWrites(t *testing.T, dev *codec.FakeDevice, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(dev.Written) >= n {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d written blocks, got %d", n, len(dev.Written))
}

func newTestEngine(dev *codec.FakeDevice, hp codec.HeadphoneDetector, prov Providers) *Engine {
	return New(dev, hp, prov, nil)
}

func TestEngine_StartStopLifecycle(t *testing.T) {
	dev := &codec.FakeDevice{}
	e := newTestEngine(dev, nil, Providers{})

	require.False(t, e.IsRunning())
	require.NoError(t, e.Start())
	require.True(t, e.IsRunning())
	require.ErrorIs(t, e.Start(), ErrAlreadyRunning)

	e.Stop()
	require.False(t, e.IsRunning())
	require.True(t, dev.Muted, "stop must mute the device")
	require.True(t, dev.SpeakerAmp, "stop must re-enable the speaker amp")

	// Stop is idempotent.
	e.Stop()
	require.False(t, e.IsRunning())
}

func TestEngine_StartDisablesSpeakerAmpBeforeFirstBlock(t *testing.T) {
	dev := &codec.FakeDevice{}
	e := newTestEngine(dev, nil, Providers{})
	require.NoError(t, e.Start())
	defer e.Stop()
	// SetSpeakerAmp(false) happens synchronously in Start, before the
	// worker goroutine is even dispatched.
	require.False(t, dev.SpeakerAmp)
}

func TestEngine_ParamsRoundTrip(t *testing.T) {
	dev := &codec.FakeDevice{}
	e := newTestEngine(dev, nil, Providers{})

	p := e.GetParams()
	p.MicGain = 200
	p.Out.Mute = false
	e.SetParams(p)

	got := e.GetParams()
	require.Equal(t, 200.0, got.MicGain)
	require.False(t, got.Out.Mute)

	e.Update(func(p *params.Parameters) {
		p.MicGain = 999 // out of range, must be clamped
	})
	require.Equal(t, 240.0, e.GetParams().MicGain)
}

func TestEngine_MuteZeroesOutput(t *testing.T) {
	dev := &codec.FakeDevice{InputQueue: [][]int16{testBlock(10000), testBlock(10000)}}
	e := newTestEngine(dev, nil, Providers{})

	p := params.Default()
	p.Out.Mute = true
	e.SetParams(p)

	require.NoError(t, e.Start())
	defer e.Stop()

	waitForWrites(t, dev, 2)
	for _, block := range dev.Written {
		for _, s := range block {
			require.Equal(t, int16(0), s)
		}
	}
}

func TestEngine_UnmutedPassthroughIsNonZero(t *testing.T) {
	dev := &codec.FakeDevice{InputQueue: [][]int16{testBlock(10000)}}
	e := newTestEngine(dev, nil, Providers{})

	p := params.Default()
	p.Out.Mute = false
	p.Out.Gain = 1.0
	e.SetParams(p)

	require.NoError(t, e.Start())
	defer e.Stop()

	waitForWrites(t, dev, 1)
	block := dev.Written[0]
	nonZero := false
	for _, s := range block {
		if s != 0 {
			nonZero = true
			break
		}
	}
	require.True(t, nonZero, "unmuted passthrough of a loud input must not collapse to silence")
}

func TestEngine_OutputGainNeverOverflowsInt16Range(t *testing.T) {
	dev := &codec.FakeDevice{InputQueue: [][]int16{testBlock(32767), testBlock(-32768)}}
	e := newTestEngine(dev, nil, Providers{})

	p := params.Default()
	p.Out.Mute = false
	p.Out.Gain = 6.0 // max allowed gain, deliberately driving the stage into clip
	p.Out.BoostEnabled = true
	e.SetParams(p)

	require.NoError(t, e.Start())
	defer e.Stop()

	waitForWrites(t, dev, 2)
	// Full-scale positive then full-scale negative input: a saturated stage
	// keeps each block's sign, where an int16 wrap-around would flip it.
	for _, s := range dev.Written[0] {
		require.Greater(t, s, int16(0))
	}
	for _, s := range dev.Written[1] {
		require.Less(t, s, int16(0))
	}
}

func TestEngine_LevelsPublishedAfterBlocks(t *testing.T) {
	dev := &codec.FakeDevice{InputQueue: [][]int16{testBlock(10000), testBlock(10000)}}
	e := newTestEngine(dev, nil, Providers{})

	p := params.Default()
	p.Out.Mute = false
	e.SetParams(p)

	require.NoError(t, e.Start())
	defer e.Stop()

	waitForWrites(t, dev, 2)
	levels := e.Levels()
	require.Greater(t, levels.RMSLeft, 0.0)
	require.Greater(t, levels.RMSRight, 0.0)
}

func TestEngine_HeadphoneAbsenceDisablesVoiceExclusion(t *testing.T) {
	// Primary channels and the HP reference all carry signal, so the NLMS
	// path has something to cancel if it runs.
	block := testBlock(10000)
	for i := 0; i < BlockSize48; i++ {
		block[i*inputChannels+2] = 10000
	}
	dev := &codec.FakeDevice{InputQueue: [][]int16{block}}
	hp := codec.FakeHeadphoneDetector{PresentValue: false}
	e := newTestEngine(dev, hp, Providers{})

	p := params.Default()
	p.Out.Mute = false
	p.VE.Enabled = true
	p.VE.Mode = params.VoiceExclusionNLMS
	e.applyParameterSnapshot(params.Parameters{}, p)
	e.resetFilterState()

	require.NotNil(t, e.nlmsSt, "NLMS state is still allocated even when headphones are absent")

	// processBlock polls the detector on its first block and, with no
	// headphones present, skips voice exclusion; every other stage is at its
	// bypass default, so the block passes through unchanged
	// (10000/32768 scaled by 32767 truncates to 9999).
	e.processBlock()
	require.False(t, e.headphonePresent)
	require.Len(t, dev.Written, 1)
	for _, s := range dev.Written[0] {
		require.Equal(t, int16(9999), s, "voice exclusion must not run while headphones are absent")
	}
}

func TestEngine_VoiceExclusionModeSwitchSwapsState(t *testing.T) {
	dev := &codec.FakeDevice{}
	e := newTestEngine(dev, nil, Providers{AEC: helpers.FakeAECProvider{}})

	p := params.Default()
	p.VE.Enabled = true
	p.VE.Mode = params.VoiceExclusionNLMS
	e.applyParameterSnapshot(params.Parameters{}, p)
	require.NotNil(t, e.nlmsSt)
	require.Nil(t, e.aecSt)

	prev := p
	p.VE.Mode = params.VoiceExclusionAEC
	e.applyParameterSnapshot(prev, p)
	require.Nil(t, e.nlmsSt)
	require.NotNil(t, e.aecSt)

	prev = p
	p.VE.Mode = params.VoiceExclusionNLMS
	e.applyParameterSnapshot(prev, p)
	require.NotNil(t, e.nlmsSt)
	require.Nil(t, e.aecSt)
}

func TestEngine_NSHelperOpenFailureLeavesNSDisabled(t *testing.T) {
	dev := &codec.FakeDevice{}
	e := newTestEngine(dev, nil, Providers{NS: helpers.FakeNoiseSuppressorProvider{FailOpen: true}})

	p := params.Default()
	p.NS.Enabled = true
	e.applyParameterSnapshot(params.Parameters{}, p)

	require.False(t, e.nsEnabled, "a failed helper open must leave the feature disabled, not crash the worker")
}

func TestEngine_AGCHelperOpensAndConfigures(t *testing.T) {
	dev := &codec.FakeDevice{}
	e := newTestEngine(dev, nil, Providers{AGC: helpers.FakeAGCProvider{}})

	p := params.Default()
	p.AGC.Enabled = true
	p.AGC.CompressionGainDb = 6
	e.applyParameterSnapshot(params.Parameters{}, p)

	require.True(t, e.agcEnabled)
	require.NotNil(t, e.agcHelperL)
	require.NotNil(t, e.agcHelperR)
}

func TestEngine_StopClosesAllHandles(t *testing.T) {
	dev := &codec.FakeDevice{}
	e := newTestEngine(dev, nil, Providers{
		NS:  helpers.FakeNoiseSuppressorProvider{},
		AGC: helpers.FakeAGCProvider{},
		AEC: helpers.FakeAECProvider{},
	})

	p := params.Default()
	p.NS.Enabled = true
	p.AGC.Enabled = true
	p.VE.Enabled = true
	p.VE.Mode = params.VoiceExclusionAEC
	e.SetParams(p)

	require.NoError(t, e.Start())
	e.Stop()

	require.Nil(t, e.aecSt)
	require.False(t, e.nsEnabled)
	require.False(t, e.agcEnabled)
}

func TestEngine_SetEqMidGain_ClampsToBound(t *testing.T) {
	dev := &codec.FakeDevice{}
	e := newTestEngine(dev, nil, Providers{})

	e.SetEqMidGain(6)
	require.Equal(t, 6.0, e.GetParams().EQ[1].GainDb)

	e.SetEqMidGain(999)
	require.Equal(t, 12.0, e.GetParams().EQ[1].GainDb, "must clamp per §3 rather than accept out-of-range input")

	e.SetEqMidGain(-999)
	require.Equal(t, -12.0, e.GetParams().EQ[1].GainDb)
}

// Setter churn (§8 scenario 6): rapid repeated calls to a single named
// per-field setter must never leave the store in an inconsistent or
// partially-applied state, and every read back must be a value that was
// actually requested (once clamped).
func TestEngine_SetEqMidGain_SetterChurnStaysConsistent(t *testing.T) {
	dev := &codec.FakeDevice{}
	e := newTestEngine(dev, nil, Providers{})

	for i := 0; i < 100; i++ {
		db := float64(i%25) - 12 // sweeps the whole [-12, 12] range, bounds included
		e.SetEqMidGain(db)
		got := e.GetParams().EQ[1].GainDb
		require.GreaterOrEqual(t, got, -12.0)
		require.LessOrEqual(t, got, 12.0)
		require.Equal(t, db, got)
	}
}

func TestEngine_PerFieldSetters_OnlyTouchTheirOwnField(t *testing.T) {
	dev := &codec.FakeDevice{}
	e := newTestEngine(dev, nil, Providers{})

	before := e.GetParams()
	e.SetMicGain(180)
	e.SetHPFEnabled(true)
	e.SetHPFFrequency(200)
	e.SetLPFEnabled(true)
	e.SetLPFFrequency(8000)
	e.SetEqLowGain(3)
	e.SetEqMidGain(-4)
	e.SetEqHighGain(5)
	e.SetOutputGain(2)
	e.SetOutputVolume(50)
	e.SetOutputMute(false)

	got := e.GetParams()
	require.Equal(t, 180.0, got.MicGain)
	require.True(t, got.HPF.Enabled)
	require.Equal(t, 200.0, got.HPF.Frequency)
	require.True(t, got.LPF.Enabled)
	require.Equal(t, 8000.0, got.LPF.Frequency)
	require.Equal(t, 3.0, got.EQ[0].GainDb)
	require.Equal(t, -4.0, got.EQ[1].GainDb)
	require.Equal(t, 5.0, got.EQ[2].GainDb)
	require.Equal(t, 2.0, got.Out.Gain)
	require.Equal(t, 50.0, got.Out.Volume)
	require.False(t, got.Out.Mute)

	// Fields never touched by any of the above setters must be untouched.
	require.Equal(t, before.NS, got.NS)
	require.Equal(t, before.AGC, got.AGC)
	require.Equal(t, before.VE, got.VE)
	require.Equal(t, before.Tinnitus, got.Tinnitus)
}
