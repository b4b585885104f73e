package params

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

// Property: for all inputs outside the declared range, the clamped value
// equals the documented bound (§8).
func TestClamp_MicGainBounds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v := rapid.Float64Range(-1000, 1000).Draw(t, "micGain")
		p := Clamp(Parameters{MicGain: v})
		assert.GreaterOrEqual(t, p.MicGain, 0.0)
		assert.LessOrEqual(t, p.MicGain, 240.0)
		if v >= 0 && v <= 240 {
			assert.Equal(t, v, p.MicGain)
		}
	})
}

func TestClamp_OutputGainAndVolume(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		gain := rapid.Float64Range(-100, 100).Draw(t, "gain")
		vol := rapid.Float64Range(-100, 1000).Draw(t, "volume")
		p := Clamp(Parameters{Out: Output{Gain: gain, Volume: vol}})
		assert.GreaterOrEqual(t, p.Out.Gain, 0.0)
		assert.LessOrEqual(t, p.Out.Gain, 6.0)
		assert.GreaterOrEqual(t, p.Out.Volume, 0.0)
		assert.LessOrEqual(t, p.Out.Volume, 100.0)
	})
}

func TestClamp_VoiceExclusionFilterLength(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		l := rapid.IntRange(-1000, 10000).Draw(t, "filterLength")
		p := Clamp(Parameters{VE: VoiceExclusion{FilterLength: l}})
		assert.GreaterOrEqual(t, p.VE.FilterLength, 16)
		assert.LessOrEqual(t, p.VE.FilterLength, 512)
	})
}

func TestDefault_IsMuted(t *testing.T) {
	assert.True(t, Default().Out.Mute)
}

// Round-trip law: Store.Set(p); Store.Get() == p after clamping (§8).
func TestStore_SetGetRoundTrip(t *testing.T) {
	s := NewStore()
	p := Default()
	p.MicGain = 1000 // out of range, should clamp on the way in
	s.Set(p)

	got := s.Get()
	assert.Equal(t, 240.0, got.MicGain)
}

func TestStore_SnapshotClearsDirtyOnce(t *testing.T) {
	s := NewStore()
	s.Set(Default())

	_, ok := s.Snapshot()
	assert.True(t, ok, "first snapshot after Set must report dirty")

	_, ok = s.Snapshot()
	assert.False(t, ok, "second snapshot with no intervening Set must not report dirty")
}

func TestStore_UpdateClampsAndMarksDirty(t *testing.T) {
	s := NewStore()
	s.Snapshot() // NewStore does not mark the store dirty, so this is a no-op; it makes the clean starting state explicit

	s.Update(func(p *Parameters) { p.Out.Gain = 99 })
	got := s.Get()
	assert.Equal(t, 6.0, got.Out.Gain)

	_, ok := s.Snapshot()
	assert.True(t, ok)
}

func TestStore_PublishLevelsAndRead(t *testing.T) {
	s := NewStore()
	s.PublishLevels(Levels{RMSLeft: 0.5, PeakRight: 0.9})

	l := s.Levels()
	assert.Equal(t, 0.5, l.RMSLeft)
	assert.Equal(t, 0.9, l.PeakRight)
}
