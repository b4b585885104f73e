package codec

import "errors"

// FakeDevice is an in-memory Device double for engine tests and the sample
// host's loopback mode. Read replays whatever was queued onto InputQueue;
// Write appends to Written for the test to inspect.
type FakeDevice struct {
	SampleRate    int
	BitsPerSample int
	Stereo        bool

	InputQueue [][]int16 // each element is one Read's worth of samples
	Written    [][]int16

	Gain       int
	Volume     int
	Muted      bool
	SpeakerAmp bool

	closed bool
}

func (d *FakeDevice) Reconfigure(sampleRate, bitsPerSample int, stereo bool) error {
	d.SampleRate = sampleRate
	d.BitsPerSample = bitsPerSample
	d.Stereo = stereo
	return nil
}

// Read pops the next queued block into buf. An empty queue returns
// (0, nil), mirroring a benign short read (§7 taxonomy item 4).
func (d *FakeDevice) Read(buf []int16) (int, error) {
	if len(d.InputQueue) == 0 {
		return 0, nil
	}
	block := d.InputQueue[0]
	d.InputQueue = d.InputQueue[1:]
	n := copy(buf, block)
	return n, nil
}

func (d *FakeDevice) Write(buf []int16) (int, error) {
	if d.closed {
		return 0, errors.New("fake device: write after close")
	}
	out := make([]int16, len(buf))
	copy(out, buf)
	if d.Muted {
		for i := range out {
			out[i] = 0
		}
	}
	d.Written = append(d.Written, out)
	return len(buf), nil
}

func (d *FakeDevice) SetInGain(gain int)        { d.Gain = gain }
func (d *FakeDevice) SetVolume(volume int)      { d.Volume = volume }
func (d *FakeDevice) SetMute(mute bool)         { d.Muted = mute }
func (d *FakeDevice) SetSpeakerAmp(enabled bool) { d.SpeakerAmp = enabled }

func (d *FakeDevice) Close() error {
	d.closed = true
	return nil
}

// FakeHeadphoneDetector returns a fixed presence value, for exercising the
// engine's §4.13 probe without real hardware.
type FakeHeadphoneDetector struct {
	PresentValue bool
}

func (f FakeHeadphoneDetector) Present() bool { return f.PresentValue }
