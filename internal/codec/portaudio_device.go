package codec

import (
	"errors"
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// inputChannels and outputChannels match the headset's 4-channel capture
// (primary mic L/R, the codec's aux echo-cancellation reference, and the
// headphone-boom reference mic) and 2-channel playback wiring
// assumed throughout §4 and §6.
const (
	inputChannels  = 4
	outputChannels = 2
)

// PortaudioDevice is the gordonklaus/portaudio-backed Device implementation
// used by the sample host binary (§6 "Codec driver (consumed)"). It opens
// one full-duplex pair of blocking streams and reads/writes int16 PCM
// directly, matching the codec's native 16-bit interleaved format so no
// conversion happens on the hot path.
//
// Grounded on the capture/playback stream lifecycle in
// other_examples/531227bb_rustyguts-bken__client-audio.go.go and the
// StreamParameters construction in
// other_examples/7d06a8e3_rayboyd-audio-engine__internal-audio-engine.go.go.
type PortaudioDevice struct {
	inputStream  *portaudio.Stream
	outputStream *portaudio.Stream

	inBuf  []int16
	outBuf []int16

	gain       int
	volume     int
	muted      bool
	speakerAmp bool
}

// NewPortaudioDevice initializes the portaudio library. Call Close to
// terminate it and release the bound streams.
func NewPortaudioDevice() (*PortaudioDevice, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("codec: portaudio init: %w", err)
	}
	return &PortaudioDevice{}, nil
}

// Reconfigure opens the input and output streams at the given rate and
// depth. Only 16-bit PCM is supported; the headset codec has no other mode
// (§6). Any previously open streams are closed first.
func (d *PortaudioDevice) Reconfigure(sampleRate, bitsPerSample int, stereo bool) error {
	if bitsPerSample != 16 {
		return fmt.Errorf("codec: unsupported bit depth %d, only 16-bit PCM", bitsPerSample)
	}
	if err := d.closeStreams(); err != nil {
		return err
	}

	inDev, err := portaudio.DefaultInputDevice()
	if err != nil {
		return fmt.Errorf("codec: default input device: %w", err)
	}
	outDev, err := portaudio.DefaultOutputDevice()
	if err != nil {
		return fmt.Errorf("codec: default output device: %w", err)
	}

	// FramesPerBuffer is one 10ms block at the stream's rate
	// (sampleRate/100) to match the engine's per-block cadence (§4.5); at
	// 48kHz capture that is 480 frames.
	framesPerBuffer := sampleRate / 100

	d.inBuf = make([]int16, framesPerBuffer*inputChannels)
	inParams := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   inDev,
			Channels: inputChannels,
			Latency:  inDev.DefaultLowInputLatency,
		},
		SampleRate:      float64(sampleRate),
		FramesPerBuffer: framesPerBuffer,
	}
	inStream, err := portaudio.OpenStream(inParams, d.inBuf)
	if err != nil {
		return fmt.Errorf("codec: open input stream: %w", err)
	}

	d.outBuf = make([]int16, framesPerBuffer*outputChannels)
	outParams := portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Device:   outDev,
			Channels: outputChannels,
			Latency:  outDev.DefaultLowOutputLatency,
		},
		SampleRate:      float64(sampleRate),
		FramesPerBuffer: framesPerBuffer,
	}
	outStream, err := portaudio.OpenStream(outParams, d.outBuf)
	if err != nil {
		inStream.Close()
		return fmt.Errorf("codec: open output stream: %w", err)
	}

	if err := inStream.Start(); err != nil {
		inStream.Close()
		outStream.Close()
		return fmt.Errorf("codec: start input stream: %w", err)
	}
	if err := outStream.Start(); err != nil {
		inStream.Stop()
		inStream.Close()
		outStream.Close()
		return fmt.Errorf("codec: start output stream: %w", err)
	}

	d.inputStream = inStream
	d.outputStream = outStream
	return nil
}

// Read blocks until one buffer's worth of interleaved 4-channel PCM is
// captured, then copies it into buf.
func (d *PortaudioDevice) Read(buf []int16) (int, error) {
	if d.inputStream == nil {
		return 0, errors.New("codec: Read before Reconfigure")
	}
	if err := d.inputStream.Read(); err != nil {
		return 0, fmt.Errorf("codec: stream read: %w", err)
	}
	n := copy(buf, d.inBuf)
	return n, nil
}

// Write blocks until the interleaved 2-channel PCM in buf has been
// submitted for playback.
func (d *PortaudioDevice) Write(buf []int16) (int, error) {
	if d.outputStream == nil {
		return 0, errors.New("codec: Write before Reconfigure")
	}
	n := copy(d.outBuf, buf)
	if d.muted {
		for i := range d.outBuf {
			d.outBuf[i] = 0
		}
	}
	if err := d.outputStream.Write(); err != nil {
		return 0, fmt.Errorf("codec: stream write: %w", err)
	}
	return n, nil
}

// SetInGain, SetVolume, SetMute, and SetSpeakerAmp record the requested
// state for the sample host. The portaudio binding exposes no codec PGA,
// volume, or amp-enable controls (it targets the host's generic audio
// subsystem, not this project's specific codec chip). The only one with an
// effect is SetMute: while muted, Write submits silence in place of buf.
// Gain, volume, and amp state are stored and otherwise unused - a real
// headset build replaces this file with one that talks to the codec's
// control registers directly.
func (d *PortaudioDevice) SetInGain(gain int)  { d.gain = gain }
func (d *PortaudioDevice) SetVolume(volume int) { d.volume = volume }
func (d *PortaudioDevice) SetMute(mute bool)    { d.muted = mute }
func (d *PortaudioDevice) SetSpeakerAmp(enabled bool) { d.speakerAmp = enabled }

func (d *PortaudioDevice) closeStreams() error {
	if d.inputStream != nil {
		if err := d.inputStream.Stop(); err != nil {
			return fmt.Errorf("codec: stop input stream: %w", err)
		}
		if err := d.inputStream.Close(); err != nil {
			return fmt.Errorf("codec: close input stream: %w", err)
		}
		d.inputStream = nil
	}
	if d.outputStream != nil {
		if err := d.outputStream.Stop(); err != nil {
			return fmt.Errorf("codec: stop output stream: %w", err)
		}
		if err := d.outputStream.Close(); err != nil {
			return fmt.Errorf("codec: close output stream: %w", err)
		}
		d.outputStream = nil
	}
	return nil
}

// Close stops and releases any open streams and terminates the portaudio
// library binding.
func (d *PortaudioDevice) Close() error {
	if err := d.closeStreams(); err != nil {
		return err
	}
	return portaudio.Terminate()
}
