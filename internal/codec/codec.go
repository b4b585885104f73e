// Package codec defines the engine's consumed codec and headphone-detect
// contracts (§6) and a gordonklaus/portaudio-backed implementation for the
// sample host binary. No persistent state is owned by this package beyond
// the open audio stream itself (§6: "No persistent state is owned by the
// core").
package codec

// Device is the blocking, full-duplex audio device contract the pipeline
// driver reads from and writes to (§6 "Codec driver (consumed)"). A single
// Device instance is owned by exactly one worker at a time; it is never
// shared across engine instances.
type Device interface {
	// Reconfigure sets the device's operating sample rate, bit depth, and
	// channel layout. Called once before the worker starts.
	Reconfigure(sampleRate, bitsPerSample int, stereo bool) error

	// Read blocks until a full interleaved 4-channel 16-bit PCM block is
	// available, returning the number of int16 samples read (a short read,
	// bytesRead <= 0, is the engine's §7 taxonomy item 4 - skip and retry).
	Read(buf []int16) (n int, err error)

	// Write blocks until the interleaved 2-channel 16-bit PCM block has
	// been submitted to the device.
	Write(buf []int16) (n int, err error)

	SetInGain(gain int)  // 0..240, codec PGA units
	SetVolume(volume int) // 0..100
	SetMute(mute bool)

	// SetSpeakerAmp enables or disables the headset's speaker amplifier.
	// The engine disables it on Start (§4.8: "to prevent feedback") and
	// re-enables it on Stop.
	SetSpeakerAmp(enabled bool)

	Close() error
}

// HeadphoneDetector is the single-method probe consumed by the pipeline
// driver's headphone-presence check (§4.5 step 7, §4.13). A nil detector
// is treated by the engine as "always present" (§4.13), which is what the
// sample host uses when no physical jack-detect line exists.
type HeadphoneDetector interface {
	Present() bool
}
