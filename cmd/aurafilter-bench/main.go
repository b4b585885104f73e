// aurafilter-bench is the sample host binary: it wires a real (or fake)
// audio device, a YAML-loaded parameter file, and the in-package fake
// external helper providers into a running engine.Engine, runs it for a fixed duration, and
// reports the final metering snapshot.
package main

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/doismellburning/aurafilter/internal/codec"
	"github.com/doismellburning/aurafilter/internal/engine"
	"github.com/doismellburning/aurafilter/internal/helpers"
	"github.com/doismellburning/aurafilter/internal/params"
)

func main() {
	var (
		configFile = pflag.StringP("config-file", "c", "", "YAML parameter file to load at startup. If empty, safe defaults are used.")
		device     = pflag.StringP("device", "d", "fake", "Audio device backend: 'portaudio' for a real device, 'fake' for an in-process loopback double.")
		logLevel   = pflag.StringP("log-level", "l", "info", "Log level: debug, info, warn, error.")
		duration   = pflag.DurationP("duration", "t", 5*time.Second, "How long to run before stopping and reporting levels.")
		saveConfig = pflag.StringP("save-config", "s", "", "If set, write the effective (clamped) parameters to this path and exit without running.")
		help       = pflag.BoolP("help", "h", false, "Display help text.")
	)

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - sample host for the headset audio enhancement engine.\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nUsage: %s [options]\n\n", os.Args[0])
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(0)
	}

	logger := log.New(os.Stderr)
	if lvl, err := log.ParseLevel(*logLevel); err == nil {
		logger.SetLevel(lvl)
	} else {
		logger.Warn("unrecognized log level, defaulting to info", "value", *logLevel)
	}

	p := params.Default()
	if *configFile != "" {
		loaded, err := params.LoadFile(*configFile)
		if err != nil {
			logger.Error("failed to load config file", "path", *configFile, "err", err)
			os.Exit(1)
		}
		p = loaded
	}

	if *saveConfig != "" {
		if err := params.SaveFile(*saveConfig, p); err != nil {
			logger.Error("failed to save config file", "path", *saveConfig, "err", err)
			os.Exit(1)
		}
		fmt.Printf("wrote effective parameters to %s\n", *saveConfig)
		return
	}

	dev, hpDetect, err := openDevice(*device, *duration)
	if err != nil {
		logger.Error("failed to open audio device", "backend", *device, "err", err)
		os.Exit(1)
	}
	defer func() {
		if err := dev.Close(); err != nil {
			logger.Error("failed to close audio device", "err", err)
		}
	}()

	// The external NS/AGC/AEC/VAD binaries are platform-specific and out of
	// this module's scope (§1 Non-goals); the sample host exercises the
	// full create/process/destroy lifecycle against the in-package fakes
	// instead (§6: "external collaborators").
	prov := engine.Providers{
		NS:  helpers.FakeNoiseSuppressorProvider{Attenuation: 0.85},
		AGC: helpers.FakeAGCProvider{},
		AEC: helpers.FakeAECProvider{},
		VAD: helpers.FakeVADProvider{},
	}

	eng := engine.New(dev, hpDetect, prov, logger)
	eng.SetParams(p)

	if err := eng.Start(); err != nil {
		logger.Error("engine failed to start", "err", err)
		os.Exit(1)
	}

	logger.Info("engine running", "duration", *duration)
	time.Sleep(*duration)

	eng.Stop()

	levels := eng.Levels()
	fmt.Printf("final levels:\n")
	fmt.Printf("  RMS  left=%.4f right=%.4f headphoneRef=%.4f\n", levels.RMSLeft, levels.RMSRight, levels.RMSHP)
	fmt.Printf("  peak left=%.4f right=%.4f headphoneRef=%.4f\n", levels.PeakLeft, levels.PeakRight, levels.PeakHP)
	fmt.Printf("  mic calibration ratio=%.4f vadSpeech=%v\n", levels.MicRatio, levels.VadSpeechDetected)
}

// openDevice opens the selected audio backend. "fake" returns an in-process
// FakeDevice pre-loaded with a steady tone so the pipeline has something to
// process without any real hardware; "portaudio" opens the host's default
// input/output devices.
func openDevice(backend string, runFor time.Duration) (codec.Device, codec.HeadphoneDetector, error) {
	switch backend {
	case "portaudio":
		dev, err := codec.NewPortaudioDevice()
		if err != nil {
			return nil, nil, err
		}
		return dev, nil, nil
	case "fake":
		// One block is 10ms (§4.5); queue one tone block per 10ms of the
		// run. FakeDevice.Read does not block, so the worker consumes the
		// queue as fast as it can and then takes the benign-short-read path
		// for the rest of the run.
		blockCount := int(runFor/(10*time.Millisecond)) + 1
		dev := &codec.FakeDevice{InputQueue: fakeToneBlocks(blockCount)}
		hp := codec.FakeHeadphoneDetector{PresentValue: true}
		return dev, hp, nil
	default:
		return nil, nil, fmt.Errorf("unknown device backend %q (want 'portaudio' or 'fake')", backend)
	}
}

// fakeToneBlocks synthesizes n 4-channel input blocks carrying a quiet tone
// on the two primary channels (the reference channels stay silent), one
// block per fake device Read.
func fakeToneBlocks(n int) [][]int16 {
	const (
		blockSize      = engine.BlockSize48
		channels       = 4
		amplitude      = 4000
		cyclesPerBlock = 10
	)
	blocks := make([][]int16, n)
	phase := 0.0
	step := 2 * math.Pi * cyclesPerBlock / blockSize
	for b := range blocks {
		buf := make([]int16, blockSize*channels)
		for i := 0; i < blockSize; i++ {
			v := int16(amplitude * math.Sin(phase))
			buf[i*channels] = v
			buf[i*channels+1] = v
			phase += step
		}
		blocks[b] = buf
	}
	return blocks
}
