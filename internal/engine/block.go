package engine

import (
	"math"

	"github.com/doismellburning/aurafilter/internal/helpers"
	"github.com/doismellburning/aurafilter/internal/meter"
	"github.com/doismellburning/aurafilter/internal/params"
)

// processBlock runs exactly one iteration of §4.5's chain: read, split,
// filter, EQ, tinnitus inject, reference-condition, cancel, NS, AGC, gain,
// meter, clamp, mute, write. It blocks exactly twice - on the codec read
// and the codec write - with everything else non-blocking compute (§5).
func (e *Engine) processBlock() {
	raw := make([]int16, BlockSize48*inputChannels)
	n, err := e.device.Read(raw)
	if err != nil {
		e.logger.Error("codec read error", "err", err)
		return
	}
	if n <= 0 {
		// §7 item 4: transient short read, skip this iteration and retry.
		return
	}

	p := e.current

	left := make([]float64, BlockSize48)
	right := make([]float64, BlockSize48)
	ref := make([]float64, BlockSize48)
	for i := 0; i < BlockSize48; i++ {
		base := i * inputChannels
		left[i] = int16ToFloat(raw[base])
		right[i] = int16ToFloat(raw[base+1])
		ref[i] = int16ToFloat(raw[base+2])
	}

	for i := range left {
		left[i] = e.processChannelPreVE(&e.left, left[i], p)
		right[i] = e.processChannelPreVE(&e.right, right[i], p)

		gl, gr := e.generators.Next(p.Tinnitus, SampleRate48)
		left[i] += gl
		right[i] += gr

		ref[i] = e.refLpf.Process(e.refHpf.Process(ref[i] * p.VE.RefGain))
	}

	e.refMeter.Update(ref)
	e.pollHeadphonePresence()

	if p.VE.Enabled && e.headphonePresent {
		switch p.VE.Mode {
		case params.VoiceExclusionNLMS:
			e.applyNLMS(left, right, ref, p)
		case params.VoiceExclusionAEC:
			e.applyAEC(left, right, ref, p)
		}
	}

	if e.nsEnabled {
		left = e.applyHelperBridge(left, e.nsHelperL.Process, &e.nsLeft)
		right = e.applyHelperBridge(right, e.nsHelperR.Process, &e.nsRight)
	}

	if e.agcEnabled {
		left = e.applyAGC(left, e.agcHelperL, &e.agcLeft)
		right = e.applyAGC(right, e.agcHelperR, &e.agcRight)
	}

	for i := range left {
		left[i] = applyOutputGain(left[i], p.Out)
		right[i] = applyOutputGain(right[i], p.Out)
	}

	e.left.meter.Update(left)
	e.right.meter.Update(right)
	e.publishLevels()

	out := make([]int16, BlockSize48*outputChannels)
	for i := 0; i < BlockSize48; i++ {
		l, r := left[i], right[i]
		if p.Out.Mute {
			l, r = 0, 0
		}
		out[i*outputChannels] = floatToInt16(clamp11(l))
		out[i*outputChannels+1] = floatToInt16(clamp11(r))
	}
	if _, err := e.device.Write(out); err != nil {
		e.logger.Error("codec write error", "err", err)
	}
}

// processChannelPreVE applies one primary channel's HPF/LPF, 3-band EQ,
// and tinnitus notch/HF-extension stages, honoring the configured notch
// placement (§4.5 steps 3-4, §4.6, §4.10).
func (e *Engine) processChannelPreVE(ch *channelFilters, x float64, p params.Parameters) float64 {
	x = ch.hpf.Process(x)
	x = ch.lpf.Process(x)

	if p.Tinnitus.NotchPlacement == params.NotchPrePeakingEQ {
		x = ch.tinnitus.ProcessNotch(x)
	}

	for i := range ch.eq {
		x = ch.eq[i].Process(x)
	}

	return ch.tinnitus.ProcessPostEQ(x, p.Tinnitus.NotchPlacement)
}

// pollHeadphonePresence polls the detect probe at most every
// headphonePollBlocks blocks and caches the result (§4.5 step 7, §4.13).
func (e *Engine) pollHeadphonePresence() {
	if e.headphoneBlockCounter%headphonePollBlocks == 0 {
		if e.hpDetect == nil {
			e.headphonePresent = true
		} else {
			e.headphonePresent = e.hpDetect.Present()
		}
	}
	e.headphoneBlockCounter++
}

// applyNLMS runs the NLMS voice-exclusion strategy: downsample all three
// channels to 16 kHz, adapt one filter per primary channel against the
// reference, upsample the estimates, and subtract with blend weighting and
// a per-sample attenuation clamp (§4.4, §4.5 step 8).
func (e *Engine) applyNLMS(left, right, ref []float64, p params.Parameters) {
	st := e.nlmsSt
	if st == nil {
		return
	}

	refForLeft := st.downRefForLeft.down.Process(ref)
	refForRight := st.downRefForRight.down.Process(ref)
	leftDown := st.downLeft.down.Process(left)
	rightDown := st.downRight.down.Process(right)

	estLeft := make([]float64, len(leftDown))
	for i := range leftDown {
		estLeft[i] = st.left.Step(refForLeft[i], leftDown[i], p.VE.StepSize)
	}
	estRight := make([]float64, len(rightDown))
	for i := range rightDown {
		estRight[i] = st.right.Step(refForRight[i], rightDown[i], p.VE.StepSize)
	}

	estLeftUp := st.upLeft.up.Process(estLeft)
	estRightUp := st.upRight.up.Process(estRight)

	for i := range left {
		left[i] = subtractWithBlendClamp(left[i], estLeftUp[i], p.VE.Blend, p.VE.MaxAttenuation)
		right[i] = subtractWithBlendClamp(right[i], estRightUp[i], p.VE.Blend, p.VE.MaxAttenuation)
	}
}

func subtractWithBlendClamp(signal, estimate, blend, maxAttenuation float64) float64 {
	remove := estimate * blend
	limit := math.Abs(signal) * maxAttenuation
	if remove > limit {
		remove = limit
	} else if remove < -limit {
		remove = -limit
	}
	out := signal - remove
	if math.IsNaN(out) {
		// §7 item 6: substitute 0 at the last opportunity post-VE blend.
		return 0
	}
	return out
}

// applyAEC runs the external-AEC voice-exclusion strategy: accumulate
// 160-sample 16 kHz blocks into 512-sample frames, feed the helper one
// frame per primary channel against the shared reference frame, gate the
// estimate by VAD silence before blending (§4.11), drain 160 samples per
// block, upsample, and blend (§4.5 step 8). Without an open canceller
// (no AEC provider, or its Open failed) the block is left untouched.
func (e *Engine) applyAEC(left, right, ref []float64, p params.Parameters) {
	st := e.aecSt
	if st == nil || st.canceller == nil {
		return
	}

	leftDown := st.downLeft.down.Process(left)
	rightDown := st.downRight.down.Process(right)
	refDown := st.downRef.down.Process(ref)

	leftFrame, frameReady := st.accLeft.Push(leftDown)
	rightFrame, _ := st.accRight.Push(rightDown)
	refFrame, _ := st.accRef.Push(refDown)

	if frameReady {
		vadSpeech := true
		if st.vad != nil {
			vadSpeech = st.vad.Process(floatsToInt16(refFrame), int(SampleRate16), 30)
		}
		st.lastVadSpeech = vadSpeech

		if st.canceller != nil {
			outLeft := make([]int16, len(leftFrame))
			outRight := make([]int16, len(rightFrame))
			refInt16 := floatsToInt16(refFrame)
			st.canceller.Process(floatsToInt16(leftFrame), refInt16, outLeft)
			st.canceller.Process(floatsToInt16(rightFrame), refInt16, outRight)

			estLeft := int16sToFloats(outLeft)
			estRight := int16sToFloats(outRight)

			if p.VE.VadGateEnabled && !vadSpeech {
				for i := range estLeft {
					estLeft[i] *= p.VE.VadGateAtten
					estRight[i] *= p.VE.VadGateAtten
				}
			}
			st.outLeft.Push(estLeft)
			st.outRight.Push(estRight)
		}
	}

	aecLeft := st.upLeft.up.Process(st.outLeft.Drain(BlockSize16))
	aecRight := st.upRight.up.Process(st.outRight.Drain(BlockSize16))

	for i := range left {
		left[i] = blendSignal(left[i], aecLeft[i], p.VE.Blend)
		right[i] = blendSignal(right[i], aecRight[i], p.VE.Blend)
	}
}

func blendSignal(orig, estimate, blend float64) float64 {
	out := (1-blend)*orig + blend*estimate
	if math.IsNaN(out) {
		return 0
	}
	return out
}

// applyHelperBridge runs the NS/AGC 48<->16 kHz bridge shared shape: down,
// convert to int16, submit to the external helper, convert back, up
// (§4.5 step 9).
func (e *Engine) applyHelperBridge(signal []float64, process func(in, out []int16), hc *helperChannel) []float64 {
	down := hc.down.down.Process(signal)
	in := floatsToInt16(down)
	out := make([]int16, len(in))
	process(in, out)
	return hc.up.up.Process(int16sToFloats(out))
}

func (e *Engine) applyAGC(signal []float64, h helpers.AutomaticGainControl, hc *helperChannel) []float64 {
	down := hc.down.down.Process(signal)
	in := floatsToInt16(down)
	out := make([]int16, len(in))
	h.Process(in, out, len(in), int(SampleRate16))
	return hc.up.up.Process(int16sToFloats(out))
}

// applyOutputGain applies §4.5 step 11: a plain linear gain, or - when
// boost is enabled and gain exceeds unity - a soft-saturation clip instead
// of a hard limit, to avoid clicks.
func applyOutputGain(x float64, out params.Output) float64 {
	y := x * out.Gain
	if out.BoostEnabled && out.Gain > 1 {
		y = math.Tanh(y)
	}
	return y
}

func (e *Engine) publishLevels() {
	vad := false
	if e.aecSt != nil {
		vad = e.aecSt.lastVadSpeech
	}
	e.store.PublishLevels(params.Levels{
		RMSLeft:           e.left.meter.RMS(),
		RMSRight:          e.right.meter.RMS(),
		PeakLeft:          e.left.meter.Peak(),
		PeakRight:         e.right.meter.Peak(),
		RMSHP:             e.refMeter.RMS(),
		PeakHP:            e.refMeter.Peak(),
		VadSpeechDetected: vad,
		MicRatio:          meter.Ratio(e.left.meter.RMS(), e.right.meter.RMS()),
	})
}

func clamp11(x float64) float64 {
	if x > 1 {
		return 1
	}
	if x < -1 {
		return -1
	}
	return x
}

func int16ToFloat(x int16) float64 {
	return float64(x) / 32768
}

// floatToInt16 expects x already clamped to [-1, 1] (saturated, not
// wrapped, per §3 invariant 2).
func floatToInt16(x float64) int16 {
	return int16(x * 32767)
}

func floatsToInt16(in []float64) []int16 {
	out := make([]int16, len(in))
	for i, x := range in {
		out[i] = floatToInt16(clamp11(x))
	}
	return out
}

func int16sToFloats(in []int16) []float64 {
	out := make([]float64, len(in))
	for i, x := range in {
		out[i] = int16ToFloat(x)
	}
	return out
}
