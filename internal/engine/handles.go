package engine

import "github.com/doismellburning/aurafilter/internal/params"

// applyParameterSnapshot installs p as the worker's current parameter copy,
// rebuilds every biquad's coefficients from it, and opens/closes external
// helper handles whose identity-defining fields changed (§4.5 step 1, §3
// Lifecycle: "reopened when mode-defining parameters change"). prev is the
// worker's previous snapshot, used only to detect identity changes; on the
// very first call prev is the zero value, which forces every handle to be
// (re)evaluated.
func (e *Engine) applyParameterSnapshot(prev, p params.Parameters) {
	e.current = p

	e.rebuildFilterCoefficients(p)

	e.device.SetInGain(int(p.MicGain))
	e.device.SetVolume(int(p.Out.Volume))
	e.device.SetMute(p.Out.Mute)

	e.reconcileVoiceExclusion(prev, p)
	e.reconcileNS(prev, p)
	e.reconcileAGC(prev, p)
}

func (e *Engine) rebuildFilterCoefficients(p params.Parameters) {
	buildHPFLPF(&e.left.hpf, p.HPF, true, SampleRate48)
	buildHPFLPF(&e.left.lpf, p.LPF, false, SampleRate48)
	buildHPFLPF(&e.right.hpf, p.HPF, true, SampleRate48)
	buildHPFLPF(&e.right.lpf, p.LPF, false, SampleRate48)

	for i, band := range p.EQ {
		c := peakingCoefficients(params.EQFrequencies[i], SampleRate48, params.EQQ, band.GainDb)
		e.left.eq[i].SetCoefficients(c)
		e.right.eq[i].SetCoefficients(c)
	}

	e.left.tinnitus.SetParams(p.Tinnitus, SampleRate48)
	e.right.tinnitus.SetParams(p.Tinnitus, SampleRate48)
	e.generators.SetParams(p.Tinnitus, SampleRate48)

	buildHPFLPF(&e.refHpf, params.HPFLPF{Enabled: true, Frequency: p.VE.RefHpf}, true, SampleRate48)
	buildHPFLPF(&e.refLpf, params.HPFLPF{Enabled: true, Frequency: p.VE.RefLpf}, false, SampleRate48)
}

// reconcileVoiceExclusion opens/closes/resizes the NLMS or AEC strategy's
// state when the mode or its identity-defining parameters change (filter
// length for NLMS; AEC filter length/mode/VAD enablement for AEC).
func (e *Engine) reconcileVoiceExclusion(prev, p params.Parameters) {
	modeChanged := prev.VE.Mode != p.VE.Mode
	nlmsLenChanged := prev.VE.FilterLength != p.VE.FilterLength
	aecIdentityChanged := prev.VE.AecFilterLen != p.VE.AecFilterLen || prev.VE.AecMode != p.VE.AecMode
	vadChanged := prev.VE.VadEnabled != p.VE.VadEnabled || prev.VE.VadMode != p.VE.VadMode

	if p.VE.Mode == params.VoiceExclusionNLMS {
		if e.aecSt != nil {
			e.closeAECPath()
		}
		if e.nlmsSt == nil || modeChanged || nlmsLenChanged {
			e.nlmsSt = newNLMSPath(p.VE.FilterLength)
		}
		return
	}

	// AEC mode.
	if e.nlmsSt != nil {
		e.nlmsSt = nil
	}
	if e.aecSt == nil || modeChanged || aecIdentityChanged {
		e.closeAECPath()
		e.openAECPath(p)
	} else if vadChanged {
		e.reconcileVAD(p)
	}
}

func (e *Engine) openAECPath(p params.Parameters) {
	st := &aecPath{
		downLeft:  newResamplerPair(),
		downRight: newResamplerPair(),
		downRef:   newResamplerPair(),
		upLeft:    newResamplerPair(),
		upRight:   newResamplerPair(),
	}
	if e.prov.AEC != nil {
		c, err := e.prov.AEC.Open(int(SampleRate16), p.VE.AecFilterLen, 1, p.VE.AecMode)
		if err != nil {
			e.logger.Error("aec helper open failed, voice-exclusion disabled", "err", err)
		} else {
			st.canceller = c
		}
	}
	e.aecSt = st
	e.reconcileVAD(p)
}

func (e *Engine) reconcileVAD(p params.Parameters) {
	if e.aecSt == nil {
		return
	}
	if e.aecSt.vad != nil {
		e.aecSt.vad.Close()
		e.aecSt.vad = nil
	}
	if !p.VE.VadEnabled || e.prov.VAD == nil {
		return
	}
	v, err := e.prov.VAD.Open(p.VE.VadMode)
	if err != nil {
		e.logger.Error("vad helper open failed, vad gating disabled", "err", err)
		return
	}
	e.aecSt.vad = v
}

func (e *Engine) closeAECPath() {
	if e.aecSt == nil {
		return
	}
	if e.aecSt.canceller != nil {
		e.aecSt.canceller.Close()
	}
	if e.aecSt.vad != nil {
		e.aecSt.vad.Close()
	}
	e.aecSt = nil
}

func (e *Engine) reconcileNS(prev, p params.Parameters) {
	identityChanged := prev.NS.Enabled != p.NS.Enabled || prev.NS.Mode != p.NS.Mode
	if !identityChanged && e.nsEnabled == p.NS.Enabled {
		return
	}
	e.closeNS()
	e.nsEnabled = false
	if !p.NS.Enabled || e.prov.NS == nil {
		return
	}
	left, err := e.prov.NS.Open(BlockSize16, p.NS.Mode, int(SampleRate16))
	if err != nil {
		e.logger.Error("ns helper open failed (left), noise suppression disabled", "err", err)
		return
	}
	right, err := e.prov.NS.Open(BlockSize16, p.NS.Mode, int(SampleRate16))
	if err != nil {
		e.logger.Error("ns helper open failed (right), tearing down left", "err", err)
		left.Close()
		return
	}
	e.nsHelperL, e.nsHelperR = left, right
	e.nsLeft, e.nsRight = newHelperChannel(), newHelperChannel()
	e.nsEnabled = true
}

func (e *Engine) closeNS() {
	if e.nsHelperL != nil {
		e.nsHelperL.Close()
		e.nsHelperL = nil
	}
	if e.nsHelperR != nil {
		e.nsHelperR.Close()
		e.nsHelperR = nil
	}
}

func (e *Engine) reconcileAGC(prev, p params.Parameters) {
	identityChanged := prev.AGC.Enabled != p.AGC.Enabled || prev.AGC.Mode != p.AGC.Mode
	if identityChanged || e.agcEnabled != p.AGC.Enabled {
		e.closeAGC()
		e.agcEnabled = false
		if p.AGC.Enabled && e.prov.AGC != nil {
			left, err := e.prov.AGC.Open(p.AGC.Mode, int(SampleRate16))
			if err != nil {
				e.logger.Error("agc helper open failed (left), agc disabled", "err", err)
			} else if right, err := e.prov.AGC.Open(p.AGC.Mode, int(SampleRate16)); err != nil {
				e.logger.Error("agc helper open failed (right), tearing down left", "err", err)
				left.Close()
			} else {
				e.agcHelperL, e.agcHelperR = left, right
				e.agcLeft, e.agcRight = newHelperChannel(), newHelperChannel()
				e.agcEnabled = true
			}
		}
	}
	if !e.agcEnabled {
		return
	}
	e.agcHelperL.SetConfig(p.AGC.CompressionGainDb, p.AGC.LimiterEnabled, p.AGC.TargetLevelDbfs)
	e.agcHelperR.SetConfig(p.AGC.CompressionGainDb, p.AGC.LimiterEnabled, p.AGC.TargetLevelDbfs)
}

func (e *Engine) closeAGC() {
	if e.agcHelperL != nil {
		e.agcHelperL.Close()
		e.agcHelperL = nil
	}
	if e.agcHelperR != nil {
		e.agcHelperR.Close()
		e.agcHelperR = nil
	}
}

// closeAllHandles tears down every open external helper, called on Stop
// (§4.8: "closes all external helpers").
func (e *Engine) closeAllHandles() {
	e.closeAECPath()
	e.closeNS()
	e.nsEnabled = false
	e.closeAGC()
	e.agcEnabled = false
	e.nlmsSt = nil
}
