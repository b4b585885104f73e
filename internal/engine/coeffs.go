package engine

import (
	"github.com/doismellburning/aurafilter/internal/biquad"
	"github.com/doismellburning/aurafilter/internal/coeff"
	"github.com/doismellburning/aurafilter/internal/params"
)

// buildHPFLPF installs either a high-pass or low-pass coefficient set into
// dst, or bypasses it when the stage is disabled (§4.5 step 3: "Apply HPF
// then LPF (if enabled)").
func buildHPFLPF(dst *biquad.Biquad, cfg params.HPFLPF, highPass bool, sampleRate float64) {
	if !cfg.Enabled {
		dst.SetCoefficients(biquad.Coefficients{B0: 1, Bypass: true})
		return
	}
	if highPass {
		dst.SetCoefficients(coeff.HighPass(cfg.Frequency, sampleRate, coeff.ButterworthQ))
	} else {
		dst.SetCoefficients(coeff.LowPass(cfg.Frequency, sampleRate, coeff.ButterworthQ))
	}
}

// peakingCoefficients is a thin wrapper kept for call-site symmetry with
// buildHPFLPF; §4.2 already returns the identity biquad for a near-zero
// gain.
func peakingCoefficients(freq, sampleRate, q, gainDb float64) biquad.Coefficients {
	return coeff.Peaking(freq, sampleRate, q, gainDb)
}
