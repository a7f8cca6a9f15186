package analysis

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// PowerSpectrum returns |X_k|^2/n for k = 0..n/2 of the mean-removed series.
func PowerSpectrum(data []float64) []float64 {
	n := len(data)
	if n == 0 {
		return nil
	}

	mean := 0.0
	for _, v := range data {
		mean += v
	}
	mean /= float64(n)

	centred := make([]float64, n)
	for i, v := range data {
		centred[i] = v - mean
	}

	spectrum := fft.FFTReal(centred)
	ps := make([]float64, n/2+1)
	for i := range ps {
		a := cmplx.Abs(spectrum[i])
		ps[i] = a * a / float64(n)
	}
	return ps
}

// DominantPeriod returns the period of the strongest non-zero frequency bin
// of a uniformly sampled series. ok is false for a flat or too short series.
func DominantPeriod(data []float64, dt float64) (period float64, ok bool) {
	ps := PowerSpectrum(data)
	if len(ps) < 2 || !(dt > 0) {
		return 0, false
	}

	best := 0
	for k := 1; k < len(ps); k++ {
		if ps[k] > ps[best] || best == 0 {
			best = k
		}
	}
	if ps[best] <= 1e-20 {
		return 0, false
	}
	return float64(len(data)) * dt / float64(best), true
}
