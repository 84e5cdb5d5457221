package analysis

import (
	"errors"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/astrosim/internal/stepper"
	"github.com/san-kum/astrosim/internal/vec"
)

var ErrTooFewSamples = errors.New("analysis: too few samples")

// PowerSpectrum returns |X_k|² for k in [0, N/2), where X is the DFT of
// the mean-free data zero-padded to a power of two length N.
func PowerSpectrum(data []float64) []float64 {
	n := 1
	for n < len(data) {
		n <<= 1
	}
	padded := make([]float64, n)
	copy(padded, data)
	if len(data) > 0 {
		floats.AddConst(-stat.Mean(data, nil), padded[:len(data)])
	}

	spectrum := fft.FFTReal(padded)
	ps := make([]float64, n/2)
	for i := range ps {
		a := cmplx.Abs(spectrum[i])
		ps[i] = a * a
	}
	return ps
}

// Period estimates the dominant period of samples taken every interval
// from the strongest non-DC bin of the power spectrum, refined by a
// parabola through its neighbours.
func Period(samples []float64, interval float64) (float64, error) {
	if len(samples) < 4 {
		return 0, ErrTooFewSamples
	}
	ps := PowerSpectrum(samples)
	if len(ps) < 3 {
		return 0, ErrTooFewSamples
	}

	k := 1 + floats.MaxIdx(ps[1:])
	peak := float64(k)
	if k+1 < len(ps) {
		a, b, c := ps[k-1], ps[k], ps[k+1]
		if d := a - 2*b + c; d != 0 {
			peak += 0.5 * (a - c) / d
		}
	}
	n := float64(2 * len(ps))
	return n * interval / peak, nil
}

// SampleUniform records the position of particle body (an index into
// s.Particles()) n times, starting now and then every interval of
// simulated time. The stepper's dt must not exceed interval.
func SampleUniform(s *stepper.Stepper, body int, interval float64, n int) ([]vec.Vec2, error) {
	if body < 0 || body >= len(s.Particles()) {
		return nil, errors.New("analysis: body index out of range")
	}
	out := make([]vec.Vec2, 0, n)
	for i := 0; i < n; i++ {
		if i > 0 {
			if err := s.Advance(interval); err != nil {
				return out, err
			}
		}
		out = append(out, s.Particles()[body].Pos)
	}
	return out, nil
}

// XS returns the x components of ps.
func XS(ps []vec.Vec2) []float64 {
	xs := make([]float64, len(ps))
	for i, p := range ps {
		xs[i] = p.X
	}
	return xs
}
