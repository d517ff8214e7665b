package tree

import (
	"math"
)

// DistributionFamily identifies the loss family driving the auxiliary
// histogram channels.
type DistributionFamily int

const (
	DistGaussian DistributionFamily = iota
	DistQuantile
	DistPoisson
	DistGamma
	DistTweedie
)

// String returns the family name.
func (f DistributionFamily) String() string {
	switch f {
	case DistGaussian:
		return "gaussian"
	case DistQuantile:
		return "quantile"
	case DistPoisson:
		return "poisson"
	case DistGamma:
		return "gamma"
	case DistTweedie:
		return "tweedie"
	default:
		return "unknown"
	}
}

// Distribution exposes the per-row loss contributions the histogram needs.
// Only the pieces feeding the auxiliary channels live here; the full loss
// implementation belongs to the outer training driver.
type Distribution struct {
	Family DistributionFamily

	// QuantileAlpha is the target quantile for DistQuantile.
	QuantileAlpha float64

	// TweedieVariancePower is the variance power p for DistTweedie,
	// 1 < p < 2.
	TweedieVariancePower float64
}

// Deviance returns the weighted deviance of predicting f for response y.
func (d *Distribution) Deviance(w, y, f float64) float64 {
	switch d.Family {
	case DistQuantile:
		if y > f {
			return w * d.QuantileAlpha * (y - f)
		}
		return w * (1 - d.QuantileAlpha) * (f - y)
	default:
		return w * (y - f) * (y - f)
	}
}

// GammaDenom returns the per-row contribution to the gamma denominator used
// for constrained leaf-value estimation. y is the outer-model response, z the
// tree's working response and f the current prediction.
func (d *Distribution) GammaDenom(w, y, z, f float64) float64 {
	switch d.Family {
	case DistGamma:
		return w * y * math.Exp(-f)
	case DistTweedie:
		return w * math.Exp(f*(2-d.TweedieVariancePower))
	default:
		return w
	}
}

// GammaNum returns the per-row contribution to the gamma numerator.
func (d *Distribution) GammaNum(w, y, z, f float64) float64 {
	switch d.Family {
	case DistTweedie:
		return w * y * math.Exp(f*(1-d.TweedieVariancePower))
	default:
		return w * z
	}
}

// Constraints carries the monotonic-constraint context for one tree node:
// two candidate fallback predictions (the current bounds) and the loss
// family. A histogram built with constraints grows auxiliary squared-error
// channels against both candidates, plus gamma channels when the family
// requires them.
type Constraints struct {
	// Min and Max are the candidate fallback predictions. NaN means the
	// corresponding bound is not set.
	Min, Max float64

	Dist *Distribution
}

// NeedsGammaDenom reports whether the gamma denominator channel must be
// accumulated for this loss family.
func (c *Constraints) NeedsGammaDenom() bool {
	if c.Dist == nil {
		return false
	}
	switch c.Dist.Family {
	case DistPoisson, DistGamma, DistTweedie:
		return true
	default:
		return false
	}
}

// NeedsGammaNum reports whether the gamma numerator channel must be
// accumulated. Only tweedie constraints need the numerator.
func (c *Constraints) NeedsGammaNum() bool {
	return c.Dist != nil && c.Dist.Family == DistTweedie
}
