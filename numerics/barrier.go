package numerics

// BarrierEpsilon is the small convexity guard added to every barrier so the
// gradient stays finite as the state approaches (but never quite reaches)
// the bound.
const BarrierEpsilon = 1e-4

// LowerBarrierGradient returns the gradient contribution of a C1 convex
// logarithmic barrier keeping x strictly above lo:
//
//	B(x) = -eps * log(x - lo)
//	B'(x) = -eps / (x - lo)
//
// Added to the right-hand side of an ODE, this pushes the state away from
// the bound with a force that diverges as x -> lo, never a post-hoc clamp
// (§4.1, §9).
func LowerBarrierGradient(x, lo float64) float64 {
	gap := x - lo
	if gap < BarrierEpsilon {
		gap = BarrierEpsilon
	}
	return -BarrierEpsilon / gap
}

// UpperBarrierGradient is the mirror image, keeping x strictly below hi.
func UpperBarrierGradient(x, hi float64) float64 {
	gap := hi - x
	if gap < BarrierEpsilon {
		gap = BarrierEpsilon
	}
	return BarrierEpsilon / gap
}

// BoundedBarrierGradient sums the lower and upper contributions, for a
// doubly-bounded state variable such as theta in (theta_r, theta_s).
// exhausted reports whether the state is within one epsilon of either
// bound, meaning the barrier's restoring force has saturated.
func BoundedBarrierGradient(x, lo, hi float64) (grad float64, exhausted bool) {
	grad = LowerBarrierGradient(x, lo) + UpperBarrierGradient(x, hi)
	exhausted = x-lo < BarrierEpsilon || hi-x < BarrierEpsilon
	return
}

// NonNegativeBarrierGradient keeps a one-sided quantity (SOM, entropy
// production) strictly positive.
func NonNegativeBarrierGradient(x float64) (grad float64, exhausted bool) {
	grad = LowerBarrierGradient(x, 0)
	exhausted = x < BarrierEpsilon
	return
}

// RecordBarrierExhaustion updates the engine-owned error counters when a
// barrier has saturated, per §4.3's failure semantics: non-fatal, but
// audited.
func (s *Substrate) RecordBarrierExhaustion() {
	s.Errors.BarrierExhaustion++
	s.Errors.Total++
}
