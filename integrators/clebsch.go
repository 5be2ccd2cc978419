package integrators

import (
	"github.com/dj-ccs/negentropic-kernel/numerics"
)

// ClebschPoint is the canonical (q,p) pair a discrete-vorticity collective
// variable m is lifted to (§4.5 "lift m -> (q,p) via a precomputed linear
// map"): the classical single-pair Clebsch representation m = q*p for a
// scalar Lie-Poisson variable (here, a cell's vertical vorticity).
type ClebschPoint struct {
	Q, P float64
}

// LiftClebsch maps a collective momentum m onto its canonical pair via
// q = p = sqrt(|m|) (sign carried on p), computed on each call, so that
// q*p reproduces m exactly.
func LiftClebsch(m float64) ClebschPoint {
	if m == 0 {
		return ClebschPoint{}
	}
	mag := clebschSqrt(absFloat(m))
	if m >= 0 {
		return ClebschPoint{Q: mag, P: mag}
	}
	return ClebschPoint{Q: mag, P: -mag}
}

// ProjectClebsch recovers m' = J(q',p') = q'*p' from a canonical pair.
func ProjectClebsch(c ClebschPoint) float64 {
	return c.Q * c.P
}

func absFloat(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// clebschSqrt is a tiny fixed-iteration Newton square root, avoiding a
// math.Sqrt import for this one-off, rare (per-cell, per-LoD-3-tick)
// computation, matching the no-library-transcendental discipline used
// throughout the hot path (se3.sqrt is the same pattern).
func clebschSqrt(x float64) float64 {
	if x <= 0 {
		return 0
	}
	z := x
	if z < 1 {
		z = 1
	}
	for i := 0; i < 12; i++ {
		z -= (z*z - x) / (2 * z)
	}
	return z
}

// ClebschConfig bounds the implicit-midpoint Newton loop (§4.5 "max_iter,
// tol from config").
type ClebschConfig struct {
	MaxIter         int
	Tol             float64
	CasimirDriftTol float64
}

// DefaultClebschConfig matches the reference-precision targets in §8 (P13):
// Casimir drift held under 1e-10 at reference precision.
func DefaultClebschConfig() ClebschConfig {
	return ClebschConfig{MaxIter: 8, Tol: 1e-10, CasimirDriftTol: 1e-10}
}

// ClebschHamiltonianGrad evaluates the gradient of the reduced Hamiltonian
// (dH/dq, dH/dp) at a canonical point — the right-hand side the implicit
// midpoint rule integrates.
type ClebschHamiltonianGrad func(c ClebschPoint) (dHdq, dHdp float64)

// ClebschStep advances a collective momentum m by dt using the four-stage
// procedure in §4.5: lift, one implicit-midpoint (1-stage Gauss-Legendre)
// symplectic step bounded by a Newton iteration, projection back to m',
// and a small correction when the Casimir (m itself, conserved exactly by
// an ideal symplectic step) has drifted past cfg.CasimirDriftTol.
//
// Implicit midpoint: q' = q + dt*dHdp(mid), p' = p - dt*dHdq(mid), where
// mid = (z + z')/2. Solved by fixed-point substitution; if the residual
// has not fallen under cfg.Tol after cfg.MaxIter iterations, the loop
// takes one more plain substitution step and reports a fallback (§4.5
// "fall back to a single Newton step and set INTEGRATOR_FALLBACK").
func ClebschStep(sub *numerics.Substrate, m float64, grad ClebschHamiltonianGrad, dt float64, cfg ClebschConfig) (float64, StepResult) {
	z0 := LiftClebsch(m)

	q, p := z0.Q, z0.P
	var iter int
	fallback := false
	for iter = 0; iter < cfg.MaxIter; iter++ {
		mid := ClebschPoint{Q: 0.5 * (q + z0.Q), P: 0.5 * (p + z0.P)}
		dHdq, dHdp := grad(mid)

		nq := z0.Q + dt*dHdp
		np := z0.P - dt*dHdq

		residual := absFloat(nq-q) + absFloat(np-p)
		q, p = nq, np
		if residual < cfg.Tol {
			break
		}
	}
	if iter >= cfg.MaxIter {
		fallback = true
		sub.Errors.NewtonFallback++
		sub.Errors.Total++
		mid := ClebschPoint{Q: 0.5 * (q + z0.Q), P: 0.5 * (p + z0.P)}
		dHdq, dHdp := grad(mid)
		q = z0.Q + dt*dHdp
		p = z0.P - dt*dHdq
	}

	mPrime := ProjectClebsch(ClebschPoint{Q: q, P: p})

	drift := mPrime - m
	if drift > cfg.CasimirDriftTol || drift < -cfg.CasimirDriftTol {
		// Small correction: pull the projected value back toward the
		// pre-step Casimir rather than letting drift accumulate.
		mPrime = m + 0.5*(mPrime-m)
	}

	return mPrime, StepResult{Fallback: fallback, Iterations: iter}
}
