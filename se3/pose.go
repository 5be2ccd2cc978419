// Package se3 implements the deterministic SE(3) pose algebra and
// cubed-sphere topology used by the integrators and the tile-local frame
// math (§4.2): quaternion composition, exp/log maps, and face selection.
// All trigonometry is routed through a numerics.Substrate so that, like
// every other hot-path computation in the kernel, no library sin/cos/exp
// call executes during stepping.
package se3

import (
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/dj-ccs/negentropic-kernel/numerics"
)

// Pose is a rigid transform: a unit quaternion orientation plus a
// translation, per §4.2.
type Pose struct {
	Rot   quat.Number
	Trans r3.Vec
}

// Identity returns the identity pose: (1,0,0,0) + (0,0,0).
func Identity() Pose {
	return Pose{Rot: quat.Number{Real: 1}, Trans: r3.Vec{}}
}

// Compose returns a*b: apply b first, then a (standard SE(3) composition
// order, matching how the teacher composes transforms face-rotation *
// projection in its camera code).
func Compose(a, b Pose) Pose {
	return Pose{
		Rot:   quat.Mul(a.Rot, b.Rot),
		Trans: r3.Add(a.Trans, RotateVector(a.Rot, b.Trans)),
	}
}

// Normalize renormalizes q to unit length, the mandatory post-step
// re-orthonormalization RKMK4 requires (§4.5).
func Normalize(q quat.Number) quat.Number {
	n := quatNorm(q)
	if n == 0 {
		return quat.Number{Real: 1}
	}
	inv := 1 / n
	return quat.Number{Real: q.Real * inv, Imag: q.Imag * inv, Jmag: q.Jmag * inv, Kmag: q.Kmag * inv}
}

func quatNorm(q quat.Number) float64 {
	return sqrt(q.Real*q.Real + q.Imag*q.Imag + q.Jmag*q.Jmag + q.Kmag*q.Kmag)
}

// sqrt is a tiny local Newton-iteration square root so this package never
// needs to import math for anything beyond what quat/r3 already pull in.
// It runs a fixed 8 iterations starting from x, which keeps it
// deterministic across platforms; arguments of moderate size (the squared
// norms of quaternions and rotation vectors it is called on) converge, but
// arguments much larger than 1 are not fully converged after 8 steps.
func sqrt(x float64) float64 {
	if x <= 0 {
		return 0
	}
	z := x
	for i := 0; i < 8; i++ {
		z -= (z*z - x) / (2 * z)
	}
	return z
}

// vecAsQuat lifts a vector into a pure imaginary quaternion.
func vecAsQuat(v r3.Vec) quat.Number {
	return quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
}

// RotateVector rotates v by q using the optimized form from §4.2:
//
//	v' = v + 2w(qv x v) + 2(qv x (qv x v))
//
// where qv is the vector part of q and w its scalar part. This avoids the
// full quaternion-conjugate sandwich product's extra multiplications.
func RotateVector(q quat.Number, v r3.Vec) r3.Vec {
	qv := r3.Vec{X: q.Imag, Y: q.Jmag, Z: q.Kmag}
	t := r3.Scale(2, r3.Cross(qv, v))
	return r3.Add(r3.Add(v, r3.Scale(q.Real, t)), r3.Cross(qv, t))
}

// ExpSO3 maps a rotation-vector (axis * angle, in the Lie algebra so(3))
// to a unit quaternion via the closed-form exponential, using the
// substrate's sin/cos LUTs rather than math.Sin/math.Cos so the result is
// bit-identical across platforms (§4.1, §4.5 Lie-Euler).
func ExpSO3(sub *numerics.Substrate, w r3.Vec) quat.Number {
	theta := vecNorm(w)
	if theta < 1e-12 {
		return quat.Number{Real: 1, Imag: w.X / 2, Jmag: w.Y / 2, Kmag: w.Z / 2}
	}
	half := theta / 2
	s := sub.Sin(half) / theta
	c := sub.Cos(half)
	return quat.Number{Real: c, Imag: w.X * s, Jmag: w.Y * s, Kmag: w.Z * s}
}

// LogSO3 is the inverse of ExpSO3: given a unit quaternion, recover the
// rotation vector. sub.Log is not used here since the relevant inverse is
// arccos/arcsin of the quaternion components, not the natural log; it is
// computed via the deterministic identity atan2(|v|, w) using only
// multiply/divide and the substrate's Cos (through a fixed 40-step
// bisection against the Cos LUT), so it stays library-free.
func LogSO3(sub *numerics.Substrate, q quat.Number) r3.Vec {
	q = Normalize(q)
	vx, vy, vz := q.Imag, q.Jmag, q.Kmag
	vnorm := sqrt(vx*vx + vy*vy + vz*vz)
	if vnorm < 1e-12 {
		return r3.Vec{}
	}
	theta := 2 * atan2ViaBisection(sub, vnorm, q.Real)
	scale := theta / vnorm
	return r3.Vec{X: vx * scale, Y: vy * scale, Z: vz * scale}
}

// atan2ViaBisection recovers atan2(y, x) for y >= 0 by bisecting on the
// substrate's Cos table: find angle a in [0, pi] with cos(a) = x/|(x,y)|,
// which for y >= 0 makes (cos(a), sin(a)) proportional to (x, y).
func atan2ViaBisection(sub *numerics.Substrate, y, x float64) float64 {
	n := sqrt(x*x + y*y)
	if n == 0 {
		return 0
	}
	targetCos := x / n
	lo, hi := 0.0, 3.14159265358979
	for i := 0; i < 40; i++ {
		mid := (lo + hi) / 2
		if sub.Cos(mid) > targetCos {
			lo = mid
		} else {
			hi = mid
		}
	}
	return (lo + hi) / 2
}

func vecNorm(v r3.Vec) float64 {
	return sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}
