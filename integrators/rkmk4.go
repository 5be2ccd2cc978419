package integrators

import (
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/dj-ccs/negentropic-kernel/numerics"
	"github.com/dj-ccs/negentropic-kernel/se3"
)

// retract advances s by h along the algebra element (omega,vel) — used to
// evaluate the vector field at the RK stage points, never returned as the
// final step result.
func retract(sub *numerics.Substrate, s State, omega, vel r3.Vec, h float64) State {
	dRot := se3.ExpSO3(sub, r3.Scale(h, omega))
	return State{
		Pose: se3.Pose{
			Rot:   se3.Normalize(quat.Mul(s.Pose.Rot, dRot)),
			Trans: r3.Add(s.Pose.Trans, r3.Scale(h, se3.RotateVector(s.Pose.Rot, vel))),
		},
		Omega: omega,
		Vel:   vel,
	}
}

// RKMK4Step advances s by dt using 4th-order Runge-Kutta-Munthe-Kaas on
// SE(3) (§4.5): four stage evaluations of the vector field, combined with
// the classical RK4 weights in the Lie algebra, corrected by a truncated
// two-term Baker-Campbell-Hausdorff bracket between the first and last
// stage (valid for the small per-tick increments this kernel takes), then
// exponentiated back onto the group exactly once. The rotation quaternion
// is renormalized after the step — mandatory per the method's contract.
func RKMK4Step(sub *numerics.Substrate, s State, field VectorField, dt float64) State {
	k1o, k1v := field(s)

	s2 := retract(sub, s, k1o, k1v, dt/2)
	k2o, k2v := field(s2)

	s3 := retract(sub, s, k2o, k2v, dt/2)
	k3o, k3v := field(s3)

	s4 := retract(sub, s, k3o, k3v, dt)
	k4o, k4v := field(s4)

	omegaSum := rk4Combine(k1o, k2o, k3o, k4o)
	velSum := rk4Combine(k1v, k2v, k3v, k4v)

	// Two-term BCH correction: log(exp(A)exp(B)) ~ A + B + 0.5[A,B], with the
	// so(3) bracket realized as the cross product. Only the leading
	// commutator term is kept, per the "2-3 terms for small increments"
	// truncation.
	bracket := r3.Scale(dt*dt/12, r3.Cross(k1o, k4o))
	totalOmega := r3.Add(r3.Scale(dt, omegaSum), bracket)

	dRot := se3.ExpSO3(sub, totalOmega)
	newPose := se3.Pose{
		Rot:   se3.Normalize(quat.Mul(s.Pose.Rot, dRot)),
		Trans: r3.Add(s.Pose.Trans, se3.RotateVector(s.Pose.Rot, r3.Scale(dt, velSum))),
	}

	return State{Pose: newPose, Omega: k4o, Vel: k4v}
}

func rk4Combine(k1, k2, k3, k4 r3.Vec) r3.Vec {
	sum := r3.Add(r3.Add(k1, r3.Scale(2, k2)), r3.Add(r3.Scale(2, k3), k4))
	return r3.Scale(1.0/6.0, sum)
}
