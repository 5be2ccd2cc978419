package integrators

import (
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/dj-ccs/negentropic-kernel/numerics"
	"github.com/dj-ccs/negentropic-kernel/se3"
)

// LieEulerStep advances s by dt using first-order exp-map composition on
// SE(3) (§4.5): the rotation composes with exp(omega*dt) in the Lie
// algebra, translation advances by the rotated linear velocity.
func LieEulerStep(sub *numerics.Substrate, s State, field VectorField, dt float64) State {
	omega, vel := field(s)

	dRot := se3.ExpSO3(sub, r3.Scale(dt, omega))
	newPose := se3.Pose{
		Rot:   se3.Normalize(quat.Mul(s.Pose.Rot, dRot)),
		Trans: r3.Add(s.Pose.Trans, r3.Scale(dt, se3.RotateVector(s.Pose.Rot, vel))),
	}

	return State{Pose: newPose, Omega: omega, Vel: vel}
}
