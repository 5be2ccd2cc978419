// Package integrators implements the structure-preserving time steppers
// (§4.5): Lie-Euler, RKMK4, the Clebsch-collective symplectic scheme for
// Lie-Poisson subsystems, and the optional torsion closure. Every method
// shares one contract: a current state view, a time step, a bounded
// workspace, success-or-fallback reporting — no allocation inside a step.
package integrators

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/dj-ccs/negentropic-kernel/se3"
)

// Method identifies a structure-preserving integrator, LoD-gated per §4.5.
type Method int

const (
	MethodLieEuler Method = iota
	MethodRKMK4
	MethodClebschCollective
)

// SelectMethod implements the LoD-gated method selection: LoD 0-1 uses
// Lie-Euler for cheap transport, LoD 2 uses RKMK4, LoD 3 uses the
// Clebsch-collective scheme. escalate, when true, upgrades the method by
// one tier regardless of LoD — the runtime escalation rule triggered by a
// conservation diagnostic exceeding its threshold.
func SelectMethod(lod int, escalate bool) Method {
	var m Method
	switch {
	case lod <= 1:
		m = MethodLieEuler
	case lod == 2:
		m = MethodRKMK4
	default:
		m = MethodClebschCollective
	}
	if escalate && m < MethodClebschCollective {
		m++
	}
	return m
}

// State is the rigid-body state a Lie-group integrator advances: an SE(3)
// pose plus a body-frame angular velocity.
type State struct {
	Pose  se3.Pose
	Omega r3.Vec // body-frame angular velocity, rad/s
	Vel   r3.Vec // body-frame linear velocity, m/s
}

// VectorField evaluates the body-frame twist (angular, linear velocity)
// at a given state and time; it is the right-hand side every integrator
// method calls, possibly several times per step.
type VectorField func(s State) (omega, vel r3.Vec)

// StepResult reports whether a step completed on its primary method or
// fell back to a cheaper one after exceeding an iteration budget (§4.5
// "INTEGRATOR_FALLBACK").
type StepResult struct {
	Fallback  bool
	Iterations int
}
