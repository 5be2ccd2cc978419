package integrators

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/dj-ccs/negentropic-kernel/grid"
	"github.com/dj-ccs/negentropic-kernel/numerics"
	"github.com/dj-ccs/negentropic-kernel/se3"
)

func TestSelectMethodLoDGating(t *testing.T) {
	cases := []struct {
		lod  int
		want Method
	}{
		{0, MethodLieEuler},
		{1, MethodLieEuler},
		{2, MethodRKMK4},
		{3, MethodClebschCollective},
	}
	for _, c := range cases {
		if got := SelectMethod(c.lod, false); got != c.want {
			t.Errorf("SelectMethod(%d, false) = %v, want %v", c.lod, got, c.want)
		}
	}
}

func TestSelectMethodEscalates(t *testing.T) {
	if got := SelectMethod(0, true); got != MethodRKMK4 {
		t.Errorf("escalated LoD0 = %v, want RKMK4", got)
	}
	if got := SelectMethod(3, true); got != MethodClebschCollective {
		t.Errorf("escalated LoD3 should stay at the top tier, got %v", got)
	}
}

func constantField(omega, vel r3.Vec) VectorField {
	return func(s State) (r3.Vec, r3.Vec) {
		return omega, vel
	}
}

func TestLieEulerStepPreservesUnitQuaternion(t *testing.T) {
	sub := numerics.NewSubstrate(1)
	s := State{Pose: se3.Identity(), Omega: r3.Vec{}, Vel: r3.Vec{}}
	field := constantField(r3.Vec{X: 0.1, Y: 0.2, Z: -0.3}, r3.Vec{X: 1, Y: 0, Z: 0})

	for i := 0; i < 50; i++ {
		s = LieEulerStep(sub, s, field, 0.01)
	}

	n := r3.Norm(r3.Vec{X: s.Pose.Rot.Imag, Y: s.Pose.Rot.Jmag, Z: s.Pose.Rot.Kmag})
	qn := math.Sqrt(s.Pose.Rot.Real*s.Pose.Rot.Real + n*n)
	if math.Abs(qn-1) > 1e-6 {
		t.Errorf("Lie-Euler rotation drifted off the unit sphere: |q| = %v", qn)
	}
}

func TestLieEulerZeroOmegaLeavesRotationUnchanged(t *testing.T) {
	sub := numerics.NewSubstrate(1)
	s := State{Pose: se3.Identity()}
	field := constantField(r3.Vec{}, r3.Vec{X: 2, Y: 0, Z: 0})

	next := LieEulerStep(sub, s, field, 0.1)
	if next.Pose.Rot != s.Pose.Rot {
		t.Errorf("rotation changed under zero angular velocity: %+v", next.Pose.Rot)
	}
	if next.Pose.Trans.X <= s.Pose.Trans.X {
		t.Errorf("translation did not advance: %+v", next.Pose.Trans)
	}
}

func TestRKMK4StepPreservesUnitQuaternion(t *testing.T) {
	sub := numerics.NewSubstrate(1)
	s := State{Pose: se3.Identity()}
	field := constantField(r3.Vec{X: 0.05, Y: -0.1, Z: 0.2}, r3.Vec{X: 0, Y: 1, Z: 0})

	for i := 0; i < 50; i++ {
		s = RKMK4Step(sub, s, field, 0.01)
	}

	qr := s.Pose.Rot
	n := math.Sqrt(qr.Real*qr.Real + qr.Imag*qr.Imag + qr.Jmag*qr.Jmag + qr.Kmag*qr.Kmag)
	if math.Abs(n-1) > 1e-6 {
		t.Errorf("RKMK4 rotation drifted off the unit sphere: |q| = %v", n)
	}
}

func TestRKMK4AgreesWithLieEulerForTinySteps(t *testing.T) {
	sub := numerics.NewSubstrate(1)
	s := State{Pose: se3.Identity()}
	field := constantField(r3.Vec{X: 0.001, Y: 0, Z: 0}, r3.Vec{X: 1, Y: 0, Z: 0})

	a := LieEulerStep(sub, s, field, 1e-4)
	b := RKMK4Step(sub, s, field, 1e-4)

	if math.Abs(a.Pose.Rot.Kmag-b.Pose.Rot.Kmag) > 1e-6 {
		t.Errorf("RKMK4 and Lie-Euler diverge for a tiny step: %+v vs %+v", a.Pose.Rot, b.Pose.Rot)
	}
}

func TestLiftProjectClebschRoundTrip(t *testing.T) {
	for _, m := range []float64{3, -3, 0, 0.001} {
		z := LiftClebsch(m)
		back := ProjectClebsch(z)
		if math.Abs(back-m) > 1e-9 {
			t.Errorf("lift/project round trip for m=%v: got %v", m, back)
		}
	}
}

// collectiveHamiltonianGrad builds the gradient of a Hamiltonian that is a
// pure function of the collective variable m = q*p; such Hamiltonians
// leave m invariant under the canonical flow, per the standard Clebsch
// collective-variable argument.
func collectiveHamiltonianGrad(c ClebschPoint) (dHdq, dHdp float64) {
	m := c.Q * c.P
	return m * c.P, m * c.Q
}

func TestClebschStepConservesCasimirMagnitude(t *testing.T) {
	sub := numerics.NewSubstrate(1)
	m := 2.0
	cfg := DefaultClebschConfig()

	before := m
	for i := 0; i < 20; i++ {
		m, _ = ClebschStep(sub, m, collectiveHamiltonianGrad, 0.001, cfg)
	}

	if math.Abs(m-before) > 1e-6 {
		t.Errorf("Casimir m drifted: before %v after %v", before, m)
	}
}

func TestClebschStepReportsFallbackOnStarvedIterations(t *testing.T) {
	sub := numerics.NewSubstrate(1)
	m := 1.0
	cfg := ClebschConfig{MaxIter: 1, Tol: 1e-300, CasimirDriftTol: 1e-10}

	grad := func(c ClebschPoint) (float64, float64) {
		return 1, c.P
	}

	_, result := ClebschStep(sub, m, grad, 0.5, cfg)
	if !result.Fallback {
		t.Error("expected fallback with an unreachable tolerance")
	}
	if sub.Errors.NewtonFallback == 0 {
		t.Error("expected NewtonFallback counter to be incremented")
	}
}

func newTorsionGrid(nx, ny int) *grid.Grid {
	g := grid.NewGrid(nx, ny, 1, 0)
	soil := numerics.SoilParams{KSat: 2.5e-5, ThetaR: 0.04, ThetaS: 0.42, Alpha: 0.5, N: 1.5}
	for y := 0; y < ny; y++ {
		for x := 0; x < nx; x++ {
			c := grid.NewCell(soil, "loam", 0, 10, 0, se3.FacePosZ, float64(x), float64(y))
			g.Activate(x, y, 0, c)
		}
	}
	return g
}

func TestComputeTorsionUniformFieldHasZeroCurl(t *testing.T) {
	g := newTorsionGrid(5, 5)
	g.EachActive(func(idx int32, c *grid.Cell) {
		c.WindU = 2
		c.WindV = -1
	})

	ComputeTorsion(g, 2, 2, 0)
	c := g.At(2, 2, 0)
	if math.Abs(c.Torsion) > 1e-9 {
		t.Errorf("uniform wind field should have zero curl, got %v", c.Torsion)
	}
}

func TestComputeTorsionShearFieldIsNonzero(t *testing.T) {
	g := newTorsionGrid(5, 5)
	g.EachActive(func(idx int32, c *grid.Cell) {
		c.WindV = c.U // v increases with x: dv/dx > 0
	})

	ComputeTorsion(g, 2, 2, 0)
	c := g.At(2, 2, 0)
	if c.Torsion <= 0 {
		t.Errorf("shear field should produce positive curl, got %v", c.Torsion)
	}
}

func TestLocalMomentumCouplingMonotoneInLoD(t *testing.T) {
	prev := -1.0
	for lod := 0; lod <= 3; lod++ {
		v := LocalMomentumCoupling(lod)
		if v < prev {
			t.Errorf("coupling not monotone at lod %d: %v < %v", lod, v, prev)
		}
		prev = v
	}
	if LocalMomentumCoupling(3) != 8e-4 {
		t.Errorf("LoD3 coupling = %v, want 8e-4", LocalMomentumCoupling(3))
	}
}

func TestApplyTorsionFeedbackAdjustsTemperatureTowardAloft(t *testing.T) {
	g := newTorsionGrid(5, 5)
	g.EachActive(func(idx int32, c *grid.Cell) {
		c.WindV = c.U
		c.Temperature = 280
	})
	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			ComputeTorsion(g, x, y, 0)
		}
	}

	before := g.At(2, 2, 0).Temperature
	ApplyTorsionFeedback(g, 2, 2, 0, 300, 3)
	after := g.At(2, 2, 0).Temperature

	if after == before {
		t.Error("expected torsion feedback to change temperature")
	}
}
