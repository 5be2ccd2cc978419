package se3

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/dj-ccs/negentropic-kernel/numerics"
)

func TestIdentityComposeIsNoop(t *testing.T) {
	id := Identity()
	p := Pose{Rot: quat.Number{Real: 0.7071067811865476, Kmag: 0.7071067811865476}, Trans: r3.Vec{X: 1, Y: 2, Z: 3}}
	got := Compose(id, p)
	if !quatClose(got.Rot, p.Rot, 1e-9) || got.Trans != p.Trans {
		t.Errorf("Compose(Identity, p) != p: got %+v", got)
	}
}

func TestRotateVectorIdentity(t *testing.T) {
	v := r3.Vec{X: 1, Y: 2, Z: 3}
	got := RotateVector(quat.Number{Real: 1}, v)
	if got != v {
		t.Errorf("identity rotation changed vector: %+v", got)
	}
}

func TestRotateVector90DegreesAboutZ(t *testing.T) {
	// 90 degree rotation about Z: (1,0,0) -> (0,1,0)
	half := math.Sqrt2 / 2
	q := quat.Number{Real: half, Kmag: half}
	got := RotateVector(q, r3.Vec{X: 1})
	if !closeF(got.X, 0, 1e-9) || !closeF(got.Y, 1, 1e-9) || !closeF(got.Z, 0, 1e-9) {
		t.Errorf("got %+v, want (0,1,0)", got)
	}
}

func TestExpLogRoundTrip(t *testing.T) {
	sub := numerics.NewSubstrate(1)
	w := r3.Vec{X: 0.3, Y: -0.2, Z: 0.5}
	q := ExpSO3(sub, w)
	back := LogSO3(sub, q)
	if !closeF(back.X, w.X, 1e-3) || !closeF(back.Y, w.Y, 1e-3) || !closeF(back.Z, w.Z, 1e-3) {
		t.Errorf("Exp/Log round trip: got %+v, want %+v", back, w)
	}
}

func TestNormalizeProducesUnitQuaternion(t *testing.T) {
	q := quat.Number{Real: 2, Imag: 0, Jmag: 0, Kmag: 0}
	n := Normalize(q)
	if !closeF(n.Real, 1, 1e-9) {
		t.Errorf("Normalize(2,0,0,0) = %+v, want unit", n)
	}
}

func TestSelectFaceLargestComponent(t *testing.T) {
	cases := []struct {
		v    r3.Vec
		want Face
	}{
		{r3.Vec{X: 0, Y: 0, Z: 5}, FacePosZ},
		{r3.Vec{X: 0, Y: 0, Z: -5}, FaceNegZ},
		{r3.Vec{X: 5, Y: 1, Z: 1}, FacePosX},
		{r3.Vec{X: -5, Y: 1, Z: 1}, FaceNegX},
		{r3.Vec{X: 1, Y: 5, Z: 1}, FacePosY},
		{r3.Vec{X: 1, Y: -5, Z: 1}, FaceNegY},
	}
	for _, c := range cases {
		if got := SelectFace(c.v); got != c.want {
			t.Errorf("SelectFace(%+v) = %v, want %v", c.v, got, c.want)
		}
	}
}

func TestFaceLocalECEFRoundTrip(t *testing.T) {
	local := r3.Vec{X: 1, Y: 2, Z: 3}
	for f := FacePosZ; f <= FaceNegY; f++ {
		ecef := FaceLocalToECEF(f, local)
		back := ECEFToFaceLocal(f, ecef)
		if !closeF(back.X, local.X, 1e-9) || !closeF(back.Y, local.Y, 1e-9) || !closeF(back.Z, local.Z, 1e-9) {
			t.Errorf("face %d round trip: got %+v, want %+v", f, back, local)
		}
	}
}

func closeF(a, b, tol float64) bool {
	return math.Abs(a-b) < tol
}

func quatClose(a, b quat.Number, tol float64) bool {
	return closeF(a.Real, b.Real, tol) && closeF(a.Imag, b.Imag, tol) &&
		closeF(a.Jmag, b.Jmag, tol) && closeF(a.Kmag, b.Kmag, tol)
}
