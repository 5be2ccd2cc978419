package se3

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Face indexes one of the six cubed-sphere faces (§4.2).
type Face int

const (
	FacePosZ Face = iota
	FaceNegZ
	FacePosX
	FaceNegX
	FacePosY
	FaceNegY
)

// SelectFace picks the face whose outward normal is closest to pos,
// determined by the largest-magnitude component of the ECEF position — a
// constant-time test with no branching on loop bounds.
func SelectFace(pos r3.Vec) Face {
	ax, ay, az := abs(pos.X), abs(pos.Y), abs(pos.Z)
	switch {
	case az >= ax && az >= ay:
		if pos.Z >= 0 {
			return FacePosZ
		}
		return FaceNegZ
	case ax >= ay:
		if pos.X >= 0 {
			return FacePosX
		}
		return FaceNegX
	default:
		if pos.Y >= 0 {
			return FacePosY
		}
		return FaceNegY
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// faceRotations holds the six compile-time-constant 4x4 orthogonal
// rotation matrices (det = +1) that align the tile-local frame of each
// face with the global ECEF frame (§4.2).
var faceRotations = [6]*mat.Dense{
	identity4(),                    // +Z: already axis-aligned
	axisRotation4(1, 0, 0, 3.14159265358979), // -Z: flip about X
	axisRotation4(0, 1, 0, 1.5707963267949),  // +X: rotate +90deg about Y
	axisRotation4(0, 1, 0, -1.5707963267949), // -X: rotate -90deg about Y
	axisRotation4(1, 0, 0, -1.5707963267949), // +Y: rotate -90deg about X
	axisRotation4(1, 0, 0, 1.5707963267949),  // -Y: rotate +90deg about X
}

func identity4() *mat.Dense {
	m := mat.NewDense(4, 4, nil)
	for i := 0; i < 4; i++ {
		m.Set(i, i, 1)
	}
	return m
}

// axisRotation4 builds a constant 4x4 homogeneous rotation matrix about a
// unit axis by a fixed angle, using a bounded Taylor-series sine/cosine
// (these six matrices are build-time constants evaluated once at package
// init, not per-step, so a short, fixed-iteration series is an acceptable,
// deterministic substitute for a full LUT here).
func axisRotation4(ax, ay, az, angle float64) *mat.Dense {
	c := seriesCos(angle)
	s := seriesSin(angle)
	t := 1 - c
	m := mat.NewDense(4, 4, []float64{
		t*ax*ax + c, t*ax*ay - s*az, t*ax*az + s*ay, 0,
		t*ax*ay + s*az, t*ay*ay + c, t*ay*az - s*ax, 0,
		t*ax*az - s*ay, t*ay*az + s*ax, t*az*az + c, 0,
		0, 0, 0, 1,
	})
	return m
}

func seriesSin(x float64) float64 {
	x2 := x * x
	term := x
	sum := term
	for n := 1; n <= 12; n++ {
		term *= -x2 / float64((2*n)*(2*n+1))
		sum += term
	}
	return sum
}

func seriesCos(x float64) float64 {
	x2 := x * x
	term := 1.0
	sum := term
	for n := 1; n <= 12; n++ {
		term *= -x2 / float64((2*n-1)*(2*n))
		sum += term
	}
	return sum
}

// FaceRotation returns the face-alignment matrix for f.
func FaceRotation(f Face) *mat.Dense {
	return faceRotations[f]
}

// FaceLocalToECEF transforms a face-local coordinate into ECEF by applying
// the face's rotation matrix.
func FaceLocalToECEF(f Face, local r3.Vec) r3.Vec {
	in := mat.NewVecDense(4, []float64{local.X, local.Y, local.Z, 1})
	var out mat.VecDense
	out.MulVec(faceRotations[f], in)
	return r3.Vec{X: out.AtVec(0), Y: out.AtVec(1), Z: out.AtVec(2)}
}

// ECEFToFaceLocal applies the inverse (transpose, since the matrix is
// orthogonal) rotation to bring an ECEF vector into face-local coordinates.
func ECEFToFaceLocal(f Face, ecef r3.Vec) r3.Vec {
	var transposed mat.Dense
	transposed.CloneFrom(faceRotations[f].T())
	in := mat.NewVecDense(4, []float64{ecef.X, ecef.Y, ecef.Z, 1})
	var out mat.VecDense
	out.MulVec(&transposed, in)
	return r3.Vec{X: out.AtVec(0), Y: out.AtVec(1), Z: out.AtVec(2)}
}
