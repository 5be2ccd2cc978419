package numerics

import "math"

// SoilParams describes one Van-Genuchten soil-water retention parameter
// set (§4.1, §3's per-cell soil params).
type SoilParams struct {
	KSat   float64 // saturated conductivity, m/s
	ThetaR float64 // residual moisture content
	ThetaS float64 // saturated moisture content
	Alpha  float64 // 1/m
	N      float64 // > 1
}

// M is the Van-Genuchten mirror parameter m = 1 - 1/n.
func (p SoilParams) M() float64 {
	return 1 - 1/p.N
}

// vgTableSize is the fixed entry count from §4.1.
const vgTableSize = 256

// VanGenuchtenLUT holds precomputed K(Se) and Psi(Se) tables for one soil
// parameter set, sampled at 256 points over Se in (0,1), computed once in
// float64 and stored in both float and Q16.16 form.
type VanGenuchtenLUT struct {
	Params SoilParams

	se    [vgTableSize]float64
	kF    [vgTableSize]float64
	psiF  [vgTableSize]float64
	kQ    [vgTableSize]Q16
	psiQ  [vgTableSize]Q16
}

// NewVanGenuchtenLUT builds the K(Se) and Psi(Se) tables for one soil type:
//
//	K(Se)   = KSat * sqrt(Se) * (1 - (1 - Se^(1/m))^m)^2
//	Psi(Se) = -1/alpha * (Se^(-1/n) - 1)^(1/n)
//
// Se is sampled at the midpoint of each of 256 equal bins spanning (0,1) so
// no endpoint singularity (Se=0 or Se=1) is ever evaluated.
func NewVanGenuchtenLUT(p SoilParams) *VanGenuchtenLUT {
	t := &VanGenuchtenLUT{Params: p}
	m := p.M()
	for i := 0; i < vgTableSize; i++ {
		se := (float64(i) + 0.5) / float64(vgTableSize)
		t.se[i] = se

		inner := 1 - math.Pow(se, 1/m)
		kr := math.Sqrt(se) * math.Pow(1-math.Pow(inner, m), 2)
		k := p.KSat * kr

		psi := -1 / p.Alpha * math.Pow(math.Pow(se, -1/p.N)-1, 1/p.N)

		t.kF[i] = k
		t.psiF[i] = psi
		t.kQ[i] = FromFloat(k)
		t.psiQ[i] = FromFloat(psi)
	}
	return t
}

// bin clamps Se into (0,1) and returns the bracketing indices and the
// interpolation fraction between them.
func (t *VanGenuchtenLUT) bin(se float64) (i0, i1 int, frac float64) {
	se = Clamp(se, 1e-6, 1-1e-6)
	pos := se*float64(vgTableSize) - 0.5
	i0 = int(math.Floor(pos))
	if i0 < 0 {
		i0 = 0
	}
	if i0 > vgTableSize-2 {
		i0 = vgTableSize - 2
	}
	i1 = i0 + 1
	frac = pos - float64(i0)
	frac = Clamp(frac, 0, 1)
	return
}

// K returns the effective hydraulic conductivity at saturation ratio Se,
// linearly interpolated from the LUT (P6).
func (t *VanGenuchtenLUT) K(se float64) float64 {
	i0, i1, f := t.bin(se)
	return t.kF[i0] + f*(t.kF[i1]-t.kF[i0])
}

// Psi returns the matric potential at saturation ratio Se (always <= 0).
func (t *VanGenuchtenLUT) Psi(se float64) float64 {
	i0, i1, f := t.bin(se)
	return t.psiF[i0] + f*(t.psiF[i1]-t.psiF[i0])
}

// KQ16 is the Q16.16 entry point for K.
func (t *VanGenuchtenLUT) KQ16(se Q16) Q16 {
	i0, i1, f := t.bin(se.ToFloat())
	a, b := t.kQ[i0].ToFloat(), t.kQ[i1].ToFloat()
	return FromFloat(a + f*(b-a))
}

// PsiQ16 is the Q16.16 entry point for Psi.
func (t *VanGenuchtenLUT) PsiQ16(se Q16) Q16 {
	i0, i1, f := t.bin(se.ToFloat())
	a, b := t.psiQ[i0].ToFloat(), t.psiQ[i1].ToFloat()
	return FromFloat(a + f*(b-a))
}

// AnalyticK evaluates K(Se) directly (no LUT), used only by tests (P6) to
// bound the LUT's relative error.
func AnalyticK(p SoilParams, se float64) float64 {
	m := p.M()
	inner := 1 - math.Pow(se, 1/m)
	kr := math.Sqrt(se) * math.Pow(1-math.Pow(inner, m), 2)
	return p.KSat * kr
}

// AnalyticPsi evaluates Psi(Se) directly (no LUT), used only by tests.
func AnalyticPsi(p SoilParams, se float64) float64 {
	return -1 / p.Alpha * math.Pow(math.Pow(se, -1/p.N)-1, 1/p.N)
}
