package numerics

import (
	"math"
	"testing"
)

// TestVanGenuchtenLUTAccuracy is P6: K(Se) and Psi(Se) sampled from the LUT
// agree with the analytic evaluation to < 1e-4 relative over Se in (0,1).
func TestVanGenuchtenLUTAccuracy(t *testing.T) {
	p := SoilParams{KSat: 2.5e-5, ThetaR: 0.04, ThetaS: 0.42, Alpha: 0.5, N: 1.5}
	lut := NewVanGenuchtenLUT(p)

	for i := 1; i < 1000; i++ {
		se := float64(i) / 1000
		gotK := lut.K(se)
		wantK := AnalyticK(p, se)
		if wantK != 0 {
			if relErr := math.Abs(gotK-wantK) / math.Abs(wantK); relErr >= 1e-4 {
				t.Errorf("K(%v) = %v, want ~%v (relErr %v)", se, gotK, wantK, relErr)
			}
		}

		gotPsi := lut.Psi(se)
		wantPsi := AnalyticPsi(p, se)
		if wantPsi != 0 {
			if relErr := math.Abs(gotPsi-wantPsi) / math.Abs(wantPsi); relErr >= 1e-4 {
				t.Errorf("Psi(%v) = %v, want ~%v (relErr %v)", se, gotPsi, wantPsi, relErr)
			}
		}
	}
}

func TestVanGenuchtenPsiIsNonPositive(t *testing.T) {
	p := SoilParams{KSat: 2.5e-5, ThetaR: 0.04, ThetaS: 0.42, Alpha: 0.5, N: 1.5}
	lut := NewVanGenuchtenLUT(p)
	for se := 0.01; se < 1; se += 0.01 {
		if lut.Psi(se) > 0 {
			t.Errorf("Psi(%v) = %v, expected <= 0", se, lut.Psi(se))
		}
	}
}

func TestSubstrateSoilLUTCachingAndInvalidation(t *testing.T) {
	s := NewSubstrate(1)
	p := SoilParams{KSat: 1e-5, ThetaR: 0.05, ThetaS: 0.4, Alpha: 0.4, N: 1.4}
	a := s.SoilLUT("cellA", p)
	b := s.SoilLUT("cellA", p)
	if a != b {
		t.Error("expected cached LUT to be returned on second call")
	}

	s.InvalidateSoilLUT("cellA")
	c := s.SoilLUT("cellA", SoilParams{KSat: 6e-5, ThetaR: 0.05, ThetaS: 0.4, Alpha: 0.4, N: 1.4})
	if c == a {
		t.Error("expected a fresh LUT after invalidation")
	}
	if c.Params.KSat != 6e-5 {
		t.Errorf("rebuilt LUT has wrong KSat: %v", c.Params.KSat)
	}
}
