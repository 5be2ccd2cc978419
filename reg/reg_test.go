package reg

import (
	"bytes"
	"math"
	"testing"

	"github.com/dj-ccs/negentropic-kernel/grid"
	"github.com/dj-ccs/negentropic-kernel/numerics"
	"github.com/dj-ccs/negentropic-kernel/se3"
)

func testSoil() numerics.SoilParams {
	return numerics.SoilParams{KSat: 2.5e-5, ThetaR: 0.04, ThetaS: 0.42, Alpha: 0.5, N: 1.5}
}

func TestUpdateVegetationStaysInUnitRange(t *testing.T) {
	sub := numerics.NewSubstrate(1)
	c := grid.NewCell(testSoil(), "loam", 0, 1, 0.25, se3.FacePosZ, 0, 0)
	c.V = 0.5
	p := DefaultRegionParams("test")

	for i := 0; i < 500; i++ {
		Update(sub, &c, p, 0.3)
		if c.V < 0 || c.V > 1 {
			t.Fatalf("iteration %d: V = %v out of [0,1]", i, c.V)
		}
		if c.SOM < 0 {
			t.Fatalf("iteration %d: SOM = %v, want >= 0", i, c.SOM)
		}
		if math.IsNaN(c.V) || math.IsNaN(c.SOM) {
			t.Fatalf("iteration %d: NaN propagated", i)
		}
	}
}

func TestUpdateVegetationGrowsUnderSurplus(t *testing.T) {
	sub := numerics.NewSubstrate(1)
	c := grid.NewCell(testSoil(), "loam", 0, 1, 0.25, se3.FacePosZ, 0, 0)
	c.V = 0.1
	p := DefaultRegionParams("test")

	before := c.V
	Update(sub, &c, p, 0.9) // well above theta_star
	if c.V <= before {
		t.Errorf("expected V to grow under moisture surplus: before %v after %v", before, c.V)
	}
}

func TestFungalBacterialLUTMonotoneAndCapped(t *testing.T) {
	lut := NewFungalBacterialLUT(false)
	prev := lut.Ratio(0)
	for f := 0.0; f <= 1.0; f += 0.05 {
		r := lut.Ratio(f)
		if r < prev-1e-9 {
			t.Errorf("Ratio not monotone at %v: %v < %v", f, r, prev)
		}
		if r > 8.0+1e-9 {
			t.Errorf("Ratio %v exceeds 8x cap for non-Johnson-Su", r)
		}
		prev = r
	}

	jsu := NewFungalBacterialLUT(true)
	if jsu.Ratio(1.0) > 10.0+1e-9 {
		t.Errorf("Johnson-Su ratio %v exceeds 10x cap", jsu.Ratio(1.0))
	}
}

func TestApplyV2HydraulicLiftOnlyAtNight(t *testing.T) {
	c := grid.NewCell(testSoil(), "loam", 0, 1, 0.25, se3.FacePosZ, 0, 0)
	c.Theta[3] = 0.3
	before := c.Theta[0]

	v2 := V2Params{HydraulicLiftDepth: 3, HydraulicLiftRate: 0.1}
	p := DefaultRegionParams("test")

	ApplyV2(&c, p, v2, 20, false, false)
	if c.Theta[0] != before {
		t.Error("hydraulic lift should not run during the day")
	}

	ApplyV2(&c, p, v2, 20, true, false)
	if c.Theta[0] <= before {
		t.Error("hydraulic lift should raise surface moisture at night")
	}
}

func TestApplyV2RockMulchAmplifiesCondensation(t *testing.T) {
	c1 := grid.NewCell(testSoil(), "loam", 0, 1, 0.25, se3.FacePosZ, 0, 0)
	c2 := grid.NewCell(testSoil(), "loam", 0, 1, 0.25, se3.FacePosZ, 0, 0)
	v2 := V2Params{CondensationFlux: 0.001, RockMulchFactor: 50}
	p := DefaultRegionParams("test")

	ApplyV2(&c1, p, v2, 20, false, false)
	ApplyV2(&c2, p, v2, 20, false, true)

	if c2.HSurface <= c1.HSurface {
		t.Errorf("rock mulch should amplify condensation: plain=%v mulched=%v", c1.HSurface, c2.HSurface)
	}
}

func TestCondensationMultiplierBelowAreaThreshold(t *testing.T) {
	g := grid.NewGrid(5, 5, 1, 0)
	soil := testSoil()
	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			c := grid.NewCell(soil, "loam", 0, 1, 0.25, se3.FacePosZ, 0, 0)
			c.V = 0.7
			g.Activate(x, y, 0, c)
		}
	}
	mult, boosted := CondensationMultiplier(g, 2, 2, 1000) // 25 cells * 1000 m^2 << 100 km^2
	if boosted {
		t.Error("small patch should not trigger the biotic pump boost")
	}
	if mult != 1 {
		t.Errorf("unboosted multiplier = %v, want 1", mult)
	}
}

func TestCondensationMultiplierAboveAreaThreshold(t *testing.T) {
	g := grid.NewGrid(50, 50, 1, 0)
	soil := testSoil()
	for y := 0; y < 50; y++ {
		for x := 0; x < 50; x++ {
			c := grid.NewCell(soil, "loam", 0, 1, 0.25, se3.FacePosZ, 0, 0)
			c.V = 0.8
			g.Activate(x, y, 0, c)
		}
	}
	// 2500 cells * 1e5 m^2/cell = 2.5e8 m^2 = 250 km^2, above the 100km^2 gate.
	mult, boosted := CondensationMultiplier(g, 25, 25, 1e5)
	if !boosted {
		t.Fatal("large contiguous patch should trigger the biotic pump boost")
	}
	want := 1 + BetaVeg*0.8
	if math.Abs(mult-want) > 1e-9 {
		t.Errorf("multiplier = %v, want %v", mult, want)
	}
}

func TestApplyFeedbackRaisesPhiEffAndKzz(t *testing.T) {
	sub := numerics.NewSubstrate(1)
	c := grid.NewCell(testSoil(), "loam", 0, 1, 0.25, se3.FacePosZ, 0, 0)
	beforePhi := c.PhiEff
	beforeK := c.KTensor[2]

	ApplyFeedback(sub, &c, 0.01, 5.0)

	if c.PhiEff <= beforePhi {
		t.Errorf("phi_eff should rise with positive deltaSOM: before %v after %v", beforePhi, c.PhiEff)
	}
	if c.KTensor[2] <= beforeK {
		t.Errorf("K_zz should rise with positive deltaSOM: before %v after %v", beforeK, c.KTensor[2])
	}
}

func TestRegionParamsCSVRoundTrip(t *testing.T) {
	records := []RegionParams{DefaultRegionParams("sahel"), DefaultRegionParams("loess-plateau")}
	var buf bytes.Buffer
	if err := WriteRegionParams(&buf, records); err != nil {
		t.Fatalf("WriteRegionParams: %v", err)
	}

	got, err := ReadRegionParams(&buf)
	if err != nil {
		t.Fatalf("ReadRegionParams: %v", err)
	}
	if len(got) != 2 || got[0].Region != "sahel" || got[1].Region != "loess-plateau" {
		t.Errorf("round trip mismatch: got %+v", got)
	}
}
