package telemetry

import "testing"

func TestMilestoneDetectorVegetationBreakthrough(t *testing.T) {
	md := NewMilestoneDetector(stabilityWindows)

	md.Check(WindowStats{WindowEndTick: 10, VegetationMean: 0.10})

	got := md.Check(WindowStats{WindowEndTick: 20, VegetationMean: 0.35})
	if len(got) == 0 {
		t.Fatal("expected a vegetation breakthrough milestone")
	}

	found := false
	for _, m := range got {
		if m.Name == MilestoneVegetationBreakthrough {
			found = true
		}
	}
	if !found {
		t.Error("expected MilestoneVegetationBreakthrough among triggered milestones")
	}

	// Should not re-trigger while still above threshold.
	again := md.Check(WindowStats{WindowEndTick: 30, VegetationMean: 0.36})
	for _, m := range again {
		if m.Name == MilestoneVegetationBreakthrough {
			t.Error("should not re-trigger vegetation breakthrough while still above threshold")
		}
	}
}

func TestMilestoneDetectorDroughtOnset(t *testing.T) {
	md := NewMilestoneDetector(stabilityWindows)

	md.Check(WindowStats{WindowEndTick: 10, SurfaceWaterMean: 0.05})

	got := md.Check(WindowStats{WindowEndTick: 20, SurfaceWaterMean: 0.001})
	found := false
	for _, m := range got {
		if m.Name == MilestoneDroughtOnset {
			found = true
		}
	}
	if !found {
		t.Error("expected MilestoneDroughtOnset among triggered milestones")
	}
}

func TestMilestoneDetectorStableLandscape(t *testing.T) {
	md := NewMilestoneDetector(stabilityWindows)

	var last []Milestone
	for i := 0; i < 2*stabilityWindows; i++ {
		last = md.Check(WindowStats{
			WindowEndTick:    uint64(i * 10),
			ThetaMean:        0.25,
			SurfaceWaterMean: 0.02,
		})
	}

	found := false
	for _, m := range last {
		if m.Name == MilestoneStableLandscape {
			found = true
		}
	}
	if !found {
		t.Error("expected a stable-landscape milestone after sustained low-variance windows")
	}
}

func TestMilestoneDetectorNoSpuriousTriggersOnFirstCall(t *testing.T) {
	md := NewMilestoneDetector(stabilityWindows)
	got := md.Check(WindowStats{WindowEndTick: 10, VegetationMean: 0.9})
	if len(got) != 0 {
		t.Errorf("expected no milestones on the very first Check call, got %v", got)
	}
}
