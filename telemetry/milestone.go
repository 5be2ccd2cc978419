package telemetry

import (
	"log/slog"
)

// Milestone thresholds, locked rather than configurable (§C "scenario-
// milestone detection" names example triggers but does not make them
// tunable; kept alongside the code that checks them, the way the
// integrators package locks its torsion-feedback coefficients).
const (
	vegetationBreakthroughFrac = 0.30 // mean vegetation cover crossing this
	droughtOnsetWaterM         = 0.01 // mean surface water dropping below this
	regenerationSOMDelta       = 0.05 // SOM mean rising this much over the window
	stabilityCVThreshold       = 0.02 // coefficient-of-variation^2 ceiling
	stabilityWindows           = 5    // consecutive windows required
)

// Milestone is a scenario-level event a MilestoneDetector has found
// crossing a threshold. The caller is responsible for turning it into an
// eventlog record (eventlog.EventMilestone, eventlog.MilestonePayload) —
// this package has no dependency on eventlog so it stays usable against
// any window-stats producer.
type Milestone struct {
	Name  string  `csv:"name"`
	Value float64 `csv:"value"`
	Tick  uint64  `csv:"tick"`
}

// LogMilestone logs the milestone using slog.
func (m Milestone) LogMilestone() {
	slog.Info("milestone",
		"name", m.Name,
		"value", m.Value,
		"tick", m.Tick,
	)
}

const (
	MilestoneVegetationBreakthrough = "vegetation_breakthrough"
	MilestoneDroughtOnset           = "drought_onset"
	MilestoneRegenerationOnset      = "regeneration_onset"
	MilestoneStableLandscape        = "stable_landscape"
)

// MilestoneDetector watches a rolling history of WindowStats for
// threshold crossings worth surfacing as named events (§C).
type MilestoneDetector struct {
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	pastBreakthrough bool
	pastDrought       bool
	stableWindowsCount int
}

// NewMilestoneDetector creates a detector with the given history size.
func NewMilestoneDetector(historySize int) *MilestoneDetector {
	if historySize < stabilityWindows {
		historySize = stabilityWindows
	}
	return &MilestoneDetector{
		history:     make([]WindowStats, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest stats and returns any triggered milestones.
func (md *MilestoneDetector) Check(stats WindowStats) []Milestone {
	var milestones []Milestone

	if md.historyFull || md.historyIdx > 0 {
		if m := md.checkVegetationBreakthrough(stats); m != nil {
			milestones = append(milestones, *m)
		}
		if m := md.checkDroughtOnset(stats); m != nil {
			milestones = append(milestones, *m)
		}
		if m := md.checkRegenerationOnset(stats); m != nil {
			milestones = append(milestones, *m)
		}
		if m := md.checkStableLandscape(stats); m != nil {
			milestones = append(milestones, *m)
		}
	}

	md.addToHistory(stats)
	return milestones
}

func (md *MilestoneDetector) addToHistory(stats WindowStats) {
	md.history[md.historyIdx] = stats
	md.historyIdx = (md.historyIdx + 1) % md.historySize
	if md.historyIdx == 0 {
		md.historyFull = true
	}
}

func (md *MilestoneDetector) getHistory() []WindowStats {
	if md.historyFull {
		return md.history
	}
	return md.history[:md.historyIdx]
}

func (md *MilestoneDetector) checkVegetationBreakthrough(stats WindowStats) *Milestone {
	if md.pastBreakthrough {
		if stats.VegetationMean < vegetationBreakthroughFrac {
			md.pastBreakthrough = false
		}
		return nil
	}
	if stats.VegetationMean >= vegetationBreakthroughFrac {
		md.pastBreakthrough = true
		return &Milestone{
			Name:  MilestoneVegetationBreakthrough,
			Value: stats.VegetationMean,
			Tick:  stats.WindowEndTick,
		}
	}
	return nil
}

func (md *MilestoneDetector) checkDroughtOnset(stats WindowStats) *Milestone {
	if md.pastDrought {
		if stats.SurfaceWaterMean >= droughtOnsetWaterM {
			md.pastDrought = false
		}
		return nil
	}
	if stats.SurfaceWaterMean < droughtOnsetWaterM {
		md.pastDrought = true
		return &Milestone{
			Name:  MilestoneDroughtOnset,
			Value: stats.SurfaceWaterMean,
			Tick:  stats.WindowEndTick,
		}
	}
	return nil
}

func (md *MilestoneDetector) checkRegenerationOnset(stats WindowStats) *Milestone {
	history := md.getHistory()
	if len(history) < 3 {
		return nil
	}
	baseline := history[0].SOMMean
	if stats.SOMMean-baseline >= regenerationSOMDelta {
		return &Milestone{
			Name:  MilestoneRegenerationOnset,
			Value: stats.SOMMean - baseline,
			Tick:  stats.WindowEndTick,
		}
	}
	return nil
}

func (md *MilestoneDetector) checkStableLandscape(stats WindowStats) *Milestone {
	history := md.getHistory()
	if len(history) < stabilityWindows {
		md.stableWindowsCount = 0
		return nil
	}

	recent := history[len(history)-stabilityWindows:]
	var thetaSum, waterSum float64
	for _, h := range recent {
		thetaSum += h.ThetaMean
		waterSum += h.SurfaceWaterMean
	}
	thetaMean := thetaSum / float64(stabilityWindows)
	waterMean := waterSum / float64(stabilityWindows)

	var thetaVar, waterVar float64
	for _, h := range recent {
		td := h.ThetaMean - thetaMean
		wd := h.SurfaceWaterMean - waterMean
		thetaVar += td * td
		waterVar += wd * wd
	}
	thetaVar /= float64(stabilityWindows)
	waterVar /= float64(stabilityWindows)

	thetaCV, waterCV := 0.0, 0.0
	if thetaMean != 0 {
		thetaCV = thetaVar / (thetaMean * thetaMean)
	}
	if waterMean != 0 {
		waterCV = waterVar / (waterMean * waterMean)
	}

	if thetaCV < stabilityCVThreshold && waterCV < stabilityCVThreshold {
		md.stableWindowsCount++
	} else {
		md.stableWindowsCount = 0
	}

	if md.stableWindowsCount == stabilityWindows {
		return &Milestone{
			Name:  MilestoneStableLandscape,
			Value: stats.ThetaMean,
			Tick:  stats.WindowEndTick,
		}
	}
	return nil
}
