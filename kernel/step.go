package kernel

import (
	"github.com/dj-ccs/negentropic-kernel/eventlog"
	"github.com/dj-ccs/negentropic-kernel/grid"
	"github.com/dj-ccs/negentropic-kernel/integrators"
	"github.com/dj-ccs/negentropic-kernel/kernelerr"
	"github.com/dj-ccs/negentropic-kernel/reg"
)

// Status is step()'s tri-state result (§4.8 "ok | integrator-fallback |
// non-fatal-numeric").
type Status int

const (
	StatusOK Status = iota
	StatusIntegratorFallback
	StatusNonFatalNumeric
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusIntegratorFallback:
		return "integrator-fallback"
	case StatusNonFatalNumeric:
		return "non-fatal-numeric"
	default:
		return "unknown"
	}
}

// referenceAloftTemperatureK is the fixed upper-air reference temperature
// the torsion closure's buoyancy feedback relaxes toward (§4.5). A full
// atmosphere column is out of this kernel's scope (§1); a constant aloft
// reference keeps the closure well-defined without inventing an
// unspecified vertical temperature model.
const referenceAloftTemperatureK = 290.0

// torsionCasimirGrad is the Clebsch gradient used for the fine-LoD
// vorticity step: a Hamiltonian that is a pure function of the collective
// variable m = q*p conserves m exactly under the canonical flow (the
// argument integrators_test.go verifies), so routing a cell's raw
// finite-difference vorticity through one symplectic step at this tier
// removes free numerical drift before the feedback forcing below perturbs
// it again.
func torsionCasimirGrad(c integrators.ClebschPoint) (dHdq, dHdp float64) {
	m := c.Q * c.P
	return m * c.P, m * c.Q
}

// Step advances the handle by one cascade tick, returning a tri-state
// status (§4.8). dt (config default if dt == 0) is the step length, in
// seconds, given to the torsion closure and recorded in the
// simulation_step event; HYD advances by its own fixed step (the hydrology
// config's Column.DtHours) and REG on its tick cadence, and dt changes
// neither. It runs the temporal cascade, then the torsion closure, before
// publishing the new state and appending a simulation_step event.
func (h *Handle) Step(dt float64) (Status, error) {
	if dt == 0 {
		dt = h.cfg.DT
	}
	if dt <= 0 {
		return StatusOK, kernelerr.Errorf(kernelerr.ErrInterface, "kernel: step dt must be positive (got %v, config default %v)", dt, h.cfg.DT)
	}

	before := h.sub.Errors.Total

	precip := h.precipSource
	if precip == nil {
		precip = func(index int32) float64 { return 0 }
	}
	regionOf := func(index int32) reg.RegionParams { return h.region }
	h.cascade.Advance(h.sub, h.grid, precip, regionOf)

	if h.cascade.Tick%reg.TickInterval == 0 {
		h.evaluateLOD()
	}

	fallback := h.stepTorsion(dt)

	h.tick++
	h.double.Writable().WriteFromCells(h.grid)
	hash := h.computeStateHash()
	h.double.Publish(h.tick, hash)

	h.append(eventlog.EventSimulationStep, eventlog.SimulationStepPayload(h.tick, dt, hash))

	status := StatusOK
	switch {
	case fallback:
		status = StatusIntegratorFallback
	case h.sub.Errors.Total > before:
		status = StatusNonFatalNumeric
	}
	return status, nil
}

// Step is the package-level form taking a handle ID, for hosts that don't
// hold onto a *Handle directly.
func Step(id uint64, dt float64) (Status, error) {
	h, err := lookup(id)
	if err != nil {
		return StatusOK, err
	}
	return h.Step(dt)
}

// stepTorsion runs the torsion closure over every grid slot: recompute the
// discrete curl from the current wind field, optionally refine the
// vorticity through the Clebsch-collective symplectic step at LoD3, then
// apply the locked feedback coefficients. It reports whether any cell fell
// back to the bounded Newton loop's last-resort substitution step.
func (h *Handle) stepTorsion(dt float64) bool {
	if !h.cfg.Solvers.Torsion {
		return false
	}
	fallback := false
	cfg := integrators.DefaultClebschConfig()

	h.eachActiveCoord(func(x, y, z int, c *grid.Cell) {
		integrators.ComputeTorsion(h.grid, x, y, z)
	})

	h.eachActiveCoord(func(x, y, z int, c *grid.Cell) {
		lod := int(c.LOD)
		if integrators.SelectMethod(lod, h.escalate) == integrators.MethodClebschCollective {
			next, result := integrators.ClebschStep(h.sub, c.Torsion, torsionCasimirGrad, dt, cfg)
			c.Torsion = next
			if result.Fallback {
				fallback = true
			}
		}
	})

	h.eachActiveCoord(func(x, y, z int, c *grid.Cell) {
		integrators.ApplyTorsionFeedback(h.grid, x, y, z, referenceAloftTemperatureK, int(c.LOD))
	})

	return fallback
}

// eachActiveCoord visits every active cell along with its (x,y,z)
// coordinates, which the torsion stencil needs and grid.EachActive's
// linear-index form doesn't expose.
func (h *Handle) eachActiveCoord(fn func(x, y, z int, c *grid.Cell)) {
	for z := 0; z < h.grid.Nz; z++ {
		for y := 0; y < h.grid.Ny; y++ {
			for x := 0; x < h.grid.Nx; x++ {
				c := h.grid.At(x, y, z)
				if c == nil || !c.IsActive {
					continue
				}
				fn(x, y, z, c)
			}
		}
	}
}
