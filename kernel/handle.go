// Package kernel is the public interface to external hosts (§4.8):
// create/destroy/step/get_field/state_hash/to_binary/reset_from_binary/
// interventions/query_error_flags. Every operation goes through a Handle
// looked up in a package-level table by an opaque ID — there is
// deliberately no single package-global engine instance (§9 "no
// process-wide singletons"): a host may create several handles, each with
// its own Config, Substrate, Grid, and event chain, and they never share
// mutable state.
package kernel

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dj-ccs/negentropic-kernel/config"
	"github.com/dj-ccs/negentropic-kernel/eventlog"
	"github.com/dj-ccs/negentropic-kernel/grid"
	"github.com/dj-ccs/negentropic-kernel/hyd"
	"github.com/dj-ccs/negentropic-kernel/kernelerr"
	"github.com/dj-ccs/negentropic-kernel/numerics"
	"github.com/dj-ccs/negentropic-kernel/reg"
	"github.com/dj-ccs/negentropic-kernel/scheduler"
)

// Handle is one independent simulation instance. The kernel itself is
// single-threaded and synchronous (§5): a Handle's methods assume the
// host calls them from one stepping thread, and protect only the bits an
// external read-only observer touches (the double buffer's published
// index) rather than the whole struct.
type Handle struct {
	id uint64

	cfg     config.Config
	sub     *numerics.Substrate
	grid    *grid.Grid
	cascade *scheduler.Cascade
	double  *grid.DoubleBuffer
	region  reg.RegionParams

	tick uint64
	lod  int

	lodTree        *scheduler.QuadTree
	lodImportance  *scheduler.ImportanceTracker
	lodLeavesBuf   []int
	focusX, focusY int
	lodPinned      bool
	lodPin         grid.LODLevel

	escalate bool

	chain   *eventlog.Chain
	session string

	pending []eventlog.Record

	precipSource func(index int32) float64
}

// append appends to the handle's chain and buffers the resulting record
// so DrainEvents can hand it to a host for NDJSON persistence — the
// kernel itself never opens a file (§1 "external collaborators").
func (h *Handle) append(eventType string, payload map[string]any) {
	h.pending = append(h.pending, h.chain.Append(eventType, payload))
}

var (
	handlesMu sync.Mutex
	handles   = make(map[uint64]*Handle)
	nextID    uint64
)

// Create validates cfg and allocates a new Handle, returning its opaque
// ID (§4.8 "create(config) -> handle").
func Create(cfg config.Config) (uint64, error) {
	if err := cfg.Validate(); err != nil {
		return 0, kernelerr.Wrap(kernelerr.ErrConfiguration, fmt.Errorf("kernel: %w", err))
	}
	if cfg.Scheduler.RegTickInterval != reg.TickInterval {
		return 0, kernelerr.Errorf(kernelerr.ErrConfiguration, "kernel: configuration mismatch: scheduler.reg_tick_interval=%d does not match the compiled-in cadence %d", cfg.Scheduler.RegTickInterval, reg.TickInterval)
	}

	n := cfg.Derived.CellCount
	sub := numerics.NewSubstrate(cfg.RNGSeed)
	g := grid.NewGrid(cfg.Grid.Nx, cfg.Grid.Ny, cfg.Grid.Nz, cfg.Grid.Budget)

	h := &Handle{
		cfg:           cfg,
		sub:           sub,
		grid:          g,
		cascade:       scheduler.NewCascade(n, hyd.DefaultStepConfig()),
		double:        grid.NewDoubleBuffer(n),
		region:        reg.DefaultRegionParams("default"),
		lodTree:       newLODTree(cfg.Grid.Nx, cfg.Grid.Ny),
		lodImportance: scheduler.NewImportanceTracker(n),
		focusX:        cfg.Grid.Nx / 2,
		focusY:        cfg.Grid.Ny / 2,
		escalate:      cfg.Integrator.Escalate,
		session:       eventlog.NewSessionID(),
	}
	h.chain = eventlog.NewChain(h.session, "", wallClockMicros)

	id := atomic.AddUint64(&nextID, 1)
	h.id = id

	handlesMu.Lock()
	handles[id] = h
	handlesMu.Unlock()

	h.append(eventlog.EventSessionStart, eventlog.SessionStartPayload(configDigest(cfg)))

	return id, nil
}

// Destroy releases a handle. Calling it twice, or on an unknown handle,
// is a reported interface error rather than a panic (§4.8 failure
// conditions: "null or unknown handle").
func Destroy(id uint64) error {
	h, err := lookup(id)
	if err != nil {
		return err
	}
	h.append(eventlog.EventSessionEnd, eventlog.SessionEndPayload(h.tick))

	handlesMu.Lock()
	delete(handles, id)
	handlesMu.Unlock()
	return nil
}

func lookup(id uint64) (*Handle, error) {
	handlesMu.Lock()
	h, ok := handles[id]
	handlesMu.Unlock()
	if !ok {
		return nil, kernelerr.Errorf(kernelerr.ErrInterface, "kernel: unknown handle %d", id)
	}
	return h, nil
}

// Chain exposes the handle's event chain, e.g. for a host wanting to
// append its own camera_move/change_parameter events.
func (h *Handle) Chain() *eventlog.Chain { return h.chain }

// Config returns the configuration this handle was created with.
func (h *Handle) Config() config.Config { return h.cfg }

// Grid exposes the underlying grid for host code that needs to seed
// initial terrain/climate state before the first step (scenario setup is
// outside the kernel's own responsibility, per §1's "external
// collaborators" boundary).
func (h *Handle) Grid() *grid.Grid { return h.grid }

// Grid is the package-level form of (*Handle).Grid, for hosts that only
// hold a handle ID: a scenario driver seeds elevation/climate/vegetation
// state directly into the grid before the first step, rather than routing
// every cell write through a kernel setter that would otherwise have to
// anticipate every seeding shape a host might need.
func Grid(id uint64) (*grid.Grid, error) {
	h, err := lookup(id)
	if err != nil {
		return nil, err
	}
	return h.grid, nil
}

func configDigest(cfg config.Config) string {
	return fmt.Sprintf("%dx%dx%d/%s/%s/seed=%d", cfg.Grid.Nx, cfg.Grid.Ny, cfg.Grid.Nz, cfg.Precision.Mode, cfg.Integrator.Default, cfg.RNGSeed)
}
