package grid

import (
	"github.com/mlange-42/ark/ecs"
)

// sparseThreshold is the nx*ny invariant from §3: dense storage below it,
// sparse active-cell set above it.
const sparseThreshold = 65536

// cellRef is the sole ark component carried by the sparse active-cell set:
// a back-reference to the cell's linear grid index. This realizes the §9
// migration note ("dirty flag + quadtree... express as a tagged-variant
// active-set, not as mutable per-cell booleans") — membership in the ark
// world *is* the active-set, queried instead of scanned.
type cellRef struct {
	Index int32
}

// sparseGrid backs Grid when nx*ny exceeds sparseThreshold: an ark ecs.World
// holds one entity per active cell (the fast-iterable membership set), and
// a map from linear index to payload holds the actual Cell data. Cells are
// never reallocated during stepping (§3 Lifecycle); only membership in the
// active set changes.
type sparseGrid struct {
	world  *ecs.World
	refs   *ecs.Map1[cellRef]
	filter *ecs.Filter1[cellRef]

	entities map[int32]ecs.Entity
	cells    map[int32]*Cell

	budget int // configured memory-budget invariant, in cell count
}

func newSparseGrid(budget int) *sparseGrid {
	world := ecs.NewWorld()
	return &sparseGrid{
		world:    world,
		refs:     ecs.NewMap1[cellRef](world),
		filter:   ecs.NewFilter1[cellRef](world),
		entities: make(map[int32]ecs.Entity),
		cells:    make(map[int32]*Cell),
		budget:   budget,
	}
}

// Activate inserts index into the active-cell set, storing c as its
// payload. It is a no-op if index is already active.
func (s *sparseGrid) Activate(index int32, c Cell) {
	if _, ok := s.entities[index]; ok {
		return
	}
	e := s.refs.NewEntity(&cellRef{Index: index})
	s.entities[index] = e
	cp := c
	s.cells[index] = &cp
}

// Deactivate removes index from the active-cell set. The payload is
// dropped with it; reactivating the same index requires a fresh Cell.
func (s *sparseGrid) Deactivate(index int32) {
	e, ok := s.entities[index]
	if !ok {
		return
	}
	s.world.RemoveEntity(e)
	delete(s.entities, index)
	delete(s.cells, index)
}

// Get returns the cell at index, or nil if not active.
func (s *sparseGrid) Get(index int32) *Cell {
	return s.cells[index]
}

// Len reports the current active-cell count.
func (s *sparseGrid) Len() int {
	return len(s.cells)
}

// OverBudget reports whether the active-set has exceeded the configured
// memory-budget invariant (§3 "sparse usage <= configured budget").
func (s *sparseGrid) OverBudget() bool {
	return s.budget > 0 && s.Len() > s.budget
}

// Each iterates every active cell in ark query order, yielding its linear
// index and payload.
func (s *sparseGrid) Each(fn func(index int32, c *Cell)) {
	query := s.filter.Query()
	for query.Next() {
		ref := query.Get()
		fn(ref.Index, s.cells[ref.Index])
	}
}
