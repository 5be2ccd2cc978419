package grid

import "fmt"

// Grid is the fixed nx*ny*nz container (§3). Storage is a dense contiguous
// array when nx*ny <= sparseThreshold, otherwise a sparse active-cell set
// backed by an ark ecs.World (sparse.go). nz is typically 1; soil layers
// are the per-cell SoilLayers sub-axis, not a grid axis.
type Grid struct {
	Nx, Ny, Nz int

	dense  []Cell
	sparse *sparseGrid
}

// NewGrid constructs a Grid of the given dimensions. budget bounds the
// sparse active-cell set's size (§3 memory-budget invariant); it is
// ignored for dense grids.
func NewGrid(nx, ny, nz, budget int) *Grid {
	g := &Grid{Nx: nx, Ny: ny, Nz: nz}
	if nx*ny <= sparseThreshold {
		g.dense = make([]Cell, nx*ny*nz)
	} else {
		g.sparse = newSparseGrid(budget)
	}
	return g
}

// IsSparse reports whether this grid uses the sparse active-cell set.
func (g *Grid) IsSparse() bool {
	return g.sparse != nil
}

// Index computes the linear index of (x,y,z).
func (g *Grid) Index(x, y, z int) int32 {
	return int32((z*g.Ny+y)*g.Nx + x)
}

// At returns a pointer to the cell at (x,y,z), or nil if the coordinates
// are out of the grid's bounds or, on a sparse grid, not active. Bounds
// are checked here because (x,y,z) often originates from an external host
// call (e.g. place_intervention) rather than an internal loop that already
// stayed within range.
func (g *Grid) At(x, y, z int) *Cell {
	if x < 0 || x >= g.Nx || y < 0 || y >= g.Ny || z < 0 || z >= g.Nz {
		return nil
	}
	idx := g.Index(x, y, z)
	if g.dense != nil {
		return &g.dense[idx]
	}
	return g.sparse.Get(idx)
}

// AtIndex is the linear-index form of At.
func (g *Grid) AtIndex(idx int32) *Cell {
	if g.dense != nil {
		return &g.dense[idx]
	}
	return g.sparse.Get(idx)
}

// Activate places c at (x,y,z). On a dense grid this simply overwrites the
// slot and marks it active; on a sparse grid it inserts the cell into the
// ark active-cell set.
func (g *Grid) Activate(x, y, z int, c Cell) {
	idx := g.Index(x, y, z)
	c.IsActive = true
	if g.dense != nil {
		g.dense[idx] = c
		return
	}
	g.sparse.Activate(idx, c)
}

// Deactivate marks (x,y,z) inactive. On a dense grid the slot's IsActive
// flag is cleared but the cell payload is retained (dense cells are never
// reallocated, per §3 Lifecycle); on a sparse grid the cell is removed
// from the active set entirely.
func (g *Grid) Deactivate(x, y, z int) {
	idx := g.Index(x, y, z)
	if g.dense != nil {
		g.dense[idx].IsActive = false
		return
	}
	g.sparse.Deactivate(idx)
}

// ActiveCount returns the number of active cells.
func (g *Grid) ActiveCount() int {
	if g.dense != nil {
		n := 0
		for i := range g.dense {
			if g.dense[i].IsActive {
				n++
			}
		}
		return n
	}
	return g.sparse.Len()
}

// OverBudget reports the sparse memory-budget invariant; always false for
// dense grids, which have no configurable budget.
func (g *Grid) OverBudget() bool {
	if g.sparse == nil {
		return false
	}
	return g.sparse.OverBudget()
}

// EachActive visits every active cell, in dense-index order for a dense
// grid or ark query order for a sparse grid.
func (g *Grid) EachActive(fn func(index int32, c *Cell)) {
	if g.dense != nil {
		for i := range g.dense {
			if g.dense[i].IsActive {
				fn(int32(i), &g.dense[i])
			}
		}
		return
	}
	g.sparse.Each(fn)
}

// String satisfies fmt.Stringer for diagnostic printing (teacher's
// config.Config does the same for its top-level sections).
func (g *Grid) String() string {
	kind := "dense"
	if g.sparse != nil {
		kind = "sparse"
	}
	return fmt.Sprintf("Grid{%dx%dx%d, %s, active=%d}", g.Nx, g.Ny, g.Nz, kind, g.ActiveCount())
}
