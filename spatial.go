package main

import (
	"math"
	"sort"
)

// MinCellSize is the hard floor for the grid cell size, guarding against
// division by zero and pathological cell counts.
const MinCellSize = 1.0

// DefaultCellSize suits car-scale entities on the track plane.
const DefaultCellSize = 8.0

type cellKey struct {
	cx, cz int
}

type spatialCell struct {
	indices []int
}

// SpatialHash is a uniform-grid broad-phase index over the horizontal
// plane. It is fully rebuilt every tick: Reset, then Insert for each
// entity, then queries. Cells are pooled so the per-tick rebuild does not
// allocate once the pool is warm. Query results over-approximate a circle
// with a square cell neighborhood; callers filter with an exact distance
// check. False positives are expected, false negatives never occur.
type SpatialHash struct {
	cellSize float64
	cells    map[cellKey]*spatialCell
	pool     []*spatialCell
}

// NewSpatialHash creates an index with the given cell size, clamped to
// MinCellSize.
func NewSpatialHash(cellSize float64) *SpatialHash {
	h := &SpatialHash{cells: make(map[cellKey]*spatialCell)}
	h.setCellSize(cellSize)
	return h
}

func (h *SpatialHash) setCellSize(cellSize float64) {
	if math.IsNaN(cellSize) || cellSize < MinCellSize {
		cellSize = MinCellSize
	}
	h.cellSize = cellSize
}

// CellSize returns the active cell size.
func (h *SpatialHash) CellSize() float64 {
	return h.cellSize
}

// Reset returns all cells to the pool and clears the active map. A
// cellSize <= 0 keeps the current size; the index has no support for
// mixed cell sizes within one build.
func (h *SpatialHash) Reset(cellSize float64) {
	if cellSize > 0 && cellSize != h.cellSize {
		h.setCellSize(cellSize)
	}
	for key, cell := range h.cells {
		cell.indices = cell.indices[:0]
		h.pool = append(h.pool, cell)
		delete(h.cells, key)
	}
}

// Insert registers an entity index at the given position. Indices are
// opaque references into an external entity array and are only valid
// until the next Reset.
func (h *SpatialHash) Insert(index int, x, z float64) {
	if math.IsNaN(x) || math.IsNaN(z) || math.IsInf(x, 0) || math.IsInf(z, 0) {
		return
	}
	key := cellKey{
		cx: int(math.Floor(x / h.cellSize)),
		cz: int(math.Floor(z / h.cellSize)),
	}
	cell, ok := h.cells[key]
	if !ok {
		if n := len(h.pool); n > 0 {
			cell = h.pool[n-1]
			h.pool = h.pool[:n-1]
		} else {
			cell = &spatialCell{}
		}
		h.cells[key] = cell
	}
	cell.indices = append(cell.indices, index)
}

// QueryIndices clears out, collects every index within the square cell
// neighborhood covering the radius around (x, z), and returns the extended
// slice. Results are sorted ascending so identical queries against an
// unmodified hash return identical output. A negative radius or non-finite
// coordinates yield an empty result, never a panic.
func (h *SpatialHash) QueryIndices(x, z, radius float64, out []int) []int {
	out = out[:0]
	if radius < 0 || math.IsNaN(radius) {
		return out
	}
	if math.IsNaN(x) || math.IsNaN(z) || math.IsInf(x, 0) || math.IsInf(z, 0) {
		return out
	}
	cx := int(math.Floor(x / h.cellSize))
	cz := int(math.Floor(z / h.cellSize))
	cellRange := int(math.Ceil(radius / h.cellSize))
	for dz := -cellRange; dz <= cellRange; dz++ {
		for dx := -cellRange; dx <= cellRange; dx++ {
			if cell, ok := h.cells[cellKey{cx: cx + dx, cz: cz + dz}]; ok {
				out = append(out, cell.indices...)
			}
		}
	}
	if len(out) > 1 {
		sort.Ints(out)
	}
	return out
}
