package occupancy

import (
	"errors"
	"fmt"
	"sort"

	"github.com/gekko3d/brickyard/brickrt/lattice"
)

var (
	ErrCellOccupied = errors.New("occupancy: cell already occupied")
	ErrCellNotOwned = errors.New("occupancy: cell not owned by releasing brick")
)

// InvariantError reports a reserve/release that disagrees with the index.
// It only happens when the registry and the index have drifted apart.
type InvariantError struct {
	Op   string
	Cell Cell
	Err  error
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("occupancy: %s %v: %v", e.Op, e.Cell, e.Err)
}

func (e *InvariantError) Unwrap() error { return e.Err }

// Cell is one stud-sized, layer-high slot of the lattice.
type Cell struct {
	X     int
	Layer int
	Z     int
}

func (c Cell) String() string {
	return fmt.Sprintf("(%d,%d,%d)", c.X, c.Layer, c.Z)
}

// CellsFor returns every cell a footprint claims when its lowest X/Z cell is
// at (studX, studZ) and it rests on layer.
func CellsFor(studX, studZ int, fp lattice.Footprint, layer int) []Cell {
	if fp.Width < 1 || fp.Depth < 1 || fp.Height < 1 {
		return nil
	}
	cells := make([]Cell, 0, fp.Cells())
	for y := layer; y < layer+fp.Height; y++ {
		for x := studX; x < studX+fp.Width; x++ {
			for z := studZ; z < studZ+fp.Depth; z++ {
				cells = append(cells, Cell{X: x, Layer: y, Z: z})
			}
		}
	}
	return cells
}

// Index maps lattice cells to the brick occupying them.
type Index[ID comparable] struct {
	cells map[Cell]ID
}

func NewIndex[ID comparable]() *Index[ID] {
	return &Index[ID]{cells: make(map[Cell]ID)}
}

func (idx *Index[ID]) HasCollision(cells []Cell) bool {
	for _, c := range cells {
		if _, ok := idx.cells[c]; ok {
			return true
		}
	}
	return false
}

// Reserve claims all cells for id. Nothing is written unless every cell is
// free.
func (idx *Index[ID]) Reserve(cells []Cell, id ID) error {
	seen := make(map[Cell]struct{}, len(cells))
	for _, c := range cells {
		if _, ok := idx.cells[c]; ok {
			return &InvariantError{Op: "reserve", Cell: c, Err: ErrCellOccupied}
		}
		if _, dup := seen[c]; dup {
			return &InvariantError{Op: "reserve", Cell: c, Err: ErrCellOccupied}
		}
		seen[c] = struct{}{}
	}
	for _, c := range cells {
		idx.cells[c] = id
	}
	return nil
}

// Release frees cells previously reserved by id. Every cell must belong to
// id, otherwise the index is left untouched.
func (idx *Index[ID]) Release(cells []Cell, id ID) error {
	for _, c := range cells {
		owner, ok := idx.cells[c]
		if !ok || owner != id {
			return &InvariantError{Op: "release", Cell: c, Err: ErrCellNotOwned}
		}
	}
	for _, c := range cells {
		delete(idx.cells, c)
	}
	return nil
}

func (idx *Index[ID]) Owner(c Cell) (ID, bool) {
	id, ok := idx.cells[c]
	return id, ok
}

func (idx *Index[ID]) Len() int {
	return len(idx.cells)
}

// Cells returns the occupied cells ordered by layer, then X, then Z.
func (idx *Index[ID]) Cells() []Cell {
	out := make([]Cell, 0, len(idx.cells))
	for c := range idx.cells {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Layer != b.Layer {
			return a.Layer < b.Layer
		}
		if a.X != b.X {
			return a.X < b.X
		}
		return a.Z < b.Z
	})
	return out
}

// ColumnTop returns the highest occupied layer in the stud column (x, z).
// maxLayers bounds the scan.
func (idx *Index[ID]) ColumnTop(x, z, maxLayers int) (layer int, owner ID, ok bool) {
	for y := maxLayers - 1; y >= 0; y-- {
		if id, hit := idx.cells[Cell{X: x, Layer: y, Z: z}]; hit {
			return y, id, true
		}
	}
	var zero ID
	return -1, zero, false
}

func (idx *Index[ID]) Clear() {
	clear(idx.cells)
}
