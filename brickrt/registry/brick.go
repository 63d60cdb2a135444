package registry

import (
	"github.com/gekko3d/brickyard/brickrt/lattice"
	"github.com/gekko3d/brickyard/brickrt/occupancy"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

type BrickID string

func NewBrickID() BrickID {
	return BrickID(uuid.NewString())
}

// Brick is a placed brick. Values handed out by the registry are copies.
type Brick struct {
	ID           BrickID
	Type         lattice.BrickType
	Footprint    lattice.Footprint // unrotated
	Position     mgl64.Vec3
	QuarterTurns int
	Color        string
	Layer        int

	cells []occupancy.Cell
}

// EffectiveFootprint is the footprint after rotation.
func (b Brick) EffectiveFootprint() lattice.Footprint {
	return lattice.EffectiveFootprint(b.Footprint, b.QuarterTurns)
}

// TopLayer is the highest layer the brick occupies.
func (b Brick) TopLayer() int {
	return b.Layer + b.Footprint.Height - 1
}

// Cells returns a copy of the cells committed for this brick.
func (b Brick) Cells() []occupancy.Cell {
	out := make([]occupancy.Cell, len(b.cells))
	copy(out, b.cells)
	return out
}

func (b Brick) clone() Brick {
	b.cells = b.Cells()
	return b
}
