package placement

import (
	"errors"
	"fmt"

	"github.com/gekko3d/brickyard/brickrt/lattice"
	"github.com/gekko3d/brickyard/brickrt/occupancy"
	"github.com/go-gl/mathgl/mgl64"
)

const DefaultMaxStackLayers = 20

var (
	ErrOutOfBounds  = errors.New("placement: footprint extends past the baseplate")
	ErrStackTooHigh = errors.New("placement: no free layer below the stack ceiling")
)

type Reason int

const (
	ReasonNone Reason = iota
	OutOfBounds
	StackTooHigh
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case OutOfBounds:
		return "out_of_bounds"
	case StackTooHigh:
		return "stack_too_high"
	default:
		return fmt.Sprintf("reason(%d)", int(r))
	}
}

func (r Reason) sentinel() error {
	switch r {
	case OutOfBounds:
		return ErrOutOfBounds
	case StackTooHigh:
		return ErrStackTooHigh
	}
	return nil
}

// Rejection is the error value for an ordinary declined placement.
// errors.Is matches it against ErrOutOfBounds / ErrStackTooHigh.
type Rejection struct {
	Reason Reason
	Type   lattice.BrickType
	StudX  int
	StudZ  int
}

func (r *Rejection) Error() string {
	msg := "placement: " + r.Reason.String()
	if err := r.Reason.sentinel(); err != nil {
		msg = err.Error()
	}
	return fmt.Sprintf("%s (%s at stud %d,%d)", msg, r.Type, r.StudX, r.StudZ)
}

func (r *Rejection) Unwrap() error { return r.Reason.sentinel() }

// CollisionChecker is the read side of the occupancy index.
type CollisionChecker interface {
	HasCollision(cells []occupancy.Cell) bool
}

// Result describes a resolved placement. Cells is only set when Valid.
type Result struct {
	Valid        bool
	Reason       Reason
	Type         lattice.BrickType
	Position     mgl64.Vec3
	Layer        int
	StudX        int // lowest X cell
	StudZ        int // lowest Z cell
	Footprint    lattice.Footprint
	QuarterTurns int
	Cells        []occupancy.Cell
}

func (r Result) Rejection() *Rejection {
	if r.Valid {
		return nil
	}
	return &Rejection{Reason: r.Reason, Type: r.Type, StudX: r.StudX, StudZ: r.StudZ}
}

type Resolver struct {
	Geometry       lattice.Geometry
	MaxStackLayers int
}

func NewResolver(g lattice.Geometry, maxStackLayers int) (Resolver, error) {
	r := Resolver{Geometry: g, MaxStackLayers: maxStackLayers}
	if err := r.Validate(); err != nil {
		return Resolver{}, err
	}
	return r, nil
}

func (r Resolver) Validate() error {
	if err := r.Geometry.Validate(); err != nil {
		return err
	}
	if r.MaxStackLayers < 1 {
		return fmt.Errorf("placement: max stack layers must be at least 1, got %d", r.MaxStackLayers)
	}
	return nil
}

// Resolve snaps pick onto the lattice and finds the lowest free layer for the
// rotated footprint of brickType. Declined placements come back as a Result
// with Valid=false; the error is reserved for contract violations.
func (r Resolver) Resolve(pick mgl64.Vec3, brickType lattice.BrickType, quarterTurns int, idx CollisionChecker) (Result, error) {
	if err := r.Validate(); err != nil {
		return Result{}, err
	}
	base, err := brickType.Footprint()
	if err != nil {
		return Result{}, err
	}
	if err := base.Validate(); err != nil {
		return Result{}, err
	}

	q := lattice.NormalizeQuarterTurns(quarterTurns)
	fp := lattice.EffectiveFootprint(base, q)
	g := r.Geometry

	// a pick that is not a point cannot be on the baseplate
	if !lattice.Finite(pick.X()) || !lattice.Finite(pick.Z()) {
		return Result{Type: brickType, Footprint: fp, QuarterTurns: q, Layer: -1, Reason: OutOfBounds}, nil
	}

	// horizontal position does not depend on occupancy
	cx := lattice.SnapCenteredFootprint(g.ToStudSpace(pick.X()), fp.Width)
	cz := lattice.SnapCenteredFootprint(g.ToStudSpace(pick.Z()), fp.Depth)
	res := Result{
		Type:         brickType,
		Footprint:    fp,
		QuarterTurns: q,
		StudX:        lattice.StudOrigin(cx, fp.Width),
		StudZ:        lattice.StudOrigin(cz, fp.Depth),
		Layer:        -1,
	}
	wx, wz := g.StudToWorld(cx), g.StudToWorld(cz)

	if !lattice.WithinBaseplateBounds(mgl64.Vec2{wx, wz}, g.FootprintWorldSize(fp), g.HalfSize()) {
		res.Reason = OutOfBounds
		return res, nil
	}

	for layer := 0; layer+fp.Height <= r.MaxStackLayers; layer++ {
		cells := occupancy.CellsFor(res.StudX, res.StudZ, fp, layer)
		if idx != nil && idx.HasCollision(cells) {
			continue
		}
		res.Valid = true
		res.Layer = layer
		res.Cells = cells
		res.Position = mgl64.Vec3{wx, g.LayerToWorldY(layer, fp.Height), wz}
		return res, nil
	}

	res.Reason = StackTooHigh
	return res, nil
}
