package lattice

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	DefaultUnitSize      = 0.8
	DefaultUnitHeight    = 0.96
	DefaultBaseplateSize = 32

	boundsEpsilon = 1e-9
)

// Geometry describes the stud lattice in world units. It is set once per
// session and never mutated afterwards.
type Geometry struct {
	UnitSize      float64 // world length of one stud
	UnitHeight    float64 // world height of one brick layer
	SurfaceY      float64 // world Y of the baseplate top
	BaseplateSize int     // studs per side, centred at the origin
}

func DefaultGeometry() Geometry {
	return Geometry{
		UnitSize:      DefaultUnitSize,
		UnitHeight:    DefaultUnitHeight,
		BaseplateSize: DefaultBaseplateSize,
	}
}

func (g Geometry) Validate() error {
	if !(g.UnitSize > 0) || math.IsInf(g.UnitSize, 0) {
		return fmt.Errorf("lattice: unit size must be positive, got %v", g.UnitSize)
	}
	if !(g.UnitHeight > 0) || math.IsInf(g.UnitHeight, 0) {
		return fmt.Errorf("lattice: unit height must be positive, got %v", g.UnitHeight)
	}
	if g.BaseplateSize < 1 {
		return fmt.Errorf("lattice: baseplate size must be at least 1 stud, got %d", g.BaseplateSize)
	}
	if math.IsNaN(g.SurfaceY) || math.IsInf(g.SurfaceY, 0) {
		return fmt.Errorf("lattice: surface y must be finite, got %v", g.SurfaceY)
	}
	return nil
}

// WorldToStud returns the stud index nearest to a world coordinate.
func (g Geometry) WorldToStud(coord float64) int {
	return int(roundHalfUp(coord / g.UnitSize))
}

// ToStudSpace converts a world coordinate into continuous stud units.
func (g Geometry) ToStudSpace(coord float64) float64 {
	return coord / g.UnitSize
}

func (g Geometry) StudToWorld(stud float64) float64 {
	return stud * g.UnitSize
}

// HalfSize is half the baseplate edge in world units.
func (g Geometry) HalfSize() float64 {
	return float64(g.BaseplateSize) * g.UnitSize / 2
}

// LayerToWorldY returns the centroid Y of a brick resting at layer and
// spanning height layers.
func (g Geometry) LayerToWorldY(layer, height int) float64 {
	return g.SurfaceY + float64(layer)*g.UnitHeight + float64(height)*g.UnitHeight/2
}

// FootprintWorldSize is the X/Z extent of a footprint in world units.
func (g Geometry) FootprintWorldSize(fp Footprint) mgl64.Vec2 {
	return mgl64.Vec2{float64(fp.Width) * g.UnitSize, float64(fp.Depth) * g.UnitSize}
}

// QuarterTurns normalises an arbitrary angle in degrees to the nearest
// quarter turn in [0, 3].
func QuarterTurns(angleDeg float64) int {
	q := int(roundHalfUp(angleDeg / 90))
	return ((q % 4) + 4) % 4
}

func QuarterTurnsFromRadians(angleRad float64) int {
	return QuarterTurns(angleRad * 180 / math.Pi)
}

// NormalizeQuarterTurns folds any integer turn count into [0, 3].
func NormalizeQuarterTurns(q int) int {
	return ((q % 4) + 4) % 4
}

// EffectiveFootprint swaps width and depth for odd quarter turns. Height is
// never affected.
func EffectiveFootprint(base Footprint, quarterTurns int) Footprint {
	if NormalizeQuarterTurns(quarterTurns)%2 == 1 {
		return Footprint{Width: base.Depth, Depth: base.Width, Height: base.Height}
	}
	return base
}

// ParityOffset is 0.5 for even footprint sizes and 0 for odd ones.
func ParityOffset(size int) float64 {
	if size%2 == 0 {
		return 0.5
	}
	return 0
}

// SnapCenteredFootprint snaps a continuous stud coordinate to the centre of a
// footprint of the given size so that its cells land on whole studs.
func SnapCenteredFootprint(rawStud float64, size int) float64 {
	off := ParityOffset(size)
	return roundHalfUp(rawStud-off) + off
}

// StudOrigin is the lowest stud index covered by a footprint whose snapped
// centre is given in stud units.
func StudOrigin(snappedCenter float64, size int) int {
	return int(roundHalfUp(snappedCenter - float64(size-1)/2))
}

// WithinBaseplateBounds reports whether the axis-aligned footprint around
// center lies inside [-half, +half] on both horizontal axes. Non-finite input
// is never inside.
func WithinBaseplateBounds(center, size mgl64.Vec2, half float64) bool {
	for i := 0; i < 2; i++ {
		lo := center[i] - size[i]/2
		hi := center[i] + size[i]/2
		// written so that NaN fails
		if !(lo >= -half-boundsEpsilon && hi <= half+boundsEpsilon) {
			return false
		}
	}
	return true
}

// Finite reports whether x is neither NaN nor infinite.
func Finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// roundHalfUp breaks ties toward +Inf.
func roundHalfUp(x float64) float64 {
	return math.Floor(x + 0.5)
}
