package lattice

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestWorldToStud(t *testing.T) {
	g := DefaultGeometry()
	cases := []struct {
		in   float64
		want int
	}{
		{0, 0},
		{0.3, 0},
		{0.5, 1},
		{0.8, 1},
		{-0.8, -1},
		{-1.3, -2},
		{12.0, 15},
	}
	for _, c := range cases {
		if got := g.WorldToStud(c.in); got != c.want {
			t.Errorf("WorldToStud(%v)=%d want %d", c.in, got, c.want)
		}
	}
}

func TestQuarterTurns(t *testing.T) {
	cases := []struct {
		deg  float64
		want int
	}{
		{0, 0},
		{44, 0},
		{46, 1},
		{90, 1},
		{180, 2},
		{270, 3},
		{360, 0},
		{450, 1},
		{-90, 3},
		{-180, 2},
		{-269, 1},
	}
	for _, c := range cases {
		if got := QuarterTurns(c.deg); got != c.want {
			t.Errorf("QuarterTurns(%v)=%d want %d", c.deg, got, c.want)
		}
	}

	if got := QuarterTurnsFromRadians(math.Pi / 2); got != 1 {
		t.Errorf("QuarterTurnsFromRadians(pi/2)=%d want 1", got)
	}
	if got := NormalizeQuarterTurns(-1); got != 3 {
		t.Errorf("NormalizeQuarterTurns(-1)=%d want 3", got)
	}
	if got := NormalizeQuarterTurns(9); got != 1 {
		t.Errorf("NormalizeQuarterTurns(9)=%d want 1", got)
	}
}

func TestEffectiveFootprint(t *testing.T) {
	base := Footprint{Width: 1, Depth: 2, Height: 3}

	for q, want := range []Footprint{
		{1, 2, 3},
		{2, 1, 3},
		{1, 2, 3},
		{2, 1, 3},
	} {
		if got := EffectiveFootprint(base, q); got != want {
			t.Errorf("quarterTurns=%d: got %v want %v", q, got, want)
		}
	}
	if got := EffectiveFootprint(base, -1); got != (Footprint{2, 1, 3}) {
		t.Errorf("negative turns should normalise, got %v", got)
	}
}

func TestSnapCenteredFootprint(t *testing.T) {
	cases := []struct {
		raw  float64
		size int
		want float64
	}{
		{0, 1, 0},
		{0.4, 1, 0},
		{0.6, 1, 1},
		{-2.6, 1, -3},
		{0, 2, 0.5},
		{0.9, 2, 0.5},
		{1.1, 2, 1.5},
		{-0.1, 2, -0.5},
		{3.2, 3, 3},
		{3.2, 4, 3.5},
	}
	for _, c := range cases {
		if got := SnapCenteredFootprint(c.raw, c.size); got != c.want {
			t.Errorf("SnapCenteredFootprint(%v, %d)=%v want %v", c.raw, c.size, got, c.want)
		}
	}
}

func TestSnappedCellsAlignToWholeStuds(t *testing.T) {
	for size := 1; size <= 8; size++ {
		for raw := -5.0; raw <= 5.0; raw += 0.37 {
			c := SnapCenteredFootprint(raw, size)
			origin := StudOrigin(c, size)
			// centre of the covered cell range must equal the snapped centre
			mid := float64(origin) + float64(size-1)/2
			if math.Abs(mid-c) > 1e-9 {
				t.Fatalf("size=%d raw=%v: centre %v origin %d mid %v", size, raw, c, origin, mid)
			}
		}
	}
}

func TestWithinBaseplateBounds(t *testing.T) {
	g := DefaultGeometry()
	half := g.HalfSize()

	inside := WithinBaseplateBounds(mgl64.Vec2{0, 0}, g.FootprintWorldSize(Footprint{1, 1, 1}), half)
	if !inside {
		t.Error("1x1 at origin should be inside")
	}

	// flush with the +X edge
	edge := g.StudToWorld(15.5)
	if !WithinBaseplateBounds(mgl64.Vec2{edge - g.UnitSize/2, 0}, g.FootprintWorldSize(Footprint{2, 2, 1}), half) {
		t.Error("2x2 flush with the edge should be inside")
	}
	if WithinBaseplateBounds(mgl64.Vec2{edge, 0}, g.FootprintWorldSize(Footprint{2, 2, 1}), half) {
		t.Error("2x2 overhanging the edge should be outside")
	}

	huge := g.FootprintWorldSize(Footprint{33, 1, 1})
	if WithinBaseplateBounds(mgl64.Vec2{0, 0}, huge, half) {
		t.Error("footprint wider than the baseplate must be outside")
	}
}

func TestLayerToWorldY(t *testing.T) {
	g := DefaultGeometry()
	if got := g.LayerToWorldY(0, 1); math.Abs(got-g.UnitHeight/2) > 1e-12 {
		t.Errorf("layer 0 y=%v", got)
	}
	if got := g.LayerToWorldY(2, 1); math.Abs(got-2.5*g.UnitHeight) > 1e-12 {
		t.Errorf("layer 2 y=%v", got)
	}
	if got := g.LayerToWorldY(1, 3); math.Abs(got-2.5*g.UnitHeight) > 1e-12 {
		t.Errorf("tall brick at layer 1 y=%v", got)
	}

	g.SurfaceY = 0.16
	if got := g.LayerToWorldY(0, 1); math.Abs(got-(0.16+g.UnitHeight/2)) > 1e-12 {
		t.Errorf("surface offset ignored: %v", got)
	}
}

func TestGeometryValidate(t *testing.T) {
	if err := DefaultGeometry().Validate(); err != nil {
		t.Fatalf("default geometry invalid: %v", err)
	}
	bad := []Geometry{
		{UnitSize: 0, UnitHeight: 1, BaseplateSize: 1},
		{UnitSize: 1, UnitHeight: -1, BaseplateSize: 1},
		{UnitSize: 1, UnitHeight: 1, BaseplateSize: 0},
		{UnitSize: math.NaN(), UnitHeight: 1, BaseplateSize: 1},
		{UnitSize: 1, UnitHeight: 1, BaseplateSize: 4, SurfaceY: math.Inf(1)},
	}
	for i, g := range bad {
		if err := g.Validate(); err == nil {
			t.Errorf("case %d: expected error for %+v", i, g)
		}
	}
}

func TestCatalog(t *testing.T) {
	fp, err := Brick2x4.Footprint()
	if err != nil {
		t.Fatalf("2x4: %v", err)
	}
	if fp != (Footprint{2, 4, 1}) {
		t.Errorf("2x4 footprint %v", fp)
	}

	if _, err := ParseBrickType("9x9"); !errors.Is(err, ErrUnknownBrickType) {
		t.Errorf("expected ErrUnknownBrickType, got %v", err)
	}
	if _, err := BrickType("plate-1x1").Footprint(); !errors.Is(err, ErrUnknownBrickType) {
		t.Errorf("plates are not in the catalog, got %v", err)
	}

	types := BrickTypes()
	if len(types) != len(catalog) {
		t.Fatalf("BrickTypes returned %d of %d", len(types), len(catalog))
	}
	if types[0] != Brick1x1 {
		t.Errorf("smallest type should come first, got %s", types[0])
	}
	for _, bt := range types {
		fp, _ := bt.Footprint()
		if err := fp.Validate(); err != nil {
			t.Errorf("%s: %v", bt, err)
		}
		if bt.DefaultColor() == fallbackColor {
			t.Errorf("%s has no palette colour", bt)
		}
	}
	if BrickType("nope").DefaultColor() != fallbackColor {
		t.Error("unknown type should fall back to grey")
	}
}

func TestWithinBaseplateBounds_NonFinite(t *testing.T) {
	g := DefaultGeometry()
	size := g.FootprintWorldSize(Footprint{1, 1, 1})
	for _, c := range []mgl64.Vec2{
		{math.NaN(), 0},
		{0, math.NaN()},
		{math.Inf(1), 0},
		{0, math.Inf(-1)},
	} {
		if WithinBaseplateBounds(c, size, g.HalfSize()) {
			t.Errorf("center %v reported inside the baseplate", c)
		}
	}
	if Finite(math.NaN()) || Finite(math.Inf(1)) || !Finite(-3.5) {
		t.Error("Finite misclassifies")
	}
}
