package lattice

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrUnknownBrickType = errors.New("lattice: unknown brick type")
	ErrInvalidFootprint = errors.New("lattice: invalid footprint")
)

// Footprint is measured in studs (width along X, depth along Z) and layers.
type Footprint struct {
	Width  int
	Depth  int
	Height int
}

func (f Footprint) Validate() error {
	if f.Width < 1 || f.Depth < 1 || f.Height < 1 {
		return fmt.Errorf("%w: %dx%dx%d", ErrInvalidFootprint, f.Width, f.Depth, f.Height)
	}
	return nil
}

// Cells is the number of lattice cells the footprint claims.
func (f Footprint) Cells() int {
	return f.Width * f.Depth * f.Height
}

func (f Footprint) String() string {
	return fmt.Sprintf("%dx%dx%d", f.Width, f.Depth, f.Height)
}

type BrickType string

const (
	Brick1x1 BrickType = "1x1"
	Brick1x2 BrickType = "1x2"
	Brick1x3 BrickType = "1x3"
	Brick1x4 BrickType = "1x4"
	Brick1x6 BrickType = "1x6"
	Brick1x8 BrickType = "1x8"
	Brick2x2 BrickType = "2x2"
	Brick2x3 BrickType = "2x3"
	Brick2x4 BrickType = "2x4"
	Brick2x6 BrickType = "2x6"
	Brick2x8 BrickType = "2x8"
	Brick3x3 BrickType = "3x3"
	Brick3x6 BrickType = "3x6"
	Brick4x4 BrickType = "4x4"
	Brick4x8 BrickType = "4x8"

	BrickCorner BrickType = "corner"
	BrickRound  BrickType = "round"
	BrickWedge  BrickType = "wedge"
	BrickSlope  BrickType = "slope"
	BrickArch   BrickType = "arch"

	BrickTall1x1 BrickType = "tall-1x1"
	BrickTall1x2 BrickType = "tall-1x2"
	BrickTall2x2 BrickType = "tall-2x2"
)

const fallbackColor = "#6d6e70"

type catalogEntry struct {
	footprint Footprint
	color     string
}

var catalog = map[BrickType]catalogEntry{
	Brick1x1: {Footprint{1, 1, 1}, "#ff0000"},
	Brick1x2: {Footprint{1, 2, 1}, "#0055bf"},
	Brick1x3: {Footprint{1, 3, 1}, "#20b2aa"},
	Brick1x4: {Footprint{1, 4, 1}, "#00af4d"},
	Brick1x6: {Footprint{1, 6, 1}, "#dc143c"},
	Brick1x8: {Footprint{1, 8, 1}, "#8a2be2"},
	Brick2x2: {Footprint{2, 2, 1}, "#ffd700"},
	Brick2x3: {Footprint{2, 3, 1}, "#ff1493"},
	Brick2x4: {Footprint{2, 4, 1}, "#ff8c00"},
	Brick2x6: {Footprint{2, 6, 1}, "#81007b"},
	Brick2x8: {Footprint{2, 8, 1}, "#ff69b4"},
	Brick3x3: {Footprint{3, 3, 1}, "#32cd32"},
	Brick3x6: {Footprint{3, 6, 1}, "#4169e1"},
	Brick4x4: {Footprint{4, 4, 1}, "#ff4500"},
	Brick4x8: {Footprint{4, 8, 1}, "#ff6347"},

	BrickCorner: {Footprint{2, 2, 1}, "#8b4513"},
	BrickRound:  {Footprint{2, 2, 1}, "#b22222"},
	BrickWedge:  {Footprint{2, 3, 1}, "#556b2f"},
	BrickSlope:  {Footprint{2, 2, 2}, "#9932cc"},
	BrickArch:   {Footprint{3, 1, 3}, "#008b8b"},

	BrickTall1x1: {Footprint{1, 1, 3}, "#2f4f4f"},
	BrickTall1x2: {Footprint{1, 2, 3}, "#8fbc8f"},
	BrickTall2x2: {Footprint{2, 2, 3}, "#cd853f"},
}

// ParseBrickType validates a raw catalog key.
func ParseBrickType(s string) (BrickType, error) {
	t := BrickType(s)
	if _, ok := catalog[t]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownBrickType, s)
	}
	return t, nil
}

func (t BrickType) Valid() bool {
	_, ok := catalog[t]
	return ok
}

// Footprint returns the unrotated footprint for the type.
func (t BrickType) Footprint() (Footprint, error) {
	e, ok := catalog[t]
	if !ok {
		return Footprint{}, fmt.Errorf("%w: %q", ErrUnknownBrickType, string(t))
	}
	return e.footprint, nil
}

func (t BrickType) DefaultColor() string {
	if e, ok := catalog[t]; ok {
		return e.color
	}
	return fallbackColor
}

func (t BrickType) String() string { return string(t) }

// BrickTypes lists the catalog sorted by footprint area, then name.
func BrickTypes() []BrickType {
	out := make([]BrickType, 0, len(catalog))
	for t := range catalog {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := catalog[out[i]].footprint, catalog[out[j]].footprint
		if a.Cells() != b.Cells() {
			return a.Cells() < b.Cells()
		}
		return out[i] < out[j]
	})
	return out
}
