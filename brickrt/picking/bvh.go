package picking

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
)

// Box is an axis-aligned box tagged with the caller's index.
type Box struct {
	Min   mgl64.Vec3
	Max   mgl64.Vec3
	Index int
}

func (b Box) centroid() mgl64.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

type node struct {
	Min   mgl64.Vec3
	Max   mgl64.Vec3
	Left  int32
	Right int32
	Leaf  int32 // position in BVH.boxes, -1 for inner nodes
}

// BVH is a median-split bounding volume hierarchy for ray picking.
type BVH struct {
	nodes []node
	boxes []Box
}

func BuildBVH(boxes []Box) *BVH {
	t := &BVH{boxes: make([]Box, len(boxes))}
	copy(t.boxes, boxes)
	if len(t.boxes) > 0 {
		t.build(0, len(t.boxes))
	}
	return t
}

func (t *BVH) Len() int { return len(t.boxes) }

func (t *BVH) build(lo, hi int) int32 {
	idx := int32(len(t.nodes))
	t.nodes = append(t.nodes, node{Left: -1, Right: -1, Leaf: -1})

	inf := math.Inf(1)
	minB := mgl64.Vec3{inf, inf, inf}
	maxB := mgl64.Vec3{-inf, -inf, -inf}
	for _, b := range t.boxes[lo:hi] {
		for i := 0; i < 3; i++ {
			minB[i] = math.Min(minB[i], b.Min[i])
			maxB[i] = math.Max(maxB[i], b.Max[i])
		}
	}
	t.nodes[idx].Min = minB
	t.nodes[idx].Max = maxB

	if hi-lo == 1 {
		t.nodes[idx].Leaf = int32(lo)
		return idx
	}

	extent := maxB.Sub(minB)
	axis := 0
	if extent.Y() > extent.X() {
		axis = 1
	}
	if extent.Z() > extent[axis] {
		axis = 2
	}
	items := t.boxes[lo:hi]
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].centroid()[axis] < items[j].centroid()[axis]
	})

	mid := lo + (hi-lo)/2
	left := t.build(lo, mid)
	right := t.build(mid, hi)
	t.nodes[idx].Left = left
	t.nodes[idx].Right = right
	return idx
}

// Hit is the nearest box entered by a ray.
type Hit struct {
	Box    Box
	Dist   float64
	Point  mgl64.Vec3
	Normal mgl64.Vec3 // outward normal of the entered face
}

// Raycast returns the nearest box entered by ray. Ties go to the lower Index.
func (t *BVH) Raycast(ray Ray) (Hit, bool) {
	if len(t.nodes) == 0 || !ray.Valid() {
		return Hit{}, false
	}
	var (
		box Box
		ok  bool
	)
	best := math.Inf(1)
	stack := []int32{0}
	for len(stack) > 0 {
		n := t.nodes[stack[len(stack)-1]]
		stack = stack[:len(stack)-1]

		near, _, hit := IntersectAABB(ray, n.Min, n.Max)
		if !hit || near > best {
			continue
		}
		if n.Leaf >= 0 {
			b := t.boxes[n.Leaf]
			if near < best || (near == best && b.Index < box.Index) {
				best, box, ok = near, b, true
			}
			continue
		}
		stack = append(stack, n.Left, n.Right)
	}
	if !ok {
		return Hit{}, false
	}
	return Hit{
		Box:    box,
		Dist:   best,
		Point:  ray.At(best),
		Normal: EntryNormal(ray, box.Min, box.Max),
	}, true
}
