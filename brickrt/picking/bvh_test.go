package picking

import (
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestBVH_TwoBoxesSplit(t *testing.T) {
	tree := BuildBVH([]Box{
		{Min: mgl64.Vec3{-100, -1, -1}, Max: mgl64.Vec3{-98, 1, 1}, Index: 0},
		{Min: mgl64.Vec3{100, -1, -1}, Max: mgl64.Vec3{102, 1, 1}, Index: 1},
	})

	if len(tree.nodes) != 3 {
		t.Fatalf("expected root plus two leaves, got %d nodes", len(tree.nodes))
	}
	root := tree.nodes[0]
	if root.Min.X() > -100 || root.Max.X() < 102 {
		t.Errorf("root bounds %v..%v do not enclose both boxes", root.Min, root.Max)
	}
	if root.Leaf != -1 || root.Left < 0 || root.Right < 0 {
		t.Errorf("root should be an inner node, got %+v", root)
	}

	hit, ok := tree.Raycast(Ray{Origin: mgl64.Vec3{101, 10, 0}, Direction: mgl64.Vec3{0, -1, 0}})
	if !ok || hit.Box.Index != 1 {
		t.Fatalf("expected hit on box 1, got %+v ok=%v", hit, ok)
	}
	if hit.Dist < 9-1e-9 || hit.Dist > 9+1e-9 {
		t.Errorf("expected distance 9, got %f", hit.Dist)
	}
	if !hit.Normal.ApproxEqual(mgl64.Vec3{0, 1, 0}) {
		t.Errorf("expected top face normal, got %v", hit.Normal)
	}
}

func TestBVH_Empty(t *testing.T) {
	tree := BuildBVH(nil)
	if _, ok := tree.Raycast(Ray{Direction: mgl64.Vec3{0, -1, 0}}); ok {
		t.Error("empty tree should never hit")
	}
}

func TestBVH_NearestHit(t *testing.T) {
	// a column of unit boxes, ray from above hits the top one
	var boxes []Box
	for i := 0; i < 5; i++ {
		y := float64(i)
		boxes = append(boxes, Box{Min: mgl64.Vec3{0, y, 0}, Max: mgl64.Vec3{1, y + 1, 1}, Index: i})
	}
	tree := BuildBVH(boxes)
	hit, ok := tree.Raycast(Ray{Origin: mgl64.Vec3{0.5, 20, 0.5}, Direction: mgl64.Vec3{0, -1, 0}})
	if !ok || hit.Box.Index != 4 {
		t.Fatalf("expected top box 4, got %+v ok=%v", hit, ok)
	}

	hit, ok = tree.Raycast(Ray{Origin: mgl64.Vec3{0.5, -5, 0.5}, Direction: mgl64.Vec3{0, 1, 0}})
	if !ok || hit.Box.Index != 0 {
		t.Fatalf("expected bottom box 0 from below, got %+v ok=%v", hit, ok)
	}
	if !hit.Normal.ApproxEqual(mgl64.Vec3{0, -1, 0}) {
		t.Errorf("expected bottom face normal, got %v", hit.Normal)
	}

	// from the side the ray enters box 1 through its -X face
	hit, ok = tree.Raycast(Ray{Origin: mgl64.Vec3{-10, 1.5, 0.5}, Direction: mgl64.Vec3{1, 0, 0}})
	if !ok || hit.Box.Index != 1 {
		t.Fatalf("expected side hit on box 1, got %+v ok=%v", hit, ok)
	}
	if !hit.Normal.ApproxEqual(mgl64.Vec3{-1, 0, 0}) {
		t.Errorf("expected -X normal, got %v", hit.Normal)
	}
}

func TestBVH_MatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	var boxes []Box
	for i := 0; i < 200; i++ {
		c := mgl64.Vec3{rng.Float64()*40 - 20, rng.Float64() * 10, rng.Float64()*40 - 20}
		h := mgl64.Vec3{0.2 + rng.Float64(), 0.2 + rng.Float64(), 0.2 + rng.Float64()}
		boxes = append(boxes, Box{Min: c.Sub(h), Max: c.Add(h), Index: i})
	}
	tree := BuildBVH(boxes)

	for i := 0; i < 100; i++ {
		origin := mgl64.Vec3{rng.Float64()*60 - 30, 30, rng.Float64()*60 - 30}
		target := mgl64.Vec3{rng.Float64()*40 - 20, 0, rng.Float64()*40 - 20}
		ray := Ray{Origin: origin, Direction: target.Sub(origin).Normalize()}

		wantIdx, wantDist := -1, 0.0
		for _, b := range boxes {
			if near, _, hit := IntersectAABB(ray, b.Min, b.Max); hit && (wantIdx < 0 || near < wantDist) {
				wantIdx, wantDist = b.Index, near
			}
		}

		got, ok := tree.Raycast(ray)
		if ok != (wantIdx >= 0) {
			t.Fatalf("ray %d: hit=%v, brute force hit=%v", i, ok, wantIdx >= 0)
		}
		if ok && (got.Dist-wantDist > 1e-9 || wantDist-got.Dist > 1e-9) {
			t.Errorf("ray %d: nearest distance %f, brute force %f (box %d vs %d)", i, got.Dist, wantDist, got.Box.Index, wantIdx)
		}
	}
}

func TestBVH_InvalidRayMisses(t *testing.T) {
	tree := BuildBVH([]Box{{Min: mgl64.Vec3{-1, -1, -1}, Max: mgl64.Vec3{1, 1, 1}}})
	cam := Camera{Position: mgl64.Vec3{0, 5, 0}, Target: mgl64.Vec3{0, 5, 0}}
	if _, ok := tree.Raycast(cam.PickRay(10, 10, 100, 100)); ok {
		t.Error("degenerate camera ray should not hit")
	}
}
