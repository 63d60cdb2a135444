package picking

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const DefaultFovYDeg = 60.0

type Ray struct {
	Origin    mgl64.Vec3
	Direction mgl64.Vec3
}

// Valid reports whether the ray has a finite origin and a finite, non-zero
// direction. A camera whose position equals its target yields an invalid ray.
func (r Ray) Valid() bool {
	for i := 0; i < 3; i++ {
		if !finite(r.Origin[i]) || !finite(r.Direction[i]) {
			return false
		}
	}
	return r.Direction.Len() > 0
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// At returns the point t units along the ray.
func (r Ray) At(t float64) mgl64.Vec3 {
	return r.Origin.Add(r.Direction.Mul(t))
}

// Camera is a Y-up look-at camera.
type Camera struct {
	Position mgl64.Vec3
	Target   mgl64.Vec3
	Up       mgl64.Vec3
	FovYDeg  float64
}

func (c Camera) Forward() mgl64.Vec3 {
	return c.Target.Sub(c.Position).Normalize()
}

func (c Camera) Right() mgl64.Vec3 {
	up := c.Up
	if up.Len() == 0 {
		up = mgl64.Vec3{0, 1, 0}
	}
	return c.Forward().Cross(up).Normalize()
}

// PickRay turns a pixel position into a world ray through the camera.
func (c Camera) PickRay(mouseX, mouseY float64, width, height int) Ray {
	if width <= 0 || height <= 0 {
		return Ray{Origin: c.Position, Direction: c.Forward()}
	}
	nx := (2.0*mouseX)/float64(width) - 1.0
	ny := 1.0 - (2.0*mouseY)/float64(height) // NDC Y points up

	forward := c.Forward()
	right := c.Right()
	up := right.Cross(forward)

	fov := c.FovYDeg
	if fov <= 0 {
		fov = DefaultFovYDeg
	}
	aspect := float64(width) / float64(height)
	tanHalfFov := math.Tan(mgl64.DegToRad(fov) / 2.0)

	dir := forward.Add(right.Mul(nx * aspect * tanHalfFov)).Add(up.Mul(ny * tanHalfFov))
	return Ray{Origin: c.Position, Direction: dir.Normalize()}
}

// IntersectPlaneY intersects the ray with the horizontal plane at height y.
// It misses when the ray is parallel to the plane or the plane is behind it.
func IntersectPlaneY(ray Ray, y float64) (mgl64.Vec3, bool) {
	if !ray.Valid() || !finite(y) {
		return mgl64.Vec3{}, false
	}
	dy := ray.Direction.Y()
	if math.Abs(dy) < 1e-12 {
		return mgl64.Vec3{}, false
	}
	t := (y - ray.Origin.Y()) / dy
	if !(t >= 0) || math.IsInf(t, 0) {
		return mgl64.Vec3{}, false
	}
	p := ray.At(t)
	p[1] = y
	return p, true
}

// IntersectAABB returns the entry and exit distances of the ray through the
// box. hit is false when the box is missed or lies behind the origin.
func IntersectAABB(ray Ray, minB, maxB mgl64.Vec3) (tNear, tFar float64, hit bool) {
	if !ray.Valid() {
		return 0, 0, false
	}
	tNear, tFar = 0, math.Inf(1)
	for i := 0; i < 3; i++ {
		o, d := ray.Origin[i], ray.Direction[i]
		if math.Abs(d) < 1e-12 {
			if o < minB[i] || o > maxB[i] {
				return 0, 0, false
			}
			continue
		}
		t1 := (minB[i] - o) / d
		t2 := (maxB[i] - o) / d
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tNear = math.Max(tNear, t1)
		tFar = math.Min(tFar, t2)
		if tNear > tFar {
			return 0, 0, false
		}
	}
	return tNear, tFar, true
}

// EntryNormal returns the outward normal of the box face through which ray
// enters it.
func EntryNormal(ray Ray, minB, maxB mgl64.Vec3) mgl64.Vec3 {
	axis, best := -1, math.Inf(-1)
	for i := 0; i < 3; i++ {
		d := ray.Direction[i]
		if math.Abs(d) < 1e-12 {
			continue
		}
		enter := (minB[i] - ray.Origin[i]) / d
		if d < 0 {
			enter = (maxB[i] - ray.Origin[i]) / d
		}
		if enter > best {
			axis, best = i, enter
		}
	}
	var n mgl64.Vec3
	if axis < 0 {
		return n
	}
	n[axis] = -math.Copysign(1, ray.Direction[axis])
	return n
}
