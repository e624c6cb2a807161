package physics

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

type ShapeType int

const (
	ShapeBox ShapeType = iota
	ShapeSphere
	ShapeCapsule
)

func (t ShapeType) String() string {
	switch t {
	case ShapeBox:
		return "box"
	case ShapeSphere:
		return "sphere"
	case ShapeCapsule:
		return "capsule"
	default:
		return "unknown"
	}
}

// Shape is a convex collision shape centered at the body origin.
type Shape interface {
	Type() ShapeType
	CalculateLocalInertia(mass float32) mgl32.Vec3
	// LocalExtents is the half size of the local bounding box.
	LocalExtents() mgl32.Vec3
	// intersectRay works in shape space. dir is not normalized, hits are
	// reported as a fraction of it. Rays starting inside the shape miss.
	intersectRay(from, dir mgl32.Vec3) (fraction float32, normal mgl32.Vec3, ok bool)
}

type Box struct {
	HalfExtents mgl32.Vec3
}

func (b *Box) Type() ShapeType { return ShapeBox }

func (b *Box) CalculateLocalInertia(mass float32) mgl32.Vec3 {
	return boxInertia(b.HalfExtents, mass)
}

func (b *Box) LocalExtents() mgl32.Vec3 { return b.HalfExtents }

func (b *Box) intersectRay(from, dir mgl32.Vec3) (float32, mgl32.Vec3, bool) {
	tNear := -math32.Inf(1)
	tFar := math32.Inf(1)
	nearAxis := -1
	nearSign := float32(1)

	for i := 0; i < 3; i++ {
		if math32.Abs(dir[i]) < 1e-12 {
			if from[i] < -b.HalfExtents[i] || from[i] > b.HalfExtents[i] {
				return 0, mgl32.Vec3{}, false
			}
			continue
		}
		t1 := (-b.HalfExtents[i] - from[i]) / dir[i]
		t2 := (b.HalfExtents[i] - from[i]) / dir[i]
		sign := float32(-1)
		if t1 > t2 {
			t1, t2 = t2, t1
			sign = 1
		}
		if t1 > tNear {
			tNear = t1
			nearAxis = i
			nearSign = sign
		}
		if t2 < tFar {
			tFar = t2
		}
		if tNear > tFar {
			return 0, mgl32.Vec3{}, false
		}
	}

	if nearAxis < 0 || tNear < 0 || tNear > 1 {
		return 0, mgl32.Vec3{}, false
	}
	var n mgl32.Vec3
	n[nearAxis] = nearSign
	return tNear, n, true
}

type Sphere struct {
	Radius float32
}

func (s *Sphere) Type() ShapeType { return ShapeSphere }

func (s *Sphere) CalculateLocalInertia(mass float32) mgl32.Vec3 {
	i := 0.4 * mass * s.Radius * s.Radius
	return mgl32.Vec3{i, i, i}
}

func (s *Sphere) LocalExtents() mgl32.Vec3 { return mgl32.Vec3{s.Radius, s.Radius, s.Radius} }

func (s *Sphere) intersectRay(from, dir mgl32.Vec3) (float32, mgl32.Vec3, bool) {
	return raySphere(from, dir, mgl32.Vec3{}, s.Radius)
}

// Capsule is a cylinder of Height along Axis capped with two hemispheres.
type Capsule struct {
	Radius float32
	Height float32
	Axis   int
}

func (c *Capsule) Type() ShapeType { return ShapeCapsule }

func (c *Capsule) CalculateLocalInertia(mass float32) mgl32.Vec3 {
	return boxInertia(c.LocalExtents(), mass)
}

func (c *Capsule) LocalExtents() mgl32.Vec3 {
	e := mgl32.Vec3{c.Radius, c.Radius, c.Radius}
	e[c.Axis] += c.Height / 2
	return e
}

// segment returns the end points of the inner segment in shape space.
func (c *Capsule) segment() (mgl32.Vec3, mgl32.Vec3) {
	var top mgl32.Vec3
	top[c.Axis] = c.Height / 2
	return top.Mul(-1), top
}

func (c *Capsule) intersectRay(from, dir mgl32.Vec3) (float32, mgl32.Vec3, bool) {
	a, b := c.segment()
	if distPointSegment(from, a, b) <= c.Radius {
		return 0, mgl32.Vec3{}, false
	}

	best := float32(2)
	var bestN mgl32.Vec3

	for _, center := range []mgl32.Vec3{a, b} {
		if t, n, ok := raySphere(from, dir, center, c.Radius); ok && t < best {
			best, bestN = t, n
		}
	}

	// cylinder body, axis aligned
	u, v := (c.Axis+1)%3, (c.Axis+2)%3
	qa := dir[u]*dir[u] + dir[v]*dir[v]
	if qa > 1e-12 {
		qb := 2 * (from[u]*dir[u] + from[v]*dir[v])
		qc := from[u]*from[u] + from[v]*from[v] - c.Radius*c.Radius
		disc := qb*qb - 4*qa*qc
		if disc >= 0 {
			t := (-qb - math32.Sqrt(disc)) / (2 * qa)
			if t >= 0 && t <= 1 && t < best {
				p := from.Add(dir.Mul(t))
				if math32.Abs(p[c.Axis]) <= c.Height/2 {
					var n mgl32.Vec3
					n[u], n[v] = p[u], p[v]
					best, bestN = t, n.Normalize()
				}
			}
		}
	}

	if best > 1 {
		return 0, mgl32.Vec3{}, false
	}
	return best, bestN, true
}

func boxInertia(half mgl32.Vec3, mass float32) mgl32.Vec3 {
	lx, ly, lz := 2*half[0], 2*half[1], 2*half[2]
	return mgl32.Vec3{
		mass / 12 * (ly*ly + lz*lz),
		mass / 12 * (lx*lx + lz*lz),
		mass / 12 * (lx*lx + ly*ly),
	}
}

func raySphere(from, dir, center mgl32.Vec3, radius float32) (float32, mgl32.Vec3, bool) {
	m := from.Sub(center)
	c := m.Dot(m) - radius*radius
	if c <= 0 {
		return 0, mgl32.Vec3{}, false
	}
	a := dir.Dot(dir)
	if a < 1e-12 {
		return 0, mgl32.Vec3{}, false
	}
	b := m.Dot(dir)
	disc := b*b - a*c
	if disc < 0 {
		return 0, mgl32.Vec3{}, false
	}
	t := (-b - math32.Sqrt(disc)) / a
	if t < 0 || t > 1 {
		return 0, mgl32.Vec3{}, false
	}
	return t, m.Add(dir.Mul(t)).Normalize(), true
}

func closestPointSegment(p, a, b mgl32.Vec3) mgl32.Vec3 {
	ab := b.Sub(a)
	l := ab.Dot(ab)
	if l < 1e-12 {
		return a
	}
	t := p.Sub(a).Dot(ab) / l
	t = mgl32.Clamp(t, 0, 1)
	return a.Add(ab.Mul(t))
}

func distPointSegment(p, a, b mgl32.Vec3) float32 {
	return p.Sub(closestPointSegment(p, a, b)).Len()
}

// closestPointsSegments returns the closest points between segments p1q1 and p2q2.
func closestPointsSegments(p1, q1, p2, q2 mgl32.Vec3) (mgl32.Vec3, mgl32.Vec3) {
	d1 := q1.Sub(p1)
	d2 := q2.Sub(p2)
	r := p1.Sub(p2)
	a := d1.Dot(d1)
	e := d2.Dot(d2)
	f := d2.Dot(r)

	var s, t float32
	switch {
	case a < 1e-12 && e < 1e-12:
		return p1, p2
	case a < 1e-12:
		t = mgl32.Clamp(f/e, 0, 1)
	default:
		c := d1.Dot(r)
		if e < 1e-12 {
			s = mgl32.Clamp(-c/a, 0, 1)
		} else {
			b := d1.Dot(d2)
			denom := a*e - b*b
			if denom != 0 {
				s = mgl32.Clamp((b*f-c*e)/denom, 0, 1)
			}
			t = (b*s + f) / e
			if t < 0 {
				t = 0
				s = mgl32.Clamp(-c/a, 0, 1)
			} else if t > 1 {
				t = 1
				s = mgl32.Clamp((b-c)/a, 0, 1)
			}
		}
	}
	return p1.Add(d1.Mul(s)), p2.Add(d2.Mul(t))
}
