package physics

import (
	"github.com/go-gl/mathgl/mgl32"
)

type ContactPoint struct {
	// Point is in world space.
	Point mgl32.Vec3
	// Normal points from B towards A.
	Normal mgl32.Vec3
	Depth  float32
}

type Manifold struct {
	A, B   *Body
	Points []ContactPoint
}

// Involves reports whether b is one of the manifold bodies.
func (m *Manifold) Involves(b *Body) bool {
	return m.A == b || m.B == b
}

// NormalFor returns the contact normal pointing towards b.
func (m *Manifold) NormalFor(b *Body, i int) mgl32.Vec3 {
	n := m.Points[i].Normal
	if m.B == b {
		return n.Mul(-1)
	}
	return n
}

// dispatcher runs the narrowphase for a pair of bodies.
type dispatcher struct {
	config *collisionConfiguration
}

func newDispatcher(config *collisionConfiguration) *dispatcher {
	return &dispatcher{config: config}
}

func (d *dispatcher) collide(a, b *Body) []ContactPoint {
	ta, tb := a.shape.Type(), b.shape.Type()
	if ta > tb {
		points := d.collide(b, a)
		for i := range points {
			points[i].Normal = points[i].Normal.Mul(-1)
		}
		return points
	}

	switch ta {
	case ShapeBox:
		switch tb {
		case ShapeBox:
			return boxBox(a, b)
		case ShapeSphere:
			if p, ok := sphereBox(b.Origin(), b.shape.(*Sphere).Radius, a); ok {
				p.Normal = p.Normal.Mul(-1)
				return []ContactPoint{p}
			}
		case ShapeCapsule:
			return flipAll(capsuleBox(b, a))
		}
	case ShapeSphere:
		switch tb {
		case ShapeSphere:
			if p, ok := sphereSphere(a.Origin(), a.shape.(*Sphere).Radius, b.Origin(), b.shape.(*Sphere).Radius); ok {
				return []ContactPoint{p}
			}
		case ShapeCapsule:
			c := b.shape.(*Capsule)
			s0, s1 := capsuleSegment(b)
			onSeg := closestPointSegment(a.Origin(), s0, s1)
			if p, ok := sphereSphere(a.Origin(), a.shape.(*Sphere).Radius, onSeg, c.Radius); ok {
				return []ContactPoint{p}
			}
		}
	case ShapeCapsule:
		ca, cb := a.shape.(*Capsule), b.shape.(*Capsule)
		a0, a1 := capsuleSegment(a)
		b0, b1 := capsuleSegment(b)
		pa, pb := closestPointsSegments(a0, a1, b0, b1)
		if p, ok := sphereSphere(pa, ca.Radius, pb, cb.Radius); ok {
			return []ContactPoint{p}
		}
	}
	return nil
}

func flipAll(points []ContactPoint) []ContactPoint {
	for i := range points {
		points[i].Normal = points[i].Normal.Mul(-1)
	}
	return points
}

func capsuleSegment(b *Body) (mgl32.Vec3, mgl32.Vec3) {
	s0, s1 := b.shape.(*Capsule).segment()
	q, o := b.Orientation(), b.Origin()
	return o.Add(q.Rotate(s0)), o.Add(q.Rotate(s1))
}

// sphereSphere returns a contact with the normal from b to a.
func sphereSphere(ca mgl32.Vec3, ra float32, cb mgl32.Vec3, rb float32) (ContactPoint, bool) {
	d := ca.Sub(cb)
	dist := d.Len()
	if dist > ra+rb {
		return ContactPoint{}, false
	}
	n := mgl32.Vec3{0, 0, 1}
	if dist > 1e-6 {
		n = d.Mul(1 / dist)
	}
	return ContactPoint{
		Point:  cb.Add(n.Mul(rb)),
		Normal: n,
		Depth:  ra + rb - dist,
	}, true
}

// sphereBox returns a contact with the normal from the box to the sphere.
func sphereBox(center mgl32.Vec3, radius float32, box *Body) (ContactPoint, bool) {
	half := box.shape.(*Box).HalfExtents
	q := box.Orientation()
	local := q.Conjugate().Rotate(center.Sub(box.Origin()))

	closest := local
	inside := true
	for i := 0; i < 3; i++ {
		if closest[i] < -half[i] {
			closest[i] = -half[i]
			inside = false
		} else if closest[i] > half[i] {
			closest[i] = half[i]
			inside = false
		}
	}

	if inside {
		axis := 0
		best := half[0] - abs32(local[0])
		for i := 1; i < 3; i++ {
			if d := half[i] - abs32(local[i]); d < best {
				best, axis = d, i
			}
		}
		var n mgl32.Vec3
		n[axis] = 1
		if local[axis] < 0 {
			n[axis] = -1
		}
		surface := local
		surface[axis] = n[axis] * half[axis]
		return ContactPoint{
			Point:  box.Origin().Add(q.Rotate(surface)),
			Normal: q.Rotate(n),
			Depth:  radius + best,
		}, true
	}

	diff := local.Sub(closest)
	dist := diff.Len()
	if dist > radius {
		return ContactPoint{}, false
	}
	return ContactPoint{
		Point:  box.Origin().Add(q.Rotate(closest)),
		Normal: q.Rotate(diff.Mul(1 / dist)),
		Depth:  radius - dist,
	}, true
}

// capsuleBox tests the capsule ends and middle as spheres. Normals point
// from the box to the capsule.
func capsuleBox(capsule, box *Body) []ContactPoint {
	radius := capsule.shape.(*Capsule).Radius
	s0, s1 := capsuleSegment(capsule)
	var points []ContactPoint
	for _, c := range []mgl32.Vec3{s0, s1, s0.Add(s1).Mul(0.5)} {
		if p, ok := sphereBox(c, radius, box); ok {
			points = append(points, p)
		}
	}
	return points
}

func boxAxes(b *Body) [3]mgl32.Vec3 {
	q := b.Orientation()
	return [3]mgl32.Vec3{
		q.Rotate(mgl32.Vec3{1, 0, 0}),
		q.Rotate(mgl32.Vec3{0, 1, 0}),
		q.Rotate(mgl32.Vec3{0, 0, 1}),
	}
}

func boxCorners(b *Body, axes [3]mgl32.Vec3) []mgl32.Vec3 {
	half := b.shape.(*Box).HalfExtents
	o := b.Origin()
	corners := make([]mgl32.Vec3, 0, 8)
	for _, sx := range []float32{-1, 1} {
		for _, sy := range []float32{-1, 1} {
			for _, sz := range []float32{-1, 1} {
				corners = append(corners, o.
					Add(axes[0].Mul(sx*half[0])).
					Add(axes[1].Mul(sy*half[1])).
					Add(axes[2].Mul(sz*half[2])))
			}
		}
	}
	return corners
}

func pointInBox(p mgl32.Vec3, b *Body, axes [3]mgl32.Vec3, tolerance float32) bool {
	half := b.shape.(*Box).HalfExtents
	d := p.Sub(b.Origin())
	for i := 0; i < 3; i++ {
		if abs32(d.Dot(axes[i])) > half[i]+tolerance {
			return false
		}
	}
	return true
}

func projectBox(half mgl32.Vec3, axes [3]mgl32.Vec3, l mgl32.Vec3) float32 {
	return abs32(axes[0].Dot(l))*half[0] + abs32(axes[1].Dot(l))*half[1] + abs32(axes[2].Dot(l))*half[2]
}

// boxBox separates on face and edge axes and collects the corners of each
// box found inside the other.
func boxBox(a, b *Body) []ContactPoint {
	axesA, axesB := boxAxes(a), boxAxes(b)
	halfA, halfB := a.shape.(*Box).HalfExtents, b.shape.(*Box).HalfExtents
	between := a.Origin().Sub(b.Origin())

	candidates := make([]mgl32.Vec3, 0, 15)
	candidates = append(candidates, axesA[:]...)
	candidates = append(candidates, axesB[:]...)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			c := axesA[i].Cross(axesB[j])
			if c.Len() > 1e-4 {
				candidates = append(candidates, c.Normalize())
			}
		}
	}

	minOverlap := float32(1e30)
	var normal mgl32.Vec3
	for _, l := range candidates {
		dist := between.Dot(l)
		overlap := projectBox(halfA, axesA, l) + projectBox(halfB, axesB, l) - abs32(dist)
		if overlap < 0 {
			return nil
		}
		if overlap < minOverlap {
			minOverlap = overlap
			normal = l
			if dist < 0 {
				normal = l.Mul(-1)
			}
		}
	}

	const tolerance = 1e-3
	var points []ContactPoint
	for _, c := range boxCorners(a, axesA) {
		if pointInBox(c, b, axesB, tolerance) {
			points = append(points, ContactPoint{Point: c, Normal: normal, Depth: minOverlap})
		}
	}
	for _, c := range boxCorners(b, axesB) {
		if pointInBox(c, a, axesA, tolerance) {
			points = append(points, ContactPoint{Point: c, Normal: normal, Depth: minOverlap})
		}
	}
	if len(points) == 0 {
		// edge against edge
		mid := a.Origin().Add(b.Origin()).Mul(0.5)
		points = append(points, ContactPoint{Point: mid, Normal: normal, Depth: minOverlap})
	}
	return points
}
