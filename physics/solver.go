package physics

import (
	"github.com/go-gl/mathgl/mgl32"
)

// solver resolves contacts with sequential impulses and then pushes
// penetrating bodies apart.
type solver struct {
	config     *collisionConfiguration
	iterations int
}

func newSolver(config *collisionConfiguration, iterations int) *solver {
	if iterations <= 0 {
		iterations = 10
	}
	return &solver{config: config, iterations: iterations}
}

type contactConstraint struct {
	a, b           *Body
	rA, rB         mgl32.Vec3
	normal         mgl32.Vec3
	depth          float32
	share          float32
	normalMass     float32
	target         float32
	friction       float32
	normalImpulse  float32
	tangentImpulse float32
}

func angularTerm(b *Body, r, n mgl32.Vec3) float32 {
	if b.IsStatic() {
		return 0
	}
	ang := mulComponents(b.invInertiaWorld().Mul3x1(r.Cross(n)), b.angularFactor)
	return n.Dot(ang.Cross(r))
}

func effectiveMass(a, b *Body, rA, rB, n mgl32.Vec3) float32 {
	k := a.invMass + b.invMass + angularTerm(a, rA, n) + angularTerm(b, rB, n)
	if k <= 0 {
		return 0
	}
	return 1 / k
}

func applyImpulse(b *Body, impulse, r mgl32.Vec3) {
	if b.IsStatic() {
		return
	}
	b.linVel = b.linVel.Add(impulse.Mul(b.invMass))
	b.angVel = b.angVel.Add(mulComponents(b.invInertiaWorld().Mul3x1(r.Cross(impulse)), b.angularFactor))
}

func (s *solver) solve(manifolds []Manifold) {
	var constraints []contactConstraint
	for _, m := range manifolds {
		friction := (m.A.info.Friction + m.B.info.Friction) * 0.5
		restitution := (m.A.info.Restitution + m.B.info.Restitution) * 0.5
		for _, p := range m.Points {
			c := contactConstraint{
				a:        m.A,
				b:        m.B,
				rA:       p.Point.Sub(m.A.Origin()),
				rB:       p.Point.Sub(m.B.Origin()),
				normal:   p.Normal,
				depth:    p.Depth,
				share:    1 / float32(len(m.Points)),
				friction: friction,
			}
			c.normalMass = effectiveMass(c.a, c.b, c.rA, c.rB, c.normal)
			vn := c.a.velocityAt(c.rA).Sub(c.b.velocityAt(c.rB)).Dot(c.normal)
			if vn < -s.config.restitutionCutoff {
				c.target = -restitution * vn
			}
			constraints = append(constraints, c)
		}
	}

	for it := 0; it < s.iterations; it++ {
		for i := range constraints {
			c := &constraints[i]
			if c.normalMass == 0 {
				continue
			}
			rel := c.a.velocityAt(c.rA).Sub(c.b.velocityAt(c.rB))
			vn := rel.Dot(c.normal)
			lambda := (c.target - vn) * c.normalMass
			old := c.normalImpulse
			c.normalImpulse = max32(old+lambda, 0)
			lambda = c.normalImpulse - old
			impulse := c.normal.Mul(lambda)
			applyImpulse(c.a, impulse, c.rA)
			applyImpulse(c.b, impulse.Mul(-1), c.rB)

			rel = c.a.velocityAt(c.rA).Sub(c.b.velocityAt(c.rB))
			tangent := rel.Sub(c.normal.Mul(rel.Dot(c.normal)))
			if tangent.Len() < 1e-6 {
				continue
			}
			tangent = tangent.Normalize()
			tangentMass := effectiveMass(c.a, c.b, c.rA, c.rB, tangent)
			lambdaT := -rel.Dot(tangent) * tangentMass
			limit := c.friction * c.normalImpulse
			oldT := c.tangentImpulse
			c.tangentImpulse = mgl32.Clamp(oldT+lambdaT, -limit, limit)
			lambdaT = c.tangentImpulse - oldT
			fImpulse := tangent.Mul(lambdaT)
			applyImpulse(c.a, fImpulse, c.rA)
			applyImpulse(c.b, fImpulse.Mul(-1), c.rB)
		}
	}

	for _, c := range constraints {
		total := c.a.invMass + c.b.invMass
		if total == 0 {
			continue
		}
		amount := max32(c.depth-s.config.slop, 0) * s.config.correctionPercent * c.share / total
		if amount == 0 {
			continue
		}
		correction := c.normal.Mul(amount)
		if !c.a.IsStatic() {
			c.a.motion.Position = c.a.motion.Position.Add(correction.Mul(c.a.invMass))
		}
		if !c.b.IsStatic() {
			c.b.motion.Position = c.b.motion.Position.Sub(correction.Mul(c.b.invMass))
		}
	}
}

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
