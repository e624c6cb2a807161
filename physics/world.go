package physics

import (
	"log"
	"sort"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

type Config struct {
	Gravity        mgl32.Vec3
	SleepThreshold float32
	SleepTime      float32
	Iterations     int
}

func DefaultConfig() Config {
	return Config{
		Gravity:        mgl32.Vec3{0, 0, -9.82},
		SleepThreshold: 0.05,
		SleepTime:      2,
		Iterations:     10,
	}
}

// collisionConfiguration holds the tolerances shared by the narrowphase and
// the solver.
type collisionConfiguration struct {
	slop              float32
	correctionPercent float32
	restitutionCutoff float32
}

func newCollisionConfiguration() *collisionConfiguration {
	return &collisionConfiguration{
		slop:              0.01,
		correctionPercent: 0.4,
		restitutionCutoff: 1.0,
	}
}

// broadphase is a single axis sweep and prune over world aligned bounds.
type broadphase struct {
	order []int
	mins  []mgl32.Vec3
	maxs  []mgl32.Vec3
}

func newBroadphase() *broadphase {
	return &broadphase{}
}

func (bp *broadphase) pairs(bodies []*Body) [][2]*Body {
	n := len(bodies)
	bp.order = bp.order[:0]
	bp.mins = bp.mins[:0]
	bp.maxs = bp.maxs[:0]
	for i, b := range bodies {
		lo, hi := b.aabb()
		bp.mins = append(bp.mins, lo)
		bp.maxs = append(bp.maxs, hi)
		bp.order = append(bp.order, i)
	}
	sort.Slice(bp.order, func(i, j int) bool {
		return bp.mins[bp.order[i]][0] < bp.mins[bp.order[j]][0]
	})

	var result [][2]*Body
	for oi := 0; oi < n; oi++ {
		i := bp.order[oi]
		for oj := oi + 1; oj < n; oj++ {
			j := bp.order[oj]
			if bp.mins[j][0] > bp.maxs[i][0] {
				break
			}
			if bp.mins[j][1] > bp.maxs[i][1] || bp.maxs[j][1] < bp.mins[i][1] ||
				bp.mins[j][2] > bp.maxs[i][2] || bp.maxs[j][2] < bp.mins[i][2] {
				continue
			}
			a, b := bodies[i], bodies[j]
			if !needsCollision(a, b) {
				continue
			}
			result = append(result, [2]*Body{a, b})
		}
	}
	return result
}

func needsCollision(a, b *Body) bool {
	aIdle := a.IsStatic() || !a.IsActive()
	bIdle := b.IsStatic() || !b.IsActive()
	return !(aIdle && bIdle)
}

type World struct {
	cfg Config

	collisionConfig *collisionConfiguration
	dispatcher      *dispatcher
	broadphase      *broadphase
	solver          *solver

	bodies    []*Body
	manifolds []Manifold
	steps     uint64
}

// NewWorld builds the world and its collaborators in dependency order.
func NewWorld(cfg Config) *World {
	w := &World{cfg: cfg}
	w.collisionConfig = newCollisionConfiguration()
	w.dispatcher = newDispatcher(w.collisionConfig)
	w.broadphase = newBroadphase()
	w.solver = newSolver(w.collisionConfig, cfg.Iterations)
	return w
}

func (w *World) Gravity() mgl32.Vec3     { return w.cfg.Gravity }
func (w *World) SetGravity(g mgl32.Vec3) { w.cfg.Gravity = g }
func (w *World) Bodies() []*Body         { return w.bodies }
func (w *World) NumBodies() int          { return len(w.bodies) }
func (w *World) Manifolds() []Manifold   { return w.manifolds }
func (w *World) Steps() uint64           { return w.steps }

func (w *World) AddBody(b *Body) error {
	if w.dispatcher == nil {
		return errors.Errorf("World is destroyed")
	}
	if b.world != nil {
		return errors.Errorf("Body %q already added to a world", b.Name)
	}
	if b.motion == nil {
		return errors.Errorf("Body %q has no motion state", b.Name)
	}
	b.world = w
	w.bodies = append(w.bodies, b)
	return nil
}

func (w *World) RemoveBody(b *Body) bool {
	if b.world != w {
		return false
	}
	for i, wb := range w.bodies {
		if wb == b {
			w.bodies = append(w.bodies[:i], w.bodies[i+1:]...)
			break
		}
	}
	b.world = nil

	manifolds := w.manifolds[:0]
	for _, m := range w.manifolds {
		if !m.Involves(b) {
			manifolds = append(manifolds, m)
		}
	}
	w.manifolds = manifolds
	return true
}

// DestroyBody removes b and drops its motion state, b can not be added again.
func (w *World) DestroyBody(b *Body) bool {
	if !w.RemoveBody(b) {
		return false
	}
	b.motion = nil
	return true
}

// ManifoldsFor returns the contacts of the last step that involve b.
func (w *World) ManifoldsFor(b *Body) []Manifold {
	var result []Manifold
	for _, m := range w.manifolds {
		if m.Involves(b) {
			result = append(result, m)
		}
	}
	return result
}

// Step advances the simulation by exactly dt.
func (w *World) Step(dt float32) {
	if dt <= 0 || w.dispatcher == nil {
		return
	}

	for _, b := range w.bodies {
		if b.IsStatic() || !b.IsActive() {
			continue
		}
		b.linVel = b.linVel.Add(w.cfg.Gravity.Add(b.force.Mul(b.invMass)).Mul(dt))
		b.angVel = b.angVel.Add(mulComponents(b.invInertiaWorld().Mul3x1(b.torque), b.angularFactor).Mul(dt))
		if d := b.info.LinearDamping; d > 0 {
			b.linVel = b.linVel.Mul(math32.Pow(1-d, dt))
		}
		if d := b.info.AngularDamping; d > 0 {
			b.angVel = b.angVel.Mul(math32.Pow(1-d, dt))
		}
	}

	w.manifolds = w.manifolds[:0]
	for _, pair := range w.broadphase.pairs(w.bodies) {
		a, b := pair[0], pair[1]
		points := w.dispatcher.collide(a, b)
		if len(points) == 0 {
			continue
		}
		if !a.IsActive() {
			a.Activate()
		}
		if !b.IsActive() {
			b.Activate()
		}
		w.manifolds = append(w.manifolds, Manifold{A: a, B: b, Points: points})
	}

	w.solver.solve(w.manifolds)

	for _, b := range w.bodies {
		b.force = mgl32.Vec3{}
		b.torque = mgl32.Vec3{}
		if b.IsStatic() || !b.IsActive() {
			continue
		}
		ms := b.motion
		ms.Position = ms.Position.Add(b.linVel.Mul(dt))
		if b.angVel.Len() > 0 {
			spin := mgl32.Quat{W: 0, V: b.angVel.Mul(0.5 * dt)}
			ms.Orientation = ms.Orientation.Add(spin.Mul(ms.Orientation)).Normalize()
		}
		w.updateSleeping(b, dt)
	}
	w.steps++
}

func (w *World) updateSleeping(b *Body, dt float32) {
	if b.activation == DisableDeactivation || w.cfg.SleepTime <= 0 {
		return
	}
	thr := w.cfg.SleepThreshold
	if b.linVel.Len() < thr && b.angVel.Len() < thr {
		b.idleTime += dt
		if b.idleTime > w.cfg.SleepTime {
			b.activation = Sleeping
			b.linVel = mgl32.Vec3{}
			b.angVel = mgl32.Vec3{}
		}
	} else {
		b.idleTime = 0
	}
}

type RayHit struct {
	Body     *Body
	Point    mgl32.Vec3
	Normal   mgl32.Vec3
	Fraction float32
}

// RayTest returns the closest body hit by the segment from..to.
func (w *World) RayTest(from, to mgl32.Vec3) (RayHit, bool) {
	dir := to.Sub(from)
	best := RayHit{Fraction: 2}
	for _, b := range w.bodies {
		if b.motion == nil {
			continue
		}
		inv := b.Orientation().Conjugate()
		localFrom := inv.Rotate(from.Sub(b.Origin()))
		localDir := inv.Rotate(dir)
		t, n, ok := b.shape.intersectRay(localFrom, localDir)
		if !ok || t >= best.Fraction {
			continue
		}
		best = RayHit{
			Body:     b,
			Point:    from.Add(dir.Mul(t)),
			Normal:   b.Orientation().Rotate(n),
			Fraction: t,
		}
	}
	if best.Body == nil {
		return RayHit{}, false
	}
	return best, true
}

// Destroy removes every body, highest index first, and drops its motion
// state. The world is unusable afterwards.
func (w *World) Destroy() {
	count := len(w.bodies)
	for i := len(w.bodies) - 1; i >= 0; i-- {
		b := w.bodies[i]
		w.RemoveBody(b)
		b.motion = nil
	}
	w.manifolds = nil

	w.solver = nil
	w.broadphase = nil
	w.dispatcher = nil
	w.collisionConfig = nil
	log.Printf("[physics] World destroyed, %d bodies released after %d steps", count, w.steps)
}
