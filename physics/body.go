package physics

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

type CollisionFlags int

const (
	FlagStatic CollisionFlags = 1 << iota
	FlagKinematic
	FlagCharacter
)

type ActivationState int

const (
	Active ActivationState = iota
	Sleeping
	DisableDeactivation
)

// MotionState holds the live transform of a body.
type MotionState struct {
	Position    mgl32.Vec3
	Orientation mgl32.Quat
}

func (ms *MotionState) Transform() mgl32.Mat4 {
	return mgl32.Translate3D(ms.Position[0], ms.Position[1], ms.Position[2]).Mul4(ms.Orientation.Mat4())
}

// BodyInfo is the construction record of a body.
type BodyInfo struct {
	Name           string
	Shape          Shape
	Mass           float32
	Position       mgl32.Vec3
	Rotation       mgl32.Quat
	Friction       float32
	Restitution    float32
	LinearDamping  float32
	AngularDamping float32
	AngularFactor  mgl32.Vec3
	Flags          CollisionFlags
}

func DefaultBodyInfo(name string, shape Shape, mass float32) BodyInfo {
	return BodyInfo{
		Name:          name,
		Shape:         shape,
		Mass:          mass,
		Rotation:      mgl32.QuatIdent(),
		Friction:      0.5,
		AngularFactor: mgl32.Vec3{1, 1, 1},
	}
}

type Body struct {
	ID   uuid.UUID
	Name string

	info   BodyInfo
	shape  Shape
	motion *MotionState

	mass            float32
	invMass         float32
	localInertia    mgl32.Vec3
	invInertiaLocal mgl32.Vec3

	linVel        mgl32.Vec3
	angVel        mgl32.Vec3
	force         mgl32.Vec3
	torque        mgl32.Vec3
	angularFactor mgl32.Vec3

	flags      CollisionFlags
	activation ActivationState
	idleTime   float32

	world *World
}

func NewBody(info BodyInfo) *Body {
	rot := info.Rotation
	if rot.Len() == 0 {
		rot = mgl32.QuatIdent()
	}
	b := &Body{
		ID:            uuid.New(),
		Name:          info.Name,
		info:          info,
		shape:         info.Shape,
		motion:        &MotionState{Position: info.Position, Orientation: rot.Normalize()},
		angularFactor: info.AngularFactor,
		flags:         info.Flags,
	}
	b.SetMassProps(info.Mass, info.Shape.CalculateLocalInertia(info.Mass))
	return b
}

// SetMassProps sets mass and local inertia. Zero mass makes the body static.
func (b *Body) SetMassProps(mass float32, inertia mgl32.Vec3) {
	b.mass = mass
	b.localInertia = inertia
	if mass == 0 {
		b.invMass = 0
		b.flags |= FlagStatic
	} else {
		b.invMass = 1 / mass
		b.flags &^= FlagStatic
	}
	for i := 0; i < 3; i++ {
		if inertia[i] != 0 && mass != 0 {
			b.invInertiaLocal[i] = 1 / inertia[i]
		} else {
			b.invInertiaLocal[i] = 0
		}
	}
}

func (b *Body) Info() BodyInfo              { return b.info }
func (b *Body) Shape() Shape                { return b.shape }
func (b *Body) Mass() float32               { return b.mass }
func (b *Body) InvMass() float32            { return b.invMass }
func (b *Body) LocalInertia() mgl32.Vec3    { return b.localInertia }
func (b *Body) Flags() CollisionFlags       { return b.flags }
func (b *Body) SetFlags(f CollisionFlags)   { b.flags = f }
func (b *Body) MotionState() *MotionState   { return b.motion }
func (b *Body) InWorld() bool               { return b.world != nil }
func (b *Body) LinearVelocity() mgl32.Vec3  { return b.linVel }
func (b *Body) AngularVelocity() mgl32.Vec3 { return b.angVel }

func (b *Body) IsStatic() bool {
	return b.invMass == 0 || b.flags&FlagStatic != 0
}

func (b *Body) Origin() mgl32.Vec3 {
	if b.motion == nil {
		return mgl32.Vec3{}
	}
	return b.motion.Position
}

func (b *Body) Orientation() mgl32.Quat {
	if b.motion == nil {
		return mgl32.QuatIdent()
	}
	return b.motion.Orientation
}

func (b *Body) Transform() mgl32.Mat4 {
	if b.motion == nil {
		return mgl32.Ident4()
	}
	return b.motion.Transform()
}

// SetTransform places the body. Scale in m is ignored.
func (b *Body) SetTransform(m mgl32.Mat4) {
	if b.motion == nil {
		b.motion = &MotionState{}
	}
	var r mgl32.Mat3
	for i := 0; i < 3; i++ {
		r.SetCol(i, m.Col(i).Vec3().Normalize())
	}
	b.motion.Position = m.Col(3).Vec3()
	b.motion.Orientation = mgl32.Mat4ToQuat(r.Mat4()).Normalize()
	b.Activate()
}

func (b *Body) SetLinearVelocity(v mgl32.Vec3) {
	b.linVel = v
	b.Activate()
}

func (b *Body) SetAngularVelocity(v mgl32.Vec3) {
	b.angVel = v
	b.Activate()
}

func (b *Body) SetAngularFactor(f mgl32.Vec3) { b.angularFactor = f }

// ApplyForce accumulates a force applied at relPos from the center of mass
// until the next step.
func (b *Body) ApplyForce(force, relPos mgl32.Vec3) {
	if b.IsStatic() {
		return
	}
	b.force = b.force.Add(force)
	b.torque = b.torque.Add(relPos.Cross(force))
	b.Activate()
}

func (b *Body) ApplyCentralForce(force mgl32.Vec3) {
	b.ApplyForce(force, mgl32.Vec3{})
}

func (b *Body) ApplyImpulse(impulse, relPos mgl32.Vec3) {
	if b.IsStatic() {
		return
	}
	b.linVel = b.linVel.Add(impulse.Mul(b.invMass))
	b.angVel = b.angVel.Add(mulComponents(b.invInertiaWorld().Mul3x1(relPos.Cross(impulse)), b.angularFactor))
}

func (b *Body) Activate() {
	if b.activation == Sleeping {
		b.activation = Active
	}
	b.idleTime = 0
}

func (b *Body) IsActive() bool { return b.activation != Sleeping }

func (b *Body) ActivationState() ActivationState { return b.activation }

func (b *Body) SetActivationState(s ActivationState) {
	b.activation = s
	b.idleTime = 0
}

func (b *Body) invInertiaWorld() mgl32.Mat3 {
	r := b.Orientation().Mat4().Mat3()
	return r.Mul3(mgl32.Diag3(b.invInertiaLocal)).Mul3(r.Transpose())
}

// velocityAt returns the velocity of the body point at relPos from the origin.
func (b *Body) velocityAt(relPos mgl32.Vec3) mgl32.Vec3 {
	return b.linVel.Add(b.angVel.Cross(relPos))
}

func (b *Body) aabb() (mgl32.Vec3, mgl32.Vec3) {
	ext := b.shape.LocalExtents()
	r := b.Orientation().Mat4().Mat3()
	var world mgl32.Vec3
	for i := 0; i < 3; i++ {
		row := r.Row(i)
		world[i] = abs32(row[0])*ext[0] + abs32(row[1])*ext[1] + abs32(row[2])*ext[2]
	}
	o := b.Origin()
	return o.Sub(world), o.Add(world)
}

func mulComponents(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}

func abs32(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}
