package interaction

import (
	"log"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/shoestring/config"
	"github.com/mogaika/shoestring/physics"
	"github.com/mogaika/shoestring/player"
	"github.com/mogaika/shoestring/registry"
)

type Ray struct {
	From mgl32.Vec3
	To   mgl32.Vec3
}

func unproject(inv mgl32.Mat4, ndc mgl32.Vec4) mgl32.Vec3 {
	p := inv.Mul4x1(ndc)
	return p.Vec3().Mul(1 / p.W())
}

// ScreenCenterRay unprojects the near plane and the depth midpoint of the
// screen center and extends the direction to length.
func ScreenCenterRay(view, projection mgl32.Mat4, length float32) Ray {
	inv := projection.Mul4(view).Inv()
	start := unproject(inv, mgl32.Vec4{0, 0, -1, 1})
	end := unproject(inv, mgl32.Vec4{0, 0, 0, 1})
	dir := end.Sub(start).Normalize()
	return Ray{From: start, To: start.Add(dir.Mul(length))}
}

type Picker interface {
	RayTest(from, to mgl32.Vec3) (physics.RayHit, bool)
}

type Owners interface {
	Lookup(b *physics.Body) (*registry.Object, bool)
}

type Buttons struct {
	Left   bool
	Middle bool
}

// Controller holds at most one body and one grapple anchor.
type Controller struct {
	Held          *physics.Body
	GrappleActive bool
	GrappleAnchor mgl32.Vec3

	// Target is the registry body under the crosshair after the last Resolve
	Target      *physics.Body
	TargetPoint mgl32.Vec3

	Config config.Interaction
}

func NewController(cfg config.Interaction) *Controller {
	return &Controller{Config: cfg}
}

// Resolve runs once per tick after the physics step.
func (c *Controller) Resolve(w Picker, owners Owners, p *player.Controller, ray Ray, buttons Buttons) {
	if c.Held != nil && !c.Held.InWorld() {
		c.Held = nil
	}

	c.pick(w, owners, ray, buttons)

	forward, _ := p.Basis()
	origin := p.Origin()

	if c.Held != nil {
		if buttons.Left {
			target := origin.Add(forward.Mul(c.Config.HoldDistance))
			c.Held.SetLinearVelocity(target.Sub(c.Held.Origin()).Mul(c.Config.PullGain))
		} else {
			c.Held.SetLinearVelocity(forward.Mul(c.Config.ThrowSpeed))
			log.Printf("[interaction] Threw %q", c.Held.Name)
			c.Held = nil
		}
	}

	if !buttons.Middle {
		c.GrappleActive = false
	}
}

// Pull sets the player velocity towards the grapple anchor. It runs after
// the player update so the pull replaces movement velocity.
func (c *Controller) Pull(p *player.Controller) {
	if !c.GrappleActive {
		return
	}
	d := c.GrappleAnchor.Sub(p.Origin()).Mul(2)
	if d.Len() > c.Config.GrappleThreshold {
		p.Body.SetLinearVelocity(d.Mul(0.5))
	}
}

func (c *Controller) pick(w Picker, owners Owners, ray Ray, buttons Buttons) {
	c.Target = nil
	hit, ok := w.RayTest(ray.From, ray.To)
	if !ok {
		return
	}
	if _, known := owners.Lookup(hit.Body); !known {
		return
	}
	c.Target = hit.Body
	c.TargetPoint = hit.Point

	if c.Held != nil {
		return
	}
	if buttons.Left && hit.Body.InvMass() != 0 {
		c.Held = hit.Body
		log.Printf("[interaction] Holding %q", hit.Body.Name)
	}
	if buttons.Middle && !c.GrappleActive {
		c.GrappleActive = true
		c.GrappleAnchor = hit.Point
		log.Printf("[interaction] Grapple anchored at %v", hit.Point)
	}
}

// Release drops the held body without a throw.
func (c *Controller) Release() {
	c.Held = nil
	c.GrappleActive = false
}
