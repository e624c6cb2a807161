package player

import (
	"log"
	"time"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/mogaika/shoestring/config"
	"github.com/mogaika/shoestring/physics"
	"github.com/mogaika/shoestring/utils"
)

const TwoPi = 2 * math32.Pi

// Input slots
const (
	Forward = iota
	Back
	Left
	Right
	LeftClick
	MiddleClick
	InputCount
)

var (
	// Down is the cross axis of the movement basis
	Down = mgl32.Vec3{0, 0, -1}
	Up   = mgl32.Vec3{0, 0, 1}
)

// minimal contact normal z to stand on
const groundNormal = 0.7

type World interface {
	AddBody(b *physics.Body) error
	ManifoldsFor(b *physics.Body) []physics.Manifold
}

// Controller owns the player capsule. Inclination is the vertical view angle
// and stays in [InclinationMin, InclinationMax], Heading is the horizontal one
// and wraps within [2π, 4π).
type Controller struct {
	Body        *physics.Body
	Inclination float32
	Heading     float32
	Input       [InputCount]bool
	Config      config.Player

	world World
}

func NewController(w World, cfg config.Player, spawn mgl32.Mat4) (*Controller, error) {
	name := cfg.Name
	if name == "" {
		name = utils.NewNameGenerator(time.Now().UnixNano()).Name("player-")
	}

	shape := &physics.Capsule{Radius: cfg.Radius, Height: cfg.Height, Axis: 2}
	info := physics.DefaultBodyInfo(name, shape, cfg.Mass)
	info.Flags = physics.FlagCharacter
	info.AngularFactor = mgl32.Vec3{}

	body := physics.NewBody(info)
	body.SetTransform(spawn)
	body.SetActivationState(physics.DisableDeactivation)
	if err := w.AddBody(body); err != nil {
		return nil, errors.Wrapf(err, "Failed to add player %q", name)
	}

	log.Printf("[player] %q spawned at %v", name, body.Origin())
	return &Controller{
		Body:        body,
		Inclination: TwoPi,
		Heading:     TwoPi,
		Config:      cfg,
		world:       w,
	}, nil
}

func (c *Controller) SetInput(slot int, down bool) {
	if slot >= 0 && slot < InputCount {
		c.Input[slot] = down
	}
}

// Look applies a mouse delta. An inclination step that would leave the allowed
// band is undone.
func (c *Controller) Look(dx, dy float32) {
	s := c.Config.MouseSensitivity

	prev := c.Inclination
	c.Inclination += dy * s
	if c.Inclination < c.Config.InclinationMin || c.Inclination > c.Config.InclinationMax {
		c.Inclination = prev
	}

	c.Heading += dx * s
	for c.Heading >= 2*TwoPi {
		c.Heading -= TwoPi
	}
	for c.Heading < TwoPi {
		c.Heading += TwoPi
	}
}

// Basis returns the unit view direction and the horizontal left vector.
func (c *Controller) Basis() (forward, left mgl32.Vec3) {
	si, ci := math32.Sincos(c.Inclination)
	sh, ch := math32.Sincos(c.Heading)
	forward = mgl32.Vec3{ci * sh, ci * ch, si}
	left = forward.Cross(Down)
	return
}

func (c *Controller) Origin() mgl32.Vec3 {
	return c.Body.Origin()
}

func (c *Controller) Eye() mgl32.Vec3 {
	return c.Body.Origin().Add(mgl32.Vec3{0, 0, c.Config.EyeHeight})
}

func (c *Controller) View() mgl32.Mat4 {
	eye := c.Eye()
	forward, _ := c.Basis()
	return mgl32.LookAtV(eye, eye.Add(forward), Up)
}

// Update turns the movement input into velocity. Without input the
// horizontal velocity is braked by a force, vertical velocity is left to
// the simulation.
func (c *Controller) Update() {
	forward, left := c.Basis()
	forward[2], left[2] = 0, 0

	var dir mgl32.Vec3
	if c.Input[Left] {
		dir = dir.Add(left)
	}
	if c.Input[Forward] {
		dir = dir.Add(forward)
	}
	if c.Input[Right] {
		dir = dir.Sub(left)
	}
	if c.Input[Back] {
		dir = dir.Sub(forward)
	}

	vel := c.Body.LinearVelocity()
	if dir.Len() == 0 {
		c.Body.ApplyCentralForce(mgl32.Vec3{vel[0] * c.Config.BreakFactor, vel[1] * c.Config.BreakFactor, 0})
		return
	}
	dir = dir.Normalize().Mul(c.Config.MovementSpeed)
	c.Body.SetLinearVelocity(mgl32.Vec3{dir[0], dir[1], vel[2]})
}

// Grounded reports a contact of the last step that supports the player.
func (c *Controller) Grounded() bool {
	for _, m := range c.world.ManifoldsFor(c.Body) {
		for i := range m.Points {
			if m.NormalFor(c.Body, i)[2] > groundNormal {
				return true
			}
		}
	}
	return false
}

// Jump sets the vertical velocity. Unless RequireGround is set it works
// in the air too.
func (c *Controller) Jump() bool {
	if c.Config.RequireGround && !c.Grounded() {
		return false
	}
	vel := c.Body.LinearVelocity()
	vel[2] = c.Config.JumpSpeed
	c.Body.SetLinearVelocity(vel)
	return true
}

func (c *Controller) Apply(cfg config.Player) {
	name := c.Config.Name
	c.Config = cfg
	c.Config.Name = name
}
