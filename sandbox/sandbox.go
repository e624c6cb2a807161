package sandbox

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/mogaika/shoestring/asset"
	"github.com/mogaika/shoestring/config"
	"github.com/mogaika/shoestring/interaction"
	"github.com/mogaika/shoestring/physics"
	"github.com/mogaika/shoestring/player"
	"github.com/mogaika/shoestring/registry"
	"github.com/mogaika/shoestring/render"
	"github.com/mogaika/shoestring/scene"
	"github.com/mogaika/shoestring/texture"
	"github.com/mogaika/shoestring/utils"
)

var ErrQuit = errors.New("quit requested")

// Notifier receives user visible messages, the status hub implements it.
type Notifier interface {
	Info(format string, args ...interface{})
	Error(format string, args ...interface{})
}

type logNotifier struct{}

func (logNotifier) Info(format string, args ...interface{}) {
	log.Printf("[sandbox] "+format, args...)
}

func (logNotifier) Error(format string, args ...interface{}) {
	log.Printf("[sandbox] ERROR: "+format, args...)
}

type Sandbox struct {
	Config      *config.Config
	Textures    *texture.Store
	Assets      *asset.Library
	Scene       *scene.Scene
	Camera      asset.CameraTemplate
	World       *physics.World
	Registry    *registry.Registry
	Player      *player.Controller
	Interaction *interaction.Controller
	Renderer    render.Renderer
	Events      Events
	CreateIndex int

	notifier   Notifier
	session    *config.SessionStore
	projection mgl32.Mat4
	ticks      uint64

	// gravity set by the physics file, config reloads keep it
	fileGravity bool

	snapMu   sync.Mutex
	snapshot *Snapshot
}

func physicsConfig(c config.Physics) physics.Config {
	pc := physics.DefaultConfig()
	pc.Gravity = c.Gravity
	if c.SleepThreshold > 0 {
		pc.SleepThreshold = c.SleepThreshold
	}
	if c.SleepTime > 0 {
		pc.SleepTime = c.SleepTime
	}
	if c.Iterations > 0 {
		pc.Iterations = c.Iterations
	}
	return pc
}

// New builds the whole sandbox. Any error here is fatal for the caller.
func New(cfg *config.Config, r render.Renderer, n Notifier) (*Sandbox, error) {
	if n == nil {
		n = logNotifier{}
	}
	s := &Sandbox{
		Config:   cfg,
		Renderer: r,
		notifier: n,
	}

	sc, err := scene.Import(cfg.Paths.Scene)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to import scene")
	}
	s.Scene = sc

	s.Textures = texture.NewStore(cfg.Sandbox.MaxTextureSize)
	s.Assets = asset.NewLibrary(cfg.Paths.Assets, s.Textures)
	if err := s.Assets.AddScene(sc); err != nil {
		return nil, errors.Wrapf(err, "Failed to fill asset library")
	}

	wf, err := physics.LoadWorldFile(cfg.Paths.Physics)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to load physics")
	}
	pc := physicsConfig(cfg.Physics)
	if wf.Gravity != nil {
		pc.Gravity = *wf.Gravity
		s.fileGravity = true
	}
	s.World = physics.NewWorld(pc)

	bodies, err := wf.CreateBodies()
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to create bodies")
	}

	s.Registry = registry.New(s.Assets, registry.TintMode(cfg.Sandbox.TintMode), cfg.Sandbox.TintSeed)
	for _, res := range s.Registry.Bind(s.World, bodies) {
		if res.Status == registry.Unbound {
			n.Error("unbound body %q: %s", res.Body.Name, res.Reason)
		}
	}
	if sc.Root != nil {
		s.Registry.PlaceInstances(s.World, scene.Flatten(sc.Root))
	}

	if cam, ok := s.Assets.FindCamera(cfg.Sandbox.Camera); ok {
		s.Camera = *cam
	} else {
		s.Camera = asset.DefaultCamera(cfg.Sandbox.Camera)
	}
	s.projection = s.Camera.Projection()

	s.Player, err = player.NewController(s.World, cfg.Player, s.spawnTransform())
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to create player")
	}
	s.Interaction = interaction.NewController(cfg.Interaction)

	if cfg.Sandbox.AppName != "" {
		s.openSession()
	}

	s.publish()
	n.Info("sandbox ready: %d objects, %d bodies", len(s.Registry.Objects()), s.World.NumBodies())
	return s, nil
}

// spawnTransform uses the translation of the camera node, the configured
// spawn point otherwise.
func (s *Sandbox) spawnTransform() mgl32.Mat4 {
	if s.Scene.Root != nil {
		if node, ok := scene.FindNodeByName(s.Scene.Root, s.Camera.Node); ok {
			pos, _, _ := utils.DecomposeTransform(node.Transform)
			return mgl32.Translate3D(pos[0], pos[1], pos[2])
		}
	}
	p := s.Config.Sandbox.SpawnPoint
	return mgl32.Translate3D(p[0], p[1], p[2])
}

func (s *Sandbox) openSession() {
	store, err := config.OpenSession(s.Config.Sandbox.AppName)
	if err != nil {
		log.Printf("[sandbox] %v", err)
		return
	}
	s.session = store

	sess, err := store.Load()
	if err != nil {
		log.Printf("[sandbox] %v", err)
		return
	}
	if sess == nil {
		return
	}
	s.CreateIndex = sess.CreateIndex
	if n := len(s.Registry.Objects()); n == 0 || s.CreateIndex < 0 || s.CreateIndex >= n {
		s.CreateIndex = 0
	}
	if sess.MouseSensitivity > 0 {
		s.Player.Config.MouseSensitivity = sess.MouseSensitivity
	}
	log.Printf("[sandbox] Session restored (create index %d)", s.CreateIndex)
}

func (s *Sandbox) Ticks() uint64 { return s.ticks }

func (s *Sandbox) Projection() mgl32.Mat4 { return s.projection }

// Tick runs one frame: events, step, interaction, player, render.
func (s *Sandbox) Tick() error {
	for _, ev := range s.Events.Drain() {
		if err := s.handle(ev); err != nil {
			return err
		}
	}

	s.World.Step(s.Config.Physics.FixedStep)

	ray := interaction.ScreenCenterRay(s.Player.View(), s.projection, s.Interaction.Config.RayLength)
	s.Interaction.Resolve(s.World, s.Registry, s.Player, ray, interaction.Buttons{
		Left:   s.Player.Input[player.LeftClick],
		Middle: s.Player.Input[player.MiddleClick],
	})
	s.Player.Update()
	s.Interaction.Pull(s.Player)

	if s.Renderer != nil {
		if err := s.Renderer.Render(s.frame()); err != nil {
			return errors.Wrapf(err, "Failed to render frame %d", s.ticks)
		}
	}

	s.ticks++
	s.publish()
	return nil
}

func (s *Sandbox) frame() *render.Frame {
	f := render.NewFrame(s.Player.View(), s.projection, s.Player.Eye())
	for _, call := range s.Registry.DrawData(s.Interaction.Target) {
		f.AddCall(call)
	}

	if obj, ok := s.CurrentObject(); ok {
		p := s.SpawnPoint()
		f.AddCall(render.DrawCall{
			Object:    obj.Name,
			Mesh:      obj.Mesh,
			Material:  s.Assets.Material(obj.Mesh.Material),
			Model:     mgl32.Translate3D(p[0], p[1], p[2]),
			Tint:      utils.Blue,
			Highlight: true,
		})
	}
	return f
}

func (s *Sandbox) handle(ev Event) error {
	switch e := ev.(type) {
	case KeyEvent:
		return s.handleKey(e)
	case ButtonEvent:
		switch e.Button {
		case ButtonLeft:
			s.Player.SetInput(player.LeftClick, e.Down)
		case ButtonMiddle:
			s.Player.SetInput(player.MiddleClick, e.Down)
		case ButtonRight:
			if e.Down {
				s.Player.Jump()
			}
		}
	case MouseMoveEvent:
		s.Player.Look(e.DX, e.DY)
	case QuitEvent:
		log.Printf("[sandbox] Quit: %s", e.Reason)
		return ErrQuit
	case CallEvent:
		err := e.Fn(s)
		if e.Done != nil {
			e.Done <- err
		}
	default:
		log.Printf("[sandbox] Unknown event %T", ev)
	}
	return nil
}

func (s *Sandbox) handleKey(e KeyEvent) error {
	switch e.Key {
	case KeyW:
		s.Player.SetInput(player.Forward, e.Down)
	case KeyS:
		s.Player.SetInput(player.Back, e.Down)
	case KeyA:
		s.Player.SetInput(player.Left, e.Down)
	case KeyD:
		s.Player.SetInput(player.Right, e.Down)
	}
	if !e.Down {
		return nil
	}

	switch e.Key {
	case KeySpace:
		s.logAction(s.SpawnCurrent())
	case KeyJ:
		s.Cycle(-1)
	case KeyK:
		s.Cycle(1)
	case KeyI:
		s.ClearInstances()
	case KeyO:
		s.logAction(s.Save())
	case KeyP:
		s.logAction(s.Restore())
	case KeyEscape:
		return ErrQuit
	}
	return nil
}

func (s *Sandbox) logAction(err error) {
	if err != nil {
		s.notifier.Error("%v", err)
	}
}

// Run ticks until ctx is done, a quit is requested or maxTicks frames
// passed. maxTicks 0 means no limit.
func (s *Sandbox) Run(ctx context.Context, maxTicks uint64) error {
	var frame time.Duration
	if s.Config.Sandbox.TargetFPS > 0 {
		frame = time.Second / time.Duration(s.Config.Sandbox.TargetFPS)
	}

	for maxTicks == 0 || s.ticks < maxTicks {
		select {
		case <-ctx.Done():
			log.Printf("[sandbox] Stopped after %d ticks: %v", s.ticks, ctx.Err())
			return nil
		default:
		}

		start := time.Now()
		if err := s.Tick(); err != nil {
			if errors.Cause(err) == ErrQuit {
				log.Printf("[sandbox] Quit after %d ticks", s.ticks)
				return nil
			}
			return err
		}

		if frame > 0 {
			if rest := frame - time.Since(start); rest > 0 {
				select {
				case <-ctx.Done():
				case <-time.After(rest):
				}
			}
		}
	}
	return nil
}

// Do runs fn inside the loop and waits for it. The loop must be running.
func (s *Sandbox) Do(ctx context.Context, fn func(s *Sandbox) error) error {
	done := make(chan error, 1)
	s.Events.Push(CallEvent{Fn: fn, Done: done})
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return errors.Wrapf(ctx.Err(), "Failed to wait for loop")
	}
}

// Close saves the session and tears everything down in reverse order.
func (s *Sandbox) Close() {
	if s.session != nil {
		err := s.session.Save(&config.Session{
			CreateIndex:      s.CreateIndex,
			MouseSensitivity: s.Player.Config.MouseSensitivity,
		})
		if err != nil {
			log.Printf("[sandbox] %v", err)
		}
	}

	s.Interaction.Release()
	s.Registry.Destroy(s.World)
	s.World.DestroyBody(s.Player.Body)
	s.World.Destroy()
	log.Printf("[sandbox] Closed after %d ticks", s.ticks)
}
