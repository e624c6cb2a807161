package sandbox

import (
	"context"
	"log"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/mogaika/shoestring/config"
	"github.com/mogaika/shoestring/registry"
	"github.com/mogaika/shoestring/utils"
)

// CurrentObject is the object Space spawns.
func (s *Sandbox) CurrentObject() (*registry.Object, bool) {
	objects := s.Registry.Objects()
	if len(objects) == 0 {
		return nil, false
	}
	if s.CreateIndex < 0 || s.CreateIndex >= len(objects) {
		s.CreateIndex = 0
	}
	return objects[s.CreateIndex], true
}

// SpawnPoint lies SpawnDistance ahead of the player, snapped to whole units.
func (s *Sandbox) SpawnPoint() mgl32.Vec3 {
	forward, _ := s.Player.Basis()
	return utils.RoundVec3(s.Player.Origin().Add(forward.Mul(s.Config.Sandbox.SpawnDistance)))
}

func (s *Sandbox) SpawnCurrent() error {
	obj, ok := s.CurrentObject()
	if !ok {
		return errors.Errorf("Nothing to spawn")
	}
	p := s.SpawnPoint()
	if _, err := obj.SpawnWithTemplateMass(s.World, mgl32.Translate3D(p[0], p[1], p[2])); err != nil {
		return errors.Wrapf(err, "Failed to spawn %q", obj.Name)
	}
	s.notifier.Info("spawned %s at %v", obj.Name, p)
	return nil
}

// Cycle moves the create index by delta, wrapping at both ends.
func (s *Sandbox) Cycle(delta int) int {
	n := len(s.Registry.Objects())
	if n == 0 {
		s.CreateIndex = 0
		return 0
	}
	s.CreateIndex = ((s.CreateIndex+delta)%n + n) % n
	if obj, ok := s.CurrentObject(); ok {
		log.Printf("[sandbox] Create object %d: %s", s.CreateIndex, obj.Name)
	}
	return s.CreateIndex
}

func (s *Sandbox) ClearInstances() int {
	n := s.Registry.Clear(s.World)
	s.notifier.Info("cleared %d bodies", n)
	return n
}

func (s *Sandbox) Save() error {
	n, err := s.Registry.Persist(s.Config.Paths.Instances)
	if err != nil {
		return err
	}
	s.notifier.Info("saved %d bodies", n)
	return nil
}

func (s *Sandbox) Restore() error {
	n, err := s.Registry.Restore(s.World, s.Config.Paths.Instances)
	if err != nil {
		return err
	}
	s.notifier.Info("restored %d bodies", n)
	return nil
}

// SpawnGrid places an n by n grid of name on the z=0 plane.
func (s *Sandbox) SpawnGrid(name string, n int, spacing float32) (int, error) {
	obj, ok := s.Registry.Find(name)
	if !ok {
		return 0, errors.Errorf("Unknown object %q", name)
	}
	count := 0
	for x := 0; x < n; x++ {
		for y := 0; y < n; y++ {
			m := mgl32.Translate3D(float32(x)*spacing, float32(y)*spacing, 0)
			if _, err := obj.SpawnWithTemplateMass(s.World, m); err != nil {
				return count, errors.Wrapf(err, "Failed to spawn grid of %q", name)
			}
			count++
		}
	}
	s.notifier.Info("spawned grid of %d %s", count, name)
	return count, nil
}

// ApplyConfig takes over the tunables that can change at runtime. Paths
// and the scene stay as loaded, as does gravity given by the physics file.
func (s *Sandbox) ApplyConfig(cfg *config.Config) {
	s.Config.Player = cfg.Player
	s.Config.Interaction = cfg.Interaction
	s.Config.Sandbox.SpawnDistance = cfg.Sandbox.SpawnDistance
	s.Config.Sandbox.TargetFPS = cfg.Sandbox.TargetFPS
	s.Config.Physics.FixedStep = cfg.Physics.FixedStep
	if !s.fileGravity {
		s.World.SetGravity(cfg.Physics.Gravity)
	}

	s.Player.Apply(cfg.Player)
	s.Interaction.Config = cfg.Interaction
	s.notifier.Info("config reloaded")
}

// WatchConfig reloads path on every change and applies it inside the loop.
func (s *Sandbox) WatchConfig(ctx context.Context, path string) error {
	return config.Watch(ctx, path, func() {
		s.Events.Push(CallEvent{Fn: func(s *Sandbox) error {
			cfg, err := config.Load(path)
			if err != nil {
				s.notifier.Error("%v", err)
				return err
			}
			s.ApplyConfig(cfg)
			return nil
		}})
	})
}
