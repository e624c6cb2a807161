package sandbox

import (
	"log"

	"github.com/jinzhu/copier"

	"github.com/mogaika/shoestring/physics"
	"github.com/mogaika/shoestring/registry"
)

type BodySnapshot struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Position [3]float32 `json:"position"`
	Velocity [3]float32 `json:"velocity"`
	Active   bool       `json:"active"`
	Template bool       `json:"template"`
}

type ObjectSnapshot struct {
	Name   string         `json:"name"`
	Mesh   string         `json:"mesh"`
	Shape  string         `json:"shape"`
	Mass   float32        `json:"mass"`
	Tint   [4]float32     `json:"tint"`
	Bodies []BodySnapshot `json:"bodies"`
}

type UnboundSnapshot struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

type PlayerSnapshot struct {
	Name        string     `json:"name"`
	Position    [3]float32 `json:"position"`
	Velocity    [3]float32 `json:"velocity"`
	Inclination float32    `json:"inclination"`
	Heading     float32    `json:"heading"`
}

// Snapshot is a copy of the loop state, safe to read from other goroutines.
type Snapshot struct {
	Ticks        uint64            `json:"ticks"`
	Steps        uint64            `json:"steps"`
	NumBodies    int               `json:"numBodies"`
	NumTextures  int               `json:"numTextures"`
	CreateIndex  int               `json:"createIndex"`
	CreateObject string            `json:"createObject"`
	Held         string            `json:"held,omitempty"`
	Target       string            `json:"target,omitempty"`
	Grapple      *[3]float32       `json:"grapple,omitempty"`
	Player       PlayerSnapshot    `json:"player"`
	Objects      []ObjectSnapshot  `json:"objects"`
	Unbound      []UnboundSnapshot `json:"unbound"`
}

func bodySnapshot(b *physics.Body, template bool) BodySnapshot {
	return BodySnapshot{
		ID:       b.ID.String(),
		Name:     b.Name,
		Position: b.Origin(),
		Velocity: b.LinearVelocity(),
		Active:   b.IsActive(),
		Template: template,
	}
}

func objectSnapshot(o *registry.Object) ObjectSnapshot {
	snap := ObjectSnapshot{
		Name:   o.Name,
		Mesh:   o.Mesh.Name,
		Shape:  o.Shape.Type().String(),
		Mass:   o.TemplateMass(),
		Tint:   o.Tint,
		Bodies: make([]BodySnapshot, 0, o.NumBodies()),
	}
	for i, b := range o.Bodies() {
		snap.Bodies = append(snap.Bodies, bodySnapshot(b, i == 0))
	}
	return snap
}

func (s *Sandbox) takeSnapshot() *Snapshot {
	snap := &Snapshot{
		Ticks:       s.ticks,
		Steps:       s.World.Steps(),
		NumBodies:   s.World.NumBodies(),
		NumTextures: s.Textures.Len(),
		CreateIndex: s.CreateIndex,
		Player: PlayerSnapshot{
			Name:        s.Player.Body.Name,
			Position:    s.Player.Origin(),
			Velocity:    s.Player.Body.LinearVelocity(),
			Inclination: s.Player.Inclination,
			Heading:     s.Player.Heading,
		},
		Objects: make([]ObjectSnapshot, 0),
		Unbound: make([]UnboundSnapshot, 0),
	}
	if obj, ok := s.CurrentObject(); ok {
		snap.CreateObject = obj.Name
	}
	if held := s.Interaction.Held; held != nil {
		snap.Held = held.Name
	}
	if target := s.Interaction.Target; target != nil {
		snap.Target = target.Name
	}
	if s.Interaction.GrappleActive {
		anchor := [3]float32(s.Interaction.GrappleAnchor)
		snap.Grapple = &anchor
	}
	for _, o := range s.Registry.Objects() {
		snap.Objects = append(snap.Objects, objectSnapshot(o))
	}
	for _, u := range s.Registry.Unbound() {
		snap.Unbound = append(snap.Unbound, UnboundSnapshot{Name: u.Body.Name, Reason: u.Reason})
	}
	return snap
}

func (s *Sandbox) publish() {
	snap := s.takeSnapshot()
	s.snapMu.Lock()
	s.snapshot = snap
	s.snapMu.Unlock()
}

// Snapshot returns a deep copy of the state published after the last tick.
func (s *Sandbox) Snapshot() *Snapshot {
	s.snapMu.Lock()
	defer s.snapMu.Unlock()

	var snap Snapshot
	if err := copier.CopyWithOption(&snap, s.snapshot, copier.Option{DeepCopy: true}); err != nil {
		log.Printf("[sandbox] Failed to copy snapshot: %v", err)
		return s.snapshot
	}
	return &snap
}
