package registry

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/mogaika/shoestring/asset"
	"github.com/mogaika/shoestring/physics"
	"github.com/mogaika/shoestring/scene"
	"github.com/mogaika/shoestring/utils"
)

// World is the part of the physics world the registry mutates.
type World interface {
	AddBody(b *physics.Body) error
	DestroyBody(b *physics.Body) bool
}

// Object binds one mesh to the file loaded template body and the bodies
// spawned from it. Every body shares Shape.
type Object struct {
	Name      string
	Tint      utils.ColorFloat
	Mesh      *asset.MeshTemplate
	Shape     physics.Shape
	Template  *physics.Body
	Instances []*physics.Body
}

func newObject(name string, mesh *asset.MeshTemplate, template *physics.Body, tint utils.ColorFloat) *Object {
	return &Object{
		Name:     name,
		Tint:     tint,
		Mesh:     mesh,
		Shape:    template.Shape(),
		Template: template,
	}
}

// Bodies returns the template followed by the spawned instances.
func (o *Object) Bodies() []*physics.Body {
	bodies := make([]*physics.Body, 0, len(o.Instances)+1)
	bodies = append(bodies, o.Template)
	return append(bodies, o.Instances...)
}

func (o *Object) NumBodies() int { return len(o.Instances) + 1 }

func (o *Object) Owns(b *physics.Body) bool {
	if b == o.Template {
		return true
	}
	for _, i := range o.Instances {
		if i == b {
			return true
		}
	}
	return false
}

// TemplateMass is the mass of the template body, zero when it is static.
func (o *Object) TemplateMass() float32 {
	if inv := o.Template.InvMass(); inv != 0 {
		return 1 / inv
	}
	return 0
}

func (o *Object) SpawnWithTemplateMass(w World, transform mgl32.Mat4) (scene.NamedInstance, error) {
	return o.SpawnWithMass(w, transform, o.TemplateMass())
}

// SpawnWithMass adds a new body with the object shape at transform.
// Inertia is computed from the shared shape at mass.
func (o *Object) SpawnWithMass(w World, transform mgl32.Mat4, mass float32) (scene.NamedInstance, error) {
	if mass < 0 {
		return scene.NamedInstance{}, errors.Errorf("Negative mass %v for %q", mass, o.Name)
	}
	info := o.Template.Info()
	info.Name = o.Name
	info.Shape = o.Shape
	info.Mass = mass

	body := physics.NewBody(info)
	body.SetTransform(transform)
	if err := w.AddBody(body); err != nil {
		return scene.NamedInstance{}, errors.Wrapf(err, "Failed to spawn %q", o.Name)
	}
	o.Instances = append(o.Instances, body)
	return o.instance(body), nil
}

// AddExisting places a body already owned by the object, or adopts a
// body built with the object shape.
func (o *Object) AddExisting(w World, body *physics.Body, transform mgl32.Mat4) (scene.NamedInstance, error) {
	if body.Shape() != o.Shape {
		return scene.NamedInstance{}, errors.Errorf("Body %q does not share the shape of %q", body.Name, o.Name)
	}
	body.SetTransform(transform)
	if o.Owns(body) {
		return o.instance(body), nil
	}
	if !body.InWorld() {
		if err := w.AddBody(body); err != nil {
			return scene.NamedInstance{}, errors.Wrapf(err, "Failed to adopt %q", body.Name)
		}
	}
	o.Instances = append(o.Instances, body)
	return o.instance(body), nil
}

func (o *Object) instance(b *physics.Body) scene.NamedInstance {
	return scene.NamedInstance{Name: o.Name, Transform: b.Transform()}
}

// clear destroys every spawned body and keeps the template.
func (o *Object) clear(w World) int {
	for _, b := range o.Instances {
		w.DestroyBody(b)
	}
	n := len(o.Instances)
	o.Instances = nil
	return n
}
