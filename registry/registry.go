package registry

import (
	"fmt"
	"log"
	"math/rand"
	"sort"
	"time"

	"github.com/mogaika/shoestring/asset"
	"github.com/mogaika/shoestring/physics"
	"github.com/mogaika/shoestring/render"
	"github.com/mogaika/shoestring/scene"
	"github.com/mogaika/shoestring/utils"
)

// copy numbering suffix of the asset tool, ".001"
const stemSuffixLen = 4

type TintMode string

const (
	TintWhite  TintMode = "white"
	TintRandom TintMode = "random"
)

type Library interface {
	FindMesh(name string) (*asset.MeshTemplate, bool)
	Material(i int) *asset.MaterialTemplate
}

type BindStatus int

const (
	Unbound BindStatus = iota
	Bound
)

func (s BindStatus) String() string {
	if s == Bound {
		return "bound"
	}
	return "unbound"
}

type BindResult struct {
	Body   *physics.Body
	Status BindStatus
	// Object is set when bound, Reason when not
	Object *Object
	Reason string
}

type Registry struct {
	lib     Library
	tint    TintMode
	rnd     *rand.Rand
	objects map[string]*Object
	unbound []BindResult
}

// New creates an empty registry. A zero seed draws random tints from the
// process start time.
func New(lib Library, tint TintMode, seed int64) *Registry {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Registry{
		lib:     lib,
		tint:    tint,
		rnd:     rand.New(rand.NewSource(seed)),
		objects: make(map[string]*Object),
	}
}

// resolve prefers the exact body name over the stem.
func (r *Registry) resolve(name string) (string, *asset.MeshTemplate, bool) {
	if mesh, ok := r.lib.FindMesh(name); ok {
		return name, mesh, true
	}
	if len(name) > stemSuffixLen {
		stem := name[:len(name)-stemSuffixLen]
		if mesh, ok := r.lib.FindMesh(stem); ok {
			return stem, mesh, true
		}
	}
	return "", nil, false
}

func (r *Registry) newTint() utils.ColorFloat {
	if r.tint == TintRandom {
		return utils.RandomColor(r.rnd)
	}
	return utils.White
}

// Bind matches every body to a mesh. Bodies that are not in the world yet
// are added, bound or not.
func (r *Registry) Bind(w World, bodies []*physics.Body) []BindResult {
	results := make([]BindResult, 0, len(bodies))
	for _, b := range bodies {
		if !b.InWorld() {
			if err := w.AddBody(b); err != nil {
				log.Printf("[registry] %v", err)
			}
		}

		res := r.bind(b)
		if res.Status == Unbound {
			log.Printf("[registry] Body %q unbound: %s", b.Name, res.Reason)
			r.unbound = append(r.unbound, res)
		}
		results = append(results, res)
	}
	return results
}

func (r *Registry) bind(b *physics.Body) BindResult {
	res := BindResult{Body: b}

	matched, mesh, ok := r.resolve(b.Name)
	if !ok {
		if len(b.Name) > stemSuffixLen {
			res.Reason = fmt.Sprintf("no mesh named %q or %q", b.Name, b.Name[:len(b.Name)-stemSuffixLen])
		} else {
			res.Reason = fmt.Sprintf("no mesh named %q", b.Name)
		}
		return res
	}
	if prev, ok := r.objects[matched]; ok {
		res.Reason = fmt.Sprintf("object %q is already bound to body %q", matched, prev.Template.Name)
		return res
	}

	obj := newObject(matched, mesh, b, r.newTint())
	r.objects[matched] = obj
	if matched == b.Name {
		log.Printf("[registry] Added object %s", matched)
	} else {
		log.Printf("[registry] Added object %s as copy of %s", b.Name, matched)
	}

	res.Status = Bound
	res.Object = obj
	return res
}

// PlaceInstances positions the template of an object at its first
// instance and spawns a body with template mass for every further one.
// Instances without an object are skipped.
func (r *Registry) PlaceInstances(w World, instances []scene.NamedInstance) int {
	placed := make(map[string]bool)
	count := 0
	for _, inst := range instances {
		obj, ok := r.objects[inst.Name]
		if !ok {
			continue
		}

		var err error
		if !placed[inst.Name] {
			_, err = obj.AddExisting(w, obj.Template, inst.Transform)
			placed[inst.Name] = true
		} else {
			_, err = obj.SpawnWithTemplateMass(w, inst.Transform)
		}
		if err != nil {
			log.Printf("[registry] Instance %q: %v", inst.Name, err)
			continue
		}
		count++
	}
	log.Printf("[registry] Placed %d instances from %d scene nodes", count, len(instances))
	return count
}

func (r *Registry) Find(name string) (*Object, bool) {
	o, ok := r.objects[name]
	return o, ok
}

// Lookup returns the object owning b.
func (r *Registry) Lookup(b *physics.Body) (*Object, bool) {
	if b == nil {
		return nil, false
	}
	for _, o := range r.objects {
		if o.Owns(b) {
			return o, true
		}
	}
	return nil, false
}

// Objects are sorted by name.
func (r *Registry) Objects() []*Object {
	objects := make([]*Object, 0, len(r.objects))
	for _, o := range r.objects {
		objects = append(objects, o)
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Name < objects[j].Name })
	return objects
}

func (r *Registry) Unbound() []BindResult { return r.unbound }

func (r *Registry) NumBodies() int {
	n := 0
	for _, o := range r.objects {
		n += o.NumBodies()
	}
	return n
}

func (r *Registry) NumInstances() int {
	n := 0
	for _, o := range r.objects {
		n += len(o.Instances)
	}
	return n
}

// Clear destroys every spawned body, templates stay.
func (r *Registry) Clear(w World) int {
	n := 0
	for _, o := range r.objects {
		n += o.clear(w)
	}
	log.Printf("[registry] Cleared %d bodies", n)
	return n
}

// Destroy destroys every body of every object, templates included.
func (r *Registry) Destroy(w World) {
	for _, o := range r.Objects() {
		o.clear(w)
		w.DestroyBody(o.Template)
	}
	r.objects = make(map[string]*Object)
	r.unbound = nil
}

// DrawData returns a call per body. selected is highlighted.
func (r *Registry) DrawData(selected *physics.Body) []render.DrawCall {
	calls := make([]render.DrawCall, 0, r.NumBodies())
	for _, o := range r.Objects() {
		mat := r.lib.Material(o.Mesh.Material)
		tex := mat.Texture
		if !o.Mesh.HasTexture {
			tex = 0
		}
		for _, b := range o.Bodies() {
			calls = append(calls, render.DrawCall{
				Object:    o.Name,
				Mesh:      o.Mesh,
				Material:  mat,
				Model:     b.Transform(),
				Tint:      o.Tint,
				Texture:   tex,
				Highlight: selected != nil && b == selected,
			})
		}
	}
	return calls
}

type objectDump struct {
	Name      string
	Tint      utils.ColorFloat
	Mesh      string
	Shape     string
	Mass      float32
	Positions [][3]float32
}

func (r *Registry) Dump() string {
	dump := make([]objectDump, 0, len(r.objects))
	for _, o := range r.Objects() {
		od := objectDump{
			Name:  o.Name,
			Tint:  o.Tint,
			Mesh:  o.Mesh.Name,
			Shape: o.Shape.Type().String(),
			Mass:  o.TemplateMass(),
		}
		for _, b := range o.Bodies() {
			od.Positions = append(od.Positions, [3]float32(b.Origin()))
		}
		dump = append(dump, od)
	}
	unbound := make([]string, 0, len(r.unbound))
	for _, u := range r.unbound {
		unbound = append(unbound, u.Body.Name+": "+u.Reason)
	}
	return utils.SDump(dump, unbound)
}
