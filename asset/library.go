package asset

import (
	"log"
	"path/filepath"
	"sort"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/mogaika/shoestring/scene"
	"github.com/mogaika/shoestring/texture"
	"github.com/mogaika/shoestring/utils"
)

const (
	StrideNoTexture = 6
	StrideTexture   = 8
)

const (
	DefaultFov       = 49.134342
	DefaultNear      = 0.01
	DefaultFar       = 10000
	DefaultAspect    = 1.77778
	DefaultShininess = 0.1

	radToDeg = 57.2957795
)

type TextureLoader interface {
	Load(path string) (texture.Handle, error)
}

// MeshTemplate vertices are interleaved position, normal and, when
// HasTexture, uv.
type MeshTemplate struct {
	Name          string
	Vertices      []float32
	Indices       []uint32
	Stride        int
	HasTexture    bool
	HasAnimations bool
	Material      int
}

func (m *MeshTemplate) VertexCount() int {
	return len(m.Vertices) / m.Stride
}

func (m *MeshTemplate) Position(i int) mgl32.Vec3 {
	o := i * m.Stride
	return mgl32.Vec3{m.Vertices[o], m.Vertices[o+1], m.Vertices[o+2]}
}

func (m *MeshTemplate) Normal(i int) mgl32.Vec3 {
	o := i*m.Stride + 3
	return mgl32.Vec3{m.Vertices[o], m.Vertices[o+1], m.Vertices[o+2]}
}

func (m *MeshTemplate) UV(i int) mgl32.Vec2 {
	if !m.HasTexture {
		return mgl32.Vec2{}
	}
	o := i*m.Stride + 6
	return mgl32.Vec2{m.Vertices[o], m.Vertices[o+1]}
}

type MaterialTemplate struct {
	Name        string
	Diffuse     utils.ColorFloat
	Specular    utils.ColorFloat
	Shininess   float32
	Texture     texture.Handle
	TexturePath string
}

var DefaultMaterial = MaterialTemplate{
	Name:      "default",
	Diffuse:   utils.White,
	Specular:  utils.White,
	Shininess: DefaultShininess,
}

type CameraTemplate struct {
	Name       string
	FovDegrees float32
	Near       float32
	Far        float32
	Aspect     float32
	// Node carries the camera world transform in the scene graph
	Node string
}

func DefaultCamera(name string) CameraTemplate {
	return CameraTemplate{
		Name:       name,
		FovDegrees: DefaultFov,
		Near:       DefaultNear,
		Far:        DefaultFar,
		Aspect:     DefaultAspect,
		Node:       name,
	}
}

// VerticalFov returns the vertical fov in radians. FovDegrees is horizontal.
func (c *CameraTemplate) VerticalFov() float32 {
	return 2 * math32.Atan(math32.Tan(mgl32.DegToRad(c.FovDegrees)/2)/c.Aspect)
}

func (c *CameraTemplate) Projection() mgl32.Mat4 {
	return mgl32.Perspective(c.VerticalFov(), c.Aspect, c.Near, c.Far)
}

// Library is filled once at startup and read-only afterwards.
type Library struct {
	Dir string

	loader    TextureLoader
	materials []*MaterialTemplate
	meshes    map[string]*MeshTemplate
	cameras   map[string]*CameraTemplate
}

func NewLibrary(dir string, loader TextureLoader) *Library {
	return &Library{
		Dir:     dir,
		loader:  loader,
		meshes:  make(map[string]*MeshTemplate),
		cameras: make(map[string]*CameraTemplate),
	}
}

// AddMaterial always appends the material. A texture decode error is
// returned together with the index of the material, which stays untextured.
func (l *Library) AddMaterial(raw scene.RawMaterial) (int, error) {
	mat := &MaterialTemplate{
		Name:      raw.Name,
		Diffuse:   utils.White,
		Specular:  utils.White,
		Shininess: DefaultShininess,
	}
	if raw.Diffuse != nil {
		mat.Diffuse = *raw.Diffuse
	}
	if raw.Specular != nil {
		mat.Specular = *raw.Specular
	}
	if raw.Shininess != nil {
		mat.Shininess = *raw.Shininess
	}

	idx := len(l.materials)
	l.materials = append(l.materials, mat)

	if raw.TextureFile == "" {
		return idx, nil
	}
	mat.TexturePath = filepath.Join(l.Dir, raw.TextureFile)

	for _, prev := range l.materials[:idx] {
		if prev.TexturePath == mat.TexturePath && prev.Texture != 0 {
			mat.Texture = prev.Texture
			log.Printf("[asset] Material %q reuses texture %q", mat.Name, mat.TexturePath)
			return idx, nil
		}
	}

	if l.loader == nil {
		return idx, errors.Errorf("No texture loader for %q", mat.TexturePath)
	}
	h, err := l.loader.Load(mat.TexturePath)
	if err != nil {
		return idx, errors.Wrapf(err, "Failed to load texture of material %q", mat.Name)
	}
	mat.Texture = h
	return idx, nil
}

func (l *Library) AddMesh(raw scene.RawMesh) error {
	if raw.Name == "" {
		return errors.Errorf("Mesh without name")
	}
	for _, idx := range raw.Indices {
		if int(idx) >= len(raw.Positions) {
			return errors.Errorf("Mesh %q index %d out of %d vertices", raw.Name, idx, len(raw.Positions))
		}
	}

	mesh := &MeshTemplate{
		Name:          raw.Name,
		Indices:       append([]uint32(nil), raw.Indices...),
		HasAnimations: raw.Animated,
		Material:      raw.Material,
	}
	for i := range raw.Positions {
		if i < len(raw.UVs) {
			mesh.HasTexture = true
			break
		}
	}
	mesh.Stride = StrideNoTexture
	if mesh.HasTexture {
		mesh.Stride = StrideTexture
	}
	if mesh.HasAnimations {
		log.Printf("[asset] Mesh %q is animated, animations are ignored", raw.Name)
	}

	mesh.Vertices = make([]float32, 0, len(raw.Positions)*mesh.Stride)
	for i, pos := range raw.Positions {
		var norm mgl32.Vec3
		if i < len(raw.Normals) {
			norm = raw.Normals[i]
		}
		mesh.Vertices = append(mesh.Vertices, pos[0], pos[1], pos[2], norm[0], norm[1], norm[2])
		if mesh.HasTexture {
			var uv mgl32.Vec2
			if i < len(raw.UVs) {
				uv = raw.UVs[i]
			}
			mesh.Vertices = append(mesh.Vertices, uv[0], uv[1])
		}
	}

	if _, dup := l.meshes[raw.Name]; dup {
		log.Printf("[asset] Mesh %q defined twice, keeping the last one", raw.Name)
	}
	l.meshes[raw.Name] = mesh
	return nil
}

// AddCamera converts the horizontal fov to degrees. Zero fields take defaults.
func (l *Library) AddCamera(raw scene.RawCamera) *CameraTemplate {
	cam := DefaultCamera(raw.Name)
	if raw.HorizontalFov != 0 {
		cam.FovDegrees = raw.HorizontalFov * radToDeg
	}
	if raw.Near != 0 {
		cam.Near = raw.Near
	}
	if raw.Far != 0 {
		cam.Far = raw.Far
	}
	if raw.Aspect != 0 {
		cam.Aspect = raw.Aspect
	}
	l.cameras[raw.Name] = &cam
	return &cam
}

func (l *Library) FindMesh(name string) (*MeshTemplate, bool) {
	m, ok := l.meshes[name]
	return m, ok
}

func (l *Library) FindCamera(name string) (*CameraTemplate, bool) {
	c, ok := l.cameras[name]
	return c, ok
}

func (l *Library) Material(i int) *MaterialTemplate {
	if i < 0 || i >= len(l.materials) {
		return &DefaultMaterial
	}
	return l.materials[i]
}

func (l *Library) NumMaterials() int { return len(l.materials) }
func (l *Library) NumMeshes() int    { return len(l.meshes) }

func (l *Library) MeshNames() []string {
	names := make([]string, 0, len(l.meshes))
	for name := range l.meshes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AddScene fills the library with materials, then meshes, then cameras.
// Texture failures are logged, mesh failures are fatal.
func (l *Library) AddScene(sc *scene.Scene) error {
	for _, raw := range sc.Materials {
		if _, err := l.AddMaterial(raw); err != nil {
			log.Printf("[asset] %v", err)
		}
	}
	for _, raw := range sc.Meshes {
		if err := l.AddMesh(raw); err != nil {
			return errors.Wrapf(err, "Failed to add mesh")
		}
	}
	for _, raw := range sc.Cameras {
		l.AddCamera(raw)
	}
	log.Printf("[asset] Library: %d materials, %d meshes, %d cameras",
		len(l.materials), len(l.meshes), len(l.cameras))
	return nil
}
