package scene

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/shoestring/utils"
)

// RawMesh is one imported triangle list. Vertex i carries a texture
// coordinate when i < len(UVs), a normal when i < len(Normals).
type RawMesh struct {
	Name      string
	Positions []mgl32.Vec3
	Normals   []mgl32.Vec3
	UVs       []mgl32.Vec2
	Indices   []uint32
	Material  int
	Animated  bool
}

// RawMaterial leaves fields nil when the source does not define them.
type RawMaterial struct {
	Name        string
	Diffuse     *utils.ColorFloat
	Specular    *utils.ColorFloat
	Shininess   *float32
	TextureFile string
}

type RawCamera struct {
	Name string
	// HorizontalFov is in radians.
	HorizontalFov float32
	Near          float32
	Far           float32
	Aspect        float32
}

type Scene struct {
	Root      *Node
	Meshes    []RawMesh
	Materials []RawMaterial
	Cameras   []RawCamera
}
