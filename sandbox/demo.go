package sandbox

import (
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"gopkg.in/yaml.v3"

	"github.com/mogaika/shoestring/config"
	"github.com/mogaika/shoestring/physics"
	"github.com/mogaika/shoestring/utils"
	"github.com/mogaika/shoestring/utils/gltfutils"
)

// box faces as normal, u, v
var boxFaces = [6][3]mgl32.Vec3{
	{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
	{{-1, 0, 0}, {0, 0, 1}, {0, 1, 0}},
	{{0, 1, 0}, {0, 0, 1}, {1, 0, 0}},
	{{0, -1, 0}, {1, 0, 0}, {0, 0, 1}},
	{{0, 0, 1}, {1, 0, 0}, {0, 1, 0}},
	{{0, 0, -1}, {0, 1, 0}, {1, 0, 0}},
}

func boxMesh(half mgl32.Vec3) (positions, normals [][3]float32, uvs [][2]float32, indices []uint32) {
	for _, f := range boxFaces {
		base := uint32(len(positions))
		for _, c := range [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}} {
			p := f[0].Add(f[1].Mul(c[0])).Add(f[2].Mul(c[1]))
			positions = append(positions, [3]float32{p[0] * half[0], p[1] * half[1], p[2] * half[2]})
			normals = append(normals, [3]float32(f[0]))
			uvs = append(uvs, [2]float32{(c[0] + 1) / 2, (c[1] + 1) / 2})
		}
		indices = append(indices, base, base+1, base+2, base, base+2, base+3)
	}
	return
}

func demoDocument() *gltf.Document {
	gc := gltfutils.NewCacher()
	grey := gc.AddMaterial("Grey", utils.ColorFloat{0.6, 0.6, 0.6, 1})
	white := gc.AddMaterial("White", utils.White)

	pos, norm, uv, idx := boxMesh(mgl32.Vec3{50, 50, 1})
	ground := gc.AddMesh("Ground", pos, norm, uv, idx, &grey)
	pos, norm, uv, idx = boxMesh(mgl32.Vec3{1, 1, 1})
	cube := gc.AddMesh("Cube", pos, norm, uv, idx, &white)

	gc.AddNode("Ground", ground, mgl32.Translate3D(0, 0, -1))
	gc.AddNode("Cube", cube, mgl32.Translate3D(0, 0, 5))

	doc := gc.Doc
	aspect := float32(1.77778)
	doc.Cameras = append(doc.Cameras, &gltf.Camera{
		Name:        "Camera",
		Perspective: &gltf.Perspective{Yfov: 0.49, Znear: 0.01, AspectRatio: &aspect},
	})
	doc.Nodes = append(doc.Nodes, &gltf.Node{
		Name:        "Camera",
		Camera:      gltf.Index(uint32(len(doc.Cameras) - 1)),
		Translation: [3]float32{0, -20, 3},
		Rotation:    [4]float32{0, 0, 0, 1},
		Scale:       [3]float32{1, 1, 1},
	})
	return doc
}

func demoWorld() *physics.WorldFile {
	gravity := mgl32.Vec3{0, 0, -9.82}
	return &physics.WorldFile{
		Gravity: &gravity,
		Bodies: []physics.BodyDesc{
			{
				Name:     "Ground",
				Position: mgl32.Vec3{0, 0, -1},
				Shape:    physics.ShapeDesc{Type: "box", HalfExtents: mgl32.Vec3{50, 50, 1}},
			},
			{
				Name:     "Cube.001",
				Mass:     1,
				Position: mgl32.Vec3{0, 0, 5},
				Shape:    physics.ShapeDesc{Type: "box", HalfExtents: mgl32.Vec3{1, 1, 1}},
			},
		},
	}
}

// WriteDemo writes a ground plane and a cube into dir and points the
// config paths at them.
func WriteDemo(dir string, cfg *config.Config) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "Failed to create %q", dir)
	}

	cfg.Paths.Scene = filepath.Join(dir, "scene.glb")
	cfg.Paths.Physics = filepath.Join(dir, "physics.yaml")
	cfg.Paths.Assets = dir
	cfg.Paths.Instances = filepath.Join(dir, "bodies.dat")

	f, err := os.Create(cfg.Paths.Scene)
	if err != nil {
		return errors.Wrapf(err, "Failed to create %q", cfg.Paths.Scene)
	}
	defer f.Close()
	if err := gltfutils.ExportBinary(f, demoDocument()); err != nil {
		return errors.Wrapf(err, "Failed to write demo scene")
	}

	data, err := yaml.Marshal(demoWorld())
	if err != nil {
		return errors.Wrapf(err, "Failed to marshal demo world")
	}
	if err := ioutil.WriteFile(cfg.Paths.Physics, data, 0644); err != nil {
		return errors.Wrapf(err, "Failed to write %q", cfg.Paths.Physics)
	}
	return nil
}
