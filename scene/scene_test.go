package scene

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

func testGraph() *Node {
	return &Node{
		Name:      "root",
		Transform: mgl32.Translate3D(0, 0, 1),
		Children: []*Node{
			{
				Name:      "a",
				Transform: mgl32.Translate3D(1, 0, 0),
				Children: []*Node{
					{Name: "dup", Transform: mgl32.Translate3D(0, 1, 0)},
				},
			},
			{Name: "dup", Transform: mgl32.Scale3D(2, 2, 2)},
		},
	}
}

func TestFlattenPreOrder(t *testing.T) {
	instances := Flatten(testGraph())
	names := []string{"root", "a", "dup", "dup"}
	if len(instances) != len(names) {
		t.Fatalf("Flatten returned %d instances; expected %d", len(instances), len(names))
	}
	for i, name := range names {
		if instances[i].Name != name {
			t.Errorf("instance %d = %q; expected %q", i, instances[i].Name, name)
		}
	}

	if p := instances[2].Transform.Col(3).Vec3(); !p.ApproxEqual(mgl32.Vec3{1, 1, 1}) {
		t.Errorf("nested translation = %v; expected [1 1 1]", p)
	}
}

func TestFlattenComposesLocalTimesParent(t *testing.T) {
	parent := mgl32.HomogRotate3DZ(mgl32.DegToRad(90))
	local := mgl32.Translate3D(1, 0, 0)
	root := &Node{Name: "p", Transform: parent, Children: []*Node{{Name: "c", Transform: local}}}

	instances := Flatten(root)
	expected := local.Mul4(parent)
	if !instances[1].Transform.ApproxEqual(expected) {
		t.Errorf("child transform = %v; expected local*parent %v", instances[1].Transform, expected)
	}
}

var findTests = []struct {
	name  string
	found bool
	x     float32
}{
	{"root", true, 0},
	{"a", true, 1},
	{"dup", true, 0},
	{"missing", false, 0},
}

func TestFindNodeByName(t *testing.T) {
	root := testGraph()
	for _, test := range findTests {
		n, ok := FindNodeByName(root, test.name)
		if ok != test.found {
			t.Errorf("FindNodeByName(%q) found=%v; expected %v", test.name, ok, test.found)
			continue
		}
		if ok && n.Transform.Col(3).X() != test.x {
			t.Errorf("FindNodeByName(%q) picked node with x=%v; expected %v", test.name, n.Transform.Col(3).X(), test.x)
		}
	}
	if n, _ := FindNodeByName(root, "dup"); n.Transform.Col(3).Y() != 1 {
		t.Errorf("FindNodeByName(dup) is not the first pre-order match")
	}
}

func testDocument() *gltf.Document {
	doc := gltf.NewDocument()

	positions := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	uvs := modeler.WriteTextureCoord(doc, [][2]float32{{0, 0}, {1, 0}, {0, 1}})
	indices := modeler.WriteIndices(doc, []uint32{0, 1, 2})

	color := &[4]float32{1, 0, 0, 1}
	doc.Images = append(doc.Images, &gltf.Image{URI: "bricks.png"})
	doc.Textures = append(doc.Textures, &gltf.Texture{Source: gltf.Index(0)})
	doc.Materials = append(doc.Materials, &gltf.Material{
		Name: "Red",
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor:  color,
			BaseColorTexture: &gltf.TextureInfo{Index: 0},
		},
	})

	doc.Meshes = append(doc.Meshes, &gltf.Mesh{
		Name: "Cube",
		Primitives: []*gltf.Primitive{
			{
				Indices:    gltf.Index(indices),
				Attributes: map[string]uint32{"POSITION": positions, "TEXCOORD_0": uvs},
				Material:   gltf.Index(0),
			},
			{
				Indices:    gltf.Index(indices),
				Attributes: map[string]uint32{"POSITION": positions},
			},
		},
	})

	aspect := float32(2)
	far := float32(500)
	doc.Cameras = append(doc.Cameras, &gltf.Camera{
		Perspective: &gltf.Perspective{Yfov: 1, Znear: 0.5, Zfar: &far, AspectRatio: &aspect},
	})

	doc.Nodes = append(doc.Nodes,
		&gltf.Node{Name: "Cube", Mesh: gltf.Index(0), Translation: [3]float32{1, 2, 3}, Children: []uint32{1}},
		&gltf.Node{Name: "Camera", Camera: gltf.Index(0)},
	)
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, 0)
	return doc
}

func TestFromDocument(t *testing.T) {
	s, err := FromDocument(testDocument())
	if err != nil {
		t.Fatalf("FromDocument: %v", err)
	}

	if len(s.Meshes) != 2 || s.Meshes[0].Name != "Cube" || s.Meshes[1].Name != "Cube_1" {
		t.Fatalf("meshes = %+v; expected Cube and Cube_1", s.Meshes)
	}
	m := s.Meshes[0]
	if len(m.Positions) != 3 || len(m.UVs) != 3 || len(m.Indices) != 3 || m.Material != 0 {
		t.Errorf("mesh Cube = %+v", m)
	}
	if s.Meshes[1].Material != -1 || len(s.Meshes[1].UVs) != 0 {
		t.Errorf("mesh Cube_1 = %+v; expected no material and no uvs", s.Meshes[1])
	}

	if len(s.Materials) != 1 || s.Materials[0].TextureFile != "bricks.png" ||
		s.Materials[0].Diffuse == nil || s.Materials[0].Diffuse[0] != 1 {
		t.Errorf("materials = %+v", s.Materials)
	}

	if len(s.Cameras) != 1 {
		t.Fatalf("cameras = %+v", s.Cameras)
	}
	c := s.Cameras[0]
	expectedFov := 2 * math32.Atan(math32.Tan(0.5)*2)
	if c.Name != "Camera" || c.Far != 500 || c.Aspect != 2 || math32.Abs(c.HorizontalFov-expectedFov) > 1e-5 {
		t.Errorf("camera = %+v; expected hfov %v", c, expectedFov)
	}

	cube, ok := FindNodeByName(s.Root, "Cube")
	if !ok || cube.Transform.Col(3).Vec3() != (mgl32.Vec3{1, 2, 3}) {
		t.Errorf("Cube node = %+v", cube)
	}
	if _, ok := FindNodeByName(s.Root, "Camera"); !ok {
		t.Errorf("Camera node missing")
	}
}
