package gltfutils

import (
	"io"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/mogaika/shoestring/utils"
)

type GLTFCacher struct {
	Doc   *gltf.Document
	cache map[string]interface{}
}

func NewCacher() *GLTFCacher {
	return &GLTFCacher{
		Doc:   gltf.NewDocument(),
		cache: make(map[string]interface{}),
	}
}

func (gc *GLTFCacher) AddCache(key string, v interface{}) {
	gc.cache[key] = v
}

func (gc *GLTFCacher) GetCached(key string) interface{} {
	return gc.cache[key]
}

func (gc *GLTFCacher) GetCachedOr(key string, create func() interface{}) interface{} {
	if v, ok := gc.cache[key]; ok {
		return v
	}
	v := create()
	gc.cache[key] = v
	return v
}

func (gc *GLTFCacher) AddMaterial(name string, color utils.ColorFloat) uint32 {
	c := [4]float32(color)
	gc.Doc.Materials = append(gc.Doc.Materials, &gltf.Material{
		Name:        name,
		DoubleSided: true,
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: &c,
		},
	})
	return uint32(len(gc.Doc.Materials) - 1)
}

// AddMesh writes one primitive mesh. normals and uvs may be nil.
func (gc *GLTFCacher) AddMesh(name string, positions, normals [][3]float32, uvs [][2]float32, indices []uint32, material *uint32) uint32 {
	doc := gc.Doc
	attributes := map[string]uint32{
		"POSITION": modeler.WritePosition(doc, positions),
	}
	if normals != nil {
		attributes["NORMAL"] = modeler.WriteNormal(doc, normals)
	}
	if uvs != nil {
		attributes["TEXCOORD_0"] = modeler.WriteTextureCoord(doc, uvs)
	}
	indicesAccessor := modeler.WriteIndices(doc, indices)

	doc.Meshes = append(doc.Meshes, &gltf.Mesh{
		Name: name,
		Primitives: []*gltf.Primitive{{
			Indices:    &indicesAccessor,
			Attributes: attributes,
			Material:   material,
		}},
	})
	return uint32(len(doc.Meshes) - 1)
}

// AddNode adds a root node placed by transform.
func (gc *GLTFCacher) AddNode(name string, mesh uint32, transform mgl32.Mat4) uint32 {
	pos, rot, scale := utils.DecomposeTransform(transform)
	gc.Doc.Nodes = append(gc.Doc.Nodes, &gltf.Node{
		Name:        name,
		Mesh:        gltf.Index(mesh),
		Translation: [3]float32(pos),
		Rotation:    [4]float32{rot.X(), rot.Y(), rot.Z(), rot.W},
		Scale:       [3]float32(scale),
	})
	return uint32(len(gc.Doc.Nodes) - 1)
}

// ExportBinary puts every node into the default scene and writes a glb.
func ExportBinary(w io.Writer, doc *gltf.Document) error {
	doc.Scenes[0].Nodes = doc.Scenes[0].Nodes[:0]
	for iNode := range doc.Nodes {
		doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, uint32(iNode))
	}

	encoder := gltf.NewEncoder(w)
	encoder.AsBinary = true
	return encoder.Encode(doc)
}
