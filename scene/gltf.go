package scene

import (
	"fmt"
	"log"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/mogaika/shoestring/utils"
)

const defaultAspect = 1.77778

// Import reads a gltf or glb file.
func Import(path string) (*Scene, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to open scene %q", path)
	}
	s, err := FromDocument(doc)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to import scene %q", path)
	}
	log.Printf("[scene] Imported %q: %d meshes, %d materials, %d cameras",
		path, len(s.Meshes), len(s.Materials), len(s.Cameras))
	return s, nil
}

func FromDocument(doc *gltf.Document) (*Scene, error) {
	s := &Scene{Root: &Node{Name: "", Transform: mgl32.Ident4()}}

	sceneIndex := 0
	if doc.Scene != nil {
		sceneIndex = int(*doc.Scene)
	}
	if len(doc.Scenes) > sceneIndex {
		for _, iNode := range doc.Scenes[sceneIndex].Nodes {
			s.Root.Children = append(s.Root.Children, importNode(doc, iNode, s))
		}
	}

	for _, m := range doc.Materials {
		s.Materials = append(s.Materials, importMaterial(doc, m))
	}

	for iMesh, m := range doc.Meshes {
		name := m.Name
		if name == "" {
			name = fmt.Sprintf("mesh%d", iMesh)
		}
		for iPrimitive, p := range m.Primitives {
			primitiveName := name
			if iPrimitive > 0 {
				primitiveName = fmt.Sprintf("%s_%d", name, iPrimitive)
			}
			raw, err := importPrimitive(doc, p)
			if err != nil {
				return nil, errors.Wrapf(err, "Mesh %q", primitiveName)
			}
			raw.Name = primitiveName
			s.Meshes = append(s.Meshes, *raw)
		}
	}
	return s, nil
}

func nodeTransform(n *gltf.Node) mgl32.Mat4 {
	m := mgl32.Mat4(n.MatrixOrDefault())
	if m != mgl32.Ident4() {
		return m
	}
	t := n.TranslationOrDefault()
	r := n.RotationOrDefault()
	sc := n.ScaleOrDefault()
	q := mgl32.Quat{W: r[3], V: mgl32.Vec3{r[0], r[1], r[2]}}
	return mgl32.Translate3D(t[0], t[1], t[2]).Mul4(q.Mat4()).Mul4(mgl32.Scale3D(sc[0], sc[1], sc[2]))
}

func importNode(doc *gltf.Document, index uint32, s *Scene) *Node {
	gn := doc.Nodes[index]
	n := &Node{Name: gn.Name, Transform: nodeTransform(gn)}

	if gn.Camera != nil {
		if c, ok := importCamera(doc.Cameras[*gn.Camera], gn.Name); ok {
			s.Cameras = append(s.Cameras, c)
		}
	}
	for _, child := range gn.Children {
		n.Children = append(n.Children, importNode(doc, child, s))
	}
	return n
}

func importCamera(c *gltf.Camera, nodeName string) (RawCamera, bool) {
	if c.Perspective == nil {
		log.Printf("[scene] Camera %q is not perspective, skipped", nodeName)
		return RawCamera{}, false
	}
	p := c.Perspective
	rc := RawCamera{
		Name:   nodeName,
		Near:   p.Znear,
		Far:    10000,
		Aspect: defaultAspect,
	}
	if p.AspectRatio != nil {
		rc.Aspect = *p.AspectRatio
	}
	if p.Zfar != nil {
		rc.Far = *p.Zfar
	}
	rc.HorizontalFov = 2 * math32.Atan(math32.Tan(p.Yfov/2)*rc.Aspect)
	return rc, true
}

func importMaterial(doc *gltf.Document, m *gltf.Material) RawMaterial {
	rm := RawMaterial{Name: m.Name}
	pbr := m.PBRMetallicRoughness
	if pbr == nil {
		return rm
	}
	if pbr.BaseColorFactor != nil {
		c := utils.ColorFloat(*pbr.BaseColorFactor)
		rm.Diffuse = &c
	}
	if pbr.RoughnessFactor != nil {
		shininess := 1 - *pbr.RoughnessFactor
		rm.Shininess = &shininess
	}
	if pbr.BaseColorTexture != nil && int(pbr.BaseColorTexture.Index) < len(doc.Textures) {
		tex := doc.Textures[pbr.BaseColorTexture.Index]
		if tex.Source != nil && int(*tex.Source) < len(doc.Images) {
			img := doc.Images[*tex.Source]
			if img.URI != "" && !img.IsEmbeddedResource() {
				rm.TextureFile = img.URI
			} else {
				log.Printf("[scene] Material %q uses an embedded image, texture skipped", m.Name)
			}
		}
	}
	return rm
}

func importPrimitive(doc *gltf.Document, p *gltf.Primitive) (*RawMesh, error) {
	raw := &RawMesh{Material: -1, Animated: len(p.Targets) > 0}
	if p.Material != nil {
		raw.Material = int(*p.Material)
	}

	posIndex, ok := p.Attributes["POSITION"]
	if !ok {
		return nil, errors.Errorf("Primitive has no positions")
	}
	positions, err := modeler.ReadPosition(doc, doc.Accessors[posIndex], nil)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to read positions")
	}
	raw.Positions = make([]mgl32.Vec3, len(positions))
	for i, v := range positions {
		raw.Positions[i] = v
	}

	if normIndex, ok := p.Attributes["NORMAL"]; ok {
		normals, err := modeler.ReadNormal(doc, doc.Accessors[normIndex], nil)
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to read normals")
		}
		raw.Normals = make([]mgl32.Vec3, len(normals))
		for i, v := range normals {
			raw.Normals[i] = v
		}
	}

	if uvIndex, ok := p.Attributes["TEXCOORD_0"]; ok {
		uvs, err := modeler.ReadTextureCoord(doc, doc.Accessors[uvIndex], nil)
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to read texture coordinates")
		}
		raw.UVs = make([]mgl32.Vec2, len(uvs))
		for i, v := range uvs {
			raw.UVs[i] = v
		}
	}

	if p.Indices != nil {
		indices, err := modeler.ReadIndices(doc, doc.Accessors[*p.Indices], nil)
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to read indices")
		}
		raw.Indices = indices
	} else {
		raw.Indices = make([]uint32, len(raw.Positions))
		for i := range raw.Indices {
			raw.Indices[i] = uint32(i)
		}
	}
	return raw, nil
}
