package fbxbuilder

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/mogaika/fbx/builders/bfbx73"

	"github.com/mogaika/shoestring/utils"
)

// AddMaterial adds a lambert material and returns its id.
func (f *FBXBuilder) AddMaterial(name string, color utils.ColorFloat) int64 {
	id := f.GenerateId()
	f.AddObjects(bfbx73.Material(id, name+"\x00\x01Material", "").AddNodes(
		bfbx73.Version(102),
		bfbx73.ShadingModel("lambert"),
		bfbx73.MultiLayer(0),
		bfbx73.Properties70().AddNodes(
			bfbx73.P("AmbientColor", "Color", "", "A", float64(0), float64(0), float64(0)),
			bfbx73.P("DiffuseColor", "Color", "", "A", float64(color[0]), float64(color[1]), float64(color[2])),
			bfbx73.P("Diffuse", "Vector3D", "Vector", "", float64(color[0]), float64(color[1]), float64(color[2])),
			bfbx73.P("Opacity", "double", "Number", "", float64(color[3])),
		),
	))
	return id
}

// AddGeometry adds a triangle mesh geometry and returns its id.
// normals are per vertex and may be nil.
func (f *FBXBuilder) AddGeometry(positions []mgl32.Vec3, normals []mgl32.Vec3, indices []uint32) int64 {
	vertices := make([]float64, 0, len(positions)*3)
	for _, p := range positions {
		vertices = append(vertices, float64(p[0]), float64(p[1]), float64(p[2]))
	}

	// last index of every polygon is stored negated minus one
	polygons := make([]int32, len(indices))
	for i, idx := range indices {
		polygons[i] = int32(idx)
		if i%3 == 2 {
			polygons[i] = ^int32(idx)
		}
	}

	id := f.GenerateId()
	layer := bfbx73.Layer(0).AddNodes(bfbx73.Version(100))
	geometry := bfbx73.Geometry(id, "\x00\x01Geometry", "Mesh").AddNodes(
		bfbx73.Properties70().AddNodes(
			bfbx73.P("Color", "ColorRGB", "Color", "", float64(1), float64(1), float64(1)),
		),
		bfbx73.GeometryVersion(124),
		bfbx73.Vertices(vertices),
		bfbx73.PolygonVertexIndex(polygons),
		layer,
	)

	if normals != nil {
		geometry.AddNode(bfbx73.LayerElementNormal(0).AddNodes(
			bfbx73.Version(101),
			bfbx73.Name(""),
			bfbx73.MappingInformationType("ByVertice"),
			bfbx73.ReferenceInformationType("Direct"),
			bfbx73.Normals(vec3sTo64(normals)),
		))
		layer.AddNode(bfbx73.LayerElement().AddNodes(
			bfbx73.Type("LayerElementNormal"),
			bfbx73.TypedIndex(0),
		))
	}

	geometry.AddNode(bfbx73.LayerElementMaterial(0).AddNodes(
		bfbx73.Version(101),
		bfbx73.Name(""),
		bfbx73.MappingInformationType("AllSame"),
		bfbx73.ReferenceInformationType("IndexToDirect"),
		bfbx73.Materials([]int32{0}),
	))
	layer.AddNode(bfbx73.LayerElement().AddNodes(
		bfbx73.Type("LayerElementMaterial"),
		bfbx73.TypedIndex(0),
	))

	f.AddObjects(geometry)
	return id
}

// AddModel adds a mesh model under the scene root, placed by transform,
// and connects the geometry and the material to it.
func (f *FBXBuilder) AddModel(name string, geometryId, materialId int64, transform mgl32.Mat4) int64 {
	pos, rot, scale := utils.DecomposeTransform(transform)
	euler := utils.QuatToEuler(rot).Mul(180 / math.Pi)

	id := f.GenerateId()
	f.AddObjects(bfbx73.Model(id, name+"\x00\x01Model", "Mesh").AddNodes(
		bfbx73.Version(232),
		bfbx73.Properties70().AddNodes(
			bfbx73.P("InheritType", "enum", "", "", int32(1)),
			bfbx73.P("DefaultAttributeIndex", "int", "Integer", "", int32(0)),
			bfbx73.P("Lcl Translation", "Lcl Translation", "", "A", float64(pos[0]), float64(pos[1]), float64(pos[2])),
			bfbx73.P("Lcl Rotation", "Lcl Rotation", "", "A", float64(euler[0]), float64(euler[1]), float64(euler[2])),
			bfbx73.P("Lcl Scaling", "Lcl Scaling", "", "A", float64(scale[0]), float64(scale[1]), float64(scale[2])),
		),
		bfbx73.Shading(true),
		bfbx73.Culling("CullingOff"),
	))

	f.AddConnections(
		bfbx73.C("OO", geometryId, id),
		bfbx73.C("OO", materialId, id),
		bfbx73.C("OO", id, 0),
	)
	return id
}

func vec3sTo64(vs []mgl32.Vec3) []float64 {
	r := make([]float64, 0, len(vs)*3)
	for _, v := range vs {
		r = append(r, float64(v[0]), float64(v[1]), float64(v[2]))
	}
	return r
}
