package registry

import (
	"io"
	"io/ioutil"
	"log"
	"path/filepath"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/shoestring/asset"
	"github.com/mogaika/shoestring/utils"
	"github.com/mogaika/shoestring/utils/fbxbuilder"
	"github.com/mogaika/shoestring/utils/gltfutils"
)

func tinted(mat *asset.MaterialTemplate, tint utils.ColorFloat) utils.ColorFloat {
	var c utils.ColorFloat
	for i := range c {
		c[i] = mat.Diffuse[i] * tint[i]
	}
	return c
}

// ExportGLTF writes a glb with a mesh per object and a node per live body.
// Transforms are written in sandbox z-up space, the same space scene.Import
// reads, so an export loads back as the scene it came from.
func (r *Registry) ExportGLTF(w io.Writer) error {
	gc := gltfutils.NewCacher()

	for _, o := range r.Objects() {
		o := o
		material := gc.AddMaterial(o.Name, tinted(r.lib.Material(o.Mesh.Material), o.Tint))
		mesh := gc.GetCachedOr(o.Mesh.Name, func() interface{} {
			positions := make([][3]float32, o.Mesh.VertexCount())
			normals := make([][3]float32, o.Mesh.VertexCount())
			var uvs [][2]float32
			if o.Mesh.HasTexture {
				uvs = make([][2]float32, o.Mesh.VertexCount())
			}
			for i := range positions {
				positions[i] = o.Mesh.Position(i)
				normals[i] = o.Mesh.Normal(i)
				if uvs != nil {
					uvs[i] = o.Mesh.UV(i)
				}
			}
			return gc.AddMesh(o.Mesh.Name, positions, normals, uvs, o.Mesh.Indices, &material)
		}).(uint32)

		for _, b := range o.Bodies() {
			gc.AddNode(o.Name, mesh, b.Transform())
		}
	}

	return gltfutils.ExportBinary(w, gc.Doc)
}

// ExportFBX writes an fbx 7400 file with a model per live body.
func (r *Registry) ExportFBX(w io.Writer) error {
	return r.buildFBX().Write(w)
}

// ExportFBXZip writes the fbx together with every texture file the bound
// meshes use.
func (r *Registry) ExportFBXZip(w io.Writer) error {
	f := r.buildFBX()
	added := make(map[string]bool)
	for _, o := range r.Objects() {
		mat := r.lib.Material(o.Mesh.Material)
		if !o.Mesh.HasTexture || mat.TexturePath == "" || added[mat.TexturePath] {
			continue
		}
		added[mat.TexturePath] = true
		data, err := ioutil.ReadFile(mat.TexturePath)
		if err != nil {
			log.Printf("[registry] Texture %q not exported: %v", mat.TexturePath, err)
			continue
		}
		f.AddExportFile(filepath.Base(mat.TexturePath), data)
	}
	return f.WriteZip(w, "scene.fbx")
}

func (r *Registry) buildFBX() *fbxbuilder.FBXBuilder {
	f := fbxbuilder.NewFBXBuilder("scene.fbx", fbxbuilder.ZUp, time.Time{})

	for _, o := range r.Objects() {
		material := f.AddMaterial(o.Name, tinted(r.lib.Material(o.Mesh.Material), o.Tint))

		var geometry int64
		if cached := f.GetCached(o.Mesh.Name); cached != nil {
			geometry = cached.(int64)
		} else {
			positions := make([]mgl32.Vec3, o.Mesh.VertexCount())
			normals := make([]mgl32.Vec3, o.Mesh.VertexCount())
			for i := range positions {
				positions[i] = o.Mesh.Position(i)
				normals[i] = o.Mesh.Normal(i)
			}
			geometry = f.AddGeometry(positions, normals, o.Mesh.Indices)
			f.AddCache(o.Mesh.Name, geometry)
		}

		for _, b := range o.Bodies() {
			f.AddModel(o.Name, geometry, material, b.Transform())
		}
	}
	return f
}
