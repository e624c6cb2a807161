package fbxbuilder

import (
	"archive/zip"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"time"

	"github.com/mogaika/fbx"
	"github.com/mogaika/fbx/builders/bfbx73"
	"github.com/pkg/errors"
)

const (
	fbxVersion = 7400
	creator    = "FBX SDK/FBX Plugins version 2013.3 build=20121223"
	vendor     = "shoestring"
	appVersion = "1.0"
)

var fileId = []byte{
	0x28, 0xb3, 0x2a, 0xeb, 0xb6, 0x24, 0xcc, 0xc2,
	0xbf, 0xc8, 0xb0, 0x2a, 0xa9, 0x2b, 0xfc, 0xf1}

// Axes describes the coordinate system stored in GlobalSettings.
// Axis values are 0 for x, 1 for y and 2 for z, signs are 1 or -1.
type Axes struct {
	Up, UpSign       int32
	Front, FrontSign int32
	Coord, CoordSign int32
}

// ZUp matches the sandbox world: z up, -y front, x right.
var ZUp = Axes{Up: 2, UpSign: 1, Front: 1, FrontSign: -1, Coord: 0, CoordSign: 1}

type FBXBuilder struct {
	f      *fbx.FBX
	c      map[string]interface{}
	lastId int64
	files  map[string][]byte

	objects     *fbx.Node
	connections *fbx.Node
}

// NewFBXBuilder starts a document with the given axes. created goes into
// the header timestamps, a zero time is stored as the unix epoch so
// output stays reproducible.
func NewFBXBuilder(filename string, axes Axes, created time.Time) *FBXBuilder {
	if created.IsZero() {
		created = time.Unix(0, 0)
	}
	created = created.UTC()

	f := &FBXBuilder{
		c:           make(map[string]interface{}),
		files:       make(map[string][]byte),
		lastId:      1000000,
		f:           fbx.NewFBX(fbxVersion),
		objects:     bfbx73.Objects(),
		connections: bfbx73.Connections(),
	}
	f.Root().AddNodes(
		headerExtension(filename, created),
		bfbx73.FileId(fileId),
		bfbx73.CreationTime(created.Format("2006-01-02 15:04:05:000")),
		bfbx73.Creator(creator),
		globalSettings(axes),
		bfbx73.Documents().AddNodes(
			bfbx73.Count(1),
			bfbx73.Document(f.GenerateId(), "Scene", "Scene").AddNodes(
				bfbx73.Properties70().AddNodes(
					bfbx73.P("SourceObject", "object", "", ""),
					bfbx73.P("ActiveAnimStackName", "KString", "", "", ""),
				),
				bfbx73.RootNode(0),
			),
		),
		bfbx73.References(),
		definitions(),
		f.objects,
		f.connections,
		bfbx73.Takes().AddNodes(bfbx73.Current("")),
	)
	return f
}

func headerExtension(filename string, t time.Time) *fbx.Node {
	gmt := t.Format("02/01/2006 15:04:05.000")
	return bfbx73.FBXHeaderExtension().AddNodes(
		bfbx73.FBXHeaderVersion(1003),
		bfbx73.FBXVersion(fbxVersion),
		bfbx73.EncryptionType(0),
		bfbx73.CreationTimeStamp().AddNodes(
			bfbx73.Version(1000),
			bfbx73.Year(int32(t.Year())),
			bfbx73.Month(int32(t.Month())),
			bfbx73.Day(int32(t.Day())),
			bfbx73.Hour(int32(t.Hour())),
			bfbx73.Minute(int32(t.Minute())),
			bfbx73.Second(int32(t.Second())),
			bfbx73.Millisecond(int32(t.Nanosecond()/int(time.Millisecond))),
		),
		bfbx73.Creator(creator),
		bfbx73.SceneInfo("GlobalInfo\x00\x01SceneInfo", "UserData").AddNodes(
			bfbx73.Type("UserData"),
			bfbx73.Version(100),
			bfbx73.MetaData().AddNodes(
				bfbx73.Version(100),
				bfbx73.Title(filepath.Base(filename)),
			),
			bfbx73.Properties70().AddNodes(
				bfbx73.P("DocumentUrl", "KString", "Url", "", filename),
				bfbx73.P("SrcDocumentUrl", "KString", "Url", "", filename),
				bfbx73.P("Original", "Compound", "", ""),
				bfbx73.P("Original|ApplicationVendor", "KString", "", "", vendor),
				bfbx73.P("Original|ApplicationName", "KString", "", "", vendor),
				bfbx73.P("Original|ApplicationVersion", "KString", "", "", appVersion),
				bfbx73.P("Original|DateTime_GMT", "DateTime", "", "", gmt),
				bfbx73.P("Original|FileName", "KString", "", "", filepath.Base(filename)),
			),
		),
	)
}

func globalSettings(a Axes) *fbx.Node {
	return bfbx73.GlobalSettings().AddNodes(
		bfbx73.Version(1000),
		bfbx73.Properties70().AddNodes(
			bfbx73.P("UpAxis", "int", "Integer", "", a.Up),
			bfbx73.P("UpAxisSign", "int", "Integer", "", a.UpSign),
			bfbx73.P("FrontAxis", "int", "Integer", "", a.Front),
			bfbx73.P("FrontAxisSign", "int", "Integer", "", a.FrontSign),
			bfbx73.P("CoordAxis", "int", "Integer", "", a.Coord),
			bfbx73.P("CoordAxisSign", "int", "Integer", "", a.CoordSign),
			bfbx73.P("OriginalUpAxis", "int", "Integer", "", a.Up),
			bfbx73.P("OriginalUpAxisSign", "int", "Integer", "", a.UpSign),
			// one sandbox unit is a meter
			bfbx73.P("UnitScaleFactor", "double", "Number", "", float64(100)),
			bfbx73.P("OriginalUnitScaleFactor", "double", "Number", "", float64(100)),
		),
	)
}

// definitions carries templates only for the object types the exports
// emit. Counts are filled in by countDefinitions.
func definitions() *fbx.Node {
	return bfbx73.Definitions().AddNodes(
		bfbx73.Version(100),
		bfbx73.Count(1),
		bfbx73.ObjectType("GlobalSettings").AddNodes(bfbx73.Count(1)),
		bfbx73.ObjectType("Model").AddNodes(
			bfbx73.Count(0),
			bfbx73.PropertyTemplate("FbxNode").AddNodes(
				bfbx73.Properties70().AddNodes(
					bfbx73.P("Lcl Translation", "Lcl Translation", "", "A", float64(0), float64(0), float64(0)),
					bfbx73.P("Lcl Rotation", "Lcl Rotation", "", "A", float64(0), float64(0), float64(0)),
					bfbx73.P("Lcl Scaling", "Lcl Scaling", "", "A", float64(1), float64(1), float64(1)),
					bfbx73.P("Visibility", "Visibility", "", "A", float64(1)),
				),
			),
		),
		bfbx73.ObjectType("Material").AddNodes(
			bfbx73.Count(0),
			bfbx73.PropertyTemplate("FbxSurfaceLambert").AddNodes(
				bfbx73.Properties70().AddNodes(
					bfbx73.P("ShadingModel", "KString", "", "", "Lambert"),
					bfbx73.P("DiffuseColor", "Color", "", "A", float64(1), float64(1), float64(1)),
					bfbx73.P("DiffuseFactor", "Number", "", "A", float64(1)),
				),
			),
		),
		bfbx73.ObjectType("Geometry").AddNodes(
			bfbx73.Count(0),
			bfbx73.PropertyTemplate("FbxMesh").AddNodes(
				bfbx73.Properties70().AddNodes(
					bfbx73.P("Primary Visibility", "bool", "", "", int32(1)),
					bfbx73.P("Casts Shadows", "bool", "", "", int32(1)),
					bfbx73.P("Receive Shadows", "bool", "", "", int32(1)),
				),
			),
		),
	)
}

func (f *FBXBuilder) countDefinitions() {
	counts := make(map[string]int32)
	for _, object := range f.objects.Nodes {
		counts[object.Name]++
	}

	defs := f.Root().GetNode("Definitions")
	total := int32(1)
	for _, ot := range defs.GetNodes("ObjectType") {
		name := ot.Properties[0].(string)
		if name == "GlobalSettings" {
			continue
		}
		ot.GetOrAddNode(bfbx73.Count(0)).Properties[0] = counts[name]
		total += counts[name]
		delete(counts, name)
	}
	// object types without a template
	for name, count := range counts {
		defs.AddNode(bfbx73.ObjectType(name).AddNodes(bfbx73.Count(count)))
		total += count
	}
	defs.GetOrAddNode(bfbx73.Count(0)).Properties[0] = total
}

func (f *FBXBuilder) Root() *fbx.Node {
	return &f.f.Root
}

func (f *FBXBuilder) AddCache(key string, d interface{}) {
	f.c[key] = d
}

// GetCached returns nil for unknown keys.
func (f *FBXBuilder) GetCached(key string) interface{} {
	return f.c[key]
}

func (f *FBXBuilder) GenerateId() int64 {
	f.lastId++
	return f.lastId
}

// Write goes through a temp file, fbx.Write needs to seek.
func (f *FBXBuilder) Write(w io.Writer) error {
	f.countDefinitions()

	tmp, err := ioutil.TempFile("", "shoestring.*.fbx")
	if err != nil {
		return errors.Wrapf(err, "Failed to create temp file")
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if err := fbx.Write(tmp, f.f); err != nil {
		return errors.Wrapf(err, "Failed to write fbx")
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return errors.Wrapf(err, "Unable to seek")
	}
	_, err = io.Copy(w, tmp)
	return err
}

// AddExportFile queues a file stored next to the fbx by WriteZip.
func (f *FBXBuilder) AddExportFile(name string, data []byte) {
	f.files[name] = data
}

func (f *FBXBuilder) WriteZip(w io.Writer, name string) error {
	zw := zip.NewWriter(w)

	fw, err := zw.Create(name)
	if err != nil {
		return errors.Wrapf(err, "Can't create zip entry %q", name)
	}
	if err := f.Write(fw); err != nil {
		return errors.Wrapf(err, "Fbx exporting failed")
	}

	for fileName, data := range f.files {
		fw, err := zw.Create(fileName)
		if err != nil {
			return errors.Wrapf(err, "Can't create zip entry %q", fileName)
		}
		if _, err := fw.Write(data); err != nil {
			return errors.Wrapf(err, "Can't write zip entry %q", fileName)
		}
	}
	return zw.Close()
}

func (f *FBXBuilder) AddObjects(nodes ...*fbx.Node)     { f.objects.AddNodes(nodes...) }
func (f *FBXBuilder) AddConnections(nodes ...*fbx.Node) { f.connections.AddNodes(nodes...) }
