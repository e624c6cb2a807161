package physics

import (
	"io/ioutil"
	"log"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type ShapeDesc struct {
	Type        string     `yaml:"type"`
	HalfExtents mgl32.Vec3 `yaml:"half_extents"`
	Radius      float32    `yaml:"radius"`
	Height      float32    `yaml:"height"`
	Axis        string     `yaml:"axis"`
}

type BodyDesc struct {
	Name        string     `yaml:"name"`
	Shape       ShapeDesc  `yaml:"shape"`
	Mass        float32    `yaml:"mass"`
	Position    mgl32.Vec3 `yaml:"position"`
	Rotation    []float32  `yaml:"rotation"`
	Friction    *float32   `yaml:"friction"`
	Restitution float32    `yaml:"restitution"`
	Damping     [2]float32 `yaml:"damping"`
}

type ConstraintDesc struct {
	Type  string `yaml:"type"`
	BodyA string `yaml:"body_a"`
	BodyB string `yaml:"body_b"`
}

// WorldFile is the serialized rigid body world.
type WorldFile struct {
	Gravity     *mgl32.Vec3      `yaml:"gravity"`
	Bodies      []BodyDesc       `yaml:"bodies"`
	Constraints []ConstraintDesc `yaml:"constraints"`
}

func LoadWorldFile(path string) (*WorldFile, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to read physics world %q", path)
	}
	wf, err := ParseWorldFile(data)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to load physics world %q", path)
	}
	return wf, nil
}

func ParseWorldFile(data []byte) (*WorldFile, error) {
	var wf WorldFile
	if err := yaml.Unmarshal(data, &wf); err != nil {
		return nil, errors.Wrapf(err, "Failed to parse")
	}
	return &wf, nil
}

func parseAxis(axis string) (int, error) {
	switch strings.ToLower(axis) {
	case "x":
		return 0, nil
	case "y":
		return 1, nil
	case "", "z":
		return 2, nil
	}
	return 0, errors.Errorf("Unknown axis %q", axis)
}

func (sd *ShapeDesc) Build() (Shape, error) {
	switch strings.ToLower(sd.Type) {
	case "box":
		return &Box{HalfExtents: sd.HalfExtents}, nil
	case "sphere":
		return &Sphere{Radius: sd.Radius}, nil
	case "capsule":
		axis, err := parseAxis(sd.Axis)
		if err != nil {
			return nil, err
		}
		return &Capsule{Radius: sd.Radius, Height: sd.Height, Axis: axis}, nil
	}
	return nil, errors.Errorf("Unknown shape type %q", sd.Type)
}

func (bd *BodyDesc) Info() (BodyInfo, error) {
	shape, err := bd.Shape.Build()
	if err != nil {
		return BodyInfo{}, errors.Wrapf(err, "Body %q", bd.Name)
	}
	info := DefaultBodyInfo(bd.Name, shape, bd.Mass)
	info.Position = bd.Position
	if len(bd.Rotation) != 0 {
		if len(bd.Rotation) != 4 {
			return BodyInfo{}, errors.Errorf("Body %q rotation must be a xyzw quaternion", bd.Name)
		}
		info.Rotation = mgl32.Quat{W: bd.Rotation[3], V: mgl32.Vec3{bd.Rotation[0], bd.Rotation[1], bd.Rotation[2]}}
	}
	if bd.Friction != nil {
		info.Friction = *bd.Friction
	}
	info.Restitution = bd.Restitution
	info.LinearDamping = bd.Damping[0]
	info.AngularDamping = bd.Damping[1]
	return info, nil
}

// CreateBodies builds every body in file order. Constraints are only
// reported, they do not affect the simulation.
func (wf *WorldFile) CreateBodies() ([]*Body, error) {
	bodies := make([]*Body, 0, len(wf.Bodies))
	for i := range wf.Bodies {
		info, err := wf.Bodies[i].Info()
		if err != nil {
			return nil, err
		}
		bodies = append(bodies, NewBody(info))
	}
	for _, c := range wf.Constraints {
		log.Printf("[physics] Constraint %q on %q ignored", c.Type, c.BodyA)
	}
	return bodies, nil
}
