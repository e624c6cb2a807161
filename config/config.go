package config

import (
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Paths struct {
	Scene     string `yaml:"scene"`
	Physics   string `yaml:"physics"`
	Assets    string `yaml:"assets"`
	Instances string `yaml:"instances"`
}

type Physics struct {
	Gravity        mgl32.Vec3 `yaml:"gravity"`
	FixedStep      float32    `yaml:"fixed_step"`
	SleepThreshold float32    `yaml:"sleep_threshold"`
	SleepTime      float32    `yaml:"sleep_time"`
	Iterations     int        `yaml:"iterations"`
}

type Player struct {
	Name             string  `yaml:"name"`
	Mass             float32 `yaml:"mass"`
	Height           float32 `yaml:"height"`
	Radius           float32 `yaml:"radius"`
	EyeHeight        float32 `yaml:"eye_height"`
	MovementSpeed    float32 `yaml:"movement_speed"`
	BreakFactor      float32 `yaml:"break_factor"`
	MouseSensitivity float32 `yaml:"mouse_sensitivity"`
	JumpSpeed        float32 `yaml:"jump_speed"`
	RequireGround    bool    `yaml:"require_ground"`
	InclinationMin   float32 `yaml:"inclination_min"`
	InclinationMax   float32 `yaml:"inclination_max"`
}

type Interaction struct {
	RayLength        float32 `yaml:"ray_length"`
	HoldDistance     float32 `yaml:"hold_distance"`
	PullGain         float32 `yaml:"pull_gain"`
	ThrowSpeed       float32 `yaml:"throw_speed"`
	GrappleThreshold float32 `yaml:"grapple_threshold"`
}

type Sandbox struct {
	TargetFPS      int        `yaml:"target_fps"`
	SpawnDistance  float32    `yaml:"spawn_distance"`
	SpawnPoint     mgl32.Vec3 `yaml:"spawn_point"`
	Camera         string     `yaml:"camera"`
	TintMode       string     `yaml:"tint_mode"`
	TintSeed       int64      `yaml:"tint_seed"`
	MaxTextureSize int        `yaml:"max_texture_size"`
	AppName        string     `yaml:"app_name"`
}

type Web struct {
	Addr string `yaml:"addr"`
}

type Config struct {
	Paths       Paths       `yaml:"paths"`
	Physics     Physics     `yaml:"physics"`
	Player      Player      `yaml:"player"`
	Interaction Interaction `yaml:"interaction"`
	Sandbox     Sandbox     `yaml:"sandbox"`
	Web         Web         `yaml:"web"`
	Encoding    string      `yaml:"encoding"`
}

func Default() *Config {
	return &Config{
		Paths: Paths{
			Scene:     "assets/scene.glb",
			Physics:   "assets/physics.yaml",
			Assets:    "assets",
			Instances: "bodies.dat",
		},
		Physics: Physics{
			Gravity:        mgl32.Vec3{0, 0, -9.82},
			FixedStep:      1.0 / 60.0,
			SleepThreshold: 0.05,
			SleepTime:      2,
			Iterations:     10,
		},
		Player: Player{
			Mass:             1,
			Height:           2,
			Radius:           2,
			EyeHeight:        0,
			MovementSpeed:    8,
			BreakFactor:      -25,
			MouseSensitivity: 0.005,
			JumpSpeed:        10,
			InclinationMin:   4.75,
			InclinationMax:   7.8,
		},
		Interaction: Interaction{
			RayLength:        10000,
			HoldDistance:     10,
			PullGain:         2.5,
			ThrowSpeed:       40,
			GrappleThreshold: 10,
		},
		Sandbox: Sandbox{
			TargetFPS:     60,
			SpawnDistance: 10,
			SpawnPoint:    mgl32.Vec3{0, 0, 10},
			Camera:        "Camera",
			TintMode:      "white",
			TintSeed:      0,
			AppName:       "shoestring",
		},
		Web: Web{
			Addr: ":8000",
		},
		Encoding: "Windows 1252",
	}
}

// Load reads a yaml config on top of Default. Missing file is not an error.
func Load(path string) (*Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}

	path, err := homedir.Expand(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to expand %q", path)
	}

	data, err := ioutil.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, errors.Wrapf(err, "Failed to read config %q", path)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, errors.Wrapf(err, "Failed to parse config %q", path)
	}

	if err := c.expandPaths(); err != nil {
		return nil, err
	}
	if err := SetEncoding(c.Encoding); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrapf(err, "Failed to marshal config")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrapf(err, "Failed to create %q", dir)
		}
	}
	if err := ioutil.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(err, "Failed to write config %q", path)
	}
	return nil
}

func (c *Config) expandPaths() error {
	for _, p := range []*string{&c.Paths.Scene, &c.Paths.Physics, &c.Paths.Assets, &c.Paths.Instances} {
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return errors.Wrapf(err, "Failed to expand %q", *p)
		}
		*p = expanded
	}
	return nil
}
