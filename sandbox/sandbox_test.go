package sandbox

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"

	"github.com/mogaika/shoestring/config"
	"github.com/mogaika/shoestring/render"
	"github.com/mogaika/shoestring/utils"
	"github.com/mogaika/shoestring/utils/gltfutils"
)

const testPhysics = `
gravity: [0, 0, -9.82]
bodies:
  - name: Ground
    mass: 0
    position: [0, 0, -1]
    shape: {type: box, half_extents: [50, 50, 1]}
  - name: Cube.001
    mass: 1
    shape: {type: box, half_extents: [1, 1, 1]}
  - name: Ghost
    mass: 1
    position: [20, 20, 5]
    shape: {type: sphere, radius: 1}
`

func writeTestScene(t *testing.T, path string) {
	gc := gltfutils.NewCacher()
	mat := gc.AddMaterial("Grey", utils.White)
	tri := [][3]float32{{-1, -1, 0}, {1, -1, 0}, {0, 1, 0}}
	normals := [][3]float32{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}}
	cube := gc.AddMesh("Cube", tri, normals, nil, []uint32{0, 1, 2}, &mat)
	ground := gc.AddMesh("Ground", tri, normals, nil, []uint32{0, 1, 2}, &mat)

	gc.AddNode("Ground", ground, mgl32.Translate3D(0, 0, -1))
	gc.AddNode("Cube", cube, mgl32.Translate3D(0, 0, 2.5))
	gc.AddNode("Cube", cube, mgl32.Translate3D(5, 0, 2.5))

	doc := gc.Doc
	doc.Cameras = append(doc.Cameras, &gltf.Camera{
		Name:        "Camera",
		Perspective: &gltf.Perspective{Yfov: 0.8, Znear: 0.1},
	})
	doc.Nodes = append(doc.Nodes, &gltf.Node{
		Name:        "Camera",
		Camera:      gltf.Index(0),
		Translation: [3]float32{0, -10, 2},
		Rotation:    [4]float32{0, 0, 0, 1},
		Scale:       [3]float32{1, 1, 1},
	})

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := gltfutils.ExportBinary(f, doc); err != nil {
		t.Fatal(err)
	}
}

func testConfig(t *testing.T) *config.Config {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.Scene = filepath.Join(dir, "scene.glb")
	cfg.Paths.Physics = filepath.Join(dir, "physics.yaml")
	cfg.Paths.Assets = dir
	cfg.Paths.Instances = filepath.Join(dir, "bodies.dat")
	cfg.Player.Name = "tester"
	cfg.Player.Radius = 0.5
	cfg.Player.Height = 1
	cfg.Sandbox.AppName = ""
	cfg.Sandbox.SpawnDistance = 5
	cfg.Sandbox.TargetFPS = 0

	writeTestScene(t, cfg.Paths.Scene)
	if err := ioutil.WriteFile(cfg.Paths.Physics, []byte(testPhysics), 0644); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func newTestSandbox(t *testing.T) (*Sandbox, *render.Recorder) {
	rec := &render.Recorder{}
	s, err := New(testConfig(t), rec, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s, rec
}

func TestNew(t *testing.T) {
	s, _ := newTestSandbox(t)

	objects := s.Registry.Objects()
	if len(objects) != 2 || objects[0].Name != "Cube" || objects[1].Name != "Ground" {
		t.Fatalf("objects = %v; expected Cube and Ground", objects)
	}
	if len(objects[0].Instances) != 1 {
		t.Errorf("Cube has %d instances; expected 1 from the second scene node", len(objects[0].Instances))
	}
	if p := objects[0].Template.Origin(); !p.ApproxEqual(mgl32.Vec3{0, 0, 2.5}) {
		t.Errorf("Cube template at %v; expected the first scene node", p)
	}

	// ground, cube, instance, ghost, player
	if n := s.World.NumBodies(); n != 5 {
		t.Errorf("world has %d bodies; expected 5", n)
	}

	snap := s.Snapshot()
	if len(snap.Unbound) != 1 || snap.Unbound[0].Name != "Ghost" {
		t.Errorf("unbound = %v; expected Ghost", snap.Unbound)
	}
	if p := s.Player.Origin(); !p.ApproxEqual(mgl32.Vec3{0, -10, 2}) {
		t.Errorf("player spawned at %v; expected camera node position", p)
	}
	if s.Camera.Name != "Camera" {
		t.Errorf("camera = %q", s.Camera.Name)
	}
}

func TestNewMissingScene(t *testing.T) {
	cfg := testConfig(t)
	cfg.Paths.Scene = filepath.Join(t.TempDir(), "missing.glb")
	if _, err := New(cfg, nil, nil); err == nil {
		t.Fatal("New succeeded without a scene")
	}
}

func TestNewFallsBackToSpawnPoint(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sandbox.Camera = "Missing"
	cfg.Sandbox.SpawnPoint = mgl32.Vec3{3, 3, 3}
	s, err := New(cfg, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if p := s.Player.Origin(); !p.ApproxEqual(mgl32.Vec3{3, 3, 3}) {
		t.Errorf("player at %v; expected spawn point", p)
	}
}

func TestTickSpawnAndRender(t *testing.T) {
	s, rec := newTestSandbox(t)
	cube, _ := s.Registry.Find("Cube")

	s.Events.Push(KeyEvent{Key: KeySpace, Down: true})
	s.Events.Push(KeyEvent{Key: KeySpace, Down: false})
	if err := s.Tick(); err != nil {
		t.Fatal(err)
	}

	if len(cube.Instances) != 2 {
		t.Fatalf("Cube has %d instances after spawn; expected 2", len(cube.Instances))
	}
	spawned := cube.Instances[1].Origin()
	if spawned.Y() > -4.9 || spawned.Y() < -5.1 {
		t.Errorf("spawned at %v; expected five units ahead of the player", spawned)
	}

	if rec.Frames != 1 {
		t.Fatalf("rendered %d frames; expected 1", rec.Frames)
	}
	var preview *render.DrawCall
	for _, call := range rec.Highlighted() {
		if call.Tint == utils.Blue {
			c := call
			preview = &c
		}
	}
	if preview == nil {
		t.Fatal("no spawn preview in frame")
	}
	if preview.Object != "Cube" {
		t.Errorf("preview of %q; expected Cube", preview.Object)
	}

	if snap := s.Snapshot(); snap.Ticks != 1 || snap.Target == "" {
		t.Errorf("snapshot ticks=%d target=%q; expected a target after one tick", snap.Ticks, snap.Target)
	}
}

func TestSnapshotIsCopied(t *testing.T) {
	s, _ := newTestSandbox(t)
	if err := s.SpawnCurrent(); err != nil {
		t.Fatal(err)
	}
	if err := s.Tick(); err != nil {
		t.Fatal(err)
	}

	first := s.Snapshot()
	if len(first.Objects) == 0 || len(first.Objects[0].Bodies) == 0 {
		t.Fatalf("snapshot has no bodies: %+v", first)
	}
	first.Objects[0].Name = "changed"
	first.Objects[0].Bodies[0].Position[0] = 1000
	first.Player.Name = "changed"

	second := s.Snapshot()
	if second.Objects[0].Name == "changed" || second.Objects[0].Bodies[0].Position[0] == 1000 {
		t.Errorf("published objects share memory with a returned snapshot")
	}
	if second.Player.Name == "changed" {
		t.Errorf("published player shares memory with a returned snapshot")
	}
}

func TestCycleWraps(t *testing.T) {
	s, _ := newTestSandbox(t)

	s.Events.Push(KeyEvent{Key: KeyJ, Down: true})
	if err := s.Tick(); err != nil {
		t.Fatal(err)
	}
	if s.CreateIndex != 1 {
		t.Errorf("J from 0 gave %d; expected wrap to 1", s.CreateIndex)
	}
	if got := s.Cycle(1); got != 0 {
		t.Errorf("Cycle(1) from 1 = %d; expected 0", got)
	}
	if got := s.Cycle(5); got != 1 {
		t.Errorf("Cycle(5) from 0 = %d; expected 1", got)
	}
	if obj, _ := s.CurrentObject(); obj.Name != "Ground" {
		t.Errorf("current object %q; expected Ground", obj.Name)
	}
}

func TestClearSaveRestore(t *testing.T) {
	s, _ := newTestSandbox(t)
	cube, _ := s.Registry.Find("Cube")

	if err := s.SpawnCurrent(); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(); err != nil {
		t.Fatal(err)
	}
	saved := s.Registry.NumInstances()

	if n := s.ClearInstances(); n != saved {
		t.Errorf("cleared %d; expected %d", n, saved)
	}
	if !cube.Template.InWorld() {
		t.Error("template removed by clear")
	}

	s.Events.Push(KeyEvent{Key: KeyP, Down: true})
	if err := s.Tick(); err != nil {
		t.Fatal(err)
	}
	if n := s.Registry.NumInstances(); n != saved {
		t.Errorf("restored %d instances; expected %d", n, saved)
	}
}

func TestSpawnGrid(t *testing.T) {
	s, _ := newTestSandbox(t)
	n, err := s.SpawnGrid("Cube", 3, 2)
	if err != nil {
		t.Fatal(err)
	}
	if n != 9 {
		t.Errorf("grid spawned %d; expected 9", n)
	}
	if _, err := s.SpawnGrid("Nope", 2, 2); err == nil {
		t.Error("grid of unknown object succeeded")
	}
}

func TestInputEvents(t *testing.T) {
	s, _ := newTestSandbox(t)
	heading := s.Player.Heading

	s.Events.Push(MouseMoveEvent{DX: 100})
	s.Events.Push(ButtonEvent{Button: ButtonRight, Down: true})
	s.Events.Push(KeyEvent{Key: KeyW, Down: true})
	if err := s.Tick(); err != nil {
		t.Fatal(err)
	}

	if s.Player.Heading == heading {
		t.Error("mouse move did not turn the player")
	}
	if vz := s.Player.Body.LinearVelocity().Z(); vz < 9 {
		t.Errorf("vertical velocity %v after jump; expected about %v", vz, s.Config.Player.JumpSpeed)
	}
	if v := s.Player.Body.LinearVelocity(); v.Vec2().Len() < s.Config.Player.MovementSpeed*0.99 {
		t.Errorf("horizontal velocity %v; expected movement speed", v)
	}
}

func TestJumpOnRightPressOnly(t *testing.T) {
	s, _ := newTestSandbox(t)

	s.Events.Push(ButtonEvent{Button: ButtonRight, Down: false})
	if err := s.Tick(); err != nil {
		t.Fatal(err)
	}
	if vz := s.Player.Body.LinearVelocity().Z(); vz > 0 {
		t.Errorf("vertical velocity %v after release; expected no jump", vz)
	}

	s.Events.Push(ButtonEvent{Button: ButtonRight, Down: true})
	if err := s.Tick(); err != nil {
		t.Fatal(err)
	}
	if vz := s.Player.Body.LinearVelocity().Z(); vz < s.Config.Player.JumpSpeed*0.9 {
		t.Errorf("vertical velocity %v after press; expected about %v", vz, s.Config.Player.JumpSpeed)
	}
}

func TestQuit(t *testing.T) {
	s, _ := newTestSandbox(t)
	s.Events.Push(QuitEvent{Reason: "test"})
	if err := s.Tick(); errors.Cause(err) != ErrQuit {
		t.Errorf("Tick = %v; expected ErrQuit", err)
	}

	s.Events.Push(KeyEvent{Key: KeyEscape, Down: true})
	if err := s.Run(context.Background(), 0); err != nil {
		t.Errorf("Run = %v; expected nil on quit", err)
	}
}

func TestRunMaxTicks(t *testing.T) {
	s, rec := newTestSandbox(t)
	if err := s.Run(context.Background(), 3); err != nil {
		t.Fatal(err)
	}
	if s.Ticks() != 3 || rec.Frames != 3 {
		t.Errorf("ticks=%d frames=%d; expected 3", s.Ticks(), rec.Frames)
	}
}

func TestDo(t *testing.T) {
	s, _ := newTestSandbox(t)
	s.Config.Sandbox.TargetFPS = 120

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, 0) }()

	callCtx, callCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer callCancel()
	err := s.Do(callCtx, func(s *Sandbox) error {
		_, err := s.SpawnGrid("Cube", 2, 3)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Do(callCtx, func(s *Sandbox) error { return errors.New("boom") }); err == nil || err.Error() != "boom" {
		t.Errorf("Do = %v; expected boom", err)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if n := s.Registry.NumInstances(); n != 5 {
		t.Errorf("%d instances; expected 1 placed plus 4 from the grid", n)
	}
}

func TestApplyConfig(t *testing.T) {
	s, _ := newTestSandbox(t)
	cfg := config.Default()
	cfg.Player.MovementSpeed = 42
	cfg.Player.Name = "other"
	cfg.Interaction.ThrowSpeed = 7
	cfg.Physics.Gravity = mgl32.Vec3{0, 0, -1}

	s.ApplyConfig(cfg)
	if s.Player.Config.MovementSpeed != 42 || s.Player.Config.Name != "tester" {
		t.Errorf("player config = %+v", s.Player.Config)
	}
	if s.Interaction.Config.ThrowSpeed != 7 {
		t.Errorf("throw speed = %v", s.Interaction.Config.ThrowSpeed)
	}
	if g := s.World.Gravity(); g != (mgl32.Vec3{0, 0, -9.82}) {
		t.Errorf("gravity = %v; expected the physics file value", g)
	}
}

func TestApplyConfigGravityWithoutFileGravity(t *testing.T) {
	cfg := testConfig(t)
	physicsNoGravity := strings.Replace(testPhysics, "gravity: [0, 0, -9.82]\n", "", 1)
	if err := ioutil.WriteFile(cfg.Paths.Physics, []byte(physicsNoGravity), 0644); err != nil {
		t.Fatal(err)
	}
	cfg.Physics.Gravity = mgl32.Vec3{0, 0, -3}
	s, err := New(cfg, &render.Recorder{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if g := s.World.Gravity(); g != cfg.Physics.Gravity {
		t.Fatalf("gravity = %v; expected config value", g)
	}

	reload := config.Default()
	reload.Physics.Gravity = mgl32.Vec3{0, 0, -1}
	s.ApplyConfig(reload)
	if g := s.World.Gravity(); g != reload.Physics.Gravity {
		t.Errorf("gravity = %v; expected reloaded config value", g)
	}
}

func TestClose(t *testing.T) {
	s, _ := newTestSandbox(t)
	s.SpawnCurrent()
	s.Close()
	if n := s.World.NumBodies(); n != 0 {
		t.Errorf("%d bodies left after close", n)
	}
	if s.Player.Body.InWorld() {
		t.Error("player still in world")
	}
}

var parseKeyTests = []struct {
	name string
	key  Key
	ok   bool
}{
	{"w", KeyW, true},
	{"Space", KeySpace, true},
	{"ESCAPE", KeyEscape, true},
	{"q", KeyUnknown, false},
}

func TestParseKey(t *testing.T) {
	for _, test := range parseKeyTests {
		key, err := ParseKey(test.name)
		if (err == nil) != test.ok || key != test.key {
			t.Errorf("ParseKey(%q) = %v, %v; expected %v", test.name, key, err, test.key)
		}
	}
	if b, err := ParseButton("middle"); err != nil || b != ButtonMiddle {
		t.Errorf("ParseButton(middle) = %v, %v", b, err)
	}
}

func TestWriteDemo(t *testing.T) {
	cfg := config.Default()
	cfg.Sandbox.AppName = ""
	if err := WriteDemo(t.TempDir(), cfg); err != nil {
		t.Fatal(err)
	}
	s, err := New(cfg, &render.Recorder{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Registry.Objects()) != 2 || len(s.Registry.Unbound()) != 0 {
		t.Errorf("demo objects %d unbound %d", len(s.Registry.Objects()), len(s.Registry.Unbound()))
	}
	if mesh, ok := s.Assets.FindMesh("Cube"); !ok || mesh.VertexCount() != 24 {
		t.Errorf("demo cube mesh = %v", mesh)
	}
	if err := s.Run(context.Background(), 10); err != nil {
		t.Fatal(err)
	}
}
