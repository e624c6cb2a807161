package render

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestRecorderKeepsLastFrame(t *testing.T) {
	var r Recorder
	f := NewFrame(mgl32.Ident4(), mgl32.Ident4(), mgl32.Vec3{})
	f.AddCall(DrawCall{Object: "Cube"})
	f.AddCall(DrawCall{Object: "Cube", Highlight: true})
	f.AddCall(DrawCall{Object: "Sphere"})
	if err := r.Render(f); err != nil {
		t.Fatal(err)
	}

	f.Calls[0].Object = "changed"
	if r.Last.Calls[0].Object != "Cube" {
		t.Errorf("recorder shares calls with the frame")
	}

	if err := r.Render(NewFrame(mgl32.Ident4(), mgl32.Ident4(), mgl32.Vec3{})); err != nil {
		t.Fatal(err)
	}
	if r.Frames != 2 || r.TotalCalls != 3 || len(r.Last.Calls) != 0 {
		t.Errorf("frames %d calls %d last %d", r.Frames, r.TotalCalls, len(r.Last.Calls))
	}
}

func TestRecorderQueries(t *testing.T) {
	var r Recorder
	f := NewFrame(mgl32.Ident4(), mgl32.Ident4(), mgl32.Vec3{})
	f.AddCall(DrawCall{Object: "Cube"})
	f.AddCall(DrawCall{Object: "Cube", Highlight: true})
	f.AddCall(DrawCall{Object: "Sphere"})
	r.Render(f)

	counts := r.CountByObject()
	if counts["Cube"] != 2 || counts["Sphere"] != 1 {
		t.Errorf("counts %v", counts)
	}
	if h := r.Highlighted(); len(h) != 1 || h[0].Object != "Cube" {
		t.Errorf("highlighted %v", h)
	}
}
