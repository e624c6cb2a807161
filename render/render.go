package render

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/shoestring/asset"
	"github.com/mogaika/shoestring/texture"
	"github.com/mogaika/shoestring/utils"
)

type DrawCall struct {
	Object    string
	Mesh      *asset.MeshTemplate
	Material  *asset.MaterialTemplate
	Model     mgl32.Mat4
	Tint      utils.ColorFloat
	Texture   texture.Handle
	Highlight bool
}

type Frame struct {
	View       mgl32.Mat4
	Projection mgl32.Mat4
	Eye        mgl32.Vec3

	Calls []DrawCall
}

func NewFrame(view, projection mgl32.Mat4, eye mgl32.Vec3) *Frame {
	return &Frame{View: view, Projection: projection, Eye: eye}
}

func (f *Frame) AddCall(call DrawCall) {
	f.Calls = append(f.Calls, call)
}

type Renderer interface {
	Render(f *Frame) error
}

// Recorder is a headless renderer, it keeps the last frame.
type Recorder struct {
	Frames     int
	TotalCalls int
	Last       Frame
}

func (r *Recorder) Render(f *Frame) error {
	r.Frames++
	r.TotalCalls += len(f.Calls)
	r.Last = *f
	r.Last.Calls = append([]DrawCall(nil), f.Calls...)
	return nil
}

// Highlighted returns calls of the last frame with the highlight flag set.
func (r *Recorder) Highlighted() []DrawCall {
	var calls []DrawCall
	for _, c := range r.Last.Calls {
		if c.Highlight {
			calls = append(calls, c)
		}
	}
	return calls
}

// CountByObject returns the number of calls per object in the last frame.
func (r *Recorder) CountByObject() map[string]int {
	counts := make(map[string]int)
	for _, c := range r.Last.Calls {
		counts[c.Object]++
	}
	return counts
}
