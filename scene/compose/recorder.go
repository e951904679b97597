package compose

import (
	"github.com/gekko3d/balok/scene/linalg"
)

// Recorder keeps a copy of every draw of the last frame.
type Recorder struct {
	View   linalg.Mat4
	Draws  []DrawCall
	Frames int
}

func (r *Recorder) BeginFrame(view linalg.Mat4) error {
	r.View = view
	r.Draws = r.Draws[:0]
	return nil
}

func (r *Recorder) Draw(d *DrawCall) error {
	r.Draws = append(r.Draws, *d)
	return nil
}

func (r *Recorder) EndFrame() error {
	r.Frames++
	return nil
}

// Find returns the recorded draw for a node name.
func (r *Recorder) Find(name string) (DrawCall, bool) {
	for _, d := range r.Draws {
		if d.Name == name {
			return d, true
		}
	}
	return DrawCall{}, false
}
