// Package compose walks a scene tree, accumulates parent transforms and
// hands each box's world-space geometry to a rendering collaborator.
package compose

import (
	"github.com/pkg/errors"

	"github.com/gekko3d/balok/scene/core"
	"github.com/gekko3d/balok/scene/linalg"
)

// DrawCall is everything a collaborator needs to draw one box.
type DrawCall struct {
	Node      core.NodeId
	Name      string
	World     linalg.Mat4
	Vertices  [24]float32
	Indices   [36]uint16
	TexCoords [16]float32
}

// Renderer receives one DrawCall per node. The pointer refers to a slot
// the Composer overwrites for the next node; copy anything kept.
type Renderer interface {
	Draw(d *DrawCall) error
}

// FrameRenderer brackets the draws of a pass with the view transform.
type FrameRenderer interface {
	Renderer
	BeginFrame(view linalg.Mat4) error
	EndFrame() error
}

type Composer struct {
	slot DrawCall
}

func NewComposer() *Composer {
	c := &Composer{}
	c.slot.Indices = core.BoxIndices
	c.slot.TexCoords = core.BoxTexCoords
	return c
}

// Render draws the rooted tree starting from the identity transform.
func (c *Composer) Render(t *core.Tree, r Renderer) error {
	if t.Root() == core.Nil {
		return nil
	}
	return c.RenderSubtree(t, t.Root(), linalg.Ident4(), r)
}

// RenderSubtree draws id's children first, each with
// parentWorld·Local(id) as inbound transform, then id itself.
func (c *Composer) RenderSubtree(t *core.Tree, id core.NodeId, parentWorld linalg.Mat4, r Renderer) error {
	world := parentWorld.Mul4(t.Local(id))
	for _, child := range t.Children(id) {
		if err := c.RenderSubtree(t, child, world, r); err != nil {
			return err
		}
	}

	verts, err := t.WorldVertices(id, parentWorld)
	if err != nil {
		return err
	}
	d := &c.slot
	d.Node = id
	d.Name = t.Name(id)
	d.World = world
	for i, v := range verts {
		d.Vertices[3*i] = float32(v[0])
		d.Vertices[3*i+1] = float32(v[1])
		d.Vertices[3*i+2] = float32(v[2])
	}
	// collaborators may have scribbled on the shared slot
	d.Indices = core.BoxIndices
	d.TexCoords = core.BoxTexCoords
	if err := r.Draw(d); err != nil {
		return errors.Wrapf(err, "draw %q", d.Name)
	}
	return nil
}

// Frame runs one full pass: BeginFrame, Render, EndFrame.
func (c *Composer) Frame(t *core.Tree, view linalg.Mat4, r FrameRenderer) error {
	if err := r.BeginFrame(view); err != nil {
		return errors.Wrap(err, "begin frame")
	}
	if err := c.Render(t, r); err != nil {
		return err
	}
	return errors.Wrap(r.EndFrame(), "end frame")
}
