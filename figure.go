package balok

import (
	"math"

	"github.com/pkg/errors"

	"github.com/gekko3d/balok/scene/core"
	"github.com/gekko3d/balok/scene/linalg"
)

var ErrUnknownJoint = errors.New("unknown joint")

type jointBinding struct {
	def  JointDef
	node core.NodeId
}

// JointInfo is a read-only snapshot of one joint.
type JointInfo struct {
	Name    string  `json:"name"`
	Segment string  `json:"segment"`
	Axis    string  `json:"axis"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Angle   float64 `json:"angle"`
}

// Figure is the posed scene tree plus its whole-figure view. Only the
// app loop goroutine may touch it.
type Figure struct {
	Def    *FigureDef
	Tree   *core.Tree
	Joints *core.JointState

	joints map[string]jointBinding
	order  []string

	spinAngle float64
	spinning  bool
	dirty     bool
}

// newFigure tracks every joint in definition order, which is the order a
// segment's axes compose in.
func newFigure(def *FigureDef, tree *core.Tree) (*Figure, error) {
	f := &Figure{
		Def:    def,
		Tree:   tree,
		Joints: core.NewJointState(),
		joints: make(map[string]jointBinding, len(def.Joints)),
		dirty:  true,
	}
	for _, j := range def.Joints {
		node, _ := tree.Lookup(j.Segment)
		if err := f.Joints.Track(tree, node, j.Axis); err != nil {
			return nil, errors.Wrapf(err, "joint %q", j.Name)
		}
		f.joints[j.Name] = jointBinding{def: j, node: node}
		f.order = append(f.order, j.Name)
	}
	return f, nil
}

// SetJointAngle drives a named joint to abs radians, clamped to its
// limits, and returns the angle actually set.
func (f *Figure) SetJointAngle(name string, abs float64) (float64, error) {
	b, ok := f.joints[name]
	if !ok {
		return 0, errors.Wrapf(ErrUnknownJoint, "%q", name)
	}
	if math.IsNaN(abs) || math.IsInf(abs, 0) {
		return 0, errors.Errorf("joint %q: angle %v is not finite", name, abs)
	}
	if b.def.Min < b.def.Max {
		abs = math.Max(b.def.Min, math.Min(b.def.Max, abs))
	}
	delta, err := f.Joints.SetJointAngle(f.Tree, b.node, b.def.Axis, abs)
	if err != nil {
		return 0, errors.Wrapf(err, "joint %q", name)
	}
	if delta != 0 {
		f.dirty = true
	}
	return abs, nil
}

func (f *Figure) JointAngle(name string) (float64, error) {
	b, ok := f.joints[name]
	if !ok {
		return 0, errors.Wrapf(ErrUnknownJoint, "%q", name)
	}
	return f.Joints.Angle(b.node, b.def.Axis), nil
}

// JointInfos lists joints in definition order.
func (f *Figure) JointInfos() []JointInfo {
	out := make([]JointInfo, 0, len(f.order))
	for _, name := range f.order {
		b := f.joints[name]
		out = append(out, JointInfo{
			Name:    name,
			Segment: b.def.Segment,
			Axis:    b.def.Axis.String(),
			Min:     b.def.Min,
			Max:     b.def.Max,
			Angle:   f.Joints.Angle(b.node, b.def.Axis),
		})
	}
	return out
}

// Pose maps joint names to their current angles.
func (f *Figure) Pose() map[string]float64 {
	out := make(map[string]float64, len(f.order))
	for _, name := range f.order {
		b := f.joints[name]
		out[name] = f.Joints.Angle(b.node, b.def.Axis)
	}
	return out
}

// ResetPose returns every joint to zero.
func (f *Figure) ResetPose() error {
	if err := f.Joints.Reset(f.Tree); err != nil {
		return err
	}
	f.dirty = true
	return nil
}

func (f *Figure) SetSpinning(on bool) {
	f.spinning = on
}

func (f *Figure) Spinning() bool {
	return f.spinning
}

func (f *Figure) SpinAngle() float64 {
	return f.spinAngle
}

// AdvanceSpin turns the whole figure by one spin step.
func (f *Figure) AdvanceSpin() {
	f.spinAngle = math.Mod(f.spinAngle+f.Def.View.SpinStep, 2*math.Pi)
	f.dirty = true
}

// ViewMatrix is translate(0, OffsetY)·rotateY(spin)·scale(Scale).
func (f *Figure) ViewMatrix() linalg.Mat4 {
	v := f.Def.View
	return linalg.Translate2D(0, v.OffsetY).
		Mul4(linalg.RotateY(f.spinAngle)).
		Mul4(linalg.Scale3D(v.Scale, v.Scale, v.Scale))
}

func (f *Figure) MarkDirty() { f.dirty = true }

func (f *Figure) Dirty() bool { return f.dirty }
