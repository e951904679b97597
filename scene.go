package balok

import (
	"math"
	"os"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/gekko3d/balok/scene/core"
	"github.com/gekko3d/balok/scene/linalg"
)

// FigureDef describes the segments and joints of a figure.
type FigureDef struct {
	Name     string       `yaml:"name"`
	Root     string       `yaml:"root,omitempty"`
	View     ViewDef      `yaml:"view"`
	Segments []SegmentDef `yaml:"segments"`
	Joints   []JointDef   `yaml:"joints"`
}

// SegmentDef is one box. Center and Size are in model space; Pivot is in
// the parent's local frame and defaults to Center.
type SegmentDef struct {
	Name   string      `yaml:"name"`
	Parent string      `yaml:"parent,omitempty"`
	Center mgl64.Vec3  `yaml:"center"`
	Size   mgl64.Vec3  `yaml:"size"`
	Pivot  *mgl64.Vec3 `yaml:"pivot,omitempty"`
}

// JointDef exposes one axis of a segment as a controllable angle in
// radians. Min == Max disables clamping.
type JointDef struct {
	Name    string      `yaml:"name"`
	Segment string      `yaml:"segment"`
	Axis    linalg.Axis `yaml:"axis"`
	Min     float64     `yaml:"min"`
	Max     float64     `yaml:"max"`
}

// ViewDef is the whole-figure transform applied after composition:
// translate(0, OffsetY) · rotateY(spin) · scale(Scale).
type ViewDef struct {
	Scale        float64       `yaml:"scale"`
	OffsetY      float64       `yaml:"offset_y"`
	SpinStep     float64       `yaml:"spin_step"`
	SpinInterval time.Duration `yaml:"spin_interval"`
}

func vec(x, y, z float64) mgl64.Vec3 { return mgl64.Vec3{x, y, z} }

func pivot(x, y, z float64) *mgl64.Vec3 {
	v := vec(x, y, z)
	return &v
}

// DefaultFigureDef is the humanoid: legs hang from the hips and arms from
// the shoulders of the torso, the head sits on the neck.
func DefaultFigureDef() *FigureDef {
	limb := vec(1, 2, 1)
	return &FigureDef{
		Name: "humanoid",
		Root: "torso",
		View: ViewDef{
			Scale:        0.05,
			OffsetY:      -0.5,
			SpinStep:     0.05,
			SpinInterval: 40 * time.Millisecond,
		},
		Segments: []SegmentDef{
			{Name: "torso", Center: vec(0, 8, 0), Size: vec(3, 4, 1)},
			{Name: "upper_left_leg", Parent: "torso", Center: vec(1, 4, 0), Size: limb, Pivot: pivot(1, 5.5, 0)},
			{Name: "lower_left_leg", Parent: "upper_left_leg", Center: vec(1, 1, 0), Size: limb, Pivot: pivot(1, 2.5, 0)},
			{Name: "upper_right_leg", Parent: "torso", Center: vec(-1, 4, 0), Size: limb, Pivot: pivot(-1, 5.5, 0)},
			{Name: "lower_right_leg", Parent: "upper_right_leg", Center: vec(-1, 1, 0), Size: limb, Pivot: pivot(-1, 2.5, 0)},
			{Name: "upper_left_arm", Parent: "torso", Center: vec(3, 9, 0), Size: limb, Pivot: pivot(3, 10, 0)},
			{Name: "lower_left_arm", Parent: "upper_left_arm", Center: vec(3, 6, 0), Size: limb, Pivot: pivot(3, 7.5, 0)},
			{Name: "upper_right_arm", Parent: "torso", Center: vec(-3, 9, 0), Size: limb, Pivot: pivot(-3, 10, 0)},
			{Name: "lower_right_arm", Parent: "upper_right_arm", Center: vec(-3, 6, 0), Size: limb, Pivot: pivot(-3, 7.5, 0)},
			{Name: "neck", Parent: "torso", Center: vec(0, 11.5, 0), Size: vec(1, 1, 1), Pivot: pivot(0, 10.5, 0)},
			{Name: "head", Parent: "neck", Center: vec(0, 14.5, 0), Size: vec(3, 3, 3), Pivot: pivot(0, 12.5, 0)},
		},
		Joints: []JointDef{
			{Name: "torso_turn", Segment: "torso", Axis: linalg.AxisY, Min: -math.Pi, Max: math.Pi},
			{Name: "left_hip", Segment: "upper_left_leg", Axis: linalg.AxisX, Min: -math.Pi / 2, Max: math.Pi / 2},
			{Name: "left_knee", Segment: "lower_left_leg", Axis: linalg.AxisX, Min: 0, Max: 2.4},
			{Name: "right_hip", Segment: "upper_right_leg", Axis: linalg.AxisX, Min: -math.Pi / 2, Max: math.Pi / 2},
			{Name: "right_knee", Segment: "lower_right_leg", Axis: linalg.AxisX, Min: 0, Max: 2.4},
			{Name: "left_shoulder", Segment: "upper_left_arm", Axis: linalg.AxisX, Min: -math.Pi, Max: math.Pi},
			{Name: "left_arm_raise", Segment: "upper_left_arm", Axis: linalg.AxisZ, Min: 0, Max: math.Pi},
			{Name: "left_elbow", Segment: "lower_left_arm", Axis: linalg.AxisX, Min: -2.4, Max: 0},
			{Name: "right_shoulder", Segment: "upper_right_arm", Axis: linalg.AxisX, Min: -math.Pi, Max: math.Pi},
			{Name: "right_arm_raise", Segment: "upper_right_arm", Axis: linalg.AxisZ, Min: -math.Pi, Max: 0},
			{Name: "right_elbow", Segment: "lower_right_arm", Axis: linalg.AxisX, Min: -2.4, Max: 0},
			{Name: "neck_turn", Segment: "neck", Axis: linalg.AxisY, Min: -math.Pi / 2, Max: math.Pi / 2},
			{Name: "head_nod", Segment: "head", Axis: linalg.AxisX, Min: -0.6, Max: 0.6},
		},
	}
}

func LoadFigureDef(path string) (*FigureDef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read figure %s", path)
	}
	def, err := ParseFigureDef(data)
	if err != nil {
		return nil, errors.Wrapf(err, "figure %s", path)
	}
	return def, nil
}

// ParseFigureDef decodes YAML. View fields left at zero take the defaults.
func ParseFigureDef(data []byte) (*FigureDef, error) {
	var def FigureDef
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, errors.Wrap(err, "parse yaml")
	}
	dv := DefaultFigureDef().View
	if def.View.Scale == 0 {
		def.View.Scale = dv.Scale
	}
	if def.View.SpinStep == 0 {
		def.View.SpinStep = dv.SpinStep
	}
	if def.View.SpinInterval == 0 {
		def.View.SpinInterval = dv.SpinInterval
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

func (d *FigureDef) Marshal() ([]byte, error) {
	return yaml.Marshal(d)
}

func (d *FigureDef) rootName() (string, error) {
	if d.Root != "" {
		return d.Root, nil
	}
	var roots []string
	for _, s := range d.Segments {
		if s.Parent == "" {
			roots = append(roots, s.Name)
		}
	}
	if len(roots) != 1 {
		return "", errors.Errorf("need exactly one segment without parent, found %v", roots)
	}
	return roots[0], nil
}

func (d *FigureDef) Validate() error {
	if len(d.Segments) == 0 {
		return errors.New("figure has no segments")
	}
	segments := make(map[string]SegmentDef, len(d.Segments))
	for _, s := range d.Segments {
		if s.Name == "" {
			return errors.New("segment without name")
		}
		if _, dup := segments[s.Name]; dup {
			return errors.Errorf("duplicate segment %q", s.Name)
		}
		if s.Size[0] < 0 || s.Size[1] < 0 || s.Size[2] < 0 {
			return errors.Errorf("segment %q has negative size %v", s.Name, s.Size)
		}
		segments[s.Name] = s
	}

	root, err := d.rootName()
	if err != nil {
		return err
	}
	if s, ok := segments[root]; !ok {
		return errors.Errorf("root %q is not a segment", root)
	} else if s.Parent != "" {
		return errors.Errorf("root %q has parent %q", root, s.Parent)
	}

	for _, s := range d.Segments {
		if s.Parent == "" {
			if s.Name != root {
				return errors.Errorf("segment %q has no parent and is not the root", s.Name)
			}
			continue
		}
		if _, ok := segments[s.Parent]; !ok {
			return errors.Errorf("segment %q: unknown parent %q", s.Name, s.Parent)
		}
	}

	joints := make(map[string]bool, len(d.Joints))
	for _, j := range d.Joints {
		if j.Name == "" {
			return errors.Errorf("joint on %q without name", j.Segment)
		}
		if joints[j.Name] {
			return errors.Errorf("duplicate joint %q", j.Name)
		}
		joints[j.Name] = true
		if _, ok := segments[j.Segment]; !ok {
			return errors.Errorf("joint %q: unknown segment %q", j.Name, j.Segment)
		}
		if j.Min > j.Max {
			return errors.Errorf("joint %q: min %v > max %v", j.Name, j.Min, j.Max)
		}
	}
	return nil
}

// Build constructs the tree. Every node gets its pivot before it is
// attached and before anything can rotate it.
func (d *FigureDef) Build() (*Figure, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	tree := core.NewTree()
	for _, s := range d.Segments {
		id := tree.NewNode(s.Name, s.Center, s.Size)
		if s.Pivot != nil {
			if err := tree.SetOrigin(id, *s.Pivot); err != nil {
				return nil, err
			}
		}
	}

	root, _ := d.rootName()
	rootId, _ := tree.Lookup(root)
	if err := tree.SetRoot(rootId); err != nil {
		return nil, err
	}

	// definition order decides sibling order
	for _, s := range d.Segments {
		if s.Parent == "" {
			continue
		}
		parent, _ := tree.Lookup(s.Parent)
		child, _ := tree.Lookup(s.Name)
		if err := tree.AddChild(parent, child); err != nil {
			return nil, errors.Wrapf(err, "attach %q to %q", s.Name, s.Parent)
		}
	}

	return newFigure(d, tree)
}
