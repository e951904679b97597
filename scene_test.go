package balok

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/balok/scene/linalg"
)

func TestDefaultFigureHierarchy(t *testing.T) {
	fig, err := DefaultFigureDef().Build()
	require.NoError(t, err)
	tree := fig.Tree

	names := func(parent string) []string {
		id, ok := tree.Lookup(parent)
		require.True(t, ok, parent)
		var out []string
		for _, c := range tree.Children(id) {
			out = append(out, tree.Name(c))
		}
		return out
	}

	assert.Equal(t, "torso", tree.Name(tree.Root()))
	assert.Equal(t, []string{"upper_left_leg", "upper_right_leg", "upper_left_arm", "upper_right_arm", "neck"}, names("torso"))
	assert.Equal(t, []string{"lower_left_leg"}, names("upper_left_leg"))
	assert.Equal(t, []string{"lower_right_arm"}, names("upper_right_arm"))
	assert.Equal(t, []string{"head"}, names("neck"))
	assert.Equal(t, 11, tree.Len())

	hip, _ := tree.Lookup("upper_left_leg")
	n, err := tree.Node(hip)
	require.NoError(t, err)
	assert.Equal(t, mgl64.Vec3{1, 5.5, 0}, n.Origin)

	torso, _ := tree.Lookup("torso")
	n, _ = tree.Node(torso)
	assert.Equal(t, mgl64.Vec3{0, 8, 0}, n.Origin, "pivot defaults to the box center")
}

const figureYAML = `
name: stick
view:
  scale: 0.1
  spin_interval: 20ms
segments:
  - name: body
    center: [0, 2, 0]
    size: [1, 4, 1]
  - name: arm
    parent: body
    center: [1, 3, 0]
    size: [1, 2, 1]
    pivot: [1, 4, 0]
joints:
  - name: shoulder
    segment: arm
    axis: z
    min: -1
    max: 1
`

func TestParseFigureDef(t *testing.T) {
	def, err := ParseFigureDef([]byte(figureYAML))
	require.NoError(t, err)

	assert.Equal(t, "stick", def.Name)
	assert.Equal(t, 0.1, def.View.Scale)
	assert.Equal(t, 20*time.Millisecond, def.View.SpinInterval)
	assert.Equal(t, 0.05, def.View.SpinStep, "unset view fields take defaults")
	require.Len(t, def.Segments, 2)
	require.NotNil(t, def.Segments[1].Pivot)
	assert.Equal(t, mgl64.Vec3{1, 4, 0}, *def.Segments[1].Pivot)
	require.Len(t, def.Joints, 1)
	assert.Equal(t, linalg.AxisZ, def.Joints[0].Axis)

	fig, err := def.Build()
	require.NoError(t, err)
	assert.Equal(t, "body", fig.Tree.Name(fig.Tree.Root()))
}

func TestLoadFigureDef(t *testing.T) {
	path := filepath.Join(t.TempDir(), "figure.yaml")
	require.NoError(t, os.WriteFile(path, []byte(figureYAML), 0o644))
	def, err := LoadFigureDef(path)
	require.NoError(t, err)
	assert.Equal(t, "stick", def.Name)

	_, err = LoadFigureDef(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestDefaultFigureDefRoundTripsThroughYAML(t *testing.T) {
	data, err := DefaultFigureDef().Marshal()
	require.NoError(t, err)
	def, err := ParseFigureDef(data)
	require.NoError(t, err)
	assert.Equal(t, DefaultFigureDef(), def)
}

func TestFigureDefValidation(t *testing.T) {
	cases := map[string]string{
		"no segments": `name: empty`,
		"duplicate": `
segments:
  - {name: a, center: [0,0,0], size: [1,1,1]}
  - {name: a, parent: a, center: [0,0,0], size: [1,1,1]}`,
		"unknown parent": `
segments:
  - {name: a, center: [0,0,0], size: [1,1,1]}
  - {name: b, parent: c, center: [0,0,0], size: [1,1,1]}`,
		"two roots": `
segments:
  - {name: a, center: [0,0,0], size: [1,1,1]}
  - {name: b, center: [0,0,0], size: [1,1,1]}`,
		"negative size": `
segments:
  - {name: a, center: [0,0,0], size: [1,-1,1]}`,
		"bad axis": `
segments:
  - {name: a, center: [0,0,0], size: [1,1,1]}
joints:
  - {name: j, segment: a, axis: w}`,
		"unknown segment": `
segments:
  - {name: a, center: [0,0,0], size: [1,1,1]}
joints:
  - {name: j, segment: b, axis: x}`,
		"inverted limits": `
segments:
  - {name: a, center: [0,0,0], size: [1,1,1]}
joints:
  - {name: j, segment: a, axis: x, min: 1, max: -1}`,
		"short vector": `
segments:
  - {name: a, center: [0,0], size: [1,1,1]}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseFigureDef([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestFigureDefCycleRejected(t *testing.T) {
	def := &FigureDef{
		Root: "root",
		Segments: []SegmentDef{
			{Name: "root", Size: mgl64.Vec3{1, 1, 1}},
			{Name: "a", Parent: "b", Size: mgl64.Vec3{1, 1, 1}},
			{Name: "b", Parent: "a", Size: mgl64.Vec3{1, 1, 1}},
		},
	}
	_, err := def.Build()
	assert.Error(t, err)
}

func TestFigureSetJointAngle(t *testing.T) {
	fig, err := DefaultFigureDef().Build()
	require.NoError(t, err)

	got, err := fig.SetJointAngle("left_knee", 1)
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)

	got, err = fig.SetJointAngle("left_knee", 10)
	require.NoError(t, err)
	assert.Equal(t, 2.4, got, "clamped to max")

	angle, err := fig.JointAngle("left_knee")
	require.NoError(t, err)
	assert.Equal(t, 2.4, angle)

	_, err = fig.SetJointAngle("tail", 1)
	assert.ErrorIs(t, err, ErrUnknownJoint)
	_, err = fig.SetJointAngle("left_knee", math.NaN())
	assert.Error(t, err)

	// the knee pivot stays put while the foot swings
	knee, _ := fig.Tree.Lookup("lower_left_leg")
	p := fig.Tree.Local(knee).Transform(mgl64.Vec3{1, 2.5, 0})
	assert.InDeltaSlice(t, []float64{1, 2.5, 0}, p[:], 1e-9)

	infos := fig.JointInfos()
	require.Len(t, infos, len(DefaultFigureDef().Joints))
	assert.Equal(t, "torso_turn", infos[0].Name)
	assert.Equal(t, "y", infos[0].Axis)
	assert.Equal(t, 2.4, fig.Pose()["left_knee"])

	require.NoError(t, fig.ResetPose())
	assert.Zero(t, fig.Pose()["left_knee"])
	assert.True(t, fig.Tree.Local(knee).ApproxEqual(linalg.Ident4(), 1e-9))
}

func TestFigureViewMatrix(t *testing.T) {
	fig, err := DefaultFigureDef().Build()
	require.NoError(t, err)

	v := fig.ViewMatrix()
	p := v.Transform(mgl64.Vec3{0, 10, 0})
	assert.InDeltaSlice(t, []float64{0, 0, 0}, p[:], 1e-12)

	fig.AdvanceSpin()
	assert.InDelta(t, 0.05, fig.SpinAngle(), 1e-12)
	want := linalg.Translate2D(0, -0.5).Mul4(linalg.RotateY(0.05)).Mul4(linalg.Scale3D(0.05, 0.05, 0.05))
	assert.True(t, fig.ViewMatrix().ApproxEqual(want, 1e-12))
}

func TestFigureTwoAxisJoint(t *testing.T) {
	fig, err := DefaultFigureDef().Build()
	require.NoError(t, err)
	arm, _ := fig.Tree.Lookup("upper_left_arm")

	_, err = fig.SetJointAngle("left_shoulder", 1)
	require.NoError(t, err)
	_, err = fig.SetJointAngle("left_arm_raise", 1)
	require.NoError(t, err)
	posed := fig.Tree.Local(arm)
	assert.False(t, posed.ApproxEqual(linalg.Ident4(), 1e-9))

	// the other order gives the same transform
	other, err := DefaultFigureDef().Build()
	require.NoError(t, err)
	_, err = other.SetJointAngle("left_arm_raise", 1)
	require.NoError(t, err)
	_, err = other.SetJointAngle("left_shoulder", 1)
	require.NoError(t, err)
	assert.True(t, other.Tree.Local(arm).ApproxEqual(posed, 1e-12))

	require.NoError(t, fig.ResetPose())
	assert.Zero(t, fig.Pose()["left_shoulder"])
	assert.Zero(t, fig.Pose()["left_arm_raise"])
	assert.True(t, fig.Tree.Local(arm).ApproxEqual(linalg.Ident4(), 1e-9))
}
