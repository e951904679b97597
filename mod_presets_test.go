package balok

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresetSerialization(t *testing.T) {
	app, _, logger := newFigureApp(t)
	fig := mustResource[Figure](t, app)
	queue := mustResource[InputQueue](t, app)

	queue.SetJointAngle("left_elbow", -1)
	queue.SetJointAngle("neck_turn", 0.4)
	queue.SetJointAngle("left_shoulder", 1)
	queue.SetJointAngle("left_arm_raise", 1)
	queue.SetSpin(SpinOn)
	app.Step()

	testFile := filepath.Join(t.TempDir(), "pose.json")
	require.NoError(t, SavePreset(fig, testFile))

	jsonContent, err := os.ReadFile(testFile)
	require.NoError(t, err)
	t.Logf("Saved JSON:\n%s", string(jsonContent))

	preset, err := LoadPreset(testFile)
	require.NoError(t, err)
	assert.Equal(t, "humanoid", preset.Figure)
	assert.True(t, preset.Spinning)
	assert.Equal(t, -1.0, preset.Joints["left_elbow"])
	assert.Len(t, preset.Joints, 13)

	app2, _, _ := newFigureApp(t)
	fig2 := mustResource[Figure](t, app2)
	preset.Apply(mustResource[InputQueue](t, app2))
	app2.Step()

	assert.Equal(t, fig.Pose(), fig2.Pose())
	assert.True(t, fig2.Spinning())
	for _, name := range []string{"upper_left_arm", "lower_left_arm", "neck"} {
		id, ok := fig.Tree.Lookup(name)
		require.True(t, ok)
		assert.True(t, fig.Tree.Local(id).ApproxEqual(fig2.Tree.Local(id), 1e-12), name)
	}
	assert.Empty(t, logger.warns)
}

func TestPresetUnknownJointIsWarned(t *testing.T) {
	app, _, logger := newFigureApp(t)
	p := &PosePreset{Joints: map[string]float64{"tail": 1}}
	p.Apply(mustResource[InputQueue](t, app))
	app.Step()
	require.Len(t, logger.warns, 1)
	assert.Contains(t, logger.warns[0], "tail")
}

func TestLoadPresetErrors(t *testing.T) {
	_, err := LoadPreset(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0644))
	_, err = LoadPreset(bad)
	assert.Error(t, err)
}
