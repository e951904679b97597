package balok

import (
	"encoding/json"
	"os"
	"sort"

	"github.com/pkg/errors"
)

// PosePreset is a saved pose: joint angles by name plus the spin state.
type PosePreset struct {
	Figure    string             `json:"figure"`
	Joints    map[string]float64 `json:"joints"`
	Spinning  bool               `json:"spinning"`
	SpinAngle float64            `json:"spin_angle"`
}

// PresetFromJoints captures a preset from joint snapshots.
func PresetFromJoints(figure string, joints []JointInfo, spinning bool, spinAngle float64) *PosePreset {
	p := &PosePreset{
		Figure:    figure,
		Joints:    make(map[string]float64, len(joints)),
		Spinning:  spinning,
		SpinAngle: spinAngle,
	}
	for _, j := range joints {
		p.Joints[j.Name] = j.Angle
	}
	return p
}

// CapturePreset must run on the app loop.
func CapturePreset(fig *Figure) *PosePreset {
	return PresetFromJoints(fig.Def.Name, fig.JointInfos(), fig.Spinning(), fig.SpinAngle())
}

func SavePreset(fig *Figure, filename string) error {
	bytes, err := json.MarshalIndent(CapturePreset(fig), "", "  ")
	if err != nil {
		return err
	}
	return errors.Wrapf(os.WriteFile(filename, bytes, 0644), "save preset %s", filename)
}

func LoadPreset(filename string) (*PosePreset, error) {
	bytes, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "load preset %s", filename)
	}

	var preset PosePreset
	if err := json.Unmarshal(bytes, &preset); err != nil {
		return nil, errors.Wrapf(err, "preset %s", filename)
	}
	return &preset, nil
}

// Apply queues the preset's joint angles, in name order, and its spin
// state. Joints the figure does not have are reported by the input system.
func (p *PosePreset) Apply(queue *InputQueue) {
	names := make([]string, 0, len(p.Joints))
	for name := range p.Joints {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		queue.SetJointAngle(name, p.Joints[name])
	}
	if p.Spinning {
		queue.SetSpin(SpinOn)
	} else {
		queue.SetSpin(SpinOff)
	}
}
