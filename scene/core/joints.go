package core

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/gekko3d/balok/scene/linalg"
)

// Joint is one rotational degree of freedom of a node.
type Joint struct {
	Node NodeId
	Axis linalg.Axis
}

// JointState remembers the last absolute angle applied per joint, since
// RotateAboutPivot only accepts deltas.
//
// A node driven on a single axis is rotated by deltas. Once a node has
// joints on several axes its Local is rebuilt from the absolute angles,
// applied in the order the axes were first tracked, on top of the Local
// it had before any joint moved it.
type JointState struct {
	angles map[Joint]float64
	axes   map[NodeId][]linalg.Axis
	base   map[NodeId]linalg.Mat4
}

func NewJointState() *JointState {
	return &JointState{
		angles: make(map[Joint]float64),
		axes:   make(map[NodeId][]linalg.Axis),
		base:   make(map[NodeId]linalg.Mat4),
	}
}

func (s *JointState) Angle(node NodeId, axis linalg.Axis) float64 {
	return s.angles[Joint{Node: node, Axis: axis}]
}

// Track registers a joint at angle 0 without rotating anything. Tracking
// every joint up front fixes the order in which a node's axes compose.
func (s *JointState) Track(t *Tree, node NodeId, axis linalg.Axis) error {
	if !t.valid(node) {
		return errors.Wrapf(ErrUnknownNode, "node %d", node)
	}
	s.track(t, Joint{Node: node, Axis: axis})
	return nil
}

func (s *JointState) track(t *Tree, j Joint) {
	if _, ok := s.angles[j]; ok {
		return
	}
	if _, ok := s.base[j.Node]; !ok {
		s.base[j.Node] = t.Local(j.Node)
	}
	s.angles[j] = 0
	s.axes[j.Node] = append(s.axes[j.Node], j.Axis)
}

// SetJointAngle rotates node so the joint reaches abs radians and returns
// the delta that was applied.
func (s *JointState) SetJointAngle(t *Tree, node NodeId, axis linalg.Axis, abs float64) (float64, error) {
	if !t.valid(node) {
		return 0, errors.Wrapf(ErrUnknownNode, "node %d", node)
	}
	j := Joint{Node: node, Axis: axis}
	s.track(t, j)
	delta := abs - s.angles[j]
	if delta == 0 {
		return 0, nil
	}
	if len(s.axes[node]) == 1 {
		if err := t.RotateAboutPivot(node, axis, delta); err != nil {
			return 0, err
		}
		s.angles[j] = abs
		return delta, nil
	}
	s.angles[j] = abs
	if err := s.rebuild(t, node); err != nil {
		return 0, err
	}
	return delta, nil
}

func (s *JointState) rebuild(t *Tree, node NodeId) error {
	if err := t.SetLocal(node, s.base[node]); err != nil {
		return err
	}
	for _, axis := range s.axes[node] {
		if a := s.angles[Joint{Node: node, Axis: axis}]; a != 0 {
			if err := t.RotateAboutPivot(node, axis, a); err != nil {
				return err
			}
		}
	}
	return nil
}

// Reset drives every tracked joint back to zero, restoring each node to
// the Local it had before its joints moved it.
func (s *JointState) Reset(t *Tree) error {
	for node, base := range s.base {
		if err := t.SetLocal(node, base); err != nil {
			return err
		}
		for _, axis := range s.axes[node] {
			s.angles[Joint{Node: node, Axis: axis}] = 0
		}
	}
	return nil
}

// Joints lists tracked joints ordered by node then axis.
func (s *JointState) Joints() []Joint {
	out := make([]Joint, 0, len(s.angles))
	for j := range s.angles {
		out = append(out, j)
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Node != out[b].Node {
			return out[a].Node < out[b].Node
		}
		return out[a].Axis < out[b].Axis
	})
	return out
}
