package balok

import (
	"strings"
	"sync"

	"github.com/pkg/errors"
)

type InputKind int

const (
	InputJointAngle InputKind = iota
	InputSpin
	InputResetPose
)

type SpinCommand int

const (
	SpinOff SpinCommand = iota
	SpinOn
	SpinToggle
)

func (c SpinCommand) String() string {
	switch c {
	case SpinOff:
		return "off"
	case SpinOn:
		return "on"
	case SpinToggle:
		return "toggle"
	}
	return "unknown"
}

func ParseSpinCommand(s string) (SpinCommand, error) {
	switch strings.ToLower(s) {
	case "off", "stop":
		return SpinOff, nil
	case "on", "start":
		return SpinOn, nil
	case "toggle":
		return SpinToggle, nil
	}
	return 0, errors.Errorf("unknown spin command %q", s)
}

// InputEvent is one slider move or button press.
type InputEvent struct {
	Kind  InputKind
	Joint string
	Angle float64
	Spin  SpinCommand
}

// InputQueue is the hand-off between input collaborators running on
// their own goroutines and the app loop, which drains it every frame.
type InputQueue struct {
	mu     sync.Mutex
	events []InputEvent
}

func (q *InputQueue) Push(events ...InputEvent) {
	q.mu.Lock()
	q.events = append(q.events, events...)
	q.mu.Unlock()
}

func (q *InputQueue) SetJointAngle(joint string, angle float64) {
	q.Push(InputEvent{Kind: InputJointAngle, Joint: joint, Angle: angle})
}

func (q *InputQueue) SetSpin(c SpinCommand) {
	q.Push(InputEvent{Kind: InputSpin, Spin: c})
}

func (q *InputQueue) ResetPose() {
	q.Push(InputEvent{Kind: InputResetPose})
}

// Drain takes every pending event in arrival order.
func (q *InputQueue) Drain() []InputEvent {
	q.mu.Lock()
	defer q.mu.Unlock()
	events := q.events
	q.events = nil
	return events
}

func (q *InputQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

type InputModule struct{}

func (InputModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(&InputQueue{})
	cmd.UseSystem(System(inputSystem).InStage(PreUpdate))
}

func inputSystem(queue *InputQueue, fig *Figure, cmd *Commands) {
	for _, ev := range queue.Drain() {
		switch ev.Kind {
		case InputJointAngle:
			got, err := fig.SetJointAngle(ev.Joint, ev.Angle)
			if err != nil {
				cmd.Logger().Warnf("input: %v", err)
				continue
			}
			cmd.Logger().Debugf("input: %s = %.3f", ev.Joint, got)
		case InputSpin:
			switch ev.Spin {
			case SpinOn:
				fig.SetSpinning(true)
			case SpinOff:
				fig.SetSpinning(false)
			case SpinToggle:
				fig.SetSpinning(!fig.Spinning())
			}
			fig.MarkDirty()
		case InputResetPose:
			if err := fig.ResetPose(); err != nil {
				cmd.Logger().Errorf("input: reset pose: %v", err)
			}
		}
	}
}
