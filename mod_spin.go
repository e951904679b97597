package balok

import (
	"time"
)

// SpinTimer accumulates frame time and fires one spin step per interval.
type SpinTimer struct {
	Interval time.Duration
	pending  time.Duration
}

// SpinModule turns the figure about Y while spinning is on. Needs
// TimeModule and FigureModule.
type SpinModule struct {
	Start bool
}

func (m SpinModule) Install(app *App, cmd *Commands) {
	fig, ok := Resource[Figure](app)
	if !ok {
		panic("SpinModule needs FigureModule installed first")
	}
	fig.SetSpinning(m.Start)
	cmd.AddResources(&SpinTimer{Interval: fig.Def.View.SpinInterval})
	cmd.UseSystem(System(spinSystem).InStage(Update))
}

func spinSystem(t *Time, timer *SpinTimer, fig *Figure) {
	if !fig.Spinning() || timer.Interval <= 0 {
		timer.pending = 0
		return
	}
	timer.pending += t.Dt
	for timer.pending >= timer.Interval {
		timer.pending -= timer.Interval
		fig.AdvanceSpin()
	}
}
