package balok

import (
	"github.com/gekko3d/balok/scene/compose"
)

// RenderTarget lists the rendering collaborators fed on every dirty frame.
type RenderTarget struct {
	Renderers []compose.FrameRenderer
}

func (t *RenderTarget) Add(r compose.FrameRenderer) {
	t.Renderers = append(t.Renderers, r)
}

// FigureObserver is implemented by renderers that also publish pose and
// spin state. It runs on the app loop right before the frame.
type FigureObserver interface {
	ObserveFigure(f *Figure)
}

type FigureModule struct {
	Def       *FigureDef
	Renderers []compose.FrameRenderer
}

func (m FigureModule) Install(app *App, cmd *Commands) {
	def := m.Def
	if def == nil {
		def = DefaultFigureDef()
	}
	fig, err := def.Build()
	if err != nil {
		panic(err)
	}
	app.Logger().Infof("figure %q: %d segments, %d joints", def.Name, fig.Tree.Len(), len(def.Joints))
	Dump(app.Logger(), "figure definition", def)

	cmd.AddResources(fig, compose.NewComposer(), &RenderTarget{Renderers: m.Renderers})
	cmd.UseSystem(System(figureRenderSystem).InStage(Render))
}

// figureRenderSystem runs one composer pass per renderer when the figure
// changed since the last frame.
func figureRenderSystem(fig *Figure, composer *compose.Composer, target *RenderTarget, cmd *Commands) error {
	if !fig.Dirty() {
		return nil
	}
	view := fig.ViewMatrix()
	for _, r := range target.Renderers {
		if o, ok := r.(FigureObserver); ok {
			o.ObserveFigure(fig)
		}
		if err := composer.Frame(fig.Tree, view, r); err != nil {
			// stay dirty so the next frame retries
			return err
		}
	}
	fig.dirty = false
	return nil
}
