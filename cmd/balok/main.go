package main

import (
	"context"
	"flag"
	"image"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"

	"github.com/gekko3d/balok"
	"github.com/gekko3d/balok/gltfexport"
	"github.com/gekko3d/balok/raster"
	"github.com/gekko3d/balok/web"
)

func main() {
	var addr, figurePath, texturePath, webPath, exportPath, snapshotPath, pose, poseFile string
	var spin, debug, dumpFigure bool
	var maxTexture, size int
	var interval time.Duration
	flag.StringVar(&addr, "i", ":8000", "Address of server")
	flag.StringVar(&figurePath, "figure", "", "YAML figure definition (default: built-in humanoid)")
	flag.StringVar(&texturePath, "texture", "", "Texture image for every box (png, jpeg, bmp, webp, tga)")
	flag.StringVar(&webPath, "web", "web", "Directory containing data/ with the browser client")
	flag.StringVar(&exportPath, "export", "", "Write one frame as .glb or .gltf and exit")
	flag.StringVar(&snapshotPath, "snapshot", "", "Write one frame as .png or .webp and exit")
	flag.StringVar(&pose, "pose", "", "Initial joint angles in radians, e.g. left_hip=0.5,head_nod=-0.2")
	flag.StringVar(&poseFile, "pose-file", "", "JSON pose preset to start from (as served by /json/pose)")
	flag.IntVar(&size, "size", 512, "Snapshot width and height in pixels")
	flag.IntVar(&maxTexture, "max-texture", 1024, "Downscale textures larger than this (0 keeps the original size)")
	flag.DurationVar(&interval, "frame", 20*time.Millisecond, "Frame loop interval")
	flag.BoolVar(&spin, "spin", false, "Start with the figure spinning")
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")
	flag.BoolVar(&dumpFigure, "dump-figure", false, "Print the figure definition as YAML and exit")
	flag.Parse()

	def := balok.DefaultFigureDef()
	if figurePath != "" {
		var err error
		if def, err = balok.LoadFigureDef(figurePath); err != nil {
			log.Fatal(err)
		}
	}
	if dumpFigure {
		data, err := def.Marshal()
		if err != nil {
			log.Fatal(err)
		}
		os.Stdout.Write(data)
		return
	}

	app := balok.NewAppBuilder().
		UseModule(
			balok.LoggingModule{Prefix: "balok", Debug: debug},
			balok.TimeModule{},
			balok.AssetServerModule{TexturePath: texturePath, MaxTextureSize: maxTexture},
			balok.FigureModule{Def: def},
			balok.InputModule{},
			balok.SpinModule{Start: spin},
		).
		Build()

	queue, _ := balok.Resource[balok.InputQueue](app)
	if poseFile != "" {
		preset, err := balok.LoadPreset(poseFile)
		if err != nil {
			log.Fatal(err)
		}
		preset.Apply(queue)
	}
	if err := queuePose(queue, pose); err != nil {
		log.Fatal(err)
	}

	if exportPath != "" || snapshotPath != "" {
		if err := renderOnce(app, exportPath, snapshotPath, size); err != nil {
			log.Fatal(err)
		}
		return
	}

	if err := serve(app, addr, webPath, interval); err != nil {
		log.Fatal(err)
	}
}

// queuePose parses name=angle pairs into joint commands.
func queuePose(queue *balok.InputQueue, pose string) error {
	if pose == "" {
		return nil
	}
	for _, pair := range strings.Split(pose, ",") {
		name, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			return errors.Errorf("pose entry %q is not name=angle", pair)
		}
		angle, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return errors.Wrapf(err, "pose entry %q", pair)
		}
		queue.SetJointAngle(name, angle)
	}
	return nil
}

func figureTexture(app *balok.App) balok.TextureAsset {
	assets, _ := balok.Resource[balok.AssetServer](app)
	id, _ := balok.Resource[balok.FigureTexture](app)
	tex, _ := assets.Texture(id.Id)
	return tex
}

func renderOnce(app *balok.App, exportPath, snapshotPath string, size int) error {
	target, _ := balok.Resource[balok.RenderTarget](app)
	fig, _ := balok.Resource[balok.Figure](app)
	tex := figureTexture(app)

	var exporter *gltfexport.Exporter
	if exportPath != "" {
		var img image.Image
		if !tex.Fallback {
			img = tex.Image
		}
		exporter = gltfexport.NewExporter(fig.Def.Name, img)
		target.Add(exporter)
	}
	var snapshot *raster.Snapshot
	if snapshotPath != "" {
		snapshot = raster.NewSnapshot(size, size, tex.Image)
		target.Add(snapshot)
	}

	app.Step()
	if fig.Dirty() {
		return errors.New("frame failed, see log")
	}

	if exporter != nil {
		if err := exporter.WriteFile(exportPath); err != nil {
			return err
		}
		app.Logger().Infof("%v written to %s", exporter, exportPath)
	}
	if snapshot != nil {
		if err := snapshot.WriteFile(snapshotPath); err != nil {
			return err
		}
		app.Logger().Infof("snapshot %dx%d written to %s", size, size, snapshotPath)
	}
	return nil
}

func serve(app *balok.App, addr, webPath string, interval time.Duration) error {
	logger := app.Logger()
	queue, _ := balok.Resource[balok.InputQueue](app)
	target, _ := balok.Resource[balok.RenderTarget](app)
	assets, _ := balok.Resource[balok.AssetServer](app)
	tex, _ := balok.Resource[balok.FigureTexture](app)

	hub := web.NewHub(queue, logger)
	target.Add(hub)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	server := &web.Server{
		Hub:     hub,
		Queue:   queue,
		Assets:  assets,
		Texture: tex.Id,
		WebPath: webPath,
	}
	errc := make(chan error, 1)
	go func() {
		errc <- web.StartServer(ctx, addr, server)
		cancel()
	}()

	if err := app.RunContext(ctx, interval); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	cancel()
	return <-errc
}
