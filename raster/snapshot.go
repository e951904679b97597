// Package raster draws composed frames into an image without a GPU,
// following the browser client's shader.
package raster

import (
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"

	"github.com/gekko3d/balok/scene/compose"
	"github.com/gekko3d/balok/scene/linalg"
)

type Format int

const (
	FormatPNG Format = iota
	FormatWebP
)

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".png":
		return FormatPNG, nil
	case ".webp":
		return FormatWebP, nil
	default:
		return 0, errors.Errorf("unsupported image format %q", ext)
	}
}

// Snapshot is a compose.FrameRenderer that rasterizes every draw. Each
// vertex has its z negated, is multiplied by the view matrix, and lands
// in clip space where [-1, 1] maps onto the image.
type Snapshot struct {
	Width, Height int
	Texture       *image.NRGBA
	Background    color.NRGBA

	fb   *FrameBuffer
	view linalg.Mat4
}

var _ compose.FrameRenderer = (*Snapshot)(nil)

func NewSnapshot(width, height int, texture *image.NRGBA) *Snapshot {
	return &Snapshot{
		Width:      width,
		Height:     height,
		Texture:    texture,
		Background: color.NRGBA{A: 255},
	}
}

func (s *Snapshot) BeginFrame(view linalg.Mat4) error {
	if s.Width <= 0 || s.Height <= 0 {
		return errors.Errorf("bad snapshot size %dx%d", s.Width, s.Height)
	}
	s.view = view
	s.fb = NewFrameBuffer(s.Width, s.Height, s.Background)
	return nil
}

// Project maps a world-space vertex to screen space.
func (s *Snapshot) Project(p mgl64.Vec3, u, v float64) Vertex {
	clip := s.view.Transform(mgl64.Vec3{p[0], p[1], -p[2]})
	return Vertex{
		X:     (clip[0] + 1) / 2 * float64(s.Width),
		Y:     (1 - clip[1]) / 2 * float64(s.Height),
		Z:     clip[2],
		U:     u,
		V:     v,
		Shade: ShadeFactor(clip[2]),
	}
}

func (s *Snapshot) Draw(d *compose.DrawCall) error {
	if s.fb == nil {
		return errors.New("draw outside of a frame")
	}
	var verts [8]Vertex
	for i := range verts {
		p := mgl64.Vec3{float64(d.Vertices[3*i]), float64(d.Vertices[3*i+1]), float64(d.Vertices[3*i+2])}
		verts[i] = s.Project(p, float64(d.TexCoords[2*i]), float64(d.TexCoords[2*i+1]))
	}
	for i := 0; i+2 < len(d.Indices); i += 3 {
		a, b, c := d.Indices[i], d.Indices[i+1], d.Indices[i+2]
		if int(a) >= len(verts) || int(b) >= len(verts) || int(c) >= len(verts) {
			return errors.Errorf("%s: index out of range in triangle %d", d.Name, i/3)
		}
		RasterizeTriangle(s.fb, verts[a], verts[b], verts[c], s.Texture)
	}
	return nil
}

func (s *Snapshot) EndFrame() error {
	return nil
}

// Image is the last frame, nil before the first BeginFrame.
func (s *Snapshot) Image() *image.NRGBA {
	if s.fb == nil {
		return nil
	}
	return s.fb.Image()
}

func (s *Snapshot) Encode(w io.Writer, format Format) error {
	img := s.Image()
	if img == nil {
		return errors.New("nothing rendered")
	}
	switch format {
	case FormatPNG:
		return errors.Wrap(png.Encode(w, img), "png encode")
	case FormatWebP:
		return errors.Wrap(nativewebp.Encode(w, img, nil), "WebP encode")
	}
	return errors.Errorf("unknown format %d", format)
}

func (s *Snapshot) WriteFile(path string) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if err := s.Encode(f, format); err != nil {
		f.Close()
		return err
	}
	return errors.Wrapf(f.Close(), "close %s", path)
}
