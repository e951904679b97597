package balok

import (
	"bytes"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"
	"sync"

	_ "github.com/ftrvxmtrx/tga"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

type AssetId string

type TextureAsset struct {
	Image *image.NRGBA
	// Source is the file the texture came from, empty for generated ones.
	Source   string
	Fallback bool
}

// AssetServer owns decoded textures. Lookups may come from HTTP handlers,
// so access is locked.
type AssetServer struct {
	mu       sync.RWMutex
	textures map[AssetId]TextureAsset
	// MaxTextureSize bounds the longest side; larger images are scaled down.
	MaxTextureSize int
}

// FallbackColor is what a texture that failed to load renders as.
var FallbackColor = color.NRGBA{R: 255, G: 255, B: 255, A: 255}

func NewAssetServer() *AssetServer {
	return &AssetServer{textures: make(map[AssetId]TextureAsset)}
}

func (server *AssetServer) store(tex TextureAsset) AssetId {
	id := makeAssetId()
	server.mu.Lock()
	server.textures[id] = tex
	server.mu.Unlock()
	return id
}

func (server *AssetServer) Texture(id AssetId) (TextureAsset, bool) {
	server.mu.RLock()
	defer server.mu.RUnlock()
	tex, ok := server.textures[id]
	return tex, ok
}

func (server *AssetServer) CreateSolidTexture(c color.NRGBA) AssetId {
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.SetNRGBA(0, 0, c)
	return server.store(TextureAsset{Image: img})
}

// LoadTexture decodes PNG, JPEG, BMP, WebP or TGA.
func (server *AssetServer) LoadTexture(filename string) (AssetId, error) {
	f, err := os.Open(filename)
	if err != nil {
		return "", errors.Wrapf(err, "texture %s", filename)
	}
	defer f.Close()

	img, err := server.decode(f)
	if err != nil {
		return "", errors.Wrapf(err, "texture %s", filename)
	}
	return server.store(TextureAsset{Image: img, Source: filename}), nil
}

// LoadTextureOrFallback never fails: a missing or broken file is logged
// and replaced by a 1x1 FallbackColor texture.
func (server *AssetServer) LoadTextureOrFallback(filename string, logger Logger) AssetId {
	if filename != "" {
		id, err := server.LoadTexture(filename)
		if err == nil {
			logger.Infof("texture %s loaded", filename)
			return id
		}
		logger.Warnf("%v; using fallback texture", err)
	}
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.SetNRGBA(0, 0, FallbackColor)
	return server.store(TextureAsset{Image: img, Source: filename, Fallback: true})
}

func (server *AssetServer) decode(r io.Reader) (*image.NRGBA, error) {
	src, format, err := image.Decode(r)
	if err != nil {
		return nil, errors.Wrap(err, "decode")
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil, errors.Errorf("empty %s image", format)
	}

	if limit := server.MaxTextureSize; limit > 0 && (w > limit || h > limit) {
		if w >= h {
			w, h = limit, max(1, h*limit/w)
		} else {
			w, h = max(1, w*limit/h), limit
		}
		dst := image.NewNRGBA(image.Rect(0, 0, w, h))
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Src, nil)
		return dst, nil
	}

	if n, ok := src.(*image.NRGBA); ok && b.Min == (image.Point{}) {
		return n, nil
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	xdraw.Draw(dst, dst.Bounds(), src, b.Min, xdraw.Src)
	return dst, nil
}

// EncodePNG writes the texture for browser upload.
func (server *AssetServer) EncodePNG(id AssetId) ([]byte, error) {
	tex, ok := server.Texture(id)
	if !ok {
		return nil, errors.Errorf("unknown texture %s", id)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, tex.Image); err != nil {
		return nil, errors.Wrap(err, "encode png")
	}
	return buf.Bytes(), nil
}

// FigureTexture names the texture the figure is drawn with.
type FigureTexture struct {
	Id AssetId
}

type AssetServerModule struct {
	TexturePath    string
	MaxTextureSize int
}

func (m AssetServerModule) Install(app *App, cmd *Commands) {
	server := NewAssetServer()
	server.MaxTextureSize = m.MaxTextureSize
	id := server.LoadTextureOrFallback(m.TexturePath, app.Logger())
	cmd.AddResources(server, &FigureTexture{Id: id})
}

func makeAssetId() AssetId {
	return AssetId(uuid.NewString())
}
