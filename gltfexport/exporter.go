// Package gltfexport writes composed frames as glTF scenes: one mesh
// node per box under a root node carrying the view transform.
package gltfexport

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/gekko3d/balok/scene/compose"
	"github.com/gekko3d/balok/scene/linalg"
)

// Exporter is a compose.FrameRenderer that builds a glTF document for
// the last frame it received.
type Exporter struct {
	Name    string
	Texture image.Image

	doc      *gltf.Document
	root     uint32
	material *uint32
	indices  *uint32
	uvs      uint32
	done     bool
}

var _ compose.FrameRenderer = (*Exporter)(nil)

func NewExporter(name string, texture image.Image) *Exporter {
	return &Exporter{Name: name, Texture: texture}
}

func (e *Exporter) BeginFrame(view linalg.Mat4) error {
	doc := gltf.NewDocument()
	e.doc = doc
	e.indices = nil
	e.material = nil
	e.done = false

	if e.Texture != nil {
		mat, err := e.writeMaterial()
		if err != nil {
			return err
		}
		e.material = gltf.Index(mat)
	}

	e.root = uint32(len(doc.Nodes))
	doc.Nodes = append(doc.Nodes, &gltf.Node{
		Name:   e.Name,
		Matrix: view.ColumnMajor32(),
	})
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, e.root)
	return nil
}

func (e *Exporter) writeMaterial() (uint32, error) {
	doc := e.doc
	var buf bytes.Buffer
	if err := png.Encode(&buf, e.Texture); err != nil {
		return 0, errors.Wrap(err, "encode texture")
	}

	imageIndex, err := modeler.WriteImage(doc, e.Name+"_image", "image/png", &buf)
	if err != nil {
		return 0, errors.Wrapf(err, "Failed to write gltf image")
	}

	samplerIndex := uint32(len(doc.Samplers))
	doc.Samplers = append(doc.Samplers, &gltf.Sampler{
		Name:      e.Name + "_sampler",
		MinFilter: gltf.MinLinear,
		MagFilter: gltf.MagLinear,
		WrapS:     gltf.WrapClampToEdge,
		WrapT:     gltf.WrapClampToEdge,
	})

	textureIndex := uint32(len(doc.Textures))
	doc.Textures = append(doc.Textures, &gltf.Texture{
		Name:    e.Name,
		Sampler: gltf.Index(samplerIndex),
		Source:  gltf.Index(imageIndex),
	})

	materialIndex := uint32(len(doc.Materials))
	doc.Materials = append(doc.Materials, &gltf.Material{
		Name:        e.Name + "_material",
		DoubleSided: true,
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorTexture: &gltf.TextureInfo{Index: textureIndex},
		},
	})
	return materialIndex, nil
}

func (e *Exporter) Draw(d *compose.DrawCall) error {
	if e.doc == nil || e.done {
		return errors.New("draw outside of a frame")
	}
	doc := e.doc

	// index and texcoord layouts are the same for every box
	if e.indices == nil {
		indices := make([]uint32, len(d.Indices))
		for i, index := range d.Indices {
			indices[i] = uint32(index)
		}
		e.indices = gltf.Index(modeler.WriteIndices(doc, indices))

		// glTF puts v = 0 at the top of the image
		uvs := make([][2]float32, len(d.TexCoords)/2)
		for i := range uvs {
			uvs[i] = [2]float32{d.TexCoords[2*i], 1 - d.TexCoords[2*i+1]}
		}
		e.uvs = modeler.WriteTextureCoord(doc, uvs)
	}

	positions := make([][3]float32, len(d.Vertices)/3)
	for i := range positions {
		positions[i] = [3]float32{d.Vertices[3*i], d.Vertices[3*i+1], d.Vertices[3*i+2]}
	}

	attributes := make(map[string]uint32)
	attributes["POSITION"] = modeler.WritePosition(doc, positions)
	attributes["TEXCOORD_0"] = e.uvs

	meshIndex := uint32(len(doc.Meshes))
	doc.Meshes = append(doc.Meshes, &gltf.Mesh{
		Name: d.Name,
		Primitives: []*gltf.Primitive{
			{
				Indices:    e.indices,
				Attributes: attributes,
				Material:   e.material,
			},
		},
	})

	nodeIndex := uint32(len(doc.Nodes))
	doc.Nodes = append(doc.Nodes, &gltf.Node{
		Name: d.Name,
		Mesh: gltf.Index(meshIndex),
	})
	root := doc.Nodes[e.root]
	root.Children = append(root.Children, nodeIndex)
	return nil
}

func (e *Exporter) EndFrame() error {
	if e.doc == nil {
		return errors.New("end of a frame that never began")
	}
	e.done = true
	return nil
}

// Document is the glTF of the last completed frame.
func (e *Exporter) Document() (*gltf.Document, error) {
	if e.doc == nil || !e.done {
		return nil, errors.New("no frame exported")
	}
	return e.doc, nil
}

// Encode writes the document as GLB when binary is set, otherwise as
// glTF JSON with buffers embedded as data URIs.
func (e *Exporter) Encode(w io.Writer, binary bool) error {
	doc, err := e.Document()
	if err != nil {
		return err
	}
	if !binary {
		for _, b := range doc.Buffers {
			if b.URI == "" {
				b.EmbeddedResource()
			}
		}
	}
	encoder := gltf.NewEncoder(w)
	encoder.AsBinary = binary
	return errors.Wrap(encoder.Encode(doc), "encode gltf")
}

// WriteFile picks GLB or glTF from the file extension.
func (e *Exporter) WriteFile(path string) error {
	var binary bool
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".glb":
		binary = true
	case ".gltf":
	default:
		return errors.Errorf("unsupported export format %q", ext)
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if err := e.Encode(f, binary); err != nil {
		f.Close()
		return err
	}
	return errors.Wrapf(f.Close(), "close %s", path)
}

func (e *Exporter) String() string {
	if e.doc == nil {
		return fmt.Sprintf("gltf exporter %q (empty)", e.Name)
	}
	return fmt.Sprintf("gltf exporter %q: %d meshes", e.Name, len(e.doc.Meshes))
}
