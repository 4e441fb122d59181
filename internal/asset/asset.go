// Package asset loads a reconstructed model and exports it to a second mesh
// interchange format after a successful run.
//
// Two loaders are available. MeshLoader converts in-process with the
// model3d mesh library and understands STL input. Engines that can convert
// their own native formats implement Loader themselves (see engine/process).
package asset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/unixpickle/model3d/model3d"

	"github.com/Iron-Ham/photogram/internal/errors"
)

// Loader opens a model file as an Asset.
type Loader interface {
	LoadAsset(ctx context.Context, path string) (Asset, error)
}

// Asset is a loaded model that can be exported in another format.
type Asset interface {
	// ResolveTextures makes external texture references available to Export.
	ResolveTextures(ctx context.Context) error
	// Export writes the asset to dst. The format follows dst's extension.
	Export(ctx context.Context, dst string) error
}

// Format is a lower-case mesh file extension without the dot.
type Format string

const (
	FormatSTL Format = "stl"
	FormatPLY Format = "ply"
)

// FormatOf returns the format implied by path's extension.
func FormatOf(path string) Format {
	return Format(strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")))
}

// defaultColor is the vertex color written to PLY files, which carry no
// texture information from STL input.
var defaultColor = [3]uint8{200, 200, 200}

// MeshLoader is the builtin Loader backed by model3d.
type MeshLoader struct{}

// NewMeshLoader creates a MeshLoader.
func NewMeshLoader() *MeshLoader {
	return &MeshLoader{}
}

// LoadAsset reads an STL model.
func (l *MeshLoader) LoadAsset(ctx context.Context, path string) (Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f := FormatOf(path); f != FormatSTL {
		return nil, fmt.Errorf("load %s: %w: %q", path, errors.ErrUnsupportedFormat, f)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	triangles, err := model3d.ReadSTL(file)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return &MeshAsset{Source: path, Mesh: model3d.NewMeshTriangles(triangles)}, nil
}

// MeshAsset is an in-memory triangle mesh.
type MeshAsset struct {
	Source string
	Mesh   *model3d.Mesh
}

// ResolveTextures checks that the mesh has geometry to export. STL meshes
// have no texture references.
func (a *MeshAsset) ResolveTextures(ctx context.Context) error {
	if len(a.Mesh.TriangleSlice()) == 0 {
		return fmt.Errorf("%s: mesh has no triangles", a.Source)
	}
	return ctx.Err()
}

// Export writes the mesh as STL or PLY.
func (a *MeshAsset) Export(ctx context.Context, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	switch f := FormatOf(dst); f {
	case FormatSTL:
		return a.Mesh.SaveGroupedSTL(dst)
	case FormatPLY:
		data := a.Mesh.EncodePLY(func(model3d.Coord3D) [3]uint8 { return defaultColor })
		return os.WriteFile(dst, data, 0o644)
	default:
		return fmt.Errorf("export %s: %w: %q", dst, errors.ErrUnsupportedFormat, f)
	}
}

// Convert loads src with l, resolves its textures and exports it to dst.
// Every failure is returned as an *errors.ExportError.
func Convert(ctx context.Context, l Loader, src, dst string) error {
	a, err := l.LoadAsset(ctx, src)
	if err != nil {
		return errors.NewExportError("load failed", err).WithPaths(src, dst)
	}
	if err := a.ResolveTextures(ctx); err != nil {
		return errors.NewExportError("texture resolution failed", err).WithPaths(src, dst)
	}
	if err := a.Export(ctx, dst); err != nil {
		return errors.NewExportError("export failed", err).WithPaths(src, dst)
	}
	return nil
}
