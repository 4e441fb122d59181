package process

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/Iron-Ham/photogram/internal/asset"
)

var _ asset.Loader = (*Engine)(nil)

// LoadAsset returns an asset converted by the engine's export subcommand.
// The engine reads its own native formats, so nothing is parsed here.
func (e *Engine) LoadAsset(ctx context.Context, path string) (asset.Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	return &engineAsset{engine: e, source: path}, nil
}

type engineAsset struct {
	engine   *Engine
	source   string
	textures bool
}

// ResolveTextures asks the engine to bundle texture files with the export.
func (a *engineAsset) ResolveTextures(ctx context.Context) error {
	a.textures = true
	return ctx.Err()
}

// Export runs the export subcommand.
func (a *engineAsset) Export(ctx context.Context, dst string) error {
	args := []string{"export"}
	if a.textures {
		args = append(args, "--resolve-textures")
	}
	args = append(args, a.source, dst)

	cmd := exec.CommandContext(ctx, a.engine.opts.Command, a.engine.args(args...)...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if detail := strings.TrimSpace(string(out)); detail != "" {
			return fmt.Errorf("engine export: %w: %s", err, detail)
		}
		return fmt.Errorf("engine export: %w", err)
	}
	return nil
}
