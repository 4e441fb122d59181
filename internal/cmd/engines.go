package cmd

import (
	"fmt"
	"strings"

	"github.com/Iron-Ham/photogram/internal/asset"
	"github.com/Iron-Ham/photogram/internal/config"
	"github.com/Iron-Ham/photogram/internal/engine"
	"github.com/Iron-Ham/photogram/internal/engine/process"
	"github.com/Iron-Ham/photogram/internal/engine/replay"
	"github.com/Iron-Ham/photogram/internal/errors"
	"github.com/Iron-Ham/photogram/internal/logging"
)

// newEngine creates the engine named by engine.name.
func newEngine(cfg *config.Config, logger *logging.Logger) (engine.Engine, error) {
	name := engine.Name(strings.ToLower(cfg.Engine.Name))
	switch name {
	case engine.NameProcess:
		return process.New(process.OptionsFromConfig(cfg.Engine), logger.WithPhase("engine")), nil
	case engine.NameReplay:
		eng, err := replay.Open(cfg.Engine.Script)
		if err != nil {
			return nil, errors.NewEnvironmentError("failed to load replay script", err).WithEngine(string(name))
		}
		return eng.WithLogger(logger.WithPhase("engine")), nil
	default:
		return nil, fmt.Errorf("unknown engine %q", cfg.Engine.Name)
	}
}

// newLoader picks the converter for the post-processing export. The engine
// converter falls back to the built-in one for engines that cannot export.
func newLoader(cfg *config.Config, eng engine.Engine) asset.Loader {
	if strings.ToLower(cfg.Export.Converter) == "engine" {
		if l, ok := eng.(asset.Loader); ok {
			return l
		}
	}
	return asset.NewMeshLoader()
}
