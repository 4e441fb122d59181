package observer

import (
	"context"

	"github.com/Iron-Ham/photogram/internal/asset"
	"github.com/Iron-Ham/photogram/internal/errors"
	"github.com/Iron-Ham/photogram/internal/event"
)

// export converts the written model to the auxiliary destination. The
// returned error is informational; callers never change the exit code on it.
func (o *Observer) export(ctx context.Context) error {
	opts := o.opts.Export
	log := o.logger.WithPhase("export")

	if !opts.Enabled || opts.Loader == nil || opts.Destination == "" {
		log.Debug("export skipped")
		return nil
	}

	src := o.model
	if src == "" {
		src = o.opts.Output
	}
	dst := opts.Destination

	var err error
	if werr := asset.WaitForFile(ctx, src, opts.WaitTimeout); werr != nil {
		err = errors.NewExportError("model file not available", werr).WithPaths(src, dst)
	} else {
		err = asset.Convert(ctx, opts.Loader, src, dst)
	}

	o.publish(event.NewExportEvent(src, dst, err))
	if err != nil {
		logFailure(log, "export failed", err, "src", src, "dst", dst)
		return err
	}
	log.Info("export written", "src", src, "dst", dst)
	return nil
}
