package watcher

import (
	"context"
	"path/filepath"
	"time"

	"github.com/conneroisu/blockwright/internal/logging"
	"github.com/conneroisu/blockwright/internal/registry"
)

// ReloadFunc receives every registry rebuilt from the payload file.
type ReloadFunc func(reg *registry.Registry)

// PayloadReloader rebuilds the registry from a payload file.
type PayloadReloader struct {
	path   string
	opts   []registry.Option
	apply  ReloadFunc
	logger logging.Logger
}

// NewPayloadReloader creates a reloader for the payload at path.
func NewPayloadReloader(path string, apply ReloadFunc, logger logging.Logger, opts ...registry.Option) *PayloadReloader {
	if logger == nil {
		logger = logging.Discard()
	}

	return &PayloadReloader{
		path:   path,
		opts:   opts,
		apply:  apply,
		logger: logger.WithComponent("reload"),
	}
}

// Reload loads the payload and hands the new registry to the reload
// function. A payload that fails to load or build leaves the current
// registry in place.
func (p *PayloadReloader) Reload(ctx context.Context) error {
	perf := logging.StartOperation(p.logger, "registry_reload")

	payload, err := registry.LoadPayloadFile(p.path)
	if err != nil {
		perf.EndWithError(ctx, err)
		return err
	}
	reg, err := registry.New(payload, p.opts...)
	if err != nil {
		perf.EndWithError(ctx, err)
		return err
	}

	p.apply(reg)
	perf.End(ctx)

	return nil
}

// Handle is a ChangeHandler reloading on any event that did not delete the
// payload.
func (p *PayloadReloader) Handle(ctx context.Context, events []ChangeEvent) error {
	for _, e := range events {
		if e.Type == EventTypeDeleted {
			p.logger.Warn(ctx, nil, "payload removed, keeping current registry", "path", e.Path)
			continue
		}

		return p.Reload(ctx)
	}

	return nil
}

// WatchPayload starts a watcher reloading the registry whenever the payload
// file changes. The directory is watched rather than the file so editors
// that replace the file on save keep triggering reloads.
func WatchPayload(ctx context.Context, path string, delay time.Duration, apply ReloadFunc, logger logging.Logger, opts ...registry.Option) (*FileWatcher, error) {
	fw, err := NewFileWatcher(delay, logger)
	if err != nil {
		return nil, err
	}

	fw.AddFilter(NoHiddenFilter)
	fw.AddFilter(NameFilter(path))
	fw.AddHandler(NewPayloadReloader(path, apply, logger, opts...).Handle)

	if err := fw.AddPath(filepath.Dir(path)); err != nil {
		_ = fw.Stop()
		return nil, err
	}
	if err := fw.Start(ctx); err != nil {
		_ = fw.Stop()
		return nil, err
	}

	return fw, nil
}
