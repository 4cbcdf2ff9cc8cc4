// Package app assembles a session from configuration for the binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/milk9111/tilecanvas/config"
	"github.com/milk9111/tilecanvas/logging"
	"github.com/milk9111/tilecanvas/persist"
	"github.com/milk9111/tilecanvas/session"
	"github.com/milk9111/tilecanvas/tilemap"
)

// App owns the logger, the session and the palette watcher of one process.
type App struct {
	Config  *config.Config
	Log     *logrus.Logger
	Session *session.Session

	watcher   *config.Watcher
	logCloser io.Closer
}

// Open loads the config at path ("" for defaults and environment only),
// applies override and opens the session.
func Open(path string, override func(*config.Config)) (*App, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if override != nil {
		override(cfg)
	}
	return New(cfg)
}

func New(cfg *config.Config) (*App, error) {
	log, closer, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	a := &App{Config: cfg, Log: log, logCloser: closer}

	palette, err := config.LoadPalette(cfg.Canvas.Palette)
	if err != nil {
		a.closeLog()
		return nil, err
	}
	meta, err := cfg.Meta(palette)
	if err != nil {
		a.closeLog()
		return nil, err
	}
	backend, err := persist.Open(cfg.Store)
	if err != nil {
		a.closeLog()
		return nil, fmt.Errorf("open store: %w", err)
	}

	opts := cfg.SessionOptions()
	opts.Meta = &meta
	opts.Backend = backend
	opts.Log = log
	sess, err := session.New(opts)
	if err != nil {
		_ = backend.Close()
		a.closeLog()
		return nil, err
	}
	a.Session = sess

	log.WithFields(logrus.Fields{
		"canvas":  sess.CanvasID(),
		"driver":  cfg.Store.Driver,
		"palette": len(palette),
	}).Info("session opened")

	if cfg.Canvas.WatchPalette && cfg.Canvas.Palette != "" {
		w, err := config.WatchPalette(cfg.Canvas.Palette, a.applyPalette, log)
		if err != nil {
			log.WithError(err).Warn("palette watch disabled")
		} else {
			a.watcher = w
		}
	}
	return a, nil
}

func (a *App) applyPalette(p tilemap.Palette) {
	if err := a.Session.SetPalette(p); err != nil {
		a.Log.WithError(err).Warn("palette reload rejected")
		return
	}
	a.Log.WithField("types", len(p)).Info("palette reloaded")
}

func (a *App) closeLog() {
	if a.logCloser != nil {
		_ = a.logCloser.Close()
	}
}

// Close flushes and closes the session, then the logger.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.watcher != nil {
		errs = append(errs, a.watcher.Close())
	}
	if a.Session != nil {
		errs = append(errs, a.Session.Close(ctx))
	}
	a.closeLog()
	return errors.Join(errs...)
}
