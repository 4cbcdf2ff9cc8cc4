// Package server exposes a session over HTTP, websockets and MCP.
package server

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/milk9111/tilecanvas/session"
)

const maxImportBytes = 32 << 20

type Options struct {
	Mode         string
	CORSOrigins  []string
	ShutdownWait time.Duration
	Log          logrus.FieldLogger
}

type Server struct {
	sess   *session.Session
	hub    *Hub
	log    logrus.FieldLogger
	wait   time.Duration
	engine *gin.Engine
}

func New(sess *session.Session, opts Options) *Server {
	log := opts.Log
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		log = l
	}
	if opts.Mode != "" {
		gin.SetMode(opts.Mode)
	}
	if opts.ShutdownWait <= 0 {
		opts.ShutdownWait = 5 * time.Second
	}

	s := &Server{
		sess: sess,
		hub:  NewHub(sess, log),
		log:  log.WithField("component", "server"),
		wait: opts.ShutdownWait,
	}

	e := gin.New()
	e.Use(gin.Recovery(), requestLogger(s.log), corsFor(opts.CORSOrigins))
	e.GET("/healthz", func(c *gin.Context) { ok(c, gin.H{"canvas": sess.CanvasID()}) })
	e.GET("/ws", gin.WrapH(s.hub))
	s.routes(e.Group("/api"))
	e.NoRoute(func(c *gin.Context) {
		fail(c, http.StatusNotFound, CodeNotFound, "not found")
	})
	s.engine = e
	return s
}

func corsFor(origins []string) gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

func requestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		entry := log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		})
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			entry.Error("request failed")
		case c.Writer.Status() >= http.StatusBadRequest:
			entry.Info("request rejected")
		default:
			entry.Debug("request")
		}
	}
}

// Handler returns the HTTP handler serving the API and the websocket.
func (s *Server) Handler() http.Handler { return s.engine }

// Hub returns the websocket hub.
func (s *Server) Hub() *Hub { return s.hub }

// Run serves on addr until ctx is done. Dirty tiles are flushed every
// flushEvery; a final flush runs on shutdown.
func (s *Server) Run(ctx context.Context, addr string, flushEvery time.Duration) error {
	srv := &http.Server{Addr: addr, Handler: s.engine, ReadHeaderTimeout: 10 * time.Second}

	errc := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	var tick <-chan time.Time
	if flushEvery > 0 {
		t := time.NewTicker(flushEvery)
		defer t.Stop()
		tick = t.C
	}

	for {
		select {
		case err, open := <-errc:
			if open {
				return err
			}
			return nil
		case <-tick:
			if res, err := s.sess.Flush(ctx); err != nil {
				s.log.WithError(err).Warn("periodic flush failed")
			} else if res.TileCount > 0 {
				s.log.WithFields(logrus.Fields{"tiles": res.TileCount, "batches": res.BatchCount}).Debug("flushed")
			}
		case <-ctx.Done():
			return s.shutdown(srv)
		}
	}
}

func (s *Server) shutdown(srv *http.Server) error {
	sctx, cancel := context.WithTimeout(context.Background(), s.wait)
	defer cancel()
	s.hub.Close()
	err := srv.Shutdown(sctx)
	if _, ferr := s.sess.Flush(sctx); ferr != nil {
		s.log.WithError(ferr).Error("final flush failed")
	}
	if werr := s.sess.WaitPersisted(sctx); werr != nil {
		s.log.WithError(werr).Warn("pending writes not confirmed")
	}
	s.log.Info("server stopped")
	return err
}
