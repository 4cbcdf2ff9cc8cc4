package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/milk9111/tilecanvas/app"
	"github.com/milk9111/tilecanvas/config"
	"github.com/milk9111/tilecanvas/server"
)

func main() {
	configPath := flag.String("config", "", "config file (yaml); defaults and TILECANVAS_* env apply without one")
	addr := flag.String("addr", "", "listen address, overrides the config")
	canvasID := flag.String("canvas", "", "canvas id, overrides the config")
	flag.Parse()

	a, err := app.Open(*configPath, func(c *config.Config) {
		// the server is where websocket edits get saved
		c.Canvas.PersistRemote = true
		if *addr != "" {
			c.Server.Addr = *addr
		}
		if *canvasID != "" {
			c.Canvas.ID = *canvasID
		}
	})
	if err != nil {
		log.Fatalf("tilecanvas: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := a.Config.Server
	srv := server.New(a.Session, server.Options{
		Mode:         cfg.Mode,
		CORSOrigins:  cfg.CORSOrigins,
		ShutdownWait: cfg.ShutdownWait,
		Log:          a.Log,
	})
	runErr := srv.Run(ctx, cfg.Addr, cfg.FlushEvery)

	closeCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownWait)
	defer cancel()
	if err := a.Close(closeCtx); err != nil {
		a.Log.WithError(err).Error("close failed")
	}
	if runErr != nil {
		log.Fatalf("tilecanvas: %v", runErr)
	}
}
