package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/stevib/family-events/internal/aggregate"
	"github.com/stevib/family-events/internal/config"
	"github.com/stevib/family-events/internal/logger"
	"github.com/stevib/family-events/internal/server"
)

func main() {
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	cfgPath := flag.String("config", "", "Path to YAML config (built-in defaults when empty)")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error (overrides config)")
	flag.Parse()

	bootLog := logger.New(logger.LevelInfo, os.Stderr)
	logger.SetDefault(bootLog)

	cfg, err := config.LoadOrDefault(*cfgPath)
	if err != nil {
		bootLog.Error("failed to load config", nil, err)
		os.Exit(1)
	}

	level := cfg.LogLevel
	if *logLevel != "" {
		level = *logLevel
	}
	log := logger.New(logger.ParseLevel(level), os.Stderr)
	logger.SetDefault(log)

	listen := cfg.Listen
	if *addr != "" {
		listen = *addr
	}

	var engine atomic.Pointer[aggregate.Engine]
	engine.Store(aggregate.NewFromConfig(cfg, log))

	// Hot-reload: rebuild the engine when the config file changes.
	if *cfgPath != "" {
		loader, err := config.NewLoader(*cfgPath)
		if err != nil {
			log.Error("failed to watch config", nil, err)
			os.Exit(1)
		}
		loader.OnChange(func(newCfg *config.Config) {
			engine.Store(aggregate.NewFromConfig(newCfg, log))
			log.Info("engine rebuilt from config change", logger.Fields{
				"locations": len(newCfg.Locations),
			})
		})
		stopWatch, err := loader.Watch()
		if err != nil {
			log.Warn("config watcher unavailable, hot-reload disabled", logger.Fields{
				"error": err.Error(),
			})
		} else {
			defer stopWatch()
		}
	}

	handler := server.New(engine.Load)
	srv := &http.Server{
		Addr:         listen,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server starting", logger.Fields{"addr": listen})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", nil, err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down", nil)

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutCancel()
	_ = srv.Shutdown(shutCtx)
	log.Info("goodbye", nil)
}
