package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/Pluto-lin/magma/internal/infra/buildinfo"
	"github.com/Pluto-lin/magma/internal/infra/confloader"
	"github.com/Pluto-lin/magma/internal/infra/shutdown"
	"github.com/Pluto-lin/magma/internal/server/bootstrap"
	"github.com/Pluto-lin/magma/internal/server/config"
	"github.com/Pluto-lin/magma/internal/server/httpserver"
	"github.com/Pluto-lin/magma/internal/server/localserver"
	"github.com/Pluto-lin/magma/internal/telemetry/logger"
	"github.com/Pluto-lin/magma/internal/telemetry/metric"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	info := buildinfo.Get()
	if *showVersion {
		fmt.Printf("magmad %s\n", info)
		return nil
	}

	cfg, loader, err := config.Load(*configFile, nil)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg.Log)
	logger.SetDefault(log)
	log.Info("starting magmad",
		"version", info.Version,
		"commit", info.ShortCommit(),
		"config", *configFile)
	log.Debug("effective configuration", "config", config.Sanitize(cfg))

	ctx := context.Background()
	registry := metric.NewRegistry()
	stack, err := bootstrap.Build(ctx, cfg, log,
		bootstrap.WithMetrics(registry),
		bootstrap.WithVersion(info.Version))
	if err != nil {
		return err
	}

	shutdownHandler := shutdown.NewHandler(cfg.Server.ShutdownTimeout, log)

	// Hooks run in reverse order of registration.
	shutdownHandler.OnShutdown("stack", stack.Close)

	stopSweeper := startSweeper(stack, cfg.Cache.SweepInterval, cfg.Cache.IdleTTL, log)
	shutdownHandler.OnShutdown("sweeper", func(context.Context) error {
		stopSweeper()
		return nil
	})

	routerCfg := httpserver.RouterConfig{
		Cache: stack.Authenticator,
		Ready: func() error {
			rctx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			return stack.Ready(rctx)
		},
		Metrics:        registry.Handler(),
		IdleTTL:        cfg.Cache.IdleTTL,
		AdminAllowList: cfg.Server.AdminAllowList,
		Logger:         log,
	}

	if cfg.Server.Addr != "" {
		httpServer := httpserver.New(cfg.Server.Addr, httpserver.NewRouter(&routerCfg))
		shutdownHandler.OnShutdown("http", httpServer.Shutdown)

		go func() {
			log.Info("ops server listening", "addr", cfg.Server.Addr)
			if err := httpServer.ListenAndServe(); err != nil {
				log.Error("ops server error", "error", err)
				shutdownHandler.Trigger()
			}
		}()
	}

	if cfg.Server.AdminSocket != "" {
		localCfg := routerCfg
		localCfg.Local = true
		localServer := localserver.New(cfg.Server.AdminSocket, httpserver.NewRouter(&localCfg))
		if err := localServer.Listen(); err != nil {
			_ = stack.Close(ctx)
			return fmt.Errorf("admin socket: %w", err)
		}
		shutdownHandler.OnShutdown("admin-socket", localServer.Shutdown)

		go func() {
			log.Info("admin socket listening", "path", localServer.Path())
			if err := localServer.Serve(); err != nil {
				log.Error("admin socket error", "error", err)
				shutdownHandler.Trigger()
			}
		}()
	}

	if *configFile != "" {
		watcher, err := watchConfig(*configFile, loader, log)
		if err != nil {
			log.Warn("config watch disabled", "error", err)
		} else {
			shutdownHandler.OnShutdown("config-watcher", func(context.Context) error {
				return watcher.Stop()
			})
		}
	}

	log.Info("magmad started, press Ctrl+C to stop")
	if err := shutdownHandler.Wait(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("magmad stopped gracefully")
	return nil
}

// startSweeper evicts idle users every interval until the returned stop
// function is called.
func startSweeper(stack *bootstrap.Stack, interval, idle time.Duration, log logger.Logger) func() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := stack.Authenticator.Maintain(ctx, idle)
				if err != nil {
					log.Warn("idle sweep failed", "error", err)
					continue
				}
				if n > 0 {
					log.Debug("idle users evicted", "count", n)
				}
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

// watchConfig reloads the configuration on file changes. Only the log
// level is applied at runtime; other changes need a restart.
func watchConfig(path string, loader *confloader.Loader, log logger.Logger) (*confloader.Watcher, error) {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		return nil, err
	}
	if err := w.Watch(path); err != nil {
		_ = w.Stop()
		return nil, err
	}
	w.OnChange(func(string) {
		cfg, err := config.Reload(loader)
		if err != nil {
			log.Warn("config reload rejected", "error", err)
			return
		}
		if cfg.Log.Level != logger.GetLevel() {
			logger.SetLevel(cfg.Log.Level)
			log.Info("log level changed", "level", cfg.Log.Level)
		}
	})
	w.StartAsync()
	return w, nil
}
