package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gekko3d/brickyard"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config (default $"+brickyard.ConfigEnv+")")
	metricsAddr := flag.String("metrics-addr", "", "serve Prometheus metrics on this address")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	cfg, err := brickyard.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *metricsAddr != "" {
		cfg.Metrics.Addr = *metricsAddr
	}
	if *debug {
		cfg.Logging.Debug = true
	}

	// The shell writes to stdout, so log lines go to stderr.
	logger := brickyard.NewWriterLogger(cfg.Logging.Prefix, cfg.Logging.Debug, os.Stderr, os.Stderr)

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector())
	metrics, err := brickyard.NewMetrics(promReg, cfg.Placement.MaxStackLayers)
	if err != nil {
		log.Fatalf("metrics: %v", err)
	}

	session, err := brickyard.Open(cfg, logger, metrics)
	if err != nil {
		log.Fatalf("open session: %v", err)
	}
	defer session.Close()

	var srv *http.Server
	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", brickyard.MetricsHandler(promReg))
		srv = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			logger.Infof("metrics on %s/metrics", cfg.Metrics.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Errorf("metrics server: %v", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g := cfg.Geometry()
	logger.Infof("baseplate %dx%d studs, stack limit %d", g.BaseplateSize, g.BaseplateSize, cfg.Placement.MaxStackLayers)

	done := make(chan error, 1)
	go func() { done <- newShell(session, os.Stdout).Run(os.Stdin) }()

	select {
	case err = <-done:
		if err != nil {
			logger.Errorf("shell: %v", err)
		}
	case <-ctx.Done():
		logger.Infof("shutting down")
	}

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
}
