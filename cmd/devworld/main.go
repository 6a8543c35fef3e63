package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"vblocks.ai/internal/devworld"
	"vblocks.ai/internal/logging"
	"vblocks.ai/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		configPath = flag.String("config", "./configs/devworld.yaml", "dev world config (world name, cell span, accounts)")
		worldName  = flag.String("world", "", "world name (overrides config)")
	)
	flag.Parse()

	logger := logging.New("devworld")

	var cfg devworld.Config
	if p := strings.TrimSpace(*configPath); p != "" {
		c, err := devworld.LoadConfig(p)
		switch {
		case err == nil:
			cfg = c
		case os.IsNotExist(err):
			logger.Warnf("config not found (%s); accepting any login", p)
		default:
			logger.Fatalf("load config: %v", err)
		}
	}
	if *worldName != "" {
		cfg.Name = *worldName
	}
	w := devworld.New(cfg)

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/ws", ws.NewServer(w, logger.WithField("component", "ws")).Handler())
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok\n"))
	})

	srv := &http.Server{Addr: *addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.WithField("addr", *addr).WithField("world", w.Name()).Info("dev world listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("listen: %v", err)
	}
}
