package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	router "github.com/dkeye/pulse/internal/adapters/http"
	"github.com/dkeye/pulse/internal/adapters/signal"
	"github.com/dkeye/pulse/internal/adapters/ws"
	"github.com/dkeye/pulse/internal/app"
	"github.com/dkeye/pulse/internal/app/orch"
	"github.com/dkeye/pulse/internal/config"
	"github.com/dkeye/pulse/internal/core"
	"github.com/dkeye/pulse/internal/domain"
	"github.com/dkeye/pulse/internal/metrics"
)

const shutdownTimeout = 10 * time.Second

func main() {
	config.InitLogger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	config.ApplyLogging(cfg)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg, "room")

	codes, err := domain.NewRoomCodeGenerator()
	if err != nil {
		log.Fatal().Err(err).Msg("room code generator")
	}

	hub := app.NewHub(cfg.HubQueue, m)
	registry := app.NewRegistry(core.SystemClock)
	relay := app.NewRelay(registry, app.PolicyByName(cfg.Backpressure), m)
	rooms := app.NewRoomManager(registry, relay, codes, core.SystemClock, app.RoomOptions{
		HistoryCap:   cfg.ChatHistory,
		SnapshotSize: cfg.SnapshotHistory,
	})
	o := orch.New(registry, relay, rooms, nil, m, core.SystemClock)
	sweeper := &orch.Sweeper{
		Hub:         hub,
		Orch:        o,
		Interval:    cfg.SweepInterval,
		ConnTimeout: cfg.ConnTimeout,
		RoomMaxAge:  cfg.RoomMaxAge,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctrl := signal.NewSignalWSController(hub, o, m,
		ws.NewGate(cfg.MaxConnections),
		signal.NewRoomRateLimiter(cfg.ChatRateLimit, cfg.ChatRateWindow, core.SystemClock),
		ws.Options{
			SendBuffer: cfg.SendBuffer,
			ReadLimit:  cfg.ReadLimit,
			PingPeriod: cfg.PingPeriod,
			PongWait:   cfg.ConnTimeout,
		})
	r := router.SetupRouter(ctx, cfg, hub, o, ctrl, reg)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return hub.Run(gctx) })
	g.Go(func() error { return sweeper.Run(gctx) })

	go func() {
		log.Info().Str("addr", addr).Msg("pulse server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"http": func(ctx context.Context) error {
				log.Info().Msg("Shutting down")
				return srv.Shutdown(ctx)
			},
			"dispatch": func(ctx context.Context) error {
				cancel()
				return g.Wait()
			},
		},
	)

	exitCode := <-wait
	log.Info().Int("code", exitCode).Msg("Server exited gracefully")
	os.Exit(exitCode)
}
