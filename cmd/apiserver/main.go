// Command apiserver runs the HTTP surface: bounding-box query, assess-route,
// and optimise-route submission.
package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/droneroute/flightcore/internal/assess"
	"github.com/droneroute/flightcore/internal/cache/redisstore"
	"github.com/droneroute/flightcore/internal/core/config"
	"github.com/droneroute/flightcore/internal/core/health"
	"github.com/droneroute/flightcore/internal/core/observability"
	"github.com/droneroute/flightcore/internal/core/server"
	"github.com/droneroute/flightcore/internal/corridor"
	"github.com/droneroute/flightcore/internal/logger"
	"github.com/droneroute/flightcore/internal/optimizesvc"
	"github.com/droneroute/flightcore/internal/store/spatial"
	"github.com/droneroute/flightcore/internal/viewport"
)

func main() {
	cfg := config.FromEnv()
	observability.Init(prometheus.DefaultRegisterer, true)

	zl := logger.Build(logger.Config{Level: cfg.LogLevel, Stage: "apiserver"}, os.Stdout)
	slogLogger := logger.NewSlog(&zl)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rc, err := redisstore.New(ctx, cfg.RedisAddr)
	if err != nil {
		zl.Fatal().Err(err).Msg("connect redis")
	}
	defer rc.Close()

	store := spatial.New(rc, cfg.SpatialDataTable, cfg.ItemTTL, cfg.RouteRecordTTL, cfg.WriteBatchSize).WithLogger(zl)
	scanner := corridor.NewScanner(256)

	assessSvc := assess.New(scanner, store, cfg.PartitionKeyHashPrecision, cfg.StepMeters, cfg.CorridorBufferM)
	viewportSvc := viewport.New(store, cfg.GSIHashPrecision)
	submitSvc := optimizesvc.New(store)

	if strings.ToLower(cfg.RoutesFeedDriver) == "kafka" {
		pub, err := optimizesvc.NewKafkaInsertPublisher(strings.Split(cfg.KafkaBrokers, ","), cfg.RoutesFeedTopic)
		if err != nil {
			zl.Fatal().Err(err).Msg("new kafka insert publisher")
		}
		defer pub.Close()
		submitSvc = submitSvc.WithFeed(pub)
	}

	readiness := health.Redis{Pinger: rc}

	if err := server.Run(ctx, cfg, slogLogger, viewportSvc, assessSvc, submitSvc, readiness); err != nil {
		zl.Fatal().Err(err).Msg("server exited")
	}
}
