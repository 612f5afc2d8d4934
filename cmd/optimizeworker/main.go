// Command optimizeworker consumes route-insert notifications and runs the
// A* corridor optimizer against each newly submitted route.
package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/droneroute/flightcore/internal/cache/redisstore"
	"github.com/droneroute/flightcore/internal/core/config"
	"github.com/droneroute/flightcore/internal/core/httpclient"
	"github.com/droneroute/flightcore/internal/corridor"
	"github.com/droneroute/flightcore/internal/logger"
	"github.com/droneroute/flightcore/internal/notify"
	"github.com/droneroute/flightcore/internal/optimizesvc/worker"
	"github.com/droneroute/flightcore/internal/store/spatial"
)

func main() {
	cfg := config.FromEnv()

	zl := logger.Build(logger.Config{Level: cfg.LogLevel, Stage: "optimizeworker"}, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rc, err := redisstore.New(ctx, cfg.RedisAddr)
	if err != nil {
		zl.Fatal().Err(err).Msg("connect redis")
	}
	defer rc.Close()

	store := spatial.New(rc, cfg.SpatialDataTable, cfg.ItemTTL, cfg.RouteRecordTTL, cfg.WriteBatchSize).WithLogger(zl)
	scanner := corridor.NewScanner(256)

	var pub *notify.Publisher
	if cfg.EventsHTTPDomain != "" {
		pub = notify.NewPublisher(httpclient.NewOutbound(), cfg.EventsHTTPDomain, cfg.EventsAPIKey, cfg.EventsChannel, 256)
		pub = pub.WithLogger(zl)
		defer pub.Close()
	}

	w := worker.New(store, store, scanner, pub, worker.Config{
		MaxRetries:        cfg.RoutesMaxRetries,
		MaxAge:            cfg.RoutesMaxAge,
		Precision:         cfg.PartitionKeyHashPrecision,
		StepMeters:        cfg.StepMeters,
		AngleRangeDeg:     cfg.AngleRangeDeg,
		FanCount:          cfg.FanCount,
		MaxDeviationRatio: cfg.MaxDeviationRatio,
		CorridorBufferM:   cfg.CorridorBufferM,
		OptimizeDeadline:  cfg.OptimizeDeadline,
	}).WithLogger(zl)

	switch strings.ToLower(cfg.RoutesFeedDriver) {
	case "kafka":
		d := worker.NewKafkaDriver(w, strings.Split(cfg.KafkaBrokers, ","), cfg.RoutesFeedTopic, "flightcore-optimizeworker")
		if err := d.Run(ctx); err != nil {
			zl.Fatal().Err(err).Msg("kafka driver exited")
		}
	default:
		sub := store.SubscribeRouteInserts(ctx)
		d := worker.NewRedisKeyspaceDriver(w, sub)
		if err := d.Run(ctx); err != nil {
			zl.Fatal().Err(err).Msg("redis keyspace driver exited")
		}
	}
}
