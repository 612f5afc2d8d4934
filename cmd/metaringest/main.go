// Command metaringest consumes decoded METAR weather records off Kafka and
// writes them into the spatial store.
package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/droneroute/flightcore/internal/cache/redisstore"
	"github.com/droneroute/flightcore/internal/core/config"
	"github.com/droneroute/flightcore/internal/logger"
	"github.com/droneroute/flightcore/internal/store/spatial"
	"github.com/droneroute/flightcore/pkg/ingest/metarconsumer"
)

func main() {
	cfg := config.FromEnv()

	zl := logger.Build(logger.Config{Level: cfg.LogLevel, Stage: "metaringest"}, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rc, err := redisstore.New(ctx, cfg.RedisAddr)
	if err != nil {
		zl.Fatal().Err(err).Msg("connect redis")
	}
	defer rc.Close()

	store := spatial.New(rc, cfg.SpatialDataTable, cfg.ItemTTL, cfg.RouteRecordTTL, cfg.WriteBatchSize).WithLogger(zl)

	consumer := metarconsumer.New(store, metarconsumer.Config{
		PartitionKeyPrecision: cfg.PartitionKeyHashPrecision,
		SortKeyPrecision:      cfg.SortKeyHashPrecision,
		GSIPrecision:          cfg.GSIHashPrecision,
		ItemTTL:               cfg.ItemTTL,
	}).WithLogger(zl)

	driver := metarconsumer.NewDriver(consumer, strings.Split(cfg.KafkaBrokers, ","), cfg.MetarTopic, cfg.MetarGroupID)
	if err := driver.Run(ctx); err != nil {
		zl.Fatal().Err(err).Msg("metar consumer driver exited")
	}
}
