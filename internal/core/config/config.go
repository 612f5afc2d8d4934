// Package config loads process-wide configuration once at startup. The
// resulting Config is treated as immutable for the life of the process.
package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Addr     string
	LogLevel string

	SpatialDataTable string // logical name of the geopoint partition
	RoutesTable      string // ROUTES_TABLE; not read by any binary: route records and their insert channel are keyed under SpatialDataTable

	RedisAddr    string
	KafkaBrokers string

	PartitionKeyHashPrecision int // P_PK, default 5
	SortKeyHashPrecision      int // P_SK, default 8
	GSIHashPrecision          int // P_GSI, default 4

	// route optimizer tunables
	StepMeters        float64
	AngleRangeDeg      float64
	FanCount           int
	MaxDeviationRatio  float64
	CorridorBufferM    float64

	AssessDeadline   time.Duration
	OptimizeDeadline time.Duration

	FetchFanoutLimit int
	WriteBatchSize   int
	MaxPages         int
	PageLimit        int

	ItemTTL        time.Duration // population/weather point retention
	RouteRecordTTL time.Duration // route record retention

	RoutesFeedDriver string // "redis-keyspace" | "kafka"
	RoutesFeedTopic  string
	RoutesMaxAge     time.Duration
	RoutesMaxRetries int

	EventsHTTPDomain string
	EventsAPIKey     string
	EventsChannel    string

	MetarTopic   string
	MetarGroupID string
}

func FromEnv() Config {
	return Config{
		Addr:     getenv("ADDR", ":8090"),
		LogLevel: getenv("LOG_LEVEL", "info"),

		SpatialDataTable: getenv("SPATIAL_DATA_TABLE", "spatial-data"),
		RoutesTable:      getenv("ROUTES_TABLE", "routes"),

		RedisAddr:    getenv("REDIS_ADDR", "localhost:6379"),
		KafkaBrokers: getenv("KAFKA_BROKERS", "localhost:9092"),

		PartitionKeyHashPrecision: getint("PARTITION_KEY_HASH_PRECISION", 5),
		SortKeyHashPrecision:      getint("SORT_KEY_HASH_PRECISION", 8),
		GSIHashPrecision:          getint("GSI_HASH_PRECISION", 4),

		StepMeters:        getfloat("ROUTE_STEP_METERS", 1000),
		AngleRangeDeg:     getfloat("ROUTE_ANGLE_RANGE_DEG", 30),
		FanCount:          getint("ROUTE_FAN", 10),
		MaxDeviationRatio: getfloat("ROUTE_MAX_DEVIATION_RATIO", 0.20),
		CorridorBufferM:   getfloat("CORRIDOR_BUFFER_METERS", 10000),

		AssessDeadline:   getduration("ASSESS_DEADLINE", 30*time.Second),
		OptimizeDeadline: getduration("OPTIMIZE_DEADLINE", 5*time.Minute),

		FetchFanoutLimit: getint("FETCH_FANOUT_LIMIT", 50),
		WriteBatchSize:   getint("WRITE_BATCH_SIZE", 25),
		MaxPages:         getint("MAX_PAGES", 10),
		PageLimit:        getint("PAGE_LIMIT", 1000),

		ItemTTL:        getduration("ITEM_TTL", 24*time.Hour),
		RouteRecordTTL: getduration("ROUTE_RECORD_TTL", 7*24*time.Hour),

		RoutesFeedDriver: getenv("ROUTES_FEED_DRIVER", "redis-keyspace"),
		RoutesFeedTopic:  getenv("ROUTES_FEED_TOPIC", "routes.inserts"),
		RoutesMaxAge:     getduration("ROUTES_MAX_AGE", 5*time.Minute),
		RoutesMaxRetries: getint("ROUTES_MAX_RETRIES", 2),

		EventsHTTPDomain: getenv("EVENTS_HTTP_DOMAIN", ""),
		EventsAPIKey:     getenv("EVENTS_API_KEY", ""),
		EventsChannel:    getenv("EVENTS_CHANNEL", "default/routes"),

		MetarTopic:   getenv("METAR_TOPIC", "metar.decoded"),
		MetarGroupID: getenv("METAR_GROUP_ID", "flightcore-metar-ingest"),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
