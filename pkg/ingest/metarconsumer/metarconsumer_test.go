package metarconsumer

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/droneroute/flightcore/internal/geohash"
	"github.com/droneroute/flightcore/internal/model"
)

type fakeWriter struct {
	written []model.GeoPoint
}

func (f *fakeWriter) WriteBatch(ctx context.Context, items []model.GeoPoint) {
	f.written = append(f.written, items...)
}

func testConfig() Config {
	return Config{PartitionKeyPrecision: 5, SortKeyPrecision: 8, GSIPrecision: 4, ItemTTL: 24 * time.Hour}
}

func TestHandleMessageWritesValidReport(t *testing.T) {
	w := &fakeWriter{}
	c := New(w, testConfig())

	vis := 4000.0
	wind := 5.0
	body, err := json.Marshal(map[string]any{
		"lat": 51.5, "lon": -0.1,
		"visibilityMeters": vis, "windSpeedMs": wind,
		"dataTimestamp": time.Now().UTC().Format(time.RFC3339),
	})
	require.NoError(t, err)

	c.handleMessage(context.Background(), body)

	require.Len(t, w.written, 1)
	wr, ok := w.written[0].(model.WeatherReport)
	require.True(t, ok)
	require.Equal(t, 51.5, wr.Lat)
	require.NotEmpty(t, wr.PK)
	require.NotEmpty(t, wr.SK)
	require.NotEmpty(t, wr.GSI1PK)
	require.NotNil(t, wr.VisibilityMeters)
	require.InDelta(t, vis, *wr.VisibilityMeters, 0.001)
}

func TestHandleMessageSetsKeyIntegrityInvariant(t *testing.T) {
	w := &fakeWriter{}
	cfg := testConfig()
	c := New(w, cfg)

	body, err := json.Marshal(map[string]any{"lat": 51.5, "lon": -0.1})
	require.NoError(t, err)

	c.handleMessage(context.Background(), body)

	require.Len(t, w.written, 1)
	wr, ok := w.written[0].(model.WeatherReport)
	require.True(t, ok)

	wantPK := geohash.Encode(51.5, -0.1, cfg.PartitionKeyPrecision)
	require.Equal(t, wantPK, wr.PK)

	wantSKSuffix := geohash.Encode(51.5, -0.1, cfg.SortKeyPrecision)
	require.True(t, strings.HasPrefix(wr.SK, string(model.TypeWeather)+"#"))
	require.Equal(t, string(model.TypeWeather)+"#"+wantSKSuffix, wr.SK)
}

func TestHandleMessageDropsInvalidCoordinates(t *testing.T) {
	w := &fakeWriter{}
	c := New(w, testConfig())

	body, err := json.Marshal(map[string]any{"lat": 500.0, "lon": 0.0})
	require.NoError(t, err)

	c.handleMessage(context.Background(), body)

	require.Empty(t, w.written)
}

func TestHandleMessageDropsUndecodable(t *testing.T) {
	w := &fakeWriter{}
	c := New(w, testConfig())

	c.handleMessage(context.Background(), []byte("not json"))

	require.Empty(t, w.written)
}
