package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/droneroute/flightcore/internal/assess"
	"github.com/droneroute/flightcore/internal/corridor"
	"github.com/droneroute/flightcore/internal/model"
	"github.com/droneroute/flightcore/internal/optimizesvc"
	"github.com/droneroute/flightcore/internal/viewport"
)

type emptyFetcher struct{}

func (emptyFetcher) FetchByHashPrefixes(ctx context.Context, prefixes []string, useSparseIndex bool) []model.GeoPoint {
	return nil
}

type fakeSubmitStore struct{}

func (fakeSubmitStore) CreateRouteRecord(ctx context.Context, pts []model.Point) (string, error) {
	return "route-xyz", nil
}
func (fakeSubmitStore) PublishRouteInserted(ctx context.Context, id string) error { return nil }

func newTestRouter() chi.Router {
	r := chi.NewRouter()
	vp := viewport.New(emptyFetcher{}, 4)
	as := assess.New(corridor.NewScanner(8), emptyFetcher{}, 5, 1000, 10000)
	sub := optimizesvc.New(fakeSubmitStore{})
	Mount(r, vp, as, sub)
	return r
}

func TestBoundingBoxHandlerMissingParam(t *testing.T) {
	r := newTestRouter()
	req := httptest.NewRequest(http.MethodGet, "/spatial/bounding-box?latMin=1&lonMin=1&latMax=2", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestBoundingBoxHandlerHappyPath(t *testing.T) {
	r := newTestRouter()
	req := httptest.NewRequest(http.MethodGet, "/spatial/bounding-box?latMin=1&lonMin=1&latMax=2&lonMax=2", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, float64(0), body["count"])
}

func TestAssessRouteHandlerHappyPath(t *testing.T) {
	r := newTestRouter()
	req := httptest.NewRequest(http.MethodGet, "/routes/assess-route?latStart=51.5&lonStart=-0.1&latEnd=51.53&lonEnd=-0.1", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestOptimiseRouteHandlerHappyPath(t *testing.T) {
	r := newTestRouter()
	body, err := json.Marshal(map[string]any{
		"startPoint": map[string]float64{"lat": 1, "lon": 1},
		"endPoint":   map[string]float64{"lat": 2, "lon": 2},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/routes/optimise-route", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusAccepted, rr.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "route-xyz", resp["routeId"])
}

func TestOptimiseRouteHandlerAcceptsZeroValuePoint(t *testing.T) {
	r := newTestRouter()
	body, err := json.Marshal(map[string]any{
		"startPoint": map[string]float64{"lat": 0, "lon": 0},
		"endPoint":   map[string]float64{"lat": 2, "lon": 2},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/routes/optimise-route", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusAccepted, rr.Code)
}

func TestOptimiseRouteHandlerMissingBody(t *testing.T) {
	r := newTestRouter()
	req := httptest.NewRequest(http.MethodPost, "/routes/optimise-route", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}
