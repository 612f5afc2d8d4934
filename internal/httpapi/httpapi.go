// Package httpapi wires the three HTTP endpoints (bounding-box query,
// assess-route, optimise-route) onto a chi router.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/droneroute/flightcore/internal/assess"
	"github.com/droneroute/flightcore/internal/core/observability"
	"github.com/droneroute/flightcore/internal/errs"
	"github.com/droneroute/flightcore/internal/geo"
	"github.com/droneroute/flightcore/internal/model"
	"github.com/droneroute/flightcore/internal/optimizesvc"
	"github.com/droneroute/flightcore/internal/viewport"
)

var validate = validator.New()

// Mount attaches the three route-planning endpoints to r.
func Mount(r chi.Router, viewportSvc *viewport.Service, assessSvc *assess.Service, submitSvc *optimizesvc.Service) {
	r.Get("/spatial/bounding-box", boundingBoxHandler(viewportSvc))
	r.Get("/routes/assess-route", assessRouteHandler(assessSvc))
	r.Post("/routes/optimise-route", optimiseRouteHandler(submitSvc))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errs.Is(err, errs.KindInvalidInput):
		status = http.StatusBadRequest
	case errs.Is(err, errs.KindDeadlineExceeded):
		status = http.StatusGatewayTimeout
	case errs.Is(err, errs.KindStoreFatal):
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func observe(r *http.Request, route string, status int, start time.Time) {
	observability.ObserveHTTP(r.Method, route, status, time.Since(start).Seconds())
}

type boundingBoxQuery struct {
	LatMin float64 `validate:"latitude"`
	LonMin float64 `validate:"longitude"`
	LatMax float64 `validate:"latitude"`
	LonMax float64 `validate:"longitude"`
}

func parseFloatParam(r *http.Request, name string) (float64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	return v, err == nil
}

func boundingBoxHandler(svc *viewport.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		latMin, ok1 := parseFloatParam(r, "latMin")
		lonMin, ok2 := parseFloatParam(r, "lonMin")
		latMax, ok3 := parseFloatParam(r, "latMax")
		lonMax, ok4 := parseFloatParam(r, "lonMax")
		if !ok1 || !ok2 || !ok3 || !ok4 {
			err := errs.New(errs.KindInvalidInput, "latMin, lonMin, latMax, lonMax are all required")
			writeError(w, err)
			observe(r, "/spatial/bounding-box", http.StatusBadRequest, start)
			return
		}
		q := boundingBoxQuery{LatMin: latMin, LonMin: lonMin, LatMax: latMax, LonMax: lonMax}
		if err := validate.Struct(q); err != nil {
			writeError(w, errs.Wrap(errs.KindInvalidInput, "invalid bounding box coordinates", err))
			observe(r, "/spatial/bounding-box", http.StatusBadRequest, start)
			return
		}

		res, err := svc.Query(r.Context(), model.BBox{LatMin: latMin, LonMin: lonMin, LatMax: latMax, LonMax: lonMax})
		if err != nil {
			writeError(w, err)
			observe(r, "/spatial/bounding-box", http.StatusBadRequest, start)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": res.Items, "count": res.Count})
		observe(r, "/spatial/bounding-box", http.StatusOK, start)
	}
}

type assessRouteQuery struct {
	LatStart float64 `validate:"latitude"`
	LonStart float64 `validate:"longitude"`
	LatEnd   float64 `validate:"latitude"`
	LonEnd   float64 `validate:"longitude"`
}

func assessRouteHandler(svc *assess.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		latStart, ok1 := parseFloatParam(r, "latStart")
		lonStart, ok2 := parseFloatParam(r, "lonStart")
		latEnd, ok3 := parseFloatParam(r, "latEnd")
		lonEnd, ok4 := parseFloatParam(r, "lonEnd")
		if !ok1 || !ok2 || !ok3 || !ok4 {
			err := errs.New(errs.KindInvalidInput, "latStart, lonStart, latEnd, lonEnd are all required")
			writeError(w, err)
			observe(r, "/routes/assess-route", http.StatusBadRequest, start)
			return
		}
		q := assessRouteQuery{LatStart: latStart, LonStart: lonStart, LatEnd: latEnd, LonEnd: lonEnd}
		if err := validate.Struct(q); err != nil {
			writeError(w, errs.Wrap(errs.KindInvalidInput, "invalid route coordinates", err))
			observe(r, "/routes/assess-route", http.StatusBadRequest, start)
			return
		}

		res, err := svc.Assess(r.Context(), geo.Point{Lat: latStart, Lon: lonStart}, geo.Point{Lat: latEnd, Lon: lonEnd})
		if err != nil {
			writeError(w, err)
			status := http.StatusInternalServerError
			if errs.Is(err, errs.KindInvalidInput) {
				status = http.StatusBadRequest
			}
			observe(r, "/routes/assess-route", status, start)
			return
		}
		writeJSON(w, http.StatusOK, res)
		observe(r, "/routes/assess-route", http.StatusOK, start)
	}
}

type optimiseRoutePoint struct {
	Lat float64 `json:"lat" validate:"latitude"`
	Lon float64 `json:"lon" validate:"longitude"`
}

// optimiseRouteBody holds StartPoint/EndPoint as pointers so a submitted
// point sitting at exactly (0,0) is distinguishable from a point the
// request omitted entirely: validator's "required" tag on a struct checks
// IsZero, which would otherwise reject the equator/prime-meridian.
type optimiseRouteBody struct {
	StartPoint *optimiseRoutePoint `json:"startPoint"`
	EndPoint   *optimiseRoutePoint `json:"endPoint"`
}

func optimiseRouteHandler(svc *optimizesvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		var body optimiseRouteBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, errs.Wrap(errs.KindInvalidInput, "invalid request body", err))
			observe(r, "/routes/optimise-route", http.StatusBadRequest, start)
			return
		}
		if body.StartPoint == nil || body.EndPoint == nil {
			writeError(w, errs.New(errs.KindInvalidInput, "startPoint/endPoint are required"))
			observe(r, "/routes/optimise-route", http.StatusBadRequest, start)
			return
		}
		if err := validate.Struct(body.StartPoint); err != nil {
			writeError(w, errs.Wrap(errs.KindInvalidInput, "startPoint out of range", err))
			observe(r, "/routes/optimise-route", http.StatusBadRequest, start)
			return
		}
		if err := validate.Struct(body.EndPoint); err != nil {
			writeError(w, errs.Wrap(errs.KindInvalidInput, "endPoint out of range", err))
			observe(r, "/routes/optimise-route", http.StatusBadRequest, start)
			return
		}

		id, err := svc.Submit(r.Context(),
			geo.Point{Lat: body.StartPoint.Lat, Lon: body.StartPoint.Lon},
			geo.Point{Lat: body.EndPoint.Lat, Lon: body.EndPoint.Lon})
		if err != nil {
			writeError(w, err)
			status := http.StatusInternalServerError
			if errs.Is(err, errs.KindInvalidInput) {
				status = http.StatusBadRequest
			}
			observe(r, "/routes/optimise-route", status, start)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"message": "optimization queued", "routeId": id})
		observe(r, "/routes/optimise-route", http.StatusAccepted, start)
	}
}
