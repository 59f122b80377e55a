package distance

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"tourweave/pkg/config"
	"tourweave/pkg/db"
	"tourweave/pkg/distcache"
	"tourweave/pkg/geo"
	"tourweave/pkg/model"
	"tourweave/pkg/request"
	"tourweave/pkg/tracker"
)

func newTestOracle(t *testing.T, cfg config.DistanceConfig, apiKey string) *FallbackOracle {
	t.Helper()
	d, err := db.Init(t.TempDir() + "/test.db")
	if err != nil {
		t.Fatalf("db.Init: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	cache := distcache.New(d)
	client := request.New(cache, tracker.New(), request.ClientConfig{Retries: 1})
	return New(client, cache, cfg, func() string { return apiKey }, tracker.New())
}

func TestFallbackOracle_GreatCircleWhenNoProvidersConfigured(t *testing.T) {
	cfg := config.DistanceConfig{
		RouteAKeyedURL:  "http://127.0.0.1:1", // unreachable
		RouteBPublicURL: "http://127.0.0.1:1", // unreachable
		WalkingKmh:      4.5,
	}
	o := newTestOracle(t, cfg, "")

	coords := []geo.Point{{Lat: 0, Lon: 0}, {Lat: 0, Lon: 1}}
	res, err := o.Matrix(context.Background(), coords, model.ProfileWalking)
	if err != nil {
		t.Fatalf("Matrix() error = %v", err)
	}
	if res.SelectedProvider != "great_circle" {
		t.Errorf("SelectedProvider = %q, want great_circle", res.SelectedProvider)
	}
	if res.Matrix[0][0] != 0 {
		t.Errorf("self distance = %v, want 0", res.Matrix[0][0])
	}
	if res.Matrix[0][1] <= 0 {
		t.Errorf("expected positive travel time, got %v", res.Matrix[0][1])
	}
}

func TestFallbackOracle_RouteBServed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"code":"Ok","durations":[[0,600],[600,0]]}`))
	}))
	defer srv.Close()

	cfg := config.DistanceConfig{
		RouteAKeyedURL:  "http://127.0.0.1:1",
		RouteBPublicURL: srv.URL,
		WalkingKmh:      4.5,
	}
	o := newTestOracle(t, cfg, "")

	coords := []geo.Point{{Lat: 0, Lon: 0}, {Lat: 0, Lon: 1}}
	res, err := o.Matrix(context.Background(), coords, model.ProfileWalking)
	if err != nil {
		t.Fatalf("Matrix() error = %v", err)
	}
	if res.SelectedProvider != "routeB" {
		t.Fatalf("SelectedProvider = %q, want routeB", res.SelectedProvider)
	}
	if math.Abs(res.Matrix[0][1]-10) > 0.01 {
		t.Errorf("Matrix[0][1] = %v, want 10 (600s/60)", res.Matrix[0][1])
	}
}

func TestFallbackOracle_MatrixCached(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"code":"Ok","durations":[[0,300],[300,0]]}`))
	}))
	defer srv.Close()

	cfg := config.DistanceConfig{
		RouteAKeyedURL:  "http://127.0.0.1:1",
		RouteBPublicURL: srv.URL,
		WalkingKmh:      4.5,
	}
	o := newTestOracle(t, cfg, "")
	coords := []geo.Point{{Lat: 0, Lon: 0}, {Lat: 0, Lon: 1}}

	if _, err := o.Matrix(context.Background(), coords, model.ProfileWalking); err != nil {
		t.Fatalf("first Matrix() error = %v", err)
	}
	if _, err := o.Matrix(context.Background(), coords, model.ProfileWalking); err != nil {
		t.Fatalf("second Matrix() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("provider called %d times, want 1 (P9: cache hit must not re-invoke)", calls)
	}
}

func TestFallbackOracle_StartToEach(t *testing.T) {
	cfg := config.DistanceConfig{
		RouteAKeyedURL:  "http://127.0.0.1:1",
		RouteBPublicURL: "http://127.0.0.1:1",
		WalkingKmh:      4.5,
	}
	o := newTestOracle(t, cfg, "")

	origin := geo.Point{Lat: 0, Lon: 0}
	coords := []geo.Point{{Lat: 0, Lon: 1}, {Lat: 0, Lon: 2}}
	res, err := o.StartToEach(context.Background(), origin, coords, model.ProfileWalking)
	if err != nil {
		t.Fatalf("StartToEach() error = %v", err)
	}
	if len(res.Times) != 2 {
		t.Fatalf("len(Times) = %d, want 2", len(res.Times))
	}
	if res.Times[0] <= 0 || res.Times[1] <= res.Times[0] {
		t.Errorf("expected increasing positive travel times, got %v", res.Times)
	}
}
