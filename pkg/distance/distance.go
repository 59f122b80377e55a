// Package distance implements the DistanceOracle: an ordered fallback chain
// (keyed routing provider -> public routing provider -> great-circle
// estimate) that produces an N×N travel-time matrix in minutes, cached by
// pkg/distcache so repeated requests for the same coordinate set never
// re-hit a provider.
package distance

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"tourweave/pkg/config"
	"tourweave/pkg/distcache"
	"tourweave/pkg/geo"
	"tourweave/pkg/model"
	"tourweave/pkg/request"
	"tourweave/pkg/tracker"
)

// MatrixResult is the outcome of one Matrix call.
type MatrixResult struct {
	Matrix           [][]float64
	SelectedProvider string
}

// StartToEachResult is the outcome of one StartToEach call.
type StartToEachResult struct {
	Times            []float64
	SelectedProvider string
}

// Oracle is the interface consumed by the orchestrator and evaluator.
type Oracle interface {
	Matrix(ctx context.Context, coords []geo.Point, profile model.Profile) (MatrixResult, error)
	StartToEach(ctx context.Context, origin geo.Point, coords []geo.Point, profile model.Profile) (StartToEachResult, error)
}

// FallbackOracle implements Oracle with the routeA -> routeB -> great-circle
// chain, each attempt observable via a selected_provider label and tracked
// through pkg/tracker.
type FallbackOracle struct {
	client  *request.Client
	cache   *distcache.Cache
	cfg     config.DistanceConfig
	apiKey  func() string
	tracker *tracker.Tracker
}

// New builds a FallbackOracle. apiKey is called lazily per request so a
// config reload or secret rotation takes effect without rebuilding the
// oracle.
func New(client *request.Client, cache *distcache.Cache, cfg config.DistanceConfig, apiKey func() string, t *tracker.Tracker) *FallbackOracle {
	return &FallbackOracle{client: client, cache: cache, cfg: cfg, apiKey: apiKey, tracker: t}
}

// Matrix implements Oracle.
func (o *FallbackOracle) Matrix(ctx context.Context, coords []geo.Point, profile model.Profile) (MatrixResult, error) {
	start := time.Now()
	pairs := toPairs(coords)
	key := distcache.Key(pairs, string(profile))

	entry, err := o.cache.GetOrCompute(ctx, key, string(profile), len(coords), func() (distcache.Entry, error) {
		m, provider, err := o.computeMatrix(ctx, coords, profile)
		if err != nil {
			return distcache.Entry{}, err
		}
		return distcache.Entry{SelectedProvider: provider, Matrix: m}, nil
	})
	if err != nil {
		return MatrixResult{}, err
	}
	slog.Debug("distance matrix", "selected_provider", entry.SelectedProvider, "latency", time.Since(start), "unit", "minutes")
	return MatrixResult{Matrix: entry.Matrix, SelectedProvider: entry.SelectedProvider}, nil
}

// StartToEach implements Oracle by prepending origin to coords, requesting
// the full matrix (cache-shared with any Matrix call over the same
// coordinate set), and returning the first row excluding the self-distance.
func (o *FallbackOracle) StartToEach(ctx context.Context, origin geo.Point, coords []geo.Point, profile model.Profile) (StartToEachResult, error) {
	withOrigin := append([]geo.Point{origin}, coords...)
	res, err := o.Matrix(ctx, withOrigin, profile)
	if err != nil {
		return StartToEachResult{}, err
	}
	if len(res.Matrix) == 0 {
		return StartToEachResult{SelectedProvider: res.SelectedProvider}, nil
	}
	times := make([]float64, len(coords))
	copy(times, res.Matrix[0][1:])
	return StartToEachResult{Times: times, SelectedProvider: res.SelectedProvider}, nil
}

// computeMatrix runs the fallback chain once, uncached.
func (o *FallbackOracle) computeMatrix(ctx context.Context, coords []geo.Point, profile model.Profile) ([][]float64, string, error) {
	if key := o.apiKey(); key != "" {
		m, err := o.fetchORS(ctx, coords, profile, key)
		if err == nil {
			o.tracker.TrackAPISuccess("routeA")
			return m, "routeA", nil
		}
		o.tracker.TrackAPIFailure("routeA")
		slog.Warn("routeA matrix failed, falling back to routeB", "error", err)
	}

	m, err := o.fetchOSRM(ctx, coords, profile)
	if err == nil {
		o.tracker.TrackAPISuccess("routeB")
		return m, "routeB", nil
	}
	o.tracker.TrackAPIFailure("routeB")
	slog.Warn("routeB matrix failed, falling back to great-circle", "error", err)

	return o.greatCircleMatrix(coords, profile), "great_circle", nil
}

func (o *FallbackOracle) fetchORS(ctx context.Context, coords []geo.Point, profile model.Profile, apiKey string) ([][]float64, error) {
	locations := make([][2]float64, len(coords))
	for i, c := range coords {
		locations[i] = [2]float64{c.Lon, c.Lat}
	}
	body, err := json.Marshal(map[string]any{
		"locations": locations,
		"metrics":   []string{"duration"},
		"units":     "m",
	})
	if err != nil {
		return nil, fmt.Errorf("marshal ors request: %w", err)
	}

	url := fmt.Sprintf("%s/matrix/%s", o.cfg.RouteAKeyedURL, orsProfile(profile))
	respBody, err := o.client.PostWithHeaders(ctx, url, body, map[string]string{
		"Authorization": apiKey,
		"Content-Type":  "application/json",
	})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Durations [][]float64 `json:"durations"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode ors response: %w", err)
	}
	return scaleMatrix(parsed.Durations, 1.0/60.0), nil
}

func (o *FallbackOracle) fetchOSRM(ctx context.Context, coords []geo.Point, profile model.Profile) ([][]float64, error) {
	parts := make([]string, len(coords))
	for i, c := range coords {
		parts[i] = fmt.Sprintf("%.6f,%.6f", c.Lon, c.Lat)
	}
	url := fmt.Sprintf("%s/table/v1/%s/%s", o.cfg.RouteBPublicURL, osrmProfile(profile), strings.Join(parts, ";"))

	respBody, err := o.client.Get(ctx, url, "")
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Code      string        `json:"code"`
		Durations [][]*float64 `json:"durations"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode osrm response: %w", err)
	}
	if parsed.Code != "Ok" {
		return nil, fmt.Errorf("osrm returned code %q", parsed.Code)
	}

	const unreachableSentinel = 99999.0
	matrix := make([][]float64, len(parsed.Durations))
	for i, row := range parsed.Durations {
		matrix[i] = make([]float64, len(row))
		for j, v := range row {
			if v == nil {
				matrix[i][j] = unreachableSentinel
			} else {
				matrix[i][j] = *v / 60.0
			}
		}
	}
	return matrix, nil
}

// greatCircleMatrix is the infallible final fallback: haversine distance
// divided by a profile-specific average speed.
func (o *FallbackOracle) greatCircleMatrix(coords []geo.Point, profile model.Profile) [][]float64 {
	speed := o.speedKmh(profile)
	n := len(coords)
	matrix := make([][]float64, n)
	for i := range matrix {
		matrix[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			distKm := geo.Distance(coords[i], coords[j]) / 1000.0
			matrix[i][j] = (distKm / speed) * 60.0
		}
	}
	return matrix
}

func (o *FallbackOracle) speedKmh(profile model.Profile) float64 {
	switch profile {
	case model.ProfileCycling:
		return o.cfg.CyclingKmh
	case model.ProfileDriving:
		return o.cfg.DrivingKmh
	default:
		return o.cfg.WalkingKmh
	}
}

func orsProfile(p model.Profile) string {
	switch p {
	case model.ProfileCycling:
		return "cycling-regular"
	case model.ProfileDriving:
		return "driving-car"
	default:
		return "foot-walking"
	}
}

func osrmProfile(p model.Profile) string {
	switch p {
	case model.ProfileWalking:
		return "walking"
	default:
		return "driving"
	}
}

func scaleMatrix(m [][]float64, factor float64) [][]float64 {
	out := make([][]float64, len(m))
	for i, row := range m {
		out[i] = make([]float64, len(row))
		for j, v := range row {
			out[i][j] = v * factor
		}
	}
	return out
}

func toPairs(coords []geo.Point) [][2]float64 {
	pairs := make([][2]float64, len(coords))
	for i, c := range coords {
		pairs[i] = [2]float64{c.Lat, c.Lon}
	}
	return pairs
}
