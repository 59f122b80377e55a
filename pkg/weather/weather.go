// Package weather defines the weather-forecast provider interface the
// Orchestrator optionally consumes to populate model.WeatherContext before
// scoring (spec.md §1 treats weather forecasting as an external
// collaborator, out of scope for this engine; pkg/toptw's weatherWeight is
// the only consumer of the resulting WeatherContext).
package weather

import (
	"context"

	"tourweave/pkg/model"
)

// Provider resolves the weather expected at a location and time. Real
// implementations call a third-party forecast API; this package only
// commits to the interface and a static test double.
type Provider interface {
	Forecast(ctx context.Context, lat, lon float64, minuteOfDay int) (*model.WeatherContext, error)
}

// StaticProvider always returns the same WeatherContext, regardless of
// location or time. Useful as a default no-op and in tests that want a
// fixed weather scenario without a real forecast call.
type StaticProvider struct {
	Context *model.WeatherContext
}

// Forecast returns p.Context unconditionally.
func (p StaticProvider) Forecast(ctx context.Context, lat, lon float64, minuteOfDay int) (*model.WeatherContext, error) {
	return p.Context, nil
}

// NoneProvider always reports no weather data, so the Evaluator's
// weatherWeight term is a no-op (multiplier of 1.0).
type NoneProvider struct{}

// Forecast always returns (nil, nil).
func (NoneProvider) Forecast(ctx context.Context, lat, lon float64, minuteOfDay int) (*model.WeatherContext, error) {
	return nil, nil
}
