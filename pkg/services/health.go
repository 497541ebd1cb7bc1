package services

import (
	"context"
	"time"
)

// HealthChecks holds per-service check results.
type HealthChecks struct {
	Catalog  bool `json:"catalog"`
	Playback bool `json:"playback"`
	Addons   bool `json:"addons"`
}

// HealthOutput holds the result of a health check.
type HealthOutput struct {
	Status    string       `json:"status"`
	Checks    HealthChecks `json:"checks"`
	Timestamp string       `json:"timestamp"`
}

// Health checks that every service lock can be taken and the catalog store answers.
func (r *Registry) Health(ctx context.Context) *HealthOutput {
	catalogOk := r.metadata.With(func(m *MetadataService) error {
		_, err := m.Catalog(ctx)
		return err
	}) == nil
	playbackOk := r.playback.With(func(*PlaybackService) error { return nil }) == nil
	addonsOk := r.addons.With(func(*AddonService) error { return nil }) == nil

	status := "healthy"
	if !catalogOk || !playbackOk || !addonsOk {
		status = "unhealthy"
	}

	return &HealthOutput{
		Status: status,
		Checks: HealthChecks{
			Catalog:  catalogOk,
			Playback: playbackOk,
			Addons:   addonsOk,
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
