// Package observe records simulation metrics through the OpenTelemetry
// Metrics API and exposes them for Prometheus scraping.
//
// Tests should build Metrics with NewMetrics over a ManualReader-backed
// provider to avoid cross-test pollution.
package observe

import (
	"context"

	"github.com/kasuganosora/roguebt/game/ai"
	"github.com/kasuganosora/roguebt/game/world"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/kasuganosora/roguebt"

// Metrics holds the metric instruments of the simulation.
type Metrics struct {
	// Turns counts processed turns.
	Turns metric.Int64Counter

	// Decisions counts tree ticks. Attributes: status, archetype.
	Decisions metric.Int64Counter

	// Attacks counts blocked moves that damaged an enemy.
	Attacks metric.Int64Counter

	// Removed counts dead combatants taken off the grid.
	Removed metric.Int64Counter

	// PickedUp counts items consumed.
	PickedUp metric.Int64Counter

	// Entities is the number of live entities after the latest turn.
	Entities metric.Int64Gauge

	// TurnDuration tracks the wall time of one turn, in seconds.
	TurnDuration metric.Float64Histogram

	// HTTPRequestDuration tracks API latency. Attributes: method, path, status.
	HTTPRequestDuration metric.Float64Histogram
}

var turnBuckets = []float64{
	0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1,
}

// NewMetrics creates every instrument on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Turns, err = m.Int64Counter("roguebt.turns",
		metric.WithDescription("Processed simulation turns."),
	); err != nil {
		return nil, err
	}
	if met.Decisions, err = m.Int64Counter("roguebt.decisions",
		metric.WithDescription("Behavior tree ticks by resulting status and archetype."),
	); err != nil {
		return nil, err
	}
	if met.Attacks, err = m.Int64Counter("roguebt.attacks",
		metric.WithDescription("Moves blocked by an enemy, dealing damage."),
	); err != nil {
		return nil, err
	}
	if met.Removed, err = m.Int64Counter("roguebt.entities.removed",
		metric.WithDescription("Combatants removed after dropping to zero hitpoints."),
	); err != nil {
		return nil, err
	}
	if met.PickedUp, err = m.Int64Counter("roguebt.items.picked_up",
		metric.WithDescription("Heal and powerup items consumed."),
	); err != nil {
		return nil, err
	}
	if met.Entities, err = m.Int64Gauge("roguebt.entities",
		metric.WithDescription("Live entities after the latest turn."),
	); err != nil {
		return nil, err
	}
	if met.TurnDuration, err = m.Float64Histogram("roguebt.turn.duration",
		metric.WithDescription("Wall time spent processing one turn."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(turnBuckets...),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("roguebt.http.request.duration",
		metric.WithDescription("HTTP request latency by method, route and status."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	return met, nil
}

// RecordTurn records everything a turn report carries.
func (m *Metrics) RecordTurn(ctx context.Context, r *world.TurnReport) {
	m.Turns.Add(ctx, 1)
	type key struct {
		status    ai.Status
		archetype string
	}
	counts := make(map[key]int64)
	for _, d := range r.Decisions {
		counts[key{d.Status, d.Archetype}]++
	}
	for k, n := range counts {
		m.Decisions.Add(ctx, n, metric.WithAttributes(
			attribute.String("status", k.status.String()),
			attribute.String("archetype", k.archetype),
		))
	}
	m.Attacks.Add(ctx, int64(r.Attacks))
	m.Removed.Add(ctx, int64(len(r.Removed)))
	m.PickedUp.Add(ctx, int64(len(r.PickedUp)))
	m.Entities.Record(ctx, int64(r.Alive))
	m.TurnDuration.Record(ctx, r.Duration.Seconds())
}
