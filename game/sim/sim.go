// Package sim drives a world turn by turn and fans every turn out to the
// journal, metrics, the snapshot cache and turn subscribers.
package sim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kasuganosora/roguebt/cache"
	"github.com/kasuganosora/roguebt/game/ai"
	"github.com/kasuganosora/roguebt/game/world"
	"github.com/kasuganosora/roguebt/journal"
	"github.com/kasuganosora/roguebt/observe"
	"github.com/kasuganosora/roguebt/scheduler"
	"go.uber.org/zap"
)

// ErrFinished is returned by Step once the configured turn limit is reached.
var ErrFinished = errors.New("sim: turn limit reached")

// TurnTask names the scheduler task that drives automatic turns.
const TurnTask = "turns"

const (
	latestKey          = "roguebt:turn:latest"
	recentKey          = "roguebt:turn:recent"
	defaultRecent      = 100
	defaultTurnChannel = "roguebt:turns"
)

// Options tunes a Runner.
type Options struct {
	// TurnInterval paces automatic turns; zero leaves turns to Step callers.
	TurnInterval time.Duration
	// MaxTurns stops the run after that many turns; zero runs until stopped.
	MaxTurns uint64
	// TurnChannel is the pub/sub channel turn summaries are published on.
	TurnChannel string
	// Recent is how many summaries the cache keeps.
	Recent int
}

// Deps are the optional sinks of a Runner. Nil fields are skipped.
type Deps struct {
	Journal *journal.Journal
	Cache   cache.Cache
	PubSub  cache.PubSub
	Metrics *observe.Metrics
}

// Summary is the compact form of a turn published to subscribers and kept in
// the cache.
type Summary struct {
	RunID      string        `json:"run_id,omitempty"`
	Turn       uint64        `json:"turn"`
	Success    int           `json:"success"`
	Failure    int           `json:"failure"`
	Running    int           `json:"running"`
	Attacks    int           `json:"attacks"`
	Removed    []ai.EntityID `json:"removed,omitempty"`
	PickedUp   []ai.EntityID `json:"picked_up,omitempty"`
	Alive      int           `json:"alive"`
	DurationUs int64         `json:"duration_us"`
}

// Runner serialises turns of one world.
type Runner struct {
	mu     sync.Mutex
	world  *world.World
	deps   Deps
	opts   Options
	logger *zap.Logger
}

// New creates a Runner over w.
func New(w *world.World, opts Options, deps Deps, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.TurnChannel == "" {
		opts.TurnChannel = defaultTurnChannel
	}
	if opts.Recent <= 0 {
		opts.Recent = defaultRecent
	}
	return &Runner{world: w, deps: deps, opts: opts, logger: logger}
}

// World returns the simulated world.
func (r *Runner) World() *world.World { return r.world }

// RunID returns the journal run id, or "" when no journal is attached.
func (r *Runner) RunID() string {
	if r.deps.Journal == nil {
		return ""
	}
	return r.deps.Journal.RunID()
}

// TurnChannel returns the channel summaries are published on.
func (r *Runner) TurnChannel() string { return r.opts.TurnChannel }

// Step processes one turn and hands the report to every sink. Sink failures
// are logged and do not fail the step.
func (r *Runner) Step(ctx context.Context) (*world.TurnReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.opts.MaxTurns > 0 && r.world.Turn() >= r.opts.MaxTurns {
		return nil, ErrFinished
	}
	report, err := r.world.ProcessTurn(ctx)
	if err != nil {
		return nil, err
	}

	if r.deps.Journal != nil {
		r.deps.Journal.Record(report)
	}
	if r.deps.Metrics != nil {
		r.deps.Metrics.RecordTurn(ctx, report)
	}
	r.publish(ctx, r.summarize(report))
	return report, nil
}

// Advance runs up to n turns and returns their reports. It stops early at the
// turn limit; reaching it after at least one turn is not an error.
func (r *Runner) Advance(ctx context.Context, n int) ([]*world.TurnReport, error) {
	reports := make([]*world.TurnReport, 0, n)
	for range n {
		report, err := r.Step(ctx)
		if errors.Is(err, ErrFinished) && len(reports) > 0 {
			break
		}
		if err != nil {
			return reports, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// Start registers the turn task on s when a turn interval is configured.
// The task removes itself once the turn limit is reached.
func (r *Runner) Start(s *scheduler.Scheduler) {
	if r.opts.TurnInterval <= 0 {
		r.logger.Info("automatic turns disabled")
		return
	}
	s.AddTicker(TurnTask, r.opts.TurnInterval, func(ctx context.Context) {
		_, err := r.Step(ctx)
		switch {
		case errors.Is(err, ErrFinished):
			r.logger.Info("turn limit reached", zap.Uint64("turns", r.opts.MaxTurns))
			s.Remove(TurnTask)
		case errors.Is(err, context.Canceled):
		case err != nil:
			r.logger.Error("turn failed", zap.Error(err))
		}
	})
}

// Latest returns the summary of the most recent turn. It reads the cache and
// falls back to the world's own last report.
func (r *Runner) Latest(ctx context.Context) (*Summary, bool) {
	if r.deps.Cache != nil {
		if raw, err := r.deps.Cache.Get(ctx, latestKey); err == nil {
			var s Summary
			if err := json.Unmarshal([]byte(raw), &s); err == nil {
				return &s, true
			}
		}
	}
	report, ok := r.world.LastReport()
	if !ok {
		return nil, false
	}
	return r.summarize(report), true
}

// Recent returns up to n cached summaries, newest first.
func (r *Runner) Recent(ctx context.Context, n int) ([]Summary, error) {
	if r.deps.Cache == nil || n <= 0 {
		return nil, nil
	}
	raw, err := r.deps.Cache.LRange(ctx, recentKey, 0, int64(n-1))
	if err != nil {
		return nil, fmt.Errorf("sim: read recent turns: %w", err)
	}
	out := make([]Summary, 0, len(raw))
	for _, item := range raw {
		var s Summary
		if err := json.Unmarshal([]byte(item), &s); err != nil {
			r.logger.Warn("skipping corrupt turn summary", zap.Error(err))
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

// Close flushes the journal.
func (r *Runner) Close(ctx context.Context) {
	if r.deps.Journal != nil {
		r.deps.Journal.Close(ctx)
	}
}

func (r *Runner) summarize(report *world.TurnReport) *Summary {
	counts := report.StatusCounts()
	return &Summary{
		RunID:      r.RunID(),
		Turn:       report.Turn,
		Success:    counts[ai.StatusSuccess],
		Failure:    counts[ai.StatusFailure],
		Running:    counts[ai.StatusRunning],
		Attacks:    report.Attacks,
		Removed:    report.Removed,
		PickedUp:   report.PickedUp,
		Alive:      report.Alive,
		DurationUs: report.Duration.Microseconds(),
	}
}

func (r *Runner) publish(ctx context.Context, s *Summary) {
	if r.deps.Cache == nil && r.deps.PubSub == nil {
		return
	}
	payload, err := json.Marshal(s)
	if err != nil {
		r.logger.Error("marshal turn summary", zap.Error(err))
		return
	}
	if c := r.deps.Cache; c != nil {
		if err := c.Set(ctx, latestKey, string(payload), 0); err != nil {
			r.logger.Warn("cache latest turn", zap.Error(err))
		}
		if err := c.LPush(ctx, recentKey, string(payload)); err != nil {
			r.logger.Warn("cache recent turn", zap.Error(err))
		} else if err := c.LTrim(ctx, recentKey, 0, int64(r.opts.Recent-1)); err != nil {
			r.logger.Warn("trim recent turns", zap.Error(err))
		}
	}
	if ps := r.deps.PubSub; ps != nil {
		if err := ps.Publish(ctx, r.opts.TurnChannel, string(payload)); err != nil {
			r.logger.Warn("publish turn", zap.Error(err))
		}
	}
}
