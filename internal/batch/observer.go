package batch

import (
	"context"
	"time"

	"github.com/yairfalse/snooze/pkg/lifecycle"
)

// Summary describes one finished batch. It is handed to observers only;
// Run never returns it.
type Summary struct {
	Kind       lifecycle.Kind
	Action     lifecycle.Action
	Account    string
	Filters    []lifecycle.TagFilter
	DryRun     bool
	Discovered int
	Succeeded  int
	Failed     int
	StartedAt  time.Time
	Duration   time.Duration
	Err        error
}

// Observer watches a batch. Implementations must not block for long and
// must not fail the batch.
type Observer interface {
	Observe(ctx context.Context, outcome lifecycle.Outcome)
	Finish(ctx context.Context, summary Summary)
}

// Observers fans out to several observers.
type Observers []Observer

func (m Observers) Observe(ctx context.Context, outcome lifecycle.Outcome) {
	for _, o := range m {
		o.Observe(ctx, outcome)
	}
}

func (m Observers) Finish(ctx context.Context, summary Summary) {
	for _, o := range m {
		o.Finish(ctx, summary)
	}
}

// Recorder keeps every outcome in memory. Useful for callers that want to
// inspect a batch after the fact, and for tests.
type Recorder struct {
	Outcomes  []lifecycle.Outcome
	Summaries []Summary
}

func (r *Recorder) Observe(_ context.Context, outcome lifecycle.Outcome) {
	r.Outcomes = append(r.Outcomes, outcome)
}

func (r *Recorder) Finish(_ context.Context, summary Summary) {
	r.Summaries = append(r.Summaries, summary)
}

// Failures returns the failed outcomes seen so far.
func (r *Recorder) Failures() []lifecycle.Outcome {
	var out []lifecycle.Outcome
	for _, o := range r.Outcomes {
		if !o.OK() {
			out = append(out, o)
		}
	}
	return out
}
