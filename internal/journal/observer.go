package journal

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/yairfalse/snooze/internal/batch"
	"github.com/yairfalse/snooze/pkg/lifecycle"
)

// Observer returns a batch observer that records each finished batch run by
// one provider in one region. Outcomes are buffered until the batch ends.
func (j *Journal) Observer(provider, region string) batch.Observer {
	return &runObserver{journal: j, provider: provider, region: region}
}

type runObserver struct {
	journal  *Journal
	provider string
	region   string

	mu      sync.Mutex
	pending []OutcomeRecord
}

func (r *runObserver) Observe(_ context.Context, outcome lifecycle.Outcome) {
	rec := OutcomeRecord{
		Resource:  outcome.Request.Ref.String(),
		ARN:       outcome.Request.Ref.ARN,
		ErrorKind: string(outcome.Class),
	}
	if outcome.Err != nil {
		rec.Error = outcome.Err.Error()
	}

	r.mu.Lock()
	r.pending = append(r.pending, rec)
	r.mu.Unlock()
}

func (r *runObserver) Finish(ctx context.Context, summary batch.Summary) {
	r.mu.Lock()
	outcomes := r.pending
	r.pending = nil
	r.mu.Unlock()

	rec := &RunRecord{
		ID:         uuid.NewString(),
		Provider:   r.provider,
		Region:     r.region,
		Account:    summary.Account,
		Kind:       summary.Kind,
		Action:     summary.Action.String(),
		DryRun:     summary.DryRun,
		Filters:    summary.Filters,
		StartedAt:  summary.StartedAt.UTC(),
		Duration:   summary.Duration,
		Discovered: summary.Discovered,
		Succeeded:  summary.Succeeded,
		Failed:     summary.Failed,
		Outcomes:   outcomes,
	}
	if summary.Err != nil {
		rec.Error = summary.Err.Error()
	}

	// The journal is a side record; a write failure must not fail the batch.
	if _, err := r.journal.Record(rec); err != nil {
		log.Warn().Ctx(ctx).Err(err).
			Str("kind", string(summary.Kind)).
			Str("path", r.journal.Path()).
			Msg("journal write failed")
	}
}
