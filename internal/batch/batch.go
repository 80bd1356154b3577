// Package batch drives a tag-filtered start/stop over one resource kind.
//
// An Operator discovers the resources matching a set of tag filters and
// applies the action to each in discovery order. A failure on one resource
// is reported and the batch moves on; only a discovery failure is returned.
package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yairfalse/snooze/internal/report"
	"github.com/yairfalse/snooze/pkg/lifecycle"
)

const tracerName = "github.com/yairfalse/snooze/internal/batch"

// Locator resolves tag filters to resource identifiers.
type Locator interface {
	Discover(ctx context.Context, typeTag lifecycle.ResourceTypeTag, filters []lifecycle.TagFilter) ([]string, error)
}

// Capability is everything the driver needs to know about one kind.
type Capability struct {
	Kind    lifecycle.Kind
	Label   string
	TypeTag lifecycle.ResourceTypeTag
	Parse   func(identifier string) (lifecycle.Ref, error)
	Start   func(ctx context.Context, ref lifecycle.Ref) error
	Stop    func(ctx context.Context, ref lifecycle.Ref) error

	// Message renders the success line. Optional.
	Message func(action lifecycle.Action, ref lifecycle.Ref) string
}

// Validate checks that every required field is set.
func (c Capability) Validate() error {
	switch {
	case c.Kind == "":
		return fmt.Errorf("capability: kind is required")
	case c.TypeTag == "":
		return fmt.Errorf("capability %s: type tag is required", c.Kind)
	case c.Parse == nil:
		return fmt.Errorf("capability %s: parse is required", c.Kind)
	case c.Start == nil || c.Stop == nil:
		return fmt.Errorf("capability %s: start and stop are required", c.Kind)
	}
	return nil
}

func (c Capability) label() string {
	if c.Label != "" {
		return c.Label
	}
	return string(c.Kind)
}

func (c Capability) message(action lifecycle.Action, ref lifecycle.Ref) string {
	if c.Message != nil {
		return c.Message(action, ref)
	}
	verb := "Started"
	if action == lifecycle.Stop {
		verb = "Stopped"
	}
	return fmt.Sprintf("%s %s %s", verb, c.label(), ref)
}

// Operator runs start/stop batches for a single kind.
type Operator struct {
	capability Capability
	locator    Locator
	reporter   *report.Reporter
	observers  []Observer
	logger     zerolog.Logger
	tracer     trace.Tracer
	dryRun     bool
	account    string
}

// Option configures an Operator.
type Option func(*Operator)

// WithReporter sets the failure reporter.
func WithReporter(r *report.Reporter) Option {
	return func(o *Operator) { o.reporter = r }
}

// WithObserver adds an observer notified of every outcome.
func WithObserver(obs Observer) Option {
	return func(o *Operator) {
		if obs != nil {
			o.observers = append(o.observers, obs)
		}
	}
}

// WithLogger sets the logger used for success lines.
func WithLogger(l zerolog.Logger) Option {
	return func(o *Operator) { o.logger = l }
}

// WithDryRun makes the operator log what it would do without calling the control plane.
func WithDryRun(dryRun bool) Option {
	return func(o *Operator) { o.dryRun = dryRun }
}

// WithAccount labels batches with the cloud account the clients act in.
func WithAccount(account string) Option {
	return func(o *Operator) { o.account = account }
}

// New creates an Operator. It panics if the capability is incomplete, since
// that is a programming error in the kind's registration.
func New(c Capability, locator Locator, opts ...Option) *Operator {
	if err := c.Validate(); err != nil {
		panic(err)
	}

	o := &Operator{
		capability: c,
		locator:    locator,
		logger:     log.Logger,
		tracer:     otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.reporter == nil {
		o.reporter = report.New(o.logger)
	}
	return o
}

// Kind returns the kind this operator acts on.
func (o *Operator) Kind() lifecycle.Kind {
	return o.capability.Kind
}

// Start starts every resource matching filters.
func (o *Operator) Start(ctx context.Context, filters []lifecycle.TagFilter) error {
	return o.Run(ctx, lifecycle.Start, filters)
}

// Stop stops every resource matching filters.
func (o *Operator) Stop(ctx context.Context, filters []lifecycle.TagFilter) error {
	return o.Run(ctx, lifecycle.Stop, filters)
}

// Run applies action to every resource matching filters. Per-resource
// failures are reported, not returned. The returned error is a discovery
// failure or the context's error if it was cancelled mid-batch.
func (o *Operator) Run(ctx context.Context, action lifecycle.Action, filters []lifecycle.TagFilter) error {
	kind := o.capability.Kind

	ctx, span := o.tracer.Start(ctx, "batch."+action.String(), trace.WithAttributes(
		attribute.String("snooze.kind", string(kind)),
		attribute.String("snooze.action", action.String()),
		attribute.Bool("snooze.dry_run", o.dryRun),
	))
	defer span.End()
	if o.account != "" {
		span.SetAttributes(attribute.String("cloud.account.id", o.account))
	}

	summary := Summary{Kind: kind, Action: action, Account: o.account, Filters: filters, DryRun: o.dryRun, StartedAt: time.Now()}
	defer func() {
		summary.Duration = time.Since(summary.StartedAt)
		o.finish(ctx, summary)
	}()

	identifiers, err := o.locator.Discover(ctx, o.capability.TypeTag, filters)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "discovery failed")
		summary.Err = fmt.Errorf("discover %s: %w", kind, err)
		return summary.Err
	}
	summary.Discovered = len(identifiers)
	span.SetAttributes(attribute.Int("snooze.discovered", len(identifiers)))

	for _, identifier := range identifiers {
		if err := ctx.Err(); err != nil {
			span.SetStatus(codes.Error, "cancelled")
			summary.Err = err
			return err
		}

		outcome := o.apply(ctx, action, identifier)
		if outcome.OK() {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
		for _, obs := range o.observers {
			obs.Observe(ctx, outcome)
		}
	}

	span.SetAttributes(
		attribute.Int("snooze.succeeded", summary.Succeeded),
		attribute.Int("snooze.failed", summary.Failed),
	)
	return nil
}

func (o *Operator) apply(ctx context.Context, action lifecycle.Action, identifier string) lifecycle.Outcome {
	ctx, span := o.tracer.Start(ctx, "resource."+action.String(), trace.WithAttributes(
		attribute.String("snooze.kind", string(o.capability.Kind)),
		attribute.String("snooze.resource", identifier),
	))
	defer span.End()

	req := lifecycle.Request{Action: action, Kind: o.capability.Kind}

	ref, err := o.capability.Parse(identifier)
	if err != nil {
		req.Ref = lifecycle.Ref{ARN: identifier, ID: identifier}
		return o.fail(ctx, span, req, err)
	}
	req.Ref = ref

	if o.dryRun {
		o.logger.Info().Ctx(ctx).
			Str("kind", string(req.Kind)).
			Str("action", action.String()).
			Str("resource", ref.String()).
			Msgf("would %s %s %s", action, o.capability.label(), ref)
		return lifecycle.Outcome{Request: req, DryRun: true}
	}

	call := o.capability.Start
	if action == lifecycle.Stop {
		call = o.capability.Stop
	}
	if err := call(ctx, ref); err != nil {
		return o.fail(ctx, span, req, err)
	}

	o.logger.Info().Ctx(ctx).
		Str("kind", string(req.Kind)).
		Str("action", action.String()).
		Str("resource", ref.String()).
		Msg(o.capability.message(action, ref))
	return lifecycle.Outcome{Request: req}
}

func (o *Operator) fail(ctx context.Context, span trace.Span, req lifecycle.Request, err error) lifecycle.Outcome {
	class := lifecycle.Classify(err)
	span.RecordError(err)
	span.SetStatus(codes.Error, string(class))

	o.reporter.Report(ctx, o.capability.label(), req.Ref.String(), err)
	return lifecycle.Outcome{Request: req, Err: err, Class: class}
}

func (o *Operator) finish(ctx context.Context, summary Summary) {
	event := o.logger.Info()
	if summary.Failed > 0 || summary.Err != nil {
		event = o.logger.Warn()
	}
	event.Ctx(ctx).
		Str("kind", string(summary.Kind)).
		Str("action", summary.Action.String()).
		Int("discovered", summary.Discovered).
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Dur("duration", summary.Duration).
		Msg("batch complete")

	for _, obs := range o.observers {
		obs.Finish(ctx, summary)
	}
}
