package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/yairfalse/snooze/internal/batch"
	"github.com/yairfalse/snooze/internal/journal"
	"github.com/yairfalse/snooze/internal/plugin"
	"github.com/yairfalse/snooze/internal/plugin/aws"
	"github.com/yairfalse/snooze/internal/telemetry"
	"github.com/yairfalse/snooze/pkg/lifecycle"
)

// runFlags are shared by start and stop.
type runFlags struct {
	regions []string
	profile string
	kinds   []string
	tags    []string
	exclude []string
	target  string
	dryRun  bool
}

// selection is what a run acts on, resolved from flags and config.
type selection struct {
	kinds   []lifecycle.Kind
	filters []lifecycle.TagFilter
	exclude []lifecycle.TagFilter
	regions []string
	profile string
}

// providerSpec is what newProvider needs to build one region's provider.
type providerSpec struct {
	region  string
	profile string
	exclude []lifecycle.TagFilter
	// options returns the batch options for the resolved region.
	options func(region string) []batch.Option
}

// newProvider builds the provider for one region. Replaced in tests.
var newProvider = func(ctx context.Context, spec providerSpec) (plugin.Provider, error) {
	awsCfg, err := aws.LoadConfig(ctx, aws.Config{Region: spec.region, Profile: spec.profile})
	if err != nil {
		return nil, err
	}
	p := aws.NewFromConfig(ctx, awsCfg, spec.options(awsCfg.Region)...)
	if len(spec.exclude) > 0 {
		p.Exclude(spec.exclude)
	}
	return p, nil
}

func newStartCmd() *cobra.Command {
	return newRunCmd(lifecycle.Start, "Start tagged resources",
		`  snooze start --kind container_service --tag env=dev
  snooze start --target dev-nights --region eu-west-1 --region us-east-1
  snooze start --tag env=qa,dev --tag team=payments --dry-run`)
}

func newStopCmd() *cobra.Command {
	return newRunCmd(lifecycle.Stop, "Stop tagged resources",
		`  snooze stop --kind alarm --tag env=dev
  snooze stop --target dev-nights`)
}

func newRunCmd(action lifecycle.Action, short, example string) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:     action.String(),
		Short:   short,
		Example: example,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sel, err := resolveSelection(f)
			if err != nil {
				return err
			}
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return runAction(ctx, action, sel, f.dryRun)
		},
	}

	cmd.Flags().StringSliceVarP(&f.regions, "region", "r", nil, "AWS region (repeatable; default from config or SDK)")
	cmd.Flags().StringVar(&f.profile, "profile", "", "AWS shared config profile (overrides config)")
	cmd.Flags().StringArrayVarP(&f.kinds, "kind", "k", nil, "Resource kind (repeatable; default all, see 'snooze kinds')")
	cmd.Flags().StringArrayVarP(&f.tags, "tag", "t", nil, "Tag filter key=v1,v2 (repeatable, ANDed)")
	cmd.Flags().StringArrayVar(&f.exclude, "exclude-tag", nil, "Skip resources with this tag key=v1,v2 (repeatable)")
	cmd.Flags().StringVar(&f.target, "target", "", "Named target from config")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "Discover and log what would change without calling the control plane")
	return cmd
}

// resolveSelection merges a named target with flags. Flag kinds replace the
// target's kinds; flag tags are ANDed onto the target's tags.
func resolveSelection(f *runFlags) (selection, error) {
	sel := selection{
		regions: cfg.AWS.Regions,
		profile: cfg.AWS.Profile,
	}
	if len(f.regions) > 0 {
		sel.regions = f.regions
	}
	if f.profile != "" {
		sel.profile = f.profile
	}

	if f.target != "" {
		target, err := cfg.Target(f.target)
		if err != nil {
			return selection{}, err
		}
		if sel.kinds, err = target.ParsedKinds(); err != nil {
			return selection{}, err
		}
		sel.filters = append(sel.filters, target.Tags...)
		sel.exclude = append(sel.exclude, target.Exclude...)
	}

	if len(f.kinds) > 0 {
		sel.kinds = nil
		for _, k := range f.kinds {
			kind, err := lifecycle.ParseKind(k)
			if err != nil {
				return selection{}, err
			}
			sel.kinds = append(sel.kinds, kind)
		}
	}
	if len(sel.kinds) == 0 {
		sel.kinds = lifecycle.Kinds()
	}

	for _, raw := range f.tags {
		filter, err := lifecycle.ParseTagFilter(raw)
		if err != nil {
			return selection{}, err
		}
		sel.filters = append(sel.filters, filter)
	}

	for _, raw := range f.exclude {
		filter, err := lifecycle.ParseTagFilter(raw)
		if err != nil {
			return selection{}, fmt.Errorf("exclude: %w", err)
		}
		sel.exclude = append(sel.exclude, filter)
	}

	// An empty filter set would match every resource of a kind.
	if len(sel.filters) == 0 {
		return selection{}, errors.New("at least one --tag or a --target with tags is required")
	}

	if len(sel.regions) == 0 {
		sel.regions = []string{""}
	}
	return sel, nil
}

// runAction applies action to every selected kind in every region. Per-resource
// failures are only logged; the returned error joins discovery failures.
func runAction(ctx context.Context, action lifecycle.Action, sel selection, dryRun bool) error {
	tp, err := telemetry.NewProvider(ctx, cfg.OTEL)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := tp.Push(flushCtx, cfg.Pushgateway); err != nil {
			log.Warn().Err(err).Msg("metrics push failed")
		}
		if err := tp.Shutdown(flushCtx); err != nil {
			log.Warn().Err(err).Msg("telemetry shutdown failed")
		}
	}()

	var j *journal.Journal
	if cfg.Journal.Path != "" {
		if j, err = journal.Open(cfg.Journal.Path); err != nil {
			return err
		}
		defer func() { _ = j.Close() }()
	}

	ctx, span := tp.StartSpan(ctx, "snooze."+action.String(), trace.WithAttributes(
		attribute.Bool("snooze.dry_run", dryRun),
		attribute.StringSlice("snooze.regions", sel.regions),
	))
	defer span.End()

	log.Info().
		Str("action", action.String()).
		Int("kinds", len(sel.kinds)).
		Strs("regions", sel.regions).
		Bool("dry_run", dryRun).
		Msg("snooze starting")

	var errs []error

	// One provider per region, registered fresh for this run.
	plugin.Clear()
	for _, region := range sel.regions {
		p, err := newProvider(ctx, providerSpec{
			region:  region,
			profile: sel.profile,
			exclude: sel.exclude,
			options: func(resolved string) []batch.Option {
				observers := batch.Observers{tp.Observer("aws", resolved)}
				if j != nil {
					observers = append(observers, j.Observer("aws", resolved))
				}
				return []batch.Option{batch.WithDryRun(dryRun), batch.WithObserver(observers)}
			},
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("region %q: %w", region, err))
			continue
		}
		plugin.Register(p)
	}
	log.Debug().Strs("providers", plugin.Keys()).Msg("providers registered")

	for _, p := range plugin.All() {
		for _, kind := range sel.kinds {
			h, ok := p.Handler(kind)
			if !ok {
				log.Warn().Str("kind", string(kind)).Str("provider", plugin.Key(p)).Msg("kind not supported")
				continue
			}
			if err := plugin.Run(ctx, h, action, sel.filters); err != nil {
				log.Error().Err(err).Str("kind", string(kind)).Str("region", p.Region()).Msg("batch aborted")
				errs = append(errs, fmt.Errorf("%s: %w", plugin.Key(p), err))
				if ctx.Err() != nil {
					return errors.Join(errs...)
				}
			}
		}
	}

	return errors.Join(errs...)
}
