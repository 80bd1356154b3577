package telemetry

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/yairfalse/snooze/internal/config"
)

// Push sends the provider's metrics to a Pushgateway. A run is too
// short-lived to be scraped, so this is how its metrics leave the process.
// An empty URL is a no-op.
func (p *Provider) Push(ctx context.Context, cfg config.PushgatewayConfig) error {
	if cfg.URL == "" {
		return nil
	}

	pusher := push.New(cfg.URL, cfg.Job).Gatherer(p.registry)
	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", cfg.URL, err)
	}
	return nil
}
