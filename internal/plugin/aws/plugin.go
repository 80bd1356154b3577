// Package aws implements the AWS start/stop handlers for snooze.
package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/redshift"
	"github.com/aws/aws-sdk-go-v2/service/resourcegroupstaggingapi"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/rs/zerolog/log"

	"github.com/yairfalse/snooze/internal/batch"
	"github.com/yairfalse/snooze/internal/discovery"
	"github.com/yairfalse/snooze/internal/filter"
	"github.com/yairfalse/snooze/internal/plugin"
	"github.com/yairfalse/snooze/pkg/lifecycle"
)

var _ plugin.Provider = (*Plugin)(nil)

// Plugin holds one set of AWS clients for a region and a batch operator per kind.
type Plugin struct {
	region string

	// AWS clients (interfaces for testability)
	cloudwatchClient CloudWatchAPI
	rdsClient        RDSAPI
	ecsClient        ECSAPI
	redshiftClient   RedshiftAPI
	ec2Client        EC2API

	locator  *discovery.Locator
	handlers map[lifecycle.Kind]*batch.Operator
}

// Config holds AWS plugin configuration. An empty Region uses the SDK's
// default resolution (environment, shared config).
type Config struct {
	Region  string
	Profile string
}

// Clients is the set of API clients a Plugin drives.
type Clients struct {
	Tagging    discovery.TaggingAPI
	CloudWatch CloudWatchAPI
	RDS        RDSAPI
	ECS        ECSAPI
	Redshift   RedshiftAPI
	EC2        EC2API
}

// LoadConfig resolves credentials and region for cfg.
func LoadConfig(ctx context.Context, cfg Config) (aws.Config, error) {
	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	if awsCfg.Region == "" {
		return aws.Config{}, fmt.Errorf("load aws config: no region configured")
	}
	return awsCfg, nil
}

// NewFromConfig creates a Plugin with real clients built from awsCfg. The
// caller's account is resolved through STS and labels every batch.
func NewFromConfig(ctx context.Context, awsCfg aws.Config, opts ...batch.Option) *Plugin {
	accountID, err := lookupAccountID(ctx, sts.NewFromConfig(awsCfg))
	if err != nil {
		log.Warn().Err(err).Str("region", awsCfg.Region).Msg("account id lookup failed")
	} else {
		opts = append([]batch.Option{batch.WithAccount(accountID)}, opts...)
	}

	return NewWithClients(awsCfg.Region, Clients{
		Tagging:    resourcegroupstaggingapi.NewFromConfig(awsCfg),
		CloudWatch: cloudwatch.NewFromConfig(awsCfg),
		RDS:        rds.NewFromConfig(awsCfg),
		ECS:        ecs.NewFromConfig(awsCfg),
		Redshift:   redshift.NewFromConfig(awsCfg),
		EC2:        ec2.NewFromConfig(awsCfg),
	}, opts...)
}

// NewWithClients creates a Plugin over the given clients.
func NewWithClients(region string, c Clients, opts ...batch.Option) *Plugin {
	p := &Plugin{
		region:           region,
		cloudwatchClient: c.CloudWatch,
		rdsClient:        c.RDS,
		ecsClient:        c.ECS,
		redshiftClient:   c.Redshift,
		ec2Client:        c.EC2,
		locator:          discovery.New(c.Tagging),
		handlers:         make(map[lifecycle.Kind]*batch.Operator),
	}

	for _, capability := range p.capabilities() {
		p.handlers[capability.Kind] = batch.New(capability, p.locator, opts...)
	}
	return p
}

// Exclude skips discovered resources carrying any of the given tag values,
// for every kind. Call it before running any handler.
func (p *Plugin) Exclude(tags []lifecycle.TagFilter) {
	p.locator.Exclude(filter.New(tags))
}

func lookupAccountID(ctx context.Context, client STSAPI) (string, error) {
	output, err := client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("get caller identity: %w", err)
	}
	account := aws.ToString(output.Account)
	if account == "" {
		return "", fmt.Errorf("get caller identity: no account in response")
	}
	return account, nil
}

// Name returns the provider identifier.
func (p *Plugin) Name() string {
	return "aws"
}

// Region returns the region the clients are bound to.
func (p *Plugin) Region() string {
	return p.region
}

// Handler returns the handler for kind.
func (p *Plugin) Handler(kind lifecycle.Kind) (plugin.Handler, bool) {
	h, ok := p.handlers[kind]
	if !ok {
		return nil, false
	}
	return h, true
}
