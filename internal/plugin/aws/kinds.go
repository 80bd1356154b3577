package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/redshift"

	"github.com/yairfalse/snooze/internal/batch"
	"github.com/yairfalse/snooze/pkg/lifecycle"
)

// DefaultDesiredCount is the task count a container service is started with.
const DefaultDesiredCount int32 = 1

// Resource type tags understood by the Resource Groups Tagging API.
const (
	TypeTagAlarm            lifecycle.ResourceTypeTag = "cloudwatch:alarm"
	TypeTagDatabaseCluster  lifecycle.ResourceTypeTag = "rds:cluster"
	TypeTagContainerService lifecycle.ResourceTypeTag = "ecs:service"
	TypeTagWarehouseCluster lifecycle.ResourceTypeTag = "redshift:cluster"
	TypeTagInstance         lifecycle.ResourceTypeTag = "ec2:instance"
	TypeTagDatabaseInstance lifecycle.ResourceTypeTag = "rds:db"
)

// TypeTags returns the discovery type tag of every supported kind.
func TypeTags() map[lifecycle.Kind]lifecycle.ResourceTypeTag {
	tags := make(map[lifecycle.Kind]lifecycle.ResourceTypeTag)
	for _, c := range (&Plugin{}).capabilities() {
		tags[c.Kind] = c.TypeTag
	}
	return tags
}

func (p *Plugin) capabilities() []batch.Capability {
	return []batch.Capability{
		p.alarms(),
		p.databaseClusters(),
		p.containerServices(),
		p.warehouseClusters(),
		p.instances(),
		p.databaseInstances(),
	}
}

func trailing(sep string) func(string) (lifecycle.Ref, error) {
	return func(identifier string) (lifecycle.Ref, error) {
		return lifecycle.ParseTrailing(identifier, sep)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CloudWatch alarms: start enables alarm actions, stop disables them.
// ══════════════════════════════════════════════════════════════════════════════

func (p *Plugin) alarms() batch.Capability {
	return batch.Capability{
		Kind:    lifecycle.KindAlarm,
		Label:   "cloudwatch alarm",
		TypeTag: TypeTagAlarm,
		Parse:   trailing(":"),
		Start: func(ctx context.Context, ref lifecycle.Ref) error {
			_, err := p.cloudwatchClient.EnableAlarmActions(ctx, &cloudwatch.EnableAlarmActionsInput{AlarmNames: []string{ref.ID}})
			if err != nil {
				return fmt.Errorf("enable alarm actions: %w", err)
			}
			return nil
		},
		Stop: func(ctx context.Context, ref lifecycle.Ref) error {
			_, err := p.cloudwatchClient.DisableAlarmActions(ctx, &cloudwatch.DisableAlarmActionsInput{AlarmNames: []string{ref.ID}})
			if err != nil {
				return fmt.Errorf("disable alarm actions: %w", err)
			}
			return nil
		},
		Message: func(action lifecycle.Action, ref lifecycle.Ref) string {
			if action == lifecycle.Start {
				return "Enabled CloudWatch alarm " + ref.ID
			}
			return "Disabled CloudWatch alarm " + ref.ID
		},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// RDS / DocumentDB clusters and RDS instances
// ══════════════════════════════════════════════════════════════════════════════

func (p *Plugin) databaseClusters() batch.Capability {
	return batch.Capability{
		Kind:    lifecycle.KindDatabaseCluster,
		Label:   "database cluster",
		TypeTag: TypeTagDatabaseCluster,
		Parse:   trailing(":"),
		Start: func(ctx context.Context, ref lifecycle.Ref) error {
			_, err := p.rdsClient.StartDBCluster(ctx, &rds.StartDBClusterInput{DBClusterIdentifier: aws.String(ref.ID)})
			if err != nil {
				return fmt.Errorf("start db cluster: %w", err)
			}
			return nil
		},
		Stop: func(ctx context.Context, ref lifecycle.Ref) error {
			_, err := p.rdsClient.StopDBCluster(ctx, &rds.StopDBClusterInput{DBClusterIdentifier: aws.String(ref.ID)})
			if err != nil {
				return fmt.Errorf("stop db cluster: %w", err)
			}
			return nil
		},
	}
}

func (p *Plugin) databaseInstances() batch.Capability {
	return batch.Capability{
		Kind:    lifecycle.KindDatabaseInstance,
		Label:   "database instance",
		TypeTag: TypeTagDatabaseInstance,
		Parse:   trailing(":"),
		Start: func(ctx context.Context, ref lifecycle.Ref) error {
			_, err := p.rdsClient.StartDBInstance(ctx, &rds.StartDBInstanceInput{DBInstanceIdentifier: aws.String(ref.ID)})
			if err != nil {
				return fmt.Errorf("start db instance: %w", err)
			}
			return nil
		},
		Stop: func(ctx context.Context, ref lifecycle.Ref) error {
			_, err := p.rdsClient.StopDBInstance(ctx, &rds.StopDBInstanceInput{DBInstanceIdentifier: aws.String(ref.ID)})
			if err != nil {
				return fmt.Errorf("stop db instance: %w", err)
			}
			return nil
		},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// ECS services: addressed by cluster + service, scaled between 0 and 1 tasks.
// ══════════════════════════════════════════════════════════════════════════════

func (p *Plugin) containerServices() batch.Capability {
	return batch.Capability{
		Kind:    lifecycle.KindContainerService,
		Label:   "ecs service",
		TypeTag: TypeTagContainerService,
		Parse: func(identifier string) (lifecycle.Ref, error) {
			return lifecycle.ParseNested(identifier, "/")
		},
		Start: func(ctx context.Context, ref lifecycle.Ref) error {
			return p.setDesiredCount(ctx, ref, DefaultDesiredCount)
		},
		Stop: func(ctx context.Context, ref lifecycle.Ref) error {
			return p.setDesiredCount(ctx, ref, 0)
		},
		Message: func(action lifecycle.Action, ref lifecycle.Ref) string {
			verb := "Start"
			if action == lifecycle.Stop {
				verb = "Stop"
			}
			return fmt.Sprintf("%s ECS Service %s on Cluster %s", verb, ref.ID, ref.Parent)
		},
	}
}

func (p *Plugin) setDesiredCount(ctx context.Context, ref lifecycle.Ref, count int32) error {
	_, err := p.ecsClient.UpdateService(ctx, &ecs.UpdateServiceInput{
		Cluster:      aws.String(ref.Parent),
		Service:      aws.String(ref.ID),
		DesiredCount: aws.Int32(count),
	})
	if err != nil {
		return fmt.Errorf("update service desired count to %d: %w", count, err)
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// Redshift clusters: start resumes, stop pauses.
// ══════════════════════════════════════════════════════════════════════════════

func (p *Plugin) warehouseClusters() batch.Capability {
	return batch.Capability{
		Kind:    lifecycle.KindWarehouseCluster,
		Label:   "redshift cluster",
		TypeTag: TypeTagWarehouseCluster,
		Parse:   trailing(":"),
		Start: func(ctx context.Context, ref lifecycle.Ref) error {
			_, err := p.redshiftClient.ResumeCluster(ctx, &redshift.ResumeClusterInput{ClusterIdentifier: aws.String(ref.ID)})
			if err != nil {
				return fmt.Errorf("resume cluster: %w", err)
			}
			return nil
		},
		Stop: func(ctx context.Context, ref lifecycle.Ref) error {
			_, err := p.redshiftClient.PauseCluster(ctx, &redshift.PauseClusterInput{ClusterIdentifier: aws.String(ref.ID)})
			if err != nil {
				return fmt.Errorf("pause cluster: %w", err)
			}
			return nil
		},
		Message: func(action lifecycle.Action, ref lifecycle.Ref) string {
			verb := "Start"
			if action == lifecycle.Stop {
				verb = "Stop"
			}
			return fmt.Sprintf("%s redshift cluster %s", verb, ref.ID)
		},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// EC2 instances
// ══════════════════════════════════════════════════════════════════════════════

func (p *Plugin) instances() batch.Capability {
	return batch.Capability{
		Kind:    lifecycle.KindInstance,
		Label:   "ec2 instance",
		TypeTag: TypeTagInstance,
		Parse:   trailing("/"),
		Start: func(ctx context.Context, ref lifecycle.Ref) error {
			_, err := p.ec2Client.StartInstances(ctx, &ec2.StartInstancesInput{InstanceIds: []string{ref.ID}})
			if err != nil {
				return fmt.Errorf("start instances: %w", err)
			}
			return nil
		},
		Stop: func(ctx context.Context, ref lifecycle.Ref) error {
			_, err := p.ec2Client.StopInstances(ctx, &ec2.StopInstancesInput{InstanceIds: []string{ref.ID}})
			if err != nil {
				return fmt.Errorf("stop instances: %w", err)
			}
			return nil
		},
	}
}
