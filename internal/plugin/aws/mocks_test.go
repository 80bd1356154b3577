package aws

import (
	"bytes"
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/redshift"
	"github.com/aws/aws-sdk-go-v2/service/resourcegroupstaggingapi"
	tagtypes "github.com/aws/aws-sdk-go-v2/service/resourcegroupstaggingapi/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/rs/zerolog"

	"github.com/yairfalse/snooze/internal/batch"
	"github.com/yairfalse/snooze/internal/report"
)

// mockTaggingClient answers every GetResources call with the ARNs registered for the type filter.
type mockTaggingClient struct {
	byType map[string][]string
	tags   map[string]map[string]string
	err    error
	inputs []*resourcegroupstaggingapi.GetResourcesInput
}

func (m *mockTaggingClient) GetResources(_ context.Context, params *resourcegroupstaggingapi.GetResourcesInput, _ ...func(*resourcegroupstaggingapi.Options)) (*resourcegroupstaggingapi.GetResourcesOutput, error) {
	m.inputs = append(m.inputs, params)
	if m.err != nil {
		return nil, m.err
	}
	out := &resourcegroupstaggingapi.GetResourcesOutput{}
	for _, typ := range params.ResourceTypeFilters {
		for _, arn := range m.byType[typ] {
			mapping := tagtypes.ResourceTagMapping{ResourceARN: aws.String(arn)}
			for k, v := range m.tags[arn] {
				mapping.Tags = append(mapping.Tags, tagtypes.Tag{Key: aws.String(k), Value: aws.String(v)})
			}
			out.ResourceTagMappingList = append(out.ResourceTagMappingList, mapping)
		}
	}
	return out, nil
}

type mockCloudWatchClient struct {
	EnableAlarmActionsFunc  func(ctx context.Context, params *cloudwatch.EnableAlarmActionsInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.EnableAlarmActionsOutput, error)
	DisableAlarmActionsFunc func(ctx context.Context, params *cloudwatch.DisableAlarmActionsInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.DisableAlarmActionsOutput, error)
}

func (m *mockCloudWatchClient) EnableAlarmActions(ctx context.Context, params *cloudwatch.EnableAlarmActionsInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.EnableAlarmActionsOutput, error) {
	return m.EnableAlarmActionsFunc(ctx, params, optFns...)
}

func (m *mockCloudWatchClient) DisableAlarmActions(ctx context.Context, params *cloudwatch.DisableAlarmActionsInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.DisableAlarmActionsOutput, error) {
	return m.DisableAlarmActionsFunc(ctx, params, optFns...)
}

type mockRDSClient struct {
	StartDBClusterFunc  func(ctx context.Context, params *rds.StartDBClusterInput, optFns ...func(*rds.Options)) (*rds.StartDBClusterOutput, error)
	StopDBClusterFunc   func(ctx context.Context, params *rds.StopDBClusterInput, optFns ...func(*rds.Options)) (*rds.StopDBClusterOutput, error)
	StartDBInstanceFunc func(ctx context.Context, params *rds.StartDBInstanceInput, optFns ...func(*rds.Options)) (*rds.StartDBInstanceOutput, error)
	StopDBInstanceFunc  func(ctx context.Context, params *rds.StopDBInstanceInput, optFns ...func(*rds.Options)) (*rds.StopDBInstanceOutput, error)
}

func (m *mockRDSClient) StartDBCluster(ctx context.Context, params *rds.StartDBClusterInput, optFns ...func(*rds.Options)) (*rds.StartDBClusterOutput, error) {
	return m.StartDBClusterFunc(ctx, params, optFns...)
}

func (m *mockRDSClient) StopDBCluster(ctx context.Context, params *rds.StopDBClusterInput, optFns ...func(*rds.Options)) (*rds.StopDBClusterOutput, error) {
	return m.StopDBClusterFunc(ctx, params, optFns...)
}

func (m *mockRDSClient) StartDBInstance(ctx context.Context, params *rds.StartDBInstanceInput, optFns ...func(*rds.Options)) (*rds.StartDBInstanceOutput, error) {
	return m.StartDBInstanceFunc(ctx, params, optFns...)
}

func (m *mockRDSClient) StopDBInstance(ctx context.Context, params *rds.StopDBInstanceInput, optFns ...func(*rds.Options)) (*rds.StopDBInstanceOutput, error) {
	return m.StopDBInstanceFunc(ctx, params, optFns...)
}

type mockECSClient struct {
	UpdateServiceFunc func(ctx context.Context, params *ecs.UpdateServiceInput, optFns ...func(*ecs.Options)) (*ecs.UpdateServiceOutput, error)
}

func (m *mockECSClient) UpdateService(ctx context.Context, params *ecs.UpdateServiceInput, optFns ...func(*ecs.Options)) (*ecs.UpdateServiceOutput, error) {
	return m.UpdateServiceFunc(ctx, params, optFns...)
}

type mockRedshiftClient struct {
	PauseClusterFunc  func(ctx context.Context, params *redshift.PauseClusterInput, optFns ...func(*redshift.Options)) (*redshift.PauseClusterOutput, error)
	ResumeClusterFunc func(ctx context.Context, params *redshift.ResumeClusterInput, optFns ...func(*redshift.Options)) (*redshift.ResumeClusterOutput, error)
}

func (m *mockRedshiftClient) PauseCluster(ctx context.Context, params *redshift.PauseClusterInput, optFns ...func(*redshift.Options)) (*redshift.PauseClusterOutput, error) {
	return m.PauseClusterFunc(ctx, params, optFns...)
}

func (m *mockRedshiftClient) ResumeCluster(ctx context.Context, params *redshift.ResumeClusterInput, optFns ...func(*redshift.Options)) (*redshift.ResumeClusterOutput, error) {
	return m.ResumeClusterFunc(ctx, params, optFns...)
}

type mockEC2Client struct {
	StartInstancesFunc func(ctx context.Context, params *ec2.StartInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StartInstancesOutput, error)
	StopInstancesFunc  func(ctx context.Context, params *ec2.StopInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StopInstancesOutput, error)
}

func (m *mockEC2Client) StartInstances(ctx context.Context, params *ec2.StartInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StartInstancesOutput, error) {
	return m.StartInstancesFunc(ctx, params, optFns...)
}

func (m *mockEC2Client) StopInstances(ctx context.Context, params *ec2.StopInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StopInstancesOutput, error) {
	return m.StopInstancesFunc(ctx, params, optFns...)
}

type mockSTSClient struct {
	GetCallerIdentityFunc func(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

func (m *mockSTSClient) GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	return m.GetCallerIdentityFunc(ctx, params, optFns...)
}


// newTestPlugin wires c into a Plugin whose logs land in the returned buffer
// and whose outcomes land in the returned recorder.
func newTestPlugin(c Clients) (*Plugin, *bytes.Buffer, *batch.Recorder) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	rec := &batch.Recorder{}
	p := NewWithClients("eu-west-1", c,
		batch.WithLogger(logger),
		batch.WithReporter(report.New(logger)),
		batch.WithObserver(rec),
	)
	return p, &buf, rec
}
