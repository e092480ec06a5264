// Package metrics emits per-run collection metrics. The collector runs
// regardless of whether metrics are enabled; a metrics outage must never
// block ingestion, so emission failures are logged and swallowed.
package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// RunRecorder records the outcome of one collector run.
type RunRecorder interface {
	RecordRun(ctx context.Context, source string, outcome string, stored, skipped int, duration time.Duration)
}

// Noop discards all metrics. Used when metrics are disabled and in tests.
type Noop struct{}

var _ RunRecorder = Noop{}

// RecordRun implements RunRecorder as a no-op.
func (Noop) RecordRun(context.Context, string, string, int, int, time.Duration) {}

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for
// testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchRecorder publishes run metrics to AWS CloudWatch.
//
// Metrics emitted per run:
//   - RecordsStored:  Dims {Source}          -- records persisted
//   - RecordsSkipped: Dims {Source}          -- records rejected by validation
//   - RunDuration:    Dims {Source}          -- wall time of the run
//   - RunOutcome:     Dims {Source, Outcome} -- count of runs per outcome
type CloudWatchRecorder struct {
	client    CloudWatchClient
	namespace string
	logger    *slog.Logger
}

var _ RunRecorder = (*CloudWatchRecorder)(nil)

// NewCloudWatchRecorder creates a recorder publishing to the given namespace.
func NewCloudWatchRecorder(client CloudWatchClient, namespace string, logger *slog.Logger) *CloudWatchRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &CloudWatchRecorder{
		client:    client,
		namespace: namespace,
		logger:    logger,
	}
}

// NewCloudWatchClient builds a CloudWatch client from the default AWS
// credential chain.
func NewCloudWatchClient(ctx context.Context, region string) (*cloudwatch.Client, error) {
	var optFns []func(*awsconfig.LoadOptions) error
	if region != "" {
		optFns = append(optFns, awsconfig.WithRegion(region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, err
	}
	return cloudwatch.NewFromConfig(awsCfg), nil
}

// RecordRun publishes the metrics for one collector run in a single
// PutMetricData call.
func (m *CloudWatchRecorder) RecordRun(ctx context.Context, source string, outcome string, stored, skipped int, duration time.Duration) {
	sourceDim := cwtypes.Dimension{
		Name:  aws.String("Source"),
		Value: aws.String(source),
	}

	input := &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(m.namespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: aws.String("RecordsStored"),
				Value:      aws.Float64(float64(stored)),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: []cwtypes.Dimension{sourceDim},
			},
			{
				MetricName: aws.String("RecordsSkipped"),
				Value:      aws.Float64(float64(skipped)),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: []cwtypes.Dimension{sourceDim},
			},
			{
				MetricName: aws.String("RunDuration"),
				Value:      aws.Float64(float64(duration.Milliseconds())),
				Unit:       cwtypes.StandardUnitMilliseconds,
				Dimensions: []cwtypes.Dimension{sourceDim},
			},
			{
				MetricName: aws.String("RunOutcome"),
				Value:      aws.Float64(1),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: []cwtypes.Dimension{
					sourceDim,
					{
						Name:  aws.String("Outcome"),
						Value: aws.String(outcome),
					},
				},
			},
		},
	}

	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		m.logger.ErrorContext(ctx, "failed to record run metrics",
			"error", err,
			"source", source,
			"outcome", outcome,
		)
	}
}
