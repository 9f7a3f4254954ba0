// Package telemetry emits pipeline metrics to CloudWatch. Metrics give
// operators the only aggregate signal distinguishing a clean run from a
// partially failed one without reading logs.
package telemetry

import (
	"context"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/rhellums/gfs-pull/internal/pipeline"
	"github.com/rhellums/gfs-pull/internal/types"
)

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// PipelineMetrics publishes per-unit metrics. It implements pipeline.UnitSink.
//
// Metrics emitted per unit:
//   - UnitProcessed: Dims {Cycle}, on every unit outcome
//   - DownloadFailure: Dims {Cycle}, when the transfer failed
//   - VariableExtracted: Dims {Cycle}, count of artifacts written
//   - VariableFailed: Dims {Variable}, one per failed extraction
type PipelineMetrics struct {
	client    CloudWatchClient
	namespace string
	logger    *slog.Logger
}

// Compile-time assertion that PipelineMetrics implements pipeline.UnitSink.
var _ pipeline.UnitSink = (*PipelineMetrics)(nil)

// NewPipelineMetrics creates a publisher for the pipeline's metric namespace.
func NewPipelineMetrics(client CloudWatchClient, logger *slog.Logger) *PipelineMetrics {
	if logger == nil {
		logger = slog.Default()
	}
	return &PipelineMetrics{
		client:    client,
		namespace: types.MetricNamespace,
		logger:    logger,
	}
}

// RecordUnit emits the metric data for one completed unit in a single
// PutMetricData call.
func (m *PipelineMetrics) RecordUnit(ctx context.Context, runID string, res pipeline.UnitResult) error {
	cycleDim := []cwtypes.Dimension{{
		Name:  aws.String(types.DimCycle),
		Value: aws.String(res.Key.Cycle),
	}}

	data := []cwtypes.MetricDatum{{
		MetricName: aws.String(types.MetricUnitProcessed),
		Value:      aws.Float64(1),
		Unit:       cwtypes.StandardUnitCount,
		Dimensions: cycleDim,
	}}

	if res.DownloadErr != nil {
		data = append(data, cwtypes.MetricDatum{
			MetricName: aws.String(types.MetricDownloadFailure),
			Value:      aws.Float64(1),
			Unit:       cwtypes.StandardUnitCount,
			Dimensions: cycleDim,
		})
	}

	if extracted := len(res.ArtifactPaths()); extracted > 0 {
		data = append(data, cwtypes.MetricDatum{
			MetricName: aws.String(types.MetricVariableExtracted),
			Value:      aws.Float64(float64(extracted)),
			Unit:       cwtypes.StandardUnitCount,
			Dimensions: cycleDim,
		})
	}

	for _, variable := range res.FailedVariables() {
		data = append(data, cwtypes.MetricDatum{
			MetricName: aws.String(types.MetricVariableFailed),
			Value:      aws.Float64(1),
			Unit:       cwtypes.StandardUnitCount,
			Dimensions: []cwtypes.Dimension{{
				Name:  aws.String(types.DimVariable),
				Value: aws.String(variable),
			}},
		})
	}

	_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: data,
	})
	if err != nil {
		return types.NewAppError(types.ErrCodeMetricsEmit, "publishing unit metrics", err)
	}
	return nil
}
