package aws

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// MetricsRecorder publishes counters to CloudWatch under a fixed namespace.
type MetricsRecorder struct {
	CloudWatch CloudWatchAPI
	Namespace  string
	nowFunc    func() time.Time
}

// NewMetricsRecorder returns a recorder bound to a namespace, e.g. "OrderEdits".
func NewMetricsRecorder(client CloudWatchAPI, namespace string) *MetricsRecorder {
	return &MetricsRecorder{
		CloudWatch: client,
		Namespace:  namespace,
		nowFunc:    time.Now,
	}
}

// CountEvent bumps a count metric for a lifecycle event name, e.g. "order-edit.declined".
func (m *MetricsRecorder) CountEvent(ctx context.Context, eventName string) error {
	now := m.nowFunc()
	input := &cloudwatch.PutMetricDataInput{
		Namespace: &m.Namespace,
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: awsString("EventsPublished"),
				Timestamp:  &now,
				Unit:       cwtypes.StandardUnitCount,
				Value:      awsFloat64(1),
				Dimensions: []cwtypes.Dimension{
					{Name: awsString("EventName"), Value: &eventName},
				},
			},
		},
	}
	if _, err := m.CloudWatch.PutMetricData(ctx, input); err != nil {
		return fmt.Errorf("put metric data: %w", err)
	}
	return nil
}

func awsFloat64(f float64) *float64 { return &f }
