package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// MetricsEmitter records checkout outcomes as CloudWatch counts. Emission is
// always best-effort; callers log and ignore errors.
type MetricsEmitter struct {
	CW        CloudWatchAPI
	Namespace string
}

func NewMetricsEmitter(cw CloudWatchAPI, namespace string) *MetricsEmitter {
	if namespace == "" {
		namespace = "POSCheckout"
	}
	return &MetricsEmitter{CW: cw, Namespace: namespace}
}

// EmitOutcome records one saga run's terminal outcome. failedStep is empty
// unless the outcome is CreatedButIncomplete.
func (m *MetricsEmitter) EmitOutcome(ctx context.Context, outcome, failedStep string) error {
	dims := []cwtypes.Dimension{
		{Name: awsString("Outcome"), Value: awsString(outcome)},
	}
	if failedStep != "" {
		dims = append(dims, cwtypes.Dimension{Name: awsString("FailedStep"), Value: awsString(failedStep)})
	}
	return m.put(ctx, "CheckoutOutcome", dims)
}

// EmitStuckOrder records one stuck-order alarm datum; a CloudWatch alarm on
// this metric is what actually pages a human.
func (m *MetricsEmitter) EmitStuckOrder(ctx context.Context, failedStep string) error {
	dims := []cwtypes.Dimension{
		{Name: awsString("FailedStep"), Value: awsString(failedStep)},
	}
	return m.put(ctx, "StuckOrders", dims)
}

func (m *MetricsEmitter) put(ctx context.Context, name string, dims []cwtypes.Dimension) error {
	one := 1.0
	input := &cloudwatch.PutMetricDataInput{
		Namespace: &m.Namespace,
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: &name,
				Value:      &one,
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: dims,
			},
		},
	}
	if _, err := m.CW.PutMetricData(ctx, input); err != nil {
		return fmt.Errorf("put metric data: %w", err)
	}
	return nil
}
