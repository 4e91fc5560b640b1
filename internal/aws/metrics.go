package aws

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// Metric names published under the configured namespace.
const (
	MetricOrdersPlaced   = "OrdersPlaced"
	MetricOrdersRejected = "OrdersRejected"
	MetricUnitsSold      = "UnitsSold"
)

// Metrics publishes business counters to CloudWatch. A nil *Metrics or one
// without a namespace silently drops every datum.
type Metrics struct {
	client    CloudWatchAPI
	namespace string
	nowFunc   func() time.Time
}

// NewMetrics returns a Metrics bound to namespace.
func NewMetrics(client CloudWatchAPI, namespace string) *Metrics {
	return &Metrics{
		client:    client,
		namespace: namespace,
		nowFunc:   time.Now,
	}
}

func (m *Metrics) enabled() bool {
	return m != nil && m.client != nil && m.namespace != ""
}

// Count publishes a single Count datum with optional dimensions.
func (m *Metrics) Count(ctx context.Context, name string, value float64, dims map[string]string) error {
	if !m.enabled() {
		return nil
	}

	datum := cwtypes.MetricDatum{
		MetricName: awsString(name),
		Value:      &value,
		Unit:       cwtypes.StandardUnitCount,
		Timestamp:  timePtr(m.nowFunc()),
	}
	for k, v := range dims {
		datum.Dimensions = append(datum.Dimensions, cwtypes.Dimension{
			Name:  awsString(k),
			Value: awsString(v),
		})
	}

	_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  &m.namespace,
		MetricData: []cwtypes.MetricDatum{datum},
	})
	if err != nil {
		return fmt.Errorf("put metric data %s: %w", name, err)
	}
	return nil
}

// OrderPlaced records one placed order and the units it took out of stock.
func (m *Metrics) OrderPlaced(ctx context.Context, units int) error {
	if err := m.Count(ctx, MetricOrdersPlaced, 1, nil); err != nil {
		return err
	}
	return m.Count(ctx, MetricUnitsSold, float64(units), nil)
}

// OrderRejected records one rejected order, keyed by reason.
func (m *Metrics) OrderRejected(ctx context.Context, reason string) error {
	return m.Count(ctx, MetricOrdersRejected, 1, map[string]string{"Reason": reason})
}

func timePtr(t time.Time) *time.Time { return &t }
