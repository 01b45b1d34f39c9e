package analysis

import (
	"context"
	"errors"
)

// ErrHistoryDisabled is returned when metrics are requested but no history
// store is configured.
var ErrHistoryDisabled = errors.New("analysis history is not configured")

// MetricsSummary represents aggregated analysis insights.
type MetricsSummary struct {
	TotalRequests          int64   `json:"total_requests"`
	TotalImages            int64   `json:"total_images"`
	TotalDefects           int64   `json:"total_defects"`
	AverageDefectsPerImage float64 `json:"average_defects_per_image"`
	AverageDurationMs      float64 `json:"average_duration_ms"`
}

// GetMetricsSummary aggregates metrics from persisted analysis logs.
func (p *Pipeline) GetMetricsSummary(ctx context.Context) (*MetricsSummary, error) {
	if p.history == nil {
		return nil, ErrHistoryDisabled
	}

	aggregation, err := p.history.AggregateMetrics(ctx)
	if err != nil {
		return nil, err
	}

	summary := &MetricsSummary{
		TotalRequests:     aggregation.TotalRequests,
		TotalImages:       aggregation.TotalImages,
		TotalDefects:      aggregation.TotalDefects,
		AverageDurationMs: aggregation.AverageDurationMs,
	}
	if aggregation.TotalImages > 0 {
		summary.AverageDefectsPerImage = float64(aggregation.TotalDefects) / float64(aggregation.TotalImages)
	}
	return summary, nil
}
