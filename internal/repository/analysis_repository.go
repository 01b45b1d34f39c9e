package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// AnalysisLog is one persisted summary row per completed analysis request.
type AnalysisLog struct {
	ID           uint      `gorm:"primaryKey"`
	RequestID    string    `gorm:"column:request_id;uniqueIndex;size:64"`
	Area         string    `gorm:"column:area;size:128"`
	ImageCount   int       `gorm:"column:image_count"`
	DefectCount  int       `gorm:"column:defect_count"`
	FailureCount int       `gorm:"column:failure_count"`
	DurationMs   int64     `gorm:"column:duration_ms"`
	CreatedAt    time.Time `gorm:"column:created_at"`
}

// TableName overrides the default table name.
func (AnalysisLog) TableName() string {
	return "analysis_logs"
}

// MetricsAggregation holds the raw aggregates computed in the database.
type MetricsAggregation struct {
	TotalRequests     int64   `gorm:"column:total_requests"`
	TotalImages       int64   `gorm:"column:total_images"`
	TotalDefects      int64   `gorm:"column:total_defects"`
	AverageDurationMs float64 `gorm:"column:average_duration_ms"`
}

// AnalysisRepository provides persistence APIs for analysis logs.
type AnalysisRepository struct {
	db *gorm.DB
}

// NewAnalysisRepository creates a new repository instance.
func NewAnalysisRepository(db *gorm.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// AutoMigrate ensures the schema is available.
func (r *AnalysisRepository) AutoMigrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&AnalysisLog{})
}

// SaveLog persists one analysis summary row.
func (r *AnalysisRepository) SaveLog(ctx context.Context, log *AnalysisLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// AggregateMetrics computes totals and averages across all recorded
// requests.
func (r *AnalysisRepository) AggregateMetrics(ctx context.Context) (*MetricsAggregation, error) {
	var aggregation MetricsAggregation
	err := r.db.WithContext(ctx).
		Model(&AnalysisLog{}).
		Select("COUNT(*) AS total_requests, COALESCE(SUM(image_count), 0) AS total_images, COALESCE(SUM(defect_count), 0) AS total_defects, COALESCE(AVG(duration_ms), 0) AS average_duration_ms").
		Scan(&aggregation).Error
	if err != nil {
		return nil, err
	}
	return &aggregation, nil
}
