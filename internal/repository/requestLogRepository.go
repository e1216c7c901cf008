package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/akio-byte/navaltutka/internal/models"
	"github.com/akio-byte/navaltutka/internal/storage"
)

type RequestLogRepository struct {
	db *storage.Postgres
}

func NewRequestLogRepository(db *storage.Postgres) *RequestLogRepository {
	return &RequestLogRepository{db: db}
}

// between restricts a query to logs recorded in [from, to].
func between(from, to time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("timestamp BETWEEN ? AND ?", from, to)
	}
}

func page(limit, offset int) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Order("timestamp DESC").Limit(limit).Offset(offset)
	}
}

func (r *RequestLogRepository) logs(ctx context.Context) *gorm.DB {
	return r.db.DB.WithContext(ctx).Model(&models.RequestLog{})
}

// CreateBatch inserts a flushed batch from the request-log sink.
func (r *RequestLogRepository) CreateBatch(ctx context.Context, logs []*models.RequestLog) error {
	if len(logs) == 0 {
		return nil
	}
	return r.db.DB.WithContext(ctx).CreateInBatches(logs, len(logs)).Error
}

// Newest first.
func (r *RequestLogRepository) FindByTimeRange(ctx context.Context, from, to time.Time, limit, offset int) ([]models.RequestLog, error) {
	var out []models.RequestLog
	err := r.logs(ctx).Scopes(between(from, to), page(limit, offset)).Find(&out).Error
	return out, err
}

// FindByCode returns logs that ended with one outcome code, newest first.
func (r *RequestLogRepository) FindByCode(ctx context.Context, code string, from, to time.Time, limit, offset int) ([]models.RequestLog, error) {
	var out []models.RequestLog
	err := r.logs(ctx).
		Where("code = ?", code).
		Scopes(between(from, to), page(limit, offset)).
		Find(&out).Error
	return out, err
}

func (r *RequestLogRepository) CountByTimeRange(ctx context.Context, from, to time.Time) (int64, error) {
	var n int64
	err := r.logs(ctx).Scopes(between(from, to)).Count(&n).Error
	return n, err
}

func (r *RequestLogRepository) GetAverageLatency(ctx context.Context, from, to time.Time) (float64, error) {
	var avg float64
	err := r.logs(ctx).
		Scopes(between(from, to)).
		Select("COALESCE(AVG(latency_ms), 0)").
		Scan(&avg).Error
	return avg, err
}

// GetPercentile computes a latency percentile in postgres.
func (r *RequestLogRepository) GetPercentile(ctx context.Context, from, to time.Time, percentile float64) (int, error) {
	var v float64
	err := r.logs(ctx).
		Scopes(between(from, to)).
		Select("COALESCE(PERCENTILE_CONT(?) WITHIN GROUP (ORDER BY latency_ms), 0)", percentile).
		Scan(&v).Error
	return int(v), err
}

// CountByStatusCodeRange counts logs whose HTTP status falls in [lo, hi].
func (r *RequestLogRepository) CountByStatusCodeRange(ctx context.Context, lo, hi int, from, to time.Time) (int64, error) {
	var n int64
	err := r.logs(ctx).
		Where("status_code BETWEEN ? AND ?", lo, hi).
		Scopes(between(from, to)).
		Count(&n).Error
	return n, err
}

// CodeCount is one row of the per-code breakdown.
type CodeCount struct {
	Code  string `json:"code"`
	Count int64  `json:"count"`
}

// CountByCode counts failed requests per outcome code. Successes carry no
// code and are left out.
func (r *RequestLogRepository) CountByCode(ctx context.Context, from, to time.Time) ([]CodeCount, error) {
	var rows []CodeCount
	err := r.logs(ctx).
		Select("code, COUNT(*) AS count").
		Where("code <> ''").
		Scopes(between(from, to)).
		Group("code").
		Order("count DESC").
		Scan(&rows).Error
	return rows, err
}

// EndpointCount is one row of the busiest-endpoint list.
type EndpointCount struct {
	Endpoint string `json:"endpoint"`
	Count    int64  `json:"count"`
	Streamed int64  `json:"streamed"`
}

func (r *RequestLogRepository) GetTopEndpoints(ctx context.Context, from, to time.Time, limit int) ([]EndpointCount, error) {
	var rows []EndpointCount
	err := r.logs(ctx).
		Select("endpoint, COUNT(*) AS count, COUNT(*) FILTER (WHERE streamed) AS streamed").
		Scopes(between(from, to)).
		Group("endpoint").
		Order("count DESC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

// DeleteOldLogs removes logs recorded before the cutoff and reports how many
// rows went.
func (r *RequestLogRepository) DeleteOldLogs(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.DB.WithContext(ctx).
		Where("timestamp < ?", before).
		Delete(&models.RequestLog{})
	return res.RowsAffected, res.Error
}
