package service

import (
	"context"
	"time"

	"github.com/akio-byte/navaltutka/internal/models"
	"github.com/akio-byte/navaltutka/internal/repository"
)

// RequestLogStore is the slice of the request-log repository analytics needs.
type RequestLogStore interface {
	FindByTimeRange(ctx context.Context, from, to time.Time, limit, offset int) ([]models.RequestLog, error)
	FindByCode(ctx context.Context, code string, from, to time.Time, limit, offset int) ([]models.RequestLog, error)
	CountByTimeRange(ctx context.Context, from, to time.Time) (int64, error)
	GetAverageLatency(ctx context.Context, from, to time.Time) (float64, error)
	GetPercentile(ctx context.Context, from, to time.Time, percentile float64) (int, error)
	CountByStatusCodeRange(ctx context.Context, minStatusCode, maxStatusCode int, from, to time.Time) (int64, error)
	CountByCode(ctx context.Context, from, to time.Time) ([]repository.CodeCount, error)
	GetTopEndpoints(ctx context.Context, from, to time.Time, limit int) ([]repository.EndpointCount, error)
	DeleteOldLogs(ctx context.Context, before time.Time) (int64, error)
}

type AnalyticsService struct {
	repository RequestLogStore
	now        func() time.Time
}

func NewAnalyticsService(repo RequestLogStore) *AnalyticsService {
	return &AnalyticsService{
		repository: repo,
		now:        time.Now,
	}
}

// Holds analytics summary data
type AnalyticsSummary struct {
	TotalRequests   int64                      `json:"total_requests"`
	AvgLatency      float64                    `json:"avg_latency_ms"`
	P50Latency      int                        `json:"p50_latency_ms"`
	P95Latency      int                        `json:"p95_latency_ms"`
	P99Latency      int                        `json:"p99_latency_ms"`
	ErrorRate       float64                    `json:"error_rate"`
	SuccessRate     float64                    `json:"success_rate"`
	ClientErrorRate float64                    `json:"client_error_rate"`
	ServerErrorRate float64                    `json:"server_error_rate"`
	ByCode          []repository.CodeCount     `json:"by_code"`
	TopEndpoints    []repository.EndpointCount `json:"top_endpoints"`
}

// Retrieves analytics summary for a time range
func (s *AnalyticsService) GetSummary(ctx context.Context, from, to time.Time) (*AnalyticsSummary, error) {
	summary := &AnalyticsSummary{}

	totalRequests, err := s.repository.CountByTimeRange(ctx, from, to)
	if err != nil {
		return nil, err
	}
	summary.TotalRequests = totalRequests

	if totalRequests == 0 {
		return summary, nil
	}

	avgLatency, err := s.repository.GetAverageLatency(ctx, from, to)
	if err != nil {
		return nil, err
	}
	summary.AvgLatency = avgLatency

	// percentiles are best effort
	summary.P50Latency, _ = s.repository.GetPercentile(ctx, from, to, 0.50)
	summary.P95Latency, _ = s.repository.GetPercentile(ctx, from, to, 0.95)
	summary.P99Latency, _ = s.repository.GetPercentile(ctx, from, to, 0.99)

	clientErrors, err := s.repository.CountByStatusCodeRange(ctx, 400, 499, from, to)
	if err != nil {
		return nil, err
	}

	serverErrors, err := s.repository.CountByStatusCodeRange(ctx, 500, 599, from, to)
	if err != nil {
		return nil, err
	}

	totalErrors := clientErrors + serverErrors
	summary.ErrorRate = (float64(totalErrors) / float64(totalRequests)) * 100
	summary.SuccessRate = 100 - summary.ErrorRate
	summary.ClientErrorRate = (float64(clientErrors) / float64(totalRequests)) * 100
	summary.ServerErrorRate = (float64(serverErrors) / float64(totalRequests)) * 100

	if summary.ByCode, err = s.repository.CountByCode(ctx, from, to); err != nil {
		return nil, err
	}
	if summary.TopEndpoints, err = s.repository.GetTopEndpoints(ctx, from, to, 10); err != nil {
		return nil, err
	}

	return summary, nil
}

// Retrieves request logs with pagination, optionally for one outcome code
func (s *AnalyticsService) GetLogs(ctx context.Context, from, to time.Time, code string, limit, offset int) ([]models.RequestLog, error) {
	if code != "" {
		return s.repository.FindByCode(ctx, code, from, to, limit, offset)
	}
	return s.repository.FindByTimeRange(ctx, from, to, limit, offset)
}

// Deletes logs older than the retention period
func (s *AnalyticsService) CleanupOldLogs(ctx context.Context, retention time.Duration) (int64, error) {
	return s.repository.DeleteOldLogs(ctx, s.now().Add(-retention))
}
