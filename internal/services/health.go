package services

import (
	"context"

	"gorm.io/gorm"

	"beanhealth/internal/database"
	"beanhealth/internal/metrics"
)

// HealthResult is the body of GET /health
type HealthResult struct {
	Status   string `json:"status"`
	Service  string `json:"service"`
	Database string `json:"database"`
}

// HealthService reports API and database availability
type HealthService struct {
	db      *gorm.DB
	service string
}

// NewHealthService creates a new health service
func NewHealthService(db *gorm.DB, service string) *HealthService {
	return &HealthService{db: db, service: service}
}

// Check pings the database and refreshes the connection gauges. The
// service is "degraded" when the database is unreachable.
func (s *HealthService) Check(ctx context.Context) *HealthResult {
	result := &HealthResult{
		Status:   "healthy",
		Service:  s.service,
		Database: "connected",
	}

	if err := database.HealthCheck(s.db); err != nil {
		result.Status = "degraded"
		result.Database = "unavailable"
		return result
	}

	if stats, err := database.GetStats(s.db); err == nil {
		metrics.UpdateDBConnections(stats.InUse, stats.Idle)
	}
	return result
}
