package health

import (
	"context"
	"time"

	"github.com/rentradar/backend/internal/database"
	"github.com/rentradar/backend/internal/models"
	"github.com/sirupsen/logrus"
)

// Checker runs connectivity probes against the backing stores and
// persists the results so operators can see recent history.
type Checker struct {
	dbManager  *database.Manager
	healthRepo models.SystemHealthRepository
	logger     *logrus.Logger
}

func NewChecker(dbManager *database.Manager, healthRepo models.SystemHealthRepository, logger *logrus.Logger) *Checker {
	return &Checker{
		dbManager:  dbManager,
		healthRepo: healthRepo,
		logger:     logger,
	}
}

// ServiceHealth represents the health status of a service
type ServiceHealth struct {
	Name         string `json:"name"`
	Status       string `json:"status"`
	ResponseTime int    `json:"response_time_ms"`
	Error        string `json:"error,omitempty"`
	LastChecked  string `json:"last_checked"`
}

// OverallHealth represents the overall system health
type OverallHealth struct {
	Status   string          `json:"status"`
	Services []ServiceHealth `json:"services"`
	Uptime   string          `json:"uptime"`
}

// CheckPostgreSQL checks PostgreSQL database health
func (h *Checker) CheckPostgreSQL() ServiceHealth {
	return h.probe("postgresql", h.dbManager.PingDatabase)
}

// CheckRedis checks Redis cache health
func (h *Checker) CheckRedis() ServiceHealth {
	return h.probe("redis", h.dbManager.PingRedis)
}

func (h *Checker) probe(name string, ping func() error) ServiceHealth {
	start := time.Now()
	err := ping()
	responseTime := int(time.Since(start).Milliseconds())

	status := "healthy"
	errorMsg := ""
	if err != nil {
		status = "unhealthy"
		errorMsg = err.Error()
		h.logger.WithError(err).WithField("service", name).Error("Health check failed")
	}

	if repoErr := h.healthRepo.UpdateServiceHealth(name, status, responseTime, errorMsg); repoErr != nil {
		h.logger.WithError(repoErr).WithField("service", name).Warn("Failed to persist health status")
	}

	return ServiceHealth{
		Name:         name,
		Status:       status,
		ResponseTime: responseTime,
		Error:        errorMsg,
		LastChecked:  time.Now().Format(time.RFC3339),
	}
}

// CheckAll performs health checks on all services
func (h *Checker) CheckAll() OverallHealth {
	services := []ServiceHealth{
		h.CheckPostgreSQL(),
		h.CheckRedis(),
	}

	overallStatus := "healthy"
	for _, service := range services {
		if service.Status == "unhealthy" {
			overallStatus = "unhealthy"
			break
		}
		if service.Status == "degraded" && overallStatus == "healthy" {
			overallStatus = "degraded"
		}
	}

	return OverallHealth{
		Status:   overallStatus,
		Services: services,
		Uptime:   h.getUptime(),
	}
}

// LastKnown returns the most recently persisted status per service
// without probing, for cheap status pages.
func (h *Checker) LastKnown() (*OverallHealth, error) {
	persisted, err := h.healthRepo.GetAllServicesHealth()
	if err != nil {
		return nil, err
	}

	services := make([]ServiceHealth, len(persisted))
	overallStatus := "healthy"
	for i, record := range persisted {
		services[i] = ServiceHealth{
			Name:         record.ServiceName,
			Status:       record.Status,
			ResponseTime: record.ResponseTimeMs,
			Error:        record.ErrorMessage,
			LastChecked:  record.CheckedAt.Format(time.RFC3339),
		}

		if record.Status == "unhealthy" {
			overallStatus = "unhealthy"
		} else if record.Status == "degraded" && overallStatus == "healthy" {
			overallStatus = "degraded"
		}
	}

	return &OverallHealth{
		Status:   overallStatus,
		Services: services,
		Uptime:   h.getUptime(),
	}, nil
}

var startTime = time.Now()

func (h *Checker) getUptime() string {
	return time.Since(startTime).String()
}

// PeriodicHealthCheck runs health checks periodically
func (h *Checker) PeriodicHealthCheck(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			health := h.CheckAll()
			h.logger.WithField("status", health.Status).Debug("Periodic health check completed")
		}
	}
}
