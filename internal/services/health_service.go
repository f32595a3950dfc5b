package services

import (
	"context"
	"log/slog"
	"runtime"
	"strconv"
	"time"

	"kpiboard/internal/infrastructure"
	"kpiboard/internal/poller"
	"kpiboard/pkg/contracts"
)

// Health status values
const (
	StatusOK       = "ok"
	StatusReady    = "ready"
	StatusNotReady = "not_ready"
	StatusAlive    = "alive"
	StatusDisabled = "disabled"
)

// PollStatusProvider reports the state of the background poll loop
type PollStatusProvider interface {
	Status() poller.Status
}

// ClientCounter reports connected websocket clients
type ClientCounter interface {
	ClientCount() int
}

// HealthService provides health check functionality
type HealthService struct {
	poller    PollStatusProvider
	clients   ClientCounter
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// NewHealthService creates a health service. A nil poller means polling is
// disabled, which does not hold readiness back.
func NewHealthService(p PollStatusProvider, clients ClientCounter, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		poller:    p,
		clients:   clients,
		startTime: time.Now(),
		logger:    infrastructure.ForComponent(logger, "health_service"),
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    StatusOK,
		Timestamp: time.Now(),
		Version:   contracts.Version,
	}
}

// ReadinessCheck is ready once the poller has completed a successful cycle
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    StatusReady,
		Timestamp: time.Now(),
		Version:   contracts.Version,
		Services:  make(map[string]interface{}),
	}

	poll := hs.checkPoller()
	status.Services["poller"] = poll
	status.Services["websocket"] = hs.checkWebSocket()

	if poll.Status == StatusNotReady {
		status.Status = StatusNotReady
		hs.logger.DebugContext(ctx, "Readiness check failed", slog.String("reason", poll.Message))
	}
	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    StatusAlive,
		Timestamp: time.Now(),
		Version:   contracts.Version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	info := contracts.GetVersionInfo()
	return map[string]interface{}{
		"version":      info.Version,
		"api_version":  info.APIVersion,
		"build_time":   info.BuildTime,
		"git_commit":   info.GitCommit,
		"go_version":   info.GoVersion,
		"os":           info.OS,
		"arch":         info.Architecture,
		"uptime":       time.Since(hs.startTime).Seconds(),
		"start_time":   hs.startTime.Format(time.RFC3339),
		"current_time": time.Now().Format(time.RFC3339),
	}
}

func (hs *HealthService) checkPoller() ServiceHealth {
	if hs.poller == nil {
		return ServiceHealth{Status: StatusDisabled, Message: "no poll source configured"}
	}
	st := hs.poller.Status()
	if st.LastSuccess.IsZero() {
		msg := "no successful poll cycle yet"
		if st.LastError != "" {
			msg = st.LastError
		}
		return ServiceHealth{Status: StatusNotReady, Message: msg}
	}
	return ServiceHealth{
		Status:  StatusReady,
		Message: "last success " + st.LastSuccess.Format(time.RFC3339),
	}
}

func (hs *HealthService) checkWebSocket() ServiceHealth {
	if hs.clients == nil {
		return ServiceHealth{Status: StatusDisabled}
	}
	return ServiceHealth{Status: StatusReady, Message: pluralClients(hs.clients.ClientCount())}
}

func pluralClients(n int) string {
	if n == 1 {
		return "1 client"
	}
	return strconv.Itoa(n) + " clients"
}
