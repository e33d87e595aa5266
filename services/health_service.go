package services

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"ptehtimetable_go/config"
	"ptehtimetable_go/database"
	"ptehtimetable_go/models"
)

const (
	overallStatusOK       = "ok"
	overallStatusDegraded = "degraded"
	overallStatusCritical = "critical"

	dependencyStatusUp       = "up"
	dependencyStatusDown     = "down"
	dependencyStatusDisabled = "disabled"

	defaultServiceName = "PTEH Timetable API"
	defaultVersion     = "1.0.0"
	defaultTimeout     = 1500 * time.Millisecond
)

// HealthService aggregates application health information for reporting endpoints.
type HealthService struct {
	serviceName string
	version     string
	startTime   time.Time
	timeout     time.Duration
}

// HealthReport represents the JSON response for health endpoints.
type HealthReport struct {
	Status        string             `json:"status"`
	Service       string             `json:"service"`
	Version       string             `json:"version"`
	Environment   string             `json:"environment"`
	Time          time.Time          `json:"time"`
	UptimeSeconds float64            `json:"uptime_seconds"`
	Dependencies  []DependencyStatus `json:"dependencies"`
	LastRun       *LastRunStatus     `json:"last_run,omitempty"`
	System        HealthSystem       `json:"system"`
}

// DependencyStatus captures the health of a single external dependency.
type DependencyStatus struct {
	Name      string `json:"name"`
	Status    string `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// LastRunStatus summarises the most recent ingestion run.
type LastRunStatus struct {
	RunID          string     `json:"run_id"`
	Status         string     `json:"status"`
	StartedAt      time.Time  `json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
	WeeksCreated   int        `json:"weeks_created"`
	LessonsCreated int        `json:"lessons_created"`
}

// HealthSystem exposes static information about the running system.
type HealthSystem struct {
	GoVersion  string `json:"go_version"`
	GoOS       string `json:"go_os"`
	GoArch     string `json:"go_arch"`
	Goroutines int    `json:"goroutines"`
}

// NewHealthService creates a new HealthService with sensible defaults.
func NewHealthService(serviceName, version string) *HealthService {
	if strings.TrimSpace(serviceName) == "" {
		serviceName = defaultServiceName
	}
	if strings.TrimSpace(version) == "" {
		version = defaultVersion
	}

	return &HealthService{
		serviceName: serviceName,
		version:     version,
		startTime:   time.Now(),
		timeout:     defaultTimeout,
	}
}

// GetHealthReport collects the current health information.
func (s *HealthService) GetHealthReport() HealthReport {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	report := HealthReport{
		Status:      overallStatusOK,
		Service:     s.serviceName,
		Version:     s.version,
		Environment: currentEnvironment(),
		Time:        time.Now().UTC(),
	}

	uptime := time.Since(s.startTime)
	if uptime < 0 {
		uptime = 0
	}
	report.UptimeSeconds = uptime.Seconds()

	dbDep, dbStatus := s.checkDatabase(ctx)
	report.Dependencies = append(report.Dependencies, dbDep)
	report.Status = combineStatus(report.Status, dbStatus)

	redisDep, redisStatus := s.checkRedis(ctx)
	report.Dependencies = append(report.Dependencies, redisDep)
	report.Status = combineStatus(report.Status, redisStatus)

	report.LastRun = s.lastRun()
	report.System = HealthSystem{
		GoVersion:  runtime.Version(),
		GoOS:       runtime.GOOS,
		GoArch:     runtime.GOARCH,
		Goroutines: runtime.NumGoroutine(),
	}

	return report
}

// HTTPStatusForOverall maps a health status to an HTTP status code.
func (s *HealthService) HTTPStatusForOverall(status string) int {
	switch status {
	case overallStatusCritical:
		return 503
	default:
		return 200
	}
}

func (s *HealthService) checkDatabase(ctx context.Context) (DependencyStatus, string) {
	dep := DependencyStatus{Name: "mysql"}

	if database.DB == nil {
		dep.Status = dependencyStatusDown
		dep.Error = "database connection not initialised"
		return dep, overallStatusCritical
	}

	sqlDB, err := database.DB.DB()
	if err != nil {
		dep.Status = dependencyStatusDown
		dep.Error = fmt.Sprintf("sql DB handle error: %v", err)
		return dep, overallStatusCritical
	}

	pingCtx, cancel := context.WithTimeout(ctx, 1*time.Second)
	start := time.Now()
	err = sqlDB.PingContext(pingCtx)
	cancel()
	dep.LatencyMs = time.Since(start).Milliseconds()

	if err != nil {
		dep.Status = dependencyStatusDown
		dep.Error = err.Error()
		return dep, overallStatusCritical
	}

	dep.Status = dependencyStatusUp
	return dep, overallStatusOK
}

func (s *HealthService) checkRedis(ctx context.Context) (DependencyStatus, string) {
	dep := DependencyStatus{Name: "redis"}

	client := database.GetRedisClient()
	if client == nil {
		// Redis only guards overlapping runs; a single instance is fine
		// without it.
		dep.Status = dependencyStatusDisabled
		return dep, overallStatusOK
	}

	start := time.Now()
	_, err := client.Ping(ctx).Result()
	dep.LatencyMs = time.Since(start).Milliseconds()
	if err != nil {
		dep.Status = dependencyStatusDown
		dep.Error = err.Error()
		return dep, overallStatusDegraded
	}

	dep.Status = dependencyStatusUp
	return dep, overallStatusOK
}

func (s *HealthService) lastRun() *LastRunStatus {
	if database.DB == nil {
		return nil
	}
	var run models.ScrapeRun
	if err := database.DB.Order("started_at DESC").First(&run).Error; err != nil {
		return nil
	}
	return &LastRunStatus{
		RunID:          run.RunID,
		Status:         run.Status,
		StartedAt:      run.StartedAt,
		FinishedAt:     run.FinishedAt,
		WeeksCreated:   run.WeeksCreated,
		LessonsCreated: run.LessonsCreated,
	}
}

func combineStatus(current, next string) string {
	rank := map[string]int{
		overallStatusOK:       0,
		overallStatusDegraded: 1,
		overallStatusCritical: 2,
	}
	if rank[next] > rank[current] {
		return next
	}
	return current
}

func currentEnvironment() string {
	if config.AppConfig == nil {
		return "unknown"
	}
	return config.AppConfig.AppEnv
}
