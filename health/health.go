package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/ACUCyS/weekly-ctf-bot/constants"
	"github.com/ACUCyS/weekly-ctf-bot/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Checker 외부 의존성의 상태를 확인합니다
type Checker interface {
	Ping(ctx context.Context) error
}

// CheckerFunc 함수를 Checker 로 사용합니다
type CheckerFunc func(ctx context.Context) error

func (f CheckerFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthStatus 헬스체크 응답 구조체
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Uptime    string            `json:"uptime"`
	Version   string            `json:"version"`
	GoVersion string            `json:"go_version"`
	Memory    string            `json:"memory_usage"`
	Checks    map[string]string `json:"checks,omitempty"`
	Scheduled map[string]int    `json:"scheduled,omitempty"`
}

// Server 헬스체크 HTTP 서버
type Server struct {
	mu        sync.RWMutex
	checkers  map[string]Checker
	scheduled func() map[string]int
	startedAt time.Time
	router    *chi.Mux
	http      *http.Server
}

// NewServer port 에서 응답하는 헬스체크 서버를 만듭니다. Start 를 호출해야 요청을 받습니다
func NewServer(port string) *Server {
	if port == "" {
		port = constants.DefaultHTTPPort
	}

	s := &Server{
		checkers:  make(map[string]Checker),
		startedAt: time.Now(),
	}

	router := chi.NewRouter()
	router.Use(
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Timeout(constants.HealthCheckTimeout),
	)
	router.Get("/", s.handleHealth)
	router.Get("/health", s.handleHealth)
	router.Get("/healthz", s.handleLiveness)
	s.router = router

	s.http = &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: constants.HealthCheckTimeout,
		WriteTimeout:      2 * constants.HealthCheckTimeout,
	}
	return s
}

// Register 상태 확인 대상을 등록합니다
func (s *Server) Register(name string, checker Checker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkers[name] = checker
	utils.Info("%s health checker registered", name)
}

// SetScheduledSource 예약된 이벤트 수를 응답에 포함합니다
func (s *Server) SetScheduledSource(fn func() map[string]int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduled = fn
}

// Handler 라우터를 반환합니다
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start 백그라운드에서 요청을 받기 시작합니다
func (s *Server) Start() {
	go func() {
		utils.Info("Health check server starting on %s", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			utils.Error("Health server error: %v", err)
		}
	}()
}

// Shutdown 진행 중인 요청을 마치고 서버를 닫습니다
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Check 등록된 모든 대상의 상태를 확인합니다
func (s *Server) Check(ctx context.Context) HealthStatus {
	s.mu.RLock()
	names := make([]string, 0, len(s.checkers))
	for name := range s.checkers {
		names = append(names, name)
	}
	checkers := make(map[string]Checker, len(s.checkers))
	for k, v := range s.checkers {
		checkers[k] = v
	}
	scheduled := s.scheduled
	s.mu.RUnlock()
	sort.Strings(names)

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	status := HealthStatus{
		Status:    constants.HealthStatusHealthy,
		Timestamp: time.Now(),
		Uptime:    utils.FormatUptime(time.Since(s.startedAt)),
		Version:   constants.BotVersion,
		GoVersion: runtime.Version(),
		Memory:    fmt.Sprintf("%.2f MB", float64(memStats.Alloc)/constants.BytesToMB),
	}

	if len(names) > 0 {
		status.Checks = make(map[string]string, len(names))
		ctx, cancel := context.WithTimeout(ctx, constants.HealthCheckTimeout)
		defer cancel()
		for _, name := range names {
			if err := checkers[name].Ping(ctx); err != nil {
				utils.Warn("Health check %s failed: %v", name, err)
				status.Checks[name] = err.Error()
				status.Status = constants.HealthStatusFailing
				continue
			}
			status.Checks[name] = constants.HealthStatusHealthy
		}
	}
	if scheduled != nil {
		status.Scheduled = scheduled()
	}
	return status
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.Check(r.Context())

	code := http.StatusOK
	if status.Status != constants.HealthStatusHealthy {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(status); err != nil {
		utils.Warn("Failed to write health response: %v", err)
	}
}

// handleLiveness 프로세스가 응답하는지만 확인합니다
func (s *Server) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
