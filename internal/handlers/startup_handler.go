package handlers

import (
	"net/http"
	"sync"
)

// Startup steps reported by /healthz
const (
	StepDatabase   = "Database connection"
	StepMigrations = "Running migrations"
	StepCatalog    = "Loading catalog"
	StepServices   = "Initializing services"
	StepReady      = "Server ready"
)

// StartupStatus tracks the initialization progress
type StartupStatus struct {
	mu       sync.RWMutex
	ready    bool
	current  string
	progress int
	steps    []StartupStep
}

type StartupStep struct {
	Name      string `json:"name"`
	Completed bool   `json:"completed"`
}

type healthResponse struct {
	Status   string        `json:"status"`
	Current  string        `json:"current"`
	Progress int           `json:"progress"`
	Steps    []StartupStep `json:"steps"`
}

// NewStartupStatus creates a tracker for the given steps
func NewStartupStatus(steps ...string) *StartupStatus {
	s := &StartupStatus{current: "Initializing..."}
	for _, name := range steps {
		s.steps = append(s.steps, StartupStep{Name: name})
	}
	return s
}

// DefaultStartupStatus tracks the server's standard startup steps
func DefaultStartupStatus() *StartupStatus {
	return NewStartupStatus(StepDatabase, StepMigrations, StepCatalog, StepServices, StepReady)
}

// SetCurrentStep updates the current initialization step
func (s *StartupStatus) SetCurrentStep(step string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = step
}

// CompleteStep marks a step as completed and updates progress
func (s *StartupStatus) CompleteStep(stepName string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.steps {
		if s.steps[i].Name == stepName {
			s.steps[i].Completed = true
			break
		}
	}

	completed := 0
	for _, step := range s.steps {
		if step.Completed {
			completed++
		}
	}
	if len(s.steps) > 0 {
		s.progress = (completed * 100) / len(s.steps)
	}
}

// MarkReady marks the server as fully initialized
func (s *StartupStatus) MarkReady() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.steps {
		s.steps[i].Completed = true
	}
	s.ready = true
	s.current = StepReady
	s.progress = 100
}

// IsReady returns whether the server is fully initialized
func (s *StartupStatus) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

func (s *StartupStatus) snapshot() healthResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := "starting"
	if s.ready {
		status = "ok"
	}
	steps := make([]StartupStep, len(s.steps))
	copy(steps, s.steps)
	return healthResponse{Status: status, Current: s.current, Progress: s.progress, Steps: steps}
}

// Health reports startup progress: 200 once ready, 503 before
func (s *StartupStatus) Health(w http.ResponseWriter, r *http.Request) {
	body := s.snapshot()
	status := http.StatusOK
	if body.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, body)
}

// RequireReady answers 503 until startup has finished
func (s *StartupStatus) RequireReady(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.IsReady() {
			w.Header().Set("Retry-After", "2")
			respondWithError(w, http.StatusServiceUnavailable, ErrServiceStarting, "", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
