package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	store   Pinger
	limiter Pinger
}

// New creates a Service. limiter can be nil.
func New(store, limiter Pinger) *Service {
	return &Service{store: store, limiter: limiter}
}

// Check pings the store and the rate limiter backend. Search keeps working
// (with empty results or an open gate) when either fails, so the worst
// status is Degraded.
func (s *Service) Check(ctx context.Context) Report {
	checks := map[string]CheckResult{"store": pingCheck(ctx, s.store)}
	if s.limiter != nil {
		checks["ratelimit"] = pingCheck(ctx, s.limiter)
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}

func pingCheck(ctx context.Context, p Pinger) CheckResult {
	if err := p.Ping(ctx); err != nil {
		return CheckError
	}
	return CheckOK
}
