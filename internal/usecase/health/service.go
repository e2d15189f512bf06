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
	// CheckPending indicates a component that is usable but not prepared yet.
	CheckPending CheckResult = "pending"
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
	corpus    CorpusChecker
	embedding EmbeddingChecker
	db        DBPinger
}

// New creates a Service. embedding and db can be nil.
func New(corpus CorpusChecker, embedding EmbeddingChecker, db DBPinger) *Service {
	return &Service{corpus: corpus, embedding: embedding, db: db}
}

// Check runs health checks against all components.
// A corpus cache that is not built yet is pending, not an error: the first query builds it.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	switch ok, err := s.corpus.Exists(ctx); {
	case err != nil:
		checks["corpus"] = CheckError
	case !ok:
		checks["corpus"] = CheckPending
	default:
		checks["corpus"] = CheckOK
	}

	if s.embedding != nil {
		if err := s.embedding.HealthCheck(ctx); err != nil {
			checks["embedding"] = CheckError
		} else {
			checks["embedding"] = CheckOK
		}
	}

	if s.db != nil {
		if err := s.db.Ping(ctx); err != nil {
			checks["database"] = CheckError
		} else {
			checks["database"] = CheckOK
		}
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
