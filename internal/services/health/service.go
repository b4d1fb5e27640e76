package health

import "context"

// Pinger reports whether a backing dependency answers.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Probe reports whether a local dependency is usable.
type Probe interface {
	Available() error
}

// Service encapsulates health-related checks.
type Service struct {
	DB        Pinger
	Extractor Probe
}

// Status is the /health payload.
type Status struct {
	OK        bool   `json:"ok"`
	Database  string `json:"database"`
	Extractor string `json:"extractor"`
}

// NewService constructs a new health service. Either dependency may be nil.
func NewService(db Pinger, extractor Probe) *Service {
	return &Service{DB: db, Extractor: extractor}
}

// Status checks the database and the extraction binary. A missing binary degrades refreshes
// to empty text but does not make the service unhealthy.
func (s *Service) Status(ctx context.Context) Status {
	out := Status{OK: true, Database: "memory", Extractor: "unchecked"}
	if s.DB != nil {
		out.Database = "ok"
		if err := s.DB.PingContext(ctx); err != nil {
			out.OK = false
			out.Database = "unreachable"
		}
	}
	if s.Extractor != nil {
		out.Extractor = "ok"
		if err := s.Extractor.Available(); err != nil {
			out.Extractor = "missing"
		}
	}
	return out
}
