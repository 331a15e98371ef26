package usage

import "log/slog"

// ServiceOption configures a Service instance.
type ServiceOption func(*Service)

// WithClock replaces the wall clock used to derive the current month.
func WithClock(c Clock) ServiceOption {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithTiers replaces the tier default table. The table is copied.
func WithTiers(t TierTable) ServiceOption {
	return func(s *Service) {
		if len(t) > 0 {
			s.tiers = t.Clone()
		}
	}
}

// WithLogger sets the logger used for debug output. Defaults to slog.Default().
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}
