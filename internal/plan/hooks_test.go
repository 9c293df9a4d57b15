package plan

import "time"

// SetNow replaces the service clock in tests.
func (s *Service) SetNow(now func() time.Time) { s.now = now }

// SetNow replaces the generator clock in tests.
func (g *Generator) SetNow(now func() time.Time) { g.now = now }
