package yelp

import "sync/atomic"

// Stats are live counters shared with progress reporters.
type Stats struct {
	VariantsTotal atomic.Int64
	VariantsDone  atomic.Int64
	Pages         atomic.Int64
	Businesses    atomic.Int64
	RateLimits    atomic.Int64
	Errors        atomic.Int64
}

func (s *Stats) addPage(businesses int) {
	if s == nil {
		return
	}
	s.Pages.Add(1)
	s.Businesses.Add(int64(businesses))
}

func (s *Stats) addRateLimit() {
	if s != nil {
		s.RateLimits.Add(1)
	}
}

func (s *Stats) addError() {
	if s != nil {
		s.Errors.Add(1)
	}
}
