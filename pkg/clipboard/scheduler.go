package clipboard

// Scheduler hands out generations per key so that delayed work can tell
// whether it is still the latest work scheduled for that key. Timers are
// never cancelled; a stale expiry simply finds a newer generation and does
// nothing.
type Scheduler struct {
	next    uint64
	current map[string]uint64
}

// NewScheduler creates an empty scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{current: make(map[string]uint64)}
}

// Next registers new work for key and returns its generation.
func (s *Scheduler) Next(key string) uint64 {
	s.next++
	s.current[key] = s.next
	return s.next
}

// Current reports whether gen is the latest generation for key.
func (s *Scheduler) Current(key string, gen uint64) bool {
	cur, ok := s.current[key]
	return ok && cur == gen
}

// Done completes gen for key. It reports true, and forgets the key, only
// when gen is still current.
func (s *Scheduler) Done(key string, gen uint64) bool {
	if !s.Current(key, gen) {
		return false
	}
	delete(s.current, key)
	return true
}
