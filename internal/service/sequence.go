package service

// sequencer numbers outgoing requests that replace a piece of state. A response
// is applied only when its number is newer than the last applied one, so the
// latest issued request wins regardless of arrival order.
// It is not safe for concurrent use; callers guard it with their own mutex.
type sequencer struct {
	issued  uint64
	applied uint64
}

func (s *sequencer) next() uint64 {
	s.issued++
	return s.issued
}

// accept reports whether the response for seq may be applied and records it.
func (s *sequencer) accept(seq uint64) bool {
	if seq <= s.applied {
		return false
	}
	s.applied = seq
	return true
}
