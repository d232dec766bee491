package gatekeeper

// seenSet is a fixed-capacity set that evicts in arrival order.
type seenSet struct {
	ids   map[string]struct{}
	ring  []string
	head  int
	count int
}

func newSeenSet(capacity int) *seenSet {
	return &seenSet{
		ids:  make(map[string]struct{}, capacity),
		ring: make([]string, capacity),
	}
}

// add returns false if id is already present.
func (s *seenSet) add(id string) bool {
	if _, ok := s.ids[id]; ok {
		return false
	}
	if s.count == len(s.ring) {
		delete(s.ids, s.ring[s.head])
	} else {
		s.count++
	}
	s.ring[s.head] = id
	s.ids[id] = struct{}{}
	s.head = (s.head + 1) % len(s.ring)
	return true
}

func (s *seenSet) contains(id string) bool {
	_, ok := s.ids[id]
	return ok
}

func (s *seenSet) len() int {
	return s.count
}
