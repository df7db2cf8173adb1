package rules

// Empty returns a version 0 set with no rules
func Empty() *Set {
	return &Set{Rules: []Rule{}}
}

// Len returns the number of rules, tolerating a nil set
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Rules)
}

// Append returns a new set with rules added after the existing ones
func (s *Set) Append(rules ...Rule) *Set {
	next := s.clone(len(rules))
	next.Rules = append(next.Rules, rules...)
	return next
}

// RemoveFirst returns a new set without the first rule matching the pair.
// When nothing matches the receiver is returned and removed is false.
func (s *Set) RemoveFirst(from, to string) (*Set, bool) {
	if s == nil {
		return Empty(), false
	}
	for i, r := range s.Rules {
		if !r.Matches(from, to) {
			continue
		}
		next := &Set{Version: s.Version + 1, Rules: make([]Rule, 0, len(s.Rules)-1)}
		next.Rules = append(next.Rules, s.Rules[:i]...)
		next.Rules = append(next.Rules, s.Rules[i+1:]...)
		return next, true
	}
	return s, false
}

// Find returns the first rule matching the pair
func (s *Set) Find(from, to string) (Rule, bool) {
	if s == nil {
		return Rule{}, false
	}
	for _, r := range s.Rules {
		if r.Matches(from, to) {
			return r, true
		}
	}
	return Rule{}, false
}

func (s *Set) clone(extra int) *Set {
	if s == nil {
		return &Set{Version: 1, Rules: make([]Rule, 0, extra)}
	}
	next := &Set{Version: s.Version + 1, Rules: make([]Rule, 0, len(s.Rules)+extra)}
	next.Rules = append(next.Rules, s.Rules...)
	return next
}
