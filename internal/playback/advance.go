package playback

// Next moves forward. Repeat pins the index, random jumps anywhere, and the
// last item wraps to the first only when looping.
func (s *State) Next() {
	n := s.Count()
	switch {
	case n == 0, s.Repeat:
	case s.Random:
		s.Index = s.rand().IntN(n)
	case s.Index >= n-1:
		if s.Loop {
			s.Index = 0
		}
	default:
		s.Index++
	}
}

// Prev mirrors Next.
func (s *State) Prev() {
	n := s.Count()
	switch {
	case n == 0, s.Repeat:
	case s.Random:
		s.Index = s.rand().IntN(n)
	case s.Index <= 0:
		if s.Loop {
			s.Index = n - 1
		}
	default:
		s.Index--
	}
}

// RandomNext jumps to a uniformly chosen item regardless of the mode flags.
func (s *State) RandomNext() {
	if n := s.Count(); n > 0 {
		s.Index = s.rand().IntN(n)
	}
}
