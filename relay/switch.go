package relay

import "sync"

// Switch keeps a relay on while at least one user holds it.
type Switch struct {
	mu    sync.Mutex
	r     Relay
	users int
}

// NewSwitch wraps r.
func NewSwitch(r Relay) *Switch {
	return &Switch{r: r}
}

// Hold turns the relay on if it was off and returns the matching release
// func. Calling the release func more than once has no further effect.
func (s *Switch) Hold() (release func(), err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.users == 0 {
		if err := s.r.On(); err != nil {
			return func() {}, err
		}
	}
	s.users++

	var once sync.Once
	return func() { once.Do(s.drop) }, nil
}

func (s *Switch) drop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users--
	if s.users == 0 {
		s.r.Off()
	}
}

// Held reports whether anyone holds the relay.
func (s *Switch) Held() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users > 0
}
