// Package app provides the review session, its events and input dispatch.
package app

// EventType identifies different session events.
type EventType int

const (
	EventPairLoaded EventType = iota
	EventTagsChanged
	EventViewChanged
	EventImported
	EventExported
	EventError
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// PairLoaded is the payload of EventPairLoaded.
type PairLoaded struct {
	Index    int
	Total    int
	ID       string
	BasePath string
	MaskPath string
	Coverage float64
}

// Imported is the payload of EventImported.
type Imported struct {
	Path    string
	Records int
	Resume  int
}

// Exported is the payload of EventExported.
type Exported struct {
	Path    string
	Records int
}

// On registers an event listener for the specified event type.
func (s *Session) On(event EventType, listener EventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *Session) Emit(event EventType, data interface{}) {
	s.mu.RLock()
	listeners := s.listeners[event]
	s.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}
