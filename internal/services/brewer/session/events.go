package session

// EventKind names a session state change.
type EventKind string

const (
	EventEdited   EventKind = "edited"
	EventSearched EventKind = "searched"
	EventSaved    EventKind = "saved"
	EventExported EventKind = "exported"
	EventClosed   EventKind = "closed"
)

// Event describes a state change after it happened.
type Event struct {
	Kind        EventKind
	BlueprintID string
	ActorID     string
	Dirty       bool
}

// Observer is called after each state change, outside the session lock.
type Observer func(Event)

type subscription struct {
	id       int
	observer Observer
}

// Subscribe registers o and returns a function that removes it.
func (s *Session) Subscribe(o Observer) (unsubscribe func()) {
	if o == nil {
		return func() {}
	}
	s.observersMu.Lock()
	defer s.observersMu.Unlock()
	s.nextSub++
	id := s.nextSub
	s.observers = append(s.observers, subscription{id: id, observer: o})
	return func() {
		s.observersMu.Lock()
		defer s.observersMu.Unlock()
		for i, sub := range s.observers {
			if sub.id == id {
				s.observers = append(s.observers[:i], s.observers[i+1:]...)
				return
			}
		}
	}
}

func (s *Session) publish(event Event) {
	s.observersMu.Lock()
	observers := make([]Observer, 0, len(s.observers))
	for _, sub := range s.observers {
		observers = append(observers, sub.observer)
	}
	s.observersMu.Unlock()

	for _, o := range observers {
		o(event)
	}
}
