// Package lifecycle carries app foreground/background transitions from the
// host shell into the session scheduler.
package lifecycle

// Event is an app lifecycle transition.
type Event int

const (
	Background Event = iota
	Foreground
)

// Notifier delivers lifecycle transitions. Implementations must not block
// the sender; slow consumers may miss intermediate transitions, which is
// fine because only the latest state matters.
type Notifier interface {
	Events() <-chan Event
}

// Signal is a buffered, drop-oldest Notifier the host shell pushes into.
type Signal struct {
	ch chan Event
}

func NewSignal() *Signal {
	return &Signal{ch: make(chan Event, 1)}
}

// Notify publishes a transition without blocking. If the consumer has not
// drained the previous event, it is replaced by the new one.
func (s *Signal) Notify(e Event) {
	for {
		select {
		case s.ch <- e:
			return
		default:
			select {
			case <-s.ch:
			default:
			}
		}
	}
}

func (s *Signal) Events() <-chan Event {
	return s.ch
}
