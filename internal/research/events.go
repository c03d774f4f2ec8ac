package research

import "github.com/Lumi-nary/Bastion-of-Genesis-sub002/internal/models"

// EventType represents the type of research notification
type EventType int

const (
	EventStartedResearch EventType = iota
	EventProgressChanged
	EventResearched
	EventCancelled
	EventAvailabilityChanged
)

// String returns a string representation of the event type
func (et EventType) String() string {
	switch et {
	case EventStartedResearch:
		return "StartedResearch"
	case EventProgressChanged:
		return "ProgressChanged"
	case EventResearched:
		return "Researched"
	case EventCancelled:
		return "Cancelled"
	case EventAvailabilityChanged:
		return "AvailabilityChanged"
	default:
		return "Unknown"
	}
}

// MarshalText lets events serialize with readable type names
func (et EventType) MarshalText() ([]byte, error) {
	return []byte(et.String()), nil
}

// Event is a notification emitted by the tree or the scheduler.
// Progress is set for ProgressChanged, Available for AvailabilityChanged.
type Event struct {
	Type      EventType     `json:"type"`
	Node      models.TechID `json:"node"`
	Progress  float64       `json:"progress,omitempty"`
	Available bool          `json:"available,omitempty"`
}

// Notifier receives research events. Implementations may query the tree but
// must not change research state synchronously.
type Notifier interface {
	Notify(Event)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(Event)

func (f NotifierFunc) Notify(e Event) { f(e) }

type multiNotifier []Notifier

func (m multiNotifier) Notify(e Event) {
	for _, n := range m {
		n.Notify(e)
	}
}

// Notifiers fans an event out to every non-nil notifier in order
func Notifiers(ns ...Notifier) Notifier {
	out := make(multiNotifier, 0, len(ns))
	for _, n := range ns {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

type discard struct{}

func (discard) Notify(Event) {}

// Recorder keeps every event it receives, in order
type Recorder struct {
	Events []Event
}

func (r *Recorder) Notify(e Event) { r.Events = append(r.Events, e) }

// Reset drops the recorded events
func (r *Recorder) Reset() { r.Events = r.Events[:0] }

// OfType returns the recorded events of one type
func (r *Recorder) OfType(t EventType) []Event {
	var out []Event
	for _, e := range r.Events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
