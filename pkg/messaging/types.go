package messaging

import (
	"fmt"
	"time"
)

// Kind tells what an Event carries.
type Kind string

const (
	KindInstruction Kind = "instruction"
	KindObservation Kind = "observation"
	KindFeedback    Kind = "feedback"
	KindAction      Kind = "action"
	KindEpisodeEnd  Kind = "episode_end"
)

// Event is one entry of an episode as it unfolds.
type Event struct {
	Episode   string // episode ID
	Env       string
	Step      int
	Kind      Kind
	Text      string
	Reward    float64
	Timestamp time.Time
}

// Line renders the event as a transcript line.
func (e Event) Line() string {
	switch e.Kind {
	case KindEpisodeEnd:
		return fmt.Sprintf("[%d] episode end: return %g", e.Step, e.Reward)
	case KindAction:
		return fmt.Sprintf("[%d] action: %s", e.Step, e.Text)
	}
	return fmt.Sprintf("[%d] %s: %s", e.Step, e.Kind, e.Text)
}

// Broker fans episode events out to subscribers.
type Broker interface {
	// Publish delivers ev to every subscriber.
	Publish(ev Event) error
	// Subscribe registers ch under id.
	Subscribe(id string, ch chan<- Event) error
	// Unsubscribe removes a subscription.
	Unsubscribe(id string) error
}
