package domain

import (
	"encoding/json"
	"time"
)

// EventType names an event published to the host bus.
type EventType string

const (
	EventGrade             EventType = "grade"
	EventCompletionToggled EventType = "completion.toggled"
)

// GradePayload is the body of a grade event.
type GradePayload struct {
	Value        float64 `json:"value"`
	MaxValue     float64 `json:"maxValue"`
	OnlyIfHigher *bool   `json:"onlyIfHigher,omitempty"`
}

// CompletionPayload is the body of a completion.toggled event.
type CompletionPayload struct {
	Done bool `json:"done"`
}

// Event is a typed domain event. ID and At are stamped when the event leaves the
// process; the block itself only fills Type, Key and one payload.
type Event struct {
	ID         string             `json:"id,omitempty"`
	Type       EventType          `json:"type"`
	Key        BlockKey           `json:"key"`
	Grade      *GradePayload      `json:"grade,omitempty"`
	Completion *CompletionPayload `json:"completion,omitempty"`
	At         time.Time          `json:"at"`
}

// Payload returns the JSON body of whichever payload the event carries.
func (e Event) Payload() ([]byte, error) {
	switch {
	case e.Grade != nil:
		return json.Marshal(e.Grade)
	case e.Completion != nil:
		return json.Marshal(e.Completion)
	default:
		return []byte("{}"), nil
	}
}

// DecodeEvent rebuilds an event from its stored parts.
func DecodeEvent(id string, typ EventType, key BlockKey, payload []byte, at time.Time) (Event, error) {
	event := Event{ID: id, Type: typ, Key: key, At: at}
	switch typ {
	case EventGrade:
		var p GradePayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return Event{}, err
		}
		event.Grade = &p
	case EventCompletionToggled:
		var p CompletionPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return Event{}, err
		}
		event.Completion = &p
	}
	return event, nil
}
