package domain

import (
	"encoding/json"
	"strconv"
	"time"
)

// BlockKey identifies one learner's instance of a block.
type BlockKey struct {
	BlockID   string `json:"blockId"`
	LearnerID string `json:"learnerId"`
}

// Score is the raw (unweighted) grade pair persisted for a learner.
type Score struct {
	RawEarned   float64 `json:"rawEarned"`
	RawPossible float64 `json:"rawPossible"`
}

// Grade is what PublishGrade hands back to the grading pipeline.
type Grade struct {
	Grade    float64 `json:"grade"`
	MaxGrade float64 `json:"maxGrade"`
}

// ToggleRequest is the client payload for the toggle handler. Done is nil when
// the request did not carry a usable "done" flag.
type ToggleRequest struct {
	Done *bool
}

// ToggleResult is returned by the toggle handler whether or not state changed.
type ToggleResult struct {
	State bool `json:"state"`
}

// ParseToggleRequest extracts the "done" flag from a JSON body. Anything that is
// not an object with a boolean "done" yields an empty request.
func ParseToggleRequest(body []byte) ToggleRequest {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return ToggleRequest{}
	}
	done, ok := raw["done"].(bool)
	if !ok {
		return ToggleRequest{}
	}
	return ToggleRequest{Done: &done}
}

// Field names used when persisting user state.
const (
	FieldDone  = "done"
	FieldScore = "score"
)

// UserState is the learner-scoped state of a block.
type UserState struct {
	Done  bool
	Score *Score
}

// Fields encodes the state as named string fields for a FieldStore.
func (s UserState) Fields() (map[string]string, error) {
	fields := map[string]string{
		FieldDone: strconv.FormatBool(s.Done),
	}
	if s.Score != nil {
		data, err := json.Marshal(s.Score)
		if err != nil {
			return nil, err
		}
		fields[FieldScore] = string(data)
	}
	return fields, nil
}

// UserStateFromFields decodes persisted fields. Missing fields keep their defaults.
func UserStateFromFields(fields map[string]string) (UserState, error) {
	var state UserState
	if raw, ok := fields[FieldDone]; ok && raw != "" {
		done, err := strconv.ParseBool(raw)
		if err != nil {
			return UserState{}, err
		}
		state.Done = done
	}
	if raw, ok := fields[FieldScore]; ok && raw != "" && raw != "null" {
		var score Score
		if err := json.Unmarshal([]byte(raw), &score); err != nil {
			return UserState{}, err
		}
		state.Score = &score
	}
	return state, nil
}

// StudentView carries what the host's template renderer needs for the learner view.
type StudentView struct {
	ID           string `json:"id"`
	BlockID      string `json:"blockId"`
	DisplayName  string `json:"displayName"`
	Done         bool   `json:"done"`
	Align        Align  `json:"align"`
	UncheckedURL string `json:"unchecked"`
	CheckedURL   string `json:"checked"`
}

// StudioView is the authoring placeholder; it has no editable options.
type StudioView struct {
	BlockID     string `json:"blockId"`
	DisplayName string `json:"displayName"`
	Help        string `json:"help"`
}

// Timestamp is a helper for optional ISO-8601 settings.
func Timestamp(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
