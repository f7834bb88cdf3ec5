package domain

import (
	"fmt"
	"strings"
	"time"
)

// Align is a presentation hint for the toggle; it has no effect on grading.
type Align string

const (
	AlignLeft   Align = "left"
	AlignRight  Align = "right"
	AlignCenter Align = "center"
)

// DefaultDisplayName is used when a block has no display name configured.
const DefaultDisplayName = "Completion"

// Settings are the block-scoped fields shared by every learner.
type Settings struct {
	BlockID     string     `json:"id"`
	DisplayName string     `json:"displayName"`
	Align       Align      `json:"align"`
	Weight      *float64   `json:"weight,omitempty"`
	Start       *time.Time `json:"start,omitempty"` // ignored for scheduling
	Due         *time.Time `json:"due,omitempty"`   // ignored for scheduling
}

// DefaultSettings returns the settings a block has before anything is configured.
func DefaultSettings(blockID string) Settings {
	return Settings{
		BlockID:     blockID,
		DisplayName: DefaultDisplayName,
		Align:       AlignLeft,
	}
}

// Normalize fills defaults, lower-cases align and validates the result.
func (s Settings) Normalize() (Settings, error) {
	if s.DisplayName == "" {
		s.DisplayName = DefaultDisplayName
	}
	s.Align = Align(strings.ToLower(strings.TrimSpace(string(s.Align))))
	if s.Align == "" {
		s.Align = AlignLeft
	}
	switch s.Align {
	case AlignLeft, AlignRight, AlignCenter:
	default:
		return Settings{}, fmt.Errorf("%w: align %q", ErrInvalidSettings, s.Align)
	}
	if s.Weight != nil && *s.Weight < 0 {
		return Settings{}, fmt.Errorf("%w: weight %v is negative", ErrInvalidSettings, *s.Weight)
	}
	return s, nil
}

// EffectiveWeight treats an unset weight as 1.
func (s Settings) EffectiveWeight() float64 {
	if s.Weight == nil {
		return 1
	}
	return *s.Weight
}
