package domain

import (
	"errors"
	"testing"
	"time"
)

func TestParseToggleRequest(t *testing.T) {
	cases := []struct {
		body string
		want *bool
	}{
		{body: `{"done": true}`, want: ptr(true)},
		{body: `{"done": false}`, want: ptr(false)},
		{body: `{"done": true, "x": 1}`, want: ptr(true)},
		{body: `{}`},
		{body: `{"done": "true"}`},
		{body: `{"done": null}`},
		{body: `not json`},
		{body: `[{"done": true}]`},
		{body: ``},
	}
	for _, tc := range cases {
		body, want := tc.body, tc.want
		got := ParseToggleRequest([]byte(body)).Done
		switch {
		case want == nil && got != nil:
			t.Fatalf("%q: expected no flag, got %v", body, *got)
		case want != nil && (got == nil || *got != *want):
			t.Fatalf("%q: expected %v, got %v", body, *want, got)
		}
	}
}

func TestUserStateFields(t *testing.T) {
	state, err := UserStateFromFields(nil)
	if err != nil {
		t.Fatalf("decode empty: %v", err)
	}
	if state.Done || state.Score != nil {
		t.Fatalf("expected defaults, got %+v", state)
	}

	fields, err := UserState{Done: true, Score: &Score{RawEarned: 1, RawPossible: 1}}.Fields()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if fields[FieldDone] != "true" || fields[FieldScore] != `{"rawEarned":1,"rawPossible":1}` {
		t.Fatalf("unexpected fields %v", fields)
	}

	fields, _ = UserState{}.Fields()
	if _, ok := fields[FieldScore]; ok {
		t.Fatalf("nil score must not be persisted, got %v", fields)
	}

	if _, err := UserStateFromFields(map[string]string{FieldDone: "maybe"}); err == nil {
		t.Fatalf("expected error for corrupt done field")
	}
}

func TestSettingsNormalize(t *testing.T) {
	s, err := Settings{Align: " Center "}.Normalize()
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if s.Align != AlignCenter || s.DisplayName != DefaultDisplayName {
		t.Fatalf("unexpected settings %+v", s)
	}
	if s.EffectiveWeight() != 1 {
		t.Fatalf("expected unset weight to be 1")
	}

	neg := -0.1
	if _, err := (Settings{Weight: &neg}).Normalize(); !errors.Is(err, ErrInvalidSettings) {
		t.Fatalf("expected negative weight rejected, got %v", err)
	}
	if _, err := (Settings{Align: "justify"}).Normalize(); !errors.Is(err, ErrInvalidSettings) {
		t.Fatalf("expected bad align rejected, got %v", err)
	}
}

func TestDecodeEvent(t *testing.T) {
	at := time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)
	key := BlockKey{BlockID: "b", LearnerID: "u"}

	e, err := DecodeEvent("id-1", EventGrade, key, []byte(`{"value":1,"maxValue":1,"onlyIfHigher":true}`), at)
	if err != nil {
		t.Fatalf("decode grade: %v", err)
	}
	if e.Grade == nil || e.Grade.Value != 1 || e.Grade.OnlyIfHigher == nil || !*e.Grade.OnlyIfHigher {
		t.Fatalf("unexpected grade event %+v", e)
	}

	e, err = DecodeEvent("id-2", EventCompletionToggled, key, []byte(`{"done":true}`), at)
	if err != nil || e.Completion == nil || !e.Completion.Done {
		t.Fatalf("unexpected completion event %+v (%v)", e, err)
	}
	payload, _ := e.Payload()
	if string(payload) != `{"done":true}` {
		t.Fatalf("unexpected payload %s", payload)
	}
}

func TestBlockErrorUnwraps(t *testing.T) {
	err := error(&BlockError{Err: ErrNotSupported, BlockID: "b"})
	if !errors.Is(err, ErrNotSupported) {
		t.Fatalf("expected unwrap to sentinel")
	}
	if err.Error() != "rescoring not supported: b" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func ptr(v bool) *bool { return &v }
