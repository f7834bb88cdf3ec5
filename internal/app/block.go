package app

import (
	"fmt"

	"completion-service/internal/domain"
)

// maxScore is the only grade this block can award: one binary unit.
const maxScore = 1.0

// Scorable is the score half of a graded block.
type Scorable interface {
	GetScore() *domain.Score
	SetScore(score domain.Score)
	MaxScore() float64
	CalculateScore() domain.Score
}

// Publishable is the grade-publishing half of a graded block.
type Publishable interface {
	PublishGrade(score *domain.Score, onlyIfHigher bool) (domain.Grade, error)
	Rescore(onlyIfHigher bool) error
}

// EventSink receives events in emission order.
type EventSink interface {
	Emit(event domain.Event)
}

// Translator resolves user-facing strings.
type Translator interface {
	Gettext(msg string) string
}

type noopTranslator struct{}

func (noopTranslator) Gettext(msg string) string { return msg }

// RescorePolicy decides whether a block may be rescored.
type RescorePolicy interface {
	AllowsRescore(key domain.BlockKey) bool
}

// AllowRescore is a RescorePolicy with a fixed answer.
type AllowRescore bool

func (a AllowRescore) AllowsRescore(domain.BlockKey) bool { return bool(a) }

// Block is one learner's view of a "mark as done" toggle. It holds no locks;
// callers must not share a Block across goroutines.
type Block struct {
	key      domain.BlockKey
	state    domain.UserState
	settings domain.Settings
	sink     EventSink
	tr       Translator
	policy   RescorePolicy
}

var (
	_ Scorable    = (*Block)(nil)
	_ Publishable = (*Block)(nil)
)

// BlockOption customises a Block at construction.
type BlockOption func(*Block)

// WithTranslator sets the translator used for error messages.
func WithTranslator(tr Translator) BlockOption {
	return func(b *Block) {
		if tr != nil {
			b.tr = tr
		}
	}
}

// WithRescorePolicy overrides the default allow-all rescore policy.
func WithRescorePolicy(p RescorePolicy) BlockOption {
	return func(b *Block) {
		if p != nil {
			b.policy = p
		}
	}
}

// NewBlock materialises a block from persisted state. A nil sink drops events.
func NewBlock(key domain.BlockKey, state domain.UserState, settings domain.Settings, sink EventSink, opts ...BlockOption) *Block {
	if sink == nil {
		sink = discardSink{}
	}
	b := &Block{
		key:      key,
		state:    state,
		settings: settings,
		sink:     sink,
		tr:       noopTranslator{},
		policy:   AllowRescore(true),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// State returns a copy of the learner state for persisting.
func (b *Block) State() domain.UserState {
	state := b.state
	if b.state.Score != nil {
		score := *b.state.Score
		state.Score = &score
	}
	return state
}

// Done reports the current completion flag.
func (b *Block) Done() bool { return b.state.Done }

// Settings returns the block-scoped settings.
func (b *Block) Settings() domain.Settings { return b.settings }

// Toggle applies a learner click. A request without a done flag changes nothing.
// Any toggle, done or not, counts as a submitted answer: the stored score
// becomes {1, 1} or {0, 1} and HasSubmittedAnswer reports true from then on.
func (b *Block) Toggle(req domain.ToggleRequest) domain.ToggleResult {
	if req.Done == nil {
		return domain.ToggleResult{State: b.state.Done}
	}
	done := *req.Done
	grade := 0.0
	if done {
		grade = maxScore
	}
	b.state.Done = done
	b.state.Score = &domain.Score{RawEarned: grade, RawPossible: maxScore}

	b.emitGrade(domain.GradePayload{Value: grade, MaxValue: maxScore})
	b.emitCompletion(done)
	return domain.ToggleResult{State: b.state.Done}
}

func (b *Block) GetScore() *domain.Score {
	if b.state.Score == nil {
		return nil
	}
	score := *b.state.Score
	return &score
}

func (b *Block) SetScore(score domain.Score) {
	b.state.Score = &score
}

func (b *Block) MaxScore() float64 { return maxScore }

// CalculateScore pairs the stored earned value with MaxScore. There is no
// submission to re-grade beyond the toggle itself.
func (b *Block) CalculateScore() domain.Score {
	earned := 0.0
	if b.state.Score != nil {
		earned = b.state.Score.RawEarned
	}
	return domain.Score{RawEarned: earned, RawPossible: b.MaxScore()}
}

// PublishGrade emits a grade event and then a completion event whose flag is
// derived from the published value. With onlyIfHigher set the published value
// is always MaxScore, whatever the input score was. The returned grade is the
// stored score, or the input score when nothing is stored yet.
func (b *Block) PublishGrade(score *domain.Score, onlyIfHigher bool) (domain.Grade, error) {
	stored := b.state.Score
	if score == nil {
		score = stored
	}
	if score == nil {
		return domain.Grade{}, b.blockError(domain.ErrNotAnswered, "Cannot publish grade for unanswered problem: %s")
	}
	earned := score.RawEarned
	if onlyIfHigher {
		earned = b.MaxScore()
	}

	flag := onlyIfHigher
	b.emitGrade(domain.GradePayload{Value: earned, MaxValue: score.RawPossible, OnlyIfHigher: &flag})
	b.state.Done = earned == b.MaxScore()
	b.emitCompletion(b.state.Done)

	if stored == nil {
		stored = score
	}
	return domain.Grade{Grade: stored.RawEarned, MaxGrade: stored.RawPossible}, nil
}

// Rescore recomputes the score and publishes it.
func (b *Block) Rescore(onlyIfHigher bool) error {
	if !b.AllowsRescore() {
		return b.blockError(domain.ErrNotSupported, "Problem does not support rescoring: %s")
	}
	if !b.HasSubmittedAnswer() {
		return b.blockError(domain.ErrNotAnswered, "Cannot rescore unanswered problem: %s")
	}
	score := b.CalculateScore()
	_, err := b.PublishGrade(&score, onlyIfHigher)
	return err
}

// AllowsRescore consults the rescore policy.
func (b *Block) AllowsRescore() bool {
	return b.policy.AllowsRescore(b.key)
}

// HasSubmittedAnswer reports whether a score was ever stored.
func (b *Block) HasSubmittedAnswer() bool {
	return b.state.Score != nil
}

// WeightedGrade is the stored raw earned value multiplied by the block weight.
func (b *Block) WeightedGrade() float64 {
	earned := 0.0
	if b.state.Score != nil {
		earned = b.state.Score.RawEarned
	}
	return earned * b.settings.EffectiveWeight()
}

func (b *Block) emitGrade(p domain.GradePayload) {
	b.sink.Emit(domain.Event{Type: domain.EventGrade, Key: b.key, Grade: &p})
}

func (b *Block) emitCompletion(done bool) {
	b.sink.Emit(domain.Event{Type: domain.EventCompletionToggled, Key: b.key, Completion: &domain.CompletionPayload{Done: done}})
}

func (b *Block) blockError(err error, format string) error {
	return &domain.BlockError{
		Err:     err,
		BlockID: b.key.BlockID,
		Message: fmt.Sprintf(b.tr.Gettext(format), b.key.BlockID),
	}
}

type discardSink struct{}

func (discardSink) Emit(domain.Event) {}

// EventBuffer collects events so they can be delivered after state is saved.
type EventBuffer struct {
	events []domain.Event
}

func (b *EventBuffer) Emit(event domain.Event) {
	b.events = append(b.events, event)
}

// Events returns the buffered events in emission order.
func (b *EventBuffer) Events() []domain.Event {
	return b.events
}
