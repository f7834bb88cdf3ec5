package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"completion-service/internal/domain"
	"github.com/google/uuid"
)

// FieldStore persists learner-scoped fields keyed by (learner, block, field name).
type FieldStore interface {
	LoadFields(ctx context.Context, key domain.BlockKey) (map[string]string, error)
	SaveFields(ctx context.Context, key domain.BlockKey, fields map[string]string) error
}

// SettingsRepository returns block-scoped settings (from cache/backing store).
type SettingsRepository interface {
	GetSettings(ctx context.Context, blockID string) (domain.Settings, error)
}

// Assets are the image URLs handed to the student view.
type Assets struct {
	UncheckedURL string
	CheckedURL   string
}

// BlockService plays the host runtime: it materialises a Block per call, runs
// one operation, saves the learner fields and then delivers the events.
type BlockService struct {
	fields    FieldStore
	settings  SettingsRepository
	publisher EventPublisher
	tr        Translator
	policy    RescorePolicy
	assets    Assets
	now       func() time.Time

	locks keyedMutex
}

// Option configures a BlockService.
type Option func(*BlockService)

func WithServiceTranslator(tr Translator) Option {
	return func(s *BlockService) { s.tr = tr }
}

func WithServiceRescorePolicy(p RescorePolicy) Option {
	return func(s *BlockService) { s.policy = p }
}

func WithAssets(a Assets) Option {
	return func(s *BlockService) { s.assets = a }
}

// WithClock is used by tests for deterministic event timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *BlockService) { s.now = now }
}

func NewBlockService(fields FieldStore, settings SettingsRepository, publisher EventPublisher, opts ...Option) *BlockService {
	s := &BlockService{
		fields:    fields,
		settings:  settings,
		publisher: publisher,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Toggle applies a raw toggle request body for a learner.
func (s *BlockService) Toggle(ctx context.Context, key domain.BlockKey, body []byte) (domain.ToggleResult, error) {
	var result domain.ToggleResult
	err := s.mutate(ctx, key, func(b *Block) error {
		result = b.Toggle(domain.ParseToggleRequest(body))
		return nil
	})
	return result, err
}

// GetScore returns the stored score, nil when nothing was recorded.
func (s *BlockService) GetScore(ctx context.Context, key domain.BlockKey) (*domain.Score, error) {
	b, err := s.load(ctx, key, nil)
	if err != nil {
		return nil, err
	}
	return b.GetScore(), nil
}

// SetScore restores a score without publishing anything.
func (s *BlockService) SetScore(ctx context.Context, key domain.BlockKey, score domain.Score) error {
	if score.RawPossible <= 0 || score.RawEarned < 0 {
		return fmt.Errorf("%w: %+v", domain.ErrInvalidScore, score)
	}
	return s.mutate(ctx, key, func(b *Block) error {
		b.SetScore(score)
		return nil
	})
}

// PublishGrade publishes score, or the stored score when score is nil.
func (s *BlockService) PublishGrade(ctx context.Context, key domain.BlockKey, score *domain.Score, onlyIfHigher bool) (domain.Grade, error) {
	var grade domain.Grade
	err := s.mutate(ctx, key, func(b *Block) error {
		var err error
		grade, err = b.PublishGrade(score, onlyIfHigher)
		return err
	})
	return grade, err
}

// Rescore recomputes and republishes the learner's grade.
func (s *BlockService) Rescore(ctx context.Context, key domain.BlockKey, onlyIfHigher bool) error {
	return s.mutate(ctx, key, func(b *Block) error {
		return b.Rescore(onlyIfHigher)
	})
}

// WeightedGrade exposes raw earned × weight for the host.
func (s *BlockService) WeightedGrade(ctx context.Context, key domain.BlockKey) (float64, error) {
	b, err := s.load(ctx, key, nil)
	if err != nil {
		return 0, err
	}
	return b.WeightedGrade(), nil
}

// StudentView builds the render model for the learner view.
func (s *BlockService) StudentView(ctx context.Context, key domain.BlockKey) (domain.StudentView, error) {
	b, err := s.load(ctx, key, nil)
	if err != nil {
		return domain.StudentView{}, err
	}
	id, err := uuid.NewUUID()
	if err != nil {
		return domain.StudentView{}, err
	}
	settings := b.Settings()
	return domain.StudentView{
		ID:           id.String(),
		BlockID:      key.BlockID,
		DisplayName:  settings.DisplayName,
		Done:         b.Done(),
		Align:        settings.Align,
		UncheckedURL: s.assets.UncheckedURL,
		CheckedURL:   s.assets.CheckedURL,
	}, nil
}

// StudioView builds the authoring placeholder; it needs no learner.
func (s *BlockService) StudioView(ctx context.Context, blockID string) (domain.StudioView, error) {
	settings, err := s.settings.GetSettings(ctx, blockID)
	if err != nil {
		return domain.StudioView{}, err
	}
	return domain.StudioView{
		BlockID:     blockID,
		DisplayName: settings.DisplayName,
		Help:        s.gettext("This block has no configuration options. Learners see a toggle to mark the unit as done."),
	}, nil
}

func (s *BlockService) mutate(ctx context.Context, key domain.BlockKey, op func(*Block) error) error {
	if key.LearnerID == "" {
		return domain.ErrMissingLearner
	}
	unlock := s.locks.lock(key)
	defer unlock()

	buf := &EventBuffer{}
	b, err := s.load(ctx, key, buf)
	if err != nil {
		return err
	}
	before := b.State()
	if err := op(b); err != nil {
		return err
	}
	if sameState(before, b.State()) && len(buf.Events()) == 0 {
		return nil
	}

	fields, err := b.State().Fields()
	if err != nil {
		return fmt.Errorf("encode fields: %w", err)
	}
	if err := s.fields.SaveFields(ctx, key, fields); err != nil {
		return fmt.Errorf("save fields: %w", err)
	}
	return s.deliver(ctx, buf.Events())
}

func (s *BlockService) load(ctx context.Context, key domain.BlockKey, sink EventSink) (*Block, error) {
	if key.LearnerID == "" {
		return nil, domain.ErrMissingLearner
	}
	settings, err := s.settings.GetSettings(ctx, key.BlockID)
	if err != nil {
		return nil, err
	}
	raw, err := s.fields.LoadFields(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load fields: %w", err)
	}
	state, err := domain.UserStateFromFields(raw)
	if err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}
	return NewBlock(key, state, settings, sink, WithTranslator(s.tr), WithRescorePolicy(s.policy)), nil
}

func (s *BlockService) deliver(ctx context.Context, events []domain.Event) error {
	if s.publisher == nil {
		return nil
	}
	now := s.now()
	for i := range events {
		events[i].ID = uuid.NewString()
		events[i].At = now
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		return fmt.Errorf("publish events: %w", err)
	}
	return nil
}

func sameState(a, b domain.UserState) bool {
	if a.Done != b.Done {
		return false
	}
	if a.Score == nil || b.Score == nil {
		return a.Score == nil && b.Score == nil
	}
	return *a.Score == *b.Score
}

func (s *BlockService) gettext(msg string) string {
	if s.tr == nil {
		return msg
	}
	return s.tr.Gettext(msg)
}

// keyedMutex serialises calls for the same learner and block.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[domain.BlockKey]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key domain.BlockKey) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[domain.BlockKey]*keyLock)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
