package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"smart-meal-be/internal/entity"
	"smart-meal-be/internal/pkg/logger"
	"smart-meal-be/internal/repository/contract"
	"smart-meal-be/internal/repository/fallback"
	"smart-meal-be/internal/repository/memory"
	"smart-meal-be/pkg/bargain"
	"smart-meal-be/pkg/capability"
	"smart-meal-be/pkg/filestore"

	"github.com/stretchr/testify/require"
)

// Smallest PNG header plus IHDR chunk, enough for content sniffing.
var pngBytes = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a,
	0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x02, 0x00, 0x00, 0x00, 0x90, 0x77, 0x53, 0xde,
}

type recordingPublisher struct {
	mu       sync.Mutex
	statuses []entity.SessionStatus
}

func (p *recordingPublisher) PublishStatus(ctx context.Context, sessionID string, status entity.SessionStatus, errMsg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statuses = append(p.statuses, status)
}

func (p *recordingPublisher) Statuses() []entity.SessionStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]entity.SessionStatus(nil), p.statuses...)
}

type stubGateway struct {
	detect func(ctx context.Context, refs []string) capability.IngredientsOutcome
	plan   func(ctx context.Context, ingredients []entity.Ingredient, src entity.Source, bargains []string) capability.PlanOutcome
}

func (g *stubGateway) DetectIngredients(ctx context.Context, refs []string) capability.IngredientsOutcome {
	return g.detect(ctx, refs)
}

func (g *stubGateway) GeneratePlan(ctx context.Context, ingredients []entity.Ingredient, src entity.Source, bargains []string) capability.PlanOutcome {
	if g.plan == nil {
		return capability.PlanOutcome{
			Plan:         capability.FallbackPlan(),
			ShoppingList: []entity.ShoppingItem{},
			Outcome:      capability.Outcome{Source: entity.SourceLive},
		}
	}
	return g.plan(ctx, ingredients, src, bargains)
}

type failingBargains struct{ err error }

func (f failingBargains) BargainItems(ctx context.Context) ([]string, error) {
	return nil, f.err
}

var errDatabaseDown = errors.New("dial tcp 127.0.0.1:5432: connect: connection refused")

// outageStore is a durable backend that goes down as soon as detected
// ingredients are written, leaving the session mid-run.
type outageStore struct {
	*memory.SessionRepository
	down atomic.Bool
}

func newOutageStore() *outageStore {
	return &outageStore{SessionRepository: memory.NewSessionRepository()}
}

func (o *outageStore) check() error {
	if o.down.Load() {
		return errDatabaseDown
	}
	return nil
}

func (o *outageStore) FindByID(ctx context.Context, id string) (*entity.Session, error) {
	if err := o.check(); err != nil {
		return nil, err
	}
	return o.SessionRepository.FindByID(ctx, id)
}

func (o *outageStore) Transition(ctx context.Context, id string, t contract.TransitionFunc) (*entity.Session, error) {
	if err := o.check(); err != nil {
		return nil, err
	}
	return o.SessionRepository.Transition(ctx, id, t)
}

func (o *outageStore) UpdateStatus(ctx context.Context, id string, status entity.SessionStatus) error {
	if err := o.check(); err != nil {
		return err
	}
	return o.SessionRepository.UpdateStatus(ctx, id, status)
}

func (o *outageStore) SaveIngredients(ctx context.Context, id string, ingredients []entity.Ingredient, source entity.Source) error {
	o.down.Store(true)
	return errDatabaseDown
}

func (o *outageStore) SaveResults(ctx context.Context, id string, plan []entity.DayEntry, list []entity.ShoppingItem, source entity.Source) error {
	if err := o.check(); err != nil {
		return err
	}
	return o.SessionRepository.SaveResults(ctx, id, plan, list, source)
}

type fixture struct {
	store     *fallback.SessionStore
	files     *filestore.LocalStore
	publisher *recordingPublisher
	sessions  ISessionService
	analysis  IAnalysisService
}

type fixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	gateway  Gateway
	bargains bargain.Provider
	policy   entity.RerunPolicy
	durable  contract.SessionStore
}

func withGateway(g Gateway) fixtureOption {
	return func(c *fixtureConfig) { c.gateway = g }
}

func withBargains(b bargain.Provider) fixtureOption {
	return func(c *fixtureConfig) { c.bargains = b }
}

func withPolicy(p entity.RerunPolicy) fixtureOption {
	return func(c *fixtureConfig) { c.policy = p }
}

func withDurable(d contract.SessionStore) fixtureOption {
	return func(c *fixtureConfig) { c.durable = d }
}

// newFixture wires the services over a temp upload dir, a memory-only store
// and a gateway in mock mode unless overridden.
func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	log := logger.NewNopLogger()

	files, err := filestore.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	cfg := &fixtureConfig{
		gateway:  capability.NewGateway(nil, files, log, capability.WithMockLatency(0)),
		bargains: bargain.NewStaticProvider(),
		policy:   entity.RerunReject,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	store := fallback.NewSessionStore(cfg.durable, memory.NewSessionRepository(), log)
	pub := &recordingPublisher{}
	return &fixture{
		store:     store,
		files:     files,
		publisher: pub,
		sessions:  NewSessionService(store, files, pub, cfg.policy, log),
		analysis:  NewAnalysisService(store, cfg.gateway, cfg.bargains, pub, cfg.policy, log),
	}
}
