package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"smart-meal-be/internal/entity"
	"smart-meal-be/internal/repository/contract"

	"github.com/patrickmn/go-cache"
)

// SessionRepository is the in-process fallback backend. Entries never expire;
// they are dropped only by Clear. mu serializes read-modify-write sequences
// that go-cache alone cannot make atomic.
type SessionRepository struct {
	mu    sync.Mutex
	cache *cache.Cache
}

var _ contract.ClearableSessionStore = (*SessionRepository)(nil)

func NewSessionRepository() *SessionRepository {
	return &SessionRepository{
		cache: cache.New(cache.NoExpiration, 0),
	}
}

func (r *SessionRepository) load(id string) (*entity.Session, bool) {
	if x, found := r.cache.Get(id); found {
		return x.(*entity.Session), true
	}
	return nil, false
}

func (r *SessionRepository) store(s *entity.Session) {
	now := time.Now()
	s.UpdatedAt = &now
	r.cache.Set(s.Id, s, cache.NoExpiration)
}

func (r *SessionRepository) Create(ctx context.Context, session *entity.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}
	if session.ImagePaths == nil {
		session.ImagePaths = []string{}
	}
	r.store(session.Clone())
	return nil
}

func (r *SessionRepository) FindByID(ctx context.Context, id string) (*entity.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.load(id)
	if !ok {
		return nil, nil
	}
	return s.Clone(), nil
}

func (r *SessionRepository) List(ctx context.Context, filter contract.ListFilter) ([]*entity.Session, error) {
	r.mu.Lock()
	items := r.cache.Items()
	sessions := make([]*entity.Session, 0, len(items))
	for _, item := range items {
		s := item.Object.(*entity.Session)
		if filter.Status != "" && s.Status != filter.Status {
			continue
		}
		sessions = append(sessions, s.Clone())
	}
	r.mu.Unlock()

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})
	if filter.Limit > 0 && len(sessions) > filter.Limit {
		sessions = sessions[:filter.Limit]
	}
	return sessions, nil
}

func (r *SessionRepository) AppendImages(ctx context.Context, id string, refs []string, transition contract.TransitionFunc) (*entity.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.load(id)
	if !ok {
		current = &entity.Session{
			Id:         id,
			Status:     entity.SessionStatusWaiting,
			ImagePaths: []string{},
			CreatedAt:  time.Now(),
		}
	}

	next, err := transition(current.Clone())
	if err != nil {
		return nil, &contract.GuardError{Err: err}
	}

	updated := current.Clone()
	if current.Status.StartsNewRun(next) {
		updated.ResetResults()
	}
	updated.ImagePaths = append(updated.ImagePaths, refs...)
	updated.Status = next
	r.store(updated)
	return updated.Clone(), nil
}

func (r *SessionRepository) Transition(ctx context.Context, id string, transition contract.TransitionFunc) (*entity.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.load(id)
	if !ok {
		return nil, contract.ErrSessionNotFound
	}

	next, err := transition(current.Clone())
	if err != nil {
		return nil, &contract.GuardError{Err: err}
	}

	updated := current.Clone()
	if current.Status.StartsNewRun(next) {
		updated.ResetResults()
	}
	updated.Status = next
	r.store(updated)
	return updated.Clone(), nil
}

func (r *SessionRepository) UpdateStatus(ctx context.Context, id string, status entity.SessionStatus) error {
	return r.mutate(id, func(s *entity.Session) {
		s.Status = status
	})
}

func (r *SessionRepository) SaveIngredients(ctx context.Context, id string, ingredients []entity.Ingredient, source entity.Source) error {
	return r.mutate(id, func(s *entity.Session) {
		s.DetectedIngredients = append([]entity.Ingredient{}, ingredients...)
		s.IngredientSource = source
	})
}

func (r *SessionRepository) SaveResults(ctx context.Context, id string, plan []entity.DayEntry, list []entity.ShoppingItem, source entity.Source) error {
	return r.mutate(id, func(s *entity.Session) {
		// Copy through Clone so the stored session never aliases caller slices.
		tmp := (&entity.Session{MealPlan: plan, ShoppingList: list}).Clone()
		s.MealPlan = tmp.MealPlan
		if s.MealPlan == nil {
			s.MealPlan = []entity.DayEntry{}
		}
		s.ShoppingList = tmp.ShoppingList
		if s.ShoppingList == nil {
			s.ShoppingList = []entity.ShoppingItem{}
		}
		s.PlanSource = source
	})
}

func (r *SessionRepository) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cache.Flush()
	return nil
}

func (r *SessionRepository) mutate(id string, fn func(s *entity.Session)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.load(id)
	if !ok {
		return contract.ErrSessionNotFound
	}
	updated := current.Clone()
	fn(updated)
	r.store(updated)
	return nil
}
