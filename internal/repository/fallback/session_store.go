// Package fallback routes session persistence between the durable backend and
// the in-memory backend. Writes go to the durable backend first; the first
// durable failure for an id pins that id to memory for the rest of the process
// lifetime. Before pinning, memory is seeded with the last state the durable
// backend reported for the id, so pinning never loses data. Nothing is
// reconciled back when the durable backend recovers.
package fallback

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"smart-meal-be/internal/entity"
	"smart-meal-be/internal/metrics"
	"smart-meal-be/internal/pkg/logger"
	"smart-meal-be/internal/repository/contract"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

type Backend string

const (
	BackendDurable Backend = "durable"
	BackendMemory  Backend = "memory"
	BackendUnknown Backend = "unknown"
)

const module = "SessionStore"

// snapshotTTL bounds how long the last durable state of an idle session is
// kept for seeding memory.
const snapshotTTL = 24 * time.Hour

type SessionStore struct {
	durable contract.SessionStore
	memory  contract.ClearableSessionStore
	logger  logger.ILogger

	mu     sync.RWMutex
	owners map[string]Backend

	snapMu    sync.Mutex
	snapshots *cache.Cache
}

// NewSessionStore builds the resolver. durable may be nil, in which case every
// session lives in memory.
func NewSessionStore(durable contract.SessionStore, memory contract.ClearableSessionStore, log logger.ILogger) *SessionStore {
	return &SessionStore{
		durable:   durable,
		memory:    memory,
		logger:    log,
		owners:    make(map[string]Backend),
		snapshots: cache.New(snapshotTTL, time.Hour),
	}
}

// Owner reports which backend currently serves id.
func (s *SessionStore) Owner(id string) Backend {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if b, ok := s.owners[id]; ok {
		return b
	}
	return BackendUnknown
}

func (s *SessionStore) HasDurable() bool {
	return s.durable != nil
}

// claim records the owner of id. Memory ownership is sticky.
func (s *SessionStore) claim(id string, b Backend) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.owners[id] == BackendMemory {
		return
	}
	s.owners[id] = b
}

// remember stores the latest durable state of a session.
func (s *SessionStore) remember(session *entity.Session) {
	if session == nil {
		return
	}
	s.snapMu.Lock()
	defer s.snapMu.Unlock()
	s.snapshots.SetDefault(session.Id, session.Clone())
}

// amend applies a successful durable write to the snapshot of id, if any.
func (s *SessionStore) amend(id string, fn func(session *entity.Session)) {
	s.snapMu.Lock()
	defer s.snapMu.Unlock()
	x, ok := s.snapshots.Get(id)
	if !ok {
		return
	}
	updated := x.(*entity.Session).Clone()
	fn(updated)
	s.snapshots.SetDefault(id, updated)
}

func (s *SessionStore) snapshot(id string) *entity.Session {
	s.snapMu.Lock()
	defer s.snapMu.Unlock()
	if x, ok := s.snapshots.Get(id); ok {
		return x.(*entity.Session).Clone()
	}
	return nil
}

// seed copies the last known durable state of id into memory unless memory
// already holds it. Without a snapshot it tries one durable read.
func (s *SessionStore) seed(ctx context.Context, id string) {
	if existing, err := s.memory.FindByID(ctx, id); err == nil && existing != nil {
		return
	}
	session := s.snapshot(id)
	if session == nil {
		found, err := s.durable.FindByID(ctx, id)
		if err != nil || found == nil {
			return
		}
		session = found
	}
	if err := s.memory.Create(ctx, session); err != nil {
		s.logger.Error(module, "failed to seed memory from durable snapshot", map[string]interface{}{
			"session_id": id,
			"error":      err.Error(),
		})
	}
}

// write runs op against the durable backend and reroutes to memory on any
// non-domain failure. It returns the backend that accepted the write.
func (s *SessionStore) write(ctx context.Context, op, id string, fn func(b contract.SessionStore) error) (Backend, error) {
	owner := s.Owner(id)
	if s.durable != nil && owner != BackendMemory {
		err := fn(s.durable)
		if err == nil {
			s.claim(id, BackendDurable)
			return BackendDurable, nil
		}
		if contract.IsDomainError(err) {
			if owner == BackendUnknown && errors.Is(err, contract.ErrSessionNotFound) {
				// Unowned ids may still exist in memory from before the owner table saw them.
				if err := fn(s.memory); err != nil {
					return BackendUnknown, err
				}
				s.claim(id, BackendMemory)
				return BackendMemory, nil
			}
			return BackendUnknown, err
		}
		s.logger.Warn(module, "durable backend failed, pinning session to memory", map[string]interface{}{
			"operation":  op,
			"session_id": id,
			"error":      err.Error(),
		})
		metrics.StoreFallbacks.WithLabelValues(op).Inc()
		if op != "create" {
			s.seed(ctx, id)
		}
	}

	s.claim(id, BackendMemory)
	return BackendMemory, fn(s.memory)
}

func (s *SessionStore) Create(ctx context.Context) (string, error) {
	id := uuid.NewString()
	session := &entity.Session{
		Id:         id,
		Status:     entity.SessionStatusWaiting,
		ImagePaths: []string{},
		CreatedAt:  time.Now(),
	}
	backend, err := s.write(ctx, "create", id, func(b contract.SessionStore) error {
		return b.Create(ctx, session.Clone())
	})
	if err != nil {
		return "", err
	}
	if backend == BackendDurable {
		s.remember(session)
	}
	return id, nil
}

// Get tries the durable backend, then memory. Read failures are logged but
// do not pin the id.
func (s *SessionStore) Get(ctx context.Context, id string) (*entity.Session, error) {
	if s.durable != nil && s.Owner(id) != BackendMemory {
		session, err := s.durable.FindByID(ctx, id)
		if err == nil && session != nil {
			s.claim(id, BackendDurable)
			s.remember(session)
			return session, nil
		}
		if err != nil {
			s.logger.Warn(module, "durable read failed, probing memory", map[string]interface{}{
				"session_id": id,
				"error":      err.Error(),
			})
			metrics.StoreFallbacks.WithLabelValues("get").Inc()
		}
	}

	session, err := s.memory.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, contract.ErrSessionNotFound
	}
	return session, nil
}

// List merges recent sessions from both backends, newest first.
func (s *SessionStore) List(ctx context.Context, filter contract.ListFilter) ([]*entity.Session, error) {
	seen := make(map[string]bool)
	var merged []*entity.Session

	memSessions, err := s.memory.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	for _, m := range memSessions {
		seen[m.Id] = true
		merged = append(merged, m)
	}

	if s.durable != nil {
		dbSessions, err := s.durable.List(ctx, filter)
		if err != nil {
			s.logger.Warn(module, "durable list failed, showing memory sessions only", map[string]interface{}{
				"error": err.Error(),
			})
		}
		for _, d := range dbSessions {
			if !seen[d.Id] && s.Owner(d.Id) != BackendMemory {
				merged = append(merged, d)
			}
		}
	}

	sort.Slice(merged, func(i, j int) bool {
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})
	if filter.Limit > 0 && len(merged) > filter.Limit {
		merged = merged[:filter.Limit]
	}
	return merged, nil
}

func (s *SessionStore) AppendImages(ctx context.Context, id string, refs []string, transition contract.TransitionFunc) (*entity.Session, error) {
	var result *entity.Session
	backend, err := s.write(ctx, "append_images", id, func(b contract.SessionStore) error {
		session, err := b.AppendImages(ctx, id, refs, transition)
		result = session
		return err
	})
	if err == nil && backend == BackendDurable {
		s.remember(result)
	}
	return result, err
}

func (s *SessionStore) Transition(ctx context.Context, id string, transition contract.TransitionFunc) (*entity.Session, error) {
	var result *entity.Session
	backend, err := s.write(ctx, "transition", id, func(b contract.SessionStore) error {
		session, err := b.Transition(ctx, id, transition)
		result = session
		return err
	})
	if err == nil && backend == BackendDurable {
		s.remember(result)
	}
	return result, err
}

func (s *SessionStore) UpdateStatus(ctx context.Context, id string, status entity.SessionStatus) error {
	backend, err := s.write(ctx, "update_status", id, func(b contract.SessionStore) error {
		return b.UpdateStatus(ctx, id, status)
	})
	if err == nil && backend == BackendDurable {
		s.amend(id, func(session *entity.Session) { session.Status = status })
	}
	return err
}

func (s *SessionStore) RecordIngredients(ctx context.Context, id string, ingredients []entity.Ingredient, source entity.Source) error {
	backend, err := s.write(ctx, "record_ingredients", id, func(b contract.SessionStore) error {
		return b.SaveIngredients(ctx, id, ingredients, source)
	})
	if err == nil && backend == BackendDurable {
		s.amend(id, func(session *entity.Session) {
			session.DetectedIngredients = append([]entity.Ingredient{}, ingredients...)
			session.IngredientSource = source
		})
	}
	return err
}

func (s *SessionStore) RecordResults(ctx context.Context, id string, plan []entity.DayEntry, list []entity.ShoppingItem, source entity.Source) error {
	backend, err := s.write(ctx, "record_results", id, func(b contract.SessionStore) error {
		return b.SaveResults(ctx, id, plan, list, source)
	})
	if err == nil && backend == BackendDurable {
		s.amend(id, func(session *entity.Session) {
			copied := (&entity.Session{MealPlan: plan, ShoppingList: list}).Clone()
			session.MealPlan = copied.MealPlan
			session.ShoppingList = copied.ShoppingList
			session.PlanSource = source
		})
	}
	return err
}

// ClearAll drops every session held in memory along with its routing entry.
// Durable sessions are untouched.
func (s *SessionStore) ClearAll(ctx context.Context) (int, error) {
	if err := s.memory.Clear(ctx); err != nil {
		return 0, err
	}
	cleared := s.Forget(BackendMemory)
	s.logger.Info(module, "in-memory sessions cleared", map[string]interface{}{"pinned_ids": cleared})
	return cleared, nil
}

// Forget drops every routing entry pointing at b and returns how many there
// were. Forgetting the durable backend also drops its snapshots.
func (s *SessionStore) Forget(b Backend) int {
	if b == BackendDurable {
		s.snapMu.Lock()
		s.snapshots.Flush()
		s.snapMu.Unlock()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, owner := range s.owners {
		if owner == b {
			delete(s.owners, id)
			n++
		}
	}
	return n
}
