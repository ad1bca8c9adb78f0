package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"smart-meal-be/internal/entity"
	"smart-meal-be/internal/repository/contract"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func toUploaded(*entity.Session) (entity.SessionStatus, error) {
	return entity.SessionStatusUploaded, nil
}

func TestAppendImagesPreservesCallOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository()

	batches := [][]string{{"1.jpg", "2.jpg"}, {"3.jpg"}, {"4.jpg", "5.jpg", "6.jpg"}}
	var want []string
	for _, batch := range batches {
		s, err := repo.AppendImages(ctx, "s1", batch, toUploaded)
		require.NoError(t, err)
		want = append(want, batch...)
		assert.Equal(t, want, s.ImagePaths)
	}

	s, err := repo.FindByID(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, s.ImagePaths, 6)
	assert.Equal(t, entity.SessionStatusUploaded, s.Status)
}

func TestAppendImagesCreatesMissingSession(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository()

	var seen entity.SessionStatus
	_, err := repo.AppendImages(ctx, "fresh", []string{"a.jpg"}, func(s *entity.Session) (entity.SessionStatus, error) {
		seen = s.Status
		return entity.SessionStatusUploaded, nil
	})
	require.NoError(t, err)
	assert.Equal(t, entity.SessionStatusWaiting, seen)
}

func TestGuardRejectionLeavesSessionUntouched(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository()
	require.NoError(t, repo.Create(ctx, &entity.Session{Id: "s1", Status: entity.SessionStatusDone}))

	busy := errors.New("busy")
	_, err := repo.AppendImages(ctx, "s1", []string{"a.jpg"}, func(*entity.Session) (entity.SessionStatus, error) {
		return "", busy
	})
	var guardErr *contract.GuardError
	require.ErrorAs(t, err, &guardErr)
	assert.ErrorIs(t, err, busy)

	s, _ := repo.FindByID(ctx, "s1")
	assert.Empty(t, s.ImagePaths)
	assert.Equal(t, entity.SessionStatusDone, s.Status)
}

func TestMutationsOnMissingSession(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository()

	assert.ErrorIs(t, repo.UpdateStatus(ctx, "nope", entity.SessionStatusDone), contract.ErrSessionNotFound)
	assert.ErrorIs(t, repo.SaveIngredients(ctx, "nope", nil, entity.SourceLive), contract.ErrSessionNotFound)
	assert.ErrorIs(t, repo.SaveResults(ctx, "nope", nil, nil, entity.SourceLive), contract.ErrSessionNotFound)
	_, err := repo.Transition(ctx, "nope", toUploaded)
	assert.ErrorIs(t, err, contract.ErrSessionNotFound)

	s, err := repo.FindByID(ctx, "nope")
	assert.NoError(t, err)
	assert.Nil(t, s)
}

func TestSaveResultsReplacesAndDoesNotAlias(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository()
	require.NoError(t, repo.Create(ctx, &entity.Session{Id: "s1", Status: entity.SessionStatusIngredientsReady}))

	plan := []entity.DayEntry{{Day: "Monday", Meals: map[string]string{"dinner": "Curry"}}}
	require.NoError(t, repo.SaveResults(ctx, "s1", plan, nil, entity.SourceFallback))
	plan[0].Meals["dinner"] = "changed"

	s, _ := repo.FindByID(ctx, "s1")
	assert.Equal(t, "Curry", s.MealPlan[0].Meals["dinner"])
	assert.NotNil(t, s.ShoppingList)
	assert.Empty(t, s.ShoppingList)
	assert.Equal(t, entity.SourceFallback, s.PlanSource)

	second := []entity.DayEntry{{Day: "Tuesday", Meals: map[string]string{"lunch": "Soup"}}}
	require.NoError(t, repo.SaveResults(ctx, "s1", second, []entity.ShoppingItem{{Item: "Bread", Reason: "missing"}}, entity.SourceLive))
	s, _ = repo.FindByID(ctx, "s1")
	assert.Len(t, s.MealPlan, 1)
	assert.Equal(t, "Tuesday", s.MealPlan[0].Day)
	assert.Len(t, s.ShoppingList, 1)
}

func TestNewRunClearsPreviousResults(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository()
	require.NoError(t, repo.Create(ctx, &entity.Session{Id: "s1", Status: entity.SessionStatusIngredientsReady, ImagePaths: []string{"a.jpg"}}))
	require.NoError(t, repo.SaveIngredients(ctx, "s1", []entity.Ingredient{{Name: "Egg", Category: "protein"}}, entity.SourceLive))
	require.NoError(t, repo.SaveResults(ctx, "s1", []entity.DayEntry{{Day: "Monday"}}, []entity.ShoppingItem{{Item: "Milk"}}, entity.SourceLive))
	require.NoError(t, repo.UpdateStatus(ctx, "s1", entity.SessionStatusDone))

	s, err := repo.Transition(ctx, "s1", func(*entity.Session) (entity.SessionStatus, error) {
		return entity.SessionStatusAnalyzing, nil
	})
	require.NoError(t, err)
	assert.Equal(t, entity.SessionStatusAnalyzing, s.Status)
	assert.Equal(t, []string{"a.jpg"}, s.ImagePaths)
	assert.Nil(t, s.DetectedIngredients)
	assert.Nil(t, s.MealPlan)
	assert.Nil(t, s.ShoppingList)
	assert.Empty(t, s.IngredientSource)
	assert.Empty(t, s.PlanSource)

	stored, _ := repo.FindByID(ctx, "s1")
	assert.Nil(t, stored.MealPlan)

	// Steps within a run keep what the run recorded.
	require.NoError(t, repo.SaveIngredients(ctx, "s1", []entity.Ingredient{{Name: "Leek", Category: "vegetable"}}, entity.SourceLive))
	s, err = repo.Transition(ctx, "s1", func(*entity.Session) (entity.SessionStatus, error) {
		return entity.SessionStatusIngredientsReady, nil
	})
	require.NoError(t, err)
	assert.Len(t, s.DetectedIngredients, 1)
}

func TestConcurrentAppendsAreSerialized(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.AppendImages(ctx, "s1", []string{fmt.Sprintf("%d.jpg", i)}, toUploaded)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	s, err := repo.FindByID(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, s.ImagePaths, 50)
}

func TestListAndClear(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository()
	base := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(ctx, &entity.Session{
			Id:        fmt.Sprintf("s%d", i),
			Status:    entity.SessionStatusWaiting,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	sessions, err := repo.List(ctx, contract.ListFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "s2", sessions[0].Id)
	assert.Equal(t, "s1", sessions[1].Id)

	require.NoError(t, repo.UpdateStatus(ctx, "s0", entity.SessionStatusDone))
	done, err := repo.List(ctx, contract.ListFilter{Status: entity.SessionStatusDone})
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, "s0", done[0].Id)

	require.NoError(t, repo.Clear(ctx))
	sessions, err = repo.List(ctx, contract.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, sessions)
}
