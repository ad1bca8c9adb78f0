package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"smart-meal-be/internal/dto"
	"smart-meal-be/internal/entity"
	"smart-meal-be/internal/repository/fallback"
	"smart-meal-be/pkg/capability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uploadTwo(t *testing.T, f *fixture, id string) {
	t.Helper()
	_, err := f.sessions.UploadImages(context.Background(), id, []dto.UploadFile{
		{Filename: "fridge.png", Data: pngBytes},
		{Filename: "pantry.png", Data: pngBytes},
	})
	require.NoError(t, err)
}

func TestMockModeRunEndsDoneWithDocumentedData(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	created, err := f.sessions.Create(ctx)
	require.NoError(t, err)
	id := created.SessionId
	uploadTwo(t, f, id)

	res, err := f.analysis.Analyze(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "done", res.Status)
	assert.Equal(t, capability.MockIngredients(), res.Ingredients)
	assert.Equal(t, "mock", res.Source)

	result, err := f.sessions.GetResult(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "done", result.Status)
	assert.Equal(t, capability.MockIngredients(), result.Ingredients)
	assert.NotEmpty(t, result.MealPlan)
	assert.Equal(t, capability.MockPlan(), result.MealPlan)
	assert.Equal(t, capability.MockShoppingList(), result.ShoppingList)

	assert.Equal(t, []entity.SessionStatus{
		entity.SessionStatusUploaded,
		entity.SessionStatusAnalyzing,
		entity.SessionStatusIngredientsReady,
		entity.SessionStatusDone,
	}, f.publisher.Statuses())
}

func TestAnalyzeRejections(t *testing.T) {
	ctx := context.Background()

	t.Run("no images", func(t *testing.T) {
		f := newFixture(t)
		created, _ := f.sessions.Create(ctx)

		_, err := f.analysis.Analyze(ctx, created.SessionId)
		var validation *dto.ValidationError
		require.ErrorAs(t, err, &validation)

		status, _ := f.sessions.GetStatus(ctx, created.SessionId)
		assert.Equal(t, "waiting", status.Status)
		assert.Empty(t, f.publisher.Statuses())
	})

	t.Run("unknown session", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.analysis.Analyze(ctx, "nope")
		var notFound *dto.NotFoundError
		assert.ErrorAs(t, err, &notFound)
	})

	t.Run("rerun rejected by default", func(t *testing.T) {
		f := newFixture(t)
		uploadTwo(t, f, "s1")
		_, err := f.analysis.Analyze(ctx, "s1")
		require.NoError(t, err)

		_, err = f.analysis.Analyze(ctx, "s1")
		var conflict *dto.ConflictError
		require.ErrorAs(t, err, &conflict)

		status, _ := f.sessions.GetStatus(ctx, "s1")
		assert.Equal(t, "done", status.Status)
	})
}

func TestRerunReplacesResults(t *testing.T) {
	ctx := context.Background()
	var run atomic.Int32
	gw := &stubGateway{
		detect: func(ctx context.Context, refs []string) capability.IngredientsOutcome {
			n := run.Add(1)
			name := "Carrot"
			if n > 1 {
				name = "Leek"
			}
			return capability.IngredientsOutcome{
				Ingredients: []entity.Ingredient{{Name: name, Category: "vegetable"}},
				Outcome:     capability.Outcome{Source: entity.SourceLive},
			}
		},
	}
	f := newFixture(t, withGateway(gw), withPolicy(entity.RerunReplace))
	uploadTwo(t, f, "s1")

	_, err := f.analysis.Analyze(ctx, "s1")
	require.NoError(t, err)
	res, err := f.analysis.Analyze(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Leek", res.Ingredients[0].Name)

	result, _ := f.sessions.GetResult(ctx, "s1")
	require.Len(t, result.Ingredients, 1)
	assert.Equal(t, "Leek", result.Ingredients[0].Name)
	assert.Len(t, result.MealPlan, 1)
}

func TestFailedRerunLeavesNoStaleResults(t *testing.T) {
	ctx := context.Background()
	var run atomic.Int32
	gw := &stubGateway{
		detect: func(ctx context.Context, refs []string) capability.IngredientsOutcome {
			if run.Add(1) > 1 {
				return capability.IngredientsOutcome{
					Ingredients: []entity.Ingredient{},
					Outcome:     capability.Outcome{Source: entity.SourceLive},
				}
			}
			return capability.IngredientsOutcome{
				Ingredients: []entity.Ingredient{{Name: "Carrot", Category: "vegetable"}},
				Outcome:     capability.Outcome{Source: entity.SourceLive},
			}
		},
	}
	f := newFixture(t, withGateway(gw), withPolicy(entity.RerunReplace))
	uploadTwo(t, f, "s1")

	_, err := f.analysis.Analyze(ctx, "s1")
	require.NoError(t, err)
	status, _ := f.sessions.GetStatus(ctx, "s1")
	require.NotEmpty(t, status.MealPlan)

	_, err = f.analysis.Analyze(ctx, "s1")
	assert.ErrorIs(t, err, ErrNoIngredients)

	status, err = f.sessions.GetStatus(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "error", status.Status)
	assert.Nil(t, status.Ingredients)
	assert.Nil(t, status.MealPlan)
	assert.Nil(t, status.ShoppingList)
	assert.Empty(t, status.IngredientSource)
	assert.Empty(t, status.PlanSource)
	assert.Equal(t, 2, status.ImageCount)
}

func TestDurableOutageMidRunStillFinishes(t *testing.T) {
	ctx := context.Background()
	durable := newOutageStore()
	f := newFixture(t, withDurable(durable))
	uploadTwo(t, f, "s1")
	require.Equal(t, fallback.BackendDurable, f.store.Owner("s1"))

	res, err := f.analysis.Analyze(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "done", res.Status)
	assert.True(t, durable.down.Load())
	assert.Equal(t, fallback.BackendMemory, f.store.Owner("s1"))

	status, err := f.sessions.GetStatus(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "done", status.Status)
	assert.Equal(t, 2, status.ImageCount)
	assert.Equal(t, capability.MockIngredients(), status.Ingredients)
	assert.Equal(t, capability.MockPlan(), status.MealPlan)

	assert.Equal(t, []entity.SessionStatus{
		entity.SessionStatusUploaded,
		entity.SessionStatusAnalyzing,
		entity.SessionStatusIngredientsReady,
		entity.SessionStatusDone,
	}, f.publisher.Statuses())
}

func TestEmptyDetectionEndsInError(t *testing.T) {
	ctx := context.Background()
	gw := &stubGateway{
		detect: func(ctx context.Context, refs []string) capability.IngredientsOutcome {
			return capability.IngredientsOutcome{
				Ingredients: []entity.Ingredient{},
				Outcome:     capability.Outcome{Source: entity.SourceLive},
			}
		},
	}
	f := newFixture(t, withGateway(gw))
	uploadTwo(t, f, "s1")

	_, err := f.analysis.Analyze(ctx, "s1")
	var pipelineErr *dto.PipelineError
	require.ErrorAs(t, err, &pipelineErr)
	assert.ErrorIs(t, err, ErrNoIngredients)
	assert.Equal(t, "detect", pipelineErr.Step)

	status, _ := f.sessions.GetStatus(ctx, "s1")
	assert.Equal(t, "error", status.Status)
	assert.Equal(t, entity.SessionStatusError, f.publisher.Statuses()[len(f.publisher.Statuses())-1])
}

func TestFailureAfterDetectionKeepsPartialResults(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, withBargains(failingBargains{err: errors.New("flyer feed down")}))
	uploadTwo(t, f, "s1")

	_, err := f.analysis.Analyze(ctx, "s1")
	var pipelineErr *dto.PipelineError
	require.ErrorAs(t, err, &pipelineErr)
	assert.Equal(t, "bargains", pipelineErr.Step)

	status, _ := f.sessions.GetStatus(ctx, "s1")
	assert.Equal(t, "error", status.Status)
	assert.Equal(t, capability.MockIngredients(), status.Ingredients)
	assert.Nil(t, status.MealPlan)
}

func TestFailedDetectionFallsBackToMockPlan(t *testing.T) {
	ctx := context.Background()
	gw := &stubGateway{
		detect: func(ctx context.Context, refs []string) capability.IngredientsOutcome {
			return capability.IngredientsOutcome{
				Ingredients: capability.MockIngredients(),
				Outcome:     capability.Outcome{Source: entity.SourceFallback, Reason: "quota"},
			}
		},
		plan: func(ctx context.Context, ingredients []entity.Ingredient, src entity.Source, bargains []string) capability.PlanOutcome {
			assert.Equal(t, entity.SourceFallback, src)
			assert.Equal(t, []string{"Chicken Breast", "Broccoli", "Rice", "Tofu", "Apples"}, bargains)
			return capability.PlanOutcome{
				Plan:         capability.MockPlan(),
				ShoppingList: capability.MockShoppingList(),
				Outcome:      capability.Outcome{Source: entity.SourceMock},
			}
		},
	}
	f := newFixture(t, withGateway(gw))
	uploadTwo(t, f, "s1")

	res, err := f.analysis.Analyze(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "fallback", res.Source)

	status, _ := f.sessions.GetStatus(ctx, "s1")
	assert.Equal(t, "fallback", status.IngredientSource)
	assert.Equal(t, "mock", status.PlanSource)
	assert.Equal(t, capability.MockPlan(), status.MealPlan)
}

func TestConcurrentAnalyzeSharesOneRun(t *testing.T) {
	const callers = 8
	release := make(chan struct{})
	var detectCalls atomic.Int32
	gw := &stubGateway{
		detect: func(ctx context.Context, refs []string) capability.IngredientsOutcome {
			detectCalls.Add(1)
			<-release
			return capability.IngredientsOutcome{
				Ingredients: []entity.Ingredient{{Name: "Egg", Category: "protein"}},
				Outcome:     capability.Outcome{Source: entity.SourceLive},
			}
		},
	}
	f := newFixture(t, withGateway(gw))
	uploadTwo(t, f, "s1")

	var (
		ready sync.WaitGroup
		done  sync.WaitGroup
		errs  = make(chan error, callers)
		resps = make(chan *dto.AnalyzeResponse, callers)
	)
	for i := 0; i < callers; i++ {
		ready.Add(1)
		done.Add(1)
		go func() {
			defer done.Done()
			ready.Done()
			res, err := f.analysis.Analyze(context.Background(), "s1")
			errs <- err
			resps <- res
		}()
	}
	ready.Wait()
	require.Eventually(t, func() bool { return detectCalls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(release)
	done.Wait()
	close(errs)
	close(resps)

	for err := range errs {
		assert.NoError(t, err)
	}
	var first *dto.AnalyzeResponse
	for res := range resps {
		if first == nil {
			first = res
		}
		assert.Same(t, first, res)
	}
	assert.Equal(t, int32(1), detectCalls.Load())
}

func TestCallerCancellationDoesNotAbortRun(t *testing.T) {
	f := newFixture(t)
	uploadTwo(t, f, "s1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := f.analysis.Analyze(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "done", res.Status)
}
