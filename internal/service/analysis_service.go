package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"smart-meal-be/internal/dto"
	"smart-meal-be/internal/entity"
	"smart-meal-be/internal/metrics"
	"smart-meal-be/internal/pkg/logger"
	"smart-meal-be/internal/repository/contract"
	"smart-meal-be/internal/repository/fallback"
	"smart-meal-be/pkg/bargain"
	"smart-meal-be/pkg/capability"

	"golang.org/x/sync/singleflight"
)

var ErrNoIngredients = errors.New("no ingredients detected")

// Gateway is the part of the capability gateway the pipeline drives.
type Gateway interface {
	DetectIngredients(ctx context.Context, refs []string) capability.IngredientsOutcome
	GeneratePlan(ctx context.Context, ingredients []entity.Ingredient, ingredientSource entity.Source, bargainItems []string) capability.PlanOutcome
}

type IAnalysisService interface {
	// Analyze runs detection and planning for a session. Concurrent calls for
	// the same session share one run and its outcome.
	Analyze(ctx context.Context, sessionID string) (*dto.AnalyzeResponse, error)
}

type analysisService struct {
	store     *fallback.SessionStore
	gateway   Gateway
	bargains  bargain.Provider
	publisher IPublisherService
	policy    entity.RerunPolicy
	logger    logger.ILogger

	flight singleflight.Group
}

func NewAnalysisService(
	store *fallback.SessionStore,
	gateway Gateway,
	bargains bargain.Provider,
	publisher IPublisherService,
	policy entity.RerunPolicy,
	log logger.ILogger,
) IAnalysisService {
	return &analysisService{
		store:     store,
		gateway:   gateway,
		bargains:  bargains,
		publisher: publisher,
		policy:    policy,
		logger:    log,
	}
}

func (s *analysisService) Analyze(ctx context.Context, sessionID string) (*dto.AnalyzeResponse, error) {
	// The run outlives any single caller so coalesced callers are not cut off
	// when the first one disconnects.
	runCtx := context.WithoutCancel(ctx)

	v, err, shared := s.flight.Do(sessionID, func() (interface{}, error) {
		return s.run(runCtx, sessionID)
	})
	if shared {
		s.logger.Debug("PIPELINE", "Joined in-flight analysis", map[string]interface{}{"session_id": sessionID})
	}
	if err != nil {
		return nil, err
	}
	return v.(*dto.AnalyzeResponse), nil
}

// startGuard admits a run only from a status that may move to analyzing and
// only when there is something to analyze.
func (s *analysisService) startGuard(current *entity.Session) (entity.SessionStatus, error) {
	if current.Status.IsInFlight() {
		return "", &dto.ConflictError{Message: "analysis already in progress"}
	}
	if !current.Status.CanTransitionTo(entity.SessionStatusAnalyzing, s.policy) {
		return "", &dto.ConflictError{Message: fmt.Sprintf("session is %s; re-analysis is disabled", current.Status)}
	}
	if len(current.ImagePaths) == 0 {
		return "", &dto.ValidationError{Message: "no images uploaded"}
	}
	return entity.SessionStatusAnalyzing, nil
}

func (s *analysisService) run(ctx context.Context, sessionID string) (*dto.AnalyzeResponse, error) {
	started := time.Now()

	session, err := s.store.Transition(ctx, sessionID, s.startGuard)
	if err != nil {
		metrics.PipelineRuns.WithLabelValues("rejected").Inc()
		var (
			validation *dto.ValidationError
			conflict   *dto.ConflictError
		)
		switch {
		case errors.Is(err, contract.ErrSessionNotFound):
			return nil, &dto.NotFoundError{Resource: "session", Id: sessionID}
		case errors.As(err, &validation):
			return nil, validation
		case errors.As(err, &conflict):
			return nil, conflict
		}
		return nil, &dto.PipelineError{SessionId: sessionID, Step: "start", Err: err}
	}
	s.publisher.PublishStatus(ctx, sessionID, entity.SessionStatusAnalyzing, "")
	s.logger.Info("PIPELINE", "Analysis started", map[string]interface{}{
		"session_id": sessionID,
		"images":     len(session.ImagePaths),
	})

	detected := s.gateway.DetectIngredients(ctx, session.ImagePaths)
	if len(detected.Ingredients) == 0 {
		return s.fail(ctx, sessionID, "detect", ErrNoIngredients, started)
	}
	if err := s.store.RecordIngredients(ctx, sessionID, detected.Ingredients, detected.Source); err != nil {
		return s.fail(ctx, sessionID, "record_ingredients", err, started)
	}
	if err := s.store.UpdateStatus(ctx, sessionID, entity.SessionStatusIngredientsReady); err != nil {
		return s.fail(ctx, sessionID, "record_ingredients", err, started)
	}
	s.publisher.PublishStatus(ctx, sessionID, entity.SessionStatusIngredientsReady, "")

	bargainItems, err := s.bargains.BargainItems(ctx)
	if err != nil {
		return s.fail(ctx, sessionID, "bargains", err, started)
	}

	planned := s.gateway.GeneratePlan(ctx, detected.Ingredients, detected.Source, bargainItems)
	if err := s.store.RecordResults(ctx, sessionID, planned.Plan, planned.ShoppingList, planned.Source); err != nil {
		return s.fail(ctx, sessionID, "record_results", err, started)
	}
	if err := s.store.UpdateStatus(ctx, sessionID, entity.SessionStatusDone); err != nil {
		return s.fail(ctx, sessionID, "record_results", err, started)
	}
	s.publisher.PublishStatus(ctx, sessionID, entity.SessionStatusDone, "")

	metrics.PipelineRuns.WithLabelValues("done").Inc()
	metrics.PipelineDuration.Observe(time.Since(started).Seconds())
	s.logger.Info("PIPELINE", "Analysis finished", map[string]interface{}{
		"session_id":        sessionID,
		"ingredients":       len(detected.Ingredients),
		"ingredient_source": string(detected.Source),
		"plan_source":       string(planned.Source),
		"duration_ms":       time.Since(started).Milliseconds(),
	})

	return &dto.AnalyzeResponse{
		Status:      string(entity.SessionStatusDone),
		Ingredients: detected.Ingredients,
		Source:      string(detected.Source),
	}, nil
}

// fail moves the session to error, keeping whatever was already recorded.
func (s *analysisService) fail(ctx context.Context, sessionID, step string, cause error, started time.Time) (*dto.AnalyzeResponse, error) {
	if err := s.store.UpdateStatus(ctx, sessionID, entity.SessionStatusError); err != nil {
		s.logger.Error("PIPELINE", "Failed to record error status", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
	}
	pipelineErr := &dto.PipelineError{SessionId: sessionID, Step: step, Err: cause}
	s.publisher.PublishStatus(ctx, sessionID, entity.SessionStatusError, pipelineErr.Error())

	metrics.PipelineRuns.WithLabelValues("error").Inc()
	metrics.PipelineDuration.Observe(time.Since(started).Seconds())
	s.logger.Error("PIPELINE", "Analysis failed", map[string]interface{}{
		"session_id": sessionID,
		"step":       step,
		"error":      cause.Error(),
	})
	return nil, pipelineErr
}
