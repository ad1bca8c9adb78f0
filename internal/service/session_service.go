package service

import (
	"context"
	"errors"
	"fmt"

	"smart-meal-be/internal/dto"
	"smart-meal-be/internal/entity"
	"smart-meal-be/internal/pkg/logger"
	"smart-meal-be/internal/repository/contract"
	"smart-meal-be/internal/repository/fallback"
)

const maxSessionIdLength = 64

// ImageStore persists uploaded image bytes and hands back an opaque ref.
type ImageStore interface {
	Save(sessionID, filename string, data []byte) (string, error)
	Remove(ref string) error
}

type ISessionService interface {
	Create(ctx context.Context) (*dto.CreateSessionResponse, error)
	UploadImages(ctx context.Context, sessionID string, files []dto.UploadFile) (*dto.UploadImagesResponse, error)
	GetStatus(ctx context.Context, sessionID string) (*dto.SessionStatusResponse, error)
	GetResult(ctx context.Context, sessionID string) (*dto.SessionResultResponse, error)
}

type sessionService struct {
	store     *fallback.SessionStore
	images    ImageStore
	publisher IPublisherService
	policy    entity.RerunPolicy
	logger    logger.ILogger
}

func NewSessionService(
	store *fallback.SessionStore,
	images ImageStore,
	publisher IPublisherService,
	policy entity.RerunPolicy,
	log logger.ILogger,
) ISessionService {
	return &sessionService{
		store:     store,
		images:    images,
		publisher: publisher,
		policy:    policy,
		logger:    log,
	}
}

func (s *sessionService) Create(ctx context.Context) (*dto.CreateSessionResponse, error) {
	id, err := s.store.Create(ctx)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	s.logger.Info("SESSION", "Session created", map[string]interface{}{
		"session_id": id,
		"backend":    string(s.store.Owner(id)),
	})
	return &dto.CreateSessionResponse{SessionId: id}, nil
}

// uploadGuard allows uploads until analysis starts. Finished sessions accept
// uploads only when re-runs are allowed.
func (s *sessionService) uploadGuard(current *entity.Session) (entity.SessionStatus, error) {
	if current.Status.IsInFlight() {
		return "", &dto.ConflictError{Message: "analysis in progress; uploads are closed"}
	}
	if !current.Status.CanTransitionTo(entity.SessionStatusUploaded, s.policy) {
		return "", &dto.ConflictError{Message: fmt.Sprintf("session is %s; uploads are closed", current.Status)}
	}
	return entity.SessionStatusUploaded, nil
}

func (s *sessionService) UploadImages(ctx context.Context, sessionID string, files []dto.UploadFile) (*dto.UploadImagesResponse, error) {
	if sessionID == "" || len(sessionID) > maxSessionIdLength {
		return nil, &dto.ValidationError{Message: "invalid session id"}
	}
	if len(files) == 0 {
		return nil, &dto.ValidationError{Message: "no files uploaded"}
	}

	// Cheap pre-check so a closed session does not leave files behind.
	if current, err := s.store.Get(ctx, sessionID); err == nil {
		if _, err := s.uploadGuard(current); err != nil {
			return nil, err
		}
	}

	refs := make([]string, 0, len(files))
	for _, f := range files {
		ref, err := s.images.Save(sessionID, f.Filename, f.Data)
		if err != nil {
			s.discard(refs)
			return nil, fmt.Errorf("save upload: %w", err)
		}
		refs = append(refs, ref)
	}

	session, err := s.store.AppendImages(ctx, sessionID, refs, s.uploadGuard)
	if err != nil {
		s.discard(refs)
		var conflict *dto.ConflictError
		if errors.As(err, &conflict) {
			return nil, conflict
		}
		return nil, fmt.Errorf("append images: %w", err)
	}

	s.publisher.PublishStatus(ctx, sessionID, session.Status, "")
	s.logger.Info("SESSION", "Images uploaded", map[string]interface{}{
		"session_id": sessionID,
		"added":      len(refs),
		"total":      len(session.ImagePaths),
	})

	return &dto.UploadImagesResponse{
		Status: string(session.Status),
		Count:  len(refs),
		Paths:  refs,
	}, nil
}

func (s *sessionService) discard(refs []string) {
	for _, ref := range refs {
		if err := s.images.Remove(ref); err != nil {
			s.logger.Warn("SESSION", "Failed to remove orphaned upload", map[string]interface{}{
				"ref":   ref,
				"error": err.Error(),
			})
		}
	}
}

// GetStatus never fails for unknown ids: a session the client has not
// uploaded to yet simply reads as waiting.
func (s *sessionService) GetStatus(ctx context.Context, sessionID string) (*dto.SessionStatusResponse, error) {
	session, err := s.store.Get(ctx, sessionID)
	if errors.Is(err, contract.ErrSessionNotFound) {
		return &dto.SessionStatusResponse{Status: string(entity.SessionStatusWaiting)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	return &dto.SessionStatusResponse{
		Status:           string(session.Status),
		ImageCount:       len(session.ImagePaths),
		Ingredients:      session.DetectedIngredients,
		MealPlan:         session.MealPlan,
		ShoppingList:     session.ShoppingList,
		IngredientSource: string(session.IngredientSource),
		PlanSource:       string(session.PlanSource),
	}, nil
}

func (s *sessionService) GetResult(ctx context.Context, sessionID string) (*dto.SessionResultResponse, error) {
	session, err := s.store.Get(ctx, sessionID)
	if errors.Is(err, contract.ErrSessionNotFound) {
		return nil, &dto.NotFoundError{Resource: "session", Id: sessionID}
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	return &dto.SessionResultResponse{
		Status:       string(session.Status),
		Ingredients:  session.DetectedIngredients,
		MealPlan:     session.MealPlan,
		ShoppingList: session.ShoppingList,
		PlanSource:   string(session.PlanSource),
	}, nil
}
