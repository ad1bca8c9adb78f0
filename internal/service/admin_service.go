package service

import (
	"context"
	"fmt"

	"smart-meal-be/internal/dto"
	"smart-meal-be/internal/entity"
	"smart-meal-be/internal/pkg/logger"
	"smart-meal-be/internal/repository/contract"
	"smart-meal-be/internal/repository/fallback"
)

// SchemaResetter drops and recreates the durable tables.
type SchemaResetter interface {
	ResetSchema(ctx context.Context) ([]string, error)
}

type IAdminService interface {
	ResetFallback(ctx context.Context) (*dto.ResetFallbackResponse, error)
	ResetSchema(ctx context.Context) (*dto.ResetSchemaResponse, error)
	GetSessionBackend(ctx context.Context, sessionID string) *dto.SessionBackendResponse
	ListSessions(ctx context.Context, req *dto.ListSessionsRequest) ([]*dto.SessionSummary, error)
	GetSystemLogs(ctx context.Context, req *dto.GetLogsRequest) ([]logger.LogEntry, error)
}

type adminService struct {
	store        *fallback.SessionStore
	schema       SchemaResetter
	isProduction bool
	logger       logger.ILogger
}

// NewAdminService builds the operator surface. schema is nil when no durable
// database is configured.
func NewAdminService(store *fallback.SessionStore, schema SchemaResetter, isProduction bool, log logger.ILogger) IAdminService {
	return &adminService{
		store:        store,
		schema:       schema,
		isProduction: isProduction,
		logger:       log,
	}
}

func (s *adminService) ResetFallback(ctx context.Context) (*dto.ResetFallbackResponse, error) {
	cleared, err := s.store.ClearAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("clear in-memory sessions: %w", err)
	}
	s.logger.Warn("ADMIN", "In-memory sessions reset", map[string]interface{}{"cleared": cleared})
	return &dto.ResetFallbackResponse{Cleared: cleared}, nil
}

func (s *adminService) ResetSchema(ctx context.Context) (*dto.ResetSchemaResponse, error) {
	if s.isProduction {
		return nil, &dto.ForbiddenError{Message: "schema reset is disabled in production"}
	}
	if s.schema == nil || !s.store.HasDurable() {
		return nil, &dto.ForbiddenError{Message: "no durable database configured"}
	}

	tables, err := s.schema.ResetSchema(ctx)
	if err != nil {
		return nil, fmt.Errorf("reset schema: %w", err)
	}
	forgotten := s.store.Forget(fallback.BackendDurable)
	s.logger.Warn("ADMIN", "Durable schema dropped and recreated", map[string]interface{}{
		"tables":         tables,
		"routes_cleared": forgotten,
	})
	return &dto.ResetSchemaResponse{Tables: tables}, nil
}

func (s *adminService) GetSessionBackend(ctx context.Context, sessionID string) *dto.SessionBackendResponse {
	return &dto.SessionBackendResponse{
		SessionId: sessionID,
		Backend:   string(s.store.Owner(sessionID)),
	}
}

func (s *adminService) ListSessions(ctx context.Context, req *dto.ListSessionsRequest) ([]*dto.SessionSummary, error) {
	limit := req.Limit
	if limit == 0 {
		limit = 20
	}
	sessions, err := s.store.List(ctx, contract.ListFilter{
		Status: entity.SessionStatus(req.Status),
		Limit:  limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	res := make([]*dto.SessionSummary, 0, len(sessions))
	for _, session := range sessions {
		res = append(res, &dto.SessionSummary{
			Id:         session.Id,
			Status:     string(session.Status),
			ImageCount: len(session.ImagePaths),
			Backend:    string(s.store.Owner(session.Id)),
			CreatedAt:  session.CreatedAt,
		})
	}
	return res, nil
}

func (s *adminService) GetSystemLogs(ctx context.Context, req *dto.GetLogsRequest) ([]logger.LogEntry, error) {
	limit := req.Limit
	if limit == 0 {
		limit = 50
	}
	entries, err := s.logger.GetLogs(req.Level, limit, req.Offset)
	if err != nil {
		return nil, fmt.Errorf("read logs: %w", err)
	}
	return entries, nil
}
