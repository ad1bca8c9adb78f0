package dto

import "time"

type ResetFallbackResponse struct {
	Cleared int `json:"cleared"`
}

type ResetSchemaResponse struct {
	Tables []string `json:"tables"`
}

type SessionBackendResponse struct {
	SessionId string `json:"session_id"`
	Backend   string `json:"backend"`
}

type SessionSummary struct {
	Id         string    `json:"id"`
	Status     string    `json:"status"`
	ImageCount int       `json:"image_count"`
	Backend    string    `json:"backend"`
	CreatedAt  time.Time `json:"created_at"`
}

type ListSessionsRequest struct {
	Status string `query:"status" validate:"omitempty,oneof=waiting uploaded analyzing ingredients_ready done error"`
	Limit  int    `query:"limit" validate:"omitempty,min=1,max=100"`
}

type GetLogsRequest struct {
	Level  string `query:"level" validate:"omitempty,oneof=DEBUG INFO WARN ERROR"`
	Limit  int    `query:"limit" validate:"omitempty,min=1,max=500"`
	Offset int    `query:"offset" validate:"omitempty,min=0"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Db      string `json:"db"`
	Gateway string `json:"gateway"`
}
