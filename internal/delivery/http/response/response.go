package response

import "github.com/user/stay-harvester/internal/entity"

type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse reports every pinged dependency as "healthy" or "unhealthy".
type HealthResponse struct {
	Status string            `json:"status"` // "ok", "degraded"
	Checks map[string]string `json:"checks"`
}

type RunsResponse struct {
	Runs []*entity.RunSummary `json:"runs"`
}

type StartRunResponse struct {
	Status string `json:"status"`
}
