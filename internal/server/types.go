package server

import "time"

// createProjectRequest is the body of POST /projects.
type createProjectRequest struct {
	Name string `json:"name" binding:"required"`
}

// createStatusRequest is the body of POST /projects/{token}/statuses.
// Message may be empty but must be present; Timestamp is optional.
type createStatusRequest struct {
	Message   *string    `json:"message" binding:"required"`
	Timestamp *time.Time `json:"timestamp"`
}

// ProjectResponse describes a newly created project.
type ProjectResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Link string `json:"link"`
}

// StatusResponse is an accepted status.
type StatusResponse struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthResponse is returned by the health endpoints.
type HealthResponse struct {
	Status    string    `json:"status"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	Projects  int       `json:"projects"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"requestId"`
	Timestamp time.Time      `json:"timestamp"`
}
