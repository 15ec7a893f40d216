package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jpalmerr/mishpulse/internal/registry"
)

// handleRoot returns a static banner.
func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "MishPulse backend is running"})
}

// handleHealth reports liveness and the number of registered projects.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		Service:   serviceName,
		Version:   s.config.Version,
		Projects:  s.registry.Len(),
		Timestamp: time.Now().UTC(),
	})
}

// handleCreateProject registers a project and returns its submission link.
func (s *Server) handleCreateProject(c *gin.Context) {
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid request body",
			map[string]any{"error": err.Error()})
		return
	}

	project, err := s.registry.CreateProject(req.Name)
	if err != nil {
		s.writeRegistryError(c, err)
		return
	}
	projectsCreated.Inc()

	c.JSON(http.StatusCreated, ProjectResponse{
		ID:   project.ID,
		Name: project.Name,
		Link: s.Link(project.Token),
	})
}

// handleAppendStatus accepts a status for the project identified by token.
func (s *Server) handleAppendStatus(c *gin.Context) {
	var req createStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid request body",
			map[string]any{"error": err.Error()})
		return
	}

	status, err := s.registry.AppendStatus(c.Request.Context(), c.Param("token"), *req.Message, req.Timestamp)
	if err != nil {
		statusesRejected.WithLabelValues(string(registry.CodeOf(err))).Inc()
		s.writeRegistryError(c, err)
		return
	}
	statusesAccepted.Inc()

	c.JSON(http.StatusCreated, toStatusResponse(status))
}

// handleListStatuses returns the ordered status history of a project.
func (s *Server) handleListStatuses(c *gin.Context) {
	statuses, err := s.registry.ListStatuses(c.Param("token"))
	if err != nil {
		s.writeRegistryError(c, err)
		return
	}

	resp := make([]StatusResponse, len(statuses))
	for i, st := range statuses {
		resp[i] = toStatusResponse(st)
	}

	c.Header("Cache-Control", "no-cache")
	c.JSON(http.StatusOK, resp)
}

func toStatusResponse(st registry.Status) StatusResponse {
	return StatusResponse{Message: st.Message, Timestamp: st.Timestamp}
}
