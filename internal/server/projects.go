package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taskboard/internal/models"
)

// handleListProjects returns the projects of the current user.
func (s *Server) handleListProjects(c *gin.Context) {
	projects, err := s.store.ListProjects(c.Request.Context(), currentUserID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, projects)
}

// handleCreateProject creates a new project entity.
func (s *Server) handleCreateProject(c *gin.Context) {
	var req models.ProjectInput
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, badRequest(err.Error()))
		return
	}

	project, err := s.store.CreateProject(c.Request.Context(), currentUserID(c), req.Name, req.Description)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.metrics.ObserveMutation("project", "create")
	respondSuccess(c, http.StatusCreated, project)
}

// handleUpdateProject changes the fields present in the body.
func (s *Server) handleUpdateProject(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req models.ProjectPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, badRequest(err.Error()))
		return
	}

	project, err := s.store.UpdateProject(c.Request.Context(), currentUserID(c), id, req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.metrics.ObserveMutation("project", "update")
	respondSuccess(c, http.StatusOK, project)
}

// handleDeleteProject removes a project and all related tasks.
func (s *Server) handleDeleteProject(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := s.store.DeleteProject(c.Request.Context(), currentUserID(c), id); err != nil {
		s.respondError(c, err)
		return
	}
	s.metrics.ObserveMutation("project", "delete")
	respond(c, http.StatusOK, "deleted", nil)
}
