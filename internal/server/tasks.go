package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"taskboard/internal/models"
	"taskboard/internal/storage/sqlite"
)

type taskRequest struct {
	Title          *string        `json:"title"`
	Description    *string        `json:"description"`
	Status         *string        `json:"status"`
	DueDate        *string        `json:"dueDate"`
	AssignedTo     *int64         `json:"assignedTo"`
	AssignedUserID *string        `json:"assignedUserId"`
	ProjectID      *models.FlexID `json:"projectId"`
}

// changes converts the body to storage changes. assignedTo wins over assignedUserId.
func (r taskRequest) changes() (sqlite.TaskChanges, error) {
	out := sqlite.TaskChanges{
		Title:       r.Title,
		Description: r.Description,
		DueDate:     r.DueDate,
		AssignedTo:  r.AssignedTo,
	}
	if r.Status != nil {
		status := models.TaskStatus(*r.Status)
		out.Status = &status
	}
	if out.AssignedTo == nil && r.AssignedUserID != nil {
		if *r.AssignedUserID == "" {
			var none int64
			out.AssignedTo = &none
		} else {
			id, err := strconv.ParseInt(*r.AssignedUserID, 10, 64)
			if err != nil {
				return sqlite.TaskChanges{}, badRequest(fmt.Sprintf("assignee %q does not exist", *r.AssignedUserID))
			}
			out.AssignedTo = &id
		}
	}
	if r.ProjectID != nil && *r.ProjectID != "" {
		id, ok := r.ProjectID.Int64()
		if !ok {
			return sqlite.TaskChanges{}, badRequest("invalid project identifier")
		}
		out.ProjectID = &id
	}
	return out, nil
}

// handleListTasks returns every task of the current user.
func (s *Server) handleListTasks(c *gin.Context) {
	tasks, err := s.store.ListTasks(c.Request.Context(), currentUserID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, tasks)
}

// handleListProjectTasks fetches the tasks of one project.
func (s *Server) handleListProjectTasks(c *gin.Context) {
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}

	tasks, err := s.store.ListProjectTasks(c.Request.Context(), currentUserID(c), projectID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, tasks)
}

// handleCreateTask inserts a new task into a project column.
func (s *Server) handleCreateTask(c *gin.Context) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, badRequest(err.Error()))
		return
	}
	changes, err := req.changes()
	if err != nil {
		s.respondError(c, err)
		return
	}

	task, err := s.store.CreateTask(c.Request.Context(), currentUserID(c), changes)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.metrics.ObserveMutation("task", "create")
	respondSuccess(c, http.StatusCreated, task)
}

// handleUpdateTask updates task fields such as status or assignee.
func (s *Server) handleUpdateTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, badRequest(err.Error()))
		return
	}
	changes, err := req.changes()
	if err != nil {
		s.respondError(c, err)
		return
	}

	task, err := s.store.UpdateTask(c.Request.Context(), currentUserID(c), id, changes)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.metrics.ObserveMutation("task", "update")
	respondSuccess(c, http.StatusOK, task)
}

// handleDeleteTask removes a task completely.
func (s *Server) handleDeleteTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := s.store.DeleteTask(c.Request.Context(), currentUserID(c), id); err != nil {
		s.respondError(c, err)
		return
	}
	s.metrics.ObserveMutation("task", "delete")
	respond(c, http.StatusOK, "deleted", nil)
}
