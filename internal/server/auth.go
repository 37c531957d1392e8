package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"taskboard/internal/storage/sqlite"
)

type loginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// handleLogin exchanges form credentials for a bearer token.
func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		s.respondError(c, badRequest(err.Error()))
		return
	}
	if req.Email == "" || req.Password == "" {
		s.respondError(c, badRequest("email and password are required"))
		return
	}

	user, err := s.store.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.metrics.ObserveLogin("failure")
		if errors.Is(err, sqlite.ErrInvalidCredentials) {
			respond(c, http.StatusUnauthorized, "invalid email or password", nil)
			return
		}
		s.respondError(c, err)
		return
	}

	token, err := s.tokens.Issue(user.IDUser, user.Email, user.Role, s.now())
	if err != nil {
		s.metrics.ObserveLogin("failure")
		s.respondError(c, err)
		return
	}
	s.metrics.ObserveLogin("success")
	s.logger.Info("user logged in", "user_id", user.IDUser)
	respondSuccess(c, http.StatusOK, gin.H{"token": token})
}

// handleMe returns the user the token was issued to.
func (s *Server) handleMe(c *gin.Context) {
	user, err := s.store.GetUser(c.Request.Context(), currentUserID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, user)
}

// handleListUsers returns every user tasks can be assigned to.
func (s *Server) handleListUsers(c *gin.Context) {
	users, err := s.store.ListUsers(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, users)
}
