package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"taskboard/internal/auth"
	"taskboard/internal/metrics"
	"taskboard/internal/models"
	"taskboard/internal/storage/sqlite"
)

const (
	requestIDHeader = "X-Request-ID"
	claimsKey       = "claims"
)

// Server provides the HTTP handlers of the taskboard backend.
type Server struct {
	engine  *gin.Engine
	store   *sqlite.Store
	tokens  *auth.TokenManager
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time

	indexPath string
}

// New constructs the HTTP server with routes and middleware configured. A nil
// registry gets a private one.
func New(store *sqlite.Store, tokens *auth.TokenManager, m *metrics.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = metrics.New()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestID())
	router.Use(m.Middleware())

	srv := &Server{
		engine:  router,
		store:   store,
		tokens:  tokens,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
	router.Use(srv.accessLog())

	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerRoutes wires the API, health and metrics handlers together.
func (s *Server) registerRoutes() {
	s.engine.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	api := s.engine.Group("/api")
	{
		api.GET("/healthz", s.handleHealth)
		api.POST("/auth/login", s.handleLogin)

		authed := api.Group("", s.requireAuth())
		authed.GET("/auth/me", s.handleMe)
		authed.GET("/users", s.handleListUsers)

		projects := authed.Group("/projects")
		{
			projects.GET("", s.handleListProjects)
			projects.POST("", s.handleCreateProject)
			projects.PUT(":id", s.handleUpdateProject)
			projects.DELETE(":id", s.handleDeleteProject)
		}

		tasks := authed.Group("/tasks")
		{
			tasks.GET("", s.handleListTasks)
			tasks.GET("/project/:id", s.handleListProjectTasks)
			tasks.POST("", s.handleCreateTask)
			tasks.PUT(":id", s.handleUpdateTask)
			tasks.DELETE(":id", s.handleDeleteTask)
		}
	}

	s.engine.NoRoute(s.handleNoRoute)
}

// handleHealth reports whether the database answers.
func (s *Server) handleHealth(c *gin.Context) {
	if err := s.store.Ping(c.Request.Context()); err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "ok"})
}

// requestID propagates or assigns the X-Request-ID header.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDHeader, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", c.GetString(requestIDHeader)),
		)
	}
}

// requireAuth rejects requests without a valid bearer token.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.ExtractToken(c.GetHeader("Authorization"))
		if err != nil {
			respond(c, http.StatusUnauthorized, "authentication required", nil)
			c.Abort()
			return
		}
		claims, err := s.tokens.Validate(token)
		if err != nil {
			s.logger.Debug("rejected token", slog.String("error", err.Error()))
			respond(c, http.StatusUnauthorized, "invalid or expired token", nil)
			c.Abort()
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

func currentUserID(c *gin.Context) int64 {
	if claims, ok := c.Get(claimsKey); ok {
		return claims.(*auth.Claims).ID
	}
	return 0
}

// parseID converts a path parameter to int64 with error handling.
func parseID(c *gin.Context, name string) (int64, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		respond(c, http.StatusBadRequest, "invalid identifier", nil)
		return 0, false
	}
	return id, true
}

type envelope struct {
	StatusCode int    `json:"statusCode"`
	Status     string `json:"status"`
	Message    string `json:"message"`
	Data       any    `json:"data"`
}

func respond(c *gin.Context, status int, message string, data any) {
	outcome := "success"
	if status >= http.StatusBadRequest {
		outcome = "error"
	}
	c.JSON(status, envelope{StatusCode: status, Status: outcome, Message: message, Data: data})
}

// respondError logs the error and maps it to a status code and message.
func (s *Server) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			slog.String("path", c.FullPath()),
			slog.String("request_id", c.GetString(requestIDHeader)),
			slog.String("error", err.Error()))
		message = "internal server error"
	}
	respond(c, status, message, nil)
}

// respondSuccess wraps a payload in the response envelope.
func respondSuccess(c *gin.Context, status int, payload any) {
	respond(c, status, "ok", payload)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, sqlite.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, sqlite.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, sqlite.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, sqlite.ErrInvalidInput), errors.Is(err, models.ErrInvalidStatus), errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

var errBadRequest = errors.New("bad request")

type badRequest string

func (e badRequest) Error() string { return string(e) }

func (e badRequest) Is(target error) bool { return target == errBadRequest }
