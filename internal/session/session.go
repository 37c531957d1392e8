// Package session tracks who the client is logged in as.
package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"taskboard/internal/api"
	"taskboard/internal/auth"
	"taskboard/internal/models"
	"taskboard/internal/normalize"
	"taskboard/internal/reactive"
	"taskboard/internal/validate"
)

// ErrInvalidToken reports a stored token whose claims cannot be read.
var ErrInvalidToken = errors.New("session token is invalid")

// Authenticator exchanges credentials for a token.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (string, error)
}

// TokenStore persists the session token.
type TokenStore interface {
	Token() (string, error)
	SetToken(token string) error
	ClearToken() error
}

// Phase is the authentication lifecycle state.
type Phase string

const (
	PhaseAnonymous      Phase = "anonymous"
	PhaseAuthenticating Phase = "authenticating"
	PhaseAuthenticated  Phase = "authenticated"
	PhaseError          Phase = "error"
)

// State is the snapshot published to subscribers.
type State struct {
	Phase   Phase
	User    *models.User
	Loading bool
	Err     string
}

// Authenticated reports whether a user is attached.
func (s State) Authenticated() bool {
	return s.Phase == PhaseAuthenticated && s.User != nil
}

// Session holds the current user. Overlapping logins resolve in favour of the one
// issued last; results of earlier attempts, or of attempts overtaken by Logout, are
// dropped.
type Session struct {
	auth   Authenticator
	tokens TokenStore
	logger *slog.Logger
	now    func() time.Time

	state *reactive.Value[State]

	// mu guards generation and serializes applying results with the token store.
	mu         sync.Mutex
	generation uint64
}

// Option customizes a Session.
type Option func(*Session)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock sets the clock used to stamp users decoded from tokens.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates an anonymous session.
func New(authenticator Authenticator, tokens TokenStore, opts ...Option) *Session {
	s := &Session{
		auth:   authenticator,
		tokens: tokens,
		logger: slog.Default(),
		now:    time.Now,
		state:  reactive.New(State{Phase: PhaseAnonymous}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login authenticates with the backend, stores the token and derives the user from
// the token claims. It reports whether this call left the session authenticated.
func (s *Session) Login(ctx context.Context, email, password string) bool {
	email = strings.TrimSpace(email)

	if err := validate.Credentials(email, password); err != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.generation++
		s.state.Set(State{Phase: PhaseError, Err: err.Error()})
		return false
	}

	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.state.Update(func(st State) State {
		st.Phase = PhaseAuthenticating
		st.Loading = true
		st.Err = ""
		return st
	})
	s.mu.Unlock()

	token, err := s.auth.Login(ctx, email, password)
	if err != nil {
		return s.finishLogin(gen, "", nil, err)
	}
	user, err := s.userFromToken(token)
	if err != nil {
		return s.finishLogin(gen, "", nil, err)
	}
	return s.finishLogin(gen, token, &user, nil)
}

func (s *Session) finishLogin(gen uint64, token string, user *models.User, loginErr error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		s.logger.Debug("discarding superseded login")
		return false
	}

	if loginErr == nil {
		if err := s.tokens.SetToken(token); err != nil {
			loginErr = err
		}
	}

	if loginErr != nil {
		s.logger.Warn("login failed", slog.String("error", loginErr.Error()))
		s.state.Set(State{Phase: PhaseError, Err: api.Message(loginErr)})
		return false
	}

	s.logger.Info("logged in", slog.String("email", user.Email))
	s.state.Set(State{Phase: PhaseAuthenticated, User: user})
	return true
}

// Logout forgets the token and the user. Any login still in flight is discarded.
func (s *Session) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	if err := s.tokens.ClearToken(); err != nil {
		s.logger.Warn("unable to clear token", slog.String("error", err.Error()))
	}
	s.state.Set(State{Phase: PhaseAnonymous})
	s.logger.Info("logged out")
}

// GetCurrentUser restores the session from the stored token. A missing token leaves
// the session anonymous and returns a nil user without an error; an unreadable one
// leaves it anonymous with the error surfaced.
func (s *Session) GetCurrentUser(ctx context.Context) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	token, err := s.tokens.Token()
	if err != nil {
		s.state.Set(State{Phase: PhaseAnonymous, Err: err.Error()})
		return nil, err
	}
	if token == "" {
		s.state.Set(State{Phase: PhaseAnonymous})
		return nil, nil
	}

	user, err := s.userFromToken(token)
	if err != nil {
		s.logger.Warn("stored token rejected", slog.String("error", err.Error()))
		s.state.Set(State{Phase: PhaseAnonymous, Err: err.Error()})
		return nil, err
	}
	s.state.Set(State{Phase: PhaseAuthenticated, User: &user})
	return &user, nil
}

func (s *Session) userFromToken(token string) (models.User, error) {
	claims, err := auth.Decode(token)
	if err != nil {
		return models.User{}, errors.Join(ErrInvalidToken, err)
	}
	email := claims.Email()
	username := email
	if at := strings.IndexByte(email, '@'); at > 0 {
		username = email[:at]
	}
	return normalize.User(models.UserRecord{
		IDUser:   claims.ID,
		Email:    email,
		Username: username,
		Role:     claims.Role,
	}, s.now()), nil
}

// ClearError drops the last error without changing the phase, except that an error
// phase returns to anonymous.
func (s *Session) ClearError() {
	s.state.Update(func(st State) State {
		st.Err = ""
		if st.Phase == PhaseError {
			st.Phase = PhaseAnonymous
		}
		return st
	})
}

// State returns the current snapshot.
func (s *Session) State() State {
	return s.state.Get()
}

// Subscribe registers fn for every state change.
func (s *Session) Subscribe(fn func(State)) (unsubscribe func()) {
	return s.state.Subscribe(fn)
}

func (s *Session) CurrentUser() *models.User {
	return s.state.Get().User
}

func (s *Session) IsAuthenticated() bool {
	return s.state.Get().Authenticated()
}

func (s *Session) IsLoading() bool {
	return s.state.Get().Loading
}

func (s *Session) LastError() string {
	return s.state.Get().Err
}

func (s *Session) Phase() Phase {
	return s.state.Get().Phase
}
