package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/siterank/siterank-go/internal/domain/entities"
	apperrors "github.com/siterank/siterank-go/pkg/errors"
)

// State is the auth state of the process. Loading is distinct from
// Anonymous so callers can wait for restoration instead of treating a
// not-yet-restored session as logged out.
type State int

const (
	StateLoading State = iota
	StateAnonymous
	StateAuthenticated
)

// Authenticator is the slice of the backend API the store needs to mutate
// session state. Satisfied by the SiteRank client.
type Authenticator interface {
	Login(ctx context.Context, req entities.LoginRequest) (*entities.TokenResponse, error)
	Register(ctx context.Context, req entities.RegisterRequest) (*entities.TokenResponse, error)
}

// Store is the single source of truth for the active session. All mutation
// goes through Login, Register and Logout; every mutation writes through to
// the persisted session file.
type Store struct {
	mu      sync.RWMutex
	path    string
	state   State
	session *entities.Session
}

// NewStore creates a session store persisting to path. The store starts in
// the Loading state until Restore is called.
func NewStore(path string) *Store {
	return &Store{
		path:  path,
		state: StateLoading,
	}
}

// Restore loads the persisted session, if any. A missing file or an expired
// token restores to the Anonymous state; corruption is reported but still
// leaves the store usable.
func (s *Store) Restore() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.state = StateAnonymous
		return nil
	}
	if err != nil {
		s.state = StateAnonymous
		return fmt.Errorf("reading session file: %w", err)
	}

	var sess entities.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		s.state = StateAnonymous
		return fmt.Errorf("parsing session file: %w", err)
	}

	if sess.Token == "" || tokenExpired(sess.Token) {
		s.state = StateAnonymous
		_ = os.Remove(s.path)
		return nil
	}

	s.session = &sess
	s.state = StateAuthenticated
	return nil
}

// State returns the current auth state
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Session returns a copy of the active session
func (s *Store) Session() (entities.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return entities.Session{}, false
	}
	return *s.session, true
}

// Token returns the active bearer token, or empty when anonymous. Never
// errors: anonymous callers proceed without credentials.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return ""
	}
	return s.session.Token
}

// AuthHeader returns the Authorization header for the active session, or an
// empty map when there is none
func (s *Store) AuthHeader() map[string]string {
	token := s.Token()
	if token == "" {
		return map[string]string{}
	}
	return map[string]string{"Authorization": "Bearer " + token}
}

// Login authenticates against the backend and stores the issued session
func (s *Store) Login(ctx context.Context, api Authenticator, email, password string) (*entities.User, error) {
	if email == "" {
		return nil, apperrors.NewValidationError("email", "email is required")
	}
	if password == "" {
		return nil, apperrors.NewValidationError("password", "password is required")
	}

	resp, err := api.Login(ctx, entities.LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	return s.adopt(resp)
}

// Register creates an account and stores the issued session
func (s *Store) Register(ctx context.Context, api Authenticator, name, email, password string) (*entities.User, error) {
	if name == "" {
		return nil, apperrors.NewValidationError("name", "name is required")
	}
	if email == "" {
		return nil, apperrors.NewValidationError("email", "email is required")
	}
	if password == "" {
		return nil, apperrors.NewValidationError("password", "password is required")
	}

	resp, err := api.Register(ctx, entities.RegisterRequest{Name: name, Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	return s.adopt(resp)
}

// Logout clears the in-memory session and removes the persisted file
func (s *Store) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.session = nil
	s.state = StateAnonymous

	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing session file: %w", err)
	}
	return nil
}

func (s *Store) adopt(resp *entities.TokenResponse) (*entities.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := entities.Session{User: resp.User, Token: resp.AccessToken}
	if err := s.persist(&sess); err != nil {
		return nil, err
	}
	s.session = &sess
	s.state = StateAuthenticated
	user := resp.User
	return &user, nil
}

func (s *Store) persist(sess *entities.Session) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("creating session dir: %w", err)
	}
	raw, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		return fmt.Errorf("writing session file: %w", err)
	}
	return nil
}

// tokenExpired inspects the token's exp claim without verifying the
// signature; verification belongs to the backend. Tokens that don't parse
// as JWTs are kept and left for the backend to reject.
func tokenExpired(token string) bool {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return false
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(time.Now())
}
