// Package auth manages accounts, sessions and the request middleware that
// attaches the current session to a request.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Session is a logged-in user. It exists from login until logout or expiry.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	User      *User     `json:"-"`
}

// Store persists users and sessions. Lookups return nil, nil when nothing matches.
type Store interface {
	CreateUser(ctx context.Context, u *User) error
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByID(ctx context.Context, id string) (*User, error)
	UpdateUser(ctx context.Context, u *User) error
	CreateSession(ctx context.Context, s *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	DeleteSession(ctx context.Context, id string) error
}

// Grant is returned by signup and login.
type Grant struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *User     `json:"user"`
}

// Service implements signup, login, logout and token authentication.
type Service struct {
	store  Store
	tokens *Tokens
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a Service issuing sessions that live for ttl.
func NewService(store Store, tokens *Tokens, ttl time.Duration, logger *zap.Logger) *Service {
	return &Service{store: store, tokens: tokens, ttl: ttl, logger: logger, now: time.Now}
}

// Signup creates an account with default targets and logs it in.
func (s *Service) Signup(ctx context.Context, name, email, password string) (*Grant, error) {
	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return nil, fmt.Errorf("%w: name, email and password are required", ErrInvalidSignup)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: invalid email address", ErrInvalidSignup)
	}
	if len(password) < MinPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidSignup, MinPasswordLength)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &User{
		Name:                name,
		Email:               email,
		PasswordHash:        hash,
		CalorieTarget:       DefaultCalorieTarget,
		MacroTargets:        MacroTargets{Protein: DefaultProteinTarget, Carbs: DefaultCarbsTarget, Fat: DefaultFatTarget},
		DietaryRestrictions: []string{},
		Allergies:           []string{},
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	s.logger.Info("user signed up", zap.String("user_id", u.ID))

	return s.grant(ctx, u)
}

// Login checks credentials and opens a new session.
func (s *Service) Login(ctx context.Context, email, password string) (*Grant, error) {
	u, err := s.store.GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrInvalidCredentials
	}

	ok, err := CheckPassword(u.PasswordHash, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	return s.grant(ctx, u)
}

func (s *Service) grant(ctx context.Context, u *User) (*Grant, error) {
	now := s.now().UTC()
	sess := &Session{UserID: u.ID, CreatedAt: now, ExpiresAt: now.Add(s.ttl)}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return nil, err
	}

	token, err := s.tokens.Sign(sess)
	if err != nil {
		return nil, err
	}
	return &Grant{Token: token, ExpiresAt: sess.ExpiresAt, User: u}, nil
}

// Logout ends the session. Its token stops working immediately.
func (s *Service) Logout(ctx context.Context, sess *Session) error {
	if sess == nil {
		return ErrAuthRequired
	}
	return s.store.DeleteSession(ctx, sess.ID)
}

// Authenticate resolves a bearer token to a live session with its user loaded.
// A token whose session was deleted or expired is rejected even if the token
// itself has not expired.
func (s *Service) Authenticate(ctx context.Context, token string) (*Session, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}

	sess, err := s.store.GetSession(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if sess == nil || sess.UserID != claims.Subject || !s.now().Before(sess.ExpiresAt) {
		return nil, ErrAuthRequired
	}

	u, err := s.store.GetUserByID(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrAuthRequired
	}
	sess.User = u
	return sess, nil
}

// UpdateProfile validates p and stores it on the session's user.
func (s *Service) UpdateProfile(ctx context.Context, sess *Session, p ProfileUpdate) (*User, error) {
	if sess == nil || sess.User == nil {
		return nil, ErrAuthRequired
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	u := *sess.User
	p.apply(&u)
	if err := s.store.UpdateUser(ctx, &u); err != nil {
		return nil, err
	}
	sess.User = &u
	return &u, nil
}

// IsClientError reports whether err was caused by bad input rather than a
// failing dependency.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidSignup) || errors.Is(err, ErrInvalidProfile)
}
