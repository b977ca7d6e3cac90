package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/sgst/sgst-api/internal/model"
	"github.com/sgst/sgst-api/internal/queue"
	"github.com/sgst/sgst-api/internal/repository"
	"github.com/sgst/sgst-api/internal/utils"
)

// MembershipLookup is the part of the tenant directory the auth flow needs.
type MembershipLookup interface {
	ActiveMembership(ctx context.Context, userID uint64) (model.MembershipContext, error)
}

// AuthService implements login, registration, workshop login and logout.
type AuthService struct {
	users       UserStore
	memberships MembershipLookup
	tokens      *TokenService
	bcryptCost  int
	dummyHash   string
	events      EventPublisher
	logger      *slog.Logger
}

func NewAuthService(users UserStore, memberships MembershipLookup, tokens *TokenService, bcryptCost int, events EventPublisher, logger *slog.Logger) *AuthService {
	return &AuthService{
		users:       users,
		memberships: memberships,
		tokens:      tokens,
		bcryptCost:  bcryptCost,
		dummyHash:   utils.DummyHash(bcryptCost),
		events:      events,
		logger:      logger,
	}
}

// Registration is the input of Register.
type Registration struct {
	Name     string
	Surname  string
	Email    string
	Phone    string
	Password string
}

// Session is the outcome of a successful login or registration.
type Session struct {
	User      model.User
	Principal model.Principal
	Tokens    TokenPair
}

// Login checks the credentials and opens a new session.  Unknown email,
// inactive account and wrong password all fail with ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (Session, error) {
	u, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			_ = utils.VerifyPassword(s.dummyHash, password)
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}
	if !utils.VerifyPassword(u.PasswordHash, password) || !u.IsActive {
		return Session{}, ErrInvalidCredentials
	}

	pair, err := s.tokens.Issue(ctx, u)
	if err != nil {
		return Session{}, err
	}
	publish(ctx, s.events, s.logger, queue.NewEvent(queue.UserLoggedIn, u.ID))
	return Session{User: u, Principal: model.NewPrincipal(u.ID, u.CompanyID), Tokens: pair}, nil
}

// Register validates the input, creates a user without a company and opens
// a session for it.  Nothing is written when validation fails.
func (s *AuthService) Register(ctx context.Context, r Registration) (Session, error) {
	r.Name = strings.TrimSpace(r.Name)
	r.Surname = strings.TrimSpace(r.Surname)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Phone = strings.TrimSpace(r.Phone)

	if err := required("name", r.Name); err != nil {
		return Session{}, err
	}
	if err := required("surname", r.Surname); err != nil {
		return Session{}, err
	}
	if err := validateEmail(r.Email); err != nil {
		return Session{}, err
	}
	if err := ValidatePassword(r.Password); err != nil {
		return Session{}, err
	}
	if err := ValidatePhone(r.Phone); err != nil {
		return Session{}, err
	}

	exists, err := s.users.EmailExists(ctx, r.Email)
	if err != nil {
		return Session{}, err
	}
	if exists {
		return Session{}, ErrDuplicateEmail
	}

	hash, err := utils.HashPassword(r.Password, s.bcryptCost)
	if err != nil {
		return Session{}, err
	}
	u := model.User{
		Name:         r.Name,
		Surname:      r.Surname,
		Email:        r.Email,
		Phone:        r.Phone,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, &u); err != nil {
		// The unique index catches a concurrent registration of the same email.
		if errors.Is(err, repository.ErrEmailExists) {
			return Session{}, ErrDuplicateEmail
		}
		return Session{}, err
	}
	s.logger.Info("user registered", "user_id", u.ID)

	pair, err := s.tokens.Issue(ctx, u)
	if err != nil {
		return Session{}, err
	}
	publish(ctx, s.events, s.logger, queue.NewEvent(queue.UserRegistered, u.ID))
	return Session{User: u, Principal: model.NewPrincipal(u.ID, nil), Tokens: pair}, nil
}

// LoginWorkshop returns the workshop context implied by the access token:
// an employee's single active membership.  It returns nil, not an error,
// for administrators and for employees without a membership.
func (s *AuthService) LoginWorkshop(ctx context.Context, accessToken string) (*model.MembershipContext, error) {
	p, err := s.tokens.Verify(accessToken)
	if err != nil {
		return nil, err
	}
	if !p.IsEmployee() {
		return nil, nil
	}
	mc, err := s.memberships.ActiveMembership(ctx, p.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &mc, nil
}

// LogoutPlan tells the transport which credentials to clear.
type LogoutPlan struct {
	ClearSession  bool
	ClearWorkshop bool
}

// Logout decides what a logout clears and revokes the refresh session when
// the session credentials go.  An administrator leaving a selected workshop
// keeps the session and only drops the workshop context.  Without a valid
// access token the role is unknown: with no workshop selected everyone loses
// the session, otherwise ErrInvalidSession asks the client to refresh first.
func (s *AuthService) Logout(ctx context.Context, p *model.Principal, hasWorkshop bool, refreshToken string) (LogoutPlan, error) {
	if p == nil && hasWorkshop {
		return LogoutPlan{}, ErrInvalidSession
	}
	plan := LogoutPlan{ClearWorkshop: true}
	if p == nil || p.IsEmployee() || !hasWorkshop {
		plan.ClearSession = true
	}
	if !plan.ClearSession {
		return plan, nil
	}
	if err := s.tokens.Revoke(ctx, refreshToken); err != nil {
		return plan, err
	}
	if p != nil {
		publish(ctx, s.events, s.logger, queue.NewEvent(queue.SessionRevoked, p.UserID))
	}
	return plan, nil
}

// Profile returns the user behind p.  A user deleted since the token was
// issued yields ErrInvalidSession.
func (s *AuthService) Profile(ctx context.Context, p model.Principal) (model.User, error) {
	u, err := s.users.GetByID(ctx, p.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, ErrInvalidSession
		}
		return model.User{}, err
	}
	return u, nil
}
