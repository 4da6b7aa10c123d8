package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/timetomeet/internal/errors"
	"github.com/jrsteele09/timetomeet/sessions"
	"github.com/jrsteele09/timetomeet/token"
	"github.com/jrsteele09/timetomeet/users"
	"github.com/rs/zerolog/log"
)

// SignUpRequest carries the fields accepted by the signup endpoint
type SignUpRequest struct {
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	MobileNumber string `json:"mobileNumber"`
	CountryCode  string `json:"countryCode"`
}

// Repos holds all repository dependencies for the AccountService
type Repos struct {
	Users users.UserRepo // Repository for user data
}

// ResetTokenIssuer signs the token mailed in a password reset link
type ResetTokenIssuer interface {
	Issue(claims token.IdentityClaims) (*token.Issued, error)
}

// ResetTokenVerifier checks a reset token's signature and expiry
type ResetTokenVerifier interface {
	VerifyWithoutSecret(rawToken string) (*token.IdentityClaims, error)
}

// ResetTokens are the signing dependencies of the password reset flow
type ResetTokens struct {
	Issuer   ResetTokenIssuer
	Verifier ResetTokenVerifier
}

// AccountService handles signup and password login, delegating the session
// lifecycle to sessions.Manager.
type AccountService struct {
	repos    Repos
	sessions *sessions.Manager
	reset    ResetTokens
	mailer   Mailer
	resetURL string
	nowTime  func() time.Time
}

// AccountServiceOption defines a function type to modify the AccountService instance.
type AccountServiceOption func(*AccountService)

// WithMailer sets where account emails are delivered. Defaults to LogMailer.
func WithMailer(m Mailer) AccountServiceOption {
	return func(as *AccountService) {
		as.mailer = m
	}
}

// WithResetURL sets the link prefix the reset token is appended to
func WithResetURL(url string) AccountServiceOption {
	return func(as *AccountService) {
		as.resetURL = url
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) AccountServiceOption {
	return func(as *AccountService) {
		as.nowTime = nowFunc
	}
}

func NewAccountService(repos Repos, sessionManager *sessions.Manager, reset ResetTokens, options ...AccountServiceOption) (*AccountService, error) {
	if repos.Users == nil {
		return nil, errors.New("[NewAccountService] Users repo is required")
	}
	if sessionManager == nil {
		return nil, errors.New("[NewAccountService] session manager is required")
	}
	if reset.Issuer == nil || reset.Verifier == nil {
		return nil, errors.New("[NewAccountService] reset token issuer and verifier are required")
	}

	as := &AccountService{
		repos:    repos,
		sessions: sessionManager,
		reset:    reset,
		mailer:   LogMailer{},
		resetURL: "/reset-password?validationToken=",
		nowTime:  time.Now,
	}

	for _, opt := range options {
		opt(as)
	}
	return as, nil
}

// SignUp registers a new user. Users whose last name ends in "admin" become
// meeting organizers.
func (as *AccountService) SignUp(ctx context.Context, req SignUpRequest) (*users.User, error) {
	if strings.TrimSpace(req.Email) == "" {
		return nil, apperrors.Mark(apperrors.ErrInvalidRequest, errors.New("one or more parameters is missing"))
	}
	if err := users.ValidateEmail(strings.TrimSpace(req.Email)); err != nil {
		return nil, apperrors.Mark(apperrors.ErrInvalidRequest, err)
	}
	if strings.TrimSpace(req.Password) == "" {
		return nil, apperrors.Mark(apperrors.ErrInvalidRequest, errors.New("password parameter is missing"))
	}

	passwordHash, err := users.HashPassword(req.Password)
	if err != nil {
		return nil, apperrors.Mark(apperrors.ErrInternal, err)
	}

	user := &users.User{
		ID:           uuid.New().String(),
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Email:        users.NormalizeEmail(req.Email),
		MobileNumber: req.MobileNumber,
		CountryCode:  req.CountryCode,
		PasswordHash: passwordHash,
		Permissions:  users.PermissionFromLastName(strings.TrimSpace(req.LastName)),
		CreatedOn:    as.nowTime(),
	}

	if _, err := as.repos.Users.GetByEmail(ctx, user.Email); err == nil {
		return nil, apperrors.ErrUserExists
	} else if !errors.Is(err, apperrors.ErrUserNotFound) {
		return nil, apperrors.Mark(apperrors.ErrInternal, err)
	}

	if err := as.repos.Users.Create(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrUserExists) {
			return nil, err
		}
		log.Err(err).Str("email", user.Email).Msg("SignUp: failed to create user")
		return nil, apperrors.Mark(apperrors.ErrInternal, err)
	}

	log.Info().Str("userId", user.ID).Str("permissions", string(user.Permissions)).Msg("User created")
	return user, nil
}

// Login checks the password and opens a session for the user
func (as *AccountService) Login(ctx context.Context, email, password string) (*sessions.LoginResult, error) {
	if strings.TrimSpace(email) == "" {
		return nil, apperrors.Mark(apperrors.ErrInvalidRequest, errors.New("email parameter is missing"))
	}
	if password == "" {
		return nil, apperrors.Mark(apperrors.ErrInvalidRequest, errors.New("password field is missing"))
	}

	user, err := as.repos.Users.GetByEmail(ctx, users.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, err
		}
		return nil, apperrors.Mark(apperrors.ErrInternal, err)
	}

	if !users.CheckPasswordHash(password, user.PasswordHash) {
		log.Info().Str("userId", user.ID).Msg("Login failed due to invalid password")
		return nil, apperrors.ErrInvalidCredentials
	}

	return as.sessions.Login(ctx, token.ClaimsFromUser(user))
}

// Logout closes the user's session
func (as *AccountService) Logout(ctx context.Context, userID string) error {
	return as.sessions.Logout(ctx, userID)
}

// GetUser returns a single user's public details
func (as *AccountService) GetUser(ctx context.Context, userID string) (*users.User, error) {
	user, err := as.repos.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, err
		}
		return nil, apperrors.Mark(apperrors.ErrInternal, err)
	}
	return user, nil
}

// ListParticipants returns every user an organizer can invite, i.e. all
// users without admin permission.
func (as *AccountService) ListParticipants(ctx context.Context) ([]*users.User, error) {
	all, err := as.repos.Users.List(ctx)
	if err != nil {
		return nil, apperrors.Mark(apperrors.ErrInternal, err)
	}

	participants := make([]*users.User, 0, len(all))
	for _, u := range all {
		if u.Permissions == users.PermissionUser {
			participants = append(participants, u)
		}
	}
	if len(participants) == 0 {
		return nil, apperrors.ErrUserNotFound
	}
	return participants, nil
}
