package service

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/maintenance-service/internal/auth"
	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/mailer"
	"github.com/spec-kit/maintenance-service/internal/repository"
	apperrors "github.com/spec-kit/maintenance-service/pkg/util/errorutil"
)

const minPasswordLength = 6

// TokenIssuer signs access tokens.
type TokenIssuer interface {
	GenerateToken(userID string, role domain.Role) (string, time.Time, error)
}

// AuthService handles registration, login and password resets.
type AuthService struct {
	users      repository.UserRepository
	resets     repository.PasswordResetRepository
	tokens     TokenIssuer
	mail       Mailer
	resetURL   string
	resetTTL   time.Duration
	bcryptCost int
	logger     *zap.Logger
}

// AuthDependencies bundles collaborators for the auth service.
type AuthDependencies struct {
	UserRepo          repository.UserRepository
	PasswordResetRepo repository.PasswordResetRepository
	Tokens            TokenIssuer
	Mailer            Mailer
	ResetPasswordURL  string
	ResetTokenTTL     time.Duration
	BcryptCost        int
	Logger            *zap.Logger
}

// RegisterInput describes a new account.
type RegisterInput struct {
	Name     string
	Email    string
	Phone    string
	Password string
	Role     string
}

// LoginResult is returned on successful sign-in.
type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *domain.User `json:"user"`
}

// NewAuthService constructs the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	ttl := deps.ResetTokenTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &AuthService{
		users:      deps.UserRepo,
		resets:     deps.PasswordResetRepo,
		tokens:     deps.Tokens,
		mail:       deps.Mailer,
		resetURL:   strings.TrimRight(deps.ResetPasswordURL, "/"),
		resetTTL:   ttl,
		bcryptCost: deps.BcryptCost,
		logger:     nopLogger(deps.Logger),
	}
}

// Register creates an account. Role defaults to client; legacy uppercase
// role names are accepted.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, apperrors.NewValidationError("email is required", map[string]any{"field": "email"})
	}
	if len(input.Password) < minPasswordLength {
		return nil, apperrors.NewValidationError("password must be at least 6 characters", map[string]any{"field": "password"})
	}
	role := domain.RoleClient
	if strings.TrimSpace(input.Role) != "" {
		role = domain.ParseRole(input.Role)
		if !role.Valid() {
			return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": input.Role})
		}
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("A user with this email already exists.", map[string]any{"email": email})
	} else if !apperrors.IsNotFound(err) {
		return nil, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	user := &domain.User{
		Name:     strings.TrimSpace(input.Name),
		Email:    email,
		Phone:    strings.TrimSpace(input.Phone),
		Password: hash,
		Role:     role,
		Status:   domain.UserStatusActive,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// Login verifies credentials and issues a token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	invalid := apperrors.NewUnauthorized("Invalid credentials")
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, invalid
		}
		return nil, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(user.Password, password); err != nil {
		return nil, invalid
	}
	if user.Status == domain.UserStatusInactive {
		return nil, apperrors.NewUnauthorized("account inactive")
	}

	role := domain.ParseRole(string(user.Role))
	token, expires, err := s.tokens.GenerateToken(user.ID.Hex(), role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	user.Role = role
	return &LoginResult{Token: token, ExpiresAt: expires, User: user}, nil
}

// ForgotPassword emails a single-use reset link.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return apperrors.NewValidationError("email is required", map[string]any{"field": "email"})
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewNotFound("user", map[string]any{"email": email})
		}
		return apperrors.MapError(err)
	}

	token, err := auth.NewResetToken()
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if err := s.resets.Create(ctx, token, user.ID.Hex(), s.resetTTL); err != nil {
		return apperrors.MapError(err)
	}

	data := mailer.Data{ResetURL: s.resetURL + "/" + token, ExpiresIn: humanDuration(s.resetTTL)}
	if err := s.mail.Send(ctx, mailer.KindPasswordReset, []string{user.Email}, data); err != nil {
		s.logger.Error("reset email failed", zap.String("user_id", user.ID.Hex()), zap.Error(err))
		return apperrors.NewDomainError("INTERNAL_ERROR", "Failed to send reset email.", http.StatusInternalServerError, nil)
	}
	return nil
}

// ResetPassword consumes a reset token and stores the new password.
func (s *AuthService) ResetPassword(ctx context.Context, token, password string) error {
	if len(password) < minPasswordLength {
		return apperrors.NewValidationError("password must be at least 6 characters", map[string]any{"field": "password"})
	}
	userID, err := s.resets.Consume(ctx, strings.TrimSpace(token))
	if err != nil {
		if errors.Is(err, repository.ErrResetTokenNotFound) {
			return apperrors.NewValidationError("Invalid or expired token", nil)
		}
		return apperrors.MapError(err)
	}
	user, err := s.users.GetByID(ctx, userID)
	if user, err = lookup(user, err, "user", userID); err != nil {
		return err
	}
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	user.Password = hash
	if err := s.users.Update(ctx, user); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// ListUsers returns accounts, optionally narrowed by role.
func (s *AuthService) ListUsers(ctx context.Context, role string) ([]domain.User, error) {
	var filter repository.UserFilter
	if strings.TrimSpace(role) != "" {
		r := domain.ParseRole(role)
		if !r.Valid() {
			return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": role})
		}
		filter.Roles = []domain.Role{r}
	}
	users, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return users, nil
}

// GetUser loads one account.
func (s *AuthService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	if err := requireID("id", id); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, id)
	return lookup(user, err, "user", id)
}

func humanDuration(d time.Duration) string {
	if d%time.Hour == 0 {
		h := int(d / time.Hour)
		if h == 1 {
			return "1 hour"
		}
		return strconv.Itoa(h) + " hours"
	}
	return strconv.Itoa(int(d/time.Minute)) + " minutes"
}
