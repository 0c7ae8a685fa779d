package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/FACorreiaa/go-tour-bookings/config"
	"github.com/FACorreiaa/go-tour-bookings/internal/api"
	"github.com/FACorreiaa/go-tour-bookings/internal/mail"
	"github.com/FACorreiaa/go-tour-bookings/internal/types"
)

// resetTokenTTL bounds how long a password reset link stays usable.
const resetTokenTTL = 10 * time.Minute

var _ Service = (*ServiceImpl)(nil)

// Service covers credential management and token issuance. Handlers own the
// HTTP shape (cookies, envelopes); the service owns the rules.
type Service interface {
	Signup(ctx context.Context, req types.SignupRequest) (*types.TokenPayload, error)
	Login(ctx context.Context, email, password string) (*types.TokenPayload, error)
	// VerifyToken validates the signature and registered claims, then checks
	// the principal still exists, is active, and has not changed their
	// password since the token was issued.
	VerifyToken(ctx context.Context, tokenString string) (*types.User, error)
	ForgotPassword(ctx context.Context, email, resetURLBase string) error
	ResetPassword(ctx context.Context, token, password, confirm string) (*types.TokenPayload, error)
	UpdatePassword(ctx context.Context, userID uuid.UUID, current, password, confirm string) (*types.TokenPayload, error)
}

type ServiceImpl struct {
	logger *slog.Logger
	repo   Repository
	mailer mail.Mailer
	cfg    config.JWTConfig
}

func NewService(repo Repository, mailer mail.Mailer, cfg config.JWTConfig, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger: logger,
		repo:   repo,
		mailer: mailer,
		cfg:    cfg,
	}
}

func validatePassword(password, confirm string) error {
	if len(password) < 8 {
		return api.NewError(http.StatusBadRequest, "password must be at least 8 characters long")
	}
	if password != confirm {
		return api.NewError(http.StatusBadRequest, "passwords do not match")
	}
	return nil
}

func (s *ServiceImpl) mintToken(user *types.User) (string, error) {
	now := time.Now()
	claims := types.Claims{
		UserID: user.ID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			Issuer:    s.cfg.Issuer,
			Audience:  jwt.ClaimStrings{s.cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.AccessTokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.SecretKey))
	if err != nil {
		return "", fmt.Errorf("signing access token: %w", err)
	}
	return signed, nil
}

func (s *ServiceImpl) tokenPayload(user *types.User) (*types.TokenPayload, error) {
	token, err := s.mintToken(user)
	if err != nil {
		return nil, err
	}
	return &types.TokenPayload{Token: token, User: user}, nil
}

func (s *ServiceImpl) Signup(ctx context.Context, req types.SignupRequest) (*types.TokenPayload, error) {
	l := s.logger.With(slog.String("method", "Signup"), slog.String("email", req.Email))

	if req.Name == "" || req.Email == "" {
		return nil, api.NewError(http.StatusBadRequest, "name and email are required")
	}
	if err := validatePassword(req.Password, req.PasswordConfirm); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user, err := s.repo.CreateUser(ctx, req.Name, req.Email, string(hash))
	if err != nil {
		return nil, err
	}
	l.InfoContext(ctx, "user registered", slog.String("user_id", user.ID.String()))

	if err := s.mailer.SendWelcome(ctx, user.Email, user.Name); err != nil {
		// Signup already succeeded, the welcome mail is best effort.
		l.WarnContext(ctx, "failed to send welcome email", slog.Any("error", err))
	}

	return s.tokenPayload(user)
}

func (s *ServiceImpl) Login(ctx context.Context, email, password string) (*types.TokenPayload, error) {
	l := s.logger.With(slog.String("method", "Login"), slog.String("email", email))

	if email == "" || password == "" {
		return nil, api.NewError(http.StatusBadRequest, "please provide email and password")
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			// Same message whether the email or the password was wrong.
			return nil, api.NewError(http.StatusUnauthorized, "incorrect email or password")
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		l.WarnContext(ctx, "failed login attempt")
		return nil, api.NewError(http.StatusUnauthorized, "incorrect email or password")
	}

	return s.tokenPayload(user)
}

func (s *ServiceImpl) VerifyToken(ctx context.Context, tokenString string) (*types.User, error) {
	claims := &types.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.cfg.SecretKey), nil
	}, jwt.WithIssuer(s.cfg.Issuer), jwt.WithAudience(s.cfg.Audience))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("token failed validation: %w", api.ErrUnauthenticated)
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("malformed subject claim: %w", api.ErrUnauthenticated)
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return nil, api.NewError(http.StatusUnauthorized, "the user belonging to this token no longer exists")
		}
		return nil, err
	}

	// jwt issued-at claims carry whole seconds only, so the change stamp is
	// compared at the same granularity. Otherwise a token minted right after
	// a password change would be rejected by its own sub-second remainder.
	if user.PasswordChangedAt != nil && claims.IssuedAt != nil &&
		user.PasswordChangedAt.Truncate(time.Second).After(claims.IssuedAt.Time) {
		return nil, api.NewError(http.StatusUnauthorized, "password was changed after this token was issued, please log in again")
	}

	return user, nil
}

// generateResetToken returns the plaintext token for the email link and the
// sha256 hex digest that gets persisted. Only the digest ever touches the
// database.
func generateResetToken() (plain, digest string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generating reset token: %w", err)
	}
	plain = hex.EncodeToString(buf)
	sum := sha256.Sum256([]byte(plain))
	return plain, hex.EncodeToString(sum[:]), nil
}

func hashResetToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

func (s *ServiceImpl) ForgotPassword(ctx context.Context, email, resetURLBase string) error {
	l := s.logger.With(slog.String("method", "ForgotPassword"), slog.String("email", email))

	if email == "" {
		return api.NewError(http.StatusBadRequest, "please provide your email address")
	}

	plain, digest, err := generateResetToken()
	if err != nil {
		return err
	}

	user, err := s.repo.SetPasswordResetToken(ctx, email, digest, time.Now().Add(resetTokenTTL))
	if err != nil {
		return err
	}

	resetURL := fmt.Sprintf("%s/%s", resetURLBase, plain)
	if err := s.mailer.SendPasswordReset(ctx, user.Email, user.Name, resetURL); err != nil {
		// Invalidate the token so a stored digest never outlives a mail we
		// could not deliver.
		if clearErr := s.repo.ClearPasswordResetToken(ctx, user.ID); clearErr != nil {
			l.ErrorContext(ctx, "failed to clear reset token after mail failure", slog.Any("error", clearErr))
		}
		return fmt.Errorf("there was an error sending the email, try again later: %w", err)
	}

	l.InfoContext(ctx, "password reset email sent")
	return nil
}

func (s *ServiceImpl) ResetPassword(ctx context.Context, token, password, confirm string) (*types.TokenPayload, error) {
	if err := validatePassword(password, confirm); err != nil {
		return nil, err
	}

	user, err := s.repo.GetUserByResetToken(ctx, hashResetToken(token))
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return nil, api.NewError(http.StatusBadRequest, "token is invalid or has expired")
		}
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	if err := s.repo.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "password reset completed", slog.String("user_id", user.ID.String()))
	return s.tokenPayload(user)
}

func (s *ServiceImpl) UpdatePassword(ctx context.Context, userID uuid.UUID, current, password, confirm string) (*types.TokenPayload, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return nil, api.NewError(http.StatusUnauthorized, "your current password is wrong")
	}
	if err := validatePassword(password, confirm); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	if err := s.repo.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return nil, err
	}

	return s.tokenPayload(user)
}
