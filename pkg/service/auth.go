package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/example/bidshop/pkg/config"
	"github.com/example/bidshop/pkg/errs"
	"github.com/example/bidshop/pkg/models"
	"github.com/example/bidshop/pkg/repository"
)

// AuthService is the identity provider: it issues bearer tokens and turns
// them back into a Caller. The engines never touch tokens themselves.
type AuthService interface {
	Register(ctx context.Context, name, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (string, *models.User, error)
	Verify(token string) (*Caller, error)
	// Profile returns the stored account for an authenticated caller. Token
	// claims can lag behind the database (an admin grant, a rename); this
	// is the fresh view.
	Profile(ctx context.Context, userID string) (*models.User, error)
}

type authClaims struct {
	jwt.RegisteredClaims
	Name  string `json:"name"`
	Admin bool   `json:"admin"`
}

type authService struct {
	users  repository.UserRepository
	cfg    config.JWTConfig
	logger *zap.Logger
}

func NewAuthService(users repository.UserRepository, cfg config.JWTConfig, logger *zap.Logger) AuthService {
	return &authService{users: users, cfg: cfg, logger: logger}
}

func (s *authService) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errs.Validation("name is required")
	}
	if strings.TrimSpace(email) == "" {
		return nil, errs.Validation("email is required")
	}
	if len(password) < 8 {
		return nil, errs.Validation("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errs.Internal(err, "failed to hash password")
	}

	user := &models.User{
		ID:           newID(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.users.Insert(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("User registered", zap.String("user_id", user.ID))
	return user, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errs.IsKind(err, errs.KindNotFound) {
			return "", nil, errs.Forbidden("invalid email or password")
		}
		return "", nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, errs.Forbidden("invalid email or password")
	}

	now := time.Now()
	claims := authClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TTL)),
		},
		Name:  user.Name,
		Admin: user.Admin,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", nil, errs.Internal(err, "failed to sign token")
	}
	return token, user, nil
}

func (s *authService) Verify(token string) (*Caller, error) {
	var claims authClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(s.cfg.Secret), nil
	})
	if err != nil || !parsed.Valid {
		return nil, errs.Forbidden("invalid or expired token")
	}
	return &Caller{ID: claims.Subject, Name: claims.Name, Admin: claims.Admin}, nil
}

func (s *authService) Profile(ctx context.Context, userID string) (*models.User, error) {
	return s.users.GetByID(ctx, userID)
}
