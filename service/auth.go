package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/TIANLI0/TissueKit/config"
	"github.com/TIANLI0/TissueKit/model"
	"github.com/TIANLI0/TissueKit/store"
	"github.com/TIANLI0/TissueKit/utils"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid token")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrEmailTaken         = errors.New("email already exists")
)

// UserStore persistence needed by AuthService
type UserStore interface {
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	Exists(ctx context.Context, username, email string) (bool, bool, error)
	Create(ctx context.Context, u *model.User) error
	TouchLogin(ctx context.Context, id int64, at time.Time) error
}

// Claims bearer token payload
type Claims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// AuthService registers users and issues HS256 bearer tokens
type AuthService struct {
	users  UserStore
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewAuthService(cfg *config.AuthConfig, users UserStore) *AuthService {
	return &AuthService{
		users:  users,
		secret: []byte(cfg.Secret),
		ttl:    cfg.TokenTTL,
		now:    time.Now,
	}
}

// Register hashes the password and creates the user.
func (s *AuthService) Register(ctx context.Context, username, email, password string, roles []string) (*model.User, error) {
	usernameTaken, emailTaken, err := s.users.Exists(ctx, username, email)
	if err != nil {
		return nil, err
	}
	if usernameTaken {
		return nil, ErrUsernameTaken
	}
	if emailTaken {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	if len(roles) == 0 {
		roles = []string{model.RoleUser}
	}

	u := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Roles:        roles,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login checks the password and returns a signed token.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	u, err := s.users.FindByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	if err := s.users.TouchLogin(ctx, u.ID, s.now()); err != nil {
		utils.Logger.Warn("failed to record login", zap.String("username", u.Username), zap.Error(err))
	}
	return s.IssueToken(u.Username, u.Roles)
}

// IssueToken signs a token for subject with roles.
func (s *AuthService) IssueToken(subject string, roles []string) (string, error) {
	now := s.now()
	claims := Claims{
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// ParseToken validates signature and expiry.
func (s *AuthService) ParseToken(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" || claims.Roles == nil {
		return nil, fmt.Errorf("%w: missing subject or roles", ErrInvalidToken)
	}
	return claims, nil
}
