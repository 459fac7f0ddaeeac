package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"beanhealth/internal/config"
	"beanhealth/internal/domain"
	"beanhealth/internal/metrics"
	"beanhealth/internal/util"
)

// LoginResult is the body of a successful POST /api/auth/login
type LoginResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// CreateUserParams describes a new staff account
type CreateUserParams struct {
	Username string
	Email    string
	Password string
	FullName string
	IsAdmin  bool
	IsStaff  bool
}

// AuthService handles staff logins and token checks
type AuthService struct {
	db     *gorm.DB
	cfg    *config.AuthConfig
	logger *zap.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(db *gorm.DB, cfg *config.AuthConfig, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{db: db, cfg: cfg, logger: logger}
}

// Login checks the credentials and issues a bearer token
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	// Trim whitespace from credentials
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)

	s.logger.Info("login attempt", zap.String("username", username))

	if username == "" || password == "" {
		metrics.RecordAuthAttempt(false)
		return nil, BadRequest(errors.New("username and password are required"))
	}

	var user domain.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		metrics.RecordAuthAttempt(false)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Info("login failed: user not found", zap.String("username", username))
			return nil, Unauthorized("incorrect username or password")
		}
		s.logger.Error("login failed: database error", zap.String("username", username), zap.Error(err))
		return nil, Internal("failed to look up user")
	}

	if !util.CheckPasswordHash(password, user.HashedPassword) {
		s.logger.Info("login failed: invalid password", zap.String("username", username))
		metrics.RecordAuthAttempt(false)
		return nil, Unauthorized("incorrect username or password")
	}

	if !user.IsActive {
		s.logger.Info("login failed: user inactive", zap.String("username", username))
		metrics.RecordAuthAttempt(false)
		return nil, Unauthorized("user account is inactive")
	}

	// Update last login
	now := time.Now().UTC()
	if err := s.db.WithContext(ctx).Model(&user).Update("last_login", now).Error; err != nil {
		s.logger.Warn("failed to record last login", zap.String("username", username), zap.Error(err))
	}

	token, err := util.GenerateToken(s.cfg, &user)
	if err != nil {
		s.logger.Error("login failed: token generation error", zap.String("username", username), zap.Error(err))
		return nil, Internal("failed to generate token")
	}

	s.logger.Info("login successful", zap.String("username", username), zap.Uint("id", user.ID), zap.Bool("admin", user.IsAdmin), zap.Bool("staff", user.IsStaff))
	metrics.RecordAuthAttempt(true)

	return &LoginResult{
		AccessToken: token,
		TokenType:   "bearer",
	}, nil
}

// Authenticate resolves a bearer token to an active user
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	claims, err := util.ValidateToken(s.cfg, token)
	if err != nil {
		return nil, Unauthorized("invalid or expired token")
	}

	var user domain.User
	if err := s.db.WithContext(ctx).Where("username = ?", claims.Username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, Unauthorized("user not found")
		}
		s.logger.Error("token check failed: database error", zap.Error(err))
		return nil, Internal("failed to look up user")
	}

	if !user.IsActive {
		return nil, Unauthorized("user account is inactive")
	}

	return &user, nil
}

// CreateUser stores a new account with a bcrypt-hashed password
func (s *AuthService) CreateUser(ctx context.Context, p CreateUserParams) (*domain.User, error) {
	// Trim and normalize inputs
	username := strings.TrimSpace(p.Username)
	email := strings.ToLower(strings.TrimSpace(p.Email))
	password := strings.TrimSpace(p.Password)

	if username == "" || email == "" || password == "" {
		return nil, BadRequest(errors.New("username, email and password are required"))
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&domain.User{}).Where("username = ? OR email = ?", username, email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check existing users: %w", err)
	}
	if count > 0 {
		return nil, BadRequest(errors.New("username or email already registered"))
	}

	hashedPassword, err := util.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := domain.User{
		Username:       username,
		Email:          email,
		HashedPassword: hashedPassword,
		IsActive:       true,
		IsAdmin:        p.IsAdmin,
		IsStaff:        p.IsStaff || p.IsAdmin,
	}
	if fullName := strings.TrimSpace(p.FullName); fullName != "" {
		user.FullName = &fullName
	}

	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user created", zap.String("username", username), zap.Uint("id", user.ID), zap.Bool("admin", user.IsAdmin))
	return &user, nil
}
