package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gwi.com/knsystem/internal/auth"
	"gwi.com/knsystem/internal/store"
)

const invalidCredentials = "Invalid credentials"

type AuthService struct {
	dbStore *store.SQLiteStore
	tokens  *auth.TokenManager
	logger  *zap.Logger
}

func NewAuthService(db *store.SQLiteStore, tokens *auth.TokenManager, logger *zap.Logger) *AuthService {
	return &AuthService{dbStore: db, tokens: tokens, logger: logger}
}

type LoginResult struct {
	Token string      `json:"token"`
	User  *store.User `json:"user"`
}

// Signup registers an inactive user. No token is issued until an admin
// activates the account.
func (s *AuthService) Signup(ctx context.Context, username, email, password string) (*store.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" || password == "" {
		return nil, validation("Username, email, and password are required")
	}

	exists, err := s.dbStore.UserExists(ctx, username, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, newError(ErrConflict, "Username or email already exists")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user, err := s.dbStore.CreateUser(ctx, username, email, hash, auth.RoleUser, false)
	if errors.Is(err, store.ErrConflict) {
		// Lost a race with a concurrent signup for the same name.
		return nil, newError(ErrConflict, "Username or email already exists")
	}
	if err != nil {
		return nil, err
	}
	s.logger.Info("user registered", zap.Int64("user_id", user.ID), zap.String("username", user.Username))
	return user, nil
}

// Login answers unknown users and wrong passwords identically so usernames
// cannot be enumerated. Activation is checked only after the password.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	if username == "" || password == "" {
		return nil, validation("Username and password are required")
	}

	user, err := s.dbStore.GetUserByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return nil, newError(ErrUnauthorized, invalidCredentials)
	}
	if err != nil {
		return nil, err
	}
	if !auth.CheckPasswordHash(password, user.PasswordHash) {
		return nil, newError(ErrUnauthorized, invalidCredentials)
	}
	if !user.IsActivated {
		return nil, newError(ErrForbidden, "Account not activated. Please contact an administrator.")
	}

	if err := s.dbStore.TouchLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn("failed to record last login", zap.Int64("user_id", user.ID), zap.Error(err))
	}
	token, err := s.tokens.GenerateJWT(auth.Identity{ID: user.ID, Username: user.Username, Role: user.Role})
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return &LoginResult{Token: token, User: user}, nil
}

func (s *AuthService) Me(ctx context.Context, id auth.Identity) (*store.User, error) {
	user, err := s.dbStore.GetUserByID(ctx, id.ID)
	return user, translate(err, "User not found")
}

// ChangePassword replaces the caller's hash. Tokens issued before the change
// stay valid until they expire.
func (s *AuthService) ChangePassword(ctx context.Context, id auth.Identity, current, next string) error {
	if current == "" || next == "" {
		return validation("Current password and new password are required")
	}
	user, err := s.dbStore.GetUserByID(ctx, id.ID)
	if err != nil {
		return translate(err, "User not found")
	}
	if !auth.CheckPasswordHash(current, user.PasswordHash) {
		return newError(ErrUnauthorized, "Current password is incorrect")
	}
	hash, err := auth.HashPassword(next)
	if err != nil {
		return err
	}
	return translate(s.dbStore.UpdateUserPassword(ctx, user.ID, hash), "User not found")
}

func (s *AuthService) ListUsers(ctx context.Context) ([]store.User, error) {
	return s.dbStore.ListUsers(ctx)
}

func (s *AuthService) SetRole(ctx context.Context, userID int64, role string) error {
	if role != auth.RoleAdmin && role != auth.RoleUser {
		return validation("Valid role is required (admin or user)")
	}
	if err := s.dbStore.UpdateUserRole(ctx, userID, role); err != nil {
		return translate(err, "User not found")
	}
	s.logger.Info("user role changed", zap.Int64("user_id", userID), zap.String("role", role))
	return nil
}

// SetActivation requires an explicit value; a nil activate is rejected.
func (s *AuthService) SetActivation(ctx context.Context, userID int64, activate *bool) error {
	if activate == nil {
		return validation("Activation status is required")
	}
	if err := s.dbStore.SetUserActivation(ctx, userID, *activate); err != nil {
		return translate(err, "User not found")
	}
	s.logger.Info("user activation changed", zap.Int64("user_id", userID), zap.Bool("activated", *activate))
	return nil
}

// EnsureAdmin seeds an activated admin account unless the username or
// email is already taken. An empty password disables seeding.
func (s *AuthService) EnsureAdmin(ctx context.Context, username, email, password string) error {
	if password == "" {
		s.logger.Warn("ADMIN_PASSWORD not set, skipping admin account seeding")
		return nil
	}
	exists, err := s.dbStore.UserExists(ctx, username, email)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	if _, err := s.dbStore.CreateUser(ctx, username, email, hash, auth.RoleAdmin, true); err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}
	s.logger.Info("seeded admin account", zap.String("username", username))
	return nil
}
