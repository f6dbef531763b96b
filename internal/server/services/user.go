// Package services contains server-side business logic. This file implements
// UserService: registration, login, logout, refresh-token rotation, password
// change and access-token authentication.
package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/vidtube/internal/common"
	"github.com/dmitrijs2005/vidtube/internal/server/auth"
	"github.com/dmitrijs2005/vidtube/internal/server/models"
	"github.com/dmitrijs2005/vidtube/internal/server/passwords"
	"github.com/dmitrijs2005/vidtube/internal/server/repositories/repomanager"
)

// RegisterInput is a registration request. AvatarURL is the already stored
// avatar; CoverImageURL is optional.
type RegisterInput struct {
	FullName      string
	Email         string
	UserName      string
	Password      string
	AvatarURL     string
	CoverImageURL string
}

func (in RegisterInput) normalize() RegisterInput {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.UserName = strings.ToLower(strings.TrimSpace(in.UserName))
	in.AvatarURL = strings.TrimSpace(in.AvatarURL)
	in.CoverImageURL = strings.TrimSpace(in.CoverImageURL)
	return in
}

type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      *passwords.Hasher
	tokens      *auth.Issuer
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, hasher *passwords.Hasher, tokens *auth.Issuer) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		hasher:      hasher,
		tokens:      tokens,
	}
}

// ValidateRegistration runs the checks Register performs before it needs the
// avatar, so callers can reject a request before storing any media.
func (s *UserService) ValidateRegistration(ctx context.Context, in RegisterInput) error {
	in = in.normalize()

	if in.FullName == "" || in.Email == "" || in.UserName == "" || strings.TrimSpace(in.Password) == "" {
		return fmt.Errorf("%w: all fields are required", common.ErrValidation)
	}

	exists, err := s.repomanager.Users(s.db).ExistsByUserNameOrEmail(ctx, in.UserName, in.Email)
	if err != nil {
		return fmt.Errorf("error checking user: %w", err)
	}
	if exists {
		return fmt.Errorf("%w: user with email or username already exists", common.ErrConflict)
	}
	return nil
}

// Register creates a user. The existence check is not atomic with the insert;
// the unique indexes reject a concurrent duplicate with common.ErrConflict.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.PublicUser, error) {
	if err := s.ValidateRegistration(ctx, in); err != nil {
		return nil, err
	}

	in = in.normalize()
	if in.AvatarURL == "" {
		return nil, fmt.Errorf("%w: avatar file is required", common.ErrValidation)
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return nil, err
	}

	user, err := s.repomanager.Users(s.db).Create(ctx, &models.User{
		UserName:      in.UserName,
		Email:         in.Email,
		FullName:      in.FullName,
		PasswordHash:  hash,
		AvatarURL:     in.AvatarURL,
		CoverImageURL: in.CoverImageURL,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	return user.Public(), nil
}

// Login accepts a username or an email as identifier and stores the new
// refresh token on the user, replacing any previous one.
func (s *UserService) Login(ctx context.Context, identifier, password string) (*models.PublicUser, *models.TokenPair, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, nil, fmt.Errorf("%w: username or email is required", common.ErrValidation)
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetUserByLogin(ctx, identifier)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: user does not exist", common.ErrNotFound)
		}
		return nil, nil, fmt.Errorf("error searching user: %w", err)
	}

	if !s.hasher.Verify(ctx, password, user.PasswordHash) {
		return nil, nil, fmt.Errorf("%w: invalid user credentials", common.ErrUnauthorized)
	}

	pair, err := s.generateTokenPair(user)
	if err != nil {
		return nil, nil, err
	}
	if err := repo.SetRefreshToken(ctx, user.ID, pair.RefreshToken); err != nil {
		return nil, nil, fmt.Errorf("error saving refresh token: %w", err)
	}

	return user.Public(), pair, nil
}

func (s *UserService) Logout(ctx context.Context, userID string) error {
	if err := s.repomanager.Users(s.db).ClearRefreshToken(ctx, userID); err != nil {
		return fmt.Errorf("error clearing refresh token: %w", err)
	}
	return nil
}

// RefreshToken rotates the session. The presented token must be the one
// currently stored for its user; the swap is a single conditional update, so
// of two concurrent refreshes with the same token only one succeeds.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, fmt.Errorf("%w: refresh token is missing", common.ErrUnauthorized)
	}

	claims, err := s.tokens.Verify(refreshToken, auth.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrUnauthorized, err)
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid refresh token", common.ErrUnauthorized)
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	if user.RefreshToken == nil || subtle.ConstantTimeCompare([]byte(*user.RefreshToken), []byte(refreshToken)) != 1 {
		return nil, fmt.Errorf("%w: refresh token is expired or used", common.ErrUnauthorized)
	}

	pair, err := s.generateTokenPair(user)
	if err != nil {
		return nil, err
	}

	swapped, err := repo.SwapRefreshToken(ctx, user.ID, refreshToken, pair.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("error rotating refresh token: %w", err)
	}
	if !swapped {
		return nil, fmt.Errorf("%w: refresh token is expired or used", common.ErrUnauthorized)
	}

	return pair, nil
}

func (s *UserService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if strings.TrimSpace(newPassword) == "" {
		return fmt.Errorf("%w: new password is required", common.ErrValidation)
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("error searching user: %w", err)
	}

	if !s.hasher.Verify(ctx, oldPassword, user.PasswordHash) {
		return fmt.Errorf("%w: invalid old password", common.ErrUnauthorized)
	}

	hash, err := s.hasher.Hash(ctx, newPassword)
	if err != nil {
		return err
	}
	if err := repo.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("error saving password: %w", err)
	}
	return nil
}

// Authenticate resolves an access token to the user it was issued for.
func (s *UserService) Authenticate(ctx context.Context, accessToken string) (*models.PublicUser, error) {
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return nil, fmt.Errorf("%w: unauthorized request", common.ErrUnauthorized)
	}

	claims, err := s.tokens.Verify(accessToken, auth.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrUnauthorized, err)
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid access token", common.ErrUnauthorized)
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	return user.Public(), nil
}

func (s *UserService) generateTokenPair(user *models.User) (*models.TokenPair, error) {
	access, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.IssueRefreshToken(user)
	if err != nil {
		return nil, err
	}
	return &models.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
