package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/vidtube/internal/common"
	"github.com/dmitrijs2005/vidtube/internal/logging"
	"github.com/dmitrijs2005/vidtube/internal/server/media"
	"github.com/dmitrijs2005/vidtube/internal/server/models"
	"github.com/dmitrijs2005/vidtube/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/vidtube/internal/server/repositories/users"
)

// AccountService mutates the caller's own profile.
type AccountService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	storage     media.Storage
	logger      logging.Logger
}

func NewAccountService(db *sql.DB, m repomanager.RepositoryManager, storage media.Storage, logger logging.Logger) *AccountService {
	return &AccountService{
		db:          db,
		repomanager: m,
		storage:     storage,
		logger:      logger.With("service", "account"),
	}
}

func (s *AccountService) GetCurrentUser(ctx context.Context, userID string) (*models.PublicUser, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error searching user: %w", err)
	}
	return user.Public(), nil
}

func (s *AccountService) UpdateAccountDetails(ctx context.Context, userID, fullName, email string) (*models.PublicUser, error) {
	fullName = strings.TrimSpace(fullName)
	email = strings.ToLower(strings.TrimSpace(email))
	if fullName == "" || email == "" {
		return nil, fmt.Errorf("%w: all fields are required", common.ErrValidation)
	}

	user, err := s.repomanager.Users(s.db).UpdateAccountDetails(ctx, userID, fullName, email)
	if err != nil {
		return nil, fmt.Errorf("error updating account: %w", err)
	}
	return user.Public(), nil
}

func (s *AccountService) UpdateAvatar(ctx context.Context, userID string, upload *media.Upload) (*models.PublicUser, error) {
	return s.replaceImage(ctx, userID, upload, imageAvatar)
}

func (s *AccountService) UpdateCoverImage(ctx context.Context, userID string, upload *media.Upload) (*models.PublicUser, error) {
	return s.replaceImage(ctx, userID, upload, imageCover)
}

type imageSlot struct {
	name    string
	current func(*models.User) string
	save    func(users.Repository, context.Context, string, string) (*models.User, error)
}

var (
	imageAvatar = imageSlot{
		name:    "avatar",
		current: func(u *models.User) string { return u.AvatarURL },
		save:    users.Repository.UpdateAvatar,
	}
	imageCover = imageSlot{
		name:    "cover image",
		current: func(u *models.User) string { return u.CoverImageURL },
		save:    users.Repository.UpdateCoverImage,
	}
)

// replaceImage stores the upload, points the user at it and then removes the
// previous asset. Failing to remove the previous asset only logs.
func (s *AccountService) replaceImage(ctx context.Context, userID string, upload *media.Upload, slot imageSlot) (*models.PublicUser, error) {
	if upload == nil || upload.Body == nil {
		return nil, fmt.Errorf("%w: %s file is missing", common.ErrValidation, slot.name)
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error searching user: %w", err)
	}
	previous := slot.current(user)

	asset, err := s.storage.Upload(ctx, *upload)
	if err != nil {
		s.logger.Error(ctx, "upload failed", "user_id", userID, "slot", slot.name, "error", err)
		return nil, fmt.Errorf("%w: error while uploading %s", common.ErrValidation, slot.name)
	}

	updated, err := slot.save(repo, ctx, userID, asset.URL)
	if err != nil {
		s.discard(ctx, asset.PublicID)
		return nil, fmt.Errorf("error updating %s: %w", slot.name, err)
	}

	if id := s.storage.PublicID(previous); id != "" && id != asset.PublicID {
		s.discard(ctx, id)
	}

	return updated.Public(), nil
}

func (s *AccountService) discard(ctx context.Context, publicID string) {
	if err := s.storage.Delete(ctx, publicID); err != nil {
		s.logger.Warn(ctx, "failed to delete asset", "public_id", publicID, "error", err)
	}
}
