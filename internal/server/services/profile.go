package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/vidtube/internal/common"
	"github.com/dmitrijs2005/vidtube/internal/dbx"
	"github.com/dmitrijs2005/vidtube/internal/server/models"
	"github.com/dmitrijs2005/vidtube/internal/server/repositories/repomanager"
)

// ProfileService answers the read-only, relationship-aware profile queries.
type ProfileService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewProfileService(db *sql.DB, m repomanager.RepositoryManager) *ProfileService {
	return &ProfileService{db: db, repomanager: m}
}

func (s *ProfileService) GetChannelProfile(ctx context.Context, viewerID, username string) (*models.ChannelProfile, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is missing", common.ErrValidation)
	}

	profile, err := s.repomanager.Profiles(s.db).GetChannelProfile(ctx, viewerID, username)
	if err != nil {
		return nil, fmt.Errorf("error fetching channel: %w", err)
	}
	return profile, nil
}

// GetWatchHistory checks the user and reads the history in one snapshot.
func (s *ProfileService) GetWatchHistory(ctx context.Context, userID string) ([]models.WatchedVideo, error) {
	var history []models.WatchedVideo

	err := dbx.WithTx(ctx, s.db, dbx.SnapshotRead, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Profiles(tx)

		exists, err := repo.UserExists(ctx, userID)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: user does not exist", common.ErrNotFound)
		}

		history, err = repo.WatchHistory(ctx, userID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("error fetching watch history: %w", err)
	}
	return history, nil
}
