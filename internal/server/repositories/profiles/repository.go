// Package profiles holds the read-only relational queries over users,
// subscriptions, videos and watch history.
package profiles

import (
	"context"

	"github.com/dmitrijs2005/vidtube/internal/server/models"
)

type Repository interface {
	// GetChannelProfile resolves username case-insensitively and computes the
	// subscription counts and whether viewerID follows the channel, all in one
	// statement. An empty viewerID is never subscribed.
	GetChannelProfile(ctx context.Context, viewerID, username string) (*models.ChannelProfile, error)
	UserExists(ctx context.Context, userID string) (bool, error)
	// WatchHistory returns entries oldest first, never nil.
	WatchHistory(ctx context.Context, userID string) ([]models.WatchedVideo, error)
}
