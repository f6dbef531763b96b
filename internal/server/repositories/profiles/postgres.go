package profiles

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/vidtube/internal/common"
	"github.com/dmitrijs2005/vidtube/internal/dbx"
	"github.com/dmitrijs2005/vidtube/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgInvalidTextRepr = "22P02"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetChannelProfile(ctx context.Context, viewerID, username string) (*models.ChannelProfile, error) {
	query :=
		`SELECT u.id, u.full_name, u.username, u.email, u.avatar_url, u.cover_image_url,
		   (SELECT count(*) FROM subscriptions s WHERE s.channel_id = u.id) AS subscriber_count,
		   (SELECT count(*) FROM subscriptions s WHERE s.subscriber_id = u.id) AS subscribed_to_count,
		   EXISTS (SELECT 1 FROM subscriptions s
		           WHERE s.channel_id = u.id AND s.subscriber_id::text = $2) AS is_subscribed
		 FROM users u
		 WHERE lower(u.username) = lower($1)`

	p := &models.ChannelProfile{}
	err := r.db.QueryRowContext(ctx, query, username, viewerID).Scan(
		&p.ID, &p.FullName, &p.UserName, &p.Email, &p.AvatarURL, &p.CoverImageURL,
		&p.SubscriberCount, &p.SubscribedToCount, &p.IsSubscribed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return p, nil
}

func (r *PostgresRepository) UserExists(ctx context.Context, userID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&exists); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgInvalidTextRepr {
			return false, nil
		}
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) WatchHistory(ctx context.Context, userID string) ([]models.WatchedVideo, error) {
	query :=
		`SELECT v.id, v.title, v.description, v.video_url, v.thumbnail_url, v.duration_seconds,
		        v.views, v.is_published, v.created_at, wh.watched_at,
		        o.full_name, o.username, o.avatar_url
		 FROM watch_history wh
		 JOIN videos v ON v.id = wh.video_id
		 JOIN users o ON o.id = v.owner_id
		 WHERE wh.user_id = $1
		 ORDER BY wh.id ASC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	history := make([]models.WatchedVideo, 0)
	for rows.Next() {
		var v models.WatchedVideo
		if err := rows.Scan(&v.ID, &v.Title, &v.Description, &v.VideoURL, &v.ThumbnailURL,
			&v.DurationSeconds, &v.Views, &v.IsPublished, &v.CreatedAt, &v.WatchedAt,
			&v.Owner.FullName, &v.Owner.UserName, &v.Owner.AvatarURL); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		history = append(history, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return history, nil
}
