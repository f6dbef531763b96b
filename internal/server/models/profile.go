package models

import "time"

// ChannelProfile is the public, subscription-aware view of a user.
type ChannelProfile struct {
	ID                string `json:"id"`
	FullName          string `json:"fullName"`
	UserName          string `json:"username"`
	Email             string `json:"email"`
	AvatarURL         string `json:"avatar"`
	CoverImageURL     string `json:"coverImage"`
	SubscriberCount   int64  `json:"subscriberCount"`
	SubscribedToCount int64  `json:"channelSubscribedToCount"`
	IsSubscribed      bool   `json:"isSubscribed"`
}

// VideoOwner is the minimal projection of the user who uploaded a video.
type VideoOwner struct {
	FullName  string `json:"fullName"`
	UserName  string `json:"username"`
	AvatarURL string `json:"avatar"`
}

// WatchedVideo is one watch-history entry enriched with its owner.
type WatchedVideo struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	VideoURL        string     `json:"videoFile"`
	ThumbnailURL    string     `json:"thumbnail"`
	DurationSeconds float64    `json:"duration"`
	Views           int64      `json:"views"`
	IsPublished     bool       `json:"isPublished"`
	CreatedAt       time.Time  `json:"createdAt"`
	WatchedAt       time.Time  `json:"watchedAt"`
	Owner           VideoOwner `json:"owner"`
}
