// Package media stores user-uploaded images and hands back their public URL.
package media

import (
	"context"
	"io"
)

// Upload is a file received from a client.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.ReadSeeker
}

// Asset is a stored object. PublicID is what Delete needs.
type Asset struct {
	URL      string
	PublicID string
}

type Storage interface {
	Upload(ctx context.Context, u Upload) (*Asset, error)
	// Delete removes the object; an empty publicID is a no-op.
	Delete(ctx context.Context, publicID string) error
	// PublicID recovers the id from a URL produced by Upload, or "" when the
	// URL does not belong to this storage.
	PublicID(url string) string
}
