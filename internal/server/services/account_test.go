package services

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/vidtube/internal/common"
	"github.com/dmitrijs2005/vidtube/internal/logging"
	"github.com/dmitrijs2005/vidtube/internal/server/media"
	"github.com/dmitrijs2005/vidtube/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAccountService(t *testing.T) (*AccountService, *memUsers, *fakeStorage, string) {
	t.Helper()
	db, _ := newSQLMockDB(t)
	u := newMemUsers()
	st := &fakeStorage{}

	created, err := u.Create(context.Background(), &models.User{
		UserName: "nova", Email: "nova@x.io", FullName: "Nova Star",
		PasswordHash: "h", AvatarURL: "http://cdn/avatars/old.png",
	})
	require.NoError(t, err)

	return NewAccountService(db, &fakeRepoManager{u: u}, st, logging.NewNopLogger()), u, st, created.ID
}

func pngUpload() *media.Upload {
	return &media.Upload{Filename: "new.png", ContentType: "image/png", Body: bytes.NewReader([]byte("png"))}
}

func TestGetCurrentUser(t *testing.T) {
	s, _, _, id := newAccountService(t)

	got, err := s.GetCurrentUser(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "nova", got.UserName)

	_, err = s.GetCurrentUser(context.Background(), "u-404")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestUpdateAccountDetails(t *testing.T) {
	s, u, _, id := newAccountService(t)

	got, err := s.UpdateAccountDetails(context.Background(), id, " Nova S. ", " NOVA2@x.io ")
	require.NoError(t, err)
	assert.Equal(t, "Nova S.", got.FullName)
	assert.Equal(t, "nova2@x.io", got.Email)

	_, err = s.UpdateAccountDetails(context.Background(), id, "", "a@b.c")
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = u.Create(context.Background(), &models.User{UserName: "orion", Email: "orion@x.io", PasswordHash: "h"})
	require.NoError(t, err)
	_, err = s.UpdateAccountDetails(context.Background(), id, "Nova", "Orion@x.io")
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestUpdateAvatar_ReplacesAndDeletesPrevious(t *testing.T) {
	s, u, st, id := newAccountService(t)

	got, err := s.UpdateAvatar(context.Background(), id, pngUpload())
	require.NoError(t, err)

	require.Len(t, st.uploaded, 1)
	assert.Equal(t, "http://cdn/"+st.uploaded[0], got.AvatarURL)
	assert.Equal(t, got.AvatarURL, u.stored(t, id).AvatarURL)
	assert.Equal(t, []string{"avatars/old.png"}, st.deleted)
}

func TestUpdateCoverImage_NoPreviousNothingDeleted(t *testing.T) {
	s, u, st, id := newAccountService(t)

	got, err := s.UpdateCoverImage(context.Background(), id, pngUpload())
	require.NoError(t, err)
	assert.NotEmpty(t, got.CoverImageURL)
	assert.Equal(t, "http://cdn/avatars/old.png", u.stored(t, id).AvatarURL)
	assert.Empty(t, st.deleted)
}

func TestUpdateAvatar_DeleteFailureIsSwallowed(t *testing.T) {
	s, _, st, id := newAccountService(t)
	st.deleteErr = errors.New("denied")

	_, err := s.UpdateAvatar(context.Background(), id, pngUpload())
	assert.NoError(t, err)
}

func TestUpdateAvatar_Failures(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		s, _, st, id := newAccountService(t)
		_, err := s.UpdateAvatar(context.Background(), id, nil)
		assert.ErrorIs(t, err, common.ErrValidation)
		assert.Empty(t, st.uploaded)
	})

	t.Run("upload error", func(t *testing.T) {
		s, u, st, id := newAccountService(t)
		st.uploadErr = errors.New("s3 down")
		_, err := s.UpdateAvatar(context.Background(), id, pngUpload())
		assert.ErrorIs(t, err, common.ErrValidation)
		assert.Equal(t, "http://cdn/avatars/old.png", u.stored(t, id).AvatarURL)
	})

	t.Run("unknown user", func(t *testing.T) {
		s, _, st, _ := newAccountService(t)
		_, err := s.UpdateAvatar(context.Background(), "u-404", pngUpload())
		assert.ErrorIs(t, err, common.ErrNotFound)
		assert.Empty(t, st.uploaded)
	})

	t.Run("store error discards new asset", func(t *testing.T) {
		s, u, st, id := newAccountService(t)
		u.failNext["UpdateAvatar"] = errors.New("db down")
		_, err := s.UpdateAvatar(context.Background(), id, pngUpload())
		assert.ErrorContains(t, err, "db down")
		require.Len(t, st.uploaded, 1)
		assert.Equal(t, st.uploaded, st.deleted)
	})
}
