package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/vidtube/internal/common"
	"github.com/dmitrijs2005/vidtube/internal/dbx"
	"github.com/dmitrijs2005/vidtube/internal/server/auth"
	"github.com/dmitrijs2005/vidtube/internal/server/media"
	"github.com/dmitrijs2005/vidtube/internal/server/models"
	"github.com/dmitrijs2005/vidtube/internal/server/passwords"
	"github.com/dmitrijs2005/vidtube/internal/server/repositories/profiles"
	usersrepo "github.com/dmitrijs2005/vidtube/internal/server/repositories/users"
	"golang.org/x/crypto/bcrypt"
)

// memUsers is an in-memory users.Repository with the same case-insensitive
// uniqueness rules as the database.
type memUsers struct {
	mu     sync.Mutex
	nextID int
	byID   map[string]*models.User

	// failNext makes the next call of the named method return an error.
	failNext map[string]error
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[string]*models.User{}, failNext: map[string]error{}}
}

func (m *memUsers) fail(method string) error {
	if err, ok := m.failNext[method]; ok {
		delete(m.failNext, method)
		return err
	}
	return nil
}

func clone(u *models.User) *models.User {
	c := *u
	if u.RefreshToken != nil {
		t := *u.RefreshToken
		c.RefreshToken = &t
	}
	return &c
}

func (m *memUsers) taken(username, email, exceptID string) bool {
	for id, u := range m.byID {
		if id == exceptID {
			continue
		}
		if (username != "" && strings.EqualFold(u.UserName, username)) ||
			(email != "" && strings.EqualFold(u.Email, email)) {
			return true
		}
	}
	return false
}

func (m *memUsers) Create(ctx context.Context, user *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("Create"); err != nil {
		return nil, err
	}
	if user.PasswordHash == "" {
		return nil, errors.New("db error: empty password hash")
	}
	if m.taken(user.UserName, user.Email, "") {
		return nil, fmt.Errorf("%w: users_username_key", common.ErrConflict)
	}
	m.nextID++
	u := clone(user)
	u.ID = fmt.Sprintf("u-%d", m.nextID)
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	m.byID[u.ID] = u
	return clone(u), nil
}

func (m *memUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("GetByID"); err != nil {
		return nil, err
	}
	u, ok := m.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return clone(u), nil
}

func (m *memUsers) GetUserByLogin(ctx context.Context, login string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if strings.EqualFold(u.UserName, login) || strings.EqualFold(u.Email, login) {
			return clone(u), nil
		}
	}
	return nil, common.ErrNotFound
}

func (m *memUsers) ExistsByUserNameOrEmail(ctx context.Context, username, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("ExistsByUserNameOrEmail"); err != nil {
		return false, err
	}
	return m.taken(username, email, ""), nil
}

func (m *memUsers) update(id string, fn func(u *models.User) error) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	if err := fn(u); err != nil {
		return nil, err
	}
	u.UpdatedAt = time.Now()
	return clone(u), nil
}

func (m *memUsers) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	_, err := m.update(id, func(u *models.User) error { u.PasswordHash = hash; return nil })
	return err
}

func (m *memUsers) UpdateAccountDetails(ctx context.Context, id, fullName, email string) (*models.User, error) {
	return m.update(id, func(u *models.User) error {
		if m.taken("", email, id) {
			return fmt.Errorf("%w: users_email_key", common.ErrConflict)
		}
		u.FullName, u.Email = fullName, email
		return nil
	})
}

func (m *memUsers) UpdateAvatar(ctx context.Context, id, url string) (*models.User, error) {
	if err := m.fail("UpdateAvatar"); err != nil {
		return nil, err
	}
	return m.update(id, func(u *models.User) error { u.AvatarURL = url; return nil })
}

func (m *memUsers) UpdateCoverImage(ctx context.Context, id, url string) (*models.User, error) {
	return m.update(id, func(u *models.User) error { u.CoverImageURL = url; return nil })
}

func (m *memUsers) SetRefreshToken(ctx context.Context, id, token string) error {
	_, err := m.update(id, func(u *models.User) error { u.RefreshToken = &token; return nil })
	return err
}

func (m *memUsers) SwapRefreshToken(ctx context.Context, id, expected, next string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok || u.RefreshToken == nil || *u.RefreshToken != expected {
		return false, nil
	}
	u.RefreshToken = &next
	return true, nil
}

func (m *memUsers) ClearRefreshToken(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byID[id]; ok {
		u.RefreshToken = nil
	}
	return nil
}

// stored returns the raw record, credentials included.
func (m *memUsers) stored(t *testing.T, id string) *models.User {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		t.Fatalf("user %s not stored", id)
	}
	return clone(u)
}

type fakeProfiles struct {
	profile    *models.ChannelProfile
	profileErr error
	gotViewer  string
	gotName    string

	exists    bool
	existsErr error
	history   []models.WatchedVideo
	histErr   error
}

func (f *fakeProfiles) GetChannelProfile(ctx context.Context, viewerID, username string) (*models.ChannelProfile, error) {
	f.gotViewer, f.gotName = viewerID, username
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	return f.profile, nil
}

func (f *fakeProfiles) UserExists(ctx context.Context, userID string) (bool, error) {
	return f.exists, f.existsErr
}

func (f *fakeProfiles) WatchHistory(ctx context.Context, userID string) ([]models.WatchedVideo, error) {
	if f.histErr != nil {
		return nil, f.histErr
	}
	if f.history == nil {
		return []models.WatchedVideo{}, nil
	}
	return f.history, nil
}

type fakeRepoManager struct {
	u *memUsers
	p *fakeProfiles
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository       { return m.u }
func (m *fakeRepoManager) Profiles(db dbx.DBTX) profiles.Repository     { return m.p }

type fakeStorage struct {
	mu        sync.Mutex
	n         int
	uploadErr error
	deleteErr error
	uploaded  []string
	deleted   []string
}

func (f *fakeStorage) Upload(ctx context.Context, u media.Upload) (*media.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	f.n++
	id := fmt.Sprintf("avatars/%d-%s", f.n, u.Filename)
	f.uploaded = append(f.uploaded, id)
	return &media.Asset{URL: "http://cdn/" + id, PublicID: id}, nil
}

func (f *fakeStorage) Delete(ctx context.Context, publicID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, publicID)
	return f.deleteErr
}

func (f *fakeStorage) PublicID(url string) string {
	return strings.TrimPrefix(url, "http://cdn/")
}

func newHasher() *passwords.Hasher { return passwords.NewHasher(bcrypt.MinCost, 4) }

func newIssuer() *auth.Issuer {
	return auth.NewIssuer(auth.Config{
		AccessSecret:  []byte("access-secret"),
		AccessExpiry:  15 * time.Minute,
		RefreshSecret: []byte("refresh-secret"),
		RefreshExpiry: time.Hour,
	})
}

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}
