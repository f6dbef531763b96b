package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/dmitrijs2005/vidtube/internal/common"
	"github.com/dmitrijs2005/vidtube/internal/logging"
	"github.com/dmitrijs2005/vidtube/internal/server/media"
	"github.com/dmitrijs2005/vidtube/internal/server/models"
	"github.com/dmitrijs2005/vidtube/internal/server/services"
	"github.com/stretchr/testify/require"
)

var testUser = &models.PublicUser{ID: "u-1", UserName: "nova", Email: "nova@x.io", FullName: "Nova Star"}

const goodToken = "good-access"

type fakeUsers struct {
	validateErr error
	registered  *services.RegisterInput
	registerErr error

	loginIdentifier string
	loginPassword   string
	loginErr        error

	loggedOut string

	refreshGot string
	refreshErr error

	changed   [3]string
	changeErr error
}

func (f *fakeUsers) ValidateRegistration(ctx context.Context, in services.RegisterInput) error {
	return f.validateErr
}

func (f *fakeUsers) Register(ctx context.Context, in services.RegisterInput) (*models.PublicUser, error) {
	f.registered = &in
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	return &models.PublicUser{ID: "u-9", UserName: in.UserName, AvatarURL: in.AvatarURL, CoverImageURL: in.CoverImageURL}, nil
}

func (f *fakeUsers) Login(ctx context.Context, identifier, password string) (*models.PublicUser, *models.TokenPair, error) {
	f.loginIdentifier, f.loginPassword = identifier, password
	if f.loginErr != nil {
		return nil, nil, f.loginErr
	}
	return testUser, &models.TokenPair{AccessToken: "acc-1", RefreshToken: "ref-1"}, nil
}

func (f *fakeUsers) Logout(ctx context.Context, userID string) error {
	f.loggedOut = userID
	return nil
}

func (f *fakeUsers) RefreshToken(ctx context.Context, token string) (*models.TokenPair, error) {
	f.refreshGot = token
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return &models.TokenPair{AccessToken: "acc-2", RefreshToken: "ref-2"}, nil
}

func (f *fakeUsers) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	f.changed = [3]string{userID, oldPassword, newPassword}
	return f.changeErr
}

func (f *fakeUsers) Authenticate(ctx context.Context, token string) (*models.PublicUser, error) {
	if token != goodToken {
		return nil, fmt.Errorf("%w: %w", common.ErrUnauthorized, common.ErrInvalidToken)
	}
	return testUser, nil
}

type fakeAccounts struct {
	upload    *media.Upload
	uploadErr error
	details   [2]string
	err       error
}

func (f *fakeAccounts) GetCurrentUser(ctx context.Context, userID string) (*models.PublicUser, error) {
	return testUser, f.err
}

func (f *fakeAccounts) UpdateAccountDetails(ctx context.Context, userID, fullName, email string) (*models.PublicUser, error) {
	f.details = [2]string{fullName, email}
	if f.err != nil {
		return nil, f.err
	}
	return &models.PublicUser{ID: userID, FullName: fullName, Email: email}, nil
}

func (f *fakeAccounts) UpdateAvatar(ctx context.Context, userID string, upload *media.Upload) (*models.PublicUser, error) {
	return f.image(userID, upload)
}

func (f *fakeAccounts) UpdateCoverImage(ctx context.Context, userID string, upload *media.Upload) (*models.PublicUser, error) {
	return f.image(userID, upload)
}

func (f *fakeAccounts) image(userID string, upload *media.Upload) (*models.PublicUser, error) {
	f.upload = upload
	if upload == nil {
		return nil, fmt.Errorf("%w: file is missing", common.ErrValidation)
	}
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	return &models.PublicUser{ID: userID, AvatarURL: "http://cdn/" + upload.Filename}, nil
}

type fakeProfiles struct {
	viewer, username string
	err              error
}

func (f *fakeProfiles) GetChannelProfile(ctx context.Context, viewerID, username string) (*models.ChannelProfile, error) {
	f.viewer, f.username = viewerID, username
	if f.err != nil {
		return nil, f.err
	}
	return &models.ChannelProfile{UserName: username, SubscriberCount: 1, IsSubscribed: true}, nil
}

func (f *fakeProfiles) GetWatchHistory(ctx context.Context, userID string) ([]models.WatchedVideo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []models.WatchedVideo{{ID: "v-1"}, {ID: "v-2"}}, nil
}

type fakeStorage struct {
	mu        sync.Mutex
	uploaded  []string
	deleted   []string
	uploadErr error
}

func (f *fakeStorage) Upload(ctx context.Context, u media.Upload) (*media.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	b, _ := io.ReadAll(u.Body)
	id := fmt.Sprintf("%s:%s", u.Filename, b)
	f.uploaded = append(f.uploaded, id)
	return &media.Asset{URL: "http://cdn/" + id, PublicID: id}, nil
}

func (f *fakeStorage) Delete(ctx context.Context, publicID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, publicID)
	return nil
}

func (f *fakeStorage) PublicID(url string) string { return url }

type testEnv struct {
	users    *fakeUsers
	accounts *fakeAccounts
	profiles *fakeProfiles
	storage  *fakeStorage
	handler  http.Handler
}

func newTestEnv() *testEnv {
	e := &testEnv{
		users:    &fakeUsers{},
		accounts: &fakeAccounts{},
		profiles: &fakeProfiles{},
		storage:  &fakeStorage{},
	}
	srv := NewHTTPServer(Options{CORSOrigin: "*", CookieSecure: true}, logging.NewNopLogger(),
		e.users, e.accounts, e.profiles, e.storage)
	e.handler = srv.Routes()
	return e
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(method, path string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// multipartRequest builds a form; files maps field name to "filename:content".
func multipartRequest(t *testing.T, method, path string, fields map[string]string, files map[string][2]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for field, f := range files {
		fw, err := mw.CreateFormFile(field, f[0])
		require.NoError(t, err)
		_, err = fw.Write([]byte(f[1]))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func authed(req *http.Request) *http.Request {
	req.Header.Set("Authorization", "Bearer "+goodToken)
	return req
}

type decoded struct {
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Success    bool            `json:"success"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) decoded {
	t.Helper()
	var d decoded
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
	return d
}

func cookieByName(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
