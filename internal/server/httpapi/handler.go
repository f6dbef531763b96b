package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/vidtube/internal/common"
	"github.com/dmitrijs2005/vidtube/internal/server/media"
	"github.com/dmitrijs2005/vidtube/internal/server/models"
	"github.com/dmitrijs2005/vidtube/internal/server/services"
	"github.com/go-chi/chi/v5"
)

type loginRequest struct {
	UserName string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type updateAccountRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

type loginResponse struct {
	User         *models.PublicUser `json:"user"`
	AccessToken  string             `json:"accessToken"`
	RefreshToken string             `json:"refreshToken"`
}

// decodeJSON reads a JSON body. An empty body leaves dst untouched.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: invalid request body", common.ErrValidation)
	}
	return nil
}

func (s *HTTPServer) parseMultipart(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		return fmt.Errorf("%w: invalid multipart form", common.ErrValidation)
	}
	return nil
}

// formFile returns the named upload or nil when the field is absent. The
// caller closes the returned file.
func formFile(r *http.Request, field string) (*media.Upload, multipart.File, error) {
	f, hdr, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("%w: invalid %s file", common.ErrValidation, field)
	}
	return &media.Upload{
		Filename:    hdr.Filename,
		ContentType: hdr.Header.Get("Content-Type"),
		Size:        hdr.Size,
		Body:        f,
	}, f, nil
}

func (s *HTTPServer) register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := s.parseMultipart(w, r); err != nil {
		s.writeError(w, r, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	in := services.RegisterInput{
		FullName: r.FormValue("fullName"),
		Email:    r.FormValue("email"),
		UserName: r.FormValue("username"),
		Password: r.FormValue("password"),
	}
	if err := s.users.ValidateRegistration(ctx, in); err != nil {
		s.writeError(w, r, err)
		return
	}

	avatar, err := s.uploadFormFile(ctx, r, "avatar")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if avatar == nil {
		s.writeError(w, r, fmt.Errorf("%w: avatar file is required", common.ErrValidation))
		return
	}
	in.AvatarURL = avatar.URL

	// Cover image is optional; a failed upload leaves it empty.
	cover, err := s.uploadFormFile(ctx, r, "coverImage")
	if err != nil {
		s.logger.Warn(ctx, "cover image upload failed", "error", err)
	}
	if cover != nil {
		in.CoverImageURL = cover.URL
	}

	user, err := s.users.Register(ctx, in)
	if err != nil {
		s.discard(ctx, avatar, cover)
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, user, "User registered successfully")
}

func (s *HTTPServer) uploadFormFile(ctx context.Context, r *http.Request, field string) (*media.Asset, error) {
	upload, f, err := formFile(r, field)
	if err != nil || upload == nil {
		return nil, err
	}
	defer f.Close()

	asset, err := s.storage.Upload(ctx, *upload)
	if err != nil {
		s.logger.Error(ctx, "upload failed", "field", field, "error", err)
		return nil, fmt.Errorf("%w: error while uploading %s", common.ErrValidation, field)
	}
	return asset, nil
}

func (s *HTTPServer) discard(ctx context.Context, assets ...*media.Asset) {
	for _, a := range assets {
		if a == nil {
			continue
		}
		if err := s.storage.Delete(ctx, a.PublicID); err != nil {
			s.logger.Warn(ctx, "failed to delete asset", "public_id", a.PublicID, "error", err)
		}
	}
}

func (s *HTTPServer) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	identifier := req.UserName
	if strings.TrimSpace(identifier) == "" {
		identifier = req.Email
	}

	user, pair, err := s.users.Login(r.Context(), identifier, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.setSessionCookies(w, pair)
	writeJSON(w, http.StatusOK, loginResponse{
		User:         user,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, "User logged in successfully")
}

func (s *HTTPServer) logout(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	if err := s.users.Logout(r.Context(), user.ID); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.clearSessionCookies(w)
	writeJSON(w, http.StatusOK, struct{}{}, "User logged out")
}

// refreshToken prefers the cookie over the body field.
func (s *HTTPServer) refreshToken(w http.ResponseWriter, r *http.Request) {
	var token string
	if c, err := r.Cookie(common.RefreshTokenCookieName); err == nil {
		token = c.Value
	}
	if strings.TrimSpace(token) == "" {
		var req refreshRequest
		if err := decodeJSON(r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
		token = req.RefreshToken
	}

	pair, err := s.users.RefreshToken(r.Context(), token)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.setSessionCookies(w, pair)
	writeJSON(w, http.StatusOK, pair, "Access token refreshed")
}

func (s *HTTPServer) changePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	user := userFromContext(r.Context())
	if err := s.users.ChangePassword(r.Context(), user.ID, req.OldPassword, req.NewPassword); err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, struct{}{}, "Password changed successfully")
}

func (s *HTTPServer) currentUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.accounts.GetCurrentUser(r.Context(), userFromContext(r.Context()).ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user, "User fetched successfully")
}

func (s *HTTPServer) updateAccount(w http.ResponseWriter, r *http.Request) {
	var req updateAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	user, err := s.accounts.UpdateAccountDetails(r.Context(), userFromContext(r.Context()).ID, req.FullName, req.Email)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user, "Account details updated successfully")
}

func (s *HTTPServer) updateAvatar(w http.ResponseWriter, r *http.Request) {
	s.updateImage(w, r, "avatar", s.accounts.UpdateAvatar, "Avatar image updated successfully")
}

func (s *HTTPServer) updateCoverImage(w http.ResponseWriter, r *http.Request) {
	s.updateImage(w, r, "coverImage", s.accounts.UpdateCoverImage, "Cover image updated successfully")
}

type imageUpdater func(ctx context.Context, userID string, upload *media.Upload) (*models.PublicUser, error)

func (s *HTTPServer) updateImage(w http.ResponseWriter, r *http.Request, field string, update imageUpdater, message string) {
	if err := s.parseMultipart(w, r); err != nil {
		s.writeError(w, r, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	upload, f, err := formFile(r, field)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if f != nil {
		defer f.Close()
	}

	user, err := update(r.Context(), userFromContext(r.Context()).ID, upload)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user, message)
}

func (s *HTTPServer) channelProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.profiles.GetChannelProfile(r.Context(), userFromContext(r.Context()).ID, chi.URLParam(r, "username"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile, "User channel fetched successfully")
}

func (s *HTTPServer) watchHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.profiles.GetWatchHistory(r.Context(), userFromContext(r.Context()).ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, history, "Watch history fetched successfully")
}
