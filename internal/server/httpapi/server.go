// Package httpapi exposes the account services over HTTP under /api/v1/users.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/vidtube/internal/logging"
	"github.com/dmitrijs2005/vidtube/internal/server/media"
	"github.com/dmitrijs2005/vidtube/internal/server/models"
	"github.com/dmitrijs2005/vidtube/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

const (
	defaultMaxUploadBytes = 16 << 20
	shutdownTimeout       = 10 * time.Second
)

type UserService interface {
	ValidateRegistration(ctx context.Context, in services.RegisterInput) error
	Register(ctx context.Context, in services.RegisterInput) (*models.PublicUser, error)
	Login(ctx context.Context, identifier, password string) (*models.PublicUser, *models.TokenPair, error)
	Logout(ctx context.Context, userID string) error
	RefreshToken(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
	Authenticate(ctx context.Context, accessToken string) (*models.PublicUser, error)
}

type AccountService interface {
	GetCurrentUser(ctx context.Context, userID string) (*models.PublicUser, error)
	UpdateAccountDetails(ctx context.Context, userID, fullName, email string) (*models.PublicUser, error)
	UpdateAvatar(ctx context.Context, userID string, upload *media.Upload) (*models.PublicUser, error)
	UpdateCoverImage(ctx context.Context, userID string, upload *media.Upload) (*models.PublicUser, error)
}

type ProfileService interface {
	GetChannelProfile(ctx context.Context, viewerID, username string) (*models.ChannelProfile, error)
	GetWatchHistory(ctx context.Context, userID string) ([]models.WatchedVideo, error)
}

type Options struct {
	Address        string
	CORSOrigin     string
	CookieSecure   bool
	MaxUploadBytes int64
}

type HTTPServer struct {
	opts     Options
	users    UserService
	accounts AccountService
	profiles ProfileService
	storage  media.Storage
	logger   logging.Logger
}

func NewHTTPServer(opts Options, l logging.Logger, us UserService, as AccountService, ps ProfileService, st media.Storage) *HTTPServer {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploadBytes
	}
	return &HTTPServer{
		opts:     opts,
		users:    us,
		accounts: as,
		profiles: ps,
		storage:  st,
		logger:   l.With("module", "http_server"),
	}
}

// Routes builds the router. Routes marked with requireUser need an access
// token in the accessToken cookie or an Authorization: Bearer header.
func (s *HTTPServer) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{s.opts.CORSOrigin},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api/v1/users", func(r chi.Router) {
		r.Post("/register", s.register)
		r.Post("/login", s.login)
		r.Post("/refresh-token", s.refreshToken)

		r.Group(func(r chi.Router) {
			r.Use(s.requireUser)

			r.Post("/logout", s.logout)
			r.Post("/change-password", s.changePassword)
			r.Get("/current-user", s.currentUser)
			r.Patch("/update-account", s.updateAccount)
			r.Patch("/avatar", s.updateAvatar)
			r.Patch("/cover-image", s.updateCoverImage)
			r.Get("/c/{username}", s.channelProfile)
			r.Get("/history", s.watchHistory)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, nil, "route not found")
	})

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.opts.Address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP server shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
