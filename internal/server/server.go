// Package server wires the router: handlers, middleware, routes, and
// the dependency chain from database to HTTP. main.go stays minimal —
// load config, build a Server, Start it.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/scene-dev/storymap/internal/auth"
	"github.com/scene-dev/storymap/internal/handler"
	"github.com/scene-dev/storymap/internal/media"
	"github.com/scene-dev/storymap/internal/middleware"
	"github.com/scene-dev/storymap/internal/place"
	sqliteRepo "github.com/scene-dev/storymap/internal/repository/sqlite"
	"github.com/scene-dev/storymap/internal/service"
)

// Config holds everything the server needs from the environment.
type Config struct {
	Port          int
	DBPath        string
	UploadDir     string
	SessionSecret string

	NaverClientID     string
	NaverClientSecret string
	NaverRedirectURL  string

	GoogleMapsAPIKey string
}

// Server owns the router and the resources behind it. The database
// connection is closed on shutdown.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New builds the full dependency chain: database, media store, token
// and password services, the service layer, handlers, and routes.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	// Reap sessions that expired while the server was down; anything
	// that expires later is caught lazily on lookup.
	if err := db.Sessions().DeleteExpired(context.Background(), time.Now()); err != nil {
		logger.Warn("reaping expired sessions", "error", err)
	}

	return s, nil
}

// Router exposes the configured routes; tests drive them through
// httptest without opening a port.
func (s *Server) Router() http.Handler { return s.router }

func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	tokens, err := auth.NewTokenService(s.config.SessionSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()
	naver := auth.NewNaverProvider(s.config.NaverClientID, s.config.NaverClientSecret, s.config.NaverRedirectURL)

	store, err := media.NewStore(s.config.UploadDir)
	if err != nil {
		return fmt.Errorf("creating media store: %w", err)
	}

	authService := service.NewAuthService(s.db.Users(), s.db.Sessions(), tokens, passwords, s.logger)
	profileService := service.NewProfileService(s.db.Users(), store, s.logger)
	feedService := service.NewFeedService(s.db.Feeds(), store, s.logger)
	placeService := service.NewPlaceService(place.NewClient(s.config.GoogleMapsAPIKey), s.logger)

	authHandler := handler.NewAuthHandler(authService, naver, s.logger)
	profileHandler := handler.NewProfileHandler(profileService, s.logger)
	feedHandler := handler.NewFeedHandler(feedService, s.logger)
	placeHandler := handler.NewPlaceHandler(placeService, s.logger)

	// Uploaded images: "/static/" + the path stored in the database.
	fileServer := http.FileServer(http.Dir(store.Root()))
	s.router.Handle("/static/*", http.StripPrefix("/static/", fileServer))

	requireAuth := auth.RequireAuth(tokens, s.db.Sessions())

	// Public routes.
	s.router.Post("/register", authHandler.HandleRegister)
	s.router.Post("/login", authHandler.HandleLogin)
	s.router.Get("/auth/naver/login", authHandler.HandleNaverLogin)
	s.router.Get("/naver_callback", authHandler.HandleNaverCallback)

	s.router.Get("/get_feeds", feedHandler.HandleGetFeeds)
	s.router.Get("/feeds", feedHandler.HandleQueryFeeds)
	s.router.Get("/get_feed_data", feedHandler.HandleGetFeedData)
	s.router.Get("/get_feed_data_by_coords", feedHandler.HandleGetFeedDataByCoords)
	s.router.Get("/search", placeHandler.HandleSearch)

	// Session-holder routes.
	s.router.Group(func(r chi.Router) {
		r.Use(requireAuth)

		r.Get("/logout", authHandler.HandleLogout)

		r.Get("/profile", profileHandler.HandleGetProfile)
		r.Post("/upload_profile_pic", profileHandler.HandleUploadProfilePic)
		r.Post("/upload_background", profileHandler.HandleUploadBackground)
		r.Post("/update_intro", profileHandler.HandleUpdateIntro)
		r.Post("/delete_account", profileHandler.HandleDeleteAccount)

		r.Post("/add_feed", feedHandler.HandleAddFeed)
		r.Post("/add_feed_full", feedHandler.HandleAddFeedFull)
		r.Post("/update_feed_full", feedHandler.HandleUpdateFeedFull)
	})

	return nil
}

// Start runs the server until SIGINT/SIGTERM, then drains in-flight
// requests and closes the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
			slog.String("uploads", s.config.UploadDir),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
