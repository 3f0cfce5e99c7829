// Package server wires the application together: storage, cache, hub,
// services, handlers and routes. It is the composition root; nothing
// else constructs cross-layer dependencies.
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
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/arif/codepulse/internal/auth"
	"github.com/arif/codepulse/internal/cache"
	"github.com/arif/codepulse/internal/config"
	"github.com/arif/codepulse/internal/handler"
	"github.com/arif/codepulse/internal/middleware"
	"github.com/arif/codepulse/internal/realtime"
	sqliteRepo "github.com/arif/codepulse/internal/repository/sqlite"
	"github.com/arif/codepulse/internal/service"
)

// Server owns the router and the resources that need closing on
// shutdown.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
	redis  *redis.Client
	hub    *realtime.Hub
}

// New creates a Server with the full dependency graph wired. Redis is
// optional: with no address configured the conversation cache is
// simply absent.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		redisClient, err = cache.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		cancel()
		if err != nil {
			db.Close()
			return nil, err
		}
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
		redis:  redisClient,
		hub:    realtime.NewHub(logger),
	}

	if err := s.setupRoutes(); err != nil {
		s.closeResources()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// Handler exposes the router, primarily for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	if len(s.config.CORSOrigins) > 0 {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.config.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Api-Key"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return err
	}
	passwords := auth.NewPasswordService(auth.DefaultCost)

	var conversationCache service.ConversationCache
	if s.redis != nil {
		conversationCache = cache.NewConversationCache(s.redis, s.logger)
	}

	presence := service.NewPresenceResolver(s.config.IdleThreshold, s.config.OfflineThreshold)

	accountService := service.NewAuthService(s.db, passwords, s.logger)
	activityService := service.NewActivityService(s.db, s.logger)
	friendService := service.NewFriendService(s.db, s.db, s.db, presence, s.logger)
	achievementService := service.NewAchievementService(s.db, s.db, s.db, s.logger)
	chatService := service.NewChatService(s.db, s.db, conversationCache, s.hub, s.logger)

	authHandler := handler.NewAuthHandler(accountService, tokens, s.logger)
	userHandler := handler.NewUserHandler(accountService, s.logger)
	activityHandler := handler.NewActivityHandler(activityService, achievementService, s.logger)
	friendHandler := handler.NewFriendHandler(friendService, s.logger)
	achievementHandler := handler.NewAchievementHandler(achievementService, s.logger)
	chatHandler := handler.NewChatHandler(chatService, s.logger)
	wsHandler := handler.NewWSHandler(s.hub, s.checkWSOrigin(), s.logger)

	requireAuth := auth.RequireAuth(tokens)
	requireAPIKey := auth.RequireAPIKey(func(ctx context.Context, key string) (string, error) {
		user, err := accountService.UserByAPIKey(ctx, key)
		if err != nil {
			return "", err
		}
		return user.ID, nil
	})
	syncLimiter := middleware.NewLimiterStore(rate.Limit(s.config.RateLimit), s.config.RateBurst, 10*time.Minute)

	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)
	})

	// Editor plugins sync with the API key, never the session.
	s.router.Route("/plugin", func(r chi.Router) {
		r.Use(middleware.RateLimit(syncLimiter))
		r.Use(requireAPIKey)
		r.Post("/sync", activityHandler.HandleSync)
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Use(requireAuth)

		r.Get("/me", authHandler.HandleMe)
		r.Get("/me/apikey", authHandler.HandleAPIKey)
		r.Post("/me/apikey", authHandler.HandleRotateAPIKey)
		r.Put("/me/settings", userHandler.HandleUpdateSettings)
		r.Put("/me/avatar", userHandler.HandleUpdateAvatar)
		r.Get("/me/achievements", achievementHandler.HandleUnlocked)

		r.Get("/activity/today", activityHandler.HandleToday)
		r.Get("/activity/week", activityHandler.HandleWeek)
		r.Get("/activity/hourly", activityHandler.HandleHourly)
		r.Get("/activity/daily", activityHandler.HandleDaily)
		r.Get("/activity/languages", activityHandler.HandleLanguages)

		r.Get("/achievements", achievementHandler.HandleCatalog)

		r.Get("/users/search", friendHandler.HandleSearch)

		r.Route("/friends", func(r chi.Router) {
			r.Get("/activity", friendHandler.HandleFeed)
			r.Post("/requests", friendHandler.HandleSendRequest)
			r.Get("/requests", friendHandler.HandlePending)
			r.Post("/requests/{id}/accept", friendHandler.HandleAccept)
			r.Post("/requests/{id}/reject", friendHandler.HandleReject)
			r.Delete("/{id}", friendHandler.HandleRemove)
		})

		r.Route("/chat", func(r chi.Router) {
			r.Get("/unread", chatHandler.HandleUnreadCount)
			r.Post("/{userId}", chatHandler.HandleSend)
			r.Get("/{userId}", chatHandler.HandleConversation)
			r.Post("/{userId}/read", chatHandler.HandleMarkRead)
		})

		r.Get("/ws", wsHandler.HandleConnect)
	})

	return nil
}

// checkWSOrigin mirrors the CORS allowlist for WebSocket upgrades. With
// no allowlist configured, same-origin requests (no Origin header, or a
// matching Host) are accepted.
func (s *Server) checkWSOrigin() func(*http.Request) bool {
	allowed := make(map[string]bool, len(s.config.CORSOrigins))
	for _, origin := range s.config.CORSOrigins {
		allowed[origin] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if len(allowed) > 0 {
			return allowed[origin]
		}
		return origin == "http://"+r.Host || origin == "https://"+r.Host
	}
}

// Start runs the server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting, drain in-flight requests, close
// websockets, and release the cache and database.
func (s *Server) Start() error {
	defer s.closeResources()

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
			slog.Bool("cache", s.redis != nil),
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
		s.hub.CloseAll()
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

func (s *Server) closeResources() {
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Warn("closing redis", slog.String("error", err.Error()))
		}
	}
	if err := s.db.Close(); err != nil {
		s.logger.Warn("closing database", slog.String("error", err.Error()))
	}
}
