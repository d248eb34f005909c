package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/joho/godotenv"
	"github.com/openshelf/openshelf/internal/auth"
	"github.com/openshelf/openshelf/internal/book"
	"github.com/openshelf/openshelf/internal/borrow"
	"github.com/openshelf/openshelf/internal/cache"
	"github.com/openshelf/openshelf/internal/category"
	"github.com/openshelf/openshelf/internal/config"
	"github.com/openshelf/openshelf/internal/database"
	"github.com/openshelf/openshelf/internal/donation"
	"github.com/openshelf/openshelf/internal/guard"
	"github.com/openshelf/openshelf/internal/notification"
	"github.com/openshelf/openshelf/internal/person"
	"github.com/openshelf/openshelf/internal/review"
	"github.com/openshelf/openshelf/internal/session"
	"github.com/openshelf/openshelf/internal/token"
	"go.uber.org/zap"
	"moul.io/chizap"
)

const overdueSweepInterval = time.Hour

func main() {
	// init logger
	logger, err := zap.NewProduction()
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	// load dotenv file
	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file loaded", zap.Error(err))
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	// load database
	db, err := database.Init(cfg.DbConfig)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// run migrations
	database.SetMigrationLogger(logger)
	if err := database.Migrate(context.Background(), db); err != nil {
		logger.Fatal("failed to migrate database", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// repositories
	personRepo := person.NewPersonRepo(db, logger)
	sessionRepo := session.NewSessionRepo(db, logger)
	refreshRepo := token.NewRefreshTokenRepo(db, logger)
	bookRepo := book.NewBookRepo(db, logger)
	categoryRepo := category.NewCategoryRepo(db, logger)
	borrowRepo := borrow.NewBorrowRepo(db, logger)
	donationRepo := donation.NewDonationRepo(db, logger)
	reviewRepo := review.NewReviewRepo(db, logger)
	notificationRepo := notification.NewNotificationRepo(db, logger)

	// services
	listCache := cache.New(cfg.RedisConfig, logger)
	tokenService := token.NewTokenService(logger, refreshRepo, cfg.JWTConfig)
	authService := auth.NewAuthenticationService(personRepo, sessionRepo, tokenService, refreshRepo, logger)
	bookService := book.NewBookService(bookRepo, listCache, logger)
	publisher := notification.NewPublisher(notificationRepo, logger)
	borrowService := borrow.NewBorrowService(borrowRepo, bookRepo, publisher, logger)
	donationService := donation.NewDonationService(donationRepo, publisher, logger)

	// middleware chains for the REST surface
	authn := []func(http.Handler) http.Handler{
		auth.Authn(tokenService, logger),
	}
	adminOnly := []func(http.Handler) http.Handler{
		auth.Authn(tokenService, logger),
		auth.RequireRole(logger, person.RoleAdmin),
	}

	// handlers
	authHandler := auth.NewAuthenticationHandler(authService, tokenService, cfg.CookieConfig, logger)
	bookHandler := book.NewBookHandler(bookService, logger, adminOnly...)
	categoryHandler := category.NewCategoryHandler(categoryRepo, logger, adminOnly...)
	borrowHandler := borrow.NewBorrowHandler(borrowService, personRepo, logger, authn, adminOnly)
	donationHandler := donation.NewDonationHandler(donationService, personRepo, logger, authn, adminOnly)
	reviewHandler := review.NewReviewHandler(reviewRepo, personRepo, logger, authn...)
	notificationHandler := notification.NewNotificationHandler(notificationRepo, personRepo, logger, authn...)

	r := chi.NewRouter()
	r.Use(chizap.New(logger, &chizap.Opts{WithReferer: true, WithUserAgent: true}))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(httprate.LimitByIP(100, time.Minute))

	// pages: / and /unauthorized are never guarded so redirects always
	// have somewhere safe to land
	r.Get(guard.PathHome, page("OpenShelf", "Sign in to browse the library."))
	r.Get(guard.PathUnauthorized, page("Unauthorized", "You do not have access to that page."))
	r.With(guard.Require(logger, person.RoleAdmin, person.RoleUser)).
		Get("/dashboard", guard.DispatchHandler(logger))
	r.With(guard.Require(logger, person.RoleAdmin)).
		Get(guard.PathAdminDashboard, page("Admin dashboard", "Catalog, circulation and donation queues."))
	r.With(guard.Require(logger, person.RoleUser)).
		Get(guard.PathUserDashboard, page("My dashboard", "Your loans, requests and notifications."))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "db unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Mount("/auth", authHandler.Routes())
		r.Mount("/book", bookHandler.Routes())
		r.Mount("/featured-books", bookHandler.FeaturedRoutes())
		r.Mount("/category", categoryHandler.Routes())
		r.Mount("/borrow", borrowHandler.Routes())
		r.Mount("/donation-req", donationHandler.Routes())
		r.Mount("/review", reviewHandler.Routes())
		r.Mount("/notification", notificationHandler.Routes())
	})

	// overdue sweep keeps loan statuses honest without waiting for
	// anyone to open the admin screen
	go func() {
		ticker := time.NewTicker(overdueSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
				if _, err := borrowService.SweepOverdue(sweepCtx); err != nil {
					logger.Error("overdue sweep failed", zap.Error(err))
				}
				cancel()
			}
		}
	}()

	server := &http.Server{
		Addr:         ":" + cfg.AppConfig.Port,
		Handler:      r,
		ReadTimeout:  cfg.AppConfig.ReadTimeout,
		WriteTimeout: cfg.AppConfig.WriteTimeout,
		IdleTimeout:  cfg.AppConfig.IdleTimeout,
	}

	go func() {
		logger.Info("application started", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// page renders a minimal server-side shell; the real front end replaces
// these in production, the guard semantics stay the same either way.
func page(title, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, "<!doctype html><html><head><title>%s</title></head><body><h1>%s</h1><p>%s</p></body></html>",
			title, title, body)
	}
}
