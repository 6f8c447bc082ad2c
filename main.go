package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/runcrew/runcrew-backend/internal/admin"
	"github.com/runcrew/runcrew-backend/internal/admintoken"
	"github.com/runcrew/runcrew-backend/internal/auth"
	"github.com/runcrew/runcrew-backend/internal/comments"
	"github.com/runcrew/runcrew-backend/internal/config"
	"github.com/runcrew/runcrew-backend/internal/crews"
	"github.com/runcrew/runcrew-backend/internal/db"
	"github.com/runcrew/runcrew-backend/internal/logging"
	"github.com/runcrew/runcrew-backend/internal/middleware"
	"github.com/runcrew/runcrew-backend/internal/missions"
	"github.com/runcrew/runcrew-backend/internal/models"
	"github.com/runcrew/runcrew-backend/internal/notifications"
	"github.com/runcrew/runcrew-backend/internal/profiles"
	"github.com/runcrew/runcrew-backend/internal/records"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func RootHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, "Server is up!")
}

func healthHandler(conn *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sqlDB, err := conn.DB()
		if err == nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			logrus.WithError(err).Warn("health check failed")
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	}
}

func main() {
	_ = godotenv.Load(".env.local")

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}
	log := logging.Setup(logging.Options{
		Level:      cfg.LogLevel,
		JSON:       cfg.Production(),
		WebhookURL: cfg.ErrorWebhookURL,
		Service:    "runcrew-" + string(cfg.Mode),
	})

	conn, err := db.Connect(cfg.DatabaseURL, log)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := auth.Init(conn); err != nil {
		log.Fatalf("Failed to set up auth tables: %v", err)
	}
	if err := models.Migrate(conn); err != nil {
		log.Fatalf("Failed to migrate: %v", err)
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.Recover)
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(middleware.ModeGuard(cfg.Mode))

	r.Get("/", RootHandler)
	r.Get("/healthz", healthHandler(conn))

	switch cfg.Mode {
	case config.ModeAdmin:
		mountAdmin(r, cfg, conn)
	default:
		mountMain(r, cfg, conn, log)
	}

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.WithField("mode", cfg.Mode).Infof("Server listening on port :%s...", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}

func mountMain(r chi.Router, cfg config.Config, conn *gorm.DB, log *logrus.Logger) {
	secure := cfg.Production()
	sessions := middleware.SessionMiddleware(auth.SessionStore{DB: conn}, middleware.SessionOptions{
		TTL:    cfg.SessionTTL,
		Secure: secure,
	})

	r.Group(func(r chi.Router) {
		r.Use(sessions)

		r.Mount("/auth", auth.SetupRoutes(&auth.Handler{DB: conn, SessionTTL: cfg.SessionTTL, Secure: secure}))

		profileHandler := &profiles.Handler{DB: conn}
		r.Mount("/api/me", profiles.MeRoutes(profileHandler))
		r.Mount("/api/profiles", profiles.SetupRoutes(profileHandler))

		missionHandler := &missions.Handler{DB: conn}
		r.Mount("/api/crews", crews.SetupRoutes(&crews.Handler{DB: conn}, missions.CrewRoutes(missionHandler)))
		r.Mount("/api/missions", missions.SetupRoutes(missionHandler))
		r.Mount("/api/records", records.SetupRoutes(&records.Handler{DB: conn}))
		r.Mount("/api/comments", comments.SetupRoutes(&comments.Handler{DB: conn}))
		r.Mount("/api/notifications", notifications.SetupRoutes(&notifications.Handler{DB: conn}))

		if cfg.LegacyAdminEnabled {
			log.Warn("LEGACY_ADMIN_ENABLED: /admin is gated on profile crew_role; deploy with DEPLOY_MODE=admin instead")
			r.Mount("/admin", admin.LegacyRoutes(&admin.Handler{DB: conn}, profiles.RoleStore{DB: conn}))
		}
	})
}

func mountAdmin(r chi.Router, cfg config.Config, conn *gorm.DB) {
	tokens := admintoken.NewManager(admintoken.Config{
		Username: cfg.AdminUsername,
		Password: cfg.AdminPassword,
		Secret:   cfg.AdminJWTSecret,
		Secure:   cfg.Production(),
	})
	h := admin.NewHandler(conn, tokens, cfg.AdminLoginRate)

	r.Mount("/admin", admin.SetupRoutes(h))
	r.Mount("/admin-dashboard", admin.DashboardRoutes(h))
}
