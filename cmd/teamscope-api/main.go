package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dimitrije/teamscope/internal/authz"
	"github.com/dimitrije/teamscope/internal/bootstrap"
	"github.com/dimitrije/teamscope/internal/config"
	"github.com/dimitrije/teamscope/internal/handlers"
	"github.com/dimitrije/teamscope/internal/logger"
	"github.com/dimitrije/teamscope/internal/metrics"
	authmw "github.com/dimitrije/teamscope/internal/middleware"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/m1z23r/drift/pkg/middleware"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zl, err := logger.New(cfg.Log, cfg.IsProduction())
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx := context.Background()

	app, cleanup, err := bootstrap.Bootstrap(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("bootstrap failed", zap.Error(err))
	}
	defer cleanup()

	if err := app.DB.Migrate(ctx); err != nil {
		zl.Fatal("failed to run migrations", zap.Error(err))
	}

	m := metrics.New()

	gate := authz.NewGate(app.RBAC, authz.WithLogger(zl.Named("authz")), authz.WithRecorder(m))
	gate.After(authz.SuperAdminBypass(app.RBAC))
	authz.RegisterPolicies(gate, app.Users, app.RBAC)

	authHandler := handlers.NewAuthHandler(app.Users, app.Tokens, app.JWT, zl.Named("auth"))
	userHandler := handlers.NewUserHandler(app.Users, app.Teams, gate, app.Codec)
	teamHandler := handlers.NewTeamHandler(app.Teams, app.Users, app.Roles, app.Email, gate, app.Codec, cfg.BaseURL, zl.Named("teams"))
	roleHandler := handlers.NewRoleHandler(app.Roles, gate, app.Codec)

	router := drift.New()

	if cfg.IsProduction() {
		router.SetMode(drift.ReleaseMode)
	} else {
		router.SetMode(drift.DebugMode)
	}

	router.Use(middleware.Recovery())
	router.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		MaxAge:       86400,
	}))
	router.Use(authmw.RequestLogger(zl.Named("http")))
	router.Use(m.Middleware())
	router.Use(middleware.BodyParser())

	api := router.Group("/api/v1")

	api.Get("/health", func(c *drift.Context) {
		_ = c.JSON(200, map[string]string{"status": "ok"})
	})

	auth := api.Group("/auth")
	auth.Post("/login", authHandler.Login)
	auth.Post("/refresh", authHandler.RefreshToken)
	auth.Post("/logout", authHandler.Logout)

	protected := api.Group("")
	protected.Use(authmw.Auth(app.JWT))
	protected.Use(authmw.ActiveTeam(app.Users))

	protected.Post("/auth/logout-all", authHandler.LogoutAll)

	protected.Get("/users/me", userHandler.GetMe)
	protected.Patch("/users/me", userHandler.UpdateMe)
	protected.Get("/users/me/teams", userHandler.MyTeams)
	protected.Put("/users/me/active-team", userHandler.SetActiveTeam)
	protected.Get("/users/:user", userHandler.Show)
	protected.Delete("/users/:user", userHandler.Delete)
	protected.Post("/users/:user/restore", userHandler.Restore)

	protected.Get("/teams", teamHandler.List)
	protected.Post("/teams", teamHandler.Create)
	protected.Get("/teams/:team", teamHandler.Get)
	protected.Patch("/teams/:team", teamHandler.Update)
	protected.Delete("/teams/:team", teamHandler.Delete)
	protected.Get("/teams/:team/members", teamHandler.GetMembers)
	protected.Put("/teams/:team/members/:user", teamHandler.AssignRole)
	protected.Get("/teams/:team/members/:user/role", teamHandler.GetMemberRole)
	protected.Delete("/teams/:team/members/:user", teamHandler.RemoveMember)

	protected.Get("/roles", roleHandler.ListRoles)
	protected.Patch("/roles/:role", roleHandler.Rename)
	protected.Get("/permissions", roleHandler.ListPermissions)

	metricsServer := metrics.NewServer(cfg.Metrics.Addr, m, zl.Named("metrics"))
	metricsServer.Start()

	cleanupCtx, stopCleanup := context.WithCancel(ctx)
	defer stopCleanup()
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-cleanupCtx.Done():
				return
			case <-ticker.C:
				n, err := app.Tokens.CleanupExpired(cleanupCtx)
				if err != nil {
					zl.Warn("refresh token cleanup failed", zap.Error(err))
					continue
				}
				zl.Debug("refresh tokens cleaned up", zap.Int64("deleted", n))
			}
		}
	}()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zl.Info("server starting", zap.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zl.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zl.Error("server shutdown failed", zap.Error(err))
	}
	if err := metricsServer.Stop(shutdownCtx); err != nil {
		zl.Error("metrics server shutdown failed", zap.Error(err))
	}
}
