// Package bootstrap builds the dependency graph shared by the API server
// and teamscopectl.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dimitrije/teamscope/internal/config"
	"github.com/dimitrije/teamscope/internal/crypt"
	"github.com/dimitrije/teamscope/internal/database"
	"github.com/dimitrije/teamscope/internal/hashid"
	"github.com/dimitrije/teamscope/internal/rbac"
	"github.com/dimitrije/teamscope/internal/seed"
	"github.com/dimitrije/teamscope/internal/services"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type App struct {
	Config *config.Config
	Logger *zap.Logger

	DB        *database.DB
	Codec     *hashid.Codec
	Encrypter *crypt.Encrypter
	RBAC      *rbac.Store

	Users  *services.UserService
	Teams  *services.TeamService
	Roles  *services.RoleService
	Tokens *services.TokenService
	JWT    *services.JWTService
	Email  *services.EmailService
}

// Bootstrap connects to the database (and Redis when configured) and
// wires the services. The returned cleanup closes every connection.
func Bootstrap(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, func(), error) {
	codec, err := hashid.New(cfg.HashidSalt, cfg.HashidMinLength)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create hashid codec: %w", err)
	}

	enc, err := crypt.NewEncrypter(cfg.AppKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create encrypter: %w", err)
	}

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	cache, redisClient, err := newPermissionCache(ctx, cfg.Cache, logger)
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	cleanup := func() {
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				logger.Warn("failed to close redis client", zap.Error(err))
			}
		}
		db.Close()
	}

	store := rbac.NewStore(db, cache, logger.Named("rbac"))
	users := services.NewUserService(db, enc, codec, store, logger.Named("users"))

	return &App{
		Config:    cfg,
		Logger:    logger,
		DB:        db,
		Codec:     codec,
		Encrypter: enc,
		RBAC:      store,
		Users:     users,
		Teams:     services.NewTeamService(db, codec, store, users, cfg.SuperAdminUserID, logger.Named("teams")),
		Roles:     services.NewRoleService(db, codec, store),
		Tokens:    services.NewTokenService(db),
		JWT:       services.NewJWTService(cfg.JWTSecret, cfg.JWTAccessExpiry, cfg.JWTRefreshExpiry),
		Email:     services.NewEmailService(cfg.SMTP),
	}, cleanup, nil
}

// SeedDeps exposes the services the seeders need.
func (a *App) SeedDeps() seed.Deps {
	return seed.Deps{
		DB:     a.DB,
		RBAC:   a.RBAC,
		Teams:  a.Teams,
		Users:  a.Users,
		Logger: a.Logger.Named("seed"),
	}
}

func newPermissionCache(ctx context.Context, cfg config.CacheConfig, logger *zap.Logger) (rbac.Cache, *redis.Client, error) {
	if cfg.RedisURL == "" {
		logger.Info("permission cache: in-process LRU", zap.Int("size", cfg.Size), zap.Duration("ttl", cfg.TTL))
		return rbac.NewLRUCache(cfg.Size, cfg.TTL), nil, nil
	}

	client, err := rbac.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("permission cache: %w", err)
	}
	logger.Info("permission cache: redis", zap.Duration("ttl", cfg.TTL))
	return rbac.NewRedisCache(client, cfg.TTL, logger.Named("cache")), client, nil
}
