package container

import (
	"context"
	"fmt"

	"team-governance/internal/config"
	"team-governance/internal/governance"
	"team-governance/internal/repository"
	"team-governance/internal/service"
	"team-governance/internal/service/auth"
	"team-governance/pkg/database"
	"team-governance/pkg/logger"
	"team-governance/pkg/redis"
)

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *logger.Logger
	RedisClient *redis.Client
	DB          *database.PostgresDB
	Store       repository.TeamStore
	Ledger      repository.Ledger
	Services    *service.Services
}

// New connects the configured backends and builds the services. The team
// store backend must be reachable. Redis is optional for the postgres store,
// where it only backs the read cache. Without a database there is no ledger
// and reward claims are refused.
func New(ctx context.Context, cfg *config.Config, logger *logger.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: logger}

	if cfg.RedisURL != "" {
		client, err := redis.NewClient(cfg.RedisURL, cfg.Environment, logger.Named("redis").Logger)
		switch {
		case err == nil:
			c.RedisClient = client
			logger.Info("Redis client initialized successfully")
		case cfg.TeamStore == config.StoreRedis:
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		default:
			logger.WithError(err).Warn("Failed to initialize Redis client, proceeding without caching")
		}
	}

	if cfg.DatabaseURL != "" {
		db, err := database.NewPostgresDB(ctx, cfg.DatabaseURL)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		c.DB = db
		c.Ledger = repository.NewPostgresLedger(db, logger.Named("ledger").Logger)
		logger.Info("Database connection pool initialized successfully")
	} else {
		logger.Warn("DATABASE_URL not configured, reward claims are disabled")
	}

	storeLogger := logger.Named("store").Logger
	var opts []service.TeamServiceOption
	switch cfg.TeamStore {
	case config.StorePostgres:
		if c.DB == nil {
			c.Close()
			return nil, fmt.Errorf("TEAM_STORE=%s requires DATABASE_URL", config.StorePostgres)
		}
		c.Store = repository.NewPostgresTeamStore(c.DB, storeLogger)
		if c.RedisClient != nil {
			opts = append(opts, service.WithCache(service.NewTeamCache(c.RedisClient, cfg.TeamCacheTTL, logger.Named("cache").Logger)))
		}
	default:
		lock := repository.DefaultLockOptions()
		lock.TTL = cfg.TeamLockTTL
		lock.Retries = cfg.TeamLockRetries
		c.Store = repository.NewRedisTeamStore(c.RedisClient, lock, storeLogger)
	}

	rules := governance.Rules{RemoveRequiresCaptain: cfg.RemoveMemberRequiresCaptain}

	c.Services = &service.Services{
		Identity: auth.NewService(cfg.JWTSecret, cfg.JWTIssuer, logger.Named("auth")),
		Teams:    service.NewTeamService(c.Store, c.Ledger, rules, logger.Named("teams").Logger, opts...),
	}

	logger.WithFields(map[string]interface{}{
		"team_store": cfg.TeamStore,
		"ledger":     c.Ledger != nil,
		"cache":      len(opts) > 0,
	}).Info("Container initialized")

	return c, nil
}

// GetIdentityProvider returns the token verifier
func (c *Container) GetIdentityProvider() service.IdentityProvider {
	return c.Services.Identity
}

// GetTeamService returns the governance operations
func (c *Container) GetTeamService() service.TeamOperations {
	return c.Services.Teams
}

// GetLogger returns the logger
func (c *Container) GetLogger() *logger.Logger {
	return c.Logger
}

// GetConfig returns the configuration
func (c *Container) GetConfig() *config.Config {
	return c.Config
}

// GetRedisClient returns the Redis client (may be nil if not configured)
func (c *Container) GetRedisClient() *redis.Client {
	return c.RedisClient
}

// HasRedis returns true if Redis client is available
func (c *Container) HasRedis() bool {
	return c.RedisClient != nil
}

// HasLedger returns true if reward claims can be paid
func (c *Container) HasLedger() bool {
	return c.Ledger != nil
}

// Close releases the backend connections
func (c *Container) Close() {
	if c.RedisClient != nil {
		_ = c.RedisClient.Close()
	}
	if c.DB != nil {
		c.DB.Close()
	}
}
