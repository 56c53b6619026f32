package app

import (
	"context"

	"federation-service/internal/config"
	"federation-service/internal/db"
	"federation-service/internal/logger"
	"federation-service/internal/redis"
)

type Infra struct {
	DB    *db.DB
	Redis *redis.Client
}

func setupInfra(ctx context.Context, cfg config.Config) (*Infra, error) {
	database, err := db.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(ctx, database); err != nil {
		database.Close()
		return nil, err
	}

	logger.Info("database ready", nil)

	redisClient, err := redis.New(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		database.Close()
		return nil, err
	}

	logger.Info("redis ready", map[string]any{
		"addr": cfg.RedisAddr,
	})

	return &Infra{
		DB:    database,
		Redis: redisClient,
	}, nil
}

func (i *Infra) Close() error {
	redisErr := i.Redis.Close()
	if err := i.DB.Close(); err != nil {
		return err
	}
	return redisErr
}
