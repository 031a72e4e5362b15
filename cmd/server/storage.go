package main

import (
	"context"
	"fmt"

	"github.com/VitaminP8/blogexpress/internal/config"
	"github.com/VitaminP8/blogexpress/internal/post"
	"github.com/VitaminP8/blogexpress/internal/storage/memory"
	"github.com/VitaminP8/blogexpress/internal/storage/mongodb"
	"github.com/VitaminP8/blogexpress/internal/storage/sqlstore"
	"github.com/VitaminP8/blogexpress/internal/user"
	"go.uber.org/zap"
)

type stores struct {
	users user.UserStorage
	posts post.PostStorage
	close func()
}

// openStores создает хранилища выбранного типа: memory, postgres, mysql, sqlite или mongo.
func openStores(ctx context.Context, kind string, cfg config.Config, logger *zap.Logger) (*stores, error) {
	switch kind {
	case "memory":
		logger.Info("using in-memory storage")
		return &stores{
			users: memory.NewUserMemoryStorage(),
			posts: memory.NewPostMemoryStorage(),
			close: func() {},
		}, nil

	case "postgres", "mysql", "sqlite":
		dbCfg := cfg.Database
		dbCfg.Driver = kind
		if kind == "sqlite" {
			dbCfg.Driver = "sqlite3"
		}

		db, err := sqlstore.Open(dbCfg, logger)
		if err != nil {
			return nil, err
		}
		return &stores{
			users: sqlstore.NewUserStorage(db),
			posts: sqlstore.NewPostStorage(db),
			close: func() {
				if err := db.Close(); err != nil {
					logger.Warn("failed to close database", zap.Error(err))
				}
			},
		}, nil

	case "mongo":
		client, db, err := mongodb.Connect(ctx, cfg.Mongo, logger)
		if err != nil {
			return nil, err
		}
		return &stores{
			users: mongodb.NewUserStorage(db),
			posts: mongodb.NewPostStorage(db),
			close: func() {
				if err := client.Disconnect(context.Background()); err != nil {
					logger.Warn("failed to disconnect from mongo", zap.Error(err))
				}
			},
		}, nil

	default:
		return nil, fmt.Errorf("unknown storage type %q", kind)
	}
}
