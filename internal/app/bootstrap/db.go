// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dalemusser/secretsanta/internal/app/store/audit"
	groupstore "github.com/dalemusser/secretsanta/internal/app/store/groups"
	"github.com/dalemusser/secretsanta/internal/app/store/memstore"
	participantstore "github.com/dalemusser/secretsanta/internal/app/store/participants"
	"github.com/dalemusser/secretsanta/internal/app/store/remote"
	"github.com/dalemusser/secretsanta/internal/app/store/storeapi"
	userstore "github.com/dalemusser/secretsanta/internal/app/store/users"
	"github.com/dalemusser/secretsanta/internal/app/system/bus"
	"github.com/dalemusser/secretsanta/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ConnectDB opens the configured store backend plus the optional Redis and
// NATS connections. Anything opened before a failure is closed again.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	deps := DBDeps{Backend: appCfg.StoreBackend}

	switch appCfg.StoreBackend {
	case BackendMongo:
		client, err := connectMongo(ctx, appCfg)
		if err != nil {
			return DBDeps{}, err
		}
		db := client.Database(appCfg.MongoDatabase)
		deps.MongoClient = client
		deps.MongoDatabase = db
		deps.Audit = audit.New(db)
		deps.Store = storeapi.Backend{
			Participants: participantstore.New(db),
			Groups:       groupstore.New(db),
			Users:        userstore.New(db),
			Pinger:       mongoPinger{client},
		}
		logger.Info("connected to MongoDB", zap.String("database", appCfg.MongoDatabase))

	case BackendRemote:
		c, err := remote.New(remote.Config{
			BaseURL:       appCfg.RemoteBaseURL,
			GroupsBaseURL: appCfg.RemoteGroupsBaseURL,
			Timeout:       appCfg.RemoteTimeout,
		}, &http.Client{}, logger)
		if err != nil {
			return DBDeps{}, fmt.Errorf("remote store: %w", err)
		}
		deps.Store = c.Backend()
		logger.Info("using remote store", zap.String("base_url", appCfg.RemoteBaseURL))

	case BackendMemory:
		deps.Store = memstore.New().Backend()
	}

	if appCfg.RedisURL != "" {
		rdb, err := connectRedis(ctx, appCfg.RedisURL)
		if err != nil {
			_ = closeDeps(ctx, deps, logger)
			return DBDeps{}, err
		}
		deps.Redis = rdb
		logger.Info("connected to Redis; draw leases are shared across instances")
	}

	if appCfg.NATSURL != "" {
		b, err := bus.New(appCfg.NATSURL, nats.Name("secretsanta"))
		if err != nil {
			_ = closeDeps(ctx, deps, logger)
			return DBDeps{}, fmt.Errorf("nats connect: %w", err)
		}
		deps.Bus = b
		logger.Info("connected to NATS", zap.String("subject", bus.SubjectDrawCompleted))
	}

	return deps, nil
}

func connectMongo(ctx context.Context, appCfg AppConfig) (*mongo.Client, error) {
	opts := options.Client().
		ApplyURI(appCfg.MongoURI).
		SetMaxPoolSize(appCfg.MongoMaxPoolSize).
		SetMinPoolSize(appCfg.MongoMinPoolSize)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeouts.Ping())
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

func connectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, timeouts.Ping())
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// closeDeps releases every connection in deps and reports all failures.
func closeDeps(ctx context.Context, deps DBDeps, logger *zap.Logger) error {
	var err error
	if deps.Bus != nil {
		logger.Info("draining NATS connection")
		deps.Bus.Close()
	}
	if deps.Redis != nil {
		logger.Info("closing Redis client")
		err = multierr.Append(err, deps.Redis.Close())
	}
	if deps.MongoClient != nil {
		logger.Info("disconnecting MongoDB client")
		err = multierr.Append(err, deps.MongoClient.Disconnect(ctx))
	}
	return err
}

// mongoPinger reports MongoDB connectivity for /health.
type mongoPinger struct {
	client *mongo.Client
}

func (p mongoPinger) Ping(ctx context.Context) error {
	if err := p.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("%w: %v", storeapi.ErrUnavailable, err)
	}
	return nil
}

// EnsureSchema creates the MongoDB indexes. Other backends own their schema.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if deps.MongoDatabase == nil {
		return nil
	}
	db := deps.MongoDatabase
	indexers := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"participants", participantstore.New(db).EnsureIndexes},
		{"groups", groupstore.New(db).EnsureIndexes},
		{"users", userstore.New(db).EnsureIndexes},
		{"audit_events", deps.Audit.EnsureIndexes},
	}
	for _, ix := range indexers {
		if err := ix.fn(ctx); err != nil {
			logger.Error("ensure indexes failed", zap.String("collection", ix.name), zap.Error(err))
			return fmt.Errorf("ensure %s indexes: %w", ix.name, err)
		}
	}
	logger.Info("MongoDB indexes ensured")
	return nil
}
