// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/secretsanta/internal/app/store/audit"
	"github.com/dalemusser/secretsanta/internal/app/store/storeapi"
	"github.com/dalemusser/secretsanta/internal/app/system/bus"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
type DBDeps struct {
	Backend string
	Store   storeapi.Backend

	// Set only for the mongo backend.
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database
	Audit         *audit.Store

	// Optional; nil when not configured.
	Redis *redis.Client
	Bus   *bus.Bus
}
