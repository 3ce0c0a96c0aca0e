package lib

import (
	"context"
	"log/slog"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	Client *mongo.Client
	DB     *mongo.Database
)

// ConnectDB opens the MongoDB connection and sets the global DB handle.
// The process cannot serve anything without it, so failure is fatal.
func ConnectDB() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(Cfg.MongoURI))
	if err != nil {
		slog.Error("failed to connect to MongoDB", "uri", Cfg.MongoURI, "error", err)
		os.Exit(1)
	}
	if err := client.Ping(ctx, nil); err != nil {
		slog.Error("MongoDB ping failed", "uri", Cfg.MongoURI, "error", err)
		os.Exit(1)
	}

	Client = client
	DB = client.Database(Cfg.MongoDatabase)
	ensureIndexes(ctx)

	slog.Info("connected to MongoDB", "database", Cfg.MongoDatabase)
}

func ensureIndexes(ctx context.Context) {
	users := DB.Collection("users")
	_, err := users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		slog.Warn("failed to ensure user indexes", "error", err)
	}
}
