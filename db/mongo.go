package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

type Mongo struct {
	Client        *mongo.Client
	DB            *mongo.Database
	Users         *mongo.Collection
	APIKeys       *mongo.Collection
	Notifications *mongo.Collection
}

type MongoConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

func NewMongo(cfg MongoConfig) (*Mongo, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB, %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB, %w", err)
	}

	d := client.Database(cfg.Database)

	m := &Mongo{
		Client:        client,
		DB:            d,
		Users:         d.Collection("users"),
		APIKeys:       d.Collection("apikeys"),
		Notifications: d.Collection("notifications"),
	}

	if err := m.createIndexes(ctx); err != nil {
		return nil, fmt.Errorf("failed to create indexes, %w", err)
	}

	zap.L().Info("Connected to MongoDB", zap.String("database", cfg.Database))
	return m, nil
}

func (m *Mongo) createIndexes(ctx context.Context) error {
	userIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "role", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "created_at", Value: -1}},
		},
	}

	if _, err := m.Users.Indexes().CreateMany(ctx, userIndexes); err != nil {
		return fmt.Errorf("failed to create user indexes, %w", err)
	}

	// One document per owner
	ownerIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}

	if _, err := m.APIKeys.Indexes().CreateOne(ctx, ownerIndex); err != nil {
		return fmt.Errorf("failed to create api key indexes, %w", err)
	}

	if _, err := m.Notifications.Indexes().CreateOne(ctx, ownerIndex); err != nil {
		return fmt.Errorf("failed to create notification indexes, %w", err)
	}

	return nil
}

func (m *Mongo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return m.Client.Disconnect(ctx)
}
