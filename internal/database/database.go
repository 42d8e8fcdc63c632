package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names.
const (
	UsersCollection     = "users"
	FileIndexCollection = "fileIndex"
	OTPCollection       = "otps"
)

// OTPTTL is how long an OTP row lives before the store expires it.
const OTPTTL = 5 * time.Minute

// Connect opens a client against the given URI and verifies it with a ping.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("database: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("database: ping: %w", err)
	}
	return client, nil
}

// EnsureIndexes creates the indexes the stores depend on: unique lookup
// hashes on users, the storage-path and owner hashes on the file index, and
// the TTL sweep on OTP rows.
//
// The Atlas vector-search index on fileIndex.embedding is managed out of
// band (Atlas search indexes cannot be created through createIndexes).
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	users := db.Collection(UsersCollection)
	_, err := users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "usernameHash", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "emailHash", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
	if err != nil {
		return fmt.Errorf("database: user indexes: %w", err)
	}

	fileIndex := db.Collection(FileIndexCollection)
	_, err = fileIndex.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "storagePathHash", Value: 1}}},
		{Keys: bson.D{{Key: "ownerUsernameHash", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("database: file index indexes: %w", err)
	}

	otps := db.Collection(OTPCollection)
	_, err = otps.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "createdAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(OTPTTL / time.Second)),
		},
		{Keys: bson.D{{Key: "emailHash", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("database: otp indexes: %w", err)
	}

	return nil
}
