package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"filemind/backend/internal/models"
)

// OTPStore persists one-time codes. Rows auto-expire through the TTL index
// on createdAt; Replace additionally guarantees at most one live code per
// email hash.
type OTPStore struct {
	col *mongo.Collection
}

func NewOTPStore(col *mongo.Collection) *OTPStore {
	return &OTPStore{col: col}
}

// Replace drops every outstanding code for the email hash and inserts the
// new one, invalidating any previously sent code.
func (s *OTPStore) Replace(ctx context.Context, record *models.OTPRecord) error {
	if _, err := s.col.DeleteMany(ctx, bson.M{"emailHash": record.EmailHash}); err != nil {
		return err
	}
	if record.ID.IsZero() {
		record.ID = primitive.NewObjectID()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	_, err := s.col.InsertOne(ctx, record)
	return err
}

// Find returns the record matching the exact (emailHash, code) pair.
func (s *OTPStore) Find(ctx context.Context, emailHash, code string) (*models.OTPRecord, error) {
	var record models.OTPRecord
	err := s.col.FindOne(ctx, bson.M{"emailHash": emailHash, "code": code}).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// DeleteAll consumes every code for the email hash (one-shot use).
func (s *OTPStore) DeleteAll(ctx context.Context, emailHash string) error {
	_, err := s.col.DeleteMany(ctx, bson.M{"emailHash": emailHash})
	return err
}
