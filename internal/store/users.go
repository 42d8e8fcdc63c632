// Package store holds the Mongo repositories. Each repository wraps a
// collection handle injected at startup; none of them touch process globals.
package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"filemind/backend/internal/models"
)

// ErrNotFound is returned when a lookup matches no document.
var ErrNotFound = errors.New("store: not found")

// ErrDuplicate is returned when an insert violates a unique index.
var ErrDuplicate = errors.New("store: duplicate")

// UserStore persists identity records.
type UserStore struct {
	col *mongo.Collection
}

func NewUserStore(col *mongo.Collection) *UserStore {
	return &UserStore{col: col}
}

func (s *UserStore) Insert(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	_, err := s.col.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

func (s *UserStore) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	err := s.col.FindOne(ctx, filter).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserStore) FindByUsernameHash(ctx context.Context, usernameHash string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"usernameHash": usernameHash})
}

func (s *UserStore) FindByEmailHash(ctx context.Context, emailHash string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"emailHash": emailHash})
}

func (s *UserStore) ExistsByEmailHash(ctx context.Context, emailHash string) (bool, error) {
	n, err := s.col.CountDocuments(ctx, bson.M{"emailHash": emailHash}, options.Count().SetLimit(1))
	return n > 0, err
}

func (s *UserStore) ExistsByUsernameHash(ctx context.Context, usernameHash string) (bool, error) {
	n, err := s.col.CountDocuments(ctx, bson.M{"usernameHash": usernameHash}, options.Count().SetLimit(1))
	return n > 0, err
}

func (s *UserStore) update(ctx context.Context, filter, update bson.M) error {
	set, ok := update["$set"].(bson.M)
	if !ok {
		set = bson.M{}
		update["$set"] = set
	}
	set["updatedAt"] = time.Now().UTC()

	result, err := s.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *UserStore) UpdatePasswordByEmailHash(ctx context.Context, emailHash, passwordHash string) error {
	return s.update(ctx, bson.M{"emailHash": emailHash}, bson.M{"$set": bson.M{"passwordHash": passwordHash}})
}

func (s *UserStore) SetPushToken(ctx context.Context, usernameHash, encryptedToken string) error {
	return s.update(ctx, bson.M{"usernameHash": usernameHash}, bson.M{"$set": bson.M{"pushToken": encryptedToken}})
}

func (s *UserStore) SetProfileImageURL(ctx context.Context, usernameHash, encryptedURL string) error {
	return s.update(ctx, bson.M{"usernameHash": usernameHash}, bson.M{"$set": bson.M{"profileImageUrl": encryptedURL}})
}

// PushFile appends a file summary to the user's embedded list.
func (s *UserStore) PushFile(ctx context.Context, usernameHash string, file models.FileSummary) error {
	return s.update(ctx, bson.M{"usernameHash": usernameHash}, bson.M{"$push": bson.M{"files": file}})
}

// PullFile removes a file summary by sub-document id and returns the updated
// user.
func (s *UserStore) PullFile(ctx context.Context, usernameHash string, fileID primitive.ObjectID) (*models.User, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.M{
		"$pull": bson.M{"files": bson.M{"_id": fileID}},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}
	var user models.User
	err := s.col.FindOneAndUpdate(ctx, bson.M{"usernameHash": usernameHash}, update, opts).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// IncrementPromptUsage consumes one unit of prompt quota with a single
// conditional $inc, so two concurrent consumers can never both take the last
// slot. limit is ignored when unlimited is true. Returns the new count, or
// ErrNotFound when no document matched (user missing or counter already at
// the limit); the caller disambiguates by fetching the user first.
func (s *UserStore) IncrementPromptUsage(ctx context.Context, usernameHash string, limit int, unlimited bool) (int, error) {
	filter := bson.M{"usernameHash": usernameHash}
	if !unlimited {
		filter["promptUsageCount"] = bson.M{"$lt": limit}
	}
	update := bson.M{
		"$inc": bson.M{"promptUsageCount": 1},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var user models.User
	err := s.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return user.PromptUsageCount, nil
}

// GrantPremium marks the user premium and appends a plan purchase. There is
// deliberately no dedup on repeated payloads (see DESIGN.md).
func (s *UserStore) GrantPremium(ctx context.Context, usernameHash string, purchase models.PlanPurchase) error {
	return s.update(ctx, bson.M{"usernameHash": usernameHash}, bson.M{
		"$set":  bson.M{"isPremium": true},
		"$push": bson.M{"premiumHistory": purchase},
	})
}

func (s *UserStore) DeleteByEmailHash(ctx context.Context, emailHash string) error {
	result, err := s.col.DeleteOne(ctx, bson.M{"emailHash": emailHash})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
