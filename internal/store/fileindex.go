package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"filemind/backend/internal/models"
)

// VectorIndexName is the Atlas search index over fileIndex.embedding.
const VectorIndexName = "file_embeddings"

// FileIndexStore persists the searchable copies of uploaded files.
type FileIndexStore struct {
	col *mongo.Collection
}

func NewFileIndexStore(col *mongo.Collection) *FileIndexStore {
	return &FileIndexStore{col: col}
}

func (s *FileIndexStore) Insert(ctx context.Context, row *models.FileIndex) error {
	if row.ID.IsZero() {
		row.ID = primitive.NewObjectID()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	_, err := s.col.InsertOne(ctx, row)
	return err
}

// DeleteByPathHash removes the row matching a storage-path hash. Deleting a
// missing row is not an error; the caller treats index cleanup as
// best-effort.
func (s *FileIndexStore) DeleteByPathHash(ctx context.Context, storagePathHash string) error {
	_, err := s.col.DeleteMany(ctx, bson.M{"storagePathHash": storagePathHash})
	return err
}

// DeleteByOwner removes every row owned by a username hash (account
// deactivation cascade).
func (s *FileIndexStore) DeleteByOwner(ctx context.Context, ownerUsernameHash string) error {
	_, err := s.col.DeleteMany(ctx, bson.M{"ownerUsernameHash": ownerUsernameHash})
	return err
}

// VectorSearch runs the approximate-nearest-neighbor query and then filters
// the hits down to the owner. The owner filter intentionally runs after the
// similarity stage, mirroring the search index layout: with a candidate pool
// of numCandidates the post-filter can return fewer than limit rows for a
// user whose files are a small slice of the corpus. Known behavior, kept
// as-is (see DESIGN.md).
func (s *FileIndexStore) VectorSearch(ctx context.Context, ownerUsernameHash string, vector []float32, limit, numCandidates int) ([]models.FileIndex, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$vectorSearch", Value: bson.D{
			{Key: "index", Value: VectorIndexName},
			{Key: "path", Value: "embedding"},
			{Key: "queryVector", Value: vector},
			{Key: "numCandidates", Value: numCandidates},
			{Key: "limit", Value: limit},
		}}},
		bson.D{{Key: "$match", Value: bson.D{
			{Key: "ownerUsernameHash", Value: ownerUsernameHash},
		}}},
	}

	cursor, err := s.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []models.FileIndex
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}
