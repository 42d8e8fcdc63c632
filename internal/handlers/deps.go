// Package handlers contains the HTTP route handlers. Each handler struct
// receives its collaborators through the interfaces below, constructed once
// in main and wired through the router.
package handlers

import (
	"context"
	"io"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"filemind/backend/internal/models"
)

// UserStore is the identity persistence the handlers need.
type UserStore interface {
	Insert(ctx context.Context, user *models.User) error
	FindByUsernameHash(ctx context.Context, usernameHash string) (*models.User, error)
	FindByEmailHash(ctx context.Context, emailHash string) (*models.User, error)
	ExistsByEmailHash(ctx context.Context, emailHash string) (bool, error)
	ExistsByUsernameHash(ctx context.Context, usernameHash string) (bool, error)
	UpdatePasswordByEmailHash(ctx context.Context, emailHash, passwordHash string) error
	SetPushToken(ctx context.Context, usernameHash, encryptedToken string) error
	SetProfileImageURL(ctx context.Context, usernameHash, encryptedURL string) error
	PushFile(ctx context.Context, usernameHash string, file models.FileSummary) error
	PullFile(ctx context.Context, usernameHash string, fileID primitive.ObjectID) (*models.User, error)
	IncrementPromptUsage(ctx context.Context, usernameHash string, limit int, unlimited bool) (int, error)
	GrantPremium(ctx context.Context, usernameHash string, purchase models.PlanPurchase) error
	DeleteByEmailHash(ctx context.Context, emailHash string) error
}

// FileIndexStore is the searchable-copy persistence.
type FileIndexStore interface {
	Insert(ctx context.Context, row *models.FileIndex) error
	DeleteByPathHash(ctx context.Context, storagePathHash string) error
	DeleteByOwner(ctx context.Context, ownerUsernameHash string) error
}

// OTPStore persists one-time codes.
type OTPStore interface {
	Replace(ctx context.Context, record *models.OTPRecord) error
	Find(ctx context.Context, emailHash, code string) (*models.OTPRecord, error)
	DeleteAll(ctx context.Context, emailHash string) error
}

// BlobStore is the object storage backing the file archive.
type BlobStore interface {
	Upload(ctx context.Context, key, contentType string, content io.Reader) (string, error)
	ObjectURL(key string) string
	URI(key string) string
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
	SignedUploadURL(key, contentType string) (string, error)
}

// TextExtractor runs OCR over a stored object.
type TextExtractor interface {
	ExtractText(ctx context.Context, gsURI string) (string, error)
}

// DocumentEmbedder embeds extracted document text.
type DocumentEmbedder interface {
	EmbedDocument(ctx context.Context, text string) ([]float32, error)
}

// Answerer is the retrieval-augmented answering pipeline.
type Answerer interface {
	Answer(ctx context.Context, usernameHash, question string) (string, error)
}

// OTPMailer delivers verification codes.
type OTPMailer interface {
	SendOTP(to, code string) error
}

// PaymentGateway creates orders and verifies payment signatures.
type PaymentGateway interface {
	CreateOrder(amount int64) (map[string]interface{}, error)
	VerifySignature(orderID, paymentID, signature string) bool
}
