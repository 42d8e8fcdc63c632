package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is the identity record. Sensitive attributes are stored twice: an
// encrypted envelope for display plus a deterministic hash of the plaintext
// for equality lookup. Only the hashes are indexed.
type User struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name             string             `bson:"name" json:"name"`
	Username         string             `bson:"username" json:"username"`
	UsernameHash     string             `bson:"usernameHash" json:"-"`
	Email            string             `bson:"email" json:"email"`
	EmailHash        string             `bson:"emailHash" json:"-"`
	PasswordHash     string             `bson:"passwordHash" json:"-"`
	DateOfBirth      string             `bson:"dateOfBirth" json:"dateOfBirth"`
	Gender           string             `bson:"gender" json:"gender"`
	Verified         bool               `bson:"verified" json:"verified"`
	IsPremium        bool               `bson:"isPremium" json:"isPremium"`
	PremiumHistory   []PlanPurchase     `bson:"premiumHistory" json:"premiumHistory"`
	ProfileImageURL  string             `bson:"profileImageUrl" json:"profileImageUrl"`
	PushToken        string             `bson:"pushToken" json:"pushToken"`
	PromptUsageCount int                `bson:"promptUsageCount" json:"promptUsageCount"`
	Files            []FileSummary      `bson:"files" json:"files"`
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// PlanPurchase is one premium plan purchase. PlanName is encrypted at rest.
type PlanPurchase struct {
	PlanName    string    `bson:"planName" json:"planName"`
	PurchasedAt time.Time `bson:"purchasedAt" json:"purchasedAt"`
}

// FileSummary is the per-file metadata embedded in a User. Name, URL and
// StoragePath are encrypted; StoragePathHash cross-references the standalone
// FileIndex row.
type FileSummary struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name            string             `bson:"name" json:"name"`
	URL             string             `bson:"url" json:"url"`
	StoragePath     string             `bson:"storagePath" json:"storagePath"`
	StoragePathHash string             `bson:"storagePathHash" json:"-"`
	ContentType     string             `bson:"contentType" json:"contentType"`
	Importance      int                `bson:"importance" json:"importance"`
	UploadedAt      time.Time          `bson:"uploadedAt" json:"uploadedAt"`
}

// FileIndex is the searchable copy of an uploaded file: encrypted metadata
// and extracted text plus the plaintext embedding vector the vector-search
// index requires. Correlated to the owner only by OwnerUsernameHash — the
// application, not the store, keeps it consistent with the embedded
// FileSummary list.
type FileIndex struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name              string             `bson:"name" json:"name"`
	URL               string             `bson:"url" json:"url"`
	StoragePath       string             `bson:"storagePath" json:"storagePath"`
	StoragePathHash   string             `bson:"storagePathHash" json:"-"`
	ExtractedText     string             `bson:"extractedText" json:"-"`
	Embedding         []float32          `bson:"embedding" json:"-"`
	OwnerUsernameHash string             `bson:"ownerUsernameHash" json:"-"`
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
}

// OTPRecord is a short-lived email verification code. A TTL index on
// CreatedAt expires rows 5 minutes after insertion; the verifier also checks
// the age itself since the TTL sweep only runs about once a minute.
type OTPRecord struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	EmailHash string             `bson:"emailHash"`
	Email     string             `bson:"email,omitempty"`
	Code      string             `bson:"code"`
	CreatedAt time.Time          `bson:"createdAt"`
}
