package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"filemind/backend/internal/apperr"
	"filemind/backend/internal/fieldcodec"
	"filemind/backend/internal/models"
	"filemind/backend/internal/store"
)

// FileHandler serves the file archive: upload, listing, deletion and
// pre-signed profile-image uploads.
type FileHandler struct {
	users    UserStore
	index    FileIndexStore
	blobs    BlobStore
	ocr      TextExtractor
	embedder DocumentEmbedder
	codec    *fieldcodec.Codec
	log      *zap.SugaredLogger
}

func NewFileHandler(users UserStore, index FileIndexStore, blobs BlobStore, ocr TextExtractor, embedder DocumentEmbedder, codec *fieldcodec.Codec, log *zap.SugaredLogger) *FileHandler {
	return &FileHandler{users: users, index: index, blobs: blobs, ocr: ocr, embedder: embedder, codec: codec, log: log}
}

// Upload runs the full pipeline for one file: stream the blob to object
// storage, OCR it, embed the extracted text, then persist the embedded
// summary and the searchable index row.
//
// A stream failure aborts before any database write. A failure after the
// blob is durable (OCR, embedding, persistence) surfaces as an error and
// leaves the blob orphaned; there is no compensating delete.
func (h *FileHandler) Upload(c *gin.Context) {
	username := c.PostForm("username")
	originalName := c.PostForm("originalname")
	importanceRaw := c.PostForm("importance")
	if username == "" || originalName == "" || importanceRaw == "" {
		respondError(c, h.log, apperr.BadRequest("file, importance, originalname and username are required"))
		return
	}
	importance, err := strconv.Atoi(importanceRaw)
	if err != nil || importance < 1 || importance > 5 {
		respondError(c, h.log, apperr.BadRequest("importance must be an integer between 1 and 5"))
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondError(c, h.log, apperr.BadRequest("file, importance, originalname and username are required"))
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		respondError(c, h.log, apperr.Internal("failed to read uploaded file", err))
		return
	}
	defer f.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	ctx := c.Request.Context()
	usernameHash := fieldcodec.Hash(username)

	// The object key carries the plaintext username; only the stored
	// metadata copy of the path is encrypted.
	key := fmt.Sprintf("%s/%d-%s", username, time.Now().UnixMilli(), originalName)

	publicURL, err := h.blobs.Upload(ctx, key, contentType, f)
	if err != nil {
		respondError(c, h.log, apperr.Internal("failed to store file", err))
		return
	}

	extractedText, err := h.ocr.ExtractText(ctx, h.blobs.URI(key))
	if err != nil {
		respondError(c, h.log, apperr.Internal("failed to extract text", err))
		return
	}

	var embedding []float32
	if extractedText != "" {
		if embedding, err = h.embedder.EmbedDocument(ctx, extractedText); err != nil {
			respondError(c, h.log, apperr.Internal("failed to embed document", err))
			return
		}
	}

	now := time.Now().UTC()
	pathHash := fieldcodec.Hash(key)

	summary := models.FileSummary{
		ID:              primitive.NewObjectID(),
		StoragePathHash: pathHash,
		ContentType:     contentType,
		Importance:      importance,
		UploadedAt:      now,
	}
	row := models.FileIndex{
		StoragePathHash:   pathHash,
		Embedding:         embedding,
		OwnerUsernameHash: usernameHash,
		CreatedAt:         now,
	}

	encoded := map[*string]string{
		&summary.Name:        originalName,
		&summary.URL:         publicURL,
		&summary.StoragePath: key,
		&row.StoragePath:     key,
		&row.ExtractedText:   extractedText,
	}
	for field, plaintext := range encoded {
		if *field, err = h.codec.Encrypt(plaintext); err != nil {
			respondError(c, h.log, apperr.Internal("failed to encode file record", err))
			return
		}
	}
	row.Name = summary.Name
	row.URL = summary.URL

	if err := h.users.PushFile(ctx, usernameHash, summary); err != nil {
		if err == store.ErrNotFound {
			respondError(c, h.log, apperr.BadRequest("user not found"))
			return
		}
		respondError(c, h.log, apperr.Internal("failed to save file record", err))
		return
	}
	if err := h.index.Insert(ctx, &row); err != nil {
		respondError(c, h.log, apperr.Internal("failed to save file index", err))
		return
	}

	// Respond with the plaintext view of the new entry.
	view := summary
	view.Name = originalName
	view.URL = publicURL
	view.StoragePath = key

	c.JSON(http.StatusOK, gin.H{"message": "file uploaded successfully", "file": view})
}

// ListFiles returns the decrypted file list for a user.
func (h *FileHandler) ListFiles(c *gin.Context) {
	username := c.Query("username")
	if username == "" {
		respondError(c, h.log, apperr.BadRequest("username is required"))
		return
	}

	user, err := h.users.FindByUsernameHash(c.Request.Context(), fieldcodec.Hash(username))
	if err == store.ErrNotFound {
		respondError(c, h.log, apperr.NotFound("user not found"))
		return
	}
	if err != nil {
		respondError(c, h.log, apperr.Internal("failed to fetch user", err))
		return
	}

	files := make([]models.FileSummary, 0, len(user.Files))
	for _, file := range user.Files {
		view, err := decryptFileSummary(h.codec, file)
		if err != nil {
			respondError(c, h.log, apperr.Internal("failed to decode file record", err))
			return
		}
		files = append(files, view)
	}

	c.JSON(http.StatusOK, gin.H{"files": files})
}

// DeleteFile removes one file: the blob first (hard failure, nothing else
// runs if it cannot be deleted), then the embedded summary, then the index
// row. Index cleanup is best-effort — a failure there is logged and the
// response still succeeds, because the summary removal already committed.
func (h *FileHandler) DeleteFile(c *gin.Context) {
	username := c.Query("username")
	if username == "" {
		respondError(c, h.log, apperr.BadRequest("username is required"))
		return
	}
	fileID, err := primitive.ObjectIDFromHex(c.Param("fileId"))
	if err != nil {
		respondError(c, h.log, apperr.BadRequest("invalid file id"))
		return
	}

	ctx := c.Request.Context()
	usernameHash := fieldcodec.Hash(username)

	user, err := h.users.FindByUsernameHash(ctx, usernameHash)
	if err == store.ErrNotFound {
		respondError(c, h.log, apperr.NotFound("user not found"))
		return
	}
	if err != nil {
		respondError(c, h.log, apperr.Internal("failed to fetch user", err))
		return
	}

	var target *models.FileSummary
	for i := range user.Files {
		if user.Files[i].ID == fileID {
			target = &user.Files[i]
			break
		}
	}
	if target == nil {
		respondError(c, h.log, apperr.NotFound("file not found"))
		return
	}

	storagePath, err := h.codec.Decrypt(target.StoragePath)
	if err != nil {
		respondError(c, h.log, apperr.Internal("failed to decode file record", err))
		return
	}

	if err := h.blobs.Delete(ctx, storagePath); err != nil {
		respondError(c, h.log, apperr.Upstream("failed to delete stored file", err))
		return
	}

	updated, err := h.users.PullFile(ctx, usernameHash, fileID)
	if err != nil {
		respondError(c, h.log, apperr.Internal("failed to remove file record", err))
		return
	}

	if err := h.index.DeleteByPathHash(ctx, target.StoragePathHash); err != nil {
		h.log.Warnw("failed to delete file index row", "pathHash", target.StoragePathHash, "error", err)
	}

	view, err := decryptUser(h.codec, updated)
	if err != nil {
		respondError(c, h.log, apperr.Internal("failed to decode user record", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "file deleted successfully", "updatedUser": view})
}

type GenerateUploadURLRequest struct {
	Username    string `json:"username" binding:"required"`
	Extension   string `json:"extension" binding:"required"`
	ContentType string `json:"contentType" binding:"required"`
}

// GenerateUploadURL issues a one-hour pre-signed PUT URL for a fresh profile
// image key, clearing older profile objects first. The cleanup runs before
// the caller has uploaded anything to the new URL — optimistic by design, so
// only the newest profile image ever survives.
func (h *FileHandler) GenerateUploadURL(c *gin.Context) {
	var req GenerateUploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, apperr.BadRequest("username, extension and contentType are required"))
		return
	}

	ctx := c.Request.Context()
	prefix := req.Username + "/profile-"

	if err := h.blobs.DeletePrefix(ctx, prefix); err != nil {
		h.log.Warnw("failed to clear previous profile images", "prefix", prefix, "error", err)
	}

	ext := strings.TrimPrefix(req.Extension, ".")
	key := fmt.Sprintf("%sprofile-%d.%s", req.Username+"/", time.Now().UnixMilli(), ext)

	signedURL, err := h.blobs.SignedUploadURL(key, req.ContentType)
	if err != nil {
		respondError(c, h.log, apperr.Internal("failed to sign upload url", err))
		return
	}

	publicURL := h.blobs.ObjectURL(key)

	// Record the future public URL on the user so the profile image stays
	// resolvable once the client completes the PUT.
	encrypted, err := h.codec.Encrypt(publicURL)
	if err != nil {
		respondError(c, h.log, apperr.Internal("failed to encode url", err))
		return
	}
	if err := h.users.SetProfileImageURL(ctx, fieldcodec.Hash(req.Username), encrypted); err != nil && err != store.ErrNotFound {
		respondError(c, h.log, apperr.Internal("failed to update profile image", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"uploadUrl": signedURL, "key": key, "publicUrl": publicURL})
}
