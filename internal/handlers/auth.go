package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"filemind/backend/internal/apperr"
	"filemind/backend/internal/auth"
	"filemind/backend/internal/fieldcodec"
	"filemind/backend/internal/models"
	"filemind/backend/internal/store"
)

// AuthHandler serves the identity routes: signup, login, password reset,
// the existence probes, push-token updates and account deactivation.
type AuthHandler struct {
	users  UserStore
	files  FileIndexStore
	blobs  BlobStore
	codec  *fieldcodec.Codec
	tokens *auth.TokenManager
	log    *zap.SugaredLogger
}

func NewAuthHandler(users UserStore, files FileIndexStore, blobs BlobStore, codec *fieldcodec.Codec, tokens *auth.TokenManager, log *zap.SugaredLogger) *AuthHandler {
	return &AuthHandler{users: users, files: files, blobs: blobs, codec: codec, tokens: tokens, log: log}
}

type SignupRequest struct {
	Name            string `json:"name"`
	Username        string `json:"username" binding:"required"`
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required"`
	DateOfBirth     string `json:"dob"`
	Gender          string `json:"gender"`
	ProfileImageURL string `json:"profileImageUrl"`
	PushToken       string `json:"pushToken"`
}

// Signup creates a verified user. Email ownership was already proven through
// the OTP flow before the client calls this, so the record starts verified.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, apperr.BadRequest("name, username, email and password are required"))
		return
	}

	ctx := c.Request.Context()
	emailHash := fieldcodec.Hash(req.Email)

	exists, err := h.users.ExistsByEmailHash(ctx, emailHash)
	if err != nil {
		respondError(c, h.log, apperr.Internal("failed to check existing user", err))
		return
	}
	if exists {
		respondError(c, h.log, apperr.Conflict("an account with this email already exists"))
		return
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(c, h.log, apperr.Internal("failed to hash password", err))
		return
	}

	user := models.User{
		UsernameHash: fieldcodec.Hash(req.Username),
		EmailHash:    emailHash,
		PasswordHash: string(passwordHash),
		Verified:     true,
		Files:        []models.FileSummary{},
	}
	encrypted := map[*string]string{
		&user.Name:            req.Name,
		&user.Username:        req.Username,
		&user.Email:           req.Email,
		&user.DateOfBirth:     req.DateOfBirth,
		&user.Gender:          req.Gender,
		&user.ProfileImageURL: req.ProfileImageURL,
		&user.PushToken:       req.PushToken,
	}
	for field, plaintext := range encrypted {
		if *field, err = h.codec.Encrypt(plaintext); err != nil {
			respondError(c, h.log, apperr.Internal("failed to encode user record", err))
			return
		}
	}

	if err := h.users.Insert(ctx, &user); err != nil {
		if err == store.ErrDuplicate {
			respondError(c, h.log, apperr.Conflict("an account with this email or username already exists"))
			return
		}
		respondError(c, h.log, apperr.Internal("failed to create user", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login authenticates by username hash and returns the full decrypted user
// together with a one-hour bearer token. This is the only place the complete
// plaintext view of a user is reconstructed.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, apperr.BadRequest("username and password are required"))
		return
	}

	ctx := c.Request.Context()
	user, err := h.users.FindByUsernameHash(ctx, fieldcodec.Hash(req.Username))
	if err == store.ErrNotFound {
		respondError(c, h.log, &apperr.Error{Status: http.StatusBadRequest, Code: apperr.CodeNotFound, Message: "user not found"})
		return
	}
	if err != nil {
		respondError(c, h.log, apperr.Internal("failed to fetch user", err))
		return
	}
	if !user.Verified {
		respondError(c, h.log, apperr.Forbidden("account is not verified"))
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		respondError(c, h.log, apperr.Unauthorized("incorrect password"))
		return
	}

	view, err := decryptUser(h.codec, user)
	if err != nil {
		respondError(c, h.log, apperr.Internal("failed to decode user record", err))
		return
	}

	token, err := h.tokens.Generate(user.ID.Hex(), view.Email)
	if err != nil {
		respondError(c, h.log, apperr.Internal("failed to generate token", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user": view})
}

type ResetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`
	NewPassword string `json:"newPassword" binding:"required"`
}

// ResetPassword overwrites the stored hash, refusing a password identical to
// the current one.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, apperr.BadRequest("email and newPassword are required"))
		return
	}

	ctx := c.Request.Context()
	emailHash := fieldcodec.Hash(req.Email)

	user, err := h.users.FindByEmailHash(ctx, emailHash)
	if err == store.ErrNotFound {
		respondError(c, h.log, &apperr.Error{Status: http.StatusBadRequest, Code: apperr.CodeNotFound, Message: "user not found"})
		return
	}
	if err != nil {
		respondError(c, h.log, apperr.Internal("failed to fetch user", err))
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.NewPassword)) == nil {
		respondError(c, h.log, apperr.ConflictStatus("new password must differ from the current password"))
		return
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		respondError(c, h.log, apperr.Internal("failed to hash password", err))
		return
	}
	if err := h.users.UpdatePasswordByEmailHash(ctx, emailHash, string(passwordHash)); err != nil {
		respondError(c, h.log, apperr.Internal("failed to update password", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "password updated successfully"})
}

type emailProbeRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type usernameProbeRequest struct {
	Username string `json:"username" binding:"required"`
}

// CheckUserExists reports whether an account with the email already exists
// (pre-signup dedup probe).
func (h *AuthHandler) CheckUserExists(c *gin.Context) {
	var req emailProbeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, apperr.BadRequest("email is required"))
		return
	}
	exists, err := h.users.ExistsByEmailHash(c.Request.Context(), fieldcodec.Hash(req.Email))
	if err != nil {
		respondError(c, h.log, apperr.Internal("failed to check user", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"exists": exists})
}

// CheckUsername reports whether a username is still available.
func (h *AuthHandler) CheckUsername(c *gin.Context) {
	var req usernameProbeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, apperr.BadRequest("username is required"))
		return
	}
	taken, err := h.users.ExistsByUsernameHash(c.Request.Context(), fieldcodec.Hash(req.Username))
	if err != nil {
		respondError(c, h.log, apperr.Internal("failed to check username", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"available": !taken})
}

// CheckValidUser reports whether the username belongs to an existing,
// verified account. The password-reset flow gates on this before sending an
// OTP.
func (h *AuthHandler) CheckValidUser(c *gin.Context) {
	var req usernameProbeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, apperr.BadRequest("username is required"))
		return
	}
	user, err := h.users.FindByUsernameHash(c.Request.Context(), fieldcodec.Hash(req.Username))
	if err == store.ErrNotFound {
		c.JSON(http.StatusOK, gin.H{"valid": false})
		return
	}
	if err != nil {
		respondError(c, h.log, apperr.Internal("failed to check user", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": user.Verified})
}

type UpdatePushTokenRequest struct {
	Username  string `json:"username" binding:"required"`
	PushToken string `json:"pushToken" binding:"required"`
}

// UpdatePushToken stores a new notification token, encrypted.
func (h *AuthHandler) UpdatePushToken(c *gin.Context) {
	var req UpdatePushTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, apperr.BadRequest("username and pushToken are required"))
		return
	}
	encrypted, err := h.codec.Encrypt(req.PushToken)
	if err != nil {
		respondError(c, h.log, apperr.Internal("failed to encode token", err))
		return
	}
	err = h.users.SetPushToken(c.Request.Context(), fieldcodec.Hash(req.Username), encrypted)
	if err == store.ErrNotFound {
		respondError(c, h.log, &apperr.Error{Status: http.StatusBadRequest, Code: apperr.CodeNotFound, Message: "user not found"})
		return
	}
	if err != nil {
		respondError(c, h.log, apperr.Internal("failed to update token", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type DeactivateRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Username string `json:"username" binding:"required"`
}

// Deactivate cascades: object-storage blobs under the user's prefix, the
// user row, then the file-index rows. The three deletions are not wrapped in
// a transaction; a partial failure reports 500 and leaves whatever already
// succeeded deleted.
func (h *AuthHandler) Deactivate(c *gin.Context) {
	var req DeactivateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, apperr.BadRequest("email and username are required"))
		return
	}

	ctx := c.Request.Context()
	emailHash := fieldcodec.Hash(req.Email)
	usernameHash := fieldcodec.Hash(req.Username)

	if _, err := h.users.FindByEmailHash(ctx, emailHash); err != nil {
		if err == store.ErrNotFound {
			respondError(c, h.log, &apperr.Error{Status: http.StatusBadRequest, Code: apperr.CodeNotFound, Message: "user not found"})
			return
		}
		respondError(c, h.log, apperr.Internal("failed to fetch user", err))
		return
	}

	if err := h.blobs.DeletePrefix(ctx, req.Username+"/"); err != nil {
		respondError(c, h.log, apperr.Internal("failed to delete stored files", err))
		return
	}
	if err := h.users.DeleteByEmailHash(ctx, emailHash); err != nil {
		respondError(c, h.log, apperr.Internal("failed to delete user", err))
		return
	}
	if err := h.files.DeleteByOwner(ctx, usernameHash); err != nil {
		respondError(c, h.log, apperr.Internal("failed to delete file index", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
