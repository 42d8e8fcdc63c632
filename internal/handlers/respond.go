package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"filemind/backend/internal/apperr"
	"filemind/backend/internal/fieldcodec"
	"filemind/backend/internal/models"
)

// respondError maps any error to its HTTP status and the {code, message}
// body. Causes are logged server-side only.
func respondError(c *gin.Context, log *zap.SugaredLogger, err error) {
	appErr := apperr.From(err)
	if appErr.Status >= 500 {
		log.Errorw("request failed", "path", c.Request.URL.Path, "error", err)
	} else {
		log.Infow("request rejected", "path", c.Request.URL.Path, "code", appErr.Code, "message", appErr.Message)
	}
	c.JSON(appErr.Status, gin.H{"code": appErr.Code, "message": appErr.Message})
}

// decryptUser produces the plaintext view of a user: every encrypted field,
// including nested file summaries and plan history, replaced by its
// decrypted value. The password hash never leaves through serialization
// (json:"-").
func decryptUser(codec *fieldcodec.Codec, user *models.User) (*models.User, error) {
	view := *user

	var err error
	if view.Name, err = codec.Decrypt(user.Name); err != nil {
		return nil, err
	}
	if view.Username, err = codec.Decrypt(user.Username); err != nil {
		return nil, err
	}
	if view.Email, err = codec.Decrypt(user.Email); err != nil {
		return nil, err
	}
	if view.DateOfBirth, err = codec.Decrypt(user.DateOfBirth); err != nil {
		return nil, err
	}
	if view.Gender, err = codec.Decrypt(user.Gender); err != nil {
		return nil, err
	}
	if view.ProfileImageURL, err = codec.Decrypt(user.ProfileImageURL); err != nil {
		return nil, err
	}
	if view.PushToken, err = codec.Decrypt(user.PushToken); err != nil {
		return nil, err
	}

	view.Files = make([]models.FileSummary, len(user.Files))
	for i, file := range user.Files {
		decrypted, err := decryptFileSummary(codec, file)
		if err != nil {
			return nil, err
		}
		view.Files[i] = decrypted
	}

	view.PremiumHistory = make([]models.PlanPurchase, len(user.PremiumHistory))
	for i, purchase := range user.PremiumHistory {
		name, err := codec.Decrypt(purchase.PlanName)
		if err != nil {
			return nil, err
		}
		view.PremiumHistory[i] = models.PlanPurchase{PlanName: name, PurchasedAt: purchase.PurchasedAt}
	}

	return &view, nil
}

func decryptFileSummary(codec *fieldcodec.Codec, file models.FileSummary) (models.FileSummary, error) {
	view := file

	var err error
	if view.Name, err = codec.Decrypt(file.Name); err != nil {
		return models.FileSummary{}, err
	}
	if view.URL, err = codec.Decrypt(file.URL); err != nil {
		return models.FileSummary{}, err
	}
	if view.StoragePath, err = codec.Decrypt(file.StoragePath); err != nil {
		return models.FileSummary{}, err
	}
	return view, nil
}
