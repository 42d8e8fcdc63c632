package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"filemind/backend/internal/apperr"
	"filemind/backend/internal/fieldcodec"
	"filemind/backend/internal/models"
	"filemind/backend/internal/services"
	"filemind/backend/internal/store"
)

// BillingHandler serves the entitlement routes: the prompt quota gate, order
// creation and payment verification.
type BillingHandler struct {
	users    UserStore
	payments PaymentGateway
	codec    *fieldcodec.Codec
	log      *zap.SugaredLogger
}

func NewBillingHandler(users UserStore, payments PaymentGateway, codec *fieldcodec.Codec, log *zap.SugaredLogger) *BillingHandler {
	return &BillingHandler{users: users, payments: payments, codec: codec, log: log}
}

type PromptCheckRequest struct {
	Username string `json:"username" binding:"required"`
}

// CheckPromptLimitation consumes one unit of the user's prompt quota. The
// allowance comes from the latest plan purchase: Ultra Pro Max is unlimited,
// Ultra Pro gets 10 and everyone else (including users with no plan history)
// gets the default 3.
func (h *BillingHandler) CheckPromptLimitation(c *gin.Context) {
	var req PromptCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, apperr.BadRequest("username is required"))
		return
	}

	ctx := c.Request.Context()
	usernameHash := fieldcodec.Hash(req.Username)

	user, err := h.users.FindByUsernameHash(ctx, usernameHash)
	if err == store.ErrNotFound {
		respondError(c, h.log, apperr.NotFound("user not found"))
		return
	}
	if err != nil {
		respondError(c, h.log, apperr.Internal("failed to fetch user", err))
		return
	}

	tier := services.TierBasic
	if n := len(user.PremiumHistory); n > 0 {
		planName, err := h.codec.Decrypt(user.PremiumHistory[n-1].PlanName)
		if err != nil {
			respondError(c, h.log, apperr.Internal("failed to decode plan record", err))
			return
		}
		tier = services.TierFromPlanName(planName)
	}

	limit, unlimited := tier.PromptLimit()

	// The store applies a conditional $inc, so the check-and-consume is one
	// atomic write; a no-match here means the counter hit the limit, since
	// the user was just fetched above.
	updated, err := h.users.IncrementPromptUsage(ctx, usernameHash, limit, unlimited)
	if err == store.ErrNotFound {
		respondError(c, h.log, apperr.Forbidden("prompt limit reached"))
		return
	}
	if err != nil {
		respondError(c, h.log, apperr.Internal("failed to update prompt count", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "prompt allowed", "updatedPromptCount": updated})
}

type CreateOrderRequest struct {
	Amount int64 `json:"amount" binding:"required"`
}

// CreateOrder opens a payment order for the given amount in paise.
func (h *BillingHandler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, apperr.BadRequest("amount is required"))
		return
	}

	order, err := h.payments.CreateOrder(req.Amount)
	if err != nil {
		respondError(c, h.log, apperr.Internal("failed to create order", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "order": order})
}

type VerifyPaymentRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id" binding:"required"`
	RazorpayPaymentID string `json:"razorpay_payment_id" binding:"required"`
	RazorpaySignature string `json:"razorpay_signature" binding:"required"`
	Username          string `json:"username" binding:"required"`
	PlanName          string `json:"planName" binding:"required"`
	// PremiumTime is part of the client payload but plan history only
	// records the purchase instant.
	PremiumTime string `json:"premiumTime"`
}

// VerifyPayment checks the gateway signature and, on a match, marks the user
// premium and appends the plan purchase. A replayed payload appends a
// duplicate history entry; there is no idempotency key (see DESIGN.md).
func (h *BillingHandler) VerifyPayment(c *gin.Context) {
	var req VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, apperr.BadRequest("payment fields, username and planName are required"))
		return
	}

	if !h.payments.VerifySignature(req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature) {
		respondError(c, h.log, apperr.BadRequest("payment signature mismatch"))
		return
	}

	encryptedPlan, err := h.codec.Encrypt(req.PlanName)
	if err != nil {
		respondError(c, h.log, apperr.Internal("failed to encode plan record", err))
		return
	}
	purchase := models.PlanPurchase{PlanName: encryptedPlan, PurchasedAt: time.Now().UTC()}

	err = h.users.GrantPremium(c.Request.Context(), fieldcodec.Hash(req.Username), purchase)
	if err == store.ErrNotFound {
		respondError(c, h.log, &apperr.Error{Status: http.StatusBadRequest, Code: apperr.CodeNotFound, Message: "user not found"})
		return
	}
	if err != nil {
		respondError(c, h.log, apperr.Internal("failed to record purchase", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "payment verified"})
}
