package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"filemind/backend/internal/fieldcodec"
	"filemind/backend/internal/models"
)

const testGatewaySecret = "test_merchant_secret"

func signPayload(orderID, paymentID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%s|%s", orderID, paymentID)
	return hex.EncodeToString(mac.Sum(nil))
}

func newBillingFixture(t *testing.T) (*BillingHandler, *fakeUserStore, *fieldcodec.Codec) {
	t.Helper()
	codec := testCodec(t)
	users := &fakeUserStore{}
	gateway := &fakePaymentGateway{secret: testGatewaySecret}
	return NewBillingHandler(users, gateway, codec, testLogger()), users, codec
}

func TestCheckPromptLimitationDefaultQuota(t *testing.T) {
	h, users, codec := newBillingFixture(t)
	seedUser(t, codec, users, "vincent", "vincent@example.com", "pw", true)
	register := func(r *gin.Engine) { r.POST("/check-prompt-limitation", h.CheckPromptLimitation) }

	// A user with no plan history gets exactly 3 prompts.
	for i := 1; i <= 3; i++ {
		w := serve(register, jsonRequest(t, http.MethodPost, "/check-prompt-limitation", gin.H{"username": "vincent"}))
		require.Equal(t, http.StatusOK, w.Code, "prompt %d should be allowed", i)
		assert.Equal(t, float64(i), decodeBody(t, w)["updatedPromptCount"])
	}

	w := serve(register, jsonRequest(t, http.MethodPost, "/check-prompt-limitation", gin.H{"username": "vincent"}))
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "forbidden", decodeBody(t, w)["code"])
	assert.Equal(t, 3, users.byUsernameHash(fieldcodec.Hash("vincent")).PromptUsageCount)
}

func TestCheckPromptLimitationConcurrentConsumers(t *testing.T) {
	h, users, codec := newBillingFixture(t)
	seedUser(t, codec, users, "vincent", "vincent@example.com", "pw", true)
	users.byUsernameHash(fieldcodec.Hash("vincent")).PromptUsageCount = 2

	r := gin.New()
	r.POST("/check-prompt-limitation", h.CheckPromptLimitation)

	// One slot left, three concurrent consumers: the conditional increment
	// must hand it to exactly one of them.
	const racers = 3
	statuses := make(chan int, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := serveOn(r, jsonRequest(t, http.MethodPost, "/check-prompt-limitation", gin.H{"username": "vincent"}))
			statuses <- w.Code
		}()
	}
	wg.Wait()
	close(statuses)

	allowed := 0
	for code := range statuses {
		if code == http.StatusOK {
			allowed++
		} else {
			assert.Equal(t, http.StatusForbidden, code)
		}
	}
	assert.Equal(t, 1, allowed)
	assert.Equal(t, 3, users.byUsernameHash(fieldcodec.Hash("vincent")).PromptUsageCount)
}

func grantPlan(t *testing.T, codec *fieldcodec.Codec, users *fakeUserStore, username, planName string) {
	t.Helper()
	encrypted, err := codec.Encrypt(planName)
	require.NoError(t, err)
	u := users.byUsernameHash(fieldcodec.Hash(username))
	require.NotNil(t, u)
	u.IsPremium = true
	u.PremiumHistory = append(u.PremiumHistory, models.PlanPurchase{PlanName: encrypted, PurchasedAt: time.Now().UTC()})
}

func TestCheckPromptLimitationTiers(t *testing.T) {
	h, users, codec := newBillingFixture(t)
	register := func(r *gin.Engine) { r.POST("/check-prompt-limitation", h.CheckPromptLimitation) }

	t.Run("ultra pro caps at 10", func(t *testing.T) {
		seedUser(t, codec, users, "pro", "pro@example.com", "pw", true)
		grantPlan(t, codec, users, "pro", "Ultra Pro Monthly")
		users.byUsernameHash(fieldcodec.Hash("pro")).PromptUsageCount = 9

		w := serve(register, jsonRequest(t, http.MethodPost, "/check-prompt-limitation", gin.H{"username": "pro"}))
		require.Equal(t, http.StatusOK, w.Code)

		w = serve(register, jsonRequest(t, http.MethodPost, "/check-prompt-limitation", gin.H{"username": "pro"}))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("ultra pro max is unlimited", func(t *testing.T) {
		seedUser(t, codec, users, "max", "max@example.com", "pw", true)
		grantPlan(t, codec, users, "max", "Ultra Pro Max Annual")
		users.byUsernameHash(fieldcodec.Hash("max")).PromptUsageCount = 100000

		w := serve(register, jsonRequest(t, http.MethodPost, "/check-prompt-limitation", gin.H{"username": "max"}))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(100001), decodeBody(t, w)["updatedPromptCount"])
	})

	t.Run("latest purchase wins", func(t *testing.T) {
		seedUser(t, codec, users, "lapsed", "lapsed@example.com", "pw", true)
		grantPlan(t, codec, users, "lapsed", "Ultra Pro Max")
		grantPlan(t, codec, users, "lapsed", "Starter")
		users.byUsernameHash(fieldcodec.Hash("lapsed")).PromptUsageCount = 3

		w := serve(register, jsonRequest(t, http.MethodPost, "/check-prompt-limitation", gin.H{"username": "lapsed"}))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestCheckPromptLimitationUnknownUser(t *testing.T) {
	h, _, _ := newBillingFixture(t)
	w := serve(func(r *gin.Engine) { r.POST("/check-prompt-limitation", h.CheckPromptLimitation) },
		jsonRequest(t, http.MethodPost, "/check-prompt-limitation", gin.H{"username": "nobody"}))
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decodeBody(t, w)["code"])
}

func TestCreateOrder(t *testing.T) {
	h, _, _ := newBillingFixture(t)
	register := func(r *gin.Engine) { r.POST("/create-order", h.CreateOrder) }

	w := serve(register, jsonRequest(t, http.MethodPost, "/create-order", gin.H{"amount": 49900}))
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	order, ok := body["order"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(49900), order["amount"])

	w = serve(register, jsonRequest(t, http.MethodPost, "/create-order", gin.H{}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVerifyPaymentGrantsPremium(t *testing.T) {
	h, users, codec := newBillingFixture(t)
	seedUser(t, codec, users, "vincent", "vincent@example.com", "pw", true)
	register := func(r *gin.Engine) { r.POST("/verify-payment", h.VerifyPayment) }

	w := serve(register, jsonRequest(t, http.MethodPost, "/verify-payment", gin.H{
		"razorpay_order_id":   "order_A1",
		"razorpay_payment_id": "pay_B2",
		"razorpay_signature":  signPayload("order_A1", "pay_B2", testGatewaySecret),
		"username":            "vincent",
		"planName":            "Ultra Pro",
	}))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["success"])

	user := users.byUsernameHash(fieldcodec.Hash("vincent"))
	assert.True(t, user.IsPremium)
	require.Len(t, user.PremiumHistory, 1)

	plan, err := codec.Decrypt(user.PremiumHistory[0].PlanName)
	require.NoError(t, err)
	assert.Equal(t, "Ultra Pro", plan)
	assert.False(t, user.PremiumHistory[0].PurchasedAt.IsZero())
}

func TestVerifyPaymentSignatureMismatch(t *testing.T) {
	h, users, codec := newBillingFixture(t)
	seedUser(t, codec, users, "vincent", "vincent@example.com", "pw", true)

	w := serve(func(r *gin.Engine) { r.POST("/verify-payment", h.VerifyPayment) },
		jsonRequest(t, http.MethodPost, "/verify-payment", gin.H{
			"razorpay_order_id":   "order_A1",
			"razorpay_payment_id": "pay_B2",
			"razorpay_signature":  signPayload("order_A1", "pay_TAMPERED", testGatewaySecret),
			"username":            "vincent",
			"planName":            "Ultra Pro",
		}))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "bad_request", decodeBody(t, w)["code"])

	// No state changed on a rejected signature.
	user := users.byUsernameHash(fieldcodec.Hash("vincent"))
	assert.False(t, user.IsPremium)
	assert.Empty(t, user.PremiumHistory)
}

func TestVerifyPaymentUnknownUser(t *testing.T) {
	h, _, _ := newBillingFixture(t)

	w := serve(func(r *gin.Engine) { r.POST("/verify-payment", h.VerifyPayment) },
		jsonRequest(t, http.MethodPost, "/verify-payment", gin.H{
			"razorpay_order_id":   "order_A1",
			"razorpay_payment_id": "pay_B2",
			"razorpay_signature":  signPayload("order_A1", "pay_B2", testGatewaySecret),
			"username":            "nobody",
			"planName":            "Ultra Pro",
		}))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "not_found", decodeBody(t, w)["code"])
}
