package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
	razorpay "github.com/razorpay/razorpay-go"
)

// PaymentService creates Razorpay orders and verifies payment signatures.
type PaymentService struct {
	client *razorpay.Client
	secret string
}

func NewPaymentService(keyID, secret string) *PaymentService {
	return &PaymentService{
		client: razorpay.NewClient(keyID, secret),
		secret: secret,
	}
}

// CreateOrder opens an order for the given amount in paise.
func (p *PaymentService) CreateOrder(amount int64) (map[string]interface{}, error) {
	data := map[string]interface{}{
		"amount":   amount,
		"currency": "INR",
		"receipt":  "rcpt_" + uuid.NewString(),
	}
	order, err := p.client.Order.Create(data, nil)
	if err != nil {
		return nil, fmt.Errorf("payment: create order: %w", err)
	}
	return order, nil
}

// VerifySignature recomputes the HMAC-SHA256 of "orderID|paymentID" under
// the merchant secret and compares it to the gateway-supplied signature.
func (p *PaymentService) VerifySignature(orderID, paymentID, signature string) bool {
	return VerifyRazorpaySignature(orderID, paymentID, signature, p.secret)
}

// VerifyRazorpaySignature is the raw check, split out so it can be exercised
// against fixture signatures.
func VerifyRazorpaySignature(orderID, paymentID, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
