package payments

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	config "github.com/avinashd07/shop_mitra/configs"
	"github.com/avinashd07/shop_mitra/models"
)

const razorpayBaseURL = "https://api.razorpay.com/v1"

type RazorpayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type createOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// RazorpayClient talks to the Razorpay orders API. Amounts are always in
// minor units (paise); callers do the conversion at the boundary.
type RazorpayClient struct {
	KeyID     string
	KeySecret string
	BaseURL   string

	httpClient *http.Client
}

func NewRazorpayClient() *RazorpayClient {
	return &RazorpayClient{
		KeyID:      config.Config("RAZORPAY_KEY_ID"),
		KeySecret:  config.Config("RAZORPAY_KEY_SECRET"),
		BaseURL:    config.ConfigDefault("RAZORPAY_BASE_URL", razorpayBaseURL),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// CreateOrder registers a checkout order on the gateway. Razorpay identifies
// the checkout by the order id itself in both its client callback and its
// webhook payloads, so the session's checkout reference is the order id; the
// orders API offers no hosted payment page, so no checkout URL is returned.
func (c *RazorpayClient) CreateOrder(ctx context.Context, receiptID string, amountMinorUnits int64, currency string, notes map[string]string) (*models.CheckoutSession, error) {
	payload := createOrderRequest{
		Amount:   amountMinorUnits,
		Currency: currency,
		Receipt:  receiptID,
		Notes:    notes,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order payload: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/orders", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create order request: %v", err)
	}
	req.SetBasicAuth(c.KeyID, c.KeySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send order request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("razorpay orders API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var order RazorpayOrder
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("failed to decode order response: %v", err)
	}
	if order.ID == "" {
		return nil, fmt.Errorf("razorpay order response is missing an order id")
	}

	return &models.CheckoutSession{
		GatewayOrderID: order.ID,
		CheckoutID:     order.ID,
	}, nil
}

// VerifyPaymentSignature checks the checkout callback signature: an
// HMAC-SHA256 of "<orderID>|<paymentID>" under the key secret.
func (c *RazorpayClient) VerifyPaymentSignature(gatewayOrderID, gatewayPaymentID, signature string) bool {
	mac := hmac.New(sha256.New, []byte(c.KeySecret))
	mac.Write([]byte(gatewayOrderID + "|" + gatewayPaymentID))
	expected := hex.EncodeToString(mac.Sum(nil))

	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}
