// Package payment integrates the external payment gateway: creating
// gateway orders for the checkout widget and verifying the signature it
// returns.
package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

const defaultBaseURL = "https://api.razorpay.com/v1"

type GatewayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type Gateway struct {
	keyID   string
	secret  string
	baseURL string
	client  *http.Client
}

func NewGateway(keyID, secret string) *Gateway {
	return &Gateway{
		keyID:   keyID,
		secret:  secret,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// NewGatewayWithBaseURL points the client at a non-default endpoint,
// used by tests.
func NewGatewayWithBaseURL(keyID, secret, baseURL string) *Gateway {
	g := NewGateway(keyID, secret)
	g.baseURL = baseURL
	return g
}

func (g *Gateway) KeyID() string { return g.keyID }

// CreateOrder registers an order with the gateway and returns its
// identifier and amount in the gateway's minor unit.
func (g *Gateway) CreateOrder(ctx context.Context, amountCents int64, currency string) (*GatewayOrder, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"amount":          amountCents,
		"currency":        currency,
		"payment_capture": 1,
	})
	if err != nil {
		return nil, errors.Wrap(err, "marshal gateway order")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/orders", bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "build gateway request")
	}
	req.SetBasicAuth(g.keyID, g.secret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "call gateway")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("gateway returned status %d", resp.StatusCode)
	}

	var order GatewayOrder
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, errors.Wrap(err, "decode gateway response")
	}
	return &order, nil
}

// Verify checks the keyed hash the gateway computes over
// "<orderID>|<paymentID>" against the signature handed back by the
// checkout widget, in constant time.
func (g *Gateway) Verify(gatewayOrderID, paymentID, signature string) bool {
	if gatewayOrderID == "" || paymentID == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(g.secret))
	fmt.Fprintf(mac, "%s|%s", gatewayOrderID, paymentID)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
