package payment

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type createOrderRequest struct {
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
}

type verifyRequest struct {
	GatewayOrderID string `json:"razorpay_order_id"`
	PaymentID      string `json:"razorpay_payment_id"`
	Signature      string `json:"razorpay_signature"`
}

// RegisterRoutes mounts the gateway endpoints the checkout widget
// talks to.
func RegisterRoutes(r *mux.Router, g *Gateway, log logrus.FieldLogger) {
	r.HandleFunc("/create-order", func(w http.ResponseWriter, req *http.Request) {
		var body createOrderRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil || body.AmountCents <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{"success": false, "error": "invalid amount"})
			return
		}
		if body.Currency == "" {
			body.Currency = "INR"
		}

		order, err := g.CreateOrder(req.Context(), body.AmountCents, body.Currency)
		if err != nil {
			log.WithError(err).Error("gateway order creation failed")
			writeJSON(w, http.StatusBadGateway, map[string]interface{}{"success": false, "error": "gateway unavailable"})
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":  true,
			"order_id": order.ID,
			"amount":   order.Amount,
			"currency": order.Currency,
			"key_id":   g.KeyID(),
		})
	}).Methods(http.MethodPost)

	r.HandleFunc("/verify-payment", func(w http.ResponseWriter, req *http.Request) {
		var body verifyRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{"success": false, "error": "invalid request"})
			return
		}

		if !g.Verify(body.GatewayOrderID, body.PaymentID, body.Signature) {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{"success": false, "message": "payment verification failed"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":    true,
			"payment_id": body.PaymentID,
		})
	}).Methods(http.MethodPost)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
