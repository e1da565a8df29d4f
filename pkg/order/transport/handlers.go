package transport

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"storefront/pkg/cart"
	"storefront/pkg/inventory/application"
	invservice "storefront/pkg/inventory/domain/service"
	"storefront/pkg/order/domain/service"
)

type Handler struct {
	coordinator service.Coordinator
	cache       *application.Cache
	basket      *cart.Cart
}

func NewHandler(coordinator service.Coordinator, cache *application.Cache, basket *cart.Cart) *Handler {
	return &Handler{coordinator: coordinator, cache: cache, basket: basket}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/products", h.listProducts).Methods(http.MethodGet)
	r.HandleFunc("/cart", h.getCart).Methods(http.MethodGet)
	r.HandleFunc("/cart/items", h.addToCart).Methods(http.MethodPost)
	r.HandleFunc("/cart/items/{productID}", h.updateQuantity).Methods(http.MethodPut)
	r.HandleFunc("/cart/items/{productID}", h.removeFromCart).Methods(http.MethodDelete)
	r.HandleFunc("/address", h.setAddress).Methods(http.MethodPost)
	r.HandleFunc("/buy-now", h.setBuyNow).Methods(http.MethodPost)
	r.HandleFunc("/checkout", h.checkout).Methods(http.MethodPost)
}

func (h *Handler) listProducts(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.cache.Products())
}

// getCart returns the cart with each line re-checked against the
// cached inventory view; checkout stays blocked while any line is
// flagged out of stock.
func (h *Handler) getCart(w http.ResponseWriter, _ *http.Request) {
	items, err := h.basket.Items()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read cart")
		return
	}
	items, blocked := h.cache.FlagCart(items)
	if err := h.basket.Flag(items); err != nil {
		log.WithError(err).Warn("failed to persist cart flags")
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items":            items,
		"checkout_blocked": blocked,
	})
}

func (h *Handler) addToCart(w http.ResponseWriter, r *http.Request) {
	var item cart.LineItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		writeError(w, http.StatusBadRequest, "invalid cart item")
		return
	}
	if !h.cache.Available(item.ProductID, item.Quantity) {
		writeError(w, http.StatusConflict, "product is out of stock")
		return
	}
	if err := h.basket.Add(item); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) updateQuantity(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.Parse(mux.Vars(r)["productID"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	var body struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid quantity")
		return
	}
	if err := h.basket.UpdateQuantity(productID, body.Quantity); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) removeFromCart(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.Parse(mux.Vars(r)["productID"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	if err := h.basket.Remove(productID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update cart")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) setAddress(w http.ResponseWriter, r *http.Request) {
	var a cart.Address
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil || !a.Complete() {
		writeError(w, http.StatusBadRequest, "incomplete delivery address")
		return
	}
	if err := h.basket.SetAddress(a); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save address")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) setBuyNow(w http.ResponseWriter, r *http.Request) {
	var item cart.LineItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		writeError(w, http.StatusBadRequest, "invalid item")
		return
	}
	if !h.cache.Available(item.ProductID, item.Quantity) {
		writeError(w, http.StatusConflict, "product is out of stock")
		return
	}
	if err := h.basket.SetBuyNow(item); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type checkoutRequest struct {
	UserID        string                       `json:"user_id"`
	BuyNow        bool                         `json:"buy_now"`
	PaymentMethod string                       `json:"payment_method"`
	Payment       *service.PaymentConfirmation `json:"payment,omitempty"`
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	var body checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid checkout request")
		return
	}

	order, err := h.coordinator.PlaceOrder(r.Context(), service.PlaceOrderInput{
		UserID:        body.UserID,
		BuyNow:        body.BuyNow,
		PaymentMethod: body.PaymentMethod,
		Payment:       body.Payment,
	})
	if err != nil {
		status := http.StatusInternalServerError
		var insufficient *invservice.InsufficientStockError
		switch {
		case errors.Is(err, service.ErrMissingSession):
			status = http.StatusUnauthorized
		case errors.Is(err, service.ErrEmptySelection):
			status = http.StatusBadRequest
		case errors.Is(err, service.ErrMissingAddress):
			status = http.StatusBadRequest
		case errors.As(err, &insufficient):
			status = http.StatusConflict
		case errors.Is(err, service.ErrPaymentVerificationFailed):
			status = http.StatusPaymentRequired
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithField("err", err).Error("write response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// LogMiddleware logs every request the storefront surface receives.
func LogMiddleware(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.WithFields(log.Fields{
			"method":     r.Method,
			"url":        r.URL,
			"remoteAddr": r.RemoteAddr,
		}).Info("got a new request")
		h.ServeHTTP(w, r)
	})
}
