package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/luxecraft/atelier/internal/cache"
	"github.com/luxecraft/atelier/internal/models"
	"github.com/luxecraft/atelier/internal/services"
)

const trackCacheTTL = 60 * time.Second

type createOrderItemRequest struct {
	ProductID     uuid.UUID            `json:"product_id"`
	Quantity      int                  `json:"quantity"`
	Customization models.Customization `json:"customization"`
}

type createOrderRequest struct {
	Customer        models.CustomerInfo      `json:"customer"`
	ShippingAddress models.Address           `json:"shipping_address"`
	Items           []createOrderItemRequest `json:"items"`
	PaymentMethod   models.PaymentMethod     `json:"payment_method"`
	ReceiptRef      string                   `json:"receipt_ref"`
	PromoCode       string                   `json:"promo_code"`

	// Accepted for compatibility with older clients and ignored: totals are
	// always recomputed server-side.
	TotalPaisa int64 `json:"total_paisa"`
}

// CreateOrder handles POST /orders.
func (h *Handlers) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	items := make([]services.CreateOrderItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, services.CreateOrderItemInput{
			ProductID:     item.ProductID,
			Quantity:      item.Quantity,
			Customization: item.Customization,
		})
	}

	order, err := h.orders.Create(r.Context(), services.CreateOrderInput{
		Customer:        req.Customer,
		ShippingAddress: req.ShippingAddress,
		Items:           items,
		PaymentMethod:   req.PaymentMethod,
		ReceiptRef:      req.ReceiptRef,
		PromoCode:       req.PromoCode,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, order)
}

type trackHistoryEntry struct {
	Status models.OrderStatus `json:"status"`
	At     time.Time          `json:"at"`
}

type trackResponse struct {
	OrderNumber string              `json:"order_number"`
	Status      models.OrderStatus  `json:"status"`
	History     []trackHistoryEntry `json:"history"`
	Tracking    *models.Tracking    `json:"tracking,omitempty"`
	TrackingURL string              `json:"tracking_url,omitempty"`
}

// TrackOrder handles GET /orders/{number}/track, the public read path. The
// response carries status and timeline only; admin notes, actor identities
// and payment details stay internal.
func (h *Handlers) TrackOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	number := mux.Vars(r)["number"]

	key := cache.TrackingKey(number)
	if cached, err := h.cacheProvider.Get(ctx, key); err == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(cached))
		return
	} else if !errors.Is(err, cache.ErrNotFound) {
		h.loggerFromContext(ctx).Warn("tracking cache lookup failed", "error", err)
	}

	order, err := h.orders.Track(ctx, number)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := trackResponse{
		OrderNumber: order.Number,
		Status:      order.Status,
		Tracking:    order.Tracking,
	}
	if order.Tracking != nil {
		resp.TrackingURL = services.BuildTrackingURL(order.Tracking.Courier, order.Tracking.TrackingNumber)
	}
	for _, entry := range order.StatusHistory {
		resp.History = append(resp.History, trackHistoryEntry{Status: entry.Status, At: entry.At})
	}

	body, err := json.Marshal(resp)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.cacheProvider.Set(ctx, key, string(body), trackCacheTTL); err != nil {
		h.loggerFromContext(ctx).Warn("failed to cache tracking response", "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// decodeBody decodes a JSON request body, writing a 400 on failure.
func (h *Handlers) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
