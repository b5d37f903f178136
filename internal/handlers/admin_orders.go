package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/luxecraft/atelier/internal/db"
	"github.com/luxecraft/atelier/internal/models"
	"github.com/luxecraft/atelier/internal/services"
)

// AdminListOrders handles GET /admin/orders with optional status and limit
// query parameters.
func (h *Handlers) AdminListOrders(w http.ResponseWriter, r *http.Request) {
	filter := db.ListFilter{
		Status: models.OrderStatus(r.URL.Query().Get("status")),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			writeErrorMessage(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		filter.Limit = limit
	}

	orders, err := h.orders.List(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

// AdminGetOrder handles GET /admin/orders/{id}.
func (h *Handlers) AdminGetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderIDFromRequest(w, r)
	if !ok {
		return
	}

	order, err := h.orders.Get(r.Context(), orderID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

type updateStatusRequest struct {
	Status   models.OrderStatus `json:"status"`
	Note     string             `json:"note"`
	Override bool               `json:"override"`
}

// AdminUpdateStatus handles PUT /admin/orders/{id}/status.
func (h *Handlers) AdminUpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderIDFromRequest(w, r)
	if !ok {
		return
	}
	var req updateStatusRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	order, err := h.orders.UpdateStatus(r.Context(), orderID, services.UpdateStatusInput{
		To:       req.Status,
		Note:     req.Note,
		Actor:    actorFromContext(r.Context()),
		Override: req.Override,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

type verifyPaymentRequest struct {
	Approve         bool      `json:"approve"`
	TransactionID   string    `json:"transaction_id"`
	TransactionDate time.Time `json:"transaction_date"`
	AmountPaisa     int64     `json:"amount_paisa"`
	RejectionReason string    `json:"rejection_reason"`
}

// AdminVerifyPayment handles POST /admin/orders/{id}/verify-payment.
func (h *Handlers) AdminVerifyPayment(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderIDFromRequest(w, r)
	if !ok {
		return
	}
	var req verifyPaymentRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	order, err := h.orders.VerifyPayment(r.Context(), orderID, services.VerifyPaymentInput{
		Actor:           actorFromContext(r.Context()),
		Approve:         req.Approve,
		TransactionID:   req.TransactionID,
		TransactionDate: req.TransactionDate,
		AmountPaisa:     req.AmountPaisa,
		RejectionReason: req.RejectionReason,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

type confirmDeliveryRequest struct {
	CollectedPaisa int64  `json:"collected_paisa"`
	Note           string `json:"note"`
}

// AdminConfirmDelivery handles POST /admin/orders/{id}/confirm-delivery for
// cash-on-delivery orders.
func (h *Handlers) AdminConfirmDelivery(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderIDFromRequest(w, r)
	if !ok {
		return
	}
	var req confirmDeliveryRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	order, err := h.orders.ConfirmCODDelivery(r.Context(), orderID, services.ConfirmCODDeliveryInput{
		Actor:          actorFromContext(r.Context()),
		CollectedPaisa: req.CollectedPaisa,
		Note:           req.Note,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

type cancelOrderRequest struct {
	Reason      string `json:"reason"`
	RefundPaisa int64  `json:"refund_paisa"`
}

// AdminCancelOrder handles POST /admin/orders/{id}/cancel.
func (h *Handlers) AdminCancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderIDFromRequest(w, r)
	if !ok {
		return
	}
	var req cancelOrderRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	order, err := h.orders.Cancel(r.Context(), orderID, services.CancelOrderInput{
		Actor:       actorFromContext(r.Context()),
		Reason:      req.Reason,
		RefundPaisa: req.RefundPaisa,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

type refundRequest struct {
	Reason      string `json:"reason"`
	AmountPaisa int64  `json:"amount_paisa"`
}

// AdminRefund handles POST /admin/orders/{id}/refund.
func (h *Handlers) AdminRefund(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderIDFromRequest(w, r)
	if !ok {
		return
	}
	var req refundRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	order, err := h.orders.Refund(r.Context(), orderID, services.RefundInput{
		Actor:       actorFromContext(r.Context()),
		Reason:      req.Reason,
		AmountPaisa: req.AmountPaisa,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

type addNoteRequest struct {
	Text string `json:"text"`
}

// AdminAddNote handles POST /admin/orders/{id}/notes.
func (h *Handlers) AdminAddNote(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderIDFromRequest(w, r)
	if !ok {
		return
	}
	var req addNoteRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	if err := h.orders.AddNote(r.Context(), orderID, req.Text, actorFromContext(r.Context())); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type setTrackingRequest struct {
	Courier        string `json:"courier"`
	TrackingNumber string `json:"tracking_number"`
}

// AdminSetTracking handles POST /admin/orders/{id}/tracking.
func (h *Handlers) AdminSetTracking(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderIDFromRequest(w, r)
	if !ok {
		return
	}
	var req setTrackingRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	order, err := h.orders.SetTracking(r.Context(), orderID, services.SetTrackingInput{
		Actor:          actorFromContext(r.Context()),
		Courier:        req.Courier,
		TrackingNumber: req.TrackingNumber,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handlers) orderIDFromRequest(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	orderID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid order id")
		return uuid.Nil, false
	}
	return orderID, true
}
