package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/luxecraft/atelier/internal/cache"
	"github.com/luxecraft/atelier/internal/db"
	"github.com/luxecraft/atelier/internal/models"
	"github.com/luxecraft/atelier/internal/services"
)

type fakeLifecycle struct {
	createFn       func(ctx context.Context, input services.CreateOrderInput) (*models.Order, error)
	updateStatusFn func(ctx context.Context, orderID uuid.UUID, input services.UpdateStatusInput) (*models.Order, error)
	trackFn        func(ctx context.Context, orderNumber string) (*models.Order, error)
	refundFn       func(ctx context.Context, orderID uuid.UUID, input services.RefundInput) (*models.Order, error)
	addNoteFn      func(ctx context.Context, orderID uuid.UUID, text, author string) error
	trackCalls     int
}

func (f *fakeLifecycle) Create(ctx context.Context, input services.CreateOrderInput) (*models.Order, error) {
	return f.createFn(ctx, input)
}

func (f *fakeLifecycle) UpdateStatus(ctx context.Context, orderID uuid.UUID, input services.UpdateStatusInput) (*models.Order, error) {
	return f.updateStatusFn(ctx, orderID, input)
}

func (f *fakeLifecycle) VerifyPayment(context.Context, uuid.UUID, services.VerifyPaymentInput) (*models.Order, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeLifecycle) ConfirmCODDelivery(context.Context, uuid.UUID, services.ConfirmCODDeliveryInput) (*models.Order, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeLifecycle) Cancel(context.Context, uuid.UUID, services.CancelOrderInput) (*models.Order, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeLifecycle) Refund(ctx context.Context, orderID uuid.UUID, input services.RefundInput) (*models.Order, error) {
	return f.refundFn(ctx, orderID, input)
}

func (f *fakeLifecycle) AddNote(ctx context.Context, orderID uuid.UUID, text, author string) error {
	return f.addNoteFn(ctx, orderID, text, author)
}

func (f *fakeLifecycle) SetTracking(context.Context, uuid.UUID, services.SetTrackingInput) (*models.Order, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeLifecycle) Track(ctx context.Context, orderNumber string) (*models.Order, error) {
	f.trackCalls++
	return f.trackFn(ctx, orderNumber)
}

func (f *fakeLifecycle) Get(context.Context, uuid.UUID) (*models.Order, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeLifecycle) List(context.Context, db.ListFilter) ([]*models.Order, error) {
	return nil, fmt.Errorf("not implemented")
}

func newTestHandlers(t *testing.T, lifecycle OrderLifecycle) *Handlers {
	t.Helper()
	memory, err := cache.NewMemoryProvider()
	if err != nil {
		t.Fatalf("NewMemoryProvider() error = %v", err)
	}
	t.Cleanup(func() { _ = memory.Close() })

	return &Handlers{
		orders:        lifecycle,
		cacheProvider: memory,
		verifier:      newTestVerifier(t),
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func sampleOrder() *models.Order {
	now := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	return &models.Order{
		ID:     uuid.New(),
		Number: "LC-2026-0042",
		Status: models.StatusInProgress,
		Payment: models.Payment{
			Method: models.PaymentBankTransfer,
			Status: models.PaymentVerified,
		},
		Pricing: models.Pricing{SubtotalPaisa: 8000, ShippingPaisa: 200, TaxPaisa: 400, TotalPaisa: 8600},
		StatusHistory: []models.HistoryEntry{
			{Status: models.StatusPendingPayment, Actor: "customer", At: now},
			{Status: models.StatusPaymentVerified, Actor: "admin", At: now.Add(time.Hour)},
			{Status: models.StatusInProgress, Actor: "admin", At: now.Add(2 * time.Hour)},
		},
		Notes:    []models.Note{{Text: "internal remark", Author: "admin", AddedAt: now}},
		Customer: models.CustomerInfo{Name: "Ayesha Khan", Email: "ayesha@example.com", Phone: "+923001234567"},
	}
}

func TestCreateOrderHandler(t *testing.T) {
	t.Parallel()

	order := sampleOrder()
	lifecycle := &fakeLifecycle{
		createFn: func(_ context.Context, input services.CreateOrderInput) (*models.Order, error) {
			if input.PaymentMethod != models.PaymentJazzCash {
				t.Errorf("PaymentMethod = %s, want jazzcash", input.PaymentMethod)
			}
			if len(input.Items) != 1 || input.Items[0].Quantity != 2 {
				t.Errorf("unexpected items: %+v", input.Items)
			}
			return order, nil
		},
	}
	h := newTestHandlers(t, lifecycle)

	body, _ := json.Marshal(map[string]any{
		"customer":         map[string]string{"name": "Ayesha Khan", "email": "ayesha@example.com", "phone": "+923001234567"},
		"shipping_address": map[string]string{"line1": "12 Mall Road", "city": "Lahore", "country": "PK"},
		"items":            []map[string]any{{"product_id": uuid.New().String(), "quantity": 2}},
		"payment_method":   "jazzcash",
		"total_paisa":      9000,
	})

	rec := httptest.NewRecorder()
	h.CreateOrder(rec, httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader(body)))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body %s", rec.Code, rec.Body.String())
	}
	var got models.Order
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Number != "LC-2026-0042" {
		t.Fatalf("order number = %q", got.Number)
	}
	// Client total is ignored; the server-computed pricing comes back.
	if got.Pricing.TotalPaisa != 8600 {
		t.Fatalf("TotalPaisa = %d, want 8600", got.Pricing.TotalPaisa)
	}
}

func TestCreateOrderHandlerErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       string
		createErr  error
		wantStatus int
	}{
		{
			name:       "malformed body",
			body:       "{not json",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "validation error",
			body:       "{}",
			createErr:  &services.ValidationError{Message: "order must contain at least one item"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "product unavailable",
			body:       "{}",
			createErr:  fmt.Errorf("%w: KURTA-01", models.ErrProductUnavailable),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "duplicate order number is fatal",
			body:       "{}",
			createErr:  fmt.Errorf("failed to create order: %w", models.ErrDuplicateOrderNumber),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			lifecycle := &fakeLifecycle{
				createFn: func(context.Context, services.CreateOrderInput) (*models.Order, error) {
					return nil, tc.createErr
				},
			}
			h := newTestHandlers(t, lifecycle)

			rec := httptest.NewRecorder()
			h.CreateOrder(rec, httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader([]byte(tc.body))))
			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d, body %s", rec.Code, tc.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestTrackOrderHidesInternalDetails(t *testing.T) {
	t.Parallel()

	order := sampleOrder()
	lifecycle := &fakeLifecycle{
		trackFn: func(_ context.Context, number string) (*models.Order, error) {
			if number != order.Number {
				return nil, models.ErrOrderNotFound
			}
			return order, nil
		},
	}
	h := newTestHandlers(t, lifecycle)

	req := httptest.NewRequest(http.MethodGet, "/orders/"+order.Number+"/track", nil)
	req = mux.SetURLVars(req, map[string]string{"number": order.Number})
	rec := httptest.NewRecorder()
	h.TrackOrder(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp trackResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.OrderNumber != order.Number || resp.Status != models.StatusInProgress {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if len(resp.History) != 3 {
		t.Fatalf("history entries = %d, want 3", len(resp.History))
	}
	raw := rec.Body.String()
	for _, leaked := range []string{"internal remark", "admin", "ayesha@example.com"} {
		if bytes.Contains([]byte(raw), []byte(leaked)) {
			t.Fatalf("public tracking response leaks %q: %s", leaked, raw)
		}
	}
}

func TestTrackOrderCachesResponse(t *testing.T) {
	t.Parallel()

	order := sampleOrder()
	lifecycle := &fakeLifecycle{
		trackFn: func(context.Context, string) (*models.Order, error) {
			return order, nil
		},
	}
	h := newTestHandlers(t, lifecycle)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/orders/"+order.Number+"/track", nil)
		req = mux.SetURLVars(req, map[string]string{"number": order.Number})
		rec := httptest.NewRecorder()
		h.TrackOrder(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, rec.Code)
		}
	}

	if lifecycle.trackCalls != 1 {
		t.Fatalf("service called %d times, want 1 (second hit served from cache)", lifecycle.trackCalls)
	}
}

func TestTrackOrderNotFound(t *testing.T) {
	t.Parallel()

	lifecycle := &fakeLifecycle{
		trackFn: func(context.Context, string) (*models.Order, error) {
			return nil, models.ErrOrderNotFound
		},
	}
	h := newTestHandlers(t, lifecycle)

	req := httptest.NewRequest(http.MethodGet, "/orders/LC-2026-9999/track", nil)
	req = mux.SetURLVars(req, map[string]string{"number": "LC-2026-9999"})
	rec := httptest.NewRecorder()
	h.TrackOrder(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestAdminUpdateStatusStatusMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{
			name:       "invalid transition",
			err:        fmt.Errorf("%w: from in-progress to delivered", models.ErrInvalidTransition),
			wantStatus: http.StatusConflict,
		},
		{
			name:       "terminal state",
			err:        fmt.Errorf("%w: order is cancelled", models.ErrTerminalState),
			wantStatus: http.StatusConflict,
		},
		{
			name:       "concurrent modification",
			err:        fmt.Errorf("%w: order changed", models.ErrConcurrentModification),
			wantStatus: http.StatusConflict,
		},
		{
			name:       "not found",
			err:        models.ErrOrderNotFound,
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			lifecycle := &fakeLifecycle{
				updateStatusFn: func(context.Context, uuid.UUID, services.UpdateStatusInput) (*models.Order, error) {
					return nil, tc.err
				},
			}
			h := newTestHandlers(t, lifecycle)

			body := []byte(`{"status":"quality-check"}`)
			req := httptest.NewRequest(http.MethodPut, "/admin/orders/"+uuid.NewString()+"/status", bytes.NewReader(body))
			req = mux.SetURLVars(req, map[string]string{"id": uuid.NewString()})
			rec := httptest.NewRecorder()
			h.AdminUpdateStatus(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d, body %s", rec.Code, tc.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestAdminUpdateStatusPassesActor(t *testing.T) {
	t.Parallel()

	order := sampleOrder()
	var gotInput services.UpdateStatusInput
	lifecycle := &fakeLifecycle{
		updateStatusFn: func(_ context.Context, _ uuid.UUID, input services.UpdateStatusInput) (*models.Order, error) {
			gotInput = input
			return order, nil
		},
	}
	h := newTestHandlers(t, lifecycle)

	router := mux.NewRouter()
	router.Handle("/admin/orders/{id}/status", h.RequireAdmin(http.HandlerFunc(h.AdminUpdateStatus))).Methods(http.MethodPut)

	token, err := h.verifier.Issue("admin@atelier", time.Minute)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	body := []byte(`{"status":"quality-check","note":"looks good","override":false}`)
	req := httptest.NewRequest(http.MethodPut, "/admin/orders/"+order.ID.String()+"/status", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}
	if gotInput.Actor != "admin@atelier" {
		t.Fatalf("actor = %q, want admin@atelier", gotInput.Actor)
	}
	if gotInput.To != models.StatusQualityCheck || gotInput.Note != "looks good" {
		t.Fatalf("unexpected input: %+v", gotInput)
	}
}

func TestAdminRefundErrorMapping(t *testing.T) {
	t.Parallel()

	lifecycle := &fakeLifecycle{
		refundFn: func(context.Context, uuid.UUID, services.RefundInput) (*models.Order, error) {
			return nil, fmt.Errorf("%w: 5000 + 4000 exceeds total 8600", models.ErrRefundExceedsTotal)
		},
	}
	h := newTestHandlers(t, lifecycle)

	body := []byte(`{"reason":"defect","amount_paisa":4000}`)
	req := httptest.NewRequest(http.MethodPost, "/admin/orders/"+uuid.NewString()+"/refund", bytes.NewReader(body))
	req = mux.SetURLVars(req, map[string]string{"id": uuid.NewString()})
	rec := httptest.NewRecorder()
	h.AdminRefund(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body %s", rec.Code, rec.Body.String())
	}
}

func TestAdminAddNote(t *testing.T) {
	t.Parallel()

	var gotText, gotAuthor string
	lifecycle := &fakeLifecycle{
		addNoteFn: func(_ context.Context, _ uuid.UUID, text, author string) error {
			gotText, gotAuthor = text, author
			return nil
		},
	}
	h := newTestHandlers(t, lifecycle)

	router := mux.NewRouter()
	router.Handle("/admin/orders/{id}/notes", h.RequireAdmin(http.HandlerFunc(h.AdminAddNote))).Methods(http.MethodPost)

	token, err := h.verifier.Issue("ops@atelier", time.Minute)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	body := []byte(`{"text":"customer called about delivery window"}`)
	req := httptest.NewRequest(http.MethodPost, "/admin/orders/"+uuid.NewString()+"/notes", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204, body %s", rec.Code, rec.Body.String())
	}
	if gotText != "customer called about delivery window" || gotAuthor != "ops@atelier" {
		t.Fatalf("note = %q by %q", gotText, gotAuthor)
	}
}

func TestAdminGetOrderInvalidID(t *testing.T) {
	t.Parallel()

	h := newTestHandlers(t, &fakeLifecycle{})

	req := httptest.NewRequest(http.MethodGet, "/admin/orders/not-a-uuid", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "not-a-uuid"})
	rec := httptest.NewRecorder()
	h.AdminGetOrder(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
