package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/luxecraft/atelier/internal/auth"
	"github.com/luxecraft/atelier/internal/cache"
	"github.com/luxecraft/atelier/internal/config"
	"github.com/luxecraft/atelier/internal/db"
	"github.com/luxecraft/atelier/internal/logging"
	"github.com/luxecraft/atelier/internal/models"
	"github.com/luxecraft/atelier/internal/services"
)

const maxRequestBodyBytes = 1 << 20 // 1 MB

// OrderLifecycle is the slice of the order service the HTTP layer consumes.
type OrderLifecycle interface {
	Create(ctx context.Context, input services.CreateOrderInput) (*models.Order, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, input services.UpdateStatusInput) (*models.Order, error)
	VerifyPayment(ctx context.Context, orderID uuid.UUID, input services.VerifyPaymentInput) (*models.Order, error)
	ConfirmCODDelivery(ctx context.Context, orderID uuid.UUID, input services.ConfirmCODDeliveryInput) (*models.Order, error)
	Cancel(ctx context.Context, orderID uuid.UUID, input services.CancelOrderInput) (*models.Order, error)
	Refund(ctx context.Context, orderID uuid.UUID, input services.RefundInput) (*models.Order, error)
	AddNote(ctx context.Context, orderID uuid.UUID, text, author string) error
	SetTracking(ctx context.Context, orderID uuid.UUID, input services.SetTrackingInput) (*models.Order, error)
	Track(ctx context.Context, orderNumber string) (*models.Order, error)
	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	List(ctx context.Context, filter db.ListFilter) ([]*models.Order, error)
}

// Handlers provides the HTTP handlers for the order API.
type Handlers struct {
	config        *config.Config
	db            *pgxpool.Pool
	orders        OrderLifecycle
	cacheProvider cache.Provider
	verifier      *auth.Verifier
	logger        *slog.Logger
}

type Dependencies struct {
	Config        *config.Config
	DB            *pgxpool.Pool
	Orders        OrderLifecycle
	CacheProvider cache.Provider
	Verifier      *auth.Verifier
	Logger        *slog.Logger
}

func New(deps Dependencies) (*Handlers, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if deps.Config == nil {
		return nil, fmt.Errorf("handlers dependencies: config is required")
	}
	if deps.DB == nil {
		return nil, fmt.Errorf("handlers dependencies: db is required")
	}
	if deps.Orders == nil {
		return nil, fmt.Errorf("handlers dependencies: orders is required")
	}
	if deps.CacheProvider == nil {
		return nil, fmt.Errorf("handlers dependencies: cacheProvider is required")
	}
	if deps.Verifier == nil {
		return nil, fmt.Errorf("handlers dependencies: verifier is required")
	}

	return &Handlers{
		config:        deps.Config,
		db:            deps.DB,
		orders:        deps.Orders,
		cacheProvider: deps.CacheProvider,
		verifier:      deps.Verifier,
		logger:        logger.With("component", "handlers"),
	}, nil
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	if err := h.db.Ping(ctx); err != nil {
		logger.Error("database health check failed", "error", err)
		http.Error(w, "Database unhealthy", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{
		"status": "healthy",
	}); err != nil {
		logger.Error("failed to encode health response", "error", err)
	}
}

func (h *Handlers) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, h.logger)
}
