package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"
	"github.com/google/uuid"

	"github.com/luxecraft/atelier/internal/db"
	"github.com/luxecraft/atelier/internal/logging"
	"github.com/luxecraft/atelier/internal/models"
	"github.com/luxecraft/atelier/internal/notify"
	"github.com/luxecraft/atelier/internal/observability"
)

// OrderStore is the persistence contract the lifecycle service writes through.
// Conditional mutations return false when the state the service read has
// changed underneath it.
type OrderStore interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	GetByNumber(ctx context.Context, number string) (*models.Order, error)
	List(ctx context.Context, filter db.ListFilter) ([]*models.Order, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, expected models.OrderStatus, entry models.HistoryEntry) (bool, error)
	VerifyPayment(ctx context.Context, orderID uuid.UUID, expected models.PaymentStatus, v db.PaymentVerification) (bool, error)
	RejectPayment(ctx context.Context, orderID uuid.UUID, expected models.PaymentStatus, reason string) (bool, error)
	Cancel(ctx context.Context, orderID uuid.UUID, expected models.OrderStatus, c models.Cancellation, refund *models.RefundRecord, expectedRefunded int64, entry models.HistoryEntry) (bool, error)
	Refund(ctx context.Context, orderID uuid.UUID, expectedRefunded int64, rec models.RefundRecord) (bool, error)
	ConfirmCODDelivery(ctx context.Context, orderID uuid.UUID, collected db.PaymentVerification, entry models.HistoryEntry) (bool, error)
	AddNote(ctx context.Context, orderID uuid.UUID, note models.Note) error
	SetTracking(ctx context.Context, orderID uuid.UUID, expected models.OrderStatus, t models.Tracking) (bool, error)
}

// ProductReader supplies the live product snapshot captured into order items.
type ProductReader interface {
	GetSnapshot(ctx context.Context, productID uuid.UUID) (*models.Product, error)
}

// Pricer computes order pricing server-side; client totals are never trusted.
type Pricer interface {
	Quote(items []models.OrderItem, destinationCity, promoCode string) (models.Pricing, error)
}

// Notifier receives lifecycle events after the mutation has committed.
// Implementations must not block and must never report failure to the caller.
type Notifier interface {
	Dispatch(ctx context.Context, order *models.Order, event notify.Event)
}

type noopNotifier struct{}

func (noopNotifier) Dispatch(context.Context, *models.Order, notify.Event) {}

// ValidationError reports malformed caller input, as opposed to a legal
// request arriving in the wrong state.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// OrderService owns the order lifecycle: creation, status transitions,
// payment verification, cancellation, refund bookkeeping, notes, tracking.
// Every guard is validated against a fresh read, then re-checked at write
// time by the store's conditional update.
type OrderService struct {
	store    OrderStore
	products ProductReader
	pricer   Pricer
	notifier Notifier
	logger   *slog.Logger
}

func NewOrderService(store OrderStore, products ProductReader, pricer Pricer, notifier Notifier, logger *slog.Logger) *OrderService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &OrderService{
		store:    store,
		products: products,
		pricer:   pricer,
		notifier: notifier,
		logger:   logger,
	}
}

func (s *OrderService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

type CreateOrderItemInput struct {
	ProductID     uuid.UUID
	Quantity      int
	Customization models.Customization
}

type CreateOrderInput struct {
	Customer        models.CustomerInfo
	ShippingAddress models.Address
	Items           []CreateOrderItemInput
	PaymentMethod   models.PaymentMethod
	ReceiptRef      string
	PromoCode       string
}

// Create snapshots the requested products, prices the order server-side and
// persists it in pending-payment with its first audit entry. A duplicate
// order number surfaces as an error, never a silent retry.
func (s *OrderService) Create(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	span := sentry.StartSpan(
		ctx,
		"service.order.create",
		sentry.WithOpName("service.order"),
		sentry.WithDescription("Create"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	logger := s.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)
	recordFailure := func(reason string) {
		meter.Count("order.create.failed", 1, sentry.WithAttributes(
			attribute.String("reason", reason),
		))
	}
	meter.Count("order.create.received", 1)

	if err := validateCreateInput(input); err != nil {
		recordFailure("invalid_input")
		return nil, err
	}

	items := make([]models.OrderItem, 0, len(input.Items))
	for _, in := range input.Items {
		product, err := s.products.GetSnapshot(ctx, in.ProductID)
		if err != nil {
			recordFailure("product_lookup_failed")
			return nil, err
		}
		if !product.Orderable(in.Quantity) {
			recordFailure("product_unavailable")
			return nil, fmt.Errorf("%w: %s", models.ErrProductUnavailable, product.SKU)
		}
		items = append(items, models.OrderItem{
			ProductID:      product.ID,
			SKU:            product.SKU,
			Title:          product.Title,
			UnitPricePaisa: product.PricePaisa,
			Quantity:       in.Quantity,
			Customization:  in.Customization,
			SubtotalPaisa:  product.PricePaisa * int64(in.Quantity),
		})
	}

	pricing, err := s.pricer.Quote(items, input.ShippingAddress.City, input.PromoCode)
	if err != nil {
		recordFailure("pricing_failed")
		return nil, err
	}

	now := time.Now().UTC()
	order := &models.Order{
		Items:   items,
		Pricing: pricing,
		Payment: models.Payment{
			Method:     input.PaymentMethod,
			Status:     models.PaymentPending,
			ReceiptRef: input.ReceiptRef,
		},
		Status: models.StatusPendingPayment,
		StatusHistory: []models.HistoryEntry{{
			Status: models.StatusPendingPayment,
			Note:   "order placed",
			Actor:  "customer",
			At:     now,
		}},
		Customer:        input.Customer,
		ShippingAddress: input.ShippingAddress,
	}

	if err := s.store.Create(ctx, order); err != nil {
		recordFailure("store_create_failed")
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	meter.Count("order.created", 1, sentry.WithAttributes(
		attribute.String("payment_method", string(order.Payment.Method)),
	))
	logger.Info("order created", "order_number", order.Number, "total_paisa", order.Pricing.TotalPaisa, "payment_method", string(order.Payment.Method))

	s.notifier.Dispatch(ctx, order, notify.EventOrderPlaced)
	return order, nil
}

func validateCreateInput(input CreateOrderInput) error {
	if !input.PaymentMethod.Valid() {
		return validationErrorf("unsupported payment method: %s", input.PaymentMethod)
	}
	if len(input.Items) == 0 {
		return validationErrorf("order must contain at least one item")
	}
	for i, item := range input.Items {
		if item.ProductID == uuid.Nil {
			return validationErrorf("item %d: product id is required", i)
		}
		if item.Quantity <= 0 {
			return validationErrorf("item %d: quantity must be positive", i)
		}
	}
	if input.Customer.Name == "" || input.Customer.Email == "" || input.Customer.Phone == "" {
		return validationErrorf("customer name, email and phone are required")
	}
	if input.ShippingAddress.Line1 == "" || input.ShippingAddress.City == "" || input.ShippingAddress.Country == "" {
		return validationErrorf("shipping address line1, city and country are required")
	}
	return nil
}

type UpdateStatusInput struct {
	To       models.OrderStatus
	Note     string
	Actor    string
	Override bool
}

// UpdateStatus applies a single-step forward transition, or a forward jump
// when Override is set with a mandatory note. Cancellation goes through
// Cancel; COD delivery goes through ConfirmCODDelivery. Transitions past
// pending-payment require a verified payment unless the order is COD.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, input UpdateStatusInput) (*models.Order, error) {
	span := sentry.StartSpan(
		ctx,
		"service.order.update_status",
		sentry.WithOpName("service.order"),
		sentry.WithDescription("UpdateStatus"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	meter := observability.MeterFromContext(ctx)
	recordRejection := func(reason string) {
		meter.Count("order.transition.rejected", 1, sentry.WithAttributes(
			attribute.String("reason", reason),
		))
	}

	if !input.To.Valid() {
		recordRejection("unknown_status")
		return nil, validationErrorf("unknown status: %s", input.To)
	}
	if input.Actor == "" {
		recordRejection("missing_actor")
		return nil, validationErrorf("actor is required")
	}

	order, err := s.store.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status.Terminal() {
		recordRejection("terminal_state")
		return nil, fmt.Errorf("%w: order %s is %s", models.ErrTerminalState, order.Number, order.Status)
	}
	if input.To == models.StatusCancelled {
		recordRejection("cancel_via_status")
		return nil, fmt.Errorf("%w: cancellation requires a reason, use the cancel operation", models.ErrInvalidTransition)
	}
	if input.To == models.StatusDelivered && order.Payment.Method == models.PaymentCOD {
		recordRejection("cod_delivery_via_status")
		return nil, fmt.Errorf("%w: cod orders are delivered through delivery confirmation", models.ErrInvalidTransition)
	}

	if input.Override {
		if input.Note == "" {
			recordRejection("override_without_note")
			return nil, validationErrorf("override requires a note")
		}
		if !models.CanOverride(order.Status, input.To) {
			recordRejection("invalid_override")
			return nil, fmt.Errorf("%w: cannot override from %s to %s", models.ErrInvalidTransition, order.Status, input.To)
		}
	} else if !models.CanTransition(order.Status, input.To) {
		recordRejection("invalid_transition")
		return nil, fmt.Errorf("%w: from %s to %s", models.ErrInvalidTransition, order.Status, input.To)
	}

	if models.ForwardIndex(input.To) > 0 &&
		order.Payment.Method != models.PaymentCOD &&
		order.Payment.Status != models.PaymentVerified {
		recordRejection("payment_not_verified")
		return nil, fmt.Errorf("%w: cannot move to %s while payment is %s", models.ErrInvalidTransition, input.To, order.Payment.Status)
	}

	entry := models.HistoryEntry{
		Status:   input.To,
		Note:     input.Note,
		Actor:    input.Actor,
		Override: input.Override,
		At:       time.Now().UTC(),
	}
	applied, err := s.store.UpdateStatus(ctx, orderID, order.Status, entry)
	if err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	if !applied {
		recordRejection("concurrent_modification")
		return nil, fmt.Errorf("%w: order %s changed since read at %s", models.ErrConcurrentModification, order.Number, order.Status)
	}
	meter.Count("order.transition.applied", 1, sentry.WithAttributes(
		attribute.String("to", string(input.To)),
		attribute.Bool("override", input.Override),
	))
	s.loggerFromContext(ctx).Info("order status updated",
		"order_number", order.Number, "from", string(order.Status), "to", string(input.To), "actor", input.Actor, "override", input.Override)

	order.Status = input.To
	order.StatusHistory = append(order.StatusHistory, entry)
	s.notifier.Dispatch(ctx, order, notify.EventForTransition(input.To))
	return order, nil
}

type VerifyPaymentInput struct {
	Actor           string
	Approve         bool
	TransactionID   string
	TransactionDate time.Time
	AmountPaisa     int64
	RejectionReason string
}

// VerifyPayment records the manual payment decision for non-COD orders.
// Rejection is retryable; a second verification of an already verified
// payment fails so the customer is never notified twice.
func (s *OrderService) VerifyPayment(ctx context.Context, orderID uuid.UUID, input VerifyPaymentInput) (*models.Order, error) {
	span := sentry.StartSpan(
		ctx,
		"service.order.verify_payment",
		sentry.WithOpName("service.order"),
		sentry.WithDescription("VerifyPayment"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	meter := observability.MeterFromContext(ctx)
	recordRejection := func(reason string) {
		meter.Count("payment.verify.rejected", 1, sentry.WithAttributes(
			attribute.String("reason", reason),
		))
	}

	if input.Actor == "" {
		recordRejection("missing_actor")
		return nil, validationErrorf("actor is required")
	}
	if !input.Approve && input.RejectionReason == "" {
		recordRejection("missing_rejection_reason")
		return nil, validationErrorf("rejection requires a reason")
	}

	order, err := s.store.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.Payment.Method == models.PaymentCOD {
		recordRejection("cod_order")
		return nil, validationErrorf("cod payments are settled at delivery confirmation")
	}
	switch order.Payment.Status {
	case models.PaymentVerified:
		recordRejection("already_verified")
		return nil, fmt.Errorf("%w: order %s", models.ErrAlreadyVerified, order.Number)
	case models.PaymentRefunded:
		recordRejection("payment_refunded")
		return nil, fmt.Errorf("%w: payment for order %s is refunded", models.ErrInvalidTransition, order.Number)
	}

	logger := s.loggerFromContext(ctx)
	now := time.Now().UTC()

	if !input.Approve {
		applied, err := s.store.RejectPayment(ctx, orderID, order.Payment.Status, input.RejectionReason)
		if err != nil {
			return nil, fmt.Errorf("failed to reject payment: %w", err)
		}
		if !applied {
			recordRejection("concurrent_modification")
			return nil, fmt.Errorf("%w: payment for order %s changed since read", models.ErrConcurrentModification, order.Number)
		}
		if noteErr := s.store.AddNote(ctx, orderID, models.Note{
			Text:    "payment rejected: " + input.RejectionReason,
			Author:  input.Actor,
			AddedAt: now,
		}); noteErr != nil {
			logger.Warn("failed to record rejection note", "error", noteErr, "order_number", order.Number)
		}
		meter.Count("payment.rejected", 1)
		logger.Info("payment rejected", "order_number", order.Number, "actor", input.Actor, "reason", input.RejectionReason)

		order.Payment.Status = models.PaymentFailed
		order.Payment.RejectionReason = input.RejectionReason
		s.notifier.Dispatch(ctx, order, notify.EventPaymentRejected)
		return order, nil
	}

	verification := db.PaymentVerification{
		VerifiedBy:      input.Actor,
		VerifiedAt:      now,
		TransactionID:   input.TransactionID,
		TransactionDate: input.TransactionDate,
		AmountPaidPaisa: input.AmountPaisa,
	}
	applied, err := s.store.VerifyPayment(ctx, orderID, order.Payment.Status, verification)
	if err != nil {
		return nil, fmt.Errorf("failed to verify payment: %w", err)
	}
	if !applied {
		recordRejection("concurrent_modification")
		return nil, fmt.Errorf("%w: payment for order %s changed since read", models.ErrConcurrentModification, order.Number)
	}
	meter.Count("payment.verified", 1)
	logger.Info("payment verified", "order_number", order.Number, "actor", input.Actor, "transaction_id", input.TransactionID)

	order.Payment.Status = models.PaymentVerified
	order.Payment.VerifiedBy = input.Actor
	order.Payment.VerifiedAt = now
	order.Payment.TransactionID = input.TransactionID
	order.Payment.TransactionDate = input.TransactionDate
	order.Payment.AmountPaidPaisa = input.AmountPaisa
	s.notifier.Dispatch(ctx, order, notify.EventPaymentConfirmed)
	return order, nil
}

type ConfirmCODDeliveryInput struct {
	Actor          string
	CollectedPaisa int64
	Note           string
}

// ConfirmCODDelivery settles a cash-on-delivery order: the collected amount
// is recorded and the order moves dispatched to delivered in one atomic
// write. This is the only path that delivers a COD order.
func (s *OrderService) ConfirmCODDelivery(ctx context.Context, orderID uuid.UUID, input ConfirmCODDeliveryInput) (*models.Order, error) {
	span := sentry.StartSpan(
		ctx,
		"service.order.confirm_cod_delivery",
		sentry.WithOpName("service.order"),
		sentry.WithDescription("ConfirmCODDelivery"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	meter := observability.MeterFromContext(ctx)

	if input.Actor == "" {
		return nil, validationErrorf("actor is required")
	}
	if input.CollectedPaisa <= 0 {
		return nil, validationErrorf("collected amount must be positive")
	}

	order, err := s.store.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.Payment.Method != models.PaymentCOD {
		return nil, validationErrorf("order %s is not cash on delivery", order.Number)
	}
	if order.Status.Terminal() {
		return nil, fmt.Errorf("%w: order %s is %s", models.ErrTerminalState, order.Number, order.Status)
	}
	if order.Status != models.StatusDispatched {
		return nil, fmt.Errorf("%w: delivery confirmation requires dispatched, order %s is %s", models.ErrInvalidTransition, order.Number, order.Status)
	}

	now := time.Now().UTC()
	note := input.Note
	if note == "" {
		note = "cash collected on delivery"
	}
	entry := models.HistoryEntry{
		Status: models.StatusDelivered,
		Note:   note,
		Actor:  input.Actor,
		At:     now,
	}
	collected := db.PaymentVerification{
		VerifiedBy:      input.Actor,
		VerifiedAt:      now,
		AmountPaidPaisa: input.CollectedPaisa,
	}
	applied, err := s.store.ConfirmCODDelivery(ctx, orderID, collected, entry)
	if err != nil {
		return nil, fmt.Errorf("failed to confirm delivery: %w", err)
	}
	if !applied {
		return nil, fmt.Errorf("%w: order %s changed since read", models.ErrConcurrentModification, order.Number)
	}
	meter.Count("order.cod_delivered", 1)
	s.loggerFromContext(ctx).Info("cod delivery confirmed",
		"order_number", order.Number, "actor", input.Actor, "collected_paisa", input.CollectedPaisa)

	order.Status = models.StatusDelivered
	order.StatusHistory = append(order.StatusHistory, entry)
	order.Payment.Status = models.PaymentVerified
	order.Payment.VerifiedBy = input.Actor
	order.Payment.VerifiedAt = now
	order.Payment.AmountPaidPaisa = input.CollectedPaisa
	s.notifier.Dispatch(ctx, order, notify.EventOrderDelivered)
	return order, nil
}

type CancelOrderInput struct {
	Actor       string
	Reason      string
	RefundPaisa int64
}

// Cancel moves any non-terminal order to cancelled with a dedicated
// cancellation record. An optional refund amount is booked alongside without
// flipping the payment status; cancellation and refund settlement are
// tracked independently.
func (s *OrderService) Cancel(ctx context.Context, orderID uuid.UUID, input CancelOrderInput) (*models.Order, error) {
	span := sentry.StartSpan(
		ctx,
		"service.order.cancel",
		sentry.WithOpName("service.order"),
		sentry.WithDescription("Cancel"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	meter := observability.MeterFromContext(ctx)

	if input.Actor == "" {
		return nil, validationErrorf("actor is required")
	}
	if input.Reason == "" {
		return nil, validationErrorf("cancellation requires a reason")
	}
	if input.RefundPaisa < 0 {
		return nil, validationErrorf("refund amount must not be negative")
	}

	order, err := s.store.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status.Terminal() {
		return nil, fmt.Errorf("%w: order %s is %s", models.ErrTerminalState, order.Number, order.Status)
	}

	now := time.Now().UTC()
	var refund *models.RefundRecord
	if input.RefundPaisa > 0 {
		if order.Payment.Status != models.PaymentVerified {
			return nil, validationErrorf("no verified payment to refund on order %s", order.Number)
		}
		if order.Payment.RefundedPaisa+input.RefundPaisa > order.Pricing.TotalPaisa {
			return nil, fmt.Errorf("%w: %d + %d exceeds total %d", models.ErrRefundExceedsTotal,
				order.Payment.RefundedPaisa, input.RefundPaisa, order.Pricing.TotalPaisa)
		}
		refund = &models.RefundRecord{
			AmountPaisa: input.RefundPaisa,
			Reason:      input.Reason,
			ProcessedAt: now,
			ProcessedBy: input.Actor,
		}
	}

	cancellation := models.Cancellation{
		Reason:      input.Reason,
		CancelledBy: input.Actor,
		CancelledAt: now,
	}
	entry := models.HistoryEntry{
		Status: models.StatusCancelled,
		Note:   input.Reason,
		Actor:  input.Actor,
		At:     now,
	}
	applied, err := s.store.Cancel(ctx, orderID, order.Status, cancellation, refund, order.Payment.RefundedPaisa, entry)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel order: %w", err)
	}
	if !applied {
		return nil, fmt.Errorf("%w: order %s changed since read at %s", models.ErrConcurrentModification, order.Number, order.Status)
	}
	meter.Count("order.cancelled", 1, sentry.WithAttributes(
		attribute.Bool("with_refund", refund != nil),
	))
	s.loggerFromContext(ctx).Info("order cancelled",
		"order_number", order.Number, "actor", input.Actor, "refund_paisa", input.RefundPaisa)

	order.Status = models.StatusCancelled
	order.StatusHistory = append(order.StatusHistory, entry)
	order.Cancellation = &cancellation
	if refund != nil {
		order.Payment.RefundedPaisa += refund.AmountPaisa
		order.Payment.Refunds = append(order.Payment.Refunds, *refund)
	}
	s.notifier.Dispatch(ctx, order, notify.EventOrderCancelled)
	return order, nil
}

type RefundInput struct {
	Actor       string
	Reason      string
	AmountPaisa int64
}

// Refund books a refund against a verified payment and marks the payment
// refunded. The order status is untouched; a delivered order can be refunded
// without un-delivering it, and further partial refunds stay legal up to the
// order total.
func (s *OrderService) Refund(ctx context.Context, orderID uuid.UUID, input RefundInput) (*models.Order, error) {
	span := sentry.StartSpan(
		ctx,
		"service.order.refund",
		sentry.WithOpName("service.order"),
		sentry.WithDescription("Refund"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	meter := observability.MeterFromContext(ctx)

	if input.Actor == "" {
		return nil, validationErrorf("actor is required")
	}
	if input.Reason == "" {
		return nil, validationErrorf("refund requires a reason")
	}
	if input.AmountPaisa <= 0 {
		return nil, validationErrorf("refund amount must be positive")
	}

	order, err := s.store.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	switch order.Payment.Status {
	case models.PaymentVerified, models.PaymentRefunded:
	default:
		return nil, fmt.Errorf("%w: refund requires a verified payment, order %s payment is %s",
			models.ErrInvalidTransition, order.Number, order.Payment.Status)
	}
	if order.Payment.RefundedPaisa+input.AmountPaisa > order.Pricing.TotalPaisa {
		return nil, fmt.Errorf("%w: %d + %d exceeds total %d", models.ErrRefundExceedsTotal,
			order.Payment.RefundedPaisa, input.AmountPaisa, order.Pricing.TotalPaisa)
	}

	rec := models.RefundRecord{
		AmountPaisa: input.AmountPaisa,
		Reason:      input.Reason,
		ProcessedAt: time.Now().UTC(),
		ProcessedBy: input.Actor,
	}
	applied, err := s.store.Refund(ctx, orderID, order.Payment.RefundedPaisa, rec)
	if err != nil {
		return nil, fmt.Errorf("failed to process refund: %w", err)
	}
	if !applied {
		return nil, fmt.Errorf("%w: refunds for order %s changed since read", models.ErrConcurrentModification, order.Number)
	}
	meter.Count("order.refunded", 1)
	s.loggerFromContext(ctx).Info("refund processed",
		"order_number", order.Number, "actor", input.Actor, "amount_paisa", input.AmountPaisa)

	order.Payment.Status = models.PaymentRefunded
	order.Payment.RefundedPaisa += rec.AmountPaisa
	order.Payment.Refunds = append(order.Payment.Refunds, rec)
	s.notifier.Dispatch(ctx, order, notify.EventOrderRefunded)
	return order, nil
}

// AddNote appends an admin annotation. Legal in every state, terminal ones
// included.
func (s *OrderService) AddNote(ctx context.Context, orderID uuid.UUID, text, author string) error {
	if text == "" {
		return validationErrorf("note text is required")
	}
	if author == "" {
		return validationErrorf("note author is required")
	}
	return s.store.AddNote(ctx, orderID, models.Note{
		Text:    text,
		Author:  author,
		AddedAt: time.Now().UTC(),
	})
}

type SetTrackingInput struct {
	Actor          string
	Courier        string
	TrackingNumber string
}

// SetTracking records courier details once the order is ready for dispatch.
func (s *OrderService) SetTracking(ctx context.Context, orderID uuid.UUID, input SetTrackingInput) (*models.Order, error) {
	if input.Actor == "" {
		return nil, validationErrorf("actor is required")
	}
	if input.Courier == "" || input.TrackingNumber == "" {
		return nil, validationErrorf("courier and tracking number are required")
	}

	order, err := s.store.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status != models.StatusReadyDispatch && order.Status != models.StatusDispatched {
		return nil, fmt.Errorf("%w: tracking requires ready-dispatch or dispatched, order %s is %s",
			models.ErrInvalidTransition, order.Number, order.Status)
	}

	tracking := models.Tracking{
		Courier:        NormalizeCourierName(input.Courier),
		TrackingNumber: input.TrackingNumber,
	}
	if order.Status == models.StatusDispatched {
		tracking.DispatchedAt = time.Now().UTC()
	}
	applied, err := s.store.SetTracking(ctx, orderID, order.Status, tracking)
	if err != nil {
		return nil, fmt.Errorf("failed to set tracking: %w", err)
	}
	if !applied {
		return nil, fmt.Errorf("%w: order %s changed since read at %s", models.ErrConcurrentModification, order.Number, order.Status)
	}
	s.loggerFromContext(ctx).Info("tracking set",
		"order_number", order.Number, "courier", input.Courier, "tracking_number", input.TrackingNumber)

	order.Tracking = &tracking
	return order, nil
}

// Track is the public read path, keyed by order number.
func (s *OrderService) Track(ctx context.Context, orderNumber string) (*models.Order, error) {
	if orderNumber == "" {
		return nil, validationErrorf("order number is required")
	}
	return s.store.GetByNumber(ctx, orderNumber)
}

func (s *OrderService) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return s.store.GetByID(ctx, orderID)
}

func (s *OrderService) List(ctx context.Context, filter db.ListFilter) ([]*models.Order, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, validationErrorf("unknown status filter: %s", filter.Status)
	}
	return s.store.List(ctx, filter)
}
