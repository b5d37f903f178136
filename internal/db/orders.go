package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/luxecraft/atelier/internal/crypto"
	"github.com/luxecraft/atelier/internal/models"
)

// OrderStore persists orders. Every lifecycle mutation is a single
// conditional UPDATE keyed on the state the caller read; zero rows affected
// means the precondition no longer holds and the caller decides between
// not-found and concurrent modification.
type OrderStore struct {
	pool      *pgxpool.Pool
	encryptor crypto.Encryptor
}

func NewOrderStore(pool *pgxpool.Pool, encryptor crypto.Encryptor) (*OrderStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if encryptor == nil {
		return nil, fmt.Errorf("encryptor is required")
	}
	return &OrderStore{pool: pool, encryptor: encryptor}, nil
}

const orderColumns = `id, order_number, status, payment_method, payment_status,
	payment_details, refunded_paisa, refunds,
	subtotal_paisa, shipping_paisa, discount_paisa, tax_paisa, total_paisa,
	status_history, notes, cancellation, tracking, customer, shipping_address,
	created_at, updated_at`

// paymentDetails is the jsonb payload holding everything about the payment
// except method, status and refund bookkeeping, which live in columns so
// conditional updates can key on them.
type paymentDetails struct {
	ReceiptRef      string    `json:"receipt_ref,omitempty"`
	TransactionID   string    `json:"transaction_id,omitempty"`
	TransactionDate time.Time `json:"transaction_date,omitzero"`
	AmountPaidPaisa int64     `json:"amount_paid_paisa,omitempty"`
	VerifiedBy      string    `json:"verified_by,omitempty"`
	VerifiedAt      time.Time `json:"verified_at,omitzero"`
	RejectionReason string    `json:"rejection_reason,omitempty"`
}

// Create inserts the order, its items, and the year-scoped order number in a
// single transaction. A duplicate order number fails loudly with
// models.ErrDuplicateOrderNumber, never a silent retry.
func (s *OrderStore) Create(ctx context.Context, order *models.Order) error {
	sealed, err := crypto.EncryptContact(s.encryptor, order.Customer)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := time.Now().UTC()
	year := now.Year()
	seq, err := nextOrderNumber(ctx, tx, year)
	if err != nil {
		return err
	}

	order.ID = uuid.New()
	order.Number = FormatOrderNumber(year, seq)
	order.CreatedAt = now
	order.UpdatedAt = now

	details, err := json.Marshal(paymentDetails{
		ReceiptRef:      order.Payment.ReceiptRef,
		TransactionID:   order.Payment.TransactionID,
		TransactionDate: order.Payment.TransactionDate,
	})
	if err != nil {
		return err
	}
	history, err := json.Marshal(order.StatusHistory)
	if err != nil {
		return err
	}
	customer, err := json.Marshal(sealed)
	if err != nil {
		return err
	}
	address, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (
			id, order_number, status, payment_method, payment_status,
			payment_details, refunded_paisa, refunds,
			subtotal_paisa, shipping_paisa, discount_paisa, tax_paisa, total_paisa,
			status_history, notes, customer, shipping_address, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, 0, '[]'::jsonb, $7, $8, $9, $10, $11, $12, '[]'::jsonb, $13, $14, $15, $15)
	`,
		order.ID, order.Number, string(order.Status), string(order.Payment.Method), string(order.Payment.Status),
		details,
		order.Pricing.SubtotalPaisa, order.Pricing.ShippingPaisa, order.Pricing.DiscountPaisa,
		order.Pricing.TaxPaisa, order.Pricing.TotalPaisa,
		history, customer, address, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", models.ErrDuplicateOrderNumber, order.Number)
		}
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for i, item := range order.Items {
		customization, err := json.Marshal(item.Customization)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (order_id, position, product_id, sku, title, unit_price_paisa, quantity, customization, subtotal_paisa)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, order.ID, i, item.ProductID, item.SKU, item.Title, item.UnitPricePaisa, item.Quantity, customization, item.SubtotalPaisa)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (s *OrderStore) GetByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID)
	return s.scanOrder(ctx, row)
}

func (s *OrderStore) GetByNumber(ctx context.Context, number string) (*models.Order, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_number = $1`, number)
	return s.scanOrder(ctx, row)
}

type ListFilter struct {
	Status models.OrderStatus
	Limit  int
}

// List returns recent orders, optionally filtered by status. Items are
// loaded in one batched query rather than per order.
func (s *OrderStore) List(ctx context.Context, filter ListFilter) ([]*models.Order, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := `SELECT ` + orderColumns + ` FROM orders`
	args := []any{}
	if filter.Status != "" {
		query += ` WHERE status = $1`
		args = append(args, string(filter.Status))
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d`, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*models.Order
	byID := make(map[uuid.UUID]*models.Order)
	for rows.Next() {
		order, err := s.scanOrderRow(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
		byID[order.ID] = order
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return []*models.Order{}, nil
	}

	ids := make([]uuid.UUID, 0, len(orders))
	for _, order := range orders {
		ids = append(ids, order.ID)
	}

	itemRows, err := s.pool.Query(ctx, `
		SELECT order_id, product_id, sku, title, unit_price_paisa, quantity, customization, subtotal_paisa
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, position
	`, ids)
	if err != nil {
		return nil, err
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var orderID uuid.UUID
		item, err := scanItem(itemRows, &orderID)
		if err != nil {
			return nil, err
		}
		byID[orderID].Items = append(byID[orderID].Items, item)
	}
	if err := itemRows.Err(); err != nil {
		return nil, err
	}

	return orders, nil
}

// UpdateStatus applies a status transition conditioned on the previously read
// status, appending exactly one audit entry in the same statement.
func (s *OrderStore) UpdateStatus(ctx context.Context, orderID uuid.UUID, expected models.OrderStatus, entry models.HistoryEntry) (bool, error) {
	appended, err := historyAppend(entry)
	if err != nil {
		return false, err
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE orders
		SET status = $1, status_history = status_history || $2::jsonb, updated_at = now()
		WHERE id = $3 AND status = $4
	`, string(entry.Status), appended, orderID, string(expected))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

type PaymentVerification struct {
	VerifiedBy      string
	VerifiedAt      time.Time
	TransactionID   string
	TransactionDate time.Time
	AmountPaidPaisa int64
}

// VerifyPayment marks the payment verified, conditioned on the payment status
// the caller read. COD payments never take this path.
func (s *OrderStore) VerifyPayment(ctx context.Context, orderID uuid.UUID, expected models.PaymentStatus, v PaymentVerification) (bool, error) {
	patch, err := json.Marshal(map[string]any{
		"verified_by":       v.VerifiedBy,
		"verified_at":       v.VerifiedAt,
		"transaction_id":    v.TransactionID,
		"transaction_date":  v.TransactionDate,
		"amount_paid_paisa": v.AmountPaidPaisa,
	})
	if err != nil {
		return false, err
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE orders
		SET payment_status = $1, payment_details = payment_details || $2::jsonb, updated_at = now()
		WHERE id = $3 AND payment_status = $4 AND payment_method <> 'cod'
	`, string(models.PaymentVerified), patch, orderID, string(expected))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// RejectPayment marks the payment failed with a reason. Rejection is not
// terminal: a later verification may still succeed.
func (s *OrderStore) RejectPayment(ctx context.Context, orderID uuid.UUID, expected models.PaymentStatus, reason string) (bool, error) {
	patch, err := json.Marshal(map[string]any{"rejection_reason": reason})
	if err != nil {
		return false, err
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE orders
		SET payment_status = $1, payment_details = payment_details || $2::jsonb, updated_at = now()
		WHERE id = $3 AND payment_status = $4 AND payment_method <> 'cod'
	`, string(models.PaymentFailed), patch, orderID, string(expected))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Cancel moves the order to cancelled with its dedicated cancellation record.
// An optional refund record is booked in the same statement; it does not
// change payment_status. The refund branch additionally conditions on the
// payment still being verified and on the previously read cumulative refund,
// so a refund that committed in between makes the cancel lose instead of
// overshooting the cap.
func (s *OrderStore) Cancel(ctx context.Context, orderID uuid.UUID, expected models.OrderStatus, c models.Cancellation, refund *models.RefundRecord, expectedRefunded int64, entry models.HistoryEntry) (bool, error) {
	cancellation, err := json.Marshal(c)
	if err != nil {
		return false, err
	}
	appended, err := historyAppend(entry)
	if err != nil {
		return false, err
	}

	if refund == nil {
		tag, err := s.pool.Exec(ctx, `
			UPDATE orders
			SET status = $1, cancellation = $2::jsonb, status_history = status_history || $3::jsonb, updated_at = now()
			WHERE id = $4 AND status = $5
		`, string(models.StatusCancelled), cancellation, appended, orderID, string(expected))
		if err != nil {
			return false, err
		}
		return tag.RowsAffected() > 0, nil
	}

	refundJSON, err := json.Marshal([]models.RefundRecord{*refund})
	if err != nil {
		return false, err
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE orders
		SET status = $1, cancellation = $2::jsonb, status_history = status_history || $3::jsonb,
		    refunds = refunds || $4::jsonb, refunded_paisa = refunded_paisa + $5, updated_at = now()
		WHERE id = $6 AND status = $7 AND payment_status = $8 AND refunded_paisa = $9
	`, string(models.StatusCancelled), cancellation, appended, refundJSON, refund.AmountPaisa,
		orderID, string(expected), string(models.PaymentVerified), expectedRefunded)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Refund books a refund and marks the payment refunded. The condition on the
// previously read cumulative amount makes concurrent refunds lose instead of
// overshooting the cap.
func (s *OrderStore) Refund(ctx context.Context, orderID uuid.UUID, expectedRefunded int64, rec models.RefundRecord) (bool, error) {
	refundJSON, err := json.Marshal([]models.RefundRecord{rec})
	if err != nil {
		return false, err
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE orders
		SET payment_status = $1, refunds = refunds || $2::jsonb, refunded_paisa = refunded_paisa + $3, updated_at = now()
		WHERE id = $4 AND payment_status IN ($5, $1) AND refunded_paisa = $6
	`, string(models.PaymentRefunded), refundJSON, rec.AmountPaisa, orderID, string(models.PaymentVerified), expectedRefunded)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ConfirmCODDelivery records the collected amount and marks the order
// delivered and the payment verified in one atomic update.
func (s *OrderStore) ConfirmCODDelivery(ctx context.Context, orderID uuid.UUID, collected PaymentVerification, entry models.HistoryEntry) (bool, error) {
	patch, err := json.Marshal(map[string]any{
		"verified_by":       collected.VerifiedBy,
		"verified_at":       collected.VerifiedAt,
		"amount_paid_paisa": collected.AmountPaidPaisa,
	})
	if err != nil {
		return false, err
	}
	appended, err := historyAppend(entry)
	if err != nil {
		return false, err
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE orders
		SET status = $1, payment_status = $2, payment_details = payment_details || $3::jsonb,
		    status_history = status_history || $4::jsonb, updated_at = now()
		WHERE id = $5 AND status = $6 AND payment_method = 'cod' AND payment_status = $7
	`, string(models.StatusDelivered), string(models.PaymentVerified), patch, appended,
		orderID, string(models.StatusDispatched), string(models.PaymentPending))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// AddNote appends an admin annotation. Legal in every state, terminal ones
// included.
func (s *OrderStore) AddNote(ctx context.Context, orderID uuid.UUID, note models.Note) error {
	noteJSON, err := json.Marshal([]models.Note{note})
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE orders SET notes = notes || $1::jsonb, updated_at = now() WHERE id = $2
	`, noteJSON, orderID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrOrderNotFound
	}
	return nil
}

// SetTracking records courier details, conditioned on the status the caller
// read.
func (s *OrderStore) SetTracking(ctx context.Context, orderID uuid.UUID, expected models.OrderStatus, t models.Tracking) (bool, error) {
	tracking, err := json.Marshal(t)
	if err != nil {
		return false, err
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE orders SET tracking = $1::jsonb, updated_at = now() WHERE id = $2 AND status = $3
	`, tracking, orderID, string(expected))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *OrderStore) scanOrder(ctx context.Context, row pgx.Row) (*models.Order, error) {
	order, err := scanOrderColumns(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrOrderNotFound
		}
		return nil, err
	}

	customer, err := crypto.DecryptContact(s.encryptor, order.Customer)
	if err != nil {
		return nil, err
	}
	order.Customer = customer

	rows, err := s.pool.Query(ctx, `
		SELECT order_id, product_id, sku, title, unit_price_paisa, quantity, customization, subtotal_paisa
		FROM order_items
		WHERE order_id = $1
		ORDER BY position
	`, order.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var orderID uuid.UUID
		item, err := scanItem(rows, &orderID)
		if err != nil {
			return nil, err
		}
		order.Items = append(order.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return order, nil
}

// scanOrderRow is scanOrder without item loading or contact decryption, used
// by List which batches both separately.
func (s *OrderStore) scanOrderRow(row pgx.Row) (*models.Order, error) {
	order, err := scanOrderColumns(row)
	if err != nil {
		return nil, err
	}
	customer, err := crypto.DecryptContact(s.encryptor, order.Customer)
	if err != nil {
		return nil, err
	}
	order.Customer = customer
	return order, nil
}

func scanOrderColumns(row pgx.Row) (*models.Order, error) {
	var (
		order         models.Order
		status        string
		method        string
		paymentStatus string
		detailsJSON   []byte
		refundsJSON   []byte
		historyJSON   []byte
		notesJSON     []byte
		cancelJSON    []byte
		trackingJSON  []byte
		customerJSON  []byte
		addressJSON   []byte
		createdAt     pgtype.Timestamptz
		updatedAt     pgtype.Timestamptz
	)

	err := row.Scan(
		&order.ID, &order.Number, &status, &method, &paymentStatus,
		&detailsJSON, &order.Payment.RefundedPaisa, &refundsJSON,
		&order.Pricing.SubtotalPaisa, &order.Pricing.ShippingPaisa, &order.Pricing.DiscountPaisa,
		&order.Pricing.TaxPaisa, &order.Pricing.TotalPaisa,
		&historyJSON, &notesJSON, &cancelJSON, &trackingJSON, &customerJSON, &addressJSON,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	order.Status = models.OrderStatus(status)
	order.Payment.Method = models.PaymentMethod(method)
	order.Payment.Status = models.PaymentStatus(paymentStatus)
	order.CreatedAt = createdAt.Time
	order.UpdatedAt = updatedAt.Time

	var details paymentDetails
	if err := json.Unmarshal(detailsJSON, &details); err != nil {
		return nil, err
	}
	order.Payment.ReceiptRef = details.ReceiptRef
	order.Payment.TransactionID = details.TransactionID
	order.Payment.TransactionDate = details.TransactionDate
	order.Payment.AmountPaidPaisa = details.AmountPaidPaisa
	order.Payment.VerifiedBy = details.VerifiedBy
	order.Payment.VerifiedAt = details.VerifiedAt
	order.Payment.RejectionReason = details.RejectionReason

	if err := json.Unmarshal(refundsJSON, &order.Payment.Refunds); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(historyJSON, &order.StatusHistory); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(notesJSON, &order.Notes); err != nil {
		return nil, err
	}
	if cancelJSON != nil {
		order.Cancellation = &models.Cancellation{}
		if err := json.Unmarshal(cancelJSON, order.Cancellation); err != nil {
			return nil, err
		}
	}
	if trackingJSON != nil {
		order.Tracking = &models.Tracking{}
		if err := json.Unmarshal(trackingJSON, order.Tracking); err != nil {
			return nil, err
		}
	}
	if err := json.Unmarshal(customerJSON, &order.Customer); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(addressJSON, &order.ShippingAddress); err != nil {
		return nil, err
	}

	return &order, nil
}

func scanItem(row pgx.Row, orderID *uuid.UUID) (models.OrderItem, error) {
	var (
		item              models.OrderItem
		customizationJSON []byte
	)
	err := row.Scan(orderID, &item.ProductID, &item.SKU, &item.Title, &item.UnitPricePaisa, &item.Quantity, &customizationJSON, &item.SubtotalPaisa)
	if err != nil {
		return models.OrderItem{}, err
	}
	if err := json.Unmarshal(customizationJSON, &item.Customization); err != nil {
		return models.OrderItem{}, err
	}
	return item, nil
}

// historyAppend marshals an entry as a one-element jsonb array so `||`
// appends it to the stored history array.
func historyAppend(entry models.HistoryEntry) ([]byte, error) {
	return json.Marshal([]models.HistoryEntry{entry})
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
