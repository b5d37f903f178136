package models

import (
	"time"

	"github.com/google/uuid"
)

type PaymentMethod string

const (
	PaymentBankTransfer PaymentMethod = "bank-transfer"
	PaymentJazzCash     PaymentMethod = "jazzcash"
	PaymentEasypaisa    PaymentMethod = "easypaisa"
	PaymentCOD          PaymentMethod = "cod"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentBankTransfer, PaymentJazzCash, PaymentEasypaisa, PaymentCOD:
		return true
	default:
		return false
	}
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentVerified PaymentStatus = "verified"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// Payment tracks the payment sub-record of an order. RefundedPaisa is the
// cumulative amount refunded across all refund records, including refunds
// booked during cancellation.
type Payment struct {
	Method          PaymentMethod  `json:"method"`
	Status          PaymentStatus  `json:"status"`
	ReceiptRef      string         `json:"receipt_ref,omitempty"`
	TransactionID   string         `json:"transaction_id,omitempty"`
	TransactionDate time.Time      `json:"transaction_date,omitzero"`
	AmountPaidPaisa int64          `json:"amount_paid_paisa,omitempty"`
	VerifiedBy      string         `json:"verified_by,omitempty"`
	VerifiedAt      time.Time      `json:"verified_at,omitzero"`
	RejectionReason string         `json:"rejection_reason,omitempty"`
	RefundedPaisa   int64          `json:"refunded_paisa"`
	Refunds         []RefundRecord `json:"refunds,omitempty"`
}

type RefundRecord struct {
	AmountPaisa int64     `json:"amount_paisa"`
	Reason      string    `json:"reason"`
	ProcessedAt time.Time `json:"processed_at"`
	ProcessedBy string    `json:"processed_by"`
}

// Pricing is frozen at order creation and always recomputed server-side.
// Invariant: TotalPaisa == SubtotalPaisa + ShippingPaisa + TaxPaisa - DiscountPaisa.
type Pricing struct {
	SubtotalPaisa int64 `json:"subtotal_paisa"`
	ShippingPaisa int64 `json:"shipping_paisa"`
	DiscountPaisa int64 `json:"discount_paisa"`
	TaxPaisa      int64 `json:"tax_paisa"`
	TotalPaisa    int64 `json:"total_paisa"`
}

func (p Pricing) Consistent() bool {
	return p.TotalPaisa == p.SubtotalPaisa+p.ShippingPaisa+p.TaxPaisa-p.DiscountPaisa
}

// Customization captures per-item tailoring details as submitted at checkout.
type Customization struct {
	Measurements    map[string]float64 `json:"measurements,omitempty"`
	Fabric          string             `json:"fabric,omitempty"`
	ReferenceImages []string           `json:"reference_images,omitempty"`
	Instructions    string             `json:"instructions,omitempty"`
}

// OrderItem is an immutable snapshot of the product at order time. Live
// product data is never re-read after creation.
type OrderItem struct {
	ProductID      uuid.UUID     `json:"product_id"`
	SKU            string        `json:"sku"`
	Title          string        `json:"title"`
	UnitPricePaisa int64         `json:"unit_price_paisa"`
	Quantity       int           `json:"quantity"`
	Customization  Customization `json:"customization"`
	SubtotalPaisa  int64         `json:"subtotal_paisa"`
}

// HistoryEntry is one audit record in the append-only status history.
// Override marks an admin skip of intermediate states.
type HistoryEntry struct {
	Status   OrderStatus `json:"status"`
	Note     string      `json:"note,omitempty"`
	Actor    string      `json:"actor"`
	Override bool        `json:"override,omitempty"`
	At       time.Time   `json:"at"`
}

type Note struct {
	Text    string    `json:"text"`
	Author  string    `json:"author"`
	AddedAt time.Time `json:"added_at"`
}

type Cancellation struct {
	Reason      string    `json:"reason"`
	CancelledBy string    `json:"cancelled_by"`
	CancelledAt time.Time `json:"cancelled_at"`
}

type Tracking struct {
	Courier        string    `json:"courier"`
	TrackingNumber string    `json:"tracking_number"`
	DispatchedAt   time.Time `json:"dispatched_at,omitzero"`
}

// CustomerInfo and Address are denormalized snapshots so historical orders
// stay accurate if the customer later edits their profile.
type CustomerInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	Province   string `json:"province,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country"`
}

// Order is the aggregate root. All mutation goes through lifecycle operations
// that append to StatusHistory; the struct itself carries no behavior beyond
// read helpers.
type Order struct {
	ID              uuid.UUID      `json:"id"`
	Number          string         `json:"number"`
	Items           []OrderItem    `json:"items"`
	Pricing         Pricing        `json:"pricing"`
	Payment         Payment        `json:"payment"`
	Status          OrderStatus    `json:"status"`
	StatusHistory   []HistoryEntry `json:"status_history"`
	Notes           []Note         `json:"notes,omitempty"`
	Cancellation    *Cancellation  `json:"cancellation,omitempty"`
	Tracking        *Tracking      `json:"tracking,omitempty"`
	Customer        CustomerInfo   `json:"customer"`
	ShippingAddress Address        `json:"shipping_address"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// Product is the read-path snapshot used when building order items.
type Product struct {
	ID             uuid.UUID `json:"id"`
	SKU            string    `json:"sku"`
	Title          string    `json:"title"`
	PricePaisa     int64     `json:"price_paisa"`
	Active         bool      `json:"active"`
	TrackInventory bool      `json:"track_inventory"`
	Stock          int       `json:"stock"`
}

// Orderable reports whether the product can be placed in a new order with the
// requested quantity.
func (p *Product) Orderable(quantity int) bool {
	if p == nil || !p.Active {
		return false
	}
	if p.TrackInventory && p.Stock < quantity {
		return false
	}
	return true
}
