package models

import "testing"

func TestCanTransition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		from OrderStatus
		to   OrderStatus
		want bool
	}{
		{name: "pending to verified", from: StatusPendingPayment, to: StatusPaymentVerified, want: true},
		{name: "verified to material", from: StatusPaymentVerified, to: StatusMaterialArranged, want: true},
		{name: "dispatched to delivered", from: StatusDispatched, to: StatusDelivered, want: true},
		{name: "skip not allowed", from: StatusPendingPayment, to: StatusInProgress, want: false},
		{name: "backwards not allowed", from: StatusQualityCheck, to: StatusInProgress, want: false},
		{name: "cancel from pending", from: StatusPendingPayment, to: StatusCancelled, want: true},
		{name: "cancel from quality check", from: StatusQualityCheck, to: StatusCancelled, want: true},
		{name: "refund branch from dispatched", from: StatusDispatched, to: StatusRefunded, want: true},
		{name: "no cancel from delivered", from: StatusDelivered, to: StatusCancelled, want: false},
		{name: "no leaving cancelled", from: StatusCancelled, to: StatusPendingPayment, want: false},
		{name: "no leaving refunded", from: StatusRefunded, to: StatusCancelled, want: false},
		{name: "unknown status", from: OrderStatus("shipped"), to: StatusDelivered, want: false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := CanTransition(tc.from, tc.to); got != tc.want {
				t.Fatalf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
			}
		})
	}
}

func TestTerminal(t *testing.T) {
	t.Parallel()

	terminal := []OrderStatus{StatusDelivered, StatusCancelled, StatusRefunded}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%s.Terminal() = false, want true", s)
		}
		if got := AllowedTransitions(s); len(got) != 0 {
			t.Errorf("AllowedTransitions(%s) = %v, want empty", s, got)
		}
	}

	for _, s := range forwardOrder[:len(forwardOrder)-1] {
		if s.Terminal() {
			t.Errorf("%s.Terminal() = true, want false", s)
		}
	}
}

func TestCanOverride(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		from OrderStatus
		to   OrderStatus
		want bool
	}{
		{name: "skip forward", from: StatusPaymentVerified, to: StatusQualityCheck, want: true},
		{name: "skip to delivered", from: StatusInProgress, to: StatusDelivered, want: true},
		{name: "no backwards override", from: StatusQualityCheck, to: StatusPaymentVerified, want: false},
		{name: "no override into cancelled", from: StatusInProgress, to: StatusCancelled, want: false},
		{name: "no override out of cancelled", from: StatusCancelled, to: StatusInProgress, want: false},
		{name: "same state is not a move", from: StatusInProgress, to: StatusInProgress, want: false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := CanOverride(tc.from, tc.to); got != tc.want {
				t.Fatalf("CanOverride(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
			}
		})
	}
}

func TestPricingConsistent(t *testing.T) {
	t.Parallel()

	good := Pricing{SubtotalPaisa: 800000, ShippingPaisa: 20000, TaxPaisa: 40000, DiscountPaisa: 0, TotalPaisa: 860000}
	if !good.Consistent() {
		t.Error("expected consistent pricing")
	}

	bad := good
	bad.TotalPaisa = 900000
	if bad.Consistent() {
		t.Error("expected inconsistent pricing")
	}
}

func TestProductOrderable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		product  *Product
		quantity int
		want     bool
	}{
		{name: "nil product", product: nil, quantity: 1, want: false},
		{name: "inactive", product: &Product{Active: false}, quantity: 1, want: false},
		{name: "untracked inventory ignores stock", product: &Product{Active: true, Stock: 0}, quantity: 5, want: true},
		{name: "tracked with stock", product: &Product{Active: true, TrackInventory: true, Stock: 3}, quantity: 3, want: true},
		{name: "tracked out of stock", product: &Product{Active: true, TrackInventory: true, Stock: 2}, quantity: 3, want: false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := tc.product.Orderable(tc.quantity); got != tc.want {
				t.Fatalf("Orderable(%d) = %v, want %v", tc.quantity, got, tc.want)
			}
		})
	}
}
