package orders

import "time"

// Item is one order line. UnitPriceCents is a snapshot taken from the
// product catalog at creation time and never changes afterwards.
type Item struct {
	ProductID      int64 `json:"product_id"`
	Quantity       int64 `json:"quantity"`
	UnitPriceCents int64 `json:"unit_price_cents"`
	SubtotalCents  int64 `json:"subtotal_cents"`
}

// Order invariant: TotalCents equals the sum of item subtotals.
type Order struct {
	ID            int64     `json:"id"`
	CustomerID    int64     `json:"customer_id"`
	Items         []Item    `json:"items"`
	Status        Status    `json:"status"`
	TotalCents    int64     `json:"total_cents"`
	PaymentMethod string    `json:"payment_method,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
