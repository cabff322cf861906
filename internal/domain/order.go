package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const DefaultCurrency = "USD"

// OrderLine freezes the catalog price at the moment the order is created.
type OrderLine struct {
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

func NewOrderLine(product Product, quantity int) OrderLine {
	return OrderLine{
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    quantity,
		UnitPrice:   product.Price,
		Subtotal:    product.Price.Mul(decimal.NewFromInt(int64(quantity))),
	}
}

type Order struct {
	ID              uuid.UUID       `json:"id"`
	UserID          int64           `json:"user_id"`
	Lines           []OrderLine     `json:"lines"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Currency        string          `json:"currency"`
	Status          OrderStatus     `json:"status"`
	ShippingAddress string          `json:"shipping_address"`
	PaymentMethod   string          `json:"payment_method"`
	PaymentID       *string         `json:"payment_id"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// NewOrder builds a PENDING order. TotalAmount is derived from the lines and is not set anywhere else.
func NewOrder(userID int64, lines []OrderLine, shippingAddress, paymentMethod string, now time.Time) *Order {
	frozen := make([]OrderLine, len(lines))
	copy(frozen, lines)
	return &Order{
		ID:              uuid.New(),
		UserID:          userID,
		Lines:           frozen,
		TotalAmount:     SumLines(frozen),
		Currency:        DefaultCurrency,
		Status:          OrderStatusPending,
		ShippingAddress: shippingAddress,
		PaymentMethod:   paymentMethod,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func SumLines(lines []OrderLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Subtotal)
	}
	return total
}

func (o *Order) SetStatus(status OrderStatus, now time.Time) {
	o.Status = status
	o.UpdatedAt = now
}

// AttachPayment links a settled payment and confirms the order.
func (o *Order) AttachPayment(paymentID string, now time.Time) {
	o.PaymentID = &paymentID
	o.Status = OrderStatusConfirmed
	o.UpdatedAt = now
}

func (o *Order) Clone() *Order {
	cp := *o
	cp.Lines = make([]OrderLine, len(o.Lines))
	copy(cp.Lines, o.Lines)
	if o.PaymentID != nil {
		id := *o.PaymentID
		cp.PaymentID = &id
	}
	return &cp
}
