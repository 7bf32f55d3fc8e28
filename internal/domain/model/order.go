package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/orderboard/internal/domain/errors"
)

// OrderStatus describes the fulfillment lifecycle of an order.
type OrderStatus string

const (
	OrderStatusNew        OrderStatus = "novo"
	OrderStatusAccepted   OrderStatus = "aceito"
	OrderStatusProduction OrderStatus = "producao"
	OrderStatusDelivery   OrderStatus = "entrega"
	OrderStatusCompleted  OrderStatus = "finalizado"
	OrderStatusCancelled  OrderStatus = "cancelado"
)

// OrderItem is a single line of an order.
type OrderItem struct {
	ProductName  string          `json:"product_name"`
	Quantity     int             `json:"quantity"`
	UnitSubtotal decimal.Decimal `json:"unit_subtotal"`
}

// Order is the client-side view of a restaurant order.
type Order struct {
	ID                    int64           `json:"id"`
	OrderNumber           string          `json:"order_number"`
	Status                OrderStatus     `json:"status"`
	CustomerName          string          `json:"customer_name"`
	CustomerPhone         string          `json:"customer_phone,omitempty"`
	CustomerAddress       string          `json:"customer_address,omitempty"`
	Items                 []OrderItem     `json:"items"`
	TotalAmount           decimal.Decimal `json:"total_amount"`
	PaymentMethod         string          `json:"payment_method,omitempty"`
	Notes                 string          `json:"notes,omitempty"`
	EstimatedDeliveryTime *int            `json:"estimated_delivery_time,omitempty"`
	CancellationReason    string          `json:"cancellation_reason,omitempty"`

	CreatedAt           time.Time  `json:"created_at"`
	AcceptedAt          *time.Time `json:"accepted_at,omitempty"`
	ProductionStartedAt *time.Time `json:"production_started_at,omitempty"`
	DeliveryStartedAt   *time.Time `json:"delivery_started_at,omitempty"`
	CompletedAt         *time.Time `json:"completed_at,omitempty"`
}

// Stamp records the lifecycle timestamp that belongs to status.
// Timestamps already set are kept, so the progression stays monotonic.
func (o *Order) Stamp(status OrderStatus, at time.Time) {
	var slot **time.Time
	switch status {
	case OrderStatusAccepted:
		slot = &o.AcceptedAt
	case OrderStatusProduction:
		slot = &o.ProductionStartedAt
	case OrderStatusDelivery:
		slot = &o.DeliveryStartedAt
	case OrderStatusCompleted:
		slot = &o.CompletedAt
	default:
		return
	}
	if *slot != nil {
		return
	}
	t := at
	*slot = &t
}

// Clone returns a deep copy safe to hand out to readers.
func (o Order) Clone() Order {
	c := o
	if o.Items != nil {
		c.Items = append([]OrderItem(nil), o.Items...)
	}
	c.EstimatedDeliveryTime = cloneInt(o.EstimatedDeliveryTime)
	c.AcceptedAt = cloneTime(o.AcceptedAt)
	c.ProductionStartedAt = cloneTime(o.ProductionStartedAt)
	c.DeliveryStartedAt = cloneTime(o.DeliveryStartedAt)
	c.CompletedAt = cloneTime(o.CompletedAt)
	return c
}

// OrderFilter narrows the order listing. Zero value lists everything.
type OrderFilter struct {
	Status OrderStatus
	// Date is formatted as YYYY-MM-DD by the API client.
	Date time.Time
}

// StatusExtra carries optional fields sent together with a status change.
type StatusExtra struct {
	EstimatedDeliveryTime *int   `json:"estimated_delivery_time,omitempty"`
	PaymentMethod         string `json:"payment_method,omitempty"`
	Notes                 string `json:"notes,omitempty"`
	CancellationReason    string `json:"cancellation_reason,omitempty"`
}

// OrderUpdate is a partial update of non-status fields. Nil fields are left untouched.
type OrderUpdate struct {
	CustomerName          *string `json:"customer_name,omitempty"`
	CustomerPhone         *string `json:"customer_phone,omitempty"`
	CustomerAddress       *string `json:"customer_address,omitempty"`
	PaymentMethod         *string `json:"payment_method,omitempty"`
	Notes                 *string `json:"notes,omitempty"`
	EstimatedDeliveryTime *int    `json:"estimated_delivery_time,omitempty"`
}

// Apply copies the set fields onto order.
func (u OrderUpdate) Apply(order *Order) {
	if u.CustomerName != nil {
		order.CustomerName = *u.CustomerName
	}
	if u.CustomerPhone != nil {
		order.CustomerPhone = *u.CustomerPhone
	}
	if u.CustomerAddress != nil {
		order.CustomerAddress = *u.CustomerAddress
	}
	if u.PaymentMethod != nil {
		order.PaymentMethod = *u.PaymentMethod
	}
	if u.Notes != nil {
		order.Notes = *u.Notes
	}
	if u.EstimatedDeliveryTime != nil {
		order.EstimatedDeliveryTime = cloneInt(u.EstimatedDeliveryTime)
	}
}

// Empty reports whether no field is set.
func (u OrderUpdate) Empty() bool {
	return u.CustomerName == nil && u.CustomerPhone == nil && u.CustomerAddress == nil &&
		u.PaymentMethod == nil && u.Notes == nil && u.EstimatedDeliveryTime == nil
}

// OrderDraft is the payload used by the customer-facing flow to create an order.
type OrderDraft struct {
	CustomerName    string      `json:"customer_name"`
	CustomerPhone   string      `json:"customer_phone,omitempty"`
	CustomerAddress string      `json:"customer_address,omitempty"`
	Items           []OrderItem `json:"items"`
	PaymentMethod   string      `json:"payment_method,omitempty"`
	Notes           string      `json:"notes,omitempty"`
}

// Validate checks that the draft names a customer and holds at least one item.
func (d OrderDraft) Validate() error {
	if strings.TrimSpace(d.CustomerName) == "" {
		return fmt.Errorf("%w: customer name is required", domainErrors.ErrInvalidPayload)
	}
	if len(d.Items) == 0 {
		return fmt.Errorf("%w: order has no items", domainErrors.ErrInvalidPayload)
	}
	for _, it := range d.Items {
		if it.Quantity <= 0 || it.UnitSubtotal.IsNegative() {
			return fmt.Errorf("%w: invalid item %q", domainErrors.ErrInvalidPayload, it.ProductName)
		}
	}
	return nil
}

// Order builds the local representation of a freshly created order.
func (d OrderDraft) Order(id int64, number string, createdAt time.Time) Order {
	total := decimal.Zero
	for _, it := range d.Items {
		total = total.Add(it.UnitSubtotal.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return Order{
		ID:              id,
		OrderNumber:     number,
		Status:          OrderStatusNew,
		CustomerName:    d.CustomerName,
		CustomerPhone:   d.CustomerPhone,
		CustomerAddress: d.CustomerAddress,
		Items:           append([]OrderItem(nil), d.Items...),
		TotalAmount:     total,
		PaymentMethod:   d.PaymentMethod,
		Notes:           d.Notes,
		CreatedAt:       createdAt,
	}
}

// CreatedOrder is returned by the API after order creation.
type CreatedOrder struct {
	ID          int64  `json:"id"`
	OrderNumber string `json:"order_number"`
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	n := *v
	return &n
}
