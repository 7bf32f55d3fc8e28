package dto

import "github.com/polkiloo/orderboard/internal/domain/model"

// DropRequest describes a card dropped into a board column.
type DropRequest struct {
	Column string `json:"column"`
}

// CancelRequest carries the optional cancellation reason.
// An empty reason deletes the order.
type CancelRequest struct {
	Reason string `json:"reason"`
}

// AcceptRequest carries optional fields sent together with acceptance.
type AcceptRequest struct {
	EstimatedDeliveryTime *int   `json:"estimated_delivery_time,omitempty"`
	PaymentMethod         string `json:"payment_method,omitempty"`
	Notes                 string `json:"notes,omitempty"`
}

// Extra converts the request into status extras, nil when nothing is set.
func (r AcceptRequest) Extra() *model.StatusExtra {
	if r.EstimatedDeliveryTime == nil && r.PaymentMethod == "" && r.Notes == "" {
		return nil
	}
	return &model.StatusExtra{
		EstimatedDeliveryTime: r.EstimatedDeliveryTime,
		PaymentMethod:         r.PaymentMethod,
		Notes:                 r.Notes,
	}
}

// ErrorResponse is returned for every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse describes service liveness.
type HealthResponse struct {
	Status        string `json:"status"`
	PushConnected bool   `json:"push_connected"`
	Journal       string `json:"journal"`
}
