package workflow

import "github.com/polkiloo/orderboard/internal/domain/model"

var forward = map[model.OrderStatus]model.OrderStatus{
	model.OrderStatusNew:        model.OrderStatusAccepted,
	model.OrderStatusAccepted:   model.OrderStatusProduction,
	model.OrderStatusProduction: model.OrderStatusDelivery,
	model.OrderStatusDelivery:   model.OrderStatusCompleted,
}

var labels = map[model.OrderStatus]string{
	model.OrderStatusNew:        "Novo",
	model.OrderStatusAccepted:   "Aceito",
	model.OrderStatusProduction: "Em produção",
	model.OrderStatusDelivery:   "Saiu para entrega",
	model.OrderStatusCompleted:  "Finalizado",
	model.OrderStatusCancelled:  "Cancelado",
}

// Valid reports whether status belongs to the closed status set.
func Valid(status model.OrderStatus) bool {
	_, ok := labels[status]
	return ok
}

// IsTerminal reports whether no transition may leave status.
func IsTerminal(status model.OrderStatus) bool {
	return status == model.OrderStatusCompleted || status == model.OrderStatusCancelled
}

// NextStatus returns the single legal forward transition from current.
// ok is false for terminal and unknown statuses.
func NextStatus(current model.OrderStatus) (next model.OrderStatus, ok bool) {
	next, ok = forward[current]
	return next, ok
}

// CanTransition permits the forward step and cancellation from any non-terminal status.
func CanTransition(from, to model.OrderStatus) bool {
	if !Valid(from) || !Valid(to) || IsTerminal(from) {
		return false
	}
	if to == model.OrderStatusCancelled {
		return true
	}
	next, ok := forward[from]
	return ok && next == to
}

// Label returns the display label used on the board.
func Label(status model.OrderStatus) string {
	if l, ok := labels[status]; ok {
		return l
	}
	return string(status)
}
