package workflow

import "github.com/polkiloo/orderboard/internal/domain/model"

// Stage is a board column.
type Stage string

const (
	StageNew         Stage = "novo"
	StagePreparation Stage = "preparo"
	StageDelivery    Stage = "entrega"
	StageCompleted   Stage = "finalizado"
	StageCancelled   Stage = "cancelado"
)

// BoardStages lists the columns rendered on the board, left to right.
func BoardStages() []Stage {
	return []Stage{StageNew, StagePreparation, StageDelivery, StageCompleted}
}

// ParseStage validates a column name coming from the outside.
func ParseStage(s string) (Stage, bool) {
	switch st := Stage(s); st {
	case StageNew, StagePreparation, StageDelivery, StageCompleted, StageCancelled:
		return st, true
	}
	return "", false
}

// StageOf maps a status to its column.
func StageOf(status model.OrderStatus) Stage {
	switch status {
	case model.OrderStatusNew:
		return StageNew
	case model.OrderStatusAccepted, model.OrderStatusProduction:
		return StagePreparation
	case model.OrderStatusDelivery:
		return StageDelivery
	case model.OrderStatusCompleted:
		return StageCompleted
	case model.OrderStatusCancelled:
		return StageCancelled
	}
	return ""
}

// ResolveDrop returns the status an order in from reaches when dropped into
// target. Only the adjacent column to the right is a legal drop target;
// cancellation needs an explicit action and is never resolved from a drop.
func ResolveDrop(from model.OrderStatus, target Stage) (model.OrderStatus, bool) {
	if target == StageCancelled || IsTerminal(from) {
		return "", false
	}
	to, ok := NextStatus(canonical(from))
	if !ok || StageOf(to) != target {
		return "", false
	}
	if !CanTransition(canonical(from), to) {
		return "", false
	}
	return to, true
}

// CanAdvanceStage is CanTransition with aceito and producao treated as one
// stage, so an accepted order may go straight to entrega from the board.
func CanAdvanceStage(from, to model.OrderStatus) bool {
	if CanTransition(from, to) {
		return true
	}
	return from == model.OrderStatusAccepted && CanTransition(canonical(from), to)
}

// canonical folds aceito onto producao when the next step leaves the
// preparation stage.
func canonical(status model.OrderStatus) model.OrderStatus {
	if status == model.OrderStatusAccepted {
		return model.OrderStatusProduction
	}
	return status
}
