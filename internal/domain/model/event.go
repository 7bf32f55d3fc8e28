package model

import "time"

// EventKind distinguishes push notifications.
type EventKind string

const (
	EventKindNew    EventKind = "new"
	EventKindUpdate EventKind = "update"
)

// PendingEvent is a push notification waiting for the next flush.
type PendingEvent struct {
	Kind      EventKind
	ArrivedAt time.Time
	// OrderID is zero when the notification carried no order reference.
	OrderID int64
	Status  OrderStatus
	// OccurredAt is the source timestamp of an update, zero when unknown.
	OccurredAt time.Time
}

// Actionable reports whether the event can be applied as a local patch.
func (e PendingEvent) Actionable() bool {
	return e.Kind == EventKindUpdate && e.OrderID != 0 && e.Status != ""
}

// SyncMetrics is a snapshot of the coalescing counters.
type SyncMetrics struct {
	EventsReceived  int64   `json:"events_received"`
	EventsFlushed   int64   `json:"events_flushed"`
	CoalescedEvents int64   `json:"coalesced_events"`
	AvgQueueTimeMs  float64 `json:"avg_queue_time_ms"`
	// QueuedEvents and Interacting describe the buffer at snapshot time.
	QueuedEvents int  `json:"queued_events"`
	Interacting  bool `json:"interacting"`
}
