package shared

// Task types processed by cmd/worker.
const (
	TypeAwardPoints               = "visitor:award_points"
	TypeCompleteReservations      = "reservation:complete_elapsed"
	TypeExpirePendingReservations = "reservation:expire_pending"
)

// Queues, by priority.
const (
	QueueCritical    = "critical"
	QueueReservation = "reservation"
	QueueDefault     = "default"
)

// Domain event routing keys published on the events exchange.
const (
	EventReservationConfirmed = "reservation.confirmed"
	EventReservationCancelled = "reservation.cancelled"
	EventRefundCompleted      = "refund.completed"
)
