package events

import (
	"context"
	"time"
)

// Routing keys published on the topic exchange. The email collaborator binds
// to reservation.* and account.*.
const (
	ReservationCreated   = "reservation.created"
	ReservationUpdated   = "reservation.updated"
	ReservationCancelled = "reservation.cancelled"
	ReservationCompleted = "reservation.completed"
	AccountPurged        = "account.purged"
)

// Publisher delivers domain events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, key string, payload any) error
	Close() error
}

// ReservationEvent is the payload of every reservation.* event.
type ReservationEvent struct {
	ReservationID string    `json:"reservation_id"`
	FieldID       string    `json:"field_id"`
	PlayerID      string    `json:"player_id"`
	OwnerID       string    `json:"owner_id"`
	Date          string    `json:"date"`
	StartTime     string    `json:"start_time"`
	EndTime       string    `json:"end_time"`
	Status        string    `json:"status"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// AccountEvent is the payload of account.* events.
type AccountEvent struct {
	UserID     string    `json:"user_id"`
	Email      string    `json:"email"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Nop discards every event. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }
func (Nop) Close() error                               { return nil }
