// Package queue defines message payloads exchanged over the message broker.
package queue

// Queue names.  Both queues are durable and messages are persistent.
const (
    BookingConfirmedQueue = "booking.confirmed"
    BookingCanceledQueue  = "booking.canceled"
)

// BookingConfirmedEvent is published after a payment commits and the booking
// becomes confirmed.  It carries enough for downstream consumers to log or
// notify without querying the primary database.
type BookingConfirmedEvent struct {
    BookingID   uint64  `json:"booking_id"`
    UserID      uint64  `json:"user_id"`
    Username    string  `json:"username"`
    PlaceID     uint64  `json:"place_id"`
    PlaceName   string  `json:"place_name"`
    StartDate   string  `json:"start_date"`
    EndDate     string  `json:"end_date"`
    Nights      int     `json:"nights"`
    PaymentID   uint64  `json:"payment_id"`
    Amount      float64 `json:"amount"`
    ConfirmedAt string  `json:"confirmed_at"`
}

// BookingCanceledEvent is published after a cancellation commits.
type BookingCanceledEvent struct {
    BookingID      uint64 `json:"booking_id"`
    UserID         uint64 `json:"user_id"`
    Username       string `json:"username"`
    PlaceID        uint64 `json:"place_id"`
    PreviousStatus string `json:"previous_status"`
    PaymentRemoved bool   `json:"payment_removed"`
    CanceledAt     string `json:"canceled_at"`
}
