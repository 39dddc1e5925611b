package model

import "time"

// Payment statuses.  Payments created by the booking flow are always paid.
const (
    PaymentPaid    = "paid"
    PaymentPending = "pending"
    PaymentFailed  = "failed"
)

// Payment settles exactly one booking.  It is removed when its booking is
// canceled.
type Payment struct {
    ID        uint64    `db:"id" json:"id"`
    BookingID uint64    `db:"booking_id" json:"booking_id"`
    Amount    float64   `db:"amount" json:"amount"`
    Status    string    `db:"status" json:"status"`
    Timestamp time.Time `db:"timestamp" json:"timestamp"`
}
