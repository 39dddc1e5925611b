package model

import "time"

// Booking statuses.  A booking starts pending and moves to confirmed when it
// is paid or to canceled when the owner cancels it.
const (
    BookingPending   = "pending"
    BookingConfirmed = "confirmed"
    BookingCanceled  = "canceled"
)

// Booking reserves one place for one user over the half-open range
// [StartDate, EndDate).
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the booking.
//  PlaceID   – place being reserved.
//  StartDate – first reserved day (inclusive).
//  EndDate   – end of the range (exclusive).
//  Status    – pending, confirmed or canceled.
type Booking struct {
    ID        uint64    `db:"id" json:"id"`
    UserID    uint64    `db:"user_id" json:"user_id"`
    PlaceID   uint64    `db:"place_id" json:"place_id"`
    StartDate time.Time `db:"start_date" json:"start_date"`
    EndDate   time.Time `db:"end_date" json:"end_date"`
    Status    string    `db:"status" json:"status"`
}

// Nights returns the number of whole days covered by the booking.  Ranges
// that are empty or reversed count as zero.
func (b Booking) Nights() int {
    d := b.EndDate.Sub(b.StartDate)
    if d <= 0 {
        return 0
    }
    return int(d / (24 * time.Hour))
}

// Overlaps reports whether the booking's range intersects [start, end).
func (b Booking) Overlaps(start, end time.Time) bool {
    return b.StartDate.Before(end) && start.Before(b.EndDate)
}
