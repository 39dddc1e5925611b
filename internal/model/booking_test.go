package model

import (
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
)

func day(s string) time.Time {
    t, err := time.Parse("2006-01-02", s)
    if err != nil {
        panic(err)
    }
    return t
}

func TestBookingNights(t *testing.T) {
    b := Booking{StartDate: day("2024-01-01"), EndDate: day("2024-01-04")}
    assert.Equal(t, 3, b.Nights())

    reversed := Booking{StartDate: day("2024-01-04"), EndDate: day("2024-01-01")}
    assert.Equal(t, 0, reversed.Nights())
}

func TestBookingOverlapsIsHalfOpen(t *testing.T) {
    b := Booking{StartDate: day("2024-01-01"), EndDate: day("2024-01-04")}

    assert.True(t, b.Overlaps(day("2024-01-03"), day("2024-01-05")))
    assert.True(t, b.Overlaps(day("2023-12-30"), day("2024-01-02")))
    assert.False(t, b.Overlaps(day("2024-01-04"), day("2024-01-06")), "end date is exclusive")
    assert.False(t, b.Overlaps(day("2023-12-28"), day("2024-01-01")), "start date of b is not covered by a range ending on it")
}
