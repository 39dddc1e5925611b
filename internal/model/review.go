package model

import "time"

// Review is a user's rating and comment about a place.  Reviews are never
// edited after creation.
type Review struct {
    ID        uint64    `db:"id" json:"id"`
    UserID    uint64    `db:"user_id" json:"user_id"`
    PlaceID   uint64    `db:"place_id" json:"place_id"`
    Rating    int       `db:"rating" json:"rating"`
    Comment   string    `db:"comment" json:"comment"`
    CreatedAt time.Time `db:"created_at" json:"created_at"`
}
