package model

// Place is a bookable resource.  Places are maintained outside the API
// (migrations, admin tooling) and are read-only here.
type Place struct {
    ID          uint64  `db:"id" json:"id"`
    Name        string  `db:"name" json:"name"`
    Type        string  `db:"type" json:"type"`
    Location    string  `db:"location" json:"location"`
    Description string  `db:"description" json:"description"`
    PricePerDay float64 `db:"price_per_day" json:"price_per_day"`
}
