// This file defines read access to places.  Places have no create or update
// path in the API; rows come from migrations or external tooling.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/place-reservation/internal/model"
)

// PlaceRepo encapsulates all database queries related to places.
type PlaceRepo struct {
	db *sqlx.DB
}

// NewPlaceRepo constructs a PlaceRepo with the provided DB handle.
func NewPlaceRepo(db *sqlx.DB) *PlaceRepo {
	return &PlaceRepo{db: db}
}

const placeColumns = "id, name, type, location, description, price_per_day"

// GetByID fetches a place by its ID.  It returns ErrPlaceNotFound if no row
// is found.
func (r *PlaceRepo) GetByID(ctx context.Context, id uint64) (*model.Place, error) {
	var p model.Place
	if err := r.db.GetContext(ctx, &p, "SELECT "+placeColumns+" FROM places WHERE id = ?", id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlaceNotFound
		}
		return nil, err
	}
	return &p, nil
}

// ListAll returns every place ordered by id.
func (r *PlaceRepo) ListAll(ctx context.Context) ([]model.Place, error) {
	out := make([]model.Place, 0)
	if err := r.db.SelectContext(ctx, &out, "SELECT "+placeColumns+" FROM places ORDER BY id"); err != nil {
		return nil, err
	}
	return out, nil
}
