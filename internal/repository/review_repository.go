package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/place-reservation/internal/model"
)

// ReviewRepo stores reviews.  Reviews are insert-only.
type ReviewRepo struct {
	db *sqlx.DB
}

func NewReviewRepo(db *sqlx.DB) *ReviewRepo { return &ReviewRepo{db: db} }

// Create inserts rv and fills in its ID and creation time.  A review for an
// unknown place or user fails with ErrPlaceNotFound.
func (r *ReviewRepo) Create(ctx context.Context, rv *model.Review) error {
	if rv.CreatedAt.IsZero() {
		rv.CreatedAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO reviews (user_id, place_id, rating, comment, created_at) VALUES (?, ?, ?, ?, ?)`,
		rv.UserID, rv.PlaceID, rv.Rating, rv.Comment, rv.CreatedAt)
	if err != nil {
		if mysqlErrNumber(err) == mysqlNoReferencedRow {
			return ErrPlaceNotFound
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rv.ID = uint64(id)
	return nil
}

// ListByPlace returns reviews for a place, oldest first.
func (r *ReviewRepo) ListByPlace(ctx context.Context, placeID uint64) ([]model.Review, error) {
	out := make([]model.Review, 0)
	err := r.db.SelectContext(ctx, &out,
		`SELECT id, user_id, place_id, rating, comment, created_at
		 FROM reviews WHERE place_id = ? ORDER BY id`, placeID)
	if err != nil {
		return nil, err
	}
	return out, nil
}
