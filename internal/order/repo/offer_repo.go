package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"khidma/internal/order/domain"
	"khidma/internal/shared/apperrors"
)

type OfferRepo struct {
	db *pgxpool.Pool
}

func NewOfferRepo(db *pgxpool.Pool) *OfferRepo {
	return &OfferRepo{db: db}
}

func (r *OfferRepo) Create(ctx context.Context, offer domain.Offer) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO offers (id, artisan_id, order_id, price, description, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, offer.ID, offer.ArtisanID, offer.OrderID, offer.Price,
		offer.Description, offer.Status, offer.CreatedAt)
	if err != nil {
		// the unique (artisan_id, order_id) index backs the invariant the
		// service checks under the order lock
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperrors.Duplicate("an offer for this order already exists")
		}
		return fmt.Errorf("insert offer failed: %w", err)
	}
	return nil
}

func (r *OfferRepo) GetByID(ctx context.Context, offerID string) (*domain.Offer, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, artisan_id, order_id, price, description, status, created_at
		FROM offers WHERE id = $1
	`, offerID)
	return scanOffer(row)
}

func (r *OfferRepo) FindByArtisanAndOrder(ctx context.Context, artisanID, orderID string) (*domain.Offer, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, artisan_id, order_id, price, description, status, created_at
		FROM offers WHERE artisan_id = $1 AND order_id = $2
	`, artisanID, orderID)
	return scanOffer(row)
}

func (r *OfferRepo) ListByOrder(ctx context.Context, orderID string) ([]domain.Offer, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, artisan_id, order_id, price, description, status, created_at
		FROM offers WHERE order_id = $1
		ORDER BY created_at DESC
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOffers(rows)
}

func (r *OfferRepo) ListByArtisan(ctx context.Context, artisanID string) ([]domain.Offer, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, artisan_id, order_id, price, description, status, created_at
		FROM offers WHERE artisan_id = $1
		ORDER BY created_at DESC
	`, artisanID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOffers(rows)
}

func (r *OfferRepo) SettleForOrder(ctx context.Context, orderID, acceptedOfferID string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE offers
		SET status = CASE WHEN id = $2 THEN 'accepted' ELSE 'rejected' END
		WHERE order_id = $1 AND status = 'pending'
	`, orderID, acceptedOfferID)
	return err
}

func scanOffer(row pgx.Row) (*domain.Offer, error) {
	var offer domain.Offer
	err := row.Scan(&offer.ID, &offer.ArtisanID, &offer.OrderID,
		&offer.Price, &offer.Description, &offer.Status, &offer.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("offer not found")
		}
		return nil, err
	}
	return &offer, nil
}

func collectOffers(rows pgx.Rows) ([]domain.Offer, error) {
	var offers []domain.Offer
	for rows.Next() {
		offer, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}
		offers = append(offers, *offer)
	}
	return offers, rows.Err()
}
