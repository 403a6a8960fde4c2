package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"khidma/internal/order/domain"
	"khidma/internal/shared/apperrors"
)

type OrderRepo struct {
	db *pgxpool.Pool
}

func NewOrderRepo(db *pgxpool.Pool) *OrderRepo {
	return &OrderRepo{db: db}
}

const orderColumns = `
	id, client_id, artisan_id, professions, wilaya, address, description,
	max_price, status, cancel_reason, cancelled_by, cancel_type, cancel_date,
	created_at, updated_at
`

func (r *OrderRepo) Create(ctx context.Context, order domain.Order) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO orders (
			id, client_id, artisan_id, professions, wilaya, address,
			description, max_price, status, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$10)
	`,
		order.ID, order.ClientID, order.ArtisanID, order.Professions,
		order.Wilaya, order.Address, order.Description, order.MaxPrice,
		order.Status, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("insert order failed: %w", err)
	}
	return nil
}

func (r *OrderRepo) GetByID(ctx context.Context, orderID string) (*domain.Order, error) {
	row := r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID)

	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("order not found")
		}
		return nil, err
	}
	return order, nil
}

func (r *OrderRepo) ListByClient(ctx context.Context, clientID string) ([]domain.Order, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE client_id = $1
		ORDER BY created_at DESC
	`, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

// ListForArtisan returns orders an artisan can work on: open-bid orders
// matching their professions and wilaya, plus any order bound to them.
func (r *OrderRepo) ListForArtisan(ctx context.Context, artisanID string, professions []string, wilaya string) ([]domain.Order, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE artisan_id = $1
		   OR (status = 'pending' AND artisan_id IS NULL AND wilaya = $3 AND professions && $2)
		ORDER BY created_at DESC
	`, artisanID, professions, wilaya)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

// AcceptPending relies on the WHERE status='pending' guard: of two racing
// acceptances exactly one changes a row.
func (r *OrderRepo) AcceptPending(ctx context.Context, orderID, artisanID string) error {
	cmd, err := r.db.Exec(ctx, `
		UPDATE orders
		SET status = 'accepted', artisan_id = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`, orderID, artisanID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return apperrors.InvalidState("order is no longer pending")
	}
	return nil
}

func (r *OrderRepo) Finalize(ctx context.Context, orderID string, status domain.Status, cancellation *domain.Cancellation) error {
	var cmd pgconn.CommandTag
	var err error
	if cancellation != nil {
		cmd, err = r.db.Exec(ctx, `
			UPDATE orders
			SET status = $2, cancel_reason = $3, cancelled_by = $4,
			    cancel_type = $5, cancel_date = $6, updated_at = NOW()
			WHERE id = $1 AND status NOT IN ('rejected', 'canceled', 'completed')
		`, orderID, status, cancellation.Reason, cancellation.CancelledBy,
			cancellation.Type, cancellation.Date)
	} else {
		cmd, err = r.db.Exec(ctx, `
			UPDATE orders
			SET status = $2, updated_at = NOW()
			WHERE id = $1 AND status NOT IN ('rejected', 'canceled', 'completed')
		`, orderID, status)
	}
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return apperrors.InvalidState("order is already finalized")
	}
	return nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var order domain.Order
	var cancelReason, cancelledBy, cancelType *string
	var cancelDate *time.Time

	err := row.Scan(
		&order.ID, &order.ClientID, &order.ArtisanID, &order.Professions,
		&order.Wilaya, &order.Address, &order.Description, &order.MaxPrice,
		&order.Status, &cancelReason, &cancelledBy, &cancelType, &cancelDate,
		&order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if cancelReason != nil && cancelledBy != nil && cancelType != nil {
		order.Cancellation = &domain.Cancellation{
			Reason:      *cancelReason,
			CancelledBy: *cancelledBy,
			Type:        *cancelType,
		}
		if cancelDate != nil {
			order.Cancellation.Date = *cancelDate
		}
	}
	return &order, nil
}

func collectOrders(rows pgx.Rows) ([]domain.Order, error) {
	var orders []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	return orders, rows.Err()
}
