package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"khidma/internal/chat/domain"
)

// RelationshipRepo derives the chat gate from the orders and trips tables.
// An order binds the two while accepted or completed; a trip binds them once
// it has left the pending stage, with the driver resolved through the
// drivers table.
type RelationshipRepo struct {
	db *pgxpool.Pool
}

func NewRelationshipRepo(db *pgxpool.Pool) *RelationshipRepo {
	return &RelationshipRepo{db: db}
}

func (r *RelationshipRepo) Check(ctx context.Context, userA, userB string) (*domain.Relationship, error) {
	orderQuery := `
		SELECT id FROM orders
		WHERE status IN ('accepted', 'completed')
		  AND ((client_id = $1 AND artisan_id = $2) OR (client_id = $2 AND artisan_id = $1))
		ORDER BY created_at DESC
		LIMIT 1`

	var entityID string
	err := r.db.QueryRow(ctx, orderQuery, userA, userB).Scan(&entityID)
	if err == nil {
		return &domain.Relationship{CanChat: true, Kind: domain.RelationOrder, EntityID: entityID}, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to check order relationship: %w", err)
	}

	tripQuery := `
		SELECT t.id FROM trips t
		JOIN drivers d ON d.id = t.driver_id
		WHERE t.status <> 'pending'
		  AND ((t.client_id = $1 AND d.user_id = $2) OR (t.client_id = $2 AND d.user_id = $1))
		ORDER BY t.created_at DESC
		LIMIT 1`

	err = r.db.QueryRow(ctx, tripQuery, userA, userB).Scan(&entityID)
	if err == nil {
		return &domain.Relationship{CanChat: true, Kind: domain.RelationTrip, EntityID: entityID}, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to check trip relationship: %w", err)
	}

	return &domain.Relationship{CanChat: false, Kind: domain.RelationNone}, nil
}
