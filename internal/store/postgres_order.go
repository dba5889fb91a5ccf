package store

import (
	"context"
	"fmt"

	"bookshop-service/internal/domain"
)

// ListOrders returns the customer's paid orders, newest first. Unpaid
// orders (billing_status = FALSE) belong to the checkout flow and are
// not shown on the dashboard.
func (s *PostgresStore) ListOrders(ctx context.Context, customerID int64) ([]domain.Order, error) {
	query := `
		SELECT id, customer_id, total_paid, billing_status, created_at
		FROM orders
		WHERE customer_id = $1 AND billing_status = TRUE
		ORDER BY created_at DESC;`
	rows, err := s.db.QueryContext(ctx, query, customerID)
	if err != nil {
		return nil, fmt.Errorf("store: ListOrders failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.CustomerID, &o.TotalPaid, &o.BillingStatus, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: ListOrders failed to scan order row: %w", err)
		}
		orders = append(orders, o)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("store: ListOrders iteration error: %w", err)
	}
	return orders, nil
}
