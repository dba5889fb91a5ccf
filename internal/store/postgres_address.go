package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bookshop-service/internal/domain"

	"github.com/google/uuid"
)

const addressColumns = "id, customer_id, full_name, phone, postcode, address_line_1, address_line_2, city, delivery_instructions, is_default, created_at, updated_at"

func scanAddress(row interface{ Scan(...interface{}) error }) (*domain.Address, error) {
	var a domain.Address
	err := row.Scan(&a.ID, &a.CustomerID, &a.FullName, &a.Phone, &a.Postcode,
		&a.AddressLine1, &a.AddressLine2, &a.City, &a.DeliveryInstructions,
		&a.IsDefault, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *PostgresStore) ListAddresses(ctx context.Context, customerID int64) ([]domain.Address, error) {
	query := `SELECT ` + addressColumns + ` FROM addresses WHERE customer_id = $1 ORDER BY created_at DESC;`
	rows, err := s.db.QueryContext(ctx, query, customerID)
	if err != nil {
		return nil, fmt.Errorf("store: ListAddresses failed to query addresses: %w", err)
	}
	defer rows.Close()

	addresses := []domain.Address{}
	for rows.Next() {
		var a domain.Address
		if err := rows.Scan(&a.ID, &a.CustomerID, &a.FullName, &a.Phone, &a.Postcode,
			&a.AddressLine1, &a.AddressLine2, &a.City, &a.DeliveryInstructions,
			&a.IsDefault, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("store: ListAddresses failed to scan address row: %w", err)
		}
		addresses = append(addresses, a)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("store: ListAddresses iteration error: %w", err)
	}
	return addresses, nil
}

func (s *PostgresStore) GetAddress(ctx context.Context, customerID int64, id uuid.UUID) (*domain.Address, error) {
	query := `SELECT ` + addressColumns + ` FROM addresses WHERE id = $1 AND customer_id = $2;`
	address, err := scanAddress(s.db.QueryRowContext(ctx, query, id, customerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAddressNotFound
		}
		return nil, fmt.Errorf("store: GetAddress failed to scan row: %w", err)
	}
	return address, nil
}

func (s *PostgresStore) CreateAddress(ctx context.Context, address *domain.Address) (*domain.Address, error) {
	query := `
		INSERT INTO addresses (id, customer_id, full_name, phone, postcode, address_line_1, address_line_2, city, delivery_instructions, is_default)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, FALSE)
		RETURNING ` + addressColumns + `;`

	created, err := scanAddress(s.db.QueryRowContext(ctx, query,
		uuid.New(), address.CustomerID, address.FullName, address.Phone, address.Postcode,
		address.AddressLine1, address.AddressLine2, address.City, address.DeliveryInstructions))
	if err != nil {
		return nil, fmt.Errorf("store: CreateAddress failed to scan row: %w", err)
	}
	return created, nil
}

func (s *PostgresStore) UpdateAddress(ctx context.Context, address *domain.Address) (*domain.Address, error) {
	query := `
		UPDATE addresses
		SET full_name = $1, phone = $2, postcode = $3, address_line_1 = $4, address_line_2 = $5, city = $6, delivery_instructions = $7, updated_at = CURRENT_TIMESTAMP
		WHERE id = $8 AND customer_id = $9
		RETURNING ` + addressColumns + `;`

	updated, err := scanAddress(s.db.QueryRowContext(ctx, query,
		address.FullName, address.Phone, address.Postcode, address.AddressLine1,
		address.AddressLine2, address.City, address.DeliveryInstructions,
		address.ID, address.CustomerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAddressNotFound
		}
		return nil, fmt.Errorf("store: UpdateAddress failed to scan row: %w", err)
	}
	return updated, nil
}

func (s *PostgresStore) DeleteAddress(ctx context.Context, customerID int64, id uuid.UUID) error {
	query := `DELETE FROM addresses WHERE id = $1 AND customer_id = $2;`
	return s.execExpectingRow(ctx, "DeleteAddress", ErrAddressNotFound, query, id, customerID)
}

// SetDefaultAddress clears the customer's previous default and promotes
// the given address as one atomic unit, so concurrent requests can never
// leave zero or two defaults behind.
func (s *PostgresStore) SetDefaultAddress(ctx context.Context, customerID int64, id uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: SetDefaultAddress failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE addresses SET is_default = FALSE, updated_at = CURRENT_TIMESTAMP WHERE customer_id = $1 AND is_default = TRUE;`,
		customerID); err != nil {
		return fmt.Errorf("store: SetDefaultAddress failed to clear previous default: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE addresses SET is_default = TRUE, updated_at = CURRENT_TIMESTAMP WHERE id = $1 AND customer_id = $2;`,
		id, customerID)
	if err != nil {
		return fmt.Errorf("store: SetDefaultAddress failed to set new default: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: SetDefaultAddress failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrAddressNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: SetDefaultAddress failed to commit: %w", err)
	}
	return nil
}
