package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"bookshop-service/internal/domain"
)

const customerColumns = "id, email, username, password_hash, phone, is_active, is_staff, is_superuser, last_login, created_at, updated_at"

func scanCustomer(row interface{ Scan(...interface{}) error }) (*domain.Customer, error) {
	var c domain.Customer
	var lastLogin sql.NullTime
	err := row.Scan(&c.ID, &c.Email, &c.Username, &c.PasswordHash, &c.Phone,
		&c.IsActive, &c.IsStaff, &c.IsSuperuser, &lastLogin, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		c.LastLogin = &t
	}
	return &c, nil
}

// CreateCustomer stores a new inactive customer. Email and username are
// lower-normalized here so the uniqueness constraints are case-blind.
// The caller passes an already hashed credential; plaintext never
// reaches this layer.
func (s *PostgresStore) CreateCustomer(ctx context.Context, email, username, passwordHash string) (*domain.Customer, error) {
	query := `
		INSERT INTO customers (email, username, password_hash, is_active, is_staff, is_superuser)
		VALUES ($1, $2, $3, FALSE, FALSE, FALSE)
		RETURNING ` + customerColumns + `;`

	created, err := scanCustomer(s.db.QueryRowContext(ctx, query,
		strings.ToLower(email), strings.ToLower(username), passwordHash))
	if err != nil {
		if uniqueViolation(err, "customers_email_key", "Key (email)") {
			return nil, ErrEmailExists
		}
		if uniqueViolation(err, "customers_username_key", "Key (username)") {
			return nil, ErrUsernameExists
		}
		return nil, fmt.Errorf("store: CreateCustomer failed to scan row: %w", err)
	}
	return created, nil
}

func (s *PostgresStore) GetCustomerByID(ctx context.Context, id int64) (*domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1;`
	customer, err := scanCustomer(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("store: GetCustomerByID failed to scan row: %w", err)
	}
	return customer, nil
}

func (s *PostgresStore) GetCustomerByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE email = $1;`
	customer, err := scanCustomer(s.db.QueryRowContext(ctx, query, strings.ToLower(email)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("store: GetCustomerByEmail failed to scan row: %w", err)
	}
	return customer, nil
}

// SetCustomerActive flips the activation flag. Activation makes every
// outstanding account token stale because the flag is part of the token
// fingerprint; deactivation is the soft-delete path and keeps the row.
func (s *PostgresStore) SetCustomerActive(ctx context.Context, id int64, active bool) error {
	query := `UPDATE customers SET is_active = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2;`
	return s.execExpectingRow(ctx, "SetCustomerActive", ErrCustomerNotFound, query, active, id)
}

func (s *PostgresStore) SetCustomerPassword(ctx context.Context, id int64, passwordHash string) error {
	query := `UPDATE customers SET password_hash = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2;`
	return s.execExpectingRow(ctx, "SetCustomerPassword", ErrCustomerNotFound, query, passwordHash, id)
}

func (s *PostgresStore) TouchLastLogin(ctx context.Context, id int64) error {
	query := `UPDATE customers SET last_login = CURRENT_TIMESTAMP WHERE id = $1;`
	return s.execExpectingRow(ctx, "TouchLastLogin", ErrCustomerNotFound, query, id)
}

// UpdateCustomerUsername changes the display username. Email is
// immutable through this path on purpose.
func (s *PostgresStore) UpdateCustomerUsername(ctx context.Context, id int64, username string) (*domain.Customer, error) {
	query := `
		UPDATE customers SET username = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2
		RETURNING ` + customerColumns + `;`
	customer, err := scanCustomer(s.db.QueryRowContext(ctx, query, strings.ToLower(username), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		if uniqueViolation(err, "customers_username_key", "Key (username)") {
			return nil, ErrUsernameExists
		}
		return nil, fmt.Errorf("store: UpdateCustomerUsername failed to scan row: %w", err)
	}
	return customer, nil
}

// execExpectingRow runs an UPDATE/DELETE that must touch exactly one row
// and maps zero affected rows to notFound.
func (s *PostgresStore) execExpectingRow(ctx context.Context, op string, notFound error, query string, args ...interface{}) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("store: %s failed to execute: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: %s failed to get rows affected: %w", op, err)
	}
	if affected == 0 {
		return notFound
	}
	return nil
}
