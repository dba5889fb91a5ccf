package store

import (
	"database/sql"
	"errors"
	"log"
	"strings"

	"github.com/lib/pq"
)

// Predefined errors for store operations
var (
	ErrCustomerNotFound     = errors.New("store: customer not found")
	ErrEmailExists          = errors.New("store: email already taken")
	ErrUsernameExists       = errors.New("store: username already exists")
	ErrAddressNotFound      = errors.New("store: address not found")
	ErrCategoryNotFound     = errors.New("store: category not found")
	ErrCategoryNameExists   = errors.New("store: category name already exists")
	ErrCategorySlugExists   = errors.New("store: category slug already exists")
	ErrCategoryCycle        = errors.New("store: category cannot be moved into its own subtree")
	ErrCategoryInUse        = errors.New("store: category still referenced by products")
	ErrProductNotFound      = errors.New("store: product not found")
	ErrProductSlugExists    = errors.New("store: product slug already exists")
)

// PostgresStore implements the Storer interfaces using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgresStore instance.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// uniqueViolation reports whether err is a 23505 on the named constraint.
func uniqueViolation(err error, constraint, keyDetail string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != "23505" {
		return false
	}
	return strings.Contains(pqErr.Constraint, constraint) || strings.Contains(pqErr.Detail, keyDetail)
}

// foreignKeyViolation reports whether err is a 23503 (restricted delete
// or dangling reference).
func foreignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503"
}

func (s *PostgresStore) Close() error {
	if s.db != nil {
		log.Println("INFO: Closing database connection pool...")
		err := s.db.Close()
		if err != nil {
			log.Printf("ERROR: Failed to close database connection pool: %v", err)
			return err
		}
		log.Println("INFO: Database connection pool closed successfully.")
		return nil
	}
	return nil
}
