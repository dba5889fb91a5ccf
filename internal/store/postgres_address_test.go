// File: bookshop-service/internal/store/postgres_address_test.go
package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"bookshop-service/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addressRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "customer_id", "full_name", "phone", "postcode",
		"address_line_1", "address_line_2", "city", "delivery_instructions", "is_default",
		"created_at", "updated_at"})
}

var (
	clearDefaultSQL = regexp.QuoteMeta(`UPDATE addresses SET is_default = FALSE, updated_at = CURRENT_TIMESTAMP WHERE customer_id = $1 AND is_default = TRUE;`)
	setDefaultSQL   = regexp.QuoteMeta(`UPDATE addresses SET is_default = TRUE, updated_at = CURRENT_TIMESTAMP WHERE id = $1 AND customer_id = $2;`)
)

func TestPostgresStore_CreateAddress(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	now := time.Now().Truncate(time.Millisecond)
	customerID := int64(1)
	generatedID := uuid.New()

	query := regexp.QuoteMeta(`INSERT INTO addresses (id, customer_id, full_name, phone, postcode, address_line_1, address_line_2, city, delivery_instructions, is_default)`)
	// The id is generated inside the store, so match it loosely.
	mock.ExpectQuery(query).
		WithArgs(sqlmock.AnyArg(), customerID, "Jo Reader", "555-0100", "AB1 2CD",
			"1 High Street", "", "Booktown", "Leave with neighbour").
		WillReturnRows(addressRows().
			AddRow(generatedID, customerID, "Jo Reader", "555-0100", "AB1 2CD",
				"1 High Street", "", "Booktown", "Leave with neighbour", false, now, now))

	created, err := store.CreateAddress(context.Background(), &domain.Address{
		CustomerID:           customerID,
		FullName:             "Jo Reader",
		Phone:                "555-0100",
		Postcode:             "AB1 2CD",
		AddressLine1:         "1 High Street",
		City:                 "Booktown",
		DeliveryInstructions: "Leave with neighbour",
	})

	require.NoError(t, err, "CreateAddress should not return an error")
	require.NotNil(t, created)
	assert.Equal(t, generatedID, created.ID)
	assert.False(t, created.IsDefault, "New addresses never start as the default")

	require.NoError(t, mock.ExpectationsWereMet(), "SQLmock expectations were not met")
}

func TestPostgresStore_UpdateAddress_NotFound(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	addressID := uuid.New()
	query := regexp.QuoteMeta(`UPDATE addresses
			SET full_name = $1, phone = $2, postcode = $3, address_line_1 = $4, address_line_2 = $5, city = $6, delivery_instructions = $7, updated_at = CURRENT_TIMESTAMP`)

	// An address belonging to another customer scans zero rows, which is
	// indistinguishable from a missing one.
	mock.ExpectQuery(query).
		WithArgs("Jo Reader", "555-0100", "AB1 2CD", "", "", "", "", addressID, int64(2)).
		WillReturnRows(addressRows())

	updated, err := store.UpdateAddress(context.Background(), &domain.Address{
		ID:         addressID,
		CustomerID: 2,
		FullName:   "Jo Reader",
		Phone:      "555-0100",
		Postcode:   "AB1 2CD",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAddressNotFound), "Error should be ErrAddressNotFound")
	assert.Nil(t, updated)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteAddress_NotFound(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	addressID := uuid.New()
	query := regexp.QuoteMeta(`DELETE FROM addresses WHERE id = $1 AND customer_id = $2;`)
	mock.ExpectExec(query).WithArgs(addressID, int64(1)).WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.DeleteAddress(context.Background(), 1, addressID)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAddressNotFound), "Error should be ErrAddressNotFound")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SetDefaultAddress(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	customerID := int64(1)
	addressID := uuid.New()

	// Clearing the old default and promoting the new one happen in one
	// transaction.
	mock.ExpectBegin()
	mock.ExpectExec(clearDefaultSQL).WithArgs(customerID).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(setDefaultSQL).WithArgs(addressID, customerID).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.SetDefaultAddress(context.Background(), customerID, addressID)

	require.NoError(t, err, "SetDefaultAddress should not return an error")
	require.NoError(t, mock.ExpectationsWereMet(), "SQLmock expectations were not met")
}

func TestPostgresStore_SetDefaultAddress_NotFound(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	customerID := int64(1)
	addressID := uuid.New()

	// The target address doesn't exist for this customer: the transaction
	// must roll back so the old default survives.
	mock.ExpectBegin()
	mock.ExpectExec(clearDefaultSQL).WithArgs(customerID).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(setDefaultSQL).WithArgs(addressID, customerID).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := store.SetDefaultAddress(context.Background(), customerID, addressID)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAddressNotFound), "Error should be ErrAddressNotFound")

	require.NoError(t, mock.ExpectationsWereMet())
}
