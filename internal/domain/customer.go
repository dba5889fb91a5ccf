package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// Customer represents a storefront account. Accounts are created inactive
// and become active only after the emailed activation link is followed.
type Customer struct {
	ID           int64      `json:"id"`
	Email        string     `json:"email"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	Phone        *string    `json:"phone,omitempty"`
	IsActive     bool       `json:"is_active"`
	IsStaff      bool       `json:"is_staff"`
	IsSuperuser  bool       `json:"is_superuser"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Password wraps bcrypt hashing of a plaintext credential. The plaintext
// pointer is only ever held in memory during a request; it is never
// persisted or logged.
type Password struct {
	Plaintext *string
	Hash      string
}

func (p *Password) Set(plaintextPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintextPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	p.Hash = string(hash)
	p.Plaintext = &plaintextPassword
	return nil
}

func (p *Password) Matches(plaintextPassword string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(p.Hash), []byte(plaintextPassword))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Address is a delivery address owned by exactly one customer.
// At most one address per customer has IsDefault set.
type Address struct {
	ID                   uuid.UUID `json:"id"`
	CustomerID           int64     `json:"-"`
	FullName             string    `json:"full_name"`
	Phone                string    `json:"phone"`
	Postcode             string    `json:"postcode"`
	AddressLine1         string    `json:"address_line_1"`
	AddressLine2         string    `json:"address_line_2"`
	City                 string    `json:"city"`
	DeliveryInstructions string    `json:"delivery_instructions"`
	IsDefault            bool      `json:"default"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// Order is a paid order as shown on the customer dashboard. Only orders
// with BillingStatus true are listed; creation belongs to the checkout
// flow which lives outside this service.
type Order struct {
	ID            int64           `json:"id"`
	CustomerID    int64           `json:"-"`
	TotalPaid     decimal.Decimal `json:"total_paid"`
	BillingStatus bool            `json:"billing_status"`
	CreatedAt     time.Time       `json:"created_at"`
}
