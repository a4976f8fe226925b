package core

import (
	"errors"
	"strings"
	"time"
)

// Transaction kinds. The kind is derived once, when rows are decoded from the
// upstream API; nothing downstream re-reads the free-text description.
const (
	KindDeposit    TransactionKind = "deposit"
	KindWithdrawal TransactionKind = "withdrawal"
	KindPayment    TransactionKind = "payment"
	KindTransfer   TransactionKind = "transfer"
	KindUnknown    TransactionKind = "unknown"
)

type (
	TransactionKind string

	Money struct {
		Cents int64
	}

	// Transaction is a single ledger row of a customer account.
	Transaction struct {
		ID          string
		AccountID   string
		Date        time.Time
		Description string
		Kind        TransactionKind
		Amount      Money
		Fee         Money
	}

	// Account is a customer account as reported by the core banking API.
	Account struct {
		ID       string
		HolderID string
		Number   string
		Type     string
		Balance  Money
	}

	// Point is a coordinate pair in decimal degrees.
	Point struct {
		Lat float64
		Lng float64
	}

	// Branch is a branch or ATM location. The set is fixed at configuration
	// time and never mutated at runtime.
	Branch struct {
		Name     string
		Location Point
	}
)

var (
	ErrEmptyName        = errors.New("empty branch name")
	ErrInvalidLatitude  = errors.New("latitude out of range")
	ErrInvalidLongitude = errors.New("longitude out of range")
)

// KindFromDescription maps an upstream transaction description to a kind.
// The upstream ledger marks withdrawals with the literal "Retiro" in any
// casing; everything else keeps its sign as delivered.
func KindFromDescription(desc string) TransactionKind {
	switch strings.ToLower(strings.TrimSpace(desc)) {
	case "retiro":
		return KindWithdrawal
	case "deposito", "depósito":
		return KindDeposit
	case "pago":
		return KindPayment
	case "transferencia":
		return KindTransfer
	default:
		return KindUnknown
	}
}

func (p Point) Validate() error {
	if p.Lat < -90 || p.Lat > 90 {
		return ErrInvalidLatitude
	}
	if p.Lng < -180 || p.Lng > 180 {
		return ErrInvalidLongitude
	}
	return nil
}

func (b Branch) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return ErrEmptyName
	}
	return b.Location.Validate()
}

// IsDebit reports whether a normalized transaction reduces the balance.
func (t Transaction) IsDebit() bool {
	return t.Amount.Cents < 0
}
