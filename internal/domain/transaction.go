package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var (
	ErrEmptyAsset      = errors.New("asset identifier is empty")
	ErrUnknownAction   = errors.New("unknown action, expected buy or sell")
	ErrInvalidQuantity = errors.New("quantity must be a positive number")
	ErrInvalidPrice    = errors.New("unit price must be a non-negative number")
)

// Transaction represents one recorded buy or sell. Records are never edited once
// stored; they can only be deleted by ID.
type Transaction struct {
	// ID is the identity of the record in the store. Two records with equal
	// content are still different transactions.
	ID        string  `json:"id"`
	Asset     string  `json:"asset"`
	Action    Action  `json:"action"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
	Date      Date    `json:"date"`
}

// NewTransaction validates the input and builds a transaction with a fresh ID.
// An unset date means today.
func NewTransaction(asset string, action Action, quantity, unitPrice float64, date Date) (Transaction, error) {
	tx := Transaction{
		ID:        uuid.New().String(),
		Asset:     NormalizeAsset(asset),
		Action:    action,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		Date:      date,
	}
	if tx.Date.IsZero() {
		tx.Date = Today()
	}

	if err := tx.Validate(); err != nil {
		return Transaction{}, err
	}

	return tx, nil
}

// NormalizeAsset case-folds and trims an asset identifier.
func NormalizeAsset(asset string) string {
	return strings.ToLower(strings.TrimSpace(asset))
}

// Validate reports the first invalid field.
func (t Transaction) Validate() error {
	if NormalizeAsset(t.Asset) == "" {
		return ErrEmptyAsset
	}
	if !t.Action.IsValid() {
		return ErrUnknownAction
	}
	if math.IsNaN(t.Quantity) || math.IsInf(t.Quantity, 0) || t.Quantity <= 0 {
		return errors.Wrapf(ErrInvalidQuantity, "got %v", t.Quantity)
	}
	if math.IsNaN(t.UnitPrice) || math.IsInf(t.UnitPrice, 0) || t.UnitPrice < 0 {
		return errors.Wrapf(ErrInvalidPrice, "got %v", t.UnitPrice)
	}
	return nil
}

// Total returns quantity times unit price.
func (t Transaction) Total() float64 {
	return t.Quantity * t.UnitPrice
}

// String returns a human-readable string representation.
func (t Transaction) String() string {
	return fmt.Sprintf("%s %s %v %s @ %v", t.Date, t.Action, t.Quantity, t.Asset, t.UnitPrice)
}

// UnmarshalJSON also accepts the legacy browser export layout, which used
// "coin" for the asset and "price" for the unit price.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID        string   `json:"id"`
		Asset     string   `json:"asset"`
		Coin      string   `json:"coin"`
		Action    Action   `json:"action"`
		Quantity  float64  `json:"quantity"`
		UnitPrice *float64 `json:"unitPrice"`
		Price     *float64 `json:"price"`
		Date      Date     `json:"date"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Wrap(err, "decode transaction")
	}

	asset := raw.Asset
	if asset == "" {
		asset = raw.Coin
	}
	var price float64
	switch {
	case raw.UnitPrice != nil:
		price = *raw.UnitPrice
	case raw.Price != nil:
		price = *raw.Price
	}

	*t = Transaction{
		ID:        raw.ID,
		Asset:     NormalizeAsset(asset),
		Action:    raw.Action,
		Quantity:  raw.Quantity,
		UnitPrice: price,
		Date:      raw.Date,
	}
	return nil
}
